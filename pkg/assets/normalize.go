package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/otiai10/copy"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/layerpress/pkg/cache"
	"github.com/matzehuels/layerpress/pkg/errors"
	"github.com/matzehuels/layerpress/pkg/observability"
	"github.com/matzehuels/layerpress/pkg/raster"
)

// Options configures a Normalizer. The zero value is usable: no cache,
// discarded logs, sequential processing.
type Options struct {
	Logger  *log.Logger
	Cache   cache.Cache
	Keyer   cache.Keyer
	Workers int
}

// Normalizer builds normalized layer trees.
type Normalizer struct {
	logger  *log.Logger
	cache   cache.Cache
	keyer   cache.Keyer
	workers int
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	n := &Normalizer{
		logger:  opts.Logger,
		cache:   opts.Cache,
		keyer:   opts.Keyer,
		workers: opts.Workers,
	}
	if n.logger == nil {
		n.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if n.cache == nil {
		n.cache = cache.NewNullCache()
	}
	if n.keyer == nil {
		n.keyer = cache.NewDefaultKeyer()
	}
	if n.workers < 1 {
		n.workers = 1
	}
	return n
}

// task is one file to materialize.
type task struct {
	category string
	relPath  string
	src      string
	dst      string
}

// Normalize rebuilds destRoot from sourceRoot, ordering categories and
// bounding every PNG to maxWidth x maxHeight.
//
// Per-file problems are recorded in the result and never returned. The
// returned error is non-nil only for structural failures (source missing,
// destination not writable) or cancellation.
func (n *Normalizer) Normalize(ctx context.Context, sourceRoot, destRoot string, maxWidth, maxHeight int) (*Result, error) {
	start := time.Now()
	observability.Stage().OnStageStart(ctx, observability.StageNormalize)
	res, err := n.normalize(ctx, sourceRoot, destRoot, maxWidth, maxHeight)
	observability.Stage().OnStageComplete(ctx, observability.StageNormalize, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (n *Normalizer) normalize(ctx context.Context, sourceRoot, destRoot string, maxWidth, maxHeight int) (*Result, error) {
	if err := errors.ValidateDimensions("normalization bound", maxWidth, maxHeight); err != nil {
		return nil, err
	}
	if err := checkRoots(sourceRoot, destRoot); err != nil {
		return nil, err
	}

	n.logger.Info("preparing assets", "src", sourceRoot, "dst", destRoot, "bound", Dimensions{maxWidth, maxHeight})

	cats, err := Discover(sourceRoot)
	if err != nil {
		return nil, err
	}
	if err := resetDir(destRoot); err != nil {
		return nil, err
	}

	res := &Result{SourceRoot: sourceRoot, DestRoot: destRoot, Categories: cats}

	// Directory names and the task order are fixed here, before any fan-out.
	var tasks []task
	for _, cat := range cats {
		catTasks, skipped, err := n.plan(cat, filepath.Join(destRoot, cat.DestName))
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, skipped...)
		tasks = append(tasks, catTasks...)
		n.logger.Debug("category", "name", cat.Name, "z", cat.ZIndex, "dest", cat.DestName, "files", len(catTasks))
	}

	results := make([]FileResult, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workers)
	for i, t := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			itemStart := time.Now()
			results[i] = n.process(gctx, t, maxWidth, maxHeight)
			observability.Stage().OnItem(gctx, observability.StageNormalize, string(results[i].Outcome), time.Since(itemStart))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Files = append(res.Files, results...)
	n.logger.Info("assets prepared",
		"categories", len(cats),
		"copied", res.Count(OutcomeCopied),
		"resized", res.Count(OutcomeResized),
		"fallback", res.Count(OutcomeFallback),
		"skipped", res.Count(OutcomeSkipped))
	return res, nil
}

// plan creates the destination directories for one category and lists its
// files. Variant groups are walked one level deep only. Listing failures
// inside a category are reported as skipped entries.
func (n *Normalizer) plan(cat Category, dstDir string) ([]task, []FileResult, error) {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeIO, err, "create %s", dstDir)
	}

	entries, err := os.ReadDir(cat.Path)
	if err != nil {
		n.logger.Warn("cannot list category", "path", cat.Path, "err", err)
		return nil, []FileResult{{Category: cat.Name, Outcome: OutcomeSkipped, Reason: err.Error()}}, nil
	}

	var tasks []task
	var skipped []FileResult
	for _, e := range entries {
		src := filepath.Join(cat.Path, e.Name())
		dst := filepath.Join(dstDir, e.Name())
		switch {
		case e.Type().IsRegular():
			tasks = append(tasks, task{category: cat.Name, relPath: e.Name(), src: src, dst: dst})

		case e.IsDir():
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return nil, nil, errors.Wrap(errors.ErrCodeIO, err, "create %s", dst)
			}
			inner, err := os.ReadDir(src)
			if err != nil {
				n.logger.Warn("cannot list variant group", "path", src, "err", err)
				skipped = append(skipped, FileResult{Category: cat.Name, RelPath: e.Name(), Outcome: OutcomeSkipped, Reason: err.Error()})
				continue
			}
			for _, s := range inner {
				if !s.Type().IsRegular() {
					n.logger.Debug("ignoring nested entry", "path", filepath.Join(src, s.Name()))
					continue
				}
				tasks = append(tasks, task{
					category: cat.Name,
					relPath:  filepath.Join(e.Name(), s.Name()),
					src:      filepath.Join(src, s.Name()),
					dst:      filepath.Join(dst, s.Name()),
				})
			}

		default:
			n.logger.Debug("ignoring non-regular entry", "path", src)
		}
	}
	return tasks, skipped, nil
}

// process materializes one file and never fails: every problem ends up in
// the returned FileResult.
func (n *Normalizer) process(ctx context.Context, t task, maxWidth, maxHeight int) FileResult {
	fr := FileResult{Category: t.category, RelPath: t.relPath, Kind: KindOpaque}
	if !raster.IsPNGName(t.relPath) {
		return n.copyOrSkip(t, fr, OutcomeCopied, "")
	}
	fr.Kind = KindRaster

	hash, info, err := n.probe(ctx, t.src)
	if err != nil {
		n.logger.Warn("failed to probe, copying as-is", "path", t.src, "err", err)
		return n.copyOrSkip(t, fr, OutcomeFallback, errors.UserMessage(err))
	}
	fr.From = &Dimensions{info.Width, info.Height}

	if !info.Exceeds(maxWidth, maxHeight) {
		return n.copyOrSkip(t, fr, OutcomeCopied, "")
	}

	data, to, err := n.fit(ctx, t.src, hash, maxWidth, maxHeight)
	if err == nil {
		err = raster.WriteBytes(t.dst, data)
	}
	if err != nil {
		n.logger.Warn("failed to resize, copying as-is", "path", t.src, "err", err)
		return n.copyOrSkip(t, fr, OutcomeFallback, errors.UserMessage(err))
	}

	fr.Outcome = OutcomeResized
	fr.To = &to
	n.logger.Info("downscaled", "path", filepath.Join(t.category, t.relPath), "from", fr.From, "to", to)
	return fr
}

// copyOrSkip copies src to dst verbatim and sets the outcome; a failed copy
// turns into a skip.
func (n *Normalizer) copyOrSkip(t task, fr FileResult, outcome Outcome, reason string) FileResult {
	if err := copy.Copy(t.src, t.dst); err != nil {
		n.logger.Error("failed to copy, skipping", "path", t.src, "err", err)
		fr.Outcome = OutcomeSkipped
		fr.Reason = joinReasons(reason, "copy: "+err.Error())
		return fr
	}
	fr.Outcome = outcome
	fr.Reason = reason
	return fr
}

// probe returns the content hash (empty when caching is off) and the
// dimensions of the PNG at path.
func (n *Normalizer) probe(ctx context.Context, path string) (string, raster.Info, error) {
	if _, off := n.cache.(*cache.NullCache); off {
		info, err := raster.Probe(path)
		return "", info, err
	}

	hash, err := cache.HashFile(path)
	if err != nil {
		return "", raster.Info{}, errors.Wrap(errors.ErrCodeProbeFailed, err, "read %s", path)
	}

	key := n.keyer.ProbeKey(hash)
	if data, hit, err := n.cache.Get(ctx, key); err == nil && hit {
		var info raster.Info
		if json.Unmarshal(data, &info) == nil && info.Width > 0 && info.Height > 0 {
			observability.Cache().OnCacheHit(ctx, "probe")
			return hash, info, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "probe")

	info, err := raster.Probe(path)
	if err != nil {
		return hash, info, err
	}
	if data, err := json.Marshal(info); err == nil {
		if n.cache.Set(ctx, key, data, cache.TTLProbe) == nil {
			observability.Cache().OnCacheSet(ctx, "probe", len(data))
		}
	}
	return hash, info, nil
}

// fit returns the PNG encoding of the file scaled to fit the bound.
func (n *Normalizer) fit(ctx context.Context, path, hash string, maxWidth, maxHeight int) ([]byte, Dimensions, error) {
	var key string
	if hash != "" {
		key = n.keyer.FitKey(hash, cache.FitKeyOpts{MaxWidth: maxWidth, MaxHeight: maxHeight, Format: string(raster.FormatPNG)})
		if data, hit, err := n.cache.Get(ctx, key); err == nil && hit {
			if info, err := raster.ProbeReader(bytes.NewReader(data), path); err == nil {
				observability.Cache().OnCacheHit(ctx, "fit")
				return data, Dimensions{info.Width, info.Height}, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "fit")
	}

	img, err := raster.Open(path)
	if err != nil {
		return nil, Dimensions{}, err
	}
	scaled := raster.FitInside(img, maxWidth, maxHeight)
	data, err := raster.EncodeBytes(scaled, raster.FormatPNG, 0)
	if err != nil {
		return nil, Dimensions{}, errors.Wrap(errors.ErrCodeResizeFailed, err, "re-encode %s", path)
	}

	if key != "" && n.cache.Set(ctx, key, data, cache.TTLFit) == nil {
		observability.Cache().OnCacheSet(ctx, "fit", len(data))
	}
	b := scaled.Bounds()
	return data, Dimensions{b.Dx(), b.Dy()}, nil
}

// checkRoots refuses layouts where rebuilding destRoot would delete the
// source tree, and destinations inside the source that a later run would
// pick up as a category.
func checkRoots(sourceRoot, destRoot string) error {
	if err := errors.ValidateDir("source", sourceRoot); err != nil {
		return err
	}
	if err := errors.ValidateDir("destination", destRoot); err != nil {
		return err
	}
	src, err := filepath.Abs(sourceRoot)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", sourceRoot)
	}
	dst, err := filepath.Abs(destRoot)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", destRoot)
	}
	sep := string(filepath.Separator)
	if src == dst || strings.HasPrefix(src, dst+sep) {
		return errors.New(errors.ErrCodeInvalidPath, "destination %s would delete source %s", destRoot, sourceRoot)
	}
	if strings.HasPrefix(dst, src+sep) {
		return errors.New(errors.ErrCodeInvalidPath, "destination %s must not be inside source %s", destRoot, sourceRoot)
	}
	return nil
}

// resetDir deletes dir and recreates it empty.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "clear %s", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", dir)
	}
	return nil
}

func joinReasons(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
