package transcode

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/layerpress/pkg/errors"
	"github.com/matzehuels/layerpress/pkg/observability"
	"github.com/matzehuels/layerpress/pkg/raster"
)

// Options configures a Transcoder.
type Options struct {
	Logger *log.Logger

	// Format is the output encoding. Empty means WebP.
	Format raster.Format

	// Isolate turns per-record failures into Failed outcomes instead of
	// aborting the run. The run still returns an error naming every failure.
	Isolate bool

	Workers int
}

// Transcoder converts generated artifacts and updates their records.
type Transcoder struct {
	logger  *log.Logger
	format  raster.Format
	isolate bool
	workers int
}

// New creates a Transcoder.
func New(opts Options) *Transcoder {
	t := &Transcoder{
		logger:  opts.Logger,
		format:  opts.Format,
		isolate: opts.Isolate,
		workers: opts.Workers,
	}
	if t.logger == nil {
		t.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if t.format == "" {
		t.format = raster.FormatWebP
	}
	if t.workers < 1 {
		t.workers = 1
	}
	return t
}

// Transcode processes every *.json record in metadataDir, in name order.
// Artifacts are resolved relative to imagesDir.
//
// A record whose artifact is missing is skipped and left untouched. Any
// other per-record failure aborts the run unless the Transcoder isolates
// failures; in that case the Result is returned together with an error
// listing the failed records.
func (t *Transcoder) Transcode(ctx context.Context, metadataDir, imagesDir string, width, height, quality int) (*Result, error) {
	start := time.Now()
	observability.Stage().OnStageStart(ctx, observability.StageTranscode)
	res, err := t.transcode(ctx, metadataDir, imagesDir, width, height, quality)
	observability.Stage().OnStageComplete(ctx, observability.StageTranscode, time.Since(start), err)
	if res != nil {
		res.Duration = time.Since(start)
	}
	return res, err
}

type job struct {
	width, height, quality int
	imagesDir              string
}

func (t *Transcoder) transcode(ctx context.Context, metadataDir, imagesDir string, width, height, quality int) (*Result, error) {
	if err := errors.ValidateDimensions("output size", width, height); err != nil {
		return nil, err
	}
	if err := errors.ValidateQuality(quality); err != nil {
		return nil, err
	}
	if !raster.ValidFormats[t.format] {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unsupported output format %q", t.format)
	}
	if err := errors.ValidateDir("metadata directory", metadataDir); err != nil {
		return nil, err
	}
	if err := errors.ValidateDir("images directory", imagesDir); err != nil {
		return nil, err
	}

	records, err := listRecords(metadataDir)
	if err != nil {
		return nil, err
	}
	t.logger.Info("transcoding", "records", len(records), "format", t.format, "size", fmt.Sprintf("%dx%d", width, height), "quality", quality)

	res := &Result{
		MetadataDir: metadataDir,
		ImagesDir:   imagesDir,
		Format:      t.format,
		Width:       width,
		Height:      height,
		Quality:     quality,
		Records:     make([]RecordResult, len(records)),
	}
	j := job{width: width, height: height, quality: quality, imagesDir: imagesDir}

	// Without isolation the first failure cancels records not yet started.
	// Records already in flight finish, and each of their failures is kept.
	var (
		mu    sync.Mutex
		fatal []recordError
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i, name := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			itemStart := time.Now()
			rr, err := t.convert(filepath.Join(metadataDir, name), j)
			rr.Record = name
			if err != nil {
				t.logger.Error("record failed", "record", name, "err", errors.UserMessage(err))
				if !t.isolate {
					err = wrapRecord(name, err)
					mu.Lock()
					fatal = append(fatal, recordError{index: i, err: err})
					mu.Unlock()
					return err
				}
				rr.Outcome = OutcomeFailed
				rr.Reason = errors.UserMessage(err)
			}
			res.Records[i] = rr
			observability.Stage().OnItem(gctx, observability.StageTranscode, string(rr.Outcome), time.Since(itemStart))
			return nil
		})
	}
	waitErr := g.Wait()
	if len(fatal) > 0 {
		return nil, joinRecordErrors(fatal)
	}
	if waitErr != nil {
		return nil, waitErr
	}

	t.logger.Info("transcoded",
		"converted", res.Count(OutcomeConverted),
		"up_to_date", res.Count(OutcomeUpToDate),
		"skipped", res.Count(OutcomeSkipped),
		"failed", res.Count(OutcomeFailed))
	return res, failures(res)
}

// convert handles one record. A missing artifact is a skip, not an error.
func (t *Transcoder) convert(recordPath string, j job) (RecordResult, error) {
	rec, err := ReadRecord(recordPath)
	if err != nil {
		return RecordResult{}, err
	}
	rr := RecordResult{Source: rec.Image}
	if err := errors.ValidateArtifactName(rec.Image); err != nil {
		return rr, errors.Wrap(errors.ErrCodeInvalidRecord, err, "%s", recordPath)
	}

	src := filepath.Join(j.imagesDir, rec.Image)
	info, err := os.Stat(src)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		t.logger.Warn("artifact missing, leaving record untouched", "record", recordPath, "image", rec.Image)
		rr.Outcome = OutcomeSkipped
		rr.Reason = ReasonArtifactMissing
		return rr, nil
	case err != nil:
		return rr, errors.Wrap(errors.ErrCodeIO, err, "stat %s", src)
	case !info.Mode().IsRegular():
		return rr, errors.New(errors.ErrCodeInvalidRecord, "%s: %s is not a regular file", recordPath, rec.Image)
	}

	target := TargetName(rec.Image, t.format)
	if strings.EqualFold(target, rec.Image) {
		// 0.PNG and 0.png may be one file; keep the record's spelling.
		target = rec.Image
	}
	dst := filepath.Join(j.imagesDir, target)

	if target == rec.Image && t.upToDate(src, j) {
		t.removeLeftovers(j.imagesDir, rec.Image)
		t.logger.Debug("already converted", "record", filepath.Base(recordPath), "image", rec.Image)
		rr.Target = target
		rr.Outcome = OutcomeUpToDate
		return rr, nil
	}

	img, err := raster.Open(src)
	if err != nil {
		return rr, err
	}
	covered, err := raster.Cover(img, j.width, j.height)
	if err != nil {
		return rr, errors.Wrap(errors.ErrCodeResizeFailed, err, "%s", src)
	}
	if err := raster.WriteFile(dst, covered, t.format, j.quality); err != nil {
		return rr, err
	}

	if target != rec.Image {
		if err := rec.SetImage(target); err != nil {
			return rr, err
		}
		if err := rec.Write(); err != nil {
			return rr, err
		}
		if err := os.Remove(src); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return rr, errors.Wrap(errors.ErrCodeIO, err, "remove %s", src)
		}
	}

	t.logger.Debug("converted", "record", filepath.Base(recordPath), "from", rr.Source, "to", target)
	rr.Target = target
	rr.Outcome = OutcomeConverted
	return rr, nil
}

// upToDate reports whether the artifact at path already has the output
// format and size. Unreadable artifacts are not up to date; converting them
// reports the actual problem.
func (t *Transcoder) upToDate(path string, j job) bool {
	info, err := raster.Probe(path)
	if err != nil {
		return false
	}
	return info.Format == string(t.format) && info.Width == j.width && info.Height == j.height
}

// leftoverExts are the artifact extensions an interrupted run can leave
// next to a converted artifact.
var leftoverExts = []string{".png", ".jpg", ".jpeg", ".webp"}

// removeLeftovers deletes siblings of a converted artifact that share its
// base name, such as the original 0.png left behind when a run stopped after
// rewriting the record to 0.webp.
func (t *Transcoder) removeLeftovers(imagesDir, image string) {
	base := strings.TrimSuffix(image, filepath.Ext(image))
	for _, ext := range leftoverExts {
		for _, e := range []string{ext, strings.ToUpper(ext)} {
			name := base + e
			if strings.EqualFold(name, image) {
				continue
			}
			path := filepath.Join(imagesDir, name)
			info, err := os.Lstat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			if err := os.Remove(path); err != nil {
				t.logger.Warn("cannot remove leftover artifact", "path", path, "err", err)
				continue
			}
			t.logger.Info("removed leftover artifact", "path", path)
		}
	}
}

// recordError is a fatal record failure and the record's listing position.
type recordError struct {
	index int
	err   error
}

// wrapRecord names the record in err, keeping the code of the cause.
func wrapRecord(name string, err error) error {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return errors.Wrap(code, err, "transcode %s", name)
}

// joinRecordErrors returns the single failure, or every failure in listing
// order under the code of the first one.
func joinRecordErrors(errs []recordError) error {
	sort.Slice(errs, func(a, b int) bool { return errs[a].index < errs[b].index })
	if len(errs) == 1 {
		return errs[0].err
	}
	joined := make([]error, len(errs))
	for i, re := range errs {
		joined[i] = re.err
	}
	return errors.Wrap(errors.GetCode(errs[0].err), stderrors.Join(joined...), "%d records failed", len(errs))
}

// TargetName swaps the extension of an artifact name for the one of format.
// Directory components are kept.
func TargetName(name string, format raster.Format) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + format.Extension()
}

// listRecords returns the names of the *.json files in dir, sorted.
func listRecords(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceNotFound, err, "list records in %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// failures aggregates Failed outcomes into one error, or nil.
func failures(res *Result) error {
	var errs []error
	for _, rr := range res.Records {
		if rr.Outcome == OutcomeFailed {
			errs = append(errs, fmt.Errorf("%s: %s", rr.Record, rr.Reason))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Wrap(errors.ErrCodeEncodeFailed, stderrors.Join(errs...), "%d of %d records failed", len(errs), len(res.Records))
}
