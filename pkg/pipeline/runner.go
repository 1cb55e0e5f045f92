package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/layerpress/pkg/assets"
	"github.com/matzehuels/layerpress/pkg/cache"
	"github.com/matzehuels/layerpress/pkg/config"
	"github.com/matzehuels/layerpress/pkg/engine"
	"github.com/matzehuels/layerpress/pkg/errors"
	"github.com/matzehuels/layerpress/pkg/observability"
	"github.com/matzehuels/layerpress/pkg/transcode"
)

// Runner executes pipeline stages against a validated config.
//
// The Runner holds no per-run state, so one Runner can execute several
// configs in sequence.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Engine engine.Engine
	Logger *log.Logger
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// If eng is nil, the Static engine is used and generation is skipped.
func NewRunner(c cache.Cache, keyer cache.Keyer, eng engine.Engine, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if eng == nil {
		eng = engine.Static{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Engine: eng,
		Logger: logger,
	}
}

// Execute runs normalize, generate and transcode in order.
//
// On failure the returned Result holds whatever the completed stages
// produced, so callers can still report on them.
func (r *Runner) Execute(ctx context.Context, cfg config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.NewString()}
	logger := r.Logger.With("run", result.RunID[:8])
	logger.Info("starting run", "items", cfg.Count(), "range", [2]int{cfg.StartIndex, cfg.EndIndex})
	run := r.with(logger)

	// Stage 1: Normalize
	start := time.Now()
	norm, err := run.Normalize(ctx, cfg)
	if err != nil {
		return result, errors.Wrap(stageCode(err), err, "normalize")
	}
	result.Normalize = norm
	result.Stats.NormalizeTime = time.Since(start)
	result.Stats.Categories = len(norm.Categories)
	result.Stats.Files = len(norm.Files)

	// Stage 2: Generate
	start = time.Now()
	out, err := run.Generate(ctx, cfg)
	if err != nil {
		return result, errors.Wrap(stageCode(err), err, "generate")
	}
	result.Generate = &out
	result.Stats.GenerateTime = time.Since(start)

	// Stage 3: Transcode
	start = time.Now()
	tr, err := run.transcode(ctx, cfg, out)
	result.Transcode = tr
	result.Stats.TranscodeTime = time.Since(start)
	if tr != nil {
		result.Stats.Records = len(tr.Records)
	}
	if err != nil {
		return result, errors.Wrap(stageCode(err), err, "transcode")
	}

	logger.Info("run complete", "duration", result.Stats.Total().Round(time.Millisecond))
	return result, nil
}

// Normalize rebuilds the sorted layer tree bounded by the input size.
func (r *Runner) Normalize(ctx context.Context, cfg config.Config) (*assets.Result, error) {
	n := assets.New(assets.Options{
		Logger:  r.Logger,
		Cache:   r.Cache,
		Keyer:   r.Keyer,
		Workers: cfg.Workers,
	})
	return n.Normalize(ctx, cfg.Paths.Assets, cfg.Paths.Sorted, cfg.InputWidth, cfg.InputHeight)
}

// Generate runs the engine over the sorted tree.
func (r *Runner) Generate(ctx context.Context, cfg config.Config) (engine.Output, error) {
	tmpl, err := cfg.Templates()
	if err != nil {
		return engine.Output{}, err
	}
	start := time.Now()
	observability.Stage().OnStageStart(ctx, observability.StageGenerate)
	out, err := r.Engine.Generate(ctx, engine.Request{
		AssetsDir:   cfg.Paths.Sorted,
		OutputDir:   cfg.Paths.Output,
		ImagesDir:   cfg.Paths.Images,
		MetadataDir: cfg.Paths.Metadata,
		StartIndex:  cfg.StartIndex,
		EndIndex:    cfg.EndIndex,
		Width:       cfg.InputWidth,
		Height:      cfg.InputHeight,
		Namer:       tmpl,
		Describer:   tmpl,
	})
	observability.Stage().OnStageComplete(ctx, observability.StageGenerate, time.Since(start), err)
	return out, err
}

// Transcode converts the engine output found at the configured paths.
func (r *Runner) Transcode(ctx context.Context, cfg config.Config) (*transcode.Result, error) {
	return r.transcode(ctx, cfg, engine.Output{ImagesDir: cfg.Paths.Images, MetadataDir: cfg.Paths.Metadata})
}

func (r *Runner) transcode(ctx context.Context, cfg config.Config, out engine.Output) (*transcode.Result, error) {
	t := transcode.New(transcode.Options{
		Logger:  r.Logger,
		Format:  cfg.Format(),
		Isolate: cfg.Transcode.Isolate,
		Workers: cfg.Workers,
	})
	return t.Transcode(ctx, out.MetadataDir, out.ImagesDir, cfg.OutputWidth, cfg.OutputHeight, cfg.OutputQuality)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) with(logger *log.Logger) *Runner {
	cp := *r
	cp.Logger = logger
	return &cp
}

// stageCode keeps the code of a structured error and maps context errors
// and untyped failures to INTERNAL_ERROR.
func stageCode(err error) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.ErrCodeInternal
}
