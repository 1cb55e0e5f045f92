// Package pipeline runs the layerpress stages end to end.
//
// This package chains the three stages of a collection build so that the
// CLI and tests share one implementation:
//
//  1. Normalize: rebuild the sorted layer tree from the raw assets
//  2. Generate: run the external engine over the sorted tree
//  3. Transcode: convert the engine's images and update their records
//
// Stages run strictly in order. A structural failure stops the run before
// the next stage; completed stages are not undone.
//
// # Usage
//
//	cfg, err := config.Load("layerpress.toml")
//	if err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(fileCache, nil, engine.NewExec(cfg.Engine.Command, cfg.Engine.Env, logger), logger)
//	result, err := runner.Execute(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Summary())
//
// Stages can also be run on their own with [Runner.Normalize],
// [Runner.Generate] and [Runner.Transcode].
package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/layerpress/pkg/assets"
	"github.com/matzehuels/layerpress/pkg/engine"
	"github.com/matzehuels/layerpress/pkg/transcode"
)

// Result contains the outputs of a pipeline run. Stages that did not run
// leave their field nil.
type Result struct {
	// RunID identifies the run in logs and metrics.
	RunID string

	Normalize *assets.Result
	Generate  *engine.Output
	Transcode *transcode.Result

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Categories    int
	Files         int
	Records       int
	NormalizeTime time.Duration
	GenerateTime  time.Duration
	TranscodeTime time.Duration
}

// Total is the wall time spent in stages.
func (s Stats) Total() time.Duration {
	return s.NormalizeTime + s.GenerateTime + s.TranscodeTime
}

// Summary aggregates per-item outcomes across stages.
type Summary struct {
	Copied    int
	Resized   int
	Fallback  int
	Skipped   int
	Converted int
	UpToDate  int
	Missing   int
	Failed    int

	// Reasons counts skip and failure reasons, keyed "<stage>: <reason>".
	Reasons map[string]int
}

// Summary collects the outcome counts of every stage that ran.
func (r *Result) Summary() Summary {
	s := Summary{Reasons: map[string]int{}}
	if r.Normalize != nil {
		s.Copied = r.Normalize.Count(assets.OutcomeCopied)
		s.Resized = r.Normalize.Count(assets.OutcomeResized)
		s.Fallback = r.Normalize.Count(assets.OutcomeFallback)
		s.Skipped = r.Normalize.Count(assets.OutcomeSkipped)
		for _, f := range r.Normalize.Problems() {
			s.Reasons["normalize: "+firstLine(f.Reason)]++
		}
	}
	if r.Transcode != nil {
		s.Converted = r.Transcode.Count(transcode.OutcomeConverted)
		s.UpToDate = r.Transcode.Count(transcode.OutcomeUpToDate)
		s.Missing = r.Transcode.Count(transcode.OutcomeSkipped)
		s.Failed = r.Transcode.Count(transcode.OutcomeFailed)
		for _, rec := range r.Transcode.Problems() {
			s.Reasons["transcode: "+firstLine(rec.Reason)]++
		}
	}
	return s
}

// Clean reports whether no item needed a fallback or was skipped.
func (s Summary) Clean() bool {
	return s.Fallback == 0 && s.Skipped == 0 && s.Missing == 0 && s.Failed == 0
}

func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "assets: %d copied, %d resized, %d fallback, %d skipped; ", s.Copied, s.Resized, s.Fallback, s.Skipped)
	fmt.Fprintf(&sb, "records: %d converted, %d up to date, %d missing, %d failed", s.Converted, s.UpToDate, s.Missing, s.Failed)
	keys := make([]string, 0, len(s.Reasons))
	for k := range s.Reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n  %dx %s", s.Reasons[k], k)
	}
	return sb.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if s == "" {
		return "unknown"
	}
	return s
}
