// Package cli implements the layerpress command-line interface.
//
// This package provides commands for preparing layer assets, running the
// generation engine and converting its output, plus config and cache
// management. The CLI is built using cobra and supports verbose logging via
// the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - normalize: Rebuild the sorted, size-bounded layer tree
//   - transcode: Convert generated images and update their records
//   - run: Normalize, generate and transcode in one go
//   - config: Write or inspect the project config
//   - cache: Manage the probe and resize cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Per-file
// decisions (downscaled, copied as-is, skipped) are logged at info level;
// engine output is forwarded at debug level.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Normalized 12 categories (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
