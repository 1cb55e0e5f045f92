package assets

import (
	"fmt"
	"time"
)

// Kind classifies a layer file.
type Kind string

const (
	KindRaster Kind = "raster" // .png, probed and possibly downscaled
	KindOpaque Kind = "opaque" // anything else, always copied verbatim
)

// Outcome is what happened to one file.
type Outcome string

const (
	OutcomeCopied   Outcome = "copied"   // byte-identical copy
	OutcomeResized  Outcome = "resized"  // re-encoded to fit the bound
	OutcomeFallback Outcome = "fallback" // probe/resize failed, copied verbatim
	OutcomeSkipped  Outcome = "skipped"  // could not be copied at all
)

// Dimensions is a width/height pair.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// FileResult records the handling of one file.
type FileResult struct {
	Category string      `json:"category"`
	RelPath  string      `json:"rel_path"` // relative to the category directory
	Kind     Kind        `json:"kind"`
	Outcome  Outcome     `json:"outcome"`
	From     *Dimensions `json:"from,omitempty"`
	To       *Dimensions `json:"to,omitempty"`
	Reason   string      `json:"reason,omitempty"`
}

// Result describes a completed normalization pass.
type Result struct {
	SourceRoot string        `json:"source_root"`
	DestRoot   string        `json:"dest_root"`
	Categories []Category    `json:"categories"`
	Files      []FileResult  `json:"files"`
	Duration   time.Duration `json:"duration"`
}

// Count returns how many files ended with outcome o.
func (r *Result) Count(o Outcome) int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome == o {
			n++
		}
	}
	return n
}

// Problems returns the files that did not normalize cleanly, in processing
// order.
func (r *Result) Problems() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Outcome == OutcomeFallback || f.Outcome == OutcomeSkipped {
			out = append(out, f)
		}
	}
	return out
}
