package transcode

import (
	"time"

	"github.com/matzehuels/layerpress/pkg/raster"
)

// Outcome is what happened to one record.
type Outcome string

const (
	OutcomeConverted Outcome = "converted"
	OutcomeUpToDate  Outcome = "up-to-date" // artifact already in the target format and size
	OutcomeSkipped   Outcome = "skipped"    // artifact missing, nothing touched
	OutcomeFailed    Outcome = "failed"     // only recorded when isolating failures
)

// ReasonArtifactMissing is the skip reason for records whose artifact does
// not exist.
const ReasonArtifactMissing = "artifact missing"

// RecordResult records the handling of one metadata file.
type RecordResult struct {
	Record  string  `json:"record"` // file name within the metadata directory
	Source  string  `json:"source"` // artifact name before conversion
	Target  string  `json:"target,omitempty"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// Result describes a completed transcoding pass.
type Result struct {
	MetadataDir string         `json:"metadata_dir"`
	ImagesDir   string         `json:"images_dir"`
	Format      raster.Format  `json:"format"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Quality     int            `json:"quality"`
	Records     []RecordResult `json:"records"`
	Duration    time.Duration  `json:"duration"`
}

// Count returns how many records ended with outcome o.
func (r *Result) Count(o Outcome) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Outcome == o {
			n++
		}
	}
	return n
}

// Problems returns the skipped and failed records in listing order.
func (r *Result) Problems() []RecordResult {
	var out []RecordResult
	for _, rec := range r.Records {
		if rec.Outcome != OutcomeConverted && rec.Outcome != OutcomeUpToDate {
			out = append(out, rec)
		}
	}
	return out
}
