// Package engine runs the external generative-art engine that turns a
// normalized layer tree into a collection of images and metadata records.
//
// The engine itself is not part of this module. [ExecEngine] drives any
// command that follows the environment and stdin contract documented on it;
// [Static] stands in for an engine whose output already exists.
package engine

import (
	"context"
	"os"

	"github.com/matzehuels/layerpress/pkg/errors"
)

// Namer renders the display name of the item at an index.
type Namer interface {
	Name(index int) (string, error)
}

// Describer renders an item description from its attributes.
type Describer interface {
	Describe(attributes map[string]any) (string, error)
}

// Request describes one generation run.
type Request struct {
	AssetsDir   string // normalized layer tree
	OutputDir   string
	ImagesDir   string
	MetadataDir string

	// StartIndex and EndIndex bound the item indices, both inclusive.
	StartIndex int
	EndIndex   int

	Width  int
	Height int

	Namer     Namer
	Describer Describer
}

// Validate checks the request before an engine is started.
func (r Request) Validate() error {
	for _, d := range []struct{ label, dir string }{
		{"assets", r.AssetsDir},
		{"output", r.OutputDir},
		{"images", r.ImagesDir},
		{"metadata", r.MetadataDir},
	} {
		if err := errors.ValidateDir(d.label, d.dir); err != nil {
			return err
		}
	}
	if r.StartIndex < 0 || r.StartIndex > r.EndIndex {
		return errors.New(errors.ErrCodeInvalidInput, "invalid index range %d..%d", r.StartIndex, r.EndIndex)
	}
	if err := errors.ValidateDimensions("engine size", r.Width, r.Height); err != nil {
		return err
	}
	if r.Namer == nil || r.Describer == nil {
		return errors.New(errors.ErrCodeInvalidInput, "request needs a namer and a describer")
	}
	return nil
}

// Output locates what an engine produced.
type Output struct {
	ImagesDir   string
	MetadataDir string
}

// Engine generates a collection.
type Engine interface {
	Generate(ctx context.Context, req Request) (Output, error)
}

// Static is an Engine that generates nothing and reports the request's
// output directories, which must already exist.
type Static struct{}

// Generate implements Engine.
func (Static) Generate(ctx context.Context, req Request) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	out := Output{ImagesDir: req.ImagesDir, MetadataDir: req.MetadataDir}
	if err := checkOutput(out); err != nil {
		return Output{}, err
	}
	return out, nil
}

func checkOutput(out Output) error {
	for _, dir := range []string{out.MetadataDir, out.ImagesDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return errors.Wrap(errors.ErrCodeSourceNotFound, err, "engine output %s", dir)
		}
		if !info.IsDir() {
			return errors.New(errors.ErrCodeSourceNotFound, "engine output %s is not a directory", dir)
		}
	}
	return nil
}
