// Package config loads and validates the pipeline configuration.
//
// A [Config] is the run's output envelope: the generation range, the
// normalization bound, the final canvas, encoder settings and the directory
// layout. It is read once from TOML, validated, and then passed by value to
// every stage. Nothing in the pipeline mutates it.
//
// Relative paths are resolved against the directory holding the config file,
// so a project can be moved or checked out elsewhere without edits.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/layerpress/pkg/errors"
	"github.com/matzehuels/layerpress/pkg/raster"
)

// DefaultFilename is the config file looked up in the working directory.
const DefaultFilename = "layerpress.toml"

// Defaults mirror the collection this tool was first built for.
const (
	DefaultStartIndex    = 10
	DefaultEndIndex      = 30
	DefaultName          = `Jungle Creatures #{{ printf "%04d" .Index }}`
	DefaultDescription   = "The jungle creatures collection on Movement"
	DefaultInputWidth    = 1024
	DefaultInputHeight   = 1024
	DefaultOutputWidth   = 640
	DefaultOutputHeight  = 640
	DefaultOutputQuality = 90
	DefaultOutputFormat  = string(raster.FormatWebP)
	DefaultWorkers       = 1
)

// Paths is the on-disk layout of a project.
type Paths struct {
	Assets   string `toml:"assets"`   // layer category directories
	Sorted   string `toml:"sorted"`   // normalized tree, rebuilt every run
	Output   string `toml:"output"`   // engine output root
	Images   string `toml:"images"`   // relative to Output
	Metadata string `toml:"metadata"` // relative to Output
	Cache    string `toml:"cache"`    // empty selects the XDG cache dir
}

// Engine configures the external generation command.
type Engine struct {
	Command []string          `toml:"command"`
	Env     map[string]string `toml:"env"`
}

// Transcode holds output stage behaviour switches.
type Transcode struct {
	// Isolate keeps going after a record fails instead of aborting the run.
	Isolate bool `toml:"isolate"`
}

// Config is the immutable pipeline configuration.
type Config struct {
	StartIndex    int    `toml:"start_index"`
	EndIndex      int    `toml:"end_index"`
	Name          string `toml:"name"`
	Description   string `toml:"description"`
	InputWidth    int    `toml:"input_width"`
	InputHeight   int    `toml:"input_height"`
	OutputWidth   int    `toml:"output_width"`
	OutputHeight  int    `toml:"output_height"`
	OutputQuality int    `toml:"output_quality"`
	OutputFormat  string `toml:"output_format"`
	Workers       int    `toml:"workers"`

	Paths     Paths     `toml:"paths"`
	Engine    Engine    `toml:"engine"`
	Transcode Transcode `toml:"transcode"`
}

// Default returns a configuration with every field set to its default.
func Default() Config {
	return Config{
		StartIndex:    DefaultStartIndex,
		EndIndex:      DefaultEndIndex,
		Name:          DefaultName,
		Description:   DefaultDescription,
		InputWidth:    DefaultInputWidth,
		InputHeight:   DefaultInputHeight,
		OutputWidth:   DefaultOutputWidth,
		OutputHeight:  DefaultOutputHeight,
		OutputQuality: DefaultOutputQuality,
		OutputFormat:  DefaultOutputFormat,
		Workers:       DefaultWorkers,
		Paths: Paths{
			Assets:   "data",
			Sorted:   "data_sorted",
			Output:   "output",
			Images:   "images",
			Metadata: "erc721 metadata",
		},
	}
}

// Load reads the TOML file at path on top of the defaults, resolves relative
// paths against the file's directory and validates the result. Unknown keys
// are rejected so typos do not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeSourceNotFound, err, "config file %s", path)
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", path)
	}
	cfg = cfg.Resolve(filepath.Dir(abs))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg Config) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	if err := enc.Encode(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	return nil
}

// Resolve returns a copy with relative directories anchored at baseDir.
// Images and Metadata are anchored at the resolved Output directory.
func (c Config) Resolve(baseDir string) Config {
	abs := func(base, p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Paths.Assets = abs(baseDir, c.Paths.Assets)
	c.Paths.Sorted = abs(baseDir, c.Paths.Sorted)
	c.Paths.Output = abs(baseDir, c.Paths.Output)
	c.Paths.Images = abs(c.Paths.Output, c.Paths.Images)
	c.Paths.Metadata = abs(c.Paths.Output, c.Paths.Metadata)
	c.Paths.Cache = abs(baseDir, c.Paths.Cache)
	if c.Engine.Command != nil {
		c.Engine.Command = append([]string(nil), c.Engine.Command...)
	}
	return c
}

// Format returns the parsed output format. Validate guarantees it parses.
func (c Config) Format() raster.Format {
	f, err := raster.ParseFormat(c.OutputFormat)
	if err != nil {
		return raster.FormatWebP
	}
	return f
}

// Count is the number of items in the inclusive generation range.
func (c Config) Count() int {
	return c.EndIndex - c.StartIndex + 1
}

// Validate checks every field and returns the first problem found.
func (c Config) Validate() error {
	if c.StartIndex < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "start_index must not be negative, got %d", c.StartIndex)
	}
	if c.StartIndex > c.EndIndex {
		return errors.New(errors.ErrCodeInvalidConfig, "start_index %d is after end_index %d", c.StartIndex, c.EndIndex)
	}
	if err := errors.ValidateDimensions("input size", c.InputWidth, c.InputHeight); err != nil {
		return err
	}
	if err := errors.ValidateDimensions("output size", c.OutputWidth, c.OutputHeight); err != nil {
		return err
	}
	if err := errors.ValidateQuality(c.OutputQuality); err != nil {
		return err
	}
	if _, err := raster.ParseFormat(c.OutputFormat); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "output_format")
	}
	if c.Workers < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "workers must be at least 1, got %d", c.Workers)
	}
	for _, d := range []struct{ label, dir string }{
		{"assets", c.Paths.Assets},
		{"sorted", c.Paths.Sorted},
		{"output", c.Paths.Output},
		{"images", c.Paths.Images},
		{"metadata", c.Paths.Metadata},
	} {
		if err := errors.ValidateDir(d.label, d.dir); err != nil {
			return err
		}
	}
	if filepath.Clean(c.Paths.Assets) == filepath.Clean(c.Paths.Sorted) {
		return errors.New(errors.ErrCodeInvalidConfig, "paths.sorted must differ from paths.assets: it is deleted on every run")
	}
	if len(c.Engine.Command) > 0 && strings.TrimSpace(c.Engine.Command[0]) == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "engine.command must start with a program name")
	}
	if _, err := c.Templates(); err != nil {
		return err
	}
	return nil
}

// String renders the config as TOML, for `config show` and debug logs.
func (c Config) String() string {
	var sb strings.Builder
	if err := Write(&sb, c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return sb.String()
}
