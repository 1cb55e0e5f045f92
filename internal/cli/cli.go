// Package cli implements the layerpress command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/layerpress/pkg/buildinfo"
	"github.com/matzehuels/layerpress/pkg/cache"
	"github.com/matzehuels/layerpress/pkg/config"
	"github.com/matzehuels/layerpress/pkg/engine"
	"github.com/matzehuels/layerpress/pkg/errors"
	"github.com/matzehuels/layerpress/pkg/observability"
	"github.com/matzehuels/layerpress/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "layerpress"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath  string
	noCache     bool
	metricsFile string
	metrics     *observability.PromHooks
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Layerpress prepares layer assets and delivers generated collections",
		Long: `Layerpress wraps a generative-art engine. It sorts and downscales the raw
layer assets the engine consumes, runs the engine, and converts the generated
images to their delivery size and format while keeping the metadata records
in sync.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.metricsFile != "" && c.metrics == nil {
				c.metrics = observability.NewPromHooks()
				observability.SetStageHooks(c.metrics)
				observability.SetCacheHooks(c.metrics)
			}
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", config.DefaultFilename, "project config file")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the probe and resize cache")
	flags.StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")

	// Register all subcommands
	root.AddCommand(c.normalizeCommand())
	root.AddCommand(c.transcodeCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// FlushMetrics writes the collected metrics if --metrics-file was given.
// It is called after the command finished, whether it failed or not.
func (c *CLI) FlushMetrics() error {
	if c.metrics == nil || c.metricsFile == "" {
		return nil
	}
	if err := c.metrics.WriteTextfile(c.metricsFile); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write metrics to %s", c.metricsFile)
	}
	c.Logger.Debug("wrote metrics", "path", c.metricsFile)
	return nil
}

// =============================================================================
// Config
// =============================================================================

// loadConfig reads the project config. When --config was left at its default
// and the file does not exist, the defaults are used relative to the working
// directory.
func (c *CLI) loadConfig(cmd *cobra.Command) (config.Config, error) {
	explicit := cmd.Flags().Changed("config")
	if _, err := os.Stat(c.configPath); err == nil || explicit {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return config.Config{}, err
		}
		c.Logger.Debug("loaded config", "path", c.configPath)
		return cfg, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, errors.Wrap(errors.ErrCodeIO, err, "get working directory")
	}
	c.Logger.Debug("no config file, using defaults", "dir", wd)
	return config.Default().Resolve(wd), nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. A nil engine selects the
// static engine, which expects existing output.
func (c *CLI) newRunner(cfg config.Config, eng engine.Engine) (*pipeline.Runner, error) {
	fc, err := newCache(c.noCache, cfg.Paths.Cache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(fc, nil, eng, c.Logger), nil
}

func newCache(noCache bool, dir string) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/layerpress/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
