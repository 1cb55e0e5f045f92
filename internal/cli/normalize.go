package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/layerpress/pkg/config"
)

// normalizeOpts holds flags that override the project config.
type normalizeOpts struct {
	src       string
	dst       string
	maxWidth  int
	maxHeight int
	workers   int
}

// normalizeCommand creates the normalize command.
func (c *CLI) normalizeCommand() *cobra.Command {
	var opts normalizeOpts

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Rebuild the sorted layer tree from the raw assets",
		Long: `Normalize rebuilds the sorted layer tree from the raw asset directory.

Categories are ordered by the _z<N> hint in their name (missing hint = 0, ties
broken by name) and copied to NNN__<name> directories. PNG files larger than
the input size are scaled down to fit, preserving aspect ratio; everything
else is copied byte for byte. The destination is deleted and recreated on
every run.`,
		Example: `  layerpress normalize
  layerpress normalize --src layers --dst layers_sorted --max-width 2048 --max-height 2048`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg = opts.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.runNormalize(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.src, "src", "", "raw asset directory (default from config)")
	cmd.Flags().StringVar(&opts.dst, "dst", "", "sorted output directory (default from config)")
	cmd.Flags().IntVar(&opts.maxWidth, "max-width", 0, "maximum layer width (default input_width)")
	cmd.Flags().IntVar(&opts.maxHeight, "max-height", 0, "maximum layer height (default input_height)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "files processed in parallel (default from config)")

	return cmd
}

func (o normalizeOpts) apply(cmd *cobra.Command, cfg config.Config) config.Config {
	f := cmd.Flags()
	if f.Changed("src") {
		cfg.Paths.Assets = o.src
	}
	if f.Changed("dst") {
		cfg.Paths.Sorted = o.dst
	}
	if f.Changed("max-width") {
		cfg.InputWidth = o.maxWidth
	}
	if f.Changed("max-height") {
		cfg.InputHeight = o.maxHeight
	}
	if f.Changed("workers") {
		cfg.Workers = o.workers
	}
	return cfg
}

func (c *CLI) runNormalize(cmd *cobra.Command, cfg config.Config) error {
	runner, err := c.newRunner(cfg, nil)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	res, err := runner.Normalize(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	prog.done("normalized assets")

	printSuccess("Normalized %d categories, %d files", len(res.Categories), len(res.Files))
	for _, cat := range res.Categories {
		printDetail("%s (z=%d)", cat.DestName, cat.ZIndex)
	}
	for _, f := range res.Problems() {
		printWarning("%s/%s: %s", f.Category, f.RelPath, f.Reason)
	}
	printFile(res.DestRoot)
	return nil
}
