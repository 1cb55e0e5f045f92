package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/layerpress/pkg/config"
	"github.com/matzehuels/layerpress/pkg/pipeline"
	"github.com/matzehuels/layerpress/pkg/transcode"
)

// transcodeOpts holds flags that override the project config.
type transcodeOpts struct {
	metadata string
	images   string
	width    int
	height   int
	quality  int
	format   string
	isolate  bool
	workers  int
}

// transcodeCommand creates the transcode command.
func (c *CLI) transcodeCommand() *cobra.Command {
	var opts transcodeOpts

	cmd := &cobra.Command{
		Use:   "transcode",
		Short: "Convert generated images and update their records",
		Long: `Transcode converts every image referenced by a metadata record.

Each image is scaled and center-cropped to exactly the output size, encoded
in the output format (WebP by default) next to the original, and the record's
"image" field is pointed at the new file. The original is removed afterwards.
Records whose image does not exist are left untouched.

By default the first failing record aborts the run. With --isolate failing
records are reported and the remaining ones are still converted.`,
		Example: `  layerpress transcode
  layerpress transcode --width 512 --height 512 --quality 80 --format jpeg`,
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
			return c.runTranscode(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.metadata, "metadata", "", "metadata record directory (default from config)")
	cmd.Flags().StringVar(&opts.images, "images", "", "image directory (default from config)")
	cmd.Flags().IntVar(&opts.width, "width", 0, "output width (default output_width)")
	cmd.Flags().IntVar(&opts.height, "height", 0, "output height (default output_height)")
	cmd.Flags().IntVar(&opts.quality, "quality", 0, "encoder quality 0-100 (default output_quality)")
	cmd.Flags().StringVar(&opts.format, "format", "", "output format: webp, png, jpeg (default output_format)")
	cmd.Flags().BoolVar(&opts.isolate, "isolate", false, "continue past failing records")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "records processed in parallel (default from config)")

	return cmd
}

func (o transcodeOpts) apply(cmd *cobra.Command, cfg config.Config) config.Config {
	f := cmd.Flags()
	if f.Changed("metadata") {
		cfg.Paths.Metadata = o.metadata
	}
	if f.Changed("images") {
		cfg.Paths.Images = o.images
	}
	if f.Changed("width") {
		cfg.OutputWidth = o.width
	}
	if f.Changed("height") {
		cfg.OutputHeight = o.height
	}
	if f.Changed("quality") {
		cfg.OutputQuality = o.quality
	}
	if f.Changed("format") {
		cfg.OutputFormat = o.format
	}
	if f.Changed("isolate") {
		cfg.Transcode.Isolate = o.isolate
	}
	if f.Changed("workers") {
		cfg.Workers = o.workers
	}
	return cfg
}

func (c *CLI) runTranscode(cmd *cobra.Command, cfg config.Config) error {
	runner, err := c.newRunner(cfg, nil)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	res, err := runner.Transcode(cmd.Context(), cfg)
	if res != nil {
		prog.done("transcoded records")
		printSuccess("Converted %d of %d records to %s %dx%d", res.Count(transcode.OutcomeConverted), len(res.Records), res.Format, res.Width, res.Height)
		printSummary((&pipeline.Result{Transcode: res}).Summary())
		printFile(res.ImagesDir)
	}
	return err
}
