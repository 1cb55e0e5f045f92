package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/layerpress/pkg/config"
	"github.com/matzehuels/layerpress/pkg/engine"
	"github.com/matzehuels/layerpress/pkg/observability"
)

// runCommand creates the run command, which executes every stage.
func (c *CLI) runCommand() *cobra.Command {
	var skipGenerate bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Normalize assets, run the engine and transcode its output",
		Long: `Run executes the whole collection build using the project config:

  1. normalize the raw assets into the sorted tree
  2. run the configured engine command over the sorted tree
  3. transcode the engine's images and update the metadata records

A failing stage stops the run; work done by earlier stages is kept.
With --skip-generate the engine is not started and the existing output is
transcoded.`,
		Example: `  layerpress run
  layerpress run -c collections/jungle.toml --metrics-file /var/lib/node_exporter/layerpress.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			return c.runAll(cmd, cfg, skipGenerate)
		},
	}

	cmd.Flags().BoolVar(&skipGenerate, "skip-generate", false, "transcode existing engine output instead of generating")

	return cmd
}

func (c *CLI) runAll(cmd *cobra.Command, cfg config.Config, skipGenerate bool) error {
	var eng engine.Engine = engine.Static{}
	if !skipGenerate {
		eng = engine.NewExec(cfg.Engine.Command, cfg.Engine.Env, c.Logger)
	}
	if !skipGenerate && c.Logger.GetLevel() > LogDebug {
		prev := observability.Stage()
		observability.SetStageHooks(newSpinnerHooks(prev))
		defer observability.SetStageHooks(prev)
	}

	runner, err := c.newRunner(cfg, eng)
	if err != nil {
		return err
	}
	defer runner.Close()

	res, err := runner.Execute(cmd.Context(), cfg)
	if res != nil {
		printKeyValue("run", res.RunID)
		printKeyValue("items", fmt.Sprintf("%d..%d (%d)", cfg.StartIndex, cfg.EndIndex, cfg.Count()))
		printSummary(res.Summary())
		if res.Transcode != nil {
			printFile(res.Transcode.MetadataDir)
		}
	}
	if err != nil {
		return err
	}
	printSuccess("Collection ready in %s", res.Stats.Total().Round(time.Millisecond))
	return nil
}
