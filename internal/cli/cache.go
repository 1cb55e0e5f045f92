package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/layerpress/pkg/cache"
	"github.com/matzehuels/layerpress/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the probe and resize cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// resolveCacheDir returns the configured cache directory, falling back to
// the XDG location.
func (c *CLI) resolveCacheDir(cmd *cobra.Command) (string, error) {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.Paths.Cache != "" {
		return cfg.Paths.Cache, nil
	}
	dir, err := cacheDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "get cache dir")
	}
	return dir, nil
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached probe and resize result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.resolveCacheDir(cmd)
			if err != nil {
				return err
			}

			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			count, err := fc.Clear()
			if err != nil {
				return err
			}

			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.resolveCacheDir(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, dir)
			return nil
		},
	}
}
