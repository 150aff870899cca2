package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tphakala/birddeck/internal/app"
	"github.com/tphakala/birddeck/internal/conf"
	"github.com/tphakala/birddeck/internal/errors"
)

// Command creates the config command group.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(initCommand(ctx), saveCommand(ctx))

	return cmd
}

// initCommand writes the default configuration.
func initCommand(ctx *app.Context) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			switch {
			case len(args) == 1:
				path = args[0]
			case ctx.ConfigFile != "":
				path = ctx.ConfigFile
			}

			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf("configuration file %s already exists, use --force to overwrite", path).
					Component("config").
					Category(errors.CategoryConflict).
					FileContext(path, 0).
					Build()
			}

			data, err := conf.GetDefaultConfig()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return errors.FileError(err, path, 0)
			}
			if err := conf.WriteFileAtomic(path, data, 0o644); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

// saveCommand loads the effective settings and writes them as YAML.
func saveCommand(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <path>",
		Short: "Write the effective settings, after environment and flag overrides, to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := conf.Load(ctx.ConfigFile)
			if err != nil {
				return err
			}
			if err := conf.SaveYAMLConfig(args[0], settings); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote effective configuration to %s\n", args[0])
			return nil
		},
	}
	return cmd
}
