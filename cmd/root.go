package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/birddeck/cmd/config"
	"github.com/tphakala/birddeck/cmd/deck"
	"github.com/tphakala/birddeck/cmd/discover"
	"github.com/tphakala/birddeck/cmd/fetch"
	"github.com/tphakala/birddeck/cmd/media"
	"github.com/tphakala/birddeck/cmd/run"
	"github.com/tphakala/birddeck/internal/app"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "birddeck",
		Short:         "Build Anki flashcard decks from the birds.org.il species catalogue",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       ctx.Build.String(),
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, ctx); err != nil {
		panic(err)
	}

	configCmd := config.Command(ctx)

	rootCmd.AddCommand(
		discover.Command(ctx),
		fetch.Command(ctx),
		media.Command(ctx),
		deck.Command(ctx),
		run.Command(ctx),
		configCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// config subcommands must work without a loadable configuration
		if cmd == configCmd || cmd.Parent() == configCmd {
			return nil
		}
		return ctx.Init()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *app.Context) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.ConfigFile, "config", "c", "", "Path to the configuration file")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("db", "", "Path to the SQLite database")
	flags.IntP("workers", "w", 0, "Number of concurrent workers for discover, fetch and media")

	bindings := map[string]string{
		"debug":                "debug",
		"database.sqlite.path": "db",
		"discovery.workers":    "workers",
		"fetch.workers":        "workers",
		"media.workers":        "workers",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
