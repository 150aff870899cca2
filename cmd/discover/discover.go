package discover

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/birddeck/internal/app"
	"github.com/tphakala/birddeck/internal/discovery"
	"github.com/tphakala/birddeck/internal/logger"
)

// Command creates the discover command, which probes an identifier range and writes the list
// of valid species identifiers.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover valid species identifiers",
		Long:  `Probe every identifier in [start, end] against the species API and write the valid ones, one per line.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.RunStage(cmd.Context(), discovery.Stage, func(c context.Context) error {
				return execute(c, cmd, ctx)
			})
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags configures flags specific to the discover command.
func setupFlags(cmd *cobra.Command) {
	cmd.Flags().Int("start", 0, "First identifier to probe")
	cmd.Flags().Int("end", 0, "Last identifier to probe")
	cmd.Flags().StringP("out", "o", "", "Output file for the identifier list")

	_ = viper.BindPFlag("discovery.start", cmd.Flags().Lookup("start"))
	_ = viper.BindPFlag("discovery.end", cmd.Flags().Lookup("end"))
}

func execute(c context.Context, cmd *cobra.Command, ctx *app.Context) error {
	settings := ctx.Settings.Discovery
	log := ctx.Logger("discovery")

	// fetch --ids shares the discovery.idlist key, so the flag is applied here
	if cmd.Flags().Changed("out") {
		settings.IDList, _ = cmd.Flags().GetString("out")
	}

	client := ctx.HTTPClient(discovery.Stage, settings.Timeout)
	defer client.Close()

	api, err := ctx.SpeciesAPI(client)
	if err != nil {
		return err
	}

	d := discovery.New(api, discovery.Config{
		Workers: settings.Workers,
		Timeout: settings.Timeout,
	}, log, ctx.Metrics.Pipeline)

	result, err := d.Discover(c, settings.Start, settings.End)
	if err != nil {
		return err
	}

	if err := discovery.WriteIDList(settings.IDList, result.IDs); err != nil {
		return err
	}

	log.Info("Identifier list written",
		logger.String("path", settings.IDList),
		logger.Int("identifiers", len(result.IDs)))

	app.PrintSummary(cmd.OutOrStdout(), "Discovery", []app.SummaryRow{
		{Label: "Range", Value: fmt.Sprintf("%d..%d", settings.Start, settings.End)},
		{Label: "Checked", Value: result.Checked},
		{Label: "Valid", Value: result.Valid},
		{Label: "Invalid", Value: result.Invalid},
		{Label: "Output", Value: settings.IDList},
	})
	return nil
}
