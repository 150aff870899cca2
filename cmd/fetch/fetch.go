package fetch

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tphakala/birddeck/internal/app"
	"github.com/tphakala/birddeck/internal/discovery"
	"github.com/tphakala/birddeck/internal/fetcher"
)

// Command creates the fetch command, which stores the record of every listed identifier.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and store species records",
		Long:  `Fetch the record of every identifier in the identifier list and store species, image and sound references. Stored species are skipped.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.RunStage(cmd.Context(), fetcher.Stage, func(c context.Context) error {
				return execute(c, cmd, ctx)
			})
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags configures flags specific to the fetch command.
func setupFlags(cmd *cobra.Command) {
	cmd.Flags().String("ids", "", "Identifier list produced by discover")
}

func execute(c context.Context, cmd *cobra.Command, ctx *app.Context) error {
	path := ctx.Settings.Discovery.IDList
	if cmd.Flags().Changed("ids") {
		path, _ = cmd.Flags().GetString("ids")
	}

	ids, err := discovery.ReadIDList(path)
	if err != nil {
		return err
	}

	store, err := ctx.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client := ctx.HTTPClient(fetcher.Stage, ctx.Settings.API.Timeout)
	defer client.Close()

	api, err := ctx.SpeciesAPI(client)
	if err != nil {
		return err
	}

	f := fetcher.New(api, store, ctx.Settings.Fetch.Workers, ctx.Logger("fetcher"), ctx.Metrics.Pipeline)
	summary, err := f.Fetch(c, ids)

	app.PrintSummary(cmd.OutOrStdout(), "Fetch", []app.SummaryRow{
		{Label: "Identifiers", Value: summary.Total},
		{Label: "Inserted", Value: summary.Inserted},
		{Label: "Skipped", Value: summary.Skipped},
		{Label: "Failed", Value: summary.Failed},
		{Label: "Image references", Value: summary.Images},
		{Label: "Sound references", Value: summary.Sounds},
	})
	return err
}
