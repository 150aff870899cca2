package media

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/birddeck/internal/app"
	"github.com/tphakala/birddeck/internal/media"
)

// Command creates the media command, which downloads every pending image and sound.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Download and resize pending images and sounds",
		Long:  `Download every image and sound reference without a local file, resize images to the configured bounding box and record the local paths.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.RunStage(cmd.Context(), media.Stage, func(c context.Context) error {
				return execute(c, cmd, ctx)
			})
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags configures flags specific to the media command.
func setupFlags(cmd *cobra.Command) {
	cmd.Flags().String("root", "", "Media root directory")
	cmd.Flags().Bool("clean-orphans", false, "Remove files under the media root that no reference points at")

	_ = viper.BindPFlag("media.root", cmd.Flags().Lookup("root"))
	_ = viper.BindPFlag("media.cleanorphans", cmd.Flags().Lookup("clean-orphans"))
}

func execute(c context.Context, cmd *cobra.Command, ctx *app.Context) error {
	settings := ctx.Settings.Media

	store, err := ctx.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client := ctx.HTTPClient(media.Stage, settings.Timeout)
	defer client.Close()

	m := media.New(store, client, media.Config{
		Root:    settings.Root,
		Workers: settings.Workers,
		Timeout: settings.Timeout,
		Image: media.ImageOptions{
			MaxWidth:  settings.Image.MaxWidth,
			MaxHeight: settings.Image.MaxHeight,
			Quality:   settings.Image.Quality,
		},
		SoundURLTemplate: settings.Sound.URLTemplate,
		VerifySounds:     settings.Sound.Verify,
		CleanOrphans:     settings.CleanOrphans,
	}, ctx.Logger("media"), ctx.Metrics.Pipeline)

	summary, err := m.Materialize(c)

	rows := []app.SummaryRow{
		{Label: "Images downloaded", Value: summary.Images.Downloaded},
		{Label: "Images already present", Value: summary.Images.Existing},
		{Label: "Images failed", Value: summary.Images.Failed},
		{Label: "Sounds downloaded", Value: summary.Sounds.Downloaded},
		{Label: "Sounds already present", Value: summary.Sounds.Existing},
		{Label: "Sounds failed", Value: summary.Sounds.Failed},
		{Label: "Bytes written", Value: summary.Bytes},
	}
	if settings.CleanOrphans {
		rows = append(rows, app.SummaryRow{Label: "Orphans removed", Value: summary.OrphansRemoved})
	}
	app.PrintSummary(cmd.OutOrStdout(), "Media", rows)

	if stats, serr := store.Stats(c); serr == nil {
		app.PrintSummary(cmd.OutOrStdout(), "Store", []app.SummaryRow{
			{Label: "Species", Value: stats.Species},
			{Label: "Images", Value: stats.Images},
			{Label: "Images on disk", Value: stats.ImagesMaterialized},
			{Label: "Sounds", Value: stats.Sounds},
			{Label: "Sounds on disk", Value: stats.SoundsMaterialized},
		})
	}
	return err
}
