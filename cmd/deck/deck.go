package deck

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/birddeck/internal/app"
	"github.com/tphakala/birddeck/internal/deck"
)

// Command creates the deck command, which writes the main package and the per-family packages.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Assemble the Anki packages",
		Long:  `Build one note per stored image and write the full deck plus one deck per family with enough notes.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.RunStage(cmd.Context(), deck.Stage, func(c context.Context) error {
				return execute(c, cmd, ctx)
			})
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags configures flags specific to the deck command.
func setupFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Output directory for the packages")
	cmd.Flags().Int("min-family-notes", 0, "Minimum notes for a family package")

	_ = viper.BindPFlag("deck.outputdir", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("deck.minfamilynotes", cmd.Flags().Lookup("min-family-notes"))
}

func execute(c context.Context, cmd *cobra.Command, ctx *app.Context) error {
	settings := ctx.Settings.Deck

	store, err := ctx.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	a := deck.New(store, deck.Config{
		Name:           settings.Name,
		ID:             settings.ID,
		ModelID:        settings.ModelID,
		ModelName:      settings.ModelName,
		OutputDir:      settings.OutputDir,
		FileName:       settings.FileName,
		FamilyDir:      settings.FamilyDir,
		FilePrefix:     settings.FilePrefix,
		MinFamilyNotes: settings.MinFamilyNotes,
		UnknownFamily:  settings.UnknownFamily,
	}, ctx.Logger("deck"), ctx.Metrics.Pipeline)

	summary, err := a.Assemble(c)

	app.PrintSummary(cmd.OutOrStdout(), "Deck", []app.SummaryRow{
		{Label: "Notes", Value: summary.Notes},
		{Label: "Missing images", Value: summary.MissingImages},
		{Label: "Media files", Value: summary.Media},
		{Label: "Package", Value: summary.MainPath},
		{Label: "Family packages", Value: len(summary.Families)},
		{Label: "Families skipped", Value: summary.SkippedFamilies},
	})
	if len(summary.Families) > 0 {
		rows := make([]app.SummaryRow, 0, len(summary.Families))
		for _, f := range summary.Families {
			rows = append(rows, app.SummaryRow{Label: f.Family, Value: filepath.Base(f.Path)})
		}
		app.PrintSummary(cmd.OutOrStdout(), "Family decks", rows)
	}
	return err
}
