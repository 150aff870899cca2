package run

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birddeck/internal/app"
	"github.com/tphakala/birddeck/internal/buildinfo"
	"github.com/tphakala/birddeck/internal/errors"
)

func newRoot(t *testing.T) (*cobra.Command, *cobra.Command) {
	t.Helper()
	root := &cobra.Command{Use: "birddeck", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String("config", "", "")
	root.PersistentFlags().Bool("debug", false, "")
	root.PersistentFlags().Int("workers", 0, "")
	run := Command(app.NewContext(buildinfo.Info{}))
	root.AddCommand(run)
	return root, run
}

func TestForwardedFlagsOnlyIncludesSetFlags(t *testing.T) {
	t.Parallel()

	root, run := newRoot(t)
	require.NoError(t, root.PersistentFlags().Set("config", "/etc/birddeck/config.yaml"))
	require.NoError(t, root.PersistentFlags().Set("workers", "4"))

	assert.ElementsMatch(t, []string{"--config=/etc/birddeck/config.yaml", "--workers=4"}, forwardedFlags(run))
}

func TestForwardedFlagsEmpty(t *testing.T) {
	t.Parallel()

	_, run := newRoot(t)
	assert.Empty(t, forwardedFlags(run))
}

func TestRunRejectsUnknownStage(t *testing.T) {
	t.Parallel()

	root, _ := newRoot(t)
	root.SetArgs([]string{"run", "--stages", "fetch,upload"})
	err := root.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}
