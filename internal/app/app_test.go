package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birddeck/internal/buildinfo"
	"github.com/tphakala/birddeck/internal/conf"
	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/logger"
	"github.com/tphakala/birddeck/internal/observability"
)

func TestLockIsExclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "birddeck.lock")
	log := logger.Global().Module("app")

	unlock, err := acquireLock(path, log)
	require.NoError(t, err)

	_, err = acquireLock(path, log)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict))

	unlock()

	unlock2, err := acquireLock(path, log)
	require.NoError(t, err)
	unlock2()
}

func TestLockDisabled(t *testing.T) {
	t.Parallel()

	c := &Context{Settings: &conf.Settings{Database: conf.DatabaseSettings{Type: conf.DatabaseMySQL}}}
	unlock, err := c.Lock()
	require.NoError(t, err)
	unlock()
}

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	out := RenderSummary("Fetch", []SummaryRow{
		{Label: "Inserted", Value: 12},
		{Label: "Failed", Value: 0},
	})
	assert.Contains(t, out, "Fetch")
	assert.Contains(t, out, "Inserted")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "Failed")
}

func TestRunStageRecordsOutcome(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := NewContext(buildinfo.Info{})
	c.Settings.LockFile = filepath.Join(dir, "run.lock")
	c.Settings.Metrics.TextFile = filepath.Join(dir, "metrics", "birddeck.prom")

	called := false
	err := c.RunStage(t.Context(), "deck", func(_ context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	// No metrics registry yet, so nothing is exported
	assert.NoFileExists(t, c.Settings.Metrics.TextFile)

	c.Metrics, err = observability.NewMetrics()
	require.NoError(t, err)
	err = c.RunStage(t.Context(), "deck", func(_ context.Context) error { return nil })
	require.NoError(t, err)
	assert.FileExists(t, c.Settings.Metrics.TextFile)
}
