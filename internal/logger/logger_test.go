package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	log.Debug("hidden debug")
	log.Info("visible info", String("family", "Accipitridae"), Int("notes", 3))
	log.Warn("visible warn")

	out := buf.String()
	assert.NotContains(t, out, "hidden debug")
	assert.Contains(t, out, "visible info")
	assert.Contains(t, out, "family=Accipitridae")
	assert.Contains(t, out, "notes=3")
	assert.Contains(t, out, "visible warn")
	assert.NotContains(t, out, "time=", "console output carries no timestamps")
}

func TestTraceLevelLabel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelTrace, time.UTC)
	log.Trace("sql query")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestModuleScopingAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := NewSlogLogger(buf, LogLevelDebug, time.UTC)
	log := base.Module("media").Module("image").With(Int64("image_id", 12))

	log.Debug("stored")

	out := buf.String()
	assert.Contains(t, out, "module=media.image")
	assert.Contains(t, out, "image_id=12")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	ctx := WithTraceID(t.Context(), "run-1")
	log.WithContext(ctx).Info("stage started")

	assert.Contains(t, buf.String(), "trace_id=run-1")
}

func TestCentralLoggerWritesJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "birddeck.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput: &FileOutput{
			Enabled: true,
			Path:    path,
			Level:   "debug",
			MaxSize: 1,
		},
	})
	require.NoError(t, err)

	cl.Module("fetcher").Info("record stored", Int64("species_id", 42), Error(nil))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "record stored", rec["msg"])
	assert.Equal(t, "fetcher", rec["module"])
	assert.InDelta(t, 42, rec["species_id"], 0)
	assert.Contains(t, rec, "time")
}

func TestCentralLoggerInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Not/AZone"})
	require.Error(t, err)
}

func TestMultiWriterHandlerRespectsLevels(t *testing.T) {
	t.Parallel()

	debugBuf := &bytes.Buffer{}
	errorBuf := &bytes.Buffer{}
	handler := newMultiWriterHandler(
		newTextHandler(debugBuf, parseLogLevel("debug"), time.UTC),
		newTextHandler(errorBuf, parseLogLevel("error"), time.UTC),
	)

	log := &moduleLogger{logger: slog.New(handler), level: parseLogLevel("debug")}
	log.Info("only in debug sink")

	assert.Contains(t, debugBuf.String(), "only in debug sink")
	assert.Empty(t, errorBuf.String())
}
