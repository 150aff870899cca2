package logger

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// levelNames renders the custom trace level instead of slog's "DEBUG-4"
var levelNames = map[slog.Level]string{
	traceLevelValue: "TRACE",
}

func replaceLevel(a slog.Attr) slog.Attr {
	if level, ok := a.Value.Any().(slog.Level); ok {
		if label, exists := levelNames[level]; exists {
			a.Value = slog.StringValue(label)
		}
	}
	return a
}

// newTextHandler creates the console handler: logfmt text, no timestamps
func newTextHandler(w io.Writer, level slog.Level, _ *time.Location) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{}
			case slog.LevelKey:
				return replaceLevel(a)
			}
			return a
		},
	})
}

// newJSONHandler creates the file handler: JSON with RFC3339 timestamps in the configured timezone
func newJSONHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	if tz == nil {
		tz = time.Local
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.In(tz).Format(time.RFC3339))
				}
			case slog.LevelKey:
				return replaceLevel(a)
			}
			return a
		},
	})
}

// NewSlogLogger creates a standalone text Logger writing to w.
// A nil writer logs to stdout, a nil timezone uses local time.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if w == nil {
		w = os.Stdout
	}
	if tz == nil {
		tz = time.Local
	}
	slogLevel := parseSlogLevel(level)
	return &moduleLogger{
		logger:   slog.New(newTextHandler(w, slogLevel, tz)),
		level:    slogLevel,
		timezone: tz,
	}
}

// parseSlogLevel converts a LogLevel to slog.Level
func parseSlogLevel(level LogLevel) slog.Level {
	return parseLogLevel(string(level))
}
