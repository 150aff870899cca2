// Package app holds the process-wide state shared by the birddeck subcommands: settings, the
// central logger, the metrics registry and the stage lock.
package app

import (
	"context"
	"time"

	"github.com/tphakala/birddeck/internal/birdsapi"
	"github.com/tphakala/birddeck/internal/buildinfo"
	"github.com/tphakala/birddeck/internal/conf"
	"github.com/tphakala/birddeck/internal/datastore"
	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/httpclient"
	"github.com/tphakala/birddeck/internal/logger"
	"github.com/tphakala/birddeck/internal/observability"
)

// Context holds the application state for one process.
type Context struct {
	Build      buildinfo.Info
	ConfigFile string
	Settings   *conf.Settings
	Log        *logger.CentralLogger
	Metrics    *observability.Metrics
}

// NewContext returns an uninitialized Context. Init must run before a stage uses it.
func NewContext(build buildinfo.Info) *Context {
	return &Context{Build: build, Settings: &conf.Settings{}}
}

// Init loads settings from ConfigFile, the environment and bound flags, then sets up the
// central logger and the metrics registry.
func (c *Context) Init() error {
	settings, err := conf.Load(c.ConfigFile)
	if err != nil {
		return err
	}
	*c.Settings = *settings

	central, err := logger.NewCentralLogger(c.Settings.LoggingConfig())
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if c.Log != nil {
		_ = c.Log.Close()
	}
	c.Log = central
	logger.SetGlobal(central)
	central.Module("app").Debug("Starting birddeck", logger.String("version", c.Build.String()))

	if c.Metrics == nil {
		if c.Metrics, err = observability.NewMetrics(); err != nil {
			return err
		}
	}
	return nil
}

// Logger returns the named module logger.
func (c *Context) Logger(module string) logger.Logger {
	if c.Log == nil {
		return logger.Global().Module(module)
	}
	return c.Log.Module(module)
}

// HTTPClient returns a client configured from the api settings and instrumented for stage.
func (c *Context) HTTPClient(stage string, timeout time.Duration) *httpclient.Client {
	api := c.Settings.API
	if timeout <= 0 {
		timeout = api.Timeout
	}
	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: timeout,
		UserAgent:      api.UserAgent,
		Headers:        api.Headers,
		RateLimit:      api.RateLimit,
	})
	c.Metrics.InstrumentClient(client, stage)
	return client
}

// SpeciesAPI returns a species lookup client on top of client.
func (c *Context) SpeciesAPI(client *httpclient.Client) (*birdsapi.Client, error) {
	return birdsapi.NewClient(birdsapi.Config{
		SpeciesURL:   c.Settings.API.SpeciesURL,
		ImageBaseURL: c.Settings.API.ImageBaseURL,
	}, client)
}

// OpenStore opens and migrates the configured store.
func (c *Context) OpenStore() (datastore.Interface, error) {
	store, err := datastore.New(c.Settings, c.Logger("datastore"))
	if err != nil {
		return nil, err
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	return store, nil
}

// RunStage runs fn while holding the stage lock, then records the stage result and exports
// the metrics textfile.
func (c *Context) RunStage(ctx context.Context, stage string, fn func(context.Context) error) error {
	unlock, err := c.Lock()
	if err != nil {
		return err
	}
	defer unlock()

	start := time.Now()
	err = fn(ctx)
	c.Finish(stage, time.Since(start), err)
	return err
}

// Finish records the stage outcome and writes the metrics textfile if one is configured.
func (c *Context) Finish(stage string, elapsed time.Duration, err error) {
	if c.Metrics == nil {
		return
	}
	c.Metrics.Pipeline.StageFinished(stage, elapsed, err)
	if werr := c.Metrics.WriteTextfile(c.Settings.Metrics.TextFile); werr != nil {
		c.Logger("app").Warn("Failed to write metrics textfile",
			logger.String("path", c.Settings.Metrics.TextFile),
			logger.Error(werr))
	}
}

// Close flushes and closes the central logger.
func (c *Context) Close() {
	if c.Log != nil {
		_ = c.Log.Close()
	}
}
