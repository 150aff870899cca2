// Package discovery probes a range of species identifiers and keeps the ones the lookup service
// answers with a complete record.
package discovery

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/tphakala/birddeck/internal/birdsapi"
	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/httpclient"
	"github.com/tphakala/birddeck/internal/logger"
	"github.com/tphakala/birddeck/internal/observability/metrics"
	"github.com/tphakala/birddeck/internal/pipeline"
)

// Stage is the metrics label of this stage
const Stage = "discover"

// SpeciesLookup fetches one species record
type SpeciesLookup interface {
	Lookup(ctx context.Context, id int64) (*birdsapi.Species, error)
}

// Config configures a Discoverer
type Config struct {
	Workers int
	Timeout time.Duration // per-lookup timeout, started after pacing; 0 leaves the client default
}

// Result is the outcome of a discovery run
type Result struct {
	IDs     []int64 // valid identifiers, ascending
	Checked int
	Valid   int
	Invalid int
}

// Discoverer classifies identifiers as valid or invalid
type Discoverer struct {
	api     SpeciesLookup
	cfg     Config
	log     logger.Logger
	metrics *metrics.PipelineMetrics
}

// New creates a Discoverer. m may be nil.
func New(api SpeciesLookup, cfg Config, log logger.Logger, m *metrics.PipelineMetrics) *Discoverer {
	if log == nil {
		log = logger.Global().Module("discovery")
	}
	return &Discoverer{api: api, cfg: cfg, log: log, metrics: m}
}

// MaxRange is the largest number of identifiers one Discover call accepts
const MaxRange = 1_000_000

// Discover probes every identifier in [start, end]. Lookup failures of any kind mark the
// identifier invalid and are never returned; only an invalid range or cancellation is an error.
func (d *Discoverer) Discover(ctx context.Context, start, end int) (Result, error) {
	if start < 0 || start > end || end-start >= MaxRange {
		return Result{}, errors.Newf("invalid identifier range %d..%d (at most %d identifiers)", start, end, MaxRange).
			Component("discovery").
			Category(errors.CategoryValidation).
			Context("start", start).
			Context("end", end).
			Build()
	}

	ids := make([]int64, 0, end-start+1)
	for id := start; id <= end; id++ {
		ids = append(ids, int64(id))
	}

	d.log.Info("Starting identifier discovery",
		logger.Int("start", start),
		logger.Int("end", end),
		logger.Int("workers", d.cfg.Workers))

	var (
		mu     sync.Mutex
		result Result
	)
	err := pipeline.ForEach(ctx, d.cfg.Workers, ids, func(ctx context.Context, id int64) {
		valid := d.check(ctx, id)

		mu.Lock()
		defer mu.Unlock()
		result.Checked++
		if valid {
			result.Valid++
			result.IDs = append(result.IDs, id)
		} else {
			result.Invalid++
		}
	})
	slices.Sort(result.IDs)

	if err != nil {
		d.log.Warn("Identifier discovery interrupted",
			logger.Int("checked", result.Checked),
			logger.Error(err))
		return result, errors.New(err).
			Component("discovery").
			Category(errors.CategoryCancellation).
			Build()
	}

	d.log.Info("Identifier discovery completed",
		logger.Int("checked", result.Checked),
		logger.Int("valid", result.Valid),
		logger.Int("invalid", result.Invalid))
	return result, nil
}

// check performs one lookup and reports whether the identifier is valid
func (d *Discoverer) check(ctx context.Context, id int64) bool {
	// Pacing waits must not eat into the lookup timeout
	species, err := d.api.Lookup(httpclient.WithRequestTimeout(ctx, d.cfg.Timeout), id)
	switch {
	case err != nil:
		d.log.Debug("Invalid identifier", logger.Int64("species_id", id), logger.Error(err))
		d.metrics.RecordUnit(Stage, metrics.OutcomeInvalid)
		return false
	case !species.Valid():
		d.log.Debug("Invalid identifier", logger.Int64("species_id", id), logger.String("reason", "missing name"))
		d.metrics.RecordUnit(Stage, metrics.OutcomeInvalid)
		return false
	}

	d.log.Info("Valid identifier",
		logger.Int64("species_id", id),
		logger.String("name", species.Name),
		logger.String("latin_name", species.LatinName))
	d.metrics.RecordUnit(Stage, metrics.OutcomeSuccess)
	return true
}
