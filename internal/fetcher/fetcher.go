// Package fetcher fetches species records for a list of identifiers and stores each record with
// its image and sound references.
package fetcher

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/tphakala/birddeck/internal/birdsapi"
	"github.com/tphakala/birddeck/internal/datastore"
	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/logger"
	"github.com/tphakala/birddeck/internal/observability/metrics"
	"github.com/tphakala/birddeck/internal/pipeline"
)

// Stage is the metrics label of this stage
const Stage = "fetch"

// SpeciesLookup fetches one species record and resolves its image paths
type SpeciesLookup interface {
	Lookup(ctx context.Context, id int64) (*birdsapi.Species, error)
	ResolveImageURL(path string) string
}

// Store is the subset of the datastore used by the fetcher
type Store interface {
	HasSpecies(ctx context.Context, id int64) (bool, error)
	InsertSpecies(ctx context.Context, species *datastore.Species, images []datastore.Image, sounds []datastore.Sound) (bool, error)
}

// Summary counts the outcome of a fetch run
type Summary struct {
	Total    int
	Inserted int
	Skipped  int // already stored, or stored concurrently by another run
	Failed   int
	Images   int // image references written
	Sounds   int // sound references written
}

// Fetcher stores one record per identifier
type Fetcher struct {
	api     SpeciesLookup
	store   Store
	workers int
	log     logger.Logger
	metrics *metrics.PipelineMetrics
}

// New creates a Fetcher. m may be nil.
func New(api SpeciesLookup, store Store, workers int, log logger.Logger, m *metrics.PipelineMetrics) *Fetcher {
	if log == nil {
		log = logger.Global().Module("fetcher")
	}
	return &Fetcher{api: api, store: store, workers: workers, log: log, metrics: m}
}

type counters struct {
	inserted, skipped, failed, images, sounds atomic.Int64
}

// Fetch processes ids through the worker pool. Per-identifier failures are logged and counted;
// only cancellation is returned as an error.
func (f *Fetcher) Fetch(ctx context.Context, ids []int64) (Summary, error) {
	f.log.Info("Fetching species records",
		logger.Int("identifiers", len(ids)),
		logger.Int("workers", f.workers))

	var c counters
	err := pipeline.ForEach(ctx, f.workers, ids, func(ctx context.Context, id int64) {
		f.fetchOne(ctx, id, &c)
	})

	summary := Summary{
		Total:    len(ids),
		Inserted: int(c.inserted.Load()),
		Skipped:  int(c.skipped.Load()),
		Failed:   int(c.failed.Load()),
		Images:   int(c.images.Load()),
		Sounds:   int(c.sounds.Load()),
	}
	if err != nil {
		f.log.Warn("Record fetch interrupted", logger.Error(err))
		return summary, errors.New(err).
			Component("fetcher").
			Category(errors.CategoryCancellation).
			Build()
	}

	f.log.Info("Record fetch completed",
		logger.Int("total", summary.Total),
		logger.Int("inserted", summary.Inserted),
		logger.Int("skipped", summary.Skipped),
		logger.Int("failed", summary.Failed))
	return summary, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, id int64, c *counters) {
	log := f.log.With(logger.Int64("species_id", id))

	exists, err := f.store.HasSpecies(ctx, id)
	if err != nil {
		log.Error("Failed to check stored record", logger.Error(err))
		f.fail(c)
		return
	}
	if exists {
		log.Debug("Skipping already-fetched species")
		c.skipped.Add(1)
		f.metrics.RecordUnit(Stage, metrics.OutcomeSkipped)
		return
	}

	payload, err := f.api.Lookup(ctx, id)
	if err != nil {
		log.Warn("Failed to fetch species", logger.Error(err))
		f.fail(c)
		return
	}

	if payload.ID > 0 && int64(payload.ID) != id {
		log.Debug("Payload id differs from requested id, storing under requested id",
			logger.Int64("payload_id", int64(payload.ID)))
	}

	species, images, sounds := f.toRecords(id, payload)
	inserted, err := f.store.InsertSpecies(ctx, species, images, sounds)
	if err != nil {
		log.Error("Failed to store species", logger.Error(err))
		f.fail(c)
		return
	}
	if !inserted {
		log.Debug("Species stored concurrently, references not written")
		c.skipped.Add(1)
		f.metrics.RecordUnit(Stage, metrics.OutcomeSkipped)
		return
	}

	c.inserted.Add(1)
	c.images.Add(int64(len(images)))
	c.sounds.Add(int64(len(sounds)))
	f.metrics.RecordUnit(Stage, metrics.OutcomeSuccess)
	log.Info("Fetched species",
		logger.String("name", species.Name),
		logger.Int("images", len(images)),
		logger.Int("sounds", len(sounds)))
}

func (f *Fetcher) fail(c *counters) {
	c.failed.Add(1)
	f.metrics.RecordUnit(Stage, metrics.OutcomeFailed)
}

// toRecords maps a payload to store rows keyed by the requested id, which is the id the
// skip check looks up on the next run
func (f *Fetcher) toRecords(requested int64, p *birdsapi.Species) (*datastore.Species, []datastore.Image, []datastore.Sound) {
	species := &datastore.Species{
		ID:           requested,
		Name:         strings.TrimSpace(p.Name),
		LatinName:    strings.TrimSpace(p.LatinName),
		Family:       strings.TrimSpace(p.FamilyName),
		Description:  p.Description,
		Conservation: string(p.Conservation),
	}

	paths := p.ImagePaths()
	images := make([]datastore.Image, 0, len(paths))
	for _, path := range paths {
		images = append(images, datastore.Image{URL: f.api.ResolveImageURL(path)})
	}

	clips := p.SoundClipIDs()
	sounds := make([]datastore.Sound, 0, len(clips))
	for _, clip := range clips {
		sounds = append(sounds, datastore.Sound{ClipID: clip})
	}
	return species, images, sounds
}
