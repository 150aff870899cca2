// Package media downloads the images and audio clips referenced in the store, writes them under
// the media root and records their local paths.
package media

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/tphakala/birddeck/internal/conf"
	"github.com/tphakala/birddeck/internal/datastore"
	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/httpclient"
	"github.com/tphakala/birddeck/internal/logger"
	"github.com/tphakala/birddeck/internal/observability/metrics"
	"github.com/tphakala/birddeck/internal/pipeline"
)

// Stage is the metrics label of this stage
const Stage = "media"

// Download size limits
const (
	maxImageSize = 32 << 20
	maxSoundSize = 64 << 20
)

// Reference kinds
const (
	KindImage = "image"
	KindSound = "sound"
)

// Store is the subset of the datastore used by the materializer
type Store interface {
	PendingImages(ctx context.Context) ([]datastore.PendingImage, error)
	PendingSounds(ctx context.Context) ([]datastore.PendingSound, error)
	SetImagePath(ctx context.Context, imageID uint, path string) error
	SetSoundPath(ctx context.Context, soundID uint, path string) error
	MaterializedPaths(ctx context.Context) ([]string, error)
}

// Downloader fetches a response body; *httpclient.Client implements it
type Downloader interface {
	GetBody(ctx context.Context, url string, limit int64) ([]byte, error)
}

// Config configures a Materializer
type Config struct {
	Root             string
	Workers          int
	Timeout          time.Duration // per download, started after pacing
	Image            ImageOptions
	SoundURLTemplate string // {id} is replaced with the clip id
	VerifySounds     bool
	CleanOrphans     bool
}

// KindSummary counts the outcome for one reference kind
type KindSummary struct {
	Downloaded int
	Existing   int // file already on disk, path written back if missing
	Failed     int
}

// Summary is the outcome of a materialization run
type Summary struct {
	Images         KindSummary
	Sounds         KindSummary
	Bytes          int64
	OrphansRemoved int
}

// Materializer turns pending references into local files
type Materializer struct {
	store      Store
	downloader Downloader
	cfg        Config
	log        logger.Logger
	metrics    *metrics.PipelineMetrics
}

// New creates a Materializer. m may be nil.
func New(store Store, downloader Downloader, cfg Config, log logger.Logger, m *metrics.PipelineMetrics) *Materializer {
	if log == nil {
		log = logger.Global().Module("media")
	}
	if cfg.SoundURLTemplate == "" {
		cfg.SoundURLTemplate = conf.DefaultSoundURLTemplate
	}
	return &Materializer{store: store, downloader: downloader, cfg: cfg, log: log, metrics: m}
}

// job is one reference to materialize
type job struct {
	kind   string
	refID  uint
	url    string
	dest   string
	format string // image output format
}

type kindCounters struct {
	downloaded, existing, failed atomic.Int64
}

func (k *kindCounters) summary() KindSummary {
	return KindSummary{
		Downloaded: int(k.downloaded.Load()),
		Existing:   int(k.existing.Load()),
		Failed:     int(k.failed.Load()),
	}
}

type counters struct {
	images, sounds kindCounters
	bytes          atomic.Int64
}

func (c *counters) of(kind string) *kindCounters {
	if kind == KindImage {
		return &c.images
	}
	return &c.sounds
}

// Materialize downloads every pending image and sound. A failing item is logged and counted
// and never affects other items. Only store enumeration failures and cancellation are returned.
func (m *Materializer) Materialize(ctx context.Context) (Summary, error) {
	jobs, err := m.buildJobs(ctx)
	if err != nil {
		return Summary{}, err
	}

	m.log.Info("Materializing media",
		logger.Int("items", len(jobs)),
		logger.Int("workers", m.cfg.Workers),
		logger.String("root", m.cfg.Root))

	var c counters
	poolErr := pipeline.ForEach(ctx, m.cfg.Workers, jobs, func(ctx context.Context, j job) {
		m.process(ctx, j, &c)
	})

	summary := Summary{
		Images: c.images.summary(),
		Sounds: c.sounds.summary(),
		Bytes:  c.bytes.Load(),
	}
	if poolErr != nil {
		m.log.Warn("Media materialization interrupted", logger.Error(poolErr))
		return summary, errors.New(poolErr).
			Component("media").
			Category(errors.CategoryCancellation).
			Build()
	}

	if m.cfg.CleanOrphans {
		removed, err := m.cleanOrphans(ctx)
		if err != nil {
			m.log.Warn("Orphan cleanup failed", logger.Error(err))
		}
		summary.OrphansRemoved = removed
	}

	m.log.Info("Media materialization completed",
		logger.Int("images_downloaded", summary.Images.Downloaded),
		logger.Int("images_existing", summary.Images.Existing),
		logger.Int("images_failed", summary.Images.Failed),
		logger.Int("sounds_downloaded", summary.Sounds.Downloaded),
		logger.Int("sounds_existing", summary.Sounds.Existing),
		logger.Int("sounds_failed", summary.Sounds.Failed),
		logger.Int64("bytes", summary.Bytes))
	return summary, nil
}

// buildJobs enumerates pending references and computes their destinations
func (m *Materializer) buildJobs(ctx context.Context) ([]job, error) {
	images, err := m.store.PendingImages(ctx)
	if err != nil {
		return nil, err
	}
	sounds, err := m.store.PendingSounds(ctx)
	if err != nil {
		return nil, err
	}

	jobs := make([]job, 0, len(images)+len(sounds))
	for _, img := range images {
		name, format := ImageFileName(img.ImageID, img.URL)
		jobs = append(jobs, job{
			kind:   KindImage,
			refID:  img.ImageID,
			url:    img.URL,
			dest:   filepath.Join(SpeciesDir(m.cfg.Root, img.Family, img.LatinName, img.SpeciesID), name),
			format: format,
		})
	}
	for _, snd := range sounds {
		jobs = append(jobs, job{
			kind:  KindSound,
			refID: snd.SoundID,
			url:   conf.ExpandTemplate(m.cfg.SoundURLTemplate, snd.ClipID),
			dest:  filepath.Join(SpeciesDir(m.cfg.Root, snd.Family, snd.LatinName, snd.SpeciesID), SoundFileName(snd.SoundID)),
		})
	}
	return jobs, nil
}

func (m *Materializer) process(ctx context.Context, j job, c *counters) {
	log := m.log.With(
		logger.String("kind", j.kind),
		logger.Int64("ref_id", int64(j.refID)),
		logger.String("file_path", j.dest))
	kc := c.of(j.kind)

	if info, err := os.Stat(j.dest); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		if err := m.setPath(ctx, j); err != nil {
			log.Error("Failed to record existing file", logger.Error(err))
			kc.failed.Add(1)
			m.metrics.RecordUnit(Stage, metrics.OutcomeFailed)
			return
		}
		log.Debug("File exists, skipping download")
		kc.existing.Add(1)
		m.metrics.RecordUnit(Stage, metrics.OutcomeSkipped)
		return
	}

	data, err := m.fetch(httpclient.WithRequestTimeout(ctx, m.cfg.Timeout), j)
	if err == nil {
		err = writeFileAtomic(j.dest, data)
	}
	if err == nil {
		err = m.setPath(ctx, j)
	}
	if err != nil {
		log.Warn("Failed to materialize "+j.kind, logger.String("url", j.url), logger.Error(err))
		kc.failed.Add(1)
		m.metrics.RecordUnit(Stage, metrics.OutcomeFailed)
		return
	}

	kc.downloaded.Add(1)
	c.bytes.Add(int64(len(data)))
	m.metrics.RecordUnit(Stage, metrics.OutcomeSuccess)
	m.metrics.AddBytes(j.kind, len(data))
	log.Info("Saved "+j.kind, logger.Int("bytes", len(data)))
}

// fetch downloads and prepares the payload of j
func (m *Materializer) fetch(ctx context.Context, j job) ([]byte, error) {
	if j.kind == KindImage {
		raw, err := m.downloader.GetBody(ctx, j.url, maxImageSize)
		if err != nil {
			return nil, errors.New(err).
				Component("media").
				Category(errors.CategoryImageFetch).
				NetworkContext(j.url, m.cfg.Timeout).
				Build()
		}
		return TranscodeImage(raw, j.format, m.cfg.Image)
	}

	raw, err := m.downloader.GetBody(ctx, j.url, maxSoundSize)
	if err != nil {
		return nil, errors.New(err).
			Component("media").
			Category(errors.CategoryAudioFetch).
			NetworkContext(j.url, m.cfg.Timeout).
			Build()
	}
	if m.cfg.VerifySounds {
		if _, err := VerifyMP3(raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func (m *Materializer) setPath(ctx context.Context, j job) error {
	if j.kind == KindImage {
		return m.store.SetImagePath(ctx, j.refID, j.dest)
	}
	return m.store.SetSoundPath(ctx, j.refID, j.dest)
}

// writeFileAtomic writes data to a temp file in the destination directory and renames it into
// place, so a partial file is never visible at path
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.FileError(err, filepath.Dir(path), 0)
	}
	return conf.WriteFileAtomic(path, data, 0o644)
}

// cleanOrphans removes files under the media root that no reference points at, including
// temp files left by an interrupted run
func (m *Materializer) cleanOrphans(ctx context.Context) (int, error) {
	paths, err := m.store.MaterializedPaths(ctx)
	if err != nil {
		return 0, err
	}
	keep := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			keep[abs] = struct{}{}
		}
	}

	root, err := filepath.Abs(m.cfg.Root)
	if err != nil {
		return 0, errors.FileError(err, m.cfg.Root, 0)
	}

	removed := 0
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := keep[path]; ok {
			return nil
		}
		if err := os.Remove(path); err != nil {
			m.log.Warn("Failed to remove orphan", logger.String("file_path", path), logger.Error(err))
			return nil
		}
		removed++
		m.log.Debug("Removed orphan file", logger.String("file_path", path))
		return nil
	})
	if walkErr != nil {
		return removed, errors.New(walkErr).
			Component("media").
			Category(errors.CategoryFileIO).
			Context("root", root).
			Context("removed", removed).
			Build()
	}
	if removed > 0 {
		m.log.Info("Removed orphan media files", logger.Int("count", removed))
	}
	return removed, nil
}
