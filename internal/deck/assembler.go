// Package deck builds Anki packages from materialized images: one package with every note and
// one per taxonomic family.
package deck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/birddeck/internal/anki"
	"github.com/tphakala/birddeck/internal/datastore"
	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/logger"
	"github.com/tphakala/birddeck/internal/observability/metrics"
)

// Stage is the metrics label of this stage
const Stage = "deck"

// Store is the subset of the datastore used by the assembler
type Store interface {
	MaterializedImages(ctx context.Context) ([]datastore.MaterializedImage, error)
	MaterializedSounds(ctx context.Context, speciesID int64) ([]string, error)
}

// Config configures an Assembler
type Config struct {
	Name           string
	ID             int64
	ModelID        int64
	ModelName      string
	OutputDir      string
	FileName       string
	FamilyDir      string
	FilePrefix     string
	MinFamilyNotes int
	UnknownFamily  string
}

// FamilyPackage describes one written family package
type FamilyPackage struct {
	Family string
	DeckID int64
	Notes  int
	Media  int
	Path   string
}

// Summary is the outcome of an assembly run
type Summary struct {
	Notes           int
	MissingImages   int
	Media           int
	MainPath        string
	Families        []FamilyPackage
	SkippedFamilies int
}

// Assembler builds the packages
type Assembler struct {
	store   Store
	cfg     Config
	model   *anki.Model
	log     logger.Logger
	metrics *metrics.PipelineMetrics
	sounds  *cache.Cache // species id -> soundSet
}

// New creates an Assembler. m may be nil.
func New(store Store, cfg Config, log logger.Logger, m *metrics.PipelineMetrics) *Assembler {
	if log == nil {
		log = logger.Global().Module("deck")
	}
	if cfg.UnknownFamily == "" {
		cfg.UnknownFamily = "UnknownFamily"
	}
	return &Assembler{
		store:   store,
		cfg:     cfg,
		model:   NewModel(cfg.ModelID, cfg.ModelName),
		log:     log,
		metrics: m,
		sounds:  cache.New(cache.NoExpiration, 0),
	}
}

// entry is one note with the media it references
type entry struct {
	note   *anki.Note
	family string
	media  []string
}

// soundSet is the memoized sound field and files of one species
type soundSet struct {
	field string
	paths []string
}

// Assemble writes the main package and one package per family with at least MinFamilyNotes
// notes. Images whose file is missing are logged and skipped.
func (a *Assembler) Assemble(ctx context.Context) (Summary, error) {
	rows, err := a.store.MaterializedImages(ctx)
	if err != nil {
		return Summary{}, err
	}
	a.log.Info("Assembling packages", logger.Int("images", len(rows)))

	var summary Summary
	entries := make([]entry, 0, len(rows))
	for _, row := range rows {
		if ctx.Err() != nil {
			return summary, errors.New(ctx.Err()).
				Component("deck").
				Category(errors.CategoryCancellation).
				Build()
		}
		e, ok, err := a.buildEntry(ctx, row)
		if err != nil {
			return summary, err
		}
		if !ok {
			summary.MissingImages++
			a.metrics.RecordUnit(Stage, metrics.OutcomeSkipped)
			continue
		}
		entries = append(entries, e)
		a.metrics.RecordUnit(Stage, metrics.OutcomeSuccess)
	}
	summary.Notes = len(entries)

	mainPath := filepath.Join(a.cfg.OutputDir, a.cfg.FileName)
	media, err := a.writePackage(ctx, a.cfg.ID, a.cfg.Name, entries, mainPath)
	if err != nil {
		return summary, err
	}
	summary.MainPath = mainPath
	summary.Media = media
	a.log.Info("Package written",
		logger.String("file_path", mainPath),
		logger.Int("notes", len(entries)),
		logger.Int("media", media))

	groups := groupByFamily(entries)
	fileNames := familyFileNames(groups)

	var familyErrs []error
	for _, group := range groups {
		if len(group.entries) < a.cfg.MinFamilyNotes {
			a.log.Info("Skipping small family",
				logger.String("family", group.family),
				logger.Int("notes", len(group.entries)),
				logger.Int("minimum", a.cfg.MinFamilyNotes))
			summary.SkippedFamilies++
			continue
		}

		deckID := FamilyDeckID(a.cfg.ID, group.family)
		path := filepath.Join(a.cfg.OutputDir, a.cfg.FamilyDir,
			fmt.Sprintf("%s_%s.apkg", a.cfg.FilePrefix, fileNames[group.family]))
		media, err := a.writePackage(ctx, deckID, a.cfg.Name+" - "+group.family, group.entries, path)
		if err != nil {
			a.log.Error("Failed to write family package",
				logger.String("family", group.family),
				logger.String("file_path", path),
				logger.Error(err))
			familyErrs = append(familyErrs, err)
			continue
		}
		summary.Families = append(summary.Families, FamilyPackage{
			Family: group.family,
			DeckID: deckID,
			Notes:  len(group.entries),
			Media:  media,
			Path:   path,
		})
		a.log.Info("Family package written",
			logger.String("family", group.family),
			logger.Int64("deck_id", deckID),
			logger.Int("notes", len(group.entries)),
			logger.String("file_path", path))
	}

	if len(familyErrs) > 0 {
		return summary, errors.New(errors.Join(familyErrs...)).
			Component("deck").
			Category(errors.CategoryPackage).
			Context("failed_families", len(familyErrs)).
			Build()
	}
	return summary, nil
}

// buildEntry creates the note for one image. ok is false when the image file is missing.
func (a *Assembler) buildEntry(ctx context.Context, row datastore.MaterializedImage) (entry, bool, error) {
	if _, err := os.Stat(row.FilePath); err != nil {
		a.log.Warn("Image file missing",
			logger.Int64("species_id", row.SpeciesID),
			logger.String("file_path", row.FilePath))
		return entry{}, false, nil
	}

	sounds, err := a.soundsFor(ctx, row.SpeciesID)
	if err != nil {
		return entry{}, false, err
	}

	family := strings.TrimSpace(row.Family)
	if family == "" {
		family = a.cfg.UnknownFamily
	}

	imageName := filepath.Base(row.FilePath)
	note := &anki.Note{
		Model: a.model,
		Fields: []string{
			imageName,
			fmt.Sprintf(`<img src="%s">`, imageName),
			row.Name,
			row.LatinName,
			row.Family,
			sounds.field,
		},
	}

	media := make([]string, 0, 1+len(sounds.paths))
	media = append(media, row.FilePath)
	media = append(media, sounds.paths...)
	return entry{note: note, family: family, media: media}, true, nil
}

// soundsFor returns the existing sound files of a species, memoized per species
func (a *Assembler) soundsFor(ctx context.Context, speciesID int64) (soundSet, error) {
	key := strconv.FormatInt(speciesID, 10)
	if cached, found := a.sounds.Get(key); found {
		if set, ok := cached.(soundSet); ok {
			return set, nil
		}
	}

	paths, err := a.store.MaterializedSounds(ctx, speciesID)
	if err != nil {
		return soundSet{}, err
	}

	var set soundSet
	var field strings.Builder
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			a.log.Debug("Sound file missing", logger.Int64("species_id", speciesID), logger.String("file_path", p))
			continue
		}
		set.paths = append(set.paths, p)
		fmt.Fprintf(&field, "[sound:%s]", filepath.Base(p))
	}
	set.field = field.String()

	a.sounds.Set(key, set, cache.NoExpiration)
	return set, nil
}

// writePackage writes one package holding entries in a deck and returns its media count
func (a *Assembler) writePackage(ctx context.Context, deckID int64, name string, entries []entry, path string) (int, error) {
	deck := anki.NewDeck(deckID, name)
	pkg := anki.NewPackage(deck)
	for _, e := range entries {
		if err := deck.AddNote(e.note); err != nil {
			return 0, err
		}
		pkg.AddMedia(e.media...)
	}
	if err := pkg.WriteToFile(ctx, path); err != nil {
		return 0, err
	}
	return countUnique(pkg.MediaFiles), nil
}

type familyGroup struct {
	family  string
	entries []entry
}

// groupByFamily groups entries by family in first-occurrence order
func groupByFamily(entries []entry) []familyGroup {
	index := make(map[string]int)
	var groups []familyGroup
	for _, e := range entries {
		i, ok := index[e.family]
		if !ok {
			i = len(groups)
			index[e.family] = i
			groups = append(groups, familyGroup{family: e.family})
		}
		groups[i].entries = append(groups[i].entries, e)
	}
	return groups
}

func familyFileNames(groups []familyGroup) map[string]string {
	families := make([]string, len(groups))
	for i, g := range groups {
		families[i] = g.family
	}
	return FamilyFileNames(families)
}

func countUnique(paths []string) int {
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		seen[p] = struct{}{}
	}
	return len(seen)
}
