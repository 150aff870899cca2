// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"context"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/birddeck/internal/conf"
	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/logger"
)

// Interface abstracts the underlying database implementation.
// Every method runs in its own session, so it is safe to call from many workers at once.
type Interface interface {
	Open() error
	Close() error

	HasSpecies(ctx context.Context, id int64) (bool, error)
	InsertSpecies(ctx context.Context, species *Species, images []Image, sounds []Sound) (bool, error)

	PendingImages(ctx context.Context) ([]PendingImage, error)
	PendingSounds(ctx context.Context) ([]PendingSound, error)
	SetImagePath(ctx context.Context, imageID uint, path string) error
	SetSoundPath(ctx context.Context, soundID uint, path string) error

	MaterializedImages(ctx context.Context) ([]MaterializedImage, error)
	MaterializedSounds(ctx context.Context, speciesID int64) ([]string, error)
	MaterializedPaths(ctx context.Context) ([]string, error)

	Stats(ctx context.Context) (Stats, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB        *gorm.DB // GORM database instance
	log       logger.Logger
	closeOnce sync.Once
}

// New creates the store selected by settings.Database.Type. Open must be called before use.
func New(settings *conf.Settings, log logger.Logger) (Interface, error) {
	if log == nil {
		log = GetLogger()
	}
	switch settings.Database.Type {
	case conf.DatabaseSQLite, "":
		return &SQLiteStore{DataStore: DataStore{log: log}, Settings: settings}, nil
	case conf.DatabaseMySQL:
		return &MySQLStore{DataStore: DataStore{log: log}, Settings: settings}, nil
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Database.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// HasSpecies reports whether a species row exists
func (ds *DataStore) HasSpecies(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := ds.DB.WithContext(ctx).Model(&Species{}).Where("id = ?", id).Limit(1).Count(&count).Error; err != nil {
		return false, dbError(err, "has_species").Context("species_id", id).Build()
	}
	return count > 0, nil
}

// InsertSpecies inserts the species row if absent and, only when it was newly inserted, its
// image and sound references. Everything happens in one transaction. The returned bool reports
// whether the species row was inserted.
func (ds *DataStore) InsertSpecies(ctx context.Context, species *Species, images []Image, sounds []Sound) (bool, error) {
	if species == nil || species.ID <= 0 {
		return false, errors.Newf("species must have a positive id").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	inserted := false
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := *species
		row.Images, row.Sounds = nil, nil

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		inserted = true

		for i := range images {
			images[i].ID = 0
			images[i].SpeciesID = species.ID
		}
		for i := range sounds {
			sounds[i].ID = 0
			sounds[i].SpeciesID = species.ID
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}
		if len(sounds) > 0 {
			if err := tx.Create(&sounds).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, dbError(err, "insert_species").Context("species_id", species.ID).Build()
	}
	return inserted, nil
}

// PendingImages returns every image without a file path, ordered by image id
func (ds *DataStore) PendingImages(ctx context.Context) ([]PendingImage, error) {
	var rows []PendingImage
	err := ds.DB.WithContext(ctx).
		Table("images").
		Select("images.id AS image_id, images.species_id, images.url, species.latin_name, species.family").
		Joins("JOIN species ON species.id = images.species_id").
		Where("images.file_path IS NULL").
		Order("images.id").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "pending_images").Build()
	}
	return rows, nil
}

// PendingSounds returns every sound without a file path, ordered by sound id
func (ds *DataStore) PendingSounds(ctx context.Context) ([]PendingSound, error) {
	var rows []PendingSound
	err := ds.DB.WithContext(ctx).
		Table("sounds").
		Select("sounds.id AS sound_id, sounds.species_id, sounds.clip_id, species.latin_name, species.family").
		Joins("JOIN species ON species.id = sounds.species_id").
		Where("sounds.file_path IS NULL").
		Order("sounds.id").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "pending_sounds").Build()
	}
	return rows, nil
}

// SetImagePath records the local file of an image. A path that is already set is never changed.
func (ds *DataStore) SetImagePath(ctx context.Context, imageID uint, path string) error {
	err := ds.DB.WithContext(ctx).Model(&Image{}).
		Where("id = ? AND file_path IS NULL", imageID).
		Update("file_path", path).Error
	if err != nil {
		return dbError(err, "set_image_path").Context("image_id", imageID).Build()
	}
	return nil
}

// SetSoundPath records the local file of a sound. A path that is already set is never changed.
func (ds *DataStore) SetSoundPath(ctx context.Context, soundID uint, path string) error {
	err := ds.DB.WithContext(ctx).Model(&Sound{}).
		Where("id = ? AND file_path IS NULL", soundID).
		Update("file_path", path).Error
	if err != nil {
		return dbError(err, "set_sound_path").Context("sound_id", soundID).Build()
	}
	return nil
}

// MaterializedImages returns images with a non-empty file path, ordered by species then image id
func (ds *DataStore) MaterializedImages(ctx context.Context) ([]MaterializedImage, error) {
	var rows []MaterializedImage
	err := ds.DB.WithContext(ctx).
		Table("images").
		Select("images.id AS image_id, images.species_id, images.file_path, species.name, species.latin_name, species.family").
		Joins("JOIN species ON species.id = images.species_id").
		Where("images.file_path IS NOT NULL AND images.file_path <> ''").
		Order("images.species_id, images.id").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "materialized_images").Build()
	}
	return rows, nil
}

// MaterializedSounds returns the file paths of a species' materialized sounds, ordered by sound id
func (ds *DataStore) MaterializedSounds(ctx context.Context, speciesID int64) ([]string, error) {
	var paths []string
	err := ds.DB.WithContext(ctx).Model(&Sound{}).
		Where("species_id = ? AND file_path IS NOT NULL AND file_path <> ''", speciesID).
		Order("id").
		Pluck("file_path", &paths).Error
	if err != nil {
		return nil, dbError(err, "materialized_sounds").Context("species_id", speciesID).Build()
	}
	return paths, nil
}

// MaterializedPaths returns every recorded image and sound file path
func (ds *DataStore) MaterializedPaths(ctx context.Context) ([]string, error) {
	var images, sounds []string
	db := ds.DB.WithContext(ctx)
	if err := db.Model(&Image{}).Where("file_path IS NOT NULL").Pluck("file_path", &images).Error; err != nil {
		return nil, dbError(err, "materialized_paths").Build()
	}
	if err := db.Model(&Sound{}).Where("file_path IS NOT NULL").Pluck("file_path", &sounds).Error; err != nil {
		return nil, dbError(err, "materialized_paths").Build()
	}
	return append(images, sounds...), nil
}

// Stats counts species and references
func (ds *DataStore) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	db := ds.DB.WithContext(ctx)
	counts := []struct {
		model any
		where string
		dst   *int64
	}{
		{&Species{}, "", &s.Species},
		{&Image{}, "", &s.Images},
		{&Image{}, "file_path IS NOT NULL", &s.ImagesMaterialized},
		{&Sound{}, "", &s.Sounds},
		{&Sound{}, "file_path IS NOT NULL", &s.SoundsMaterialized},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return Stats{}, dbError(err, "stats").Build()
		}
	}
	return s, nil
}

// Close closes the underlying connection pool. Safe to call more than once.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryState).
			Build()
	}
	var closeErr error
	ds.closeOnce.Do(func() {
		sqlDB, err := ds.DB.DB()
		if err != nil {
			closeErr = dbError(err, "close").Build()
			return
		}
		if err := sqlDB.Close(); err != nil {
			closeErr = dbError(err, "close").Build()
		}
	})
	return closeErr
}

// dbError starts a database-category error for operation
func dbError(err error, operation string) *errors.ErrorBuilder {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)
}
