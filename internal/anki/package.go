package anki

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tphakala/birddeck/internal/errors"
)

// Package is a set of decks and the media files their notes reference
type Package struct {
	Decks      []*Deck
	MediaFiles []string // paths on disk; stored under their base name
	now        func() time.Time
}

// NewPackage creates a package for decks
func NewPackage(decks ...*Deck) *Package {
	return &Package{Decks: decks, now: time.Now}
}

// AddMedia appends media file paths. Duplicates are dropped when the package is written.
func (p *Package) AddMedia(paths ...string) {
	p.MediaFiles = append(p.MediaFiles, paths...)
}

// WriteToFile writes the package to path, replacing any existing file only once the archive is
// complete
func (p *Package) WriteToFile(ctx context.Context, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FileError(err, dir, 0)
		}
	}

	workDir, err := os.MkdirTemp(filepath.Dir(path), ".apkg-*")
	if err != nil {
		return errors.FileError(err, path, 0)
	}
	defer os.RemoveAll(workDir)

	now := time.Now
	if p.now != nil {
		now = p.now
	}
	collectionPath := filepath.Join(workDir, "collection.anki2")
	if err := writeCollection(ctx, collectionPath, p.Decks, now()); err != nil {
		return err
	}

	archivePath := filepath.Join(workDir, "package.apkg")
	if err := p.writeArchive(collectionPath, archivePath); err != nil {
		return err
	}

	if err := os.Rename(archivePath, path); err != nil {
		return errors.FileError(err, path, 0)
	}
	return nil
}

// writeArchive zips the collection, the media index and the numbered media entries
func (p *Package) writeArchive(collectionPath, archivePath string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return errors.FileError(err, archivePath, 0)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	if err := addFile(w, "collection.anki2", collectionPath); err != nil {
		return err
	}

	index := make(map[string]string)
	for i, mediaPath := range uniquePaths(p.MediaFiles) {
		entry := strconv.Itoa(i)
		if err := addFile(w, entry, mediaPath); err != nil {
			return err
		}
		index[entry] = filepath.Base(mediaPath)
	}

	mediaFile, err := w.Create("media")
	if err != nil {
		return archiveError(err, "create_media_index")
	}
	if err := json.NewEncoder(mediaFile).Encode(index); err != nil {
		return archiveError(err, "write_media_index")
	}

	if err := w.Close(); err != nil {
		return archiveError(err, "close_archive")
	}
	if err := out.Close(); err != nil {
		return errors.FileError(err, archivePath, 0)
	}
	return nil
}

func addFile(w *zip.Writer, name, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return errors.FileError(err, path, 0)
	}
	defer src.Close()

	dst, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return archiveError(err, "create_entry")
	}
	if _, err := io.Copy(dst, src); err != nil {
		return archiveError(err, "write_entry")
	}
	return nil
}

// uniquePaths drops repeated paths, keeping first-occurrence order
func uniquePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func jsonID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func archiveError(err error, operation string) error {
	return errors.New(err).
		Component("anki").
		Category(errors.CategoryPackage).
		Context("operation", operation).
		Build()
}
