package media

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

// Directory name fallbacks when a name is empty or slugifies to nothing
const (
	UnknownFamilyDir = "unknown-family"
	speciesDirFormat = "species-%d"
)

// Image output formats
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// SpeciesDir returns <root>/<family>/<latin name> with both segments slugified
func SpeciesDir(root, family, latinName string, speciesID int64) string {
	familyDir := slug.Make(family)
	if familyDir == "" {
		familyDir = UnknownFamilyDir
	}
	speciesDir := slug.Make(latinName)
	if speciesDir == "" {
		speciesDir = fmt.Sprintf(speciesDirFormat, speciesID)
	}
	return filepath.Join(root, familyDir, speciesDir)
}

// ImageFileName returns img_<id><ext> and the output format. URLs ending in .png stay PNG,
// everything else is written as JPEG.
func ImageFileName(imageID uint, rawURL string) (string, string) {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if strings.EqualFold(path.Ext(p), ".png") {
		return fmt.Sprintf("img_%d.png", imageID), FormatPNG
	}
	return fmt.Sprintf("img_%d.jpg", imageID), FormatJPEG
}

// SoundFileName returns sound_<id>.mp3
func SoundFileName(soundID uint) string {
	return fmt.Sprintf("sound_%d.mp3", soundID)
}
