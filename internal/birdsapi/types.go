package birdsapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Species is the species record returned by the lookup endpoint
type Species struct {
	ID           FlexInt      `json:"id"`
	Name         string       `json:"name"`
	LatinName    string       `json:"latinName"`
	FamilyName   string       `json:"speciesFamilyName"`
	Description  string       `json:"description"`
	Conservation FlexString   `json:"conservationLevelIL"`
	Images       []MediaEntry `json:"images"`
	LargeImages  []MediaEntry `json:"largeImage"`
	Sounds       []MediaEntry `json:"sounds"`
}

// MediaEntry is one image or sound entry of a species record
type MediaEntry struct {
	Path FlexString `json:"path"`
}

// Valid reports whether the record carries both a localized and a latin name
func (s *Species) Valid() bool {
	return s != nil &&
		strings.TrimSpace(s.Name) != "" &&
		strings.TrimSpace(s.LatinName) != ""
}

// ImagePaths returns the non-empty paths of images and largeImage, in payload order
func (s *Species) ImagePaths() []string {
	paths := make([]string, 0, len(s.Images)+len(s.LargeImages))
	for _, group := range [][]MediaEntry{s.Images, s.LargeImages} {
		for _, e := range group {
			if p := strings.TrimSpace(string(e.Path)); p != "" {
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// SoundClipIDs returns the non-empty clip identifiers of sounds, in payload order
func (s *Species) SoundClipIDs() []string {
	ids := make([]string, 0, len(s.Sounds))
	for _, e := range s.Sounds {
		if p := strings.TrimSpace(string(e.Path)); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// FlexString accepts a JSON string, number or null. Other values keep their raw JSON text.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		*f = FlexString(data)
	}
	return nil
}

// FlexInt accepts a JSON number or a numeric string. Anything else decodes as zero.
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(n)
	return nil
}
