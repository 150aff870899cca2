// Package anki writes Anki 2.1 deck packages (.apkg): a zip holding a collection.anki2 SQLite
// database, a media index and the media files.
package anki

import (
	"crypto/sha1" //nolint:gosec // Anki's field checksum is defined on SHA-1
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tphakala/birddeck/internal/errors"
)

// fieldSeparator joins note fields in the notes.flds column
const fieldSeparator = "\x1f"

// guidNamespace scopes note GUIDs generated from their first field
var guidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/tphakala/birddeck/anki-note"))

// Template is a card template of a model
type Template struct {
	Name string
	Qfmt string // question side
	Afmt string // answer side
}

// Model is an Anki note type
type Model struct {
	ID        int64
	Name      string
	Fields    []string
	Templates []Template
	CSS       string
}

// Deck is a named collection of notes
type Deck struct {
	ID          int64
	Name        string
	Description string
	Notes       []*Note
}

// Note is one note of a model. GUID defaults to a name-based UUID of the first field, so
// re-importing a package updates notes in place.
type Note struct {
	Model  *Model
	Fields []string
	Tags   []string
	GUID   string
}

// NewDeck creates an empty deck
func NewDeck(id int64, name string) *Deck {
	return &Deck{ID: id, Name: name}
}

// AddNote validates n against its model and appends it
func (d *Deck) AddNote(n *Note) error {
	if n.Model == nil {
		return errors.Newf("note has no model").
			Component("anki").
			Category(errors.CategoryValidation).
			Build()
	}
	if len(n.Fields) != len(n.Model.Fields) {
		return errors.Newf("note has %d fields, model %q expects %d", len(n.Fields), n.Model.Name, len(n.Model.Fields)).
			Component("anki").
			Category(errors.CategoryValidation).
			Build()
	}
	d.Notes = append(d.Notes, n)
	return nil
}

// guid returns the note GUID, deriving it from the first field when unset
func (n *Note) guid() string {
	if n.GUID != "" {
		return n.GUID
	}
	first := ""
	if len(n.Fields) > 0 {
		first = n.Fields[0]
	}
	return uuid.NewSHA1(guidNamespace, []byte(first)).String()
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// sortField returns the first field stripped of HTML, as Anki stores it in notes.sfld
func (n *Note) sortField() string {
	if len(n.Fields) == 0 {
		return ""
	}
	return strings.TrimSpace(htmlTag.ReplaceAllString(n.Fields[0], ""))
}

// fieldChecksum is the integer value of the first 8 hex digits of the SHA-1 of s
func fieldChecksum(s string) int64 {
	sum := sha1.Sum([]byte(s)) //nolint:gosec // checksum, not security
	v, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:8], 16, 64)
	return v
}

// tagString formats tags the way Anki stores them: space separated with surrounding spaces
func (n *Note) tagString() string {
	if len(n.Tags) == 0 {
		return ""
	}
	tags := make([]string, 0, len(n.Tags))
	for _, t := range n.Tags {
		if t = strings.ReplaceAll(strings.TrimSpace(t), " ", "_"); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}
