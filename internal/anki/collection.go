package anki

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver for collection.anki2

	"github.com/tphakala/birddeck/internal/errors"
)

// schemaV11 is the Anki 2.1 legacy collection schema
const schemaV11 = `
CREATE TABLE col (
    id              integer primary key,
    crt             integer not null,
    mod             integer not null,
    scm             integer not null,
    ver             integer not null,
    dty             integer not null,
    usn             integer not null,
    ls              integer not null,
    conf            text not null,
    models          text not null,
    decks           text not null,
    dconf           text not null,
    tags            text not null
);
CREATE TABLE notes (
    id              integer primary key,
    guid            text not null,
    mid             integer not null,
    mod             integer not null,
    usn             integer not null,
    tags            text not null,
    flds            text not null,
    sfld            integer not null,
    csum            integer not null,
    flags           integer not null,
    data            text not null
);
CREATE TABLE cards (
    id              integer primary key,
    nid             integer not null,
    did             integer not null,
    ord             integer not null,
    mod             integer not null,
    usn             integer not null,
    type            integer not null,
    queue           integer not null,
    due             integer not null,
    ivl             integer not null,
    factor          integer not null,
    reps            integer not null,
    lapses          integer not null,
    left            integer not null,
    odue            integer not null,
    odid            integer not null,
    flags           integer not null,
    data            text not null
);
CREATE TABLE revlog (
    id              integer primary key,
    cid             integer not null,
    usn             integer not null,
    ease            integer not null,
    ivl             integer not null,
    lastIvl         integer not null,
    factor          integer not null,
    time            integer not null,
    type            integer not null
);
CREATE TABLE graves (
    usn             integer not null,
    oid             integer not null,
    type            integer not null
);
CREATE INDEX ix_notes_usn on notes (usn);
CREATE INDEX ix_cards_usn on cards (usn);
CREATE INDEX ix_revlog_usn on revlog (usn);
CREATE INDEX ix_cards_nid on cards (nid);
CREATE INDEX ix_cards_sched on cards (did, queue, due);
CREATE INDEX ix_revlog_cid on revlog (cid);
CREATE INDEX ix_notes_csum on notes (csum);
`

// defaultDeckID is the "Default" deck every collection carries
const defaultDeckID = 1

// writeCollection creates a collection database at path holding decks and their notes.
// One card is generated per note and template.
func writeCollection(ctx context.Context, path string, decks []*Deck, now time.Time) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return collectionError(err, "open")
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schemaV11); err != nil {
		return collectionError(err, "create_schema")
	}

	models := collectModels(decks)
	colJSON, err := collectionJSON(decks, models, now)
	if err != nil {
		return collectionError(err, "encode_collection")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return collectionError(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	nowSec := now.Unix()
	nowMs := now.UnixMilli()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO col VALUES (1, ?, ?, ?, 11, 0, 0, 0, ?, ?, ?, ?, '{}')`,
		nowSec, nowMs, nowMs, colJSON.conf, colJSON.models, colJSON.decks, colJSON.dconf); err != nil {
		return collectionError(err, "insert_col")
	}

	noteStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO notes VALUES (?, ?, ?, ?, -1, ?, ?, ?, ?, 0, '')`)
	if err != nil {
		return collectionError(err, "prepare_notes")
	}
	defer noteStmt.Close()

	cardStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cards VALUES (?, ?, ?, ?, ?, -1, 0, 0, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')`)
	if err != nil {
		return collectionError(err, "prepare_cards")
	}
	defer cardStmt.Close()

	// Note and card ids are millisecond timestamps in Anki; consecutive values keep them unique
	nextID := nowMs
	due := int64(0)
	for _, deck := range decks {
		for _, note := range deck.Notes {
			noteID := nextID
			nextID++
			sfld := note.sortField()
			if _, err := noteStmt.ExecContext(ctx,
				noteID, note.guid(), note.Model.ID, nowSec, note.tagString(),
				strings.Join(note.Fields, fieldSeparator), sfld, fieldChecksum(sfld)); err != nil {
				return collectionError(err, "insert_note")
			}

			due++
			for ord := range note.Model.Templates {
				cardID := nextID
				nextID++
				if _, err := cardStmt.ExecContext(ctx, cardID, noteID, deck.ID, ord, nowSec, due); err != nil {
					return collectionError(err, "insert_card")
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return collectionError(err, "commit")
	}
	return nil
}

// collectModels returns the distinct models used by notes, keyed by id
func collectModels(decks []*Deck) map[int64]*Model {
	models := make(map[int64]*Model)
	for _, d := range decks {
		for _, n := range d.Notes {
			models[n.Model.ID] = n.Model
		}
	}
	return models
}

type colJSON struct {
	conf, models, decks, dconf string
}

// collectionJSON encodes the JSON columns of the col row
func collectionJSON(decks []*Deck, models map[int64]*Model, now time.Time) (colJSON, error) {
	nowSec := now.Unix()
	firstDeck := int64(defaultDeckID)
	if len(decks) > 0 {
		firstDeck = decks[0].ID
	}

	conf := map[string]any{
		"activeDecks":   []int64{firstDeck},
		"curDeck":       firstDeck,
		"newSpread":     0,
		"collapseTime":  1200,
		"timeLim":       0,
		"estTimes":      true,
		"dueCounts":     true,
		"curModel":      nil,
		"nextPos":       1,
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
	}

	modelsJSON := make(map[string]any, len(models))
	for id, m := range models {
		fields := make([]map[string]any, len(m.Fields))
		for i, name := range m.Fields {
			fields[i] = map[string]any{
				"name": name, "ord": i, "font": "Arial", "media": []string{},
				"rtl": false, "size": 20, "sticky": false,
			}
		}
		tmpls := make([]map[string]any, len(m.Templates))
		for i, t := range m.Templates {
			tmpls[i] = map[string]any{
				"name": t.Name, "ord": i, "qfmt": t.Qfmt, "afmt": t.Afmt,
				"bqfmt": "", "bafmt": "", "did": nil,
			}
		}
		modelsJSON[jsonID(id)] = map[string]any{
			"id":        id,
			"name":      m.Name,
			"type":      0,
			"mod":       nowSec,
			"usn":       -1,
			"sortf":     0,
			"did":       firstDeck,
			"tmpls":     tmpls,
			"flds":      fields,
			"css":       m.CSS,
			"latexPre":  latexPre,
			"latexPost": "\\end{document}",
			"tags":      []string{},
			"vers":      []any{},
			"req":       [][]any{{0, "all", []int{0}}},
		}
	}

	decksJSON := map[string]any{
		jsonID(defaultDeckID): deckJSON(defaultDeckID, "Default", "", nowSec),
	}
	for _, d := range decks {
		decksJSON[jsonID(d.ID)] = deckJSON(d.ID, d.Name, d.Description, nowSec)
	}

	dconf := map[string]any{
		"1": map[string]any{
			"id": 1, "name": "Default", "mod": 0, "usn": 0, "maxTaken": 60, "autoplay": true,
			"timer": 0, "replayq": true, "dyn": false,
			"new": map[string]any{
				"delays": []int{1, 10}, "ints": []int{1, 4, 7}, "initialFactor": 2500,
				"separate": true, "order": 1, "perDay": 20, "bury": true,
			},
			"lapse": map[string]any{
				"delays": []int{10}, "mult": 0, "minInt": 1, "leechFails": 8, "leechAction": 0,
			},
			"rev": map[string]any{
				"perDay": 100, "ease4": 1.3, "fuzz": 0.05, "minSpace": 1, "ivlFct": 1,
				"maxIvl": 36500, "bury": true,
			},
		},
	}

	var out colJSON
	for _, part := range []struct {
		dst *string
		v   any
	}{
		{&out.conf, conf},
		{&out.models, modelsJSON},
		{&out.decks, decksJSON},
		{&out.dconf, dconf},
	} {
		b, err := json.Marshal(part.v)
		if err != nil {
			return colJSON{}, err
		}
		*part.dst = string(b)
	}
	return out, nil
}

func deckJSON(id int64, name, desc string, mod int64) map[string]any {
	return map[string]any{
		"id": id, "name": name, "desc": desc, "mod": mod, "usn": -1,
		"collapsed": false, "browserCollapsed": false, "conf": 1, "dyn": 0,
		"extendNew": 0, "extendRev": 50,
		"newToday": []int{0, 0}, "revToday": []int{0, 0},
		"lrnToday": []int{0, 0}, "timeToday": []int{0, 0},
	}
}

const latexPre = "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n" +
	"\\usepackage[utf8]{inputenc}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n" +
	"\\setlength{\\parindent}{0in}\n\\begin{document}\n"

func collectionError(err error, operation string) error {
	return errors.New(err).
		Component("anki").
		Category(errors.CategoryPackage).
		Context("operation", operation).
		Build()
}
