package deck

import "github.com/tphakala/birddeck/internal/anki"

// Note fields in order. UID comes first so Anki's duplicate check keys on the image, not on
// the shared species fields.
var noteFields = []string{"UID", "Image", "Name", "LatinName", "Family", "Sounds"}

const cardFront = `<div style="text-align:center;">{{Image}}</div>`

const cardBack = `<div style="text-align:center;">{{Image}}</div>
<hr>
<b>{{Name}}</b><br>
<i>{{LatinName}}</i><br>
<span>{{Family}}</span><br>
{{Sounds}}`

const cardCSS = `.card {
    font-family: Arial;
    font-size: 20px;
    text-align: center;
    color: black;
    background-color: white;
}
img {
    max-width: 100%;
    height: auto;
}
audio {
    margin-top: 10px;
}`

// NewModel returns the bird card note type
func NewModel(id int64, name string) *anki.Model {
	return &anki.Model{
		ID:     id,
		Name:   name,
		Fields: noteFields,
		Templates: []anki.Template{{
			Name: "Card 1",
			Qfmt: cardFront,
			Afmt: cardBack,
		}},
		CSS: cardCSS,
	}
}
