// model.go: GORM models of the species store
package datastore

// Species is one species record. ID is assigned by the remote service.
type Species struct {
	ID           int64   `gorm:"primaryKey;autoIncrement:false"`
	Name         string  `gorm:"size:255"`
	LatinName    string  `gorm:"size:255"`
	Family       string  `gorm:"size:255;index"`
	Description  string  `gorm:"type:text"`
	Conservation string  `gorm:"size:255"`
	Images       []Image `gorm:"foreignKey:SpeciesID;constraint:OnDelete:CASCADE"`
	Sounds       []Sound `gorm:"foreignKey:SpeciesID;constraint:OnDelete:CASCADE"`
}

// TableName overrides GORM's pluralization
func (Species) TableName() string { return "species" }

// Image is a remote image reference. FilePath is nil until the image is materialized.
type Image struct {
	ID        uint    `gorm:"primaryKey"`
	SpeciesID int64   `gorm:"index;not null"`
	URL       string  `gorm:"type:text"`
	FilePath  *string `gorm:"type:text"`
}

// Sound is a remote audio reference. ClipID is the remote clip identifier, not a URL.
type Sound struct {
	ID        uint    `gorm:"primaryKey"`
	SpeciesID int64   `gorm:"index;not null"`
	ClipID    string  `gorm:"size:255"`
	FilePath  *string `gorm:"type:text"`
}

// PendingImage is an image without a local file, joined with its species
type PendingImage struct {
	ImageID   uint
	SpeciesID int64
	URL       string
	LatinName string
	Family    string
}

// PendingSound is a sound without a local file, joined with its species
type PendingSound struct {
	SoundID   uint
	SpeciesID int64
	ClipID    string
	LatinName string
	Family    string
}

// MaterializedImage is an image with a local file, joined with its species
type MaterializedImage struct {
	ImageID   uint
	SpeciesID int64
	FilePath  string
	Name      string
	LatinName string
	Family    string
}

// Stats counts the rows of the store
type Stats struct {
	Species            int64
	Images             int64
	ImagesMaterialized int64
	Sounds             int64
	SoundsMaterialized int64
}
