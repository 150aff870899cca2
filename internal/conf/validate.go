// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Supported database types
const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// MaxDiscoveryRange caps the number of identifiers a single discovery run may probe
const MaxDiscoveryRange = 1_000_000

// idPlaceholder is substituted with an identifier in URL templates
const idPlaceholder = "{id}"

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateAPISettings,
		validateDiscoverySettings,
		validateWorkerSettings,
		validateDatabaseSettings,
		validateMediaSettings,
		validateDeckSettings,
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

func validateAPISettings(settings *Settings) error {
	if err := validateURLTemplate("api.speciesurl", settings.API.SpeciesURL); err != nil {
		return err
	}
	if settings.API.ImageBaseURL != "" {
		if _, err := url.ParseRequestURI(settings.API.ImageBaseURL); err != nil {
			return fmt.Errorf("api.imagebaseurl is not a valid URL: %w", err)
		}
	}
	if settings.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if settings.API.RateLimit < 0 {
		return fmt.Errorf("api.ratelimit must not be negative")
	}
	return nil
}

func validateDiscoverySettings(settings *Settings) error {
	d := settings.Discovery
	if d.Start < 0 {
		return fmt.Errorf("discovery.start must not be negative")
	}
	if d.Start > d.End {
		return fmt.Errorf("discovery.start (%d) must not exceed discovery.end (%d)", d.Start, d.End)
	}
	if d.End-d.Start >= MaxDiscoveryRange {
		return fmt.Errorf("discovery range %d..%d exceeds %d identifiers", d.Start, d.End, MaxDiscoveryRange)
	}
	if d.Timeout <= 0 {
		return fmt.Errorf("discovery.timeout must be positive")
	}
	if strings.TrimSpace(d.IDList) == "" {
		return fmt.Errorf("discovery.idlist must be set")
	}
	return nil
}

func validateWorkerSettings(settings *Settings) error {
	for key, n := range map[string]int{
		"discovery.workers": settings.Discovery.Workers,
		"fetch.workers":     settings.Fetch.Workers,
		"media.workers":     settings.Media.Workers,
	} {
		if n < 1 {
			return fmt.Errorf("%s must be at least 1", key)
		}
	}
	return nil
}

func validateDatabaseSettings(settings *Settings) error {
	db := &settings.Database
	db.Type = strings.ToLower(strings.TrimSpace(db.Type))

	switch db.Type {
	case DatabaseSQLite:
		if db.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path must be set")
		}
		if db.SQLite.BusyTimeout < 0 {
			return fmt.Errorf("database.sqlite.busytimeout must not be negative")
		}
	case DatabaseMySQL:
		if db.MySQL.Host == "" || db.MySQL.Database == "" || db.MySQL.Username == "" {
			return fmt.Errorf("database.mysql requires host, username and database")
		}
	default:
		return fmt.Errorf("database.type must be %s or %s, got %q", DatabaseSQLite, DatabaseMySQL, db.Type)
	}
	return nil
}

func validateMediaSettings(settings *Settings) error {
	m := settings.Media
	if strings.TrimSpace(m.Root) == "" {
		return fmt.Errorf("media.root must be set")
	}
	if m.Image.MaxWidth < 1 || m.Image.MaxHeight < 1 {
		return fmt.Errorf("media.image bounding box must be at least 1x1, got %dx%d", m.Image.MaxWidth, m.Image.MaxHeight)
	}
	if m.Image.Quality < 1 || m.Image.Quality > 100 {
		return fmt.Errorf("media.image.quality must be between 1 and 100")
	}
	if m.Timeout <= 0 {
		return fmt.Errorf("media.timeout must be positive")
	}
	if m.CleanOrphans {
		if err := validateOrphanSweep(settings); err != nil {
			return err
		}
	}
	return validateURLTemplate("media.sound.urltemplate", m.Sound.URLTemplate)
}

// validateOrphanSweep rejects a media root that holds artifacts the orphan sweep would delete
func validateOrphanSweep(settings *Settings) error {
	guarded := [][2]string{
		{"discovery.idlist", settings.Discovery.IDList},
		{"deck.outputdir", settings.Deck.OutputDir},
		{"lockfile", settings.ResolveLockFile()},
	}
	if settings.Database.Type == DatabaseSQLite {
		guarded = append([][2]string{{"database.sqlite.path", settings.Database.SQLite.Path}}, guarded...)
	}
	for _, g := range guarded {
		key, path := g[0], g[1]
		if strings.TrimSpace(path) == "" {
			continue
		}
		inside, err := PathWithin(settings.Media.Root, path)
		if err != nil {
			return fmt.Errorf("media.root: %w", err)
		}
		if inside {
			return fmt.Errorf("media.cleanorphans would delete %s (%q) under media.root %q", key, path, settings.Media.Root)
		}
	}
	return nil
}

// PathWithin reports whether path is root itself or lies beneath it
func PathWithin(root, path string) (bool, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false, nil
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}

func validateDeckSettings(settings *Settings) error {
	d := settings.Deck
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("deck.name must be set")
	}
	if d.ID <= 0 || d.ModelID <= 0 {
		return fmt.Errorf("deck.id and deck.modelid must be positive")
	}
	if !strings.HasSuffix(d.FileName, ".apkg") {
		return fmt.Errorf("deck.filename must end in .apkg")
	}
	if d.MinFamilyNotes < 1 {
		return fmt.Errorf("deck.minfamilynotes must be at least 1")
	}
	if strings.TrimSpace(d.UnknownFamily) == "" {
		return fmt.Errorf("deck.unknownfamily must be set")
	}
	return nil
}

// validateURLTemplate checks that a template contains the {id} placeholder and parses as an absolute URL
func validateURLTemplate(key, template string) error {
	if !strings.Contains(template, idPlaceholder) {
		return fmt.Errorf("%s must contain the %s placeholder", key, idPlaceholder)
	}
	u, err := url.Parse(strings.ReplaceAll(template, idPlaceholder, "1"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s is not an absolute URL: %q", key, template)
	}
	return nil
}

// ExpandTemplate replaces the {id} placeholder of a URL template
func ExpandTemplate(template, id string) string {
	return strings.ReplaceAll(template, idPlaceholder, url.PathEscape(id))
}
