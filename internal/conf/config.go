// Package conf provides configuration management for birddeck. It defines the settings struct and
// functions to load and save the settings.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// APISettings contains settings for the remote species lookup service.
type APISettings struct {
	SpeciesURL   string            // lookup URL template, {id} is replaced with the species identifier
	ImageBaseURL string            // base URL for relative image paths returned by the service
	Timeout      time.Duration     // per-request timeout for record fetches
	RateLimit    float64           // requests per second shared by all workers, 0 disables pacing
	UserAgent    string            // User-Agent header sent with every request
	Headers      map[string]string // additional request headers
}

// DiscoverySettings contains settings for the identifier discovery stage.
type DiscoverySettings struct {
	Start   int           // first identifier probed (inclusive)
	End     int           // last identifier probed (inclusive)
	Workers int           // number of concurrent lookups
	Timeout time.Duration // per-lookup timeout
	IDList  string        // path of the identifier list artifact
}

// FetchSettings contains settings for the record fetch stage.
type FetchSettings struct {
	Workers int // number of concurrent record fetches
}

// SQLiteSettings contains settings for the embedded store.
type SQLiteSettings struct {
	Path        string // database file
	BusyTimeout int    // milliseconds a writer waits on a locked database
	JournalMode string // WAL unless the filesystem cannot support it
}

// MySQLSettings contains settings for the client-server store.
type MySQLSettings struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DatabaseSettings selects and configures the persistent store.
type DatabaseSettings struct {
	Type          string        // sqlite or mysql
	SlowThreshold time.Duration // statements slower than this are logged as warnings
	SQLite        SQLiteSettings
	MySQL         MySQLSettings
}

// ImageSettings contains image transcoding settings.
type ImageSettings struct {
	MaxWidth  int // bounding box width in pixels
	MaxHeight int // bounding box height in pixels
	Quality   int // JPEG quality 1-100
}

// SoundSettings contains audio download settings.
type SoundSettings struct {
	URLTemplate string // download URL template, {id} is replaced with the clip identifier
	Verify      bool   // reject payloads that contain no MP3 frame
}

// MediaSettings contains settings for the media materialization stage.
type MediaSettings struct {
	Root         string // media root directory
	Workers      int    // number of concurrent downloads
	Timeout      time.Duration
	CleanOrphans bool // remove files under Root that no reference points at
	Image        ImageSettings
	Sound        SoundSettings
}

// DeckSettings contains settings for the package assembly stage.
type DeckSettings struct {
	Name           string // deck name, family decks append " - <family>"
	ID             int64  // base deck identifier
	ModelID        int64  // note type identifier
	ModelName      string // note type name
	OutputDir      string // directory for the main package
	FileName       string // main package file name
	FamilyDir      string // per-family package directory, relative to OutputDir
	FilePrefix     string // per-family package file name prefix
	MinFamilyNotes int    // families with fewer notes get no package
	UnknownFamily  string // family name used for records without one
}

// LogFileSettings contains rotating log file settings.
type LogFileSettings struct {
	Enabled    bool
	Path       string
	Level      string
	MaxSize    int // MB before rotation
	MaxAge     int // days
	MaxBackups int
	Compress   bool
}

// LogSettings contains logging settings.
type LogSettings struct {
	Level        string
	Timezone     string
	File         LogFileSettings
	ModuleLevels map[string]string
}

// MetricsSettings contains Prometheus metrics export settings.
type MetricsSettings struct {
	TextFile string // node-exporter textfile collector output, empty disables export
}

// Settings contains all configuration options for birddeck.
type Settings struct {
	Debug     bool   // true to enable debug logging
	LockFile  string // advisory lock file guarding mutating stages
	API       APISettings
	Discovery DiscoverySettings
	Fetch     FetchSettings
	Database  DatabaseSettings
	Media     MediaSettings
	Deck      DeckSettings
	Logging   LogSettings
	Metrics   MetricsSettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the .env file, the configuration file and environment variables into Settings.
// An empty configFile searches the default config paths; a missing file there is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := loadFrom(viper.GetViper(), configFile)
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// loadFrom loads settings through the given viper instance
func loadFrom(v *viper.Viper, configFile string) (*Settings, error) {
	if err := initViper(v, configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if settings.Debug {
		settings.Logging.Level = string(logger.LogLevelDebug)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper registers defaults and environment bindings, then reads the configuration file.
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	if err := loadDotEnv(dotEnvFile); err != nil {
		return err
	}
	if err := bindEnvVars(v); err != nil {
		return err
	}

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.New(fmt.Errorf("fatal error reading config file %s: %w", configFile, err)).
				Category(errors.CategoryConfiguration).
				FileContext(configFile, 0).
				Build()
		}
		return nil
	}

	v.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Defaults and environment are sufficient to run every stage
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Debug("loaded config file", logger.String("path", v.ConfigFileUsed()))
	return nil
}

// GetDefaultConfig returns the embedded default configuration file.
func GetDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, errors.New(fmt.Errorf("error reading embedded config: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return data, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath. The file is written to a temporary file in the same
// directory and renamed into place; comments and layout of an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.FileError(fmt.Errorf("error creating config directory: %w", err), configPath, 0)
	}

	return WriteFileAtomic(configPath, yamlData, 0o644)
}

// WriteFileAtomic writes data to a temporary file next to path and renames it over path,
// so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return errors.FileError(fmt.Errorf("error creating temporary file: %w", err), path, 0)
	}
	tempFileName := tempFile.Name()
	// Removes the temporary file on any failure; a no-op after a successful rename
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return errors.FileError(fmt.Errorf("error writing to temporary file: %w", err), path, int64(len(data)))
	}
	if err := tempFile.Chmod(perm); err != nil {
		tempFile.Close()
		return errors.FileError(fmt.Errorf("error setting file mode: %w", err), path, 0)
	}
	if err := tempFile.Close(); err != nil {
		return errors.FileError(fmt.Errorf("error closing temporary file: %w", err), path, 0)
	}

	if err := os.Rename(tempFileName, path); err != nil {
		return errors.FileError(fmt.Errorf("error replacing %s: %w", path, err), path, int64(len(data)))
	}
	return nil
}

// LoggingConfig converts the log settings into the central logger configuration.
func (s *Settings) LoggingConfig() *logger.LoggingConfig {
	level := s.Logging.Level
	fileLevel := s.Logging.File.Level
	if fileLevel == "" || s.Debug {
		fileLevel = level
	}
	return &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     s.Logging.Timezone,
		Console: &logger.ConsoleOutput{
			Enabled: true,
			Level:   level,
		},
		FileOutput: &logger.FileOutput{
			Enabled:         s.Logging.File.Enabled,
			Path:            s.Logging.File.Path,
			Level:           fileLevel,
			MaxSize:         s.Logging.File.MaxSize,
			MaxAge:          s.Logging.File.MaxAge,
			MaxRotatedFiles: s.Logging.File.MaxBackups,
			Compress:        s.Logging.File.Compress,
		},
		ModuleLevels: s.Logging.ModuleLevels,
	}
}
