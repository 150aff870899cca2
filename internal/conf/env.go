// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/logger"
)

// envPrefix is prepended to every configuration key when read from the environment,
// e.g. database.sqlite.path becomes BIRDDECK_DATABASE_SQLITE_PATH.
const envPrefix = "BIRDDECK"

// dotEnvFile is loaded from the working directory if present
const dotEnvFile = ".env"

// envBinding holds metadata for explicit environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns short aliases for settings commonly injected by deployment tooling
func getEnvBindings() []envBinding {
	return []envBinding{
		{"database.mysql.password", "BIRDDECK_DB_PASSWORD", nil},
		{"database.mysql.username", "BIRDDECK_DB_USER", nil},
		{"database.mysql.host", "BIRDDECK_DB_HOST", nil},
		{"database.type", "BIRDDECK_DB_TYPE", validateEnvDatabaseType},
		{"api.ratelimit", "BIRDDECK_RATELIMIT", validateEnvNonNegativeFloat},
		{"media.workers", "BIRDDECK_MEDIA_WORKERS", validateEnvPositiveInt},
		{"debug", "BIRDDECK_DEBUG", validateEnvBool},
	}
}

// loadDotEnv loads KEY=value pairs from path into the process environment.
// Variables already set in the environment win over the file.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.New(fmt.Errorf("error loading %s: %w", path, err)).
			Category(errors.CategoryConfiguration).
			FileContext(path, 0).
			Build()
	}
	GetLogger().Debug("loaded environment file", logger.String("path", path))
	return nil
}

// bindEnvVars enables BIRDDECK_* overrides for every key and the explicit aliases above
func bindEnvVars(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var warnings []string
	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(binding.ConfigKey, ".", "_")), binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return errors.New(fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))).
			Category(errors.CategoryConfiguration).
			Build()
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvNonNegativeFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		return fmt.Errorf("must be a non-negative number")
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch strings.ToLower(value) {
	case DatabaseSQLite, DatabaseMySQL:
		return nil
	default:
		return fmt.Errorf("must be %s or %s", DatabaseSQLite, DatabaseMySQL)
	}
}
