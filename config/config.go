// Package config resolves the project settings from flags, the environment and a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ridoystarlord/relational/database"
)

// EnvPrefix namespaces every setting except DATABASE_URL.
const EnvPrefix = "RELATIONAL"

const (
	KeyDatabaseURL = "database_url"
	KeySchema      = "schema"
	KeyMigrations  = "migrations"
	KeyDialect     = "dialect"
	KeyLogLevel    = "log_level"
)

// flag name for each key
var flagNames = map[string]string{
	KeyDatabaseURL: "database-url",
	KeySchema:      "schema",
	KeyMigrations:  "migrations",
	KeyDialect:     "dialect",
	KeyLogLevel:    "log-level",
}

// Config holds the resolved settings.
type Config struct {
	DatabaseURL string
	Schema      string
	Migrations  string
	Dialect     string
	LogLevel    string

	// EnvFileLoaded reports whether the .env file existed.
	EnvFileLoaded bool
}

// Load reads envFile into the process environment (existing variables win), then
// resolves every key from flags, the environment and the defaults, in that order.
// Flags may be nil; flags that are not registered are skipped.
func Load(envFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	if envFile != "" {
		err := godotenv.Load(envFile)
		switch {
		case err == nil:
			cfg.EnvFileLoaded = true
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv(KeyDatabaseURL, "DATABASE_URL"); err != nil {
		return nil, err
	}
	v.SetDefault(KeySchema, "schema.yaml")
	v.SetDefault(KeyMigrations, "migrations")
	v.SetDefault(KeyLogLevel, "info")

	if flags != nil {
		for key, name := range flagNames {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	cfg.DatabaseURL = v.GetString(KeyDatabaseURL)
	cfg.Schema = v.GetString(KeySchema)
	cfg.Migrations = v.GetString(KeyMigrations)
	cfg.Dialect = v.GetString(KeyDialect)
	cfg.LogLevel = v.GetString(KeyLogLevel)
	return cfg, nil
}

// DialectName is the explicit dialect, else the engine of DatabaseURL, else postgres.
func (c *Config) DialectName() string {
	if c.Dialect != "" {
		return c.Dialect
	}
	if kind, _, err := database.ParseURL(c.DatabaseURL); err == nil {
		return kind
	}
	return "postgres"
}

// RequireDatabaseURL returns an error when no database is configured.
func (c *Config) RequireDatabaseURL() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL not set (in .env or environment)")
	}
	return nil
}
