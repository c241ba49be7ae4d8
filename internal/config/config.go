package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Schema sync failure policies.
const (
	SchemaSyncWarn  = "warn"
	SchemaSyncAbort = "abort"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; defaults match a local development setup.
type Config struct {
	Env       string `envconfig:"APP_ENV" default:"development"`
	Port      string `envconfig:"PORT" default:"3000"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// DatabaseURL is a go-sql-driver DSN.  When empty it is assembled from
	// the DB_* parts below.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBUser      string `envconfig:"DB_USER" default:"root"`
	DBPass      string `envconfig:"DB_PASS"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      string `envconfig:"DB_PORT" default:"3306"`
	DBName      string `envconfig:"DB_NAME" default:"catalog"`

	SchemaSyncOnFailure string        `envconfig:"SCHEMA_SYNC_ON_FAILURE" default:"warn"`
	SchemaSyncCommand   string        `envconfig:"SCHEMA_SYNC_COMMAND"`
	SchemaSyncTimeout   time.Duration `envconfig:"SCHEMA_SYNC_TIMEOUT" default:"30s"`

	SeedOnStart     bool          `envconfig:"SEED_ON_START" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads an optional .env file and then the process environment into a
// Config.  Values already present in the environment win over .env entries.
func Load() (Config, error) {
	_ = godotenv.Load() // .env is optional

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	// APP_PORT is honoured for deployments that still set it.
	if _, ok := os.LookupEnv("PORT"); !ok {
		if p := os.Getenv("APP_PORT"); p != "" {
			cfg.Port = p
		}
	}
	cfg.SchemaSyncOnFailure = strings.ToLower(strings.TrimSpace(cfg.SchemaSyncOnFailure))
	switch cfg.SchemaSyncOnFailure {
	case SchemaSyncWarn, SchemaSyncAbort:
	default:
		return Config{}, fmt.Errorf("config: SCHEMA_SYNC_ON_FAILURE must be %q or %q, got %q",
			SchemaSyncWarn, SchemaSyncAbort, cfg.SchemaSyncOnFailure)
	}
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("config: PORT must not be empty")
	}
	return cfg, nil
}

// DSN returns the database connection string, building it from the DB_*
// parts when DATABASE_URL is unset.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	auth := c.DBUser
	if c.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", c.DBUser, c.DBPass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, c.DBHost, c.DBPort, c.DBName)
}

// AbortOnSchemaSyncFailure reports whether a failed schema sync must stop startup.
func (c Config) AbortOnSchemaSyncFailure() bool {
	return c.SchemaSyncOnFailure == SchemaSyncAbort
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
