/*
Package config loads runtime settings for the server and the CLI.

SOURCES (later wins):
  1. Built-in defaults
  2. Optional YAML config file (--config or LANDBANK_CONFIG)
  3. .env file in the working directory, loaded into the process env
  4. LANDBANK_* environment variables
  5. Command-line flags bound by the caller

KEYS:
  port                 HTTP listen port
  store                sqlite | postgres | memory
  sqlite_path          SQLite database file
  database_url         Postgres DSN (store=postgres)
  dev                  text logs at debug level, demo scenarios enabled
  scheduler_enabled    run the due-now snapshot scheduler
  scheduler_interval   interval between snapshots (Go duration)
  allowed_origins      CORS origins
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable.
const EnvPrefix = "LANDBANK"

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the resolved configuration.
type Config struct {
	Port              int
	Store             string
	SQLitePath        string
	DatabaseURL       string
	Dev               bool
	SchedulerEnabled  bool
	SchedulerInterval time.Duration
	AllowedOrigins    []string
}

// New returns a viper instance with defaults and env binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("port", 8080)
	v.SetDefault("store", StoreSQLite)
	v.SetDefault("sqlite_path", "./data/landbank.db")
	v.SetDefault("database_url", "")
	v.SetDefault("dev", false)
	v.SetDefault("scheduler_enabled", false)
	v.SetDefault("scheduler_interval", "1h")
	v.SetDefault("allowed_origins", []string{"*"})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the optional config file and resolves v into a Config.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := Config{
		Port:              v.GetInt("port"),
		Store:             strings.ToLower(v.GetString("store")),
		SQLitePath:        v.GetString("sqlite_path"),
		DatabaseURL:       v.GetString("database_url"),
		Dev:               v.GetBool("dev"),
		SchedulerEnabled:  v.GetBool("scheduler_enabled"),
		SchedulerInterval: v.GetDuration("scheduler_interval"),
		AllowedOrigins:    splitList(v.GetStringSlice("allowed_origins")),
	}
	return cfg, cfg.Validate()
}

// Validate checks the resolved values.
func (c Config) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite_path is required for store=sqlite")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required for store=postgres")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want sqlite, postgres or memory)", c.Store)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.SchedulerEnabled && c.SchedulerInterval <= 0 {
		return errors.New("scheduler_interval must be positive")
	}
	return nil
}

// Addr is the listen address for net/http.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
