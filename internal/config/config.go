// Package config provides application configuration loaded from environment
// variables and the persisted conf.json file, with defaults and validation.
// It centralizes the transport credential, the default destination chat,
// log settings, and the networked-store connection parameters.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tbourn/go-notify-bot/internal/sysutil"
)

// PostgresConfig holds connection parameters for the networked store
// backend. Each field reads a lowercase variable with a PG*-family fallback.
type PostgresConfig struct {
	User     string // user | PGUSER
	Password string // password | PGPASSWORD
	Host     string // host | PGHOST
	Port     string // port | PGPORT (default 5432)
	DBName   string // dbname | PGDATABASE
}

// Config holds all settings for one notifier invocation.
type Config struct {
	// Transport
	BotToken string // BOT_TOKEN (required)
	ChatID   string // CHAT_ID (required): default destination chat

	// Logging
	LogLevel string // LOG_LEVEL: debug|info|warn|error|fatal|panic

	// Persisted configuration (conf.json)
	LogPath     string // LOG_PATH: directory for per-run stdout/stderr logs
	AlivePeriod int    // ALIVE_PERIOD: seconds to stay responsive after the run

	// LegacyStoragePath is the pre-database JSON-history path. Recognized so
	// old conf.json files still parse; callers should warn and ignore it.
	LegacyStoragePath string

	// Networked store backend
	Postgres PostgresConfig
}

// confFile mirrors the recognized conf.json keys. ALIVE_PERIOD appears in
// the wild both as a number and as a quoted string.
type confFile struct {
	LogPath     string      `json:"LOG_PATH"`
	AlivePeriod json.Number `json:"ALIVE_PERIOD"`
	StoragePath string      `json:"STORAGE_PATH"`
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad(confPath string) Config {
	cfg, err := Load(confPath)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from the environment and conf.json, applies
// defaults, and validates the result. A missing conf.json is not an error;
// a malformed one is.
func Load(confPath string) (Config, error) {
	cfg := Config{
		BotToken: os.Getenv("BOT_TOKEN"),
		ChatID:   os.Getenv("CHAT_ID"),
		LogLevel: strings.ToLower(getenv("LOG_LEVEL", "info")),

		LogPath:     "logs",
		AlivePeriod: 30,

		Postgres: PostgresConfig{
			User:     sysutil.FirstNonEmpty(os.Getenv("user"), os.Getenv("PGUSER")),
			Password: sysutil.FirstNonEmpty(os.Getenv("password"), os.Getenv("PGPASSWORD")),
			Host:     sysutil.FirstNonEmpty(os.Getenv("host"), os.Getenv("PGHOST")),
			Port:     sysutil.FirstNonEmpty(os.Getenv("port"), os.Getenv("PGPORT"), "5432"),
			DBName:   sysutil.FirstNonEmpty(os.Getenv("dbname"), os.Getenv("PGDATABASE")),
		},
	}

	if confPath != "" {
		if err := cfg.applyConfFile(confPath); err != nil {
			return cfg, err
		}
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	if strings.TrimSpace(cfg.BotToken) == "" {
		return cfg, errors.New("BOT_TOKEN must not be empty")
	}
	if strings.TrimSpace(cfg.ChatID) == "" {
		return cfg, errors.New("CHAT_ID must not be empty")
	}
	if _, err := strconv.ParseInt(strings.TrimSpace(cfg.ChatID), 10, 64); err != nil {
		return cfg, fmt.Errorf("CHAT_ID must be a numeric chat identifier: %w", err)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if cfg.AlivePeriod < 0 {
		return cfg, errors.New("ALIVE_PERIOD must be >= 0")
	}

	return cfg, nil
}

// ValidatePostgres checks that every networked-backend parameter is set.
// Only called when the postgres backend is actually selected.
func (c Config) ValidatePostgres() error {
	p := c.Postgres
	if p.User == "" || p.Password == "" || p.Host == "" || p.DBName == "" {
		return errors.New("missing required PostgreSQL connection parameters (user, password, host, dbname)")
	}
	return nil
}

func (c *Config) applyConfFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	var f confFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if f.LogPath != "" {
		c.LogPath = f.LogPath
	}
	if f.AlivePeriod != "" {
		n, err := strconv.Atoi(strings.Trim(f.AlivePeriod.String(), `"`))
		if err != nil {
			return fmt.Errorf("parse %s: ALIVE_PERIOD: %w", path, err)
		}
		c.AlivePeriod = n
	}
	c.LegacyStoragePath = f.StoragePath
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}
