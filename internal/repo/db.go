// Package repo implements the data persistence layer for notification
// history, backed by GORM. This file contains database bootstrapping for the
// two interchangeable backends: embedded SQLite (pure Go driver) and
// networked PostgreSQL. Callers select a backend explicitly through Options;
// beyond construction they cannot observe which backend is active.
package repo

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-notify-bot/internal/domain"
)

// Backend selects the storage engine at construction time.
type Backend int

const (
	// BackendSQLite is the embedded file-backed engine (default).
	BackendSQLite Backend = iota
	// BackendPostgres is the networked engine configured from PostgresConfig.
	BackendPostgres
)

// PostgresConfig carries connection parameters for the networked backend.
type PostgresConfig struct {
	User     string
	Password string
	Host     string
	Port     string // defaults to "5432" when empty
	DBName   string
}

// DSN renders the config as a postgres connection URL with a bounded
// connection-establishment timeout.
func (c PostgresConfig) DSN() string {
	port := c.Port
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=require&connect_timeout=10",
	}
	return u.String()
}

// Options selects and configures a backend.
type Options struct {
	Backend    Backend
	SQLitePath string // BackendSQLite: database file path
	Postgres   PostgresConfig
}

// Open opens the selected backend and applies schema migrations.
func Open(opts Options) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch opts.Backend {
	case BackendPostgres:
		db, err = openPostgres(opts.Postgres)
	default:
		db, err = OpenSQLite(opts.SQLitePath)
	}
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		path = "notifications.db"
	}
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

func openPostgres(cfg PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// AutoMigrate creates the notifications schema if absent.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Notification{})
}
