// Package db opens the daemon's SQLite databases through sqlx. The driver
// is selected at build time: pure-Go by default, mattn behind the
// sqlite3_cgo tag.
package db

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/updrive/updrive/internal/utils"
)

// defaultPragma tunes connections for a single long-running daemon:
// WAL for concurrent reads, a busy timeout instead of immediate SQLITE_BUSY.
const defaultPragma = `
PRAGMA journal_mode=WAL;
PRAGMA busy_timeout=5000;
PRAGMA foreign_keys=ON;
PRAGMA temp_store=MEMORY;
PRAGMA cache_size=8000;
PRAGMA mmap_size=268435456;
`

type config struct {
	path            string
	pragmas         string
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

// SqliteOption configures NewSqliteDB.
type SqliteOption func(*config)

// WithPath points the database at a file. ":memory:" keeps it in memory.
func WithPath(path string) SqliteOption {
	return func(c *config) { c.path = path }
}

// WithPragmas replaces the default pragma block.
func WithPragmas(pragmas string) SqliteOption {
	return func(c *config) { c.pragmas = pragmas }
}

func WithMaxOpenConns(n int) SqliteOption {
	return func(c *config) { c.maxOpenConns = n }
}

func WithMaxIdleConns(n int) SqliteOption {
	return func(c *config) { c.maxIdleConns = n }
}

func WithConnMaxLifetime(d time.Duration) SqliteOption {
	return func(c *config) { c.connMaxLifetime = d }
}

// NewSqliteDB opens a database, creating the parent directory and applying
// the pragmas. Defaults to an in-memory database.
func NewSqliteDB(opts ...SqliteOption) (*sqlx.DB, error) {
	cfg := &config{
		path:         ":memory:",
		pragmas:      defaultPragma,
		maxIdleConns: 2,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	dsn := cfg.path
	if cfg.path != ":memory:" {
		if err := utils.EnsureParent(cfg.path); err != nil {
			return nil, fmt.Errorf("ensure parent directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_txlock=immediate&mode=rwc", cfg.path)
	}

	slog.Debug("db", "driver", driverID, "path", cfg.path)
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.maxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.maxOpenConns)
	}
	if cfg.maxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.maxIdleConns)
	}
	if cfg.connMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.connMaxLifetime)
	}

	if _, err := db.Exec(cfg.pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	return db, nil
}
