package sync

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/updrive/updrive/internal/db"
	"github.com/updrive/updrive/internal/utils"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS sync_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL,
    op TEXT NOT NULL,
    outcome TEXT NOT NULL,
    remote_id TEXT NOT NULL DEFAULT '',
    bytes INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    at TEXT NOT NULL -- RFC3339
);

CREATE INDEX IF NOT EXISTS idx_history_path ON sync_history(path);
CREATE INDEX IF NOT EXISTS idx_history_at ON sync_history(at);
`

// dbHistoryRow is the scan target; timestamps are stored as TEXT.
type dbHistoryRow struct {
	ID         int64  `db:"id"`
	Path       string `db:"path"`
	Op         string `db:"op"`
	Outcome    string `db:"outcome"`
	RemoteID   string `db:"remote_id"`
	Bytes      int64  `db:"bytes"`
	DurationMs int64  `db:"duration_ms"`
	Error      string `db:"error"`
	At         string `db:"at"`
}

// HistoryEntry is one terminal sync outcome.
type HistoryEntry struct {
	ID       int64
	Path     string
	Op       Op
	Outcome  Outcome
	RemoteID string
	Bytes    int64
	Duration time.Duration
	Error    string
	At       time.Time
}

// SyncHistory journals terminal outcomes in SQLite so past syncs survive
// restarts and can be listed from the CLI.
type SyncHistory struct {
	db     *sqlx.DB
	dbPath string
}

func NewSyncHistory(dbPath string) *SyncHistory {
	return &SyncHistory{
		dbPath: dbPath,
	}
}

// Open the history journal and the underlying database.
func (s *SyncHistory) Open() error {
	if s.db != nil {
		return fmt.Errorf("sync history already open")
	}

	dbDir := filepath.Dir(s.dbPath)
	if err := utils.EnsureDir(dbDir); err != nil {
		return fmt.Errorf("failed to create history directory %s: %w", dbDir, err)
	}

	database, err := db.NewSqliteDB(db.WithPath(s.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("failed to open sync history: %w", err)
	}

	if _, err := database.Exec(historySchema); err != nil {
		database.Close()
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}

	s.db = database
	return nil
}

// Close closes the underlying database connection.
func (s *SyncHistory) Close() error {
	if s.db == nil {
		return fmt.Errorf("sync history not open")
	}
	if err := s.db.Close(); err != nil {
		slog.Error("failed to close sync history database", "error", err)
		return err
	}
	s.db = nil
	slog.Debug("sync history closed")
	return nil
}

// Record appends one terminal outcome.
func (s *SyncHistory) Record(entry *HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("cannot record nil entry")
	}

	row := dbHistoryRow{
		Path:       entry.Path,
		Op:         string(entry.Op),
		Outcome:    string(entry.Outcome),
		RemoteID:   entry.RemoteID,
		Bytes:      entry.Bytes,
		DurationMs: entry.Duration.Milliseconds(),
		Error:      entry.Error,
		At:         entry.At.UTC().Format(time.RFC3339),
	}

	query := `INSERT INTO sync_history (path, op, outcome, remote_id, bytes, duration_ms, error, at)
	          VALUES (:path, :op, :outcome, :remote_id, :bytes, :duration_ms, :error, :at)`
	if _, err := s.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("failed to record history for %s: %w", entry.Path, err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (s *SyncHistory) Recent(limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []dbHistoryRow
	err := s.db.Select(&rows, `SELECT id, path, op, outcome, remote_id, bytes, duration_ms, error, at
	                           FROM sync_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	entries := make([]*HistoryEntry, 0, len(rows))
	for _, row := range rows {
		at, err := time.Parse(time.RFC3339, row.At)
		if err != nil {
			slog.Error("failed to parse history timestamp", "path", row.Path, "value", row.At, "error", err)
			continue
		}
		entries = append(entries, &HistoryEntry{
			ID:       row.ID,
			Path:     row.Path,
			Op:       Op(row.Op),
			Outcome:  Outcome(row.Outcome),
			RemoteID: row.RemoteID,
			Bytes:    row.Bytes,
			Duration: time.Duration(row.DurationMs) * time.Millisecond,
			Error:    row.Error,
			At:       at,
		})
	}
	return entries, nil
}

// Count returns the number of journaled outcomes.
func (s *SyncHistory) Count() (int, error) {
	var count int
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM sync_history"); err != nil {
		return 0, fmt.Errorf("failed to count history entries: %w", err)
	}
	return count, nil
}

// Destroy closes the journal and moves the database file aside.
func (s *SyncHistory) Destroy() error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to destroy history: %w", err)
	}

	timestamp := time.Now().Format("20060102150405")
	if err := os.Rename(s.dbPath, fmt.Sprintf("%s.%s.bak", s.dbPath, timestamp)); err != nil {
		return fmt.Errorf("failed to rename history file: %w", err)
	}
	return nil
}
