package sync

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const mappingSnapshotVersion = 1

// MappingEntry records what the remote holds for one local path.
type MappingEntry struct {
	RemoteID    string    `json:"remoteId"`
	Fingerprint string    `json:"fingerprint"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type mappingSnapshot struct {
	Version int                     `json:"version"`
	SavedAt time.Time               `json:"savedAt"`
	Entries map[string]MappingEntry `json:"entries"`
}

// MappingStore is the durable local path to remote object mapping. The
// whole map persists as one JSON snapshot; every mutation rewrites it
// atomically, so the file on disk always reflects the last committed
// sync state.
type MappingStore struct {
	path    string
	mu      sync.RWMutex
	entries map[string]MappingEntry
}

func NewMappingStore(path string) *MappingStore {
	return &MappingStore{
		path:    path,
		entries: make(map[string]MappingEntry),
	}
}

// Open loads the snapshot. A missing file starts empty. A snapshot that
// cannot be parsed is moved aside and the store starts empty; resyncing
// is always safe because uploads are keyed by path on the remote side.
func (m *MappingStore) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.entries = make(map[string]MappingEntry)
			return nil
		}
		return fmt.Errorf("read mapping snapshot: %w", err)
	}

	var snapshot mappingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return m.resetLocked(fmt.Sprintf("parse error: %v", err))
	}
	if snapshot.Version != mappingSnapshotVersion || snapshot.Entries == nil {
		return m.resetLocked(fmt.Sprintf("unusable snapshot version %d", snapshot.Version))
	}

	m.entries = snapshot.Entries
	slog.Debug("mapping store loaded", "path", m.path, "entries", len(m.entries))
	return nil
}

// resetLocked moves the broken snapshot to a timestamped .bak and starts
// over with an empty map.
func (m *MappingStore) resetLocked(reason string) error {
	backup := fmt.Sprintf("%s.%s.bak", m.path, time.Now().Format("20060102150405"))
	if err := os.Rename(m.path, backup); err != nil {
		return fmt.Errorf("move broken mapping snapshot: %w", err)
	}

	m.entries = make(map[string]MappingEntry)
	slog.Warn("mapping snapshot unusable, starting empty", "reason", reason, "backup", backup)
	return nil
}

func (m *MappingStore) Get(path string) (MappingEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[path]
	return entry, ok
}

// Set records the mapping for a path and persists the snapshot.
func (m *MappingStore) Set(path string, entry MappingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[path] = entry
	return m.saveLocked()
}

// Delete removes the mapping for a path and persists the snapshot.
// Deleting an unknown path is a no-op.
func (m *MappingStore) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[path]; !ok {
		return nil
	}
	delete(m.entries, path)
	return m.saveLocked()
}

// All returns a copy of the mapping.
func (m *MappingStore) All() map[string]MappingEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make(map[string]MappingEntry, len(m.entries))
	for path, entry := range m.entries {
		entries[path] = entry
	}
	return entries
}

func (m *MappingStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MappingStore) Path() string {
	return m.path
}

func (m *MappingStore) saveLocked() error {
	snapshot := mappingSnapshot{
		Version: mappingSnapshotVersion,
		SavedAt: time.Now().UTC(),
		Entries: m.entries,
	}

	data, err := json.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("encode mapping snapshot: %w", err)
	}

	if err := writeFileAtomic(m.path, data, 0o600); err != nil {
		return fmt.Errorf("write mapping snapshot: %w", err)
	}
	return nil
}
