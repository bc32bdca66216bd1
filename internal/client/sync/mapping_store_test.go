package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMappingStore(t *testing.T, path string) *MappingStore {
	t.Helper()
	store := NewMappingStore(path)
	require.NoError(t, store.Open())
	return store
}

func TestMappingStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.json")
	store := openMappingStore(t, path)
	assert.Equal(t, 0, store.Count())

	entry := MappingEntry{
		RemoteID:    "obj-1",
		Fingerprint: "1024:1700000000000000000",
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, store.Set("docs/report.txt", entry))

	got, ok := store.Get("docs/report.txt")
	require.True(t, ok)
	assert.Equal(t, entry.RemoteID, got.RemoteID)

	// a fresh store on the same file sees the committed state
	reopened := openMappingStore(t, path)
	got, ok = reopened.Get("docs/report.txt")
	require.True(t, ok)
	assert.Equal(t, "obj-1", got.RemoteID)
	assert.Equal(t, entry.Fingerprint, got.Fingerprint)
	assert.True(t, entry.UpdatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, 1, reopened.Count())
}

func TestMappingStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.json")
	store := openMappingStore(t, path)

	require.NoError(t, store.Set("a.txt", MappingEntry{RemoteID: "obj-1"}))
	require.NoError(t, store.Delete("a.txt"))

	_, ok := store.Get("a.txt")
	assert.False(t, ok)

	// deleting an unknown path is a no-op
	require.NoError(t, store.Delete("never-seen.txt"))

	reopened := openMappingStore(t, path)
	_, ok = reopened.Get("a.txt")
	assert.False(t, ok)
}

func TestMappingStoreResetsOnCorruption(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"garbage", "{not json at all"},
		{"empty file", ""},
		{"wrong version", `{"version":99,"savedAt":"2026-01-01T00:00:00Z","entries":{}}`},
		{"missing entries", `{"version":1,"savedAt":"2026-01-01T00:00:00Z"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "mapping.json")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o600))

			store := openMappingStore(t, path)
			assert.Equal(t, 0, store.Count())

			// the broken snapshot is kept aside, not destroyed
			backups, err := filepath.Glob(path + ".*.bak")
			require.NoError(t, err)
			assert.Len(t, backups, 1)

			// the store is usable again after the reset
			require.NoError(t, store.Set("fresh.txt", MappingEntry{RemoteID: "obj-9"}))
			reopened := openMappingStore(t, path)
			_, ok := reopened.Get("fresh.txt")
			assert.True(t, ok)
		})
	}
}

func TestMappingStoreWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.json")
	store := openMappingStore(t, path)

	require.NoError(t, store.Set("a.txt", MappingEntry{RemoteID: "obj-1"}))
	require.NoError(t, store.Set("b.txt", MappingEntry{RemoteID: "obj-2"}))

	// no temp files survive a successful rewrite
	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp.*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestMappingStoreAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.json")
	store := openMappingStore(t, path)

	require.NoError(t, store.Set("a.txt", MappingEntry{RemoteID: "obj-1"}))
	require.NoError(t, store.Set("b.txt", MappingEntry{RemoteID: "obj-2"}))

	all := store.All()
	assert.Len(t, all, 2)

	// mutating the copy must not touch the store
	delete(all, "a.txt")
	_, ok := store.Get("a.txt")
	assert.True(t, ok)
}
