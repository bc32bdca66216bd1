package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWindow = 50 * time.Millisecond

func startNormalizer(t *testing.T, watchDir string, include []string) (chan RawEvent, <-chan Intent) {
	t.Helper()
	raw := make(chan RawEvent, 64)
	norm := NewNormalizer(watchDir, raw, NewPathFilter(watchDir, include), testWindow)
	require.NoError(t, norm.Start(context.Background()))
	t.Cleanup(norm.Stop)
	return raw, norm.Intents()
}

func sendRaw(dir string, raw chan<- RawEvent, rel string, op RawOp) {
	raw <- RawEvent{Path: filepath.Join(dir, rel), Op: op, At: time.Now()}
}

func recvIntent(t *testing.T, intents <-chan Intent) Intent {
	t.Helper()
	select {
	case intent, ok := <-intents:
		require.True(t, ok, "intent channel closed")
		return intent
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for intent")
		return Intent{}
	}
}

func assertNoIntent(t *testing.T, intents <-chan Intent) {
	t.Helper()
	select {
	case intent := <-intents:
		t.Fatalf("unexpected intent %s %s", intent.Op, intent.Path)
	case <-time.After(4 * testWindow):
	}
}

func TestNormalizerCoalescing(t *testing.T) {
	t.Run("write becomes modify", func(t *testing.T) {
		dir := t.TempDir()
		raw, intents := startNormalizer(t, dir, nil)

		sendRaw(dir, raw, "a.txt", RawWrite)

		intent := recvIntent(t, intents)
		assert.Equal(t, OpModify, intent.Op)
		assert.Equal(t, "a.txt", intent.Path)
	})

	t.Run("create absorbs writes", func(t *testing.T) {
		dir := t.TempDir()
		raw, intents := startNormalizer(t, dir, nil)

		sendRaw(dir, raw, "b.txt", RawCreate)
		sendRaw(dir, raw, "b.txt", RawWrite)
		sendRaw(dir, raw, "b.txt", RawWrite)

		intent := recvIntent(t, intents)
		assert.Equal(t, OpCreate, intent.Op)
		assert.Equal(t, "b.txt", intent.Path)
		assertNoIntent(t, intents)
	})

	t.Run("remove wins the window", func(t *testing.T) {
		dir := t.TempDir()
		raw, intents := startNormalizer(t, dir, nil)

		sendRaw(dir, raw, "c.txt", RawCreate)
		sendRaw(dir, raw, "c.txt", RawWrite)
		sendRaw(dir, raw, "c.txt", RawRemove)

		intent := recvIntent(t, intents)
		assert.Equal(t, OpDelete, intent.Op)
		assert.Equal(t, "c.txt", intent.Path)
	})

	t.Run("remove then recreate still deletes", func(t *testing.T) {
		dir := t.TempDir()
		raw, intents := startNormalizer(t, dir, nil)

		sendRaw(dir, raw, "d.txt", RawRemove)
		sendRaw(dir, raw, "d.txt", RawCreate)

		intent := recvIntent(t, intents)
		assert.Equal(t, OpDelete, intent.Op)
	})

	t.Run("quiet gap splits runs", func(t *testing.T) {
		dir := t.TempDir()
		raw, intents := startNormalizer(t, dir, nil)

		sendRaw(dir, raw, "e.txt", RawWrite)
		first := recvIntent(t, intents)
		assert.Equal(t, OpModify, first.Op)

		sendRaw(dir, raw, "e.txt", RawCreate)
		second := recvIntent(t, intents)
		assert.Equal(t, OpCreate, second.Op)
	})
}

func TestNormalizerDropsHiddenPaths(t *testing.T) {
	dir := t.TempDir()
	raw, intents := startNormalizer(t, dir, nil)

	sendRaw(dir, raw, ".secret/key.txt", RawWrite)
	sendRaw(dir, raw, "docs/.draft.txt", RawWrite)
	sendRaw(dir, raw, "visible.txt", RawWrite)

	intent := recvIntent(t, intents)
	assert.Equal(t, "visible.txt", intent.Path)
	assertNoIntent(t, intents)
}

func TestNormalizerDropsIgnoredPaths(t *testing.T) {
	dir := t.TempDir()
	raw, intents := startNormalizer(t, dir, nil)

	sendRaw(dir, raw, "report.tmp", RawWrite)
	sendRaw(dir, raw, "~$report.docx", RawWrite)
	sendRaw(dir, raw, "kept.txt", RawWrite)

	intent := recvIntent(t, intents)
	assert.Equal(t, "kept.txt", intent.Path)
	assertNoIntent(t, intents)
}

func TestNormalizerSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	raw, intents := startNormalizer(t, dir, nil)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	sendRaw(dir, raw, "sub", RawCreate)

	assertNoIntent(t, intents)
}

func TestNormalizerSkipsOutsidePaths(t *testing.T) {
	dir := t.TempDir()
	raw, intents := startNormalizer(t, dir, nil)

	raw <- RawEvent{Path: filepath.Join(t.TempDir(), "other.txt"), Op: RawWrite, At: time.Now()}

	assertNoIntent(t, intents)
}

func TestNormalizerIncludeGlobs(t *testing.T) {
	dir := t.TempDir()
	raw, intents := startNormalizer(t, dir, []string{"**/*.md"})

	sendRaw(dir, raw, "data.bin", RawWrite)
	sendRaw(dir, raw, "notes.md", RawWrite)
	sendRaw(dir, raw, "docs/guide.md", RawWrite)

	got := map[string]Op{}
	for i := 0; i < 2; i++ {
		intent := recvIntent(t, intents)
		got[intent.Path] = intent.Op
	}
	assert.Contains(t, got, "notes.md")
	assert.Contains(t, got, "docs/guide.md")
	assertNoIntent(t, intents)
}

func TestNormalizerDeliversEveryPath(t *testing.T) {
	dir := t.TempDir()
	raw, intents := startNormalizer(t, dir, nil)

	// more paths than the intent buffer holds, nothing may be dropped
	const total = 40
	for i := 0; i < total; i++ {
		sendRaw(dir, raw, fmt.Sprintf("file-%02d.txt", i), RawWrite)
	}

	got := map[string]bool{}
	for i := 0; i < total; i++ {
		intent := recvIntent(t, intents)
		assert.Equal(t, OpModify, intent.Op)
		got[intent.Path] = true
	}
	assert.Len(t, got, total)
}
