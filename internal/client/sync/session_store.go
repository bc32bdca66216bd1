package sync

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// UploadSession is the durable state of one chunked upload. Offset is the
// number of bytes the remote has acked; a restart resumes from there as
// long as the file's fingerprint still matches.
type UploadSession struct {
	SessionID   string `json:"sessionId"`
	Path        string `json:"path"`
	RemoteID    string `json:"remoteId,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Size        int64  `json:"size"`
	ChunkSize   int64  `json:"chunkSize"`
	Offset      int64  `json:"offset"`
}

// SessionStore keeps one JSON file per in-progress chunked upload.
type SessionStore struct {
	dir string
}

func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{dir: dir}
}

// Load returns the stored session for the path, or nil when there is
// none. A session whose fingerprint no longer matches the file is
// discarded; resuming it would splice two versions together.
func (s *SessionStore) Load(relPath string, fingerprint string) (*UploadSession, error) {
	data, err := os.ReadFile(s.sessionPath(relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var session UploadSession
	if err := json.Unmarshal(data, &session); err != nil {
		slog.Warn("discarding unreadable upload session", "path", relPath, "error", err)
		_ = os.Remove(s.sessionPath(relPath))
		return nil, nil
	}

	if session.Path != relPath || session.Fingerprint != fingerprint {
		slog.Debug("discarding stale upload session", "path", relPath)
		_ = os.Remove(s.sessionPath(relPath))
		return nil, nil
	}

	return &session, nil
}

// Save persists the session. Called after every acked chunk.
func (s *SessionStore) Save(session *UploadSession) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("ensure session dir: %w", err)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	return os.WriteFile(s.sessionPath(session.Path), data, 0o644)
}

// Remove drops the session for the path, if any.
func (s *SessionStore) Remove(relPath string) error {
	err := os.Remove(s.sessionPath(relPath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *SessionStore) sessionPath(relPath string) string {
	hash := sha1.Sum([]byte(relPath))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+".json")
}
