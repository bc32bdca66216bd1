package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/updrive/updrive/internal/utils"
)

const (
	logsDir      = "logs"
	sessionsDir  = "sessions"
	lockFile     = "updrive.lock"
	mappingFile  = "mapping.json"
	historyFile  = "history.db"
	folderIDFile = "folder_id.txt"
)

var (
	ErrWorkspaceLocked = errors.New("state dir locked by another updrive process")
)

// Workspace ties together the watched directory and the daemon's state dir.
// All daemon-owned files live under StateDir, never inside WatchDir.
type Workspace struct {
	WatchDir    string
	StateDir    string
	LogsDir     string
	SessionsDir string
	MappingPath string
	HistoryPath string

	flock *flock.Flock
}

func NewWorkspace(watchDir string, stateDir string) (*Workspace, error) {
	watch, err := utils.ResolvePath(watchDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", watchDir, err)
	}
	state, err := utils.ResolvePath(stateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", stateDir, err)
	}

	return &Workspace{
		WatchDir:    watch,
		StateDir:    state,
		LogsDir:     filepath.Join(state, logsDir),
		SessionsDir: filepath.Join(state, sessionsDir),
		MappingPath: filepath.Join(state, mappingFile),
		HistoryPath: filepath.Join(state, historyFile),
		flock:       flock.New(filepath.Join(state, lockFile)),
	}, nil
}

func (w *Workspace) Lock() error {
	// the lock file lives in the state dir so that a second daemon on the
	// same config refuses to start
	if err := utils.EnsureDir(w.StateDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.StateDir, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock state dir: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

func (w *Workspace) Unlock() error {
	// if this process hasn't locked the state dir, don't delete the lock file
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock state dir: %w", err)
	}

	return os.Remove(w.flock.Path())
}

// Setup locks the state dir and creates the layout the daemon expects.
// The watch dir itself is not created here; config validation requires it
// to exist already.
func (w *Workspace) Setup() error {
	if err := w.Lock(); err != nil {
		return err
	}

	slog.Info("workspace", "watch", w.WatchDir, "state", w.StateDir)

	dirs := []string{w.LogsDir, w.SessionsDir}
	for _, dir := range dirs {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// AbsPath returns the absolute path of a watched file given its rel path.
func (w *Workspace) AbsPath(relPath string) string {
	return filepath.Join(w.WatchDir, relPath)
}

// RelPath returns the normalized path of a watched file relative to the
// watch dir.
func (w *Workspace) RelPath(absPath string) (string, error) {
	relPath, err := filepath.Rel(w.WatchDir, absPath)
	if err != nil {
		return "", err
	}
	return NormPath(relPath), nil
}

// Contains reports whether absPath lies inside the watch dir.
func (w *Workspace) Contains(absPath string) bool {
	rel, err := filepath.Rel(w.WatchDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// LoadFolderID reads the cached remote folder id. Missing or unreadable
// cache returns an empty id; the engine resolves and re-saves it.
func (w *Workspace) LoadFolderID() string {
	data, err := os.ReadFile(filepath.Join(w.StateDir, folderIDFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SaveFolderID caches the resolved remote folder id in the state dir.
func (w *Workspace) SaveFolderID(id string) error {
	return os.WriteFile(filepath.Join(w.StateDir, folderIDFile), []byte(id+"\n"), 0o644)
}

// NormPath cleans a path, replaces backslashes with slashes and trims
// leading slashes.
func NormPath(path string) string {
	path = filepath.Clean(path)
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimLeft(path, "/")
	return path
}
