package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	json "github.com/goccy/go-json"
	"github.com/updrive/updrive/internal/drivesdk"
	"github.com/updrive/updrive/internal/utils"
)

var (
	home, _            = os.UserHomeDir()
	DefaultStateDir    = filepath.Join(home, ".updrive")
	DefaultConfigPath  = filepath.Join(DefaultStateDir, "config.json")
	DefaultWatchDir    = filepath.Join(home, "UpDrive")
	DefaultServerURL   = "https://api.updrive.io"
	DefaultLogFilePath = filepath.Join(DefaultStateDir, "logs", "updrive.log")
)

const DefaultRemoteFolder = "UpDrive"

// s3 multipart parts except the last must be at least 5 MiB
const s3MinChunkSize = 5 * 1024 * 1024

// SyncOptions tunes the sync pipeline. Zero values mean the consuming
// component applies its built-in default.
type SyncOptions struct {
	DebounceMs     int    `json:"debounce_ms,omitempty"`
	ProbeAddr      string `json:"probe_addr,omitempty"`
	ProbeTimeoutMs int    `json:"probe_timeout_ms,omitempty"`
	// files larger than this upload chunked instead of single-shot
	SingleShotMax int64 `json:"single_shot_max,omitempty"`
	ChunkSize     int64 `json:"chunk_size,omitempty"`
	// md5 fingerprints instead of size+mtime
	ContentHash bool `json:"content_hash,omitempty"`
	// sync only paths matching these globs; empty means everything
	Include []string `json:"include,omitempty"`
}

func (s *SyncOptions) DebounceWindow() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

func (s *SyncOptions) ProbeTimeout() time.Duration {
	return time.Duration(s.ProbeTimeoutMs) * time.Millisecond
}

type Config struct {
	WatchDir     string             `json:"watch_dir"`
	RemoteFolder string             `json:"remote_folder"`
	ServerURL    string             `json:"server_url"`
	Token        string             `json:"token,omitempty"`
	Backend      string             `json:"backend,omitempty"`
	S3           *drivesdk.S3Config `json:"s3,omitempty"`
	Sync         SyncOptions        `json:"sync"`
	Path         string             `json:"-"`
}

// StateDir is where the daemon keeps its own files (mapping snapshot,
// sessions, history, logs, lock). It is the directory holding the config.
func (c *Config) StateDir() string {
	return filepath.Dir(c.Path)
}

// Validate applies defaults, normalizes paths and rejects configs the
// daemon cannot run with.
func (c *Config) Validate() error {
	if c.Path == "" {
		c.Path = DefaultConfigPath
	}
	path, err := utils.ResolvePath(c.Path)
	if err != nil {
		return fmt.Errorf("config path: %w", err)
	}
	c.Path = path

	if c.WatchDir == "" {
		c.WatchDir = DefaultWatchDir
	}
	watchDir, err := utils.ResolvePath(c.WatchDir)
	if err != nil {
		return fmt.Errorf("watch dir: %w", err)
	}
	c.WatchDir = watchDir

	if !utils.DirExists(c.WatchDir) {
		return fmt.Errorf("watch dir %q does not exist or is not a directory", c.WatchDir)
	}
	if isWithin(c.WatchDir, c.StateDir()) {
		return fmt.Errorf("watch dir %q must not contain the state dir %q", c.WatchDir, c.StateDir())
	}
	if isWithin(c.StateDir(), c.WatchDir) {
		return fmt.Errorf("watch dir %q must not be inside the state dir %q", c.WatchDir, c.StateDir())
	}

	c.RemoteFolder = strings.Trim(strings.TrimSpace(c.RemoteFolder), "/")
	if c.RemoteFolder == "" {
		c.RemoteFolder = DefaultRemoteFolder
	}

	switch c.Backend {
	case "", drivesdk.BackendAPI:
		if c.ServerURL == "" {
			c.ServerURL = DefaultServerURL
		}
		if err := utils.ValidateURL(c.ServerURL); err != nil {
			return fmt.Errorf("server url: %w", err)
		}
	case drivesdk.BackendS3:
		if c.S3 == nil || c.S3.Bucket == "" {
			return fmt.Errorf("s3 backend needs a bucket")
		}
		if c.S3.Region == "" && c.S3.Endpoint == "" {
			return fmt.Errorf("s3 backend needs a region or an endpoint")
		}
		if c.Sync.ChunkSize != 0 && c.Sync.ChunkSize < s3MinChunkSize {
			return fmt.Errorf("s3 chunk size must be at least %d bytes", int64(s3MinChunkSize))
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.Sync.DebounceMs < 0 || c.Sync.ProbeTimeoutMs < 0 ||
		c.Sync.SingleShotMax < 0 || c.Sync.ChunkSize < 0 {
		return fmt.Errorf("sync options must not be negative")
	}
	for _, pattern := range c.Sync.Include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid include pattern %q", pattern)
		}
	}

	return nil
}

// Save writes the config to its Path.
func (c *Config) Save() error {
	if c.Path == "" {
		return fmt.Errorf("config path not set")
	}
	if err := utils.EnsureParent(c.Path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// holds the auth token, keep it private
	return os.WriteFile(c.Path, data, 0o600)
}

func LoadFromFile(path string) (*Config, error) {
	resolved, err := utils.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", resolved, err)
	}

	cfg.Path = resolved
	return &cfg, nil
}

// isWithin reports whether child is parent itself or a path under it.
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
