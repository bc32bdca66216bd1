package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/updrive/updrive/internal/client/workspace"
	"github.com/updrive/updrive/internal/drivesdk"
	"github.com/updrive/updrive/internal/netcheck"
)

// ManagerOptions carries the sync pipeline knobs. Zero values fall back to
// the package defaults.
type ManagerOptions struct {
	RemoteFolder   string
	DebounceWindow time.Duration
	SingleShotMax  int64
	ChunkSize      int64
	ContentHash    bool
	Include        []string
}

// SyncManager owns the watch-normalize-sync pipeline for one workspace.
type SyncManager struct {
	ws      *workspace.Workspace
	remote  drivesdk.Remote
	gate    *netcheck.Gate
	filter  *PathFilter
	watcher *FileWatcher
	norm    *Normalizer
	mapping *MappingStore
	history *SyncHistory
	status  *SyncStatus
	engine  *SyncEngine

	started bool
}

func NewManager(ws *workspace.Workspace, remote drivesdk.Remote, gate *netcheck.Gate, opts ManagerOptions) (*SyncManager, error) {
	if ws == nil {
		return nil, fmt.Errorf("workspace is required")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote is required")
	}

	filter := NewPathFilter(ws.WatchDir, opts.Include)
	watcher := NewFileWatcher(ws.WatchDir)
	norm := NewNormalizer(ws.WatchDir, watcher.Events(), filter, opts.DebounceWindow)
	mapping := NewMappingStore(ws.MappingPath)
	sessions := NewSessionStore(ws.SessionsDir)
	history := NewSyncHistory(ws.HistoryPath)
	status := NewSyncStatus()
	uploader := NewUploadManager(remote, sessions, opts.SingleShotMax, opts.ChunkSize)

	engine := NewSyncEngine(SyncEngineConfig{
		Workspace:    ws,
		Remote:       remote,
		Gate:         gate,
		Mapping:      mapping,
		Uploader:     uploader,
		Fingerprint:  NewFingerprinter(opts.ContentHash),
		Status:       status,
		History:      history,
		Intents:      norm.Intents(),
		RemoteFolder: opts.RemoteFolder,
	})

	return &SyncManager{
		ws:      ws,
		remote:  remote,
		gate:    gate,
		filter:  filter,
		watcher: watcher,
		norm:    norm,
		mapping: mapping,
		history: history,
		status:  status,
		engine:  engine,
	}, nil
}

// Start opens the durable stores and brings the pipeline up back to front,
// so every stage has a running consumer before events begin to flow.
func (m *SyncManager) Start(ctx context.Context) error {
	slog.Info("sync manager start")

	if err := m.mapping.Open(); err != nil {
		return fmt.Errorf("failed to open mapping store: %w", err)
	}
	if err := m.history.Open(); err != nil {
		return fmt.Errorf("failed to open sync history: %w", err)
	}

	m.engine.Start(ctx)
	if err := m.norm.Start(ctx); err != nil {
		m.engine.Stop()
		return fmt.Errorf("failed to start normalizer: %w", err)
	}
	if err := m.watcher.Start(ctx); err != nil {
		m.norm.Stop()
		m.engine.Stop()
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	m.started = true
	return nil
}

// Stop tears the pipeline down front to back and closes the stores.
func (m *SyncManager) Stop() error {
	slog.Info("sync manager stop")

	if m.started {
		m.watcher.Stop()
		m.norm.Stop()
		m.engine.Stop()
		m.started = false
	}

	if err := m.history.Close(); err != nil {
		return fmt.Errorf("failed to close sync history: %w", err)
	}
	return nil
}

// Status exposes per-path sync states for the control surface.
func (m *SyncManager) Status() *SyncStatus {
	return m.status
}

// History exposes the journal of terminal outcomes.
func (m *SyncManager) History() *SyncHistory {
	return m.history
}
