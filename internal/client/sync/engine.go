package sync

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/updrive/updrive/internal/client/workspace"
	"github.com/updrive/updrive/internal/drivesdk"
	"github.com/updrive/updrive/internal/netcheck"
)

// SyncEngine drains normalized intents one at a time and drives each to a
// terminal outcome. Failures never escape the loop; an intent that cannot be
// completed is abandoned and the engine moves on to the next one.
type SyncEngine struct {
	ws       *workspace.Workspace
	remote   drivesdk.Remote
	gate     *netcheck.Gate
	mapping  *MappingStore
	uploader *UploadManager
	fp       *Fingerprinter
	status   *SyncStatus
	history  *SyncHistory
	intents  <-chan Intent

	remoteFolder string
	folderID     string

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type SyncEngineConfig struct {
	Workspace    *workspace.Workspace
	Remote       drivesdk.Remote
	Gate         *netcheck.Gate
	Mapping      *MappingStore
	Uploader     *UploadManager
	Fingerprint  *Fingerprinter
	Status       *SyncStatus
	History      *SyncHistory // optional
	Intents      <-chan Intent
	RemoteFolder string
}

func NewSyncEngine(cfg SyncEngineConfig) *SyncEngine {
	return &SyncEngine{
		ws:           cfg.Workspace,
		remote:       cfg.Remote,
		gate:         cfg.Gate,
		mapping:      cfg.Mapping,
		uploader:     cfg.Uploader,
		fp:           cfg.Fingerprint,
		status:       cfg.Status,
		history:      cfg.History,
		intents:      cfg.Intents,
		remoteFolder: cfg.RemoteFolder,
		folderID:     cfg.Workspace.LoadFolderID(),
		done:         make(chan struct{}),
	}
}

// Start launches the worker. Intents are processed strictly one at a time so
// per-path operations never race with each other.
func (e *SyncEngine) Start(ctx context.Context) {
	e.wg.Add(1)
	go e.run(ctx)
	slog.Info("sync engine started", "remoteFolder", e.remoteFolder)
}

func (e *SyncEngine) Stop() {
	e.stopOnce.Do(func() {
		close(e.done)
		e.wg.Wait()
		slog.Info("sync engine stopped")
	})
}

func (e *SyncEngine) run(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case intent, ok := <-e.intents:
			if !ok {
				return
			}
			e.process(ctx, intent)
		}
	}
}

// process drives one intent to a terminal outcome.
func (e *SyncEngine) process(ctx context.Context, intent Intent) {
	e.status.SetPending(intent.Path)

	start := time.Now()
	var (
		outcome  Outcome
		bytes    int64
		remoteID string
		err      error
	)

	switch intent.Op {
	case OpCreate, OpModify:
		outcome, bytes, remoteID, err = e.processUpsert(ctx, intent)
	case OpDelete:
		outcome, remoteID, err = e.processDelete(ctx, intent)
	default:
		slog.Error("unknown sync op", "op", intent.Op, "path", intent.Path)
		return
	}

	elapsed := time.Since(start)
	e.status.SetDone(intent.Path, outcome, err)

	switch outcome {
	case OutcomeCommitted:
		slog.Info("sync committed", "op", intent.Op, "path", intent.Path, "took", elapsed)
	case OutcomeSkipped:
		slog.Debug("sync skipped", "op", intent.Op, "path", intent.Path)
	case OutcomeOffline:
		slog.Warn("remote unreachable, intent dropped", "op", intent.Op, "path", intent.Path, "probe", e.gate.Addr())
	case OutcomeAbandoned:
		slog.Error("sync abandoned", "op", intent.Op, "path", intent.Path, "took", elapsed, "error", err)
	}

	if e.history != nil {
		entry := &HistoryEntry{
			Path:     intent.Path,
			Op:       intent.Op,
			Outcome:  outcome,
			RemoteID: remoteID,
			Bytes:    bytes,
			Duration: elapsed,
			At:       time.Now(),
		}
		if err != nil {
			entry.Error = err.Error()
		}
		if herr := e.history.Record(entry); herr != nil {
			slog.Error("failed to record sync history", "path", intent.Path, "error", herr)
		}
	}
}

// processUpsert pushes a created or modified file to the remote.
func (e *SyncEngine) processUpsert(ctx context.Context, intent Intent) (Outcome, int64, string, error) {
	absPath := e.ws.AbsPath(intent.Path)

	fingerprint, err := e.fp.File(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Deleted or renamed away since the intent was coalesced. A
			// matching delete intent follows if the watcher saw the removal.
			slog.Debug("file gone before upload", "path", intent.Path)
			return OutcomeSkipped, 0, "", nil
		}
		return OutcomeAbandoned, 0, "", err
	}

	entry, mapped := e.mapping.Get(intent.Path)
	if mapped && entry.Fingerprint == fingerprint {
		// Content unchanged since the last committed sync. No remote calls.
		return OutcomeSkipped, 0, entry.RemoteID, nil
	}

	if !e.gate.Reachable(ctx) {
		return OutcomeOffline, 0, "", nil
	}

	folderID, err := e.ensureFolder(ctx)
	if err != nil {
		return OutcomeAbandoned, 0, "", err
	}

	e.status.SetInFlight(intent.Path)

	req := &UploadRequest{
		AbsPath:     absPath,
		RelPath:     intent.Path,
		FolderID:    folderID,
		Fingerprint: fingerprint,
	}
	if mapped {
		req.RemoteID = entry.RemoteID
	}

	info, err := e.uploader.Upload(ctx, req)
	if err != nil {
		if !mapped && errors.Is(err, drivesdk.ErrObjectNotFound) {
			// The cached folder id no longer resolves remotely. Forget it so
			// the next intent resolves the folder again.
			e.folderID = ""
		}
		return OutcomeAbandoned, 0, "", err
	}

	if err := e.mapping.Set(intent.Path, MappingEntry{
		RemoteID:    info.ID,
		Fingerprint: fingerprint,
		UpdatedAt:   time.Now(),
	}); err != nil {
		// The upload landed but the mapping did not. Report the failure; the
		// next intent for this path re-uploads and repairs the mapping.
		return OutcomeAbandoned, info.Size, info.ID, err
	}

	return OutcomeCommitted, info.Size, info.ID, nil
}

// processDelete removes the remote object mapped to a vanished local path.
func (e *SyncEngine) processDelete(ctx context.Context, intent Intent) (Outcome, string, error) {
	entry, mapped := e.mapping.Get(intent.Path)
	if !mapped {
		// Never uploaded, nothing to delete remotely.
		return OutcomeSkipped, "", nil
	}

	if !e.gate.Reachable(ctx) {
		return OutcomeOffline, "", nil
	}

	e.status.SetInFlight(intent.Path)

	if err := e.remote.DeleteObject(ctx, entry.RemoteID); err != nil {
		if !errors.Is(err, drivesdk.ErrObjectNotFound) {
			// Keep the mapping so a later delete intent can retry.
			return OutcomeAbandoned, entry.RemoteID, err
		}
		slog.Debug("remote object already gone", "path", intent.Path, "remoteId", entry.RemoteID)
	}

	if err := e.mapping.Delete(intent.Path); err != nil {
		return OutcomeAbandoned, entry.RemoteID, err
	}

	return OutcomeCommitted, entry.RemoteID, nil
}

// ensureFolder resolves the remote folder id once and caches it in memory and
// on disk. Subsequent intents reuse the cached id.
func (e *SyncEngine) ensureFolder(ctx context.Context) (string, error) {
	if e.folderID != "" {
		return e.folderID, nil
	}

	folderID, err := e.remote.EnsureFolder(ctx, e.remoteFolder)
	if err != nil {
		return "", err
	}

	e.folderID = folderID
	if err := e.ws.SaveFolderID(folderID); err != nil {
		// Cache miss on next start costs one extra folder lookup.
		slog.Warn("failed to cache folder id", "error", err)
	}
	slog.Info("sync folder resolved", "name", e.remoteFolder, "folderId", folderID)
	return e.folderID, nil
}
