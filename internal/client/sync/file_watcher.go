package sync

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rjeczalik/notify"
)

const eventBufferSize = 64

// RawOp classifies a single filesystem event before normalization.
type RawOp string

const (
	RawCreate RawOp = "create"
	RawWrite  RawOp = "write"
	RawRemove RawOp = "remove"
)

// RawEvent is one filesystem event with an absolute path.
type RawEvent struct {
	Path string
	Op   RawOp
	At   time.Time
}

// FileWatcher watches the sync root recursively and emits RawEvents.
// Debouncing and coalescing happen downstream in the Normalizer.
type FileWatcher struct {
	watchDir string
	notifyCh chan notify.EventInfo
	events   chan RawEvent
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewFileWatcher creates the watcher and its channels. Events() is valid
// immediately, so downstream stages can be wired before Start.
func NewFileWatcher(watchDir string) *FileWatcher {
	return &FileWatcher{
		watchDir: watchDir,
		notifyCh: make(chan notify.EventInfo, eventBufferSize),
		events:   make(chan RawEvent, eventBufferSize),
		done:     make(chan struct{}),
	}
}

func (fw *FileWatcher) Start(ctx context.Context) error {
	slog.Info("file watcher start", "dir", fw.watchDir)

	recursivePath := fw.watchDir + "/..."
	events := notify.Create | notify.Write | notify.Remove | notify.Rename
	if err := notify.Watch(recursivePath, fw.notifyCh, events); err != nil {
		return err
	}

	fw.wg.Add(1)
	go fw.translateEvents(ctx)

	return nil
}

func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() {
		slog.Info("file watcher stopping")

		close(fw.done)
		notify.Stop(fw.notifyCh)
		fw.wg.Wait()

		slog.Info("file watcher stopped")
	})
}

func (fw *FileWatcher) Events() <-chan RawEvent {
	return fw.events
}

// translateEvents maps notify events onto RawEvents and forwards them.
func (fw *FileWatcher) translateEvents(ctx context.Context) {
	defer func() {
		slog.Debug("file watcher translate events done")
		fw.wg.Done()
		close(fw.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.done:
			return
		case event, ok := <-fw.notifyCh:
			if !ok {
				return
			}

			raw := RawEvent{
				Path: event.Path(),
				Op:   translateOp(event),
				At:   time.Now(),
			}

			select {
			case fw.events <- raw:
				slog.Debug("file watcher", "event", event.Event(), "op", raw.Op, "path", raw.Path)
			default:
				slog.Warn("file watcher dropped", "reason", "channel full", "path", raw.Path)
			}
		}
	}
}

// translateOp classifies a notify event. Renames carry no destination, so
// the path is stat'ed: still present means the file arrived here, gone
// means it left.
func translateOp(event notify.EventInfo) RawOp {
	switch event.Event() {
	case notify.Create:
		return RawCreate
	case notify.Remove:
		return RawRemove
	case notify.Rename:
		if _, err := os.Stat(event.Path()); err == nil {
			return RawCreate
		}
		return RawRemove
	default:
		return RawWrite
	}
}
