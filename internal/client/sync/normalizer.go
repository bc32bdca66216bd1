package sync

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/updrive/updrive/internal/client/workspace"
	"github.com/updrive/updrive/internal/utils"
)

const (
	// DefaultDebounceWindow is the quiet time a path must see before its
	// buffered events collapse into one intent.
	DefaultDebounceWindow = 500 * time.Millisecond

	intentBufferSize = 16
)

// pendingRun buffers the events seen for one path inside a window.
type pendingRun struct {
	firstOp   RawOp
	sawRemove bool
	at        time.Time
	deadline  time.Time
}

// Normalizer debounces raw watcher events per path and coalesces each run
// into a single Create, Modify or Delete intent:
//
//   - any remove in the run wins: the path's latest known fate is gone
//   - else a run that opened with a create stays a create
//   - else it is a modify
//
// Intents go out on a bounded channel. A slow consumer blocks the
// normalizer rather than losing intents.
type Normalizer struct {
	watchDir string
	window   time.Duration
	filter   *PathFilter
	raw      <-chan RawEvent
	intents  chan Intent
	pending  map[string]*pendingRun
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewNormalizer(watchDir string, raw <-chan RawEvent, filter *PathFilter, window time.Duration) *Normalizer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Normalizer{
		watchDir: watchDir,
		window:   window,
		filter:   filter,
		raw:      raw,
		intents:  make(chan Intent, intentBufferSize),
		pending:  make(map[string]*pendingRun),
		done:     make(chan struct{}),
	}
}

func (n *Normalizer) Start(ctx context.Context) error {
	slog.Info("normalizer start", "window", n.window)
	n.wg.Add(1)
	go n.run(ctx)
	return nil
}

func (n *Normalizer) Stop() {
	n.stopOnce.Do(func() {
		slog.Info("normalizer stopping")
		close(n.done)
		n.wg.Wait()
		slog.Info("normalizer stopped")
	})
}

func (n *Normalizer) Intents() <-chan Intent {
	return n.intents
}

func (n *Normalizer) run(ctx context.Context) {
	defer func() {
		// best effort flush of whatever was mid-window
		for rel, run := range n.pending {
			delete(n.pending, rel)
			select {
			case n.intents <- Intent{Op: coalesce(run), Path: rel, At: run.at}:
				slog.Debug("normalizer flushing pending intent on exit", "path", rel)
			default:
				slog.Warn("normalizer dropping pending intent on exit", "path", rel)
			}
		}
		close(n.intents)
		n.wg.Done()
	}()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.done:
			return
		case ev, ok := <-n.raw:
			if !ok {
				return
			}
			n.track(ev)
		case <-timer.C:
			if !n.flushExpired(ctx) {
				return
			}
		}

		if next, ok := n.nextDeadline(); ok {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(time.Until(next))
		}
	}
}

// track folds a raw event into the pending run for its path, dropping
// paths that never sync.
func (n *Normalizer) track(ev RawEvent) {
	rel, err := filepath.Rel(n.watchDir, ev.Path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		slog.Debug("normalizer skip", "path", ev.Path, "reason", "outside watch dir")
		return
	}
	rel = workspace.NormPath(rel)

	if n.filter.Hidden(rel) {
		slog.Debug("normalizer skip hidden", "path", rel)
		return
	}

	// directories never sync; a removed path cannot be stat'ed, the
	// engine settles those through the mapping
	if ev.Op != RawRemove && utils.DirExists(ev.Path) {
		slog.Debug("normalizer skip dir", "path", rel)
		return
	}

	if n.filter.Ignored(rel) {
		slog.Debug("normalizer skip ignored", "path", rel)
		return
	}

	run, ok := n.pending[rel]
	if !ok {
		run = &pendingRun{firstOp: ev.Op}
		n.pending[rel] = run
	}
	if ev.Op == RawRemove {
		run.sawRemove = true
	}
	run.at = ev.At
	run.deadline = time.Now().Add(n.window)
}

// flushExpired emits an intent for every run whose window has gone quiet.
// Returns false if the normalizer should shut down.
func (n *Normalizer) flushExpired(ctx context.Context) bool {
	now := time.Now()
	for rel, run := range n.pending {
		if run.deadline.After(now) {
			continue
		}
		delete(n.pending, rel)

		intent := Intent{Op: coalesce(run), Path: rel, At: run.at}
		select {
		case n.intents <- intent:
			slog.Debug("normalizer intent", "op", intent.Op, "path", intent.Path)
		case <-ctx.Done():
			return false
		case <-n.done:
			return false
		}
	}
	return true
}

func (n *Normalizer) nextDeadline() (time.Time, bool) {
	var next time.Time
	for _, run := range n.pending {
		if next.IsZero() || run.deadline.Before(next) {
			next = run.deadline
		}
	}
	return next, !next.IsZero()
}

func coalesce(run *pendingRun) Op {
	switch {
	case run.sawRemove:
		return OpDelete
	case run.firstOp == RawCreate:
		return OpCreate
	default:
		return OpModify
	}
}
