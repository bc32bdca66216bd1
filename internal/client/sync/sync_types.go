package sync

import "time"

// Op is the kind of change the engine applies to the remote.
type Op string

const (
	OpCreate Op = "Create"
	OpModify Op = "Modify"
	OpDelete Op = "Delete"
)

// Intent is one debounced, coalesced change for a single watched path.
// Path is relative to the watch dir, slash separated.
type Intent struct {
	Op   Op
	Path string
	At   time.Time
}

// PathState is the engine's per-path lifecycle while an intent is handled.
type PathState string

const (
	StateIdle     PathState = "idle"
	StatePending  PathState = "pending"
	StateInFlight PathState = "inflight"
	StateDone     PathState = "done"
)

// Outcome is the terminal result of processing one intent.
type Outcome string

const (
	// OutcomeCommitted means the remote and the mapping now agree.
	OutcomeCommitted Outcome = "committed"
	// OutcomeSkipped means no remote work was needed.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeOffline means the connectivity probe failed and the intent
	// was dropped. A later file event triggers the next attempt.
	OutcomeOffline Outcome = "offline"
	// OutcomeAbandoned means a remote op failed and the intent was given
	// up without retry.
	OutcomeAbandoned Outcome = "abandoned"
)
