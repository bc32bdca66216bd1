package sync

import (
	"fmt"
	"sync"
	"time"
)

// PathStatus is the last known lifecycle snapshot for one path.
type PathStatus struct {
	State     PathState
	Outcome   Outcome
	Error     error
	UpdatedAt time.Time
}

func (s *PathStatus) String() string {
	return fmt.Sprintf("State: %s, Outcome: %s, Error: %v", s.State, s.Outcome, s.Error)
}

// SyncStatus tracks what the engine last did per path, for logs and the
// status surface. It holds no durable state.
type SyncStatus struct {
	files map[string]*PathStatus
	mu    sync.RWMutex
}

func NewSyncStatus() *SyncStatus {
	return &SyncStatus{
		files: make(map[string]*PathStatus),
	}
}

func (s *SyncStatus) getOrCreate(path string) *PathStatus {
	if status, exists := s.files[path]; exists {
		return status
	}
	status := &PathStatus{State: StateIdle}
	s.files[path] = status
	return status
}

// SetPending marks a path as having an intent waiting on the worker.
func (s *SyncStatus) SetPending(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.getOrCreate(path)
	status.State = StatePending
	status.Outcome = ""
	status.Error = nil
	status.UpdatedAt = time.Now()
}

// SetInFlight marks a path as being synced right now.
func (s *SyncStatus) SetInFlight(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.getOrCreate(path)
	status.State = StateInFlight
	status.UpdatedAt = time.Now()
}

// SetDone records the terminal outcome for the current intent.
func (s *SyncStatus) SetDone(path string, outcome Outcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.getOrCreate(path)
	status.State = StateDone
	status.Outcome = outcome
	status.Error = err
	status.UpdatedAt = time.Now()
}

// Get returns the status of a specific path.
func (s *SyncStatus) Get(path string) (*PathStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, exists := s.files[path]
	if !exists {
		return nil, false
	}
	statusCopy := *status
	return &statusCopy, true
}

// All returns a copy of every tracked path status.
func (s *SyncStatus) All() map[string]*PathStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*PathStatus, len(s.files))
	for path, status := range s.files {
		statusCopy := *status
		result[path] = &statusCopy
	}
	return result
}

// InFlightCount returns how many paths are being synced.
func (s *SyncStatus) InFlightCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, status := range s.files {
		if status.State == StateInFlight {
			count++
		}
	}
	return count
}

// Cleanup drops settled entries older than maxAge.
func (s *SyncStatus) Cleanup(maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for path, status := range s.files {
		if status.State == StateDone && status.UpdatedAt.Before(cutoff) {
			delete(s.files, path)
		}
	}
}
