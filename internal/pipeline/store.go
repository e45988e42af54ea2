package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/geo-news-service/internal/domain"
)

// Status is the aggregate refresh state shown to clients.
type Status struct {
	LastAttempt time.Time `json:"last_attempt,omitzero"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	Error       string    `json:"error,omitempty"`
}

// Store holds the current snapshot. Readers always see a complete snapshot:
// a refresh swaps the pointer, it never edits a published snapshot.
type Store struct {
	snapshot atomic.Pointer[domain.Snapshot]

	mu     sync.RWMutex
	status Status
}

func NewStore() *Store {
	s := &Store{}
	s.snapshot.Store(domain.EmptySnapshot())
	return s
}

// Snapshot returns the current snapshot, never nil.
func (s *Store) Snapshot() *domain.Snapshot {
	return s.snapshot.Load()
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Store) markAttempt(at time.Time) {
	s.mu.Lock()
	s.status.LastAttempt = at
	s.mu.Unlock()
}

// replace publishes snap and clears any previous error.
func (s *Store) replace(snap *domain.Snapshot) {
	s.snapshot.Store(snap)
	s.mu.Lock()
	s.status.LastSuccess = snap.RefreshedAt
	s.status.Error = ""
	s.mu.Unlock()
}

// fail records a failed cycle and leaves the current snapshot in place.
func (s *Store) fail(err error) {
	s.mu.Lock()
	s.status.Error = err.Error()
	s.mu.Unlock()
}
