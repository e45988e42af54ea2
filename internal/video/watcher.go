// Package video debounces free-text video queries into searches.
package video

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/geo-news-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	// DebounceDelay is the quiet period after the last update before a search fires.
	DebounceDelay = 500 * time.Millisecond
	// SearchTimeout bounds a single search.
	SearchTimeout = 10 * time.Second
)

// State is what a client renders for the current query.
type State struct {
	Query   string         `json:"query"`
	Videos  []domain.Video `json:"videos"`
	Loading bool           `json:"loading"`
	Error   string         `json:"error,omitempty"`
}

// Watcher turns a stream of query updates into at most one search per quiet
// period. Only the result of the latest query is ever applied.
type Watcher struct {
	searcher domain.VideoSearcher
	clock    clockwork.Clock
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	timer  clockwork.Timer
	cancel context.CancelFunc
	closed bool
}

// NewWatcher creates a Watcher. A nil clock means the real clock.
func NewWatcher(searcher domain.VideoSearcher, clock clockwork.Clock, logger *slog.Logger) *Watcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Watcher{
		searcher: searcher,
		clock:    clock,
		logger:   logger,
		state:    State{Videos: []domain.Video{}},
	}
}

// Update records a new query. Queries shorter than domain.MinVideoQueryLength
// clear the results at once; anything else schedules a search after
// DebounceDelay, replacing any search still pending.
func (w *Watcher) Update(query string) State {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return w.snapshot()
	}
	w.gen++
	w.stopPending()

	q, ok := domain.NormalizeVideoQuery(query)
	if !ok {
		w.state = State{Query: q, Videos: []domain.Video{}}
		return w.snapshot()
	}

	w.state.Query = q
	gen := w.gen
	w.timer = w.clock.AfterFunc(DebounceDelay, func() { w.search(gen, q) })
	return w.snapshot()
}

// State returns a copy of the current state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

// Close cancels any pending or running search. Later updates are ignored.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.gen++
	w.stopPending()
}

func (w *Watcher) search(gen uint64, query string) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), SearchTimeout)
	w.cancel = cancel
	w.state.Loading = true
	w.mu.Unlock()
	defer cancel()

	videos, err := w.searcher.Search(ctx, query)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen {
		return
	}
	w.cancel = nil
	w.state.Loading = false
	if err != nil {
		w.logger.Warn("video search failed", "query", query, "error", err)
		w.state.Videos = []domain.Video{}
		w.state.Error = err.Error()
		return
	}
	if videos == nil {
		videos = []domain.Video{}
	}
	w.state.Videos = videos
	w.state.Error = ""
}

// stopPending must be called with mu held.
func (w *Watcher) stopPending() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.state.Loading = false
}

func (w *Watcher) snapshot() State {
	s := w.state
	s.Videos = append([]domain.Video(nil), s.Videos...)
	if s.Videos == nil {
		s.Videos = []domain.Video{}
	}
	return s
}
