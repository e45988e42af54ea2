package video

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/geo-news-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSearcher struct {
	mu      sync.Mutex
	queries []string
	videos  []domain.Video
	err     error
}

func (s *recordingSearcher) Search(_ context.Context, query string) ([]domain.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	return s.videos, s.err
}

func (s *recordingSearcher) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func newTestWatcher(s domain.VideoSearcher) (*Watcher, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewWatcher(s, clock, slog.New(slog.NewTextHandler(io.Discard, nil))), clock
}

func TestWatcher_ShortQueryClearsImmediately(t *testing.T) {
	s := &recordingSearcher{videos: []domain.Video{{ID: "a"}}}
	w, clock := newTestWatcher(s)

	w.Update("gaza strip")
	clock.Advance(DebounceDelay)
	require.Eventually(t, func() bool { return len(w.State().Videos) == 1 }, time.Second, 5*time.Millisecond)

	state := w.Update("ga")
	assert.Equal(t, "ga", state.Query)
	assert.Empty(t, state.Videos)
	assert.False(t, state.Loading)

	clock.Advance(time.Minute)
	assert.Equal(t, []string{"gaza strip"}, s.calls())
}

func TestWatcher_DebounceFiresOnceAfterQuietPeriod(t *testing.T) {
	s := &recordingSearcher{videos: []domain.Video{{ID: "v1", Title: "Kyiv"}}}
	w, clock := newTestWatcher(s)

	w.Update("ukr")
	clock.Advance(300 * time.Millisecond)
	w.Update("ukra")
	clock.Advance(300 * time.Millisecond)
	w.Update("ukraine")
	clock.Advance(DebounceDelay - time.Millisecond)
	assert.Empty(t, s.calls())

	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return len(s.calls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"ukraine"}, s.calls())

	require.Eventually(t, func() bool { return !w.State().Loading && len(w.State().Videos) == 1 }, time.Second, 5*time.Millisecond)
	state := w.State()
	assert.Equal(t, "ukraine", state.Query)
	assert.Equal(t, "v1", state.Videos[0].ID)
	assert.Empty(t, state.Error)
}

func TestWatcher_QueryIsTrimmed(t *testing.T) {
	s := &recordingSearcher{}
	w, clock := newTestWatcher(s)

	state := w.Update("  ab  ")
	assert.Equal(t, "ab", state.Query)
	clock.Advance(time.Second)
	assert.Empty(t, s.calls())

	w.Update("  iran ")
	clock.Advance(DebounceDelay)
	require.Eventually(t, func() bool { return len(s.calls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "iran", s.calls()[0])
}

func TestWatcher_SearchErrorSetsFlag(t *testing.T) {
	s := &recordingSearcher{err: errors.New("quota exceeded")}
	w, clock := newTestWatcher(s)

	w.Update("sudan")
	clock.Advance(DebounceDelay)

	require.Eventually(t, func() bool { return w.State().Error != "" }, time.Second, 5*time.Millisecond)
	state := w.State()
	assert.Equal(t, "quota exceeded", state.Error)
	assert.Empty(t, state.Videos)
	assert.False(t, state.Loading)
}

func TestWatcher_CloseCancelsPending(t *testing.T) {
	s := &recordingSearcher{}
	w, clock := newTestWatcher(s)

	w.Update("syria")
	w.Close()
	clock.Advance(time.Second)
	w.Update("yemen")
	clock.Advance(time.Second)

	assert.Empty(t, s.calls())
	assert.Equal(t, "syria", w.State().Query)
}

func TestWatcher_StateIsACopy(t *testing.T) {
	s := &recordingSearcher{videos: []domain.Video{{ID: "x"}}}
	w, clock := newTestWatcher(s)

	w.Update("libya")
	clock.Advance(DebounceDelay)
	require.Eventually(t, func() bool { return len(w.State().Videos) == 1 }, time.Second, 5*time.Millisecond)

	state := w.State()
	state.Videos[0].ID = "mutated"
	assert.Equal(t, "x", w.State().Videos[0].ID)
}
