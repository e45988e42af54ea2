package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewsItem is one normalized, location-tagged article. Items are never
// modified after the normalizer builds them.
type NewsItem struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
	Locations   []string  `json:"locations"`
}

// FeedResult records how one feed fared during a refresh cycle.
type FeedResult struct {
	URL    string `json:"url"`
	Source string `json:"source"`
	Proxy  string `json:"proxy,omitempty"`
	Items  int    `json:"items"`
	Error  string `json:"error,omitempty"`
}

// OK reports whether the feed produced a payload.
func (r FeedResult) OK() bool { return r.Error == "" }

// Snapshot is the aggregated news set served to readers. A refresh builds a
// new Snapshot and swaps it in whole.
type Snapshot struct {
	ID          string       `json:"id"`
	Items       []NewsItem   `json:"items"`
	RefreshedAt time.Time    `json:"refreshed_at"`
	Feeds       []FeedResult `json:"feeds"`
}

// NewSnapshot stamps a fresh snapshot with a random ID.
func NewSnapshot(items []NewsItem, feeds []FeedResult, refreshedAt time.Time) *Snapshot {
	return &Snapshot{
		ID:          uuid.NewString(),
		Items:       items,
		RefreshedAt: refreshedAt.UTC(),
		Feeds:       feeds,
	}
}

// EmptySnapshot is served before the first successful refresh.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Items: []NewsItem{}, Feeds: []FeedResult{}}
}
