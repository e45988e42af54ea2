package domain

import (
	"context"
	"strings"
)

// MinVideoQueryLength is the shortest query worth sending to a video search.
const MinVideoQueryLength = 3

// Video is a search result from the video provider.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channel_title"`
	PublishedAt  string `json:"published_at"`
	URL          string `json:"url"`
}

// VideoSearcher finds videos related to a free-text query.
type VideoSearcher interface {
	Search(ctx context.Context, query string) ([]Video, error)
}

// NormalizeVideoQuery trims a query and reports whether it is long enough to
// search for.
func NormalizeVideoQuery(query string) (string, bool) {
	q := strings.TrimSpace(query)
	return q, len([]rune(q)) >= MinVideoQueryLength
}
