package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrMissingItems is returned when a proxy response has no items array.
var ErrMissingItems = errors.New("feed payload has no items")

// FeedRecord is one loosely typed item as returned by a feed proxy. Field
// names vary by proxy, so the normalizer reads alternates in priority order.
type FeedRecord map[string]any

// FeedPayload is the decoded body of a successful proxy call.
type FeedPayload struct {
	Items []FeedRecord
	// Via names the proxy that served the payload.
	Via string
}

// ParseFeedPayload decodes a JSON proxy body. The body must be an object with
// an items array; anything else counts as a failed proxy attempt.
func ParseFeedPayload(data []byte) (FeedPayload, error) {
	var envelope struct {
		Items *[]json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return FeedPayload{}, fmt.Errorf("decode feed payload: %w", err)
	}
	if envelope.Items == nil {
		return FeedPayload{}, ErrMissingItems
	}

	payload := FeedPayload{Items: make([]FeedRecord, 0, len(*envelope.Items))}
	for _, raw := range *envelope.Items {
		var rec FeedRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
			continue
		}
		payload.Items = append(payload.Items, rec)
	}
	return payload, nil
}

// Field alternates, highest priority first.
var (
	titleKeys       = []string{"title"}
	descriptionKeys = []string{"description", "content"}
	linkKeys        = []string{"link", "url"}
	publishedKeys   = []string{"pubDate", "published"}

	taggedKeys = []string{"description"}
)

// Timestamp layouts seen from the supported proxies. rss2json emits the bare
// "2006-01-02 15:04:05" form in UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
}

// Normalizer turns proxy payloads into tagged NewsItems.
type Normalizer struct {
	tagger *Tagger
}

func NewNormalizer(tagger *Tagger) *Normalizer {
	return &Normalizer{tagger: tagger}
}

// Normalize maps every record of payload to a NewsItem attributed to the
// hostname of feedURL. Missing fields become empty strings and a missing or
// unparseable timestamp becomes the current time; neither is an error.
func (n *Normalizer) Normalize(payload FeedPayload, feedURL string) []NewsItem {
	source := SourceName(feedURL)
	items := make([]NewsItem, 0, len(payload.Items))
	for _, rec := range payload.Items {
		items = append(items, n.normalizeRecord(rec, source))
	}
	return items
}

func (n *Normalizer) normalizeRecord(rec FeedRecord, source string) NewsItem {
	title := firstString(rec, titleKeys)
	return NewsItem{
		Title:       title,
		Description: firstString(rec, descriptionKeys),
		Link:        firstString(rec, linkKeys),
		PublishedAt: ParseTimestamp(firstString(rec, publishedKeys)),
		Source:      source,
		// Only the description field is tagged. Full article content is
		// displayed as a fallback but would over-tag on incidental mentions.
		Locations: n.tagger.Tag(title + " " + firstString(rec, taggedKeys)),
	}
}

// ParseTimestamp parses a feed date, falling back to now.
func ParseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value != "" {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return t.UTC()
			}
		}
	}
	return clock.Now().UTC()
}

// SourceName returns the hostname of a feed URL, or the input unchanged when
// it does not parse as an absolute URL.
func SourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	return u.Hostname()
}

func firstString(rec FeedRecord, keys []string) string {
	for _, k := range keys {
		if s, ok := rec[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
