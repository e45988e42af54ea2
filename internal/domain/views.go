package domain

import (
	"math"
	"slices"
	"time"
)

const (
	// MapWindow is how many of the newest items feed the map and mention counts.
	MapWindow = 30
	// TrendDays is how many distinct dates the trend view keeps.
	TrendDays = 7
	// ListSize caps the news list.
	ListSize = 20
	// CardLocations caps the location badges shown per list entry.
	CardLocations = 3
	// ExcerptLength is the list card description length in runes.
	ExcerptLength = 200
)

// MentionCounts counts, over the first MapWindow items, how many items
// mention each location. An item contributes at most once per location.
func MentionCounts(items []NewsItem) map[string]int {
	counts := make(map[string]int)
	for _, item := range window(items, MapWindow) {
		seen := make(map[string]struct{}, len(item.Locations))
		for _, loc := range item.Locations {
			if _, dup := seen[loc]; dup {
				continue
			}
			seen[loc] = struct{}{}
			counts[loc]++
		}
	}
	return counts
}

// DailyCount is the number of items published on one UTC date.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DailyCounts buckets items by UTC publication date and returns the most
// recent TrendDays dates that have items, oldest first. Days without items
// are not filled in.
func DailyCounts(items []NewsItem) []DailyCount {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.PublishedAt.UTC().Format(time.DateOnly)]++
	}

	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	slices.Sort(dates)
	if len(dates) > TrendDays {
		dates = dates[len(dates)-TrendDays:]
	}

	out := make([]DailyCount, len(dates))
	for i, d := range dates {
		out[i] = DailyCount{Date: d, Count: counts[d]}
	}
	return out
}

// Stats are the dashboard headline numbers.
type Stats struct {
	TotalNews     int `json:"total_news"`
	ActiveRegions int `json:"active_regions"`
	Last24Hours   int `json:"last_24_hours"`
	AveragePerDay int `json:"average_per_day"`
}

// ComputeStats derives headline numbers for the snapshot as of now.
func ComputeStats(items []NewsItem, now time.Time) Stats {
	regions := make(map[string]struct{})
	recent := 0
	cutoff := now.Add(-24 * time.Hour)
	for _, item := range items {
		for _, loc := range item.Locations {
			regions[loc] = struct{}{}
		}
		if item.PublishedAt.After(cutoff) {
			recent++
		}
	}
	return Stats{
		TotalNews:     len(items),
		ActiveRegions: len(regions),
		Last24Hours:   recent,
		AveragePerDay: int(math.Round(float64(len(items)) / TrendDays)),
	}
}

// FilterByLocation keeps the items tagged with location. An empty location
// returns items unchanged.
func FilterByLocation(items []NewsItem, location string) []NewsItem {
	if location == "" {
		return items
	}
	out := make([]NewsItem, 0, len(items))
	for _, item := range items {
		if slices.Contains(item.Locations, location) {
			out = append(out, item)
		}
	}
	return out
}

// ListEntry is a NewsItem trimmed for the news list.
type ListEntry struct {
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
	Locations   []string  `json:"locations"`
}

// ListEntries builds at most limit list entries. A non-positive limit means
// ListSize.
func ListEntries(items []NewsItem, limit int) []ListEntry {
	if limit <= 0 {
		limit = ListSize
	}
	items = window(items, limit)
	out := make([]ListEntry, len(items))
	for i, item := range items {
		out[i] = ListEntry{
			Title:       item.Title,
			Excerpt:     Excerpt(item.Description, ExcerptLength),
			Link:        item.Link,
			PublishedAt: item.PublishedAt,
			Source:      item.Source,
			Locations:   window(item.Locations, CardLocations),
		}
	}
	return out
}

func window[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
