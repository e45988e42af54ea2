package domain

import "slices"

// DefaultSnapshotSize is how many items a refresh keeps.
const DefaultSnapshotSize = 50

// Aggregate concatenates per-feed items in feed order, orders them newest
// first and keeps at most limit. Items with equal timestamps keep their
// concatenation order. Duplicate stories from different feeds are kept.
func Aggregate(perFeed [][]NewsItem, limit int) []NewsItem {
	if limit <= 0 {
		limit = DefaultSnapshotSize
	}

	total := 0
	for _, items := range perFeed {
		total += len(items)
	}
	merged := make([]NewsItem, 0, total)
	for _, items := range perFeed {
		merged = append(merged, items...)
	}

	slices.SortStableFunc(merged, func(a, b NewsItem) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
