// Package domain models geopolitical news items and the location data
// derived from them.
//
// # Data Source
//
// Articles come from public RSS feeds. Feeds are not fetched directly; each
// is requested through a chain of feed proxies (see the proxy adapter) that
// return either an rss2json style JSON envelope or the raw feed document.
// Both are reduced to a [FeedPayload]: a list of loosely typed records.
//
// # Normalization
//
// Record fields are read from alternates, first non-empty wins:
//
//	title        title
//	description  description, content
//	link         link, url
//	published    pubDate, published
//
// Missing text fields become empty strings. A missing or unparseable date
// becomes the time of normalization, so such items sort as newest. The item
// source is the hostname of the feed URL, not of the proxy.
//
// # Location Tagging
//
// Locations come from a fixed [Gazetteer] of canonical names. The [Tagger]
// upper-cases the title and description and tests each gazetteer name, in
// declaration order, as a plain substring. There is no tokenization and no
// word-boundary check:
//
//	"Iranian drones over Gaza"  →  [Gaza Iran]   (default table order)
//	"Nigeria election"          →  [Nigeria]
//
// Overlapping names both match ("South Africa" also tags "Africa"), and an
// item carries at most [MaxLocationsPerItem] names.
//
// # Aggregation
//
// A refresh merges all feeds, orders newest first, and keeps
// [DefaultSnapshotSize] items as an immutable [Snapshot]. Every other view
// (mention counts, markers, clusters, the daily trend and headline stats) is
// recomputed from the current snapshot on demand.
//
// Map views only look at the first [MapWindow] items. Each tagged location
// becomes a [Marker] whose radius grows with the running count of that
// location: 8 + 2·ln(count).
//
// Trend buckets use the UTC calendar date of each item, keeping the most
// recent [TrendDays] dates that actually have items.
package domain
