package domain

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMentionCounts(t *testing.T) {
	items := []NewsItem{
		itemAt("1", 1, "Ukraine", "Russia"),
		itemAt("2", 2, "Ukraine"),
		itemAt("3", 3, "Gaza"),
	}

	assert.Equal(t, map[string]int{"Ukraine": 2, "Russia": 1, "Gaza": 1}, MentionCounts(items))
}

func TestMentionCounts_OnlyFirstThirtyItems(t *testing.T) {
	items := make([]NewsItem, 0, 40)
	for i := range 40 {
		items = append(items, itemAt(fmt.Sprint(i), i, "Iran"))
	}

	assert.Equal(t, MapWindow, MentionCounts(items)["Iran"])
}

func TestMentionCounts_DuplicateLocationCountsOnce(t *testing.T) {
	item := itemAt("dup", 1, "Syria", "Syria")

	assert.Equal(t, 1, MentionCounts([]NewsItem{item})["Syria"])
}

func TestDailyCounts_UTCBuckets(t *testing.T) {
	items := []NewsItem{
		{PublishedAt: time.Date(2024, 5, 9, 23, 59, 0, 0, time.UTC)},
		// 01:30 on the 10th in UTC+3 is 22:30 on the 9th UTC.
		{PublishedAt: time.Date(2024, 5, 10, 1, 30, 0, 0, time.FixedZone("UTC+3", 3*3600))},
		{PublishedAt: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
	}

	assert.Equal(t, []DailyCount{
		{Date: "2024-05-09", Count: 2},
		{Date: "2024-05-10", Count: 1},
	}, DailyCounts(items))
}

func TestDailyCounts_KeepsSevenMostRecentDates(t *testing.T) {
	var items []NewsItem
	for day := 1; day <= 10; day++ {
		items = append(items, NewsItem{PublishedAt: time.Date(2024, 5, day, 12, 0, 0, 0, time.UTC)})
	}

	got := DailyCounts(items)

	require.Len(t, got, TrendDays)
	assert.Equal(t, "2024-05-04", got[0].Date)
	assert.Equal(t, "2024-05-10", got[6].Date)
}

func TestDailyCounts_NoBackfill(t *testing.T) {
	items := []NewsItem{
		{PublishedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{PublishedAt: time.Date(2024, 5, 5, 12, 0, 0, 0, time.UTC)},
	}

	got := DailyCounts(items)

	assert.Equal(t, []DailyCount{{"2024-05-01", 1}, {"2024-05-05", 1}}, got)
}

func TestComputeStats(t *testing.T) {
	items := []NewsItem{
		itemAt("a", 1, "Iran", "Israel"),
		itemAt("b", 20, "Iran"),
		itemAt("c", 30, "Chile"),
		itemAt("d", 50),
	}

	got := ComputeStats(items, baseTime)

	assert.Equal(t, Stats{TotalNews: 4, ActiveRegions: 3, Last24Hours: 2, AveragePerDay: 1}, got)
}

func TestComputeStats_AverageRounds(t *testing.T) {
	items := make([]NewsItem, 50)

	assert.Equal(t, 7, ComputeStats(items, baseTime).AveragePerDay)
}

func TestFilterByLocation(t *testing.T) {
	items := []NewsItem{
		itemAt("a", 1, "Iran"),
		itemAt("b", 2, "Iraq"),
		itemAt("c", 3, "Iraq", "Iran"),
	}

	assert.Equal(t, []string{"a", "c"}, titles(FilterByLocation(items, "Iran")))
	assert.Empty(t, FilterByLocation(items, "Chile"))
	assert.Len(t, FilterByLocation(items, ""), 3)
}

func TestListEntries(t *testing.T) {
	long := strings.Repeat("x", 300)
	items := make([]NewsItem, 0, 25)
	for i := range 25 {
		item := itemAt(fmt.Sprint(i), i, "Iran", "Iraq", "Syria", "Turkey")
		item.Description = "<p>" + long + "</p>"
		items = append(items, item)
	}

	got := ListEntries(items, 0)

	require.Len(t, got, ListSize)
	assert.Equal(t, []string{"Iran", "Iraq", "Syria"}, got[0].Locations)
	assert.Len(t, got[0].Excerpt, ExcerptLength)
	assert.NotContains(t, got[0].Excerpt, "<p>")
}
