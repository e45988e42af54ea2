package kafka

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/geo-news-service/internal/config"
	"github.com/couchcryptid/geo-news-service/internal/domain"
	"github.com/couchcryptid/geo-news-service/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	snap := &domain.Snapshot{
		ID: "snap-1",
		Items: []domain.NewsItem{{
			Title:       "Ceasefire talks resume",
			PublishedAt: now,
			Source:      "news.un.org",
			Locations:   []string{"Gaza"},
		}},
		RefreshedAt: now,
		Feeds:       []domain.FeedResult{{URL: "https://news.un.org/feed", Source: "news.un.org", Items: 1}},
	}

	msg, err := serializeToMessage(snap)
	require.NoError(t, err)

	assert.Equal(t, []byte("snap-1"), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "snapshot_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("snap-1"), msg.Headers[0].Value)
	assert.Equal(t, "refreshed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
	assert.Equal(t, "item_count", msg.Headers[2].Key)
	assert.Equal(t, []byte("1"), msg.Headers[2].Value)

	var decoded domain.Snapshot
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "snap-1", decoded.ID)
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, []string{"Gaza"}, decoded.Items[0].Locations)
	assert.Contains(t, string(msg.Value), `"refreshed_at":"2024-04-26T15:10:00Z"`)
}

func TestNewWriter(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:       []string{"broker1:9092", "broker2:9092"},
		KafkaSnapshotTopic: "geo-news-snapshots",
	}

	w := NewWriter(cfg, slog.Default(), observability.NewMetricsForTesting())
	defer w.Close()

	assert.Equal(t, "geo-news-snapshots", w.writer.Topic)
	assert.NotNil(t, w.writer.Addr)
	assert.Equal(t, kafkago.RequireAll, w.writer.RequiredAcks)
}
