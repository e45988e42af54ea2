//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/geo-news-service/internal/adapter/feedproxy"
	"github.com/couchcryptid/geo-news-service/internal/adapter/kafka"
	"github.com/couchcryptid/geo-news-service/internal/config"
	"github.com/couchcryptid/geo-news-service/internal/domain"
	"github.com/couchcryptid/geo-news-service/internal/observability"
	"github.com/couchcryptid/geo-news-service/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testSnapshotTopic = "test-snapshots"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("geo-news-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// fakeProxy serves an rss2json style envelope for any feed.
func fakeProxy(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		feed := r.URL.Query().Get("rss_url")
		body := map[string]any{
			"status": "ok",
			"items": []map[string]string{
				{"title": "Talks between Ukraine and Russia", "link": feed + "#1", "pubDate": "2024-04-26 10:00:00"},
				{"title": "Aid reaches Sudan", "link": feed + "#2", "pubDate": "2024-04-25 09:00:00"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestPipelinePublishesSnapshots runs a real refresh cycle against a fake
// proxy and verifies the snapshot lands on Kafka.
func TestPipelinePublishesSnapshots(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSnapshotTopic)

	proxy := fakeProxy(t)
	cfg := &config.Config{
		Feeds: []string{"https://feeds.example/world.xml", "https://feeds.example/africa.xml"},
		Proxies: []config.Proxy{
			{Name: "fake", Template: proxy.URL + "/?rss_url={url}", Kind: config.ProxyKindJSON},
		},
		ProxyTimeout:       5 * time.Second,
		KafkaBrokers:       []string{broker},
		KafkaSnapshotTopic: testSnapshotTopic,
	}

	metrics := observability.NewMetricsForTesting()
	writer := kafka.NewWriter(cfg, discardLogger(), metrics)
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(
		feedproxy.NewClient(cfg, discardLogger(), metrics),
		domain.NewNormalizer(domain.NewTagger(domain.DefaultGazetteer())),
		pipeline.NewStore(),
		discardLogger(),
		metrics,
		pipeline.Options{Feeds: cfg.Feeds, Publisher: writer},
	)

	snap, err := p.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Items, 4)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSnapshotTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from snapshot topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, snap.ID, string(msg.Key))
	assert.Equal(t, snap.ID, headers["snapshot_id"])
	assert.Equal(t, "4", headers["item_count"])
	_, err = time.Parse(time.RFC3339, headers["refreshed_at"])
	assert.NoError(t, err, "refreshed_at should be valid RFC3339")

	var published domain.Snapshot
	require.NoError(t, json.Unmarshal(msg.Value, &published))
	require.Len(t, published.Items, 4)
	assert.Equal(t, []string{"Russia", "Ukraine"}, published.Items[0].Locations)
	assert.Equal(t, "feeds.example", published.Items[0].Source)
	assert.Equal(t, []string{"Sudan"}, published.Items[3].Locations)
}
