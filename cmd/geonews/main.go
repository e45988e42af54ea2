package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/geo-news-service/internal/adapter/feedproxy"
	httpadapter "github.com/couchcryptid/geo-news-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/geo-news-service/internal/adapter/kafka"
	"github.com/couchcryptid/geo-news-service/internal/adapter/youtube"
	"github.com/couchcryptid/geo-news-service/internal/config"
	"github.com/couchcryptid/geo-news-service/internal/domain"
	"github.com/couchcryptid/geo-news-service/internal/observability"
	"github.com/couchcryptid/geo-news-service/internal/pipeline"
	"github.com/couchcryptid/geo-news-service/internal/video"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	gazetteer := domain.DefaultGazetteer()
	if cfg.GazetteerPath != "" {
		gazetteer, err = domain.LoadGazetteerFile(cfg.GazetteerPath)
		if err != nil {
			logger.Error("failed to load gazetteer", "path", cfg.GazetteerPath, "error", err)
			os.Exit(1)
		}
	}
	logger.Info("gazetteer loaded", "locations", gazetteer.Len(), "path", cfg.GazetteerPath)
	tagger := domain.NewTagger(gazetteer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Video search is feature-flagged via YOUTUBE_ENABLED / YOUTUBE_API_KEY.
	var searcher domain.VideoSearcher
	var watcher *video.Watcher
	if cfg.YouTubeEnabled {
		client, err := youtube.NewClient(ctx, cfg, logger, metrics)
		if err != nil {
			logger.Error("failed to create youtube client", "error", err)
			os.Exit(1)
		}
		searcher = youtube.NewCachedSearcher(client, cfg.VideoCacheSize, metrics)
		watcher = video.NewWatcher(searcher, nil, logger)
		metrics.VideoEnabled.Set(1)
		logger.Info("video search enabled", "cache_size", cfg.VideoCacheSize, "timeout", cfg.VideoTimeout)
	} else {
		logger.Info("video search disabled")
	}

	var writer *kafkaadapter.Writer
	opts := pipeline.Options{
		Feeds:        cfg.Feeds,
		Interval:     cfg.RefreshInterval,
		Timeout:      cfg.RefreshTimeout,
		Concurrency:  cfg.FetchConcurrency,
		SnapshotSize: cfg.SnapshotSize,
	}
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		opts.Publisher = writer
		logger.Info("snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSnapshotTopic)
	}

	store := pipeline.NewStore()
	fetcher := feedproxy.NewClient(cfg, logger, metrics)
	p := pipeline.New(fetcher, domain.NewNormalizer(tagger), store, logger, metrics, opts)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Store:          store,
		Refresher:      p,
		Gazetteer:      gazetteer,
		Tagger:         tagger,
		Videos:         searcher,
		Watcher:        watcher,
		ClusterLevel:   cfg.MapClusterLevel,
		RefreshTimeout: cfg.RefreshTimeout,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("refresh loop did not stop before shutdown timeout")
	}
	if watcher != nil {
		watcher.Close()
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
