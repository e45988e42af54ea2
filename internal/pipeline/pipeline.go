package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/geo-news-service/internal/domain"
	"github.com/couchcryptid/geo-news-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrAllFeedsFailed is returned by a cycle in which no feed produced a payload.
// The previous snapshot stays in place.
var ErrAllFeedsFailed = errors.New("all feeds failed")

// FeedFetcher retrieves one feed's payload through whatever transport is configured.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string) (domain.FeedPayload, error)
}

// SnapshotPublisher receives every snapshot a successful cycle produces.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error
}

// Options tune a Pipeline. Zero values fall back to the defaults noted.
type Options struct {
	Feeds        []string
	Interval     time.Duration // 60s
	Timeout      time.Duration // 30s
	Concurrency  int           // one goroutine per feed
	SnapshotSize int           // domain.DefaultSnapshotSize
	Clock        clockwork.Clock
	Publisher    SnapshotPublisher
}

// Pipeline orchestrates the fetch-normalize-aggregate refresh cycle. The
// timer loop and manual refreshes share one code path, and at most one
// cycle is in flight at a time.
type Pipeline struct {
	fetcher    FeedFetcher
	normalizer *domain.Normalizer
	store      *Store
	publisher  SnapshotPublisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock

	feeds        []string
	interval     time.Duration
	timeout      time.Duration
	concurrency  int
	snapshotSize int

	group singleflight.Group
	ready atomic.Bool

	// lifetime bounds every cycle; Run cancels it on shutdown.
	lifetime context.Context
	stop     context.CancelFunc
	inflight sync.WaitGroup
}

// New creates a Pipeline writing snapshots to store.
func New(fetcher FeedFetcher, normalizer *domain.Normalizer, store *Store, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.Interval <= 0 {
		opts.Interval = 60 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = max(len(opts.Feeds), 1)
	}
	if opts.SnapshotSize <= 0 {
		opts.SnapshotSize = domain.DefaultSnapshotSize
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	lifetime, stop := context.WithCancel(context.Background())
	return &Pipeline{
		fetcher:      fetcher,
		normalizer:   normalizer,
		store:        store,
		publisher:    opts.Publisher,
		logger:       logger,
		metrics:      metrics,
		clock:        opts.Clock,
		feeds:        opts.Feeds,
		interval:     opts.Interval,
		timeout:      opts.Timeout,
		concurrency:  opts.Concurrency,
		snapshotSize: opts.SnapshotSize,
		lifetime:     lifetime,
		stop:         stop,
	}
}

// CheckReadiness returns nil once a snapshot has been published.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no news snapshot has been built yet")
	}
	return nil
}

// Run refreshes immediately and then on every interval until ctx is
// cancelled. It waits for in-flight cycles before returning.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "feeds", len(p.feeds), "interval", p.interval)
	p.metrics.RefreshRunning.Set(1)
	defer p.metrics.RefreshRunning.Set(0)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.trigger("startup")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			p.stop()
			p.inflight.Wait()
			return nil
		case <-ticker.Chan():
			p.trigger("timer")
		}
	}
}

func (p *Pipeline) trigger(reason string) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		if _, err := p.Refresh(p.lifetime); err != nil && p.lifetime.Err() == nil {
			p.logger.Warn("refresh failed", "trigger", reason, "error", err)
		}
	}()
}

// Refresh runs a cycle, or joins the one already running, and returns the
// resulting snapshot. Cancelling ctx abandons the wait but not the cycle.
func (p *Pipeline) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	ch := p.group.DoChan("refresh", func() (any, error) {
		return p.cycle()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type feedOutcome struct {
	items  []domain.NewsItem
	result domain.FeedResult
	err    error
}

func (p *Pipeline) cycle() (*domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(p.lifetime, p.timeout)
	defer cancel()

	start := p.clock.Now()
	p.store.markAttempt(start.UTC())

	outcomes := p.fetchAll(ctx)
	p.metrics.RefreshDuration.Observe(p.clock.Since(start).Seconds())

	perFeed := make([][]domain.NewsItem, len(outcomes))
	results := make([]domain.FeedResult, len(outcomes))
	var errs []error
	for i, o := range outcomes {
		perFeed[i] = o.items
		results[i] = o.result
		if o.err != nil {
			errs = append(errs, o.err)
		}
	}

	if len(errs) == len(outcomes) {
		err := ErrAllFeedsFailed
		if len(errs) > 0 {
			err = fmt.Errorf("%w: %w", ErrAllFeedsFailed, errors.Join(errs...))
		}
		p.store.fail(err)
		p.metrics.RefreshTotal.WithLabelValues("failed").Inc()
		p.logger.Error("refresh failed, keeping previous snapshot", "feeds", len(outcomes), "error", err)
		return nil, err
	}

	snap := domain.NewSnapshot(domain.Aggregate(perFeed, p.snapshotSize), results, p.clock.Now())
	p.store.replace(snap)
	p.ready.Store(true)

	outcome := "success"
	if len(errs) > 0 {
		outcome = "partial"
	}
	p.metrics.RefreshTotal.WithLabelValues(outcome).Inc()
	p.metrics.SnapshotItems.Set(float64(len(snap.Items)))
	p.metrics.LastRefresh.Set(float64(snap.RefreshedAt.Unix()))
	p.logger.Info("snapshot refreshed",
		"snapshot_id", snap.ID,
		"items", len(snap.Items),
		"feeds_ok", len(outcomes)-len(errs),
		"feeds_failed", len(errs),
	)

	if p.publisher != nil {
		if err := p.publisher.PublishSnapshot(ctx, snap); err != nil {
			p.logger.Warn("publish snapshot failed", "snapshot_id", snap.ID, "error", err)
		}
	}
	return snap, nil
}

// fetchAll fetches and normalizes every feed concurrently. A failing feed
// contributes no items; outcomes keep the configured feed order.
func (p *Pipeline) fetchAll(ctx context.Context) []feedOutcome {
	outcomes := make([]feedOutcome, len(p.feeds))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, feedURL := range p.feeds {
		g.Go(func() error {
			outcomes[i] = p.fetchOne(ctx, feedURL)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (p *Pipeline) fetchOne(ctx context.Context, feedURL string) feedOutcome {
	source := domain.SourceName(feedURL)
	result := domain.FeedResult{URL: feedURL, Source: source}

	payload, err := p.fetcher.FetchFeed(ctx, feedURL)
	if err != nil {
		p.metrics.FeedFailures.WithLabelValues(source).Inc()
		p.logger.Warn("feed fetch failed", "feed", feedURL, "error", err)
		result.Error = err.Error()
		return feedOutcome{result: result, err: fmt.Errorf("feed %s: %w", source, err)}
	}

	items := p.normalizer.Normalize(payload, feedURL)
	result.Proxy = payload.Via
	result.Items = len(items)
	p.metrics.FeedItems.WithLabelValues(source).Add(float64(len(items)))
	p.logger.Debug("feed fetched", "feed", feedURL, "proxy", payload.Via, "items", len(items))
	return feedOutcome{items: items, result: result}
}
