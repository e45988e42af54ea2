package feedproxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/geo-news-service/internal/config"
	"github.com/couchcryptid/geo-news-service/internal/domain"
	"github.com/couchcryptid/geo-news-service/internal/observability"
	"github.com/mmcdole/gofeed"
)

// maxBodyBytes bounds how much of a proxy response is read.
const maxBodyBytes = 8 << 20

// ErrAllProxiesFailed wraps the per-proxy errors when no proxy produced a payload.
var ErrAllProxiesFailed = errors.New("all feed proxies failed")

// Client fetches feeds through an ordered list of proxies.
// It implements pipeline.FeedFetcher.
type Client struct {
	proxies    []config.Proxy
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a proxy client for the configured proxy chain.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		proxies: cfg.Proxies,
		httpClient: &http.Client{
			Timeout: cfg.ProxyTimeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// FetchFeed tries each proxy in order and returns the first payload that
// decodes. Later proxies are not contacted once one succeeds.
func (c *Client) FetchFeed(ctx context.Context, feedURL string) (domain.FeedPayload, error) {
	var errs []error
	for _, p := range c.proxies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		payload, err := c.fetchVia(ctx, p, feedURL)
		if err != nil {
			c.logger.Debug("feed proxy attempt failed", "proxy", p.Name, "feed", feedURL, "error", err)
			errs = append(errs, fmt.Errorf("proxy %s: %w", p.Name, err))
			continue
		}
		payload.Via = p.Name
		return payload, nil
	}
	if len(errs) == 0 {
		return domain.FeedPayload{}, ErrAllProxiesFailed
	}
	return domain.FeedPayload{}, fmt.Errorf("%w: %w", ErrAllProxiesFailed, errors.Join(errs...))
}

func (c *Client) fetchVia(ctx context.Context, p config.Proxy, feedURL string) (domain.FeedPayload, error) {
	start := time.Now()
	body, err := c.doRequest(ctx, proxyURL(p, feedURL))
	c.metrics.ProxyDuration.WithLabelValues(p.Name).Observe(time.Since(start).Seconds())

	var payload domain.FeedPayload
	if err == nil {
		if p.Kind == config.ProxyKindFeed {
			payload, err = parseFeedDocument(body)
		} else {
			payload, err = domain.ParseFeedPayload(body)
		}
	}

	if err != nil {
		c.metrics.ProxyRequests.WithLabelValues(p.Name, "error").Inc()
		return domain.FeedPayload{}, err
	}
	c.metrics.ProxyRequests.WithLabelValues(p.Name, "success").Inc()
	return payload, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("proxy error: status %d: %s", resp.StatusCode, snippet)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func proxyURL(p config.Proxy, feedURL string) string {
	return strings.ReplaceAll(p.Template, "{url}", url.QueryEscape(feedURL))
}

// parseFeedDocument reads a raw RSS, Atom or JSON Feed document into the same
// record shape the JSON proxies return.
func parseFeedDocument(body []byte) (domain.FeedPayload, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return domain.FeedPayload{}, fmt.Errorf("parse feed: %w", err)
	}

	payload := domain.FeedPayload{Items: make([]domain.FeedRecord, 0, len(feed.Items))}
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		rec := domain.FeedRecord{
			"title":       item.Title,
			"description": item.Description,
			"content":     item.Content,
			"link":        item.Link,
		}
		switch {
		case item.PublishedParsed != nil:
			rec["pubDate"] = item.PublishedParsed.UTC().Format(time.RFC3339)
		case item.UpdatedParsed != nil:
			rec["pubDate"] = item.UpdatedParsed.UTC().Format(time.RFC3339)
		default:
			rec["published"] = item.Published
		}
		payload.Items = append(payload.Items, rec)
	}
	return payload, nil
}
