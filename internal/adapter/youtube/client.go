package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/geo-news-service/internal/config"
	"github.com/couchcryptid/geo-news-service/internal/domain"
	"github.com/couchcryptid/geo-news-service/internal/observability"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

const watchURL = "https://www.youtube.com/watch?v="

// Client implements domain.VideoSearcher using the YouTube Data API.
type Client struct {
	service    *yt.Service
	language   string
	maxResults int64
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a YouTube search client. Extra options are appended
// after the API key, which lets tests point the client at a local endpoint.
func NewClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(cfg.YouTubeAPIKey)}, opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Client{
		service:    svc,
		language:   cfg.YouTubeLanguage,
		maxResults: cfg.YouTubeMaxResults,
		timeout:    cfg.VideoTimeout,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Search returns up to maxResults videos for query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Video, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	call := c.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(c.maxResults).
		Context(ctx)
	if c.language != "" {
		call = call.RelevanceLanguage(c.language)
	}

	resp, err := call.Do()
	if err != nil {
		c.metrics.VideoSearches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	videos := make([]domain.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if v, ok := toVideo(item); ok {
			videos = append(videos, v)
		}
	}

	outcome := "success"
	if len(videos) == 0 {
		outcome = "empty"
	}
	c.metrics.VideoSearches.WithLabelValues(outcome).Inc()
	c.logger.Debug("youtube search", "query", query, "results", len(videos))
	return videos, nil
}

func toVideo(item *yt.SearchResult) (domain.Video, bool) {
	if item == nil || item.Id == nil || item.Id.VideoId == "" {
		return domain.Video{}, false
	}
	v := domain.Video{
		ID:  item.Id.VideoId,
		URL: watchURL + item.Id.VideoId,
	}
	if s := item.Snippet; s != nil {
		v.Title = s.Title
		v.ChannelTitle = s.ChannelTitle
		v.PublishedAt = s.PublishedAt
		if s.Thumbnails != nil && s.Thumbnails.Default != nil {
			v.Thumbnail = s.Thumbnails.Default.Url
		}
	}
	return v, true
}
