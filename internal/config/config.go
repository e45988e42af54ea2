package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

// Proxy kinds. A json proxy returns an rss2json style envelope; a feed proxy
// returns the raw RSS or Atom document.
const (
	ProxyKindJSON = "json"
	ProxyKindFeed = "feed"
)

// Proxy describes one feed proxy. Template contains "{url}", which is
// replaced with the query-escaped feed URL.
type Proxy struct {
	Name     string `yaml:"name"`
	Template string `yaml:"url"`
	Kind     string `yaml:"kind"`
}

// DefaultFeeds are the geopolitical sources polled when FEEDS is unset.
var DefaultFeeds = []string{
	"https://geopoliticalfutures.com/feed/",
	"https://news.un.org/feed/subscribe/en/news/all/rss.xml",
	"https://www.aljazeera.com/xml/rss/all.xml",
}

// DefaultProxies are tried in order for every feed.
var DefaultProxies = []Proxy{
	{Name: "rss2json", Template: "https://api.rss2json.com/v1/api.json?rss_url={url}", Kind: ProxyKindJSON},
	{Name: "allorigins", Template: "https://api.allorigins.win/raw?url={url}", Kind: ProxyKindFeed},
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Feed refresh configuration.
	Feeds            []string
	Proxies          []Proxy
	RefreshInterval  time.Duration
	RefreshTimeout   time.Duration
	ProxyTimeout     time.Duration
	FetchConcurrency int
	SnapshotSize     int

	// Location data.
	GazetteerPath   string
	MapClusterLevel int

	// YouTube video search configuration.
	YouTubeAPIKey     string
	YouTubeEnabled    bool
	YouTubeLanguage   string
	YouTubeMaxResults int64
	VideoCacheSize    int
	VideoTimeout      time.Duration

	// Optional snapshot publishing.
	KafkaBrokers       []string
	KafkaSnapshotTopic string
}

// KafkaEnabled reports whether snapshots should be published.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// feedsFile is the optional FEEDS_CONFIG document.
//
//	feeds:
//	  - https://...
//	proxies:
//	  - {name: rss2json, url: "https://api.rss2json.com/v1/api.json?rss_url={url}", kind: json}
type feedsFile struct {
	Feeds   []string `yaml:"feeds"`
	Proxies []Proxy  `yaml:"proxies"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parseDuration("REFRESH_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}
	refreshTimeout, err := parseDuration("REFRESH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	proxyTimeout, err := parseDuration("PROXY_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	videoTimeout, err := parseDuration("YOUTUBE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	concurrency, err := parsePositiveInt("FETCH_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	snapshotSize, err := parsePositiveInt("SNAPSHOT_SIZE", 50)
	if err != nil {
		return nil, err
	}
	maxResults, err := parsePositiveInt("YOUTUBE_MAX_RESULTS", 3)
	if err != nil {
		return nil, err
	}
	clusterLevel, err := parseClusterLevel()
	if err != nil {
		return nil, err
	}

	youtubeKey := os.Getenv("YOUTUBE_API_KEY")
	youtubeEnabled := youtubeKey != ""
	if v := os.Getenv("YOUTUBE_ENABLED"); v != "" {
		youtubeEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		Feeds:            DefaultFeeds,
		Proxies:          DefaultProxies,
		RefreshInterval:  refreshInterval,
		RefreshTimeout:   refreshTimeout,
		ProxyTimeout:     proxyTimeout,
		FetchConcurrency: concurrency,
		SnapshotSize:     snapshotSize,

		GazetteerPath:   os.Getenv("GAZETTEER_PATH"),
		MapClusterLevel: clusterLevel,

		YouTubeAPIKey:     youtubeKey,
		YouTubeEnabled:    youtubeEnabled,
		YouTubeLanguage:   sharedcfg.EnvOrDefault("YOUTUBE_LANGUAGE", "tr"),
		YouTubeMaxResults: int64(maxResults),
		VideoCacheSize:    parseVideoCacheSize(),
		VideoTimeout:      videoTimeout,

		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "geo-news-snapshots"),
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(v)
	}

	if path := os.Getenv("FEEDS_CONFIG"); path != "" {
		if err := cfg.loadFeedsFile(path); err != nil {
			return nil, err
		}
	}
	if v := os.Getenv("FEEDS"); v != "" {
		cfg.Feeds = splitAndTrim(v)
	}

	if len(cfg.Feeds) == 0 {
		return nil, errors.New("FEEDS is required")
	}
	if err := validateProxies(cfg.Proxies); err != nil {
		return nil, err
	}
	if cfg.YouTubeEnabled && cfg.YouTubeAPIKey == "" {
		return nil, errors.New("YOUTUBE_ENABLED is true but YOUTUBE_API_KEY is not set")
	}
	if cfg.KafkaEnabled() && cfg.KafkaSnapshotTopic == "" {
		return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func (c *Config) loadFeedsFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open FEEDS_CONFIG: %w", err)
	}
	defer f.Close()

	var ff feedsFile
	if err := yaml.NewDecoder(f).Decode(&ff); err != nil {
		return fmt.Errorf("decode FEEDS_CONFIG: %w", err)
	}
	if len(ff.Feeds) > 0 {
		c.Feeds = ff.Feeds
	}
	if len(ff.Proxies) > 0 {
		c.Proxies = ff.Proxies
	}
	return nil
}

func validateProxies(proxies []Proxy) error {
	if len(proxies) == 0 {
		return errors.New("at least one feed proxy is required")
	}
	for _, p := range proxies {
		if p.Name == "" || !strings.Contains(p.Template, "{url}") {
			return fmt.Errorf("invalid proxy %q: name and a url containing {url} are required", p.Name)
		}
		if p.Kind != ProxyKindJSON && p.Kind != ProxyKindFeed {
			return fmt.Errorf("invalid proxy %q: kind must be %q or %q", p.Name, ProxyKindJSON, ProxyKindFeed)
		}
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func parseClusterLevel() (int, error) {
	s := os.Getenv("MAP_CLUSTER_LEVEL")
	if s == "" {
		return 4, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 30 {
		return 0, errors.New("invalid MAP_CLUSTER_LEVEL")
	}
	return n, nil
}

func parseVideoCacheSize() int {
	if s := os.Getenv("VIDEO_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 256
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
