package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/geo-news-service/internal/domain"
	"github.com/couchcryptid/geo-news-service/internal/pipeline"
	"github.com/couchcryptid/geo-news-service/internal/video"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker = sharedobs.ReadinessChecker

// Refresher runs or joins a refresh cycle.
type Refresher interface {
	ReadinessChecker
	Refresh(ctx context.Context) (*domain.Snapshot, error)
}

// SnapshotReader exposes the current snapshot and refresh state.
type SnapshotReader interface {
	Snapshot() *domain.Snapshot
	Status() pipeline.Status
}

// Deps are the collaborators behind the API. Videos and Watcher are nil
// when video search is not configured. RefreshTimeout bounds a manual
// refresh and sizes the server write timeout.
type Deps struct {
	Store          SnapshotReader
	Refresher      Refresher
	Gazetteer      *domain.Gazetteer
	Tagger         *domain.Tagger
	Videos         domain.VideoSearcher
	Watcher        *video.Watcher
	ClusterLevel   int
	RefreshTimeout time.Duration
}

// minWriteTimeout covers every route that does not wait on a refresh.
const minWriteTimeout = 10 * time.Second

// writeTimeout leaves room to encode the response after a manual refresh
// that runs for the full refresh timeout.
func writeTimeout(refresh time.Duration) time.Duration {
	return max(refresh+minWriteTimeout, minWriteTimeout)
}

// Server exposes health, readiness, metrics, and the dashboard JSON API.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the health routes and the /api tree.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: writeTimeout(deps.RefreshTimeout),
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(deps.Refresher))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/news", s.handleNews)
		r.Get("/stats", s.handleStats)
		r.Get("/trend", s.handleTrend)
		r.Get("/locations", s.handleLocations)
		r.Get("/locations/mentions", s.handleMentions)
		r.Get("/locations/{name}", s.handleLocation)
		r.Get("/map", s.handleMap)
		r.Get("/tag", s.handleTag)
		r.Get("/status", s.handleStatus)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/videos/search", s.handleVideoSearch)
		r.Get("/videos/watch", s.handleWatchState)
		r.Post("/videos/watch", s.handleWatchUpdate)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type newsResponse struct {
	Location string             `json:"location,omitempty"`
	Total    int                `json:"total"`
	Items    []domain.ListEntry `json:"items"`
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	limit := domain.ListSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	location := r.URL.Query().Get("location")
	items := domain.FilterByLocation(s.deps.Store.Snapshot().Items, location)
	sharedobs.WriteJSON(w, http.StatusOK, newsResponse{
		Location: location,
		Total:    len(items),
		Items:    domain.ListEntries(items, limit),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, domain.ComputeStats(s.deps.Store.Snapshot().Items, domain.Now()))
}

func (s *Server) handleTrend(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, domain.DailyCounts(s.deps.Store.Snapshot().Items))
}

func (s *Server) handleLocations(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.deps.Gazetteer.All())
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	geo, ok := s.deps.Gazetteer.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown location: "+name)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.GazetteerEntry{Name: name, Lat: geo.Lat, Lon: geo.Lon})
}

func (s *Server) handleMentions(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, domain.MentionCounts(s.deps.Store.Snapshot().Items))
}

type mapResponse struct {
	Markers  []domain.Marker       `json:"markers"`
	Clusters []domain.Cluster      `json:"clusters"`
	Options  domain.ClusterOptions `json:"options"`
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	markers := domain.BuildMarkers(s.deps.Store.Snapshot().Items, s.deps.Gazetteer)
	sharedobs.WriteJSON(w, http.StatusOK, mapResponse{
		Markers:  markers,
		Clusters: domain.ClusterMarkers(markers, s.deps.ClusterLevel),
		Options:  domain.DefaultClusterOptions(),
	})
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"text":      text,
		"locations": s.deps.Tagger.Tag(text),
	})
}

type statusResponse struct {
	pipeline.Status
	SnapshotID  string              `json:"snapshot_id,omitempty"`
	RefreshedAt time.Time           `json:"refreshed_at,omitzero"`
	Items       int                 `json:"items"`
	Feeds       []domain.FeedResult `json:"feeds"`
}

func newStatusResponse(status pipeline.Status, snap *domain.Snapshot) statusResponse {
	feeds := snap.Feeds
	if feeds == nil {
		feeds = []domain.FeedResult{}
	}
	return statusResponse{
		Status:      status,
		SnapshotID:  snap.ID,
		RefreshedAt: snap.RefreshedAt,
		Items:       len(snap.Items),
		Feeds:       feeds,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, newStatusResponse(s.deps.Store.Status(), s.deps.Store.Snapshot()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Refresher.Refresh(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrAllFeedsFailed) {
			status = http.StatusBadGateway
		}
		s.logger.Warn("manual refresh failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, status, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newStatusResponse(s.deps.Store.Status(), snap))
}

type videoRequest struct {
	Query string `json:"query"`
}

type videoResponse struct {
	Query  string         `json:"query"`
	Videos []domain.Video `json:"videos"`
}

func (s *Server) handleVideoSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Videos == nil {
		writeError(w, http.StatusServiceUnavailable, "video search is not configured")
		return
	}
	req, ok := decodeVideoRequest(w, r)
	if !ok {
		return
	}
	query, ok := domain.NormalizeVideoQuery(req.Query)
	if !ok {
		writeError(w, http.StatusBadRequest, "query must be at least 3 characters")
		return
	}

	videos, err := s.deps.Videos.Search(r.Context(), query)
	if err != nil {
		s.logger.Warn("video search failed", "query", query, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if videos == nil {
		videos = []domain.Video{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, videoResponse{Query: query, Videos: videos})
}

func (s *Server) handleWatchState(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Watcher == nil {
		writeError(w, http.StatusServiceUnavailable, "video search is not configured")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.deps.Watcher.State())
}

func (s *Server) handleWatchUpdate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watcher == nil {
		writeError(w, http.StatusServiceUnavailable, "video search is not configured")
		return
	}
	req, ok := decodeVideoRequest(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusAccepted, s.deps.Watcher.Update(req.Query))
}

func decodeVideoRequest(w http.ResponseWriter, r *http.Request) (videoRequest, bool) {
	var req videoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object with a query")
		return req, false
	}
	return req, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
