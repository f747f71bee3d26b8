package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/j4ckxyz/linkhub/internal/blogs"
	"github.com/j4ckxyz/linkhub/internal/cache"
	"github.com/j4ckxyz/linkhub/internal/config"
	"github.com/j4ckxyz/linkhub/internal/feed"
	"github.com/j4ckxyz/linkhub/internal/github"
	"github.com/j4ckxyz/linkhub/internal/photos"
)

// Cache keys for the independent pipelines. The feed and photo pipelines
// run concurrently but never share a key.
const (
	KeyTimeline = "feed.timeline"
	KeyLatest   = "feed.latest"
	KeyPhotos   = "photos.portfolio"
	KeyBlogs    = "blogs.documents"
	KeyRepos    = "github.repos"
)

// Server exposes the aggregated content as a JSON API.
type Server struct {
	cfg        *config.Config
	manager    *cache.Manager
	fetcher    *feed.Fetcher
	aggregator *photos.Aggregator
	blogs      *blogs.Service
	github     *github.Client
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer wires the aggregation services into an HTTP server.
func NewServer(
	cfg *config.Config,
	manager *cache.Manager,
	fetcher *feed.Fetcher,
	aggregator *photos.Aggregator,
	blogService *blogs.Service,
	githubClient *github.Client,
	logger *slog.Logger,
) *Server {
	s := &Server{
		cfg:        cfg,
		manager:    manager,
		fetcher:    fetcher,
		aggregator: aggregator,
		blogs:      blogService,
		github:     githubClient,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/posts", s.handlePosts)
	mux.HandleFunc("GET /api/posts/latest", s.handleLatestPost)
	mux.HandleFunc("GET /api/gallery", s.handleGallery)
	mux.HandleFunc("GET /api/photos", s.handlePhotos)
	mux.HandleFunc("GET /api/blogs", s.handleBlogs)
	mux.HandleFunc("GET /api/repos", s.handleRepos)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      withLogging(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// timelinePosts is the shared read path for the chronological feed: cached
// posts when fresh (with a background refresh scheduled), a foreground
// fetch otherwise.
func (s *Server) timelinePosts(ctx context.Context) ([]feed.Post, bool) {
	return cache.GetOrFetch(ctx, s.manager, KeyTimeline, s.cfg.CacheMaxAge,
		func(ctx context.Context) ([]feed.Post, error) {
			return s.fetcher.Fetch(ctx, s.cfg.FeedTarget, feed.AdmitTimeline)
		})
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	posts, cached := s.timelinePosts(r.Context())
	if len(posts) == 0 {
		writeEmpty(w, s.cfg.ProfileURL())
		return
	}

	pager := feed.NewPager(s.cfg.PageStep)
	if c := r.URL.Query().Get("count"); c != "" {
		parsed, err := strconv.Atoi(c)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "count must be a positive integer")
			return
		}
		for pager.Visible() < parsed && pager.HasMore(len(posts)) {
			pager.Advance()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"posts":   pager.Window(posts),
		"hasMore": pager.HasMore(len(posts)),
		"total":   len(posts),
		"cached":  cached,
	})
}

func (s *Server) handleLatestPost(w http.ResponseWriter, r *http.Request) {
	posts, cached := cache.GetOrFetch(r.Context(), s.manager, KeyLatest, s.cfg.CacheMaxAge,
		func(ctx context.Context) ([]feed.Post, error) {
			return s.fetcher.Fetch(ctx, 1, feed.AdmitLatest(s.cfg.Handle))
		})

	latest, ok := feed.LatestPost(posts, feed.AdmitLatest(s.cfg.Handle))
	if !ok {
		writeEmpty(w, s.cfg.ProfileURL())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"post":   latest,
		"cached": cached,
	})
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	posts, cached := s.timelinePosts(r.Context())
	entries := feed.GalleryEntries(posts)
	if len(entries) == 0 {
		writeEmpty(w, s.cfg.ProfileURL())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"entries": entries,
		"cached":  cached,
	})
}

func (s *Server) handlePhotos(w http.ResponseWriter, r *http.Request) {
	posts, cached := cache.GetOrFetch(r.Context(), s.manager, KeyPhotos, s.cfg.CacheMaxAge,
		s.aggregator.FetchPhotoPosts)
	if len(posts) == 0 {
		writeEmpty(w, s.cfg.ProfileURL())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"posts":  posts,
		"cached": cached,
	})
}

func (s *Server) handleBlogs(w http.ResponseWriter, r *http.Request) {
	posts, cached := cache.GetOrFetch(r.Context(), s.manager, KeyBlogs, s.cfg.CacheMaxAge,
		func(ctx context.Context) ([]blogs.BlogPost, error) {
			return s.blogs.List(ctx)
		})
	if len(posts) == 0 {
		writeEmpty(w, s.cfg.BlogBaseURL)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"blogs":  posts,
		"cached": cached,
	})
}

func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	repos, cached := cache.GetOrFetch(r.Context(), s.manager, KeyRepos, s.cfg.CacheMaxAge,
		func(ctx context.Context) ([]github.Repo, error) {
			return s.github.ListRepos(ctx, s.cfg.GitHubUser, 10)
		})
	if len(repos) == 0 {
		writeEmpty(w, "https://github.com/"+s.cfg.GitHubUser)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"repos":  repos,
		"cached": cached,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEmpty reports the no-content state. The widget renders "unable to
// load" with the fallback link; an empty result means unknown, not
// confirmed-empty, so the status code stays 200.
func writeEmpty(w http.ResponseWriter, fallback string) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "empty",
		"fallback": fallback,
	})
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
