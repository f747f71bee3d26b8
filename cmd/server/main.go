package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/j4ckxyz/linkhub/internal/blogs"
	"github.com/j4ckxyz/linkhub/internal/bluesky"
	"github.com/j4ckxyz/linkhub/internal/cache"
	"github.com/j4ckxyz/linkhub/internal/config"
	"github.com/j4ckxyz/linkhub/internal/feed"
	"github.com/j4ckxyz/linkhub/internal/github"
	"github.com/j4ckxyz/linkhub/internal/grain"
	"github.com/j4ckxyz/linkhub/internal/httpserver"
	"github.com/j4ckxyz/linkhub/internal/photos"
	"github.com/j4ckxyz/linkhub/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up the cache store: Redis when configured, SQLite otherwise.
	var store cache.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer client.Close()
		store = cache.NewRedisStore(client)
		logger.Info("using redis cache store", "addr", cfg.RedisAddr)
	} else {
		sqlStore, err := cache.NewSQLStore(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("create cache store: %w", err)
		}
		defer sqlStore.Close()
		store = sqlStore
		logger.Info("using sqlite cache store", "path", cfg.DatabasePath)
	}

	manager := cache.NewManager(store, logger)
	defer manager.Close()

	// The aggregation pipelines: author feed, curated photos, blogs, repos.
	appView := bluesky.NewClient(cfg.AppViewURL)
	pds := bluesky.NewClient(cfg.PDSURL)
	grainClient := grain.NewClient(cfg.GrainURL)

	fetcher := feed.NewFetcher(appView, cfg.Handle, cfg.FeedPageLimit, logger)
	aggregator := photos.NewAggregator(grainClient, &portfolioSource{appView: appView, pds: pds}, cfg.Handle, cfg.PortfolioCollection, cfg.FeedTarget, logger)
	blogService := blogs.NewService(pds, cfg.Handle, cfg.BlogCollection, cfg.BlogBaseURL, 20, logger)
	githubClient := github.NewClient("")

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Watch the owner's Jetstream activity so new posts invalidate the
	// feed cache ahead of its age limit.
	if cfg.OwnerDID != "" {
		feedKeys := []string{httpserver.KeyTimeline, httpserver.KeyLatest}
		w := watcher.New(cfg.JetstreamURL, cfg.OwnerDID, feedKeys, manager, store, logger)
		go func() {
			if err := w.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("jetstream watcher exited with error", "error", err)
			}
		}()
	} else {
		logger.Info("LINKHUB_OWNER_DID not set, jetstream watcher disabled")
	}

	// Start the HTTP server
	server := httpserver.NewServer(cfg, manager, fetcher, aggregator, blogService, githubClient, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port, "handle", cfg.Handle)

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}

// portfolioSource satisfies photos.PostSource: post hydration goes through
// the app view, the fallback collection listing through the PDS.
type portfolioSource struct {
	appView *bluesky.Client
	pds     *bluesky.Client
}

func (s *portfolioSource) GetPosts(ctx context.Context, uris []string) ([]bluesky.PostView, error) {
	return s.appView.GetPosts(ctx, uris)
}

func (s *portfolioSource) ListRecords(ctx context.Context, repo, collection string, limit int) ([]bluesky.Record, error) {
	return s.pds.ListRecords(ctx, repo, collection, limit)
}
