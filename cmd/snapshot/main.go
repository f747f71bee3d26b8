// Command snapshot runs the aggregation pipelines once, prints the result
// as JSON, and leaves the cache warm. Useful before a deploy or for
// inspecting what the server would serve.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/j4ckxyz/linkhub/internal/bluesky"
	"github.com/j4ckxyz/linkhub/internal/cache"
	"github.com/j4ckxyz/linkhub/internal/config"
	"github.com/j4ckxyz/linkhub/internal/feed"
	"github.com/j4ckxyz/linkhub/internal/grain"
	"github.com/j4ckxyz/linkhub/internal/httpserver"
	"github.com/j4ckxyz/linkhub/internal/photos"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		fetchFeed   bool
		fetchPhotos bool
		target      int
	)

	flag.BoolVar(&fetchFeed, "feed", true, "Fetch the chronological feed")
	flag.BoolVar(&fetchPhotos, "photos", false, "Fetch the photo portfolio")
	flag.IntVar(&target, "target", 0, "Target post count (0 uses the configured default)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if target <= 0 {
		target = cfg.FeedTarget
	}

	store, err := cache.NewSQLStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("create cache store: %w", err)
	}
	defer store.Close()

	manager := cache.NewManager(store, logger)
	defer manager.Close()

	ctx := context.Background()
	appView := bluesky.NewClient(cfg.AppViewURL)
	pds := bluesky.NewClient(cfg.PDSURL)

	out := make(map[string]any)

	if fetchFeed {
		fetcher := feed.NewFetcher(appView, cfg.Handle, cfg.FeedPageLimit, logger)
		posts, err := fetcher.Fetch(ctx, target, feed.AdmitTimeline)
		if err != nil {
			return fmt.Errorf("fetch feed: %w", err)
		}
		warm(ctx, manager, httpserver.KeyTimeline, posts)
		out["posts"] = posts
	}

	if fetchPhotos {
		aggregator := photos.NewAggregator(
			grain.NewClient(cfg.GrainURL),
			&portfolioSource{appView: appView, pds: pds},
			cfg.Handle, cfg.PortfolioCollection, target, logger,
		)
		posts, err := aggregator.FetchPhotoPosts(ctx)
		if err != nil {
			return fmt.Errorf("fetch photos: %w", err)
		}
		warm(ctx, manager, httpserver.KeyPhotos, posts)
		out["photos"] = posts
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// warm seeds the cache key with an already-fetched value so the server
// starts with fresh data.
func warm(ctx context.Context, manager *cache.Manager, key string, posts []feed.Post) {
	cache.GetOrFetch(ctx, manager, key, 0, func(context.Context) ([]feed.Post, error) {
		return posts, nil
	})
}

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
