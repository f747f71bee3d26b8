package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Handle is the tracked account's handle (e.g. j4ck.xyz).
	Handle string

	// OwnerDID is the tracked account's DID. Required only for the
	// Jetstream watcher; when empty the watcher is disabled.
	OwnerDID string

	// Port is the HTTP server port.
	Port int

	// AppViewURL is the public Bluesky app view base URL.
	AppViewURL string

	// PDSURL is the account's PDS base URL, used for repository listings
	// (blogs, portfolio fallback).
	PDSURL string

	// GrainURL is the Grain GraphQL endpoint.
	GrainURL string

	// GitHubUser is the GitHub account whose repos are listed.
	GitHubUser string

	// BlogCollection and BlogBaseURL describe the published-documents
	// collection and the public reader it links to.
	BlogCollection string
	BlogBaseURL    string

	// PortfolioCollection is the curated gallery collection listed when
	// the Grain portfolio query yields nothing.
	PortfolioCollection string

	// CacheMaxAge bounds how long a cache entry is served as fresh.
	CacheMaxAge time.Duration

	// DatabasePath is the SQLite cache database file.
	DatabasePath string

	// RedisAddr selects the Redis cache backend when non-empty.
	RedisAddr     string
	RedisPassword string

	// JetstreamURL is the Jetstream WebSocket endpoint.
	JetstreamURL string

	// FeedTarget is how many admissible posts a feed fetch aims for.
	FeedTarget int

	// FeedPageLimit is the item count requested per feed page.
	FeedPageLimit int

	// PageStep is the infinite-scroll increment.
	PageStep int
}

// ProfileURL returns the canonical external profile page, used as the
// manual fallback link when a widget has nothing to show.
func (c *Config) ProfileURL() string {
	return "https://bsky.app/profile/" + c.Handle
}

// Load reads configuration from environment variables with sensible
// defaults, after best-effort loading of a local .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Handle:              envOrDefault("LINKHUB_HANDLE", "j4ck.xyz"),
		OwnerDID:            os.Getenv("LINKHUB_OWNER_DID"),
		AppViewURL:          envOrDefault("LINKHUB_APPVIEW_URL", "https://public.api.bsky.app"),
		PDSURL:              envOrDefault("LINKHUB_PDS_URL", "https://pds.j4ck.xyz"),
		GrainURL:            envOrDefault("LINKHUB_GRAIN_URL", "https://quickslices.atproto.uk/graphql"),
		GitHubUser:          envOrDefault("LINKHUB_GITHUB_USER", "j4ckxyz"),
		BlogCollection:      envOrDefault("LINKHUB_BLOG_COLLECTION", "pub.leaflet.document"),
		BlogBaseURL:         envOrDefault("LINKHUB_BLOG_BASE_URL", "https://leaflet.pub/lish/j4ck.xyz"),
		PortfolioCollection: envOrDefault("LINKHUB_PORTFOLIO_COLLECTION", "social.grain.gallery.item"),
		DatabasePath:        envOrDefault("LINKHUB_DB_PATH", "linkhub.db"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		JetstreamURL:        envOrDefault("LINKHUB_JETSTREAM_URL", "wss://jetstream1.us-east.bsky.network/subscribe"),
	}

	var err error
	if cfg.Port, err = envInt("PORT", 3000); err != nil {
		return nil, err
	}
	if cfg.FeedTarget, err = envInt("LINKHUB_FEED_TARGET", 50); err != nil {
		return nil, err
	}
	if cfg.FeedPageLimit, err = envInt("LINKHUB_FEED_PAGE_LIMIT", 30); err != nil {
		return nil, err
	}
	if cfg.PageStep, err = envInt("LINKHUB_PAGE_STEP", 10); err != nil {
		return nil, err
	}

	cacheMaxAge := envOrDefault("LINKHUB_CACHE_MAX_AGE", "5m")
	cfg.CacheMaxAge, err = time.ParseDuration(cacheMaxAge)
	if err != nil {
		return nil, fmt.Errorf("invalid LINKHUB_CACHE_MAX_AGE: %w", err)
	}

	if cfg.Handle == "" {
		return nil, fmt.Errorf("LINKHUB_HANDLE must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
