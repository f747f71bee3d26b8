package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LINKHUB_HANDLE", "LINKHUB_OWNER_DID", "PORT",
		"LINKHUB_APPVIEW_URL", "LINKHUB_PDS_URL", "LINKHUB_GRAIN_URL",
		"LINKHUB_GITHUB_USER", "LINKHUB_BLOG_COLLECTION", "LINKHUB_BLOG_BASE_URL",
		"LINKHUB_PORTFOLIO_COLLECTION", "LINKHUB_DB_PATH",
		"REDIS_ADDR", "REDIS_PASSWORD", "LINKHUB_JETSTREAM_URL",
		"LINKHUB_FEED_TARGET", "LINKHUB_FEED_PAGE_LIMIT", "LINKHUB_PAGE_STEP",
		"LINKHUB_CACHE_MAX_AGE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "j4ck.xyz", cfg.Handle)
	assert.Empty(t, cfg.OwnerDID)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "https://public.api.bsky.app", cfg.AppViewURL)
	assert.Equal(t, "https://pds.j4ck.xyz", cfg.PDSURL)
	assert.Equal(t, "pub.leaflet.document", cfg.BlogCollection)
	assert.Equal(t, "social.grain.gallery.item", cfg.PortfolioCollection)
	assert.Equal(t, "linkhub.db", cfg.DatabasePath)
	assert.Equal(t, 50, cfg.FeedTarget)
	assert.Equal(t, 30, cfg.FeedPageLimit)
	assert.Equal(t, 10, cfg.PageStep)
	assert.Equal(t, 5*time.Minute, cfg.CacheMaxAge)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LINKHUB_HANDLE", "someone.bsky.social")
	t.Setenv("PORT", "8080")
	t.Setenv("LINKHUB_FEED_TARGET", "75")
	t.Setenv("LINKHUB_CACHE_MAX_AGE", "90s")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "someone.bsky.social", cfg.Handle)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 75, cfg.FeedTarget)
	assert.Equal(t, 90*time.Second, cfg.CacheMaxAge)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("LINKHUB_CACHE_MAX_AGE", "whenever")
	_, err = Load()
	assert.Error(t, err)
}

func TestProfileURL(t *testing.T) {
	cfg := &Config{Handle: "j4ck.xyz"}
	assert.Equal(t, "https://bsky.app/profile/j4ck.xyz", cfg.ProfileURL())
}
