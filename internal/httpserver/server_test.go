package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j4ckxyz/linkhub/internal/blogs"
	"github.com/j4ckxyz/linkhub/internal/bluesky"
	"github.com/j4ckxyz/linkhub/internal/cache"
	"github.com/j4ckxyz/linkhub/internal/config"
	"github.com/j4ckxyz/linkhub/internal/feed"
	"github.com/j4ckxyz/linkhub/internal/github"
	"github.com/j4ckxyz/linkhub/internal/grain"
	"github.com/j4ckxyz/linkhub/internal/photos"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubFeedSource struct {
	page *bluesky.FeedPage
	err  error
}

func (s *stubFeedSource) GetAuthorFeed(context.Context, string, int, string) (*bluesky.FeedPage, error) {
	return s.page, s.err
}

type stubPortfolio struct {
	items []grain.PortfolioItem
	err   error
}

func (s *stubPortfolio) PortfolioItems(context.Context, string, int) ([]grain.PortfolioItem, error) {
	return s.items, s.err
}

type stubPosts struct {
	views      map[string]bluesky.PostView
	records    []bluesky.Record
	recordsErr error
}

func (s *stubPosts) GetPosts(_ context.Context, uris []string) ([]bluesky.PostView, error) {
	var views []bluesky.PostView
	for _, uri := range uris {
		if view, ok := s.views[uri]; ok {
			views = append(views, view)
		}
	}
	return views, nil
}

func (s *stubPosts) ListRecords(context.Context, string, string, int) ([]bluesky.Record, error) {
	return s.records, s.recordsErr
}

func ownPost(rkey, text string) bluesky.FeedItem {
	return bluesky.FeedItem{Post: &bluesky.PostView{
		URI:    "at://did:plc:owner/app.bsky.feed.post/" + rkey,
		Author: bluesky.Author{Handle: "j4ck.xyz"},
		Record: &bluesky.PostRecord{Text: text, CreatedAt: "2026-08-20T12:00:00Z"},
	}}
}

func imagePost(rkey, text string) bluesky.FeedItem {
	item := ownPost(rkey, text)
	item.Post.Embed = json.RawMessage(`{
		"$type": "app.bsky.embed.images#view",
		"images": [{"thumb": "https://cdn/t.jpg", "fullsize": "https://cdn/f.jpg", "alt": "a shot"}]
	}`)
	return item
}

type serverOptions struct {
	feedSource *stubFeedSource
	portfolio  *stubPortfolio
	posts      *stubPosts
	records    *stubPosts
	githubBase string
}

func newTestServer(t *testing.T, opts serverOptions) *Server {
	t.Helper()

	cfg := &config.Config{
		Handle:              "j4ck.xyz",
		Port:                0,
		GitHubUser:          "j4ckxyz",
		BlogCollection:      "pub.leaflet.document",
		BlogBaseURL:         "https://leaflet.pub/lish/j4ck.xyz",
		PortfolioCollection: "social.grain.gallery.item",
		CacheMaxAge:         5 * time.Minute,
		FeedTarget:          50,
		FeedPageLimit:       30,
		PageStep:            2,
	}

	store, err := cache.NewSQLStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	manager := cache.NewManager(store, testLogger())
	t.Cleanup(manager.Close)

	if opts.feedSource == nil {
		opts.feedSource = &stubFeedSource{page: &bluesky.FeedPage{}}
	}
	if opts.portfolio == nil {
		opts.portfolio = &stubPortfolio{}
	}
	if opts.posts == nil {
		opts.posts = &stubPosts{}
	}
	if opts.records == nil {
		opts.records = opts.posts
	}

	fetcher := feed.NewFetcher(opts.feedSource, cfg.Handle, cfg.FeedPageLimit, testLogger())
	aggregator := photos.NewAggregator(opts.portfolio, opts.posts, cfg.Handle, cfg.PortfolioCollection, 50, testLogger())
	blogService := blogs.NewService(opts.records, cfg.Handle, cfg.BlogCollection, cfg.BlogBaseURL, 20, testLogger())
	githubClient := github.NewClient(opts.githubBase)

	return NewServer(cfg, manager, fetcher, aggregator, blogService, githubClient, testLogger())
}

func doRequest(t *testing.T, s *Server, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	code, body := doRequest(t, s, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestPostsWindowAndPaging(t *testing.T) {
	source := &stubFeedSource{page: &bluesky.FeedPage{Items: []bluesky.FeedItem{
		ownPost("1", "first"),
		ownPost("2", "second"),
		ownPost("3", "third"),
	}}}
	s := newTestServer(t, serverOptions{feedSource: source})

	code, body := doRequest(t, s, "/api/posts")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Len(t, body["posts"], 2, "initial window is one page step")
	assert.Equal(t, true, body["hasMore"])
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, false, body["cached"])

	// Second read is served from the cache.
	_, body = doRequest(t, s, "/api/posts")
	assert.Equal(t, true, body["cached"])

	// Asking for more advances the pager past the requested count.
	code, body = doRequest(t, s, "/api/posts?count=3")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["posts"], 3)
	assert.Equal(t, false, body["hasMore"])
}

func TestPostsRejectsBadCount(t *testing.T) {
	source := &stubFeedSource{page: &bluesky.FeedPage{Items: []bluesky.FeedItem{ownPost("1", "only")}}}
	s := newTestServer(t, serverOptions{feedSource: source})

	code, body := doRequest(t, s, "/api/posts?count=zero")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "InvalidRequest", body["error"])

	code, _ = doRequest(t, s, "/api/posts?count=-1")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPostsEmptyFallsBackToProfile(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	code, body := doRequest(t, s, "/api/posts")
	assert.Equal(t, http.StatusOK, code, "no content is still a 200")
	assert.Equal(t, "empty", body["status"])
	assert.Equal(t, "https://bsky.app/profile/j4ck.xyz", body["fallback"])
}

func TestLatestPost(t *testing.T) {
	source := &stubFeedSource{page: &bluesky.FeedPage{Items: []bluesky.FeedItem{
		ownPost("1", "most recent"),
		ownPost("2", "older"),
	}}}
	s := newTestServer(t, serverOptions{feedSource: source})

	code, body := doRequest(t, s, "/api/posts/latest")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	post, ok := body["post"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "most recent", post["text"])
}

func TestGallery(t *testing.T) {
	source := &stubFeedSource{page: &bluesky.FeedPage{Items: []bluesky.FeedItem{
		imagePost("1", "golden hour #photography"),
		ownPost("2", "words only"),
		imagePost("3", "lunch #food"),
	}}}
	s := newTestServer(t, serverOptions{feedSource: source})

	code, body := doRequest(t, s, "/api/gallery")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Len(t, body["entries"], 1, "only allow-listed tags with an image qualify")
}

func TestPhotos(t *testing.T) {
	uri := "at://did:plc:owner/app.bsky.feed.post/photo1"
	view := imagePost("photo1", "from the portfolio").Post
	s := newTestServer(t, serverOptions{
		portfolio: &stubPortfolio{items: []grain.PortfolioItem{{PostURI: uri}}},
		posts:     &stubPosts{views: map[string]bluesky.PostView{uri: *view}},
	})

	code, body := doRequest(t, s, "/api/photos")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Len(t, body["posts"], 1)
}

func TestBlogs(t *testing.T) {
	value, _ := json.Marshal(map[string]string{
		"title": "Hello", "publishedAt": "2026-08-01T00:00:00Z",
	})
	s := newTestServer(t, serverOptions{
		records: &stubPosts{records: []bluesky.Record{
			{URI: "at://did:plc:owner/pub.leaflet.document/hello", Value: value},
		}},
	})

	code, body := doRequest(t, s, "/api/blogs")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Len(t, body["blogs"], 1)
}

func TestRepos(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name": "linkhub", "html_url": "https://github.com/j4ckxyz/linkhub"}]`)
	}))
	defer upstream.Close()

	s := newTestServer(t, serverOptions{githubBase: upstream.URL})

	code, body := doRequest(t, s, "/api/repos")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Len(t, body["repos"], 1)
	assert.Equal(t, false, body["cached"])

	_, body = doRequest(t, s, "/api/repos")
	assert.Equal(t, true, body["cached"])
}

func TestReposUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	s := newTestServer(t, serverOptions{githubBase: upstream.URL})

	code, body := doRequest(t, s, "/api/repos")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "empty", body["status"])
	assert.Equal(t, "https://github.com/j4ckxyz", body["fallback"])
}
