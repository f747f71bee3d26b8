package bluesky

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultAppView = "https://public.api.bsky.app"

// getPostsMaxURIs is the app view's limit on a single getPosts call. Callers
// needing more must chunk.
const getPostsMaxURIs = 25

// Client is a minimal read-only BlueSky/AT Protocol API client. It only
// covers the public endpoints the aggregation pipelines consume; there is no
// authentication and no write path.
type Client struct {
	base       string
	httpClient *http.Client
}

// NewClient creates a new BlueSky API client. If base is empty, it defaults
// to the public app view.
func NewClient(base string) *Client {
	if base == "" {
		base = defaultAppView
	}
	return &Client{
		base: base,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetAuthorFeed fetches one page of the actor's feed. An empty cursor
// requests the first page; the returned page's cursor is empty once the feed
// is exhausted.
func (c *Client) GetAuthorFeed(ctx context.Context, actor string, limit int, cursor string) (*FeedPage, error) {
	params := url.Values{}
	params.Set("actor", actor)
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var page FeedPage
	if err := c.get(ctx, "/xrpc/app.bsky.feed.getAuthorFeed", params, &page); err != nil {
		return nil, fmt.Errorf("get author feed: %w", err)
	}
	return &page, nil
}

// GetPosts batch-resolves post views by AT-URI. The app view caps a single
// call at 25 URIs; longer lists must be chunked by the caller.
func (c *Client) GetPosts(ctx context.Context, uris []string) ([]PostView, error) {
	if len(uris) == 0 {
		return nil, nil
	}
	if len(uris) > getPostsMaxURIs {
		return nil, fmt.Errorf("get posts: %d uris exceeds the %d per-call limit", len(uris), getPostsMaxURIs)
	}

	params := url.Values{}
	for _, uri := range uris {
		params.Add("uris", uri)
	}

	var resp struct {
		Posts []PostView `json:"posts"`
	}
	if err := c.get(ctx, "/xrpc/app.bsky.feed.getPosts", params, &resp); err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}
	return resp.Posts, nil
}

// ListRecords lists raw records of a collection in the given repo. Used as
// the authoritative fallback when a derived index is unavailable.
func (c *Client) ListRecords(ctx context.Context, repo, collection string, limit int) ([]Record, error) {
	params := url.Values{}
	params.Set("repo", repo)
	params.Set("collection", collection)
	params.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Records []Record `json:"records"`
	}
	if err := c.get(ctx, "/xrpc/com.atproto.repo.listRecords", params, &resp); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return resp.Records, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
