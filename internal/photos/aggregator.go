// Package photos resolves the curated photo portfolio into hydrated posts
// with images. It is a pipeline independent of the chronological feed: no
// reply/repost filtering applies, membership is driven purely by the
// curated portfolio list.
package photos

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/j4ckxyz/linkhub/internal/bluesky"
	"github.com/j4ckxyz/linkhub/internal/feed"
	"github.com/j4ckxyz/linkhub/internal/grain"
)

// lookupChunkSize matches the app view's per-call getPosts limit.
const lookupChunkSize = 25

// PortfolioSource is the primary, derived ordering of the portfolio.
type PortfolioSource interface {
	PortfolioItems(ctx context.Context, handle string, limit int) ([]grain.PortfolioItem, error)
}

// PostSource hydrates post references and lists the authoritative fallback
// collection.
type PostSource interface {
	GetPosts(ctx context.Context, uris []string) ([]bluesky.PostView, error)
	ListRecords(ctx context.Context, repo, collection string, limit int) ([]bluesky.Record, error)
}

// Aggregator resolves the portfolio into posts carrying a primary image.
type Aggregator struct {
	portfolio  PortfolioSource
	posts      PostSource
	owner      string
	collection string
	limit      int
	logger     *slog.Logger
}

// NewAggregator creates an Aggregator for the owner's portfolio. collection
// is the repository collection listed when the derived portfolio source
// yields nothing.
func NewAggregator(portfolio PortfolioSource, posts PostSource, owner, collection string, limit int, logger *slog.Logger) *Aggregator {
	if limit <= 0 {
		limit = 50
	}
	return &Aggregator{
		portfolio:  portfolio,
		posts:      posts,
		owner:      owner,
		collection: collection,
		limit:      limit,
		logger:     logger,
	}
}

// FetchPhotoPosts resolves the curated post references, hydrates them in
// chunks, and returns the posts that carry at least one image, each with
// its first image projected as the primary. A failed chunk is skipped, not
// fatal to the whole aggregation.
func (a *Aggregator) FetchPhotoPosts(ctx context.Context) ([]feed.Post, error) {
	uris, err := a.resolveReferences(ctx)
	if err != nil {
		return nil, err
	}

	var posts []feed.Post
	for start := 0; start < len(uris); start += lookupChunkSize {
		end := min(start+lookupChunkSize, len(uris))
		chunk := uris[start:end]

		views, err := a.posts.GetPosts(ctx, chunk)
		if err != nil {
			a.logger.Warn("skipping failed lookup chunk", "from", start, "size", len(chunk), "error", err)
			continue
		}

		for _, view := range views {
			post, ok := feed.DecodePost(bluesky.FeedItem{Post: &view})
			if !ok {
				continue
			}
			if len(post.Images) == 0 {
				continue
			}
			primary := post.Images[0]
			post.PrimaryImage = &primary
			posts = append(posts, post)
		}
	}

	return posts, nil
}

// resolveReferences returns the ordered portfolio post URIs: the derived
// GraphQL ordering when it has entries, otherwise the authoritative
// repository listing re-sorted client-side with the same two keys.
func (a *Aggregator) resolveReferences(ctx context.Context) ([]string, error) {
	items, err := a.portfolio.PortfolioItems(ctx, a.owner, a.limit)
	if err != nil {
		a.logger.Warn("portfolio source failed, falling back to repo listing", "error", err)
	}
	if len(items) > 0 {
		uris := make([]string, 0, len(items))
		for _, item := range items {
			if item.PostURI != "" {
				uris = append(uris, item.PostURI)
			}
		}
		return uris, nil
	}

	records, err := a.posts.ListRecords(ctx, a.owner, a.collection, a.limit)
	if err != nil {
		return nil, fmt.Errorf("list portfolio records: %w", err)
	}

	type entry struct {
		uri       string
		position  int
		createdAt time.Time
	}
	entries := make([]entry, 0, len(records))
	for _, record := range records {
		var value struct {
			Post      string `json:"post"`
			Position  int    `json:"position"`
			CreatedAt string `json:"createdAt"`
		}
		if err := json.Unmarshal(record.Value, &value); err != nil || value.Post == "" {
			continue
		}
		created, _ := time.Parse(time.RFC3339, value.CreatedAt)
		entries = append(entries, entry{uri: value.Post, position: value.Position, createdAt: created})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].position != entries[j].position {
			return entries[i].position < entries[j].position
		}
		return entries[i].createdAt.After(entries[j].createdAt)
	})

	uris := make([]string, len(entries))
	for i, e := range entries {
		uris[i] = e.uri
	}
	return uris, nil
}
