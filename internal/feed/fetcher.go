package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/j4ckxyz/linkhub/internal/bluesky"
)

// maxFeedPages bounds the pagination loop in case the endpoint never stops
// returning cursors. Hitting it is an early stop, not an error.
const maxFeedPages = 10

// Source is the paginated author-feed endpoint the fetcher walks.
type Source interface {
	GetAuthorFeed(ctx context.Context, actor string, limit int, cursor string) (*bluesky.FeedPage, error)
}

// AdmitFunc decides whether a decoded post belongs in the result set.
type AdmitFunc func(Post) bool

// AdmitTimeline excludes replies and reposts; the chronological feed shows
// only the account's own top-level posts.
func AdmitTimeline(p Post) bool {
	return !p.IsReply && !p.IsRepost
}

// AdmitLatest admits reposts as well as the owner's own non-reply posts,
// evaluated in that order. Used by the single-latest-post widget.
func AdmitLatest(owner string) AdmitFunc {
	return func(p Post) bool {
		if p.IsRepost {
			return true
		}
		return p.Author.Handle == owner && !p.IsReply
	}
}

// Fetcher paginates an author feed via opaque cursors until a target count
// of admissible posts is collected, the feed is exhausted, or the page
// ceiling is hit. It performs no retries; any page failure aborts the whole
// call and the caller treats the result as unknown, not empty.
type Fetcher struct {
	source    Source
	actor     string
	pageLimit int
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher for the given actor. pageLimit is the number
// of items requested per page.
func NewFetcher(source Source, actor string, pageLimit int, logger *slog.Logger) *Fetcher {
	if pageLimit <= 0 {
		pageLimit = 30
	}
	return &Fetcher{
		source:    source,
		actor:     actor,
		pageLimit: pageLimit,
		logger:    logger,
	}
}

// Fetch collects at least target admissible posts when the feed has them.
// Whole pages are consumed: the final page's admissible posts are all
// appended even when that overshoots the target. A malformed record is
// skipped, not fatal to its page.
func (f *Fetcher) Fetch(ctx context.Context, target int, admit AdmitFunc) ([]Post, error) {
	var posts []Post
	cursor := ""

	for page := 0; page < maxFeedPages; page++ {
		resp, err := f.source.GetAuthorFeed(ctx, f.actor, f.pageLimit, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch feed page %d: %w", page+1, err)
		}

		for _, item := range resp.Items {
			post, ok := DecodePost(item)
			if !ok {
				f.logger.Warn("skipping malformed feed record", "actor", f.actor, "page", page+1)
				continue
			}
			if admit(post) {
				posts = append(posts, post)
			}
		}

		if len(posts) >= target {
			break
		}
		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}

	return posts, nil
}
