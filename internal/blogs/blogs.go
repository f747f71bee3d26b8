// Package blogs lists the account's published blog documents straight from
// its PDS repository.
package blogs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/j4ckxyz/linkhub/internal/bluesky"
)

// RecordSource lists raw repository records.
type RecordSource interface {
	ListRecords(ctx context.Context, repo, collection string, limit int) ([]bluesky.Record, error)
}

// BlogPost is one published document.
type BlogPost struct {
	URI         string    `json:"uri"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Service lists blog documents for a single repo.
type Service struct {
	source     RecordSource
	repo       string
	collection string
	baseURL    string
	limit      int
	logger     *slog.Logger
}

// NewService creates a blog listing service. baseURL is the public reader
// URL documents are linked under, keyed by record key.
func NewService(source RecordSource, repo, collection, baseURL string, limit int, logger *slog.Logger) *Service {
	if limit <= 0 {
		limit = 20
	}
	return &Service{
		source:     source,
		repo:       repo,
		collection: collection,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		limit:      limit,
		logger:     logger,
	}
}

// List returns the published documents newest-first. A record that does not
// decode is skipped.
func (s *Service) List(ctx context.Context) ([]BlogPost, error) {
	records, err := s.source.ListRecords(ctx, s.repo, s.collection, s.limit)
	if err != nil {
		return nil, fmt.Errorf("list blog records: %w", err)
	}

	posts := make([]BlogPost, 0, len(records))
	for _, record := range records {
		var value struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
		}
		if err := json.Unmarshal(record.Value, &value); err != nil {
			s.logger.Warn("skipping undecodable blog record", "uri", record.URI, "error", err)
			continue
		}

		published, _ := time.Parse(time.RFC3339, value.PublishedAt)
		posts = append(posts, BlogPost{
			URI:         record.URI,
			Title:       value.Title,
			Description: value.Description,
			URL:         s.baseURL + "/" + recordKey(record.URI),
			PublishedAt: published,
		})
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PublishedAt.After(posts[j].PublishedAt)
	})
	return posts, nil
}

func recordKey(uri string) string {
	parts := strings.Split(uri, "/")
	return parts[len(parts)-1]
}
