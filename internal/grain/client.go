// Package grain is a client for the Grain photo aggregation GraphQL
// endpoint. It covers the two read queries the site uses: the curated
// portfolio ordering and the direct photo listing.
package grain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client posts GraphQL queries to a single endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a Grain GraphQL client for the given endpoint URL.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PortfolioItem is one entry of the curated portfolio: a post reference
// with its explicit manual position.
type PortfolioItem struct {
	PostURI   string
	Position  int
	CreatedAt time.Time
}

const portfolioQuery = `
query GetPortfolio($handle: String!, $limit: Int = 50) {
  socialGrainGalleryItem(
    where: { actorHandle: { eq: $handle } }
    sortBy: [
      { field: position, direction: ASC }
      { field: createdAt, direction: DESC }
    ]
    first: $limit
  ) {
    edges {
      node {
        post
        position
        createdAt
      }
    }
  }
}`

// PortfolioItems returns the curated post references in display order:
// explicit position ascending, then creation time descending. An empty
// result is not an error; the caller falls back to the authoritative
// repository listing.
func (c *Client) PortfolioItems(ctx context.Context, handle string, limit int) ([]PortfolioItem, error) {
	var data struct {
		SocialGrainGalleryItem struct {
			Edges []struct {
				Node struct {
					Post      string `json:"post"`
					Position  int    `json:"position"`
					CreatedAt string `json:"createdAt"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"socialGrainGalleryItem"`
	}

	vars := map[string]any{"handle": handle, "limit": limit}
	if err := c.query(ctx, portfolioQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("portfolio query: %w", err)
	}

	items := make([]PortfolioItem, 0, len(data.SocialGrainGalleryItem.Edges))
	for _, edge := range data.SocialGrainGalleryItem.Edges {
		created, _ := time.Parse(time.RFC3339, edge.Node.CreatedAt)
		items = append(items, PortfolioItem{
			PostURI:   edge.Node.Post,
			Position:  edge.Node.Position,
			CreatedAt: created,
		})
	}
	return items, nil
}

// Photo is one entry of the direct photo listing.
type Photo struct {
	URI       string
	Alt       string
	URL       string
	CreatedAt time.Time
}

const photosQuery = `
query GetUserPhotos($handle: String!, $limit: Int = 20) {
  socialGrainPhoto(
    where: { actorHandle: { eq: $handle } }
    sortBy: [{ field: createdAt, direction: DESC }]
    first: $limit
  ) {
    edges {
      node {
        uri
        createdAt
        alt
        photo {
          url(preset: "feed_fullsize")
        }
      }
    }
  }
}`

// Photos returns the actor's photos newest-first.
func (c *Client) Photos(ctx context.Context, handle string, limit int) ([]Photo, error) {
	var data struct {
		SocialGrainPhoto struct {
			Edges []struct {
				Node struct {
					URI       string `json:"uri"`
					CreatedAt string `json:"createdAt"`
					Alt       string `json:"alt"`
					Photo     *struct {
						URL string `json:"url"`
					} `json:"photo"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"socialGrainPhoto"`
	}

	vars := map[string]any{"handle": handle, "limit": limit}
	if err := c.query(ctx, photosQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("photos query: %w", err)
	}

	photos := make([]Photo, 0, len(data.SocialGrainPhoto.Edges))
	for _, edge := range data.SocialGrainPhoto.Edges {
		if edge.Node.Photo == nil || edge.Node.Photo.URL == "" {
			continue
		}
		created, _ := time.Parse(time.RFC3339, edge.Node.CreatedAt)
		photos = append(photos, Photo{
			URI:       edge.Node.URI,
			Alt:       edge.Node.Alt,
			URL:       edge.Node.Photo.URL,
			CreatedAt: created,
		})
	}
	return photos, nil
}

func (c *Client) query(ctx context.Context, query string, vars map[string]any, data any) error {
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": vars,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}
	if data != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, data); err != nil {
			return fmt.Errorf("unmarshal data: %w", err)
		}
	}
	return nil
}
