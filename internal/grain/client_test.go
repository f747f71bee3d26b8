package grain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioItems(t *testing.T) {
	var gotRequest struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		fmt.Fprint(w, `{
			"data": {
				"socialGrainGalleryItem": {
					"edges": [
						{"node": {"post": "at://did:plc:a/app.bsky.feed.post/1", "position": 1, "createdAt": "2026-06-01T00:00:00Z"}},
						{"node": {"post": "at://did:plc:a/app.bsky.feed.post/2", "position": 2, "createdAt": "2026-05-01T00:00:00Z"}}
					]
				}
			}
		}`)
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL).PortfolioItems(context.Background(), "j4ck.xyz", 50)
	require.NoError(t, err)

	assert.Contains(t, gotRequest.Query, "socialGrainGalleryItem")
	assert.Equal(t, "j4ck.xyz", gotRequest.Variables["handle"])
	assert.Equal(t, float64(50), gotRequest.Variables["limit"])

	require.Len(t, items, 2)
	assert.Equal(t, "at://did:plc:a/app.bsky.feed.post/1", items[0].PostURI)
	assert.Equal(t, 1, items[0].Position)
	assert.True(t, items[0].CreatedAt.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPortfolioItemsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"socialGrainGalleryItem": {"edges": []}}}`)
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL).PortfolioItems(context.Background(), "j4ck.xyz", 50)
	require.NoError(t, err)
	assert.Empty(t, items, "an empty portfolio is not an error")
}

func TestPhotos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"data": {
				"socialGrainPhoto": {
					"edges": [
						{"node": {"uri": "at://p/1", "alt": "sunset", "createdAt": "2026-08-01T00:00:00Z", "photo": {"url": "https://cdn/p1.jpg"}}},
						{"node": {"uri": "at://p/2", "alt": "broken", "createdAt": "2026-07-01T00:00:00Z", "photo": null}}
					]
				}
			}
		}`)
	}))
	defer srv.Close()

	photos, err := NewClient(srv.URL).Photos(context.Background(), "j4ck.xyz", 20)
	require.NoError(t, err)

	require.Len(t, photos, 1, "entries without a resolvable URL are dropped")
	assert.Equal(t, "at://p/1", photos[0].URI)
	assert.Equal(t, "sunset", photos[0].Alt)
	assert.Equal(t, "https://cdn/p1.jpg", photos[0].URL)
}

func TestGraphQLErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": null, "errors": [{"message": "field does not exist"}]}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).PortfolioItems(context.Background(), "j4ck.xyz", 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field does not exist")
}

func TestHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Photos(context.Background(), "j4ck.xyz", 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}
