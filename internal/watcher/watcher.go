// Package watcher subscribes to Jetstream and invalidates the feed cache
// keys whenever the tracked account creates or deletes a post, so the next
// read refetches instead of waiting out the cache age.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/j4ckxyz/linkhub/internal/cache"
)

const (
	cursorKey          = "jetstream.cursor"
	cursorSaveInterval = 5 * time.Second
	reconnectDelay     = 5 * time.Second

	postCollection = "app.bsky.feed.post"
)

// Watcher connects to Jetstream, filtered down to the tracked account's
// post commits.
type Watcher struct {
	url      string
	ownerDID string
	keys     []string
	manager  *cache.Manager
	store    cache.Store
	logger   *slog.Logger
}

// New creates a Watcher that invalidates the given cache keys on owner post
// activity. The store persists the stream cursor across restarts.
func New(jetstreamURL, ownerDID string, keys []string, manager *cache.Manager, store cache.Store, logger *slog.Logger) *Watcher {
	return &Watcher{
		url:      jetstreamURL,
		ownerDID: ownerDID,
		keys:     keys,
		manager:  manager,
		store:    store,
		logger:   logger,
	}
}

// Start connects to Jetstream and processes events until the context is
// cancelled. It automatically reconnects on transient errors.
func (w *Watcher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := w.subscribe(ctx); err != nil {
				w.logger.Error("jetstream connection error, reconnecting", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectDelay):
				}
			}
		}
	}
}

func (w *Watcher) buildURL(cursor int64) string {
	u, _ := url.Parse(w.url)
	q := u.Query()
	q.Add("wantedCollections", postCollection)
	q.Add("wantedDids", w.ownerDID)
	if cursor > 0 {
		q.Set("cursor", fmt.Sprintf("%d", cursor))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (w *Watcher) subscribe(ctx context.Context) error {
	cursor := w.loadCursor(ctx)

	wsURL := w.buildURL(cursor)
	w.logger.Info("connecting to jetstream", "url", wsURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial jetstream: %w", err)
	}
	defer conn.Close()

	w.logger.Info("connected to jetstream")

	lastCursorSave := time.Now()
	var latestCursor int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		event, err := parseEvent(message)
		if err != nil {
			w.logger.Error("failed to parse event", "error", err)
			continue
		}

		latestCursor = event.TimeUS

		if w.isOwnerPostCommit(event) {
			w.logger.Info("owner post activity, invalidating feed cache",
				"operation", event.Commit.Operation,
				"rkey", event.Commit.RKey,
			)
			for _, key := range w.keys {
				if err := w.manager.Invalidate(ctx, key); err != nil {
					w.logger.Error("cache invalidation failed", "key", key, "error", err)
				}
			}
		}

		if time.Since(lastCursorSave) >= cursorSaveInterval {
			w.saveCursor(ctx, latestCursor)
			lastCursorSave = time.Now()
		}
	}
}

func (w *Watcher) isOwnerPostCommit(event *jetstreamEvent) bool {
	if event.Kind != "commit" || event.Commit == nil {
		return false
	}
	if event.DID != w.ownerDID || event.Commit.Collection != postCollection {
		return false
	}
	return event.Commit.Operation == "create" || event.Commit.Operation == "delete"
}

func (w *Watcher) loadCursor(ctx context.Context) int64 {
	entry, err := w.store.Get(ctx, cursorKey)
	if err != nil || entry == nil {
		if err != nil {
			w.logger.Warn("failed to load cursor, starting from live", "error", err)
		}
		return 0
	}
	var cursor int64
	if err := json.Unmarshal(entry.Data, &cursor); err != nil {
		w.logger.Warn("undecodable cursor, starting from live", "error", err)
		return 0
	}
	return cursor
}

func (w *Watcher) saveCursor(ctx context.Context, cursor int64) {
	data, err := json.Marshal(cursor)
	if err != nil {
		return
	}
	entry := &cache.Entry{Data: data, Timestamp: time.Now().UTC()}
	if err := w.store.Put(ctx, cursorKey, entry); err != nil {
		w.logger.Error("failed to save cursor", "error", err)
	}
}

// jetstreamEvent is the raw JSON structure from Jetstream, trimmed to the
// fields the watcher inspects.
type jetstreamEvent struct {
	DID    string           `json:"did"`
	TimeUS int64            `json:"time_us"`
	Kind   string           `json:"kind"`
	Commit *jetstreamCommit `json:"commit,omitempty"`
}

type jetstreamCommit struct {
	Operation  string `json:"operation"`
	Collection string `json:"collection"`
	RKey       string `json:"rkey"`
}

func parseEvent(data []byte) (*jetstreamEvent, error) {
	var event jetstreamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}
