// Package cache implements a string-keyed, time-boxed cache with a
// stale-while-revalidate read path: a fresh entry is served immediately
// while a background refresh is kicked off; a missing or expired entry is
// fetched in the foreground.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Entry is the persisted unit: a raw data blob and the time it was written.
// Entries are overwritten wholesale, never merged, and are ignored entirely
// once their age exceeds the configured duration.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store is the persistence backend for cache entries. Get returns (nil, nil)
// on a miss. Implementations: SQLStore, RedisStore.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, entry *Entry) error
	Delete(ctx context.Context, key string) error
}

// FetchFunc produces a fresh raw value for a cache key.
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

// Manager is the only writer to the store. Writes to the same key are
// serialized by a per-key lock so concurrent pipelines cannot interleave,
// and at most one background refresh per key is in flight at a time.
// Background refreshes run under the Manager's lifecycle context; Close
// cancels them, so nothing writes after teardown.
type Manager struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	keys map[string]*keyState
}

type keyState struct {
	mu         sync.Mutex
	refreshing bool
}

// NewManager creates a Manager over the given store.
func NewManager(store Store, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:  store,
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close cancels any in-flight background refreshes.
func (m *Manager) Close() {
	m.cancel()
}

// GetOrFetch returns the cached value for key when its age is within
// maxAge, scheduling a fire-and-forget refresh, or fetches in the
// foreground otherwise. The second return reports whether the value came
// from the cache. All failures (store read, corrupt entry, foreground
// fetch) degrade to (nil, false) after logging; callers must treat an empty
// result as unknown, not as confirmed-empty. A failed background refresh is
// swallowed and the cached entry stays authoritative.
func (m *Manager) GetOrFetch(ctx context.Context, key string, maxAge time.Duration, fetch FetchFunc) (json.RawMessage, bool) {
	entry, err := m.store.Get(ctx, key)
	if err != nil {
		// Corrupt or unreadable entries count as a miss.
		m.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		entry = nil
	}

	if entry != nil && m.now().Sub(entry.Timestamp) <= maxAge {
		m.refreshInBackground(key, fetch)
		return entry.Data, true
	}

	data, err := fetch(ctx)
	if err != nil {
		m.logger.Error("foreground fetch failed", "key", key, "error", err)
		return nil, false
	}
	m.write(ctx, key, data)
	return data, false
}

// Invalidate removes the entry for key so the next read refetches.
func (m *Manager) Invalidate(ctx context.Context, key string) error {
	ks := m.keyState(key)
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return m.store.Delete(ctx, key)
}

func (m *Manager) refreshInBackground(key string, fetch FetchFunc) {
	ks := m.keyState(key)

	ks.mu.Lock()
	if ks.refreshing {
		ks.mu.Unlock()
		return
	}
	ks.refreshing = true
	ks.mu.Unlock()

	go func() {
		defer func() {
			ks.mu.Lock()
			ks.refreshing = false
			ks.mu.Unlock()
		}()

		data, err := fetch(m.ctx)
		if err != nil {
			m.logger.Warn("background refresh failed, keeping cached data", "key", key, "error", err)
			return
		}
		m.write(m.ctx, key, data)
	}()
}

func (m *Manager) write(ctx context.Context, key string, data json.RawMessage) {
	ks := m.keyState(key)
	ks.mu.Lock()
	defer ks.mu.Unlock()

	entry := &Entry{Data: data, Timestamp: m.now()}
	if err := m.store.Put(ctx, key, entry); err != nil {
		m.logger.Error("cache write failed", "key", key, "error", err)
	}
}

func (m *Manager) keyState(key string) *keyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string]*keyState)
	}
	ks, ok := m.keys[key]
	if !ok {
		ks = &keyState{}
		m.keys[key] = ks
	}
	return ks
}

// GetOrFetch is the typed wrapper over Manager.GetOrFetch: values are
// marshalled to JSON for storage and unmarshalled on the way out. A cached
// blob that no longer unmarshals into T is treated as a miss.
func GetOrFetch[T any](ctx context.Context, m *Manager, key string, maxAge time.Duration, fetch func(ctx context.Context) (T, error)) (T, bool) {
	raw, cached := m.GetOrFetch(ctx, key, maxAge, func(ctx context.Context) (json.RawMessage, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	})

	var value T
	if len(raw) == 0 {
		return value, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		if cached {
			m.logger.Warn("cached data no longer decodes, refetching", "key", key, "error", err)
			if err := m.Invalidate(ctx, key); err != nil {
				m.logger.Warn("cache invalidation failed", "key", key, "error", err)
			}
			return GetOrFetch(ctx, m, key, maxAge, fetch)
		}
		var zero T
		return zero, false
	}
	return value, cached
}
