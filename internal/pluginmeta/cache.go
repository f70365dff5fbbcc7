// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package pluginmeta

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Source is the actual external collaborator a CachedProvider fronts — an
// out-of-process plugin invocation, a sidecar API, etc. It is intentionally
// not specified further here (§9: "no plugin discovery/config loading"):
// callers supply whatever Source talks to their plugin runtime.
type Source interface {
	Fetch(ctx context.Context, path, plugin string) (map[string]any, error)
}

// CachedProvider wraps a Source with a Badger-backed TTL cache keyed on
// (path, plugin), so a policy phase that queries the same plugin field
// across many evaluation passes of one file doesn't re-invoke a possibly
// slow external plugin process every time (spec §6.4 requires the mapping
// be idempotent across one evaluation; this cache extends that guarantee
// across a TTL window spanning multiple evaluations of the same file).
type CachedProvider struct {
	db     *badger.DB
	source Source
	ttl    time.Duration
}

// Open opens (or creates) a Badger database at path for the plugin
// metadata cache. The caller must Close it.
func Open(path string, source Source, ttl time.Duration) (*CachedProvider, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("pluginmeta: open cache at %q: %w", path, err)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedProvider{db: db, source: source, ttl: ttl}, nil
}

func (c *CachedProvider) Close() error { return c.db.Close() }

func cacheKey(path, plugin string) []byte {
	return []byte("pluginmeta:" + plugin + ":" + path)
}

// Fetch returns the cached mapping for (path, plugin) if present and
// unexpired, otherwise calls through to Source and caches the result.
func (c *CachedProvider) Fetch(ctx context.Context, path, plugin string) (map[string]any, error) {
	key := cacheKey(path, plugin)

	var cached map[string]any
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cached)
		})
	})
	if err == nil {
		return cached, nil
	}
	if err != badger.ErrKeyNotFound {
		return nil, fmt.Errorf("pluginmeta: cache lookup: %w", err)
	}

	fields, err := c.source.Fetch(ctx, path, plugin)
	if err != nil {
		return nil, &FetchError{Path: path, Plugin: plugin, Cause: err}
	}

	buf, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("pluginmeta: marshal cache entry: %w", err)
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, buf).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	}); err != nil {
		return nil, fmt.Errorf("pluginmeta: cache store: %w", err)
	}

	return fields, nil
}

var _ Provider = (*CachedProvider)(nil)
