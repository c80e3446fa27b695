package queue

import (
	"context"
	"fmt"
)

// GetCacheEntry returns the cache row for (urlHash, kind), or nil when absent.
// Callers decide whether the referenced file still exists.
func (s *Store) GetCacheEntry(ctx context.Context, urlHash string, kind CacheKind) (*CacheEntry, error) {
	ctx = ensureContext(ctx)
	var entry CacheEntry
	found, err := getOne(ctx, s.db, &entry,
		`SELECT url_hash, kind, source_url, path, created_at FROM media_cache WHERE url_hash = ? AND kind = ?`,
		urlHash, kind)
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &entry, nil
}

// InsertCacheEntry adds a cache row. Rows are never updated: if one already
// exists for the key the call leaves it untouched and reports inserted=false.
func (s *Store) InsertCacheEntry(ctx context.Context, entry CacheEntry) (bool, error) {
	if entry.URLHash == "" || entry.Path == "" {
		return false, fmt.Errorf("insert cache entry: hash and path are required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.timestamp()
	}
	var inserted int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		res, err := s.db.NamedExecContext(ensureContext(ctx), `INSERT INTO media_cache (url_hash, kind, source_url, path, created_at)
			VALUES (:url_hash, :kind, :source_url, :path, :created_at)
			ON CONFLICT(url_hash, kind) DO NOTHING`, entry)
		if err != nil {
			return err
		}
		inserted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("insert cache entry: %w", err)
	}
	return inserted > 0, nil
}

// ListCacheEntries returns every row of one kind, oldest first.
func (s *Store) ListCacheEntries(ctx context.Context, kind CacheKind) ([]CacheEntry, error) {
	ctx = ensureContext(ctx)
	var entries []CacheEntry
	if err := s.db.SelectContext(ctx, &entries,
		`SELECT url_hash, kind, source_url, path, created_at FROM media_cache WHERE kind = ? ORDER BY created_at, url_hash`,
		kind); err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	return entries, nil
}
