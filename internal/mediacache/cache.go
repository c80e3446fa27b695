package mediacache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"peiyin/internal/config"
	"peiyin/internal/fileutil"
	"peiyin/internal/logging"
	"peiyin/internal/metrics"
	"peiyin/internal/queue"
)

// keyLength is the number of hex characters kept from the SHA-256 digest.
const keyLength = 32

// Store is the subset of the job store the cache needs.
type Store interface {
	GetCacheEntry(ctx context.Context, urlHash string, kind queue.CacheKind) (*queue.CacheEntry, error)
	InsertCacheEntry(ctx context.Context, entry queue.CacheEntry) (bool, error)
	ListCacheEntries(ctx context.Context, kind queue.CacheKind) ([]queue.CacheEntry, error)
}

// Manager resolves and records cached artifacts.
type Manager struct {
	store  Store
	dirs   map[queue.CacheKind]string
	root   string
	logger *slog.Logger
}

// NewManager builds a cache manager rooted at the configured cache dirs.
func NewManager(cfg *config.Config, store Store, logger *slog.Logger) *Manager {
	return &Manager{
		store: store,
		dirs: map[queue.CacheKind]string{
			queue.CacheBackgroundAudio: cfg.BackgroundAudioCacheDir(),
			queue.CacheMuteVideo:       cfg.MuteVideoCacheDir(),
		},
		root:   cfg.Paths.CacheDir,
		logger: logging.NewComponentLogger(logger, "mediacache"),
	}
}

// Key derives the fixed-length cache key for a source URL.
func Key(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(sum[:])[:keyLength]
}

// Path returns the canonical file location for (sourceURL, kind).
func (m *Manager) Path(sourceURL string, kind queue.CacheKind) (string, error) {
	dir, ok := m.dirs[kind]
	if !ok {
		return "", fmt.Errorf("unknown cache kind %q", kind)
	}
	key := Key(sourceURL)
	switch kind {
	case queue.CacheBackgroundAudio:
		return filepath.Join(dir, key+"_background.mp3"), nil
	default:
		return filepath.Join(dir, key+"_mute.mp4"), nil
	}
}

// Lookup returns the cached path when both the row and a non-empty file
// exist. A dangling row is a miss.
func (m *Manager) Lookup(ctx context.Context, sourceURL string, kind queue.CacheKind) (string, bool, error) {
	entry, err := m.store.GetCacheEntry(ctx, Key(sourceURL), kind)
	if err != nil {
		return "", false, err
	}
	if entry == nil {
		metrics.IncCacheLookup(string(kind), "miss")
		return "", false, nil
	}
	if !fileutil.IsNonEmptyFile(entry.Path) {
		metrics.IncCacheLookup(string(kind), "dangling")
		logging.WithContext(ctx, m.logger).Info("cache entry file missing; treating as miss",
			logging.String(logging.FieldEventType, "cache_dangling"),
			logging.String("kind", string(kind)),
			logging.String("path", entry.Path),
		)
		return "", false, nil
	}
	metrics.IncCacheLookup(string(kind), "hit")
	logging.WithContext(ctx, m.logger).Debug("cache hit",
		logging.String(logging.FieldEventType, "cache_hit"),
		logging.String("kind", string(kind)),
		logging.String("path", entry.Path),
	)
	return entry.Path, true, nil
}

// Store moves the freshly computed artifact at src to its canonical path and
// records it. An existing row is never modified; since paths are
// deterministic, storing over a dangling row restores its file. The returned
// path is the canonical location.
func (m *Manager) Store(ctx context.Context, sourceURL string, kind queue.CacheKind, src string) (string, error) {
	dst, err := m.Path(sourceURL, kind)
	if err != nil {
		return "", err
	}
	if err := fileutil.Publish(src, dst); err != nil {
		return "", fmt.Errorf("publish cache file: %w", err)
	}
	inserted, err := m.store.InsertCacheEntry(ctx, queue.CacheEntry{
		URLHash:   Key(sourceURL),
		Kind:      kind,
		SourceURL: sourceURL,
		Path:      dst,
	})
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, m.logger).Info("cache stored",
		logging.String(logging.FieldEventType, "cache_stored"),
		logging.String("kind", string(kind)),
		logging.String("path", dst),
		logging.Bool("new_entry", inserted),
	)
	return dst, nil
}

// KindStats summarises one artifact kind.
type KindStats struct {
	Kind    queue.CacheKind
	Entries int
	Missing int
	Bytes   int64
}

// Stats summarises the whole cache.
type Stats struct {
	Kinds       []KindStats
	TotalBytes  int64
	FreeBytes   uint64
	FreePercent float64
}

// lowSpacePercent triggers the unbounded-growth warning.
const lowSpacePercent = 10.0

// Stats walks every entry and reports usage. The cache has no eviction, so
// a warning is logged when free space on the cache filesystem is low.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	for _, kind := range queue.AllCacheKinds() {
		entries, err := m.store.ListCacheEntries(ctx, kind)
		if err != nil {
			return stats, err
		}
		ks := KindStats{Kind: kind, Entries: len(entries)}
		for _, entry := range entries {
			info, err := os.Stat(entry.Path)
			if err != nil {
				ks.Missing++
				continue
			}
			ks.Bytes += info.Size()
		}
		stats.TotalBytes += ks.Bytes
		stats.Kinds = append(stats.Kinds, ks)
	}

	free, total, err := diskSpace(m.root)
	if err != nil {
		m.logger.Debug("cache disk usage unavailable", logging.Error(err))
		return stats, nil
	}
	stats.FreeBytes = free
	if total > 0 {
		stats.FreePercent = float64(free) / float64(total) * 100
	}
	if total > 0 && stats.FreePercent < lowSpacePercent {
		logging.WarnWithContext(m.logger, "media cache filesystem low on space", "cache_low_space",
			logging.Float64("free_percent", stats.FreePercent),
			logging.Int64("cache_bytes", stats.TotalBytes),
			logging.String(logging.FieldErrorHint, "cache entries are never evicted; prune "+m.root+" manually"),
			logging.String(logging.FieldImpact, "new jobs may fail once the disk fills"),
		)
	}
	return stats, nil
}
