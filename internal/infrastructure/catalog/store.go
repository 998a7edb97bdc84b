package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// DefaultMaxAge is how long a snapshot stays fresh before the next catalog
// read triggers a feed refresh.
const DefaultMaxAge = 24 * time.Hour

// StoreConfig holds configuration for the file-backed catalog store
type StoreConfig struct {
	CacheFile string
	MaxAge    time.Duration
	Now       func() time.Time
}

// Store serves the catalog from a local snapshot file, refreshing it from
// the feed when the snapshot is missing, corrupt, or stale. The clock is
// injected so staleness is testable without touching file mtimes.
type Store struct {
	client    *Client
	cacheFile string
	maxAge    time.Duration
	now       func() time.Time

	mu       sync.Mutex
	snapshot *domain.Snapshot
}

// NewStore creates a catalog store backed by the given feed client
func NewStore(client *Client, config StoreConfig) *Store {
	maxAge := config.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		client:    client,
		cacheFile: config.CacheFile,
		maxAge:    maxAge,
		now:       now,
	}
}

// Catalog returns the current catalog, from memory or the snapshot file if
// fresh, otherwise via a feed refresh.
func (s *Store) Catalog(ctx context.Context) (domain.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot != nil && !s.snapshot.Stale(s.now(), s.maxAge) {
		return s.snapshot.Data, nil
	}

	if snapshot := s.loadSnapshot(); snapshot != nil && !snapshot.Stale(s.now(), s.maxAge) {
		s.snapshot = snapshot
		return snapshot.Data, nil
	}

	return s.refreshLocked(ctx)
}

// Refresh forces a feed download regardless of snapshot freshness.
func (s *Store) Refresh(ctx context.Context) (domain.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Store) refreshLocked(ctx context.Context) (domain.Catalog, error) {
	catalog, err := s.client.Download(ctx)
	if err != nil {
		// A stale snapshot beats no data when the feed is unreachable
		if s.snapshot != nil {
			log.Printf("[CATALOG] Feed refresh failed, serving stale snapshot: %v", err)
			return s.snapshot.Data, nil
		}
		if snapshot := s.loadSnapshot(); snapshot != nil {
			log.Printf("[CATALOG] Feed refresh failed, serving stale snapshot: %v", err)
			s.snapshot = snapshot
			return snapshot.Data, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	snapshot := &domain.Snapshot{CachedAt: s.now(), Data: catalog}
	s.snapshot = snapshot

	if err := s.saveSnapshot(snapshot); err != nil {
		// Persisting is best effort; the in-memory snapshot still serves
		log.Printf("[CATALOG] Failed to persist snapshot: %v", err)
	}

	return catalog, nil
}

// Stats returns per-store product counts and the snapshot age, without
// triggering a refresh.
func (s *Store) Stats() (map[string]int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot
	if snapshot == nil {
		snapshot = s.loadSnapshot()
	}
	if snapshot == nil {
		return nil, time.Time{}, domain.ErrCatalogUnavailable
	}

	counts := make(map[string]int, len(snapshot.Data))
	for store, products := range snapshot.Data {
		counts[store] = len(products)
	}
	return counts, snapshot.CachedAt, nil
}

// loadSnapshot reads the snapshot file. A missing or corrupt file is not
// an error; it just means there is no usable snapshot.
func (s *Store) loadSnapshot() *domain.Snapshot {
	if s.cacheFile == "" {
		return nil
	}

	data, err := os.ReadFile(s.cacheFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[CATALOG] Failed to read snapshot file: %v", err)
		}
		return nil
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		log.Printf("[CATALOG] Corrupt snapshot file, ignoring: %v", err)
		return nil
	}
	if snapshot.Data == nil {
		return nil
	}

	return &snapshot
}

func (s *Store) saveSnapshot(snapshot *domain.Snapshot) error {
	if s.cacheFile == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.cacheFile), 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	// Write-then-rename so a crash mid-write never leaves a torn snapshot
	tmp := s.cacheFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.cacheFile)
}
