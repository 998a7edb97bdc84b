package domain

import (
	"sort"
	"strings"
	"time"
)

// Catalog maps a store short code to its product list.
type Catalog map[string][]Product

// ProductsFor returns the product list for a store, normalizing the key to
// lowercase. Unknown stores yield an empty list, not an error.
func (c Catalog) ProductsFor(store string) []Product {
	return c[strings.ToLower(strings.TrimSpace(store))]
}

// StoreKeys returns the catalog's store codes in sorted order so that
// iteration is deterministic.
func (c Catalog) StoreKeys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TotalProducts counts products across all stores.
func (c Catalog) TotalProducts() int {
	total := 0
	for _, products := range c {
		total += len(products)
	}
	return total
}

// Snapshot is a timestamped catalog as persisted in the local cache file.
type Snapshot struct {
	CachedAt time.Time `json:"cached_at"`
	Data     Catalog   `json:"data"`
}

// Stale reports whether the snapshot is older than maxAge at the given time.
func (s *Snapshot) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.CachedAt) > maxAge
}
