package usecase

import (
	"sort"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// defaultDealDiscount marks a price as a deal when it falls strictly below
// this fraction of the keyword's reference price.
const defaultDealDiscount = 0.75

// dealThreshold pairs a product keyword with its typical shelf price.
type dealThreshold struct {
	Keyword   string
	Reference float64
}

// dealThresholds lists common products and their normal price levels.
// The checkjebon feed carries no explicit sale markers, so suspiciously
// cheap staples stand in for "aanbiedingen". Order matters: a product is
// tagged under the first keyword whose price test it passes; a keyword
// match that is not cheap enough falls through to later keywords.
var dealThresholds = []dealThreshold{
	{"melk", 1.20},
	{"brood", 1.50},
	{"kaas", 3.00},
	{"boter", 2.00},
	{"eieren", 2.50},
	{"kip", 4.00},
	{"gehakt", 4.00},
	{"pasta", 1.00},
	{"rijst", 1.50},
	{"bier", 0.80},
	{"cola", 1.00},
	{"chips", 1.50},
	{"pizza", 2.50},
	{"yoghurt", 1.00},
	{"appels", 1.50},
	{"bananen", 1.50},
}

// PricingConfig holds configuration for the price comparator
type PricingConfig struct {
	DealDiscount float64
}

// Pricing implements catalog search, cross-store comparison, and the
// deal-detection heuristic. It reads the catalog only; receipt data never
// enters this path.
type Pricing struct {
	dealDiscount float64
}

// NewPricing creates a price comparator with the given configuration
func NewPricing(config PricingConfig) *Pricing {
	discount := config.DealDiscount
	if discount <= 0 || discount >= 1 {
		discount = defaultDealDiscount
	}
	return &Pricing{dealDiscount: discount}
}

// Search returns products whose lowercased name contains every query word
// as a substring, in any order. Results are sorted ascending by price;
// equal prices keep store-iteration order. A limit of 0 returns everything.
func (p *Pricing) Search(query string, catalog domain.Catalog, stores []string, limit int) []domain.StoreResult {
	queryWords := strings.Fields(strings.ToLower(query))
	if len(queryWords) == 0 {
		return nil
	}

	var results []domain.StoreResult
	for _, storeKey := range storeOrder(catalog, stores) {
		products := catalog.ProductsFor(storeKey)
		storeName := domain.StoreDisplayName(storeKey)

		for _, product := range products {
			name := strings.ToLower(product.Name)
			if !containsAllWords(name, queryWords) {
				continue
			}
			results = append(results, domain.StoreResult{
				Store:     storeKey,
				StoreName: storeName,
				Name:      product.Name,
				Price:     product.Price,
				Size:      product.Size,
				Link:      product.Link,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Price < results[j].Price
	})

	return applyLimit(results, limit)
}

// Compare reduces search results to the cheapest product per store, then
// sorts the reduced set ascending by price and applies the limit.
func (p *Pricing) Compare(query string, catalog domain.Catalog, stores []string, limit int) []domain.StoreResult {
	results := p.Search(query, catalog, stores, 0)
	if len(results) == 0 {
		return nil
	}

	cheapest := make(map[string]domain.StoreResult)
	for _, r := range results {
		best, seen := cheapest[r.Store]
		if !seen || r.Price < best.Price {
			cheapest[r.Store] = r
		}
	}

	reduced := make([]domain.StoreResult, 0, len(cheapest))
	// Walk the sorted search results so the reduced set stays deterministic.
	for _, r := range results {
		if best, ok := cheapest[r.Store]; ok && best == r {
			reduced = append(reduced, r)
			delete(cheapest, r.Store)
		}
	}

	sort.SliceStable(reduced, func(i, j int) bool {
		return reduced[i].Price < reduced[j].Price
	})

	return applyLimit(reduced, limit)
}

// FindDeals scans the catalog for staples priced well below their usual
// level. Each product is checked against the threshold table in order and
// assigned to the first keyword it qualifies under. Results are sorted
// ascending by price.
func (p *Pricing) FindDeals(catalog domain.Catalog, stores []string, limit int) []domain.StoreResult {
	var deals []domain.StoreResult

	for _, storeKey := range storeOrder(catalog, stores) {
		products := catalog.ProductsFor(storeKey)
		storeName := domain.StoreDisplayName(storeKey)

		for _, product := range products {
			name := strings.ToLower(product.Name)

			for _, dt := range dealThresholds {
				if !strings.Contains(name, dt.Keyword) {
					continue
				}
				if product.Price < dt.Reference*p.dealDiscount {
					deals = append(deals, domain.StoreResult{
						Store:     storeKey,
						StoreName: storeName,
						Name:      product.Name,
						Price:     product.Price,
						Size:      product.Size,
						Link:      product.Link,
						Category:  dt.Keyword,
					})
					break // tag under the first qualifying keyword only
				}
			}
		}
	}

	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].Price < deals[j].Price
	})

	return applyLimit(deals, limit)
}

// storeOrder yields the stores to scan: the caller's filter in its given
// order, or the full catalog key set sorted for deterministic iteration.
func storeOrder(catalog domain.Catalog, stores []string) []string {
	if len(stores) == 0 {
		return catalog.StoreKeys()
	}
	order := make([]string, 0, len(stores))
	for _, s := range stores {
		order = append(order, strings.ToLower(strings.TrimSpace(s)))
	}
	return order
}

func containsAllWords(name string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(name, w) {
			return false
		}
	}
	return true
}

func applyLimit(results []domain.StoreResult, limit int) []domain.StoreResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
