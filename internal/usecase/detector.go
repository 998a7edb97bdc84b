package usecase

import (
	"math"

	"github.com/pricelens/backend/internal/domain"
)

// defaultPriceTolerance is the absolute price difference, in euros, below
// which a receipt price is considered to agree with the catalog.
const defaultPriceTolerance = 0.05

// DetectorConfig holds configuration for the discrepancy detector
type DetectorConfig struct {
	Matcher        MatcherConfig
	PriceTolerance float64
}

// Detector pairs receipt line items with catalog products and reports
// price mismatches beyond the tolerance.
type Detector struct {
	matcher        *Matcher
	priceTolerance float64
}

// NewDetector creates a detector with the given configuration
func NewDetector(config DetectorConfig) *Detector {
	tolerance := config.PriceTolerance
	if tolerance <= 0 {
		tolerance = defaultPriceTolerance
	}

	return &Detector{
		matcher:        NewMatcher(config.Matcher),
		priceTolerance: tolerance,
	}
}

// Detect compares each receipt item against the store's catalog products.
// Unknown stores yield an empty product list, so every item silently
// misses; items without a match or within tolerance produce nothing.
// Output order follows input order.
func (d *Detector) Detect(items []domain.ReceiptItem, store string, catalog domain.Catalog) []domain.Discrepancy {
	products := catalog.ProductsFor(store)

	var discrepancies []domain.Discrepancy
	for _, item := range items {
		match, ok := d.matcher.FindBestMatch(item.Name, products)
		if !ok {
			continue
		}

		diff := math.Abs(item.Price - match.Price)
		if diff <= d.priceTolerance {
			continue
		}

		discrepancies = append(discrepancies, domain.Discrepancy{
			ReceiptProduct:  item.Name,
			ReceiptPrice:    item.Price,
			CatalogProduct:  match.Name,
			CatalogPrice:    match.Price,
			PriceDifference: diff,
			Store:           store,
			Date:            item.Date,
			Confidence:      Confidence(item.Name, match.Name),
		})
	}

	return discrepancies
}
