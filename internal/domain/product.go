package domain

// Product is a single catalog entry as published by the checkjebon feed.
// The short JSON keys match the feed format: n=name, p=price, s=size, l=link.
type Product struct {
	Name  string  `json:"n"`
	Price float64 `json:"p"`
	Size  string  `json:"s,omitempty"`
	Link  string  `json:"l,omitempty"`
}

// StoreResult is a product annotated with the store it was found in.
// Returned by search/compare/deals operations.
type StoreResult struct {
	Store     string  `json:"store"`
	StoreName string  `json:"store_name"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Size      string  `json:"size"`
	Link      string  `json:"link"`
	Category  string  `json:"category,omitempty"`
}

// MatchResult is a shallow copy of the winning product's fields.
type MatchResult struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Size  string  `json:"size"`
}
