package domain

import "context"

// CatalogStore provides the current catalog, refreshing from the feed when
// the local snapshot is missing or stale.
type CatalogStore interface {
	Catalog(ctx context.Context) (Catalog, error)
	Refresh(ctx context.Context) (Catalog, error)
}

// SubmissionClient sends correction batches to the community database and
// reports how many the service accepted.
type SubmissionClient interface {
	SubmitBatch(ctx context.Context, corrections []Correction) (int, error)
}

// ReceiptExtractor turns a receipt image into an unvalidated receipt
// record. Implementations wrap a vision model; callers must validate the
// result before trusting any field.
type ReceiptExtractor interface {
	ExtractReceipt(ctx context.Context, image []byte) (*Receipt, error)
}

// FeedbackLedger is the append-only local log of discrepancy batches.
type FeedbackLedger interface {
	Record(discrepancies []Discrepancy) error
	CountPending() (int, error)
	PendingBatches(batchSize int) ([][]FeedbackEntry, error)
	MarkSubmitted(timestamps []string) error
	Stats() (LedgerStats, error)
}

// LedgerStats summarizes the feedback ledger contents.
type LedgerStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Submitted int `json:"submitted"`
}
