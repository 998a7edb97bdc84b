package domain

// Feedback entry statuses. An entry moves pending -> submitted, never back.
const (
	StatusPendingSubmission = "pending_submission"
	StatusSubmitted         = "submitted"
)

// FeedbackType and source recorded on every ledger entry.
const (
	FeedbackTypePriceDiscrepancy = "price_discrepancy"
	FeedbackSourceReceiptOCR     = "receipt_ocr"
)

// Discrepancy records a price mismatch between a receipt line item and the
// best-matching catalog product.
type Discrepancy struct {
	ReceiptProduct  string  `json:"receipt_product"`
	ReceiptPrice    float64 `json:"receipt_price"`
	CatalogProduct  string  `json:"catalog_product"`
	CatalogPrice    float64 `json:"catalog_price"`
	PriceDifference float64 `json:"price_difference"` // absolute value
	Store           string  `json:"store"`
	Date            string  `json:"date"`
	Confidence      float64 `json:"confidence"`
}

// FeedbackEntry is one line in the local feedback ledger. The timestamp is
// the entry's identity for status updates.
type FeedbackEntry struct {
	Timestamp     string        `json:"timestamp"`
	Type          string        `json:"type"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	Source        string        `json:"source"`
	Status        string        `json:"status"`
}

// Correction is the community API's wire format for one verified price.
type Correction struct {
	ProductName        string  `json:"product_name"`
	StoreChain         string  `json:"store_chain"`
	ActualPrice        float64 `json:"actual_price"`
	CatalogPrice       float64 `json:"catalog_price"`
	VerifiedDate       string  `json:"verified_date"`
	VerificationMethod string  `json:"verification_method"`
	ConfidenceScore    float64 `json:"confidence_score"`
}

// SubmissionRequest is the bulk-submit request body.
type SubmissionRequest struct {
	Corrections   []Correction `json:"corrections"`
	ContributorID string       `json:"contributor_id"`
}

// SubmissionResponse reports how many corrections the service accepted.
type SubmissionResponse struct {
	Submitted int `json:"submitted"`
}
