package domain

// ReceiptItem is one purchased line item extracted from a receipt image.
type ReceiptItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Date  string  `json:"date,omitempty"` // YYYY-MM-DD
}

// Receipt is the record the vision model produces for a receipt image.
// Fields are untrusted free text until they pass the receipt validator.
type Receipt struct {
	IsReceipt bool          `json:"is_receipt"`
	Store     string        `json:"store,omitempty"`
	Date      string        `json:"date,omitempty"`
	Time      string        `json:"time,omitempty"`
	Amount    float64       `json:"amount,omitempty"`
	Items     []ReceiptItem `json:"items,omitempty"`
	Category  string        `json:"category,omitempty"`
}

// Receipt expense categories, as the vision prompt instructs the model.
const CategoryOther = "overig"

// ValidCategories is the closed category set for receipts.
var ValidCategories = map[string]bool{
	"boodschappen": true,
	"horeca":       true,
	"transport":    true,
	"klussen":      true,
	"wonen":        true,
	"kleding":      true,
	"elektronica":  true,
	"gezondheid":   true,
	CategoryOther:  true,
}
