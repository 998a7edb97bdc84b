package usecase

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// Limits enforced on vision-model output. The model's text is untrusted:
// amounts outside a plausible currency range, oversized strings, and
// unknown categories are coerced or rejected before anything downstream
// sees them.
const (
	maxReceiptItems = 200
	maxFieldLength  = 200
	maxAmount       = 100_000.0
)

var isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateReceipt enforces the receipt schema on a vision-model record.
// It returns a sanitized copy, or an error when the record cannot be
// trusted at all. Non-receipts pass through as {IsReceipt: false}.
func ValidateReceipt(r *domain.Receipt) (*domain.Receipt, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil record", domain.ErrInvalidReceipt)
	}
	if !r.IsReceipt {
		return &domain.Receipt{IsReceipt: false}, nil
	}

	validated := &domain.Receipt{IsReceipt: true}

	validated.Store = truncate(r.Store, maxFieldLength)

	if isoDateRegex.MatchString(r.Date) {
		validated.Date = r.Date
	}

	validated.Time = truncate(r.Time, 10)

	if r.Amount != 0 {
		if !math.IsInf(r.Amount, 0) && !math.IsNaN(r.Amount) && r.Amount >= 0 && r.Amount <= maxAmount {
			validated.Amount = r.Amount
		} else {
			return nil, fmt.Errorf("%w: implausible amount %v", domain.ErrInvalidReceipt, r.Amount)
		}
	}

	items, err := validateItems(r.Items, validated.Date)
	if err != nil {
		return nil, err
	}
	validated.Items = items

	if domain.ValidCategories[r.Category] {
		validated.Category = r.Category
	} else if r.Category != "" {
		validated.Category = domain.CategoryOther
	}

	return validated, nil
}

// validateItems sanitizes line items: names capped, non-positive or
// implausible prices dropped, the list bounded, missing dates filled with
// the receipt date.
func validateItems(items []domain.ReceiptItem, receiptDate string) ([]domain.ReceiptItem, error) {
	if len(items) > maxReceiptItems {
		items = items[:maxReceiptItems]
	}

	validated := make([]domain.ReceiptItem, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(truncate(item.Name, maxFieldLength))
		if name == "" {
			continue
		}
		if math.IsInf(item.Price, 0) || math.IsNaN(item.Price) || item.Price <= 0 || item.Price > maxAmount {
			continue
		}
		date := item.Date
		if !isoDateRegex.MatchString(date) {
			date = receiptDate
		}
		validated = append(validated, domain.ReceiptItem{
			Name:  name,
			Price: item.Price,
			Date:  date,
		})
	}

	return validated, nil
}

// truncate caps s at n runes so a multibyte character is never cut in half.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
