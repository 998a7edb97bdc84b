package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidReceipt is returned when vision output fails schema validation
	ErrInvalidReceipt = errors.New("receipt data failed validation")

	// ErrCatalogUnavailable is returned when no catalog data can be obtained
	ErrCatalogUnavailable = errors.New("catalog data unavailable")

	// ErrFeedFailure is returned when the checkjebon feed request fails
	ErrFeedFailure = errors.New("catalog feed request failed")

	// ErrSubmissionFailure is returned when the community API request fails
	ErrSubmissionFailure = errors.New("community submission request failed")

	// ErrVisionFailure is returned when the vision model request fails
	ErrVisionFailure = errors.New("vision analysis request failed")

	// ErrLedgerIO is returned on unrecoverable feedback ledger I/O
	ErrLedgerIO = errors.New("feedback ledger I/O failed")
)
