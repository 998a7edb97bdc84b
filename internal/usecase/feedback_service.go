package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/pricelens/backend/internal/domain"
)

// defaultBatchSize is how many ledger entries go into one submission call.
const defaultBatchSize = 10

// FeedbackServiceConfig holds configuration for the feedback service
type FeedbackServiceConfig struct {
	Detector           DetectorConfig
	BatchSize          int
	EnableDebugLogging bool
}

// FeedbackService drives the feedback pipeline: receipt items are checked
// against the catalog, discrepancies land in the local ledger, and pending
// entries are later submitted to the community database in batches.
type FeedbackService struct {
	catalog  domain.CatalogStore
	ledger   domain.FeedbackLedger
	client   domain.SubmissionClient
	detector *Detector

	batchSize int
	debug     bool
}

// NewFeedbackService creates a feedback service with dependencies
func NewFeedbackService(
	catalog domain.CatalogStore,
	ledger domain.FeedbackLedger,
	client domain.SubmissionClient,
	config FeedbackServiceConfig,
) *FeedbackService {
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &FeedbackService{
		catalog:   catalog,
		ledger:    ledger,
		client:    client,
		detector:  NewDetector(config.Detector),
		batchSize: batchSize,
		debug:     config.EnableDebugLogging,
	}
}

// VerifyItems checks receipt line items against the store's catalog and
// records any discrepancies as one pending ledger entry. No discrepancies
// means no entry.
func (s *FeedbackService) VerifyItems(ctx context.Context, items []domain.ReceiptItem, store string) ([]domain.Discrepancy, error) {
	if len(items) == 0 || store == "" {
		return nil, domain.ErrInvalidRequest
	}

	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	discrepancies := s.detector.Detect(items, store, catalog)
	if len(discrepancies) == 0 {
		return nil, nil
	}

	if err := s.ledger.Record(discrepancies); err != nil {
		return nil, err
	}

	if s.debug {
		log.Printf("[FEEDBACK] Recorded %d discrepancies for store %q", len(discrepancies), store)
	}

	return discrepancies, nil
}

// VerifyReceipt runs VerifyItems for a validated vision-model receipt.
// Non-grocery stores are not an error; they simply produce nothing.
func (s *FeedbackService) VerifyReceipt(ctx context.Context, receipt *domain.Receipt) ([]domain.Discrepancy, error) {
	if receipt == nil || !receipt.IsReceipt {
		return nil, domain.ErrInvalidRequest
	}

	store, ok := domain.NormalizeStore(receipt.Store)
	if !ok {
		if s.debug {
			log.Printf("[FEEDBACK] %q is not a known grocery chain, skipping", receipt.Store)
		}
		return nil, nil
	}

	if len(receipt.Items) == 0 {
		return nil, nil
	}

	return s.VerifyItems(ctx, receipt.Items, store)
}

// SubmitReport summarizes one submission run.
type SubmitReport struct {
	EntriesSubmitted    int `json:"entries_submitted"`
	CorrectionsAccepted int `json:"corrections_accepted"`
	EntriesRemaining    int `json:"entries_remaining"`
}

// Submit sends pending ledger entries to the community database in batches.
// The first transport failure stops the loop; batches already acknowledged
// stay marked submitted and the report counts the partial progress.
func (s *FeedbackService) Submit(ctx context.Context) (SubmitReport, error) {
	var report SubmitReport

	batches, err := s.ledger.PendingBatches(s.batchSize)
	if err != nil {
		return report, err
	}

	for _, batch := range batches {
		corrections := correctionsFromEntries(batch)
		if len(corrections) == 0 {
			continue
		}

		accepted, err := s.client.SubmitBatch(ctx, corrections)
		if err != nil {
			// Partial progress is fine; entries in this and later batches
			// stay pending for the next run.
			report.EntriesRemaining, _ = s.ledger.CountPending()
			return report, fmt.Errorf("%w: %v", domain.ErrSubmissionFailure, err)
		}

		timestamps := make([]string, 0, len(batch))
		for _, entry := range batch {
			timestamps = append(timestamps, entry.Timestamp)
		}
		if err := s.ledger.MarkSubmitted(timestamps); err != nil {
			report.EntriesRemaining, _ = s.ledger.CountPending()
			return report, err
		}

		report.EntriesSubmitted += len(batch)
		report.CorrectionsAccepted += accepted

		if s.debug {
			log.Printf("[FEEDBACK] Batch of %d entries submitted, %d corrections accepted", len(batch), accepted)
		}
	}

	report.EntriesRemaining, err = s.ledger.CountPending()
	return report, err
}

// Stats reports ledger totals.
func (s *FeedbackService) Stats() (domain.LedgerStats, error) {
	return s.ledger.Stats()
}

// correctionsFromEntries flattens entry discrepancies into the community
// API's correction format.
func correctionsFromEntries(entries []domain.FeedbackEntry) []domain.Correction {
	var corrections []domain.Correction
	for _, entry := range entries {
		for _, d := range entry.Discrepancies {
			corrections = append(corrections, domain.Correction{
				ProductName:        d.ReceiptProduct,
				StoreChain:         d.Store,
				ActualPrice:        d.ReceiptPrice,
				CatalogPrice:       d.CatalogPrice,
				VerifiedDate:       d.Date,
				VerificationMethod: domain.FeedbackSourceReceiptOCR,
				ConfidenceScore:    d.Confidence,
			})
		}
	}
	return corrections
}
