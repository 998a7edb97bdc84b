package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/pricelens/backend/internal/domain"
)

// fakeCatalogStore serves a fixed catalog without touching the network.
type fakeCatalogStore struct {
	catalog domain.Catalog
	err     error
}

func (f *fakeCatalogStore) Catalog(ctx context.Context) (domain.Catalog, error) {
	return f.catalog, f.err
}

func (f *fakeCatalogStore) Refresh(ctx context.Context) (domain.Catalog, error) {
	return f.catalog, f.err
}

// fakeLedger keeps entries in memory, mirroring ledger semantics.
type fakeLedger struct {
	entries    []domain.FeedbackEntry
	recordErr  error
	markErr    error
	nextSuffix int
}

func (f *fakeLedger) Record(discrepancies []domain.Discrepancy) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.nextSuffix++
	f.entries = append(f.entries, domain.FeedbackEntry{
		Timestamp:     string(rune('a' + f.nextSuffix)),
		Type:          domain.FeedbackTypePriceDiscrepancy,
		Discrepancies: discrepancies,
		Source:        domain.FeedbackSourceReceiptOCR,
		Status:        domain.StatusPendingSubmission,
	})
	return nil
}

func (f *fakeLedger) CountPending() (int, error) {
	n := 0
	for _, e := range f.entries {
		if e.Status == domain.StatusPendingSubmission {
			n++
		}
	}
	return n, nil
}

func (f *fakeLedger) PendingBatches(batchSize int) ([][]domain.FeedbackEntry, error) {
	var pending []domain.FeedbackEntry
	for _, e := range f.entries {
		if e.Status == domain.StatusPendingSubmission {
			pending = append(pending, e)
		}
	}
	var batches [][]domain.FeedbackEntry
	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))
		batches = append(batches, pending[start:end])
	}
	return batches, nil
}

func (f *fakeLedger) MarkSubmitted(timestamps []string) error {
	if f.markErr != nil {
		return f.markErr
	}
	set := make(map[string]bool, len(timestamps))
	for _, ts := range timestamps {
		set[ts] = true
	}
	for i := range f.entries {
		if set[f.entries[i].Timestamp] {
			f.entries[i].Status = domain.StatusSubmitted
		}
	}
	return nil
}

func (f *fakeLedger) Stats() (domain.LedgerStats, error) {
	pending, _ := f.CountPending()
	return domain.LedgerStats{
		Total:     len(f.entries),
		Pending:   pending,
		Submitted: len(f.entries) - pending,
	}, nil
}

// fakeSubmissionClient accepts batches until failAfter calls have happened.
type fakeSubmissionClient struct {
	calls     int
	failAfter int // fail on call number failAfter+1; 0 with failSet means always
	failing   bool
	batches   [][]domain.Correction
}

func (f *fakeSubmissionClient) SubmitBatch(ctx context.Context, corrections []domain.Correction) (int, error) {
	f.calls++
	if f.failing && f.calls > f.failAfter {
		return 0, errors.New("connection refused")
	}
	f.batches = append(f.batches, corrections)
	return len(corrections), nil
}

func discrepancy(product string) domain.Discrepancy {
	return domain.Discrepancy{
		ReceiptProduct:  product,
		ReceiptPrice:    1.89,
		CatalogProduct:  product,
		CatalogPrice:    1.95,
		PriceDifference: 0.06,
		Store:           "ah",
		Date:            "2026-02-20",
		Confidence:      1.0,
	}
}

func TestVerifyItems(t *testing.T) {
	ctx := context.Background()
	catalog := domain.Catalog{
		"ah": {{Name: "Melk Halfvol 1L", Price: 1.95}},
	}

	t.Run("records discrepancies to the ledger", func(t *testing.T) {
		ledger := &fakeLedger{}
		svc := NewFeedbackService(&fakeCatalogStore{catalog: catalog}, ledger, &fakeSubmissionClient{}, FeedbackServiceConfig{})

		items := []domain.ReceiptItem{{Name: "Melk Halfvol 1L", Price: 1.89, Date: "2026-02-20"}}
		got, err := svc.VerifyItems(ctx, items, "ah")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("discrepancies = %d, want 1", len(got))
		}
		if pending, _ := ledger.CountPending(); pending != 1 {
			t.Errorf("pending = %d, want 1", pending)
		}
	})

	t.Run("no discrepancies means no ledger entry", func(t *testing.T) {
		ledger := &fakeLedger{}
		svc := NewFeedbackService(&fakeCatalogStore{catalog: catalog}, ledger, &fakeSubmissionClient{}, FeedbackServiceConfig{})

		items := []domain.ReceiptItem{{Name: "Melk Halfvol 1L", Price: 1.95}}
		got, err := svc.VerifyItems(ctx, items, "ah")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("discrepancies = %d, want 0", len(got))
		}
		if pending, _ := ledger.CountPending(); pending != 0 {
			t.Errorf("pending = %d, want 0", pending)
		}
	})

	t.Run("empty input is invalid", func(t *testing.T) {
		svc := NewFeedbackService(&fakeCatalogStore{catalog: catalog}, &fakeLedger{}, &fakeSubmissionClient{}, FeedbackServiceConfig{})
		if _, err := svc.VerifyItems(ctx, nil, "ah"); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("catalog failure surfaces as unavailable", func(t *testing.T) {
		store := &fakeCatalogStore{err: errors.New("timeout")}
		svc := NewFeedbackService(store, &fakeLedger{}, &fakeSubmissionClient{}, FeedbackServiceConfig{})
		items := []domain.ReceiptItem{{Name: "Melk", Price: 1.00}}
		if _, err := svc.VerifyItems(ctx, items, "ah"); !errors.Is(err, domain.ErrCatalogUnavailable) {
			t.Errorf("error = %v, want ErrCatalogUnavailable", err)
		}
	})
}

func TestVerifyReceipt(t *testing.T) {
	ctx := context.Background()
	catalog := domain.Catalog{
		"ah": {{Name: "Melk Halfvol 1L", Price: 1.95}},
	}

	t.Run("maps receipt store names to short codes", func(t *testing.T) {
		ledger := &fakeLedger{}
		svc := NewFeedbackService(&fakeCatalogStore{catalog: catalog}, ledger, &fakeSubmissionClient{}, FeedbackServiceConfig{})

		receipt := &domain.Receipt{
			IsReceipt: true,
			Store:     "Albert Heijn",
			Items:     []domain.ReceiptItem{{Name: "Melk Halfvol 1L", Price: 1.89}},
		}
		got, err := svc.VerifyReceipt(ctx, receipt)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Store != "ah" {
			t.Errorf("discrepancies = %+v, want one for store ah", got)
		}
	})

	t.Run("non-grocery store produces nothing", func(t *testing.T) {
		svc := NewFeedbackService(&fakeCatalogStore{catalog: catalog}, &fakeLedger{}, &fakeSubmissionClient{}, FeedbackServiceConfig{})
		receipt := &domain.Receipt{
			IsReceipt: true,
			Store:     "Praxis",
			Items:     []domain.ReceiptItem{{Name: "Hamer", Price: 12.99}},
		}
		got, err := svc.VerifyReceipt(ctx, receipt)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("discrepancies = %v, want nil", got)
		}
	})

	t.Run("non-receipt is invalid", func(t *testing.T) {
		svc := NewFeedbackService(&fakeCatalogStore{catalog: catalog}, &fakeLedger{}, &fakeSubmissionClient{}, FeedbackServiceConfig{})
		if _, err := svc.VerifyReceipt(ctx, &domain.Receipt{IsReceipt: false}); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	seedLedger := func(n int) *fakeLedger {
		ledger := &fakeLedger{}
		for i := 0; i < n; i++ {
			ledger.Record([]domain.Discrepancy{discrepancy("Melk Halfvol 1L")})
		}
		return ledger
	}

	t.Run("submits all pending entries in batches", func(t *testing.T) {
		ledger := seedLedger(5)
		client := &fakeSubmissionClient{}
		svc := NewFeedbackService(&fakeCatalogStore{}, ledger, client, FeedbackServiceConfig{BatchSize: 2})

		report, err := svc.Submit(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.EntriesSubmitted != 5 {
			t.Errorf("EntriesSubmitted = %d, want 5", report.EntriesSubmitted)
		}
		if report.CorrectionsAccepted != 5 {
			t.Errorf("CorrectionsAccepted = %d, want 5", report.CorrectionsAccepted)
		}
		if report.EntriesRemaining != 0 {
			t.Errorf("EntriesRemaining = %d, want 0", report.EntriesRemaining)
		}
		if len(client.batches) != 3 {
			t.Errorf("batches = %d, want 3 (2+2+1)", len(client.batches))
		}
	})

	t.Run("stops on transport failure and keeps partial progress", func(t *testing.T) {
		ledger := seedLedger(5)
		client := &fakeSubmissionClient{failing: true, failAfter: 1}
		svc := NewFeedbackService(&fakeCatalogStore{}, ledger, client, FeedbackServiceConfig{BatchSize: 2})

		report, err := svc.Submit(ctx)
		if !errors.Is(err, domain.ErrSubmissionFailure) {
			t.Fatalf("error = %v, want ErrSubmissionFailure", err)
		}
		if report.EntriesSubmitted != 2 {
			t.Errorf("EntriesSubmitted = %d, want 2 (first batch only)", report.EntriesSubmitted)
		}
		if report.EntriesRemaining != 3 {
			t.Errorf("EntriesRemaining = %d, want 3", report.EntriesRemaining)
		}
		// Acknowledged entries stay submitted; no rollback
		stats, _ := ledger.Stats()
		if stats.Submitted != 2 {
			t.Errorf("Submitted = %d, want 2", stats.Submitted)
		}
	})

	t.Run("ledger write failure still reports the pending count", func(t *testing.T) {
		ledger := seedLedger(3)
		ledger.markErr = errors.New("disk full")
		client := &fakeSubmissionClient{}
		svc := NewFeedbackService(&fakeCatalogStore{}, ledger, client, FeedbackServiceConfig{BatchSize: 2})

		report, err := svc.Submit(ctx)
		if err == nil {
			t.Fatal("error = nil, want ledger write failure")
		}
		if report.EntriesSubmitted != 0 {
			t.Errorf("EntriesSubmitted = %d, want 0 (batch not marked)", report.EntriesSubmitted)
		}
		if report.EntriesRemaining != 3 {
			t.Errorf("EntriesRemaining = %d, want 3", report.EntriesRemaining)
		}
	})

	t.Run("nothing pending submits nothing", func(t *testing.T) {
		client := &fakeSubmissionClient{}
		svc := NewFeedbackService(&fakeCatalogStore{}, &fakeLedger{}, client, FeedbackServiceConfig{})

		report, err := svc.Submit(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.EntriesSubmitted != 0 || client.calls != 0 {
			t.Errorf("report = %+v, calls = %d, want no activity", report, client.calls)
		}
	})

	t.Run("corrections carry the wire fields", func(t *testing.T) {
		ledger := seedLedger(1)
		client := &fakeSubmissionClient{}
		svc := NewFeedbackService(&fakeCatalogStore{}, ledger, client, FeedbackServiceConfig{})

		if _, err := svc.Submit(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(client.batches) != 1 || len(client.batches[0]) != 1 {
			t.Fatalf("batches = %+v, want one correction", client.batches)
		}
		c := client.batches[0][0]
		if c.ProductName != "Melk Halfvol 1L" || c.StoreChain != "ah" {
			t.Errorf("correction = %+v", c)
		}
		if c.VerificationMethod != domain.FeedbackSourceReceiptOCR {
			t.Errorf("VerificationMethod = %q", c.VerificationMethod)
		}
		if c.ActualPrice != 1.89 || c.CatalogPrice != 1.95 {
			t.Errorf("prices = %v/%v, want 1.89/1.95", c.ActualPrice, c.CatalogPrice)
		}
	})
}
