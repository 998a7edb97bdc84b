package feedback

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// Ledger is the append-only local feedback log: one JSON entry per line.
// Reads tolerate corrupt lines; MarkSubmitted rewrites the whole file,
// which is fine at the expected scale of a single-user tool. The mutex
// only guards against in-process races: two OS processes interleaving an
// append with a rewrite can still lose the append, a known limitation.
type Ledger struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// LedgerConfig holds configuration for the feedback ledger
type LedgerConfig struct {
	Path string
	Now  func() time.Time
}

// NewLedger creates a ledger writing to the given file path
func NewLedger(config LedgerConfig) *Ledger {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		path: config.Path,
		now:  now,
	}
}

// Record wraps the discrepancies into one pending entry and appends it.
// The timestamp doubles as the entry's identity for later status updates;
// RFC3339Nano narrows the collision window but does not close it.
func (l *Ledger) Record(discrepancies []domain.Discrepancy) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerIO, err)
	}

	entry := domain.FeedbackEntry{
		Timestamp:     l.now().Format(time.RFC3339Nano),
		Type:          domain.FeedbackTypePriceDiscrepancy,
		Discrepancies: discrepancies,
		Source:        domain.FeedbackSourceReceiptOCR,
		Status:        domain.StatusPendingSubmission,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerIO, err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerIO, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerIO, err)
	}

	return nil
}

// CountPending counts entries still awaiting submission.
func (l *Ledger) CountPending() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, _, err := l.readAll()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, e := range entries {
		if e.Status == domain.StatusPendingSubmission {
			count++
		}
	}
	return count, nil
}

// PendingBatches partitions pending entries into fixed-size chunks in file
// order, for incremental submission.
func (l *Ledger) PendingBatches(batchSize int) ([][]domain.FeedbackEntry, error) {
	if batchSize <= 0 {
		batchSize = 10
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, _, err := l.readAll()
	if err != nil {
		return nil, err
	}

	var pending []domain.FeedbackEntry
	for _, e := range entries {
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

// MarkSubmitted rewrites the ledger with the given entries flipped to
// submitted. Entries are neither reordered nor dropped; lines that fail to
// parse pass through verbatim. Re-marking an already-submitted entry is a
// no-op, so the operation is idempotent.
func (l *Ledger) MarkSubmitted(timestamps []string) error {
	if len(timestamps) == 0 {
		return nil
	}

	set := make(map[string]bool, len(timestamps))
	for _, ts := range timestamps {
		set[ts] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, raws, err := l.readAll()
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		return nil
	}

	lines := make([][]byte, len(raws))
	for i, raw := range raws {
		if entries[i].Timestamp != "" && set[entries[i].Timestamp] {
			entries[i].Status = domain.StatusSubmitted
			line, err := json.Marshal(entries[i])
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrLedgerIO, err)
			}
			lines[i] = line
			continue
		}
		lines[i] = raw
	}

	tmp := l.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerIO, err)
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", domain.ErrLedgerIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerIO, err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerIO, err)
	}

	return nil
}

// Stats reports total, pending, and submitted entry counts. Corrupt lines
// count toward neither bucket.
func (l *Ledger) Stats() (domain.LedgerStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, _, err := l.readAll()
	if err != nil {
		return domain.LedgerStats{}, err
	}

	stats := domain.LedgerStats{}
	for _, e := range entries {
		if e.Timestamp == "" {
			continue
		}
		stats.Total++
		if e.Status == domain.StatusPendingSubmission {
			stats.Pending++
		} else if e.Status == domain.StatusSubmitted {
			stats.Submitted++
		}
	}
	return stats, nil
}

// readAll scans the ledger file. It returns parsed entries and the raw
// line bytes in parallel slices; a line that fails to parse gets a zero
// entry and keeps its raw bytes, so rewrites can carry it unchanged. A
// missing file is an empty ledger.
func (l *Ledger) readAll() ([]domain.FeedbackEntry, [][]byte, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrLedgerIO, err)
	}
	defer f.Close()

	var entries []domain.FeedbackEntry
	var raws [][]byte

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		raw := make([]byte, len(scanner.Bytes()))
		copy(raw, scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var entry domain.FeedbackEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			log.Printf("[FEEDBACK] Skipping corrupt ledger line: %v", err)
			entry = domain.FeedbackEntry{}
		}
		entries = append(entries, entry)
		raws = append(raws, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrLedgerIO, err)
	}

	return entries, raws, nil
}
