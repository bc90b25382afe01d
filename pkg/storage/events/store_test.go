package events

import (
	"context"
	"sync"
	"testing"

	"pixhooks/pkg/storage"
)

// TestMemoryLedgerDeduplicates tests that a second delivery of the same event
// id is reported as a duplicate.
func TestMemoryLedgerDeduplicates(t *testing.T) {
	ledger := NewMemoryLedger()
	record := storage.EventRecord{Provider: "woovi", EventID: "evt_1", EventType: "OPENPIX:CHARGE_COMPLETED"}

	first, err := ledger.Record(context.Background(), record)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !first {
		t.Fatalf("expected first delivery to insert")
	}

	second, err := ledger.Record(context.Background(), record)
	if err != nil {
		t.Fatalf("record duplicate: %v", err)
	}
	if second {
		t.Fatalf("expected duplicate delivery to be detected")
	}
	if ledger.Len() != 1 {
		t.Fatalf("expected 1 ledger row, got %d", ledger.Len())
	}
}

// TestMemoryLedgerConcurrentDeliveries tests that of N simultaneous
// deliveries of the same event exactly one is recorded as first.
func TestMemoryLedgerConcurrentDeliveries(t *testing.T) {
	const deliveries = 50

	ledger := NewMemoryLedger()
	record := storage.EventRecord{Provider: "woovi", EventID: "evt_concurrent"}

	var wg sync.WaitGroup
	results := make(chan bool, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := ledger.Record(context.Background(), record)
			if err != nil {
				t.Errorf("record: %v", err)
				return
			}
			results <- first
		}()
	}
	wg.Wait()
	close(results)

	firsts := 0
	for first := range results {
		if first {
			firsts++
		}
	}
	if firsts != 1 {
		t.Fatalf("expected exactly one first delivery, got %d", firsts)
	}
	if ledger.Len() != 1 {
		t.Fatalf("expected 1 ledger row, got %d", ledger.Len())
	}
}

// TestMemoryLedgerKeysByProvider tests that the same event id from different
// providers does not collide.
func TestMemoryLedgerKeysByProvider(t *testing.T) {
	ledger := NewMemoryLedger()

	first, err := ledger.Record(context.Background(), storage.EventRecord{Provider: "woovi", EventID: "evt_1"})
	if err != nil || !first {
		t.Fatalf("woovi insert failed: first=%v err=%v", first, err)
	}
	first, err = ledger.Record(context.Background(), storage.EventRecord{Provider: "efi", EventID: "evt_1"})
	if err != nil || !first {
		t.Fatalf("efi insert failed: first=%v err=%v", first, err)
	}
	if ledger.Len() != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", ledger.Len())
	}
}
