package projections

import (
	"context"
	"testing"
	"time"

	"pixhooks/pkg/storage"
)

// TestMemoryStoreUpsertChargePreservesFields tests that an update without an
// amount does not erase a previously stored amount.
func TestMemoryStoreUpsertChargePreservesFields(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.UpsertCharge(ctx, storage.ChargeRecord{
		Provider: "woovi", ChargeID: "ch_1", Status: "CREATED", AmountCents: 5500,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	paidAt := time.Now().UTC()
	if err := store.UpsertCharge(ctx, storage.ChargeRecord{
		Provider: "woovi", ChargeID: "ch_1", Status: "COMPLETED", PaidAt: &paidAt,
	}); err != nil {
		t.Fatalf("upsert completed: %v", err)
	}

	charge, err := store.GetCharge(ctx, "woovi", "ch_1")
	if err != nil {
		t.Fatalf("get charge: %v", err)
	}
	if charge == nil {
		t.Fatalf("expected charge row")
	}
	if charge.Status != "COMPLETED" {
		t.Fatalf("expected status COMPLETED, got %q", charge.Status)
	}
	if charge.AmountCents != 5500 {
		t.Fatalf("expected amount to be preserved, got %d", charge.AmountCents)
	}
	if charge.PaidAt == nil {
		t.Fatalf("expected paid_at to be set")
	}
}

// TestMemoryStoreUpsertChargeIdempotent tests that re-applying the same
// update leaves identical state.
func TestMemoryStoreUpsertChargeIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	record := storage.ChargeRecord{Provider: "woovi", ChargeID: "ch_2", Status: "COMPLETED", AmountCents: 990}

	for i := 0; i < 3; i++ {
		if err := store.UpsertCharge(ctx, record); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	if store.ChargeCount() != 1 {
		t.Fatalf("expected 1 charge row, got %d", store.ChargeCount())
	}
	charge, _ := store.GetCharge(ctx, "woovi", "ch_2")
	if charge.Status != "COMPLETED" || charge.AmountCents != 990 {
		t.Fatalf("unexpected charge state: %+v", charge)
	}
}

// TestMemoryStoreUpsertSubscription tests the subscription projection upsert.
func TestMemoryStoreUpsertSubscription(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.UpsertSubscription(ctx, storage.SubscriptionRecord{
		Provider: "woovi", CorrelationID: "abc123", Status: "ACTIVE", ProviderID: "rec_1",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertSubscription(ctx, storage.SubscriptionRecord{
		Provider: "woovi", CorrelationID: "abc123", Status: "CANCELED",
	}); err != nil {
		t.Fatalf("upsert canceled: %v", err)
	}

	sub, err := store.GetSubscription(ctx, "woovi", "abc123")
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if sub.Status != "CANCELED" {
		t.Fatalf("expected status CANCELED, got %q", sub.Status)
	}
	if sub.ProviderID != "rec_1" {
		t.Fatalf("expected provider id to be preserved, got %q", sub.ProviderID)
	}
}
