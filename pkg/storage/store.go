package storage

import (
	"context"
	"time"
)

// EventRecord is one ledger row: the durable, immutable audit record of a
// webhook delivery. The (Provider, EventID) pair is the deduplication key.
type EventRecord struct {
	Provider       string
	EventID        string
	EventType      string
	CorrelationID  string
	Payload        []byte
	SignatureValid bool
	ReceivedAt     time.Time
}

// ChargeRecord is the charge projection updated as a side effect of event
// processing. AmountCents uses integer cents; PaidAt is set once a terminal
// success status is observed.
type ChargeRecord struct {
	Provider      string
	ChargeID      string
	CorrelationID string
	Status        string
	AmountCents   int64
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SubscriptionRecord is the subscription projection, keyed by the merchant's
// correlation id.
type SubscriptionRecord struct {
	Provider      string
	CorrelationID string
	ProviderID    string
	Status        string
	LastEventType string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EventLedger is the idempotency ledger. Record must be a single atomic
// insert-or-detect: it returns true when the record was inserted (first
// delivery) and false when the key already existed (duplicate delivery).
// The guarantee has to hold across concurrent processes, not just within one.
type EventLedger interface {
	Record(ctx context.Context, record EventRecord) (bool, error)
	Close() error
}

// ProjectionStore persists the charge and subscription projections. Upserts
// must be idempotent: re-applying the same update leaves identical state.
type ProjectionStore interface {
	UpsertCharge(ctx context.Context, record ChargeRecord) error
	GetCharge(ctx context.Context, provider, chargeID string) (*ChargeRecord, error)
	UpsertSubscription(ctx context.Context, record SubscriptionRecord) error
	GetSubscription(ctx context.Context, provider, correlationID string) (*SubscriptionRecord, error)
	Close() error
}
