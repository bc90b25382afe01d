package projections

import (
	"context"
	"sync"
	"time"

	"pixhooks/pkg/storage"
)

// MemoryStore is an in-memory projection store for tests and local
// development. Update semantics match the GORM store: fields the event did
// not carry are preserved, and re-applying an update is harmless.
type MemoryStore struct {
	mu            sync.Mutex
	charges       map[string]storage.ChargeRecord
	subscriptions map[string]storage.SubscriptionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		charges:       make(map[string]storage.ChargeRecord),
		subscriptions: make(map[string]storage.SubscriptionRecord),
	}
}

func (s *MemoryStore) UpsertCharge(ctx context.Context, record storage.ChargeRecord) error {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	key := record.Provider + ":" + record.ChargeID
	existing, ok := s.charges[key]
	if !ok {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		record.UpdatedAt = now
		s.charges[key] = record
		return nil
	}

	existing.Status = record.Status
	if record.CorrelationID != "" {
		existing.CorrelationID = record.CorrelationID
	}
	if record.AmountCents > 0 {
		existing.AmountCents = record.AmountCents
	}
	if record.PaidAt != nil {
		existing.PaidAt = record.PaidAt
	}
	existing.UpdatedAt = now
	s.charges[key] = existing
	return nil
}

func (s *MemoryStore) GetCharge(ctx context.Context, provider, chargeID string) (*storage.ChargeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.charges[provider+":"+chargeID]; ok {
		return &record, nil
	}
	return nil, nil
}

func (s *MemoryStore) UpsertSubscription(ctx context.Context, record storage.SubscriptionRecord) error {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	key := record.Provider + ":" + record.CorrelationID
	existing, ok := s.subscriptions[key]
	if !ok {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		record.UpdatedAt = now
		s.subscriptions[key] = record
		return nil
	}

	existing.Status = record.Status
	existing.LastEventType = record.LastEventType
	if record.ProviderID != "" {
		existing.ProviderID = record.ProviderID
	}
	existing.UpdatedAt = now
	s.subscriptions[key] = existing
	return nil
}

func (s *MemoryStore) GetSubscription(ctx context.Context, provider, correlationID string) (*storage.SubscriptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.subscriptions[provider+":"+correlationID]; ok {
		return &record, nil
	}
	return nil, nil
}

// ChargeCount reports the number of charge rows, for tests.
func (s *MemoryStore) ChargeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.charges)
}

// SubscriptionCount reports the number of subscription rows, for tests.
func (s *MemoryStore) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscriptions)
}

func (s *MemoryStore) Close() error {
	return nil
}
