package events

import (
	"context"
	"sync"
	"time"

	"pixhooks/pkg/storage"
)

// MemoryLedger is a process-local ledger for tests and local development. It
// is not durable: a restart forgets every delivery, so production deployments
// must use the GORM or Redis backends.
type MemoryLedger struct {
	mu   sync.Mutex
	rows map[string]storage.EventRecord
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{rows: make(map[string]storage.EventRecord)}
}

// Record inserts under the process-wide mutex, which is atomic enough for a
// single process.
func (l *MemoryLedger) Record(ctx context.Context, record storage.EventRecord) (bool, error) {
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now().UTC()
	}
	key := record.Provider + ":" + record.EventID

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.rows[key]; exists {
		return false, nil
	}
	l.rows[key] = record
	return true, nil
}

// Get returns a stored record, or nil when absent.
func (l *MemoryLedger) Get(provider, eventID string) *storage.EventRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if record, ok := l.rows[provider+":"+eventID]; ok {
		return &record
	}
	return nil
}

// Len reports the number of stored records.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

func (l *MemoryLedger) Close() error {
	return nil
}
