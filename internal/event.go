package internal

import "time"

// InboundEvent is the durable record of one received webhook delivery. It is
// written to the ledger before the provider is acknowledged and never mutated
// afterwards; the row doubles as the audit trail.
type InboundEvent struct {
	Provider       string    `json:"provider"`
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
	Payload        []byte    `json:"payload"`
	SignatureValid bool      `json:"signature_valid"`
	ReceivedAt     time.Time `json:"received_at"`
}

// Event is the canonical form published to downstream consumers after an
// inbound delivery has been verified, recorded, and normalized.
type Event struct {
	Provider      string `json:"provider"`
	Type          string `json:"type"`
	EventID       string `json:"event_id"`
	RequestID     string `json:"request_id,omitempty"`
	Status        string `json:"status,omitempty"`
	Target        string `json:"target,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	ChargeID      string `json:"charge_id,omitempty"`
	AmountCents   int64  `json:"amount_cents,omitempty"`
	RawPayload    []byte `json:"-"`
}
