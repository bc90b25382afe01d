package worker

import "encoding/json"

// Event represents one payment event received from a broker topic.
type Event struct {
	// Provider is the payment provider that originated the event ("woovi", "efi").
	Provider string `json:"provider"`
	// Type is the provider's event type (e.g. "OPENPIX:CHARGE_COMPLETED").
	Type string `json:"type"`
	// EventID is the idempotency key assigned at ingestion.
	EventID string `json:"event_id"`
	// RequestID correlates the event with the ingestion request that produced it.
	RequestID string `json:"request_id"`
	// Status is the canonical status carried in the message metadata.
	Status string `json:"status"`
	// Topic is the topic the message was received on.
	Topic string `json:"topic"`
	// Metadata contains message-broker-specific metadata.
	Metadata map[string]string `json:"metadata"`
	// Payload is the provider's original webhook body, byte for byte.
	Payload json.RawMessage `json:"payload"`
	// Normalized is the decoded JSON payload.
	Normalized map[string]interface{} `json:"normalized"`
}
