package worker

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Codec is an interface for decoding messages from a message broker into an Event.
type Codec interface {
	// Decode transforms a Watermill message into an Event.
	Decode(topic string, msg *message.Message) (*Event, error)
}

// DefaultCodec is the default implementation of the Codec interface. Messages
// published by the ingestion gateway carry the provider's original body as
// payload and the canonical fields in metadata, so decoding reads the
// metadata first and falls back to fields embedded in the payload.
type DefaultCodec struct{}

// envelope covers payloads republished by intermediate consumers that embed
// the canonical fields in the body instead of metadata.
type envelope struct {
	Provider string `json:"provider"`
	Type     string `json:"type"`
	EventID  string `json:"event_id"`
	Status   string `json:"status"`
}

// Decode unmarshals a Watermill message into an Event.
func (DefaultCodec) Decode(topic string, msg *message.Message) (*Event, error) {
	var env envelope
	_ = json.Unmarshal(msg.Payload, &env)

	metadata := make(map[string]string, len(msg.Metadata))
	for key, value := range msg.Metadata {
		metadata[key] = value
	}

	provider := msg.Metadata.Get("provider")
	if provider == "" {
		provider = env.Provider
	}
	eventType := msg.Metadata.Get("event")
	if eventType == "" {
		eventType = env.Type
	}
	eventID := msg.Metadata.Get("event_id")
	if eventID == "" {
		eventID = env.EventID
	}
	status := msg.Metadata.Get("status")
	if status == "" {
		status = env.Status
	}

	var normalized map[string]interface{}
	var raw interface{}
	if err := json.Unmarshal(msg.Payload, &raw); err == nil {
		if object, ok := raw.(map[string]interface{}); ok {
			normalized = object
		}
	}

	return &Event{
		Provider:   provider,
		Type:       eventType,
		EventID:    eventID,
		RequestID:  msg.Metadata.Get("request_id"),
		Status:     status,
		Topic:      topic,
		Metadata:   metadata,
		Payload:    json.RawMessage(msg.Payload),
		Normalized: normalized,
	}, nil
}
