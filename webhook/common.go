// Package webhook contains the HTTP handlers that receive provider
// deliveries. Each handler owns its provider's authentication scheme and
// payload quirks; everything after authentication flows through the shared
// Pipeline so the ledger-before-ack ordering is enforced in one place.
package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"pixhooks/internal"
	"pixhooks/pkg/normalize"
	"pixhooks/pkg/storage"
)

// Error codes returned in the JSON body alongside a non-200 status.
const (
	errInvalidSignature        = "invalid_signature"
	errMissingSignatureHeader  = "missing_signature_header"
	errUnconfiguredEventSecret = "unconfigured_event_secret"
	errMissingEventType        = "missing_event_type"
	errInvalidJSON             = "invalid_json"
	errInvalidToken            = "invalid_token"
	errStoreUnavailable        = "store_unavailable"
)

// Pipeline is everything that happens to a delivery after its provider
// handler has authenticated it: record in the ledger, apply the projection,
// publish to the configured drivers. The provider is acknowledged only after
// the ledger write succeeds, so a crash between receipt and ack means the
// provider retries and the ledger dedups.
type Pipeline struct {
	Ledger      storage.EventLedger
	Projections storage.ProjectionStore
	Rules       *internal.RuleEngine
	Publisher   internal.Publisher
	Logger      *log.Logger

	now func() time.Time
}

func NewPipeline(ledger storage.EventLedger, projections storage.ProjectionStore, rules *internal.RuleEngine, publisher internal.Publisher, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		Ledger:      ledger,
		Projections: projections,
		Rules:       rules,
		Publisher:   publisher,
		Logger:      logger,
		now:         time.Now,
	}
}

// Process runs one authenticated delivery through the pipeline. It returns
// dedup=true when the event id was already in the ledger; a non-nil error
// means the ledger write failed and the handler must not acknowledge.
func (p *Pipeline) Process(ctx context.Context, event internal.Event, update normalize.Update, signatureValid bool) (dedup bool, err error) {
	receivedAt := p.now().UTC()

	inserted, err := p.Ledger.Record(ctx, storage.EventRecord{
		Provider:       event.Provider,
		EventID:        event.EventID,
		EventType:      event.Type,
		CorrelationID:  event.CorrelationID,
		Payload:        event.RawPayload,
		SignatureValid: signatureValid,
		ReceivedAt:     receivedAt,
	})
	if err != nil {
		internal.IncStoreError("ledger")
		return false, err
	}
	if !inserted {
		internal.IncDuplicate(event.Provider)
		p.Logger.Printf("duplicate provider=%s event_id=%s request_id=%s", event.Provider, event.EventID, event.RequestID)
		return true, nil
	}

	if update.Mapped {
		p.applyProjection(ctx, event, update, receivedAt)
	} else if event.Type != "" {
		internal.IncUnmapped(event.Type)
		p.Logger.Printf("unmapped event provider=%s type=%s event_id=%s", event.Provider, event.Type, event.EventID)
	}

	p.publish(ctx, event)
	return false, nil
}

// applyProjection updates the charge or subscription read model. The ledger
// is the source of truth, so a projection failure is logged and counted but
// does not fail the delivery; a retry from the provider would dedup against
// the ledger and never repair the projection anyway.
func (p *Pipeline) applyProjection(ctx context.Context, event internal.Event, update normalize.Update, receivedAt time.Time) {
	switch update.Target {
	case normalize.TargetCharge:
		if update.ChargeID == "" {
			p.Logger.Printf("charge event without charge id, skipping projection: provider=%s type=%s", event.Provider, event.Type)
			return
		}
		paidAt := update.PaidAt
		if paidAt == nil && update.Status == normalize.StatusCompleted {
			paidAt = &receivedAt
		}
		err := p.Projections.UpsertCharge(ctx, storage.ChargeRecord{
			Provider:      event.Provider,
			ChargeID:      update.ChargeID,
			CorrelationID: update.CorrelationID,
			Status:        string(update.Status),
			AmountCents:   update.AmountCents,
			PaidAt:        paidAt,
		})
		if err != nil {
			internal.IncStoreError("charges")
			p.Logger.Printf("charge projection failed: provider=%s charge_id=%s: %v", event.Provider, update.ChargeID, err)
		}
	case normalize.TargetSubscription:
		correlationID := update.CorrelationID
		if correlationID == "" {
			correlationID = update.ProviderID
		}
		if correlationID == "" {
			p.Logger.Printf("subscription event without identifiers, skipping projection: provider=%s type=%s", event.Provider, event.Type)
			return
		}
		err := p.Projections.UpsertSubscription(ctx, storage.SubscriptionRecord{
			Provider:      event.Provider,
			CorrelationID: correlationID,
			ProviderID:    update.ProviderID,
			Status:        string(update.Status),
			LastEventType: event.Type,
		})
		if err != nil {
			internal.IncStoreError("subscriptions")
			p.Logger.Printf("subscription projection failed: provider=%s correlation_id=%s: %v", event.Provider, correlationID, err)
		}
	case normalize.TargetTransaction:
		// Transactions carry no projection; they only feed downstream topics.
	}
}

func (p *Pipeline) publish(ctx context.Context, event internal.Event) {
	if p.Rules == nil || p.Publisher == nil {
		return
	}
	topics := p.Rules.Evaluate(event)
	p.Logger.Printf("event provider=%s type=%s event_id=%s topics=%v", event.Provider, event.Type, event.EventID, topics)
	for _, match := range topics {
		if err := p.Publisher.PublishForDrivers(ctx, match.Topic, event, match.Drivers); err != nil {
			p.Logger.Printf("publish %s failed: %v", match.Topic, err)
		}
	}
}

// deriveEventID picks the idempotency key for a delivery: the provider's
// explicit header when present, then a natural key built from the payload,
// and as a last resort a digest of the raw body so retries of an opaque
// payload still dedup.
func deriveEventID(headerValue string, update normalize.Update, raw []byte) string {
	if headerValue != "" {
		return headerValue
	}
	if update.EventType != "" {
		switch {
		case update.ChargeID != "":
			return update.ChargeID + ":" + update.EventType
		case update.ProviderID != "":
			return update.ProviderID + ":" + update.EventType
		case update.CorrelationID != "":
			return update.CorrelationID + ":" + update.EventType
		}
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, code string) {
	respondJSON(w, status, map[string]interface{}{"ok": false, "error": code})
}

func respondAccepted(w http.ResponseWriter, dedup bool) {
	if dedup {
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true, "dedup": true})
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func decodePayload(raw []byte) (interface{}, bool) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return doc, true
}
