package normalize

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return doc
}

// TestWooviChargeCompleted checks the main happy-path mapping with fields in
// their primary locations.
func TestWooviChargeCompleted(t *testing.T) {
	doc := decode(t, `{
		"type": "OPENPIX:CHARGE_COMPLETED",
		"charge": {
			"id": "ch_1",
			"correlationID": "order-42",
			"value": 5500,
			"paidAt": "2026-08-29T12:00:00Z"
		}
	}`)

	update := Woovi(doc)
	if !update.Mapped {
		t.Fatal("expected a mapped event")
	}
	if update.Status != StatusCompleted || update.Target != TargetCharge {
		t.Fatalf("unexpected mapping: %s/%s", update.Status, update.Target)
	}
	if update.ChargeID != "ch_1" || update.CorrelationID != "order-42" {
		t.Fatalf("unexpected identifiers: %q %q", update.ChargeID, update.CorrelationID)
	}
	if update.AmountCents != 5500 {
		t.Fatalf("unexpected amount: %d", update.AmountCents)
	}
	if update.PaidAt == nil {
		t.Fatal("expected paidAt to be extracted")
	}
}

// TestWooviFallbackLocations checks that identifiers are still found when the
// provider uses secondary payload shapes.
func TestWooviFallbackLocations(t *testing.T) {
	doc := decode(t, `{
		"event": "PIX_AUTOMATIC_COBR_APPROVED",
		"data": {"id": "cobr_9", "correlationID": "sub-7", "value": 990}
	}`)

	update := Woovi(doc)
	if !update.Mapped || update.Status != StatusApproved || update.Target != TargetCharge {
		t.Fatalf("unexpected mapping: %+v", update)
	}
	if update.ChargeID != "cobr_9" || update.CorrelationID != "sub-7" || update.AmountCents != 990 {
		t.Fatalf("fallback extraction failed: %+v", update)
	}
}

// TestWooviUnknownType checks that unknown event types are passed through
// unmapped instead of failing.
func TestWooviUnknownType(t *testing.T) {
	update := Woovi(decode(t, `{"type": "OPENPIX:MOVEMENT_CONFIRMED", "charge": {"id": "ch_2"}}`))
	if update.Mapped {
		t.Fatal("unknown type should not map")
	}
	if update.EventType != "OPENPIX:MOVEMENT_CONFIRMED" {
		t.Fatalf("event type should still be extracted, got %q", update.EventType)
	}
	if update.ChargeID != "ch_2" {
		t.Fatal("identifiers should still be extracted for unmapped events")
	}
}

// TestWooviSubscriptionEvents checks the recurring-payment mandate mappings.
func TestWooviSubscriptionEvents(t *testing.T) {
	doc := decode(t, `{
		"type": "PIX_AUTOMATIC_APPROVED",
		"pixAutomatic": {"id": "rec_1", "correlationID": "plan-3"}
	}`)

	update := Woovi(doc)
	if update.Target != TargetSubscription || update.Status != StatusApproved {
		t.Fatalf("unexpected mapping: %+v", update)
	}
	if update.ProviderID != "rec_1" || update.CorrelationID != "plan-3" {
		t.Fatalf("unexpected identifiers: %+v", update)
	}
}

// TestWooviEventTypesCoverMappings checks that the advertised taxonomy and
// the mapping table agree, since the verifier validates secrets against it.
func TestWooviEventTypesCoverMappings(t *testing.T) {
	types := WooviEventTypes()
	if len(types) != len(wooviEvents) {
		t.Fatalf("expected %d types, got %d", len(wooviEvents), len(types))
	}
	for _, eventType := range types {
		if _, ok := wooviEvents[eventType]; !ok {
			t.Fatalf("advertised type %q has no mapping", eventType)
		}
	}
}

// TestEfiPaidCharge checks the decimal-reais amount handling and the
// synthesized event type for a settled recurring charge.
func TestEfiPaidCharge(t *testing.T) {
	doc := decode(t, `{
		"cobr": {
			"txid": "tx_55",
			"status": "pago",
			"valor": {"original": "55.00"},
			"horario": "2026-08-29T09:30:00-03:00"
		}
	}`)

	update := Efi(doc)
	if !update.Mapped || update.Status != StatusCompleted || update.Target != TargetCharge {
		t.Fatalf("unexpected mapping: %+v", update)
	}
	if update.EventType != "cobr.pago" {
		t.Fatalf("unexpected synthesized type: %q", update.EventType)
	}
	if update.ChargeID != "tx_55" || update.AmountCents != 5500 {
		t.Fatalf("unexpected extraction: %+v", update)
	}
	if update.PaidAt == nil {
		t.Fatal("expected horario to be extracted")
	}
}

// TestEfiRecurrence checks that recurrence payloads target the subscription
// projection.
func TestEfiRecurrence(t *testing.T) {
	doc := decode(t, `{"rec": {"idRec": "rec_77", "status": "ATIVA", "contrato": "ctr-1"}}`)

	update := Efi(doc)
	if !update.Mapped || update.Status != StatusApproved || update.Target != TargetSubscription {
		t.Fatalf("unexpected mapping: %+v", update)
	}
	if update.EventType != "rec.ativa" {
		t.Fatalf("unexpected synthesized type: %q", update.EventType)
	}
	if update.ProviderID != "rec_77" || update.CorrelationID != "ctr-1" {
		t.Fatalf("unexpected identifiers: %+v", update)
	}
}

// TestEfiUnknownStatus checks that an unrecognized status still yields a
// synthesized event type without a mapping.
func TestEfiUnknownStatus(t *testing.T) {
	update := Efi(decode(t, `{"cobr": {"txid": "tx_1", "status": "devolvido"}}`))
	if update.Mapped {
		t.Fatal("unknown status should not map")
	}
	if update.EventType != "cobr.devolvido" {
		t.Fatalf("unexpected synthesized type: %q", update.EventType)
	}
}

// TestEfiExpired checks the expiry mapping used by charge lifecycle cleanup.
func TestEfiExpired(t *testing.T) {
	update := Efi(decode(t, `{"txid": "tx_2", "status": "expirado", "valor": "12.34"}`))
	if update.Status != StatusExpired || update.AmountCents != 1234 {
		t.Fatalf("unexpected mapping: %+v", update)
	}
}
