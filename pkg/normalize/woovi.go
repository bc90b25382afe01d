package normalize

import "sort"

const ProviderWoovi = "woovi"

type wooviMapping struct {
	status Status
	target Target
}

// wooviEvents is the closed taxonomy of Woovi/OpenPix event types this
// pipeline understands. Anything else is stored but not projected.
var wooviEvents = map[string]wooviMapping{
	"PIX_AUTOMATIC_APPROVED":       {StatusApproved, TargetSubscription},
	"PIX_AUTOMATIC_REJECTED":       {StatusRejected, TargetSubscription},
	"PIX_AUTOMATIC_COBR_CREATED":   {StatusCreated, TargetCharge},
	"PIX_AUTOMATIC_COBR_APPROVED":  {StatusApproved, TargetCharge},
	"PIX_AUTOMATIC_COBR_REJECTED":  {StatusRejected, TargetCharge},
	"PIX_AUTOMATIC_COBR_COMPLETED": {StatusCompleted, TargetCharge},
	"OPENPIX:CHARGE_CREATED":       {StatusCreated, TargetCharge},
	"OPENPIX:CHARGE_COMPLETED":     {StatusCompleted, TargetCharge},
	"OPENPIX:CHARGE_EXPIRED":       {StatusExpired, TargetCharge},
	"OPENPIX:TRANSACTION_RECEIVED": {StatusReceived, TargetTransaction},
}

// WooviEventTypes returns the known Woovi event types in stable order. The
// verifier validates its secret map against this set at startup so a typo in
// configuration surfaces before the first delivery arrives.
func WooviEventTypes() []string {
	types := make([]string, 0, len(wooviEvents))
	for eventType := range wooviEvents {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}

// WooviEventType extracts the declared event type from a decoded payload.
func WooviEventType(doc interface{}) (string, bool) {
	return lookupString(doc, "$.type", "$.event", "$.evento")
}

// Woovi normalizes a decoded Woovi/OpenPix payload.
func Woovi(doc interface{}) Update {
	update := Update{Provider: ProviderWoovi}

	if eventType, ok := WooviEventType(doc); ok {
		update.EventType = eventType
		if mapping, known := wooviEvents[eventType]; known {
			update.Mapped = true
			update.Status = mapping.status
			update.Target = mapping.target
		}
	}

	update.ChargeID, _ = lookupString(doc,
		"$.charge.id",
		"$.charge.identifier",
		"$.charge.transactionID",
		"$.data.id",
	)
	update.CorrelationID, _ = lookupString(doc,
		"$.correlationID",
		"$.charge.correlationID",
		"$.subscription.correlationID",
		"$.pixAutomatic.correlationID",
		"$.data.correlationID",
	)
	update.ProviderID, _ = lookupString(doc,
		"$.subscription.globalID",
		"$.subscription.id",
		"$.pixAutomatic.id",
	)
	update.AmountCents, _ = lookupCents(doc,
		"$.charge.value",
		"$.pix.value",
		"$.data.value",
		"$.value",
	)
	update.PaidAt, _ = lookupTime(doc,
		"$.charge.paidAt",
		"$.pix.time",
		"$.data.paidAt",
	)

	return update
}
