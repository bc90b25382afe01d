package normalize

import "strings"

const ProviderEfi = "efi"

// efiStatuses translates the bank-grade provider's Portuguese status
// vocabulary into the canonical one. Statuses arrive in mixed case depending
// on the endpoint that produced the webhook, so lookup is lowercase.
var efiStatuses = map[string]Status{
	"criada":    StatusCreated,
	"ativa":     StatusApproved,
	"aprovada":  StatusApproved,
	"pago":      StatusCompleted,
	"paga":      StatusCompleted,
	"concluida": StatusCompleted,
	"rejeitada": StatusRejected,
	"expirado":  StatusExpired,
	"expirada":  StatusExpired,
	"cancelada": StatusCanceled,
}

// Efi normalizes a decoded Efi payload. Efi does not send an explicit event
// type field, so one is synthesized from the payload shape and status, e.g.
// "cobr.pago" for a completed recurring charge or "rec.ativa" for an
// activated recurrence.
func Efi(doc interface{}) Update {
	update := Update{Provider: ProviderEfi}

	update.ChargeID, _ = lookupString(doc,
		"$.cobr.txid",
		"$.txid",
		"$.id",
	)
	update.ProviderID, _ = lookupString(doc,
		"$.rec.idRec",
		"$.rec.id",
		"$.idRec",
	)
	update.CorrelationID, _ = lookupString(doc,
		"$.correlationID",
		"$.rec.contrato",
		"$.cobr.infoAdicional",
	)
	update.AmountCents, _ = lookupCents(doc,
		"$.cobr.valor.original",
		"$.cobr.valor",
		"$.valor.original",
		"$.valor",
	)
	update.PaidAt, _ = lookupTime(doc,
		"$.cobr.horario",
		"$.horario",
	)

	rawStatus, hasStatus := lookupString(doc,
		"$.cobr.status",
		"$.rec.status",
		"$.status",
	)
	if !hasStatus {
		return update
	}

	kind := "cobr"
	if update.ProviderID != "" && update.ChargeID == "" {
		kind = "rec"
	}
	lowered := strings.ToLower(rawStatus)
	update.EventType = kind + "." + lowered

	if status, known := efiStatuses[lowered]; known {
		update.Mapped = true
		update.Status = status
		if kind == "rec" {
			update.Target = TargetSubscription
		} else {
			update.Target = TargetCharge
		}
	}

	return update
}
