package webhook

import (
	"crypto/subtle"
	"io"
	"log"
	"net/http"

	"pixhooks/internal"
	"pixhooks/pkg/normalize"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"
)

// efiTestEvent is the connectivity probe Efi posts when a webhook URL is
// registered. It must be acknowledged without touching the ledger or the
// registration fails on the provider side.
const efiTestEvent = "teste_webhook"

// EfiHandler receives Efi deliveries. Efi does not sign payloads; it
// authenticates with a shared token carried in a header, and a wrong or
// absent token is a 401 rather than the 400 the signature scheme uses.
type EfiHandler struct {
	token         string
	tokenHeader   string
	eventIDHeader string
	pipeline      *Pipeline
	logger        *log.Logger
}

func NewEfiHandler(cfg internal.EfiConfig, pipeline *Pipeline, logger *log.Logger) *EfiHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &EfiHandler{
		token:         cfg.Token,
		tokenHeader:   cfg.TokenHeader,
		eventIDHeader: cfg.EventIDHeader,
		pipeline:      pipeline,
		logger:        logger,
	}
}

func (h *EfiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	internal.IncRequest(normalize.ProviderEfi)
	requestID := uuid.NewString()

	presented := r.Header.Get(h.tokenHeader)
	if h.token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(h.token)) != 1 {
		internal.IncVerifyFailure(normalize.ProviderEfi)
		h.logger.Printf("efi token rejected request_id=%s", requestID)
		respondError(w, http.StatusUnauthorized, errInvalidToken)
		return
	}

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidJSON)
		return
	}

	doc, ok := decodePayload(rawBody)
	if !ok {
		h.logger.Printf("efi invalid json request_id=%s", requestID)
		respondError(w, http.StatusBadRequest, errInvalidJSON)
		return
	}

	if probe, err := jsonpath.Get("$.evento", doc); err == nil {
		if name, ok := probe.(string); ok && name == efiTestEvent {
			respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
			return
		}
	}

	update := normalize.Efi(doc)
	event := internal.Event{
		Provider:      normalize.ProviderEfi,
		Type:          update.EventType,
		EventID:       deriveEventID(r.Header.Get(h.eventIDHeader), update, rawBody),
		RequestID:     requestID,
		Status:        string(update.Status),
		Target:        string(update.Target),
		CorrelationID: update.CorrelationID,
		ChargeID:      update.ChargeID,
		AmountCents:   update.AmountCents,
		RawPayload:    rawBody,
	}

	dedup, err := h.pipeline.Process(r.Context(), event, update, true)
	if err != nil {
		h.logger.Printf("efi ledger write failed event_id=%s request_id=%s: %v", event.EventID, requestID, err)
		respondError(w, http.StatusInternalServerError, errStoreUnavailable)
		return
	}
	respondAccepted(w, dedup)
}
