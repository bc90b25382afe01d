package webhook

import (
	"errors"
	"io"
	"log"
	"net/http"

	"pixhooks/internal"
	"pixhooks/pkg/normalize"
	"pixhooks/pkg/verify"

	"github.com/google/uuid"
)

// WooviHandler receives Woovi/OpenPix deliveries. Woovi signs the raw body
// with HMAC-SHA256 and sends the digest in a signature header; every failure
// of that scheme is a 400 with a machine-readable error code so the provider
// dashboard shows why a delivery was refused.
type WooviHandler struct {
	verifier      *verify.Verifier
	sigHeader     string
	eventIDHeader string
	pipeline      *Pipeline
	logger        *log.Logger
}

func NewWooviHandler(verifier *verify.Verifier, cfg internal.WooviConfig, pipeline *Pipeline, logger *log.Logger) *WooviHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &WooviHandler{
		verifier:      verifier,
		sigHeader:     cfg.SignatureHeader,
		eventIDHeader: cfg.EventIDHeader,
		pipeline:      pipeline,
		logger:        logger,
	}
}

func (h *WooviHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	internal.IncRequest(normalize.ProviderWoovi)
	requestID := uuid.NewString()

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidJSON)
		return
	}

	doc, ok := decodePayload(rawBody)
	if !ok {
		h.logger.Printf("woovi invalid json request_id=%s", requestID)
		respondError(w, http.StatusBadRequest, errInvalidJSON)
		return
	}

	eventType, ok := normalize.WooviEventType(doc)
	if !ok {
		h.logger.Printf("woovi payload without event type request_id=%s", requestID)
		respondError(w, http.StatusBadRequest, errMissingEventType)
		return
	}

	signatureValid, err := h.verifier.Verify(eventType, rawBody, r.Header.Get(h.sigHeader))
	if err != nil {
		internal.IncVerifyFailure(normalize.ProviderWoovi)
		h.logger.Printf("woovi verification failed type=%s request_id=%s: %v", eventType, requestID, err)
		respondError(w, http.StatusBadRequest, wooviVerifyCode(err))
		return
	}

	update := normalize.Woovi(doc)
	event := internal.Event{
		Provider:      normalize.ProviderWoovi,
		Type:          eventType,
		EventID:       deriveEventID(r.Header.Get(h.eventIDHeader), update, rawBody),
		RequestID:     requestID,
		Status:        string(update.Status),
		Target:        string(update.Target),
		CorrelationID: update.CorrelationID,
		ChargeID:      update.ChargeID,
		AmountCents:   update.AmountCents,
		RawPayload:    rawBody,
	}

	dedup, err := h.pipeline.Process(r.Context(), event, update, signatureValid)
	if err != nil {
		h.logger.Printf("woovi ledger write failed event_id=%s request_id=%s: %v", event.EventID, requestID, err)
		respondError(w, http.StatusInternalServerError, errStoreUnavailable)
		return
	}
	respondAccepted(w, dedup)
}

func wooviVerifyCode(err error) string {
	switch {
	case errors.Is(err, verify.ErrMissingSignature):
		return errMissingSignatureHeader
	case errors.Is(err, verify.ErrNoSecret):
		return errUnconfiguredEventSecret
	default:
		return errInvalidSignature
	}
}
