// Package normalize maps heterogeneous provider webhook payloads into
// canonical charge/subscription updates. Each provider gets a small set of
// named parser functions; every field is read from an ordered list of
// plausible locations because the payload shape is controlled by the
// provider, not by us. A field that is absent everywhere skips that part of
// the update instead of failing processing.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

// Status is the canonical status vocabulary shared by both providers.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusApproved  Status = "APPROVED"
	StatusCompleted Status = "COMPLETED"
	StatusRejected  Status = "REJECTED"
	StatusExpired   Status = "EXPIRED"
	StatusCanceled  Status = "CANCELED"
	StatusReceived  Status = "RECEIVED"
)

// Target names the projection an update applies to.
type Target string

const (
	TargetCharge       Target = "charge"
	TargetSubscription Target = "subscription"
	TargetTransaction  Target = "transaction"
)

// Update is the canonical outcome of normalizing one payload. Mapped is false
// for event types outside the known taxonomy: such events are accepted and
// stored but produce no projection change, which keeps the pipeline forward
// compatible with new provider events.
type Update struct {
	Provider      string
	EventType     string
	Status        Status
	Target        Target
	Mapped        bool
	CorrelationID string
	ChargeID      string
	ProviderID    string
	AmountCents   int64
	PaidAt        *time.Time
}

// lookupString returns the first non-empty string found at the given
// JSONPath locations.
func lookupString(doc interface{}, paths ...string) (string, bool) {
	for _, path := range paths {
		value, err := jsonpath.Get(path, doc)
		if err != nil {
			continue
		}
		if s, ok := value.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}

// lookupCents returns the first numeric value found at the given locations,
// interpreted as integer cents. Decimal strings are treated as reais
// ("55.00" -> 5500), matching how the bank-grade provider formats amounts.
func lookupCents(doc interface{}, paths ...string) (int64, bool) {
	for _, path := range paths {
		value, err := jsonpath.Get(path, doc)
		if err != nil {
			continue
		}
		switch typed := value.(type) {
		case float64:
			if typed > 0 {
				return int64(math.Round(typed)), true
			}
		case string:
			parsed, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(typed), ",", ".", 1), 64)
			if err == nil && parsed > 0 {
				return int64(math.Round(parsed * 100)), true
			}
		}
	}
	return 0, false
}

// lookupTime returns the first RFC 3339 timestamp found at the given
// locations.
func lookupTime(doc interface{}, paths ...string) (*time.Time, bool) {
	for _, path := range paths {
		value, err := jsonpath.Get(path, doc)
		if err != nil {
			continue
		}
		s, ok := value.(string)
		if !ok {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
		if err != nil {
			continue
		}
		utc := parsed.UTC()
		return &utc, true
	}
	return nil, false
}
