package internal

import "expvar"

var (
	requestsTotal   = expvar.NewMap("pixhooks_requests_total")
	verifyFailures  = expvar.NewMap("pixhooks_verify_failures_total")
	duplicateEvents = expvar.NewMap("pixhooks_duplicate_events_total")
	unmappedEvents  = expvar.NewMap("pixhooks_unmapped_events_total")
	storeErrors     = expvar.NewMap("pixhooks_store_errors_total")
	publishErrors   = expvar.NewMap("pixhooks_publish_errors_total")
)

func IncRequest(provider string) {
	requestsTotal.Add(provider, 1)
}

func IncVerifyFailure(provider string) {
	verifyFailures.Add(provider, 1)
}

func IncDuplicate(provider string) {
	duplicateEvents.Add(provider, 1)
}

func IncUnmapped(eventType string) {
	unmappedEvents.Add(eventType, 1)
}

func IncStoreError(component string) {
	storeErrors.Add(component, 1)
}

func IncPublishError(driver string) {
	publishErrors.Add(driver, 1)
}
