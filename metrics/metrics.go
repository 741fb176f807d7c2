package metrics

import "time"

// Counter and latency names recorded by the gateway.
const (
	EventAuthorized       = "authorized"
	EventRejected         = "rejected"
	EventFailed           = "failed"
	EventRefreshWarning   = "refresh_warning"
	EventPaymentSubmitted = "payment_submitted"
	EventEffectFailed     = "effect_failed"

	OpConfirmation   = "confirmation"
	OpBalanceRefresh = "balance_refresh"
	OpAuthorize      = "authorize"
)

// Label keys understood by the recorders.
const (
	LabelNetwork = "network"
	LabelAction  = "action"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
