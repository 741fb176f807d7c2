package types

import (
	"errors"
	"fmt"
)

// MeterError is the error type returned by every gateway operation. Code
// identifies the failure class; Details carries values a caller may need to
// build a user message (required amount, transaction hash, ...).
type MeterError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *MeterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *MeterError) Unwrap() error {
	return e.Err
}

// Is matches any *MeterError carrying the same code, so the sentinels below
// work with errors.Is.
func (e *MeterError) Is(target error) bool {
	t, ok := target.(*MeterError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Detail returns a detail value or nil.
func (e *MeterError) Detail(key string) any {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// Error codes
const (
	CodeUnsupportedNetwork    = "unsupported_network"
	CodeMissingDeployment     = "missing_deployment"
	CodeInsufficientBalance   = "insufficient_balance"
	CodePaymentSubmission     = "payment_submission_failed"
	CodePaymentNotConfirmed   = "payment_not_confirmed"
	CodeBalanceRefreshWarning = "balance_refresh_warning"
	CodeDomainEffect          = "domain_effect_failed"
	CodeNetworkQuery          = "network_query_failed"
	CodeActionInProgress      = "action_in_progress"
	CodeConfig                = "config_error"
)

// Sentinels for errors.Is.
var (
	ErrUnsupportedNetwork    = &MeterError{Code: CodeUnsupportedNetwork}
	ErrMissingDeployment     = &MeterError{Code: CodeMissingDeployment}
	ErrInsufficientBalance   = &MeterError{Code: CodeInsufficientBalance}
	ErrPaymentSubmission     = &MeterError{Code: CodePaymentSubmission}
	ErrPaymentNotConfirmed   = &MeterError{Code: CodePaymentNotConfirmed}
	ErrBalanceRefreshWarning = &MeterError{Code: CodeBalanceRefreshWarning}
	ErrDomainEffect          = &MeterError{Code: CodeDomainEffect}
	ErrNetworkQuery          = &MeterError{Code: CodeNetworkQuery}
	ErrActionInProgress      = &MeterError{Code: CodeActionInProgress}
	ErrConfig                = &MeterError{Code: CodeConfig}
)

// Detail keys
const (
	DetailAction    = "action"
	DetailNetwork   = "network"
	DetailChainID   = "chainId"
	DetailRequired  = "required"
	DetailBalance   = "balance"
	DetailShortfall = "shortfall"
	DetailTxHash    = "txHash"
	DetailReason    = "reason"
)

// Reasons attached to payment_not_confirmed errors.
const (
	ReasonReverted = "reverted"
	ReasonTimeout  = "timeout"
)

// NewError builds a MeterError.
func NewError(code, message string, details map[string]any, cause error) *MeterError {
	return &MeterError{
		Code:    code,
		Message: message,
		Details: details,
		Err:     cause,
	}
}

// CodeOf returns the code of the first MeterError in err's chain, or "".
func CodeOf(err error) string {
	var me *MeterError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// PaymentTaken reports whether err describes a state in which the user's
// tokens were spent on-chain.
func PaymentTaken(err error) bool {
	switch CodeOf(err) {
	case CodeBalanceRefreshWarning, CodeDomainEffect:
		return true
	default:
		return false
	}
}

// RetrySafe reports whether repeating the action after err cannot charge the
// user a second time for the same intent. A reverted payment moved no tokens
// and is safe. A payment whose confirmation was not observed is neither taken
// nor retry safe: it may still land.
func RetrySafe(err error) bool {
	switch CodeOf(err) {
	case CodeUnsupportedNetwork,
		CodeMissingDeployment,
		CodeInsufficientBalance,
		CodePaymentSubmission,
		CodeNetworkQuery,
		CodeActionInProgress,
		CodeConfig:
		return true
	case CodePaymentNotConfirmed:
		return Reverted(err)
	default:
		return false
	}
}

// Reverted reports whether err is a payment_not_confirmed error for a
// transaction that was mined and reverted.
func Reverted(err error) bool {
	var me *MeterError
	if !errors.As(err, &me) || me.Code != CodePaymentNotConfirmed {
		return false
	}
	return me.Detail(DetailReason) == ReasonReverted
}
