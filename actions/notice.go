package actions

import (
	"errors"
	"fmt"

	"github.com/vitwit/meter"
	"github.com/vitwit/meter/types"
)

var titles = map[types.ActionKind]string{
	types.ActionSave:   "Save",
	types.ActionSaveAs: "Save As",
	types.ActionPrint:  "Print",
	types.ActionEmail:  "Email",
}

// Succeeded builds the notice for an authorized action whose effect
// completed. A balance refresh warning downgrades it to LevelWarning.
func Succeeded(kind types.ActionKind, auth *meter.Authorization, message string) Notice {
	n := Notice{Kind: kind, Level: LevelSuccess, Title: titles[kind], Message: message}
	if auth != nil && auth.Warning != nil {
		n.Level = LevelWarning
		n.Message += ". Your token balance could not be refreshed and may be out of date."
		n.Err = auth.Warning
	}
	return n
}

// Describe maps a gateway error to the notice shown to the user. The
// wording tells the user whether tokens were spent and whether a retry is
// safe.
func Describe(kind types.ActionKind, err error) Notice {
	n := Notice{Kind: kind, Level: LevelError, Title: titles[kind], Err: err}

	var me *types.MeterError
	switch {
	case errors.Is(err, types.ErrInsufficientBalance) && errors.As(err, &me):
		n.Level = LevelWarning
		n.Message = me.Message
	case errors.Is(err, types.ErrActionInProgress):
		n.Level = LevelWarning
		n.Message = "Another payment is still in progress. Please wait for it to finish."
	case types.Reverted(err):
		n.Message = "Payment was reverted on-chain and no tokens were transferred. It is safe to try again."
	case errors.Is(err, types.ErrPaymentNotConfirmed):
		n.Message = "Payment confirmation was not observed in time. The transfer may still go through, so check your wallet before retrying."
	case errors.Is(err, types.ErrDomainEffect):
		n.Message = fmt.Sprintf("Payment succeeded but %s failed. Retrying will charge again.", kind.Verb())
	case types.RetrySafe(err) && errors.As(err, &me):
		n.Message = fmt.Sprintf("Payment was not made: %s. It is safe to try again.", me.Message)
	default:
		n.Message = "Failed to process token payment"
	}
	return n
}
