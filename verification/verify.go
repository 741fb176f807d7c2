// Package verification implements the local affordability check that runs
// before any payment is attempted. It never talks to the network.
package verification

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vitwit/meter/balance"
	"github.com/vitwit/meter/pricing"
	"github.com/vitwit/meter/types"
)

// Verifier decides whether a cached balance can pay for an action.
type Verifier interface {
	Verify(network types.NetworkKey, snapshot balance.Snapshot, kind types.ActionKind) (decimal.Decimal, error)
}

// VerificationService checks snapshots against a price list.
type VerificationService struct {
	prices *pricing.PriceList
}

func NewVerificationService(prices *pricing.PriceList) *VerificationService {
	return &VerificationService{prices: prices}
}

// Verify returns the price of kind when snapshot covers it. A balance equal
// to the price is enough. A snapshot that is unknown or was read on another
// network is refused with network_query_failed; the caller refreshes first.
func (s *VerificationService) Verify(
	network types.NetworkKey,
	snapshot balance.Snapshot,
	kind types.ActionKind,
) (decimal.Decimal, error) {
	price := s.prices.Price(kind)

	if !snapshot.FreshFor(network) {
		return price, types.NewError(
			types.CodeNetworkQuery,
			fmt.Sprintf("no balance known for %s", network),
			map[string]any{
				types.DetailAction:  kind.String(),
				types.DetailNetwork: network.String(),
			},
			nil,
		)
	}

	if snapshot.Amount.LessThan(price) {
		return price, InsufficientBalance(network, kind, price, snapshot.Amount)
	}
	return price, nil
}

// Affordable reports, per action kind, whether snapshot can pay for it on
// network. Menus use it to grey out entries without starting an action.
func (s *VerificationService) Affordable(network types.NetworkKey, snapshot balance.Snapshot) map[types.ActionKind]bool {
	out := make(map[types.ActionKind]bool, len(types.AllActions))
	for _, kind := range types.AllActions {
		_, err := s.Verify(network, snapshot, kind)
		out[kind] = err == nil
	}
	return out
}

// InsufficientBalance builds the rejection for kind. Amounts are carried as
// decimal strings in the details.
func InsufficientBalance(network types.NetworkKey, kind types.ActionKind, price, bal decimal.Decimal) *types.MeterError {
	return types.NewError(
		types.CodeInsufficientBalance,
		fmt.Sprintf("You need at least %s tokens to %s", price.String(), kind.Verb()),
		map[string]any{
			types.DetailAction:    kind.String(),
			types.DetailNetwork:   network.String(),
			types.DetailRequired:  price.String(),
			types.DetailBalance:   bal.String(),
			types.DetailShortfall: price.Sub(bal).String(),
		},
		nil,
	)
}
