// Package pricing holds the token price of every metered action.
package pricing

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/vitwit/meter/types"
	"github.com/vitwit/meter/utils"
)

// PriceList maps each ActionKind to its cost in display units of the token.
// It is immutable once built.
type PriceList struct {
	prices map[types.ActionKind]decimal.Decimal
}

// New builds a price list from decimal strings. Every action kind must be
// priced exactly once with a non-negative amount representable in the
// token's base unit.
func New(prices map[types.ActionKind]string) (*PriceList, error) {
	pl := &PriceList{prices: make(map[types.ActionKind]decimal.Decimal, len(types.AllActions))}

	for kind, raw := range prices {
		if _, err := types.ParseActionKind(string(kind)); err != nil {
			return nil, priceError(fmt.Sprintf("prices: %v", err))
		}
		amount, err := utils.ValidateAmount(raw)
		if err != nil {
			return nil, priceError(fmt.Sprintf("price for %s: %v", kind, err))
		}
		if !amount.Equal(amount.Truncate(types.TokenDecimals)) {
			return nil, priceError(fmt.Sprintf("price for %s has more than %d decimals", kind, types.TokenDecimals))
		}
		pl.prices[kind] = *amount
	}

	for _, kind := range types.AllActions {
		if _, ok := pl.prices[kind]; !ok {
			return nil, priceError(fmt.Sprintf("no price for %s", kind))
		}
	}

	return pl, nil
}

// Default returns the built-in price list.
func Default() *PriceList {
	pl, err := New(types.DefaultPrices)
	if err != nil {
		panic(err)
	}
	return pl
}

// Price returns the cost of kind. A missing entry is a programming error.
func (p *PriceList) Price(kind types.ActionKind) decimal.Decimal {
	price, ok := p.prices[kind]
	if !ok {
		panic(fmt.Sprintf("pricing: no price for action %q", kind))
	}
	return price
}

// BaseUnits returns the cost of kind in the token's smallest unit.
func (p *PriceList) BaseUnits(kind types.ActionKind) *big.Int {
	return utils.ToBaseUnits(p.Price(kind), types.TokenDecimals)
}

// All returns a copy of the price table.
func (p *PriceList) All() map[types.ActionKind]decimal.Decimal {
	out := make(map[types.ActionKind]decimal.Decimal, len(p.prices))
	for k, v := range p.prices {
		out[k] = v
	}
	return out
}

func priceError(msg string) error {
	return types.NewError(types.CodeConfig, msg, nil, nil)
}
