package verification

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/meter/balance"
	"github.com/vitwit/meter/pricing"
	"github.com/vitwit/meter/types"
)

const network = types.NetworkKey("BASE_SEPOLIA")

func snapshot(amount string) balance.Snapshot {
	return balance.Snapshot{
		Amount:  decimal.RequireFromString(amount),
		Network: network,
		Known:   true,
	}
}

func TestVerify_Insufficient(t *testing.T) {
	svc := NewVerificationService(pricing.Default())

	price, err := svc.Verify(network, snapshot("0.3"), types.ActionPrint)
	require.Error(t, err)
	assert.Equal(t, "0.5", price.String())
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)
	assert.Contains(t, err.Error(), "need at least 0.5")
	assert.Contains(t, err.Error(), "to print")

	var me *types.MeterError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "0.5", me.Detail(types.DetailRequired))
	assert.Equal(t, "0.3", me.Detail(types.DetailBalance))
	assert.Equal(t, "0.2", me.Detail(types.DetailShortfall))
	assert.Equal(t, "print", me.Detail(types.DetailAction))
}

func TestVerify_Boundaries(t *testing.T) {
	svc := NewVerificationService(pricing.Default())

	tests := []struct {
		balance string
		kind    types.ActionKind
		ok      bool
	}{
		{"1", types.ActionSave, true},
		{"0.999999999999999999", types.ActionSave, false},
		{"0.5", types.ActionEmail, true},
		{"0", types.ActionPrint, false},
		{"100", types.ActionSaveAs, true},
	}

	for _, tt := range tests {
		_, err := svc.Verify(network, snapshot(tt.balance), tt.kind)
		if tt.ok {
			assert.NoError(t, err, "%s with %s", tt.kind, tt.balance)
		} else {
			assert.ErrorIs(t, err, types.ErrInsufficientBalance, "%s with %s", tt.kind, tt.balance)
		}
	}
}

func TestVerify_StaleSnapshot(t *testing.T) {
	svc := NewVerificationService(pricing.Default())

	_, err := svc.Verify(network, balance.Snapshot{}, types.ActionSave)
	assert.ErrorIs(t, err, types.ErrNetworkQuery)

	other := snapshot("10")
	other.Network = "SEPOLIA"
	_, err = svc.Verify(network, other, types.ActionSave)
	assert.ErrorIs(t, err, types.ErrNetworkQuery)
}

func TestAffordable(t *testing.T) {
	svc := NewVerificationService(pricing.Default())

	got := svc.Affordable(network, snapshot("0.5"))
	assert.Equal(t, map[types.ActionKind]bool{
		types.ActionSave:   false,
		types.ActionSaveAs: false,
		types.ActionPrint:  true,
		types.ActionEmail:  true,
	}, got)
}
