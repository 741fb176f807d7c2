package balance

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/meter/clients/clientstest"
	"github.com/vitwit/meter/registry"
	"github.com/vitwit/meter/types"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	deployments := map[types.NetworkKey]types.ContractAddressSet{}
	for i, network := range registry.DefaultNetworks() {
		deployments[network.Key] = types.ContractAddressSet{
			Token:   common.BigToAddress(big.NewInt(int64(100 + i))),
			Invoice: common.BigToAddress(big.NewInt(int64(200 + i))),
		}
	}
	reg, err := registry.New(registry.DefaultNetworks(), deployments)
	require.NoError(t, err)
	return reg
}

func decimalTokens(raw string) *big.Int {
	v, _ := new(big.Int).SetString(raw, 10)
	return v
}

func TestTracker_Refresh(t *testing.T) {
	tracker := NewTracker(newTestRegistry(t), nil, nil)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return fixed }

	assert.False(t, tracker.Snapshot().Known)

	wallet := clientstest.NewWallet("0x14a34", decimalTokens("1300000000000000000"))
	snap, err := tracker.Refresh(context.Background(), wallet)
	require.NoError(t, err)

	assert.True(t, snap.Known)
	assert.Equal(t, registry.BaseSepolia, snap.Network)
	assert.Equal(t, "1.3", snap.Amount.String())
	assert.Equal(t, fixed, snap.UpdatedAt)
	assert.Equal(t, snap, tracker.Snapshot())

	assert.True(t, snap.FreshFor(registry.BaseSepolia))
	assert.False(t, snap.FreshFor(registry.Sepolia))

	assert.Equal(t, 1, wallet.Calls(clientstest.MethodGetUserTokens))
	assert.Zero(t, wallet.Calls(clientstest.MethodSend))
}

func TestTracker_RefreshFailureKeepsSnapshot(t *testing.T) {
	tracker := NewTracker(newTestRegistry(t), nil, nil)
	wallet := clientstest.NewWallet("0x14a34", clientstest.Tokens(2))

	before, err := tracker.Refresh(context.Background(), wallet)
	require.NoError(t, err)

	wallet.Update(func(w *clientstest.Wallet) { w.CallErr = errors.New("rpc unavailable") })
	_, err = tracker.Refresh(context.Background(), wallet)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNetworkQuery)
	assert.Equal(t, before, tracker.Snapshot())
}

func TestTracker_RefreshUnsupportedNetwork(t *testing.T) {
	tracker := NewTracker(newTestRegistry(t), nil, nil)
	wallet := clientstest.NewWallet("0x9999", clientstest.Tokens(2))

	_, err := tracker.Refresh(context.Background(), wallet)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNetworkQuery)
	assert.ErrorIs(t, err, types.ErrUnsupportedNetwork)
	assert.False(t, tracker.Snapshot().Known)
	assert.Zero(t, wallet.Calls(clientstest.MethodCall))
}

func TestTracker_RefreshFollowsNetworkSwitch(t *testing.T) {
	tracker := NewTracker(newTestRegistry(t), nil, nil)
	wallet := clientstest.NewWallet("0x14a34", clientstest.Tokens(2))

	_, err := tracker.Refresh(context.Background(), wallet)
	require.NoError(t, err)

	wallet.SetChainID("0xaa36a7")
	wallet.SetCredit(clientstest.Tokens(5))
	snap, err := tracker.Refresh(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, registry.Sepolia, snap.Network)
	assert.Equal(t, "5", snap.Amount.String())
}
