// Package balance caches the token credit the invoice contract reports for
// the connected account.
package balance

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitwit/meter/clients"
	"github.com/vitwit/meter/logger"
	"github.com/vitwit/meter/metrics"
	"github.com/vitwit/meter/registry"
	"github.com/vitwit/meter/types"
	"github.com/vitwit/meter/utils"
)

// Snapshot is the last credit read from chain. A snapshot that is not Known
// was never refreshed successfully and must not be used for decisions.
type Snapshot struct {
	Amount    decimal.Decimal  `json:"amount"`
	Network   types.NetworkKey `json:"network"`
	Known     bool             `json:"known"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// FreshFor reports whether s can be compared against a price on network.
func (s Snapshot) FreshFor(network types.NetworkKey) bool {
	return s.Known && s.Network == network
}

// Tracker owns one Snapshot. Refresh is its only writer.
type Tracker struct {
	registry *registry.Registry
	logger   logger.Logger
	metrics  metrics.Recorder
	now      func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
}

func NewTracker(reg *registry.Registry, log logger.Logger, rec metrics.Recorder) *Tracker {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Tracker{
		registry: reg,
		logger:   log,
		metrics:  rec,
		now:      time.Now,
	}
}

// Snapshot returns a copy of the cached credit.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// Refresh re-resolves the wallet's network and contracts, reads the credit
// with a read-only call and replaces the snapshot. On failure the previous
// snapshot is kept and a network_query_failed error is returned.
func (t *Tracker) Refresh(ctx context.Context, wallet clients.Wallet) (Snapshot, error) {
	start := t.now()

	network, addrs, err := t.registry.Route(ctx, wallet)
	if err != nil {
		t.logger.Warn("balance refresh: routing failed", map[string]any{
			"error": err.Error(),
		})
		if types.CodeOf(err) == types.CodeNetworkQuery {
			return Snapshot{}, err
		}
		// Keep the routing error in the chain so errors.Is still finds it.
		return Snapshot{}, types.NewError(types.CodeNetworkQuery, "failed to resolve network", nil, err)
	}

	raw, err := clients.NewInvoiceContract(addrs.Invoice).GetUserTokens(ctx, wallet, wallet.Account())
	if err != nil {
		t.logger.Warn("balance refresh failed", map[string]any{
			"network": network.String(),
			"error":   err.Error(),
		})
		return Snapshot{}, types.NewError(
			types.CodeNetworkQuery,
			"failed to read token balance",
			map[string]any{types.DetailNetwork: network.String()},
			err,
		)
	}

	snap := Snapshot{
		Amount:    utils.FromBaseUnits(raw, types.TokenDecimals),
		Network:   network,
		Known:     true,
		UpdatedAt: t.now(),
	}

	t.mu.Lock()
	t.snapshot = snap
	t.mu.Unlock()

	t.metrics.ObserveLatency(metrics.OpBalanceRefresh, snap.UpdatedAt.Sub(start), map[string]string{
		metrics.LabelNetwork: network.String(),
	})
	t.logger.Debug("balance refreshed", map[string]any{
		"network": network.String(),
		"balance": snap.Amount.String(),
	})
	return snap, nil
}
