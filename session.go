package meter

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vitwit/meter/balance"
	"github.com/vitwit/meter/clients"
	"github.com/vitwit/meter/logger"
	"github.com/vitwit/meter/metrics"
	"github.com/vitwit/meter/settlement"
	"github.com/vitwit/meter/types"
)

// Authorization is the result of a paid invocation. Warning is set when the
// payment was confirmed but the balance could not be re-read afterwards;
// Balance is then the last known snapshot.
type Authorization struct {
	ID          uuid.UUID        `json:"id"`
	Kind        types.ActionKind `json:"kind"`
	Network     types.NetworkKey `json:"network"`
	Price       decimal.Decimal  `json:"price"`
	TxHash      common.Hash      `json:"txHash"`
	BlockNumber uint64           `json:"blockNumber"`
	Balance     balance.Snapshot `json:"balance"`
	Warning     error            `json:"-"`
}

// Effect is the gated domain operation run after authorization.
type Effect func(ctx context.Context, auth *Authorization) error

// Session is one connected wallet. It owns the balance snapshot and admits
// at most one invocation at a time; an overlapping call is refused rather
// than queued.
type Session struct {
	gateway *Gateway
	wallet  clients.Wallet
	tracker *balance.Tracker
	log     logger.Logger

	busy  atomic.Bool
	state atomic.Int32
}

func (s *Session) Wallet() clients.Wallet { return s.wallet }

// Balance returns the cached snapshot without touching the network.
func (s *Session) Balance() balance.Snapshot {
	return s.tracker.Snapshot()
}

// State returns the state of the current or last invocation.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Busy reports whether an invocation is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Affordable reports which actions the cached balance covers.
func (s *Session) Affordable() map[types.ActionKind]bool {
	snap := s.tracker.Snapshot()
	return s.gateway.verifier.Affordable(snap.Network, snap)
}

func (s *Session) acquire(kind types.ActionKind) error {
	if !s.busy.CompareAndSwap(false, true) {
		return types.NewError(
			types.CodeActionInProgress,
			"another metered action is still in progress",
			map[string]any{types.DetailAction: kind.String()},
			nil,
		)
	}
	return nil
}

func (s *Session) release() {
	s.busy.Store(false)
}

// Refresh re-reads the balance outside of an invocation.
func (s *Session) Refresh(ctx context.Context) (balance.Snapshot, error) {
	if err := s.acquire(""); err != nil {
		return s.tracker.Snapshot(), err
	}
	defer s.release()

	queryCtx, cancel := context.WithTimeout(ctx, s.gateway.timeout)
	defer cancel()
	return s.tracker.Refresh(queryCtx, s.wallet)
}

// SwitchNetwork asks the wallet to move to key and re-reads the balance
// there.
func (s *Session) SwitchNetwork(ctx context.Context, key types.NetworkKey) (balance.Snapshot, error) {
	descriptor, ok := s.gateway.registry.Descriptor(key)
	if !ok {
		return s.tracker.Snapshot(), types.NewError(
			types.CodeUnsupportedNetwork,
			fmt.Sprintf("network %s is not supported", key),
			map[string]any{types.DetailNetwork: key.String()},
			nil,
		)
	}

	if err := s.acquire(""); err != nil {
		return s.tracker.Snapshot(), err
	}
	defer s.release()

	if err := s.wallet.SwitchNetwork(ctx, descriptor); err != nil {
		return s.tracker.Snapshot(), types.NewError(
			types.CodeNetworkQuery,
			fmt.Sprintf("wallet did not switch to %s", key),
			map[string]any{types.DetailNetwork: key.String()},
			err,
		)
	}
	s.log.Info("wallet switched network", map[string]any{"network": key.String()})

	queryCtx, cancel := context.WithTimeout(ctx, s.gateway.timeout)
	defer cancel()
	return s.tracker.Refresh(queryCtx, s.wallet)
}

// Authorize runs the payment flow for kind. On success the caller may
// perform the action; Authorization.Warning may still carry a
// balance_refresh_warning. Once the transfer is being submitted the flow no
// longer observes ctx cancellation and always ends in a terminal state,
// bounded by the confirmation timeout.
func (s *Session) Authorize(ctx context.Context, kind types.ActionKind) (*Authorization, error) {
	if err := s.acquire(kind); err != nil {
		return nil, err
	}
	defer s.release()

	return s.authorize(ctx, kind)
}

// Run authorizes kind and then runs effect while the session is still
// held. An effect error is returned as domain_effect_failed together with
// the Authorization: the payment is not refunded.
func (s *Session) Run(ctx context.Context, kind types.ActionKind, effect Effect) (*Authorization, error) {
	if err := s.acquire(kind); err != nil {
		return nil, err
	}
	defer s.release()

	auth, err := s.authorize(ctx, kind)
	if err != nil {
		return nil, err
	}

	effectCtx := context.WithoutCancel(ctx)
	if err := effect(effectCtx, auth); err != nil {
		s.gateway.metrics.IncCounter(metrics.EventEffectFailed, map[string]string{
			metrics.LabelNetwork: auth.Network.String(),
			metrics.LabelAction:  kind.String(),
		})
		s.log.Error("action failed after payment", map[string]any{
			"invocation": auth.ID.String(),
			"action":     kind.String(),
			"network":    auth.Network.String(),
			"tx":         auth.TxHash.Hex(),
			"error":      err.Error(),
		})
		return auth, types.NewError(
			types.CodeDomainEffect,
			fmt.Sprintf("payment succeeded but %s failed", kind.Verb()),
			map[string]any{
				types.DetailAction:  kind.String(),
				types.DetailNetwork: auth.Network.String(),
				types.DetailTxHash:  auth.TxHash.Hex(),
			},
			err,
		)
	}
	return auth, nil
}

func (s *Session) authorize(ctx context.Context, kind types.ActionKind) (*Authorization, error) {
	g := s.gateway
	inv := &invocation{session: s, id: uuid.New(), kind: kind, start: time.Now()}

	if !kind.Valid() {
		inv.to(StateChecking, nil)
		err := types.NewError(types.CodeConfig, fmt.Sprintf("unknown action %q", kind), nil, nil)
		inv.to(StateFailed, err)
		return nil, err
	}

	// Checking
	inv.to(StateChecking, nil)

	queryCtx, cancel := context.WithTimeout(ctx, g.timeout)
	network, contracts, err := g.registry.Route(queryCtx, s.wallet)
	if err != nil {
		cancel()
		inv.network = network
		inv.to(StateFailed, err)
		return nil, err
	}
	inv.network = network

	snap := s.tracker.Snapshot()
	if !snap.FreshFor(network) {
		snap, err = s.tracker.Refresh(queryCtx, s.wallet)
		if err != nil {
			cancel()
			inv.to(StateFailed, err)
			return nil, err
		}
	}
	cancel()

	price, err := g.verifier.Verify(network, snap, kind)
	if err != nil {
		if types.CodeOf(err) == types.CodeInsufficientBalance {
			inv.to(StateRejected, err)
		} else {
			inv.to(StateFailed, err)
		}
		return nil, err
	}

	// Paying. Nothing after this point may be abandoned half way.
	payCtx := context.WithoutCancel(ctx)
	inv.to(StatePaying, nil)

	payment := settlement.Payment{
		Kind:      kind,
		Network:   network,
		Contracts: contracts,
		Amount:    g.prices.BaseUnits(kind),
	}
	hash, err := g.settler.Pay(payCtx, s.wallet, payment)
	if err != nil {
		inv.to(StateFailed, err)
		return nil, err
	}
	inv.tx = hash

	// Confirming
	inv.to(StateConfirming, nil)
	conf, err := g.settler.Confirm(payCtx, s.wallet, payment, hash)
	if err != nil {
		inv.to(StateFailed, err)
		return nil, err
	}

	// Refreshing
	inv.to(StateRefreshing, nil)
	auth := &Authorization{
		ID:          inv.id,
		Kind:        kind,
		Network:     network,
		Price:       price,
		TxHash:      conf.TxHash,
		BlockNumber: conf.BlockNumber,
	}

	refreshCtx, cancelRefresh := context.WithTimeout(payCtx, g.timeout)
	after, err := s.tracker.Refresh(refreshCtx, s.wallet)
	cancelRefresh()
	if err != nil {
		auth.Warning = types.NewError(
			types.CodeBalanceRefreshWarning,
			"payment confirmed but the balance could not be refreshed",
			map[string]any{
				types.DetailAction:  kind.String(),
				types.DetailNetwork: network.String(),
				types.DetailTxHash:  hash.Hex(),
			},
			err,
		)
		g.metrics.IncCounter(metrics.EventRefreshWarning, inv.labels())
		after = s.tracker.Snapshot()
	}
	auth.Balance = after

	inv.to(StateAuthorized, auth.Warning)
	return auth, nil
}

// invocation tracks one pass through the state machine for logging,
// metrics and the observer.
type invocation struct {
	session *Session
	id      uuid.UUID
	kind    types.ActionKind
	network types.NetworkKey
	tx      common.Hash
	state   State
	start   time.Time
}

func (inv *invocation) labels() map[string]string {
	return map[string]string{
		metrics.LabelNetwork: inv.network.String(),
		metrics.LabelAction:  inv.kind.String(),
	}
}

func (inv *invocation) to(next State, err error) {
	g := inv.session.gateway
	log := inv.session.log
	prev := inv.state
	inv.state = next
	inv.session.state.Store(int32(next))

	fields := map[string]any{
		"invocation": inv.id.String(),
		"action":     inv.kind.String(),
		"network":    inv.network.String(),
		"from":       prev.String(),
		"to":         next.String(),
	}
	if inv.tx != (common.Hash{}) {
		fields["tx"] = inv.tx.Hex()
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	switch next {
	case StateFailed:
		log.Error("metered action failed", fields)
	case StateRejected:
		log.Info("metered action rejected", fields)
	default:
		log.Debug("metered action transition", fields)
	}

	if next.Terminal() {
		event := map[State]string{
			StateAuthorized: metrics.EventAuthorized,
			StateRejected:   metrics.EventRejected,
			StateFailed:     metrics.EventFailed,
		}[next]
		g.metrics.IncCounter(event, inv.labels())
		g.metrics.ObserveLatency(metrics.OpAuthorize, time.Since(inv.start), inv.labels())
	}

	if g.observer != nil {
		g.observer(Transition{
			Invocation: inv.id,
			Kind:       inv.kind,
			Network:    inv.network,
			From:       prev,
			To:         next,
			Err:        err,
			At:         time.Now(),
		})
	}
}
