// Package settlement submits metered payments and watches them until they
// are mined.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/vitwit/meter/clients"
	"github.com/vitwit/meter/logger"
	"github.com/vitwit/meter/metrics"
	"github.com/vitwit/meter/types"
	"github.com/vitwit/meter/utils"
)

// Payment is one token transfer from the connected account to the invoice
// contract.
type Payment struct {
	Kind      types.ActionKind
	Network   types.NetworkKey
	Contracts types.ContractAddressSet
	Amount    *big.Int
}

func (p Payment) labels() map[string]string {
	return map[string]string{
		metrics.LabelNetwork: p.Network.String(),
		metrics.LabelAction:  p.Kind.String(),
	}
}

func (p Payment) details() map[string]any {
	return map[string]any{
		types.DetailAction:  p.Kind.String(),
		types.DetailNetwork: p.Network.String(),
	}
}

// Confirmation describes a mined, successful payment.
type Confirmation struct {
	TxHash      common.Hash
	BlockNumber uint64
	Latency     time.Duration
}

// Settler pays and confirms.
type Settler interface {
	Pay(ctx context.Context, wallet clients.Wallet, payment Payment) (common.Hash, error)
	Confirm(ctx context.Context, wallet clients.Wallet, payment Payment, hash common.Hash) (*Confirmation, error)
}

// SettlementService implements Settler on top of the token contract binding.
type SettlementService struct {
	timeout      time.Duration
	pollInterval time.Duration
	logger       logger.Logger
	metrics      metrics.Recorder
}

func NewSettlementService(timeout, pollInterval time.Duration, log logger.Logger, rec metrics.Recorder) *SettlementService {
	if timeout <= 0 {
		timeout = types.DefaultConfirmationTimeout
	}
	if pollInterval <= 0 {
		pollInterval = types.DefaultPollInterval
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &SettlementService{
		timeout:      timeout,
		pollInterval: pollInterval,
		logger:       log,
		metrics:      rec,
	}
}

// Timeout returns the confirmation bound.
func (s *SettlementService) Timeout() time.Duration { return s.timeout }

// Pay submits the transfer. Any failure here means nothing was broadcast.
func (s *SettlementService) Pay(ctx context.Context, wallet clients.Wallet, payment Payment) (common.Hash, error) {
	token := clients.NewTokenContract(payment.Contracts.Token)

	hash, err := token.Transfer(ctx, wallet, payment.Contracts.Invoice, payment.Amount)
	if err != nil {
		details := payment.details()
		message := "payment could not be submitted"
		if clients.IsUserRejected(err) {
			details[types.DetailReason] = "user_rejected"
			message = "payment was rejected in the wallet"
		}
		s.logger.Warn(message, map[string]any{
			"action":  payment.Kind.String(),
			"network": payment.Network.String(),
			"error":   err.Error(),
		})
		return common.Hash{}, types.NewError(types.CodePaymentSubmission, message, details, err)
	}

	s.metrics.IncCounter(metrics.EventPaymentSubmitted, payment.labels())
	s.logger.Info("payment submitted", map[string]any{
		"action":  payment.Kind.String(),
		"network": payment.Network.String(),
		"amount":  utils.FormatAmountFromBigInt(payment.Amount, types.TokenDecimals),
		"tx":      hash.Hex(),
	})
	return hash, nil
}

// Confirm waits up to the configured timeout for hash to be mined. A
// reverted receipt and an expired wait are both payment_not_confirmed, told
// apart by the reason detail. On timeout the transfer may still land later.
func (s *SettlementService) Confirm(ctx context.Context, wallet clients.Wallet, payment Payment, hash common.Hash) (*Confirmation, error) {
	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	receipt, err := clients.WaitMined(waitCtx, wallet, hash, s.pollInterval, s.logger)
	latency := time.Since(start)
	s.metrics.ObserveLatency(metrics.OpConfirmation, latency, payment.labels())

	details := payment.details()
	details[types.DetailTxHash] = hash.Hex()

	if err != nil {
		details[types.DetailReason] = types.ReasonTimeout
		s.logger.Warn("payment confirmation not observed", map[string]any{
			"action":  payment.Kind.String(),
			"network": payment.Network.String(),
			"tx":      hash.Hex(),
			"waited":  latency.String(),
		})
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("wait for receipt: %w", err)
		}
		return nil, types.NewError(
			types.CodePaymentNotConfirmed,
			fmt.Sprintf("payment confirmation was not observed within %s; the transfer may still be mined", s.timeout),
			details,
			err,
		)
	}

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		details[types.DetailReason] = types.ReasonReverted
		s.logger.Error("payment reverted", map[string]any{
			"action":  payment.Kind.String(),
			"network": payment.Network.String(),
			"tx":      hash.Hex(),
		})
		return nil, types.NewError(types.CodePaymentNotConfirmed, "payment transaction reverted", details, nil)
	}

	conf := &Confirmation{TxHash: hash, Latency: latency}
	if receipt.BlockNumber != nil {
		conf.BlockNumber = receipt.BlockNumber.Uint64()
	}

	s.logger.Info("payment confirmed", map[string]any{
		"action":  payment.Kind.String(),
		"network": payment.Network.String(),
		"tx":      hash.Hex(),
		"block":   conf.BlockNumber,
	})
	return conf, nil
}

