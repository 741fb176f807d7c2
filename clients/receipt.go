package clients

import (
	"context"
	"errors"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/vitwit/meter/logger"
	"golang.org/x/time/rate"
)

// WaitMined polls for the receipt of hash at most once per interval until it
// is available or ctx is done. RPC errors other than ethereum.NotFound are
// logged and retried. On expiry the returned error matches
// context.DeadlineExceeded (or context.Canceled).
func WaitMined(ctx context.Context, reader ReceiptReader, hash common.Hash, interval time.Duration, log logger.Logger) (*gethtypes.Receipt, error) {
	if log == nil {
		log = logger.NoopLogger{}
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	attempt := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// The next poll would land past the deadline.
			return nil, context.DeadlineExceeded
		}
		attempt++

		receipt, err := reader.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			return receipt, nil
		case err == nil, errors.Is(err, ethereum.NotFound):
			log.Debug("receipt not available yet", map[string]any{
				"tx":      hash.Hex(),
				"attempt": attempt,
			})
		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn("receipt poll failed", map[string]any{
				"tx":      hash.Hex(),
				"attempt": attempt,
				"error":   err.Error(),
			})
		}
	}
}
