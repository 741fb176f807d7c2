package meter

import (
	"time"

	"github.com/vitwit/meter/logger"
	"github.com/vitwit/meter/metrics"
)

type Option func(*Gateway)

func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(g *Gateway) {
		g.metrics = r
	}
}

// WithTimeout bounds each read-only query (chain id, balance).
func WithTimeout(t time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = t
	}
}

func WithConfirmationTimeout(t time.Duration) Option {
	return func(g *Gateway) {
		g.confirmationTimeout = t
	}
}

func WithPollInterval(t time.Duration) Option {
	return func(g *Gateway) {
		g.pollInterval = t
	}
}

func WithObserver(o Observer) Option {
	return func(g *Gateway) {
		g.observer = o
	}
}
