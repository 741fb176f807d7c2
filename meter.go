// Package meter gates editor actions behind on-chain token payments: the
// wallet's network is resolved against a fixed registry, the cached credit
// is checked against a price list, a token transfer to the invoice contract
// is submitted and confirmed, and only then is the action allowed to run.
package meter

import (
	"context"
	"time"

	"github.com/vitwit/meter/balance"
	"github.com/vitwit/meter/clients"
	"github.com/vitwit/meter/logger"
	"github.com/vitwit/meter/metrics"
	"github.com/vitwit/meter/pricing"
	"github.com/vitwit/meter/registry"
	"github.com/vitwit/meter/settlement"
	"github.com/vitwit/meter/types"
	"github.com/vitwit/meter/utils"
	"github.com/vitwit/meter/verification"
)

// Gateway holds the immutable parts shared by every session: registry,
// prices and services.
type Gateway struct {
	config   *types.Config
	registry *registry.Registry
	prices   *pricing.PriceList
	verifier *verification.VerificationService
	settler  *settlement.SettlementService

	logger   logger.Logger
	metrics  metrics.Recorder
	observer Observer

	timeout             time.Duration
	confirmationTimeout time.Duration
	pollInterval        time.Duration
}

// New builds a gateway from config. Unless AllowPartialDeployments is set,
// every registry network must have a deployment.
func New(config *types.Config, opts ...Option) (*Gateway, error) {
	if config == nil {
		config = &types.Config{}
	}
	if err := utils.ValidateConfig(config); err != nil {
		return nil, err
	}

	networks := config.Networks
	if len(networks) == 0 {
		networks = registry.DefaultNetworks()
	}
	deployments, err := registry.DeploymentsFromConfig(config.Deployments)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(networks, deployments)
	if err != nil {
		return nil, err
	}
	if !config.AllowPartialDeployments {
		if err := reg.Validate(); err != nil {
			return nil, err
		}
	}

	prices := make(map[types.ActionKind]string, len(types.DefaultPrices))
	for kind, price := range types.DefaultPrices {
		prices[kind] = price
	}
	for kind, price := range config.Prices {
		prices[kind] = price
	}
	priceList, err := pricing.New(prices)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		config:              config,
		registry:            reg,
		prices:              priceList,
		logger:              logger.NoopLogger{},
		metrics:             metrics.NoopRecorder{},
		timeout:             config.QueryTimeout,
		confirmationTimeout: config.ConfirmationTimeout,
		pollInterval:        config.PollInterval,
	}
	if config.LogLevel != "" {
		g.logger = logger.NewZapLogger(config.LogLevel)
	}
	if config.EnableMetrics {
		g.metrics = metrics.NewPrometheusRecorder()
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.timeout <= 0 {
		g.timeout = types.DefaultQueryTimeout
	}
	if g.confirmationTimeout <= 0 {
		g.confirmationTimeout = types.DefaultConfirmationTimeout
	}
	if g.pollInterval <= 0 {
		g.pollInterval = types.DefaultPollInterval
	}

	g.verifier = verification.NewVerificationService(priceList)
	g.settler = settlement.NewSettlementService(g.confirmationTimeout, g.pollInterval, g.logger, g.metrics)

	g.logger.Info("gateway ready", map[string]any{
		"networks":            len(reg.Networks()),
		"confirmationTimeout": g.confirmationTimeout.String(),
	})
	return g, nil
}

// NewFromFile loads config with utils.LoadConfig and builds a gateway.
func NewFromFile(path string, opts ...Option) (*Gateway, error) {
	config, err := utils.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(config, opts...)
}

func (g *Gateway) Registry() *registry.Registry { return g.registry }

func (g *Gateway) Prices() *pricing.PriceList { return g.prices }

// NewSession binds wallet to a fresh session without reading its balance.
func (g *Gateway) NewSession(wallet clients.Wallet) *Session {
	log := logger.With(g.logger, map[string]any{"account": wallet.Account().Hex()})
	return &Session{
		gateway: g,
		wallet:  wallet,
		tracker: balance.NewTracker(g.registry, log, g.metrics),
		log:     log,
	}
}

// Open starts a session and reads the initial balance. The session is
// returned even when that read fails; its balance then stays unknown and
// the first action refreshes it again.
func (g *Gateway) Open(ctx context.Context, wallet clients.Wallet) (*Session, error) {
	s := g.NewSession(wallet)

	queryCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if _, err := s.tracker.Refresh(queryCtx, wallet); err != nil {
		s.log.Warn("initial balance read failed", map[string]any{
			"error": err.Error(),
		})
		return s, err
	}
	return s, nil
}

// Version information
const Version = "1.0.0"
