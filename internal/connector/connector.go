// Package connector adapts the generic trading contract (balances, markets,
// limit orders) to the Harbor exchange.
//
// A Connector owns one Harbor session, a market cache, a balance tracker and
// an order manager. Start launches the background refresh and fill polling
// loops; Stop tears them down before the session is closed.
package connector

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/config"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/events"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/harbor"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/types"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures a Connector.
type Options struct {
	Config config.HarborConfig
	// Sink receives order events. Nil discards them.
	Sink   events.Sink
	Logger *logger.Logger
	// API replaces the Harbor client, mainly for tests.
	API harbor.API
	// Registry receives the connector metrics. Nil creates a private registry.
	Registry *prometheus.Registry
}

// DepositInstructions tells a depositor where to send funds.
type DepositInstructions struct {
	InboundAddresses harbor.Object     `json:"inbound_addresses"`
	FromAddresses    map[string]string `json:"from_addresses"`
	WebsocketURL     string            `json:"websocket_url,omitempty"`
}

// Connector is the Harbor exchange connector.
type Connector struct {
	config   config.HarborConfig
	session  *harbor.Session
	auth     *harbor.Authenticator
	api      harbor.API
	markets  *MarketCache
	balances *BalanceTracker
	orders   *OrderManager
	warnings *WarningLog
	metrics  *Metrics
	registry *prometheus.Registry
	logger   *logger.Logger

	// mu is held for reading by order operations so Stop cannot drain
	// in-flight submissions while one is being added.
	mu      sync.RWMutex
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

func New(opts Options) *Connector {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	log = log.Named("connector")

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	cfg := opts.Config
	session := harbor.NewSession(cfg.REST.SessionTimeout, log.Named("session"))
	auth := harbor.NewAuthenticator(harbor.Credential{
		APIKey: cfg.APIKey,
		FromAddresses: map[string]string{
			"ETH": cfg.FromAddresses.ETH,
			"BTC": cfg.FromAddresses.BTC,
		},
	})

	api := opts.API
	if api == nil {
		api = harbor.NewClient(harbor.ClientConfig{
			RESTBase:          cfg.REST.BaseURI,
			RESTAPIPath:       cfg.REST.APIPath,
			XNodeBase:         cfg.XNode.BaseURI,
			XNodeAPIPath:      cfg.XNode.APIPath,
			RequestTimeout:    cfg.REST.RequestTimeout,
			RequestsPerSecond: cfg.REST.RequestsPerSecond,
			Burst:             cfg.REST.Burst,
		}, session, auth, log.Named("client"))
	}

	metrics := NewMetrics(registry)
	warnings := NewWarningLog(defaultWarningCapacity, log, metrics)
	markets := NewMarketCache(api, cfg.Symbols, log.Named("markets"))
	orders := NewOrderManager(api, markets, opts.Sink, warnings, metrics, OrderManagerConfig{
		SubmitTimeout: cfg.Polling.SubmitTimeout,
		AckTimeout:    cfg.Polling.AckTimeout,
		Retention:     cfg.TerminalOrderRetention,
	}, log.Named("orders"))

	return &Connector{
		config:   cfg,
		session:  session,
		auth:     auth,
		api:      api,
		markets:  markets,
		balances: NewBalanceTracker(api, log.Named("balances")),
		orders:   orders,
		warnings: warnings,
		metrics:  metrics,
		registry: registry,
		logger:   log,
		mu:       sync.RWMutex{},
		started:  false,
		cancel:   nil,
		group:    nil,
	}
}

// Start validates credentials, opens the session, performs the initial
// refreshes and launches the background loops. Initial refresh failures are
// recorded as warnings. Calling Start on a started connector is a no-op.
func (c *Connector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	if err := c.auth.Validate(); err != nil {
		return err
	}

	c.session.Start()

	c.refreshMarkets(ctx)
	c.refreshBalances(ctx)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, groupCtx := errgroup.WithContext(loopCtx)

	polling := c.config.Polling

	group.Go(func() error {
		return runEvery(groupCtx, polling.Markets, c.refreshMarkets)
	})
	group.Go(func() error {
		return runEvery(groupCtx, polling.Balances, c.refreshBalances)
	})
	group.Go(func() error {
		return runEvery(groupCtx, polling.Fills, c.pollFills)
	})

	if retention := c.config.TerminalOrderRetention; retention > 0 {
		group.Go(func() error {
			return runEvery(groupCtx, retention, func(context.Context) { c.orders.Sweep() })
		})
	}

	c.cancel = cancel
	c.group = group
	c.started = true

	c.logger.Info("Connector started",
		zap.Int("markets", len(c.markets.GetMarkets())),
		zap.Strings("symbols", c.config.Symbols),
	)

	return nil
}

// Stop cancels the loops and waits for them, waits for in-flight submissions,
// then closes the session. It is idempotent and safe after a failed Start.
func (c *Connector) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error

	if c.cancel != nil {
		c.cancel()
		err = c.group.Wait()
	}

	c.orders.Wait()
	c.session.Stop()

	if c.started {
		c.logger.Info("Connector stopped")
	}

	c.started = false
	c.cancel = nil
	c.group = nil

	return err
}

// Started reports whether Start completed and Stop has not been called since.
func (c *Connector) Started() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.started
}

func (c *Connector) ensureStarted() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.ensureStartedLocked()
}

func (c *Connector) ensureStartedLocked() error {
	if !c.started {
		return errors.New(errors.ErrCodeNotStarted, "Harbor API client not initialised")
	}

	return nil
}

func (c *Connector) refreshMarkets(ctx context.Context) {
	if err := c.markets.Refresh(ctx); err != nil {
		c.metrics.Refreshes.WithLabelValues(SourceMarkets, "failure").Inc()
		c.warnings.Record(SourceMarkets, err)

		return
	}

	c.metrics.Refreshes.WithLabelValues(SourceMarkets, "success").Inc()
	c.metrics.LastRefresh.WithLabelValues(SourceMarkets).Set(float64(c.markets.RefreshedAt().Unix()))
}

func (c *Connector) refreshBalances(ctx context.Context) {
	if err := c.balances.Refresh(ctx); err != nil {
		c.metrics.Refreshes.WithLabelValues(SourceBalances, "failure").Inc()
		c.warnings.Record(SourceBalances, err)

		return
	}

	c.metrics.Refreshes.WithLabelValues(SourceBalances, "success").Inc()
	c.metrics.LastRefresh.WithLabelValues(SourceBalances).Set(float64(c.balances.RefreshedAt().Unix()))
}

func (c *Connector) pollFills(ctx context.Context) {
	// Integrity violations are already recorded by the order manager.
	if err := c.orders.PollFills(ctx); err != nil {
		c.logger.Debug("Fill poll found integrity violations", zap.Error(err))
	}
}

// runEvery calls fn on every tick until ctx is done.
func runEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// GetBalances returns the latest balances keyed by asset.
func (c *Connector) GetBalances() map[string]types.Balance {
	return c.balances.GetBalances()
}

// GetMarkets returns the cached markets sorted by symbol.
func (c *Connector) GetMarkets() []types.Market {
	return c.markets.GetMarkets()
}

// PlaceOrder submits a limit order and returns its client order id before
// Harbor acknowledges it.
func (c *Connector) PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.ensureStartedLocked(); err != nil {
		return "", err
	}

	return c.orders.Submit(ctx, req)
}

func (c *Connector) CancelOrder(ctx context.Context, clientOrderID string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.ensureStartedLocked(); err != nil {
		return err
	}

	return c.orders.Cancel(ctx, clientOrderID)
}

// GetOrderStatus returns the tracked order. Terminal orders are evicted once observed.
func (c *Connector) GetOrderStatus(clientOrderID string) (types.Order, error) {
	return c.orders.Status(clientOrderID)
}

func (c *Connector) OpenOrders() []types.Order {
	return c.orders.OpenOrders()
}

func (c *Connector) CancelAll(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.ensureStartedLocked(); err != nil {
		return nil, err
	}

	return c.orders.CancelAll(ctx), nil
}

func (c *Connector) Warnings() []Warning {
	return c.warnings.Recent()
}

// Registry exposes the connector metrics for scraping.
func (c *Connector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Connector) Depth(ctx context.Context, symbol string, depth optional.Option[int]) (harbor.Object, error) {
	if err := c.ensureStarted(); err != nil {
		return nil, err
	}

	if symbol == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "symbol is required")
	}

	result, err := c.api.GetDepth(ctx, symbol, depth)

	return result, harbor.Classify(err, "failed to fetch depth for "+symbol)
}

func (c *Connector) UpdateOrder(ctx context.Context, payload harbor.Object) (harbor.Object, error) {
	if err := c.ensureStarted(); err != nil {
		return nil, err
	}

	if len(payload) == 0 {
		return nil, errors.New(errors.ErrCodeMissingParameter, "update payload is required")
	}

	result, err := c.api.UpdateOrder(ctx, payload)

	return result, harbor.Classify(err, "failed to update order")
}

func (c *Connector) ListOrders(ctx context.Context, query url.Values) (harbor.Object, error) {
	if err := c.ensureStarted(); err != nil {
		return nil, err
	}

	result, err := c.api.GetOrders(ctx, query)

	return result, harbor.Classify(err, "failed to list orders")
}

func (c *Connector) Withdraw(ctx context.Context, payload harbor.Object) (harbor.Object, error) {
	if err := c.ensureStarted(); err != nil {
		return nil, err
	}

	if err := harbor.ValidateWithdraw(payload); err != nil {
		return nil, err
	}

	result, err := c.api.Withdraw(ctx, payload)

	return result, harbor.Classify(err, "failed to create withdrawal")
}

func (c *Connector) WithdrawStatus(ctx context.Context, withdrawID string) (harbor.Object, error) {
	if err := c.ensureStarted(); err != nil {
		return nil, err
	}

	if withdrawID == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "withdrawId is required")
	}

	result, err := c.api.GetWithdraw(ctx, withdrawID)

	return result, harbor.Classify(err, "failed to fetch withdrawal "+withdrawID)
}

func (c *Connector) InboundAddresses(ctx context.Context) (harbor.Object, error) {
	if err := c.ensureStarted(); err != nil {
		return nil, err
	}

	result, err := c.api.GetInboundAddresses(ctx)

	return result, harbor.Classify(err, "failed to fetch inbound addresses")
}

func (c *Connector) OutboundFees(ctx context.Context) (harbor.Object, error) {
	if err := c.ensureStarted(); err != nil {
		return nil, err
	}

	result, err := c.api.GetOutboundFees(ctx)

	return result, harbor.Classify(err, "failed to fetch outbound fees")
}

func (c *Connector) TxDetails(ctx context.Context, txID string) (harbor.Object, error) {
	if err := c.ensureStarted(); err != nil {
		return nil, err
	}

	if txID == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "txId is required")
	}

	result, err := c.api.GetTxDetails(ctx, txID)

	return result, harbor.Classify(err, "failed to fetch tx details for "+txID)
}

// DepositInstructions combines the xnode inbound addresses with the configured
// from addresses and websocket URL.
func (c *Connector) DepositInstructions(ctx context.Context) (*DepositInstructions, error) {
	inbound, err := c.InboundAddresses(ctx)
	if err != nil {
		return nil, err
	}

	return &DepositInstructions{
		InboundAddresses: inbound,
		FromAddresses:    c.auth.FromAddresses(),
		WebsocketURL:     c.config.Websocket.URL,
	}, nil
}
