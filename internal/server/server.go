// Package server exposes the connector over HTTP: REST routes, a JSON-RPC
// websocket for order events and a Prometheus scrape endpoint.
package server

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/config"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/connector"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/harbor"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/types"
	"go.uber.org/zap"
)

// Facade is the connector surface served over HTTP.
//
//nolint:interfacebloat // one method per route
type Facade interface {
	Started() bool
	GetMarkets() []types.Market
	GetBalances() map[string]types.Balance
	PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) (string, error)
	CancelOrder(ctx context.Context, clientOrderID string) error
	GetOrderStatus(clientOrderID string) (types.Order, error)
	OpenOrders() []types.Order
	CancelAll(ctx context.Context) ([]string, error)
	Depth(ctx context.Context, symbol string, depth optional.Option[int]) (harbor.Object, error)
	UpdateOrder(ctx context.Context, payload harbor.Object) (harbor.Object, error)
	ListOrders(ctx context.Context, query url.Values) (harbor.Object, error)
	Withdraw(ctx context.Context, payload harbor.Object) (harbor.Object, error)
	WithdrawStatus(ctx context.Context, withdrawID string) (harbor.Object, error)
	InboundAddresses(ctx context.Context) (harbor.Object, error)
	OutboundFees(ctx context.Context) (harbor.Object, error)
	TxDetails(ctx context.Context, txID string) (harbor.Object, error)
	DepositInstructions(ctx context.Context) (*connector.DepositInstructions, error)
	Warnings() []connector.Warning
	Registry() *prometheus.Registry
}

// Server is the HTTP host of one connector.
type Server struct {
	config     config.ServerConfig
	facade     Facade
	hub        *Hub
	router     *mux.Router
	httpServer *http.Server
	logger     *logger.Logger
}

func New(cfg config.ServerConfig, facade Facade, hub *Hub, log *logger.Logger) *Server {
	s := &Server{
		config:     cfg,
		facade:     facade,
		hub:        hub,
		router:     mux.NewRouter(),
		httpServer: nil,
		logger:     log.Named("server"),
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	harborRoutes := s.router.NewRoute().Subrouter()
	harborRoutes.Use(s.requireStarted)

	public := harborRoutes.PathPrefix("/public/harbor").Subrouter()
	public.HandleFunc("/markets", s.handleMarkets).Methods(http.MethodGet)
	public.HandleFunc("/depth", s.handleDepth).Methods(http.MethodGet)
	public.HandleFunc("/inbound-addresses", s.handleInboundAddresses).Methods(http.MethodGet)
	public.HandleFunc("/outbound-fees", s.handleOutboundFees).Methods(http.MethodGet)
	public.HandleFunc("/tx-details", s.handleTxDetails).Methods(http.MethodGet)
	public.HandleFunc("/deposit-instructions", s.handleDepositInstructions).Methods(http.MethodGet)
	public.HandleFunc("/warnings", s.handleWarnings).Methods(http.MethodGet)

	private := harborRoutes.PathPrefix("/private/harbor").Subrouter()
	private.HandleFunc("/account", s.handleAccount).Methods(http.MethodGet)
	private.HandleFunc("/order", s.handlePlaceOrder).Methods(http.MethodPost)
	private.HandleFunc("/order", s.handleUpdateOrder).Methods(http.MethodPut)
	private.HandleFunc("/order", s.handleCancelOrder).Methods(http.MethodDelete)
	private.HandleFunc("/order", s.handleOrderStatus).Methods(http.MethodGet)
	private.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	private.HandleFunc("/withdraw", s.handleWithdraw).Methods(http.MethodPost)
	private.HandleFunc("/withdraw", s.handleWithdrawStatus).Methods(http.MethodGet)

	harborRoutes.HandleFunc("/public/get-all-open-requests", s.handleOpenOrders).Methods(http.MethodGet)
	harborRoutes.HandleFunc("/public/get-request-status", s.handleRequestStatus).Methods(http.MethodGet)
	harborRoutes.HandleFunc("/private/cancel-all", s.handleCancelAll).Methods(http.MethodDelete)

	s.router.Handle("/private/ws", s.hub)
	s.router.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.facade.Registry(), promhttp.HandlerOpts{})) //nolint:exhaustruct // defaults
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// Handler returns the router wrapped in the CORS layer.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{ //nolint:exhaustruct // defaults for the rest
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	return c.Handler(s.router)
}

// ListenAndServe blocks until the server is shut down. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{ //nolint:exhaustruct // defaults for the rest
		Addr:              s.config.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Server listening", zap.String("listen", s.config.Listen))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown stops accepting requests and disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requireStarted(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.facade.Started() {
			respondError(w, http.StatusServiceUnavailable, "Harbor API client not initialised", nil)

			return
		}

		next.ServeHTTP(w, r)
	})
}

var _ Facade = (*connector.Connector)(nil)
