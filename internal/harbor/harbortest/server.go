// Package harbortest provides an in-process fake of the Harbor REST and xnode
// APIs for tests. State lives in memory and can be driven from the test to
// simulate fills, rejections and outages.
package harbortest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/harbor"
	"github.com/shopspring/decimal"
)

const (
	DefaultAPIPath   = "/api/v1"
	DefaultXNodePath = "/xnode"
)

// Config holds the initial state of the fake exchange.
type Config struct {
	// APIKey is required on REST routes when non-empty.
	APIKey   string
	Markets  []harbor.MarketInfo
	Balances []harbor.BalanceInfo
	// InboundAddresses is served as a JSON array by the xnode route.
	InboundAddresses []map[string]any
}

type failure struct {
	status  int
	payload any
}

// Server is a fake Harbor exchange.
type Server struct {
	mu sync.RWMutex

	apiKey      string
	markets     []harbor.MarketInfo
	balances    map[string]harbor.BalanceInfo
	orders      map[string]*harbor.OrderInfo
	byClientID  map[string]string
	withdrawals map[string]map[string]any
	inbound     []map[string]any

	failures     map[string]failure
	rejectReason string
	orderGate    chan struct{}
	lastHeaders  map[string]http.Header

	requestCount atomic.Int64
	httpServer   *httptest.Server
}

// NewServer starts a fake Harbor exchange on a random local port.
func NewServer(config Config) *Server {
	server := &Server{
		mu:           sync.RWMutex{},
		apiKey:       config.APIKey,
		markets:      append([]harbor.MarketInfo(nil), config.Markets...),
		balances:     make(map[string]harbor.BalanceInfo),
		orders:       make(map[string]*harbor.OrderInfo),
		byClientID:   make(map[string]string),
		withdrawals:  make(map[string]map[string]any),
		inbound:      config.InboundAddresses,
		failures:     make(map[string]failure),
		rejectReason: "",
		orderGate:    nil,
		lastHeaders:  make(map[string]http.Header),
		requestCount: atomic.Int64{},
		httpServer:   nil,
	}

	for _, balance := range config.Balances {
		server.balances[balance.Asset] = balance
	}

	if server.inbound == nil {
		server.inbound = []map[string]any{
			{"chain": "ETH", "address": "0x52908400098527886E0F7030069857D2E4169EE7"},
			{"chain": "BTC", "address": "bc1qvault"},
		}
	}

	router := mux.NewRouter()
	router.Use(server.recordRequest)

	rest := router.PathPrefix(DefaultAPIPath).Subrouter()
	rest.Use(server.requireAPIKey)
	rest.HandleFunc("/markets", server.handleMarkets).Methods(http.MethodGet)
	rest.HandleFunc("/account", server.handleAccount).Methods(http.MethodGet)
	rest.HandleFunc("/depth/{symbol}", server.handleDepth).Methods(http.MethodPost)
	rest.HandleFunc("/order", server.handleCreateOrder).Methods(http.MethodPost)
	rest.HandleFunc("/order", server.handleUpdateOrder).Methods(http.MethodPut)
	rest.HandleFunc("/order", server.handleCancelOrder).Methods(http.MethodDelete)
	rest.HandleFunc("/order", server.handleGetOrder).Methods(http.MethodGet)
	rest.HandleFunc("/orders", server.handleListOrders).Methods(http.MethodGet)
	rest.HandleFunc("/withdraw", server.handleWithdraw).Methods(http.MethodPost)
	rest.HandleFunc("/withdraw/{id}", server.handleGetWithdraw).Methods(http.MethodGet)

	xnode := router.PathPrefix(DefaultXNodePath).Subrouter()
	xnode.HandleFunc("/inbound_addresses", server.handleInbound).Methods(http.MethodGet)
	xnode.HandleFunc("/outbound_fees", server.handleOutboundFees).Methods(http.MethodGet)
	xnode.HandleFunc("/tx/details/{id}", server.handleTxDetails).Methods(http.MethodGet)

	server.httpServer = httptest.NewServer(router)

	return server
}

// URL returns the base URL of the fake exchange.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Close shuts the server down and releases any held orders.
func (s *Server) Close() {
	s.ReleaseOrders()
	s.httpServer.Close()
}

// RequestCount returns the number of requests served so far.
func (s *Server) RequestCount() int64 {
	return s.requestCount.Load()
}

// LastHeaders returns the headers of the last request to path (without prefixes).
func (s *Server) LastHeaders(path string) http.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastHeaders[path]
}

// Fail makes every request to "METHOD /path" answer status with payload until cleared.
func (s *Server) Fail(method, path string, status int, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[method+" "+path] = failure{status: status, payload: payload}
}

// ClearFailures removes every injected failure.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = make(map[string]failure)
}

// RejectOrders makes order creation fail with 400 and reason. An empty reason accepts orders again.
func (s *Server) RejectOrders(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejectReason = reason
}

// HoldOrders blocks order creation responses until ReleaseOrders is called.
func (s *Server) HoldOrders() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.orderGate == nil {
		s.orderGate = make(chan struct{})
	}
}

// ReleaseOrders unblocks held order creations.
func (s *Server) ReleaseOrders() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.orderGate != nil {
		close(s.orderGate)
		s.orderGate = nil
	}
}

// SetMarkets replaces the market list.
func (s *Server) SetMarkets(markets []harbor.MarketInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markets = append([]harbor.MarketInfo(nil), markets...)
}

// SetBalance sets the balance of one asset.
func (s *Server) SetBalance(balance harbor.BalanceInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[balance.Asset] = balance
}

// RemoveBalance deletes an asset from the account.
func (s *Server) RemoveBalance(asset string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.balances, asset)
}

// FillOrder sets the filled size of the order created with clientOrderID.
// The status follows the filled size unless the order was canceled.
func (s *Server) FillOrder(clientOrderID string, filled decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.orderByClientID(clientOrderID)
	if order == nil {
		return false
	}

	order.FilledSize = filled

	switch {
	case filled.GreaterThanOrEqual(order.Size):
		order.Status = harbor.OrderStatusFilled
	case filled.IsPositive():
		order.Status = harbor.OrderStatusPartiallyFilled
	default:
		order.Status = harbor.OrderStatusOpen
	}

	return true
}

// Order returns a copy of the order created with clientOrderID.
func (s *Server) Order(clientOrderID string) (harbor.OrderInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := s.orderByClientID(clientOrderID)
	if order == nil {
		return harbor.OrderInfo{}, false
	}

	return *order, true
}

func (s *Server) orderByClientID(clientOrderID string) *harbor.OrderInfo {
	orderID, ok := s.byClientID[clientOrderID]
	if !ok {
		return nil
	}

	return s.orders[orderID]
}

// Middleware

func (s *Server) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requestCount.Add(1)

		path := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, DefaultAPIPath), DefaultXNodePath)

		s.mu.Lock()
		s.lastHeaders[path] = r.Header.Clone()
		injected, failing := s.failures[r.Method+" "+path]
		s.mu.Unlock()

		if failing {
			writeJSON(w, injected.status, injected.payload)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get(harbor.APIKeyHeader) != s.apiKey {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid api key"})

			return
		}

		next.ServeHTTP(w, r)
	})
}

// REST handlers

func (s *Server) handleMarkets(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{"markets": s.markets})
}

func (s *Server) handleAccount(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balances := make([]harbor.BalanceInfo, 0, len(s.balances))
	for _, balance := range s.balances {
		balances = append(balances, balance)
	}

	writeJSON(w, http.StatusOK, map[string]any{"balances": balances})
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	response := map[string]any{
		"symbol": symbol,
		"bids":   [][]string{{"1999.5", "2"}},
		"asks":   [][]string{{"2000.5", "1.5"}},
	}

	if depth := r.URL.Query().Get("depth"); depth != "" {
		response["depth"] = depth
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req harbor.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid order body"})

		return
	}

	s.mu.RLock()
	gate := s.orderGate
	reason := s.rejectReason
	s.mu.RUnlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if reason != "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": reason})

		return
	}

	if req.ClientOrderID == "" || req.Symbol == "" || !req.Size.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "clientOrderId, symbol and size are required"})

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byClientID[req.ClientOrderID]; exists {
		writeJSON(w, http.StatusConflict, map[string]any{"message": "duplicate clientOrderId"})

		return
	}

	order := &harbor.OrderInfo{
		OrderID:       "hx-" + uuid.NewString(),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Price:         req.Price,
		Size:          req.Size,
		FilledSize:    decimal.Zero,
		Status:        harbor.OrderStatusOpen,
	}
	s.orders[order.OrderID] = order
	s.byClientID[order.ClientOrderID] = order.OrderID

	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OrderID string           `json:"orderId"`
		Price   *decimal.Decimal `json:"price"`
		Size    *decimal.Decimal `json:"size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid update body"})

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[payload.OrderID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "order not found"})

		return
	}

	if payload.Price != nil {
		order.Price = *payload.Price
	}

	if payload.Size != nil {
		order.Size = *payload.Size
	}

	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.lookup(r)
	if order == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "order not found"})

		return
	}

	if order.Status == harbor.OrderStatusFilled || order.Status == harbor.OrderStatusCanceled {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "order is not open"})

		return
	}

	order.Status = harbor.OrderStatusCanceled
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := s.lookup(r)
	if order == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "order not found"})

		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbol := r.URL.Query().Get("symbol")
	orders := make([]harbor.OrderInfo, 0, len(s.orders))

	for _, order := range s.orders {
		if symbol == "" || order.Symbol == symbol {
			orders = append(orders, *order)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid withdraw body"})

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	withdrawID := uuid.NewString()
	record := map[string]any{"withdrawId": withdrawID, "status": "pending", "request": payload}
	s.withdrawals[withdrawID] = record

	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleGetWithdraw(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.withdrawals[mux.Vars(r)["id"]]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "withdrawal not found"})

		return
	}

	writeJSON(w, http.StatusOK, record)
}

// xnode handlers

func (s *Server) handleInbound(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	writeJSON(w, http.StatusOK, s.inbound)
}

func (s *Server) handleOutboundFees(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"asset": "ETH.ETH", "outbound_fee": "240000"},
		{"asset": "BTC.BTC", "outbound_fee": "12000"},
	})
}

func (s *Server) handleTxDetails(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tx_id":  mux.Vars(r)["id"],
		"status": "done",
	})
}

func (s *Server) lookup(r *http.Request) *harbor.OrderInfo {
	query := r.URL.Query()
	if orderID := query.Get("orderId"); orderID != "" {
		return s.orders[orderID]
	}

	if clientOrderID := query.Get("clientOrderId"); clientOrderID != "" {
		return s.orderByClientID(clientOrderID)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
