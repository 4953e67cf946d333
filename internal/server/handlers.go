package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/harbor"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/types"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type placeOrderBody struct {
	Symbol string          `json:"symbol"`
	Side   string          `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Size   decimal.Decimal `json:"size"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "started": s.facade.Started()})
}

func (s *Server) handleMarkets(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"markets": s.facade.GetMarkets()})
}

func (s *Server) handleAccount(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"balances": s.facade.GetBalances()})
}

func (s *Server) handleWarnings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"warnings": s.facade.Warnings()})
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	symbol := query.Get("symbol")
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required", nil)

		return
	}

	depth := optional.None[int]()

	if raw := query.Get("depth"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			respondError(w, http.StatusBadRequest, "depth must be a positive integer", nil)

			return
		}

		depth = optional.Some(value)
	}

	result, err := s.facade.Depth(r.Context(), symbol, depth)
	s.respond(w, result, err)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var body placeOrderBody
	if !s.decodeBody(w, r, &body) {
		return
	}

	side, err := types.ParseOrderSide(body.Side)
	if err != nil {
		s.respondErr(w, err)

		return
	}

	clientOrderID, err := s.facade.PlaceOrder(r.Context(), types.PlaceOrderRequest{
		Symbol: body.Symbol,
		Side:   side,
		Price:  body.Price,
		Size:   body.Size,
	})
	if err != nil {
		s.respondErr(w, err)

		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"client_order_id": clientOrderID})
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var payload harbor.Object
	if !s.decodeBody(w, r, &payload) {
		return
	}

	result, err := s.facade.UpdateOrder(r.Context(), payload)
	s.respond(w, result, err)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	clientOrderID, ok := requireQuery(w, r, "client_order_id")
	if !ok {
		return
	}

	if err := s.facade.CancelOrder(r.Context(), clientOrderID); err != nil {
		s.respondErr(w, err)

		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"client_order_id": clientOrderID, "canceled": true})
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	clientOrderID, ok := requireQuery(w, r, "client_order_id")
	if !ok {
		return
	}

	s.orderStatus(w, clientOrderID)
}

func (s *Server) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	clientOrderID, ok := requireQuery(w, r, "client_request_id")
	if !ok {
		return
	}

	s.orderStatus(w, clientOrderID)
}

func (s *Server) orderStatus(w http.ResponseWriter, clientOrderID string) {
	order, err := s.facade.GetOrderStatus(clientOrderID)
	if err != nil {
		s.respondErr(w, err)

		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	result, err := s.facade.ListOrders(r.Context(), r.URL.Query())
	s.respond(w, result, err)
}

func (s *Server) handleOpenOrders(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"result": s.facade.OpenOrders()})
}

func (s *Server) handleCancelAll(w http.ResponseWriter, r *http.Request) {
	canceled, err := s.facade.CancelAll(r.Context())
	if err != nil {
		s.respondErr(w, err)

		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"result": canceled})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var payload harbor.Object
	if !s.decodeBody(w, r, &payload) {
		return
	}

	result, err := s.facade.Withdraw(r.Context(), payload)
	s.respond(w, result, err)
}

func (s *Server) handleWithdrawStatus(w http.ResponseWriter, r *http.Request) {
	withdrawID, ok := requireQuery(w, r, "withdrawId", "withdraw_id")
	if !ok {
		return
	}

	result, err := s.facade.WithdrawStatus(r.Context(), withdrawID)
	s.respond(w, result, err)
}

func (s *Server) handleInboundAddresses(w http.ResponseWriter, r *http.Request) {
	result, err := s.facade.InboundAddresses(r.Context())
	s.respond(w, result, err)
}

func (s *Server) handleOutboundFees(w http.ResponseWriter, r *http.Request) {
	result, err := s.facade.OutboundFees(r.Context())
	s.respond(w, result, err)
}

func (s *Server) handleTxDetails(w http.ResponseWriter, r *http.Request) {
	txID, ok := requireQuery(w, r, "txId", "tx_id")
	if !ok {
		return
	}

	result, err := s.facade.TxDetails(r.Context(), txID)
	s.respond(w, result, err)
}

func (s *Server) handleDepositInstructions(w http.ResponseWriter, r *http.Request) {
	instructions, err := s.facade.DepositInstructions(r.Context())
	if err != nil {
		s.respondErr(w, err)

		return
	}

	respondJSON(w, http.StatusOK, instructions)
}

// decodeBody decodes a JSON body into out. Empty bodies are rejected with 400.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body", nil)

		return false
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "{}" || trimmed == "null" {
		respondError(w, http.StatusBadRequest, "Request body is required", nil)

		return false
	}

	if err := json.Unmarshal(raw, out); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error(), nil)

		return false
	}

	return true
}

// requireQuery returns the first non-empty value among names, or writes a 400.
func requireQuery(w http.ResponseWriter, r *http.Request, names ...string) (string, bool) {
	query := r.URL.Query()
	for _, name := range names {
		if value := query.Get(name); value != "" {
			return value, true
		}
	}

	respondError(w, http.StatusBadRequest, names[0]+" is required", nil)

	return "", false
}

func (s *Server) respond(w http.ResponseWriter, result harbor.Object, err error) {
	if err != nil {
		s.respondErr(w, err)

		return
	}

	respondJSON(w, http.StatusOK, result)
}

// respondErr maps connector errors onto HTTP statuses.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status, message, payload := classifyError(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}

	respondError(w, status, message, payload)
}

func classifyError(err error) (int, string, any) {
	message := err.Error()

	var coded *errors.Error
	if errors.As(err, &coded) {
		message = coded.Message
	}

	apiErr, isAPIError := harbor.AsAPIError(err)

	var payload any
	if isAPIError {
		payload = apiErr.Payload
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidParameter, errors.ErrCodeMissingParameter, errors.ErrCodeSymbolNotAllowed:
		return http.StatusBadRequest, message, nil
	case errors.ErrCodeUnknownOrder:
		return http.StatusNotFound, message, nil
	case errors.ErrCodeOrderNotCancelable:
		return http.StatusConflict, message, payload
	case errors.ErrCodeNotStarted, errors.ErrCodeSessionClosed:
		return http.StatusServiceUnavailable, message, nil
	}

	if isAPIError {
		return apiErr.Status, apiErr.Message, payload
	}

	if errors.IsTransientNetwork(err) {
		return http.StatusServiceUnavailable, message, nil
	}

	return http.StatusInternalServerError, message, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string, payload any) {
	body := map[string]any{"message": message}
	if payload != nil {
		body["payload"] = payload
	}

	respondJSON(w, status, map[string]any{"error": body})
}
