package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/events"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/types"
	"go.uber.org/zap"
)

// ChannelOrder carries order state transitions.
const ChannelOrder = "ORDER"

const (
	jsonRPCVersion = "2.0"
	sendBuffer     = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
)

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  struct {
		Channel string `json:"channel"`
	} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcNotification struct {
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  notificationParams `json:"params"`
}

type notificationParams struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

var upgrader = websocket.Upgrader{ //nolint:exhaustruct // defaults for the rest
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub keeps the websocket subscribers and pushes order events to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	logger  *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		mu:      sync.RWMutex{},
		clients: make(map[*wsClient]struct{}),
		logger:  log,
	}
}

// Publish pushes event to every ORDER subscriber. Slow clients miss events
// instead of blocking the publisher.
func (h *Hub) Publish(_ context.Context, event types.OrderEvent) error {
	message, err := json.Marshal(rpcNotification{
		JSONRPC: jsonRPCVersion,
		Method:  "subscription",
		Params:  notificationParams{Channel: ChannelOrder, Data: event.Order},
	})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.isSubscribed(ChannelOrder) {
			continue
		}

		select {
		case client.send <- message:
		default:
			h.logger.Warn("Websocket client is too slow, dropping order event",
				zap.String("client", client.id),
				zap.String("client_order_id", event.ClientOrderID),
			)
		}
	}

	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) register(client *wsClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("Websocket client connected", zap.String("client", client.id), zap.Int("total", total))
}

func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Debug("Websocket client disconnected", zap.String("client", client.id))
	}
}

// ServeHTTP upgrades the connection and runs the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", zap.Error(err))

		return
	}

	client := &wsClient{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, sendBuffer),
		id:            uuid.NewString(),
		subscriptions: make(map[string]struct{}),
		subsMu:        sync.RWMutex{},
	}

	h.register(client)

	go client.writePump()
	go client.readPump()
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	subscriptions map[string]struct{}
	subsMu        sync.RWMutex
}

func (c *wsClient) isSubscribed(channel string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	_, ok := c.subscriptions[channel]

	return ok
}

func (c *wsClient) setSubscribed(channel string, subscribed bool) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	if subscribed {
		c.subscriptions[channel] = struct{}{}
	} else {
		delete(c.subscriptions, channel)
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("Websocket read failed", zap.String("client", c.id), zap.Error(err))
			}

			return
		}

		c.reply(c.handle(message))
	}
}

func (c *wsClient) handle(message []byte) rpcResponse {
	var req rpcRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return errorResponse(nil, rpcParseError, "Parse error")
	}

	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		return errorResponse(req.ID, rpcInvalidRequest, "Invalid Request")
	}

	var subscribe bool

	switch req.Method {
	case "subscribe":
		subscribe = true
	case "unsubscribe":
		subscribe = false
	default:
		return errorResponse(req.ID, rpcMethodNotFound, "Method not found")
	}

	if req.Params.Channel != ChannelOrder {
		return errorResponse(req.ID, rpcInvalidParams, "Unknown channel "+req.Params.Channel)
	}

	c.setSubscribed(req.Params.Channel, subscribe)

	return rpcResponse{
		JSONRPC: jsonRPCVersion,
		ID:      req.ID,
		Result:  map[string]any{"channel": req.Params.Channel, "subscribed": subscribe},
		Error:   nil,
	}
}

func (c *wsClient) reply(response rpcResponse) {
	message, err := json.Marshal(response)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	// The hub closes send on unregister; only write while still registered.
	if _, ok := c.hub.clients[c]; !ok {
		return
	}

	select {
	case c.send <- message:
	default:
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func errorResponse(id json.RawMessage, code int, message string) rpcResponse {
	return rpcResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Result:  nil,
		Error:   &rpcError{Code: code, Message: message},
	}
}

var _ events.Sink = (*Hub)(nil)
