package harbor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// API is the Harbor REST and xnode surface used by the connector.
//
//nolint:interfacebloat // mirrors the exchange endpoints one to one
type API interface {
	// GetMarkets returns every market listed by GET /markets
	GetMarkets(ctx context.Context) ([]MarketInfo, error)
	// GetAccount returns balances from GET /account
	GetAccount(ctx context.Context) (*AccountInfo, error)
	// GetDepth returns the order book for symbol, optionally limited to depth levels
	GetDepth(ctx context.Context, symbol string, depth optional.Option[int]) (Object, error)
	// CreateOrder submits a new order
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderInfo, error)
	// UpdateOrder amends an order with a raw payload
	UpdateOrder(ctx context.Context, payload Object) (Object, error)
	// CancelOrder cancels the order selected by query
	CancelOrder(ctx context.Context, query OrderQuery) (*OrderInfo, error)
	// GetOrder returns the order selected by query
	GetOrder(ctx context.Context, query OrderQuery) (*OrderInfo, error)
	// GetOrders lists orders with raw filters
	GetOrders(ctx context.Context, query url.Values) (Object, error)
	// Withdraw creates a withdrawal request
	Withdraw(ctx context.Context, payload Object) (Object, error)
	// GetWithdraw returns the status of a withdrawal
	GetWithdraw(ctx context.Context, withdrawID string) (Object, error)
	// GetInboundAddresses returns the xnode vault addresses
	GetInboundAddresses(ctx context.Context) (Object, error)
	// GetOutboundFees returns the xnode outbound fee schedule
	GetOutboundFees(ctx context.Context) (Object, error)
	// GetTxDetails returns base layer transaction details from xnode
	GetTxDetails(ctx context.Context, txID string) (Object, error)
}

// ClientConfig locates the Harbor endpoints.
type ClientConfig struct {
	RESTBase     string
	RESTAPIPath  string
	XNodeBase    string
	XNodeAPIPath string
	// RequestTimeout bounds each call. Zero leaves only the session timeout.
	RequestTimeout time.Duration
	// RequestsPerSecond enables client side rate limiting when positive.
	RequestsPerSecond float64
	Burst             int
}

// Client talks to Harbor through the shared Session.
type Client struct {
	config  ClientConfig
	session *Session
	auth    *Authenticator
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewClient creates a Client. Requests fail until session is started.
func NewClient(config ClientConfig, session *Session, auth *Authenticator, log *logger.Logger) *Client {
	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}

		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	return &Client{
		config:  config,
		session: session,
		auth:    auth,
		limiter: limiter,
		logger:  log,
	}
}

// ComposeURL joins base, apiPath and path with single slashes.
func ComposeURL(base, apiPath, path string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{base, apiPath, path} {
		trimmed := strings.Trim(part, "/")
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	return strings.Join(parts, "/")
}

func (c *Client) GetMarkets(ctx context.Context) ([]MarketInfo, error) {
	var out marketsResponse
	if err := c.restJSON(ctx, http.MethodGet, "/markets", nil, nil, &out); err != nil {
		return nil, err
	}

	return out.Markets, nil
}

func (c *Client) GetAccount(ctx context.Context) (*AccountInfo, error) {
	var out AccountInfo
	if err := c.restJSON(ctx, http.MethodGet, "/account", nil, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) GetDepth(ctx context.Context, symbol string, depth optional.Option[int]) (Object, error) {
	var params url.Values
	if depth.IsSome() {
		params = url.Values{"depth": []string{strconv.Itoa(depth.Unwrap())}}
	}

	return c.restObject(ctx, http.MethodPost, "/depth/"+url.PathEscape(symbol), params, nil)
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderInfo, error) {
	var out OrderInfo
	if err := c.restJSON(ctx, http.MethodPost, "/order", nil, req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) UpdateOrder(ctx context.Context, payload Object) (Object, error) {
	return c.restObject(ctx, http.MethodPut, "/order", nil, payload)
}

func (c *Client) CancelOrder(ctx context.Context, query OrderQuery) (*OrderInfo, error) {
	var out OrderInfo
	if err := c.restJSON(ctx, http.MethodDelete, "/order", query.Values(), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) GetOrder(ctx context.Context, query OrderQuery) (*OrderInfo, error) {
	var out OrderInfo
	if err := c.restJSON(ctx, http.MethodGet, "/order", query.Values(), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) GetOrders(ctx context.Context, query url.Values) (Object, error) {
	return c.restObject(ctx, http.MethodGet, "/orders", query, nil)
}

func (c *Client) Withdraw(ctx context.Context, payload Object) (Object, error) {
	return c.restObject(ctx, http.MethodPost, "/withdraw", nil, payload)
}

func (c *Client) GetWithdraw(ctx context.Context, withdrawID string) (Object, error) {
	return c.restObject(ctx, http.MethodGet, "/withdraw/"+url.PathEscape(withdrawID), nil, nil)
}

func (c *Client) GetInboundAddresses(ctx context.Context) (Object, error) {
	return c.xnodeObject(ctx, "/inbound_addresses")
}

func (c *Client) GetOutboundFees(ctx context.Context) (Object, error) {
	return c.xnodeObject(ctx, "/outbound_fees")
}

func (c *Client) GetTxDetails(ctx context.Context, txID string) (Object, error) {
	return c.xnodeObject(ctx, "/tx/details/"+url.PathEscape(txID))
}

// restJSON issues an authenticated call and decodes the body into out.
func (c *Client) restJSON(ctx context.Context, method, path string, params url.Values, body, out any) error {
	target := ComposeURL(c.config.RESTBase, c.config.RESTAPIPath, path)

	raw, _, err := c.send(ctx, method, target, params, body, true)
	if err != nil {
		return err
	}

	return decodeInto(raw, out)
}

// restObject issues an authenticated call and returns the body as an object.
func (c *Client) restObject(ctx context.Context, method, path string, params url.Values, body any) (Object, error) {
	target := ComposeURL(c.config.RESTBase, c.config.RESTAPIPath, path)

	_, data, err := c.send(ctx, method, target, params, body, true)
	if err != nil {
		return nil, err
	}

	return asObject(data), nil
}

// xnodeObject issues an unauthenticated GET against the xnode base.
func (c *Client) xnodeObject(ctx context.Context, path string) (Object, error) {
	if c.config.XNodeBase == "" {
		return nil, newLocalError("xnode base URL is not configured")
	}

	target := ComposeURL(c.config.XNodeBase, c.config.XNodeAPIPath, path)

	_, data, err := c.send(ctx, http.MethodGet, target, nil, nil, false)
	if err != nil {
		return nil, err
	}

	return asObject(data), nil
}

// send performs one request and returns the raw body and its decoded form.
func (c *Client) send(
	ctx context.Context,
	method, target string,
	params url.Values,
	body any,
	authenticated bool,
) ([]byte, any, error) {
	httpClient, err := c.session.HTTPClient()
	if err != nil {
		return nil, nil, err
	}

	if c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)

		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, newNetworkError(err)
		}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, newLocalError(fmt.Sprintf("failed to encode request body: %v", err))
		}

		reader = bytes.NewReader(encoded)
	}

	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, newLocalError(fmt.Sprintf("failed to build request: %v", err))
	}

	req.Header.Set("accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authenticated {
		req = c.auth.Sign(req)
	}

	start := time.Now()

	resp, err := httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Harbor request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Error(err),
		)

		return nil, nil, newNetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, newNetworkError(err)
	}

	c.logger.Debug("Harbor request completed",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	data, decodeErr := decodeBody(resp.Header.Get("Content-Type"), raw)

	if resp.StatusCode >= http.StatusBadRequest {
		if decodeErr != nil {
			data = string(raw)
		}

		return nil, nil, newStatusError(resp.StatusCode, data)
	}

	if decodeErr != nil {
		return nil, nil, &APIError{
			Message: fmt.Sprintf("Harbor returned malformed JSON: %v", decodeErr),
			Status:  http.StatusBadGateway,
			Payload: string(raw),
			Cause:   decodeErr,
			local:   false,
		}
	}

	return raw, data, nil
}

// decodeBody decodes JSON bodies and keeps anything else as text.
// An empty JSON body decodes to an empty object.
func decodeBody(contentType string, raw []byte) (any, error) {
	if !strings.Contains(contentType, "application/json") {
		return string(raw), nil
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return Object{}, nil
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}

	return data, nil
}

func decodeInto(raw []byte, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{
			Message: fmt.Sprintf("unexpected Harbor response: %v", err),
			Status:  http.StatusBadGateway,
			Payload: string(raw),
			Cause:   err,
			local:   false,
		}
	}

	return nil
}

// asObject wraps non-object results as {"result": data}.
func asObject(data any) Object {
	if object, ok := data.(map[string]any); ok {
		return object
	}

	return Object{"result": data}
}

var _ API = (*Client)(nil)
