package harbor

import (
	"net/url"
	"sort"
	"strings"

	"github.com/rxtech-lab/harbor-dex-proxy/internal/types"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"github.com/shopspring/decimal"
)

// Object is an undecoded Harbor JSON object returned by passthrough endpoints.
type Object = map[string]any

// OrderStatus is the order status reported by Harbor.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// Normalize lowercases the status and folds known aliases.
func (s OrderStatus) Normalize() OrderStatus {
	normalized := OrderStatus(strings.ToLower(strings.TrimSpace(string(s))))
	switch normalized {
	case "cancelled":
		return OrderStatusCanceled
	case "partial", "partially-filled":
		return OrderStatusPartiallyFilled
	case "new", "accepted":
		return OrderStatusOpen
	default:
		return normalized
	}
}

// MarketInfo is one entry of GET /markets.
type MarketInfo struct {
	Symbol         string          `json:"symbol"`
	BaseAsset      string          `json:"baseAsset"`
	QuoteAsset     string          `json:"quoteAsset"`
	MinOrderSize   decimal.Decimal `json:"minOrderSize"`
	PriceIncrement decimal.Decimal `json:"priceIncrement"`
	SizeIncrement  decimal.Decimal `json:"sizeIncrement"`
	MakerFee       decimal.Decimal `json:"makerFee"`
	TakerFee       decimal.Decimal `json:"takerFee"`
}

// ToMarket converts the wire entry into the connector model.
func (m MarketInfo) ToMarket() types.Market {
	return types.Market{
		Symbol:         m.Symbol,
		BaseAsset:      m.BaseAsset,
		QuoteAsset:     m.QuoteAsset,
		MinOrderSize:   m.MinOrderSize,
		PriceIncrement: m.PriceIncrement,
		SizeIncrement:  m.SizeIncrement,
		MakerFee:       m.MakerFee,
		TakerFee:       m.TakerFee,
	}
}

type marketsResponse struct {
	Markets []MarketInfo `json:"markets"`
}

// BalanceInfo is one entry of GET /account.
type BalanceInfo struct {
	Asset     string          `json:"asset"`
	Available decimal.Decimal `json:"available"`
	Total     decimal.Decimal `json:"total"`
}

// AccountInfo is the body of GET /account.
type AccountInfo struct {
	Balances []BalanceInfo `json:"balances"`
}

// CreateOrderRequest is the body of POST /order.
type CreateOrderRequest struct {
	ClientOrderID string          `json:"clientOrderId"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Type          string          `json:"type"`
	Price         decimal.Decimal `json:"price"`
	Size          decimal.Decimal `json:"size"`
}

// NewLimitOrder builds a limit order body from a connector order.
func NewLimitOrder(clientOrderID string, req types.PlaceOrderRequest) CreateOrderRequest {
	return CreateOrderRequest{
		ClientOrderID: clientOrderID,
		Symbol:        req.Symbol,
		Side:          strings.ToLower(string(req.Side)),
		Type:          "limit",
		Price:         req.Price,
		Size:          req.Size,
	}
}

// OrderInfo is Harbor's view of one order, returned by the order endpoints.
type OrderInfo struct {
	OrderID       string          `json:"orderId"`
	ClientOrderID string          `json:"clientOrderId"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Price         decimal.Decimal `json:"price"`
	Size          decimal.Decimal `json:"size"`
	FilledSize    decimal.Decimal `json:"filledSize"`
	Status        OrderStatus     `json:"status"`
}

// OrderQuery selects one order on GET and DELETE /order.
type OrderQuery struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
}

// Values renders the non-empty fields as query parameters.
func (q OrderQuery) Values() url.Values {
	values := url.Values{}
	if q.OrderID != "" {
		values.Set("orderId", q.OrderID)
	}

	if q.ClientOrderID != "" {
		values.Set("clientOrderId", q.ClientOrderID)
	}

	if q.Symbol != "" {
		values.Set("symbol", q.Symbol)
	}

	return values
}

// WithdrawRequiredFields must all be present in a POST /withdraw body.
var WithdrawRequiredFields = []string{"destination", "asset", "amount", "gasAsset", "gasAmount"}

// ValidateWithdraw reports the missing required fields, sorted.
func ValidateWithdraw(payload Object) error {
	var missing []string
	for _, field := range WithdrawRequiredFields {
		if _, ok := payload[field]; !ok {
			missing = append(missing, field)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	sort.Strings(missing)

	return errors.Newf(errors.ErrCodeMissingParameter, "Missing required withdraw fields: %s", strings.Join(missing, ", "))
}
