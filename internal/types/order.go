package types

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"github.com/shopspring/decimal"
)

type OrderSide string

type OrderState string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderStatePendingCreate   OrderState = "PENDING_CREATE"
	OrderStateOpen            OrderState = "OPEN"
	OrderStatePartiallyFilled OrderState = "PARTIALLY_FILLED"
	OrderStateFilled          OrderState = "FILLED"
	OrderStateCanceled        OrderState = "CANCELED"
	OrderStateFailed          OrderState = "FAILED"
)

// allowedTransitions lists the legal next states for each state.
// A state absent from the map is terminal.
var allowedTransitions = map[OrderState][]OrderState{
	OrderStatePendingCreate:   {OrderStateOpen, OrderStateFailed},
	OrderStateOpen:            {OrderStatePartiallyFilled, OrderStateFilled, OrderStateCanceled, OrderStateFailed},
	OrderStatePartiallyFilled: {OrderStatePartiallyFilled, OrderStateFilled, OrderStateCanceled},
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderState) IsTerminal() bool {
	return s == OrderStateFilled || s == OrderStateCanceled || s == OrderStateFailed
}

// IsCancelable reports whether a cancel request is valid in this state.
func (s OrderState) IsCancelable() bool {
	return s == OrderStateOpen || s == OrderStatePartiallyFilled
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s OrderState) CanTransitionTo(next OrderState) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}

	return false
}

// ParseOrderSide accepts a side in any letter case.
func ParseOrderSide(raw string) (OrderSide, error) {
	side := OrderSide(strings.ToUpper(strings.TrimSpace(raw)))
	if side != OrderSideBuy && side != OrderSideSell {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "invalid order side %q", raw)
	}

	return side, nil
}

// PlaceOrderRequest is the generic order submission accepted by the connector.
type PlaceOrderRequest struct {
	Symbol string          `json:"symbol" yaml:"symbol" validate:"required"`
	Side   OrderSide       `json:"side" yaml:"side" validate:"required,oneof=BUY SELL"`
	Price  decimal.Decimal `json:"price" yaml:"price"`
	Size   decimal.Decimal `json:"size" yaml:"size"`
}

// Validate validates the PlaceOrderRequest struct.
func (r *PlaceOrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid order request", err)
	}

	if !r.Price.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidParameter, "price must be positive, got %s", r.Price)
	}

	if !r.Size.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidParameter, "size must be positive, got %s", r.Size)
	}

	return nil
}

// Order is the locally tracked view of one order.
type Order struct {
	// ClientOrderID is generated locally and is the stable join key across retries.
	ClientOrderID string `json:"client_order_id" yaml:"client_order_id"`
	// ExchangeOrderID is assigned by Harbor on acknowledgment. None until then.
	ExchangeOrderID optional.Option[string] `json:"exchange_order_id" yaml:"exchange_order_id"`
	Symbol          string                  `json:"symbol" yaml:"symbol"`
	Side            OrderSide               `json:"side" yaml:"side"`
	Price           decimal.Decimal         `json:"price" yaml:"price"`
	Size            decimal.Decimal         `json:"size" yaml:"size"`
	FilledSize      decimal.Decimal         `json:"filled_size" yaml:"filled_size"`
	State           OrderState              `json:"state" yaml:"state"`
	// RejectReason holds the exchange message when the order reached FAILED.
	RejectReason string `json:"reject_reason,omitempty" yaml:"reject_reason,omitempty"`
	// IntegrityError is set when a fill regression froze the order.
	IntegrityError string    `json:"integrity_error,omitempty" yaml:"integrity_error,omitempty"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"updated_at"`
}

// Remaining returns the unfilled size.
func (o Order) Remaining() decimal.Decimal {
	return o.Size.Sub(o.FilledSize)
}

// ExchangeID returns the exchange order id or an empty string.
func (o Order) ExchangeID() string {
	return o.ExchangeOrderID.TakeOr("")
}

// OrderEvent is emitted on every order state transition.
type OrderEvent struct {
	ClientOrderID string     `json:"client_order_id"`
	State         OrderState `json:"state"`
	Order         Order      `json:"order"`
}
