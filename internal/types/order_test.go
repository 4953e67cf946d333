package types

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrderRequestValidate(t *testing.T) {
	tests := []struct {
		name        string
		req         PlaceOrderRequest
		shouldError bool
	}{
		{
			name: "valid buy",
			req: PlaceOrderRequest{
				Symbol: "ETH-USD",
				Side:   OrderSideBuy,
				Price:  decimal.NewFromInt(2000),
				Size:   decimal.NewFromInt(1),
			},
		},
		{
			name: "missing symbol",
			req: PlaceOrderRequest{
				Side:  OrderSideSell,
				Price: decimal.NewFromInt(2000),
				Size:  decimal.NewFromInt(1),
			},
			shouldError: true,
		},
		{
			name: "bad side",
			req: PlaceOrderRequest{
				Symbol: "ETH-USD",
				Side:   OrderSide("HOLD"),
				Price:  decimal.NewFromInt(2000),
				Size:   decimal.NewFromInt(1),
			},
			shouldError: true,
		},
		{
			name: "zero price",
			req: PlaceOrderRequest{
				Symbol: "ETH-USD",
				Side:   OrderSideBuy,
				Price:  decimal.Zero,
				Size:   decimal.NewFromInt(1),
			},
			shouldError: true,
		},
		{
			name: "negative size",
			req: PlaceOrderRequest{
				Symbol: "ETH-USD",
				Side:   OrderSideBuy,
				Price:  decimal.NewFromInt(2000),
				Size:   decimal.NewFromInt(-1),
			},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.shouldError {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidParameter))

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestParseOrderSide(t *testing.T) {
	side, err := ParseOrderSide("buy")
	require.NoError(t, err)
	assert.Equal(t, OrderSideBuy, side)

	side, err = ParseOrderSide(" SELL ")
	require.NoError(t, err)
	assert.Equal(t, OrderSideSell, side)

	_, err = ParseOrderSide("long")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func TestOrderStateMachine(t *testing.T) {
	tests := []struct {
		from    OrderState
		to      OrderState
		allowed bool
	}{
		{OrderStatePendingCreate, OrderStateOpen, true},
		{OrderStatePendingCreate, OrderStateFailed, true},
		{OrderStatePendingCreate, OrderStateFilled, false},
		{OrderStateOpen, OrderStatePartiallyFilled, true},
		{OrderStateOpen, OrderStateFilled, true},
		{OrderStateOpen, OrderStateCanceled, true},
		{OrderStatePartiallyFilled, OrderStateFilled, true},
		{OrderStatePartiallyFilled, OrderStateCanceled, true},
		{OrderStatePartiallyFilled, OrderStateOpen, false},
		{OrderStateFilled, OrderStateCanceled, false},
		{OrderStateCanceled, OrderStateOpen, false},
		{OrderStateFailed, OrderStateOpen, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatePredicates(t *testing.T) {
	assert.False(t, OrderStatePendingCreate.IsTerminal())
	assert.False(t, OrderStateOpen.IsTerminal())
	assert.True(t, OrderStateFilled.IsTerminal())
	assert.True(t, OrderStateCanceled.IsTerminal())
	assert.True(t, OrderStateFailed.IsTerminal())

	assert.False(t, OrderStatePendingCreate.IsCancelable())
	assert.True(t, OrderStateOpen.IsCancelable())
	assert.True(t, OrderStatePartiallyFilled.IsCancelable())
	assert.False(t, OrderStateFilled.IsCancelable())
}

func TestOrderHelpers(t *testing.T) {
	order := Order{
		ClientOrderID:   "abc123",
		ExchangeOrderID: optional.None[string](),
		Size:            decimal.NewFromInt(1),
		FilledSize:      decimal.RequireFromString("0.25"),
	}
	assert.Equal(t, "", order.ExchangeID())
	assert.True(t, order.Remaining().Equal(decimal.RequireFromString("0.75")))

	order.ExchangeOrderID = optional.Some("hx-1")
	assert.Equal(t, "hx-1", order.ExchangeID())
}
