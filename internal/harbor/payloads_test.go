package harbor

import (
	"testing"

	"github.com/rxtech-lab/harbor-dex-proxy/internal/types"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PayloadsTestSuite struct {
	suite.Suite
}

func TestPayloadsTestSuite(t *testing.T) {
	suite.Run(t, new(PayloadsTestSuite))
}

func (suite *PayloadsTestSuite) TestNormalizeStatus() {
	tests := map[OrderStatus]OrderStatus{
		"OPEN":             OrderStatusOpen,
		"new":              OrderStatusOpen,
		"Cancelled":        OrderStatusCanceled,
		"partial":          OrderStatusPartiallyFilled,
		"partially-filled": OrderStatusPartiallyFilled,
		" filled ":         OrderStatusFilled,
		"rejected":         OrderStatusRejected,
	}

	for raw, expected := range tests {
		suite.Equal(expected, raw.Normalize(), string(raw))
	}
}

func (suite *PayloadsTestSuite) TestNewLimitOrder() {
	order := NewLimitOrder("abc", types.PlaceOrderRequest{
		Symbol: "BTC-USDC",
		Side:   types.OrderSideSell,
		Price:  decimal.NewFromInt(60000),
		Size:   decimal.RequireFromString("0.1"),
	})

	suite.Equal("abc", order.ClientOrderID)
	suite.Equal("sell", order.Side)
	suite.Equal("limit", order.Type)
}

func (suite *PayloadsTestSuite) TestOrderQueryValues() {
	values := OrderQuery{OrderID: "1", ClientOrderID: "", Symbol: "ETH-USDC"}.Values()

	suite.Equal("1", values.Get("orderId"))
	suite.Equal("ETH-USDC", values.Get("symbol"))
	suite.False(values.Has("clientOrderId"))
}

func (suite *PayloadsTestSuite) TestValidateWithdraw() {
	err := ValidateWithdraw(Object{"asset": "ETH", "amount": "1"})
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
	suite.Contains(err.Error(), "Missing required withdraw fields: destination, gasAmount, gasAsset")

	suite.NoError(ValidateWithdraw(Object{
		"destination": "0xabc",
		"asset":       "ETH",
		"amount":      "1",
		"gasAsset":    "ETH",
		"gasAmount":   "0.1",
	}))
}
