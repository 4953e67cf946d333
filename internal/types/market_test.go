package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMarketAcceptsSize(t *testing.T) {
	market := Market{
		Symbol:       "ETH-USD",
		MinOrderSize: decimal.RequireFromString("0.01"),
	}

	assert.True(t, market.AcceptsSize(decimal.RequireFromString("0.01")))
	assert.True(t, market.AcceptsSize(decimal.NewFromInt(3)))
	assert.False(t, market.AcceptsSize(decimal.RequireFromString("0.009")))
}

func TestBalanceLocked(t *testing.T) {
	balance := Balance{
		Asset:     "USD",
		Available: decimal.NewFromInt(700),
		Total:     decimal.NewFromInt(1000),
	}

	assert.True(t, balance.Locked().Equal(decimal.NewFromInt(300)))
}
