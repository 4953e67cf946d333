package types

import (
	"github.com/shopspring/decimal"
)

// Market describes one tradable Harbor instrument.
type Market struct {
	Symbol         string          `json:"symbol" yaml:"symbol"`
	BaseAsset      string          `json:"base_asset" yaml:"base_asset"`
	QuoteAsset     string          `json:"quote_asset" yaml:"quote_asset"`
	MinOrderSize   decimal.Decimal `json:"min_order_size" yaml:"min_order_size"`
	PriceIncrement decimal.Decimal `json:"price_increment" yaml:"price_increment"`
	SizeIncrement  decimal.Decimal `json:"size_increment" yaml:"size_increment"`
	MakerFee       decimal.Decimal `json:"maker_fee" yaml:"maker_fee"`
	TakerFee       decimal.Decimal `json:"taker_fee" yaml:"taker_fee"`
}

// AcceptsSize reports whether size meets the market minimum.
// A zero minimum accepts any positive size.
func (m Market) AcceptsSize(size decimal.Decimal) bool {
	return size.GreaterThanOrEqual(m.MinOrderSize)
}
