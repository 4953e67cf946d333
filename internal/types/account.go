package types

import "github.com/shopspring/decimal"

// Balance is the latest known holding of one asset.
type Balance struct {
	// Asset is the asset symbol and the map key in balance snapshots
	Asset string `json:"asset" yaml:"asset"`
	// Available is the amount free for new orders and withdrawals
	Available decimal.Decimal `json:"available_amount" yaml:"available_amount"`
	// Total is the available amount plus anything locked in open orders
	Total decimal.Decimal `json:"total_amount" yaml:"total_amount"`
}

// Locked returns the amount held by open orders.
func (b Balance) Locked() decimal.Decimal {
	return b.Total.Sub(b.Available)
}
