package connector

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/harbor-dex-proxy/internal/harbor"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/types"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"go.uber.org/zap"
)

type marketSnapshot struct {
	markets     []types.Market
	bySymbol    map[string]types.Market
	refreshedAt time.Time
}

// MarketCache serves the last successfully fetched market list.
// Reads never perform I/O and never block on a refresh.
type MarketCache struct {
	api      harbor.API
	allow    map[string]struct{}
	snapshot atomic.Pointer[marketSnapshot]
	logger   *logger.Logger
}

// NewMarketCache creates an empty cache. An empty allowlist admits every symbol.
func NewMarketCache(api harbor.API, symbols []string, log *logger.Logger) *MarketCache {
	allow := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		if symbol != "" {
			allow[symbol] = struct{}{}
		}
	}

	cache := &MarketCache{
		api:      api,
		allow:    allow,
		snapshot: atomic.Pointer[marketSnapshot]{},
		logger:   log,
	}
	cache.snapshot.Store(&marketSnapshot{
		markets:     []types.Market{},
		bySymbol:    map[string]types.Market{},
		refreshedAt: time.Time{},
	})

	return cache
}

// Refresh replaces the snapshot. On failure the previous snapshot is kept and
// a stale data error wrapping the cause is returned.
func (c *MarketCache) Refresh(ctx context.Context) error {
	infos, err := c.api.GetMarkets(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStaleData, "market refresh failed, serving previous snapshot", err)
	}

	markets := make([]types.Market, 0, len(infos))
	bySymbol := make(map[string]types.Market, len(infos))

	for _, info := range infos {
		if !c.Allowed(info.Symbol) {
			continue
		}

		market := info.ToMarket()
		markets = append(markets, market)
		bySymbol[market.Symbol] = market
	}

	sort.Slice(markets, func(i, j int) bool {
		return markets[i].Symbol < markets[j].Symbol
	})

	c.snapshot.Store(&marketSnapshot{
		markets:     markets,
		bySymbol:    bySymbol,
		refreshedAt: time.Now(),
	})

	c.logger.Debug("Markets refreshed", zap.Int("count", len(markets)))

	return nil
}

// GetMarkets returns a copy of the current snapshot sorted by symbol.
func (c *MarketCache) GetMarkets() []types.Market {
	snapshot := c.snapshot.Load()
	out := make([]types.Market, len(snapshot.markets))
	copy(out, snapshot.markets)

	return out
}

func (c *MarketCache) Market(symbol string) (types.Market, bool) {
	market, ok := c.snapshot.Load().bySymbol[symbol]

	return market, ok
}

// Allowed reports whether symbol passes the allowlist.
func (c *MarketCache) Allowed(symbol string) bool {
	if len(c.allow) == 0 {
		return true
	}

	_, ok := c.allow[symbol]

	return ok
}

// RefreshedAt is zero until the first successful refresh.
func (c *MarketCache) RefreshedAt() time.Time {
	return c.snapshot.Load().refreshedAt
}
