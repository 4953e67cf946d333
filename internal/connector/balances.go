package connector

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/harbor-dex-proxy/internal/harbor"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/types"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"go.uber.org/zap"
)

type balanceSnapshot struct {
	balances    map[string]types.Balance
	refreshedAt time.Time
}

// BalanceTracker holds the latest account balances, replaced as a whole on refresh.
type BalanceTracker struct {
	api      harbor.API
	snapshot atomic.Pointer[balanceSnapshot]
	logger   *logger.Logger
}

func NewBalanceTracker(api harbor.API, log *logger.Logger) *BalanceTracker {
	tracker := &BalanceTracker{
		api:      api,
		snapshot: atomic.Pointer[balanceSnapshot]{},
		logger:   log,
	}
	tracker.snapshot.Store(&balanceSnapshot{
		balances:    map[string]types.Balance{},
		refreshedAt: time.Time{},
	})

	return tracker
}

// Refresh fetches the account. Failures keep the previous snapshot.
func (t *BalanceTracker) Refresh(ctx context.Context) error {
	account, err := t.api.GetAccount(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStaleData, "balance refresh failed, serving previous snapshot", err)
	}

	balances := make(map[string]types.Balance, len(account.Balances))
	for _, info := range account.Balances {
		balances[info.Asset] = types.Balance{
			Asset:     info.Asset,
			Available: info.Available,
			Total:     info.Total,
		}
	}

	t.snapshot.Store(&balanceSnapshot{
		balances:    balances,
		refreshedAt: time.Now(),
	})

	t.logger.Debug("Balances refreshed", zap.Int("assets", len(balances)))

	return nil
}

// GetBalances returns a copy keyed by asset.
func (t *BalanceTracker) GetBalances() map[string]types.Balance {
	current := t.snapshot.Load().balances
	out := make(map[string]types.Balance, len(current))

	for asset, balance := range current {
		out[asset] = balance
	}

	return out
}

func (t *BalanceTracker) RefreshedAt() time.Time {
	return t.snapshot.Load().refreshedAt
}
