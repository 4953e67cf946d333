package connector

import (
	"sync"
	"time"

	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"go.uber.org/zap"
)

const defaultWarningCapacity = 100

// Warning sources.
const (
	SourceMarkets  = "markets"
	SourceBalances = "balances"
	SourceFills    = "fills"
	SourceSubmit   = "submit"
	SourceCancel   = "cancel"
	SourceEvents   = "events"
)

// Warning is one non-fatal failure observed by a background task.
type Warning struct {
	Time    time.Time        `json:"time"`
	Source  string           `json:"source"`
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// WarningLog keeps the most recent warnings. Recording also logs at Warn and
// counts the warning in metrics.
type WarningLog struct {
	mu       sync.Mutex
	entries  []Warning
	capacity int
	logger   *logger.Logger
	metrics  *Metrics
}

func NewWarningLog(capacity int, log *logger.Logger, metrics *Metrics) *WarningLog {
	if capacity <= 0 {
		capacity = defaultWarningCapacity
	}

	return &WarningLog{
		mu:       sync.Mutex{},
		entries:  make([]Warning, 0, capacity),
		capacity: capacity,
		logger:   log,
		metrics:  metrics,
	}
}

func (w *WarningLog) Record(source string, err error) {
	if err == nil {
		return
	}

	warning := Warning{
		Time:    time.Now(),
		Source:  source,
		Code:    errors.GetCode(err),
		Message: err.Error(),
	}

	w.mu.Lock()
	if len(w.entries) == w.capacity {
		copy(w.entries, w.entries[1:])
		w.entries = w.entries[:len(w.entries)-1]
	}

	w.entries = append(w.entries, warning)
	w.mu.Unlock()

	w.metrics.Warnings.WithLabelValues(source).Inc()
	w.logger.Warn("Connector warning",
		zap.String("source", source),
		zap.Int("code", int(warning.Code)),
		zap.Error(err),
	)
}

// Recent returns the retained warnings, oldest first.
func (w *WarningLog) Recent() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Warning, len(w.entries))
	copy(out, w.entries)

	return out
}
