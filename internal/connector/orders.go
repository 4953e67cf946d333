package connector

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/events"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/harbor"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/types"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reject reasons set by the connector itself.
const (
	// ReasonNotAcknowledged is the reject reason of submissions Harbor never confirmed.
	ReasonNotAcknowledged = "submission not acknowledged"
	// ReasonSessionClosed marks submissions that were never sent because the session was closed.
	ReasonSessionClosed = "session closed before submission"

	reasonRejectedByHarbor = "rejected by Harbor"
)

// OrderManagerConfig holds the order lifecycle timeouts.
type OrderManagerConfig struct {
	// SubmitTimeout bounds the create call made after Submit returns.
	SubmitTimeout time.Duration
	// AckTimeout is how long an order may stay unconfirmed before it fails.
	AckTimeout time.Duration
	// Retention evicts unobserved terminal orders. Zero disables eviction.
	Retention time.Duration
}

type trackedOrder struct {
	mu    sync.Mutex
	order types.Order
	// submitting is true while the create call is in flight.
	submitting bool
}

func (t *trackedOrder) snapshot() types.Order {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.order
}

// OrderManager tracks every order submitted through the connector.
// The map lock guards membership only. Each order has its own lock, which is
// never held across a Harbor call or an event publish.
type OrderManager struct {
	api      harbor.API
	markets  *MarketCache
	sink     events.Sink
	warnings *WarningLog
	metrics  *Metrics
	logger   *logger.Logger
	config   OrderManagerConfig

	mu       sync.RWMutex
	orders   map[string]*trackedOrder
	inflight sync.WaitGroup
	// pollMu serializes fill polls so responses are applied in request order.
	pollMu sync.Mutex
	now    func() time.Time
}

func NewOrderManager(
	api harbor.API,
	markets *MarketCache,
	sink events.Sink,
	warnings *WarningLog,
	metrics *Metrics,
	config OrderManagerConfig,
	log *logger.Logger,
) *OrderManager {
	if sink == nil {
		sink = events.Discard
	}

	return &OrderManager{
		api:      api,
		markets:  markets,
		sink:     sink,
		warnings: warnings,
		metrics:  metrics,
		logger:   log,
		config:   config,
		mu:       sync.RWMutex{},
		orders:   make(map[string]*trackedOrder),
		inflight: sync.WaitGroup{},
		pollMu:   sync.Mutex{},
		now:      time.Now,
	}
}

// Submit validates req, registers the order as PENDING_CREATE and sends it to
// Harbor in the background. It returns before Harbor acknowledges the order.
func (m *OrderManager) Submit(ctx context.Context, req types.PlaceOrderRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	if !m.markets.Allowed(req.Symbol) {
		return "", errors.Newf(errors.ErrCodeSymbolNotAllowed, "symbol %s is not allowed", req.Symbol)
	}

	if market, ok := m.markets.Market(req.Symbol); ok && !market.AcceptsSize(req.Size) {
		return "", errors.Newf(errors.ErrCodeInvalidParameter,
			"size %s is below the minimum order size %s for %s", req.Size, market.MinOrderSize, req.Symbol)
	}

	now := m.now()
	clientOrderID := uuid.NewString()
	tracked := &trackedOrder{
		mu: sync.Mutex{},
		order: types.Order{
			ClientOrderID:   clientOrderID,
			ExchangeOrderID: optional.None[string](),
			Symbol:          req.Symbol,
			Side:            req.Side,
			Price:           req.Price,
			Size:            req.Size,
			FilledSize:      decimal.Zero,
			State:           types.OrderStatePendingCreate,
			RejectReason:    "",
			IntegrityError:  "",
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		submitting: true,
	}
	registered := tracked.order

	m.mu.Lock()
	m.orders[clientOrderID] = tracked
	m.metrics.TrackedOrders.Set(float64(len(m.orders)))
	m.mu.Unlock()

	m.logger.Info("Order submitted",
		zap.String("client_order_id", clientOrderID),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("price", req.Price.String()),
		zap.String("size", req.Size.String()),
	)

	m.emit(ctx, []types.Order{registered})

	body := harbor.NewLimitOrder(clientOrderID, req)
	submitCtx := context.WithoutCancel(ctx)

	m.inflight.Add(1)

	go m.create(submitCtx, tracked, body)

	return clientOrderID, nil
}

func (m *OrderManager) create(ctx context.Context, tracked *trackedOrder, body harbor.CreateOrderRequest) {
	defer m.inflight.Done()

	if m.config.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.SubmitTimeout)

		defer cancel()
	}

	info, err := m.api.CreateOrder(ctx, body)
	if err == nil {
		m.metrics.Submissions.WithLabelValues("accepted").Inc()
		m.apply(ctx, tracked, info, true)

		return
	}

	if apiErr, ok := harbor.AsAPIError(err); ok && apiErr.IsRejection() {
		m.metrics.Submissions.WithLabelValues("rejected").Inc()
		m.warnings.Record(SourceSubmit, rejectedError(body.ClientOrderID, apiErr.Reason(), err))
		m.fail(ctx, tracked, apiErr.Reason(), true)

		return
	}

	// Nothing reached Harbor, so the outcome is known.
	if errors.HasCode(err, errors.ErrCodeSessionClosed) {
		m.metrics.Submissions.WithLabelValues("not_sent").Inc()
		m.warnings.Record(SourceSubmit, err)
		m.fail(ctx, tracked, ReasonSessionClosed, true)

		return
	}

	// The order may or may not exist on Harbor; the fill poller reconciles it.
	m.metrics.Submissions.WithLabelValues("unknown").Inc()
	m.warnings.Record(SourceSubmit, errors.Wrapf(errors.ErrCodeTransientNetwork, err,
		"submission outcome of order %s is unknown", body.ClientOrderID))

	tracked.mu.Lock()
	tracked.submitting = false
	tracked.mu.Unlock()
}

// fail moves a pending or open order to FAILED.
func (m *OrderManager) fail(ctx context.Context, tracked *trackedOrder, reason string, submitted bool) {
	var emitted []types.Order

	tracked.mu.Lock()
	if submitted {
		tracked.submitting = false
	}

	if m.transition(&tracked.order, types.OrderStateFailed) {
		tracked.order.RejectReason = reason
		emitted = append(emitted, tracked.order)
	}
	tracked.mu.Unlock()

	m.emit(ctx, emitted)
}

// apply folds Harbor's view of an order into the tracked order and emits one
// event per state transition. Rejections and fill regressions are recorded as warnings.
func (m *OrderManager) apply(ctx context.Context, tracked *trackedOrder, info *harbor.OrderInfo, submitted bool) {
	tracked.mu.Lock()
	if submitted {
		tracked.submitting = false
	}

	emitted, err := m.applyLocked(&tracked.order, info)
	tracked.mu.Unlock()

	if err != nil {
		source := SourceFills
		if submitted {
			source = SourceSubmit
		}

		m.warnings.Record(source, err)
	}

	m.emit(ctx, emitted)
}

func (m *OrderManager) applyLocked(order *types.Order, info *harbor.OrderInfo) ([]types.Order, error) {
	var emitted []types.Order

	// A response that raced a cancel or an earlier terminal update is stale.
	if order.IntegrityError != "" || order.State.IsTerminal() {
		return nil, nil
	}

	if info.OrderID != "" && order.ExchangeOrderID.IsNone() {
		order.ExchangeOrderID = optional.Some(info.OrderID)
		order.UpdatedAt = m.now()
	}

	status := info.Status.Normalize()

	if order.State == types.OrderStatePendingCreate {
		if status == harbor.OrderStatusRejected {
			if m.transition(order, types.OrderStateFailed) {
				order.RejectReason = reasonRejectedByHarbor
				emitted = append(emitted, *order)

				return emitted, rejectedError(order.ClientOrderID, reasonRejectedByHarbor, nil)
			}

			return emitted, nil
		}

		if m.transition(order, types.OrderStateOpen) {
			emitted = append(emitted, *order)
		}
	}

	fillChanged := false

	switch info.FilledSize.Cmp(order.FilledSize) {
	case -1:
		err := errors.Newf(errors.ErrCodeDataIntegrity,
			"filled size of order %s went from %s to %s", order.ClientOrderID, order.FilledSize, info.FilledSize)
		order.IntegrityError = err.Error()
		order.UpdatedAt = m.now()

		return emitted, err
	case 1:
		order.FilledSize = info.FilledSize
		order.UpdatedAt = m.now()
		fillChanged = true

		m.metrics.FillUpdates.Inc()
	default:
		if status == harbor.OrderStatusOpen || status == harbor.OrderStatusPartiallyFilled ||
			status == harbor.OrderStatusPending {
			return emitted, nil
		}
	}

	next, ok := nextState(order, status)
	if !ok {
		return emitted, nil
	}

	if next == order.State && !fillChanged {
		return emitted, nil
	}

	if m.transition(order, next) {
		emitted = append(emitted, *order)

		if next == types.OrderStateFailed {
			order.RejectReason = reasonRejectedByHarbor
			emitted[len(emitted)-1] = *order

			return emitted, rejectedError(order.ClientOrderID, reasonRejectedByHarbor, nil)
		}
	} else {
		m.logger.Warn("Ignoring illegal order transition",
			zap.String("client_order_id", order.ClientOrderID),
			zap.String("from", string(order.State)),
			zap.String("to", string(next)),
		)
	}

	return emitted, nil
}

// nextState derives the local state from the filled size and Harbor's status.
func nextState(order *types.Order, status harbor.OrderStatus) (types.OrderState, bool) {
	switch {
	case status == harbor.OrderStatusRejected:
		return types.OrderStateFailed, true
	case status == harbor.OrderStatusFilled || order.FilledSize.GreaterThanOrEqual(order.Size):
		return types.OrderStateFilled, true
	case status == harbor.OrderStatusCanceled:
		return types.OrderStateCanceled, true
	case order.FilledSize.IsPositive():
		return types.OrderStatePartiallyFilled, true
	default:
		return "", false
	}
}

// transition moves order to next when legal and reports whether it did.
// Only real state changes are counted; fill progress within
// PARTIALLY_FILLED is counted by FillUpdates.
func (m *OrderManager) transition(order *types.Order, next types.OrderState) bool {
	if !order.State.CanTransitionTo(next) {
		return false
	}

	if order.State != next {
		m.metrics.Transitions.WithLabelValues(string(next)).Inc()
	}

	order.State = next
	order.UpdatedAt = m.now()

	return true
}

func rejectedError(clientOrderID, reason string, cause error) error {
	return errors.Wrapf(errors.ErrCodeOrderRejected, cause, "order %s rejected: %s", clientOrderID, reason)
}

// PollFills queries Harbor for every active order and applies the result.
// Frozen orders are skipped. The first integrity violation is returned after
// all orders were polled.
func (m *OrderManager) PollFills(ctx context.Context) error {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	var integrityErr error

	for _, tracked := range m.active() {
		if ctx.Err() != nil {
			return nil
		}

		tracked.mu.Lock()
		order := tracked.order
		submitting := tracked.submitting
		tracked.mu.Unlock()

		if submitting || order.IntegrityError != "" {
			continue
		}

		query := harbor.OrderQuery{OrderID: order.ExchangeID(), ClientOrderID: "", Symbol: ""}
		if query.OrderID == "" {
			query.ClientOrderID = order.ClientOrderID
		}

		info, err := m.api.GetOrder(ctx, query)
		if err != nil {
			m.handlePollError(ctx, tracked, order, err)

			continue
		}

		tracked.mu.Lock()
		emitted, applyErr := m.applyLocked(&tracked.order, info)
		tracked.mu.Unlock()

		if applyErr != nil {
			m.warnings.Record(SourceFills, applyErr)

			if integrityErr == nil && errors.IsDataIntegrity(applyErr) {
				integrityErr = applyErr
			}
		}

		m.emit(ctx, emitted)
	}

	return integrityErr
}

func (m *OrderManager) handlePollError(ctx context.Context, tracked *trackedOrder, order types.Order, err error) {
	apiErr, ok := harbor.AsAPIError(err)
	pending := order.State == types.OrderStatePendingCreate

	if pending && ok && apiErr.Status == http.StatusNotFound {
		if m.now().Sub(order.CreatedAt) >= m.config.AckTimeout {
			m.logger.Warn("Order was never acknowledged",
				zap.String("client_order_id", order.ClientOrderID),
				zap.Duration("ack_timeout", m.config.AckTimeout),
			)
			m.fail(ctx, tracked, ReasonNotAcknowledged, false)
		}

		return
	}

	m.warnings.Record(SourceFills, harbor.Classify(err, "failed to poll order "+order.ClientOrderID))
}

// Cancel cancels an OPEN or PARTIALLY_FILLED order on Harbor.
func (m *OrderManager) Cancel(ctx context.Context, clientOrderID string) error {
	tracked, ok := m.get(clientOrderID)
	if !ok {
		return errors.Newf(errors.ErrCodeUnknownOrder, "unknown order %s", clientOrderID)
	}

	order := tracked.snapshot()
	if !order.State.IsCancelable() {
		return errors.Newf(errors.ErrCodeOrderNotCancelable, "order %s is %s", clientOrderID, order.State)
	}

	query := harbor.OrderQuery{OrderID: order.ExchangeID(), ClientOrderID: "", Symbol: ""}
	if query.OrderID == "" {
		query.ClientOrderID = clientOrderID
	}

	info, err := m.api.CancelOrder(ctx, query)
	if err != nil {
		if apiErr, ok := harbor.AsAPIError(err); ok && apiErr.IsRejection() {
			return errors.Wrapf(errors.ErrCodeOrderNotCancelable, err, "Harbor refused to cancel order %s", clientOrderID)
		}

		return harbor.Classify(err, "failed to cancel order "+clientOrderID)
	}

	var emitted []types.Order

	tracked.mu.Lock()
	if info != nil && info.FilledSize.GreaterThan(tracked.order.FilledSize) {
		tracked.order.FilledSize = info.FilledSize
	}

	canceled := m.transition(&tracked.order, types.OrderStateCanceled)
	if canceled {
		emitted = append(emitted, tracked.order)
	}

	state := tracked.order.State
	tracked.mu.Unlock()

	m.emit(ctx, emitted)

	// A concurrent poll may already have observed the cancellation.
	if !canceled && state != types.OrderStateCanceled {
		return errors.Newf(errors.ErrCodeOrderNotCancelable, "order %s reached %s while canceling", clientOrderID, state)
	}

	m.logger.Info("Order canceled", zap.String("client_order_id", clientOrderID))

	return nil
}

// CancelAll cancels every cancelable order and returns the ids it canceled.
// Failures are recorded as warnings.
func (m *OrderManager) CancelAll(ctx context.Context) []string {
	canceled := []string{}

	for _, tracked := range m.active() {
		order := tracked.snapshot()
		if !order.State.IsCancelable() {
			continue
		}

		if err := m.Cancel(ctx, order.ClientOrderID); err != nil {
			m.warnings.Record(SourceCancel, err)

			continue
		}

		canceled = append(canceled, order.ClientOrderID)
	}

	return canceled
}

// Status returns a copy of the order. Observing a terminal order evicts it.
func (m *OrderManager) Status(clientOrderID string) (types.Order, error) {
	tracked, ok := m.get(clientOrderID)
	if !ok {
		return types.Order{}, errors.Newf(errors.ErrCodeUnknownOrder, "unknown order %s", clientOrderID)
	}

	order := tracked.snapshot()
	if order.State.IsTerminal() {
		m.evict(clientOrderID)
	}

	return order, nil
}

// OpenOrders returns every non-terminal order, oldest first.
func (m *OrderManager) OpenOrders() []types.Order {
	active := m.active()
	out := make([]types.Order, 0, len(active))

	for _, tracked := range active {
		order := tracked.snapshot()
		if !order.State.IsTerminal() {
			out = append(out, order)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out
}

// Sweep evicts terminal orders older than the retention and returns how many it removed.
func (m *OrderManager) Sweep() int {
	if m.config.Retention <= 0 {
		return 0
	}

	cutoff := m.now().Add(-m.config.Retention)

	m.mu.RLock()
	var expired []string

	for id, tracked := range m.orders {
		order := tracked.snapshot()
		if order.State.IsTerminal() && order.UpdatedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.evict(id)
	}

	if len(expired) > 0 {
		m.logger.Debug("Evicted terminal orders", zap.Int("count", len(expired)))
	}

	return len(expired)
}

// Wait blocks until every in-flight submission has finished.
func (m *OrderManager) Wait() {
	m.inflight.Wait()
}

func (m *OrderManager) get(clientOrderID string) (*trackedOrder, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tracked, ok := m.orders[clientOrderID]

	return tracked, ok
}

// active returns the orders that are not terminal.
func (m *OrderManager) active() []*trackedOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*trackedOrder, 0, len(m.orders))
	for _, tracked := range m.orders {
		if !tracked.snapshot().State.IsTerminal() {
			out = append(out, tracked)
		}
	}

	return out
}

func (m *OrderManager) evict(clientOrderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.orders, clientOrderID)
	m.metrics.TrackedOrders.Set(float64(len(m.orders)))
}

func (m *OrderManager) emit(ctx context.Context, orders []types.Order) {
	for _, order := range orders {
		event := types.OrderEvent{
			ClientOrderID: order.ClientOrderID,
			State:         order.State,
			Order:         order,
		}

		if err := m.sink.Publish(ctx, event); err != nil {
			m.warnings.Record(SourceEvents, err)
		}
	}
}
