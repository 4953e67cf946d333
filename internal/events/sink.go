// Package events delivers order state transitions to subscribers.
package events

import (
	"context"

	"github.com/rxtech-lab/harbor-dex-proxy/internal/types"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
)

// Sink receives one event per order state transition.
// Publish is never called while an order lock is held.
type Sink interface {
	Publish(ctx context.Context, event types.OrderEvent) error
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(context.Context, types.OrderEvent) error { return nil }

// Fanout publishes every event to each sink in order.
type Fanout []Sink

// Publish delivers to all sinks even when some fail and reports the first failure.
func (f Fanout) Publish(ctx context.Context, event types.OrderEvent) error {
	var firstErr error

	failed := 0

	for _, sink := range f {
		if sink == nil {
			continue
		}

		if err := sink.Publish(ctx, event); err != nil {
			failed++

			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return errors.Wrapf(errors.ErrCodePublishFailed, firstErr, "%d of %d event sinks failed", failed, len(f))
	}

	return nil
}
