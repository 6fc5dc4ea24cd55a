// Package sink delivers trade events to their consumer.
package sink

import (
	"context"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// Sink receives trade events. Implementations must be safe for concurrent use;
// the poller emits from several fetch workers at once and in completion order.
// Delivery is at-least-once, so the signature doubles as an idempotency key.
type Sink interface {
	Emit(ctx context.Context, ev ledger.TradeEvent) error
}

// Func adapts a function to Sink.
type Func func(ctx context.Context, ev ledger.TradeEvent) error

func (f Func) Emit(ctx context.Context, ev ledger.TradeEvent) error {
	return f(ctx, ev)
}
