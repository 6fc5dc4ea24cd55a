package sink

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// Console prints one line per event.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Emit(ctx context.Context, ev ledger.TradeEvent) error {
	line := fmt.Sprintf("Trade detected: %s %s %s (sig: %s, slot: %d)\n",
		ev.Side, formatAmount(ev.Amount), ev.Mint, ev.Signature, ev.Slot)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, line)
	return err
}

// formatAmount renders without exponent notation and without float noise past 12 places.
func formatAmount(f float64) string {
	return decimal.NewFromFloat(f).Round(12).String()
}
