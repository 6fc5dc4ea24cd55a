// Package ledger holds the data the watcher moves between the source, the extractor and the sinks.
package ledger

import "time"

// Reference points at one transaction for the tracked address: its signature and slot.
// Produced by a source listing; the full record is fetched separately.
type Reference struct {
	ID        string
	Slot      uint64
	BlockTime *time.Time
	Failed    bool
}

// TokenBalance is one (owner, mint, amount) entry of a balance snapshot.
// Owner is empty when the ledger could not resolve it; a nil UIAmount reads as zero.
type TokenBalance struct {
	Owner    string
	Mint     string
	UIAmount *float64
}

// Amount returns the UI amount, or 0 when unknown.
func (b TokenBalance) Amount() float64 {
	if b.UIAmount == nil {
		return 0
	}
	return *b.UIAmount
}

// Record is a fetched transaction reduced to its pre/post token balance snapshots.
// A nil Pre or Post means the snapshot is missing, which is not the same as an empty one.
type Record struct {
	Signature string
	Slot      uint64
	Pre       []TokenBalance
	Post      []TokenBalance
}

// Side classifies the direction of a balance change.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeEvent is the event derived from one record.
type TradeEvent struct {
	Signature string  `json:"signature"`
	Mint      string  `json:"mint"`
	Owner     string  `json:"owner"`
	Side      Side    `json:"side"`
	Amount    float64 `json:"amount"`
	Slot      uint64  `json:"slot"`
}

// Checkpoint marks the newest listed reference. The zero value means no checkpoint.
type Checkpoint struct {
	Signature string
	Slot      uint64
}

// IsZero reports whether no checkpoint is set.
func (c Checkpoint) IsZero() bool {
	return c.Signature == ""
}
