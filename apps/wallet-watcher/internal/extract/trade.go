// Package extract turns a fetched transaction into at most one trade event.
package extract

import (
	"math"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// epsilon is float64 machine epsilon. Changes at or below it are treated as no change.
const epsilon = 0x1p-52

// Trade diffs the post snapshot of rec against its pre snapshot and returns the first
// (owner, mint) entry whose amount moved. Entries after the first match are not inspected,
// so a record that moves several balances yields a single event.
//
// ok is false when either snapshot is missing or no entry changed.
func Trade(ref ledger.Reference, rec *ledger.Record) (ev ledger.TradeEvent, ok bool) {
	if rec == nil || rec.Pre == nil || rec.Post == nil {
		return ledger.TradeEvent{}, false
	}

	for _, post := range rec.Post {
		if post.Owner == "" {
			continue
		}
		pre := 0.0
		if b, found := findBalance(rec.Pre, post.Owner, post.Mint); found {
			pre = b.Amount()
		}

		delta := post.Amount() - pre
		if math.Abs(delta) <= epsilon {
			continue
		}
		side := ledger.SideSell
		if delta > 0 {
			side = ledger.SideBuy
		}
		return ledger.TradeEvent{
			Signature: ref.ID,
			Mint:      post.Mint,
			Owner:     post.Owner,
			Side:      side,
			Amount:    math.Abs(delta),
			Slot:      ref.Slot,
		}, true
	}
	return ledger.TradeEvent{}, false
}

func findBalance(balances []ledger.TokenBalance, owner, mint string) (ledger.TokenBalance, bool) {
	for _, b := range balances {
		if b.Owner == owner && b.Mint == mint {
			return b, true
		}
	}
	return ledger.TokenBalance{}, false
}
