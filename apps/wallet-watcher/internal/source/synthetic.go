package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// SyntheticMint is the mint every synthetic transaction moves.
const SyntheticMint = "SYNTH"

// Synthetic generates a fake transaction stream for demo/testing. No external RPC calls.
// Every listing without a before cursor appends one new transaction, so a poller
// sees the address trade once per cycle.
type Synthetic struct {
	mu       sync.Mutex
	address  string
	nextSlot uint64
	balance  float64
	txs      []syntheticTx // oldest first
	byID     map[string]int
}

type syntheticTx struct {
	ref       ledger.Reference
	pre, post float64
}

func NewSynthetic(address string) *Synthetic {
	return &Synthetic{address: address, nextSlot: 1, byID: make(map[string]int)}
}

// Mint appends one transaction and returns its reference.
func (s *Synthetic) Mint() ledger.Reference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mintLocked()
}

func (s *Synthetic) mintLocked() ledger.Reference {
	slot := s.nextSlot
	s.nextSlot++
	pre := s.balance
	// buys on odd slots, smaller sells on even ones
	if slot%2 == 1 {
		s.balance += 1.5
	} else {
		s.balance -= 0.5
	}
	ref := ledger.Reference{
		ID:        fmt.Sprintf("%s-%d", s.address, slot),
		Slot:      slot,
		BlockTime: blockTime(time.Now().Unix()),
	}
	s.byID[ref.ID] = len(s.txs)
	s.txs = append(s.txs, syntheticTx{ref: ref, pre: pre, post: s.balance})
	return ref
}

func (s *Synthetic) ValidateID(id string) error {
	i := strings.LastIndex(id, "-")
	if i < 0 || id[:i] != s.address {
		return fmt.Errorf("synthetic: id %q does not belong to %s", id, s.address)
	}
	if _, err := strconv.ParseUint(id[i+1:], 10, 64); err != nil {
		return fmt.Errorf("synthetic: id %q: bad slot: %w", id, err)
	}
	return nil
}

func (s *Synthetic) ListReferences(ctx context.Context, before, until string, limit int) ([]ledger.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.txs) - 1
	if before == "" {
		s.mintLocked()
		start = len(s.txs) - 1
	} else {
		idx, ok := s.byID[before]
		if !ok {
			return nil, fmt.Errorf("synthetic: unknown before cursor %q", before)
		}
		start = idx - 1
	}

	var refs []ledger.Reference
	for i := start; i >= 0 && len(refs) < limit; i-- {
		if s.txs[i].ref.ID == until {
			break
		}
		refs = append(refs, s.txs[i].ref)
	}
	return refs, nil
}

func (s *Synthetic) FetchRecord(ctx context.Context, ref ledger.Reference) (*ledger.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[ref.ID]
	if !ok {
		return nil, fmt.Errorf("synthetic: transaction %q not found", ref.ID)
	}
	tx := s.txs[idx]
	pre, post := tx.pre, tx.post
	return &ledger.Record{
		Signature: tx.ref.ID,
		Slot:      tx.ref.Slot,
		Pre:       []ledger.TokenBalance{{Owner: s.address, Mint: SyntheticMint, UIAmount: &pre}},
		Post:      []ledger.TokenBalance{{Owner: s.address, Mint: SyntheticMint, UIAmount: &post}},
	}, nil
}

func blockTime(unix int64) *time.Time {
	t := time.Unix(unix, 0).UTC()
	return &t
}
