package source

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// Solana reads signatures and transactions for one address over JSON-RPC.
type Solana struct {
	client  *rpc.Client
	address solana.PublicKey
	limiter *rate.Limiter
}

// NewSolana parses address and builds a client for endpoint.
// rps <= 0 disables request rate limiting.
func NewSolana(endpoint, address string, rps float64) (*Solana, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, errors.Wrapf(err, "solana: invalid address %q", address)
	}
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &Solana{
		client:  rpc.New(endpoint),
		address: pk,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// ValidateID checks that id is a base58 transaction signature.
func (s *Solana) ValidateID(id string) error {
	_, err := solana.SignatureFromBase58(id)
	return err
}

func (s *Solana) ListReferences(ctx context.Context, before, until string, limit int) ([]ledger.Reference, error) {
	opts := &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	}
	if before != "" {
		sig, err := solana.SignatureFromBase58(before)
		if err != nil {
			return nil, errors.Wrapf(err, "solana: invalid before cursor %q", before)
		}
		opts.Before = sig
	}
	if until != "" {
		sig, err := solana.SignatureFromBase58(until)
		if err != nil {
			return nil, errors.Wrapf(err, "solana: invalid until cursor %q", until)
		}
		opts.Until = sig
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := s.client.GetSignaturesForAddressWithOpts(ctx, s.address, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "solana: getSignaturesForAddress %s", s.address)
	}

	refs := make([]ledger.Reference, 0, len(out))
	for _, sig := range out {
		if sig == nil {
			continue
		}
		ref := ledger.Reference{
			ID:     sig.Signature.String(),
			Slot:   sig.Slot,
			Failed: sig.Err != nil,
		}
		if sig.BlockTime != nil {
			bt := sig.BlockTime.Time()
			ref.BlockTime = &bt
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *Solana) FetchRecord(ctx context.Context, ref ledger.Reference) (*ledger.Record, error) {
	sig, err := solana.SignatureFromBase58(ref.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "solana: invalid signature %q", ref.ID)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	maxVersion := uint64(0)
	tx, err := s.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "solana: getTransaction %s", ref.ID)
	}
	if tx == nil {
		return nil, errors.Errorf("solana: transaction %s not found", ref.ID)
	}

	rec := &ledger.Record{Signature: ref.ID, Slot: tx.Slot}
	if tx.Meta == nil {
		return rec, nil
	}
	if tx.Meta.PreTokenBalances != nil {
		rec.Pre = convertBalances(tx.Meta.PreTokenBalances)
	}
	if tx.Meta.PostTokenBalances != nil {
		rec.Post = convertBalances(tx.Meta.PostTokenBalances)
	}
	return rec, nil
}

func convertBalances(in []rpc.TokenBalance) []ledger.TokenBalance {
	out := make([]ledger.TokenBalance, 0, len(in))
	for _, b := range in {
		tb := ledger.TokenBalance{Mint: b.Mint.String()}
		if b.Owner != nil {
			tb.Owner = b.Owner.String()
		}
		if b.UiTokenAmount != nil && b.UiTokenAmount.UiAmount != nil {
			v := *b.UiTokenAmount.UiAmount
			tb.UIAmount = &v
		}
		out = append(out, tb)
	}
	return out
}
