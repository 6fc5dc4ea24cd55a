// Package poller follows one address on the ledger: it lists signatures newer than the
// checkpoint, persists the new checkpoint, drops signatures it has already seen and
// fetches the rest with bounded concurrency, emitting at most one trade event per
// transaction.
//
// Delivery is at-least-once. The checkpoint is written before the fetch fan-out, so a
// crash mid-batch can lose the unfinished part of that batch but never re-lists it.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/checkpoint"
	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/dedup"
	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/extract"
	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/sink"
	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/source"
)

const (
	DefaultPollInterval  = 2 * time.Second
	DefaultPageLimit     = 100
	DefaultMaxConcurrent = 8
	DefaultFetchTimeout  = 15 * time.Second
)

// Config tunes one poller.
type Config struct {
	Address       string
	PollInterval  time.Duration
	PageLimit     int
	CacheSize     int
	MaxConcurrent int
	FetchTimeout  time.Duration
}

// Outcome is what happened to one reference in a cycle.
type Outcome string

const (
	OutcomeProcessed   Outcome = "processed"
	OutcomeNoEvent     Outcome = "no_event"
	OutcomeInvalidID   Outcome = "invalid_id"
	OutcomeFetchFailed Outcome = "fetch_failed"
	OutcomeSinkFailed  Outcome = "sink_failed"
)

// CycleStats summarizes one cycle.
type CycleStats struct {
	ID         string
	Listed     int
	Fresh      int
	Outcomes   map[Outcome]int
	Checkpoint ledger.Checkpoint
}

// Poller owns the checkpoint and dedup cache of one address. Cycle and Run must not be
// called concurrently; the fetch fan-out inside a cycle never touches either.
type Poller struct {
	cfg      Config
	src      source.Source
	validate func(string) error
	store    checkpoint.Store
	sink     sink.Sink
	cache    *dedup.Cache
	logger   *slog.Logger

	checkpoint ledger.Checkpoint
	started    time.Time
	lastOK     atomic.Int64 // unix nanos of the last successful cycle
}

func New(cfg Config, src source.Source, store checkpoint.Store, snk sink.Sink, logger *slog.Logger) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if store == nil {
		store = checkpoint.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		cfg:     cfg,
		src:     src,
		store:   store,
		sink:    snk,
		cache:   dedup.New(cfg.CacheSize),
		logger:  logger.With("component", "poller", "address", cfg.Address),
		started: time.Now(),
	}
	if v, ok := src.(source.Validator); ok {
		p.validate = v.ValidateID
	}
	return p
}

// LoadCheckpoint reads the durable checkpoint. A read failure is logged and treated as no checkpoint.
func (p *Poller) LoadCheckpoint(ctx context.Context) ledger.Checkpoint {
	cp, err := p.store.Load(ctx)
	if err != nil {
		p.logger.Warn("load checkpoint failed, starting without one", "err", err)
		cp = ledger.Checkpoint{}
	}
	p.checkpoint = cp
	if cp.IsZero() {
		p.logger.Info("no checkpoint, starting from the most recent page")
	} else {
		p.logger.Info("resuming from checkpoint", "signature", cp.Signature, "slot", cp.Slot)
		checkpointSlot.WithLabelValues(p.cfg.Address).Set(float64(cp.Slot))
	}
	return cp
}

// Checkpoint returns the in-memory checkpoint.
func (p *Poller) Checkpoint() ledger.Checkpoint {
	return p.checkpoint
}

// Healthy reports whether a cycle succeeded within maxAge, counting from start-up
// until the first success.
func (p *Poller) Healthy(maxAge time.Duration) bool {
	last := p.started
	if ns := p.lastOK.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return time.Since(last) <= maxAge
}

// Run loads the checkpoint and polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.LoadCheckpoint(ctx)
	for {
		if _, err := p.Cycle(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("poll cycle failed", "err", err)
		}
		timer := time.NewTimer(p.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Cycle runs one catch-up, checkpoint, dedup and fetch pass. Only a listing error fails
// the cycle; per-reference failures are logged and counted.
func (p *Poller) Cycle(ctx context.Context) (CycleStats, error) {
	start := time.Now()
	stats := CycleStats{ID: uuid.NewString(), Outcomes: make(map[Outcome]int)}
	log := p.logger.With("cycle", stats.ID)

	refs, err := p.catchUp(ctx)
	if err != nil {
		cyclesTotal.WithLabelValues("error").Inc()
		return stats, fmt.Errorf("list references: %w", err)
	}
	slices.Reverse(refs)
	stats.Listed = len(refs)

	if len(refs) > 0 {
		p.advance(ctx, log, refs[len(refs)-1])
	}
	stats.Checkpoint = p.checkpoint

	fresh := make([]ledger.Reference, 0, len(refs))
	for _, ref := range refs {
		if p.cache.Contains(ref.ID) {
			continue
		}
		p.cache.MarkSeen(ref.ID)
		fresh = append(fresh, ref)
	}
	stats.Fresh = len(fresh)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(p.cfg.MaxConcurrent)
	for _, ref := range fresh {
		ref := ref
		g.Go(func() error {
			outcome := p.process(ctx, log, ref)
			referencesTotal.WithLabelValues(string(outcome)).Inc()
			mu.Lock()
			stats.Outcomes[outcome]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	p.lastOK.Store(time.Now().UnixNano())
	cyclesTotal.WithLabelValues("ok").Inc()
	cycleDuration.Observe(time.Since(start).Seconds())
	if stats.Listed > 0 {
		log.Info("poll cycle done", "listed", stats.Listed, "fresh", stats.Fresh,
			"processed", stats.Outcomes[OutcomeProcessed], "slot", p.checkpoint.Slot)
	}
	return stats, nil
}

// catchUp lists every reference newer than the checkpoint, newest first. Without a
// checkpoint there is no lower bound, so only the most recent page is taken.
func (p *Poller) catchUp(ctx context.Context) ([]ledger.Reference, error) {
	until := p.checkpoint.Signature
	var (
		before    string
		collected []ledger.Reference
	)
	for {
		page, err := p.src.ListReferences(ctx, before, until, p.cfg.PageLimit)
		if err != nil {
			return nil, err
		}
		collected = append(collected, page...)
		if until == "" || len(page) < p.cfg.PageLimit {
			return collected, nil
		}
		before = page[len(page)-1].ID
	}
}

// advance moves the checkpoint to newest and persists it. A failed write keeps the
// in-memory checkpoint moving; a restart then resumes from the last durable one.
func (p *Poller) advance(ctx context.Context, log *slog.Logger, newest ledger.Reference) {
	if newest.Slot < p.checkpoint.Slot {
		log.Warn("listing ended below checkpoint slot, keeping checkpoint",
			"signature", newest.ID, "slot", newest.Slot, "checkpoint_slot", p.checkpoint.Slot)
		return
	}
	p.checkpoint = ledger.Checkpoint{Signature: newest.ID, Slot: newest.Slot}
	checkpointSlot.WithLabelValues(p.cfg.Address).Set(float64(newest.Slot))
	if err := p.store.Save(ctx, p.checkpoint); err != nil {
		checkpointWriteErrors.Inc()
		log.Error("persist checkpoint failed", "signature", newest.ID, "err", err)
	}
}

func (p *Poller) process(ctx context.Context, log *slog.Logger, ref ledger.Reference) Outcome {
	if p.validate != nil {
		if err := p.validate(ref.ID); err != nil {
			log.Warn("skipping malformed signature", "signature", ref.ID, "err", err)
			return OutcomeInvalidID
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	rec, err := p.src.FetchRecord(fetchCtx, ref)
	cancel()
	if err != nil {
		log.Warn("fetch transaction failed", "signature", ref.ID, "slot", ref.Slot, "err", err)
		return OutcomeFetchFailed
	}

	ev, ok := extract.Trade(ref, rec)
	if !ok {
		log.Debug("no balance change", "signature", ref.ID, "slot", ref.Slot)
		return OutcomeNoEvent
	}
	if err := p.sink.Emit(ctx, ev); err != nil {
		log.Warn("emit trade event failed", "signature", ref.ID, "err", err)
		return OutcomeSinkFailed
	}
	eventsTotal.WithLabelValues(string(ev.Side)).Inc()
	return OutcomeProcessed
}
