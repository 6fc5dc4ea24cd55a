package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// Postgres stores checkpoints in watcher_checkpoints, one row per address.
// A save never moves the stored slot backwards.
type Postgres struct {
	pool    *pgxpool.Pool
	address string
}

func NewPostgres(ctx context.Context, connStr, address string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS watcher_checkpoints (
			address TEXT PRIMARY KEY,
			signature TEXT NOT NULL,
			slot BIGINT NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &Postgres{pool: pool, address: address}, nil
}

func (p *Postgres) Load(ctx context.Context) (ledger.Checkpoint, error) {
	var (
		cp   ledger.Checkpoint
		slot int64
	)
	err := p.pool.QueryRow(ctx,
		`SELECT signature, slot FROM watcher_checkpoints WHERE address = $1`,
		p.address,
	).Scan(&cp.Signature, &slot)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Checkpoint{}, nil
	}
	if err != nil {
		return ledger.Checkpoint{}, fmt.Errorf("load checkpoint: %w", err)
	}
	cp.Slot = uint64(slot)
	return cp, nil
}

func (p *Postgres) Save(ctx context.Context, cp ledger.Checkpoint) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO watcher_checkpoints (address, signature, slot)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (address) DO UPDATE
		 SET signature = EXCLUDED.signature, slot = EXCLUDED.slot, updated_at = NOW()
		 WHERE watcher_checkpoints.slot <= EXCLUDED.slot`,
		p.address, cp.Signature, int64(cp.Slot),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (p *Postgres) Reset(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM watcher_checkpoints WHERE address = $1`, p.address)
	if err != nil {
		return fmt.Errorf("reset checkpoint: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
