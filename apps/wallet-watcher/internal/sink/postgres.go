package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// Postgres writes to trade_events.
// Uses ON CONFLICT (signature) DO NOTHING so re-delivered events are absorbed.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, connStr string) (*Postgres, error) {
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
		CREATE TABLE IF NOT EXISTS trade_events (
			signature TEXT PRIMARY KEY,
			mint TEXT NOT NULL,
			owner TEXT NOT NULL,
			side TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			slot BIGINT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Emit(ctx context.Context, ev ledger.TradeEvent) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO trade_events (signature, mint, owner, side, amount, slot)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (signature) DO NOTHING`,
		ev.Signature, ev.Mint, ev.Owner, string(ev.Side),
		decimal.NewFromFloat(ev.Amount).String(), int64(ev.Slot),
	)
	return err
}

func (p *Postgres) Close() {
	p.pool.Close()
}
