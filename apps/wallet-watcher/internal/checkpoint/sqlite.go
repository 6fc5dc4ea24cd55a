package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// SQLite stores checkpoints in a local database file with the same layout and
// backwards-slot guard as Postgres.
type SQLite struct {
	db      *sql.DB
	address string
}

// OpenSQLite creates or opens the database at path. Safe to call repeatedly on the same file.
func OpenSQLite(path, address string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// one writer; avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS watcher_checkpoints (
			address TEXT PRIMARY KEY,
			signature TEXT NOT NULL,
			slot INTEGER NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &SQLite{db: db, address: address}, nil
}

func (s *SQLite) Load(ctx context.Context) (ledger.Checkpoint, error) {
	var (
		cp   ledger.Checkpoint
		slot int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT signature, slot FROM watcher_checkpoints WHERE address = ?`,
		s.address,
	).Scan(&cp.Signature, &slot)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Checkpoint{}, nil
	}
	if err != nil {
		return ledger.Checkpoint{}, fmt.Errorf("load checkpoint: %w", err)
	}
	cp.Slot = uint64(slot)
	return cp, nil
}

func (s *SQLite) Save(ctx context.Context, cp ledger.Checkpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watcher_checkpoints (address, signature, slot)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE
		SET signature = excluded.signature, slot = excluded.slot, updated_at = CURRENT_TIMESTAMP
		WHERE watcher_checkpoints.slot <= excluded.slot
	`, s.address, cp.Signature, int64(cp.Slot))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM watcher_checkpoints WHERE address = ?`, s.address); err != nil {
		return fmt.Errorf("reset checkpoint: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
