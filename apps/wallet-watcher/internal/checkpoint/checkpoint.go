// Package checkpoint persists the newest listed signature for a tracked address so a
// restarted watcher resumes where it stopped.
package checkpoint

import (
	"context"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// Store holds the checkpoint of one tracked address.
type Store interface {
	// Load returns the stored checkpoint, or the zero value when none exists.
	Load(ctx context.Context) (ledger.Checkpoint, error)
	// Save replaces the stored checkpoint.
	Save(ctx context.Context, cp ledger.Checkpoint) error
	// Reset removes the stored checkpoint.
	Reset(ctx context.Context) error
	Close() error
}

// Nop keeps nothing. Used when no state path is configured.
type Nop struct{}

func (Nop) Load(context.Context) (ledger.Checkpoint, error) { return ledger.Checkpoint{}, nil }
func (Nop) Save(context.Context, ledger.Checkpoint) error   { return nil }
func (Nop) Reset(context.Context) error                     { return nil }
func (Nop) Close() error                                    { return nil }
