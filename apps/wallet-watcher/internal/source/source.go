// Package source lists and fetches transactions for a tracked address.
package source

import (
	"context"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// Source is the ledger surface the poller needs.
type Source interface {
	// ListReferences returns up to limit references newest first, strictly older than before
	// and strictly newer than until. Empty cursors are unbounded.
	ListReferences(ctx context.Context, before, until string, limit int) ([]ledger.Reference, error)
	// FetchRecord loads the full transaction behind ref.
	FetchRecord(ctx context.Context, ref ledger.Reference) (*ledger.Record, error)
}

// Validator is implemented by sources that can reject malformed reference IDs before fetching.
type Validator interface {
	ValidateID(id string) error
}
