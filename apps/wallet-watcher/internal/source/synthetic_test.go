package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

func ids(refs []ledger.Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.ID
	}
	return out
}

func TestSynthetic_ListMintsNewestFirst(t *testing.T) {
	s := NewSynthetic("addr")
	ctx := context.Background()

	refs, err := s.ListReferences(ctx, "", "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"addr-1"}, ids(refs))

	refs, err = s.ListReferences(ctx, "", "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"addr-2", "addr-1"}, ids(refs))
	assert.Equal(t, uint64(2), refs[0].Slot)
	assert.NotNil(t, refs[0].BlockTime)
}

func TestSynthetic_Pagination(t *testing.T) {
	s := NewSynthetic("addr")
	for i := 0; i < 5; i++ {
		s.Mint()
	}
	ctx := context.Background()

	// listing without before mints addr-6
	page, err := s.ListReferences(ctx, "", "addr-2", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"addr-6", "addr-5"}, ids(page))

	page, err = s.ListReferences(ctx, "addr-5", "addr-2", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"addr-4", "addr-3"}, ids(page))

	page, err = s.ListReferences(ctx, "addr-3", "addr-2", 2)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, err = s.ListReferences(ctx, "addr-99", "", 2)
	assert.Error(t, err)
}

func TestSynthetic_FetchRecordAlternatesSides(t *testing.T) {
	s := NewSynthetic("addr")
	first := s.Mint()
	second := s.Mint()
	ctx := context.Background()

	rec, err := s.FetchRecord(ctx, first)
	require.NoError(t, err)
	require.Len(t, rec.Pre, 1)
	require.Len(t, rec.Post, 1)
	assert.Equal(t, 0.0, rec.Pre[0].Amount())
	assert.Equal(t, 1.5, rec.Post[0].Amount())

	rec, err = s.FetchRecord(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 1.5, rec.Pre[0].Amount())
	assert.Equal(t, 1.0, rec.Post[0].Amount())

	_, err = s.FetchRecord(ctx, ledger.Reference{ID: "addr-42"})
	assert.Error(t, err)
}

func TestSynthetic_ValidateID(t *testing.T) {
	s := NewSynthetic("addr")
	assert.NoError(t, s.ValidateID("addr-7"))
	assert.Error(t, s.ValidateID("other-7"))
	assert.Error(t, s.ValidateID("addr-x"))
	assert.Error(t, s.ValidateID("garbage"))
}

func TestSolana_RejectsBadAddress(t *testing.T) {
	_, err := NewSolana("http://127.0.0.1:0", "not-a-key", 0)
	assert.Error(t, err)
}

func TestSolana_ValidateID(t *testing.T) {
	s, err := NewSolana("http://127.0.0.1:0", "11111111111111111111111111111111", 5)
	require.NoError(t, err)
	assert.Error(t, s.ValidateID("not a signature"))
	assert.NoError(t, s.ValidateID("1111111111111111111111111111111111111111111111111111111111111111"))
}
