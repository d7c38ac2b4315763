package paging

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"osbridge/internal/apperr"
	"osbridge/pkg/cache"
)

// fakeListing simulates a cursor-only backend listing over total items.
// Cursors are stringified positions, which is all the cache may assume:
// they are treated as opaque.
type fakeListing struct {
	total int64
	calls int
}

func (f *fakeListing) list(ctx context.Context, cursor string, maxItems int64) (string, bool, int64, error) {
	f.calls++
	var pos int64
	if cursor != "" {
		fmt.Sscanf(cursor, "c%d", &pos)
	}
	remaining := f.total - pos
	if remaining <= 0 {
		return cursor, false, 0, nil
	}
	n := maxItems
	if remaining < n {
		n = remaining
	}
	next := pos + n
	return fmt.Sprintf("c%d", next), next < f.total, n, nil
}

func newCache() *CursorCache {
	return NewCursorCache(cache.NewMemory(), zap.NewNop().Sugar())
}

func TestOffsetZeroNeedsNoCursor(t *testing.T) {
	f := &fakeListing{total: 100}
	cur, err := newCache().Resolve(context.Background(), "accounts", "", 0, 10, f.list)
	require.NoError(t, err)
	assert.Empty(t, cur)
	assert.Zero(t, f.calls)
}

func TestColdResolveIssuesOffsetOverPageSizeCalls(t *testing.T) {
	ctx := context.Background()
	f := &fakeListing{total: 5000}
	c := newCache()

	cur, err := c.Resolve(ctx, "accounts", "", 2000, 1000, f.list)
	require.NoError(t, err)
	assert.Equal(t, "c2000", cur)
	assert.Equal(t, 2, f.calls)

	// Exact repeat is served entirely from checkpoints.
	f.calls = 0
	cur, err = c.Resolve(ctx, "accounts", "", 2000, 1000, f.list)
	require.NoError(t, err)
	assert.Equal(t, "c2000", cur)
	assert.Zero(t, f.calls)
}

func TestResolveResumesFromNearestCheckpoint(t *testing.T) {
	ctx := context.Background()
	f := &fakeListing{total: 10000}
	c := newCache()

	_, err := c.Resolve(ctx, "accounts", "", 3000, 1000, f.list)
	require.NoError(t, err)
	require.Equal(t, 3, f.calls)

	// 5000 resumes from the checkpoint at 3000: two more calls, not five.
	f.calls = 0
	cur, err := c.Resolve(ctx, "accounts", "", 5000, 1000, f.list)
	require.NoError(t, err)
	assert.Equal(t, "c5000", cur)
	assert.Equal(t, 2, f.calls)
}

func TestResolvePartialStride(t *testing.T) {
	ctx := context.Background()
	f := &fakeListing{total: 5000}
	cur, err := newCache().Resolve(ctx, "accounts", "", 2500, 1000, f.list)
	require.NoError(t, err)
	assert.Equal(t, "c2500", cur)
	assert.Equal(t, 3, f.calls) // 1000 + 1000 + 500
}

func TestResolveBeyondEndIsOutOfRange(t *testing.T) {
	f := &fakeListing{total: 1500}
	_, err := newCache().Resolve(context.Background(), "accounts", "", 3000, 1000, f.list)
	require.Error(t, err)
	assert.True(t, apperr.IsOutOfRange(err))
}

func TestFilteredNamespaceDoesNotCollide(t *testing.T) {
	ctx := context.Background()
	c := newCache()

	unfiltered := &fakeListing{total: 5000}
	_, err := c.Resolve(ctx, "accounts", "", 2000, 1000, unfiltered.list)
	require.NoError(t, err)

	// The filtered corpus is smaller; a shared namespace would reuse the
	// unfiltered checkpoint and skip the walk.
	filtered := &fakeListing{total: 3000}
	cur, err := c.Resolve(ctx, "accounts", "ext-", 2000, 1000, filtered.list)
	require.NoError(t, err)
	assert.Equal(t, "c2000", cur)
	assert.Equal(t, 2, filtered.calls)
}

func TestScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	c := newCache()

	accounts := &fakeListing{total: 5000}
	_, err := c.Resolve(ctx, "accounts", "", 1000, 1000, accounts.list)
	require.NoError(t, err)

	users := &fakeListing{total: 5000}
	_, err = c.Resolve(ctx, "users:T1", "", 1000, 1000, users.list)
	require.NoError(t, err)
	assert.Equal(t, 1, users.calls)
}

func TestSaveSeedsLaterResolves(t *testing.T) {
	ctx := context.Background()
	c := newCache()
	f := &fakeListing{total: 5000}

	// A listing response at offset 1000 hands us the cursor for 2000.
	c.Save(ctx, "accounts", "", 2000, "c2000")

	cur, err := c.Resolve(ctx, "accounts", "", 2000, 1000, f.list)
	require.NoError(t, err)
	assert.Equal(t, "c2000", cur)
	assert.Zero(t, f.calls)
}

func TestInvalidArguments(t *testing.T) {
	f := &fakeListing{total: 10}
	_, err := newCache().Resolve(context.Background(), "accounts", "", -1, 10, f.list)
	assert.True(t, apperr.IsBadRequest(err))
	_, err = newCache().Resolve(context.Background(), "accounts", "", 10, 0, f.list)
	assert.True(t, apperr.IsBadRequest(err))
}
