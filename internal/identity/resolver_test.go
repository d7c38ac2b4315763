package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"osbridge/internal/apperr"
	"osbridge/internal/backend"
	"osbridge/internal/backend/backendtest"
	"osbridge/pkg/cache"
)

func TestResolveCachesAfterOneListing(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.AddAccount(backend.Account{ID: "T1", Name: "acme", ExternalIDs: []string{"ext-1"}})
	r := NewResolver(cache.NewMemory(), fake, zap.NewNop().Sugar())

	id, err := r.Resolve(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "T1", id)
	assert.Equal(t, 1, fake.Calls("ListAccounts"))

	id, err = r.Resolve(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "T1", id)
	assert.Equal(t, 1, fake.Calls("ListAccounts"), "second resolve must be a cache hit")
}

func TestResolveUnknownExternalID(t *testing.T) {
	fake := backendtest.New()
	r := NewResolver(cache.NewMemory(), fake, zap.NewNop().Sugar())

	_, err := r.Resolve(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperr.IsBadRequest(err))
	// Misses are not cached as negatives.
	_, err = r.Resolve(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, 2, fake.Calls("ListAccounts"))
}

func TestResolveEmpty(t *testing.T) {
	r := NewResolver(cache.NewMemory(), backendtest.New(), zap.NewNop().Sugar())
	_, err := r.Resolve(context.Background(), "")
	assert.True(t, apperr.IsBadRequest(err))
}
