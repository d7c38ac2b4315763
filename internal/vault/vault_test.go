package vault

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"osbridge/pkg/cache"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	c, err := NewAESGCM("1", testKey(t))
	require.NoError(t, err)
	return New(cache.NewMemory(), NewRegistry(c), zap.NewNop().Sugar())
}

func TestStoreRetrieveDelete(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	owner := OwnerKey("u-1", "AKIAEXAMPLE")

	require.NoError(t, v.Store(ctx, owner, "topsecret"))

	got, ok, err := v.Retrieve(ctx, owner)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "topsecret", got)

	require.NoError(t, v.Delete(ctx, owner))
	_, ok, err = v.Retrieve(ctx, owner)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRetrieveAbsent(t *testing.T) {
	v := newTestVault(t)
	_, ok, err := v.Retrieve(context.Background(), OwnerKey("u-1", "nope"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWrongOwnerKeyFailsDecryption(t *testing.T) {
	ctx := context.Background()
	key := testKey(t)
	c, err := NewAESGCM("1", key)
	require.NoError(t, err)
	store := cache.NewMemory()
	v := New(store, NewRegistry(c), zap.NewNop().Sugar())

	owner := OwnerKey("u-1", "AKIA1")
	require.NoError(t, v.Store(ctx, owner, "s3cr3t"))

	// Replay the envelope under another owner's key.
	raw, ok, err := store.Get(ctx, "secret:"+owner)
	require.NoError(t, err)
	require.True(t, ok)
	other := OwnerKey("u-2", "AKIA1")
	require.NoError(t, store.Set(ctx, "secret:"+other, raw))

	_, _, err = v.Retrieve(ctx, other)
	assert.Error(t, err, "decryption with a different owner key must fail, not return plaintext")
}

func TestRotationKeepsOldEnvelopesReadable(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	old, err := NewAESGCM("1", testKey(t))
	require.NoError(t, err)

	v1 := New(store, NewRegistry(old), zap.NewNop().Sugar())
	owner := OwnerKey("u-1", "AKIA1")
	require.NoError(t, v1.Store(ctx, owner, "legacy"))

	// Rotate: new current cipher, old version still registered.
	cur, err := NewAESGCM("2", testKey(t))
	require.NoError(t, err)
	v2 := New(store, NewRegistry(cur, old), zap.NewNop().Sugar())

	got, ok, err := v2.Retrieve(ctx, owner)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "legacy", got)

	// New writes use the current version.
	owner2 := OwnerKey("u-1", "AKIA2")
	require.NoError(t, v2.Store(ctx, owner2, "fresh"))
	got, ok, err = v2.Retrieve(ctx, owner2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fresh", got)
}

func TestUnknownCipherVersionIsHardError(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	old, err := NewAESGCM("1", testKey(t))
	require.NoError(t, err)
	v1 := New(store, NewRegistry(old), zap.NewNop().Sugar())
	owner := OwnerKey("u-1", "AKIA1")
	require.NoError(t, v1.Store(ctx, owner, "legacy"))

	// Registry without version "1".
	cur, err := NewAESGCM("2", testKey(t))
	require.NoError(t, err)
	v2 := New(store, NewRegistry(cur), zap.NewNop().Sugar())
	_, _, err = v2.Retrieve(ctx, owner)
	assert.Error(t, err)
}

func TestLoadKeyFile(t *testing.T) {
	k1 := base64.StdEncoding.EncodeToString(testKey(t))
	k2 := base64.StdEncoding.EncodeToString(testKey(t))
	path := filepath.Join(t.TempDir(), "keys.yaml")
	content := "current: \"2\"\nkeys:\n  - id: \"1\"\n    key: " + k1 + "\n  - id: \"2\"\n    key: " + k2 + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	reg, err := LoadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2", reg.Current().ID())
	_, ok := reg.ByID("1")
	assert.True(t, ok)
}

func TestLoadKeyFileMissingCurrent(t *testing.T) {
	k1 := base64.StdEncoding.EncodeToString(testKey(t))
	path := filepath.Join(t.TempDir(), "keys.yaml")
	content := "current: \"9\"\nkeys:\n  - id: \"1\"\n    key: " + k1 + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	_, err := LoadKeyFile(path)
	assert.Error(t, err)
}
