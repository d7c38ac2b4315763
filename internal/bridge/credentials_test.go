package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osbridge/internal/apperr"
	"osbridge/internal/backend"
	"osbridge/internal/backend/backendtest"
	"osbridge/pkg/cache"
)

func TestCreateCredentialReturnsVaultedSecret(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	seedTenant(fake)
	svc := newTestService(t, fake)

	_, err := svc.CreateUser(ctx, User{TenantID: "T1", UserID: "u1", Username: "bob"})
	require.NoError(t, err)

	c, err := svc.CreateCredential(ctx, "T1", "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, c.AccessKey)
	assert.NotEqual(t, SecretNotAvailable, c.SecretKey)
	assert.True(t, c.Active)

	// The secret survives into later reads.
	got, err := svc.GetCredential(ctx, c.AccessKey)
	require.NoError(t, err)
	assert.Equal(t, c.SecretKey, got.SecretKey)
}

func TestListCredentialsMintsWhenNoSecretRecoverable(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	seedTenant(fake)

	// First service issues a key and vaults the secret in its own store.
	first := newTestService(t, fake)
	_, err := first.CreateUser(ctx, User{TenantID: "T1", UserID: "u1", Username: "bob"})
	require.NoError(t, err)

	// A service with a fresh store cannot recover that secret, so listing
	// mints a usable replacement alongside the opaque original.
	second := newTestServiceWithStore(t, fake, cache.NewMemory())
	page := second.ListCredentials(ctx, "T1", "u1", 0, 10)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Page.Total, "materialized listing reports the real count")

	secrets := map[string]bool{}
	for _, c := range page.Items {
		secrets[c.SecretKey] = true
	}
	assert.True(t, secrets[SecretNotAvailable], "original key's secret is gone")
	assert.Len(t, secrets, 2, "a fresh key with a real secret was minted")
}

func TestListCredentialsDoesNotMintWhileOneIsRecoverable(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	seedTenant(fake)
	svc := newTestService(t, fake)

	_, err := svc.CreateUser(ctx, User{TenantID: "T1", UserID: "u1", Username: "bob"})
	require.NoError(t, err)

	before := fake.Calls("CreateAccessKey")
	page := svc.ListCredentials(ctx, "T1", "u1", 0, 10)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Page.Total)
	assert.Equal(t, before, fake.Calls("CreateAccessKey"))
}

func TestGetCredentialUnknownKeyIsNotFound(t *testing.T) {
	svc := newTestService(t, backendtest.New())
	_, err := svc.GetCredential(context.Background(), "AKIANOPE")
	assert.True(t, apperr.IsNotFound(err))
}

func TestUpdateCredentialStatus(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	seedTenant(fake)
	svc := newTestService(t, fake)

	_, err := svc.CreateUser(ctx, User{TenantID: "T1", UserID: "u1", Username: "bob"})
	require.NoError(t, err)
	c, err := svc.CreateCredential(ctx, "T1", "u1")
	require.NoError(t, err)

	got, err := svc.UpdateCredentialStatus(ctx, "T1", "u1", c.AccessKey, false)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, c.AccessKey, got.AccessKey)
}

func TestDeleteCredentialAbsentKeyIsSuccess(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	seedTenant(fake)
	svc := newTestService(t, fake)

	_, err := svc.CreateUser(ctx, User{TenantID: "T1", UserID: "u1", Username: "bob"})
	require.NoError(t, err)

	assert.NoError(t, svc.DeleteCredential(ctx, "T1", "u1", "AKIANOPE"))
}

func TestDeleteCredentialRemovesKeyAndEnvelope(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	seedTenant(fake)
	svc := newTestService(t, fake)

	_, err := svc.CreateUser(ctx, User{TenantID: "T1", UserID: "u1", Username: "bob"})
	require.NoError(t, err)
	c, err := svc.CreateCredential(ctx, "T1", "u1")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCredential(ctx, "T1", "u1", c.AccessKey))
	_, err = svc.GetCredential(ctx, c.AccessKey)
	assert.True(t, apperr.IsNotFound(err))
}

func TestQueryCredentialsRequiresBothFilterKeys(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	seedTenant(fake)
	svc := newTestService(t, fake)

	_, err := svc.CreateUser(ctx, User{TenantID: "T1", UserID: "u1", Username: "bob"})
	require.NoError(t, err)

	page := svc.QueryCredentials(ctx, "cd_tenant_id=="+extTenantID+";cd_user_id==u1", 0, 10)
	assert.Len(t, page.Items, 1)

	assert.Empty(t, svc.QueryCredentials(ctx, "cd_tenant_id=="+extTenantID, 0, 10).Items)
	assert.Empty(t, svc.QueryCredentials(ctx, "cd_user_id==u1", 0, 10).Items)
}

func TestListBuckets(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	seedTenant(fake)
	fake.AddBucket("T1", backend.Bucket{Name: "logs"})
	fake.AddBucket("T1", backend.Bucket{Name: "media"})
	svc := newTestService(t, fake)

	buckets, err := svc.ListBuckets(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "logs", buckets[0].Name)
}
