package delegation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"osbridge/internal/backend"
	"osbridge/internal/backend/backendtest"
	"osbridge/pkg/cache"
)

func testConfig() Config {
	return Config{
		RoleName:   "osbridge-admin",
		PolicyName: "osbridge-admin-policy",
		BridgeARN:  "arn:aws:iam::000000000000:user/osbridge",
	}
}

func newBroker(fake *backendtest.Fake) *Broker {
	return NewBroker(fake, cache.NewMemory(), testConfig(), zap.NewNop().Sugar())
}

func TestCredentialsCachedAfterFirstAssume(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.AddAccount(backend.Account{ID: "T1", Name: "acme"})
	fake.ProvisionRole("T1", "osbridge-admin")
	b := newBroker(fake)

	dc, err := b.Credentials(ctx, "T1")
	require.NoError(t, err)
	assert.NotEmpty(t, dc.AccessKey)
	assert.Equal(t, 1, fake.Calls("AssumeDelegatedRole"))

	again, err := b.Credentials(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, dc.AccessKey, again.AccessKey)
	assert.Equal(t, 1, fake.Calls("AssumeDelegatedRole"), "cache hit must not call the backend")
}

func TestMissingRoleTriggersBootstrap(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.AddAccount(backend.Account{ID: "T1", Name: "acme"})
	b := newBroker(fake)

	dc, err := b.Credentials(ctx, "T1")
	require.NoError(t, err)
	assert.NotEmpty(t, dc.SessionToken)

	assert.True(t, fake.RoleExists("T1", "osbridge-admin"))
	doc, ok := fake.PolicyDocument("T1", "osbridge-admin-policy")
	require.True(t, ok)
	assert.Equal(t, DefaultPolicyDocument, doc)
	// Assume is retried exactly once after bootstrap.
	assert.Equal(t, 2, fake.Calls("AssumeDelegatedRole"))
	// The one-time bootstrap key is revoked.
	assert.Zero(t, fake.RootKeyCount("T1"))
}

func TestBootstrapFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.AddAccount(backend.Account{ID: "T1", Name: "acme"})
	fake.FailNext("CreateAccountAccessKey", errors.New("backend down"))
	b := newBroker(fake)

	_, err := b.Credentials(ctx, "T1")
	require.Error(t, err)
	// No second assume attempt without a successful bootstrap.
	assert.Equal(t, 1, fake.Calls("AssumeDelegatedRole"))
}

func TestEnsurePolicyReconcilesDriftedDocument(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.AddAccount(backend.Account{ID: "T1", Name: "acme"})

	// Bootstrap once with a stale document.
	stale := NewBroker(fake, cache.NewMemory(), Config{
		RoleName:       "osbridge-admin",
		PolicyName:     "osbridge-admin-policy",
		PolicyDocument: `{"Version":"2012-10-17","Statement":[]}`,
		BridgeARN:      "arn:aws:iam::000000000000:user/osbridge",
	}, zap.NewNop().Sugar())
	require.NoError(t, stale.Bootstrap(ctx, "T1"))

	// Repair under the expected document publishes a new default version
	// instead of failing on the existing policy.
	b := newBroker(fake)
	require.NoError(t, b.Repair(ctx, "T1"))

	doc, ok := fake.PolicyDocument("T1", "osbridge-admin-policy")
	require.True(t, ok)
	assert.Equal(t, DefaultPolicyDocument, doc)
	assert.Equal(t, 1, fake.Calls("CreatePolicyVersion"))
	assert.Zero(t, fake.RootKeyCount("T1"))
}

func TestRepairMatchingPolicyPublishesNothing(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.AddAccount(backend.Account{ID: "T1", Name: "acme"})
	b := newBroker(fake)
	require.NoError(t, b.Bootstrap(ctx, "T1"))

	require.NoError(t, b.Repair(ctx, "T1"))
	assert.Zero(t, fake.Calls("CreatePolicyVersion"))
}
