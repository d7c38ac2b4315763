package bridge

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"osbridge/internal/backend/backendtest"
	"osbridge/internal/delegation"
	"osbridge/internal/identity"
	"osbridge/internal/paging"
	"osbridge/internal/vault"
	"osbridge/pkg/cache"
)

const extTenantID = "5fe851c0-9d92-4b62-9e2e-0ab0ba5c1b1e"

func newTestService(t *testing.T, fake *backendtest.Fake) *Service {
	t.Helper()
	return newTestServiceWithStore(t, fake, cache.NewMemory())
}

func newTestServiceWithStore(t *testing.T, fake *backendtest.Fake, store cache.Cache) *Service {
	t.Helper()
	log := zap.NewNop().Sugar()
	cipher, err := vault.NewAESGCM("k1", bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	broker := delegation.NewBroker(fake, store, delegation.Config{
		RoleName:   "osbridge-admin",
		PolicyName: "osbridge-admin-policy",
		BridgeARN:  "arn:aws:iam::000000000000:user/osbridge",
	}, log)
	return New(Deps{
		Backend:      fake,
		Broker:       broker,
		Orchestrator: delegation.NewOrchestrator(broker, log),
		Vault:        vault.New(store, vault.NewRegistry(cipher), log),
		Resolver:     identity.NewResolver(store, fake, log),
		Cursors:      paging.NewCursorCache(store, log),
		Log:          log,
	}, 1000)
}
