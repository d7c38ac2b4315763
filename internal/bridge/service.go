// Package bridge implements the tenant/user/credential use cases of the
// management API on top of the backend contract, composing the pagination
// cursor cache, identity resolver, delegated-credential machinery and the
// secret vault.
package bridge

import (
	"context"

	"go.uber.org/zap"

	"osbridge/internal/backend"
	"osbridge/internal/delegation"
	"osbridge/internal/identity"
	"osbridge/internal/paging"
	"osbridge/internal/vault"
)

type Deps struct {
	Backend      backend.Client
	Broker       *delegation.Broker
	Orchestrator *delegation.Orchestrator
	Vault        *vault.Vault
	Resolver     *identity.Resolver
	Cursors      *paging.CursorCache
	Log          *zap.SugaredLogger
}

type Service struct {
	backend  backend.Client
	broker   *delegation.Broker
	orch     *delegation.Orchestrator
	vault    *vault.Vault
	resolver *identity.Resolver
	cursors  *paging.CursorCache
	pageSize int64
	log      *zap.SugaredLogger
}

func New(d Deps, pageSize int64) *Service {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Service{
		backend:  d.Backend,
		broker:   d.Broker,
		orch:     d.Orchestrator,
		vault:    d.Vault,
		resolver: d.Resolver,
		cursors:  d.Cursors,
		pageSize: pageSize,
		log:      d.Log,
	}
}

// resolveTenantID maps a cd_tenant_id filter value to a tenant id: a UUID
// is an opaque external identifier, anything else is taken as the internal
// tenant id directly.
func (s *Service) resolveTenantID(ctx context.Context, value string) (string, error) {
	if isUUID(value) {
		return s.resolver.Resolve(ctx, value)
	}
	return value, nil
}
