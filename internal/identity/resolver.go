// Package identity caches the mapping from externally supplied tenant
// identifiers to backend account ids. Entries never expire: external ids
// are immutable once assigned.
package identity

import (
	"context"

	"go.uber.org/zap"

	"osbridge/internal/apperr"
	"osbridge/internal/backend"
	"osbridge/pkg/cache"
)

type Resolver struct {
	store   cache.Cache
	backend backend.Client
	log     *zap.SugaredLogger
}

func NewResolver(store cache.Cache, b backend.Client, log *zap.SugaredLogger) *Resolver {
	return &Resolver{store: store, backend: b, log: log}
}

func key(externalID string) string { return "acct:" + externalID }

// Resolve returns the backend account id owning externalID. A hit costs no
// backend call; a miss issues one single-item filtered listing.
func (r *Resolver) Resolve(ctx context.Context, externalID string) (string, error) {
	if externalID == "" {
		return "", apperr.New(apperr.ClassBadRequest, "empty external identifier")
	}
	if raw, ok, err := r.store.Get(ctx, key(externalID)); err != nil {
		r.log.Warnw("identity cache lookup failed", "externalID", externalID, "err", err)
	} else if ok {
		return string(raw), nil
	}

	page, err := r.backend.ListAccounts(ctx, "", 1, externalID)
	if err != nil {
		return "", err
	}
	if len(page.Items) == 0 {
		return "", apperr.New(apperr.ClassBadRequest, "the provided external identifier does not exist")
	}
	id := page.Items[0].ID
	if err := r.store.Set(ctx, key(externalID), []byte(id)); err != nil {
		r.log.Warnw("identity cache write failed", "externalID", externalID, "err", err)
	}
	return id, nil
}
