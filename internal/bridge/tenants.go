package bridge

import (
	"context"
	"fmt"
	"strings"

	"osbridge/internal/apperr"
	"osbridge/internal/backend"
	"osbridge/internal/paging"
)

const tenantScope = "accounts"

func tenantFromAccount(a backend.Account) Tenant {
	return Tenant{
		TenantID:    a.ID,
		Name:        a.Name,
		Active:      !a.Suspended,
		CdTenantIDs: a.ExternalIDs,
	}
}

// accountEmail derives the registration address the backend requires from
// the tenant name.
func accountEmail(name string) string {
	local := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
	return local + "@tenant.osbridge.local"
}

// CreateTenant registers a backend account and kicks off delegation
// bootstrap in the background. The tenant is usable immediately; the first
// tenant-scoped operation finishes the bootstrap if it has not landed yet.
func (s *Service) CreateTenant(ctx context.Context, t Tenant) (Tenant, error) {
	if strings.TrimSpace(t.Name) == "" {
		return Tenant{}, apperr.New(apperr.ClassBadRequest, "tenant name is required")
	}
	var ext string
	if len(t.CdTenantIDs) > 0 {
		ext = t.CdTenantIDs[0]
	}
	acct, err := s.backend.CreateAccount(ctx, t.Name, accountEmail(t.Name), ext)
	if err != nil {
		return Tenant{}, err
	}
	if len(t.CdTenantIDs) > 1 {
		acct, err = s.backend.UpdateAccountAttributes(ctx, acct.Name, backend.AccountAttributes{ExternalIDs: t.CdTenantIDs})
		if err != nil {
			return Tenant{}, err
		}
	}

	// Detached from the request context: creation has already succeeded and
	// the caller must not wait on role provisioning.
	go func(tenantID string) {
		if err := s.broker.Bootstrap(context.Background(), tenantID); err != nil {
			s.log.Errorw("background delegation bootstrap failed", "tenant", tenantID, "err", err)
		}
	}(acct.ID)

	return tenantFromAccount(acct), nil
}

func (s *Service) GetTenant(ctx context.Context, tenantID string) (Tenant, error) {
	acct, err := s.backend.GetAccount(ctx, backend.AccountQuery{ID: tenantID})
	if err != nil {
		return Tenant{}, err
	}
	return tenantFromAccount(acct), nil
}

// HeadTenant reports existence only. Every error collapses to false.
func (s *Service) HeadTenant(ctx context.Context, tenantID string) bool {
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		if !apperr.IsNotFound(err) {
			s.log.Debugw("tenant head probe failed", "tenant", tenantID, "err", err)
		}
		return false
	}
	return true
}

func (s *Service) accountLister() paging.Lister {
	return func(ctx context.Context, cursor string, maxItems int64) (string, bool, int64, error) {
		page, err := s.backend.ListAccounts(ctx, cursor, maxItems, "")
		if err != nil {
			return "", false, 0, err
		}
		return page.NextCursor, page.Truncated, int64(len(page.Items)), nil
	}
}

// ListTenants returns one page of tenants. Listing never fails: any error,
// including an offset past the end of the corpus, yields an empty page with
// a zero total.
func (s *Service) ListTenants(ctx context.Context, offset, limit int64) TenantPage {
	if limit > s.pageSize {
		limit = s.pageSize
	}
	empty := TenantPage{Page: PageInfo{Offset: offset, Limit: limit}}
	if offset < 0 || limit <= 0 {
		return empty
	}
	cursor, err := s.cursors.Resolve(ctx, tenantScope, "", offset, limit, s.accountLister())
	if err != nil {
		s.logListFailure("tenants", offset, err)
		return empty
	}
	page, err := s.backend.ListAccounts(ctx, cursor, limit, "")
	if err != nil {
		s.logListFailure("tenants", offset, err)
		return empty
	}
	s.cursors.Save(ctx, tenantScope, "", offset+int64(len(page.Items)), page.NextCursor)

	items := make([]Tenant, 0, len(page.Items))
	for _, a := range page.Items {
		items = append(items, tenantFromAccount(a))
	}
	return TenantPage{Items: items, Page: PageInfo{Offset: offset, Limit: limit, Total: limit}}
}

// QueryTenants supports the cd_tenant_id filter; a result has at most one
// tenant. A missing filter key or any lookup failure yields an empty page.
func (s *Service) QueryTenants(ctx context.Context, filter string, offset, limit int64) TenantPage {
	empty := TenantPage{Page: PageInfo{Offset: offset, Limit: limit}}
	val, ok := parseFilter(filter)[FilterCdTenantID]
	if !ok || val == "" {
		return empty
	}
	q := backend.AccountQuery{ID: val}
	if isUUID(val) {
		q = backend.AccountQuery{ExternalID: val}
	}
	acct, err := s.backend.GetAccount(ctx, q)
	if err != nil {
		s.logListFailure("tenant query", offset, err)
		return empty
	}
	return TenantPage{
		Items: []Tenant{tenantFromAccount(acct)},
		Page:  PageInfo{Offset: offset, Limit: limit, Total: 1},
	}
}

// UpdateTenant applies activation state and external id changes. The name
// is immutable and doubles as a consistency check against the stored
// record.
func (s *Service) UpdateTenant(ctx context.Context, t Tenant) (Tenant, error) {
	cur, err := s.GetTenant(ctx, t.TenantID)
	if err != nil {
		return Tenant{}, err
	}
	if t.Name != "" && t.Name != cur.Name {
		return Tenant{}, apperr.Errorf(apperr.ClassBadRequest,
			"tenant name %q does not match stored name %q for id %s", t.Name, cur.Name, t.TenantID)
	}
	suspended := !t.Active
	acct, err := s.backend.UpdateAccountAttributes(ctx, cur.Name, backend.AccountAttributes{
		Suspended:   &suspended,
		ExternalIDs: t.CdTenantIDs,
	})
	if err != nil {
		return Tenant{}, err
	}
	return tenantFromAccount(acct), nil
}

// DeleteTenant is rejected: the backend has no account deletion and a
// half-deleted tenant would strand its users and buckets.
func (s *Service) DeleteTenant(ctx context.Context, tenantID string) error {
	return apperr.New(apperr.ClassNotImplemented, "tenant deletion is not supported")
}

func (s *Service) logListFailure(what string, offset int64, err error) {
	if apperr.IsOutOfRange(err) {
		return
	}
	s.log.Warnw(fmt.Sprintf("%s listing failed", what), "offset", offset, "err", err)
}
