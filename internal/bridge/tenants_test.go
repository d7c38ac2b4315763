package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osbridge/internal/apperr"
	"osbridge/internal/backend"
	"osbridge/internal/backend/backendtest"
)

func TestCreateTenantAssignsBackendID(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	svc := newTestService(t, fake)

	got, err := svc.CreateTenant(ctx, Tenant{Name: "acme", CdTenantIDs: []string{extTenantID}})
	require.NoError(t, err)
	assert.Equal(t, "T1", got.TenantID, "backend assigns the tenant id")
	assert.Equal(t, "acme", got.Name)
	assert.True(t, got.Active)
	assert.Equal(t, []string{extTenantID}, got.CdTenantIDs)
}

func TestCreateTenantBootstrapFailureDoesNotSurface(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.FailNext("CreateAccountAccessKey", apperr.New(apperr.ClassUnavailable, "backend down"))
	svc := newTestService(t, fake)

	got, err := svc.CreateTenant(ctx, Tenant{Name: "acme", CdTenantIDs: []string{extTenantID}})
	require.NoError(t, err)
	assert.Equal(t, "T1", got.TenantID)
	assert.True(t, got.Active)

	// Bootstrap runs detached; it was attempted, it failed, and the tenant
	// came back clean anyway.
	assert.Eventually(t, func() bool {
		return fake.Calls("CreateAccountAccessKey") == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, fake.RoleExists("T1", "osbridge-admin"))
}

func TestCreateTenantRequiresName(t *testing.T) {
	svc := newTestService(t, backendtest.New())
	_, err := svc.CreateTenant(context.Background(), Tenant{})
	assert.True(t, apperr.IsBadRequest(err))
}

func TestCreateTenantDuplicateNameConflicts(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	svc := newTestService(t, fake)

	_, err := svc.CreateTenant(ctx, Tenant{Name: "acme"})
	require.NoError(t, err)
	_, err = svc.CreateTenant(ctx, Tenant{Name: "acme"})
	assert.Equal(t, apperr.ClassConflict, apperr.ClassOf(err))
}

func TestListTenantsTotalMirrorsLimit(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.SeedAccounts(5)
	svc := newTestService(t, fake)

	page := svc.ListTenants(ctx, 0, 3)
	require.Len(t, page.Items, 3)
	assert.Equal(t, int64(3), page.Page.Total)

	// Short final page still reports the limit as the total.
	page = svc.ListTenants(ctx, 3, 3)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Page.Total)
}

func TestListTenantsOffsetBeyondEndIsEmpty(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.SeedAccounts(4)
	svc := newTestService(t, fake)

	page := svc.ListTenants(ctx, 10, 5)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Page.Total)
	assert.Equal(t, int64(10), page.Page.Offset)
}

func TestListTenantsReusesCheckpoints(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.SeedAccounts(9)
	svc := newTestService(t, fake)

	page := svc.ListTenants(ctx, 6, 3)
	require.Len(t, page.Items, 3)
	walked := fake.Calls("ListAccounts")

	again := svc.ListTenants(ctx, 6, 3)
	require.Len(t, again.Items, 3)
	assert.Equal(t, walked+1, fake.Calls("ListAccounts"),
		"a repeated offset costs exactly the page fetch")
}

func TestListTenantsBackendFailureYieldsEmptyPage(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.SeedAccounts(3)
	fake.FailNext("ListAccounts", apperr.New(apperr.ClassUnavailable, "backend down"))
	svc := newTestService(t, fake)

	page := svc.ListTenants(ctx, 0, 3)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Page.Total)
}

func TestQueryTenantsByExternalID(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.AddAccount(backend.Account{ID: "T1", Name: "acme", ExternalIDs: []string{extTenantID}})
	svc := newTestService(t, fake)

	page := svc.QueryTenants(ctx, "cd_tenant_id=="+extTenantID, 0, 100)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "T1", page.Items[0].TenantID)
	assert.Equal(t, int64(1), page.Page.Total)
}

func TestQueryTenantsByInternalID(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.AddAccount(backend.Account{ID: "T1", Name: "acme"})
	svc := newTestService(t, fake)

	page := svc.QueryTenants(ctx, "cd_tenant_id==T1", 0, 100)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "acme", page.Items[0].Name)
}

func TestQueryTenantsMissingOrUnknownFilter(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.AddAccount(backend.Account{ID: "T1", Name: "acme"})
	svc := newTestService(t, fake)

	assert.Empty(t, svc.QueryTenants(ctx, "display_name==acme", 0, 100).Items)
	assert.Empty(t, svc.QueryTenants(ctx, "cd_tenant_id=="+extTenantID, 0, 100).Items)
}

func TestUpdateTenantRejectsNameMismatch(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.AddAccount(backend.Account{ID: "T1", Name: "acme"})
	svc := newTestService(t, fake)

	_, err := svc.UpdateTenant(ctx, Tenant{TenantID: "T1", Name: "other"})
	assert.True(t, apperr.IsBadRequest(err))
}

func TestUpdateTenantSuspendsAccount(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.AddAccount(backend.Account{ID: "T1", Name: "acme"})
	svc := newTestService(t, fake)

	got, err := svc.UpdateTenant(ctx, Tenant{TenantID: "T1", Name: "acme", Active: false, CdTenantIDs: []string{extTenantID}})
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, []string{extTenantID}, got.CdTenantIDs)

	fetched, err := svc.GetTenant(ctx, "T1")
	require.NoError(t, err)
	assert.False(t, fetched.Active)
}

func TestHeadTenant(t *testing.T) {
	ctx := context.Background()
	fake := backendtest.New()
	fake.AddAccount(backend.Account{ID: "T1", Name: "acme"})
	svc := newTestService(t, fake)

	assert.True(t, svc.HeadTenant(ctx, "T1"))
	assert.False(t, svc.HeadTenant(ctx, "T404"))
}

func TestDeleteTenantNotImplemented(t *testing.T) {
	svc := newTestService(t, backendtest.New())
	err := svc.DeleteTenant(context.Background(), "T1")
	assert.Equal(t, apperr.ClassNotImplemented, apperr.ClassOf(err))
}
