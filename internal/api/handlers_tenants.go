package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"osbridge/internal/bridge"
)

const defaultPageLimit = 1000

func (a *App) createTenant(w http.ResponseWriter, r *http.Request) {
	var in tenantJSON
	if err := decode(r, &in); err != nil {
		a.writeError(w, err)
		return
	}
	t, err := a.svc.CreateTenant(r.Context(), bridge.Tenant{
		Name:        in.Name,
		Active:      true,
		CdTenantIDs: in.CdTenantIDs,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, toTenantJSON(t), http.StatusCreated)
}

// listTenants serves both the plain listing and the filtered query,
// switching on the presence of the filter parameter.
func (a *App) listTenants(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r, defaultPageLimit)
	var page bridge.TenantPage
	if filter := r.URL.Query().Get("filter"); filter != "" {
		page = a.svc.QueryTenants(r.Context(), filter, offset, limit)
	} else {
		page = a.svc.ListTenants(r.Context(), offset, limit)
	}
	writeJSON(w, toPage(page.Items, page.Page, toTenantJSON), http.StatusOK)
}

func (a *App) getTenant(w http.ResponseWriter, r *http.Request) {
	t, err := a.svc.GetTenant(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, toTenantJSON(t), http.StatusOK)
}

func (a *App) headTenant(w http.ResponseWriter, r *http.Request) {
	if !a.svc.HeadTenant(r.Context(), chi.URLParam(r, "tenantID")) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *App) updateTenant(w http.ResponseWriter, r *http.Request) {
	var in tenantJSON
	if err := decode(r, &in); err != nil {
		a.writeError(w, err)
		return
	}
	t, err := a.svc.UpdateTenant(r.Context(), bridge.Tenant{
		TenantID:    chi.URLParam(r, "tenantID"),
		Name:        in.Name,
		Active:      in.Active,
		CdTenantIDs: in.CdTenantIDs,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, toTenantJSON(t), http.StatusOK)
}

func (a *App) deleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteTenant(r.Context(), chi.URLParam(r, "tenantID")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) listBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := a.svc.ListBuckets(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make([]bucketJSON, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, bucketJSON{Name: b.Name, CreationDate: b.CreationDate})
	}
	writeJSON(w, out, http.StatusOK)
}
