package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"osbridge/internal/bridge"
)

func (a *App) createUser(w http.ResponseWriter, r *http.Request) {
	var in userJSON
	if err := decode(r, &in); err != nil {
		a.writeError(w, err)
		return
	}
	u, err := a.svc.CreateUser(r.Context(), bridge.User{
		TenantID: chi.URLParam(r, "tenantID"),
		UserID:   in.UserID,
		Username: in.Username,
		Email:    in.Email,
		Role:     bridge.Role(in.Role),
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, toUserJSON(u), http.StatusCreated)
}

func (a *App) listUsers(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r, defaultPageLimit)
	page := a.svc.ListUsers(r.Context(), chi.URLParam(r, "tenantID"), offset, limit)
	writeJSON(w, toPage(page.Items, page.Page, toUserJSON), http.StatusOK)
}

// queryUsers is the cross-tenant filtered listing; the tenant is addressed
// inside the filter expression, not the path.
func (a *App) queryUsers(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r, defaultPageLimit)
	page := a.svc.QueryUsers(r.Context(), r.URL.Query().Get("filter"), offset, limit)
	writeJSON(w, toPage(page.Items, page.Page, toUserJSON), http.StatusOK)
}

func (a *App) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.svc.GetUser(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "userID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, toUserJSON(u), http.StatusOK)
}

func (a *App) headUser(w http.ResponseWriter, r *http.Request) {
	ok, err := a.svc.HeadUser(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "userID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *App) updateUserStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Active bool `json:"active"`
	}
	if err := decode(r, &in); err != nil {
		a.writeError(w, err)
		return
	}
	u, err := a.svc.UpdateUserStatus(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "userID"), in.Active)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, toUserJSON(u), http.StatusOK)
}

func (a *App) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteUser(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "userID")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
