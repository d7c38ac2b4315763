package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *App) createCredential(w http.ResponseWriter, r *http.Request) {
	c, err := a.svc.CreateCredential(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "userID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, toCredentialJSON(c), http.StatusCreated)
}

func (a *App) listCredentials(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r, defaultPageLimit)
	page := a.svc.ListCredentials(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "userID"), offset, limit)
	writeJSON(w, toPage(page.Items, page.Page, toCredentialJSON), http.StatusOK)
}

func (a *App) queryCredentials(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r, defaultPageLimit)
	page := a.svc.QueryCredentials(r.Context(), r.URL.Query().Get("filter"), offset, limit)
	writeJSON(w, toPage(page.Items, page.Page, toCredentialJSON), http.StatusOK)
}

// getCredential addresses a credential by access key alone.
func (a *App) getCredential(w http.ResponseWriter, r *http.Request) {
	c, err := a.svc.GetCredential(r.Context(), chi.URLParam(r, "accessKey"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, toCredentialJSON(c), http.StatusOK)
}

func (a *App) updateCredentialStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Active bool `json:"active"`
	}
	if err := decode(r, &in); err != nil {
		a.writeError(w, err)
		return
	}
	c, err := a.svc.UpdateCredentialStatus(r.Context(),
		chi.URLParam(r, "tenantID"), chi.URLParam(r, "userID"), chi.URLParam(r, "accessKey"), in.Active)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, toCredentialJSON(c), http.StatusOK)
}

func (a *App) deleteCredential(w http.ResponseWriter, r *http.Request) {
	err := a.svc.DeleteCredential(r.Context(),
		chi.URLParam(r, "tenantID"), chi.URLParam(r, "userID"), chi.URLParam(r, "accessKey"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
