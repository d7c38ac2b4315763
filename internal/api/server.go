package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"osbridge/pkg/middleware"
)

// Handler builds the HTTP handler with routes and middleware.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(), chimw.RealIP, middleware.Recover(a.log), middleware.Tracing(), middleware.Metrics())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/admin", func(ar chi.Router) {
		if len(a.origins) > 0 {
			ar.Use(cors(a.origins))
		}
		ar.Use(a.adminAuth)

		ar.Post("/tenants", a.createTenant)
		ar.Get("/tenants", a.listTenants)
		ar.Get("/tenants/{tenantID}", a.getTenant)
		ar.Head("/tenants/{tenantID}", a.headTenant)
		ar.Put("/tenants/{tenantID}", a.updateTenant)
		ar.Delete("/tenants/{tenantID}", a.deleteTenant)
		ar.Get("/tenants/{tenantID}/buckets", a.listBuckets)

		ar.Post("/tenants/{tenantID}/users", a.createUser)
		ar.Get("/tenants/{tenantID}/users", a.listUsers)
		ar.Get("/users", a.queryUsers)
		ar.Get("/tenants/{tenantID}/users/{userID}", a.getUser)
		ar.Head("/tenants/{tenantID}/users/{userID}", a.headUser)
		ar.Patch("/tenants/{tenantID}/users/{userID}/status", a.updateUserStatus)
		ar.Delete("/tenants/{tenantID}/users/{userID}", a.deleteUser)

		ar.Post("/tenants/{tenantID}/users/{userID}/s3credentials", a.createCredential)
		ar.Get("/tenants/{tenantID}/users/{userID}/s3credentials", a.listCredentials)
		ar.Get("/s3credentials", a.queryCredentials)
		ar.Get("/s3credentials/{accessKey}", a.getCredential)
		ar.Patch("/tenants/{tenantID}/users/{userID}/s3credentials/{accessKey}/status", a.updateCredentialStatus)
		ar.Delete("/tenants/{tenantID}/users/{userID}/s3credentials/{accessKey}", a.deleteCredential)
	})

	return r
}
