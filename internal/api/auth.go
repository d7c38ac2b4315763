package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type ctxKey string

const subjectKey ctxKey = "subject"

// mustJWKS fetches JWKS and panics on failure.
func mustJWKS(url string) jwk.Set {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	set, err := jwk.Fetch(ctx, url)
	if err != nil {
		panic(err)
	}
	return set
}

// cors returns a middleware that sets CORS headers and handles preflight
// requests. allowed may contain exact origins or "*" to allow all.
func cors(allowed []string) func(http.Handler) http.Handler {
	match := func(origin string) (string, bool) {
		if origin == "" {
			return "", false
		}
		for _, a := range allowed {
			a = strings.TrimSpace(a)
			if a == "*" || a == origin {
				return a, true
			}
		}
		return "", false
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if ao, ok := match(origin); ok {
				w.Header().Set("Access-Control-Allow-Origin", ao)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Max-Age", "86400")
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// adminAuth validates an admin bearer token. When no JWKS is configured the
// API runs open (dev mode) and the subject falls back to a header identity.
func (a *App) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.jwks == nil {
			sub := strings.TrimSpace(r.Header.Get("X-Admin-Subject"))
			if sub == "" {
				sub = "dev"
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey, sub)))
			return
		}

		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			http.Error(w, "missing bearer", http.StatusUnauthorized)
			return
		}
		tok := strings.TrimSpace(authz[len("Bearer "):])
		jt, err := jwt.Parse([]byte(tok),
			jwt.WithKeySet(a.jwks),
			jwt.WithIssuer(a.issuer),
			jwt.WithAudience(a.aud),
			jwt.WithValidate(true),
		)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		role, _ := jt.Get("role")
		rs, _ := role.(string)
		if rs != "provider_admin" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey, jt.Subject())))
	})
}
