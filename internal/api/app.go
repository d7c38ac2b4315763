// Package api is the HTTP surface of the bridge: admin-scoped tenant, user
// and credential management plus health and metrics endpoints.
package api

import (
	"github.com/lestrrat-go/jwx/v2/jwk"
	"go.uber.org/zap"

	"osbridge/internal/bridge"
)

// Config holds api specific configuration.
type Config struct {
	HTTPAddr     string
	OIDCIssuer   string
	OIDCAudience string
	JWKSURL      string
	CORSOrigins  []string
}

// App is the api application container. Handlers and middleware have
// methods on this type. Keep it lean: shared deps and config only.
type App struct {
	log     *zap.SugaredLogger
	svc     *bridge.Service
	jwks    jwk.Set
	issuer  string
	aud     string
	origins []string
}

func New(log *zap.SugaredLogger, svc *bridge.Service, cfg Config) *App {
	app := &App{
		log:     log,
		svc:     svc,
		issuer:  cfg.OIDCIssuer,
		aud:     cfg.OIDCAudience,
		origins: cfg.CORSOrigins,
	}
	if cfg.JWKSURL != "" {
		app.jwks = mustJWKS(cfg.JWKSURL)
	}
	return app
}
