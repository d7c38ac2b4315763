package main

import (
	"crypto/rand"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"osbridge/internal/api"
	"osbridge/internal/backend/awsiam"
	"osbridge/internal/bridge"
	"osbridge/internal/delegation"
	"osbridge/internal/identity"
	"osbridge/internal/paging"
	"osbridge/internal/vault"
	"osbridge/pkg/cache"
	"osbridge/pkg/config"
	"osbridge/pkg/db"
	"osbridge/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	var store cache.Cache
	if rdb := db.MustRedis(cfg, log); rdb != nil {
		store = cache.NewRedis(rdb, "osbridge")
	} else {
		store = cache.NewMemory()
	}

	reg := loadCiphers(cfg, log)

	be := awsiam.New(awsiam.Config{
		AdminEndpoint: cfg.AdminEndpoint,
		AdminToken:    cfg.AdminToken,
		IAMEndpoint:   cfg.IAMEndpoint,
		STSEndpoint:   cfg.STSEndpoint,
		S3Endpoint:    cfg.S3Endpoint,
		Region:        cfg.Region,
		RootAccessKey: cfg.RootAccessKey,
		RootSecretKey: cfg.RootSecretKey,
		HTTPTimeout:   cfg.HTTPTimeout,
	}, log)

	broker := delegation.NewBroker(be, store, delegation.Config{
		RoleName:   cfg.RoleName,
		PolicyName: cfg.PolicyName,
		BridgeARN:  cfg.BridgeARN,
	}, log)

	svc := bridge.New(bridge.Deps{
		Backend:      be,
		Broker:       broker,
		Orchestrator: delegation.NewOrchestrator(broker, log),
		Vault:        vault.New(store, reg, log),
		Resolver:     identity.NewResolver(store, be, log),
		Cursors:      paging.NewCursorCache(store, log),
		Log:          log,
	}, cfg.PageSize)

	app := api.New(log, svc, api.Config{
		HTTPAddr:     cfg.HTTPAddr,
		OIDCIssuer:   cfg.OIDCIssuer,
		OIDCAudience: cfg.OIDCAudience,
		JWKSURL:      cfg.JWKSURL,
		CORSOrigins:  corsOrigins(),
	})

	log.Infof("bridge listening at %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, app.Handler()); err != nil {
		log.Fatalf("listen: %v", err)
	}
}

func loadCiphers(cfg config.Config, log *zap.SugaredLogger) *vault.Registry {
	if cfg.CipherKeyFile != "" {
		reg, err := vault.LoadKeyFile(cfg.CipherKeyFile)
		if err != nil {
			panic(err)
		}
		return reg
	}
	// Without a key file the vault runs on an ephemeral key: fine for dev,
	// useless across restarts.
	log.Warnf("BRIDGE_CIPHER_KEY_FILE not set — secrets will not survive a restart")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	c, err := vault.NewAESGCM("ephemeral", key)
	if err != nil {
		panic(err)
	}
	return vault.NewRegistry(c)
}

func corsOrigins() []string {
	v := strings.TrimSpace(os.Getenv("BRIDGE_CORS_ORIGINS"))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
