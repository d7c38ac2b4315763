// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Backend identity service endpoints
	AdminEndpoint string // account-admin REST channel
	AdminToken    string
	IAMEndpoint   string
	STSEndpoint   string
	S3Endpoint    string
	Region        string

	// The bridge's own identity: trusted principal in tenant delegation
	// roles and credential source for the STS channel.
	RootAccessKey string
	RootSecretKey string
	BridgeARN     string

	// Delegation role/policy provisioned per tenant account
	RoleName   string
	PolicyName string

	// Secret-key vault cipher key file (yaml)
	CipherKeyFile string

	// Listing page size used for cursor checkpoint strides
	PageSize int64

	// Admin API auth (bearer via JWKS; dev header override when unset)
	OIDCIssuer   string
	OIDCAudience string
	JWKSURL      string

	// Redis (shared caches); empty selects the in-process cache
	RedisURL string

	HTTPTimeout time.Duration
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:           env("BRIDGE_ENV", "dev"),
		HTTPAddr:      env("BRIDGE_HTTP_ADDR", ":8087"),
		AdminEndpoint: env("BACKEND_ADMIN_ENDPOINT", "http://localhost:8600"),
		AdminToken:    env("BACKEND_ADMIN_TOKEN", ""),
		IAMEndpoint:   env("BACKEND_IAM_ENDPOINT", "http://localhost:8600"),
		STSEndpoint:   env("BACKEND_STS_ENDPOINT", "http://localhost:8800"),
		S3Endpoint:    env("BACKEND_S3_ENDPOINT", "http://localhost:8000"),
		Region:        env("BACKEND_REGION", "us-east-1"),
		RootAccessKey: env("BRIDGE_ACCESS_KEY", ""),
		RootSecretKey: env("BRIDGE_SECRET_KEY", ""),
		BridgeARN:     env("BRIDGE_ARN", "arn:aws:iam::000000000000:user/osbridge"),
		RoleName:      env("BRIDGE_ROLE_NAME", "osbridge-admin"),
		PolicyName:    env("BRIDGE_POLICY_NAME", "osbridge-admin-policy"),
		CipherKeyFile: env("BRIDGE_CIPHER_KEY_FILE", ""),
		PageSize:      envInt64("BRIDGE_PAGE_SIZE", 1000),
		OIDCIssuer:    env("BRIDGE_OIDC_ISSUER", ""),
		OIDCAudience:  env("BRIDGE_OIDC_AUDIENCE", "osbridge-admin"),
		JWKSURL:       env("BRIDGE_JWKS_URL", ""),
		RedisURL:      env("REDIS_URL", ""),
		HTTPTimeout:   envDur("BRIDGE_HTTP_TIMEOUT_SEC", 30) * time.Second,
	}
	if cfg.RedisURL == "" {
		log.Println("[WARN] REDIS_URL not set — using in-process caches")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}
