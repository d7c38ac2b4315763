// Package delegation obtains and caches the per-tenant credentials used
// for privileged backend calls, and repairs the role/policy pair they
// depend on when the backend reports it missing or stale.
package delegation

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"osbridge/internal/apperr"
	"osbridge/internal/backend"
	"osbridge/pkg/cache"
)

// DefaultPolicyDocument is the administrative policy attached to every
// tenant delegation role.
const DefaultPolicyDocument = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"*","Resource":"*"}]}`

type Config struct {
	RoleName       string
	PolicyName     string
	PolicyDocument string
	// BridgeARN is the principal trusted to assume tenant roles.
	BridgeARN string
}

func (c Config) roleARN(tenantID string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", tenantID, c.RoleName)
}

func (c Config) policyARN(tenantID string) string {
	return fmt.Sprintf("arn:aws:iam::%s:policy/%s", tenantID, c.PolicyName)
}

func (c Config) trustPolicy() string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":"%s"},"Action":"sts:AssumeRole"}]}`, c.BridgeARN)
}

type Broker struct {
	backend backend.Client
	store   cache.Cache
	cfg     Config
	log     *zap.SugaredLogger
}

func NewBroker(b backend.Client, store cache.Cache, cfg Config, log *zap.SugaredLogger) *Broker {
	if cfg.PolicyDocument == "" {
		cfg.PolicyDocument = DefaultPolicyDocument
	}
	return &Broker{backend: b, store: store, cfg: cfg, log: log}
}

// PolicyARN exposes the tenant's administrative policy identity, attached
// to newly created users.
func (b *Broker) PolicyARN(tenantID string) string { return b.cfg.policyARN(tenantID) }

// Credentials returns delegated credentials for the tenant, from cache when
// present. Cached entries are reused without checking their reported
// expiry; an expired entry surfaces as an authorization failure on the call
// that uses it and propagates to the caller. The cache is not invalidated
// on failure.
func (b *Broker) Credentials(ctx context.Context, tenantID string) (backend.DelegatedCredential, error) {
	roleARN := b.cfg.roleARN(tenantID)
	key := "delegated:" + roleARN
	if raw, ok, err := b.store.Get(ctx, key); err != nil {
		b.log.Warnw("delegated credential cache lookup failed", "tenant", tenantID, "err", err)
	} else if ok {
		var dc backend.DelegatedCredential
		if err := json.Unmarshal(raw, &dc); err == nil {
			return dc, nil
		}
		b.log.Warnw("corrupt delegated credential cache entry", "tenant", tenantID)
	}

	dc, err := b.backend.AssumeDelegatedRole(ctx, roleARN)
	if apperr.IsNotFound(err) {
		b.log.Infow("delegation role missing, bootstrapping", "tenant", tenantID)
		if berr := b.Bootstrap(ctx, tenantID); berr != nil {
			b.log.Errorw("bootstrap failed", "tenant", tenantID, "err", berr)
			return backend.DelegatedCredential{}, berr
		}
		dc, err = b.backend.AssumeDelegatedRole(ctx, roleARN)
	}
	if err != nil {
		return backend.DelegatedCredential{}, err
	}

	if raw, merr := json.Marshal(dc); merr == nil {
		if serr := b.store.Set(ctx, key, raw); serr != nil {
			b.log.Warnw("delegated credential cache write failed", "tenant", tenantID, "err", serr)
		}
	}
	return dc, nil
}

// Bootstrap provisions the tenant's delegation role and administrative
// policy using a one-time account access key, which is revoked before
// returning regardless of outcome.
func (b *Broker) Bootstrap(ctx context.Context, tenantID string) error {
	key, err := b.backend.CreateAccountAccessKey(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("obtain bootstrap key: %w", err)
	}
	creds := backend.Credentials{AccessKey: key.AccessKeyID, SecretKey: key.SecretKey}
	defer func() {
		if derr := b.backend.DeleteAccessKey(ctx, creds, "", key.AccessKeyID); derr != nil {
			b.log.Warnw("revoking bootstrap key failed", "tenant", tenantID, "err", derr)
		}
	}()

	if _, err := b.backend.CreateRole(ctx, creds, b.cfg.RoleName, b.cfg.trustPolicy()); err != nil && !apperr.IsConflict(err) {
		return fmt.Errorf("create role: %w", err)
	}
	policyARN, err := b.ensurePolicy(ctx, creds, tenantID)
	if err != nil {
		return err
	}
	if err := b.backend.AttachRolePolicy(ctx, creds, b.cfg.RoleName, policyARN); err != nil {
		return fmt.Errorf("attach policy: %w", err)
	}
	return nil
}

// Repair re-applies the administrative policy after an authorization
// failure, without touching the role.
func (b *Broker) Repair(ctx context.Context, tenantID string) error {
	key, err := b.backend.CreateAccountAccessKey(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("obtain repair key: %w", err)
	}
	creds := backend.Credentials{AccessKey: key.AccessKeyID, SecretKey: key.SecretKey}
	defer func() {
		if derr := b.backend.DeleteAccessKey(ctx, creds, "", key.AccessKeyID); derr != nil {
			b.log.Warnw("revoking repair key failed", "tenant", tenantID, "err", derr)
		}
	}()

	policyARN, err := b.ensurePolicy(ctx, creds, tenantID)
	if err != nil {
		return err
	}
	if err := b.backend.AttachRolePolicy(ctx, creds, b.cfg.RoleName, policyARN); err != nil {
		return fmt.Errorf("attach policy: %w", err)
	}
	return nil
}

// ensurePolicy creates the administrative policy or reconciles an existing
// one: if the default version differs from the expected document, a new
// default version is published. Superseded versions are kept.
func (b *Broker) ensurePolicy(ctx context.Context, creds backend.Credentials, tenantID string) (string, error) {
	pol, err := b.backend.CreatePolicy(ctx, creds, b.cfg.PolicyName, b.cfg.PolicyDocument)
	if err == nil {
		return pol.ARN, nil
	}
	if !apperr.IsConflict(err) {
		return "", fmt.Errorf("create policy: %w", err)
	}

	arn := b.cfg.policyARN(tenantID)
	existing, err := b.backend.GetPolicy(ctx, creds, arn)
	if err != nil {
		return "", fmt.Errorf("get policy: %w", err)
	}
	doc, err := b.backend.GetPolicyVersion(ctx, creds, arn, existing.DefaultVersionID)
	if err != nil {
		return "", fmt.Errorf("get policy version: %w", err)
	}
	if doc != b.cfg.PolicyDocument {
		b.log.Infow("policy drifted, publishing new version", "tenant", tenantID, "policy", b.cfg.PolicyName)
		if err := b.backend.CreatePolicyVersion(ctx, creds, arn, b.cfg.PolicyDocument); err != nil {
			return "", fmt.Errorf("create policy version: %w", err)
		}
	}
	return arn, nil
}
