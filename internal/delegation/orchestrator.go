package delegation

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"osbridge/internal/apperr"
	"osbridge/internal/backend"
)

var policyRepairs = promauto.NewCounter(prometheus.CounterOpts{
	Name: "osbridge_policy_repairs_total",
	Help: "Administrative policy repairs triggered by authorization failures.",
})

// CredentialSource yields tenant credentials and can repair the
// authorization they depend on.
type CredentialSource interface {
	Credentials(ctx context.Context, tenantID string) (backend.DelegatedCredential, error)
	Repair(ctx context.Context, tenantID string) error
}

// Operation is a tenant-scoped backend interaction executed under
// delegated credentials.
type Operation func(creds backend.Credentials) error

type Orchestrator struct {
	source CredentialSource
	log    *zap.SugaredLogger
}

func NewOrchestrator(source CredentialSource, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{source: source, log: log}
}

// WithCredentials runs op under the tenant's delegated credentials. An
// AuthorizationDenied failure triggers one policy repair and one retry of
// op; the loop is bounded so a second failure of any kind propagates
// unchanged.
func (o *Orchestrator) WithCredentials(ctx context.Context, tenantID string, op Operation) error {
	dc, err := o.source.Credentials(ctx, tenantID)
	if err != nil {
		return err
	}
	creds := backend.Credentials{
		AccessKey:    dc.AccessKey,
		SecretKey:    dc.SecretKey,
		SessionToken: dc.SessionToken,
	}

	err = op(creds)
	if !apperr.IsAuthorizationDenied(err) {
		return err
	}

	o.log.Warnw("authorization denied, repairing tenant policy", "tenant", tenantID, "err", err)
	policyRepairs.Inc()
	if rerr := o.source.Repair(ctx, tenantID); rerr != nil {
		o.log.Errorw("policy repair failed", "tenant", tenantID, "err", rerr)
		return err
	}
	return op(creds)
}
