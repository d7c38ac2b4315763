// Package backend defines the contract the bridge consumes from the
// identity/storage backend. Listing is forward-only: an opaque cursor
// fetches the next page and nothing else. All errors returned by
// implementations are classified (internal/apperr).
package backend

import "context"

type Client interface {
	// Account-admin channel (bridge root identity).
	ListAccounts(ctx context.Context, cursor string, maxItems int64, externalIDFilter string) (AccountPage, error)
	GetAccount(ctx context.Context, q AccountQuery) (Account, error)
	CreateAccount(ctx context.Context, name, email, externalID string) (Account, error)
	UpdateAccountAttributes(ctx context.Context, name string, attrs AccountAttributes) (Account, error)
	// CreateAccountAccessKey mints a one-time key for the account's root
	// identity, used only while bootstrapping the delegation role.
	CreateAccountAccessKey(ctx context.Context, accountID string) (AccessKey, error)
	// GetUserByAccessKey reverse-maps an access key to its owner.
	GetUserByAccessKey(ctx context.Context, accessKey string) (UserIdentity, error)

	// STS channel (bridge root identity).
	AssumeDelegatedRole(ctx context.Context, roleARN string) (DelegatedCredential, error)

	// IAM channel; every call runs under the supplied credentials.
	CreateRole(ctx context.Context, creds Credentials, name, trustPolicy string) (Role, error)
	CreatePolicy(ctx context.Context, creds Credentials, name, document string) (Policy, error)
	GetPolicy(ctx context.Context, creds Credentials, policyARN string) (Policy, error)
	GetPolicyVersion(ctx context.Context, creds Credentials, policyARN, versionID string) (string, error)
	CreatePolicyVersion(ctx context.Context, creds Credentials, policyARN, document string) error
	AttachRolePolicy(ctx context.Context, creds Credentials, roleName, policyARN string) error
	AttachUserPolicy(ctx context.Context, creds Credentials, userName, policyARN string) error
	DetachUserPolicy(ctx context.Context, creds Credentials, userName, policyARN string) error
	CreateUser(ctx context.Context, creds Credentials, userName, path string) (User, error)
	GetUser(ctx context.Context, creds Credentials, userName string) (User, error)
	ListUsers(ctx context.Context, creds Credentials, cursor string, maxItems int64, pathPrefix string) (UserPage, error)
	DeleteUser(ctx context.Context, creds Credentials, userName string) error
	CreateAccessKey(ctx context.Context, creds Credentials, userName string) (AccessKey, error)
	ListAccessKeys(ctx context.Context, creds Credentials, userName string) ([]AccessKey, error)
	UpdateAccessKeyStatus(ctx context.Context, creds Credentials, userName, accessKeyID string, active bool) error
	DeleteAccessKey(ctx context.Context, creds Credentials, userName, accessKeyID string) error

	// S3 channel (delegated credentials).
	ListBuckets(ctx context.Context, creds Credentials) ([]Bucket, error)
}
