package bridge

import "time"

// Role of a user within the management API.
type Role string

const (
	RoleProviderAdmin Role = "provider_admin"
	RoleTenantAdmin   Role = "tenant_admin"
	RoleTenantUser    Role = "tenant_user"
	RoleAnonymous     Role = "anonymous"
)

// SecretNotAvailable is returned in place of a secret key whose envelope is
// not in the vault. Keys issued outside the bridge are not recoverable: the
// backend never returns a secret after initial issuance.
const SecretNotAvailable = "Not Available"

type Tenant struct {
	TenantID    string
	Name        string
	Active      bool
	CdTenantIDs []string
}

type User struct {
	UserID          string
	CanonicalUserID string
	TenantID        string
	// Active is derived from the user's credentials, never stored.
	Active     bool
	Username   string
	Email      string
	Role       Role
	CdUserID   string
	CdTenantID string
}

type Credential struct {
	AccessKey  string
	SecretKey  string
	Active     bool
	CreateDate time.Time
	TenantID   string
	UserID     string
	CdTenantID string
	CdUserID   string
}

// PageInfo describes a returned page. For cursor-backed listings Total
// mirrors the requested limit on success: cursor pagination cannot cheaply
// expose a true corpus count, and callers treat the value as a page-sizing
// hint. Credential listings and filtered queries materialize their items
// first, so they report the real count instead.
type PageInfo struct {
	Offset int64
	Limit  int64
	Total  int64
}

type TenantPage struct {
	Items []Tenant
	Page  PageInfo
}

type UserPage struct {
	Items []User
	Page  PageInfo
}

type CredentialPage struct {
	Items []Credential
	Page  PageInfo
}

type BucketInfo struct {
	Name         string
	CreationDate time.Time
}
