package backend

import "time"

// Credentials authenticate a single backend call. The zero value means the
// bridge's own root identity; tenant-scoped calls carry delegated or
// bootstrap credentials.
type Credentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
}

func (c Credentials) IsZero() bool { return c.AccessKey == "" }

// Account is a tenant-level account in the backend.
type Account struct {
	ID          string
	Name        string
	Email       string
	Suspended   bool
	ExternalIDs []string
	CreateDate  time.Time
}

// AccountQuery selects an account by internal id or by one of its external
// identifiers; exactly one field should be set.
type AccountQuery struct {
	ID         string
	ExternalID string
}

// AccountAttributes are the mutable account fields.
type AccountAttributes struct {
	Suspended   *bool
	ExternalIDs []string
}

type AccountPage struct {
	Items      []Account
	NextCursor string
	Truncated  bool
}

// User is an IAM user inside a tenant account. UserName carries the
// bridge-assigned user id; the human-readable name is encoded in Path so
// prefix-filtered listings can match on it.
type User struct {
	UserName   string
	UserID     string
	Path       string
	ARN        string
	CreateDate time.Time
}

type UserPage struct {
	Items      []User
	NextCursor string
	Truncated  bool
}

type AccessKey struct {
	AccessKeyID string
	SecretKey   string // only populated at issuance
	UserName    string
	Active      bool
	CreateDate  time.Time
}

type Role struct {
	Name string
	ARN  string
}

type Policy struct {
	Name             string
	ARN              string
	DefaultVersionID string
}

// DelegatedCredential is a short-lived assume-role credential triple.
type DelegatedCredential struct {
	AccessKey    string    `json:"accessKey"`
	SecretKey    string    `json:"secretKey"`
	SessionToken string    `json:"sessionToken"`
	Expiry       time.Time `json:"expiry"`
}

// UserIdentity is the reverse-lookup result for an access key.
type UserIdentity struct {
	AccountID string
	UserName  string
}

type Bucket struct {
	Name         string
	CreationDate time.Time
}
