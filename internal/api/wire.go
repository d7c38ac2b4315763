package api

import (
	"time"

	"osbridge/internal/bridge"
)

// Wire representations of the admin API resources.

type tenantJSON struct {
	TenantID    string   `json:"tenant_id"`
	Name        string   `json:"name"`
	Active      bool     `json:"active"`
	CdTenantIDs []string `json:"cd_tenant_ids,omitempty"`
}

type userJSON struct {
	UserID          string `json:"user_id"`
	CanonicalUserID string `json:"canonical_user_id,omitempty"`
	TenantID        string `json:"tenant_id"`
	Active          bool   `json:"active"`
	Username        string `json:"username"`
	Email           string `json:"email,omitempty"`
	Role            string `json:"role,omitempty"`
	CdUserID        string `json:"cd_user_id,omitempty"`
	CdTenantID      string `json:"cd_tenant_id,omitempty"`
}

type credentialJSON struct {
	AccessKey  string    `json:"access_key"`
	SecretKey  string    `json:"secret_key"`
	Active     bool      `json:"active"`
	CreateDate time.Time `json:"create_date"`
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	CdTenantID string    `json:"cd_tenant_id,omitempty"`
	CdUserID   string    `json:"cd_user_id,omitempty"`
}

type bucketJSON struct {
	Name         string    `json:"name"`
	CreationDate time.Time `json:"creation_date"`
}

type pageInfoJSON struct {
	Offset int64 `json:"offset"`
	Limit  int64 `json:"limit"`
	Total  int64 `json:"total"`
}

type pageJSON[T any] struct {
	Items    []T          `json:"items"`
	PageInfo pageInfoJSON `json:"page_info"`
}

func toTenantJSON(t bridge.Tenant) tenantJSON {
	return tenantJSON{TenantID: t.TenantID, Name: t.Name, Active: t.Active, CdTenantIDs: t.CdTenantIDs}
}

func toUserJSON(u bridge.User) userJSON {
	return userJSON{
		UserID:          u.UserID,
		CanonicalUserID: u.CanonicalUserID,
		TenantID:        u.TenantID,
		Active:          u.Active,
		Username:        u.Username,
		Email:           u.Email,
		Role:            string(u.Role),
		CdUserID:        u.CdUserID,
		CdTenantID:      u.CdTenantID,
	}
}

func toCredentialJSON(c bridge.Credential) credentialJSON {
	return credentialJSON{
		AccessKey:  c.AccessKey,
		SecretKey:  c.SecretKey,
		Active:     c.Active,
		CreateDate: c.CreateDate,
		TenantID:   c.TenantID,
		UserID:     c.UserID,
		CdTenantID: c.CdTenantID,
		CdUserID:   c.CdUserID,
	}
}

func toPage[I any, O any](items []I, pi bridge.PageInfo, conv func(I) O) pageJSON[O] {
	out := make([]O, 0, len(items))
	for _, it := range items {
		out = append(out, conv(it))
	}
	return pageJSON[O]{Items: out, PageInfo: pageInfoJSON(pi)}
}
