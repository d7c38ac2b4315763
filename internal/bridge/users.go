package bridge

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"osbridge/internal/apperr"
	"osbridge/internal/backend"
	"osbridge/internal/paging"
	"osbridge/internal/vault"
)

func userScope(tenantID string) string { return "users:" + tenantID }

// usernameFromPath recovers the display name encoded as the user's path
// segment ("/bob/" -> "bob").
func usernameFromPath(path string) string {
	return strings.Trim(path, "/")
}

func (s *Service) userFrom(tenantID string, u backend.User, active bool) User {
	return User{
		UserID:          u.UserName,
		CanonicalUserID: u.ARN,
		TenantID:        tenantID,
		Active:          active,
		Username:        usernameFromPath(u.Path),
		Role:            RoleTenantUser,
		CdUserID:        u.UserName,
		CdTenantID:      tenantID,
	}
}

// CreateUser provisions the backend user, attaches the tenant's managed
// policy, issues an initial access key and vaults its secret. The fresh
// credential is returned through the credentials listing, not here.
func (s *Service) CreateUser(ctx context.Context, u User) (User, error) {
	if u.TenantID == "" {
		return User{}, apperr.New(apperr.ClassBadRequest, "tenant id is required")
	}
	userID := u.UserID
	if userID == "" {
		userID = uuid.NewString()
	}
	username := u.Username
	if username == "" {
		username = userID
	}
	if strings.ContainsAny(username, "/") {
		return User{}, apperr.Errorf(apperr.ClassBadRequest, "invalid username %q", username)
	}

	var out User
	err := s.orch.WithCredentials(ctx, u.TenantID, func(creds backend.Credentials) error {
		bu, err := s.backend.CreateUser(ctx, creds, userID, "/"+username+"/")
		if err != nil {
			return err
		}
		if err := s.backend.AttachUserPolicy(ctx, creds, userID, s.broker.PolicyARN(u.TenantID)); err != nil {
			return err
		}
		key, err := s.backend.CreateAccessKey(ctx, creds, userID)
		if err != nil {
			return err
		}
		if err := s.vault.Store(ctx, vault.OwnerKey(userID, key.AccessKeyID), key.SecretKey); err != nil {
			return err
		}
		out = s.userFrom(u.TenantID, bu, true)
		out.Email = u.Email
		if u.Role != "" {
			out.Role = u.Role
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return out, nil
}

// GetUser fetches a user and derives its activation state from its access
// keys: active when at least one key is active.
func (s *Service) GetUser(ctx context.Context, tenantID, userID string) (User, error) {
	var out User
	err := s.orch.WithCredentials(ctx, tenantID, func(creds backend.Credentials) error {
		bu, err := s.backend.GetUser(ctx, creds, userID)
		if err != nil {
			return err
		}
		keys, err := s.backend.ListAccessKeys(ctx, creds, userID)
		if err != nil {
			return err
		}
		out = s.userFrom(tenantID, bu, anyActive(keys))
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return out, nil
}

// HeadUser reports existence; absence is not an error, anything else is.
func (s *Service) HeadUser(ctx context.Context, tenantID, userID string) (bool, error) {
	if _, err := s.GetUser(ctx, tenantID, userID); err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) userLister(creds backend.Credentials, pathPrefix string) paging.Lister {
	return func(ctx context.Context, cursor string, maxItems int64) (string, bool, int64, error) {
		page, err := s.backend.ListUsers(ctx, creds, cursor, maxItems, pathPrefix)
		if err != nil {
			return "", false, 0, err
		}
		return page.NextCursor, page.Truncated, int64(len(page.Items)), nil
	}
}

// ListUsers returns one page of a tenant's users; errors collapse to an
// empty page.
func (s *Service) ListUsers(ctx context.Context, tenantID string, offset, limit int64) UserPage {
	return s.listUsers(ctx, tenantID, "", offset, limit, false)
}

// listUsers pages through ListUsers with an optional path prefix. Plain
// listings report the limit as the total; filtered queries (countItems)
// count the returned items instead.
func (s *Service) listUsers(ctx context.Context, tenantID, pathPrefix string, offset, limit int64, countItems bool) UserPage {
	if limit > s.pageSize {
		limit = s.pageSize
	}
	empty := UserPage{Page: PageInfo{Offset: offset, Limit: limit}}
	if offset < 0 || limit <= 0 {
		return empty
	}
	var items []User
	err := s.orch.WithCredentials(ctx, tenantID, func(creds backend.Credentials) error {
		lister := s.userLister(creds, pathPrefix)
		cursor, err := s.cursors.Resolve(ctx, userScope(tenantID), pathPrefix, offset, limit, lister)
		if err != nil {
			return err
		}
		page, err := s.backend.ListUsers(ctx, creds, cursor, limit, pathPrefix)
		if err != nil {
			return err
		}
		s.cursors.Save(ctx, userScope(tenantID), pathPrefix, offset+int64(len(page.Items)), page.NextCursor)
		items = make([]User, 0, len(page.Items))
		for _, bu := range page.Items {
			keys, err := s.backend.ListAccessKeys(ctx, creds, bu.UserName)
			if err != nil {
				return err
			}
			items = append(items, s.userFrom(tenantID, bu, anyActive(keys)))
		}
		return nil
	})
	if err != nil {
		s.logListFailure("users", offset, err)
		return empty
	}
	total := limit
	if countItems {
		total = int64(len(items))
	}
	return UserPage{Items: items, Page: PageInfo{Offset: offset, Limit: limit, Total: total}}
}

// QueryUsers resolves the cd_tenant_id filter to a tenant and narrows by
// display_name: a UUID value addresses a single user by id, the tenant's
// own name selects the full listing, and any other value matches usernames
// by prefix. Failures yield an empty page.
func (s *Service) QueryUsers(ctx context.Context, filter string, offset, limit int64) UserPage {
	empty := UserPage{Page: PageInfo{Offset: offset, Limit: limit}}
	f := parseFilter(filter)
	ext, ok := f[FilterCdTenantID]
	if !ok || ext == "" {
		return empty
	}
	tenantID, err := s.resolveTenantID(ctx, ext)
	if err != nil {
		s.logListFailure("user query", offset, err)
		return empty
	}

	name, ok := f[FilterDisplayName]
	if !ok || name == "" {
		return s.listUsers(ctx, tenantID, "", offset, limit, true)
	}
	if isUUID(name) {
		u, err := s.GetUser(ctx, tenantID, name)
		if err != nil {
			s.logListFailure("user query", offset, err)
			return empty
		}
		return UserPage{Items: []User{u}, Page: PageInfo{Offset: offset, Limit: limit, Total: 1}}
	}
	if t, err := s.GetTenant(ctx, tenantID); err == nil && t.Name == name {
		return s.listUsers(ctx, tenantID, "", offset, limit, true)
	}
	return s.listUsers(ctx, tenantID, "/"+name, offset, limit, true)
}

// UpdateUserStatus flips every access key of the user to the requested
// state and returns the refreshed user.
func (s *Service) UpdateUserStatus(ctx context.Context, tenantID, userID string, active bool) (User, error) {
	err := s.orch.WithCredentials(ctx, tenantID, func(creds backend.Credentials) error {
		keys, err := s.backend.ListAccessKeys(ctx, creds, userID)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if k.Active == active {
				continue
			}
			if err := s.backend.UpdateAccessKeyStatus(ctx, creds, userID, k.AccessKeyID, active); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, tenantID, userID)
}

// DeleteUser removes the user's keys, vault envelopes, policy attachment
// and finally the user itself. Deletion is best effort: individual failures
// are logged, never surfaced, and a missing user is success.
func (s *Service) DeleteUser(ctx context.Context, tenantID, userID string) error {
	err := s.orch.WithCredentials(ctx, tenantID, func(creds backend.Credentials) error {
		keys, err := s.backend.ListAccessKeys(ctx, creds, userID)
		if err != nil && !apperr.IsNotFound(err) {
			s.log.Warnw("listing keys for deletion failed", "tenant", tenantID, "user", userID, "err", err)
		}
		for _, k := range keys {
			if err := s.backend.DeleteAccessKey(ctx, creds, userID, k.AccessKeyID); err != nil {
				s.log.Warnw("access key deletion failed", "user", userID, "key", k.AccessKeyID, "err", err)
			}
			if err := s.vault.Delete(ctx, vault.OwnerKey(userID, k.AccessKeyID)); err != nil {
				s.log.Warnw("vault envelope deletion failed", "user", userID, "key", k.AccessKeyID, "err", err)
			}
		}
		if err := s.backend.DetachUserPolicy(ctx, creds, userID, s.broker.PolicyARN(tenantID)); err != nil && !apperr.IsNotFound(err) {
			s.log.Warnw("policy detach failed", "user", userID, "err", err)
		}
		if err := s.backend.DeleteUser(ctx, creds, userID); err != nil && !apperr.IsNotFound(err) {
			s.log.Warnw("user deletion failed", "user", userID, "err", err)
		}
		return nil
	})
	if err != nil {
		s.log.Warnw("user deletion skipped, no tenant credentials", "tenant", tenantID, "user", userID, "err", err)
	}
	return nil
}

func anyActive(keys []backend.AccessKey) bool {
	for _, k := range keys {
		if k.Active {
			return true
		}
	}
	return false
}
