package bridge

import (
	"context"

	"osbridge/internal/apperr"
	"osbridge/internal/backend"
	"osbridge/internal/vault"
)

func credFromKey(tenantID, userID string, k backend.AccessKey, secret string) Credential {
	return Credential{
		AccessKey:  k.AccessKeyID,
		SecretKey:  secret,
		Active:     k.Active,
		CreateDate: k.CreateDate,
		TenantID:   tenantID,
		UserID:     userID,
		CdTenantID: tenantID,
		CdUserID:   userID,
	}
}

// CreateCredential issues a fresh access key and vaults its secret before
// returning it. The secret is visible here and on subsequent listings only
// as long as its envelope survives.
func (s *Service) CreateCredential(ctx context.Context, tenantID, userID string) (Credential, error) {
	var out Credential
	err := s.orch.WithCredentials(ctx, tenantID, func(creds backend.Credentials) error {
		key, err := s.backend.CreateAccessKey(ctx, creds, userID)
		if err != nil {
			return err
		}
		if err := s.vault.Store(ctx, vault.OwnerKey(userID, key.AccessKeyID), key.SecretKey); err != nil {
			return err
		}
		out = credFromKey(tenantID, userID, key, key.SecretKey)
		return nil
	})
	if err != nil {
		return Credential{}, err
	}
	return out, nil
}

// collectCredentials materializes the user's keys with vaulted secrets and
// reports how many secrets were recoverable.
func (s *Service) collectCredentials(ctx context.Context, creds backend.Credentials, tenantID, userID string) ([]Credential, int, error) {
	keys, err := s.backend.ListAccessKeys(ctx, creds, userID)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Credential, 0, len(keys))
	recoverable := 0
	for _, k := range keys {
		secret, ok, err := s.vault.Retrieve(ctx, vault.OwnerKey(userID, k.AccessKeyID))
		if err != nil {
			return nil, 0, err
		}
		if ok {
			recoverable++
		} else {
			secret = SecretNotAvailable
		}
		out = append(out, credFromKey(tenantID, userID, k, secret))
	}
	return out, recoverable, nil
}

// ListCredentials returns the user's credentials one page at a time. If
// none of the existing secrets is recoverable a fresh key is minted first,
// so a caller always leaves with at least one usable credential. Errors
// collapse to an empty page.
func (s *Service) ListCredentials(ctx context.Context, tenantID, userID string, offset, limit int64) CredentialPage {
	if limit > s.pageSize {
		limit = s.pageSize
	}
	empty := CredentialPage{Page: PageInfo{Offset: offset, Limit: limit}}
	if offset < 0 || limit <= 0 {
		return empty
	}
	var all []Credential
	err := s.orch.WithCredentials(ctx, tenantID, func(creds backend.Credentials) error {
		var recoverable int
		var err error
		all, recoverable, err = s.collectCredentials(ctx, creds, tenantID, userID)
		if err != nil {
			return err
		}
		if recoverable == 0 {
			key, err := s.backend.CreateAccessKey(ctx, creds, userID)
			if err != nil {
				return err
			}
			if err := s.vault.Store(ctx, vault.OwnerKey(userID, key.AccessKeyID), key.SecretKey); err != nil {
				return err
			}
			all = append(all, credFromKey(tenantID, userID, key, key.SecretKey))
		}
		return nil
	})
	if err != nil {
		s.logListFailure("credentials", offset, err)
		return empty
	}
	items := pageSlice(all, offset, limit)
	return CredentialPage{Items: items, Page: PageInfo{Offset: offset, Limit: limit, Total: int64(len(items))}}
}

// QueryCredentials narrows by cd_tenant_id and cd_user_id; both are
// required. Failures yield an empty page.
func (s *Service) QueryCredentials(ctx context.Context, filter string, offset, limit int64) CredentialPage {
	empty := CredentialPage{Page: PageInfo{Offset: offset, Limit: limit}}
	f := parseFilter(filter)
	ext, ok := f[FilterCdTenantID]
	if !ok || ext == "" {
		return empty
	}
	userID, ok := f[FilterCdUserID]
	if !ok || userID == "" {
		return empty
	}
	tenantID, err := s.resolveTenantID(ctx, ext)
	if err != nil {
		s.logListFailure("credential query", offset, err)
		return empty
	}
	return s.ListCredentials(ctx, tenantID, userID, offset, limit)
}

// GetCredential addresses a credential by its access key alone, reverse
// mapping the key to its owner first.
func (s *Service) GetCredential(ctx context.Context, accessKey string) (Credential, error) {
	owner, err := s.backend.GetUserByAccessKey(ctx, accessKey)
	if err != nil {
		return Credential{}, err
	}
	return s.getCredentialForUser(ctx, owner.AccountID, owner.UserName, accessKey)
}

func (s *Service) getCredentialForUser(ctx context.Context, tenantID, userID, accessKey string) (Credential, error) {
	var out Credential
	found := false
	err := s.orch.WithCredentials(ctx, tenantID, func(creds backend.Credentials) error {
		keys, err := s.backend.ListAccessKeys(ctx, creds, userID)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if k.AccessKeyID != accessKey {
				continue
			}
			secret, ok, err := s.vault.Retrieve(ctx, vault.OwnerKey(userID, accessKey))
			if err != nil {
				return err
			}
			if !ok {
				secret = SecretNotAvailable
			}
			out = credFromKey(tenantID, userID, k, secret)
			found = true
			return nil
		}
		return nil
	})
	if err != nil {
		return Credential{}, err
	}
	if !found {
		return Credential{}, apperr.Errorf(apperr.ClassNotFound, "access key %s not found", accessKey)
	}
	return out, nil
}

// UpdateCredentialStatus activates or deactivates a single access key.
func (s *Service) UpdateCredentialStatus(ctx context.Context, tenantID, userID, accessKey string, active bool) (Credential, error) {
	err := s.orch.WithCredentials(ctx, tenantID, func(creds backend.Credentials) error {
		return s.backend.UpdateAccessKeyStatus(ctx, creds, userID, accessKey, active)
	})
	if err != nil {
		return Credential{}, err
	}
	return s.getCredentialForUser(ctx, tenantID, userID, accessKey)
}

// DeleteCredential removes the key and its vault envelope. Best effort: a
// missing key or envelope is success, other failures are logged only.
func (s *Service) DeleteCredential(ctx context.Context, tenantID, userID, accessKey string) error {
	err := s.orch.WithCredentials(ctx, tenantID, func(creds backend.Credentials) error {
		if err := s.backend.DeleteAccessKey(ctx, creds, userID, accessKey); err != nil && !apperr.IsNotFound(err) {
			s.log.Warnw("access key deletion failed", "user", userID, "key", accessKey, "err", err)
		}
		if err := s.vault.Delete(ctx, vault.OwnerKey(userID, accessKey)); err != nil {
			s.log.Warnw("vault envelope deletion failed", "user", userID, "key", accessKey, "err", err)
		}
		return nil
	})
	if err != nil {
		s.log.Warnw("credential deletion skipped, no tenant credentials", "tenant", tenantID, "user", userID, "err", err)
	}
	return nil
}

// ListBuckets lists the tenant's buckets under delegated credentials.
func (s *Service) ListBuckets(ctx context.Context, tenantID string) ([]BucketInfo, error) {
	var out []BucketInfo
	err := s.orch.WithCredentials(ctx, tenantID, func(creds backend.Credentials) error {
		buckets, err := s.backend.ListBuckets(ctx, creds)
		if err != nil {
			return err
		}
		out = make([]BucketInfo, 0, len(buckets))
		for _, b := range buckets {
			out = append(out, BucketInfo{Name: b.Name, CreationDate: b.CreationDate})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func pageSlice(all []Credential, offset, limit int64) []Credential {
	if offset >= int64(len(all)) {
		return nil
	}
	end := offset + limit
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	return all[offset:end]
}
