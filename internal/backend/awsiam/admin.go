// Account-admin REST channel. The backend manages accounts outside IAM
// through a small JSON API authenticated with a service token.
package awsiam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"osbridge/internal/backend"
)

type wireAccount struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Suspended   bool      `json:"suspended"`
	ExternalIDs []string  `json:"external_ids"`
	CreateDate  time.Time `json:"create_date"`
}

func (w wireAccount) toAccount() backend.Account {
	return backend.Account{
		ID:          w.ID,
		Name:        w.Name,
		Email:       w.Email,
		Suspended:   w.Suspended,
		ExternalIDs: w.ExternalIDs,
		CreateDate:  w.CreateDate,
	}
}

type wireAccountPage struct {
	Accounts   []wireAccount `json:"accounts"`
	NextMarker string        `json:"next_marker"`
	Truncated  bool          `json:"truncated"`
}

type wireAccessKey struct {
	AccessKeyID string    `json:"access_key_id"`
	SecretKey   string    `json:"secret_key"`
	UserName    string    `json:"user_name"`
	Active      bool      `json:"active"`
	CreateDate  time.Time `json:"create_date"`
}

type wireKeyOwner struct {
	AccountID string `json:"account_id"`
	UserName  string `json:"user_name"`
}

func (c *Client) adminDo(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return classifyStatus(0, err, op)
		}
		rd = bytes.NewReader(b)
	}
	u := c.cfg.AdminEndpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return classifyStatus(0, err, op)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.AdminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AdminToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyStatus(0, err, op)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return classifyStatus(resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, msg), op)
	}
	if out == nil {
		return nil
	}
	return classifyStatus(0, json.NewDecoder(resp.Body).Decode(out), op)
}

func (c *Client) ListAccounts(ctx context.Context, cursor string, maxItems int64, externalIDFilter string) (backend.AccountPage, error) {
	q := url.Values{}
	q.Set("max-entries", strconv.FormatInt(maxItems, 10))
	if cursor != "" {
		q.Set("marker", cursor)
	}
	if externalIDFilter != "" {
		q.Set("external-id", externalIDFilter)
	}
	var wp wireAccountPage
	if err := c.adminDo(ctx, http.MethodGet, "/admin/accounts", q, nil, &wp); err != nil {
		return backend.AccountPage{}, err
	}
	page := backend.AccountPage{NextCursor: wp.NextMarker, Truncated: wp.Truncated}
	for _, a := range wp.Accounts {
		page.Items = append(page.Items, a.toAccount())
	}
	return page, nil
}

func (c *Client) GetAccount(ctx context.Context, query backend.AccountQuery) (backend.Account, error) {
	var wa wireAccount
	if query.ID != "" {
		if err := c.adminDo(ctx, http.MethodGet, "/admin/accounts/"+url.PathEscape(query.ID), nil, nil, &wa); err != nil {
			return backend.Account{}, err
		}
		return wa.toAccount(), nil
	}
	q := url.Values{}
	q.Set("external-id", query.ExternalID)
	if err := c.adminDo(ctx, http.MethodGet, "/admin/accounts", q, nil, &wa); err != nil {
		return backend.Account{}, err
	}
	return wa.toAccount(), nil
}

func (c *Client) CreateAccount(ctx context.Context, name, email, externalID string) (backend.Account, error) {
	body := map[string]string{"name": name, "email": email}
	if externalID != "" {
		body["external_id"] = externalID
	}
	var wa wireAccount
	if err := c.adminDo(ctx, http.MethodPost, "/admin/accounts", nil, body, &wa); err != nil {
		return backend.Account{}, err
	}
	return wa.toAccount(), nil
}

func (c *Client) UpdateAccountAttributes(ctx context.Context, name string, attrs backend.AccountAttributes) (backend.Account, error) {
	body := map[string]any{}
	if attrs.Suspended != nil {
		body["suspended"] = *attrs.Suspended
	}
	if attrs.ExternalIDs != nil {
		body["external_ids"] = attrs.ExternalIDs
	}
	var wa wireAccount
	if err := c.adminDo(ctx, http.MethodPut, "/admin/accounts/"+url.PathEscape(name)+"/attributes", nil, body, &wa); err != nil {
		return backend.Account{}, err
	}
	return wa.toAccount(), nil
}

func (c *Client) CreateAccountAccessKey(ctx context.Context, accountID string) (backend.AccessKey, error) {
	var wk wireAccessKey
	if err := c.adminDo(ctx, http.MethodPost, "/admin/accounts/"+url.PathEscape(accountID)+"/keys", nil, nil, &wk); err != nil {
		return backend.AccessKey{}, err
	}
	return backend.AccessKey{
		AccessKeyID: wk.AccessKeyID,
		SecretKey:   wk.SecretKey,
		UserName:    wk.UserName,
		Active:      wk.Active,
		CreateDate:  wk.CreateDate,
	}, nil
}

func (c *Client) GetUserByAccessKey(ctx context.Context, accessKey string) (backend.UserIdentity, error) {
	var wo wireKeyOwner
	if err := c.adminDo(ctx, http.MethodGet, "/admin/keys/"+url.PathEscape(accessKey)+"/owner", nil, nil, &wo); err != nil {
		return backend.UserIdentity{}, err
	}
	return backend.UserIdentity{AccountID: wo.AccountID, UserName: wo.UserName}, nil
}
