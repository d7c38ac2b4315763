// Package backendtest provides an in-memory backend.Client for tests. It
// models the parts of the contract the bridge relies on: cursor-only
// listings, per-account roles/policies/users/keys, delegated credentials
// and the reverse access-key lookup. Call counts and injectable failures
// make retry and caching behavior observable.
package backendtest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"osbridge/internal/apperr"
	"osbridge/internal/backend"
)

type policyState struct {
	policy   backend.Policy
	versions map[string]string // versionID -> document
}

type userState struct {
	user     backend.User
	keys     []backend.AccessKey
	policies []string
}

type accountState struct {
	account  backend.Account
	roles    map[string]backend.Role
	policies map[string]*policyState
	users    map[string]*userState
	order    []string // user creation order
	rootKeys map[string]bool
	buckets  []backend.Bucket
}

type Fake struct {
	mu       sync.Mutex
	seq      int
	calls    map[string]int
	failures map[string][]error
	accounts map[string]*accountState
	order    []string                         // account creation order
	creds    map[string]string                // accessKey -> accountID
	owners   map[string]backend.UserIdentity  // accessKey -> owner
}

var _ backend.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		calls:    map[string]int{},
		failures: map[string][]error{},
		accounts: map[string]*accountState{},
		creds:    map[string]string{},
		owners:   map[string]backend.UserIdentity{},
	}
}

// Calls reports how many times op was invoked (including injected failures).
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// FailNext makes the next invocation of op return err.
func (f *Fake) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

func (f *Fake) begin(op string) error {
	f.calls[op]++
	if q := f.failures[op]; len(q) > 0 {
		err := q[0]
		f.failures[op] = q[1:]
		return err
	}
	return nil
}

func (f *Fake) nextID() int {
	f.seq++
	return f.seq
}

// AddAccount seeds an account without going through CreateAccount.
func (f *Fake) AddAccount(a backend.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addAccountLocked(a)
}

func (f *Fake) addAccountLocked(a backend.Account) *accountState {
	st := &accountState{
		account:  a,
		roles:    map[string]backend.Role{},
		policies: map[string]*policyState{},
		users:    map[string]*userState{},
		rootKeys: map[string]bool{},
	}
	f.accounts[a.ID] = st
	f.order = append(f.order, a.ID)
	return st
}

// AddBucket seeds a bucket visible to the account's delegated credentials.
func (f *Fake) AddBucket(accountID string, b backend.Bucket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.accounts[accountID]; ok {
		st.buckets = append(st.buckets, b)
	}
}

// SeedAccounts creates n generic accounts, useful for paging tests.
func (f *Fake) SeedAccounts(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		id := f.nextID()
		f.addAccountLocked(backend.Account{
			ID:   fmt.Sprintf("T%d", id),
			Name: fmt.Sprintf("tenant-%d", id),
		})
	}
}

// ProvisionRole seeds a delegation role as if bootstrap already ran.
func (f *Fake) ProvisionRole(accountID, roleName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.accounts[accountID]; ok {
		st.roles[roleName] = backend.Role{
			Name: roleName,
			ARN:  fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, roleName),
		}
	}
}

// RoleExists reports whether the delegation role was provisioned.
func (f *Fake) RoleExists(accountID, roleName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.accounts[accountID]
	if !ok {
		return false
	}
	_, ok = st.roles[roleName]
	return ok
}

// PolicyDocument returns the default version document of a policy.
func (f *Fake) PolicyDocument(accountID, policyName string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.accounts[accountID]
	if !ok {
		return "", false
	}
	ps, ok := st.policies[policyName]
	if !ok {
		return "", false
	}
	return ps.versions[ps.policy.DefaultVersionID], true
}

// RootKeyCount reports live one-time account keys (should be zero after a
// completed bootstrap).
func (f *Fake) RootKeyCount(accountID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.accounts[accountID]
	if !ok {
		return 0
	}
	return len(st.rootKeys)
}

func (f *Fake) accountForCreds(creds backend.Credentials) (*accountState, error) {
	id, ok := f.creds[creds.AccessKey]
	if !ok {
		return nil, apperr.New(apperr.ClassAuthorizationDenied, "unknown credentials")
	}
	st, ok := f.accounts[id]
	if !ok {
		return nil, apperr.New(apperr.ClassAuthorizationDenied, "credentials for deleted account")
	}
	return st, nil
}

func parseARN(arn string) (accountID, kind, name string) {
	rest := strings.TrimPrefix(arn, "arn:aws:iam::")
	i := strings.Index(rest, ":")
	if i < 0 {
		return "", "", ""
	}
	accountID = rest[:i]
	rest = rest[i+1:]
	if j := strings.Index(rest, "/"); j >= 0 {
		return accountID, rest[:j], rest[j+1:]
	}
	return accountID, rest, ""
}

// ---- account-admin channel ----

func (f *Fake) ListAccounts(ctx context.Context, cursor string, maxItems int64, externalIDFilter string) (backend.AccountPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ListAccounts"); err != nil {
		return backend.AccountPage{}, err
	}
	var ids []string
	if externalIDFilter == "" {
		ids = f.order
	} else {
		for _, id := range f.order {
			for _, ext := range f.accounts[id].account.ExternalIDs {
				if ext == externalIDFilter {
					ids = append(ids, id)
					break
				}
			}
		}
	}
	start := int64(0)
	if cursor != "" {
		start, _ = strconv.ParseInt(cursor, 10, 64)
	}
	if start > int64(len(ids)) {
		start = int64(len(ids))
	}
	end := start + maxItems
	if end > int64(len(ids)) {
		end = int64(len(ids))
	}
	page := backend.AccountPage{}
	for _, id := range ids[start:end] {
		page.Items = append(page.Items, f.accounts[id].account)
	}
	page.Truncated = end < int64(len(ids))
	if page.Truncated || end > start {
		page.NextCursor = strconv.FormatInt(end, 10)
	}
	return page, nil
}

func (f *Fake) GetAccount(ctx context.Context, q backend.AccountQuery) (backend.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("GetAccount"); err != nil {
		return backend.Account{}, err
	}
	if q.ID != "" {
		if st, ok := f.accounts[q.ID]; ok {
			return st.account, nil
		}
		return backend.Account{}, apperr.Errorf(apperr.ClassNotFound, "account %s", q.ID)
	}
	for _, id := range f.order {
		for _, ext := range f.accounts[id].account.ExternalIDs {
			if ext == q.ExternalID {
				return f.accounts[id].account, nil
			}
		}
	}
	return backend.Account{}, apperr.Errorf(apperr.ClassNotFound, "account with external id %s", q.ExternalID)
}

func (f *Fake) CreateAccount(ctx context.Context, name, email, externalID string) (backend.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateAccount"); err != nil {
		return backend.Account{}, err
	}
	for _, id := range f.order {
		if f.accounts[id].account.Name == name {
			return backend.Account{}, apperr.Errorf(apperr.ClassConflict, "account %s exists", name)
		}
	}
	a := backend.Account{
		ID:         fmt.Sprintf("T%d", f.nextID()),
		Name:       name,
		Email:      email,
		CreateDate: time.Now().UTC(),
	}
	if externalID != "" {
		a.ExternalIDs = []string{externalID}
	}
	f.addAccountLocked(a)
	return a, nil
}

func (f *Fake) UpdateAccountAttributes(ctx context.Context, name string, attrs backend.AccountAttributes) (backend.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UpdateAccountAttributes"); err != nil {
		return backend.Account{}, err
	}
	for _, id := range f.order {
		st := f.accounts[id]
		if st.account.Name != name {
			continue
		}
		if attrs.Suspended != nil {
			st.account.Suspended = *attrs.Suspended
		}
		if attrs.ExternalIDs != nil {
			st.account.ExternalIDs = attrs.ExternalIDs
		}
		return st.account, nil
	}
	return backend.Account{}, apperr.Errorf(apperr.ClassNotFound, "account %s", name)
}

func (f *Fake) CreateAccountAccessKey(ctx context.Context, accountID string) (backend.AccessKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateAccountAccessKey"); err != nil {
		return backend.AccessKey{}, err
	}
	st, ok := f.accounts[accountID]
	if !ok {
		return backend.AccessKey{}, apperr.Errorf(apperr.ClassNotFound, "account %s", accountID)
	}
	n := f.nextID()
	key := backend.AccessKey{
		AccessKeyID: fmt.Sprintf("ROOT%d", n),
		SecretKey:   fmt.Sprintf("rootsecret%d", n),
		Active:      true,
		CreateDate:  time.Now().UTC(),
	}
	st.rootKeys[key.AccessKeyID] = true
	f.creds[key.AccessKeyID] = accountID
	return key, nil
}

func (f *Fake) GetUserByAccessKey(ctx context.Context, accessKey string) (backend.UserIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("GetUserByAccessKey"); err != nil {
		return backend.UserIdentity{}, err
	}
	if owner, ok := f.owners[accessKey]; ok {
		return owner, nil
	}
	return backend.UserIdentity{}, apperr.Errorf(apperr.ClassNotFound, "access key %s", accessKey)
}

// ---- STS channel ----

func (f *Fake) AssumeDelegatedRole(ctx context.Context, roleARN string) (backend.DelegatedCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("AssumeDelegatedRole"); err != nil {
		return backend.DelegatedCredential{}, err
	}
	accountID, _, roleName := parseARN(roleARN)
	st, ok := f.accounts[accountID]
	if !ok {
		return backend.DelegatedCredential{}, apperr.Errorf(apperr.ClassNotFound, "account %s", accountID)
	}
	if _, ok := st.roles[roleName]; !ok {
		return backend.DelegatedCredential{}, apperr.Errorf(apperr.ClassNotFound, "role %s", roleARN)
	}
	n := f.nextID()
	dc := backend.DelegatedCredential{
		AccessKey:    fmt.Sprintf("DLG%d", n),
		SecretKey:    fmt.Sprintf("dlgsecret%d", n),
		SessionToken: fmt.Sprintf("token%d", n),
		Expiry:       time.Now().UTC().Add(time.Hour),
	}
	f.creds[dc.AccessKey] = accountID
	return dc, nil
}

// ---- IAM channel ----

func (f *Fake) CreateRole(ctx context.Context, creds backend.Credentials, name, trustPolicy string) (backend.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateRole"); err != nil {
		return backend.Role{}, err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return backend.Role{}, err
	}
	if _, ok := st.roles[name]; ok {
		return backend.Role{}, apperr.Errorf(apperr.ClassConflict, "role %s exists", name)
	}
	role := backend.Role{Name: name, ARN: fmt.Sprintf("arn:aws:iam::%s:role/%s", st.account.ID, name)}
	st.roles[name] = role
	return role, nil
}

func (f *Fake) CreatePolicy(ctx context.Context, creds backend.Credentials, name, document string) (backend.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreatePolicy"); err != nil {
		return backend.Policy{}, err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return backend.Policy{}, err
	}
	if _, ok := st.policies[name]; ok {
		return backend.Policy{}, apperr.Errorf(apperr.ClassConflict, "policy %s exists", name)
	}
	p := backend.Policy{
		Name:             name,
		ARN:              fmt.Sprintf("arn:aws:iam::%s:policy/%s", st.account.ID, name),
		DefaultVersionID: "v1",
	}
	st.policies[name] = &policyState{policy: p, versions: map[string]string{"v1": document}}
	return p, nil
}

func (f *Fake) getPolicy(st *accountState, arn string) (*policyState, error) {
	_, _, name := parseARN(arn)
	ps, ok := st.policies[name]
	if !ok {
		return nil, apperr.Errorf(apperr.ClassNotFound, "policy %s", arn)
	}
	return ps, nil
}

func (f *Fake) GetPolicy(ctx context.Context, creds backend.Credentials, policyARN string) (backend.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("GetPolicy"); err != nil {
		return backend.Policy{}, err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return backend.Policy{}, err
	}
	ps, err := f.getPolicy(st, policyARN)
	if err != nil {
		return backend.Policy{}, err
	}
	return ps.policy, nil
}

func (f *Fake) GetPolicyVersion(ctx context.Context, creds backend.Credentials, policyARN, versionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("GetPolicyVersion"); err != nil {
		return "", err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return "", err
	}
	ps, err := f.getPolicy(st, policyARN)
	if err != nil {
		return "", err
	}
	doc, ok := ps.versions[versionID]
	if !ok {
		return "", apperr.Errorf(apperr.ClassNotFound, "policy version %s", versionID)
	}
	return doc, nil
}

func (f *Fake) CreatePolicyVersion(ctx context.Context, creds backend.Credentials, policyARN, document string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreatePolicyVersion"); err != nil {
		return err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return err
	}
	ps, err := f.getPolicy(st, policyARN)
	if err != nil {
		return err
	}
	v := fmt.Sprintf("v%d", len(ps.versions)+1)
	ps.versions[v] = document
	ps.policy.DefaultVersionID = v
	return nil
}

func (f *Fake) AttachRolePolicy(ctx context.Context, creds backend.Credentials, roleName, policyARN string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("AttachRolePolicy"); err != nil {
		return err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return err
	}
	if _, ok := st.roles[roleName]; !ok {
		return apperr.Errorf(apperr.ClassNotFound, "role %s", roleName)
	}
	if _, err := f.getPolicy(st, policyARN); err != nil {
		return err
	}
	return nil
}

func (f *Fake) AttachUserPolicy(ctx context.Context, creds backend.Credentials, userName, policyARN string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("AttachUserPolicy"); err != nil {
		return err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return err
	}
	us, ok := st.users[userName]
	if !ok {
		return apperr.Errorf(apperr.ClassNotFound, "user %s", userName)
	}
	us.policies = append(us.policies, policyARN)
	return nil
}

func (f *Fake) DetachUserPolicy(ctx context.Context, creds backend.Credentials, userName, policyARN string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("DetachUserPolicy"); err != nil {
		return err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return err
	}
	us, ok := st.users[userName]
	if !ok {
		return apperr.Errorf(apperr.ClassNotFound, "user %s", userName)
	}
	kept := us.policies[:0]
	for _, p := range us.policies {
		if p != policyARN {
			kept = append(kept, p)
		}
	}
	us.policies = kept
	return nil
}

func (f *Fake) CreateUser(ctx context.Context, creds backend.Credentials, userName, path string) (backend.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateUser"); err != nil {
		return backend.User{}, err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return backend.User{}, err
	}
	if _, ok := st.users[userName]; ok {
		return backend.User{}, apperr.Errorf(apperr.ClassConflict, "user %s exists", userName)
	}
	u := backend.User{
		UserName:   userName,
		UserID:     fmt.Sprintf("UID%d", f.nextID()),
		Path:       path,
		ARN:        fmt.Sprintf("arn:aws:iam::%s:user%s%s", st.account.ID, path, userName),
		CreateDate: time.Now().UTC(),
	}
	st.users[userName] = &userState{user: u}
	st.order = append(st.order, userName)
	return u, nil
}

func (f *Fake) GetUser(ctx context.Context, creds backend.Credentials, userName string) (backend.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("GetUser"); err != nil {
		return backend.User{}, err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return backend.User{}, err
	}
	us, ok := st.users[userName]
	if !ok {
		return backend.User{}, apperr.Errorf(apperr.ClassNotFound, "user %s", userName)
	}
	return us.user, nil
}

func (f *Fake) ListUsers(ctx context.Context, creds backend.Credentials, cursor string, maxItems int64, pathPrefix string) (backend.UserPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ListUsers"); err != nil {
		return backend.UserPage{}, err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return backend.UserPage{}, err
	}
	var names []string
	for _, n := range st.order {
		if _, ok := st.users[n]; !ok {
			continue
		}
		if pathPrefix != "" && !strings.HasPrefix(st.users[n].user.Path, pathPrefix) {
			continue
		}
		names = append(names, n)
	}
	start := int64(0)
	if cursor != "" {
		start, _ = strconv.ParseInt(cursor, 10, 64)
	}
	if start > int64(len(names)) {
		start = int64(len(names))
	}
	end := start + maxItems
	if end > int64(len(names)) {
		end = int64(len(names))
	}
	page := backend.UserPage{}
	for _, n := range names[start:end] {
		page.Items = append(page.Items, st.users[n].user)
	}
	page.Truncated = end < int64(len(names))
	if end > start {
		page.NextCursor = strconv.FormatInt(end, 10)
	}
	return page, nil
}

func (f *Fake) DeleteUser(ctx context.Context, creds backend.Credentials, userName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("DeleteUser"); err != nil {
		return err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return err
	}
	if _, ok := st.users[userName]; !ok {
		return apperr.Errorf(apperr.ClassNotFound, "user %s", userName)
	}
	delete(st.users, userName)
	return nil
}

func (f *Fake) CreateAccessKey(ctx context.Context, creds backend.Credentials, userName string) (backend.AccessKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateAccessKey"); err != nil {
		return backend.AccessKey{}, err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return backend.AccessKey{}, err
	}
	us, ok := st.users[userName]
	if !ok {
		return backend.AccessKey{}, apperr.Errorf(apperr.ClassNotFound, "user %s", userName)
	}
	n := f.nextID()
	key := backend.AccessKey{
		AccessKeyID: fmt.Sprintf("AK%d", n),
		SecretKey:   fmt.Sprintf("secret%d", n),
		UserName:    userName,
		Active:      true,
		CreateDate:  time.Now().UTC(),
	}
	us.keys = append(us.keys, key)
	f.owners[key.AccessKeyID] = backend.UserIdentity{AccountID: st.account.ID, UserName: userName}
	return key, nil
}

func (f *Fake) ListAccessKeys(ctx context.Context, creds backend.Credentials, userName string) ([]backend.AccessKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ListAccessKeys"); err != nil {
		return nil, err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return nil, err
	}
	us, ok := st.users[userName]
	if !ok {
		return nil, apperr.Errorf(apperr.ClassNotFound, "user %s", userName)
	}
	out := make([]backend.AccessKey, 0, len(us.keys))
	for _, k := range us.keys {
		k.SecretKey = "" // metadata only after issuance
		out = append(out, k)
	}
	return out, nil
}

func (f *Fake) UpdateAccessKeyStatus(ctx context.Context, creds backend.Credentials, userName, accessKeyID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UpdateAccessKeyStatus"); err != nil {
		return err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return err
	}
	us, ok := st.users[userName]
	if !ok {
		return apperr.Errorf(apperr.ClassNotFound, "user %s", userName)
	}
	for i := range us.keys {
		if us.keys[i].AccessKeyID == accessKeyID {
			us.keys[i].Active = active
			return nil
		}
	}
	return apperr.Errorf(apperr.ClassNotFound, "access key %s", accessKeyID)
}

func (f *Fake) DeleteAccessKey(ctx context.Context, creds backend.Credentials, userName, accessKeyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("DeleteAccessKey"); err != nil {
		return err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return err
	}
	if userName == "" {
		// Caller deleting its own (one-time root) key.
		if st.rootKeys[accessKeyID] {
			delete(st.rootKeys, accessKeyID)
			delete(f.creds, accessKeyID)
			return nil
		}
		return apperr.Errorf(apperr.ClassNotFound, "access key %s", accessKeyID)
	}
	us, ok := st.users[userName]
	if !ok {
		return apperr.Errorf(apperr.ClassNotFound, "user %s", userName)
	}
	for i := range us.keys {
		if us.keys[i].AccessKeyID == accessKeyID {
			us.keys = append(us.keys[:i], us.keys[i+1:]...)
			delete(f.owners, accessKeyID)
			return nil
		}
	}
	return apperr.Errorf(apperr.ClassNotFound, "access key %s", accessKeyID)
}

// ---- S3 channel ----

func (f *Fake) ListBuckets(ctx context.Context, creds backend.Credentials) ([]backend.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ListBuckets"); err != nil {
		return nil, err
	}
	st, err := f.accountForCreds(creds)
	if err != nil {
		return nil, err
	}
	return append([]backend.Bucket(nil), st.buckets...), nil
}
