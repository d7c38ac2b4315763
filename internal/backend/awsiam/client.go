// Package awsiam implements the backend contract against an IAM/STS-shaped
// identity service plus a vendor admin REST channel for account management.
// IAM calls are signed with whatever credentials the caller supplies, so the
// same client serves root, bootstrap and delegated-credential traffic.
package awsiam

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"osbridge/internal/backend"
)

type Config struct {
	AdminEndpoint string
	AdminToken    string
	IAMEndpoint   string
	STSEndpoint   string
	S3Endpoint    string
	Region        string
	RootAccessKey string
	RootSecretKey string
	HTTPTimeout   time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.SugaredLogger
}

var _ backend.Client = (*Client)(nil)

func New(cfg Config, log *zap.SugaredLogger) *Client {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}, log: log}
}

func (c *Client) provider(creds backend.Credentials) aws.CredentialsProvider {
	if creds.IsZero() {
		creds = backend.Credentials{AccessKey: c.cfg.RootAccessKey, SecretKey: c.cfg.RootSecretKey}
	}
	return credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, creds.SessionToken)
}

func (c *Client) iam(creds backend.Credentials) *iam.Client {
	return iam.New(iam.Options{
		Region:       c.cfg.Region,
		BaseEndpoint: aws.String(c.cfg.IAMEndpoint),
		Credentials:  c.provider(creds),
		HTTPClient:   c.http,
	})
}

func (c *Client) sts() *sts.Client {
	return sts.New(sts.Options{
		Region:       c.cfg.Region,
		BaseEndpoint: aws.String(c.cfg.STSEndpoint),
		Credentials:  c.provider(backend.Credentials{}),
		HTTPClient:   c.http,
	})
}

func (c *Client) s3(creds backend.Credentials) *s3.Client {
	return s3.New(s3.Options{
		Region:       c.cfg.Region,
		BaseEndpoint: aws.String(c.cfg.S3Endpoint),
		Credentials:  c.provider(creds),
		HTTPClient:   c.http,
		UsePathStyle: true,
	})
}

func (c *Client) AssumeDelegatedRole(ctx context.Context, roleARN string) (backend.DelegatedCredential, error) {
	out, err := c.sts().AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String("osbridge"),
	})
	if err != nil {
		return backend.DelegatedCredential{}, classify(err, "assume role")
	}
	dc := backend.DelegatedCredential{
		AccessKey:    aws.ToString(out.Credentials.AccessKeyId),
		SecretKey:    aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken: aws.ToString(out.Credentials.SessionToken),
	}
	if out.Credentials.Expiration != nil {
		dc.Expiry = *out.Credentials.Expiration
	}
	return dc, nil
}

func (c *Client) CreateRole(ctx context.Context, creds backend.Credentials, name, trustPolicy string) (backend.Role, error) {
	out, err := c.iam(creds).CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(trustPolicy),
	})
	if err != nil {
		return backend.Role{}, classify(err, "create role")
	}
	return backend.Role{Name: aws.ToString(out.Role.RoleName), ARN: aws.ToString(out.Role.Arn)}, nil
}

func (c *Client) CreatePolicy(ctx context.Context, creds backend.Credentials, name, document string) (backend.Policy, error) {
	out, err := c.iam(creds).CreatePolicy(ctx, &iam.CreatePolicyInput{
		PolicyName:     aws.String(name),
		PolicyDocument: aws.String(document),
	})
	if err != nil {
		return backend.Policy{}, classify(err, "create policy")
	}
	return backend.Policy{
		Name:             aws.ToString(out.Policy.PolicyName),
		ARN:              aws.ToString(out.Policy.Arn),
		DefaultVersionID: aws.ToString(out.Policy.DefaultVersionId),
	}, nil
}

func (c *Client) GetPolicy(ctx context.Context, creds backend.Credentials, policyARN string) (backend.Policy, error) {
	out, err := c.iam(creds).GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: aws.String(policyARN)})
	if err != nil {
		return backend.Policy{}, classify(err, "get policy")
	}
	return backend.Policy{
		Name:             aws.ToString(out.Policy.PolicyName),
		ARN:              aws.ToString(out.Policy.Arn),
		DefaultVersionID: aws.ToString(out.Policy.DefaultVersionId),
	}, nil
}

func (c *Client) GetPolicyVersion(ctx context.Context, creds backend.Credentials, policyARN, versionID string) (string, error) {
	out, err := c.iam(creds).GetPolicyVersion(ctx, &iam.GetPolicyVersionInput{
		PolicyArn: aws.String(policyARN),
		VersionId: aws.String(versionID),
	})
	if err != nil {
		return "", classify(err, "get policy version")
	}
	// IAM returns the document URL-encoded.
	doc, err := url.QueryUnescape(aws.ToString(out.PolicyVersion.Document))
	if err != nil {
		return aws.ToString(out.PolicyVersion.Document), nil
	}
	return doc, nil
}

func (c *Client) CreatePolicyVersion(ctx context.Context, creds backend.Credentials, policyARN, document string) error {
	_, err := c.iam(creds).CreatePolicyVersion(ctx, &iam.CreatePolicyVersionInput{
		PolicyArn:      aws.String(policyARN),
		PolicyDocument: aws.String(document),
		SetAsDefault:   true,
	})
	return classify(err, "create policy version")
}

func (c *Client) AttachRolePolicy(ctx context.Context, creds backend.Credentials, roleName, policyARN string) error {
	_, err := c.iam(creds).AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyARN),
	})
	return classify(err, "attach role policy")
}

func (c *Client) AttachUserPolicy(ctx context.Context, creds backend.Credentials, userName, policyARN string) error {
	_, err := c.iam(creds).AttachUserPolicy(ctx, &iam.AttachUserPolicyInput{
		UserName:  aws.String(userName),
		PolicyArn: aws.String(policyARN),
	})
	return classify(err, "attach user policy")
}

func (c *Client) DetachUserPolicy(ctx context.Context, creds backend.Credentials, userName, policyARN string) error {
	_, err := c.iam(creds).DetachUserPolicy(ctx, &iam.DetachUserPolicyInput{
		UserName:  aws.String(userName),
		PolicyArn: aws.String(policyARN),
	})
	return classify(err, "detach user policy")
}

func (c *Client) CreateUser(ctx context.Context, creds backend.Credentials, userName, path string) (backend.User, error) {
	out, err := c.iam(creds).CreateUser(ctx, &iam.CreateUserInput{
		UserName: aws.String(userName),
		Path:     aws.String(path),
	})
	if err != nil {
		return backend.User{}, classify(err, "create user")
	}
	return userFrom(out.User), nil
}

func (c *Client) GetUser(ctx context.Context, creds backend.Credentials, userName string) (backend.User, error) {
	out, err := c.iam(creds).GetUser(ctx, &iam.GetUserInput{UserName: aws.String(userName)})
	if err != nil {
		return backend.User{}, classify(err, "get user")
	}
	return userFrom(out.User), nil
}

func (c *Client) ListUsers(ctx context.Context, creds backend.Credentials, cursor string, maxItems int64, pathPrefix string) (backend.UserPage, error) {
	in := &iam.ListUsersInput{MaxItems: aws.Int32(int32(maxItems))}
	if cursor != "" {
		in.Marker = aws.String(cursor)
	}
	if pathPrefix != "" {
		in.PathPrefix = aws.String(pathPrefix)
	}
	out, err := c.iam(creds).ListUsers(ctx, in)
	if err != nil {
		return backend.UserPage{}, classify(err, "list users")
	}
	page := backend.UserPage{Truncated: out.IsTruncated, NextCursor: aws.ToString(out.Marker)}
	for i := range out.Users {
		page.Items = append(page.Items, userFrom(&out.Users[i]))
	}
	return page, nil
}

func (c *Client) DeleteUser(ctx context.Context, creds backend.Credentials, userName string) error {
	_, err := c.iam(creds).DeleteUser(ctx, &iam.DeleteUserInput{UserName: aws.String(userName)})
	return classify(err, "delete user")
}

func (c *Client) CreateAccessKey(ctx context.Context, creds backend.Credentials, userName string) (backend.AccessKey, error) {
	in := &iam.CreateAccessKeyInput{}
	if userName != "" {
		in.UserName = aws.String(userName)
	}
	out, err := c.iam(creds).CreateAccessKey(ctx, in)
	if err != nil {
		return backend.AccessKey{}, classify(err, "create access key")
	}
	k := backend.AccessKey{
		AccessKeyID: aws.ToString(out.AccessKey.AccessKeyId),
		SecretKey:   aws.ToString(out.AccessKey.SecretAccessKey),
		UserName:    aws.ToString(out.AccessKey.UserName),
		Active:      out.AccessKey.Status == iamtypes.StatusTypeActive,
	}
	if out.AccessKey.CreateDate != nil {
		k.CreateDate = *out.AccessKey.CreateDate
	}
	return k, nil
}

func (c *Client) ListAccessKeys(ctx context.Context, creds backend.Credentials, userName string) ([]backend.AccessKey, error) {
	out, err := c.iam(creds).ListAccessKeys(ctx, &iam.ListAccessKeysInput{UserName: aws.String(userName)})
	if err != nil {
		return nil, classify(err, "list access keys")
	}
	keys := make([]backend.AccessKey, 0, len(out.AccessKeyMetadata))
	for _, m := range out.AccessKeyMetadata {
		k := backend.AccessKey{
			AccessKeyID: aws.ToString(m.AccessKeyId),
			UserName:    aws.ToString(m.UserName),
			Active:      m.Status == iamtypes.StatusTypeActive,
		}
		if m.CreateDate != nil {
			k.CreateDate = *m.CreateDate
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (c *Client) UpdateAccessKeyStatus(ctx context.Context, creds backend.Credentials, userName, accessKeyID string, active bool) error {
	status := iamtypes.StatusTypeInactive
	if active {
		status = iamtypes.StatusTypeActive
	}
	_, err := c.iam(creds).UpdateAccessKey(ctx, &iam.UpdateAccessKeyInput{
		UserName:    aws.String(userName),
		AccessKeyId: aws.String(accessKeyID),
		Status:      status,
	})
	return classify(err, "update access key")
}

func (c *Client) DeleteAccessKey(ctx context.Context, creds backend.Credentials, userName, accessKeyID string) error {
	in := &iam.DeleteAccessKeyInput{AccessKeyId: aws.String(accessKeyID)}
	if userName != "" {
		in.UserName = aws.String(userName)
	}
	_, err := c.iam(creds).DeleteAccessKey(ctx, in)
	return classify(err, "delete access key")
}

func (c *Client) ListBuckets(ctx context.Context, creds backend.Credentials) ([]backend.Bucket, error) {
	out, err := c.s3(creds).ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, classify(err, "list buckets")
	}
	buckets := make([]backend.Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		bucket := backend.Bucket{Name: aws.ToString(b.Name)}
		if b.CreationDate != nil {
			bucket.CreationDate = *b.CreationDate
		}
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}

func userFrom(u *iamtypes.User) backend.User {
	out := backend.User{
		UserName: aws.ToString(u.UserName),
		UserID:   aws.ToString(u.UserId),
		Path:     aws.ToString(u.Path),
		ARN:      aws.ToString(u.Arn),
	}
	if u.CreateDate != nil {
		out.CreateDate = *u.CreateDate
	}
	return out
}
