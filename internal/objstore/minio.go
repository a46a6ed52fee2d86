package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/tags"
)

// Options hold the settings needed to construct a client for one endpoint.
type Options struct {
	// Endpoint is a URL or host:port. Empty means the AWS S3 default.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// AsyncCredentialUpdate gates the on-demand-refreshing IAM provider in
	// the credential chain.
	AsyncCredentialUpdate bool
}

const defaultEndpoint = "s3.amazonaws.com"

// minioClient implements Client using an S3-compatible backend
// (MinIO, AWS S3, etc.). It is safe for concurrent use.
type minioClient struct {
	core *minio.Core
}

// New creates a client for the endpoint described by opts. An unparseable
// endpoint is a *ConfigError.
func New(opts Options) (Client, error) {
	host, secure, err := endpointHost(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	core, err := minio.NewCore(host, &minio.Options{
		Creds:  newCredentialChain(opts),
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &minioClient{core: core}, nil
}

// endpointHost reduces a configured endpoint to the host[:port] form the
// client constructor expects. Plain hosts default to TLS.
func endpointHost(endpoint string) (host string, secure bool, err error) {
	if endpoint == "" {
		return defaultEndpoint, true, nil
	}
	if !strings.Contains(endpoint, "://") {
		return endpoint, true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", false, &ConfigError{Reason: "invalid endpoint URI: " + endpoint}
	}
	return u.Host, u.Scheme != "http", nil
}

// newCredentialChain resolves credentials in the same order as the original
// deployment: an explicitly configured static pair first, then process
// environment, shared credential files, and finally instance metadata.
func newCredentialChain(opts Options) *credentials.Credentials {
	var providers []credentials.Provider
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		providers = append(providers, &credentials.Static{
			Value: credentials.Value{
				AccessKeyID:     opts.AccessKeyID,
				SecretAccessKey: opts.SecretAccessKey,
				SignerType:      credentials.SignatureV4,
			},
		})
	}
	providers = append(providers,
		&credentials.EnvAWS{},
		&credentials.EnvMinio{},
		&credentials.FileAWSCredentials{},
	)
	if opts.AsyncCredentialUpdate {
		providers = append(providers, &credentials.IAM{})
	}
	return credentials.NewChainCredentials(providers)
}

func (c *minioClient) Stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	info, err := c.core.Client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, mapError(err)
	}
	return convertInfo(info), nil
}

func (c *minioClient) Get(ctx context.Context, bucket, key string, opts GetOptions) (io.ReadCloser, ObjectInfo, error) {
	getOpts := minio.GetObjectOptions{}
	if opts.HasRange {
		if err := getOpts.SetRange(opts.RangeStart, opts.RangeEnd); err != nil {
			return nil, ObjectInfo{}, fmt.Errorf("set range: %w", err)
		}
	}
	if !opts.IfModifiedSince.IsZero() {
		if err := getOpts.SetModified(opts.IfModifiedSince); err != nil {
			return nil, ObjectInfo{}, fmt.Errorf("set if-modified-since: %w", err)
		}
	}
	rc, info, _, err := c.core.GetObject(ctx, bucket, key, getOpts)
	if err != nil {
		return nil, ObjectInfo{}, mapError(err)
	}
	return rc, convertInfo(info), nil
}

func (c *minioClient) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) error {
	_, err := c.core.Client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType:     opts.ContentType,
		ContentEncoding: opts.ContentEncoding,
	})
	return mapError(err)
}

func (c *minioClient) Delete(ctx context.Context, bucket, key string) error {
	return mapError(c.core.Client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}))
}

func (c *minioClient) Walk(ctx context.Context, bucket, prefix string, fn func(ObjectInfo) error) error {
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	for obj := range c.core.Client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return mapError(obj.Err)
		}
		if err := fn(convertInfo(obj)); err != nil {
			return err
		}
	}
	return nil
}

func (c *minioClient) GetTags(ctx context.Context, bucket, key string) (map[string]string, error) {
	t, err := c.core.Client.GetObjectTagging(ctx, bucket, key, minio.GetObjectTaggingOptions{})
	if err != nil {
		return nil, mapError(err)
	}
	return t.ToMap(), nil
}

func (c *minioClient) PutTags(ctx context.Context, bucket, key string, tagSet map[string]string) error {
	t, err := tags.NewTags(tagSet, true)
	if err != nil {
		return fmt.Errorf("build tag set: %w", err)
	}
	return mapError(c.core.Client.PutObjectTagging(ctx, bucket, key, t, minio.PutObjectTaggingOptions{}))
}

func (c *minioClient) CreateMultipart(ctx context.Context, bucket, key string, opts PutOptions) (string, error) {
	uploadID, err := c.core.NewMultipartUpload(ctx, bucket, key, minio.PutObjectOptions{
		ContentType:     opts.ContentType,
		ContentEncoding: opts.ContentEncoding,
	})
	if err != nil {
		return "", mapError(err)
	}
	return uploadID, nil
}

func (c *minioClient) UploadPart(ctx context.Context, bucket, key, uploadID string, number int, data []byte) (Part, error) {
	part, err := c.core.PutObjectPart(ctx, bucket, key, uploadID, number,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectPartOptions{})
	if err != nil {
		return Part{}, mapError(err)
	}
	return Part{Number: part.PartNumber, ETag: part.ETag}, nil
}

func (c *minioClient) CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []Part) error {
	completed := make([]minio.CompletePart, len(parts))
	for i, p := range parts {
		completed[i] = minio.CompletePart{PartNumber: p.Number, ETag: p.ETag}
	}
	_, err := c.core.CompleteMultipartUpload(ctx, bucket, key, uploadID, completed, minio.PutObjectOptions{})
	return mapError(err)
}

func (c *minioClient) AbortMultipart(ctx context.Context, bucket, key, uploadID string) error {
	return mapError(c.core.AbortMultipartUpload(ctx, bucket, key, uploadID))
}

func convertInfo(info minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}
}
