package objstore

import (
	"context"
	"io"
	"time"
)

// Package objstore contains the object-store client abstraction consumed by
// the cache and source layers. Implementations are S3-compatible and must
// surface the structured errors defined in errors.go.

// ObjectInfo contains basic information about one remote object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// GetOptions define optional parameters for fetching an object.
// A range is inclusive on both ends, matching the HTTP Range header.
type GetOptions struct {
	HasRange        bool
	RangeStart      int64
	RangeEnd        int64
	IfModifiedSince time.Time
}

// PutOptions define optional parameters for uploading an object.
type PutOptions struct {
	ContentType     string
	ContentEncoding string
}

// Part identifies one completed part of a multipart upload.
type Part struct {
	Number int
	ETag   string
}

// Client is a reusable, S3-compatible object storage client. One instance
// serves one logical endpoint and is safe for concurrent use by multiple
// goroutines. Methods return the sentinel errors from errors.go where the
// backend distinguishes the condition.
type Client interface {
	// Stat returns the size, last-modified time, and content type of an object.
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
	// Get retrieves an object (or a byte range of it) as a streaming reader
	// alongside its info. The conditional fetch in opts maps to
	// If-Modified-Since; a condition miss returns ErrNotModified.
	Get(ctx context.Context, bucket, key string, opts GetOptions) (io.ReadCloser, ObjectInfo, error)
	// Put uploads an object in a single request.
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) error
	// Delete removes an object by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, bucket, key string) error
	// Walk invokes fn for every object under prefix, following list
	// pagination. A non-nil error from fn stops the walk.
	Walk(ctx context.Context, bucket, prefix string, fn func(ObjectInfo) error) error

	// GetTags returns the object's tag set.
	GetTags(ctx context.Context, bucket, key string) (map[string]string, error)
	// PutTags replaces the object's tag set.
	PutTags(ctx context.Context, bucket, key string, tags map[string]string) error

	// CreateMultipart starts a multipart upload transaction and returns its id.
	CreateMultipart(ctx context.Context, bucket, key string, opts PutOptions) (string, error)
	// UploadPart uploads one part. Part numbers are 1-based.
	UploadPart(ctx context.Context, bucket, key, uploadID string, number int, data []byte) (Part, error)
	// CompleteMultipart finalizes the transaction from the ordered part list.
	CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []Part) error
	// AbortMultipart undoes the transaction, discarding uploaded parts.
	AbortMultipart(ctx context.Context, bucket, key, uploadID string) error
}
