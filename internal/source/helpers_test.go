package source

import (
	"bytes"
	"context"
	"io"
	"sync"

	"varcache/internal/objstore"
)

// fakeObjectClient serves one in-memory object and records the Get options
// of every request, so tests can assert on alignment and request counts.
// Methods outside the read path are inherited from the nil embedded
// interface and panic when reached.
type fakeObjectClient struct {
	objstore.Client

	mu          sync.Mutex
	body        []byte
	contentType string
	requests    []objstore.GetOptions

	statErr error
	getErr  error
}

func (f *fakeObjectClient) Stat(ctx context.Context, bucket, key string) (objstore.ObjectInfo, error) {
	if f.statErr != nil {
		return objstore.ObjectInfo{}, f.statErr
	}
	return objstore.ObjectInfo{
		Key:         key,
		Size:        int64(len(f.body)),
		ContentType: f.contentType,
	}, nil
}

func (f *fakeObjectClient) Get(ctx context.Context, bucket, key string, opts objstore.GetOptions) (io.ReadCloser, objstore.ObjectInfo, error) {
	f.mu.Lock()
	f.requests = append(f.requests, opts)
	f.mu.Unlock()

	if f.getErr != nil {
		return nil, objstore.ObjectInfo{}, f.getErr
	}
	body := f.body
	if opts.HasRange {
		start, end := opts.RangeStart, opts.RangeEnd+1
		if end > int64(len(body)) {
			end = int64(len(body))
		}
		if start > int64(len(body)) {
			start = int64(len(body))
		}
		body = body[start:end]
	}
	info := objstore.ObjectInfo{Key: key, Size: int64(len(body)), ContentType: f.contentType}
	return io.NopCloser(bytes.NewReader(body)), info, nil
}

func (f *fakeObjectClient) getRequests() []objstore.GetOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]objstore.GetOptions, len(f.requests))
	copy(out, f.requests)
	return out
}

// newFakeRegistry wires the fake client behind a registry so the code under
// test resolves it like any other endpoint.
func newFakeRegistry(fake *fakeObjectClient) *objstore.Registry {
	return objstore.NewRegistryWithFactory(objstore.Options{}, func(objstore.Options) (objstore.Client, error) {
		return fake, nil
	})
}
