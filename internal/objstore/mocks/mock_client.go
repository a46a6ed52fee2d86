package mocks

import (
	"context"
	"io"

	"varcache/internal/objstore"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Stat(ctx context.Context, bucket, key string) (objstore.ObjectInfo, error) {
	args := m.Called(ctx, bucket, key)
	return args.Get(0).(objstore.ObjectInfo), args.Error(1)
}

func (m *MockClient) Get(ctx context.Context, bucket, key string, opts objstore.GetOptions) (io.ReadCloser, objstore.ObjectInfo, error) {
	args := m.Called(ctx, bucket, key, opts)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(objstore.ObjectInfo), args.Error(2)
}

func (m *MockClient) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, opts objstore.PutOptions) error {
	args := m.Called(ctx, bucket, key, r, size, opts)
	return args.Error(0)
}

func (m *MockClient) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockClient) Walk(ctx context.Context, bucket, prefix string, fn func(objstore.ObjectInfo) error) error {
	args := m.Called(ctx, bucket, prefix, fn)
	if objects, ok := args.Get(0).([]objstore.ObjectInfo); ok {
		for _, obj := range objects {
			if err := fn(obj); err != nil {
				return err
			}
		}
		return nil
	}
	return args.Error(0)
}

func (m *MockClient) GetTags(ctx context.Context, bucket, key string) (map[string]string, error) {
	args := m.Called(ctx, bucket, key)
	tags, _ := args.Get(0).(map[string]string)
	return tags, args.Error(1)
}

func (m *MockClient) PutTags(ctx context.Context, bucket, key string, tags map[string]string) error {
	args := m.Called(ctx, bucket, key, tags)
	return args.Error(0)
}

func (m *MockClient) CreateMultipart(ctx context.Context, bucket, key string, opts objstore.PutOptions) (string, error) {
	args := m.Called(ctx, bucket, key, opts)
	return args.String(0), args.Error(1)
}

func (m *MockClient) UploadPart(ctx context.Context, bucket, key, uploadID string, number int, data []byte) (objstore.Part, error) {
	args := m.Called(ctx, bucket, key, uploadID, number, data)
	return args.Get(0).(objstore.Part), args.Error(1)
}

func (m *MockClient) CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []objstore.Part) error {
	args := m.Called(ctx, bucket, key, uploadID, parts)
	return args.Error(0)
}

func (m *MockClient) AbortMultipart(ctx context.Context, bucket, key, uploadID string) error {
	args := m.Called(ctx, bucket, key, uploadID)
	return args.Error(0)
}
