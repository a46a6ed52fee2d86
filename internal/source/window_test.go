package source

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"varcache/internal/objstore"
)

func testBody(n int) []byte {
	body := make([]byte, n)
	for i := range body {
		body[i] = byte(i % 251)
	}
	return body
}

func newTestWindowedReader(t *testing.T, body []byte, windowSize int64) (*WindowedReader, *fakeObjectClient) {
	t.Helper()
	fake := &fakeObjectClient{body: body}
	ref := objstore.NewReference("bucket", "key")
	ref.Length = int64(len(body))

	r, err := NewWindowedReader(context.Background(), NewRangeReader(newFakeRegistry(fake)), ref, windowSize)
	require.NoError(t, err)
	return r, fake
}

func TestWindowedReader_ByteIdentity(t *testing.T) {
	tests := []struct {
		name       string
		bodyLen    int
		windowSize int64
	}{
		{name: "many windows", bodyLen: 1000, windowSize: 64},
		{name: "window equals object", bodyLen: 256, windowSize: 256},
		{name: "window larger than object", bodyLen: 100, windowSize: 4096},
		{name: "object is window multiple", bodyLen: 512, windowSize: 128},
		{name: "single byte object", bodyLen: 1, windowSize: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := testBody(tt.bodyLen)
			r, fake := newTestWindowedReader(t, body, tt.windowSize)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, body, got)

			// Every request is boundary-aligned and at most one window long.
			wantFetches := (tt.bodyLen + int(tt.windowSize) - 1) / int(tt.windowSize)
			requests := fake.getRequests()
			assert.Len(t, requests, wantFetches)
			for _, req := range requests {
				require.True(t, req.HasRange)
				assert.Zero(t, req.RangeStart%tt.windowSize)
				assert.LessOrEqual(t, req.RangeEnd-req.RangeStart+1, tt.windowSize)
			}
		})
	}
}

func TestWindowedReader_SeekWithinWindowNoRefetch(t *testing.T) {
	r, fake := newTestWindowedReader(t, testBody(1000), 64)
	defer r.Close()

	buf := make([]byte, 10)
	_, err := io.ReadFull(r, buf)
	require.NoError(t, err)

	_, err = r.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.Equal(t, testBody(10), buf)

	assert.Len(t, fake.getRequests(), 1)
}

func TestWindowedReader_SeekAcrossWindows(t *testing.T) {
	body := testBody(1000)
	r, fake := newTestWindowedReader(t, body, 64)
	defer r.Close()

	buf := make([]byte, 10)
	_, err := io.ReadFull(r, buf)
	require.NoError(t, err)

	pos, err := r.Seek(500, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(500), pos)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.Equal(t, body[500:510], buf)

	// Back to the first window; it was evicted and must be refetched.
	_, err = r.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.Equal(t, body[:10], buf)

	assert.Len(t, fake.getRequests(), 3)
}

func TestWindowedReader_SeekWhence(t *testing.T) {
	body := testBody(1000)
	r, _ := newTestWindowedReader(t, body, 64)
	defer r.Close()

	pos, err := r.Seek(-10, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(990), pos)

	tail, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body[990:], tail)

	_, err = r.Seek(100, io.SeekStart)
	require.NoError(t, err)
	pos, err = r.Seek(50, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(150), pos)

	_, err = r.Seek(-1, io.SeekStart)
	assert.Error(t, err)

	_, err = r.Seek(0, 42)
	assert.Error(t, err)
}

func TestWindowedReader_SeekPastEnd(t *testing.T) {
	r, fake := newTestWindowedReader(t, testBody(100), 64)
	defer r.Close()

	pos, err := r.Seek(5000, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), pos)

	n, err := r.Read(make([]byte, 10))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, fake.getRequests())
}

func TestWindowedReader_ZeroLengthObject(t *testing.T) {
	r, fake := newTestWindowedReader(t, nil, 64)
	defer r.Close()

	n, err := r.Read(make([]byte, 10))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, fake.getRequests())
	assert.Zero(t, r.Length())
}

func TestWindowedReader_RequiresKnownLength(t *testing.T) {
	ref := objstore.NewReference("bucket", "key") // Length stays -1
	_, err := NewWindowedReader(context.Background(), NewRangeReader(newFakeRegistry(&fakeObjectClient{})), ref, 64)
	assert.Error(t, err)
}

func TestWindowedReader_FetchFailureLeavesCleanState(t *testing.T) {
	body := testBody(100)
	fake := &fakeObjectClient{body: body, getErr: io.ErrUnexpectedEOF}
	ref := objstore.NewReference("bucket", "key")
	ref.Length = int64(len(body))

	r, err := NewWindowedReader(context.Background(), NewRangeReader(newFakeRegistry(fake)), ref, 64)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read(make([]byte, 10))
	require.Error(t, err)

	// The next read after the fault clears retries from scratch.
	fake.getErr = nil
	got := make([]byte, 10)
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	assert.Equal(t, body[:10], got)
}

func TestSpooledReader(t *testing.T) {
	body := testBody(300)
	fake := &fakeObjectClient{body: body}
	ref := objstore.NewReference("bucket", "key")

	r, err := NewSpooledReader(context.Background(), newFakeRegistry(fake), ref)
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	pos, err := r.Seek(100, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(100), pos)

	chunk := make([]byte, 50)
	_, err = io.ReadFull(r, chunk)
	require.NoError(t, err)
	assert.Equal(t, body[100:150], chunk)

	require.NoError(t, r.Close())

	// The download is a single unranged request.
	requests := fake.getRequests()
	require.Len(t, requests, 1)
	assert.False(t, requests[0].HasRange)
}
