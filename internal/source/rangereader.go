package source

import (
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"varcache/internal/objstore"
)

// ByteRange is an inclusive byte range of a remote object.
type ByteRange struct {
	Start int64
	End   int64
}

// RangeReader fetches arbitrary byte ranges of remote objects. It performs
// exactly one GET per Fetch call; retry and caching are the caller's job.
type RangeReader struct {
	registry *objstore.Registry
}

// NewRangeReader builds a reader resolving clients through the registry.
func NewRangeReader(registry *objstore.Registry) *RangeReader {
	return &RangeReader{registry: registry}
}

// Fetch returns the bytes of the given range. Errors map to the objstore
// taxonomy: ErrNotFound, ErrAccessDenied, or a generic transport error.
func (r *RangeReader) Fetch(ctx context.Context, ref *objstore.ObjectReference, br ByteRange) ([]byte, error) {
	client, err := r.registry.ClientFor(ref)
	if err != nil {
		return nil, err
	}
	log.Debugf("Fetch: requesting bytes %d-%d from %s", br.Start, br.End, ref)
	rc, _, err := client.Get(ctx, ref.Bucket, ref.Key, objstore.GetOptions{
		HasRange:   true,
		RangeStart: br.Start,
		RangeEnd:   br.End,
	})
	if err != nil {
		return nil, fmt.Errorf("range get %s: %w", ref.Key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("range read %s: %w", ref.Key, err)
	}
	return data, nil
}

// HeadLength stats the object, returning its length and last-modified time.
func (r *RangeReader) HeadLength(ctx context.Context, ref *objstore.ObjectReference) (int64, time.Time, error) {
	client, err := r.registry.ClientFor(ref)
	if err != nil {
		return 0, time.Time{}, err
	}
	info, err := client.Stat(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("head %s: %w", ref.Key, err)
	}
	return info.Size, info.LastModified, nil
}
