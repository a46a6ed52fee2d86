package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"varcache/internal/objstore"
)

// DefaultWindowSize is the default size of one range-fetched window.
const DefaultWindowSize = 512 * 1024

// WindowedReader presents random-access reads over an immutable remote
// object of known length by fetching fixed-size, boundary-aligned windows
// on demand via a RangeReader. At most one window is cached at a time; a
// read outside it evicts it and fetches the window containing the current
// position. A failed fetch retains no partial window, so the next read
// starts clean.
type WindowedReader struct {
	ctx        context.Context
	fetcher    *RangeReader
	ref        *objstore.ObjectReference
	length     int64
	windowSize int64

	pos         int64
	windowStart int64
	window      []byte // nil when nothing is cached
}

// NewWindowedReader builds a reader over ref, whose Length must already be
// known (via a HEAD request). A windowSize of zero or less falls back to
// DefaultWindowSize.
func NewWindowedReader(ctx context.Context, fetcher *RangeReader, ref *objstore.ObjectReference, windowSize int64) (*WindowedReader, error) {
	if ref.Length < 0 {
		return nil, errors.New("windowed reader requires a known object length")
	}
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &WindowedReader{
		ctx:        ctx,
		fetcher:    fetcher,
		ref:        ref,
		length:     ref.Length,
		windowSize: windowSize,
	}, nil
}

// Length returns the object's length in bytes.
func (w *WindowedReader) Length() int64 {
	return w.length
}

// Read serves bytes from the cached window, fetching the window containing
// the current position first when needed. A read at or past the object's
// end returns io.EOF.
func (w *WindowedReader) Read(p []byte) (int, error) {
	if w.pos >= w.length {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if !w.windowContains(w.pos) {
		if err := w.fetchWindow(w.pos); err != nil {
			return 0, err
		}
	}
	n := copy(p, w.window[w.pos-w.windowStart:])
	w.pos += int64(n)
	return n, nil
}

// Seek repositions the reader. Seeking past the end of the object is
// allowed; subsequent reads return io.EOF.
func (w *WindowedReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = w.pos + offset
	case io.SeekEnd:
		abs = w.length + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative seek position")
	}
	w.pos = abs
	return abs, nil
}

// Close releases the cached window. The remote object needs no teardown:
// every fetch is a self-contained range request.
func (w *WindowedReader) Close() error {
	w.window = nil
	return nil
}

func (w *WindowedReader) windowContains(pos int64) bool {
	return w.window != nil && pos >= w.windowStart && pos < w.windowStart+int64(len(w.window))
}

// fetchWindow replaces the cache with the boundary-aligned window covering
// pos. On failure the cache stays empty.
func (w *WindowedReader) fetchWindow(pos int64) error {
	start := (pos / w.windowSize) * w.windowSize
	end := start + w.windowSize
	if end > w.length {
		end = w.length
	}
	w.window = nil
	data, err := w.fetcher.Fetch(w.ctx, w.ref, ByteRange{Start: start, End: end - 1})
	if err != nil {
		return err
	}
	w.windowStart = start
	w.window = data
	return nil
}

// NewSpooledReader downloads the whole object in one unranged GET and
// stages it in a temp file that provides seeking. Chosen when chunking is
// disabled: small objects are cheaper to pull once than through many small
// range requests, and some endpoints have unreliable range support.
func NewSpooledReader(ctx context.Context, registry *objstore.Registry, ref *objstore.ObjectReference) (io.ReadSeekCloser, error) {
	client, err := registry.ClientFor(ref)
	if err != nil {
		return nil, err
	}
	rc, _, err := client.Get(ctx, ref.Bucket, ref.Key, objstore.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref.Key, err)
	}
	defer rc.Close()

	f, err := os.CreateTemp("", "varcache-spool-*")
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("spool %s: %w", ref.Key, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	return &spooledFile{File: f}, nil
}

// spooledFile removes its backing file on close.
type spooledFile struct {
	*os.File
}

func (s *spooledFile) Close() error {
	err := s.File.Close()
	if rmErr := os.Remove(s.File.Name()); err == nil {
		err = rmErr
	}
	return err
}
