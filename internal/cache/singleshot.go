package cache

import (
	"bytes"
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"varcache/internal/objstore"
)

// SingleShotWriter buffers an entire written object in memory and uploads
// it in one request on a background goroutine when the write is marked
// complete. The backing store requires a Content-Length up front, so the
// data cannot be streamed as it arrives; buffering the whole object keeps
// Close non-blocking at the cost of holding it in memory.
type SingleShotWriter struct {
	client objstore.Client
	bucket string
	key    string
	desc   Descriptor

	mu       sync.Mutex
	buf      bytes.Buffer
	complete bool
	closed   bool

	observers []Observer
	done      chan struct{}
}

// NewSingleShotWriter returns a writer that uploads to bucket/key on close.
func NewSingleShotWriter(client objstore.Client, bucket, key string, desc Descriptor, observers []Observer) *SingleShotWriter {
	return &SingleShotWriter{
		client:    client,
		bucket:    bucket,
		key:       key,
		desc:      desc,
		observers: observers,
		done:      make(chan struct{}),
	}
}

func (w *SingleShotWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// MarkComplete marks the buffered data as the complete object.
func (w *SingleShotWriter) MarkComplete() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.complete = true
}

// Done is closed once the background upload has finished (or been skipped).
func (w *SingleShotWriter) Done() <-chan struct{} {
	return w.done
}

// Close hands the buffered bytes to a background upload task when the
// writer was marked complete, and discards them otherwise. It returns
// promptly in both cases, regardless of upload duration.
func (w *SingleShotWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if !w.complete {
		close(w.done)
		return nil
	}
	data := make([]byte, w.buf.Len())
	copy(data, w.buf.Bytes())
	go w.upload(data)
	return nil
}

// upload performs the PUT followed by a best-effort freshness tag write and
// observer notification. Failures are logged and swallowed; they must never
// propagate to the writer's caller.
func (w *SingleShotWriter) upload(data []byte) {
	defer close(w.done)
	ctx := context.Background()

	if len(data) == 0 {
		log.Tracef("upload: no data to upload to %s in bucket %s; returning", w.key, w.bucket)
		return
	}
	log.Debugf("upload: uploading %d bytes to %s in bucket %s", len(data), w.key, w.bucket)
	err := w.client.Put(ctx, w.bucket, w.key, bytes.NewReader(data), int64(len(data)), objstore.PutOptions{
		ContentType: w.desc.MediaType,
	})
	if err != nil {
		log.Warnf("upload: %s in bucket %s: %v", w.key, w.bucket, err)
		return
	}
	if err := w.client.PutTags(ctx, w.bucket, w.key, NewLastAccessTag()); err != nil {
		log.Warnf("upload: tagging %s in bucket %s: %v", w.key, w.bucket, err)
	}
	for _, observer := range w.observers {
		observer(w.desc)
	}
}
