package cache

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"varcache/internal/objstore"
)

// MinPartSize is the smallest part the backing store accepts for all but
// the last part of a multipart upload.
const MinPartSize = 5 * 1024 * 1024

// multipartTask is one unit of work for a session's worker. Tasks run
// strictly in FIFO order; a terminal task stops the worker.
type multipartTask struct {
	run      func(ctx context.Context)
	terminal bool
}

// MultipartWriter splits a written object into parts of at least
// MinPartSize bytes and uploads them concurrently with writing on a single
// dedicated background worker. On Close it either finalizes the multipart
// transaction (when marked complete) or aborts it. Peak memory is bounded
// to roughly one part rather than the whole object, provided individual
// Write calls are not larger than the part size.
//
// Incomplete transactions lost to a process crash are not aborted by this
// type; a store-side expiration rule for abandoned multipart uploads is
// the operational backstop.
type MultipartWriter struct {
	client  objstore.Client
	bucket  string
	key     string
	desc    Descriptor
	session string

	// Writer-side state, guarded by mu.
	mu        sync.Mutex
	current   *bytes.Buffer
	partIndex int
	created   bool
	complete  bool
	closed    bool

	// Worker-side state, touched only from tasks on the single worker.
	uploadID string
	parts    []objstore.Part

	observers []Observer
	tasks     chan multipartTask
	done      chan struct{}
}

// NewMultipartWriter returns a writer uploading to bucket/key and starts
// its worker goroutine.
func NewMultipartWriter(client objstore.Client, bucket, key string, desc Descriptor, observers []Observer) *MultipartWriter {
	w := &MultipartWriter{
		client:    client,
		bucket:    bucket,
		key:       key,
		desc:      desc,
		session:   uuid.NewString(),
		current:   &bytes.Buffer{},
		observers: observers,
		tasks:     make(chan multipartTask, 16),
		done:      make(chan struct{}),
	}
	go w.work()
	return w
}

// work consumes the session's task queue until a terminal task has run.
// This single consumer is the sole serialization point: it guarantees the
// create, per-part upload, and complete/abort calls happen in enqueue
// order without any locking around the session state.
func (w *MultipartWriter) work() {
	defer close(w.done)
	ctx := context.Background()
	for task := range w.tasks {
		task.run(ctx)
		if task.terminal {
			return
		}
	}
}

func (w *MultipartWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, errors.New("write on closed writer")
	}
	n, err := w.current.Write(p)
	if err != nil {
		return n, err
	}
	if !w.created {
		w.created = true
		w.tasks <- multipartTask{run: w.createTransaction}
	}
	if w.current.Len() >= MinPartSize {
		w.enqueuePartLocked()
	}
	return n, nil
}

// MarkComplete marks the written data as the complete object.
func (w *MultipartWriter) MarkComplete() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.complete = true
}

// Done is closed once the worker has processed its terminal task.
func (w *MultipartWriter) Done() <-chan struct{} {
	return w.done
}

// Close enqueues the final part and a terminal complete task when the
// writer was marked complete, or a terminal abort task otherwise, then
// returns without waiting for the worker.
func (w *MultipartWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if w.complete {
		// The final part may be undersized, or empty, in which case the
		// part task skips the upload.
		w.enqueuePartLocked()
		w.tasks <- multipartTask{run: w.completeTransaction, terminal: true}
	} else {
		w.tasks <- multipartTask{run: w.abortTransaction, terminal: true}
	}
	close(w.tasks)
	return nil
}

// enqueuePartLocked hands the current part buffer to the worker and starts
// a fresh one. Callers must hold mu.
func (w *MultipartWriter) enqueuePartLocked() {
	part := w.current
	index := w.partIndex
	w.current = &bytes.Buffer{}
	w.partIndex++
	w.tasks <- multipartTask{run: func(ctx context.Context) {
		w.uploadPart(ctx, part, index)
	}}
}

func (w *MultipartWriter) createTransaction(ctx context.Context) {
	log.Tracef("multipart %s: creating transaction [bucket: %s] [key: %s]", w.session, w.bucket, w.key)
	uploadID, err := w.client.CreateMultipart(ctx, w.bucket, w.key, objstore.PutOptions{
		ContentType: w.desc.MediaType,
	})
	if err != nil {
		log.Warnf("multipart %s: create: %v", w.session, err)
		return
	}
	w.uploadID = uploadID
}

func (w *MultipartWriter) uploadPart(ctx context.Context, part *bytes.Buffer, index int) {
	// Most stores reject zero-length parts; an empty trailing part is a
	// valid skip.
	if part.Len() == 0 {
		log.Tracef("multipart %s: skipping empty part %d", w.session, index+1)
		return
	}
	if w.uploadID == "" {
		log.Warnf("multipart %s: no upload id; dropping part %d", w.session, index+1)
		return
	}
	log.Tracef("multipart %s: uploading part %d (%d bytes)", w.session, index+1, part.Len())
	uploaded, err := w.client.UploadPart(ctx, w.bucket, w.key, w.uploadID, index+1, part.Bytes())
	if err != nil {
		log.Warnf("multipart %s: part %d: %v", w.session, index+1, err)
		return
	}
	w.parts = append(w.parts, uploaded)
}

func (w *MultipartWriter) completeTransaction(ctx context.Context) {
	if w.uploadID == "" {
		log.Warnf("multipart %s: nothing was written; no transaction to complete", w.session)
		return
	}
	log.Tracef("multipart %s: completing %d-part transaction", w.session, len(w.parts))
	if err := w.client.CompleteMultipart(ctx, w.bucket, w.key, w.uploadID, w.parts); err != nil {
		log.Warnf("multipart %s: complete: %v", w.session, err)
		return
	}
	if err := w.client.PutTags(ctx, w.bucket, w.key, NewLastAccessTag()); err != nil {
		log.Warnf("multipart %s: tagging %s: %v", w.session, w.key, err)
	}
	for _, observer := range w.observers {
		observer(w.desc)
	}
}

func (w *MultipartWriter) abortTransaction(ctx context.Context) {
	if w.uploadID == "" {
		return
	}
	log.Tracef("multipart %s: aborting transaction", w.session)
	if err := w.client.AbortMultipart(ctx, w.bucket, w.key, w.uploadID); err != nil {
		log.Warnf("multipart %s: abort: %v", w.session, err)
	}
}
