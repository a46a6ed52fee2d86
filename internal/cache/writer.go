package cache

import "io"

// Observer is notified when an asynchronous variant write has landed in
// the store.
type Observer func(Descriptor)

// VariantWriter is the write sink returned by the cache for variant bodies.
// Writes never block on network I/O; Close returns promptly and the upload
// (or abort) proceeds on a background worker. A writer that is closed
// without MarkComplete never publishes an object, so partial writes
// cannot pollute the cache.
type VariantWriter interface {
	io.WriteCloser

	// MarkComplete marks the written data as complete, allowing Close to
	// hand it off for upload.
	MarkComplete()

	// Done is closed once the background work for this writer (upload and
	// tag, or abort) has finished. Callers synchronize on upload completion
	// only through this channel, never through Close.
	Done() <-chan struct{}
}
