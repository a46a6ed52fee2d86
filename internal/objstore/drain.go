package objstore

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// NewDrainingReadCloser wraps rc so that Close returns promptly even when
// the body has not been fully consumed: remaining bytes are drained on a
// background goroutine before the underlying Close, keeping the transport
// connection reusable instead of tearing it down mid-response.
func NewDrainingReadCloser(rc io.ReadCloser) io.ReadCloser {
	return &drainingReadCloser{rc: rc}
}

type drainingReadCloser struct {
	rc     io.ReadCloser
	closed bool
}

func (d *drainingReadCloser) Read(p []byte) (int, error) {
	return d.rc.Read(p)
}

func (d *drainingReadCloser) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	DrainAndCloseAsync(d.rc)
	return nil
}

// DrainAndCloseAsync consumes and closes rc on a background goroutine.
// Failures are logged and swallowed.
func DrainAndCloseAsync(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	go func() {
		if _, err := io.Copy(io.Discard, rc); err != nil {
			log.Warnf("drain: failed to consume the stream: %v", err)
		}
		if err := rc.Close(); err != nil {
			log.Warnf("drain: failed to close the stream: %v", err)
		}
	}()
}
