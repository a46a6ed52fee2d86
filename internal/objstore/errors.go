package objstore

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
)

var (
	// ErrNotFound indicates that the bucket or key does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrAccessDenied indicates a permission failure (403-class).
	ErrAccessDenied = errors.New("access denied")
	// ErrRateLimited indicates retryable burst throttling ("reduce your
	// request rate"-class responses).
	ErrRateLimited = errors.New("rate limited")
	// ErrNotModified indicates a conditional fetch miss (the object has not
	// been modified since the supplied instant).
	ErrNotModified = errors.New("object not modified")
)

// ConfigError indicates a malformed lookup result, endpoint URI, or other
// invalid configuration. It propagates to the caller on synchronous paths.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// mapError converts backend errors into the package taxonomy, wrapping the
// sentinel so callers can use errors.Is. Anything unrecognized passes
// through as a generic transport error.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%s: %w", resp.Code, ErrNotFound)
	case "AccessDenied":
		return fmt.Errorf("%s: %w", resp.Code, ErrAccessDenied)
	case "SlowDown":
		return fmt.Errorf("%s: %w", resp.Code, ErrRateLimited)
	}
	switch resp.StatusCode {
	case http.StatusNotModified:
		return ErrNotModified
	case http.StatusNotFound, http.StatusGone:
		return fmt.Errorf("%s: %w", resp.Message, ErrNotFound)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", resp.Message, ErrAccessDenied)
	case http.StatusServiceUnavailable:
		if strings.Contains(resp.Message, "reduce your request rate") {
			return fmt.Errorf("%s: %w", resp.Message, ErrRateLimited)
		}
	}
	return err
}
