package objstore

import (
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{
			name: "nil passes through",
			in:   nil,
			want: nil,
		},
		{
			name: "missing key",
			in:   minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."},
			want: ErrNotFound,
		},
		{
			name: "missing bucket",
			in:   minio.ErrorResponse{Code: "NoSuchBucket"},
			want: ErrNotFound,
		},
		{
			name: "access denied code",
			in:   minio.ErrorResponse{Code: "AccessDenied"},
			want: ErrAccessDenied,
		},
		{
			name: "slow down code",
			in:   minio.ErrorResponse{Code: "SlowDown"},
			want: ErrRateLimited,
		},
		{
			name: "not modified status",
			in:   minio.ErrorResponse{StatusCode: http.StatusNotModified},
			want: ErrNotModified,
		},
		{
			name: "not found status",
			in:   minio.ErrorResponse{StatusCode: http.StatusNotFound},
			want: ErrNotFound,
		},
		{
			name: "gone status",
			in:   minio.ErrorResponse{StatusCode: http.StatusGone},
			want: ErrNotFound,
		},
		{
			name: "forbidden status",
			in:   minio.ErrorResponse{StatusCode: http.StatusForbidden},
			want: ErrAccessDenied,
		},
		{
			name: "throttled 503",
			in: minio.ErrorResponse{
				StatusCode: http.StatusServiceUnavailable,
				Message:    "Please reduce your request rate.",
			},
			want: ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	in := errors.New("connection reset")
	assert.Equal(t, in, mapError(in))

	// A 503 without the throttle message is not a rate limit.
	err := mapError(minio.ErrorResponse{StatusCode: http.StatusServiceUnavailable, Message: "maintenance"})
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Reason: "invalid endpoint URI: ://"}
	assert.Contains(t, err.Error(), "invalid endpoint URI")

	var cfgErr *ConfigError
	assert.ErrorAs(t, error(err), &cfgErr)
}
