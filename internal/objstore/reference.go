package objstore

import "fmt"

// ObjectReference identifies one remote object, optionally carrying
// per-request endpoint, region, and credential overrides supplied by a
// delegate lookup. It is immutable after construction except for Length,
// which may be set once discovered via a HEAD request.
type ObjectReference struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	// Length is the object size in bytes, or -1 when not yet known.
	Length int64
}

// NewReference returns a reference with static (empty) connection overrides.
func NewReference(bucket, key string) *ObjectReference {
	return &ObjectReference{Bucket: bucket, Key: key, Length: -1}
}

// String renders the reference for logging with credentials redacted.
func (r *ObjectReference) String() string {
	redact := func(s string) string {
		if s == "" {
			return ""
		}
		return "******"
	}
	return fmt.Sprintf("[endpoint: %s] [region: %s] [accessKeyID: %s] [secretAccessKey: %s] [bucket: %s] [key: %s]",
		r.Endpoint, r.Region, redact(r.AccessKeyID), redact(r.SecretAccessKey), r.Bucket, r.Key)
}
