package cache

import (
	"strconv"
	"time"
)

// LastAccessTimeTag is the object tag recording the last write or last
// successful read as an epoch-millisecond string. The backing store treats
// object bodies as immutable, so a mutable tag stands in for a native
// last-accessed time.
const LastAccessTimeTag = "LastAccessTime"

// FreshnessPolicy decides whether a stored object is still valid given its
// last-access timestamp and a configured time-to-live. A ttl of zero or
// less means entries never expire.
type FreshnessPolicy struct {
	ttl time.Duration
}

// NewFreshnessPolicy builds a policy from a ttl in whole seconds.
func NewFreshnessPolicy(ttlSeconds int64) FreshnessPolicy {
	return FreshnessPolicy{ttl: time.Duration(ttlSeconds) * time.Second}
}

// Unbounded reports whether entries never expire.
func (p FreshnessPolicy) Unbounded() bool {
	return p.ttl <= 0
}

// EarliestValid returns the earliest instant a last-access timestamp may
// carry and still be valid, with second resolution to tolerate clock and
// tag granularity. For an unbounded policy it returns the epoch.
func (p FreshnessPolicy) EarliestValid() time.Time {
	if p.Unbounded() {
		return time.Unix(0, 0).UTC()
	}
	return time.Now().Add(-p.ttl).Truncate(time.Second)
}

// IsValid reports whether a record with the given last-access timestamp is
// still fresh.
func (p FreshnessPolicy) IsValid(lastAccess time.Time) bool {
	if p.Unbounded() {
		return true
	}
	return lastAccess.After(p.EarliestValid())
}

// NewLastAccessTag returns a tag set stamping the current time.
func NewLastAccessTag() map[string]string {
	return map[string]string{
		LastAccessTimeTag: strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
}

// ParseLastAccess extracts the last-access timestamp from an object's tag
// set. The second return is false when the tag is absent or malformed.
func ParseLastAccess(tags map[string]string) (time.Time, bool) {
	raw, ok := tags[LastAccessTimeTag]
	if !ok {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}
