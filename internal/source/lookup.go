package source

import (
	"context"
	"fmt"

	"varcache/internal/objstore"
)

// Lookup maps a logical identifier to a physical object reference.
type Lookup interface {
	// Resolve returns the reference for the identifier, or ErrNotFound when
	// the lookup concludes there is no such object.
	Resolve(ctx context.Context, identifier string) (*objstore.ObjectReference, error)
}

// BasicLookup derives keys from static configuration:
// bucket + prefix + identifier + suffix.
type BasicLookup struct {
	Bucket     string
	PathPrefix string
	PathSuffix string
}

func (b BasicLookup) Resolve(_ context.Context, identifier string) (*objstore.ObjectReference, error) {
	return objstore.NewReference(b.Bucket, b.PathPrefix+identifier+b.PathSuffix), nil
}

// DelegateFunc is an external hook mapping an identifier to object info.
// It returns a map that must contain at least "bucket" and "key", and may
// carry "region", "endpoint", "access_key_id", and "secret_access_key".
// A nil or empty map means "no such object".
type DelegateFunc func(ctx context.Context, identifier string) (map[string]string, error)

// DelegateLookup resolves references through an injected hook.
type DelegateLookup struct {
	Fn DelegateFunc
}

func (d DelegateLookup) Resolve(ctx context.Context, identifier string) (*objstore.ObjectReference, error) {
	result, err := d.Fn(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("delegate lookup for %q: %w", identifier, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("delegate lookup returned nothing for %q: %w", identifier, objstore.ErrNotFound)
	}
	if result["bucket"] == "" || result["key"] == "" {
		return nil, &objstore.ConfigError{Reason: "delegate lookup result must include bucket and key"}
	}
	ref := objstore.NewReference(result["bucket"], result["key"])
	ref.Region = result["region"]
	ref.Endpoint = result["endpoint"]
	ref.AccessKeyID = result["access_key_id"]
	ref.SecretAccessKey = result["secret_access_key"]
	return ref, nil
}
