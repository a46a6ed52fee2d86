package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const (
	imageKeyPrefix = "image/"
	infoKeyPrefix  = "info/"
	infoExtension  = ".json"
)

// Keyspace deterministically maps identifiers and variant descriptors to
// physical object keys under a normalized prefix. All methods are pure.
//
// Layout:
//
//	<prefix>info/<md5(identifier)>.json
//	<prefix>image/<md5(identifier)>/<md5(descriptor)><.ext>
type Keyspace struct {
	prefix string
}

// NewKeyspace normalizes the configured prefix to either empty or a value
// ending in exactly one slash.
func NewKeyspace(prefix string) Keyspace {
	if prefix == "" || prefix == "/" {
		return Keyspace{}
	}
	return Keyspace{prefix: strings.TrimRight(prefix, "/") + "/"}
}

// Prefix returns the normalized key prefix.
func (k Keyspace) Prefix() string {
	return k.prefix
}

// InfoKey returns the object key of the serialized metadata record for the
// given identifier.
func (k Keyspace) InfoKey(identifier string) string {
	return k.prefix + infoKeyPrefix + md5Hex(identifier) + infoExtension
}

// InfoPrefix returns the key prefix under which all metadata records live.
func (k Keyspace) InfoPrefix() string {
	return k.prefix + infoKeyPrefix
}

// ImageKey returns the object key of the variant described by d.
func (k Keyspace) ImageKey(d Descriptor) string {
	key := k.prefix + imageKeyPrefix + md5Hex(d.Identifier) + "/" + md5Hex(d.String())
	if d.Extension != "" {
		key += "." + d.Extension
	}
	return key
}

// ImagePrefix returns the key prefix under which every variant of the given
// identifier lives, used for identifier-scoped eviction.
func (k Keyspace) ImagePrefix(identifier string) string {
	return k.prefix + imageKeyPrefix + md5Hex(identifier)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
