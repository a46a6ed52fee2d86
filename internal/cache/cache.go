package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"

	"varcache/internal/objstore"
)

const defaultMaxRetries = 5

// Config holds the cache-side settings consumed from the configuration
// surface.
type Config struct {
	// Bucket is the namespace all cache objects live in.
	Bucket string
	// KeyPrefix is prepended (normalized) to every object key.
	KeyPrefix string
	// TTLSeconds bounds entry freshness; zero or negative means unbounded.
	TTLSeconds int64
	// MultipartUploads selects the multipart writer for variant bodies.
	MultipartUploads bool
	// MaxRetries bounds immediate retries of throttled metadata writes.
	MaxRetries int
}

// Cache is a write-through, TTL-bounded cache for variant images and their
// metadata records, backed by a remote object store. Reads refresh an
// object's freshness tag; only sweeps delete. Safe for concurrent use:
// keys are independent and the last writer for a key wins.
type Cache struct {
	client     objstore.Client
	bucket     string
	keys       Keyspace
	policy     FreshnessPolicy
	multipart  bool
	maxRetries int
	metrics    *Metrics

	mu        sync.Mutex
	observers []Observer
}

// New builds a cache over the given client.
func New(client objstore.Client, cfg Config) *Cache {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Cache{
		client:     client,
		bucket:     cfg.Bucket,
		keys:       NewKeyspace(cfg.KeyPrefix),
		policy:     NewFreshnessPolicy(cfg.TTLSeconds),
		multipart:  cfg.MultipartUploads,
		maxRetries: maxRetries,
	}
}

// SetMetrics attaches prometheus counters. Optional; a nil receiver field
// disables instrumentation.
func (c *Cache) SetMetrics(m *Metrics) {
	c.metrics = m
}

// AddObserver registers a callback notified whenever an asynchronous
// variant write lands in the store.
func (c *Cache) AddObserver(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Cache) snapshotObservers() []Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	return observers
}

// Keyspace exposes the key derivation, mainly for tests and handlers.
func (c *Cache) Keyspace() Keyspace {
	return c.keys
}

//
// Metadata path (synchronous, small payloads)
//

// PutInfo writes a metadata record for the identifier. Small, frequent
// metadata writes are disproportionately likely to trigger burst-rate
// throttling, so a throttled put is retried immediately up to MaxRetries
// before surfacing an error. On success the freshness tag is stamped
// asynchronously.
func (c *Cache) PutInfo(ctx context.Context, identifier string, info []byte) error {
	key := c.keys.InfoKey(identifier)
	log.Debugf("PutInfo: uploading %d bytes to %s in bucket %s", len(info), key, c.bucket)

	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err = c.client.Put(ctx, c.bucket, key, bytes.NewReader(info), int64(len(info)), objstore.PutOptions{
			ContentType:     "application/json",
			ContentEncoding: "UTF-8",
		})
		if !errors.Is(err, objstore.ErrRateLimited) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("put info %s: %w", key, err)
	}
	c.touchAsync(key)
	return nil
}

// FetchInfo returns the metadata record for the identifier, or nil when no
// valid record exists. Expired and missing records are both misses, never
// errors; a hit refreshes the freshness tag asynchronously.
func (c *Cache) FetchInfo(ctx context.Context, identifier string) ([]byte, error) {
	key := c.keys.InfoKey(identifier)
	rc, _, err := c.client.Get(ctx, c.bucket, key, objstore.GetOptions{
		IfModifiedSince: c.policy.EarliestValid(),
	})
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) || errors.Is(err, objstore.ErrNotModified) {
			c.metrics.miss()
			return nil, nil
		}
		return nil, fmt.Errorf("fetch info %s: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetch info %s: %w", key, err)
	}
	log.Debugf("FetchInfo: read %s from bucket %s", key, c.bucket)
	c.metrics.hit()
	c.touchAsync(key)
	return data, nil
}

//
// Variant path (asynchronous bodies)
//

// NewVariantReader returns a stream over the cached variant described by d,
// or (nil, zero, nil) when no valid entry exists. Some backends ignore
// If-Modified-Since, so validity is re-checked against the response's
// last-modified time; a stale object is drained, closed, and evicted on
// background goroutines rather than returned.
func (c *Cache) NewVariantReader(ctx context.Context, d Descriptor) (io.ReadCloser, objstore.ObjectInfo, error) {
	key := c.keys.ImageKey(d)
	log.Debugf("NewVariantReader: bucket: %s; key: %s", c.bucket, key)

	rc, info, err := c.client.Get(ctx, c.bucket, key, objstore.GetOptions{
		IfModifiedSince: c.policy.EarliestValid(),
	})
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) || errors.Is(err, objstore.ErrNotModified) {
			c.metrics.miss()
			return nil, objstore.ObjectInfo{}, nil
		}
		return nil, objstore.ObjectInfo{}, fmt.Errorf("variant read %s: %w", key, err)
	}
	if !c.policy.IsValid(info.LastModified) {
		objstore.DrainAndCloseAsync(rc)
		log.Debugf("NewVariantReader: %s in bucket %s is invalid; evicting asynchronously", key, c.bucket)
		c.evictAsync(key)
		c.metrics.miss()
		return nil, objstore.ObjectInfo{}, nil
	}
	c.metrics.hit()
	c.touchAsync(key)
	return objstore.NewDrainingReadCloser(rc), info, nil
}

// NewVariantWriter returns a write sink for the variant described by d,
// multipart or single-shot per configuration.
func (c *Cache) NewVariantWriter(d Descriptor) VariantWriter {
	key := c.keys.ImageKey(d)
	observers := c.snapshotObservers()
	if c.metrics != nil {
		observers = append(observers, func(Descriptor) { c.metrics.write() })
	}
	if c.multipart {
		return NewMultipartWriter(c.client, c.bucket, key, d, observers)
	}
	return NewSingleShotWriter(c.client, c.bucket, key, d, observers)
}

//
// Eviction
//

// Evict removes the identifier's metadata record and every cached variant
// of it. Deletions are per-object and best-effort.
func (c *Cache) Evict(ctx context.Context, identifier string) error {
	if err := c.client.Delete(ctx, c.bucket, c.keys.InfoKey(identifier)); err != nil {
		log.Warnf("Evict: info for %s: %v", identifier, err)
	}
	deleted := 0
	err := c.client.Walk(ctx, c.bucket, c.keys.ImagePrefix(identifier), func(obj objstore.ObjectInfo) error {
		log.Tracef("Evict: deleting %s", obj.Key)
		if err := c.client.Delete(ctx, c.bucket, obj.Key); err != nil {
			log.Warnf("Evict: %s: %v", obj.Key, err)
			return nil
		}
		deleted++
		return nil
	})
	log.Debugf("Evict: deleted %d items", deleted)
	c.metrics.evicted(deleted)
	return err
}

// EvictVariant removes one cached variant.
func (c *Cache) EvictVariant(ctx context.Context, d Descriptor) error {
	err := c.client.Delete(ctx, c.bucket, c.keys.ImageKey(d))
	if err == nil {
		c.metrics.evicted(1)
	}
	return err
}

// EvictInfos removes every metadata record under the keyspace.
func (c *Cache) EvictInfos(ctx context.Context) error {
	return c.deleteAll(ctx, c.keys.InfoPrefix(), "EvictInfos")
}

// SweepInvalid walks every object under the keyspace (optionally narrowed
// by subPrefix) and deletes those whose freshness tag fails the policy.
// Objects with no freshness tag are conservatively treated as invalid.
// Per-object failures are logged and do not abort the sweep.
func (c *Cache) SweepInvalid(ctx context.Context, subPrefix string) error {
	seen, deleted := 0, 0
	err := c.client.Walk(ctx, c.bucket, c.keys.Prefix()+subPrefix, func(obj objstore.ObjectInfo) error {
		seen++
		if c.isObjectValid(ctx, obj.Key) {
			return nil
		}
		if err := c.client.Delete(ctx, c.bucket, obj.Key); err != nil {
			log.Warnf("SweepInvalid: %s: %v", obj.Key, err)
			return nil
		}
		deleted++
		return nil
	})
	log.Debugf("SweepInvalid: deleted %d of %d items", deleted, seen)
	c.metrics.evicted(deleted)
	return err
}

// Purge unconditionally deletes every object under the keyspace, optionally
// narrowed by subPrefix.
func (c *Cache) Purge(ctx context.Context, subPrefix string) error {
	return c.deleteAll(ctx, c.keys.Prefix()+subPrefix, "Purge")
}

func (c *Cache) deleteAll(ctx context.Context, prefix, op string) error {
	deleted := 0
	err := c.client.Walk(ctx, c.bucket, prefix, func(obj objstore.ObjectInfo) error {
		log.Tracef("%s: deleting %s", op, obj.Key)
		if err := c.client.Delete(ctx, c.bucket, obj.Key); err != nil {
			log.Warnf("%s: %s: %v", op, obj.Key, err)
			return nil
		}
		deleted++
		return nil
	})
	log.Debugf("%s: deleted %d items", op, deleted)
	c.metrics.evicted(deleted)
	return err
}

// isObjectValid fetches the object's freshness tag and applies the policy.
func (c *Cache) isObjectValid(ctx context.Context, key string) bool {
	tags, err := c.client.GetTags(ctx, c.bucket, key)
	if err != nil {
		log.Warnf("isObjectValid: tags for %s: %v", key, err)
		return false
	}
	lastAccess, ok := ParseLastAccess(tags)
	if !ok {
		return false
	}
	return c.policy.IsValid(lastAccess)
}

// touchAsync refreshes the object's last-access tag on a background
// goroutine. Object bodies are immutable in the store, so the tag is the
// only mutable record of access recency.
func (c *Cache) touchAsync(key string) {
	go func() {
		log.Tracef("touchAsync: %s", key)
		if err := c.client.PutTags(context.Background(), c.bucket, key, NewLastAccessTag()); err != nil {
			log.Warnf("touchAsync: %s: %v", key, err)
		}
	}()
}

// evictAsync deletes one object on a background goroutine.
func (c *Cache) evictAsync(key string) {
	go func() {
		log.Debugf("evictAsync: deleting %s from bucket %s", key, c.bucket)
		if err := c.client.Delete(context.Background(), c.bucket, key); err != nil {
			log.Warnf("evictAsync: %s: %v", key, err)
		}
	}()
}
