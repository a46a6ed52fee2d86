package handler

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"varcache/internal/objstore"
)

// VariantCache is the cache surface the admin endpoints operate on.
type VariantCache interface {
	FetchInfo(ctx context.Context, identifier string) ([]byte, error)
	PutInfo(ctx context.Context, identifier string, info []byte) error
	Evict(ctx context.Context, identifier string) error
	SweepInvalid(ctx context.Context, subPrefix string) error
	Purge(ctx context.Context, subPrefix string) error
}

// SourceStore is the source surface the admin endpoints operate on.
type SourceStore interface {
	Stat(ctx context.Context, identifier string) (objstore.ObjectInfo, error)
}

// HealthFunc probes the backing store. A nil error means healthy.
type HealthFunc func(ctx context.Context) error

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal: they translate HTTP to cache/source calls.
func RegisterRoutes(app *fiber.App, cache VariantCache, src SourceStore, health HealthFunc) {
	app.Get("/health", HealthCheck(health))
	app.Get("/healthz", LivenessProbe())

	app.Get("/infos/:identifier", GetInfo(cache))
	app.Put("/infos/:identifier", PutInfo(cache))

	app.Delete("/cache/:identifier", EvictEntry(cache))
	app.Post("/cache/sweep", SweepCache(cache))
	app.Post("/cache/purge", PurgeCache(cache))

	app.Get("/source/:identifier/stat", StatSource(src))
}

// HealthCheck probes the backing object store with a short deadline.
func HealthCheck(health HealthFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := health(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness probe independent of dependencies.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// GetInfo serves the cached metadata record for an identifier.
func GetInfo(cache VariantCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier, ok := pathIdentifier(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_IDENTIFIER", "invalid identifier")
		}
		info, err := cache.FetchInfo(c.UserContext(), identifier)
		if err != nil {
			return storeError(c, err)
		}
		if info == nil {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "no valid info record")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(info)
	}
}

// PutInfo writes the metadata record for an identifier.
func PutInfo(cache VariantCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier, ok := pathIdentifier(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_IDENTIFIER", "invalid identifier")
		}
		body := c.Body()
		if len(body) == 0 {
			return writeError(c, fiber.StatusBadRequest, "BODY_REQUIRED", "request body is required")
		}
		if !json.Valid(body) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_JSON", "request body must be valid JSON")
		}
		if err := cache.PutInfo(c.UserContext(), identifier, body); err != nil {
			return storeError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// EvictEntry removes an identifier's info record and all its cached variants.
func EvictEntry(cache VariantCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier, ok := pathIdentifier(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_IDENTIFIER", "invalid identifier")
		}
		if err := cache.Evict(c.UserContext(), identifier); err != nil {
			return storeError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SweepCache deletes expired and untagged cache objects, optionally narrowed
// by a ?prefix= query.
func SweepCache(cache VariantCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := cache.SweepInvalid(c.UserContext(), c.Query("prefix")); err != nil {
			return storeError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "completed"})
	}
}

// PurgeCache unconditionally deletes cache objects, optionally narrowed by a
// ?prefix= query.
func PurgeCache(cache VariantCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := cache.Purge(c.UserContext(), c.Query("prefix")); err != nil {
			return storeError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "completed"})
	}
}

// StatSource returns the attributes of the source object behind an
// identifier, mainly for operational debugging of lookup configuration.
func StatSource(src SourceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier, ok := pathIdentifier(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_IDENTIFIER", "invalid identifier")
		}
		info, err := src.Stat(c.UserContext(), identifier)
		if err != nil {
			return storeError(c, err)
		}
		return c.JSON(fiber.Map{
			"key":           info.Key,
			"size":          info.Size,
			"etag":          info.ETag,
			"content_type":  info.ContentType,
			"last_modified": info.LastModified,
		})
	}
}

// pathIdentifier decodes the :identifier path parameter. Identifiers may
// contain slashes and other reserved characters when percent-encoded.
func pathIdentifier(c *fiber.Ctx) (string, bool) {
	identifier, err := url.PathUnescape(c.Params("identifier"))
	if err != nil || identifier == "" {
		return "", false
	}
	return identifier, true
}
