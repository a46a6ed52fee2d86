package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"varcache/internal/objstore"
)

type MockVariantCache struct {
	mock.Mock
}

func (m *MockVariantCache) FetchInfo(ctx context.Context, identifier string) ([]byte, error) {
	args := m.Called(ctx, identifier)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockVariantCache) PutInfo(ctx context.Context, identifier string, info []byte) error {
	args := m.Called(ctx, identifier, info)
	return args.Error(0)
}

func (m *MockVariantCache) Evict(ctx context.Context, identifier string) error {
	args := m.Called(ctx, identifier)
	return args.Error(0)
}

func (m *MockVariantCache) SweepInvalid(ctx context.Context, subPrefix string) error {
	args := m.Called(ctx, subPrefix)
	return args.Error(0)
}

func (m *MockVariantCache) Purge(ctx context.Context, subPrefix string) error {
	args := m.Called(ctx, subPrefix)
	return args.Error(0)
}

type MockSourceStore struct {
	mock.Mock
}

func (m *MockSourceStore) Stat(ctx context.Context, identifier string) (objstore.ObjectInfo, error) {
	args := m.Called(ctx, identifier)
	return args.Get(0).(objstore.ObjectInfo), args.Error(1)
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(func(context.Context) error { return nil }))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(func(context.Context) error { return errors.New("store unreachable") }))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetInfo(t *testing.T) {
	mockCache := new(MockVariantCache)
	app := fiber.New()
	app.Get("/infos/:identifier", GetInfo(mockCache))

	t.Run("hit", func(t *testing.T) {
		mockCache.On("FetchInfo", mock.Anything, "some-image").
			Return([]byte(`{"width":800}`), nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/infos/some-image", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "application/json")

		var body map[string]int
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, 800, body["width"])
		mockCache.AssertExpectations(t)
	})

	t.Run("miss is 404", func(t *testing.T) {
		mockCache.On("FetchInfo", mock.Anything, "missing").Return(nil, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/infos/missing", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockCache.AssertExpectations(t)
	})

	t.Run("encoded identifier", func(t *testing.T) {
		mockCache.On("FetchInfo", mock.Anything, "folder/image").
			Return([]byte(`{}`), nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/infos/folder%2Fimage", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockCache.AssertExpectations(t)
	})

	t.Run("store error", func(t *testing.T) {
		mockCache.On("FetchInfo", mock.Anything, "broken").
			Return(nil, errors.New("connection reset")).Once()

		req := httptest.NewRequest(http.MethodGet, "/infos/broken", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockCache.AssertExpectations(t)
	})
}

func TestPutInfo(t *testing.T) {
	mockCache := new(MockVariantCache)
	app := fiber.New()
	app.Put("/infos/:identifier", PutInfo(mockCache))

	t.Run("success", func(t *testing.T) {
		mockCache.On("PutInfo", mock.Anything, "some-image", []byte(`{"width":800}`)).
			Return(nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/infos/some-image", strings.NewReader(`{"width":800}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockCache.AssertExpectations(t)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/infos/some-image", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "BODY_REQUIRED", res.Error.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/infos/some-image", strings.NewReader("{not json"))
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_JSON", res.Error.Code)
	})

	t.Run("persistent throttling surfaces as 503", func(t *testing.T) {
		mockCache.On("PutInfo", mock.Anything, "some-image", mock.Anything).
			Return(fmt.Errorf("put info: %w", objstore.ErrRateLimited)).Once()

		req := httptest.NewRequest(http.MethodPut, "/infos/some-image", strings.NewReader(`{}`))
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "RATE_LIMITED", res.Error.Code)
		mockCache.AssertExpectations(t)
	})
}

func TestEvictEntry(t *testing.T) {
	mockCache := new(MockVariantCache)
	app := fiber.New()
	app.Delete("/cache/:identifier", EvictEntry(mockCache))

	t.Run("success", func(t *testing.T) {
		mockCache.On("Evict", mock.Anything, "some-image").Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/cache/some-image", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockCache.AssertExpectations(t)
	})

	t.Run("access denied", func(t *testing.T) {
		mockCache.On("Evict", mock.Anything, "some-image").
			Return(fmt.Errorf("evict: %w", objstore.ErrAccessDenied)).Once()

		req := httptest.NewRequest(http.MethodDelete, "/cache/some-image", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FORBIDDEN", res.Error.Code)
		mockCache.AssertExpectations(t)
	})
}

func TestSweepAndPurge(t *testing.T) {
	mockCache := new(MockVariantCache)
	app := fiber.New()
	app.Post("/cache/sweep", SweepCache(mockCache))
	app.Post("/cache/purge", PurgeCache(mockCache))

	t.Run("sweep full keyspace", func(t *testing.T) {
		mockCache.On("SweepInvalid", mock.Anything, "").Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/cache/sweep", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "completed", body["status"])
		mockCache.AssertExpectations(t)
	})

	t.Run("sweep narrowed by prefix", func(t *testing.T) {
		mockCache.On("SweepInvalid", mock.Anything, "info/").Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/cache/sweep?prefix=info%2F", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockCache.AssertExpectations(t)
	})

	t.Run("purge", func(t *testing.T) {
		mockCache.On("Purge", mock.Anything, "image/").Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/cache/purge?prefix=image%2F", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockCache.AssertExpectations(t)
	})

	t.Run("walk failure", func(t *testing.T) {
		mockCache.On("SweepInvalid", mock.Anything, "").
			Return(errors.New("listing failed")).Once()

		req := httptest.NewRequest(http.MethodPost, "/cache/sweep", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockCache.AssertExpectations(t)
	})
}

func TestStatSource(t *testing.T) {
	mockSrc := new(MockSourceStore)
	app := fiber.New()
	app.Get("/source/:identifier/stat", StatSource(mockSrc))

	t.Run("success", func(t *testing.T) {
		mockSrc.On("Stat", mock.Anything, "photo.jpg").
			Return(objstore.ObjectInfo{Key: "originals/photo.jpg", Size: 12345, ContentType: "image/jpeg"}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/source/photo.jpg/stat", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "originals/photo.jpg", body["key"])
		assert.Equal(t, float64(12345), body["size"])
		assert.Equal(t, "image/jpeg", body["content_type"])
		mockSrc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSrc.On("Stat", mock.Anything, "missing.jpg").
			Return(objstore.ObjectInfo{}, fmt.Errorf("stat: %w", objstore.ErrNotFound)).Once()

		req := httptest.NewRequest(http.MethodGet, "/source/missing.jpg/stat", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSrc.AssertExpectations(t)
	})

	t.Run("lookup misconfiguration", func(t *testing.T) {
		mockSrc.On("Stat", mock.Anything, "broken").
			Return(objstore.ObjectInfo{}, error(&objstore.ConfigError{Reason: "missing bucket"})).Once()

		req := httptest.NewRequest(http.MethodGet, "/source/broken/stat", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "CONFIG_ERROR", res.Error.Code)
		mockSrc.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockCache := new(MockVariantCache)
	mockSrc := new(MockSourceStore)
	RegisterRoutes(app, mockCache, mockSrc, func(context.Context) error { return nil })

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})
}
