package main

import (
	"context"
	"errors"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"varcache/internal/cache"
	"varcache/internal/config"
	handlers "varcache/internal/http/handler"
	"varcache/internal/http/middleware"
	"varcache/internal/objstore"
	"varcache/internal/otel"
	"varcache/internal/source"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	shutdownTracing, err := otel.Init(context.Background())
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	storeOpts := objstore.Options{
		Endpoint:              cfg.S3.Endpoint,
		Region:                cfg.S3.Region,
		AccessKeyID:           cfg.S3.AccessKey,
		SecretAccessKey:       cfg.S3.SecretKey,
		AsyncCredentialUpdate: cfg.S3.AsyncCredentialUpdate,
	}

	// One dedicated client for the cache bucket; the registry hands out
	// clients for source reads, including per-object endpoint overrides
	// supplied by delegate lookups.
	cacheClient, err := objstore.New(storeOpts)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}
	registry := objstore.NewRegistry(storeOpts)

	variantCache := cache.New(cacheClient, cache.Config{
		Bucket:           cfg.Cache.Bucket,
		KeyPrefix:        cfg.Cache.ObjectKeyPrefix,
		TTLSeconds:       cfg.Cache.TTLSeconds,
		MultipartUploads: cfg.Cache.MultipartUploads,
		MaxRetries:       cfg.Cache.MaxRetries,
	})

	reg := prometheus.NewRegistry()
	cacheMetrics, err := cache.NewMetrics(reg)
	if err != nil {
		log.Fatalf("failed to register cache metrics: %v", err)
	}
	variantCache.SetMetrics(cacheMetrics)

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}

	imageSource := source.New(registry, source.BasicLookup{
		Bucket:     cfg.Source.Bucket,
		PathPrefix: cfg.Source.PathPrefix,
		PathSuffix: cfg.Source.PathSuffix,
	}, source.Config{
		ChunkingEnabled: cfg.Source.ChunkingEnabled,
		ChunkSize:       cfg.Source.ChunkSize,
	})

	// A HEAD of a well-known key proves connectivity and credentials; the
	// key itself does not have to exist.
	health := func(ctx context.Context) error {
		_, err := cacheClient.Stat(ctx, cfg.Cache.Bucket, "healthcheck")
		if err != nil && !errors.Is(err, objstore.ErrNotFound) {
			return err
		}
		return nil
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, variantCache, imageSource, health)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
