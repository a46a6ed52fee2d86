package config

import (
	"os"
	"strconv"
)

// S3Config holds connection settings for the S3-compatible endpoint shared
// by the cache and source sides. Per-object credentials resolved at lookup
// time override these.
type S3Config struct {
	Endpoint              string
	Region                string
	AccessKey             string
	SecretKey             string
	AsyncCredentialUpdate bool
}

// CacheConfig holds the derivative/info cache settings.
type CacheConfig struct {
	Bucket           string
	ObjectKeyPrefix  string
	TTLSeconds       int64
	MultipartUploads bool
	MaxRetries       int
}

// SourceConfig holds the source-read settings.
type SourceConfig struct {
	Bucket          string
	PathPrefix      string
	PathSuffix      string
	ChunkingEnabled bool
	ChunkSize       int64
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost string
	Port    string
	S3      S3Config
	Cache   CacheConfig
	Source  SourceConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		S3: S3Config{
			Endpoint:              getEnv("S3_ENDPOINT", ""),
			Region:                getEnv("S3_REGION", ""),
			AccessKey:             getEnv("S3_ACCESS_KEY_ID", ""),
			SecretKey:             getEnv("S3_SECRET_ACCESS_KEY", ""),
			AsyncCredentialUpdate: getEnvBool("S3_ASYNC_CREDENTIAL_UPDATE", true),
		},
		Cache: CacheConfig{
			Bucket:           getEnv("CACHE_BUCKET", ""),
			ObjectKeyPrefix:  getEnv("CACHE_OBJECT_KEY_PREFIX", ""),
			TTLSeconds:       getEnvInt64("CACHE_TTL_SECONDS", 0),
			MultipartUploads: getEnvBool("CACHE_MULTIPART_UPLOADS", false),
			MaxRetries:       getEnvInt("CACHE_MAX_RETRIES", 5),
		},
		Source: SourceConfig{
			Bucket:          getEnv("SOURCE_BUCKET", ""),
			PathPrefix:      getEnv("SOURCE_PATH_PREFIX", ""),
			PathSuffix:      getEnv("SOURCE_PATH_SUFFIX", ""),
			ChunkingEnabled: getEnvBool("SOURCE_CHUNKING_ENABLED", true),
			ChunkSize:       getEnvInt64("SOURCE_CHUNK_SIZE", 512*1024),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
