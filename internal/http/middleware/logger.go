package middleware

import (
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// Logger logs each HTTP request as one structured JSON line with the
// request_id set by RequestID, the method, path, final status, and latency
// in milliseconds.
func Logger() fiber.Handler {
	return LoggerWithWriter(os.Stdout)
}

// LoggerWithWriter is Logger with an injectable output, used by tests.
func LoggerWithWriter(w io.Writer) fiber.Handler {
	logger := log.New()
	logger.SetOutput(w)
	logger.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano, FieldMap: log.FieldMap{
		log.FieldKeyTime: "ts",
	}})

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// Collect fields after the handler so the final status is captured.
		rid, _ := c.Locals(RequestIDLocalKey).(string)
		logger.WithFields(log.Fields{
			"request_id": rid,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"latency":    float64(time.Since(start).Milliseconds()),
		}).Info("request")

		return err
	}
}
