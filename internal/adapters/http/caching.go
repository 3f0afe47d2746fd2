package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on
// endpoint, unless the handler already set one.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != fiber.MethodGet {
			return err
		}

		// Don't override if already set
		if c.Response().Header.Peek(fiber.HeaderCacheControl) != nil {
			return err
		}

		path := c.Path()
		var ttl string

		// Default cache times by endpoint pattern
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "no-cache" // Readiness flips once ingestion finishes

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case strings.HasPrefix(path, "/v1/viewers/"):
			ttl = "private, no-cache" // Per-session state changes on every toggle

		case path == "/v1/layers":
			ttl = "public, max-age=5" // Short while layers are still loading

		case strings.HasPrefix(path, "/v1/points"):
			ttl = "public, max-age=30" // Datasets are replaced at most once per run

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60" // 1 min default for API endpoints
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
