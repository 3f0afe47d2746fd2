package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/poimap/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP. Toggling layers is
	// interactive, so the viewer routes share the same budget.
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/ws"
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// API docs
	SetupDocs(app)

	v1 := app.Group("/v1")

	// Datasets
	v1.Get("/layers", timeout.NewWithContext(ListLayersHandler(deps), requestTimeout))
	v1.Get("/points", timeout.NewWithContext(ListPointsHandler(deps), requestTimeout))
	v1.Get("/points/nearby", timeout.NewWithContext(NearbyPointsHandler(deps), requestTimeout))

	// Viewer sessions
	v1.Post("/viewers", timeout.NewWithContext(CreateViewerHandler(deps), requestTimeout))
	v1.Get("/viewers/:id", timeout.NewWithContext(GetViewerHandler(deps), requestTimeout))
	v1.Delete("/viewers/:id", timeout.NewWithContext(DeleteViewerHandler(deps), requestTimeout))
	v1.Get("/viewers/:id/markers", timeout.NewWithContext(ViewerMarkersHandler(deps), requestTimeout))
	v1.Get("/viewers/:id/counts", timeout.NewWithContext(ViewerCountsHandler(deps), requestTimeout))
	v1.Put("/viewers/:id/layers/:category", timeout.NewWithContext(SetLayerVisibleHandler(deps), requestTimeout))
	v1.Post("/viewers/:id/layers/:category/toggle", timeout.NewWithContext(ToggleLayerHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
