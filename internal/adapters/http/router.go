package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/geoportal/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 600 requests per minute per IP; drawing progress is chatty
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1, 15s per-request timeout
	const reqTimeout = 15 * time.Second
	v1 := app.Group("/v1")
	v1.Get("/crs", ListCRSHandler(deps))
	v1.Get("/crs/:id", GetCRSHandler(deps))
	v1.Get("/boundaries", timeout.NewWithContext(ListBoundariesHandler(deps), reqTimeout))
	v1.Get("/boundaries/:id", timeout.NewWithContext(GetBoundaryHandler(deps), reqTimeout))

	ws := v1.Group("/workspaces")
	ws.Post("/", CreateWorkspaceHandler(deps))
	ws.Get("/:id", GetWorkspaceHandler(deps))
	ws.Delete("/:id", DeleteWorkspaceHandler(deps))
	ws.Post("/:id/tool", SelectToolHandler(deps))
	ws.Post("/:id/cancel", CancelDrawingHandler(deps))
	ws.Post("/:id/gestures/begin", BeginGestureHandler(deps))
	ws.Post("/:id/gestures/progress", GestureProgressHandler(deps))
	ws.Post("/:id/gestures/complete", timeout.NewWithContext(CompleteGestureHandler(deps), reqTimeout))
	ws.Post("/:id/coordinates", timeout.NewWithContext(CoordinatesHandler(deps), reqTimeout))
	ws.Post("/:id/files", timeout.NewWithContext(FilesHandler(deps), reqTimeout))
	ws.Post("/:id/imports", timeout.NewWithContext(StartImportHandler(deps), reqTimeout))
	ws.Get("/:id/aois", ListAOIsHandler(deps))
	ws.Delete("/:id/aois", ResetHandler(deps))
	ws.Get("/:id/aois/:aoi", GetAOIHandler(deps))
	ws.Delete("/:id/aois/:aoi", RemoveAOIHandler(deps))
	ws.Put("/:id/focal", FocalHandler(deps))
	ws.Put("/:id/boundaries", timeout.NewWithContext(BoundariesHandler(deps), reqTimeout))
	ws.Put("/:id/preview", PreviewHandler(deps))
	ws.Get("/:id/layers", LayersHandler(deps))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, DefaultSpecPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/:workspace", websocket.New(WebSocketHandler(deps.NATS)))
}
