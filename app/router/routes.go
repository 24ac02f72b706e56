// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/amirphl/conference-registry/app/dto"
	"github.com/amirphl/conference-registry/app/handlers"
	"github.com/amirphl/conference-registry/app/middleware"
	_ "github.com/amirphl/conference-registry/docs"
	"github.com/amirphl/conference-registry/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Options configures the router from application settings
type Options struct {
	AllowedOrigins   []string
	AdminAPIKeys     []string
	MetricsEnabled   bool
	MetricsPath      string
	RateLimitPerMin  int
	WriteLimitPerMin int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	BodyLimit        int
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app                  *fiber.App
	opts                 Options
	eventHandler         handlers.EventHandlerInterface
	registrationHandler  handlers.RegistrationHandlerInterface
	abstractHandler      handlers.AbstractHandlerInterface
	sequenceAdminHandler handlers.SequenceAdminHandlerInterface
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	opts Options,
	eventHandler handlers.EventHandlerInterface,
	registrationHandler handlers.RegistrationHandlerInterface,
	abstractHandler handlers.AbstractHandlerInterface,
	sequenceAdminHandler handlers.SequenceAdminHandlerInterface,
) Router {
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = utils.MaxImportFileSize + 1024*1024
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.RateLimitPerMin <= 0 {
		opts.RateLimitPerMin = 2000
	}
	if opts.WriteLimitPerMin <= 0 {
		opts.WriteLimitPerMin = 120
	}

	app := fiber.New(fiber.Config{
		AppName:      "Conference Registry API",
		ServerHeader: "Conference-Registry",
		ErrorHandler: errorHandler,
		BodyLimit:    opts.BodyLimit,
		ReadTimeout:  defaultDuration(opts.ReadTimeout, 30*time.Second),
		WriteTimeout: defaultDuration(opts.WriteTimeout, 30*time.Second),
		IdleTimeout:  defaultDuration(opts.IdleTimeout, 60*time.Second),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:                  app,
		opts:                 opts,
		eventHandler:         eventHandler,
		registrationHandler:  registrationHandler,
		abstractHandler:      abstractHandler,
		sequenceAdminHandler: sequenceAdminHandler,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	if r.opts.MetricsEnabled {
		r.app.Get(r.opts.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// API documentation route (development only)
	if os.Getenv("APP_ENV") == "development" || os.Getenv("APP_ENV") == "local" {
		api.Get("/docs", r.getAPIDocumentation)
		api.Get("/swagger.json", r.serveSwaggerJSON)
		log.Println("API documentation enabled for development")
	}

	api.Use(limiter.New(limiter.Config{
		Max:        r.opts.RateLimitPerMin,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Stricter limit for endpoints that consume identifiers
	writeLimit := limiter.New(limiter.Config{
		Max:        r.opts.WriteLimitPerMin,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	})

	events := api.Group("/events/:event_uuid")
	events.Get("/", r.eventHandler.Get)
	events.Get("/registrations", r.registrationHandler.List)
	events.Get("/registrations/:public_id", r.registrationHandler.Get)
	events.Post("/registrations", writeLimit, r.registrationHandler.Register)
	events.Post("/abstracts", writeLimit, r.abstractHandler.Submit)

	admin := api.Group("/admin", r.adminKeyMiddleware)
	admin.Post("/events", r.eventHandler.Create)
	admin.Post("/events/:event_uuid/registrations/import", r.registrationHandler.Import)
	admin.Get("/events/:event_uuid/registrations/export", r.registrationHandler.Export)
	admin.Get("/events/:event_uuid/sequences/:kind", r.sequenceAdminHandler.Inspect)
	admin.Post("/events/:event_uuid/sequences/:kind/reconcile", r.sequenceAdminHandler.Reconcile)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// SetupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))

	r.app.Use(middleware.Metrics())

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	if len(r.opts.AllowedOrigins) > 0 {
		r.app.Use(cors.New(cors.Config{
			AllowOrigins: r.opts.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowHeaders: []string{
				"Origin",
				"Content-Type",
				"Accept",
				"X-Requested-With",
				"X-Request-ID",
				"X-API-Key",
			},
			ExposeHeaders: []string{
				"X-Request-ID",
				"Retry-After",
				"Content-Disposition",
			},
			MaxAge: utils.CORSMaxAge,
		}))
	}

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// Workbooks are already zip compressed
			return strings.HasSuffix(c.Path(), "/export")
		},
	}))

	// Only the health check and docs are cacheable; identifiers must never be served from cache
	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Method() != "GET" ||
				!strings.Contains(c.Path(), "/health") &&
					!strings.Contains(c.Path(), "/docs")
		},
		Expiration:          30 * time.Second,
		DisableCacheControl: false,
	}))

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health" || c.Path() == r.opts.MetricsPath
		},
	}))
}

// adminKeyMiddleware requires a configured X-API-Key on administrative routes
func (r *FiberRouter) adminKeyMiddleware(c fiber.Ctx) error {
	apiKey := c.Get("X-API-Key")
	if apiKey == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: "API key is required",
			Error: dto.ErrorDetail{
				Code: "MISSING_API_KEY",
			},
		})
	}

	for _, validKey := range r.opts.AdminAPIKeys {
		if validKey != "" && subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
			return c.Next()
		}
	}

	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: "Invalid API key",
		Error: dto.ErrorDetail{
			Code: "INVALID_API_KEY",
		},
	})
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "conference-registry-api",
		},
	})
}

// API documentation endpoint
func (r *FiberRouter) getAPIDocumentation(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "API documentation retrieved successfully",
		Data: fiber.Map{
			"title":       "Conference Registry API Documentation",
			"version":     "1.0.0",
			"description": "Conference registrations and abstracts with sequential public identifiers",
			"endpoints":   GetRouteDocumentation(),
		},
	})
}

// serveSwaggerJSON serves the generated OpenAPI document
func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	swaggerData, err := os.ReadFile("docs/swagger.json")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}

	c.Set("Content-Type", "application/json")
	return c.Send(swaggerData)
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errorCode := "INTERNAL_ERROR"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
			errorCode = "REQUEST_ERROR"
		}
	}

	log.Printf("Error %d: %v", code, err)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// Helper functions

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func defaultDuration(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

// GetRouteDocumentation returns API documentation
func GetRouteDocumentation() []map[string]any {
	return []map[string]any{
		{
			"method":      "POST",
			"path":        "/api/v1/admin/events",
			"description": "Create an event with its identifier settings (admin)",
			"parameters": map[string]any{
				"code":                      "string (required) - Short event code, letters and digits",
				"name":                      "string (required) - Event name",
				"registration_prefix":       "string (optional) - Registration ID prefix (default REG)",
				"registration_start_number": "number (optional) - First registration number (default 1)",
				"abstract_prefix":           "string (optional) - Abstract ID prefix (default ABS-<code>)",
				"abstract_start_number":     "number (optional) - First abstract number (default 1)",
				"id_pad_width":              "number (optional) - Zero padding width (default 4)",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/events/:event_uuid",
			"description": "Get an event",
			"parameters":  map[string]any{},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/events/:event_uuid/registrations",
			"description": "Register an attendee; the public ID is allocated by the server",
			"parameters": map[string]any{
				"first_name": "string (required)",
				"last_name":  "string (required)",
				"email":      "string (required)",
				"mobile":     "string (optional)",
				"category":   "string (optional)",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/events/:event_uuid/registrations",
			"description": "List registrations in public ID order",
			"parameters": map[string]any{
				"page":  "number (optional) - Query parameter, default 1",
				"limit": "number (optional) - Query parameter, default 20, max 100",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/events/:event_uuid/registrations/:public_id",
			"description": "Get a registration by public ID",
			"parameters":  map[string]any{},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/events/:event_uuid/abstracts",
			"description": "Submit an abstract; the public ID is allocated by the server",
			"parameters": map[string]any{
				"title":                  "string (required)",
				"body":                   "string (required)",
				"registration_public_id": "string (optional) - Links the abstract to a registration",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/admin/events/:event_uuid/registrations/import",
			"description": "Import registrations from CSV or XLSX (admin)",
			"parameters": map[string]any{
				"file": "file (required) - Columns first_name, last_name, email; optional mobile, category, public_id",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/admin/events/:event_uuid/registrations/export",
			"description": "Export registrations as XLSX (admin)",
			"parameters":  map[string]any{},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/admin/events/:event_uuid/sequences/:kind",
			"description": "Inspect an identifier counter (admin)",
			"parameters": map[string]any{
				"kind": "string (required) - registration|abstract",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/admin/events/:event_uuid/sequences/:kind/reconcile",
			"description": "Raise an identifier counter past the highest stored identifier (admin)",
			"parameters": map[string]any{
				"kind": "string (required) - registration|abstract",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/health",
			"description": "Health check endpoint",
			"parameters":  map[string]any{},
		},
	}
}
