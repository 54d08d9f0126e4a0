// Package server assembles the Fiber application: middleware, routes and the
// operational endpoints.
package server

import (
	"errors"
	"strings"
	"time"

	"valuedrive/internal/handlers"
	"valuedrive/internal/middleware"
	"valuedrive/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BodyLimit admits a full set of maximum size images plus the form fields.
const BodyLimit = services.MaxImages*services.MaxImageBytes + 1<<20

// DefaultResetLimit is the hourly per-IP budget of password reset emails.
const DefaultResetLimit = 5

// UploadsPath is where disk-stored images are served.
const UploadsPath = "/uploads"

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	AuthRequired   bool
	RequestTimeout time.Duration
	// UploadDir is served under UploadsPath when set.
	UploadDir string
	// AccessLog enables the per-request log line.
	AccessLog bool
}

// Services are the application services the routes call into.
type Services struct {
	Listings     *services.ListingService
	Catalog      *services.CatalogService
	Auth         *services.AuthService
	ResetLimiter middleware.Limiter
}

// New builds the Fiber app.
func New(svc Services, opt Options, log *zap.SugaredLogger) *fiber.App {
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = 30 * time.Second
	}
	if svc.ResetLimiter == nil {
		svc.ResetLimiter = middleware.NewLocalLimiter(DefaultResetLimit, time.Hour)
	}
	app := fiber.New(fiber.Config{
		AppName:      "valuedrive",
		BodyLimit:    BodyLimit,
		UnescapePath: true,
		ErrorHandler: errorHandler(log),
	})

	app.Use(requestid.New())
	if opt.AccessLog {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} - ${method} ${path} - ${ip} - ${latency}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}
	app.Use(recover.New())
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(opt.AllowedOrigins, ","),
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization",
		ExposeHeaders: "X-Request-ID",
	}))
	app.Use(middleware.Metrics())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	if opt.UploadDir != "" {
		app.Static(UploadsPath, opt.UploadDir)
	}

	api := app.Group("", middleware.RequestContext(opt.RequestTimeout))
	protect := middleware.Optional(opt.AuthRequired, middleware.AuthRequired(svc.Auth, log))
	resetLimit := middleware.RateLimit(svc.ResetLimiter, middleware.ByIP, log)

	handlers.NewListingHandler(svc.Listings, log).RegisterRoutes(api, protect)
	handlers.NewCatalogHandler(svc.Catalog, log).RegisterRoutes(api)
	handlers.NewAuthHandler(svc.Auth, log).RegisterRoutes(api, resetLimit)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Not Found"})
	})
	return app
}

// errorHandler answers errors that escape the handlers, such as an
// oversized body, with the usual {message} shape.
func errorHandler(log *zap.SugaredLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code, msg = fe.Code, fe.Message
		} else {
			log.Errorw("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"message": msg})
	}
}
