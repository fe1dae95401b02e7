// Package api serves the inbox over HTTP: the JSON contract the web
// front-end polls plus the Cloud API webhook.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/config"
	"github.com/matheus3301/wpp-inbox/internal/service"
)

// HTTPServer owns the fiber app and its listener.
type HTTPServer struct {
	app    *fiber.App
	addr   string
	logger *zap.Logger
}

// NewHTTPServer builds the app with middleware and routes. It does not
// listen until Start.
func NewHTTPServer(svc *service.Inbox, cfg config.HTTPConfig, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	app := fiber.New(fiber.Config{
		AppName:               "inboxd",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		ReadTimeout:           30 * time.Second,
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(logRequests(logger))
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST,OPTIONS",
	}))
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))

	h := &handler{svc: svc, logger: logger}
	h.routes(app)

	return &HTTPServer{app: app, addr: cfg.Addr, logger: logger}
}

// App exposes the fiber app, for tests.
func (s *HTTPServer) App() *fiber.App { return s.app }

// Start listens on the configured address. Blocks until Shutdown.
func (s *HTTPServer) Start() error {
	s.logger.Info("HTTP server starting", zap.String("addr", s.addr))
	return s.app.Listen(s.addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server stopping")
	return s.app.ShutdownWithContext(ctx)
}
