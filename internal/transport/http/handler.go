package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chesscore/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

type Options struct {
	// RateLimit is requests per second per client on /api/v1
	RateLimit   int
	CORSOrigins string
	// TrustedProxies may set X-Forwarded-For; other peers are keyed by
	// their own address
	TrustedProxies []string
	AccessLog      bool
	// WaitTimeout is the longest long-poll, it bounds the write timeout
	WaitTimeout time.Duration
	Logger      *zap.Logger
}

type HTTPHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewHTTPHandler(svc *service.Service, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{svc: svc, logger: logger}
}

func NewFiberApp(svc *service.Service, opts Options) *fiber.App {
	h := NewHTTPHandler(svc, opts.Logger)
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = service.WaitTimeout
	}

	cfg := fiber.Config{
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          opts.WaitTimeout + 10*time.Second,
		IdleTimeout:           30 * time.Second,
		DisableStartupMessage: true,
	}
	if len(opts.TrustedProxies) > 0 {
		cfg.ProxyHeader = fiber.HeaderXForwardedFor
		cfg.EnableTrustedProxyCheck = true
		cfg.TrustedProxies = opts.TrustedProxies
		cfg.EnableIPValidation = true
	}
	app := fiber.New(cfg)

	// Global middleware (order matters)
	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
		}))
	}
	origins := opts.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")

	api.Use(rateLimiter(opts.RateLimit))
	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	api.Post("/games", h.CreateGame)
	api.Get("/games/:gameId", gameIDValidator, h.GetGame)
	api.Delete("/games/:gameId", gameIDValidator, h.DeleteGame)
	api.Post("/games/:gameId/moves", gameIDValidator, h.MakeMove)
	api.Post("/games/:gameId/undo", gameIDValidator, h.UndoMove)
	api.Post("/games/:gameId/redo", gameIDValidator, h.RedoMove)
	api.Post("/games/:gameId/engine", gameIDValidator, h.EngineMove)
	api.Get("/games/:gameId/board", gameIDValidator, h.GetBoard)
	api.Get("/games/:gameId/wait", gameIDValidator, h.WaitGame)

	return app
}

// rateLimiter allows perSecond requests per client, 10 when unset
func rateLimiter(perSecond int) fiber.Handler {
	if perSecond < 1 {
		perSecond = 10
	}
	return limiter.New(limiter.Config{
		Max:        perSecond,
		Expiration: time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			// Only honours X-Forwarded-For from a trusted proxy
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", perSecond),
			})
		},
	})
}

// contentTypeValidator ensures POST requests with a body are JSON
func contentTypeValidator(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		contentType := c.Get(fiber.HeaderContentType)
		if !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(ErrorResponse{
				Error:   "unsupported media type",
				Code:    ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := ErrorResponse{
		Error: "internal server error",
		Code:  ErrInternalError,
	}

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = ErrGameNotFound
		case fiber.StatusBadRequest:
			response.Code = ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// Health check endpoint
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
		"games":  h.svc.GameCount(),
	})
}
