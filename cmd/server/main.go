package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/tracecmd/backend/internal/app"
	"github.com/tracecmd/backend/internal/config"
	"github.com/tracecmd/backend/internal/core/services"
	"github.com/tracecmd/backend/internal/infrastructure/logger"
	transporthttp "github.com/tracecmd/backend/internal/transport/http"
)

type requestIDKey struct{}

func main() {
	configPath := pflag.String("config", "", "path to config.yaml")
	pflag.Parse()

	path := *configPath
	if path == "" {
		path = "config/config.yaml"
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	container, err := app.New(cfg, log, app.Options{})
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}

	if container.Executor != nil {
		if err := container.Executor.ValidateBinaryExistence(); err != nil {
			log.Warnf("trace tools are missing; commands will fail until they are installed: %v", err)
		}
	}

	server := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          globalErrorHandler(log),
		DisableStartupMessage: true,
	})

	server.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	allowedOrigins := "http://localhost:3000"
	if len(cfg.Auth.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.Auth.AllowedOrigins, ",")
	}

	server.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Token",
		AllowMethods: "GET, POST, HEAD, DELETE",
	}))

	server.Use(func(c *fiber.Ctx) error {
		hdr := cfg.Features.RequestIDHeader
		var reqID string
		if hdr != "" {
			reqID = c.Get(hdr)
		}
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals(requestIDKey{}, reqID)
		c.SetUserContext(context.WithValue(c.UserContext(), requestIDKey{}, reqID))
		if hdr != "" {
			c.Set(hdr, reqID)
		}
		return c.Next()
	})

	if cfg.Features.EnableRequestLogging {
		server.Use(func(c *fiber.Ctx) error {
			start := time.Now()
			err := c.Next()
			routePath := ""
			if c.Route() != nil {
				routePath = c.Route().Path
			}
			log.Infow("http_access",
				"method", c.Method(),
				"path", c.Path(),
				"route", routePath,
				"query", string(c.Request().URI().QueryString()),
				"status", c.Response().StatusCode(),
				"latency_ms", time.Since(start).Milliseconds(),
				"client_ip", c.IP(),
				"user_agent", string(c.Request().Header.UserAgent()),
				"request_id", c.Locals(requestIDKey{}),
				"req_bytes", len(c.Request().Body()),
				"resp_bytes", len(c.Response().Body()),
			)
			return err
		})
	}

	server.Get("/health", func(c *fiber.Ctx) error {
		resp := fiber.Map{
			"status":  "ok",
			"version": cfg.App.Version,
			"running": container.Service.Running(),
		}
		if stats, err := container.Diagnostics.Collect(); err == nil {
			resp["host"] = stats
		}
		return c.JSON(resp)
	})

	transporthttp.SetupRoutes(server, transporthttp.RouterConfig{
		Logger:       log,
		Config:       cfg,
		Commands:     container.Service,
		TimelineRepo: container.Timeline,
		Hub:          container.Hub,
	})

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	retention := services.NewRetentionService(container.Timeline, log.Named("retention"),
		cfg.Runner.TimelineRetention, cfg.Runner.CleanupInterval)
	go retention.Run(cleanupCtx)

	addr := cfg.Server.Address()
	go func() {
		if err := server.Listen(addr); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	log.Infow("server_started", "addr", addr, "storage", cfg.Storage.Mode, "database", cfg.Database.Enabled)

	gracefulShutdown(server, container, stopCleanup, log)
}

func globalErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		// Expected client errors are logged at warn
		if code == fiber.StatusRequestTimeout || code == fiber.StatusNotFound {
			log.Warnw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Locals(requestIDKey{}),
			)
		} else {
			log.Errorw("request error",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Locals(requestIDKey{}),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

func gracefulShutdown(server *fiber.App, container *app.Container, stopCleanup context.CancelFunc, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down server...")
	stopCleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	if err := container.Close(ctx); err != nil {
		log.Errorf("failed to release services: %v", err)
	}

	log.Info("server exited gracefully")
}
