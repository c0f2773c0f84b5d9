package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/tracecmd/backend/internal/config"
	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/core/services"
	"github.com/tracecmd/backend/internal/infrastructure/logger"
	"github.com/tracecmd/backend/internal/transport/http/handlers"
	httpmw "github.com/tracecmd/backend/internal/transport/http/middleware"
)

type RouterConfig struct {
	Logger       *logger.Logger
	Config       *config.Config
	Commands     ports.CommandService
	TimelineRepo ports.TimelineRepository
	Hub          *services.EventHub
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) {
	appName := cfg.Config.App.Name

	// Initialize handlers
	commandHandler := handlers.NewCommandHandler(cfg.Commands, cfg.Logger, appName)
	taskHandler := handlers.NewTaskHandler(cfg.Commands, cfg.Logger, appName)
	timelineHandler := handlers.NewTimelineHandler(cfg.TimelineRepo)

	// Live task events
	if cfg.Hub != nil {
		eventsHandler := handlers.NewEventsHandler(cfg.Hub, cfg.Logger)
		app.Use("/ws", httpmw.AdminAuth(cfg.Config), func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				c.Locals("allowed", true)
				return c.Next()
			}
			return c.SendStatus(fiber.StatusUpgradeRequired)
		})
		app.Get("/ws/tasks", websocket.New(eventsHandler.Handle))
	}

	// API v1 routes
	api := app.Group("/api/v1")

	// Reference data
	api.Get("/errors", commandHandler.GetErrorCodes)
	api.Get("/collectors", commandHandler.GetCollectors)

	// Command routes
	commands := api.Group("/commands", httpmw.AdminAuth(cfg.Config))
	commands.Post("/validate", commandHandler.Validate)
	commands.Post("/", commandHandler.Submit)

	// Task routes
	tasks := api.Group("/tasks", httpmw.AdminAuth(cfg.Config))
	tasks.Get("/", taskHandler.GetTasks)
	tasks.Get("/:id", taskHandler.GetTask)
	tasks.Delete("/:id", taskHandler.CancelTask)

	// Timeline routes
	timeline := api.Group("/timeline", httpmw.AdminAuth(cfg.Config))
	timeline.Get("/", timelineHandler.GetEvents)
}
