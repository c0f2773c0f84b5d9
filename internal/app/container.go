package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/tracecmd/backend/internal/config"
	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/core/services"
	"github.com/tracecmd/backend/internal/infrastructure/db"
	"github.com/tracecmd/backend/internal/infrastructure/diagnostics"
	"github.com/tracecmd/backend/internal/infrastructure/executor"
	"github.com/tracecmd/backend/internal/infrastructure/files"
	"github.com/tracecmd/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

// Options overrides the hub-backed presentation collaborators. The CLI
// passes console implementations; the server leaves them empty.
type Options struct {
	Progress ports.ProgressIndicator
	Display  ports.Display
	Executor ports.TraceExecutor
	Files    ports.FileManager
}

// Container holds the wired service graph shared by cmd/server and cmd/tracecmd
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *gorm.DB
	Tasks       ports.TaskRepository
	Timeline    ports.TimelineRepository
	Files       ports.FileManager
	Executor    *executor.Executor
	Hub         *services.EventHub
	Diagnostics *diagnostics.Collector
	Service     *services.TaskService
}

func New(cfg *config.Config, log *logger.Logger, opts Options) (*Container, error) {
	c := &Container{
		Config:      cfg,
		Logger:      log,
		Diagnostics: diagnostics.NewCollector(),
		Hub:         services.NewEventHub(cfg.Runner.EventBuffer),
	}

	if cfg.Database.Enabled {
		database, err := db.NewPostgresConnection(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("database connection established")

		if err := db.RunMigrations(database); err != nil {
			_ = db.Close(database)
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database migrations completed")

		c.DB = database
		c.Tasks = db.NewTaskRepository(database, log)
		c.Timeline = db.NewTimelineRepository(database, log)
	} else {
		log.Info("database disabled, task history kept in memory")
		c.Tasks = db.NewMemoryTaskRepository()
		c.Timeline = db.NewMemoryTimelineRepository()
	}

	c.Files = opts.Files
	if c.Files == nil {
		fm, err := files.New(cfg.Storage, cfg.Security.EncryptionKey)
		if err != nil {
			c.closeDB()
			return nil, err
		}
		c.Files = fm
	}

	var exec ports.TraceExecutor = opts.Executor
	if exec == nil {
		c.Executor = executor.NewExecutor(cfg.Executor, log.Named("executor"))
		exec = c.Executor
	}

	validator := services.NewValidator(services.ValidatorConfig{
		Files:         c.Files,
		Logger:        log.Named("validator"),
		LenientFormat: cfg.Features.LenientFormatCheck,
	})
	runner := services.NewTaskRunner(services.TaskRunnerConfig{
		Logger:      log.Named("runner"),
		AppName:     cfg.App.Name,
		Diagnostics: c.Diagnostics,
	})

	c.Service = services.NewTaskService(services.TaskServiceConfig{
		Validator:         validator,
		Runner:            runner,
		Executor:          exec,
		Files:             c.Files,
		Tasks:             c.Tasks,
		Timeline:          c.Timeline,
		Hub:               c.Hub,
		Logger:            log.Named("tasks"),
		Progress:          opts.Progress,
		Display:           opts.Display,
		ProgressTitle:     cfg.Runner.ProgressTitle,
		CompletionMessage: cfg.Runner.CompletionMessage,
	})

	return c, nil
}

// Close cancels running tasks, waits for them until ctx is done and closes
// the database.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if err := c.Service.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if c.DB != nil {
		if err := db.Close(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Container) closeDB() {
	if c.DB != nil {
		_ = db.Close(c.DB)
	}
}
