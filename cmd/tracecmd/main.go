package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/tracecmd/backend/internal/app"
	"github.com/tracecmd/backend/internal/config"
	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/domain"
	"github.com/tracecmd/backend/internal/infrastructure/logger"
	"github.com/tracecmd/backend/internal/transport/console"
)

// Exit codes
const (
	exitOK       = 0
	exitFailed   = 1
	exitRejected = 2
	exitUsage    = 64
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := newFlags("tracecmd")
	flags.fs.SetOutput(stderr)
	if err := flags.parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if flags.version {
		fmt.Fprintf(stdout, "%s %s\n", cfg.App.Name, cfg.App.Version)
		return exitOK
	}
	if flags.listCollectors {
		for _, k := range domain.SupportedCollectors {
			fmt.Fprintln(stdout, k)
		}
		return exitOK
	}

	cmd, err := flags.command()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if cmd.Action() == domain.ActionNone {
		fmt.Fprintln(stderr, "nothing to do: pass --startcollector or --analyze")
		flags.fs.PrintDefaults()
		return exitUsage
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintln(stderr, "failed to initialize logger:", err)
		return exitFailed
	}
	defer log.Sync()

	display := console.NewDisplay(stdout)
	container, err := app.New(cfg, log, app.Options{
		Progress: console.NewProgress(stdout),
		Display:  display,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Close(ctx); err != nil {
			log.Warnw("shutdown_failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trace := ports.ListenerFunc(func(n domain.Notification) {
		log.Debugw("task_notification", "kind", n.Kind, "source", n.Source, "property", n.Property, "command", n.Command)
	})

	rec, code, err := container.Service.Submit(ctx, cmd, trace)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}
	if code != nil {
		display.Rejection(code, cfg.App.Name)
		return exitRejected
	}

	final, err := container.Service.WaitTask(ctx, rec.ID)
	if err != nil {
		// Interrupted by a signal: cancel and wait for completion to finish.
		_ = container.Service.CancelTask(context.Background(), rec.ID)
		waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if final, err = container.Service.WaitTask(waitCtx, rec.ID); err != nil {
			fmt.Fprintln(stderr, err)
			return exitFailed
		}
	}

	if final.Status != domain.TaskStatusCompleted {
		return exitFailed
	}
	return exitOK
}
