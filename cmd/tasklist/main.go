package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/tasklist/adapter/cli"
	"github.com/felixgeelhaar/tasklist/adapter/cli/task"
	"github.com/felixgeelhaar/tasklist/internal/app"
	"github.com/felixgeelhaar/tasklist/pkg/config"
	"github.com/felixgeelhaar/tasklist/pkg/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		return 1
	}

	logger := observability.LoggerFor(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat)
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		return 1
	}
	defer container.Close()

	userID, err := container.UserID()
	if err != nil {
		logger.Error("invalid user", "error", err)
		return 1
	}

	cliApp := cli.NewApp(
		container.CreateTaskHandler,
		container.ChangePriorityHandler,
		container.UpdateTaskHandler,
		container.CompleteTaskHandler,
		container.DeleteTaskHandler,
		container.ListTasksHandler,
		container.GetTaskHandler,
		container.CheckRankingHandler,
	)
	cliApp.SetCurrentUserID(userID)
	cli.SetApp(cliApp)
	cli.SetHealthRegistry(container.Health)

	cli.AddCommand(task.Cmd)

	code := 0
	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code = 1
	}
	if cli.Verbose() {
		container.Metrics.LogCounters(ctx, logger)
	}

	// Relay the events this command wrote; the worker picks up anything left.
	if cfg.OutboxProcessorEnabled {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer drainCancel()
		if n, err := container.NewOutboxProcessor().ProcessOnce(drainCtx); err != nil {
			logger.Warn("outbox relay failed", "error", err)
		} else if n > 0 {
			logger.Debug("outbox relayed", "published", n)
		}
	} else {
		logger.Debug("outbox processor disabled in CLI")
	}

	return code
}
