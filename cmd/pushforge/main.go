// Command pushforge runs the job runner: it polls for runnable jobs,
// dispatches them to the configured push worker, and settles credits on
// verified success.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pushforge/pushforge/config"
	"github.com/pushforge/pushforge/internal/adapters/jobrunner"
	"github.com/pushforge/pushforge/internal/adapters/pushexec"
	"github.com/pushforge/pushforge/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logStartupInfo(ctx, logger, &cfg)

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cfg.Postgres,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close database failed", "error", cerr)
		}
	}()

	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
			return err
		}
	} else {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}

	executor, err := pushexec.New(pushexec.Options{
		Endpoint: cfg.Runner.WorkerURL,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("build executor: %w", err)
	}

	runner, err := jobrunner.NewRunner(jobrunner.RunnerOptions{
		DB:           db,
		Logger:       logger,
		Executor:     executor,
		PollInterval: cfg.Runner.PollInterval,
		Concurrency:  cfg.Runner.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	return bootstrap.RunWithShutdown(runner, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting pushforge runner",
		"db_host", cfg.Postgres.Host,
		"db_port", cfg.Postgres.Port,
		"db_name", cfg.Postgres.Name,
		"worker_url", cfg.Runner.WorkerURL,
		"concurrency", cfg.Runner.Concurrency,
		"poll_interval", cfg.Runner.PollInterval)
}
