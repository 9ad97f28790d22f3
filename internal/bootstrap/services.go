package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pushforge/pushforge/config"
	"github.com/pushforge/pushforge/internal/core"
	"github.com/pushforge/pushforge/internal/data"
	"github.com/pushforge/pushforge/internal/service"
	"github.com/redis/go-redis/v9"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs    *service.JobService
	Credits *service.CreditService
	Safety  *service.SafetyService
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	JobRepo    *data.JobRepo
	LedgerRepo *data.LedgerRepo
	SafetyRepo *data.SafetyRepo
	Limiter    core.RateLimiter
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(deps *ServiceDeps) *serviceRepositories {
	repos := &serviceRepositories{
		JobRepo:    data.NewJobRepo(deps.DB, data.JobRepoConfig{Logger: deps.Logger}),
		LedgerRepo: data.NewLedgerRepo(deps.DB, data.LedgerRepoConfig{Logger: deps.Logger}),
		SafetyRepo: data.NewSafetyRepo(deps.DB),
	}

	// The limiter is optional: without Redis, or with the limit disabled,
	// job creation is simply unthrottled.
	if deps.RedisClient != nil && rateLimitEnabled(deps.Config) {
		repos.Limiter = data.NewRedisRateLimiter(deps.RedisClient, data.RateLimiterConfig{
			MaxRequests: deps.Config.RateLimit.MaxRequests,
			Window:      deps.Config.RateLimit.Window,
			Prefix:      "ratelimit",
		})
	}
	return repos
}

func rateLimitEnabled(cfg *config.AppConfig) bool {
	return cfg != nil && cfg.RateLimit.Enabled
}

// NewServices wires the full service container from configuration and
// connections.
func NewServices(deps *ServiceDeps) ServiceContainer {
	if deps == nil || deps.DB == nil {
		return ServiceContainer{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repos := buildRepositories(deps)

	jobs := service.MustNewJobService(service.JobServiceOptions{
		Repo:    repos.JobRepo,
		Ledger:  repos.LedgerRepo,
		Limiter: repos.Limiter,
		Logger:  logger,
	})
	credits := service.MustNewCreditService(service.CreditServiceOptions{
		Ledger: repos.LedgerRepo,
		Logger: logger,
	})
	safety, err := service.NewSafetyService(service.SafetyServiceOptions{
		Safety: repos.SafetyRepo,
		Jobs:   repos.JobRepo,
		Logger: logger,
	})
	if err != nil {
		// Both inputs are constructed above; this only fires on a wiring bug.
		logger.Error("failed to create safety service", "error", err)
	}

	return ServiceContainer{
		Jobs:    jobs,
		Credits: credits,
		Safety:  safety,
	}
}

// shutdownWaitTimeout is the maximum time to wait for the runner to stop gracefully.
const shutdownWaitTimeout = 15 * time.Second

// BackgroundRunner is a long-running component driven until cancellation.
type BackgroundRunner interface {
	Run(ctx context.Context) error
}

// RunWithShutdown runs the given component until a termination signal arrives
// or the component fails on its own.
func RunWithShutdown(runner BackgroundRunner, logger *slog.Logger) error {
	if runner == nil {
		return errors.New("runner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		logger.Info("shutting down...")
		cancel()
		waitForStop(done, logger)
		return nil
	case err := <-errCh:
		logger.Error("runner error", "error", err)
		cancel()
		return err
	}
}

func waitForStop(done <-chan struct{}, logger *slog.Logger) {
	select {
	case <-done:
		logger.Info("runner stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for runner to stop")
	}
}
