// Command pushforge-admin is the operator CLI: migrations, development
// seeding, credit grants, and job inspection against the configured database.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/pushforge/pushforge/config"
	"github.com/pushforge/pushforge/internal/bootstrap"
	"github.com/pushforge/pushforge/internal/devseed"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 2 * time.Minute
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"db-reset": {
			name:        "db-reset",
			description: "Drop the database schema, run migrations, and optionally seed data",
			run:         runDBReset,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Run database migrations and seed development data",
			run:         runDBSeed,
		},
		"grant": {
			name:        "grant",
			description: "Add credits to a user's account",
			run:         runGrant,
		},
		"balance": {
			name:        "balance",
			description: "Show a user's credit balance",
			run:         runBalance,
		},
		"transactions": {
			name:        "transactions",
			description: "List a user's ledger transactions, newest first",
			run:         runTransactions,
		},
		"create-job": {
			name:        "create-job",
			description: "Create a job for a user (subject to the rate limit)",
			run:         runCreateJob,
		},
		"jobs": {
			name:        "jobs",
			description: "List a user's jobs",
			run:         runJobs,
		},
		"stats": {
			name:        "stats",
			description: "Show job counts per lifecycle state",
			run:         runStats,
		},
		"safety": {
			name:        "safety",
			description: "Run the credit safety report and list billing anomalies",
			run:         runSafety,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: pushforge-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(os.Stdout, "  %-16s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

type migrateOptions struct {
	Timeout time.Duration
}

type dbResetOptions struct {
	Timeout     time.Duration
	Yes         bool
	Seed        bool
	AllowRemote bool
}

type dbSeedOptions struct {
	Timeout     time.Duration
	AllowRemote bool
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	opts := migrateOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "maximum time to wait for migrations")
	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, fmt.Errorf("parse migrate flags: %w", err)
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseDBResetFlags(args []string) (dbResetOptions, error) {
	fs := flag.NewFlagSet("db-reset", flag.ContinueOnError)
	opts := dbResetOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "maximum time to wait for the reset")
	fs.BoolVar(&opts.Yes, "yes", false, "skip the confirmation prompt")
	fs.BoolVar(&opts.Seed, "seed", false, "seed development data after the reset")
	fs.BoolVar(&opts.AllowRemote, "allow-remote", false, "permit running against a non-local database host")
	if err := fs.Parse(args); err != nil {
		return dbResetOptions{}, fmt.Errorf("parse db-reset flags: %w", err)
	}
	if opts.Timeout <= 0 {
		return dbResetOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseDBSeedFlags(args []string) (dbSeedOptions, error) {
	fs := flag.NewFlagSet("db-seed", flag.ContinueOnError)
	opts := dbSeedOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "maximum time to wait for seeding")
	fs.BoolVar(&opts.AllowRemote, "allow-remote", false, "permit running against a non-local database host")
	if err := fs.Parse(args); err != nil {
		return dbSeedOptions{}, fmt.Errorf("parse db-seed flags: %w", err)
	}
	if opts.Timeout <= 0 {
		return dbSeedOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}
		cmdCtx.Logger.Info("migrations completed successfully")
		return nil
	})
}

func runDBReset(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBResetFlags(args)
	if err != nil {
		return err
	}

	if _, guardErr := guardRemoteHost(cmdCtx, opts.AllowRemote, "drop and recreate the public schema"); guardErr != nil {
		return guardErr
	}

	target := fmt.Sprintf(
		"database %q on %s:%d",
		cmdCtx.Config.Postgres.Name,
		cmdCtx.Config.Postgres.Host,
		cmdCtx.Config.Postgres.Port,
	)
	if confirmErr := confirmAction(opts.Yes, "reset database schema", target); confirmErr != nil {
		return confirmErr
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("dropping public schema", "database", cmdCtx.Config.Postgres.Name)
		if resetErr := cmdCtx.resetDatabase(ctx, db); resetErr != nil {
			return resetErr
		}

		cmdCtx.Logger.Info("re-running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}

		if opts.Seed {
			cmdCtx.Logger.Info("seeding development data after reset")
			if seedErr := devseed.Run(ctx, devseed.NewServices(db), cmdCtx.Logger); seedErr != nil {
				return fmt.Errorf("seed data: %w", seedErr)
			}
		}

		cmdCtx.Logger.Info("database reset completed successfully")
		return nil
	})
}

func runDBSeed(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBSeedFlags(args)
	if err != nil {
		return err
	}

	if _, guardErr := guardRemoteHost(cmdCtx, opts.AllowRemote, "seed development data on the configured database"); guardErr != nil {
		return guardErr
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("ensuring database migrations are current")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}

		cmdCtx.Logger.Info("seeding development data")
		if seedErr := devseed.Run(ctx, devseed.NewServices(db), cmdCtx.Logger); seedErr != nil {
			return fmt.Errorf("seed data: %w", seedErr)
		}

		cmdCtx.Logger.Info("database seeding completed successfully")
		return nil
	})
}

func withDatabase(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, *sql.DB) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	return f(ctx, db)
}

func guardRemoteHost(cmdCtx *commandContext, allow bool, action string) (bool, error) {
	remote := isLikelyRemoteHost(cmdCtx.Config.Postgres.Host)
	if !remote {
		return false, nil
	}
	if !allow {
		return true, fmt.Errorf(
			"refusing to run against potentially remote database host %q; re-run with --allow-remote if this is intentional",
			cmdCtx.Config.Postgres.Host,
		)
	}
	if err := requireRemoteHostConfirmation(action, cmdCtx.Config.Postgres.Host); err != nil {
		return true, err
	}
	return true, nil
}

func (cmdCtx *commandContext) resetDatabase(ctx context.Context, db *sql.DB) error {
	if cmdCtx == nil {
		return errors.New("command context is required")
	}

	cfg := &cmdCtx.Config.Postgres
	statements := []string{
		"DROP SCHEMA public CASCADE",
		"CREATE SCHEMA public",
		"GRANT ALL ON SCHEMA public TO public",
	}
	if user := strings.TrimSpace(cfg.User); user != "" && !strings.EqualFold(user, "public") {
		statements = append(statements, "GRANT ALL ON SCHEMA public TO "+quoteIdentifier(user))
	}

	for _, stmt := range statements {
		if cmdCtx.Logger != nil {
			cmdCtx.Logger.DebugContext(ctx, "executing reset statement", "sql", stmt)
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return false
	}
	if h == "localhost" || h == "127.0.0.1" || h == "::1" {
		return false
	}
	if strings.HasSuffix(h, ".local") {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}

func requireRemoteHostConfirmation(action, host string) error {
	if err := writef(
		os.Stderr,
		"\nWARNING: database host %q does not look like a local address.\n"+
			"This operation will %s.\n",
		host,
		action,
	); err != nil {
		return fmt.Errorf("print remote host warning: %w", err)
	}
	if err := writef(os.Stderr, "Type %q to continue or press enter to abort: ", host); err != nil {
		return fmt.Errorf("print remote host prompt: %w", err)
	}
	reader := bufio.NewReader(os.Stdin)
	resp, err := reader.ReadString('\n')
	if err != nil {
		if writeErr := writef(os.Stderr, "\nFailed to read confirmation input: %v\n", err); writeErr != nil {
			return fmt.Errorf("aborted by user: report write failed: %w", writeErr)
		}
		return errors.New("aborted by user")
	}
	if strings.TrimSpace(resp) != host {
		return errors.New("aborted by user")
	}
	return nil
}

func confirmAction(yes bool, actionType, target string) error {
	if yes {
		return nil
	}

	if err := writef(os.Stdout, "About to %s for %s.\n", actionType, target); err != nil {
		return fmt.Errorf("print confirmation message: %w", err)
	}
	if err := write(os.Stdout, "Continue? [y/N]: "); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	reader := bufio.NewReader(os.Stdin)
	resp, err := reader.ReadString('\n')
	if err != nil {
		if writeErr := writef(os.Stdout, "\nFailed to read confirmation input: %v\n", err); writeErr != nil {
			return fmt.Errorf("aborted by user: report write failed: %w", writeErr)
		}
		return errors.New("aborted by user")
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp == "y" || resp == "yes" {
		return nil
	}
	return errors.New("aborted by user")
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func write(w io.Writer, args ...any) error {
	_, err := fmt.Fprint(w, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
