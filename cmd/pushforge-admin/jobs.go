package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pushforge/pushforge/internal/bootstrap"
	"github.com/pushforge/pushforge/internal/domain/model"
	"github.com/pushforge/pushforge/internal/service"
)

type createJobOptions struct {
	UserID  string
	Kind    model.JobKind
	Credits int

	// Kind-specific payload fields; only the set matching --kind is used.
	UploadID  string
	RepoName  string
	RepoURL   string
	Branch    string
	PartnerID string
	Manifest  string
}

type jobsOptions struct {
	UserID string
	Status *model.JobStatus
	Limit  int
}

func parseCreateJobFlags(args []string) (createJobOptions, error) {
	fs := flag.NewFlagSet("create-job", flag.ContinueOnError)
	opts := createJobOptions{}
	var kind string
	fs.StringVar(&opts.UserID, "user", "", "user the job belongs to (required)")
	fs.StringVar(&kind, "kind", "", "job kind: upload, autopush, or partner (required)")
	fs.IntVar(&opts.Credits, "credits", 0, "credits required to run the job (required)")
	fs.StringVar(&opts.UploadID, "upload-id", "", "upload bundle id (upload jobs)")
	fs.StringVar(&opts.RepoName, "repo", "", "target repository name (upload jobs)")
	fs.StringVar(&opts.RepoURL, "repo-url", "", "repository clone URL (autopush jobs)")
	fs.StringVar(&opts.Branch, "branch", "", "target branch (autopush jobs)")
	fs.StringVar(&opts.PartnerID, "partner", "", "partner integration id (partner jobs)")
	fs.StringVar(&opts.Manifest, "manifest", "", "deployment manifest path (partner jobs)")
	if err := fs.Parse(args); err != nil {
		return createJobOptions{}, fmt.Errorf("parse create-job flags: %w", err)
	}
	if opts.UserID == "" {
		return createJobOptions{}, errors.New("--user is required")
	}
	if err := opts.Kind.UnmarshalText([]byte(kind)); err != nil {
		return createJobOptions{}, fmt.Errorf("parse --kind: %w", err)
	}
	if opts.Credits <= 0 {
		return createJobOptions{}, errors.New("--credits must be greater than zero")
	}
	return opts, nil
}

// buildPayload assembles the kind-specific payload. Field validation beyond
// assembly belongs to the payload types themselves.
func (opts createJobOptions) buildPayload() (model.JobPayload, error) {
	switch opts.Kind {
	case model.JobKindUpload:
		return model.UploadPayload{UploadID: opts.UploadID, RepoName: opts.RepoName}, nil
	case model.JobKindAutopush:
		return model.AutopushPayload{RepoURL: opts.RepoURL, Branch: opts.Branch}, nil
	case model.JobKindPartner:
		return model.PartnerPayload{PartnerID: opts.PartnerID, Manifest: opts.Manifest}, nil
	default:
		return nil, fmt.Errorf("unsupported job kind %q", opts.Kind)
	}
}

func parseJobsFlags(args []string) (jobsOptions, error) {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	opts := jobsOptions{}
	var status string
	fs.StringVar(&opts.UserID, "user", "", "user to inspect (required)")
	fs.StringVar(&status, "status", "", "filter by lifecycle state (pending, validated, running, success, failed)")
	fs.IntVar(&opts.Limit, "limit", 20, "maximum number of jobs to list")
	if err := fs.Parse(args); err != nil {
		return jobsOptions{}, fmt.Errorf("parse jobs flags: %w", err)
	}
	if opts.UserID == "" {
		return jobsOptions{}, errors.New("--user is required")
	}
	if opts.Limit <= 0 {
		return jobsOptions{}, errors.New("--limit must be greater than zero")
	}
	if status != "" {
		s := model.JobStatus(status)
		if !s.Valid() {
			return jobsOptions{}, fmt.Errorf("invalid --status %q", status)
		}
		opts.Status = &s
	}
	return opts, nil
}

// runCreateJob creates a job through the same service path the API uses, so
// creation-time credit checks and the Redis rate limit both apply.
func runCreateJob(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateJobFlags(args)
	if err != nil {
		return err
	}

	payload, err := opts.buildPayload()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, redisClient, err := connectInfra(&connectInfraOptions{
		Logger:    cmdCtx.Logger,
		Config:    &cmdCtx.Config,
		WantRedis: true,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeInfra(db, redisClient); cerr != nil {
			cmdCtx.Logger.Warn("close infra failed", "error", cerr)
		}
	}()

	svcs := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cmdCtx.Config,
		DB:          db,
		RedisClient: redisClient,
		Logger:      cmdCtx.Logger,
	})

	job, err := svcs.Jobs.Create(ctx, &model.CreateJobRequest{
		UserID:          opts.UserID,
		Payload:         payload,
		RequiredCredits: opts.Credits,
	})
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	if writeErr := writef(
		os.Stdout,
		"Created %s job %s for %s (%d credits, status %s)\n",
		job.Kind, job.ID, job.UserID, job.RequiredCredits, job.Status,
	); writeErr != nil {
		return fmt.Errorf("print create-job summary: %w", writeErr)
	}
	return nil
}

func runJobs(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobsFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := bootstrap.NewServices(&bootstrap.ServiceDeps{
			Config: &cmdCtx.Config,
			DB:     db,
			Logger: cmdCtx.Logger,
		})

		jobs, listErr := svcs.Jobs.ListUserJobs(ctx, &model.JobListOptions{
			UserID: opts.UserID,
			Status: opts.Status,
			Limit:  opts.Limit,
		})
		if listErr != nil {
			return fmt.Errorf("list jobs: %w", listErr)
		}
		if len(jobs) == 0 {
			if writeErr := writef(os.Stdout, "No jobs found for %s\n", opts.UserID); writeErr != nil {
				return fmt.Errorf("print empty jobs notice: %w", writeErr)
			}
			return nil
		}

		return printJobs(jobs)
	})
}

func printJobs(jobs []*model.Job) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "ID\tKIND\tSTATUS\tCREDITS\tCHARGED\tCREATED\tERROR"); err != nil {
		return fmt.Errorf("print jobs header: %w", err)
	}
	for _, job := range jobs {
		errMsg := "-"
		if job.Error != nil {
			errMsg = *job.Error
		}
		if err := writef(tw, "%s\t%s\t%s\t%d\t%t\t%s\t%s\n",
			job.ID, job.Kind, job.Status, job.RequiredCredits, job.CreditsCharged,
			job.CreatedAt.Format(time.RFC3339), errMsg,
		); err != nil {
			return fmt.Errorf("print job row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush jobs table: %w", err)
	}
	return nil
}

func runStats(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("stats takes no arguments, got %d", len(args))
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := bootstrap.NewServices(&bootstrap.ServiceDeps{
			Config: &cmdCtx.Config,
			DB:     db,
			Logger: cmdCtx.Logger,
		})

		stats, statsErr := svcs.Jobs.Stats(ctx)
		if statsErr != nil {
			return fmt.Errorf("job stats: %w", statsErr)
		}

		return printStats(stats)
	})
}

func printStats(stats model.JobStats) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	rows := []struct {
		label string
		count int
	}{
		{"pending", stats.Pending},
		{"validated", stats.Validated},
		{"running", stats.Running},
		{"success", stats.Success},
		{"failed", stats.Failed},
	}
	for _, row := range rows {
		if err := writef(tw, "%s\t%d\n", row.label, row.count); err != nil {
			return fmt.Errorf("print stats row: %w", err)
		}
	}
	if err := writef(tw, "total\t%d\n", stats.Total()); err != nil {
		return fmt.Errorf("print stats total: %w", err)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush stats table: %w", err)
	}
	return nil
}

func runSafety(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("safety takes no arguments, got %d", len(args))
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := bootstrap.NewServices(&bootstrap.ServiceDeps{
			Config: &cmdCtx.Config,
			DB:     db,
			Logger: cmdCtx.Logger,
		})

		report, reportErr := svcs.Safety.Report(ctx)
		if reportErr != nil {
			return fmt.Errorf("safety report: %w", reportErr)
		}

		return printSafetyReport(report)
	})
}

func printSafetyReport(report *service.SafetyReport) error {
	if err := writef(os.Stdout, "Health: %s\n", report.Health); err != nil {
		return fmt.Errorf("print safety health: %w", err)
	}
	if err := writef(os.Stdout, "Credits remaining (all users): %d\n", report.CreditsRemainingTotal); err != nil {
		return fmt.Errorf("print safety credits: %w", err)
	}
	if err := writef(os.Stdout, "Jobs: %d total (%d success, %d failed)\n",
		report.Jobs.Total(), report.Jobs.Success, report.Jobs.Failed); err != nil {
		return fmt.Errorf("print safety job counts: %w", err)
	}

	if len(report.Anomalies) == 0 {
		if err := writeln(os.Stdout, "No billing anomalies detected"); err != nil {
			return fmt.Errorf("print safety summary: %w", err)
		}
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "JOB\tANOMALY"); err != nil {
		return fmt.Errorf("print anomalies header: %w", err)
	}
	for _, anomaly := range report.Anomalies {
		if err := writef(tw, "%s\t%s\n", anomaly.JobID, anomaly.Error); err != nil {
			return fmt.Errorf("print anomaly row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush anomalies table: %w", err)
	}
	return nil
}
