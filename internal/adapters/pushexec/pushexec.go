// Package pushexec executes jobs by delegating them to an external push
// worker over HTTP. The worker performs the actual git operations and
// reports a success flag plus kind-specific result fields; this adapter
// only translates between the job model and the worker's wire format.
package pushexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pushforge/pushforge/internal/domain/model"
)

const (
	// maxResponseBodyBytes caps worker responses; results larger than this
	// indicate a misbehaving worker, not a bigger buffer requirement.
	maxResponseBodyBytes = 64 * 1024

	defaultRequestTimeout = 5 * time.Minute
)

// Options configures the push worker executor.
type Options struct {
	// Endpoint is the worker URL jobs are POSTed to. Required.
	Endpoint string

	// Client is the HTTP client used for worker calls. Defaults to a client
	// with a 5 minute timeout.
	Client *http.Client

	Logger *slog.Logger
}

// Executor sends jobs to a push worker and decodes its verdict. It implements
// core.Executor.
type Executor struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// workerRequest is the payload POSTed to the push worker.
type workerRequest struct {
	JobID   string          `json:"job_id"`
	Kind    model.JobKind   `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// workerResponse is the worker's verdict for one job attempt.
type workerResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// New constructs a push worker executor.
func New(opts Options) (*Executor, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("worker endpoint is required")
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		endpoint: opts.Endpoint,
		client:   client,
		logger:   logger,
	}, nil
}

// Execute POSTs the job to the worker and decodes the outcome. A reported
// failure is not an error: the result carries Success=false and the worker's
// error string so the lifecycle manager records a clean failed outcome.
// Errors are reserved for transport and protocol problems.
func (e *Executor) Execute(ctx context.Context, job *model.Job) (model.ExecutionResult, error) {
	body, err := json.Marshal(workerRequest{
		JobID:   job.ID,
		Kind:    job.Kind,
		Payload: job.Payload,
	})
	if err != nil {
		return model.ExecutionResult{}, fmt.Errorf("encode worker request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.ExecutionResult{}, fmt.Errorf("build worker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return model.ExecutionResult{}, fmt.Errorf("send worker request: %w", err)
	}

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	closeErr := resp.Body.Close()
	if readErr != nil {
		if closeErr != nil {
			return model.ExecutionResult{}, errors.Join(
				fmt.Errorf("read worker response: %w", readErr),
				fmt.Errorf("close worker response: %w", closeErr),
			)
		}
		return model.ExecutionResult{}, fmt.Errorf("read worker response: %w", readErr)
	}
	if closeErr != nil {
		return model.ExecutionResult{}, fmt.Errorf("close worker response: %w", closeErr)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return model.ExecutionResult{}, fmt.Errorf("worker returned status %d", resp.StatusCode)
	}

	var verdict workerResponse
	if err := json.Unmarshal(data, &verdict); err != nil {
		return model.ExecutionResult{}, fmt.Errorf("decode worker response: %w", err)
	}

	e.logger.DebugContext(ctx, "worker call finished",
		"job_id", job.ID,
		"success", verdict.Success,
		"duration", time.Since(start),
	)

	return model.ExecutionResult{
		Success: verdict.Success,
		Result:  verdict.Result,
		Error:   verdict.Error,
	}, nil
}
