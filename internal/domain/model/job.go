// Package model defines the core data types and structures used throughout the pushforge job system.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobKind represents the kind of billable work a job performs.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobKind string

// JobStatus represents the current lifecycle state of a job.
type JobStatus string

const (
	// JobKindUpload pushes a previously uploaded bundle to a git host.
	JobKindUpload JobKind = "upload"
	// JobKindAutopush mirrors generated content to a repository on a schedule.
	JobKindAutopush JobKind = "autopush"
	// JobKindPartner runs a partner-integration push.
	JobKindPartner JobKind = "partner"

	// JobStatusPending indicates a job has been created and awaits validation.
	JobStatusPending JobStatus = "pending"
	// JobStatusValidated indicates credits were re-checked and the job is ready to run.
	JobStatusValidated JobStatus = "validated"
	// JobStatusRunning indicates a job is currently executing.
	JobStatusRunning JobStatus = "running"
	// JobStatusSuccess indicates a job finished successfully and was settled.
	JobStatusSuccess JobStatus = "success"
	// JobStatusFailed indicates a job failed; credits are never consumed for failures.
	JobStatusFailed JobStatus = "failed"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobKind to allow env and flag parsing.
func (k *JobKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jk := JobKind(v)
	if jk.Valid() {
		*k = jk
		return nil
	}
	return fmt.Errorf("invalid JobKind: %q", v)
}

// Valid returns true if the JobKind is valid.
func (k JobKind) Valid() bool {
	return k == JobKindUpload || k == JobKindAutopush || k == JobKindPartner
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusValidated || s == JobStatusRunning ||
		s == JobStatusSuccess || s == JobStatusFailed
}

// Terminal returns true if no further transitions may leave this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed
}

// rank orders statuses along the forward-only state graph. Success and
// failed share a rank: they are alternative terminal outcomes, not an
// ordering between each other.
func (s JobStatus) rank() int {
	switch s {
	case JobStatusPending:
		return 0
	case JobStatusValidated:
		return 1
	case JobStatusRunning:
		return 2
	case JobStatusSuccess, JobStatusFailed:
		return 3
	default:
		return -1
	}
}

// ForwardOf returns true if s is strictly later than other in the state graph.
func (s JobStatus) ForwardOf(other JobStatus) bool {
	return s.rank() > other.rank()
}

// Job represents one unit of billable, asynchronously executed work.
//
// A job is never deleted: terminal jobs are retained as audit records. The
// CreditsCharged flag flips false→true at most once, and only together with
// the success status, so replayed completion calls can never double-charge.
type Job struct {
	ID              string          `json:"id"              db:"id"`
	UserID          string          `json:"user_id"         db:"user_id"`
	Kind            JobKind         `json:"kind"            db:"kind"`
	Status          JobStatus       `json:"status"          db:"status"`
	RequiredCredits int             `json:"required_credits" db:"required_credits"`
	CreditsCharged  bool            `json:"credits_charged" db:"credits_charged"`
	Payload         json.RawMessage `json:"payload"         db:"payload"`
	Result          json.RawMessage `json:"result"          db:"result"`
	Logs            []string        `json:"logs"            db:"logs"`
	Error           *string         `json:"error,omitempty" db:"error"`
	CreatedAt       time.Time       `json:"created_at"      db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"      db:"updated_at"`
}

// JobPayload is the typed, kind-specific creation payload. Using a closed set
// of payload types instead of an open map keeps kind data from colliding with
// reserved job fields.
type JobPayload interface {
	Kind() JobKind
	Validate() error
}

// UploadPayload describes an upload push job.
type UploadPayload struct {
	UploadID string `json:"upload_id"`
	RepoName string `json:"repo_name"`
}

// Kind returns the job kind this payload belongs to.
func (p UploadPayload) Kind() JobKind { return JobKindUpload }

// Validate validates the UploadPayload fields.
func (p UploadPayload) Validate() error {
	if strings.TrimSpace(p.UploadID) == "" {
		return errors.New("upload id is required")
	}
	if strings.TrimSpace(p.RepoName) == "" {
		return errors.New("repo name is required")
	}
	return nil
}

// AutopushPayload describes an automatic mirror push job.
type AutopushPayload struct {
	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch,omitempty"`
}

// Kind returns the job kind this payload belongs to.
func (p AutopushPayload) Kind() JobKind { return JobKindAutopush }

// Validate validates the AutopushPayload fields.
func (p AutopushPayload) Validate() error {
	if strings.TrimSpace(p.RepoURL) == "" {
		return errors.New("repo url is required")
	}
	return nil
}

// PartnerPayload describes a partner-integration push job.
type PartnerPayload struct {
	PartnerID string `json:"partner_id"`
	Manifest  string `json:"manifest,omitempty"`
}

// Kind returns the job kind this payload belongs to.
func (p PartnerPayload) Kind() JobKind { return JobKindPartner }

// Validate validates the PartnerPayload fields.
func (p PartnerPayload) Validate() error {
	if strings.TrimSpace(p.PartnerID) == "" {
		return errors.New("partner id is required")
	}
	return nil
}

// CreateJobRequest represents a request to create a new job.
type CreateJobRequest struct {
	UserID          string     `json:"user_id"`
	Payload         JobPayload `json:"payload"`
	RequiredCredits int        `json:"required_credits"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user id is required")
	}
	if r.Payload == nil {
		return errors.New("payload is required")
	}
	if !r.Payload.Kind().Valid() {
		return errors.New("invalid job kind")
	}
	if err := r.Payload.Validate(); err != nil {
		return err
	}
	if r.RequiredCredits <= 0 {
		return errors.New("required credits must be positive")
	}
	return nil
}

// JobListOptions describes filters for listing a user's jobs.
type JobListOptions struct {
	UserID string
	Limit  int
	Status *JobStatus
}

// JobStats represents counts of jobs per lifecycle state.
type JobStats struct {
	Pending   int `json:"pending"`
	Validated int `json:"validated"`
	Running   int `json:"running"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
}

// Total returns the number of jobs across all states.
func (s JobStats) Total() int {
	return s.Pending + s.Validated + s.Running + s.Success + s.Failed
}
