package model

import (
	"encoding/json"
	"errors"
)

// ErrNoRunnableJobs is returned when no job is waiting to run.
var ErrNoRunnableJobs = errors.New("no runnable jobs")

// JobTransition describes a conditional status move between non-terminal
// states. The update applies only while the job's current status is one of
// From, which is what serializes overlapping callers without locks.
type JobTransition struct {
	ID         string
	From       []JobStatus
	To         JobStatus
	Error      *string
	LogMessage string
}

// JobCompletion describes a conditional move into a terminal state.
// ChargeCredits flips credits_charged together with the status write so the
// flag can never be observed true on a non-success job.
type JobCompletion struct {
	ID            string
	Status        JobStatus
	ChargeCredits bool
	Result        json.RawMessage
	Error         *string
	LogMessage    string
}

// ConsumeParams identifies an atomic settlement attempt: which user pays,
// how much, and for which job. JobID keys the at-most-once guarantee.
type ConsumeParams struct {
	UserID string
	Amount int
	JobID  string
}
