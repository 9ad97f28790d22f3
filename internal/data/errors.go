package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrUserIDRequired = errors.New("user_id is required")
	ErrJobIDRequired  = errors.New("job_id is required")
)

// List guardrails shared by job and transaction listings.
const (
	defaultListLimit = 50
	maxListLimit     = 1000
)
