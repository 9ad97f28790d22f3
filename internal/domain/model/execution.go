package model

import "encoding/json"

// ExecutionResult is what a job executor reports when an attempt finishes.
// Result carries kind-specific fields (e.g. the pushed repo URL) that are
// merged into the job record on success; Error explains a failed attempt.
type ExecutionResult struct {
	Success bool
	Result  json.RawMessage
	Error   string
}
