// Package testutil provides testing utilities and helpers for the pushforge job system.
package testutil

import (
	"github.com/pushforge/pushforge/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			UserID: "user-test",
			Payload: model.UploadPayload{
				UploadID: "upload-test",
				RepoName: "example/site",
			},
			RequiredCredits: 5,
		},
	}
}

// WithUser sets the requesting user.
func (b *JobRequestBuilder) WithUser(userID string) *JobRequestBuilder {
	b.req.UserID = userID
	return b
}

// WithPayload sets the kind-specific payload.
func (b *JobRequestBuilder) WithPayload(payload model.JobPayload) *JobRequestBuilder {
	b.req.Payload = payload
	return b
}

// WithRequiredCredits sets the credit price of the job.
func (b *JobRequestBuilder) WithRequiredCredits(credits int) *JobRequestBuilder {
	b.req.RequiredCredits = credits
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// Common test job request presets

// UploadJobRequest creates an upload job request for the given user.
func UploadJobRequest(userID string) *model.CreateJobRequest {
	return NewJobRequest().
		WithUser(userID).
		WithPayload(model.UploadPayload{
			UploadID: "upload-abc",
			RepoName: "example/site",
		}).
		Build()
}

// AutopushJobRequest creates an autopush job request for the given user.
func AutopushJobRequest(userID string) *model.CreateJobRequest {
	return NewJobRequest().
		WithUser(userID).
		WithPayload(model.AutopushPayload{
			RepoURL: "https://git.example.com/example/site.git",
			Branch:  "main",
		}).
		Build()
}

// PartnerJobRequest creates a partner job request for the given user.
func PartnerJobRequest(userID string) *model.CreateJobRequest {
	return NewJobRequest().
		WithUser(userID).
		WithPayload(model.PartnerPayload{
			PartnerID: "partner-acme",
			Manifest:  "deploy.yaml",
		}).
		Build()
}
