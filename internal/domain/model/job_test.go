package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobKind_Valid(t *testing.T) {
	tests := []struct {
		kind JobKind
		want bool
	}{
		{JobKindUpload, true},
		{JobKindAutopush, true},
		{JobKindPartner, true},
		{JobKind("browser"), false},
		{JobKind(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Valid())
		})
	}
}

func TestJobKind_UnmarshalText(t *testing.T) {
	var k JobKind
	require.NoError(t, k.UnmarshalText([]byte("  Upload ")))
	assert.Equal(t, JobKindUpload, k)

	err := k.UnmarshalText([]byte("bogus"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JobKind")
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusValidated.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
	assert.True(t, JobStatusSuccess.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}

func TestJobStatus_ForwardOf(t *testing.T) {
	order := []JobStatus{JobStatusPending, JobStatusValidated, JobStatusRunning, JobStatusSuccess}
	for i := 1; i < len(order); i++ {
		assert.True(t, order[i].ForwardOf(order[i-1]),
			"%s should be forward of %s", order[i], order[i-1])
		assert.False(t, order[i-1].ForwardOf(order[i]),
			"%s should not be forward of %s", order[i-1], order[i])
	}

	// Terminal states share a rank: neither is forward of the other.
	assert.False(t, JobStatusSuccess.ForwardOf(JobStatusFailed))
	assert.False(t, JobStatusFailed.ForwardOf(JobStatusSuccess))
}

func TestCreateJobRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateJobRequest
		wantErr string
	}{
		{
			name: "valid upload request",
			req: CreateJobRequest{
				UserID:          "user-1",
				Payload:         UploadPayload{UploadID: "up-1", RepoName: "my-repo"},
				RequiredCredits: 1,
			},
		},
		{
			name: "valid autopush request",
			req: CreateJobRequest{
				UserID:          "user-1",
				Payload:         AutopushPayload{RepoURL: "https://example.com/x.git"},
				RequiredCredits: 2,
			},
		},
		{
			name: "missing user id",
			req: CreateJobRequest{
				Payload:         UploadPayload{UploadID: "up-1", RepoName: "r"},
				RequiredCredits: 1,
			},
			wantErr: "user id is required",
		},
		{
			name: "missing payload",
			req: CreateJobRequest{
				UserID:          "user-1",
				RequiredCredits: 1,
			},
			wantErr: "payload is required",
		},
		{
			name: "invalid payload",
			req: CreateJobRequest{
				UserID:          "user-1",
				Payload:         UploadPayload{RepoName: "r"},
				RequiredCredits: 1,
			},
			wantErr: "upload id is required",
		},
		{
			name: "zero credits",
			req: CreateJobRequest{
				UserID:          "user-1",
				Payload:         PartnerPayload{PartnerID: "p-1"},
				RequiredCredits: 0,
			},
			wantErr: "required credits must be positive",
		},
		{
			name: "negative credits",
			req: CreateJobRequest{
				UserID:          "user-1",
				Payload:         PartnerPayload{PartnerID: "p-1"},
				RequiredCredits: -3,
			},
			wantErr: "required credits must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJobPayload_Kinds(t *testing.T) {
	assert.Equal(t, JobKindUpload, UploadPayload{}.Kind())
	assert.Equal(t, JobKindAutopush, AutopushPayload{}.Kind())
	assert.Equal(t, JobKindPartner, PartnerPayload{}.Kind())
}

func TestJobStats_Total(t *testing.T) {
	stats := JobStats{Pending: 1, Validated: 2, Running: 3, Success: 4, Failed: 5}
	assert.Equal(t, 15, stats.Total())
}
