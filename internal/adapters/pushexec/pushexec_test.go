package pushexec

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushforge/pushforge/internal/domain/model"
)

func testJob() *model.Job {
	return &model.Job{
		ID:      "7f0a4f0e-9f7c-4a1a-8e65-0b9a3a8b8f11",
		Kind:    model.JobKindUpload,
		Payload: json.RawMessage(`{"upload_id":"upload-abc","repo_name":"example/site"}`),
	}
}

func TestNew_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestExecutor_Execute_SuccessVerdict(t *testing.T) {
	t.Parallel()

	var got workerRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"result":{"pushed_commit":"abc123"}}`))
	}))
	defer server.Close()

	exec, err := New(Options{Endpoint: server.URL})
	require.NoError(t, err)

	job := testJob()
	result, err := exec.Execute(context.Background(), job)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.JSONEq(t, `{"pushed_commit":"abc123"}`, string(result.Result))
	assert.Empty(t, result.Error)

	assert.Equal(t, job.ID, got.JobID)
	assert.Equal(t, model.JobKindUpload, got.Kind)
	assert.JSONEq(t, string(job.Payload), string(got.Payload))
}

func TestExecutor_Execute_FailureVerdictIsNotAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"remote rejected push"}`))
	}))
	defer server.Close()

	exec, err := New(Options{Endpoint: server.URL})
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), testJob())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "remote rejected push", result.Error)
}

func TestExecutor_Execute_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	exec, err := New(Options{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), testJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestExecutor_Execute_MalformedResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	exec, err := New(Options{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), testJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode worker response")
}

func TestExecutor_Execute_ContextCancelled(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	exec, err := New(Options{Endpoint: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = exec.Execute(ctx, testJob())
	require.Error(t, err)
}
