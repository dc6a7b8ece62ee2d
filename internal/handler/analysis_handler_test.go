package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func errorOf(t *testing.T, raw []byte) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Error
}

func TestAnalyze_ClientErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"empty body", `{}`, "Missing required fields"},
		{"missing key", `{"url":"https://github.com/octocat/Hello-World"}`, "Missing required fields"},
		{"missing url", `{"apiKey":"k"}`, "Missing required fields"},
		{"bad url", `{"url":"https://example.com/x/y","apiKey":"k"}`, "Invalid GitHub URL"},
		{"not json", `nope`, "Missing required fields"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			resp, raw := doJSON(t, env.app, "POST", "/api/analyze", tc.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tc.msg, errorOf(t, raw))
			assert.Zero(t, env.calls.Load(), "no downstream client may be built")
		})
	}
}

func TestAnalyze_Success(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := doJSON(t, env.app, "POST", "/api/analyze",
		`{"url":"https://github.com/octocat/Hello-World","apiKey":"k","model":"gemini-1.5-pro"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "octocat/Hello-World", got["repo"].(map[string]any)["fullName"])
	assert.Equal(t, []any{}, got["fileInsights"])
	assert.Equal(t, []any{}, got["modules"])
	assert.Len(t, got["diagrams"].(map[string]any), 6)
	assert.NotEmpty(t, got["id"])
	assert.Equal(t, "k|gemini-1.5-pro", env.modelArgs.Load())

	resp, raw = doJSON(t, env.app, "GET", "/api/analyses/"+got["id"].(string), "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stored domain.Analysis
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, got["id"], stored.ID)
}

func TestAnalyze_UpstreamFailureIs500(t *testing.T) {
	env := newTestEnv(t)
	env.host.err = port.ErrRepoNotFound

	resp, raw := doJSON(t, env.app, "POST", "/api/analyze", `{"url":"https://github.com/a/b","apiKey":"k"}`)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, errorOf(t, raw), "repository not found")
}

func TestAnalyses_ListAndMissing(t *testing.T) {
	env := newTestEnv(t)
	for _, repo := range []string{"a/one", "a/two"} {
		resp, _ := doJSON(t, env.app, "POST", "/api/analyze", `{"url":"https://github.com/`+repo+`","apiKey":"k"}`)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, raw := doJSON(t, env.app, "GET", "/api/analyses?limit=1", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list struct {
		Analyses []domain.Analysis `json:"analyses"`
		Count    int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "a/two", list.Analyses[0].Repo.FullName)

	resp, raw = doJSON(t, env.app, "GET", "/api/analyses/does-not-exist", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "analysis not found", errorOf(t, raw))
}

func TestAnalyzeJobs_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := doJSON(t, env.app, "POST", "/api/analyze/jobs", `{"url":"https://github.com/octocat/Hello-World","apiKey":"k"}`)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	var started struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(raw, &started))
	require.NotEmpty(t, started.JobID)

	var job JobStatus
	require.Eventually(t, func() bool {
		_, raw := doJSON(t, env.app, "GET", "/api/jobs/"+started.JobID, "")
		if err := json.Unmarshal(raw, &job); err != nil {
			return false
		}
		return job.Status == JobComplete
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, "octocat/Hello-World", job.Repo)
	require.NotEmpty(t, job.AnalysisID)
	assert.NotNil(t, job.CompletedAt)

	resp, _ = doJSON(t, env.app, "GET", "/api/analyses/"+job.AnalysisID, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, raw = doJSON(t, env.app, "GET", "/api/jobs/"+started.JobID+"/stream", "")
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	frames := sseFrames(string(raw))
	require.Len(t, frames, 1)
	assert.True(t, strings.HasPrefix(frames[0], "event: complete\ndata: {"))
}

func TestAnalyzeJobs_ValidationAndUnknownJob(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := doJSON(t, env.app, "POST", "/api/analyze/jobs", `{"url":"nope","apiKey":"k"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, env.app, "GET", "/api/jobs/unknown", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = doJSON(t, env.app, "GET", "/api/jobs/unknown/stream", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, raw := doJSON(t, env.app, "GET", "/api/health", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","app":"CodeAtlas","storage":"memory"}`, string(raw))
}
