// Package client is a Go client for the CodeAtlas HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
)

// ErrStreamIncomplete is returned when a chat stream ends without [DONE].
var ErrStreamIncomplete = errors.New("chat stream ended before completion")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to a CodeAtlas server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL. A nil httpClient uses one without a
// timeout, since analyses and chat streams are long-lived.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message     string               `json:"message"`
	History     []domain.ChatMessage `json:"history"`
	RepoContext *domain.RepoContext  `json:"repoContext"`
}

// Health checks GET /api/health.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/health", nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Analyze runs a synchronous analysis.
func (c *Client) Analyze(ctx context.Context, req port.AnalyzeRequest) (*domain.Analysis, error) {
	var out domain.Analysis
	if err := c.doJSON(ctx, http.MethodPost, "/api/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAnalysis fetches a stored analysis.
func (c *Client) GetAnalysis(ctx context.Context, id string) (*domain.Analysis, error) {
	var out domain.Analysis
	if err := c.doJSON(ctx, http.MethodGet, "/api/analyses/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAnalyses fetches recent analyses, newest first.
func (c *Client) ListAnalyses(ctx context.Context, limit int) ([]domain.Analysis, error) {
	var out struct {
		Analyses []domain.Analysis `json:"analyses"`
	}
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/analyses?limit=%d", limit), nil, &out); err != nil {
		return nil, err
	}
	return out.Analyses, nil
}

type jobEvent struct {
	Status     string               `json:"status"`
	Stage      domain.AnalysisStage `json:"stage"`
	Message    string               `json:"message"`
	Progress   int                  `json:"progress"`
	AnalysisID string               `json:"analysis_id"`
	Error      string               `json:"error"`
}

// AnalyzeWithProgress starts a background analysis job, reports its stages
// to progress, and returns the finished analysis.
func (c *Client) AnalyzeWithProgress(ctx context.Context, req port.AnalyzeRequest, progress port.ProgressFunc) (*domain.Analysis, error) {
	var started struct {
		JobID string `json:"job_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/analyze/jobs", req, &started); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodGet, "/api/jobs/"+started.JobID+"/stream", nil, map[string]string{"Accept": "text/event-stream"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var final *jobEvent
	var decodeErr error
	err = readEvents(resp.Body, func(ev sseEvent) bool {
		var je jobEvent
		if decodeErr = json.Unmarshal([]byte(ev.Data), &je); decodeErr != nil {
			return false
		}
		if progress != nil && je.Stage != "" {
			progress(domain.AnalysisProgress{Stage: je.Stage, Message: je.Message, Progress: je.Progress})
		}
		if ev.Event == "complete" || ev.Event == "error" {
			final = &je
			return false
		}
		return true
	})
	switch {
	case err != nil:
		return nil, fmt.Errorf("read job stream: %w", err)
	case decodeErr != nil:
		return nil, fmt.Errorf("decode job event: %w", decodeErr)
	case final == nil:
		return nil, fmt.Errorf("job %s: stream ended before completion", started.JobID)
	case final.Status == "error":
		return nil, &APIError{Status: http.StatusInternalServerError, Message: final.Error}
	}
	return c.GetAnalysis(ctx, final.AnalysisID)
}

// Chat sends one message and calls onIncrement for every streamed increment.
// It returns the full answer, or ErrStreamIncomplete along with the partial
// answer when the stream ends without the [DONE] sentinel.
func (c *Client) Chat(ctx context.Context, apiKey, model string, req ChatRequest, onIncrement func(string)) (string, error) {
	if req.History == nil {
		req.History = []domain.ChatMessage{}
	}
	headers := map[string]string{"x-api-key": apiKey, "Accept": "text/event-stream"}
	if model != "" {
		headers["x-model"] = model
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/chat", bytes.NewReader(body), headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var answer strings.Builder
	done := false
	var decodeErr error
	err = readEvents(resp.Body, func(ev sseEvent) bool {
		if ev.Data == "[DONE]" {
			done = true
			return false
		}
		var frame struct {
			Content string `json:"content"`
		}
		if decodeErr = json.Unmarshal([]byte(ev.Data), &frame); decodeErr != nil {
			return false
		}
		answer.WriteString(frame.Content)
		if onIncrement != nil {
			onIncrement(frame.Content)
		}
		return true
	})
	if decodeErr != nil {
		return answer.String(), fmt.Errorf("decode chat frame: %w", decodeErr)
	}
	if err != nil || !done {
		if err == nil {
			err = ErrStreamIncomplete
		} else {
			err = fmt.Errorf("%w: %v", ErrStreamIncomplete, err)
		}
		return answer.String(), err
	}
	return answer.String(), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	resp, err := c.do(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends a request and turns non-2xx responses into *APIError.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	slog.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return nil, &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	return resp, nil
}
