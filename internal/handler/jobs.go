package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/gofiber/fiber/v3"
)

// Job states.
const (
	JobRunning  = "running"
	JobComplete = "complete"
	JobError    = "error"
)

// JobStatus represents the current state of an analysis job.
type JobStatus struct {
	ID          string               `json:"id"`
	Repo        string               `json:"repo"`
	Status      string               `json:"status"`
	Stage       domain.AnalysisStage `json:"stage"`
	Message     string               `json:"message"`
	Progress    int                  `json:"progress"`
	AnalysisID  string               `json:"analysis_id,omitempty"`
	Error       string               `json:"error,omitempty"`
	StartedAt   time.Time            `json:"started_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

func (s JobStatus) done() bool { return s.Status == JobComplete || s.Status == JobError }

// JobTracker manages analysis jobs in memory.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*JobStatus
	subs map[string][]chan JobStatus
}

// NewJobTracker creates a new job tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{
		jobs: make(map[string]*JobStatus),
		subs: make(map[string][]chan JobStatus),
	}
}

// CreateJob registers a running job.
func (t *JobTracker) CreateJob(id, repo string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[id] = &JobStatus{
		ID:        id,
		Repo:      repo,
		Status:    JobRunning,
		StartedAt: time.Now(),
	}
}

// Progress records a stage report.
func (t *JobTracker) Progress(id string, p domain.AnalysisProgress) {
	t.update(id, func(j *JobStatus) {
		j.Stage = p.Stage
		j.Message = p.Message
		j.Progress = p.Progress
	})
}

// Complete marks the job done with the stored analysis id.
func (t *JobTracker) Complete(id, analysisID string) {
	t.update(id, func(j *JobStatus) {
		j.Status = JobComplete
		j.Stage = domain.StageComplete
		j.Progress = 100
		j.AnalysisID = analysisID
	})
}

// Fail marks the job failed.
func (t *JobTracker) Fail(id string, err error) {
	t.update(id, func(j *JobStatus) {
		j.Status = JobError
		j.Stage = domain.StageError
		j.Message = err.Error()
		j.Error = err.Error()
	})
}

// update applies fn and notifies subscribers. Slow subscribers may miss
// intermediate updates but always receive the final one.
func (t *JobTracker) update(id string, fn func(*JobStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	fn(job)
	if job.done() && job.CompletedAt == nil {
		now := time.Now()
		job.CompletedAt = &now
	}
	snapshot := *job
	for _, ch := range t.subs[id] {
		select {
		case ch <- snapshot:
		default:
			if snapshot.done() {
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- snapshot:
				default:
				}
			}
		}
	}
}

// GetJob returns a job status.
func (t *JobTracker) GetJob(id string) (*JobStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// Subscribe returns a channel that receives job updates.
func (t *JobTracker) Subscribe(id string) chan JobStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan JobStatus, 10)
	t.subs[id] = append(t.subs[id], ch)
	return ch
}

// Unsubscribe removes a channel from subscribers and closes it.
func (t *JobTracker) Unsubscribe(id string, ch chan JobStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	subs := t.subs[id]
	for i, s := range subs {
		if s == ch {
			t.subs[id] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(t.subs[id]) == 0 {
		delete(t.subs, id)
	}
	close(ch)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	tracker *JobTracker
	timeout time.Duration
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(tracker *JobTracker) *JobsHandler {
	return &JobsHandler{tracker: tracker, timeout: 5 * time.Minute}
}

// Register sets up job routes.
func (h *JobsHandler) Register(router fiber.Router) {
	jobs := router.Group("/jobs")
	jobs.Get("/:id", h.GetStatus)
	jobs.Get("/:id/stream", h.StreamSSE)
}

// GetStatus returns the current job status.
func (h *JobsHandler) GetStatus(c fiber.Ctx) error {
	job, ok := h.tracker.GetJob(c.Params("id"))
	if !ok {
		return fail(c, port.ErrJobNotFound)
	}
	return c.JSON(job)
}

// StreamSSE streams job updates via Server-Sent Events until the job ends.
func (h *JobsHandler) StreamSSE(c fiber.Ctx) error {
	id := c.Params("id")
	if _, ok := h.tracker.GetJob(id); !ok {
		return fail(c, port.ErrJobNotFound)
	}

	// Subscribe before reading the snapshot so no transition is lost in between.
	ch := h.tracker.Subscribe(id)
	job, _ := h.tracker.GetJob(id)

	setSSEHeaders(c)
	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer h.tracker.Unsubscribe(id, ch)

		if err := writeJobEvent(w, *job); err != nil || job.done() {
			return
		}

		timeout := time.After(h.timeout)
		for {
			select {
			case update := <-ch:
				if err := writeJobEvent(w, update); err != nil {
					slog.Warn("job stream client gone", "job_id", id, "error", err)
					return
				}
				if update.done() {
					return
				}
			case <-timeout:
				slog.Warn("SSE timeout", "job_id", id)
				return
			}
		}
	})
}

func writeJobEvent(w *bufio.Writer, job JobStatus) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	event := "progress"
	if job.done() {
		event = job.Status
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

func setSSEHeaders(c fiber.Ctx) {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
}
