package handler

import (
	"context"
	"time"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/middleware"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/arturoeanton/code-atlas/internal/service"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// AnalysisHandler handles analysis endpoints.
type AnalysisHandler struct {
	svc     *service.AnalysisService
	tracker *JobTracker
	timeout time.Duration
}

// NewAnalysisHandler creates a new analysis handler. timeout bounds each
// analysis run; zero means no limit.
func NewAnalysisHandler(svc *service.AnalysisService, tracker *JobTracker, timeout time.Duration) *AnalysisHandler {
	return &AnalysisHandler{svc: svc, tracker: tracker, timeout: timeout}
}

// Register sets up analysis routes.
func (h *AnalysisHandler) Register(router fiber.Router) {
	router.Post("/analyze", h.Analyze)
	router.Post("/analyze/jobs", h.StartJob)
	router.Get("/analyses", h.List)
	router.Get("/analyses/:id", h.Get)
}

func (h *AnalysisHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

// Analyze runs one analysis synchronously and returns the result.
func (h *AnalysisHandler) Analyze(c fiber.Ctx) error {
	var req port.AnalyzeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, port.ErrMissingFields)
	}

	ctx, cancel := h.withTimeout(c.Context())
	defer cancel()

	result, err := h.svc.Analyze(ctx, req, nil)
	if err != nil {
		return fail(c, err)
	}
	middleware.SetAuditAction(c, domain.AuditActionAnalysisRun, result.ID)
	return c.JSON(result)
}

// StartJob validates the request, then runs the analysis in the background
// and returns 202 with the job id.
func (h *AnalysisHandler) StartJob(c fiber.Ctx) error {
	var req port.AnalyzeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, port.ErrMissingFields)
	}
	owner, repo, err := service.ValidateRequest(req)
	if err != nil {
		return fail(c, err)
	}

	jobID := uuid.NewString()
	h.tracker.CreateJob(jobID, owner+"/"+repo)
	middleware.SetAuditAction(c, domain.AuditActionAnalysisRun, jobID)

	go h.runJob(jobID, req)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  jobID,
		"message": "analysis started",
	})
}

func (h *AnalysisHandler) runJob(jobID string, req port.AnalyzeRequest) {
	ctx, cancel := h.withTimeout(context.Background())
	defer cancel()

	result, err := h.svc.Analyze(ctx, req, func(p domain.AnalysisProgress) {
		h.tracker.Progress(jobID, p)
	})
	if err != nil {
		h.tracker.Fail(jobID, err)
		return
	}
	h.tracker.Complete(jobID, result.ID)
}

// List returns recent analyses, newest first.
func (h *AnalysisHandler) List(c fiber.Ctx) error {
	analyses, err := h.svc.List(c.Context(), queryLimit(c, 20, 200))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"analyses": analyses,
		"count":    len(analyses),
	})
}

// Get returns one stored analysis.
func (h *AnalysisHandler) Get(c fiber.Ctx) error {
	a, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(a)
}
