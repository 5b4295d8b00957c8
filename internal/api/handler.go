package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raoulx24/dbkeeper/internal/history"
	"github.com/raoulx24/dbkeeper/internal/housekeeping"
	"github.com/raoulx24/dbkeeper/internal/retention"
	"github.com/raoulx24/dbkeeper/internal/worker"
)

// Jobs is the worker as seen by the API.
type Jobs interface {
	Submit(op worker.Op, reason string) worker.Job
	Last(op housekeeping.Op) (housekeeping.Result, bool)
	Pending() bool
	Settings() worker.Settings
}

// Planner produces a dry run of the cleanup.
type Planner interface {
	Plan(ctx context.Context, input string) (retention.Plan, error)
}

// HistoryReader reads recorded runs.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
	ForJob(ctx context.Context, jobID string) ([]history.Run, error)
	LastSuccess(ctx context.Context, op housekeeping.Op) (history.Run, bool, error)
}

// NextRunner reports the next scheduled cycle.
type NextRunner interface {
	NextRun() *time.Time
}

type Handler struct {
	jobs     Jobs
	planner  Planner
	history  HistoryReader
	schedule NextRunner
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:  "ok",
		Time:    time.Now().Format(time.RFC3339),
		Source:  h.jobs.Settings().Source,
		Pending: h.jobs.Pending(),
	}
	if h.schedule != nil {
		resp.NextRun = h.schedule.NextRun()
	}
	if r, ok := h.jobs.Last(housekeeping.OpBackup); ok {
		resp.LastBackup = summarize(r)
		if !r.OK() {
			resp.Status = "degraded"
		}
	}
	if r, ok := h.jobs.Last(housekeeping.OpClean); ok {
		resp.LastCleanup = summarize(r)
		if !r.OK() {
			resp.Status = "degraded"
		}
	}
	// the history outlives restarts, the worker's memory does not
	if h.history != nil {
		resp.LastSuccessfulBackup = h.lastSuccess(c.Request.Context(), housekeeping.OpBackup)
		resp.LastSuccessfulCleanup = h.lastSuccess(c.Request.Context(), housekeeping.OpClean)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) lastSuccess(ctx context.Context, op housekeeping.Op) *time.Time {
	run, ok, err := h.history.LastSuccess(ctx, op)
	if err != nil || !ok {
		return nil
	}
	return &run.FinishedAt
}

// Snapshots handles GET /snapshots
func (h *Handler) Snapshots(c *gin.Context) {
	plan, err := h.planner.Plan(c.Request.Context(), h.jobs.Settings().Source)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal Server Error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Submit handles POST /backup, /cleanup (or /clean) and /cycle
func (h *Handler) Submit(c *gin.Context) {
	op, err := worker.ParseOp(c.Param("op"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Not Found",
			Message: err.Error(),
			Code:    http.StatusNotFound,
		})
		return
	}

	job := h.jobs.Submit(op, "api")
	c.JSON(http.StatusAccepted, AsyncResponse{
		Status: "queued",
		JobID:  job.ID,
		Op:     string(job.Op),
		Link:   "/history?job=" + job.ID,
	})
}

// History handles GET /history
func (h *Handler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "Service Unavailable",
			Message: "run history is disabled",
			Code:    http.StatusServiceUnavailable,
		})
		return
	}

	var (
		runs []history.Run
		err  error
	)
	if id := c.Query("job"); id != "" {
		runs, err = h.history.ForJob(c.Request.Context(), id)
	} else {
		limit, convErr := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if convErr != nil || limit <= 0 || limit > 1000 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Bad Request",
				Message: "limit must be between 1 and 1000",
				Code:    http.StatusBadRequest,
			})
			return
		}
		runs, err = h.history.Recent(c.Request.Context(), limit)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}
