package api

import (
	"time"

	"github.com/raoulx24/dbkeeper/internal/housekeeping"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// AsyncResponse answers a job submission (202 Accepted).
type AsyncResponse struct {
	Status string `json:"status"`
	JobID  string `json:"jobId"`
	Op     string `json:"op"`
	Link   string `json:"link"`
}

// RunSummary is the last outcome of one operation as seen by the worker.
type RunSummary struct {
	Outcome  string    `json:"outcome"`
	Message  string    `json:"message"`
	Finished time.Time `json:"finished"`
}

// HealthResponse answers GET /health.
type HealthResponse struct {
	Status      string      `json:"status"`
	Time        string      `json:"time"`
	Source      string      `json:"source"`
	Pending     bool        `json:"pending"`
	NextRun     *time.Time  `json:"nextRun,omitempty"`
	LastBackup  *RunSummary `json:"lastBackup,omitempty"`
	LastCleanup *RunSummary `json:"lastCleanup,omitempty"`

	// from the run history, when enabled
	LastSuccessfulBackup  *time.Time `json:"lastSuccessfulBackup,omitempty"`
	LastSuccessfulCleanup *time.Time `json:"lastSuccessfulCleanup,omitempty"`
}

func summarize(r housekeeping.Result) *RunSummary {
	return &RunSummary{
		Outcome:  string(r.Outcome),
		Message:  r.Message(),
		Finished: r.Finished,
	}
}
