package worker

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Op is the kind of work a job asks for.
type Op string

const (
	OpBackup Op = "backup"
	OpClean  Op = "clean"
	// OpCycle is a backup followed by a cleanup.
	OpCycle Op = "cycle"
)

// ParseOp validates an op name taken from an API path. "cleanup" is
// accepted for OpClean.
func ParseOp(s string) (Op, error) {
	switch Op(s) {
	case OpBackup, OpClean, OpCycle:
		return Op(s), nil
	case "cleanup":
		return OpClean, nil
	default:
		return "", fmt.Errorf("unknown op %q", s)
	}
}

// Job is a unit of work submitted to the worker.
type Job struct {
	ID     string
	Op     Op
	Source string
	// Reason tells where the job came from: schedule, watcher, api, shutdown.
	Reason    string
	Submitted time.Time
}

// NewJob creates a job with a fresh id.
func NewJob(op Op, source, reason string) Job {
	return Job{
		ID:        uuid.NewString(),
		Op:        op,
		Source:    source,
		Reason:    reason,
		Submitted: time.Now(),
	}
}

// mergeJobs folds a new job into the one already waiting in the mailbox.
// The pending id survives so whoever got it first still finds its runs.
// Different ops widen to a cycle; nothing asked for is ever lost.
func mergeJobs(pending, next Job) Job {
	merged := pending
	merged.Source = next.Source

	if pending.Op != next.Op {
		merged.Op = OpCycle
	}
	if pending.Reason != next.Reason {
		merged.Reason = pending.Reason + "," + next.Reason
	}
	return merged
}
