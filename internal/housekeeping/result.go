// Package housekeeping defines the result and error types returned by the
// backup and cleanup operations.
//
// Both operations always write their outcome to the audit log; the Result
// only exists so callers can react programmatically if they want to.
package housekeeping

import (
	"errors"
	"fmt"
	"time"
)

// Op names a housekeeping operation.
type Op string

const (
	OpBackup Op = "backup"
	OpClean  Op = "clean"
)

// Outcome is the terminal state of one operation run.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeDeferred Outcome = "deferred"
	OutcomeCleaned  Outcome = "cleaned"
	OutcomeAbsent   Outcome = "absent"
	OutcomeFailed   Outcome = "failed"
)

// Kind classifies a housekeeping Error.
type Kind int

const (
	// KindIO is a filesystem or compression failure.
	KindIO Kind = iota
	// KindDeferred means the source was busy; try again later.
	KindDeferred
	// KindAbsent means there was nothing to work on.
	KindAbsent
)

func (k Kind) String() string {
	switch k {
	case KindDeferred:
		return "deferred"
	case KindAbsent:
		return "absent"
	default:
		return "io"
	}
}

// Error describes why an operation did not complete normally.
type Error struct {
	Op   Op
	Path string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err wraps a housekeeping Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var he *Error
	return errors.As(err, &he) && he.Kind == kind
}

// Result is what a backup or cleanup run reports back to its caller.
type Result struct {
	Op      Op
	Source  string
	Outcome Outcome

	// Path is the snapshot written by a backup run.
	Path string
	// Size is the size in bytes of the snapshot written by a backup run.
	Size int64

	// Deleted and Kept are filled by cleanup runs.
	Deleted int
	Kept    int

	Err error

	Started  time.Time
	Finished time.Time
}

// OK reports whether the run ended in a state that needs no reaction.
// Deferred and absent runs are OK.
func (r Result) OK() bool {
	return r.Outcome != OutcomeFailed
}

// Duration is the wall time the run took.
func (r Result) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Message returns a short human readable summary of the run.
func (r Result) Message() string {
	switch r.Outcome {
	case OutcomeCreated:
		return "snapshot " + r.Path
	case OutcomeCleaned:
		return fmt.Sprintf("deleted %d, kept %d", r.Deleted, r.Kept)
	case OutcomeDeferred, OutcomeAbsent, OutcomeFailed:
		if r.Err != nil {
			return r.Err.Error()
		}
	}
	return string(r.Outcome)
}
