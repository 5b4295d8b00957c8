package fs

import (
	"errors"
	"syscall"
)

// ErrSourceChanged is returned when the file being captured was modified
// between the start and the end of the read.
var ErrSourceChanged = errors.New("source changed during capture")

// isTransient decides whether an operation should retry or fail immediately.
func isTransient(err error) bool {
	if errors.Is(err, ErrSourceChanged) {
		return true
	}

	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETIMEDOUT)
}
