package assessment

import "errors"

var (
	ErrNotFound          = errors.New("assessment process not found")
	ErrUnauthorized      = errors.New("actor is not allowed to perform this transition")
	ErrInvalidTransition = errors.New("requested status is not the next stage")
	ErrStaleState        = errors.New("assessment process status changed concurrently")
	ErrPersistence       = errors.New("assessment storage failure")
	ErrInvalidProcess    = errors.New("invalid assessment process")
)

// IsRetryable reports errors the caller may retry, after refreshing state in
// the stale case.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStaleState) || errors.Is(err, ErrPersistence)
}
