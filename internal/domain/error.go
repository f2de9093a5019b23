package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Common domain errors
	ErrNotFound              = errors.New("entity not found")
	ErrAlreadyExists         = errors.New("entity already exists")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrInvalidResponseFormat = errors.New("invalid response format")
	ErrOperationFailed       = errors.New("operation failed")
)

// QuotaExceededError is returned when a user has exhausted the monthly
// allowance for a resource. It carries everything the calling UI needs to
// render an upgrade prompt (used/limit/plan); that detail is a contract,
// not optional telemetry.
type QuotaExceededError struct {
	Resource string
	Used     int
	Limit    int
	Plan     string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s limit reached (%d/%d on %s plan)", e.Resource, e.Used, e.Limit, e.Plan)
}

// RateLimitedError is returned when the per-user request-frequency window is
// full, independent of quota state.
type RateLimitedError struct {
	Remaining int
	ResetTime time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, resets at %s", e.ResetTime.Format(time.RFC3339))
}

// DependencyError wraps failures of external collaborators (persistence,
// generation backend). Quota and rate checks treat it as deny, never as
// "allow unlimited".
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }
