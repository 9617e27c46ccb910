package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies a gateway-visible error class
type ErrorCode string

const (
	// Session creation errors
	CodeRateLimited      ErrorCode = "RATE_LIMITED"
	CodeCapacityExceeded ErrorCode = "CAPACITY_EXCEEDED"
	CodeSpawnFailed      ErrorCode = "SPAWN_FAILED"

	// Routing errors
	CodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"

	// Internal errors
	CodeInternal ErrorCode = "INTERNAL_SERVER_ERROR"
)

// SpawnReason classifies why PTY/process creation failed. Exhaustion is kept
// distinct so the registry and operators can tell a bad request from the host
// running out of PTYs.
type SpawnReason string

const (
	SpawnReasonBadWorkdir SpawnReason = "bad_working_dir"
	SpawnReasonExhausted  SpawnReason = "resource_exhausted"
	SpawnReasonOther      SpawnReason = "other"
)

// RateLimitError indicates a create arrived within the minimum creation
// interval of the previous one. Recoverable by retrying after RetryAfter.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("session creation rate limited, retry in %s", e.RetryAfter.Round(time.Millisecond))
}

// CapacityError indicates the concurrency ceiling is already reached.
// Recoverable once another session closes.
type CapacityError struct {
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("maximum sessions reached (%d)", e.Limit)
}

// SpawnError indicates the OS failed to create the PTY or child process
type SpawnError struct {
	Reason SpawnReason
	Hint   string
	Cause  error
}

func (e *SpawnError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("spawn failed (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("spawn failed (%s)", e.Reason)
}

func (e *SpawnError) Unwrap() error {
	return e.Cause
}

// NotFoundError indicates a lookup referenced an unknown session id
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// CodeOf maps an error to its gateway error code
func CodeOf(err error) ErrorCode {
	var (
		rateErr     *RateLimitError
		capErr      *CapacityError
		spawnErr    *SpawnError
		notFoundErr *NotFoundError
	)

	switch {
	case errors.As(err, &rateErr):
		return CodeRateLimited
	case errors.As(err, &capErr):
		return CodeCapacityExceeded
	case errors.As(err, &spawnErr):
		return CodeSpawnFailed
	case errors.As(err, &notFoundErr):
		return CodeSessionNotFound
	default:
		return CodeInternal
	}
}

// HTTPStatusOf maps an error to an HTTP status for the REST surface
func HTTPStatusOf(err error) int {
	switch CodeOf(err) {
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeCapacityExceeded:
		return http.StatusServiceUnavailable
	case CodeSpawnFailed:
		return http.StatusBadGateway
	case CodeSessionNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the client can usefully retry the operation
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeRateLimited, CodeCapacityExceeded:
		return true
	default:
		return false
	}
}

// UserMessage returns a sanitized message safe to surface to clients.
// Spawn failures keep the underlying OS reason so users can act on it.
func UserMessage(err error) string {
	var spawnErr *SpawnError
	if errors.As(err, &spawnErr) {
		if spawnErr.Hint != "" {
			return fmt.Sprintf("%v (%s)", err, spawnErr.Hint)
		}
		return err.Error()
	}

	switch CodeOf(err) {
	case CodeRateLimited, CodeCapacityExceeded, CodeSessionNotFound:
		return err.Error()
	default:
		return "internal server error"
	}
}
