package errors

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestCodeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"rate limit", &RateLimitError{RetryAfter: time.Second}, CodeRateLimited},
		{"capacity", &CapacityError{Limit: 5}, CodeCapacityExceeded},
		{"spawn", &SpawnError{Reason: SpawnReasonBadWorkdir}, CodeSpawnFailed},
		{"not found", &NotFoundError{SessionID: "abc"}, CodeSessionNotFound},
		{"plain error", fmt.Errorf("boom"), CodeInternal},
		{"wrapped spawn", fmt.Errorf("creating session: %w", &SpawnError{Reason: SpawnReasonOther}), CodeSpawnFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPStatusOf(t *testing.T) {
	t.Parallel()

	if got := HTTPStatusOf(&RateLimitError{}); got != http.StatusTooManyRequests {
		t.Errorf("rate limit status = %d, want 429", got)
	}
	if got := HTTPStatusOf(&CapacityError{Limit: 5}); got != http.StatusServiceUnavailable {
		t.Errorf("capacity status = %d, want 503", got)
	}
	if got := HTTPStatusOf(&NotFoundError{SessionID: "x"}); got != http.StatusNotFound {
		t.Errorf("not found status = %d, want 404", got)
	}
	if got := HTTPStatusOf(fmt.Errorf("boom")); got != http.StatusInternalServerError {
		t.Errorf("internal status = %d, want 500", got)
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	if !Retryable(&RateLimitError{RetryAfter: time.Second}) {
		t.Error("rate limit should be retryable")
	}
	if !Retryable(&CapacityError{Limit: 5}) {
		t.Error("capacity should be retryable")
	}
	if Retryable(&SpawnError{Reason: SpawnReasonOther}) {
		t.Error("spawn failure should not be retryable")
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	// Internal details never leak to clients
	if got := UserMessage(fmt.Errorf("dial tcp 10.0.0.1: connection refused")); got != "internal server error" {
		t.Errorf("internal error surfaced as %q", got)
	}

	// Spawn failures keep their operator hint
	spawn := &SpawnError{
		Reason: SpawnReasonExhausted,
		Hint:   "check ulimit -n and process limits",
		Cause:  fmt.Errorf("fork/exec: resource temporarily unavailable"),
	}
	got := UserMessage(spawn)
	if !strings.Contains(got, "ulimit") {
		t.Errorf("UserMessage(%v) = %q, want hint preserved", spawn, got)
	}

	// Recoverable rejections surface their own message
	rate := &RateLimitError{RetryAfter: 500 * time.Millisecond}
	if got := UserMessage(rate); got != rate.Error() {
		t.Errorf("UserMessage(rate limit) = %q, want %q", got, rate.Error())
	}
}
