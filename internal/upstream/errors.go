package upstream

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for upstream failures. Check them with errors.Is.
var (
	// ErrThrottled indicates the backend rejected a request because of rate limiting.
	ErrThrottled = errors.New("upstream rate limit exceeded")

	// ErrUnavailable indicates the backend could not serve the request and the
	// failure will not be retried by this layer.
	ErrUnavailable = errors.New("upstream unavailable")
)

// ThrottledError is returned by a call that received a rate-limit rejection.
// Budget.Do absorbs it; callers only see it when using Budget directly.
type ThrottledError struct {
	// RetryAfter is the server's hint; zero when none was sent.
	RetryAfter time.Duration

	// StatusCode is the HTTP status of the rejection, usually 429.
	StatusCode int
}

func (e *ThrottledError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("upstream throttled request (retry after %s)", e.RetryAfter)
	}
	return "upstream throttled request"
}

// Is allows errors.Is(err, ErrThrottled).
func (e *ThrottledError) Is(target error) bool {
	return target == ErrThrottled
}

// UnavailableError is a terminal upstream failure: network errors, non-rate
// limit error responses, or an exceeded throttle ceiling.
type UnavailableError struct {
	// Reason is a short description of what failed.
	Reason string

	// Hint tells the user how to fix the problem, when known.
	Hint string

	// StatusCode is the HTTP status, or zero for transport failures.
	StatusCode int

	// Attempts is the number of rejections the call saw when the ceiling was hit.
	Attempts int

	// Cause is the underlying error.
	Cause error
}

func (e *UnavailableError) Error() string {
	msg := "upstream unavailable: " + e.Reason
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, ErrUnavailable).
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// UserFacingError returns a message safe to show to the tool caller.
func (e *UnavailableError) UserFacingError() string {
	msg := "Zendesk is unavailable: " + e.Reason
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}
