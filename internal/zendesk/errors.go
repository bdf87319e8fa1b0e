package zendesk

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested record does not exist or is not
	// visible to the authenticated user.
	ErrNotFound = errors.New("zendesk record not found")

	// ErrMissingCredentials indicates the client cannot be built from the
	// configuration.
	ErrMissingCredentials = errors.New("missing zendesk credentials")

	// ErrInvalidRequest indicates Zendesk rejected the request content.
	ErrInvalidRequest = errors.New("zendesk rejected the request")
)

// NotFoundError reports a 404 for a specific resource.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is allows errors.Is(err, ErrNotFound).
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// UserFacingError returns the message shown to tool callers.
func (e *NotFoundError) UserFacingError() string {
	return fmt.Sprintf("%s. Check the id and that your account can see it.", capitalize(e.Error()))
}

// RequestError reports a 400 or 422 response. Retrying the same request will
// not help.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("zendesk rejected the request (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("zendesk rejected the request (status %d): %s", e.StatusCode, e.Message)
}

// Is allows errors.Is(err, ErrInvalidRequest).
func (e *RequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// UserFacingError returns the message shown to tool callers.
func (e *RequestError) UserFacingError() string {
	if e.Message == "" {
		return "Zendesk rejected the request; check the arguments"
	}
	return "Zendesk rejected the request: " + e.Message
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
