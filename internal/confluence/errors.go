package confluence

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"
)

var (
	// ErrUnauthorized is returned when the wiki rejects the credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAmbiguousTitle is returned when a title lookup matches several
	// pages. Titles are assumed unique per space; picking one would hide the
	// problem.
	ErrAmbiguousTitle = errors.New("title matches more than one page")
)

// APIError is a non-2xx response from the wiki.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, truncate(e.Body, 200))
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// IsRetryable reports transient failures worth repeating as-is.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
}

// IsParentUnresolved reports whether a create was rejected the way the wiki
// rejects a parent id it cannot resolve yet: a 400 or 404 on the request.
func IsParentUnresolved(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusNotFound
}

// MaxRetries bounds attempts for transient (429/5xx) failures per request.
const MaxRetries = 3

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
