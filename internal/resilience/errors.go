package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
	"time"
)

// Category classifies a failure for the orchestrator's per-item decision:
// retry the operation, fail the item, or abort the whole run.
type Category string

// Failure categories.
const (
	CategoryTransient  Category = "transient"  // retryable: timeouts, 429, 5xx
	CategoryValidation Category = "validation" // item-fatal: 400-class rejection
	CategoryAuth       Category = "auth"       // run-fatal: 401/403
	CategoryFatal      Category = "fatal"      // run-fatal: unparseable input, corrupt checkpoint
	CategoryUnknown    Category = "unknown"
)

// TransientError marks an error safe to retry. RetryAfter, when non-zero,
// carries a server-indicated delay (e.g. a 429 Retry-After header) that
// overrides the computed backoff.
type TransientError struct {
	Err        error
	StatusCode int
	RetryAfter time.Duration
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// ValidationError marks a non-retryable rejection of one record. The item is
// failed and the run continues.
type ValidationError struct {
	Err    error
	Detail string
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// AuthError marks an authentication or authorization failure. The whole run
// aborts: retrying other items against the same credentials is pointless.
type AuthError struct {
	Err        error
	StatusCode int
}

func (e *AuthError) Error() string { return e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

// Classify maps an HTTP status code to a failure category per the ingestion
// endpoint contract. 2xx is not a failure and maps to CategoryUnknown.
func Classify(statusCode int) Category {
	switch {
	case statusCode == 400 || statusCode == 404 || statusCode == 409 || statusCode == 422:
		return CategoryValidation
	case statusCode == 401 || statusCode == 403:
		return CategoryAuth
	case statusCode == 408 || statusCode == 429 || statusCode >= 500:
		return CategoryTransient
	default:
		return CategoryUnknown
	}
}

// Categorize reports the category of an error chain.
func Categorize(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return CategoryAuth
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return CategoryValidation
	}
	if IsTransient(err) {
		return CategoryTransient
	}
	return CategoryUnknown
}

// IsTransient reports whether err (or anything in its chain) is retryable:
// an explicit TransientError, a network timeout, a connection-level failure,
// or a known transient pattern from wrapped HTTP client errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"unexpected eof",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func retryAfterHint(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}
