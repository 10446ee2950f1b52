package connector

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidURL         = errors.New("invalid request URL")
	ErrInvalidMethod      = errors.New("invalid request method")
	ErrInvalidBody        = errors.New("invalid request body")
	ErrServerError        = errors.New("upstream server error")
	ErrUnexpectedStatus   = errors.New("unexpected upstream status")
	ErrMalformedResponse  = errors.New("malformed upstream response")
	ErrResponseTooLarge   = errors.New("upstream response too large")
	ErrMissingCredentials = errors.New("missing credentials")
)

/* TransportError means the call did not produce a usable HTTP exchange:
 * network failure, timeout, TLS failure, 5xx after every attempt, or an
 * HTTP status the caller cannot interpret
 */
type TransportError struct {
	Method     string
	URL        string
	Attempts   int
	StatusCode int
	Timeout    bool
	Retryable  bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s %s timed out after %d attempt(s): %v", e.Method, e.URL, e.Attempts, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s %s failed with status %d after %d attempt(s): %v", e.Method, e.URL, e.StatusCode, e.Attempts, e.Err)
	default:
		return fmt.Sprintf("%s %s failed after %d attempt(s): %v", e.Method, e.URL, e.Attempts, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

/* ConfigurationError is fatal: missing credentials, malformed endpoints or
 * bodies that cannot be encoded. It is never retried
 */
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsConfiguration reports whether err is a ConfigurationError
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
