package connector

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

/* Method is the closed set of HTTP verbs the gateway accepts */
type Method int

const (
	GET Method = iota + 1
	POST
)

// String returns the HTTP verb
func (m Method) String() string {
	switch m {
	case GET:
		return http.MethodGet
	case POST:
		return http.MethodPost
	default:
		return "unknown"
	}
}

// Validate checks if the method is supported
func (m Method) Validate() error {
	if m != GET && m != POST {
		return fmt.Errorf("invalid method: %d", m)
	}
	return nil
}

/* Request is a single outbound JSON call
 * Body is sent as-is; only the copy handed to the tracer is redacted
 * RawBody, when set, is sent byte for byte instead of Body (signed payloads)
 * Timeout overrides the connector default when positive; it bounds the
 * whole call, retries included
 */
type Request struct {
	Method  Method
	URL     string
	Header  http.Header
	Body    map[string]any
	RawBody []byte
	Timeout time.Duration
}

// traceBody returns the map form of the body for redaction
func (r Request) traceBody() map[string]any {
	if r.RawBody == nil {
		return r.Body
	}
	var m map[string]any
	if err := json.Unmarshal(r.RawBody, &m); err != nil {
		return map[string]any{}
	}
	return m
}

/* Response is the transport-level outcome of a call
 * A Response never implies business success, callers inspect Body for that
 */
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
	Duration   time.Duration
}

// IsSuccess reports a 2xx status code
func (r Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
