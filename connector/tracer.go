package connector

import (
	"context"
	"net/http"
	"time"

	"github.com/marcelsud/sumit-gateway/redact"
	"github.com/rs/zerolog"
)

/* RequestTrace is what a tracer sees of an outbound request
 * Body is a redact.Body, so only redacted payloads can reach a tracer
 */
type RequestTrace struct {
	Method string
	URL    string
	Header http.Header
	Body   redact.Body
}

/* ResponseTrace is what a tracer sees of an upstream response
 * JSON object bodies are redacted before they get here
 */
type ResponseTrace struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempt    int
	Duration   time.Duration
}

// Tracer records request/response pairs. It runs after redaction by construction.
type Tracer interface {
	TraceRequest(ctx context.Context, req RequestTrace)
	TraceResponse(ctx context.Context, req RequestTrace, resp ResponseTrace)
	TraceFailure(ctx context.Context, req RequestTrace, partial *ResponseTrace, err error)
}

// CallFailure describes a call that exhausted its attempts
type CallFailure struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

// Observer is notified when a call fails after every attempt
type Observer interface {
	CallFailed(ctx context.Context, failure CallFailure)
}

// Recorder receives one sample per attempt, for metrics
type Recorder interface {
	RecordAttempt(ctx context.Context, method, url, outcome string, duration time.Duration)
}

// Attempt outcomes reported to a Recorder
const (
	OutcomeSuccess     = "success"
	OutcomeServerError = "server_error"
	OutcomeClientError = "client_error"
	OutcomeTimeout     = "timeout"
	OutcomeNetwork     = "network_error"
)

// maxLoggedBody bounds response bodies written to the log
const maxLoggedBody = 8 * 1024

// LogTracer writes traces to a zerolog logger
type LogTracer struct {
	logger zerolog.Logger
}

// NewLogTracer creates a tracer tagged with the given log channel
func NewLogTracer(logger zerolog.Logger, channel string) *LogTracer {
	if channel != "" {
		logger = logger.With().Str("channel", channel).Logger()
	}
	return &LogTracer{logger: logger}
}

func (t *LogTracer) TraceRequest(ctx context.Context, req RequestTrace) {
	t.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Interface("headers", req.Header).
		Interface("body", req.Body.Map()).
		Msg("gateway request")
}

func (t *LogTracer) TraceResponse(ctx context.Context, req RequestTrace, resp ResponseTrace) {
	t.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Int("attempt", resp.Attempt).
		Dur("duration", resp.Duration).
		Interface("headers", resp.Header).
		Str("body", truncate(resp.Body)).
		Msg("gateway response")
}

func (t *LogTracer) TraceFailure(ctx context.Context, req RequestTrace, partial *ResponseTrace, err error) {
	ev := t.logger.Error().
		Err(err).
		Str("method", req.Method).
		Str("url", req.URL)
	if partial != nil {
		ev = ev.Int("status", partial.StatusCode).
			Int("attempt", partial.Attempt).
			Str("body", truncate(partial.Body))
	}
	ev.Msg("gateway request failed")
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}
	return string(b)
}
