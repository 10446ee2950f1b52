// Package connector is the single point of outbound JSON-over-HTTP
// communication. Every request is sealed by a redactor before an optional
// tracer sees it, and retried on transient failures within one hard
// deadline covering every attempt.
package connector

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/marcelsud/sumit-gateway/redact"
)

const (
	DefaultTimeout       = 180 * time.Second
	DefaultMaxAttempts   = 3
	DefaultRetryInterval = time.Second

	// maxResponseBody bounds how much of an upstream body is read
	maxResponseBody = 4 << 20

	// responseContainer is the nested object gateway responses carry results in
	responseContainer = "Data"
)

/* Options configures a Connector
 * InsecureSkipVerify disables TLS certificate checks: it exists for
 * non-production diagnostics only and must never be enabled in production
 */
type Options struct {
	Timeout            time.Duration
	MaxAttempts        int
	RetryInterval      time.Duration
	InsecureSkipVerify bool
	HTTPClient         *http.Client
	Redactor           *redact.Redactor
	Tracer             Tracer
	Observer           Observer
	Recorder           Recorder
}

// Connector executes requests. Safe for concurrent use.
type Connector struct {
	client        *http.Client
	timeout       time.Duration
	maxAttempts   int
	retryInterval time.Duration
	redactor      *redact.Redactor
	respRedactor  *redact.Redactor
	tracer        Tracer
	observer      Observer
	recorder      Recorder
}

// New creates a connector, filling zero options with defaults
func New(opts Options) *Connector {
	c := &Connector{
		client:        opts.HTTPClient,
		timeout:       opts.Timeout,
		maxAttempts:   opts.MaxAttempts,
		retryInterval: opts.RetryInterval,
		redactor:      opts.Redactor,
		tracer:        opts.Tracer,
		observer:      opts.Observer,
		recorder:      opts.Recorder,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.retryInterval <= 0 {
		c.retryInterval = DefaultRetryInterval
	}
	if c.redactor == nil {
		c.redactor = redact.New()
	}
	c.respRedactor = c.redactor.WithContainers(responseContainer)
	if c.client == nil {
		c.client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion:         tls.VersionTLS12,
					InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // diagnostics only, off by default
				},
			},
		}
	}
	return c
}

// Do sends the request, retrying network errors, timeouts and 5xx responses.
// The timeout bounds the whole call, retries and waits included.
// It returns a TransportError once attempts or time are exhausted and a
// ConfigurationError for requests that can never succeed.
func (c *Connector) Do(ctx context.Context, req Request) (Response, error) {
	payload, err := c.validate(req)
	if err != nil {
		return Response{}, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Content-Type") == "" && req.Method == POST {
		header.Set("Content-Type", "application/json")
	}

	trace := RequestTrace{
		Method: req.Method.String(),
		URL:    req.URL,
		Header: c.redactor.RedactHeaders(header),
		Body:   c.redactor.Seal(req.traceBody()),
	}
	if c.tracer != nil {
		c.tracer.TraceRequest(ctx, trace)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var (
		lastErr     error
		lastPartial *ResponseTrace
		lastStatus  int
		timedOut    bool
	)
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-callCtx.Done():
				return Response{}, c.fail(ctx, trace, lastPartial, &TransportError{
					Method: trace.Method, URL: req.URL, Attempts: attempt - 1,
					StatusCode: lastStatus, Timeout: timedOut || ctx.Err() == nil, Retryable: true,
					Err: errors.Join(lastErr, callCtx.Err()),
				})
			case <-time.After(c.retryInterval):
			}
		}

		resp, status, err := c.attempt(callCtx, req.Method, req.URL, header, payload, attempt)
		if err == nil {
			resp.Attempts = attempt
			resp.Duration = time.Since(start)
			if c.tracer != nil {
				c.tracer.TraceResponse(ctx, trace, ResponseTrace{
					StatusCode: resp.StatusCode,
					Header:     c.redactor.RedactHeaders(resp.Header),
					Body:       c.respRedactor.RedactJSON(resp.Body),
					Attempt:    attempt,
					Duration:   resp.Duration,
				})
			}
			return resp, nil
		}

		lastErr = err
		lastStatus = status.StatusCode
		timedOut = status.timeout
		if status.StatusCode > 0 {
			lastPartial = &ResponseTrace{
				StatusCode: status.StatusCode,
				Header:     c.redactor.RedactHeaders(status.Header),
				Body:       c.respRedactor.RedactJSON(status.Body),
				Attempt:    attempt,
			}
		}
		if callCtx.Err() != nil {
			return Response{}, c.fail(ctx, trace, lastPartial, &TransportError{
				Method: trace.Method, URL: req.URL, Attempts: attempt,
				StatusCode: lastStatus, Timeout: timedOut || ctx.Err() == nil, Retryable: true, Err: err,
			})
		}
	}

	return Response{}, c.fail(ctx, trace, lastPartial, &TransportError{
		Method:     trace.Method,
		URL:        req.URL,
		Attempts:   c.maxAttempts,
		StatusCode: lastStatus,
		Timeout:    timedOut,
		Retryable:  true,
		Err:        lastErr,
	})
}

type attemptStatus struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	timeout    bool
}

// attempt performs one HTTP exchange bounded by the call deadline on ctx
func (c *Connector) attempt(ctx context.Context, method Method, rawURL string, header http.Header, payload []byte, n int) (Response, attemptStatus, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method.String(), rawURL, body)
	if err != nil {
		return Response{}, attemptStatus{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header = header.Clone()

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		timedOut := isTimeout(ctx, err)
		outcome := OutcomeNetwork
		if timedOut {
			outcome = OutcomeTimeout
		}
		c.record(ctx, method, rawURL, outcome, time.Since(start))
		return Response{}, attemptStatus{timeout: timedOut}, fmt.Errorf("attempt %d: %w", n, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		timedOut := isTimeout(ctx, err)
		c.record(ctx, method, rawURL, OutcomeNetwork, time.Since(start))
		return Response{}, attemptStatus{StatusCode: resp.StatusCode, Header: resp.Header, timeout: timedOut},
			fmt.Errorf("attempt %d: reading response: %w", n, err)
	}
	if len(data) > maxResponseBody {
		c.record(ctx, method, rawURL, OutcomeNetwork, time.Since(start))
		return Response{}, attemptStatus{StatusCode: resp.StatusCode, Header: resp.Header},
			fmt.Errorf("attempt %d: %w", n, ErrResponseTooLarge)
	}

	if resp.StatusCode >= 500 {
		c.record(ctx, method, rawURL, OutcomeServerError, time.Since(start))
		return Response{}, attemptStatus{StatusCode: resp.StatusCode, Header: resp.Header, Body: data},
			fmt.Errorf("attempt %d: %w: status %d", n, ErrServerError, resp.StatusCode)
	}

	outcome := OutcomeSuccess
	if resp.StatusCode >= 400 {
		outcome = OutcomeClientError
	}
	c.record(ctx, method, rawURL, outcome, time.Since(start))

	return Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, attemptStatus{}, nil
}

// validate rejects requests that no retry can fix
func (c *Connector) validate(req Request) ([]byte, error) {
	if err := req.Method.Validate(); err != nil {
		return nil, &ConfigurationError{Field: "method", Err: fmt.Errorf("%w: %w", ErrInvalidMethod, err)}
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, &ConfigurationError{Field: "url", Err: fmt.Errorf("%w: %w", ErrInvalidURL, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ConfigurationError{Field: "url", Err: fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)}
	}
	if u.Host == "" {
		return nil, &ConfigurationError{Field: "url", Err: fmt.Errorf("%w: host is required", ErrInvalidURL)}
	}

	if req.Method == GET {
		return nil, nil
	}
	if req.RawBody != nil {
		if !json.Valid(req.RawBody) {
			return nil, &ConfigurationError{Field: "body", Err: fmt.Errorf("%w: raw body is not valid JSON", ErrInvalidBody)}
		}
		return req.RawBody, nil
	}
	if req.Body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(req.Body)
	if err != nil {
		return nil, &ConfigurationError{Field: "body", Err: fmt.Errorf("%w: %w", ErrInvalidBody, err)}
	}
	return payload, nil
}

func (c *Connector) fail(ctx context.Context, trace RequestTrace, partial *ResponseTrace, err *TransportError) error {
	if c.tracer != nil {
		c.tracer.TraceFailure(ctx, trace, partial, err)
	}
	if c.observer != nil {
		c.observer.CallFailed(ctx, CallFailure{
			Method:   err.Method,
			URL:      err.URL,
			Attempts: err.Attempts,
			Err:      err,
		})
	}
	return err
}

func (c *Connector) record(ctx context.Context, method Method, rawURL, outcome string, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordAttempt(ctx, method.String(), rawURL, outcome, d)
	}
}
