// Package dispatch delivers webhook events to their configured targets
// over HTTP, signed with the Standard Webhooks scheme.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marcelsud/sumit-gateway/connector"
	"github.com/marcelsud/sumit-gateway/routes"
	"github.com/marcelsud/sumit-gateway/webhook"
	"github.com/marcelsud/sumit-gateway/webhook/payload"
	"github.com/marcelsud/sumit-gateway/webhook/signature"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "sumit-gateway-webhooks/1.0"
)

var ErrUnexpectedStatus = errors.New("target answered with unexpected status")

// RouteSource returns the routes accepting an event type
type RouteSource interface {
	Match(eventType string) []*routes.Route
}

/* Options configures the dispatcher
 * Rate caps deliveries per second across all targets, zero means unlimited
 */
type Options struct {
	Timeout   time.Duration
	Rate      float64
	Burst     int
	UserAgent string
}

// HTTPDispatcher implements webhook.Dispatcher
type HTTPDispatcher struct {
	conn      *connector.Connector
	routes    RouteSource
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a dispatcher sending through conn
func New(conn *connector.Connector, src RouteSource, opts Options, logger zerolog.Logger) *HTTPDispatcher {
	d := &HTTPDispatcher{
		conn:      conn,
		routes:    src,
		limiter:   rate.NewLimiter(rate.Inf, 0),
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		logger:    logger,
		now:       time.Now,
	}
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.userAgent == "" {
		d.userAgent = DefaultUserAgent
	}
	return d
}

/* Dispatch sends ev to every matching route
 * All routes are attempted; any failure fails the whole delivery and a
 * retry re-sends to every route, receivers dedupe on webhook-id
 */
func (d *HTTPDispatcher) Dispatch(ctx context.Context, ev webhook.Event) error {
	targets := d.routes.Match(ev.EventType)
	if len(targets) == 0 {
		return fmt.Errorf("%w: %s", webhook.ErrNoRoute, ev.EventType)
	}

	env, err := payload.New(ev.EventType, ev.Payload, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("building envelope: %w", err)
	}
	body, err := env.Bytes()
	if err != nil {
		return err
	}

	var errs []error
	for _, route := range targets {
		if err := d.send(ctx, route, ev.ID, body); err != nil {
			errs = append(errs, fmt.Errorf("target %s: %w", route.TargetID, err))
			continue
		}
		d.logger.Debug().Str("event_id", ev.ID).Str("target_id", route.TargetID).Msg("webhook delivered to target")
	}
	return errors.Join(errs...)
}

func (d *HTTPDispatcher) send(ctx context.Context, route *routes.Route, msgID string, body []byte) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	var secret signature.Secret
	if route.SigningSecret != "" {
		s, err := signature.ParseSecret(route.SigningSecret)
		if err != nil {
			return err
		}
		secret = s
	}
	header, err := signature.Headers(secret, msgID, d.now(), body)
	if err != nil {
		return fmt.Errorf("signing: %w", err)
	}
	header.Set("Content-Type", "application/json")
	header.Set("User-Agent", d.userAgent)

	timeout := route.Timeout
	if timeout <= 0 {
		timeout = d.timeout
	}

	resp, err := d.conn.Do(ctx, connector.Request{
		Method:  connector.POST,
		URL:     route.TargetURL,
		Header:  header,
		RawBody: body,
		Timeout: timeout,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != route.ExpectedStatus {
		return fmt.Errorf("%w: got %d, want %d", ErrUnexpectedStatus, resp.StatusCode, route.ExpectedStatus)
	}
	return nil
}

var _ webhook.Dispatcher = (*HTTPDispatcher)(nil)
var _ RouteSource = (*routes.Loader)(nil)
