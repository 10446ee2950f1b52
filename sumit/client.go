// Package sumit is the client for the SUMIT (OfficeGuy) payment gateway API.
// It layers credentials, locale headers, endpoint policies and domain status
// handling on top of the generic connector.
package sumit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/marcelsud/sumit-gateway/connector"
)

const (
	DefaultLocale            = "he"
	DefaultClientID          = "sumit-gateway-go"
	DefaultRejectionAttempts = 2
	DefaultRejectionInterval = time.Second

	headerClientID = "X-OG-Client"
)

// Options configures a Client
type Options struct {
	Environment                 Environment
	Credentials                 Credentials
	Locale                      string
	ClientID                    string
	MerchantNumber              string
	SubscriptionsMerchantNumber string
	Policies                    PolicySource
	RejectionAttempts           int
	RejectionInterval           time.Duration
}

// Client calls gateway endpoints. Safe for concurrent use.
type Client struct {
	conn              *connector.Connector
	env               Environment
	creds             Credentials
	locale            string
	clientID          string
	merchant          string
	subsMerchant      string
	policies          PolicySource
	rejectionAttempts int
	rejectionInterval time.Duration
}

/* Request is one gateway call
 * Credentials are injected by the client, callers never put keys in Body
 * Key and Timeout override the endpoint policy when set
 */
type Request struct {
	Path    string
	Body    map[string]any
	Key     KeyKind
	Timeout time.Duration
}

// New creates a gateway client on top of conn
func New(conn *connector.Connector, opts Options) (*Client, error) {
	if err := opts.Environment.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvironment, err)
	}
	c := &Client{
		conn:              conn,
		env:               opts.Environment,
		creds:             opts.Credentials,
		locale:            opts.Locale,
		clientID:          opts.ClientID,
		merchant:          opts.MerchantNumber,
		subsMerchant:      opts.SubscriptionsMerchantNumber,
		policies:          opts.Policies,
		rejectionAttempts: opts.RejectionAttempts,
		rejectionInterval: opts.RejectionInterval,
	}
	if c.locale == "" {
		c.locale = DefaultLocale
	}
	if c.clientID == "" {
		c.clientID = DefaultClientID
	}
	if c.policies == nil {
		c.policies = DefaultPolicies()
	}
	if c.rejectionAttempts <= 0 {
		c.rejectionAttempts = DefaultRejectionAttempts
	}
	if c.rejectionInterval <= 0 {
		c.rejectionInterval = DefaultRejectionInterval
	}
	return c, nil
}

// Environment returns the environment the client targets
func (c *Client) Environment() Environment {
	return c.env
}

/* Call sends req and separates the two outcomes:
 * a transport failure returns a *connector.TransportError and no Response,
 * a gateway rejection returns the decoded Response and a *DomainRejection
 */
func (c *Client) Call(ctx context.Context, req Request) (Response, error) {
	if !strings.HasPrefix(req.Path, "/") {
		return Response{}, &connector.ConfigurationError{
			Field: "path",
			Err:   fmt.Errorf("%w: path must start with /: %q", connector.ErrInvalidURL, req.Path),
		}
	}

	pol, ok := c.policies.Policy(req.Path)
	if !ok {
		pol = DefaultPolicy(req.Path)
	}
	key := pol.Key
	if req.Key != 0 {
		key = req.Key
	}
	if err := c.creds.Validate(key); err != nil {
		return Response{}, &connector.ConfigurationError{
			Field: "credentials",
			Err:   fmt.Errorf("%w: %w", connector.ErrMissingCredentials, err),
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = pol.Timeout
	}

	body := make(map[string]any, len(req.Body)+1)
	for k, v := range req.Body {
		body[k] = v
	}
	body["Credentials"] = c.creds.body(key)

	out := connector.Request{
		Method:  connector.POST,
		URL:     c.env.BaseURL() + req.Path,
		Header:  c.headers(ctx),
		Body:    body,
		Timeout: timeout,
	}

	attempts := 1
	if pol.RetryOnRejection && !pol.Mutation {
		attempts = c.rejectionAttempts
	}

	var (
		resp Response
		err  error
	)
	for i := 1; i <= attempts; i++ {
		if i > 1 {
			select {
			case <-ctx.Done():
				return resp, err
			case <-time.After(c.rejectionInterval):
			}
		}
		resp, err = c.call(ctx, out, pol)
		if err == nil || !IsRejection(err) {
			return resp, err
		}
	}
	return resp, err
}

func (c *Client) call(ctx context.Context, req connector.Request, pol Policy) (Response, error) {
	raw, err := c.conn.Do(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if !raw.IsSuccess() {
		return Response{}, &connector.TransportError{
			Method:     req.Method.String(),
			URL:        req.URL,
			Attempts:   raw.Attempts,
			StatusCode: raw.StatusCode,
			Err:        fmt.Errorf("%w: %d", connector.ErrUnexpectedStatus, raw.StatusCode),
		}
	}

	resp, err := ParseResponse(raw.Body, pol.Family)
	if err != nil {
		return Response{}, &connector.TransportError{
			Method:     req.Method.String(),
			URL:        req.URL,
			Attempts:   raw.Attempts,
			StatusCode: raw.StatusCode,
			Err:        fmt.Errorf("%w: %w", connector.ErrMalformedResponse, err),
		}
	}
	resp.StatusCode = raw.StatusCode

	if !resp.IsValid() {
		return resp, &DomainRejection{
			Path:      pol.Path,
			Status:    resp.Status,
			Message:   resp.ErrorMessage(),
			Technical: resp.TechnicalErrorDetails,
		}
	}
	return resp, nil
}

func (c *Client) headers(ctx context.Context) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("Content-Language", LocaleFrom(ctx, c.locale))
	h.Set(headerClientID, c.clientID)
	return h
}
