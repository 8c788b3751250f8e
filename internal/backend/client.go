// Package backend is the HTTP transport for the grocery store REST API.
package backend

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/grocery-console/internal/apierr"
	"github.com/xenking/grocery-console/pkg/httpmiddleware"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodySize    = 8 << 20
	userAgent      = "grocer/1"
)

// TokenSource provides the bearer token attached to authenticated requests.
// session.Store satisfies it.
type TokenSource interface {
	Token() string
}

// Client talks to the REST backend. Services are safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource

	timeout  time.Duration
	tracer   trace.TracerProvider
	meter    metric.MeterProvider
	external bool

	Auth       *AuthService
	Users      *UserService
	Products   *ProductService
	Categories *CategoryService
	Orders     *OrderService
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
		c.external = true
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTelemetry instruments the default HTTP client with the given providers.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(c *Client) {
		c.tracer = tp
		c.meter = mp
	}
}

// New creates a client for the API rooted at baseURL,
// e.g. "http://localhost:8000/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{base: u, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if !c.external {
		var otelOpts []otelhttp.Option
		if c.tracer != nil {
			otelOpts = append(otelOpts, otelhttp.WithTracerProvider(c.tracer))
		}
		if c.meter != nil {
			otelOpts = append(otelOpts, otelhttp.WithMeterProvider(c.meter))
		}
		c.http = &http.Client{
			Timeout:   c.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, otelOpts...),
		}
	}

	c.Auth = &AuthService{c: c}
	c.Users = &UserService{c: c}
	c.Products = &ProductService{c: c}
	c.Categories = &CategoryService{c: c}
	c.Orders = &OrderService{c: c}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Ping checks that the backend answers HTTP at all. Any status below 500
// counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String()+"/", http.NoBody)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &apierr.TransportError{Op: "ping", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode >= http.StatusInternalServerError {
		return &apierr.TransportError{Op: "ping", Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	return nil
}

type request struct {
	method string
	path   string
	query  url.Values
	body   func(e *jx.Encoder)

	// anonymous requests never carry the bearer token.
	anonymous bool
	// credentials marks the token endpoint, where 401 means wrong credentials
	// rather than an expired session.
	credentials bool
}

func (c *Client) do(ctx context.Context, r request, decode func(d *jx.Decoder) error) error {
	op := r.method + " " + r.path
	lg := zctx.From(ctx)

	u := *c.base
	u.Path = c.base.Path + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader = http.NoBody
	if r.body != nil {
		var e jx.Encoder
		r.body(&e)
		body = bytes.NewReader(e.Bytes())
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return errors.Wrapf(err, "%s: create request", op)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := httpmiddleware.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	req.Header.Set("X-Request-ID", requestID)
	if !r.anonymous && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		lg.Debug("Backend request failed",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return &apierr.TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &apierr.TransportError{Op: op, Status: resp.StatusCode, Err: errors.Wrap(err, "read body")}
	}

	lg.Debug("Backend request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode, data, r.credentials)
	}
	if decode == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := decode(jx.DecodeBytes(data)); err != nil {
		return &apierr.TransportError{Op: op, Status: resp.StatusCode, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}

func statusError(op string, status int, body []byte, credentials bool) error {
	switch status {
	case http.StatusBadRequest:
		verr := decodeValidation(body)
		if verr.Empty() {
			verr.Summary = "The request was rejected by the server."
		}
		return verr
	case http.StatusUnauthorized:
		if credentials {
			verr := decodeValidation(body)
			if verr.Empty() {
				verr.Summary = "Invalid username or password."
			}
			return verr
		}
		return errors.Wrap(apierr.ErrUnauthorized, op)
	case http.StatusForbidden:
		return errors.Wrap(apierr.ErrForbidden, op)
	case http.StatusNotFound:
		return errors.Wrap(apierr.ErrNotFound, op)
	}

	msg := http.StatusText(status)
	if verr := decodeValidation(body); verr.Summary != "" && len(verr.Summary) < 256 {
		msg = verr.Summary
	}
	return &apierr.TransportError{Op: op, Status: status, Err: errors.New(msg)}
}

func idPath(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10) + "/"
}
