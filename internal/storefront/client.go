// Package storefront is the client of the storefront HTTP API. It backs the
// shopctl login, checkout and catalog commands.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

var (
	_ auth.Authenticator = (*Client)(nil)
	_ order.Submitter    = (*Client)(nil)
	_ product.Catalog    = (*Client)(nil)
)

// ErrMalformedResponse is wrapped by errors for bodies that are not the
// expected JSON.
var ErrMalformedResponse = errors.New("malformed response")

// APIError is a failed API call: a non-2xx status or a body with ok:false.
type APIError struct {
	Status  int
	Message string
	Field   string
	Detail  json.RawMessage
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return "storefront api: " + strconv.Itoa(e.Status) + ": " + msg
}

// UserMessage returns the server's message, or "" when it sent none.
func (e *APIError) UserMessage() string { return e.Message }

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(cl *Client) { cl.lg = lg }
}

// Client calls the storefront API.
type Client struct {
	base *url.URL
	http *http.Client
	lg   *zap.Logger
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base URL %q must be absolute", baseURL)
	}

	cl := &Client{
		base: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		lg: zap.NewNop(),
	}
	for _, o := range opts {
		o(cl)
	}
	return cl, nil
}

// envelope is the common shape of every API response.
type envelope struct {
	OK      *bool           `json:"ok"`
	Message string          `json:"message"`
	Field   string          `json:"field"`
	Detail  json.RawMessage `json:"detail"`
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

// call performs req and decodes a successful body into out.
func (cl *Client) call(ctx context.Context, req request, out any) error {
	u := *cl.base
	u.Path += req.path
	u.RawQuery = req.query.Encode()

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(data)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		if v != "" {
			hreq.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := cl.http.Do(hreq)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.method, req.path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	cl.lg.Debug("API call",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	var env envelope
	envErr := json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if envErr == nil {
			apiErr.Message = env.Message
			apiErr.Field = env.Field
			apiErr.Detail = env.Detail
		}
		return apiErr
	}
	if envErr != nil {
		return errors.Wrapf(ErrMalformedResponse, "%s %s: %v", req.method, req.path, envErr)
	}
	if env.OK != nil && !*env.OK {
		return &APIError{Status: resp.StatusCode, Message: env.Message, Field: env.Field, Detail: env.Detail}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(ErrMalformedResponse, "%s %s: %v", req.method, req.path, err)
	}
	return nil
}
