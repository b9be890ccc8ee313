// Package woo is a client for the WooCommerce and WordPress REST APIs used
// by the storefront: order creation, JWT login, customer registration and
// the public Store API product listing.
package woo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the WordPress site root, e.g. https://shop.example.com.
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration

	// HTTPClient overrides the default instrumented client.
	HTTPClient     *http.Client
	TracerProvider trace.TracerProvider
	Logger         *zap.Logger
}

// Client talks to a single WooCommerce site.
type Client struct {
	base   *url.URL
	key    string
	secret string
	http   *http.Client
	tracer trace.Tracer
	lg     *zap.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}

	if cfg.TracerProvider == nil {
		cfg.TracerProvider = noop.NewTracerProvider()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(cfg.TracerProvider),
			),
		}
	}

	return &Client{
		base:   base,
		key:    cfg.ConsumerKey,
		secret: cfg.ConsumerSecret,
		http:   httpClient,
		tracer: cfg.TracerProvider.Tracer("github.com/xenking/storefront/internal/woo"),
		lg:     cfg.Logger,
	}, nil
}

type authMode int

const (
	authNone authMode = iota
	authConsumer
	authBearer
)

type call struct {
	name   string
	method string
	path   string
	query  url.Values
	body   any
	auth   authMode
	token  string
}

// do performs c and returns the raw 2xx body. Non-2xx responses become
// *APIError.
func (cl *Client) do(ctx context.Context, c call) (_ []byte, rerr error) {
	ctx, span := cl.tracer.Start(ctx, "woo."+c.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", c.method),
			attribute.String("url.path", c.path),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	u := *cl.base
	u.Path = cl.base.Path + c.path
	if len(c.query) > 0 {
		u.RawQuery = c.query.Encode()
	}

	var body io.Reader
	if c.body != nil {
		data, err := json.Marshal(c.body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch c.auth {
	case authConsumer:
		req.SetBasicAuth(cl.key, cl.secret)
	case authBearer:
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := cl.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", c.method, c.path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp.StatusCode, data)
		cl.lg.Debug("WooCommerce error response",
			zap.String("call", c.name),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
		)
		return nil, apiErr
	}
	return data, nil
}

func (cl *Client) doJSON(ctx context.Context, c call, out any) error {
	data, err := cl.do(ctx, c)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Call: c.name, Err: err}
	}
	return nil
}

// Ping checks that the WordPress REST index answers.
func (cl *Client) Ping(ctx context.Context) error {
	_, err := cl.do(ctx, call{name: "ping", method: http.MethodGet, path: "/wp-json/"})
	return err
}
