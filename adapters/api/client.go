// Package api is the HTTP client for the portfolio's remote REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/logger"
)

// TokenSource supplies the bearer token for a request. An empty token means the
// request goes out without an Authorization header; the server decides what that means.
type TokenSource interface {
	Token(ctx context.Context) string
}

var tracer = otel.Tracer("api_client")

type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

type noBearerKey struct{}

// WithoutBearer marks ctx so requests made with it rely on cookies alone.
func WithoutBearer(ctx context.Context) context.Context {
	return context.WithValue(ctx, noBearerKey{}, true)
}

// BearerSuppressed reports whether ctx came from WithoutBearer.
func BearerSuppressed(ctx context.Context) bool {
	v, _ := ctx.Value(noBearerKey{}).(bool)
	return v
}

type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	log    logger.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its Jar is kept when set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc.Jar == nil {
			hc.Jar = c.http.Jar
		}
		c.http = hc
	}
}

func NewClient(cfg config.Config, tokens TokenSource, log logger.Logger, opts ...Option) (*Client, error) {
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api base url is not configured")
	}
	base, err := url.Parse(strings.TrimRight(cfg.API.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	timeout := cfg.API.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if tokens == nil {
		tokens = TokenFunc(func(context.Context) string { return "" })
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: timeout, Jar: jar},
		tokens: tokens,
		log:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Experiences() *Resource { return c.resource("experiences", true) }
func (c *Client) Projects() *Resource    { return c.resource("projects", true) }
func (c *Client) Posts() *Resource       { return c.resource("posts", true) }
func (c *Client) Contacts() *Resource    { return c.resource("contacts", false) }
func (c *Client) Admin() *Admin          { return &Admin{client: c} }

func (c *Client) resource(collection string, public bool) *Resource {
	return &Resource{client: c, collection: collection, public: public}
}

// Do sends one request and returns the raw response body for 2xx responses.
// A *Multipart body is sent as multipart/form-data, anything else as JSON.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body Body) (_ []byte, err error) {
	ctx, span := tracer.Start(ctx, method+" "+path)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := logger.WithTrace(ctx, c.log)

	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case *Multipart:
		buf, ct, err := b.encode()
		if err != nil {
			return nil, apperror.NewInvalidInput("Failed to prepare upload", err)
		}
		reader = newProgressReader(buf, b.progress)
		contentType = ct
	case JSONBody:
		data, err := json.Marshal(map[string]any(b))
		if err != nil {
			return nil, apperror.NewInvalidInput("Failed to encode request", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, apperror.NewInternal("failed to build request", err)
	}
	if pr, ok := reader.(*progressReader); ok {
		req.ContentLength = pr.total
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if !BearerSuppressed(ctx) {
		if token := c.tokens.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("api request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, apperror.NewUpstream("Network Error", fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.NewUpstream("Network Error", "failed to read response body", err)
	}
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
		attribute.Int("http.response.status_code", resp.StatusCode),
	)
	log.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(method, path, resp.StatusCode, data)
	}
	return data, nil
}
