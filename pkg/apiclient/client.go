package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
	"github.com/angelmondragon/eltafawook-admin/pkg/metrics"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

var idSegment = regexp.MustCompile(`^[0-9a-fA-F-]*[0-9][0-9a-fA-F-]*$`)

// Doer is the request surface shared by services and the endpoint prober.
type Doer interface {
	Do(ctx context.Context, path string, opts RequestOptions) (Body, error)
}

// Uploader sends multipart file uploads.
type Uploader interface {
	DoMultipart(ctx context.Context, path, field, filename string, content io.Reader, authToken string) (Body, error)
}

// API is the full remote surface: JSON/form requests plus uploads.
type API interface {
	Doer
	Uploader
}

// RequestOptions describes one call against the remote API.
type RequestOptions struct {
	Method string
	// Body is JSON encoded unless it is already an io.Reader.
	Body any
	// Form takes precedence over Body and is sent URL-encoded.
	Form      url.Values
	Headers   http.Header
	AuthToken string
}

// Client is the single HTTP wrapper for the remote bookshop API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logg       *logger.Logger
	metrics    *metrics.APIMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds every request. Zero keeps requests bounded only by ctx.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			clone := *c.httpClient
			clone.Timeout = timeout
			c.httpClient = &clone
		}
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

func WithMetrics(m *metrics.APIMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds the API client for baseURL (for example https://host/api/v1).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api base url is required")
	}
	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{},
		logg:       logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do issues one request and returns the parsed body. Non-2xx responses return
// a typed error wrapping *StatusError; transport failures wrap CodeDependency.
func (c *Client) Do(ctx context.Context, path string, opts RequestOptions) (Body, error) {
	if c == nil {
		return Body{}, pkgerrors.New(pkgerrors.CodeDependency, "api client not configured")
	}
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodGet
	}

	headers := opts.Headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}

	var reader io.Reader
	switch {
	case opts.Form != nil:
		if headers.Get("Content-Type") == "" {
			headers.Set("Content-Type", contentTypeForm)
		}
		reader = strings.NewReader(opts.Form.Encode())
	case opts.Body != nil:
		if r, ok := opts.Body.(io.Reader); ok {
			reader = r
			break
		}
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return Body{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		if headers.Get("Content-Type") == "" {
			headers.Set("Content-Type", contentTypeJSON)
		}
		reader = bytes.NewReader(payload)
	}

	return c.send(ctx, method, path, reader, headers, opts.AuthToken)
}

// DoMultipart uploads one file under field using multipart/form-data.
func (c *Client) DoMultipart(ctx context.Context, path, field, filename string, content io.Reader, authToken string) (Body, error) {
	if c == nil {
		return Body{}, pkgerrors.New(pkgerrors.CodeDependency, "api client not configured")
	}
	if content == nil {
		return Body{}, pkgerrors.New(pkgerrors.CodeValidation, "upload content is required")
	}
	if field == "" {
		field = "file"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return Body{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create multipart part")
	}
	if _, err := io.Copy(part, content); err != nil {
		return Body{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "copy upload content")
	}
	if err := writer.Close(); err != nil {
		return Body{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finalize multipart body")
	}

	headers := http.Header{}
	headers.Set("Content-Type", writer.FormDataContentType())
	return c.send(ctx, http.MethodPost, path, &buf, headers, authToken)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, headers http.Header, token string) (Body, error) {
	route := routeLabel(path)
	ctx = c.logg.WithFields(ctx, map[string]any{
		"api_method": method,
		"api_path":   route,
	})

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
	if err != nil {
		return Body{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build api request")
	}
	req.Header = headers
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.Observe(method, route, 0, elapsed)
		c.logg.Warn(c.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds()), "api request failed before response")
		return Body{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remote api unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.Observe(method, route, resp.StatusCode, elapsed)
		return Body{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read api response")
	}
	parsed := ParseBody(raw)

	c.metrics.Observe(method, route, resp.StatusCode, elapsed)
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"status":      resp.StatusCode,
		"duration_ms": elapsed.Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logg.Debug(logCtx, "api request rejected")
		return parsed, NewStatusError(resp.StatusCode, parsed)
	}

	c.logg.Debug(logCtx, "api request completed")
	return parsed, nil
}

func (c *Client) buildURL(path string) string {
	if path == "" {
		return c.baseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// routeLabel strips the query and collapses id-like segments so metric labels stay bounded.
func routeLabel(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg != "" && idSegment.MatchString(seg) {
			segments[i] = "{id}"
		}
	}
	out := strings.Join(segments, "/")
	if out == "" {
		return "/"
	}
	return out
}
