// Package backend is the HTTP client of the internship REST API. Every call
// takes the caller's Credentials explicitly; the client itself holds no user
// state.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/pkg/config"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

const (
	csrfCookie   = "csrftoken"
	csrfHeader   = "X-CSRFToken"
	maxErrorBody = 1 << 20
)

// Credentials are the backend session cookies of one user.
type Credentials struct {
	Cookies map[string]string
}

// Empty reports whether no cookie is held.
func (c Credentials) Empty() bool { return len(c.Cookies) == 0 }

// CallObserver records one backend round trip.
type CallObserver interface {
	ObserveBackendCall(method, endpoint string, status int, duration time.Duration)
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL  *url.URL
	reads    *retryablehttp.Client
	writes   *retryablehttp.Client
	logger   *zap.Logger
	observer CallObserver
}

// NewClient builds a client from configuration. Only GET requests are
// retried, and only when RetryMax is positive; writes are never replayed.
func NewClient(cfg config.BackendConfig, logger *zap.Logger, observer CallObserver) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	build := func(retries int) *retryablehttp.Client {
		rc := retryablehttp.NewClient()
		rc.HTTPClient = httpClient
		rc.RetryMax = retries
		if cfg.RetryWaitMin > 0 {
			rc.RetryWaitMin = cfg.RetryWaitMin
		}
		if cfg.RetryWaitMax > 0 {
			rc.RetryWaitMax = cfg.RetryWaitMax
		}
		rc.Logger = leveledLogger{logger.Sugar().With("component", "backend")}
		rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
		return rc
	}

	return &Client{
		baseURL:  base,
		reads:    build(max(cfg.RetryMax, 0)),
		writes:   build(0),
		logger:   logger,
		observer: observer,
	}, nil
}

// request describes one call. endpoint is the low-cardinality route name
// used for logs and metrics.
type request struct {
	method      string
	endpoint    string
	path        string
	query       url.Values
	bodyBytes   []byte
	contentType string
}

func jsonRequest(method, endpoint, path string, payload any) (request, error) {
	r := request{method: method, endpoint: endpoint, path: path}
	if payload == nil {
		return r, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return r, fmt.Errorf("encode %s body: %w", endpoint, err)
	}
	r.bodyBytes = data
	r.contentType = "application/json"
	return r, nil
}

// do sends the request and returns the successful response. The caller owns
// the body. Failures are mapped to application errors.
func (c *Client) do(ctx context.Context, creds Credentials, r request) (*http.Response, error) {
	target := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(r.path, "/")})
	if len(r.query) > 0 {
		target.RawQuery = r.query.Encode()
	}

	var body any
	if r.bodyBytes != nil {
		body = r.bodyBytes
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, r.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", r.endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	for name, value := range creds.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
		if name == csrfCookie {
			req.Header.Set(csrfHeader, value)
		}
	}

	client := c.writes
	if r.method == http.MethodGet {
		client = c.reads
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(r, 0, elapsed)
		c.logger.Warn("backend unreachable",
			zap.String("method", r.method),
			zap.String("endpoint", r.endpoint),
			zap.Duration("latency", elapsed),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, appErrors.ErrBackendUnavailable.Message)
	}
	c.observe(r, resp.StatusCode, elapsed)

	fields := []zap.Field{
		zap.String("method", r.method),
		zap.String("endpoint", r.endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", elapsed),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Debug("backend call", fields...)
		return resp, nil
	}

	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := ParseErrorBody(resp.StatusCode, raw)
	fields = append(fields, zap.String("error_kind", apiErr.Kind.String()), zap.String("body_size", humanize.Bytes(uint64(len(raw)))))
	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Error("backend call failed", fields...)
	} else {
		c.logger.Info("backend call rejected", fields...)
	}
	return nil, statusError(apiErr)
}

func (c *Client) observe(r request, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveBackendCall(r.method, r.endpoint, status, elapsed)
	}
}

// doJSON sends r and decodes a JSON response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, creds Credentials, r request, out any) error {
	resp, err := c.do(ctx, creds, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return appErrors.Wrap(fmt.Errorf("decode %s response: %w", r.endpoint, err),
			appErrors.ErrBackendFailure.Code, appErrors.ErrBackendFailure.Status, appErrors.ErrBackendFailure.Message)
	}
	return nil
}

// doBytes returns the raw response body with its headers.
func (c *Client) doBytes(ctx context.Context, creds Credentials, r request) ([]byte, http.Header, error) {
	resp, err := c.do(ctx, creds, r)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, appErrors.ErrBackendUnavailable.Message)
	}
	return data, resp.Header, nil
}

// leveledLogger adapts zap to retryablehttp's logging interface.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }

var _ retryablehttp.LeveledLogger = leveledLogger{}
