// Package gateway forwards same-origin calls to the booking backend with the
// caller's credential attached and normalizes what comes back.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/config"
	"github.com/spec-kit/space-booking/internal/observability"
)

// maxResponseBytes caps how much of a backend body is buffered.
const maxResponseBytes = 10 << 20

// Call is one outbound request to the backend.
type Call struct {
	Route       string
	Method      string
	Path        string
	RawQuery    string
	ContentType string
	Credential  string
	RequestID   string
	Body        []byte
	Timeout     time.Duration
}

// Reply is the backend's answer, fully buffered.
type Reply struct {
	Status      int
	ContentType string
	Body        []byte
}

// Backend performs exactly one HTTP exchange per Call; it never retries.
type Backend struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewBackend builds a client tuned for many short-lived calls to one host.
func NewBackend(cfg config.BackendConfig, logger *zap.Logger, metrics *observability.Metrics) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &Backend{
		baseURL: cfg.URL,
		timeout: cfg.Timeout(),
		client:  &http.Client{Transport: transport},
		logger:  logger,
		metrics: metrics,
	}
}

// Do sends call and returns the reply. An error means no usable response
// was received; any status the backend sends is a reply, not an error.
func (b *Backend) Do(ctx context.Context, call Call) (*Reply, error) {
	timeout := call.Timeout
	if timeout <= 0 {
		timeout = b.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := b.baseURL + call.Path
	if call.RawQuery != "" {
		target += "?" + call.RawQuery
	}

	var body io.Reader
	if len(call.Body) > 0 {
		body = bytes.NewReader(call.Body)
	}
	req, err := http.NewRequestWithContext(ctx, call.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	if call.ContentType != "" {
		req.Header.Set("Content-Type", call.ContentType)
	}
	req.Header.Set("Accept", "application/json")
	if call.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+call.Credential)
	}
	if call.RequestID != "" {
		req.Header.Set("X-Request-ID", call.RequestID)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		b.metrics.RecordUpstreamFailure(call.Route)
		b.logger.Warn("backend call failed",
			zap.String("route", call.Route),
			zap.String("method", call.Method),
			zap.String("path", call.Path),
			zap.Bool("timeout", isTimeout(err)),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		b.metrics.RecordUpstreamFailure(call.Route)
		return nil, fmt.Errorf("read backend response: %w", err)
	}

	elapsed := time.Since(start)
	b.metrics.RecordForward(call.Route, resp.StatusCode, elapsed)
	b.logger.Debug("backend call",
		zap.String("route", call.Route),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", elapsed),
	)
	return &Reply{Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: raw}, nil
}

// Ping reports whether the backend answers HTTP at all; any status counts.
func (b *Backend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
