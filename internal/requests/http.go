// Package requests executes delegated requests in the coordinator.
package requests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/philly/ipcbus/internal/platform/apperror"
	"github.com/philly/ipcbus/internal/platform/eventbus"
	"github.com/philly/ipcbus/internal/platform/logger"
)

// HTTPRequest is the payload a satellite sends to have the coordinator
// perform an HTTP call on its behalf.
type HTTPRequest struct {
	Method  string            `json:"method,omitempty"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

const maxResponseBody = 8 << 20

// HTTPExecutor performs HTTPRequest payloads. The result is the response
// body: JSON bodies are passed through, anything else becomes a JSON
// string. Non-2xx responses fail.
type HTTPExecutor struct {
	client *http.Client
	log    logger.Logger
}

// Config configures the HTTP executor.
type Config struct {
	Timeout time.Duration
}

// NewHTTPExecutor creates an executor with its own client.
func NewHTTPExecutor(cfg Config, log logger.Logger) *HTTPExecutor {
	return NewHTTPExecutorWithClient(&http.Client{Timeout: cfg.Timeout}, log)
}

// NewHTTPExecutorWithClient creates an executor using client.
func NewHTTPExecutorWithClient(client *http.Client, log logger.Logger) *HTTPExecutor {
	return &HTTPExecutor{client: client, log: log}
}

// Execute implements eventbus.Executor.
func (e *HTTPExecutor) Execute(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var req HTTPRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, apperror.ReasonBadPayload, "invalid request payload")
	}
	httpReq, err := req.build(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		e.log.Warn(ctx, "delegated http request failed", "method", httpReq.Method, "url", req.URL, "error", err)
		return nil, apperror.Wrap(err, apperror.CodeUnavailable, apperror.ReasonGeneral, "http request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeUnavailable, apperror.ReasonGeneral, "read response body")
	}

	e.log.Info(ctx, "delegated http request completed",
		"method", httpReq.Method,
		"url", req.URL,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.New(apperror.CodeRemoteFailure, apperror.ReasonUpstreamStatus,
			fmt.Sprintf("upstream responded %s", resp.Status)).
			WithDetails(map[string]any{"status": resp.StatusCode, "body": string(body)})
	}
	return asJSON(body), nil
}

func (r HTTPRequest) build(ctx context.Context) (*http.Request, error) {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	u, err := url.Parse(r.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperror.New(apperror.CodeInvalidArgument, apperror.ReasonBadPayload,
			fmt.Sprintf("invalid request url %q", r.URL))
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for k, v := range r.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, apperror.ReasonBadPayload, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func asJSON(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	s, _ := json.Marshal(string(body))
	return s
}

var _ eventbus.Executor = (*HTTPExecutor)(nil)
