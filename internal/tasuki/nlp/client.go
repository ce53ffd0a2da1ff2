package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bdobrica/Tasuki/common/retry"
)

const (
	// DefaultTimeout bounds each provider HTTP call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxTokens caps the completion length requested from providers.
	DefaultMaxTokens = 1024
)

// Config configures the provider client.
type Config struct {
	// Timeout is the per-call HTTP timeout. Defaults to 30 s. An
	// unresponsive provider must never hold a request open indefinitely.
	Timeout time.Duration

	// MaxAttempts is how many times transport-level failures are retried.
	// HTTP error statuses are never retried. Defaults to 3.
	MaxAttempts int

	// RetryDelay is the initial backoff between attempts. Defaults to
	// 500 ms; the delay doubles per attempt up to 5 s.
	RetryDelay time.Duration
}

// Client executes completion calls against validated endpoints. It is safe
// for concurrent use.
type Client struct {
	httpClient  *http.Client
	maxAttempts int
	retryDelay  time.Duration
}

// NewClient returns a Client with defaults applied.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = retry.DefaultConfig.MaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = retry.DefaultConfig.InitialDelay
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
	}
}

// Complete sends the canonical messages to the endpoint's provider and
// returns the parsed reply. The endpoint must already be canonicalized by
// ValidateAPIURL; the adapter is chosen by classifying it. Caller
// cancellation propagates through ctx.
func (c *Client) Complete(ctx context.Context, endpoint, apiKey, model string, messages []ChatMessage, maxTokens int) (Reply, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	adapter := AdapterFor(Classify(endpoint))
	wire, err := adapter.BuildRequest(endpoint, apiKey, model, messages, maxTokens)
	if err != nil {
		return Reply{}, err
	}

	cfg := retry.Config{
		MaxAttempts:  c.maxAttempts,
		InitialDelay: c.retryDelay,
		MaxDelay:     5 * time.Second,
		ShouldRetry:  IsNetworkError,
	}
	body, err := retry.DoValue(ctx, cfg, func() ([]byte, error) {
		return c.roundTrip(ctx, wire)
	})
	if err != nil {
		return Reply{}, err
	}

	return adapter.ParseReply(body)
}

func (c *Client) roundTrip(ctx context.Context, wire WireRequest) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wire.URL, bytes.NewReader(wire.Body))
	if err != nil {
		return nil, fmt.Errorf("nlp: create http request: %w", err)
	}
	for k, vs := range wire.Header {
		req.Header[k] = vs
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nlp: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nlp: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

// UpstreamError is a non-2xx provider status outside the specifically
// mapped codes. Detail carries the provider's own error text when the body
// had any.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("nlp: provider returned HTTP %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("nlp: provider returned HTTP %d (%s)", e.Status, http.StatusText(e.Status))
}

// statusError maps a provider status code to the sentinel the gateway keys
// its user-facing messages on. Unmapped statuses become an UpstreamError
// carrying the provider's error body text.
func statusError(status int, body []byte) error {
	detail := errorDetail(body)
	wrap := func(sentinel error) error {
		if detail != "" {
			return fmt.Errorf("%w: %s", sentinel, detail)
		}
		return sentinel
	}

	switch status {
	case http.StatusUnauthorized:
		return wrap(ErrInvalidAPIKey)
	case http.StatusTooManyRequests:
		return wrap(ErrRateLimited)
	case http.StatusPaymentRequired:
		return wrap(ErrInsufficientCredits)
	case http.StatusNotFound:
		return wrap(ErrModelNotFound)
	default:
		return &UpstreamError{Status: status, Detail: detail}
	}
}

// errorDetail pulls a human-readable message out of a provider error body.
// Providers disagree on shape: {"error": {"message": ...}} (OpenAI family,
// Google), {"error": "..."} (Ollama), or plain text.
func errorDetail(body []byte) string {
	var wrapped struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &wrapped) == nil && len(wrapped.Error) > 0 {
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(wrapped.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
		var text string
		if json.Unmarshal(wrapped.Error, &text) == nil && text != "" {
			return text
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 300 {
		text = text[:300]
	}
	return text
}

// networkErrorSubstrings are the transport-failure markers used to tell a
// connectivity problem apart from a provider-reported error.
var networkErrorSubstrings = []string{
	"connection refused",
	"no such host",
	"network is unreachable",
	"connection reset",
	"broken pipe",
	"timeout",
	"timed out",
	"tls handshake",
	"eof",
}

// IsNetworkError reports whether err is a transport-level failure rather
// than an HTTP status the provider actually returned. Transport failures
// are retried and surfaced as NetworkErrorMessage.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		return false
	}
	for _, sentinel := range []error{ErrInvalidAPIKey, ErrRateLimited, ErrInsufficientCredits, ErrModelNotFound, ErrEmptyReply} {
		if errors.Is(err, sentinel) {
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range networkErrorSubstrings {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
