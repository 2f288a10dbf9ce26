// Package relayclient submits messages to a relay's submission endpoint. It is
// what an agent process (or relayctl) uses to reach every connected client.
//
// Submissions are not idempotent, so a request is only retried when the relay
// cannot have broadcast it: the connection was never established, or the
// relay answered 429 or 503. A request that fails after it was sent is
// reported, not repeated.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/aurelio-labs/aiversity/internal/domain"
	"github.com/aurelio-labs/aiversity/internal/platform/retry"
	"github.com/aurelio-labs/aiversity/internal/platform/version"
)

const submitPath = "/api/receive-message"

// StatusError is a non-2xx answer from the relay.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay responded %d: %s", e.Code, e.Body)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
	userAgent  string
}

type Option func(*Client)

// WithRetry overrides the default retry policy.
func WithRetry(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithClock sets the clock used for retry backoff.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.policy.Clock = clock }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  version.UserAgent("relayctl"),
		policy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   200 * time.Millisecond,
			MaxBackoff:       2 * time.Second,
			RateLimitBackoff: 5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.OnRetry == nil {
		c.policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Relay submission failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		}
	}
	return c
}

// Submit broadcasts message through the relay and returns its acknowledgment.
// message must be valid JSON; it is forwarded to subscribers unchanged.
func (c *Client) Submit(ctx context.Context, message json.RawMessage) (domain.SubmitResponse, error) {
	if len(message) > 0 && !json.Valid(message) {
		return domain.SubmitResponse{}, errors.New("message is not valid JSON")
	}

	payload, err := json.Marshal(domain.SubmitRequest{Message: message})
	if err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("failed to encode submission: %w", err)
	}

	resp, err := retry.Do(ctx, c.policy, classify, func(ctx context.Context) (domain.SubmitResponse, error) {
		return c.post(ctx, payload)
	})
	if err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("submit to relay: %w", err)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, payload []byte) (domain.SubmitResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(payload))
	if err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.SubmitResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.SubmitResponse{}, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	var out domain.SubmitResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// classify retries only failures that prove the message was not broadcast.
func classify(err error) retry.Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return retry.Retry
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return retry.Stop
	}

	switch statusErr.Code {
	case http.StatusTooManyRequests:
		return retry.After
	case http.StatusServiceUnavailable:
		return retry.Retry
	default:
		return retry.Stop
	}
}
