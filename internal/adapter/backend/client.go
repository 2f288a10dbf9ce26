// Package backend is the HTTP client for the chat backend: message
// submission on behalf of the user and the workspace file service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aurelio-labs/aiversity/internal/domain"
	"github.com/aurelio-labs/aiversity/internal/platform/version"
)

// ErrUnexpectedStatus is returned for any non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected status from chat backend")

// maxErrorBody bounds how much of a failed response ends up in the error.
const maxErrorBody = 512

type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

var (
	_ domain.ChatBackend = (*Client)(nil)
	_ domain.FileService = (*Client)(nil)
)

// NewClient returns a client for the backend at baseURL. timeout bounds each
// request; zero means no client-side timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  version.UserAgent("chat"),
	}
}

// SubmitChat posts a user message. Success is decided by the status code;
// the user_id in the response is the session identity to adopt.
func (c *Client) SubmitChat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	var resp domain.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat/", nil, req, &resp); err != nil {
		return domain.ChatResponse{}, fmt.Errorf("submit chat: %w", err)
	}
	return resp, nil
}

func (c *Client) FolderContent(ctx context.Context, path string) ([]domain.FolderItem, error) {
	var resp domain.FolderContent
	query := url.Values{"path": {path}}
	if err := c.do(ctx, http.MethodGet, "/folder-content/", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("folder content %q: %w", path, err)
	}
	return resp.Content, nil
}

func (c *Client) FileContent(ctx context.Context, path string) (string, error) {
	var resp domain.FileContent
	query := url.Values{"path": {path}}
	if err := c.do(ctx, http.MethodGet, "/file-content/", query, nil, &resp); err != nil {
		return "", fmt.Errorf("file content %q: %w", path, err)
	}
	return resp.Content, nil
}

func (c *Client) SaveFile(ctx context.Context, req domain.SaveFileRequest) error {
	if err := c.do(ctx, http.MethodPost, "/save-file/", nil, req, nil); err != nil {
		return fmt.Errorf("save file %q: %w", req.Path, err)
	}
	return nil
}

func (c *Client) FileAction(ctx context.Context, req domain.FileActionRequest) error {
	if err := c.do(ctx, http.MethodPost, "/file-action", nil, req, nil); err != nil {
		return fmt.Errorf("file action %s %q: %w", req.Action, req.Path, err)
	}
	return nil
}

// do sends body as JSON (when non-nil) and decodes a 2xx response into out
// (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, bytes.TrimSpace(snippet))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
