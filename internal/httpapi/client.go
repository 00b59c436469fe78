package httpapi

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

	"github.com/gorilla/websocket"

	"github.com/jmylchreest/toastq/internal/event"
	"github.com/jmylchreest/toastq/internal/model"
)

// APIError is returned for non-2xx responses.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("toastd: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Client calls a running toastd over HTTP.
type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient returns a client for the API at baseURL, e.g.
// "http://127.0.0.1:7821". A nil httpClient uses a 10s timeout client.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: u, http: httpClient}, nil
}

// Show raises a toast and returns its id.
func (c *Client) Show(ctx context.Context, spec model.Spec) (string, error) {
	var resp showResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/toasts", spec, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// SendEvent posts an event envelope and returns the id of the raised toast.
func (c *Client) SendEvent(ctx context.Context, env event.Envelope) (string, error) {
	var resp showResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/events", env, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Dismiss closes one toast.
func (c *Client) Dismiss(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/toasts/"+url.PathEscape(id)+"/dismiss", nil, nil)
}

// DismissAll closes every toast.
func (c *Client) DismissAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/toasts/dismiss", nil, nil)
}

// Remove deletes one toast.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/toasts/"+url.PathEscape(id), nil, nil)
}

// RemoveAll clears the queue.
func (c *Client) RemoveAll(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/toasts", nil, nil)
}

// Update merges patch into one toast.
func (c *Client) Update(ctx context.Context, id string, patch model.Patch) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/toasts/"+url.PathEscape(id), patch, nil)
}

// Snapshot returns the current toasts, newest first.
func (c *Client) Snapshot(ctx context.Context) ([]model.Toast, error) {
	var toasts []model.Toast
	if err := c.do(ctx, http.MethodGet, "/api/v1/toasts", nil, &toasts); err != nil {
		return nil, err
	}
	return toasts, nil
}

// Watch opens the state stream and delivers every state until ctx is
// cancelled or the connection drops. The channel is closed on exit.
func (c *Client) Watch(ctx context.Context) (<-chan []model.Toast, error) {
	wsURL := *c.base
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	wsURL.Path += "/api/v1/stream"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: "stream upgrade refused"}
		}
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	out := make(chan []model.Toast, 1)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var msg StreamMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type != MessageState {
				continue
			}
			toasts := msg.Toasts
			if toasts == nil {
				toasts = []model.Toast{}
			}
			select {
			case out <- toasts:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
