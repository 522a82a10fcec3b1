package main

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

	"github.com/gorilla/websocket"

	"github.com/shank50/supportbotai/internal/domain"
)

// Client talks to the supportbot HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// CreateSession starts a new conversation.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var resp domain.CreateSessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", nil, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// Snapshot fetches the current state of a session.
func (c *Client) Snapshot(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(sessionID), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Chat submits one message.
func (c *Client) Chat(ctx context.Context, sessionID, message string) (*domain.TurnResult, error) {
	var result domain.TurnResult
	req := domain.ChatRequest{SessionID: sessionID, Message: message}
	if err := c.do(ctx, http.MethodPost, "/v1/chat", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Summary asks the server to summarize a session.
func (c *Client) Summary(ctx context.Context, sessionID string) (string, error) {
	var resp domain.SummaryResponse
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(sessionID)+"/summary", nil, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr domain.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Follow subscribes to the live stream of a session and calls fn for each
// event until ctx is done or the connection drops.
func (c *Client) Follow(ctx context.Context, sessionID string, fn func(domain.StreamEvent)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/v1/sessions/" + url.PathEscape(sessionID) + "/stream"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		var ev domain.StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		fn(ev)
	}
}
