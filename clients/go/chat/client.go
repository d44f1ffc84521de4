// Package chat provides a client for the ledgerchat room API.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/eldtechnologies/ledgerchat/internal/models"
)

// DefaultBaseURL is used when no base URL is given.
const DefaultBaseURL = "http://localhost:8080"

// Client is a ledgerchat API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is returned for any response with status >= 400.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("ledgerchat error %d: %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("ledgerchat error %d: %s", e.StatusCode, e.Message)
}

// doRequest performs an HTTP request and returns the raw body.
// Every request carries a fresh X-Request-ID so failures can be traced in
// server logs.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return respBody, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errResp.Error,
			RequestID:  req.Header.Get("X-Request-ID"),
		}
	}

	return respBody, nil
}

func roomPath(roomID string) string {
	return "/chat/" + url.PathEscape(roomID)
}

// MessagesResponse is the response from reading a room.
type MessagesResponse struct {
	Success  bool             `json:"success"`
	Messages []models.Message `json:"messages"`
	Count    int              `json:"count"`
	Storage  string           `json:"storage"`
}

// GetMessages retrieves a room's full history, oldest first.
func (c *Client) GetMessages(ctx context.Context, roomID string) (*MessagesResponse, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, roomPath(roomID), nil)
	if err != nil {
		return nil, err
	}

	var resp MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PostMessageRequest is the request body for posting a message.
type PostMessageRequest struct {
	SenderID         string          `json:"senderId,omitempty"`
	SenderName       string          `json:"senderName,omitempty"`
	SenderXRPAddress string          `json:"senderXrpAddress,omitempty"`
	Type             string          `json:"type,omitempty"`
	Content          string          `json:"content"`
	Metadata         models.Metadata `json:"metadata,omitempty"`
}

// PostMessageResponse is the response from posting a message.
type PostMessageResponse struct {
	Success       bool           `json:"success"`
	Message       models.Message `json:"message"`
	TotalMessages int            `json:"totalMessages"`
	Storage       string         `json:"storage"`
}

// PostMessage appends a message to a room.
func (c *Client) PostMessage(ctx context.Context, roomID string, req PostMessageRequest) (*PostMessageResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, roomPath(roomID), reqBody)
	if err != nil {
		return nil, err
	}

	var resp PostMessageResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendText posts a plain text message.
func (c *Client) SendText(ctx context.Context, roomID, senderName, content string) (*PostMessageResponse, error) {
	return c.PostMessage(ctx, roomID, PostMessageRequest{
		SenderName: senderName,
		Type:       string(models.TypeText),
		Content:    content,
	})
}

// StatusResponse is the response from the room status probe.
type StatusResponse struct {
	RoomID       string          `json:"roomId"`
	MessageCount int             `json:"messageCount"`
	LastMessage  *models.Message `json:"lastMessage"`
	Storage      string          `json:"storage"`
	KVAvailable  bool            `json:"kvAvailable"`
}

// Status probes a room without reading its history.
func (c *Client) Status(ctx context.Context, roomID string) (*StatusResponse, error) {
	respBody, err := c.doRequest(ctx, http.MethodPatch, roomPath(roomID), nil)
	if err != nil {
		return nil, err
	}

	var resp StatusResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthCheck is one entry of HealthResponse.Checks.
type HealthCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Storage   string                 `json:"storage"`
	Instance  string                 `json:"instance,omitempty"`
	Checks    map[string]HealthCheck `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server health. A degraded server answers 503 with a
// normal body, which is returned without an error.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	var apiErr *APIError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable) {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
