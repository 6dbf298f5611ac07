// Package rest is the consumer-side client for the message CRUD API. The
// live synchronization layer only reconciles locally after one of these
// calls has confirmed the outcome.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"boardchat/client/internal/models"
)

// APIError represents a non-2xx response from the message API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("message api error: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("message api error: %s (%d)", e.Code, e.Status)
	}
	if e.Message != "" {
		return fmt.Sprintf("message api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("message api error (%d)", e.Status)
}

type apiErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client talks to the message REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs a message API client.
func NewClient(baseURL, token string) (*Client, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: normalized,
		token:   token,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

// NormalizeBaseURL normalizes an API base URL and ensures it has a scheme.
func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("api url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("api url must include scheme (https://)")
	}
	value = strings.TrimRight(value, "/")
	return value, nil
}

// PageResponse is the raw paginated list response. Messages are kept as
// raw JSON so the caller can route each one through the wire normalizer.
type PageResponse struct {
	Messages   []json.RawMessage `json:"messages"`
	Pagination models.Pagination `json:"pagination"`
}

// FetchMessages loads one page of a channel's messages.
func (c *Client) FetchMessages(ctx context.Context, channelID string, page, limit int) (PageResponse, error) {
	var resp PageResponse
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	path := "/api/channels/" + url.PathEscape(channelID) + "/messages"
	if err := c.doJSON(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return PageResponse{}, err
	}
	return resp, nil
}

// SendMessageRequest is the body for message creation. The idempotency key
// is generated per call so a retried send cannot create two messages.
type SendMessageRequest struct {
	Text             string   `json:"text"`
	ReplyToID        string   `json:"replyToId,omitempty"`
	MentionedUserIDs []string `json:"mentionedUserIds,omitempty"`
	IdempotencyKey   string   `json:"idempotencyKey"`
}

// SendMessage creates a message in a channel and returns the server's raw
// message payload.
func (c *Client) SendMessage(ctx context.Context, channelID, text, replyToID string, mentions []string) (json.RawMessage, error) {
	req := SendMessageRequest{
		Text:             text,
		ReplyToID:        replyToID,
		MentionedUserIDs: mentions,
		IdempotencyKey:   uuid.NewString(),
	}
	var resp json.RawMessage
	path := "/api/channels/" + url.PathEscape(channelID) + "/messages"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// EditMessage updates a message's text and returns the server's raw
// message payload.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, text string) (json.RawMessage, error) {
	req := struct {
		Text string `json:"text"`
	}{Text: text}
	var resp json.RawMessage
	path := "/api/channels/" + url.PathEscape(channelID) + "/messages/" + url.PathEscape(messageID)
	if err := c.doJSON(ctx, http.MethodPatch, path, nil, req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	path := "/api/channels/" + url.PathEscape(channelID) + "/messages/" + url.PathEscape(messageID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody any, respBody any) error {
	endpoint, err := c.buildURL(path, query)
	if err != nil {
		return err
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload apiErrorPayload
		if err := json.Unmarshal(respData, &payload); err == nil {
			apiErr.Code = payload.Error
			apiErr.Message = payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(respData))
		}
		return apiErr
	}

	if respBody == nil {
		return nil
	}
	if len(respData) == 0 {
		return nil
	}
	return json.Unmarshal(respData, respBody)
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	endpoint := base.ResolveReference(ref)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String(), nil
}
