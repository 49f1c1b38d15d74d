// Package chat is the client SDK for the Sage answer service: session and
// message CRUD over JSON, plus the streaming answer protocol.
//
// Example usage:
//
//	client := chat.NewClient("http://localhost:8080")
//	store := chat.NewStore(client)
//
//	err := store.SendMessage(ctx, "What is a goroutine?")
//	for _, msg := range store.Messages() {
//	    // Render the conversation
//	}
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client talks to the Sage backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no timeout: an answer stream stays open for as
	// long as the server keeps producing fragments. Cancellation comes
	// from the caller's context.
	streamClient *http.Client
	logger       *Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client for non-streaming requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout for non-streaming requests.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithLogger sets the logger. The default logs nothing.
func WithLogger(l *Logger) ClientOption {
	return func(client *Client) {
		client.logger = l
	}
}

// NewClient creates a new client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{},
		logger:       &Logger{level: LevelOff},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// doRequest performs an HTTP request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	rl := c.logger.StartRequest(method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		rl.Error(err)
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		rl.Error(err)
		return err
	}
	rl.Success(resp.StatusCode)

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// CreateSession creates a new session.
func (c *Client) CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error) {
	if req == nil {
		req = &CreateSessionRequest{}
	}
	var result Session
	if err := c.doRequest(ctx, http.MethodPost, "/sessions", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSessions returns all sessions.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var result []Session
	if err := c.doRequest(ctx, http.MethodGet, "/sessions", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// RenameSession updates a session's title, the only structural mutation a
// client may make to a session.
func (c *Client) RenameSession(ctx context.Context, sessionID, title string) (*Session, error) {
	var result Session
	req := &RenameSessionRequest{Title: title}
	if err := c.doRequest(ctx, http.MethodPatch, "/sessions/"+sessionID, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMessages returns the messages of a session in order.
func (c *Client) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var result []Message
	if err := c.doRequest(ctx, http.MethodGet, "/sessions/"+sessionID+"/messages", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitFeedback records a like/dislike verdict on a message. The call is
// fire-and-forget from the conversation's point of view; no return value
// beyond the error is relied upon.
func (c *Client) SubmitFeedback(ctx context.Context, messageID string, fb FeedbackType) error {
	req := &FeedbackRequest{FeedbackType: fb}
	return c.doRequest(ctx, http.MethodPost, "/messages/"+messageID+"/feedback", req, nil)
}

// UploadAttachment uploads a file for a session and returns the
// server-assigned attachment id, which is passed through unmodified in a
// subsequent AskRequest.
func (c *Client) UploadAttachment(ctx context.Context, sessionID, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return "", fmt.Errorf("copy attachment: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	path := "/sessions/" + sessionID + "/attachments"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	rl := c.logger.StartRequest(http.MethodPost, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		rl.Error(err)
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		rl.Error(err)
		return "", err
	}
	rl.Success(resp.StatusCode)

	var result UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return result.AttachmentID, nil
}
