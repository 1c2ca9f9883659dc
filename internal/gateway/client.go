package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/notification-inbox/internal/model"
)

// TokenSource supplies short-lived bearer credentials.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Client is a thin HTTP client for the notification REST API.
// It handles Bearer token authentication, JSON marshaling, and
// automatic retry with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	maxRetries int
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMaxRetries sets how many times a rate-limited request is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. http://localhost:5000/api).
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// markRequest is the body of POST /notification/read.
type markRequest struct {
	NotificationIDs []string `json:"notificationIds,omitempty"`
	MarkAll         bool     `json:"markAll,omitempty"`
	IsRead          bool     `json:"isRead"`
}

// errorBody is the shape of non-2xx responses.
type errorBody struct {
	Message string `json:"message"`
}

// statusError carries a non-2xx status before it is mapped onto a
// FetchError or CommandError.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.message)
}

// Fetch returns the principal's current notification snapshot.
func (c *Client) Fetch(ctx context.Context, principalID string) ([]model.Notification, error) {
	var records []model.Notification
	path := "/notification/" + url.PathEscape(principalID)
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, toFetchError(err)
	}
	if records == nil {
		records = []model.Notification{}
	}
	return records, nil
}

// MarkRead sets the read flag on the given notifications.
func (c *Client) MarkRead(ctx context.Context, ids []string, isRead bool) error {
	if len(ids) == 0 {
		return nil
	}
	body := markRequest{NotificationIDs: ids, IsRead: isRead}
	if err := c.do(ctx, http.MethodPost, "/notification/read", body, nil); err != nil {
		return toCommandError(markOp(isRead), err)
	}
	return nil
}

// MarkAll sets the read flag on every notification of the signed-in
// principal.
func (c *Client) MarkAll(ctx context.Context, isRead bool) error {
	body := markRequest{MarkAll: true, IsRead: isRead}
	if err := c.do(ctx, http.MethodPost, "/notification/read", body, nil); err != nil {
		op := "mark all as read"
		if !isRead {
			op = "mark all as unread"
		}
		return toCommandError(op, err)
	}
	return nil
}

// Delete removes a notification on the server.
func (c *Client) Delete(ctx context.Context, id string) error {
	path := "/notification/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return toCommandError("delete notification", err)
	}
	return nil
}

func markOp(isRead bool) string {
	if isRead {
		return "mark as read"
	}
	return "mark as unread"
}

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and JSON (de)serialization.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		if IsAuthError(err) {
			return err
		}
		return &AuthError{Message: err.Error()}
	}
	if token == "" {
		return &AuthError{Message: "not signed in"}
	}

	var data []byte
	if body != nil {
		data, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
	}

	requestID := uuid.NewString()
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if data != nil {
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		c.logger.Debug("api request",
			"method", method, "path", path,
			"status", resp.StatusCode, "request_id", requestID,
		)

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &statusError{code: resp.StatusCode, message: "rate limited"}
			if attempt == c.maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return &AuthError{
				StatusCode: resp.StatusCode,
				Message:    responseMessage(respBody, "authentication required"),
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &statusError{
				code:    resp.StatusCode,
				message: responseMessage(respBody, http.StatusText(resp.StatusCode)),
			}
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}

		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// responseMessage extracts {message} from an error body, falling back to
// the given text.
func responseMessage(body []byte, fallback string) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
		return eb.Message
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 200 {
		return s
	}
	return fallback
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

func toFetchError(err error) error {
	fe := &FetchError{Message: err.Error(), Err: err}
	var se *statusError
	var ae *AuthError
	switch {
	case errors.As(err, &se):
		fe.StatusCode = se.code
		fe.Message = se.message
	case errors.As(err, &ae):
		fe.StatusCode = ae.StatusCode
		fe.Message = ae.Message
	}
	return fe
}

func toCommandError(op string, err error) error {
	ce := &CommandError{Op: op, Message: err.Error(), Err: err}
	var se *statusError
	var ae *AuthError
	switch {
	case errors.As(err, &se):
		ce.StatusCode = se.code
		ce.Message = se.message
	case errors.As(err, &ae):
		ce.StatusCode = ae.StatusCode
		ce.Message = ae.Message
	}
	return ce
}
