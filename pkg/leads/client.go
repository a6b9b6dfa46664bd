// Package leads submits captured visitor contacts to the backend lead
// endpoint.
package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Juanisegura2025/vocaria-widget/pkg/core"
	"github.com/Juanisegura2025/vocaria-widget/pkg/core/types"
)

const maxLeadBodyBytes = 64 << 10

// Lead is the createLead payload for POST /leads.
type Lead struct {
	Email       string             `json:"email"`
	Phone       string             `json:"phone,omitempty"`
	TourID      string             `json:"tour_id"`
	AgentID     string             `json:"agent_id,omitempty"`
	RoomContext *types.RoomContext `json:"room_context,omitempty"`
	Channel     types.Channel      `json:"channel,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}

// Record is the lead record returned by the backend on 201.
type Record struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	TourID    string    `json:"tour_id"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Client talks to the backend lead endpoint with the widget bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   uint64
	retryBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetries sets the maximum number of retries after the first attempt.
func WithRetries(n uint64) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryBackoff sets the initial backoff between retries.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryBackoff = d
		}
	}
}

// New creates a lead client. baseURL is the widget API root.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:        strings.TrimSpace(token),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		logger:       slog.Default(),
		maxRetries:   2,
		retryBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create submits a lead. Rate limiting (429), server errors and transport
// failures are retried with capped exponential backoff; validation (400)
// and token (401) failures are not.
func (c *Client) Create(ctx context.Context, lead Lead) (*Record, error) {
	if strings.TrimSpace(lead.TourID) == "" {
		return nil, core.NewValidationError("lead tour id must not be empty", "tour_id")
	}

	backoff := retry.WithCappedDuration(5*time.Second, retry.NewExponential(c.retryBackoff))
	backoff = retry.WithMaxRetries(c.maxRetries, backoff)

	var record *Record
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		rec, err := c.create(ctx, lead)
		if err != nil {
			if isRetryable(err) {
				c.logger.Warn("lead submission failed, retrying",
					"tour_id", lead.TourID, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) create(ctx context.Context, lead Lead) (*Record, error) {
	body, err := json.Marshal(lead)
	if err != nil {
		return nil, fmt.Errorf("encode lead: %w", err)
	}

	endpoint := c.baseURL + "/leads"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build lead request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &core.TransportError{Op: http.MethodPost, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxLeadBodyBytes))
	if err != nil {
		return nil, &core.TransportError{Op: http.MethodPost, URL: endpoint, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		var record Record
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, core.NewBackendError("lead endpoint returned invalid JSON", "invalid_response")
		}
		return &record, nil
	case http.StatusBadRequest:
		message, field := decodeValidationError(raw)
		if message == "" {
			message = "lead rejected by backend validation"
		}
		return nil, core.NewValidationError(message, field)
	case http.StatusUnauthorized:
		return nil, core.NewConfigurationError("widget token rejected by lead endpoint")
	case http.StatusTooManyRequests:
		return nil, core.NewBackendError("lead endpoint rate limited the widget", "rate_limited")
	default:
		return nil, core.NewBackendError(
			fmt.Sprintf("lead endpoint returned status %d", resp.StatusCode), "unexpected_status")
	}
}

func isRetryable(err error) bool {
	if core.IsKind(err, core.ErrValidation) || core.IsKind(err, core.ErrConfiguration) {
		return false
	}
	// Rate limits, 5xx and transport failures are all worth another try.
	return true
}

func decodeValidationError(raw []byte) (message, field string) {
	var body struct {
		Error struct {
			Message string `json:"message"`
			Field   string `json:"field"`
		} `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", ""
	}
	if body.Error.Message != "" {
		return strings.TrimSpace(body.Error.Message), strings.TrimSpace(body.Error.Field)
	}
	return strings.TrimSpace(body.Detail), ""
}
