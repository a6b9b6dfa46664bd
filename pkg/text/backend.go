package text

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Juanisegura2025/vocaria-widget/pkg/core"
	"github.com/Juanisegura2025/vocaria-widget/pkg/core/types"
)

const maxReplyBodyBytes = 256 << 10

// Backend routes text-mode replies through the conversation backend, the
// same dialogue service the voice agent uses, so both channels share one
// conversation brain.
type Backend struct {
	baseURL    string
	tourID     string
	token      string
	httpClient *http.Client
}

// BackendOption configures a Backend provider.
type BackendOption func(*Backend)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) BackendOption {
	return func(b *Backend) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// NewBackend creates a backend-routed reply provider. baseURL is the
// widget API root; token is the widget bearer token.
func NewBackend(baseURL, tourID, token string, opts ...BackendOption) *Backend {
	b := &Backend{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		tourID:     strings.TrimSpace(tourID),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type replyRequest struct {
	Message     string             `json:"message"`
	History     []historyEntry     `json:"history,omitempty"`
	RoomContext *types.RoomContext `json:"room_context,omitempty"`
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

type backendErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Reply posts the latest visitor message plus history to the conversation
// endpoint and returns the agent reply.
func (b *Backend) Reply(ctx context.Context, transcript []types.Message, room *types.RoomContext) (string, error) {
	latest := strings.TrimSpace(latestVisitorText(transcript))
	if latest == "" {
		return "", core.NewValidationError("transcript has no visitor message to reply to", "message")
	}

	payload := replyRequest{
		Message:     latest,
		RoomContext: room,
	}
	for _, m := range transcript {
		role := "user"
		if m.Author == types.AuthorAgent {
			role = "assistant"
		}
		payload.History = append(payload.History, historyEntry{Role: role, Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode reply request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/conversations/%s/messages", b.baseURL, b.tourID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", &core.TransportError{Op: http.MethodPost, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBodyBytes))
	if err != nil {
		return "", &core.TransportError{Op: http.MethodPost, URL: endpoint, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var decoded replyResponse
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return "", core.NewBackendError("conversation backend returned invalid JSON", "invalid_response")
		}
		reply := strings.TrimSpace(decoded.Reply)
		if reply == "" {
			return "", core.NewBackendError("conversation backend returned an empty reply", "empty_reply")
		}
		return reply, nil
	case http.StatusUnauthorized:
		return "", core.NewConfigurationError("widget token rejected by conversation backend")
	default:
		code, message := decodeBackendError(raw)
		if message == "" {
			message = fmt.Sprintf("conversation backend returned status %d", resp.StatusCode)
		}
		return "", core.NewBackendError(message, code)
	}
}

func decodeBackendError(raw []byte) (code, message string) {
	var body backendErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", ""
	}
	return strings.TrimSpace(body.Error.Code), strings.TrimSpace(body.Error.Message)
}
