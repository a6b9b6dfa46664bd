// Package voice bridges the widget to a live conversational-agent
// session over a websocket.
//
// The adapter opens one session per Connect call and streams a small
// tagged-union event set from it. It never auto-retries a failed
// connect: retry policy belongs to the session controller, which is what
// prevents duplicate concurrent sessions.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Juanisegura2025/vocaria-widget/pkg/core"
)

const (
	defaultConnectTimeout = 15 * time.Second

	// Default voice relay. The relay holds the provider credentials and
	// proxies the agent session; the widget authenticates with its
	// bearer token.
	defaultVoiceWSURL = "wss://widget.vocaria.app/v1/voice"
)

// Adapter dials live voice sessions.
type Adapter struct {
	baseURL        string
	language       string
	token          string
	connectTimeout time.Duration
	dialer         *websocket.Dialer
	logger         *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithURL overrides the voice relay websocket URL.
func WithURL(raw string) Option {
	return func(a *Adapter) {
		if strings.TrimSpace(raw) != "" {
			a.baseURL = strings.TrimSpace(raw)
		}
	}
}

// WithLanguage sets the conversation language sent at init.
func WithLanguage(language string) Option {
	return func(a *Adapter) {
		a.language = strings.TrimSpace(language)
	}
}

// WithToken sets the widget bearer token.
func WithToken(token string) Option {
	return func(a *Adapter) {
		a.token = strings.TrimSpace(token)
	}
}

// WithConnectTimeout bounds how long Connect may wait before failing.
func WithConnectTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.connectTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdapter creates an adapter.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{
		baseURL:        defaultVoiceWSURL,
		connectTimeout: defaultConnectTimeout,
		dialer:         websocket.DefaultDialer,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.dialer == nil {
		a.dialer = &websocket.Dialer{}
	}
	return a
}

// Connect opens a live session for the given agent. It fails within the
// configured bound instead of hanging, and performs no retries of its
// own. The returned handle is live once the relay acknowledges the init
// frame.
func (a *Adapter) Connect(ctx context.Context, agentID string) (*Handle, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, core.NewConfigurationError("voice agent id must not be empty")
	}

	wsURL, err := a.sessionURL(agentID)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	if a.token != "" {
		headers.Set("Authorization", "Bearer "+a.token)
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, a.connectTimeout)
		defer cancel()
	}

	conn, resp, err := a.dialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, &core.TransportError{Op: "GET", URL: wsURL, Err: fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)}
		}
		return nil, &core.TransportError{Op: "GET", URL: wsURL, Err: err}
	}

	init := clientInit{
		Type:     "conversation_init",
		AgentID:  agentID,
		Language: a.language,
	}
	if err := conn.WriteJSON(init); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send conversation_init: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(a.connectTimeout))
	messageType, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, core.NewConnectionError(fmt.Sprintf("read conversation_init_ack: %v", err))
	}
	_ = conn.SetReadDeadline(time.Time{})
	if messageType != websocket.TextMessage {
		_ = conn.Close()
		return nil, core.NewConnectionError(fmt.Sprintf("unexpected first voice frame type %d", messageType))
	}

	frame, err := decodeServerFrame(payload)
	if err != nil {
		_ = conn.Close()
		return nil, core.NewConnectionError(err.Error())
	}
	switch frame.Type {
	case "conversation_init_ack":
		handle := &Handle{
			id:     strings.TrimSpace(frame.InitAck.ConversationID),
			conn:   conn,
			events: make(chan Event, 256),
			done:   make(chan struct{}),
			logger: a.logger,
		}
		go handle.readLoop()
		return handle, nil
	case "error":
		_ = conn.Close()
		return nil, &core.Error{
			Kind:    core.ErrConnection,
			Message: strings.TrimSpace(frame.Err.Message),
			Code:    strings.TrimSpace(frame.Err.Code),
		}
	default:
		_ = conn.Close()
		return nil, core.NewConnectionError(fmt.Sprintf("unexpected first voice frame %q", frame.Type))
	}
}

func (a *Adapter) sessionURL(agentID string) (string, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", core.NewConfigurationError("invalid voice relay URL")
	}
	switch strings.ToLower(strings.TrimSpace(u.Scheme)) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", core.NewConfigurationError("voice relay URL must use http(s) or ws(s)")
	}
	q := u.Query()
	q.Set("agent_id", agentID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Handle is one live voice session. It is owned by the adapter's caller
// and carries the session identity used to reject late events after
// teardown.
type Handle struct {
	id   string
	conn *websocket.Conn

	events chan Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error

	logger *slog.Logger
}

// ID returns the provider conversation id for this session.
func (h *Handle) ID() string {
	if h == nil {
		return ""
	}
	return h.id
}

// Events yields session events in arrival order. The channel closes when
// the session ends.
func (h *Handle) Events() <-chan Event {
	if h == nil {
		return nil
	}
	return h.events
}

// Close tears the session down. Idempotent and safe from any state.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.writeMu.Lock()
		_ = h.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		h.writeMu.Unlock()
		_ = h.conn.Close()
	})
	<-h.done
	return nil
}

// Err returns the terminal session error, if any. It blocks until the
// session ends.
func (h *Handle) Err() error {
	if h == nil {
		return nil
	}
	<-h.done
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.err
}

func (h *Handle) setErr(err error) {
	if err == nil {
		return
	}
	h.errMu.Lock()
	defer h.errMu.Unlock()
	if h.err == nil {
		h.err = err
	}
}

func (h *Handle) readLoop() {
	defer close(h.done)
	defer close(h.events)

	for {
		messageType, data, err := h.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || h.closed.Load() {
				return
			}
			h.setErr(err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		frame, err := decodeServerFrame(data)
		if err != nil {
			h.setErr(err)
			return
		}

		switch frame.Type {
		case "user_transcript":
			// Interim partial transcripts may arrive blank; only
			// finalized, non-empty text becomes a transcript event.
			text := strings.TrimSpace(frame.UserTranscript.Text)
			if !frame.UserTranscript.IsFinal || text == "" {
				continue
			}
			h.emit(VisitorTranscriptEvent{Text: text})
		case "agent_response":
			text := strings.TrimSpace(frame.AgentResponse.Text)
			if text == "" {
				continue
			}
			h.emit(AgentResponseEvent{Text: text})
		case "agent_thinking":
			h.emit(AgentThinkingEvent{})
		case "agent_audio_start":
			h.emit(AgentSpeakingStartedEvent{})
		case "agent_audio_end":
			h.emit(AgentSpeakingStoppedEvent{})
		case "ping":
			_ = h.sendJSON(clientPong{Type: "pong", EventID: frame.Ping.EventID})
		case "error":
			h.setErr(&core.Error{
				Kind:    core.ErrConnection,
				Message: strings.TrimSpace(frame.Err.Message),
				Code:    strings.TrimSpace(frame.Err.Code),
			})
			return
		default:
			h.logger.Debug("ignoring unknown voice frame", "type", frame.Type)
		}
	}
}

func (h *Handle) emit(event Event) {
	select {
	case h.events <- event:
	default:
		// Avoid deadlocking the read loop if the consumer stalls.
		h.logger.Warn("dropping voice event on slow consumer", "type", event.eventType())
	}
}

func (h *Handle) sendJSON(v any) error {
	if h.closed.Load() {
		return fmt.Errorf("voice session is closed")
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	_ = h.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return h.conn.WriteJSON(v)
}
