package vocaria

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Juanisegura2025/vocaria-widget/pkg/core"
	"github.com/Juanisegura2025/vocaria-widget/pkg/core/types"
	"github.com/Juanisegura2025/vocaria-widget/pkg/leads"
	"github.com/Juanisegura2025/vocaria-widget/pkg/room"
	"github.com/Juanisegura2025/vocaria-widget/pkg/trigger"
	"github.com/Juanisegura2025/vocaria-widget/pkg/voice"
)

// Session is one mounted widget. It owns the single source of truth for
// the conversation: transcript, mode, voice state, room context and the
// lead capture flow. All mutation goes through its methods; Snapshot
// exposes a consistent copy for rendering.
//
// A generation counter increments on every voice start, stop and error.
// Voice events captured before such a boundary carry the old generation
// and are dropped, which is what keeps a stopped session from mutating
// the transcript afterwards.
type Session struct {
	id     string
	client *Client
	rooms  *room.Tracker

	mu              sync.Mutex
	open            bool
	closed          bool
	greeted         bool
	mode            Mode
	voiceState      VoiceState
	generation      uint64
	handle          VoiceHandle
	transcript      []types.Message
	typing          bool
	armed           bool
	leadFormVisible bool
	pendingLead     *leads.Lead
	leadErr         error
	staleDrops      int
	recovery        *time.Timer
	unregister      func()
}

// Snapshot is a consistent copy of the session's renderable state.
type Snapshot struct {
	Open            bool
	Mode            Mode
	VoiceState      VoiceState
	Typing          bool
	LeadFormVisible bool
	LeadPending     bool
	LeadError       error
	ActiveRoom      *types.RoomContext
	Transcript      []types.Message
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// OpenWidget expands the widget. The configured greeting is appended
// once, on first open; it never runs through the lead trigger because a
// synthesized message is not agent intent.
func (s *Session) OpenWidget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.open = true
	if greeting := strings.TrimSpace(s.client.greeting); greeting != "" && !s.greeted {
		s.greeted = true
		s.appendLocked(types.AuthorAgent, types.ChannelText, greeting)
	}
}

// CloseWidget collapses the widget. Any live voice session is torn down
// first; the transcript survives for the next open.
func (s *Session) CloseWidget() {
	s.StopVoice()
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

// Close unmounts the session. Terminal: a closed session ignores every
// later call and event.
func (s *Session) Close() {
	s.StopVoice()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.open = false
	unregister := s.unregister
	s.mu.Unlock()
	if unregister != nil {
		unregister()
	}
	s.client.logger.Debug("widget session closed", "session", s.id)
}

// SendTextMessage appends a visitor message and requests an agent reply
// over the text channel. Whitespace-only input is rejected before any
// state changes. In voice mode the text composer is disabled, so the
// call is a no-op.
func (s *Session) SendTextMessage(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return core.NewValidationError("message must not be empty", "message")
	}

	s.mu.Lock()
	if s.closed || s.mode == ModeVoice {
		s.mu.Unlock()
		return nil
	}
	gen := s.generation
	s.appendLocked(types.AuthorVisitor, types.ChannelText, content)
	s.typing = true
	transcript := s.transcriptLocked()
	activeRoom := s.rooms.Current()
	s.mu.Unlock()

	replyCtx, cancel := context.WithTimeout(ctx, s.client.replyTimeout)
	defer cancel()
	reply, err := s.client.replies.Reply(replyCtx, transcript, activeRoom)

	s.mu.Lock()
	if s.closed || s.generation != gen {
		// The session switched channels or stopped while the reply was
		// in flight; the visitor message stays, the reply does not.
		s.staleDrops++
		s.mu.Unlock()
		return nil
	}
	s.typing = false
	if err != nil {
		s.mu.Unlock()
		s.notifyError(err)
		return err
	}
	msg := s.appendLocked(types.AuthorAgent, types.ChannelText, reply)
	s.evaluateTriggerLocked(msg)
	s.mu.Unlock()
	return nil
}

// StartVoice switches the session to voice mode. Idempotent while a
// connect is pending or a session is live: repeat calls return nil
// without dialing again, so at most one provider session ever exists.
func (s *Session) StartVoice(ctx context.Context) error {
	if s.client.cfg.AgentID == "" {
		err := core.NewConfigurationError("no voice agent configured for this tour")
		s.notifyError(err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	switch s.voiceState {
	case VoiceConnecting, VoiceConnected, VoiceListening, VoiceSpeaking:
		s.mu.Unlock()
		return nil
	case VoiceError, VoiceDisconnected:
		s.stopRecoveryLocked()
		s.transitionLocked(VoiceIdle)
	}
	s.transitionLocked(VoiceConnecting)
	s.mode = ModeVoice
	s.typing = false
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	handle, err := s.client.voice.Connect(ctx, s.client.cfg.AgentID)

	s.mu.Lock()
	if s.closed || s.generation != gen {
		// StopVoice won the race; discard the late connect result.
		s.mu.Unlock()
		if handle != nil {
			_ = handle.Close()
		}
		return nil
	}
	if err != nil {
		s.enterVoiceErrorLocked()
		s.mu.Unlock()
		cerr := asConnectionError(err)
		s.notifyError(cerr)
		return cerr
	}
	s.handle = handle
	s.transitionLocked(VoiceConnected)
	s.mu.Unlock()
	s.client.logger.Debug("voice session connected", "session", s.id, "conversation", handle.ID())
	go s.pumpVoice(handle, gen)
	return nil
}

// StopVoice returns the session to text mode from any voice state.
// Resolves immediately: the state machine settles on idle before the
// provider teardown finishes, and events from the old session are
// rejected by generation.
func (s *Session) StopVoice() {
	s.mu.Lock()
	if s.voiceState == VoiceIdle && s.handle == nil {
		// Already settled in text mode. Returning here keeps the
		// generation stable so an unrelated in-flight text reply is
		// not discarded.
		s.mu.Unlock()
		return
	}
	handle := s.handle
	s.handle = nil
	s.generation++
	s.stopRecoveryLocked()
	switch s.voiceState {
	case VoiceIdle:
	case VoiceError, VoiceDisconnected:
		s.transitionLocked(VoiceIdle)
	default:
		s.transitionLocked(VoiceDisconnected)
		s.transitionLocked(VoiceIdle)
	}
	s.mode = ModeText
	s.typing = false
	s.mu.Unlock()

	if handle != nil {
		_ = handle.Close()
	}
}

// UpdateRoom records the visitor's new room. It affects only messages
// appended from now on.
func (s *Session) UpdateRoom(rc types.RoomContext) {
	s.rooms.Set(rc)
}

// ClearRoom forgets the current room.
func (s *Session) ClearRoom() {
	s.rooms.Clear()
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcriptLocked()
}

// Snapshot returns a consistent copy of the renderable session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Open:            s.open,
		Mode:            s.mode,
		VoiceState:      s.voiceState,
		Typing:          s.typing,
		LeadFormVisible: s.leadFormVisible,
		LeadPending:     s.pendingLead != nil,
		LeadError:       s.leadErr,
		ActiveRoom:      s.rooms.Current(),
		Transcript:      s.transcriptLocked(),
	}
}

// pumpVoice drains the handle's event stream, then settles the state
// machine when the stream ends. Everything is guarded by generation so a
// stream that outlives its session cannot mutate anything.
func (s *Session) pumpVoice(h VoiceHandle, gen uint64) {
	for ev := range h.Events() {
		s.handleVoiceEvent(h, gen, ev)
	}
	err := h.Err()

	s.mu.Lock()
	if s.closed || s.handle != h || s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.handle = nil
	if err != nil {
		s.enterVoiceErrorLocked()
		s.mu.Unlock()
		s.notifyError(asConnectionError(err))
		return
	}
	// Remote ended the session cleanly.
	s.transitionLocked(VoiceDisconnected)
	s.transitionLocked(VoiceIdle)
	s.mode = ModeText
	s.typing = false
	s.generation++
	s.mu.Unlock()
}

func (s *Session) handleVoiceEvent(h VoiceHandle, gen uint64, ev voice.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.handle != h || s.generation != gen {
		s.staleDrops++
		s.client.logger.Debug("dropping stale voice event", "session", s.id)
		return
	}

	switch e := ev.(type) {
	case voice.VisitorTranscriptEvent:
		s.appendLocked(types.AuthorVisitor, types.ChannelVoice, e.Text)
	case voice.AgentResponseEvent:
		s.typing = false
		msg := s.appendLocked(types.AuthorAgent, types.ChannelVoice, e.Text)
		s.evaluateTriggerLocked(msg)
	case voice.AgentThinkingEvent:
		s.typing = true
		s.transitionLocked(VoiceListening)
	case voice.AgentSpeakingStartedEvent:
		s.typing = false
		s.transitionLocked(VoiceSpeaking)
	case voice.AgentSpeakingStoppedEvent:
		s.transitionLocked(VoiceListening)
	}
}

// appendLocked appends one message with the current room snapshot
// attached. Caller holds s.mu.
func (s *Session) appendLocked(author types.Author, channel types.Channel, content string) types.Message {
	msg := types.Message{
		ID:          uuid.NewString(),
		Content:     content,
		Author:      author,
		Channel:     channel,
		Timestamp:   time.Now().UTC(),
		RoomContext: s.rooms.Current(),
	}
	s.transcript = append(s.transcript, msg)
	return msg
}

func (s *Session) transcriptLocked() []types.Message {
	out := make([]types.Message, len(s.transcript))
	for i, m := range s.transcript {
		out[i] = m.Clone()
	}
	return out
}

// transitionLocked applies one state transition. Same-state is a no-op;
// a move outside the table is rejected and logged, never applied.
func (s *Session) transitionLocked(to VoiceState) {
	from := s.voiceState
	if from == to {
		return
	}
	if !from.CanTransition(to) {
		s.client.logger.Warn("rejected voice state transition",
			"session", s.id, "from", string(from), "to", string(to))
		return
	}
	s.voiceState = to
}

// enterVoiceErrorLocked moves to the error state, falls back to text
// mode and schedules the fixed-delay recovery to idle. Caller holds
// s.mu.
func (s *Session) enterVoiceErrorLocked() {
	s.transitionLocked(VoiceError)
	s.mode = ModeText
	s.typing = false
	s.generation++
	gen := s.generation
	s.stopRecoveryLocked()
	s.recovery = time.AfterFunc(s.client.recoveryDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.generation != gen || s.voiceState != VoiceError {
			return
		}
		s.transitionLocked(VoiceIdle)
	})
}

func (s *Session) stopRecoveryLocked() {
	if s.recovery != nil {
		s.recovery.Stop()
		s.recovery = nil
	}
}

// evaluateTriggerLocked runs the lead trigger for a just-appended agent
// message. Fires at most once per armed cycle and never while the form
// is already visible. Caller holds s.mu.
func (s *Session) evaluateTriggerLocked(msg types.Message) bool {
	if !s.armed || s.leadFormVisible || msg.Author != types.AuthorAgent {
		return false
	}
	decision := s.client.engine.Evaluate(trigger.View{
		LatestAgentText: msg.Content,
		VisitorTurns:    s.visitorTurnsLocked(),
	})
	if !decision.Fire {
		return false
	}
	s.leadFormVisible = true
	s.armed = false
	s.client.logger.Debug("lead form triggered",
		"session", s.id, "reason", string(decision.Reason), "keyword", decision.Keyword)
	return true
}

func (s *Session) visitorTurnsLocked() int {
	n := 0
	for _, m := range s.transcript {
		if m.Author == types.AuthorVisitor {
			n++
		}
	}
	return n
}

func (s *Session) notifyError(err error) {
	if err == nil {
		return
	}
	if s.client.onError != nil {
		s.client.onError(err)
	}
}

// asConnectionError keeps typed widget errors intact and folds raw
// transport failures into the connection kind.
func asConnectionError(err error) error {
	var werr *core.Error
	if errors.As(err, &werr) {
		return err
	}
	return core.NewConnectionError(fmt.Sprintf("voice session failed: %v", err))
}
