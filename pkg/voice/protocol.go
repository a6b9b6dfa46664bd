package voice

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Wire protocol for the conversational-agent websocket. The widget sends
// one conversation_init frame, the relay answers with
// conversation_init_ack (or error) before anything else, then streams
// conversation frames until either side closes.

type clientInit struct {
	Type     string            `json:"type"` // "conversation_init"
	AgentID  string            `json:"agent_id"`
	Language string            `json:"language,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type clientPong struct {
	Type    string `json:"type"` // "pong"
	EventID int64  `json:"event_id"`
}

type serverInitAck struct {
	ConversationID string `json:"conversation_id"`
}

type serverUserTranscript struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

type serverAgentResponse struct {
	Text string `json:"text"`
}

type serverPing struct {
	EventID int64 `json:"event_id"`
}

type serverError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// serverFrame is one decoded server frame. Exactly one payload field is
// set, matching Type.
type serverFrame struct {
	Type string

	InitAck        *serverInitAck
	UserTranscript *serverUserTranscript
	AgentResponse  *serverAgentResponse
	Ping           *serverPing
	Err            *serverError
}

func decodeServerFrame(data []byte) (serverFrame, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return serverFrame{}, fmt.Errorf("decode voice frame envelope: %w", err)
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return serverFrame{}, fmt.Errorf("voice frame missing type")
	}

	frame := serverFrame{Type: typ}
	switch typ {
	case "conversation_init_ack":
		var ack serverInitAck
		if err := json.Unmarshal(data, &ack); err != nil {
			return serverFrame{}, fmt.Errorf("decode conversation_init_ack: %w", err)
		}
		frame.InitAck = &ack
	case "user_transcript":
		var transcript serverUserTranscript
		if err := json.Unmarshal(data, &transcript); err != nil {
			return serverFrame{}, fmt.Errorf("decode user_transcript: %w", err)
		}
		frame.UserTranscript = &transcript
	case "agent_response":
		var response serverAgentResponse
		if err := json.Unmarshal(data, &response); err != nil {
			return serverFrame{}, fmt.Errorf("decode agent_response: %w", err)
		}
		frame.AgentResponse = &response
	case "agent_thinking", "agent_audio_start", "agent_audio_end":
		// Activity frames carry no payload.
	case "ping":
		var ping serverPing
		if err := json.Unmarshal(data, &ping); err != nil {
			return serverFrame{}, fmt.Errorf("decode ping: %w", err)
		}
		frame.Ping = &ping
	case "error":
		var message serverError
		if err := json.Unmarshal(data, &message); err != nil {
			return serverFrame{}, fmt.Errorf("decode error frame: %w", err)
		}
		frame.Err = &message
	default:
		// Unknown frame types are tolerated for forward compatibility.
	}
	return frame, nil
}
