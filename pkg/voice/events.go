package voice

// Event is the tagged union streamed by a live voice session handle.
//
// Transcript-bearing kinds (VisitorTranscriptEvent, AgentResponseEvent)
// map to exactly one transcript append; activity kinds map to a pure
// voice-state transition. No event does both.
type Event interface {
	eventType() string
}

// VisitorTranscriptEvent carries a finalized visitor utterance.
type VisitorTranscriptEvent struct {
	Text string
}

func (e VisitorTranscriptEvent) eventType() string { return "visitor_transcript" }

// AgentResponseEvent carries a complete agent reply.
type AgentResponseEvent struct {
	Text string
}

func (e AgentResponseEvent) eventType() string { return "agent_response" }

// AgentThinkingEvent signals the agent is composing a response.
type AgentThinkingEvent struct{}

func (e AgentThinkingEvent) eventType() string { return "agent_thinking" }

// AgentSpeakingStartedEvent signals agent audio playback began.
type AgentSpeakingStartedEvent struct{}

func (e AgentSpeakingStartedEvent) eventType() string { return "agent_speaking_started" }

// AgentSpeakingStoppedEvent signals agent audio playback finished.
type AgentSpeakingStoppedEvent struct{}

func (e AgentSpeakingStoppedEvent) eventType() string { return "agent_speaking_stopped" }
