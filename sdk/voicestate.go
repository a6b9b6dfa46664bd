package vocaria

// Mode is the active conversation channel. Exactly one mode is active at
// a time.
type Mode string

const (
	ModeText  Mode = "text"
	ModeVoice Mode = "voice"
)

// VoiceState is the live-session lifecycle state. Transitions happen only
// through the table below; anything else is rejected.
type VoiceState string

const (
	VoiceIdle         VoiceState = "idle"
	VoiceConnecting   VoiceState = "connecting"
	VoiceConnected    VoiceState = "connected"
	VoiceListening    VoiceState = "listening"
	VoiceSpeaking     VoiceState = "speaking"
	VoiceDisconnected VoiceState = "disconnected"
	VoiceError        VoiceState = "error"
)

// voiceTransitions is the closed transition table:
//
//	idle → connecting → connected → {listening ⇄ speaking} → disconnected → idle
//
// Any non-terminal state may fail into error; error recovers only to
// idle. Teardown routes every live state through disconnected.
var voiceTransitions = map[VoiceState]map[VoiceState]bool{
	VoiceIdle:         {VoiceConnecting: true, VoiceError: true},
	VoiceConnecting:   {VoiceConnected: true, VoiceDisconnected: true, VoiceError: true},
	VoiceConnected:    {VoiceListening: true, VoiceSpeaking: true, VoiceDisconnected: true, VoiceError: true},
	VoiceListening:    {VoiceSpeaking: true, VoiceDisconnected: true, VoiceError: true},
	VoiceSpeaking:     {VoiceListening: true, VoiceDisconnected: true, VoiceError: true},
	VoiceDisconnected: {VoiceIdle: true, VoiceError: true},
	VoiceError:        {VoiceIdle: true},
}

// CanTransition reports whether the table permits s → to. A same-state
// transition is not in the table; callers treat it as a no-op instead.
func (s VoiceState) CanTransition(to VoiceState) bool {
	return voiceTransitions[s][to]
}
