package domain

type CallState string

const (
	StateIdle          CallState = "IDLE"
	StateRinging       CallState = "RINGING"
	StateConnecting    CallState = "CONNECTING"
	StateUserSpeaking  CallState = "USER_SPEAKING"
	StateAgentSpeaking CallState = "AGENT_SPEAKING"
	StateConversation  CallState = "CONVERSATION"
	StateEnded         CallState = "ENDED"
)

// Active reports whether a call attempt is in progress and owns resources.
func (s CallState) Active() bool {
	switch s {
	case StateConnecting, StateUserSpeaking, StateAgentSpeaking, StateConversation:
		return true
	}
	return false
}

// Connected reports whether the control channel has opened for the current call.
func (s CallState) Connected() bool {
	switch s {
	case StateUserSpeaking, StateAgentSpeaking, StateConversation:
		return true
	}
	return false
}

type CallSnapshot struct {
	SessionID     SessionID
	State         CallState
	Error         string
	AgentSpeaking bool
}

type CallEventType string

const (
	EventCallState  CallEventType = "call_state"
	EventTranscript CallEventType = "transcript"
)

// CallEvent is pushed to UI clients whenever the call changes.
type CallEvent struct {
	Type       CallEventType
	Snapshot   CallSnapshot
	Transcript string
}

func NewStateEvent(snap CallSnapshot) CallEvent {
	return CallEvent{Type: EventCallState, Snapshot: snap}
}

func NewTranscriptEvent(snap CallSnapshot, text string) CallEvent {
	return CallEvent{Type: EventTranscript, Snapshot: snap, Transcript: text}
}
