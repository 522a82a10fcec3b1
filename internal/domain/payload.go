package domain

// TurnStartedPayload is the payload for turn_started event.
type TurnStartedPayload struct {
	MessageID string `json:"message_id"`
	Length    int    `json:"length"`
}

// AICallDonePayload is the payload for ai_call_done event.
type AICallDonePayload struct {
	LatencyMs int64          `json:"latency_ms"`
	Outcome   VerdictOutcome `json:"outcome"`
	Escalate  bool           `json:"escalate"`
	MatchedID string         `json:"matched_faq_id,omitempty"`
}

// EscalationPayload is the payload for escalation_created and escalation_failed events.
type EscalationPayload struct {
	EscalationID string `json:"escalation_id,omitempty"`
	Reason       string `json:"reason"`
	Error        string `json:"error,omitempty"`
}

// TurnFailedPayload is the payload for turn_failed event.
type TurnFailedPayload struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// StreamEvent is pushed to websocket subscribers of a session.
type StreamEvent struct {
	Type      string      `json:"type"`
	Ts        int64       `json:"ts"`
	SessionID string      `json:"session_id"`
	Turn      *TurnResult `json:"turn,omitempty"`
}
