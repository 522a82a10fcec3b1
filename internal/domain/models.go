package domain

import (
	"encoding/json"
	"time"
)

// Session represents a support conversation.
type Session struct {
	SessionID      string    `json:"session_id"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Message is a single immutable utterance in a session.
type Message struct {
	MessageID string           `json:"message_id"`
	SessionID string           `json:"session_id"`
	Sender    Sender           `json:"sender"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// MessageMetadata carries the structured parts of a bot reply.
type MessageMetadata struct {
	MatchedFAQ       *FAQ     `json:"matched_faq,omitempty"`
	SuggestedActions []string `json:"suggested_actions"`
}

// Escalation records that a conversation needs a human.
type Escalation struct {
	EscalationID string    `json:"escalation_id"`
	SessionID    string    `json:"session_id"`
	Reason       string    `json:"reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Resolved     bool      `json:"resolved"`
}

// FAQ is one record of the read-only FAQ corpus.
type FAQ struct {
	ID       string   `json:"id" yaml:"id"`
	Question string   `json:"question" yaml:"question"`
	Answer   string   `json:"answer" yaml:"answer"`
	Category string   `json:"category" yaml:"category"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords"`
}

// HistoryMessage is the role/content pair handed to the AI responder.
type HistoryMessage struct {
	Role    string `json:"role"` // user, assistant
	Content string `json:"content"`
}

// Verdict is the structured result of one AI responder call.
type Verdict struct {
	Message          string         `json:"message"`
	ShouldEscalate   bool           `json:"should_escalate"`
	EscalationReason string         `json:"escalation_reason,omitempty"`
	MatchedFAQ       *FAQ           `json:"matched_faq,omitempty"`
	SuggestedActions []string       `json:"suggested_actions"`
	Outcome          VerdictOutcome `json:"outcome"`
}

// EscalationDecision is produced by the escalation policy when a turn must
// be handed to a human.
type EscalationDecision struct {
	Reason string `json:"reason"`
}

// TurnResult is returned after a chat turn completes.
type TurnResult struct {
	UserMessage      *Message    `json:"user_message"`
	BotMessage       *Message    `json:"bot_message"`
	Escalation       *Escalation `json:"escalation"`
	ShouldEscalate   bool        `json:"should_escalate"`
	EscalationFailed bool        `json:"escalation_failed,omitempty"`
}

// TimelineEntry is either a message or an escalation in conversation order.
type TimelineEntry struct {
	Kind       EntryKind   `json:"kind"`
	Timestamp  time.Time   `json:"timestamp"`
	Message    *Message    `json:"message,omitempty"`
	Escalation *Escalation `json:"escalation,omitempty"`
}

// Snapshot is the derived view of a session returned to clients.
type Snapshot struct {
	Session     *Session        `json:"session"`
	Timeline    []TimelineEntry `json:"timeline"`
	Messages    []Message       `json:"messages"`
	Escalations []Escalation    `json:"escalations"`
}

// Event represents a turn trace event.
type Event struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	Ts        int64           `json:"ts"` // Unix milliseconds
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}
