// Package domain defines the core domain models for the support service.
package domain

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Valid reports whether s is one of the two known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// EntryKind distinguishes the variants of a timeline entry.
type EntryKind string

const (
	EntryKindMessage    EntryKind = "message"
	EntryKindEscalation EntryKind = "escalation"
)

// EventType represents the type of a turn trace event.
type EventType string

const (
	EventTypeTurnStarted       EventType = "turn_started"
	EventTypeAICallDone        EventType = "ai_call_done"
	EventTypeEscalationCreated EventType = "escalation_created"
	EventTypeEscalationFailed  EventType = "escalation_failed"
	EventTypeTurnFailed        EventType = "turn_failed"
)

// VerdictOutcome records how a verdict was produced.
type VerdictOutcome string

const (
	// VerdictOutcomeOK means the model reply satisfied the output contract.
	VerdictOutcomeOK VerdictOutcome = "ok"
	// VerdictOutcomeUnparseable means the reply had no usable JSON object.
	VerdictOutcomeUnparseable VerdictOutcome = "unparseable"
	// VerdictOutcomeUnavailable means the model call itself failed or timed out.
	VerdictOutcomeUnavailable VerdictOutcome = "unavailable"
)
