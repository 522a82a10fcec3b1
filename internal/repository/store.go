// Package repository provides the durable conversation store.
package repository

import (
	"context"
	"time"

	"github.com/shank50/supportbotai/internal/domain"
)

// Store defines the interface for conversation persistence.
// Messages and escalations are append-only; only a session's
// last activity time is ever updated.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	TouchSession(ctx context.Context, sessionID string, at time.Time) error
	ListSessions(ctx context.Context, limit int) ([]domain.Session, error)

	// Message operations
	AppendMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error)

	// Escalation operations
	AppendEscalation(ctx context.Context, escalation *domain.Escalation) error
	ListEscalations(ctx context.Context, sessionID string) ([]domain.Escalation, error)
	ListAllEscalations(ctx context.Context, filter EscalationFilter) ([]domain.Escalation, error)

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, sessionID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	// Lifecycle
	Close() error
}

// EscalationFilter narrows ListAllEscalations.
type EscalationFilter struct {
	Resolved *bool
	Limit    int
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
