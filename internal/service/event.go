package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/shank50/supportbotai/internal/domain"
)

// recordEvent records a turn trace event to the store.
func (s *Service) recordEvent(ctx context.Context, sessionID string, eventType domain.EventType, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.Event{
		EventID:   "evt_" + uuid.New().String(),
		SessionID: sessionID,
		Ts:        s.now().UnixMilli(),
		Type:      eventType,
		Payload:   payloadBytes,
	}

	return s.store.CreateEvent(ctx, event)
}

// traceEvent records an event and only logs a failure.
func (s *Service) traceEvent(ctx context.Context, sessionID string, eventType domain.EventType, payload interface{}) {
	if err := s.recordEvent(ctx, sessionID, eventType, payload); err != nil {
		s.logger.Warn("failed to record event", "session_id", sessionID, "type", eventType, "error", err)
	}
}

// GetSessionEvents lists the trace events of a session.
func (s *Service) GetSessionEvents(ctx context.Context, sessionID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	if _, err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	events, err := s.store.GetEvents(ctx, sessionID, afterTs, types, limit)
	if err != nil {
		return nil, domain.StorageError("failed to get session events", err)
	}
	return events, nil
}
