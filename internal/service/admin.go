package service

import (
	"context"

	"github.com/shank50/supportbotai/internal/domain"
	"github.com/shank50/supportbotai/internal/repository"
)

// ListSessions returns sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	sessions, err := s.store.ListSessions(ctx, limit)
	if err != nil {
		return nil, domain.StorageError("failed to list sessions", err)
	}
	return sessions, nil
}

// ListEscalations returns escalations across all sessions, newest first.
func (s *Service) ListEscalations(ctx context.Context, filter repository.EscalationFilter) ([]domain.Escalation, error) {
	escalations, err := s.store.ListAllEscalations(ctx, filter)
	if err != nil {
		return nil, domain.StorageError("failed to list escalations", err)
	}
	return escalations, nil
}
