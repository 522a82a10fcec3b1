package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shank50/supportbotai/internal/domain"
	"github.com/shank50/supportbotai/internal/timeline"
)

// CreateSession starts a new conversation.
func (s *Service) CreateSession(ctx context.Context) (*domain.Session, error) {
	now := s.now()
	session := &domain.Session{
		SessionID:      uuid.New().String(),
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, domain.StorageError("failed to create session", err)
	}
	return session, nil
}

// GetSession returns a session or ErrNotFound.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.requireSession(ctx, sessionID)
}

func (s *Service) requireSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required: %w", domain.ErrInvalidInput)
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, domain.StorageError("failed to get session", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return session, nil
}

// GetMessages lists a session's messages in creation order.
func (s *Service) GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if _, err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, domain.StorageError("failed to list messages", err)
	}
	return messages, nil
}

// GetSnapshot reads the current state of a session and merges it into a
// timeline. Nothing is cached; every call re-reads the store.
func (s *Service) GetSnapshot(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	session, err := s.requireSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var (
		messages    []domain.Message
		escalations []domain.Escalation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		messages, err = s.store.ListMessages(gctx, sessionID)
		if err != nil {
			return domain.StorageError("failed to list messages", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		escalations, err = s.store.ListEscalations(gctx, sessionID)
		if err != nil {
			return domain.StorageError("failed to list escalations", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if messages == nil {
		messages = []domain.Message{}
	}
	if escalations == nil {
		escalations = []domain.Escalation{}
	}
	return &domain.Snapshot{
		Session:     session,
		Timeline:    timeline.Entries(messages, escalations),
		Messages:    messages,
		Escalations: escalations,
	}, nil
}
