package service

import (
	"context"
)

// Summarize returns a short model-written summary of a session. Model
// failures produce a fixed text rather than an error.
func (s *Service) Summarize(ctx context.Context, sessionID string) (string, error) {
	messages, err := s.GetMessages(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return s.responder.Summarize(ctx, messages), nil
}
