package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/shank50/supportbotai/internal/domain"
	"github.com/shank50/supportbotai/internal/responder"
)

// ProcessTurn runs one chat turn: it stores the user message, asks the
// responder for a verdict, stores the bot reply and, when the policy says
// so, opens an escalation.
//
// Only ErrNotFound, ErrInvalidInput and ErrStorage failures are returned.
// Model failures never are; they surface as an escalating reply. Once the
// bot reply is stored the turn succeeds even if the escalation cannot be
// written; TurnResult.EscalationFailed reports that case. Cancelling ctx
// after the user message is stored does not abandon the turn.
func (s *Service) ProcessTurn(ctx context.Context, sessionID, text string) (*domain.TurnResult, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil, fmt.Errorf("message is required: %w", domain.ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(content); n > s.maxLen {
		return nil, fmt.Errorf("message is %d characters, limit is %d: %w", n, s.maxLen, domain.ErrInvalidInput)
	}

	if _, err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	release, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for session turn: %w", err)
	}
	defer release()

	// Start -> UserPersisted
	userAt := s.now()
	if err := s.store.TouchSession(ctx, sessionID, userAt); err != nil {
		return nil, domain.StorageError("failed to touch session", err)
	}
	userMsg := &domain.Message{
		MessageID: "msg_" + uuid.New().String(),
		SessionID: sessionID,
		Sender:    domain.SenderUser,
		Content:   content,
		CreatedAt: userAt,
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, domain.StorageError("failed to save user message", err)
	}
	// From here on the turn completes even if the caller goes away. The
	// model call is still bounded by the responder timeout.
	ctx = context.WithoutCancel(ctx)
	s.traceEvent(ctx, sessionID, domain.EventTypeTurnStarted, domain.TurnStartedPayload{
		MessageID: userMsg.MessageID,
		Length:    utf8.RuneCountInString(content),
	})

	// UserPersisted -> HistoryLoaded
	history, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		s.turnFailed(ctx, sessionID, "history", err)
		return nil, domain.StorageError("failed to load history", err)
	}

	// HistoryLoaded -> VerdictObtained
	started := time.Now()
	verdict := s.responder.Respond(ctx, responder.HistoryFromMessages(history), content)
	aiDone := domain.AICallDonePayload{
		LatencyMs: time.Since(started).Milliseconds(),
		Outcome:   verdict.Outcome,
		Escalate:  verdict.ShouldEscalate,
	}
	if verdict.MatchedFAQ != nil {
		aiDone.MatchedID = verdict.MatchedFAQ.ID
	}
	s.traceEvent(ctx, sessionID, domain.EventTypeAICallDone, aiDone)

	// VerdictObtained -> BotPersisted
	suggested := verdict.SuggestedActions
	if suggested == nil {
		suggested = []string{}
	}
	botMsg := &domain.Message{
		MessageID: "msg_" + uuid.New().String(),
		SessionID: sessionID,
		Sender:    domain.SenderBot,
		Content:   verdict.Message,
		CreatedAt: s.notBefore(userAt),
		Metadata: &domain.MessageMetadata{
			MatchedFAQ:       verdict.MatchedFAQ,
			SuggestedActions: suggested,
		},
	}
	if err := s.store.AppendMessage(ctx, botMsg); err != nil {
		s.turnFailed(ctx, sessionID, "bot_message", err)
		return nil, domain.StorageError("failed to save bot message", err)
	}

	result := &domain.TurnResult{
		UserMessage:    userMsg,
		BotMessage:     botMsg,
		ShouldEscalate: verdict.ShouldEscalate,
	}

	// BotPersisted -> EscalationPersisted
	if decision := s.policy.Decide(ctx, verdict); decision != nil {
		escalation := &domain.Escalation{
			EscalationID: "esc_" + uuid.New().String(),
			SessionID:    sessionID,
			Reason:       decision.Reason,
			CreatedAt:    s.notBefore(botMsg.CreatedAt),
		}
		if err := s.store.AppendEscalation(ctx, escalation); err != nil {
			s.logger.Error("failed to save escalation", "session_id", sessionID, "reason", decision.Reason, "error", err)
			s.traceEvent(ctx, sessionID, domain.EventTypeEscalationFailed, domain.EscalationPayload{
				Reason: decision.Reason,
				Error:  err.Error(),
			})
			result.EscalationFailed = true
		} else {
			result.Escalation = escalation
			s.traceEvent(ctx, sessionID, domain.EventTypeEscalationCreated, domain.EscalationPayload{
				EscalationID: escalation.EscalationID,
				Reason:       escalation.Reason,
			})
		}
	}

	s.publish(sessionID, result)
	return result, nil
}

// notBefore returns the current time, or t when the clock reads earlier.
func (s *Service) notBefore(t time.Time) time.Time {
	now := s.now()
	if now.Before(t) {
		return t
	}
	return now
}

func (s *Service) turnFailed(ctx context.Context, sessionID, stage string, err error) {
	s.logger.Error("turn failed", "session_id", sessionID, "stage", stage, "error", err)
	s.traceEvent(ctx, sessionID, domain.EventTypeTurnFailed, domain.TurnFailedPayload{
		Stage:   stage,
		Message: err.Error(),
	})
}

func (s *Service) publish(sessionID string, result *domain.TurnResult) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(sessionID, domain.StreamEvent{
		Type:      "turn",
		Ts:        s.now().UnixMilli(),
		SessionID: sessionID,
		Turn:      result,
	})
}
