// Package service implements the conversation engine: sessions, chat turns
// and the snapshot view clients poll.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shank50/supportbotai/internal/domain"
	"github.com/shank50/supportbotai/internal/repository"
)

// DefaultMaxMessageLength is the longest accepted user message, in runes.
const DefaultMaxMessageLength = 4000

// Responder produces a verdict for one turn and conversation summaries.
// Neither method fails; model problems come back as fallback content.
type Responder interface {
	Respond(ctx context.Context, history []domain.HistoryMessage, userMessage string) domain.Verdict
	Summarize(ctx context.Context, messages []domain.Message) string
}

// EscalationPolicy turns a verdict into an escalation decision, or nil.
type EscalationPolicy interface {
	Decide(ctx context.Context, v domain.Verdict) *domain.EscalationDecision
}

// Notifier receives completed turns for live subscribers.
// Publish must not block.
type Notifier interface {
	Publish(sessionID string, event domain.StreamEvent)
}

// Options tunes a Service.
type Options struct {
	MaxMessageLength int
	Logger           *slog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type Service struct {
	store     repository.Store
	responder Responder
	policy    EscalationPolicy
	notifier  Notifier
	locks     *sessionLocks
	maxLen    int
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Service. notifier may be nil.
func New(store repository.Store, responder Responder, policy EscalationPolicy, notifier Notifier, opts Options) *Service {
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = DefaultMaxMessageLength
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:     store,
		responder: responder,
		policy:    policy,
		notifier:  notifier,
		locks:     newSessionLocks(),
		maxLen:    opts.MaxMessageLength,
		logger:    opts.Logger,
		now:       func() time.Time { return opts.Now().UTC() },
	}
}
