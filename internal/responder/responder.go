// Package responder turns a conversation turn into a model prompt and the
// model's untrusted output into a verdict. It never returns an error: every
// model failure becomes a fallback verdict that asks for a human.
package responder

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shank50/supportbotai/internal/adapter/llm"
	"github.com/shank50/supportbotai/internal/domain"
	"github.com/shank50/supportbotai/internal/faq"
)

const (
	// DefaultHistoryWindow is how many recent messages the model sees.
	DefaultHistoryWindow = 6
	// DefaultTimeout bounds a single model call.
	DefaultTimeout = 30 * time.Second
)

// Reply texts and escalation reasons used when the model cannot be trusted.
const (
	DefaultMessage = "I'm here to help! Could you provide more details?"

	ParseFailureMessage = "I'm having trouble processing your request right now. Let me connect you with a human agent who can help."
	ParseFailureReason  = "Failed to parse AI response"

	TechnicalErrorMessage = "I apologize, but I'm experiencing technical difficulties. Let me escalate this to a human agent who can assist you better."
	TechnicalErrorReason  = "Technical error in AI processing"
)

// Summary texts.
const (
	NoMessagesSummary = "No messages in this conversation yet."
	SummaryErrorText  = "Unable to generate summary at this time."
	EmptySummaryText  = "Unable to generate summary."
)

// Options tunes a Responder.
type Options struct {
	HistoryWindow int
	Timeout       time.Duration
	Logger        *slog.Logger
}

// Responder calls the model for one turn.
type Responder struct {
	client  llm.Client
	corpus  *faq.Corpus
	window  int
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Responder. Zero options take the package defaults.
func New(client llm.Client, corpus *faq.Corpus, opts Options) *Responder {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Responder{
		client:  client,
		corpus:  corpus,
		window:  opts.HistoryWindow,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// Respond asks the model to answer userMessage given the conversation so
// far. Only the last HistoryWindow entries of history are sent.
func (r *Responder) Respond(ctx context.Context, history []domain.HistoryMessage, userMessage string) domain.Verdict {
	prompt := buildPrompt(r.corpus.All(), lastN(history, r.window), userMessage)

	raw, err := r.complete(ctx, prompt)
	if err != nil {
		r.logger.Warn("AI call failed", "error", err)
		return TechnicalErrorVerdict()
	}

	parsed, err := parseReply(raw)
	if err != nil {
		r.logger.Warn("AI reply is unusable", "error", err, "reply_len", len(raw))
		return ParseFailureVerdict()
	}
	return verdictFrom(parsed, r.corpus.Lookup)
}

// Summarize produces a short summary of messages. Model failures map to
// fixed texts.
func (r *Responder) Summarize(ctx context.Context, messages []domain.Message) string {
	if len(messages) == 0 {
		return NoMessagesSummary
	}

	raw, err := r.complete(ctx, buildSummaryPrompt(messages))
	if err != nil {
		r.logger.Warn("AI summary failed", "error", err)
		return SummaryErrorText
	}
	if s := strings.TrimSpace(raw); s != "" {
		return s
	}
	return EmptySummaryText
}

// complete runs one model call bounded by the responder timeout.
func (r *Responder) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.client.Complete(callCtx, prompt)
	if err == nil && callCtx.Err() != nil {
		// A client that ignores ctx must not leak a late answer.
		err = callCtx.Err()
	}
	return raw, err
}

// ParseFailureVerdict is returned when the model reply has no usable object.
func ParseFailureVerdict() domain.Verdict {
	return domain.Verdict{
		Message:          ParseFailureMessage,
		ShouldEscalate:   true,
		EscalationReason: ParseFailureReason,
		SuggestedActions: []string{},
		Outcome:          domain.VerdictOutcomeUnparseable,
	}
}

// TechnicalErrorVerdict is returned when the model call fails or times out.
func TechnicalErrorVerdict() domain.Verdict {
	return domain.Verdict{
		Message:          TechnicalErrorMessage,
		ShouldEscalate:   true,
		EscalationReason: TechnicalErrorReason,
		SuggestedActions: []string{},
		Outcome:          domain.VerdictOutcomeUnavailable,
	}
}
