package responder

import (
	"strconv"
	"strings"

	"github.com/shank50/supportbotai/internal/domain"
)

const instructions = `IMPORTANT ESCALATION RULES:
- Escalate if the user explicitly asks to speak with a human, agent, or representative
- Escalate if the user expresses strong frustration, anger, or dissatisfaction
- Escalate if the question is too complex or not covered by FAQs
- Escalate if the user mentions legal, compliance, or security concerns
- Escalate if you've provided 2+ responses and the issue isn't resolved

Respond in JSON format:
{
  "message": "Your response to the user (be conversational and helpful)",
  "shouldEscalate": true/false,
  "escalationReason": "Brief reason for escalation (only if shouldEscalate is true)",
  "matchedFAQId": "faq-xxx (if applicable)",
  "suggestedActions": ["action1", "action2"] (optional next steps for user)
}`

// buildPrompt renders the single prompt sent to the model. history must
// already be truncated to the window.
func buildPrompt(faqs []domain.FAQ, history []domain.HistoryMessage, userMessage string) string {
	var b strings.Builder
	b.WriteString("You are an AI customer support assistant. Your goal is to help customers by:\n")
	b.WriteString("1. Matching their questions to relevant FAQs\n")
	b.WriteString("2. Providing clear, helpful responses\n")
	b.WriteString("3. Detecting when escalation to a human agent is needed\n\n")

	b.WriteString("Available FAQs:\n")
	for _, f := range faqs {
		b.WriteString("ID: ")
		b.WriteString(f.ID)
		b.WriteString("\nQ: ")
		b.WriteString(f.Question)
		b.WriteString("\nA: ")
		b.WriteString(f.Answer)
		b.WriteString("\nCategory: ")
		b.WriteString(f.Category)
		b.WriteString("\n\n")
	}

	b.WriteString("Recent conversation:\n")
	for _, h := range history {
		b.WriteString(h.Role)
		b.WriteString(": ")
		b.WriteString(h.Content)
		b.WriteByte('\n')
	}

	// Quoted so that a multi-line message stays on one line.
	b.WriteString("\nCurrent user message: ")
	b.WriteString(strconv.Quote(userMessage))
	b.WriteString("\n\n")
	b.WriteString(instructions)
	return b.String()
}

func buildSummaryPrompt(messages []domain.Message) string {
	var b strings.Builder
	b.WriteString("Summarize this customer support conversation in 2-3 sentences, focusing on the main issue and resolution status:\n\n")
	for _, m := range messages {
		if m.Sender == domain.SenderUser {
			b.WriteString("Customer: ")
		} else {
			b.WriteString("AI Assistant: ")
		}
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	b.WriteString("\nSummary:")
	return b.String()
}

// lastN returns the most recent n history entries. n <= 0 keeps everything.
func lastN(history []domain.HistoryMessage, n int) []domain.HistoryMessage {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// HistoryFromMessages converts stored messages into model roles.
func HistoryFromMessages(messages []domain.Message) []domain.HistoryMessage {
	out := make([]domain.HistoryMessage, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Sender == domain.SenderBot {
			role = "assistant"
		}
		out = append(out, domain.HistoryMessage{Role: role, Content: m.Content})
	}
	return out
}
