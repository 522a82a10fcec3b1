package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// MockClient is an offline Client that answers in the reply contract
// without calling any model. It reacts to a few keywords in the current
// user message so that local runs exercise both the answer and the
// escalation paths.
type MockClient struct{}

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var currentMessagePattern = regexp.MustCompile(`(?m)^Current user message: (".*")$`)

type mockReply struct {
	Message          string   `json:"message"`
	ShouldEscalate   bool     `json:"shouldEscalate"`
	EscalationReason string   `json:"escalationReason,omitempty"`
	MatchedFAQID     string   `json:"matchedFAQId,omitempty"`
	SuggestedActions []string `json:"suggestedActions,omitempty"`
}

// Complete returns a canned JSON reply wrapped in a short preamble, the way
// real models tend to answer.
func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if strings.HasPrefix(prompt, "Summarize") {
		return "[MOCK] The customer contacted support and the assistant answered their question.", nil
	}

	reply := m.generateReply(prompt)
	data, err := json.Marshal(reply)
	if err != nil {
		return "", err
	}
	return "[MOCK] Here is my answer:\n" + string(data), nil
}

func (m *MockClient) generateReply(prompt string) mockReply {
	match := currentMessagePattern.FindStringSubmatch(prompt)
	if match == nil {
		return mockReply{Message: "[MOCK] How can I help you today?"}
	}
	text, err := strconv.Unquote(match[1])
	if err != nil {
		text = match[1]
	}
	text = strings.ToLower(text)

	switch {
	case containsAny(text, "human", "agent", "representative", "lawyer", "legal"):
		return mockReply{
			Message:          "I'll connect you with a member of our support team right away.",
			ShouldEscalate:   true,
			EscalationReason: "Customer asked for a human agent",
		}
	case containsAny(text, "password", "reset", "locked out"):
		return mockReply{
			Message:          "You can reset your password from the login page using the \"Forgot password\" link.",
			MatchedFAQID:     "faq-3",
			SuggestedActions: []string{"Open the login page", "Click \"Forgot password\""},
		}
	case containsAny(text, "refund", "money back"):
		return mockReply{
			Message:          "We offer a full refund within 30 days of purchase.",
			MatchedFAQID:     "faq-5",
			SuggestedActions: []string{"Contact billing with your order number"},
		}
	default:
		return mockReply{Message: "[MOCK] Thanks for reaching out. Could you tell me a bit more about the problem?"}
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
