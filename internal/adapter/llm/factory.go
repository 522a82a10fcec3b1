package llm

import (
	"log/slog"
	"strings"
)

// ModeMock selects the offline mock client.
const ModeMock = "MOCK"

// NewClient creates a client for the configured mode. MOCK returns a
// MockClient; anything else returns an OpenAI-compatible client.
func NewClient(mode string, cfg OpenAIConfig) Client {
	if strings.EqualFold(mode, ModeMock) {
		slog.Info("mode=MOCK detected, using mock LLM client")
		return NewMockClient()
	}
	if cfg.APIKey == "" {
		slog.Warn("no AI API key configured; model calls will fail and every turn will escalate")
	}
	return NewOpenAIClient(cfg)
}
