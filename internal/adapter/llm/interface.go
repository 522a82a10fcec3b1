// Package llm provides an abstraction for text-generation clients.
package llm

import "context"

// Client sends one text prompt to a model and returns its raw completion.
// Implementations must honor ctx cancellation; the caller bounds the call
// with a deadline.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Ensure clients implement Client interface.
var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*MockClient)(nil)
	_ Client = (*ScriptedClient)(nil)
)
