package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrScriptExhausted is returned when a ScriptedClient has no replies left.
var ErrScriptExhausted = errors.New("scripted client has no replies left")

// ScriptedStep is one canned outcome of a ScriptedClient.
type ScriptedStep struct {
	Reply string
	Err   error
	// Delay blocks the call until it elapses or ctx is done.
	Delay time.Duration
}

// ScriptedClient replays a fixed sequence of replies. It records every
// prompt it receives. Used by tests that need deterministic model output.
type ScriptedClient struct {
	mu      sync.Mutex
	steps   []ScriptedStep
	prompts []string
	repeat  bool
}

// NewScriptedClient creates a client that answers with steps in order.
func NewScriptedClient(steps ...ScriptedStep) *ScriptedClient {
	return &ScriptedClient{steps: steps}
}

// NewRepeatingClient creates a client that answers every call with reply.
func NewRepeatingClient(reply string) *ScriptedClient {
	return &ScriptedClient{steps: []ScriptedStep{{Reply: reply}}, repeat: true}
}

// Complete returns the next scripted step.
func (s *ScriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	if len(s.steps) == 0 {
		s.mu.Unlock()
		return "", ErrScriptExhausted
	}
	step := s.steps[0]
	if !s.repeat {
		s.steps = s.steps[1:]
	}
	s.mu.Unlock()

	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	if step.Err != nil {
		return "", step.Err
	}
	return step.Reply, nil
}

// Prompts returns the prompts received so far.
func (s *ScriptedClient) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// Calls returns how many times Complete was invoked.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}
