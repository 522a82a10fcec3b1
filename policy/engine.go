// Package policy decides whether a verdict opens an escalation and with
// which reason. The rules live in a rego module evaluated by OPA.
package policy

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/open-policy-agent/opa/rego"

	"github.com/shank50/supportbotai/internal/domain"
)

// DefaultReason is used when an escalating verdict carries no reason.
const DefaultReason = "User requested human assistance"

//go:embed escalation.rego
var DefaultPolicy string

// Engine is the OPA escalation policy engine.
type Engine struct {
	query  rego.PreparedEvalQuery
	logger *slog.Logger
}

// NewEngine prepares policyContent for evaluation. An empty policyContent
// uses DefaultPolicy.
func NewEngine(ctx context.Context, policyContent string, logger *slog.Logger) (*Engine, error) {
	if policyContent == "" {
		policyContent = DefaultPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := rego.New(
		rego.Query("data.escalation_policy.decision"),
		rego.Module("escalation.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query, logger: logger}, nil
}

// Decide returns an escalation decision when v asks for one, nil otherwise.
// Whether to escalate always follows v.ShouldEscalate; the policy only
// shapes the reason. Evaluation problems fall back to the built-in rule.
func (e *Engine) Decide(ctx context.Context, v domain.Verdict) *domain.EscalationDecision {
	if !v.ShouldEscalate {
		return nil
	}

	reason, err := e.evaluate(ctx, v)
	if err != nil {
		e.logger.Warn("escalation policy evaluation failed, using default rule", "error", err)
		return Fallback(v)
	}
	return &domain.EscalationDecision{Reason: reason}
}

func (e *Engine) evaluate(ctx context.Context, v domain.Verdict) (string, error) {
	input := map[string]interface{}{
		"should_escalate":   v.ShouldEscalate,
		"escalation_reason": v.EscalationReason,
		"outcome":           string(v.Outcome),
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "", fmt.Errorf("policy produced no decision")
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected decision type %T", results[0].Expressions[0].Value)
	}
	if escalate, _ := obj["escalate"].(bool); !escalate {
		return "", fmt.Errorf("policy declined an escalating verdict")
	}
	reason, _ := obj["reason"].(string)
	if strings.TrimSpace(reason) == "" {
		return "", fmt.Errorf("policy returned an empty reason")
	}
	return reason, nil
}

// Fallback applies the escalation rule without OPA.
func Fallback(v domain.Verdict) *domain.EscalationDecision {
	if !v.ShouldEscalate {
		return nil
	}
	reason := strings.TrimSpace(v.EscalationReason)
	if reason == "" {
		reason = DefaultReason
	}
	return &domain.EscalationDecision{Reason: reason}
}
