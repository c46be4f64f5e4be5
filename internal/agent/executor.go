package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
	"github.com/Yashkalwar/autonomous-P1/internal/governance"
	"github.com/Yashkalwar/autonomous-P1/internal/llm"
	"github.com/Yashkalwar/autonomous-P1/internal/observability"
	"github.com/Yashkalwar/autonomous-P1/internal/tools"
)

// Executor dispatches plan steps to tool collaborators, one ToolExecution
// per step in step order. A failed step never aborts the rest.
type Executor struct {
	registry *tools.Registry
	policy   governance.PolicyEngine
	llm      *llm.Client
	logger   *observability.Logger
}

func NewExecutor(registry *tools.Registry, policy governance.PolicyEngine, client *llm.Client, logger *observability.Logger) *Executor {
	return &Executor{registry: registry, policy: policy, llm: client, logger: logger}
}

// ExecuteDraft runs every step of the plan against the draft's content.
// Draft content wins over step parameters on key collision.
func (e *Executor) ExecuteDraft(ctx context.Context, draft *contracts.Draft, plan *contracts.Plan) []contracts.ToolExecution {
	executions := make([]contracts.ToolExecution, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		executions = append(executions, e.executeStep(ctx, draft, plan, step))
	}
	return executions
}

func (e *Executor) executeStep(ctx context.Context, draft *contracts.Draft, plan *contracts.Plan, step contracts.TaskStep) contracts.ToolExecution {
	action := actionFor(step, draft)

	if step.ToolRequired == contracts.ToolGeneral || action == "general_assistance" {
		return e.generalExecution(ctx, draft, plan)
	}

	agent, ok := e.registry.Get(step.ToolRequired)
	if !ok {
		return contracts.ToolExecution{
			ExecutionID: fmt.Sprintf("%s_%s", step.ToolRequired, time.Now().Format("20060102_150405.000")),
			ToolType:    step.ToolRequired,
			Action:      action,
			Parameters:  step.Parameters,
			Success:     false,
			Error:       "Tool not available",
		}
	}

	merged := mergeParameters(step.Parameters, draft.Content)

	result, err := e.policy.Evaluate(ctx, governance.Request{
		Tool:       step.ToolRequired,
		Action:     action,
		Parameters: merged,
	})
	if err != nil || result.Effect == governance.EffectDeny {
		reason := result.Reason
		if err != nil {
			reason = err.Error()
		}
		e.logger.LogPolicyCheck("", string(step.ToolRequired), false, reason)
		return contracts.ToolExecution{
			ExecutionID: fmt.Sprintf("%s_%s", step.ToolRequired, time.Now().Format("20060102_150405.000")),
			ToolType:    step.ToolRequired,
			Action:      action,
			Parameters:  merged,
			Success:     false,
			Error:       "Blocked by policy: " + reason,
		}
	}

	e.logger.LogToolCall("", plan.PlanID, string(step.ToolRequired), action)
	execution := agent.Execute(ctx, action, merged)
	e.logger.LogToolResult("", plan.PlanID, string(step.ToolRequired), execution.Success, execution.Error)
	return execution
}

// generalExecution never calls a tool; it wraps the draft's message in a
// synthetic successful execution, falling back to a late generation or the
// fixed capability summary.
func (e *Executor) generalExecution(ctx context.Context, draft *contracts.Draft, plan *contracts.Plan) contracts.ToolExecution {
	message := ""
	if draft != nil {
		message = stringValue(draft.Content, "message")
	}
	if message == "" {
		message = e.llm.GenerateGeneral(ctx, plan.UserQuery)
	}
	if message == "" {
		message = capabilityFallback
	}

	return contracts.ToolExecution{
		ExecutionID: fmt.Sprintf("general_%s", time.Now().Format("20060102_150405.000")),
		ToolType:    contracts.ToolGeneral,
		Action:      "general_assistance",
		Parameters:  map[string]any{},
		Success:     true,
		Result:      map[string]any{"message": message},
	}
}

func actionFor(step contracts.TaskStep, draft *contracts.Draft) string {
	if v, ok := step.Parameters["action"].(string); ok && v != "" {
		return v
	}
	if draft != nil {
		if v, ok := draft.Content["action"].(string); ok && v != "" {
			return v
		}
	}
	switch step.ToolRequired {
	case contracts.ToolGmail:
		return "send_email"
	case contracts.ToolPipedrive:
		return "create_contact"
	case contracts.ToolCalendly:
		return "list_available_slots"
	default:
		return "general_assistance"
	}
}

// mergeParameters overlays draft content on step parameters; draft values
// take precedence on collision.
func mergeParameters(stepParams, draftContent map[string]any) map[string]any {
	merged := make(map[string]any, len(stepParams)+len(draftContent))
	for k, v := range stepParams {
		merged[k] = v
	}
	for k, v := range draftContent {
		merged[k] = v
	}
	return merged
}
