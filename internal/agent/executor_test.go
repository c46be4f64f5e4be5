package agent

import (
	"context"
	"testing"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
	"github.com/Yashkalwar/autonomous-P1/internal/governance"
	"github.com/Yashkalwar/autonomous-P1/internal/observability"
	"github.com/Yashkalwar/autonomous-P1/internal/tools"
)

// captureAgent records the parameters it was dispatched with.
type captureAgent struct {
	tool contracts.ToolType
	got  map[string]any
}

func (c *captureAgent) Type() contracts.ToolType { return c.tool }

func (c *captureAgent) Execute(_ context.Context, action string, parameters map[string]any) contracts.ToolExecution {
	c.got = parameters
	return contracts.ToolExecution{
		ExecutionID: "capture_1",
		ToolType:    c.tool,
		Action:      action,
		Parameters:  parameters,
		Success:     true,
		Result:      map[string]any{},
	}
}

func testExecutor(t *testing.T, registry *tools.Registry) *Executor {
	t.Helper()
	return NewExecutor(registry, governance.NewDefaultPolicyEngine(), offlineClient(), observability.NewLogger(t.TempDir()))
}

func TestExecutor_MissingToolDoesNotAbort(t *testing.T) {
	e := testExecutor(t, tools.NewRegistry())
	plan := &contracts.Plan{
		PlanID: "plan_test",
		Steps: []contracts.TaskStep{{
			StepID:       "step_1",
			ToolRequired: contracts.ToolCalendly,
			Parameters:   map[string]any{"date": "today"},
		}},
	}
	draft := &contracts.Draft{TaskType: contracts.TaskGeneralResponse, Content: map[string]any{}}

	executions := e.ExecuteDraft(context.Background(), draft, plan)
	if len(executions) != 1 {
		t.Fatalf("Expected one execution, got %d", len(executions))
	}
	if executions[0].Success {
		t.Error("Execution against a missing tool must fail")
	}
	if executions[0].Error != "Tool not available" {
		t.Errorf("Expected 'Tool not available', got %q", executions[0].Error)
	}
}

func TestExecutor_DraftContentWinsOnCollision(t *testing.T) {
	capture := &captureAgent{tool: contracts.ToolGmail}
	registry := tools.NewRegistry()
	registry.Register(capture)
	e := testExecutor(t, registry)

	plan := &contracts.Plan{
		PlanID: "plan_test",
		Steps: []contracts.TaskStep{{
			StepID:       "step_1",
			ToolRequired: contracts.ToolGmail,
			Parameters:   map[string]any{"to": "old@co.com", "priority": "low"},
		}},
	}
	draft := &contracts.Draft{
		TaskType: contracts.TaskEmail,
		Content:  map[string]any{"to": "new@co.com", "subject": "Hi", "body": "Hello there, regards"},
	}

	executions := e.ExecuteDraft(context.Background(), draft, plan)
	if !executions[0].Success {
		t.Fatalf("Dispatch failed: %s", executions[0].Error)
	}
	if capture.got["to"] != "new@co.com" {
		t.Errorf("Draft content should win on collision, got %v", capture.got["to"])
	}
	if capture.got["priority"] != "low" {
		t.Errorf("Step-only parameter was lost: %v", capture.got["priority"])
	}
}

func TestExecutor_GeneralStepIsSynthetic(t *testing.T) {
	e := testExecutor(t, tools.NewRegistry())
	plan := &contracts.Plan{
		PlanID:    "plan_test",
		UserQuery: "hello",
		Steps: []contracts.TaskStep{{
			StepID:       "step_1",
			ToolRequired: contracts.ToolGeneral,
			Parameters:   map[string]any{},
		}},
	}
	draft := &contracts.Draft{
		TaskType: contracts.TaskGeneralResponse,
		Content:  map[string]any{"message": "Happy to help."},
	}

	executions := e.ExecuteDraft(context.Background(), draft, plan)
	if !executions[0].Success {
		t.Error("General steps always succeed")
	}
	if executions[0].Result["message"] != "Happy to help." {
		t.Errorf("Expected the draft message, got %v", executions[0].Result["message"])
	}
}

func TestExecutor_PolicyDeniesDispatch(t *testing.T) {
	capture := &captureAgent{tool: contracts.ToolGmail}
	registry := tools.NewRegistry()
	registry.Register(capture)

	gov := governance.NewDefaultPolicyEngine()
	gov.DenyTool(contracts.ToolGmail)
	e := NewExecutor(registry, gov, offlineClient(), observability.NewLogger(t.TempDir()))

	plan := &contracts.Plan{
		PlanID: "plan_test",
		Steps: []contracts.TaskStep{{
			StepID:       "step_1",
			ToolRequired: contracts.ToolGmail,
			Parameters:   map[string]any{"to": "bob@co.com"},
		}},
	}
	draft := &contracts.Draft{TaskType: contracts.TaskEmail, Content: map[string]any{"to": "bob@co.com", "subject": "s", "body": "long enough body"}}

	executions := e.ExecuteDraft(context.Background(), draft, plan)
	if executions[0].Success {
		t.Error("Denied dispatch must fail")
	}
	if capture.got != nil {
		t.Error("Denied dispatch must never reach the tool")
	}
}
