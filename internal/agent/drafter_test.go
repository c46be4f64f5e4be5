package agent

import (
	"context"
	"reflect"
	"testing"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

func TestDrafter_CRMRoundTrip(t *testing.T) {
	// A create_contact step with just name and email produces exactly
	// that content plus the normalized action.
	d := NewDrafter(offlineClient())
	plan := crmPlan(map[string]any{"name": "Jane Doe", "email": "jane@example.com"})
	plan.IsComplete = true

	draft, err := d.GenerateDraft(context.Background(), plan)
	if err != nil {
		t.Fatalf("GenerateDraft failed: %v", err)
	}
	if draft.TaskType != contracts.TaskCRMContact {
		t.Errorf("Expected crm_contact, got %s", draft.TaskType)
	}

	want := map[string]any{"name": "Jane Doe", "email": "jane@example.com", "action": "create_contact"}
	if !reflect.DeepEqual(draft.Content, want) {
		t.Errorf("Content mismatch:\n got %v\nwant %v", draft.Content, want)
	}
}

func TestDrafter_TaskTypeMajority(t *testing.T) {
	plan := &contracts.Plan{
		PlanID: "plan_test",
		Steps: []contracts.TaskStep{
			{ToolRequired: contracts.ToolGmail},
			{ToolRequired: contracts.ToolPipedrive},
			{ToolRequired: contracts.ToolPipedrive},
		},
	}
	if got := taskTypeFor(plan); got != contracts.TaskCRMContact {
		t.Errorf("Expected crm_contact majority, got %s", got)
	}

	// Tie: first tool to reach the max count wins.
	tie := &contracts.Plan{
		Steps: []contracts.TaskStep{
			{ToolRequired: contracts.ToolGmail},
			{ToolRequired: contracts.ToolPipedrive},
		},
	}
	if got := taskTypeFor(tie); got != contracts.TaskEmail {
		t.Errorf("Expected email to win the tie, got %s", got)
	}

	empty := &contracts.Plan{}
	if got := taskTypeFor(empty); got != contracts.TaskEmail {
		t.Errorf("Expected email default for empty plan, got %s", got)
	}
}

func TestDrafter_EmailWithoutRecipientFails(t *testing.T) {
	d := NewDrafter(offlineClient())
	plan := gmailPlan(map[string]any{"subject": "Hello"})
	plan.IsComplete = true

	if _, err := d.GenerateDraft(context.Background(), plan); err == nil {
		t.Fatal("Expected an error for a plan without a recipient")
	}
}

func TestDrafter_EmailWithoutModelFails(t *testing.T) {
	// Email generation has no non-LLM fallback.
	d := NewDrafter(offlineClient())
	plan := gmailPlan(map[string]any{"to": "bob@co.com", "subject": "Hello", "content": "status update"})
	plan.IsComplete = true

	if _, err := d.GenerateDraft(context.Background(), plan); err == nil {
		t.Fatal("Expected a hard failure when the model is unavailable")
	}
}

func TestDrafter_RecipientAliases(t *testing.T) {
	for _, key := range []string{"to", "recipient", "recipient_email"} {
		plan := gmailPlan(map[string]any{key: "bob@co.com"})
		// The recipient resolves regardless of alias; generation then
		// fails only on the missing model, not on the recipient.
		d := NewDrafter(offlineClient())
		_, err := d.GenerateDraft(context.Background(), plan)
		if err == nil {
			t.Fatalf("alias %q: expected model-unavailable error", key)
		}
		if got := err.Error(); got == "no recipient found in plan plan_test" {
			t.Errorf("alias %q was not resolved as the recipient", key)
		}
	}
}

func TestDrafter_GeneralNeverFails(t *testing.T) {
	d := NewDrafter(offlineClient())
	plan := &contracts.Plan{
		PlanID:    "plan_test",
		UserQuery: "hello there",
		Steps:     []contracts.TaskStep{{ToolRequired: contracts.ToolGeneral, Parameters: map[string]any{}}},
	}

	draft, err := d.GenerateDraft(context.Background(), plan)
	if err != nil {
		t.Fatalf("General draft must never fail: %v", err)
	}
	if draft.Content["message"] != capabilityFallback {
		t.Errorf("Expected capability fallback, got %v", draft.Content["message"])
	}
}
