package agent

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
	"github.com/Yashkalwar/autonomous-P1/internal/documents"
	"github.com/Yashkalwar/autonomous-P1/internal/governance"
	"github.com/Yashkalwar/autonomous-P1/internal/observability"
	"github.com/Yashkalwar/autonomous-P1/internal/store"
	"github.com/Yashkalwar/autonomous-P1/internal/tools"
)

func testAssistant(t *testing.T, reviewEnabled bool, registry *tools.Registry) *Assistant {
	t.Helper()

	client := offlineClient()
	logger := observability.NewLogger(t.TempDir())

	history, err := store.NewHistoryStore(filepath.Join(t.TempDir(), "interactions.db"), 100)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { history.Close() })

	docs, err := documents.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	return NewAssistant(
		NewPlanner(client, logger),
		NewDrafter(client),
		NewReviewer(0.7),
		NewExecutor(registry, governance.NewDefaultPolicyEngine(), client, logger),
		client, docs, history, registry, logger,
		reviewEnabled,
	)
}

func TestAssistant_CRMFlowEndToEnd(t *testing.T) {
	capture := &captureAgent{tool: contracts.ToolPipedrive}
	registry := tools.NewRegistry()
	registry.Register(capture)
	a := testAssistant(t, true, registry)
	ctx := context.Background()

	// The model is offline, so the rule table classifies and the
	// dialogue collects the missing name.
	reply := a.HandleTurn(ctx, "chat1", "create a contact for jane@company.com")
	if !strings.Contains(strings.ToLower(reply), "name") {
		t.Fatalf("Expected a question about the name, got %q", reply)
	}

	reply = a.HandleTurn(ctx, "chat1", "name is Jane Smith")
	if capture.got == nil {
		t.Fatalf("Expected the contact to be dispatched, got reply %q", reply)
	}
	if capture.got["name"] != "Jane Smith" || capture.got["email"] != "jane@company.com" {
		t.Errorf("Dispatched parameters: %v", capture.got)
	}
	if capture.got["action"] != "create_contact" {
		t.Errorf("Expected normalized action, got %v", capture.got["action"])
	}
}

func TestAssistant_ApprovalGate(t *testing.T) {
	capture := &captureAgent{tool: contracts.ToolPipedrive}
	registry := tools.NewRegistry()
	registry.Register(capture)
	a := testAssistant(t, true, registry)
	ctx := context.Background()

	// A search with no query scores 0.7 with an issue, which forces
	// the approval gate.
	sess := a.session("chat1")
	plan := crmPlan(map[string]any{"action": "search_contacts"})
	plan.IsComplete = true

	reply := a.finishPlan(ctx, "chat1", sess, plan)
	if !strings.Contains(reply, "yes") {
		t.Fatalf("Expected an approval prompt, got %q", reply)
	}
	if capture.got != nil {
		t.Fatal("Nothing may execute before approval")
	}

	// Rejecting discards the draft.
	reply = a.HandleTurn(ctx, "chat1", "no")
	if capture.got != nil {
		t.Error("Rejected draft must not execute")
	}
	if !strings.Contains(strings.ToLower(reply), "discard") {
		t.Errorf("Expected a discard acknowledgement, got %q", reply)
	}
}

func TestAssistant_ApprovalProceeds(t *testing.T) {
	capture := &captureAgent{tool: contracts.ToolPipedrive}
	registry := tools.NewRegistry()
	registry.Register(capture)
	a := testAssistant(t, true, registry)
	ctx := context.Background()

	sess := a.session("chat1")
	plan := crmPlan(map[string]any{"action": "search_contacts"})
	plan.IsComplete = true
	a.finishPlan(ctx, "chat1", sess, plan)

	a.HandleTurn(ctx, "chat1", "yes")
	if capture.got == nil {
		t.Fatal("Approved draft must execute")
	}
}

func TestAssistant_DirectPathSkipsReview(t *testing.T) {
	// With review disabled, a completed email dialogue executes
	// directly: the collected content becomes the body verbatim and no
	// approval prompt appears.
	capture := &captureAgent{tool: contracts.ToolGmail}
	registry := tools.NewRegistry()
	registry.Register(capture)
	a := testAssistant(t, false, registry)
	ctx := context.Background()

	a.HandleTurn(ctx, "chat1", "send an email to bob@co.com")
	a.HandleTurn(ctx, "chat1", "Launch update")
	reply := a.HandleTurn(ctx, "chat1", "The launch shipped on time. See the dashboard for numbers.")

	if capture.got == nil {
		t.Fatalf("Expected direct dispatch, got reply %q", reply)
	}
	if capture.got["to"] != "bob@co.com" {
		t.Errorf("to = %v", capture.got["to"])
	}
	if capture.got["subject"] != "Launch update" {
		t.Errorf("subject = %v", capture.got["subject"])
	}
	if capture.got["body"] != "The launch shipped on time. See the dashboard for numbers." {
		t.Errorf("body = %v", capture.got["body"])
	}
}

func TestAssistant_CancelStartsFresh(t *testing.T) {
	registry := tools.NewRegistry()
	a := testAssistant(t, true, registry)
	ctx := context.Background()

	a.HandleTurn(ctx, "chat1", "send an email to bob@co.com")
	reply := a.HandleTurn(ctx, "chat1", "cancel")
	if !strings.Contains(strings.ToLower(reply), "cancel") {
		t.Fatalf("Expected cancel acknowledgement, got %q", reply)
	}

	// The next input is a brand-new request, not a slot answer.
	reply = a.HandleTurn(ctx, "chat1", "tell me what you can do")
	if reply != capabilityFallback {
		t.Errorf("Expected a fresh general response, got %q", reply)
	}
}

func TestAssistant_Commands(t *testing.T) {
	a := testAssistant(t, true, tools.NewRegistry())
	ctx := context.Background()

	if reply := a.HandleTurn(ctx, "chat1", "help"); !strings.Contains(reply, "Commands") {
		t.Errorf("help: %q", reply)
	}
	if reply := a.HandleTurn(ctx, "chat1", "status"); !strings.Contains(reply, "Phase") {
		t.Errorf("status: %q", reply)
	}
	if reply := a.HandleTurn(ctx, "chat1", "memory"); !strings.Contains(reply, "interactions") {
		t.Errorf("memory: %q", reply)
	}
	if reply := a.HandleTurn(ctx, "chat1", "clear"); !strings.Contains(reply, "cleared") {
		t.Errorf("clear: %q", reply)
	}
}

func TestFormatExecution_QueuedEmail(t *testing.T) {
	// A send that fell back to the outbox reports the queue, not a
	// failure, even though the execution itself is not a success.
	ex := contracts.ToolExecution{
		ToolType: contracts.ToolGmail,
		Action:   "send_email",
		Success:  false,
		Error:    "SMTP unreachable",
		Result:   map[string]any{"delivery_status": "queued", "to": "bob@co.com"},
	}

	got := formatExecution(ex)
	if !strings.Contains(got, "queued in the outbox") {
		t.Fatalf("Expected the outbox message, got %q", got)
	}
	if strings.Contains(got, "failed") {
		t.Errorf("Queued send must not read as a failure: %q", got)
	}
}
