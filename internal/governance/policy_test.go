package governance

import (
	"context"
	"testing"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

func TestDefaultPolicyEngine_Evaluate(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	ctx := context.Background()

	// Allow by default
	res, err := engine.Evaluate(ctx, Request{Tool: contracts.ToolGmail, Action: "send_email"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Effect != EffectAllow {
		t.Errorf("Expected EffectAllow, got %s", res.Effect)
	}

	// Deny a whole tool
	engine.DenyTool(contracts.ToolPipedrive)
	res, err = engine.Evaluate(ctx, Request{Tool: contracts.ToolPipedrive, Action: "create_contact"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Effect != EffectDeny {
		t.Errorf("Expected EffectDeny, got %s", res.Effect)
	}
}

func TestDefaultPolicyEngine_DenyAction(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	engine.DenyAction("update_contact")

	res, _ := engine.Evaluate(context.Background(), Request{Tool: contracts.ToolPipedrive, Action: "update_contact"})
	if res.Effect != EffectDeny {
		t.Errorf("Expected EffectDeny for blocked action, got %s", res.Effect)
	}

	res, _ = engine.Evaluate(context.Background(), Request{Tool: contracts.ToolPipedrive, Action: "create_contact"})
	if res.Effect != EffectAllow {
		t.Errorf("Other actions stay allowed, got %s", res.Effect)
	}
}

func TestDefaultPolicyEngine_DenyParameters(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	if err := engine.DenyParameters(`rm\s+-rf`); err != nil {
		t.Fatalf("DenyParameters failed: %v", err)
	}

	res, _ := engine.Evaluate(context.Background(), Request{
		Tool:       contracts.ToolGmail,
		Action:     "send_email",
		Parameters: map[string]any{"body": "please run rm -rf / now"},
	})
	if res.Effect != EffectDeny {
		t.Errorf("Expected EffectDeny for blocked parameter pattern, got %s", res.Effect)
	}

	if err := engine.DenyParameters(`(`); err == nil {
		t.Error("Invalid regex must be rejected")
	}
}
