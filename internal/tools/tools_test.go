package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

func TestRegistry_AvailableOrder(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewPipedriveAgent(contracts.APICredentials{}))
	gmail, err := NewGmailAgent(contracts.APICredentials{}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	registry.Register(gmail)

	got := registry.Available()
	want := []contracts.ToolType{contracts.ToolGmail, contracts.ToolPipedrive}
	if len(got) != len(want) {
		t.Fatalf("Available() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Available()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestGmail_UnconfiguredQueuesToOutbox(t *testing.T) {
	gmail, err := NewGmailAgent(contracts.APICredentials{}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	execution := gmail.Execute(context.Background(), "send_email", map[string]any{
		"to":      "bob@co.com",
		"from":    "alice@co.com",
		"subject": "Hello",
		"body":    "Hello Bob, see attached. Regards",
	})

	if execution.Success {
		t.Error("Unconfigured transport must not report success")
	}
	if execution.Result["delivery_status"] != "queued" {
		t.Errorf("Expected queued delivery, got %v", execution.Result["delivery_status"])
	}
	if gmail.PendingOutbox() != 1 {
		t.Errorf("Expected one queued message, got %d", gmail.PendingOutbox())
	}
}

func TestGmail_MissingParameters(t *testing.T) {
	gmail, err := NewGmailAgent(contracts.APICredentials{}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	execution := gmail.Execute(context.Background(), "send_email", map[string]any{"to": "bob@co.com"})
	if execution.Success {
		t.Error("Send without subject and body must fail")
	}
	if !strings.Contains(execution.Error, "subject") {
		t.Errorf("Expected missing-subject error, got %q", execution.Error)
	}
}

func TestGmail_EnvelopeRoundTrip(t *testing.T) {
	message := buildMessage("alice@co.com", "bob@co.com", []string{"carol@co.com"}, "Subject", "Body text")
	from, recipients := parseEnvelope(message)

	if from != "alice@co.com" {
		t.Errorf("from = %q", from)
	}
	if len(recipients) != 2 || recipients[0] != "bob@co.com" || recipients[1] != "carol@co.com" {
		t.Errorf("recipients = %v", recipients)
	}
}

func TestPipedrive_SimulatedFallback(t *testing.T) {
	p := NewPipedriveAgent(contracts.APICredentials{})

	execution := p.Execute(context.Background(), "create_contact", map[string]any{"email": "jane.doe@example.com"})
	if execution.Success {
		t.Error("Simulated execution must not report success")
	}
	if execution.Error != "Pipedrive client not available - simulated response" {
		t.Errorf("Unexpected error: %q", execution.Error)
	}
	if execution.Result["simulated"] != true {
		t.Error("Simulated result must be marked")
	}
	if execution.Result["name"] != "Jane Doe" {
		t.Errorf("Expected name derived from email local part, got %v", execution.Result["name"])
	}
}

func TestPipedrive_RequiredParameters(t *testing.T) {
	p := NewPipedriveAgent(contracts.APICredentials{})

	if ex := p.Execute(context.Background(), "create_contact", map[string]any{}); ex.Success || !strings.Contains(ex.Error, "name or email") {
		t.Errorf("create without identity: %+v", ex)
	}
	if ex := p.Execute(context.Background(), "update_contact", map[string]any{"name": "X"}); ex.Success || !strings.Contains(ex.Error, "contact_id") {
		t.Errorf("update without contact_id: %+v", ex)
	}
	if ex := p.Execute(context.Background(), "search_contacts", map[string]any{}); ex.Success || !strings.Contains(ex.Error, "query") {
		t.Errorf("search without query: %+v", ex)
	}
	if ex := p.Execute(context.Background(), "bogus_action", map[string]any{}); ex.Success {
		t.Error("Unknown action must fail")
	}
}

func TestNameFromEmail(t *testing.T) {
	cases := map[string]string{
		"jane.doe@example.com":  "Jane Doe",
		"bob_smith@example.com": "Bob Smith",
		"carol@example.com":     "Carol",
	}
	for email, want := range cases {
		if got := nameFromEmail(email); got != want {
			t.Errorf("nameFromEmail(%q) = %q, want %q", email, got, want)
		}
	}
}

func TestCalendly_ResolveDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	today, err := resolveDay("today", now)
	if err != nil || !today.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("today: %v %v", today, err)
	}

	tomorrow, err := resolveDay("tomorrow", now)
	if err != nil || !tomorrow.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("tomorrow: %v %v", tomorrow, err)
	}

	iso, err := resolveDay("2026-04-01", now)
	if err != nil || !iso.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("iso: %v %v", iso, err)
	}

	if _, err := resolveDay("2020-01-01", now); err == nil {
		t.Error("Past dates must be rejected")
	}
	if _, err := resolveDay("next blue moon", now); err == nil {
		t.Error("Unparseable dates must be rejected")
	}
}

func TestCalendly_MissingConfiguration(t *testing.T) {
	c := NewCalendlyAgent(contracts.APICredentials{})
	execution := c.Execute(context.Background(), "list_available_slots", map[string]any{})
	if execution.Success {
		t.Error("Unconfigured Calendly must fail")
	}
	if !strings.Contains(execution.Error, "CALENDLY_API_KEY") {
		t.Errorf("Expected actionable error, got %q", execution.Error)
	}
}
