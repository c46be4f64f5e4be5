package llm

import (
	"errors"
	"testing"
)

const goodBody = "Hello Bob,\n\nThe quarterly numbers are ready for your review.\n\nBest regards,\nAlice"

func TestValidateEmailContent_Accepts(t *testing.T) {
	if err := ValidateEmailContent("send the update to bob", "Quarterly update", goodBody); err != nil {
		t.Errorf("Expected clean body to pass, got %v", err)
	}
}

func TestValidateEmailContent_RejectsQueryLeakage(t *testing.T) {
	query := "send an email to bob about the merger timeline"
	body := "Hello Bob,\n\nsend an email to bob about the merger timeline\n\nRegards"
	err := ValidateEmailContent(query, "Merger", body)
	if err == nil {
		t.Fatal("Expected leakage rejection")
	}
	var policyErr *ContentPolicyError
	if !errors.As(err, &policyErr) {
		t.Errorf("Expected ContentPolicyError, got %T", err)
	}
}

func TestValidateEmailContent_RejectsAssistantFraming(t *testing.T) {
	body := "Hello Bob,\n\nThe user asked me to tell you the meeting moved.\n\nRegards"
	if err := ValidateEmailContent("tell bob", "Meeting", body); err == nil {
		t.Error("Expected assistant-framing rejection")
	}
}

func TestValidateEmailContent_RejectsShortFields(t *testing.T) {
	if err := ValidateEmailContent("q", "ab", goodBody); err == nil {
		t.Error("Expected short-subject rejection")
	}
	if err := ValidateEmailContent("q", "Subject", "Hi. Bye."); err == nil {
		t.Error("Expected short-body rejection")
	}
}

func TestValidateEmailContent_RequiresGreetingAndClosing(t *testing.T) {
	noGreeting := "The numbers are attached for your review today.\n\nBest regards, Alice"
	if err := ValidateEmailContent("q", "Subject", noGreeting); err == nil {
		t.Error("Expected missing-greeting rejection")
	}

	noClosing := "Hello Bob, the numbers are attached for your review today."
	if err := ValidateEmailContent("q", "Subject", noClosing); err == nil {
		t.Error("Expected missing-closing rejection")
	}
}
