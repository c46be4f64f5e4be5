package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

func TestClient_UnavailableBehaviors(t *testing.T) {
	ctx := context.Background()
	c := New(nil, "offline")

	if c.IsAvailable() {
		t.Fatal("nil model must be unavailable")
	}

	// Hard dependencies fail with a typed collaborator error.
	_, err := c.AnalyzeQuery(ctx, "send an email", []string{"gmail"}, nil)
	var collabErr *contracts.CollaboratorError
	if !errors.As(err, &collabErr) || collabErr.Kind != contracts.FailureNotConfigured {
		t.Errorf("AnalyzeQuery: expected not_configured, got %v", err)
	}

	if _, _, err := c.GenerateEmail(ctx, "q", "bob@co.com", "", ""); err == nil {
		t.Error("GenerateEmail must fail without a model")
	}

	// Optional paths degrade deterministically.
	if got := c.GenerateGeneral(ctx, "hello"); got != "" {
		t.Errorf("GenerateGeneral should return empty, got %q", got)
	}
	if got := c.TransformDocument(ctx, "raw document text", "5 bullet points"); got != "raw document text" {
		t.Errorf("TransformDocument should pass text through, got %q", got)
	}
	if got := c.GenerateSubject(ctx, "q", "body"); got != "Email Subject" {
		t.Errorf("GenerateSubject fallback = %q", got)
	}

	question := c.GenerateClarification(ctx, "send an email", []string{"subject"})
	if !strings.Contains(question, "subject") {
		t.Errorf("Clarification fallback should name the missing field, got %q", question)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                        `{"a":1}`,
		"Here you go: {\"a\":1} thanks!": `{"a":1}`,
		"no json at all":                 "no json at all",
	}
	for in, want := range cases {
		if got := extractJSON(in); got != want {
			t.Errorf("extractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFirstNumber(t *testing.T) {
	if got := firstNumber("in 5 bullet points", "3"); got != "5" {
		t.Errorf("firstNumber = %q", got)
	}
	if got := firstNumber("bullet points", "3"); got != "3" {
		t.Errorf("fallback = %q", got)
	}
	if got := firstNumber("a 12 line summary", "3"); got != "12" {
		t.Errorf("multi-digit = %q", got)
	}
}

func TestBuildTransformPrompt_Shapes(t *testing.T) {
	cases := map[string]string{
		"5 bullet points": "bullet points",
		"3 lines":         "-line professional summary",
		"brief":           "brief, professional version",
		"highlights":      "key highlights",
		"overview":        "professional overview",
		"summary":         "concise professional summary",
	}
	for requirement, marker := range cases {
		prompt := buildTransformPrompt("text", requirement)
		if !strings.Contains(prompt, marker) {
			t.Errorf("requirement %q: prompt missing %q", requirement, marker)
		}
	}
}
