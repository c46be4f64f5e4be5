package llm

import "strings"

// ContentPolicyError marks generated email content that failed the
// professionalism/anti-leakage gate. It is a hard generation failure, not
// a review issue; the user is asked to rephrase.
type ContentPolicyError struct {
	Reason string
}

func (e *ContentPolicyError) Error() string {
	return "email content rejected: " + e.Reason
}

var assistantPhrases = []string{
	"the user asked", "user request", "you asked me to", "as requested by",
	"the user wants", "user query", "based on your request to",
}

var greetingTokens = []string{"hello", "hi", "dear", "greetings"}
var closingTokens = []string{"regards", "sincerely", "best", "thank you", "thanks"}

// ValidateEmailContent enforces the generation-policy gate on model-written
// subject/body pairs before a Draft can exist.
func ValidateEmailContent(userQuery, subject, body string) error {
	bodyLower := strings.ToLower(body)

	// Anti-leakage: any long comma-delimited fragment of the raw request
	// appearing verbatim in the body fails the draft.
	for _, phrase := range strings.Split(strings.ToLower(userQuery), ",") {
		phrase = strings.TrimSpace(phrase)
		if len(phrase) > 10 && strings.Contains(bodyLower, phrase) {
			return &ContentPolicyError{Reason: "the email contains the raw user request; please rephrase your request more naturally"}
		}
	}

	for _, phrase := range assistantPhrases {
		if strings.Contains(bodyLower, phrase) {
			return &ContentPolicyError{Reason: "the email sounds like an assistant response; please try rephrasing your request"}
		}
	}

	if len(strings.TrimSpace(subject)) < 3 {
		return &ContentPolicyError{Reason: "email subject is too short or empty"}
	}
	if len(strings.TrimSpace(body)) < 20 {
		return &ContentPolicyError{Reason: "email body is too short to be professional"}
	}

	if !containsAny(bodyLower, greetingTokens) {
		return &ContentPolicyError{Reason: "email lacks a proper greeting"}
	}
	if !containsAny(bodyLower, closingTokens) {
		return &ContentPolicyError{Reason: "email lacks a proper closing"}
	}

	return nil
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
