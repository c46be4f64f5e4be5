package agent

import (
	"context"
	"strings"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
	"github.com/Yashkalwar/autonomous-P1/internal/documents"
	"github.com/Yashkalwar/autonomous-P1/internal/llm"
)

// DialogueState labels where a slot-filling session currently sits.
type DialogueState string

const (
	StateAwaitingField DialogueState = "AWAITING_FIELD"
	StateComplete      DialogueState = "COMPLETE"
	StateCancelled     DialogueState = "CANCELLED"
)

// fieldOrder is fixed per tool and not configurable.
var fieldOrder = map[contracts.ToolType][]string{
	contracts.ToolGmail:     {"to", "subject", "content"},
	contracts.ToolPipedrive: {"name", "email"},
}

var fieldQuestions = map[string]string{
	"to":      "Who should I send the email to? Please share their email address.",
	"subject": "What should the subject line be?",
	"content": "What should the email say? You can also point me at one of your documents.",
	"name":    "What is the contact's name?",
	"email":   "What is the contact's email address?",
}

// DialogueSession is the owned, explicit state of one slot-filling
// conversation. It is passed by value through the turn loop; collaborators
// are injected per call so the session stays plain data.
type DialogueSession struct {
	State              DialogueState
	Plan               *contracts.Plan
	Tool               contracts.ToolType
	CurrentField       string
	Pending            []string
	ContentRequirement string
}

// NewDialogueSession builds a session from a plan with missing info. It
// runs one opportunistic extraction pass over the original query so fields
// the user already stated are never asked again; a document the query
// mentions is loaded as the email content during that same pass.
func NewDialogueSession(ctx context.Context, plan *contracts.Plan, client *llm.Client, docs *documents.Manager) DialogueSession {
	tool := contracts.ToolGeneral
	if len(plan.Steps) > 0 {
		tool = plan.Steps[0].ToolRequired
	}

	s := DialogueSession{
		State:              StateAwaitingField,
		Plan:               plan,
		Tool:               tool,
		ContentRequirement: detectContentRequirement(plan.UserQuery),
	}
	s.extractOpportunistic(ctx, plan.UserQuery, client, docs)
	s.recomputePending()

	if len(s.Pending) == 0 {
		s.complete()
	} else {
		s.CurrentField = s.Pending[0]
	}
	return s
}

// NextQuestion is the single-field prompt for the current state.
func (s DialogueSession) NextQuestion(ctx context.Context, client *llm.Client) string {
	if s.State != StateAwaitingField {
		return ""
	}
	if q, ok := fieldQuestions[s.CurrentField]; ok {
		return q
	}
	return client.GenerateClarification(ctx, s.Plan.UserQuery, []string{s.CurrentField})
}

// HandleInput consumes one user turn. It validates the input against the
// current field only; invalid input re-prompts without advancing. The
// returned session replaces the caller's copy.
func (s DialogueSession) HandleInput(ctx context.Context, input string, client *llm.Client, docs *documents.Manager) (DialogueSession, string) {
	if isCancel(input) {
		s.State = StateCancelled
		s.Plan = nil
		s.Pending = nil
		s.CurrentField = ""
		return s, "Okay, I've cancelled that. What else can I help with?"
	}
	if s.State != StateAwaitingField {
		return s, ""
	}

	value, errMsg := s.validateField(ctx, s.CurrentField, input, client, docs)
	if errMsg != "" {
		return s, errMsg
	}

	s.setField(s.CurrentField, value)
	s.recomputePending()

	if len(s.Pending) == 0 {
		s.complete()
		return s, ""
	}
	s.CurrentField = s.Pending[0]
	return s, s.NextQuestion(ctx, client)
}

// validateField normalizes input for one field. A non-empty errMsg means
// the input was rejected and the same field should be asked again.
func (s *DialogueSession) validateField(ctx context.Context, field, input string, client *llm.Client, docs *documents.Manager) (value string, errMsg string) {
	trimmed := strings.TrimSpace(input)

	switch field {
	case "to", "email":
		email := extractEmail(trimmed)
		if email == "" {
			return "", "That doesn't look like a valid email address. Could you share it again?"
		}
		return email, ""
	case "subject":
		subject := stripSubjectLabel(trimmed)
		if subject == "" {
			return "", "I didn't catch a subject there. What should the subject line be?"
		}
		return subject, ""
	case "name":
		name := stripNameLabel(trimmed)
		if extracted := extractName(trimmed); extracted != "" {
			name = extracted
		}
		name = normalizeName(name)
		if name == "" {
			return "", "I didn't catch a name there. What is the contact's name?"
		}
		return name, ""
	case "content":
		if trimmed == "" {
			return "", "I need some content for the email. What should it say?"
		}
		if docs != nil {
			result := docs.ParseReferenceInput(trimmed)
			if !result.Success {
				return "", "I couldn't load that document (" + result.Error + "). What should the email say?"
			}
			if result.Source != "" {
				return s.shapeContent(ctx, result.Text, client), ""
			}
			if docName, ok := mentionsDocument(trimmed, docs.ListDocuments()); ok {
				return s.contentFromDocument(ctx, docName, client, docs)
			}
		}
		return trimmed, ""
	default:
		if trimmed == "" {
			return "", "Could you share the " + field + "?"
		}
		return trimmed, ""
	}
}

// contentFromDocument resolves the document content path: load the named
// (or latest) document and apply any shaping requirement captured earlier.
func (s *DialogueSession) contentFromDocument(ctx context.Context, docName string, client *llm.Client, docs *documents.Manager) (string, string) {
	var result documents.LoadResult
	if docName != "" {
		result = docs.LoadByReference(docName)
	} else {
		result = docs.LoadLatest()
	}
	if !result.Success {
		return "", "I couldn't load that document (" + result.Error + "). What should the email say?"
	}
	return s.shapeContent(ctx, result.Text, client), ""
}

// shapeContent applies the requirement captured from the original query
// ("3 bullet points", "summary") to loaded document text. Without a
// language model the raw text is used unchanged.
func (s *DialogueSession) shapeContent(ctx context.Context, text string, client *llm.Client) string {
	if s.ContentRequirement != "" {
		return client.TransformDocument(ctx, text, s.ContentRequirement)
	}
	return text
}

// extractOpportunistic fills pending fields from free text without ever
// overwriting a field that already holds a value.
func (s *DialogueSession) extractOpportunistic(ctx context.Context, text string, client *llm.Client, docs *documents.Manager) {
	switch s.Tool {
	case contracts.ToolGmail:
		if s.field("to") == "" {
			if email := extractEmail(text); email != "" {
				s.setField("to", email)
			}
		}
		if s.field("subject") == "" {
			if subject := extractSubject(text); subject != "" {
				s.setField("subject", subject)
			}
		}
		if s.field("content") == "" && docs != nil {
			if docName, ok := mentionsDocument(text, docs.ListDocuments()); ok {
				if content, errMsg := s.contentFromDocument(ctx, docName, client, docs); errMsg == "" {
					s.setField("content", content)
				}
			}
		}
	case contracts.ToolPipedrive:
		if s.field("name") == "" {
			if name := extractName(text); name != "" {
				s.setField("name", name)
			}
		}
		if s.field("email") == "" {
			if email := extractEmail(text); email != "" {
				s.setField("email", email)
			}
		}
	}
}

func (s *DialogueSession) field(name string) string {
	if s.Plan == nil || len(s.Plan.Steps) == 0 {
		return ""
	}
	v, ok := s.Plan.Steps[0].Parameters[name]
	if !ok || v == nil {
		return ""
	}
	str, _ := v.(string)
	return str
}

func (s *DialogueSession) setField(name, value string) {
	if s.Plan == nil || len(s.Plan.Steps) == 0 {
		return
	}
	if s.Plan.Steps[0].Parameters == nil {
		s.Plan.Steps[0].Parameters = map[string]any{}
	}
	s.Plan.Steps[0].Parameters[name] = value
}

// recomputePending rebuilds the missing-field list in the fixed per-tool
// order, keeping only fields still empty.
func (s *DialogueSession) recomputePending() {
	order, ok := fieldOrder[s.Tool]
	if !ok {
		s.Pending = nil
		return
	}
	var pending []string
	for _, f := range order {
		if !s.required(f) {
			continue
		}
		if s.field(f) == "" {
			pending = append(pending, f)
		}
	}
	s.Pending = pending
}

// required reports whether the planner flagged this field as missing or
// it is a hard field for the tool. Email content is always required once
// the task is an email; CRM needs at least one of name/email, and the
// dialogue asks for both.
func (s *DialogueSession) required(field string) bool {
	if s.field(field) != "" {
		return true
	}
	switch s.Tool {
	case contracts.ToolGmail, contracts.ToolPipedrive:
		return true
	}
	return false
}

func (s *DialogueSession) complete() {
	s.State = StateComplete
	s.CurrentField = ""
	if s.Plan != nil {
		s.Plan.MissingInfo = nil
		s.Plan.IsComplete = true
	}
}

// Active reports whether the session still owns the turn loop.
func (s DialogueSession) Active() bool {
	return s.State == StateAwaitingField
}
