package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
	"github.com/Yashkalwar/autonomous-P1/internal/llm"
	"github.com/Yashkalwar/autonomous-P1/internal/observability"
)

// intentRule maps a predicate over the lowered query to a target tool.
// Rules are evaluated top to bottom and the first match wins, so the
// ordering below is a contract: CRM before email, email before calendar,
// calendar before general.
type intentRule struct {
	intent  string
	tool    contracts.ToolType
	matches func(q string) bool
}

var intentRules = []intentRule{
	{
		intent: "manage_crm_contact",
		tool:   contracts.ToolPipedrive,
		matches: func(q string) bool {
			return containsAnyWord(q, "contact", "crm", "pipedrive", "lead")
		},
	},
	{
		intent: "send_email",
		tool:   contracts.ToolGmail,
		matches: func(q string) bool {
			return containsAnyWord(q, "email", "mail", "send a message", "write to")
		},
	},
	{
		intent: "check_availability",
		tool:   contracts.ToolCalendly,
		matches: func(q string) bool {
			return containsAnyWord(q, "calendar", "calendly", "availability", "schedule", "meeting slots", "available slots")
		},
	},
	{
		intent:  "general_assistance",
		tool:    contracts.ToolGeneral,
		matches: func(q string) bool { return true },
	},
}

func containsAnyWord(q string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

// classifyByRules is the deterministic classifier used when the language
// model is unavailable or returns garbage.
func classifyByRules(query string) (string, contracts.ToolType) {
	lowered := strings.ToLower(query)
	for _, rule := range intentRules {
		if rule.matches(lowered) {
			return rule.intent, rule.tool
		}
	}
	return "general_assistance", contracts.ToolGeneral
}

// Planner turns a free-text request into a structured Plan.
type Planner struct {
	llm    *llm.Client
	logger *observability.Logger
}

func NewPlanner(client *llm.Client, logger *observability.Logger) *Planner {
	return &Planner{llm: client, logger: logger}
}

// CreatePlan classifies the query and wraps the result into a single-step
// Plan. Classifier failure degrades to the rule table; an unmatched query
// becomes a trivially complete general-assistance plan.
func (p *Planner) CreatePlan(ctx context.Context, userQuery string, availableTools []string, availableDocuments []string) *contracts.Plan {
	planID := "plan_" + uuid.NewString()[:8]

	analysis, err := p.llm.AnalyzeQuery(ctx, userQuery, availableTools, availableDocuments)
	if err != nil {
		p.logger.LogDegraded("", fmt.Sprintf("classifier unavailable, using rule table: %v", err))
		analysis = p.ruleAnalysis(userQuery)
	}

	tool := mapToolName(analysis.PrimaryTool)
	step := contracts.TaskStep{
		StepID:       "step_1",
		Description:  describeIntent(analysis.Intent, tool),
		ToolRequired: tool,
		Parameters:   analysis.ExtractedParameters,
	}
	if step.Parameters == nil {
		step.Parameters = map[string]any{}
	}

	missing := filterMissing(tool, analysis.MissingInformation, step.Parameters)

	return &contracts.Plan{
		PlanID:        planID,
		UserQuery:     userQuery,
		Steps:         []contracts.TaskStep{step},
		RequiredTools: []contracts.ToolType{tool},
		MissingInfo:   missing,
		IsComplete:    len(missing) == 0,
	}
}

// ruleAnalysis builds an Analysis from the rule table plus opportunistic
// regex extraction, so degraded mode still fills obvious slots.
func (p *Planner) ruleAnalysis(userQuery string) *llm.Analysis {
	intent, tool := classifyByRules(userQuery)
	params := map[string]any{}
	var missing []string

	switch tool {
	case contracts.ToolGmail:
		if email := extractEmail(userQuery); email != "" {
			params["to"] = email
		} else {
			missing = append(missing, "recipient email")
		}
		if subject := extractSubject(userQuery); subject != "" {
			params["subject"] = subject
		} else {
			missing = append(missing, "subject")
		}
		missing = append(missing, "content")
	case contracts.ToolPipedrive:
		if name := extractName(userQuery); name != "" {
			params["name"] = name
		} else {
			missing = append(missing, "contact name")
		}
		if email := extractEmail(userQuery); email != "" {
			params["email"] = email
		} else {
			missing = append(missing, "contact email")
		}
	case contracts.ToolCalendly:
		params["date"] = "today"
	}

	return &llm.Analysis{
		Intent:              intent,
		PrimaryTool:         string(tool),
		Confidence:          0.5,
		ExtractedParameters: params,
		MissingInformation:  missing,
	}
}

func mapToolName(name string) contracts.ToolType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gmail", "email":
		return contracts.ToolGmail
	case "pipedrive", "crm":
		return contracts.ToolPipedrive
	case "calendly", "calendar":
		return contracts.ToolCalendly
	default:
		return contracts.ToolGeneral
	}
}

func describeIntent(intent string, tool contracts.ToolType) string {
	if intent != "" {
		return strings.ReplaceAll(intent, "_", " ")
	}
	switch tool {
	case contracts.ToolGmail:
		return "send email"
	case contracts.ToolPipedrive:
		return "manage crm contact"
	case contracts.ToolCalendly:
		return "check availability"
	default:
		return "general assistance"
	}
}

// filterMissing drops missing-info labels whose slot turned out to be
// filled by extraction, and normalizes labels the dialogue understands.
func filterMissing(tool contracts.ToolType, reported []string, params map[string]any) []string {
	var out []string
	for _, label := range reported {
		field := canonicalField(tool, label)
		if field == "" {
			continue
		}
		if v, ok := params[field]; ok && v != nil && fmt.Sprint(v) != "" {
			continue
		}
		out = append(out, label)
	}
	return out
}

// canonicalField maps a human missing-info label to the parameter key the
// dialogue will fill. Unknown labels map to empty and are dropped.
func canonicalField(tool contracts.ToolType, label string) string {
	lowered := strings.ToLower(label)
	switch tool {
	case contracts.ToolGmail:
		switch {
		case strings.Contains(lowered, "recipient") || strings.Contains(lowered, "email address") || lowered == "to":
			return "to"
		case strings.Contains(lowered, "subject"):
			return "subject"
		case strings.Contains(lowered, "content") || strings.Contains(lowered, "body") || strings.Contains(lowered, "message") || strings.Contains(lowered, "purpose"):
			return "content"
		}
	case contracts.ToolPipedrive:
		switch {
		case strings.Contains(lowered, "name"):
			return "name"
		case strings.Contains(lowered, "email"):
			return "email"
		}
	}
	return ""
}
