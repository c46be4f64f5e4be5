package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
	"github.com/Yashkalwar/autonomous-P1/internal/llm"
)

const capabilityFallback = "I can help you send emails, manage Pipedrive contacts, and check Calendly availability. Tell me what you'd like to do."

// Drafter turns a complete Plan into task-type-specific content.
type Drafter struct {
	llm *llm.Client
}

func NewDrafter(client *llm.Client) *Drafter {
	return &Drafter{llm: client}
}

// GenerateDraft produces a Draft from a complete plan. Email drafts need
// the language model and fail loudly without it; CRM drafts are a pure
// parameter passthrough; general drafts never fail.
func (d *Drafter) GenerateDraft(ctx context.Context, plan *contracts.Plan) (*contracts.Draft, error) {
	taskType := taskTypeFor(plan)

	var content map[string]any
	var err error
	switch taskType {
	case contracts.TaskEmail:
		content, err = d.emailContent(ctx, plan)
	case contracts.TaskCRMContact:
		content = crmContent(plan)
	default:
		content = d.generalContent(ctx, plan)
	}
	if err != nil {
		return nil, err
	}

	return &contracts.Draft{
		DraftID:  "draft_" + uuid.NewString()[:8],
		PlanID:   plan.PlanID,
		TaskType: taskType,
		Content:  content,
		Metadata: map[string]any{"user_query": plan.UserQuery},
	}, nil
}

// taskTypeFor picks the draft's task type from the most frequent tool
// across the plan's steps; the first tool to reach the max count wins.
// A plan with no steps defaults to email.
func taskTypeFor(plan *contracts.Plan) contracts.TaskType {
	if len(plan.Steps) == 0 {
		return contracts.TaskEmail
	}

	counts := map[contracts.ToolType]int{}
	best := plan.Steps[0].ToolRequired
	bestCount := 0
	for _, step := range plan.Steps {
		counts[step.ToolRequired]++
		if counts[step.ToolRequired] > bestCount {
			bestCount = counts[step.ToolRequired]
			best = step.ToolRequired
		}
	}

	switch best {
	case contracts.ToolGmail:
		return contracts.TaskEmail
	case contracts.ToolPipedrive:
		return contracts.TaskCRMContact
	default:
		return contracts.TaskGeneralResponse
	}
}

func (d *Drafter) emailContent(ctx context.Context, plan *contracts.Plan) (map[string]any, error) {
	recipient := ""
	subjectHint := ""
	summary := ""
	for _, step := range plan.Steps {
		if step.ToolRequired != contracts.ToolGmail {
			continue
		}
		for _, key := range []string{"to", "recipient", "recipient_email"} {
			if v, ok := step.Parameters[key].(string); ok && v != "" && recipient == "" {
				recipient = v
			}
		}
		if v, ok := step.Parameters["subject"].(string); ok && subjectHint == "" {
			subjectHint = v
		}
		if v, ok := step.Parameters["content"].(string); ok && summary == "" {
			summary = v
		}
	}
	if recipient == "" {
		return nil, fmt.Errorf("no recipient found in plan %s", plan.PlanID)
	}

	subject, body, err := d.llm.GenerateEmail(ctx, plan.UserQuery, recipient, subjectHint, summary)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"to":      recipient,
		"subject": subject,
		"body":    body,
	}, nil
}

// crmContent passes through every non-null step parameter and normalizes
// the action, defaulting to contact creation.
func crmContent(plan *contracts.Plan) map[string]any {
	content := map[string]any{}
	for _, step := range plan.Steps {
		if step.ToolRequired != contracts.ToolPipedrive {
			continue
		}
		for k, v := range step.Parameters {
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok && s == "" {
				continue
			}
			content[k] = v
		}
	}
	if _, ok := content["action"]; !ok {
		content["action"] = "create_contact"
	}
	return content
}

func (d *Drafter) generalContent(ctx context.Context, plan *contracts.Plan) map[string]any {
	message := d.llm.GenerateGeneral(ctx, plan.UserQuery)
	if message == "" {
		message = capabilityFallback
	}
	return map[string]any{"message": message}
}
