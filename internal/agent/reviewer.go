package agent

import (
	"fmt"
	"strings"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

// Reviewer scores drafts with a fixed penalty rubric. It is a pure
// function of draft content; reviewing the same draft twice yields an
// identical result.
type Reviewer struct {
	threshold float64
}

func NewReviewer(threshold float64) *Reviewer {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.7
	}
	return &Reviewer{threshold: threshold}
}

// ReviewDraft scores the draft in [0,1], starting at 1.0 and subtracting
// fixed penalties per detected issue.
func (r *Reviewer) ReviewDraft(draft *contracts.Draft) contracts.ReviewResult {
	score := 1.0
	var issues, suggestions []string

	switch draft.TaskType {
	case contracts.TaskEmail:
		score = r.reviewEmail(draft.Content, &issues, &suggestions)
	case contracts.TaskCRMContact:
		score = r.reviewCRM(draft.Content, &issues, &suggestions)
	default:
		score = r.reviewGeneral(draft.Content, &issues)
	}

	if score < 0 {
		score = 0
	}

	return contracts.ReviewResult{
		DraftID:            draft.DraftID,
		ConfidenceScore:    score,
		ConfidenceLevel:    levelFor(score),
		Issues:             issues,
		Suggestions:        suggestions,
		Approved:           score >= r.threshold && len(issues) == 0,
		RequiresUserReview: score < r.threshold || len(issues) > 0,
	}
}

func (r *Reviewer) reviewEmail(content map[string]any, issues, suggestions *[]string) float64 {
	score := 1.0

	to := stringValue(content, "to")
	subject := stringValue(content, "subject")
	body := stringValue(content, "body")

	if to == "" {
		score -= 0.3
		*issues = append(*issues, "Email recipient is missing")
	} else if !strings.Contains(to, "@") {
		score -= 0.2
		*issues = append(*issues, "Email recipient does not look like a valid address")
	}
	if subject == "" {
		score -= 0.2
		*issues = append(*issues, "Email subject is missing")
	}
	if len(body) < 10 {
		score -= 0.3
		*issues = append(*issues, "Email body is too short or missing")
	}
	if strings.Contains(strings.ToLower(body), "placeholder") {
		score -= 0.1
		*suggestions = append(*suggestions, "Replace placeholder text in the email body")
	}
	return score
}

func (r *Reviewer) reviewCRM(content map[string]any, issues, suggestions *[]string) float64 {
	score := 1.0

	action := stringValue(content, "action")
	name := stringValue(content, "name")
	email := stringValue(content, "email")

	switch action {
	case "create_contact", "":
		if name == "" && email == "" {
			score -= 0.4
			*issues = append(*issues, "Contact needs at least a name or an email address")
		}
		if email != "" && !strings.Contains(email, "@") {
			score -= 0.2
			*issues = append(*issues, "Contact email looks malformed")
		}
		if stringValue(content, "phone") == "" {
			*suggestions = append(*suggestions, "Consider adding a phone number for the contact")
		}
		if stringValue(content, "notes") == "" {
			*suggestions = append(*suggestions, "Consider adding notes about this contact")
		}
	case "update_contact":
		if stringValue(content, "contact_id") == "" {
			score -= 0.4
			*issues = append(*issues, "Contact update needs a contact_id")
		}
		if stringValue(content, "notes") == "" {
			*suggestions = append(*suggestions, "Consider adding notes about this update")
		}
	case "search_contacts":
		if stringValue(content, "query") == "" {
			score -= 0.3
			*issues = append(*issues, "Contact search needs a query")
		}
	}

	// Cumulative with the action-specific check above.
	if email != "" && !strings.Contains(email, "@") {
		score -= 0.2
		*issues = append(*issues, "Email field is malformed")
	}

	if strings.Contains(strings.ToLower(fmt.Sprint(content)), "placeholder") {
		score -= 0.2
		*suggestions = append(*suggestions, "Replace placeholder values before executing")
	}
	return score
}

func (r *Reviewer) reviewGeneral(content map[string]any, issues *[]string) float64 {
	message := stringValue(content, "message")
	if message == "" {
		*issues = append(*issues, "Response message is missing")
		return 0.4
	}
	if len(message) < 5 {
		*issues = append(*issues, "Response message is too short")
		return 0.6
	}
	return 1.0
}

func levelFor(score float64) contracts.ConfidenceLevel {
	switch {
	case score >= 0.8:
		return contracts.ConfidenceHigh
	case score >= 0.6:
		return contracts.ConfidenceMedium
	default:
		return contracts.ConfidenceLow
	}
}

func stringValue(content map[string]any, key string) string {
	v, ok := content[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
