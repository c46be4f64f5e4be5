// Package contracts holds the typed data model shared by the planner,
// dialogue, drafter, reviewer, executor, and tool agents.
package contracts

import "time"

// ToolType identifies an external tool collaborator.
type ToolType string

const (
	ToolGmail     ToolType = "gmail"
	ToolPipedrive ToolType = "pipedrive"
	ToolCalendly  ToolType = "calendly"
	ToolGeneral   ToolType = "general"
)

// TaskType identifies the kind of content a draft carries.
type TaskType string

const (
	TaskEmail           TaskType = "email"
	TaskCRMContact      TaskType = "crm_contact"
	TaskGeneralResponse TaskType = "general_response"
)

// ConfidenceLevel buckets a review score.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// TaskStep is a single tool-bound unit of work inside a Plan.
// Parameters are filled first by the planner's extraction and then by the
// slot-filling dialogue; they are never mutated after draft generation.
type TaskStep struct {
	StepID       string         `json:"step_id"`
	Description  string         `json:"description"`
	ToolRequired ToolType       `json:"tool_required"`
	Parameters   map[string]any `json:"parameters"`
	Dependencies []string       `json:"dependencies,omitempty"`
}

// Plan is the structured breakdown of one user request.
type Plan struct {
	PlanID        string     `json:"plan_id"`
	UserQuery     string     `json:"user_query"`
	Steps         []TaskStep `json:"steps"`
	RequiredTools []ToolType `json:"required_tools"`
	MissingInfo   []string   `json:"missing_info,omitempty"`
	IsComplete    bool       `json:"is_complete"`
}

// Draft is generated content derived from a completed Plan. A failed draft
// is discarded, not repaired.
type Draft struct {
	DraftID  string         `json:"draft_id"`
	PlanID   string         `json:"plan_id"`
	TaskType TaskType       `json:"task_type"`
	Content  map[string]any `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ReviewResult is the deterministic scoring of a Draft.
type ReviewResult struct {
	DraftID            string          `json:"draft_id"`
	ConfidenceScore    float64         `json:"confidence_score"`
	ConfidenceLevel    ConfidenceLevel `json:"confidence_level"`
	Issues             []string        `json:"issues,omitempty"`
	Suggestions        []string        `json:"suggestions,omitempty"`
	Approved           bool            `json:"approved"`
	RequiresUserReview bool            `json:"requires_user_review"`
}

// ToolExecution records the outcome of dispatching one step to a tool.
type ToolExecution struct {
	ExecutionID string         `json:"execution_id"`
	ToolType    ToolType       `json:"tool_type"`
	Action      string         `json:"action"`
	Parameters  map[string]any `json:"parameters"`
	Success     bool           `json:"success"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// MemoryEntry is one completed interaction stored in the history.
type MemoryEntry struct {
	EntryID          string          `json:"entry_id"`
	Timestamp        time.Time       `json:"timestamp"`
	UserQuery        string          `json:"user_query"`
	PlanSummary      string          `json:"plan_summary"`
	ExecutionResults []ToolExecution `json:"execution_results"`
	Sentiment        string          `json:"sentiment"`
	Tags             []string        `json:"tags,omitempty"`
}

// Notification event types emitted to the audit stream.
const (
	EventTaskStarted       = "task_started"
	EventTaskCompleted     = "task_completed"
	EventTaskFailed        = "task_failed"
	EventUserInputRequired = "user_input_required"
)

// APICredentials carries every external-service credential the tool agents
// may need. Missing fields disable the corresponding tool.
type APICredentials struct {
	GmailAddress     string
	GmailAppPassword string
	GmailSMTPHost    string
	GmailSMTPPort    int

	PipedriveAPIToken string
	PipedriveDomain   string

	CalendlyToken          string
	CalendlyEventTypeUUID  string
	CalendlySchedulingLink string
}

// HasGmail reports whether SMTP delivery is configured.
func (c APICredentials) HasGmail() bool {
	return c.GmailAddress != "" && c.GmailAppPassword != ""
}

// HasPipedrive reports whether the CRM client is configured.
func (c APICredentials) HasPipedrive() bool {
	return c.PipedriveAPIToken != "" && c.PipedriveDomain != ""
}

// HasCalendly reports whether availability lookups are configured.
func (c APICredentials) HasCalendly() bool {
	return c.CalendlyToken != "" && c.CalendlyEventTypeUUID != "" && c.CalendlySchedulingLink != ""
}
