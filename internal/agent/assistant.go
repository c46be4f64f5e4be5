package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
	"github.com/Yashkalwar/autonomous-P1/internal/documents"
	"github.com/Yashkalwar/autonomous-P1/internal/llm"
	"github.com/Yashkalwar/autonomous-P1/internal/observability"
	"github.com/Yashkalwar/autonomous-P1/internal/store"
	"github.com/Yashkalwar/autonomous-P1/internal/tools"
)

// pendingApproval holds a reviewed draft waiting for the user's go-ahead.
type pendingApproval struct {
	Draft  *contracts.Draft
	Plan   *contracts.Plan
	Review contracts.ReviewResult
}

// session is the per-chat conversational state. Single operator in the
// console gateway; Telegram gets one session per chat id.
type session struct {
	Dialogue DialogueSession
	Approval *pendingApproval
}

// Assistant is the outer turn-processing loop: one user input in, one
// reply out, with all orchestration state owned here.
type Assistant struct {
	planner  *Planner
	drafter  *Drafter
	reviewer *Reviewer
	executor *Executor
	llm      *llm.Client
	docs     *documents.Manager
	history  *store.HistoryStore
	registry *tools.Registry
	logger   *observability.Logger

	reviewEnabled bool

	mu       sync.Mutex
	sessions map[string]*session
}

func NewAssistant(
	planner *Planner,
	drafter *Drafter,
	reviewer *Reviewer,
	executor *Executor,
	client *llm.Client,
	docs *documents.Manager,
	history *store.HistoryStore,
	registry *tools.Registry,
	logger *observability.Logger,
	reviewEnabled bool,
) *Assistant {
	return &Assistant{
		planner:       planner,
		drafter:       drafter,
		reviewer:      reviewer,
		executor:      executor,
		llm:           client,
		docs:          docs,
		history:       history,
		registry:      registry,
		logger:        logger,
		reviewEnabled: reviewEnabled,
		sessions:      make(map[string]*session),
	}
}

// HandleTurn processes one user input and returns the reply. A panic in
// any stage is caught here so a single bad turn never kills the process.
func (a *Assistant) HandleTurn(ctx context.Context, chatID, input string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Notify(observability.EventTypeTaskFailed, chatID, "", fmt.Sprintf("panic: %v", r))
			observability.SetStatus(observability.PhaseIdle, "")
			reply = "Something went wrong handling that request. Please try again."
		}
	}()

	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	if reply, handled := a.handleCommand(chatID, input); handled {
		return reply
	}

	sess := a.session(chatID)

	if sess.Approval != nil {
		return a.handleApproval(ctx, chatID, sess, input)
	}
	if sess.Dialogue.Active() {
		return a.continueDialogue(ctx, chatID, sess, input)
	}
	return a.startTask(ctx, chatID, sess, input)
}

func (a *Assistant) session(chatID string) *session {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[chatID]
	if !ok {
		s = &session{}
		a.sessions[chatID] = s
	}
	return s
}

func (a *Assistant) handleCommand(chatID, input string) (string, bool) {
	switch strings.ToLower(input) {
	case "help":
		return helpText, true
	case "status":
		phase, task, last := observability.GetStatus()
		if task == "" {
			task = "(none)"
		}
		return fmt.Sprintf("Phase: %s\nActive task: %s\nLast activity: %s", phase, task, last.Format(time.RFC3339)), true
	case "memory":
		return a.memorySummary(), true
	case "clear":
		a.mu.Lock()
		delete(a.sessions, chatID)
		a.mu.Unlock()
		return "Conversation state cleared.", true
	}
	return "", false
}

const helpText = `I can help with:
  - Sending emails ("send an email to bob@co.com about the launch")
  - Managing Pipedrive contacts ("create a contact for jane@company.com")
  - Checking Calendly availability ("what slots are open tomorrow?")
Commands: help, status, memory, clear, quit`

func (a *Assistant) memorySummary() string {
	entries, err := a.history.GetRecentInteractions(5)
	if err != nil {
		return "Could not read interaction history: " + err.Error()
	}
	stats, err := a.history.Stats()
	if err != nil {
		return "Could not read interaction history: " + err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stored interactions: %v\n", stats["total_interactions"])
	if len(entries) == 0 {
		b.WriteString("No interactions recorded yet.")
		return b.String()
	}
	b.WriteString("Recent:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "  [%s] %s\n", e.Timestamp.Format("Jan 2 15:04"), truncate(e.UserQuery, 60))
	}
	return strings.TrimRight(b.String(), "\n")
}

// startTask classifies a fresh request and either begins slot-filling or
// proceeds straight through the pipeline.
func (a *Assistant) startTask(ctx context.Context, chatID string, sess *session, input string) string {
	observability.SetStatus(observability.PhasePlanning, input)
	a.logger.Notify(observability.EventTypeTaskStarted, chatID, "", truncate(input, 80))

	plan := a.planner.CreatePlan(ctx, input, a.registry.AvailableNames(), a.docs.ListDocuments())

	if !plan.IsComplete {
		sess.Dialogue = NewDialogueSession(ctx, plan, a.llm, a.docs)
		if sess.Dialogue.State == StateComplete {
			return a.finishPlan(ctx, chatID, sess, plan)
		}
		observability.SetStatus(observability.PhaseAwaitingInput, input)
		a.logger.Notify(observability.EventTypeUserInputRequired, chatID, plan.PlanID, sess.Dialogue.CurrentField)
		return sess.Dialogue.NextQuestion(ctx, a.llm)
	}
	return a.finishPlan(ctx, chatID, sess, plan)
}

func (a *Assistant) continueDialogue(ctx context.Context, chatID string, sess *session, input string) string {
	next, msg := sess.Dialogue.HandleInput(ctx, input, a.llm, a.docs)
	sess.Dialogue = next

	switch next.State {
	case StateCancelled:
		observability.SetStatus(observability.PhaseIdle, "")
		sess.Dialogue = DialogueSession{}
		return msg
	case StateComplete:
		plan := next.Plan
		sess.Dialogue = DialogueSession{}
		return a.finishPlan(ctx, chatID, sess, plan)
	default:
		a.logger.Notify(observability.EventTypeUserInputRequired, chatID, next.Plan.PlanID, next.CurrentField)
		return msg
	}
}

// finishPlan runs the complete plan through draft, review, and execution.
// With review disabled the collected step executes directly, without the
// model-written draft or the approval gate.
func (a *Assistant) finishPlan(ctx context.Context, chatID string, sess *session, plan *contracts.Plan) string {
	observability.SetStatus(observability.PhaseDrafting, plan.UserQuery)

	if !a.reviewEnabled {
		return a.execute(ctx, chatID, a.directDraft(ctx, plan), plan)
	}

	draft, err := a.drafter.GenerateDraft(ctx, plan)
	if err != nil {
		observability.SetStatus(observability.PhaseIdle, "")
		a.logger.Notify(observability.EventTypeTaskFailed, chatID, plan.PlanID, err.Error())
		return draftFailureMessage(err)
	}

	review := a.reviewer.ReviewDraft(draft)
	a.logger.LogReview(chatID, plan.PlanID, review.ConfidenceScore, review.Approved, review.Issues)

	if review.RequiresUserReview {
		sess.Approval = &pendingApproval{Draft: draft, Plan: plan, Review: review}
		observability.SetStatus(observability.PhaseAwaitingInput, plan.UserQuery)
		a.logger.Notify(observability.EventTypeUserInputRequired, chatID, plan.PlanID, "draft approval")
		return formatDraftForApproval(draft, review)
	}

	return a.execute(ctx, chatID, draft, plan)
}

// directDraft builds a draft deterministically from the collected step
// parameters, with no language-model dependency. The email body is the
// content field as the user provided it.
func (a *Assistant) directDraft(ctx context.Context, plan *contracts.Plan) *contracts.Draft {
	taskType := taskTypeFor(plan)

	var content map[string]any
	switch taskType {
	case contracts.TaskEmail:
		content = map[string]any{}
		for _, step := range plan.Steps {
			if step.ToolRequired != contracts.ToolGmail {
				continue
			}
			for _, key := range []string{"to", "recipient", "recipient_email"} {
				if v, ok := step.Parameters[key].(string); ok && v != "" {
					content["to"] = v
					break
				}
			}
			if v, ok := step.Parameters["subject"].(string); ok && v != "" {
				content["subject"] = v
			}
			if v, ok := step.Parameters["content"].(string); ok && v != "" {
				content["body"] = v
			}
		}
		if _, ok := content["subject"]; !ok {
			body, _ := content["body"].(string)
			content["subject"] = a.llm.GenerateSubject(ctx, plan.UserQuery, body)
		}
	case contracts.TaskCRMContact:
		content = crmContent(plan)
	default:
		content = a.drafter.generalContent(ctx, plan)
	}

	return &contracts.Draft{
		DraftID:  "draft_" + uuid.NewString()[:8],
		PlanID:   plan.PlanID,
		TaskType: taskType,
		Content:  content,
		Metadata: map[string]any{"user_query": plan.UserQuery, "direct": true},
	}
}

func (a *Assistant) handleApproval(ctx context.Context, chatID string, sess *session, input string) string {
	pending := sess.Approval
	lowered := strings.ToLower(strings.TrimSpace(input))

	switch {
	case lowered == "yes" || lowered == "y" || lowered == "approve" || lowered == "send" || lowered == "ok":
		sess.Approval = nil
		return a.execute(ctx, chatID, pending.Draft, pending.Plan)
	case isCancel(input) || lowered == "no" || lowered == "n":
		sess.Approval = nil
		observability.SetStatus(observability.PhaseIdle, "")
		a.logger.Notify(observability.EventTypeTaskFailed, chatID, pending.Plan.PlanID, "draft rejected by user")
		return "Okay, I've discarded that draft. What would you like to do instead?"
	default:
		return "Please reply yes to proceed or no to discard the draft."
	}
}

func (a *Assistant) execute(ctx context.Context, chatID string, draft *contracts.Draft, plan *contracts.Plan) string {
	observability.SetStatus(observability.PhaseExecuting, plan.UserQuery)

	executions := a.executor.ExecuteDraft(ctx, draft, plan)
	a.recordInteraction(plan, executions)

	allOK := true
	for _, ex := range executions {
		if !ex.Success {
			allOK = false
		}
	}

	observability.SetStatus(observability.PhaseIdle, "")
	if allOK {
		a.logger.Notify(observability.EventTypeTaskCompleted, chatID, plan.PlanID, "")
	} else {
		a.logger.Notify(observability.EventTypeTaskFailed, chatID, plan.PlanID, "one or more steps failed")
	}

	return formatExecutions(executions)
}

func (a *Assistant) recordInteraction(plan *contracts.Plan, executions []contracts.ToolExecution) {
	sentiment := "neutral"
	for _, ex := range executions {
		if !ex.Success {
			sentiment = "negative"
			break
		}
	}

	var tags []string
	for _, t := range plan.RequiredTools {
		tags = append(tags, string(t))
	}

	entry := contracts.MemoryEntry{
		EntryID:          "mem_" + uuid.NewString()[:8],
		Timestamp:        time.Now(),
		UserQuery:        plan.UserQuery,
		PlanSummary:      summarizePlan(plan),
		ExecutionResults: executions,
		Sentiment:        sentiment,
		Tags:             tags,
	}
	if err := a.history.StoreInteraction(entry); err != nil {
		a.logger.LogDegraded("", "failed to store interaction: "+err.Error())
	}
}

func summarizePlan(plan *contracts.Plan) string {
	var parts []string
	for _, step := range plan.Steps {
		parts = append(parts, fmt.Sprintf("%s via %s", step.Description, step.ToolRequired))
	}
	return strings.Join(parts, "; ")
}

func draftFailureMessage(err error) string {
	var policyErr *llm.ContentPolicyError
	if errors.As(err, &policyErr) {
		return "I couldn't produce a usable draft: " + policyErr.Reason + ". Try rephrasing your request."
	}
	var collabErr *contracts.CollaboratorError
	if errors.As(err, &collabErr) {
		switch collabErr.Kind {
		case contracts.FailureNotConfigured:
			return "The language model is not configured. Set OPENAI_API_KEY to enable email drafting."
		case contracts.FailureInvalidResponse:
			return "The language model returned something I couldn't use. Please try again."
		default:
			return "I couldn't reach the language model: " + collabErr.Message
		}
	}
	return "I couldn't create a draft for that: " + err.Error()
}

func formatDraftForApproval(draft *contracts.Draft, review contracts.ReviewResult) string {
	var b strings.Builder
	b.WriteString("Here's the draft I put together:\n\n")

	switch draft.TaskType {
	case contracts.TaskEmail:
		fmt.Fprintf(&b, "To: %s\nSubject: %s\n\n%s\n", stringValue(draft.Content, "to"), stringValue(draft.Content, "subject"), stringValue(draft.Content, "body"))
	case contracts.TaskCRMContact:
		for _, key := range []string{"action", "name", "email", "phone", "notes", "contact_id", "query"} {
			if v := stringValue(draft.Content, key); v != "" {
				fmt.Fprintf(&b, "%s: %s\n", capitalize(key), v)
			}
		}
	default:
		b.WriteString(stringValue(draft.Content, "message") + "\n")
	}

	fmt.Fprintf(&b, "\nConfidence: %.0f%% (%s)\n", review.ConfidenceScore*100, review.ConfidenceLevel)
	for _, issue := range review.Issues {
		b.WriteString("  - " + issue + "\n")
	}
	for _, sug := range review.Suggestions {
		b.WriteString("  * " + sug + "\n")
	}
	b.WriteString("\nReply yes to proceed or no to discard.")
	return b.String()
}

func formatExecutions(executions []contracts.ToolExecution) string {
	if len(executions) == 1 {
		return formatExecution(executions[0])
	}
	var parts []string
	for _, ex := range executions {
		parts = append(parts, formatExecution(ex))
	}
	return strings.Join(parts, "\n")
}

func formatExecution(ex contracts.ToolExecution) string {
	if !ex.Success {
		// A queued send is a handled fallback, not a hard failure.
		if status, ok := ex.Result["delivery_status"].(string); ok && status == "queued" {
			return "I couldn't reach the mail server, so the email is queued in the outbox and will be retried."
		}
		return fmt.Sprintf("%s %s failed: %s", ex.ToolType, ex.Action, ex.Error)
	}

	switch {
	case ex.ToolType == contracts.ToolGeneral:
		if msg, ok := ex.Result["message"].(string); ok {
			return msg
		}
		return "Done."
	case ex.Action == "send_email":
		return fmt.Sprintf("Email sent to %s.", ex.Result["to"])
	case ex.Action == "create_contact":
		return fmt.Sprintf("Contact created: %v (%v)", ex.Result["name"], ex.Result["email"])
	case ex.Action == "update_contact":
		return fmt.Sprintf("Contact %v updated.", ex.Result["contact_id"])
	case ex.Action == "search_contacts":
		return fmt.Sprintf("Found %v matching contact(s).", ex.Result["total_results"])
	case ex.Action == "list_available_slots":
		return formatSlots(ex.Result)
	default:
		return fmt.Sprintf("%s %s completed.", ex.ToolType, ex.Action)
	}
}

func formatSlots(result map[string]any) string {
	slots, _ := result["slots"].([]map[string]any)
	if len(slots) == 0 {
		return fmt.Sprintf("No open slots on %v.", result["date"])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Open slots on %v:\n", result["date"])
	for _, slot := range slots {
		fmt.Fprintf(&b, "  - %v (%v min)\n", slot["display"], slot["duration_minutes"])
	}
	if link, ok := result["scheduling_link"].(string); ok {
		b.WriteString("Book here: " + link)
	}
	return strings.TrimRight(b.String(), "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
