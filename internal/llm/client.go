// Package llm wraps the language-model collaborator: query analysis,
// email/content generation, and clarification questions. Every failure
// crossing this boundary is a contracts.CollaboratorError; callers decide
// whether degradation is acceptable.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

var toolDescriptions = map[string]string{
	"gmail":     "Send emails via Gmail",
	"pipedrive": "Manage contacts in Pipedrive CRM (create, update contacts)",
	"calendly":  "Check Calendly availability and share scheduling links",
	"general":   "General conversation and assistance",
}

// Analysis is the classifier's structured verdict on a user query.
type Analysis struct {
	Intent              string         `json:"intent"`
	PrimaryTool         string         `json:"primary_tool"`
	Confidence          float64        `json:"confidence"`
	ExtractedParameters map[string]any `json:"extracted_parameters"`
	MissingInformation  []string       `json:"missing_information"`
	FollowUpQuestion    string         `json:"follow_up_question,omitempty"`
}

// Client is the language-model collaborator. A nil model means the
// collaborator is absent; content-dependent callers must fail loudly and
// optional callers must degrade.
type Client struct {
	model llms.Model
	name  string
}

// New wraps an existing model. Pass nil to build an unavailable client.
func New(model llms.Model, name string) *Client {
	return &Client{model: model, name: name}
}

// NewOpenAI builds a client backed by an OpenAI-compatible endpoint.
// Returns an unavailable client when no API key is configured.
func NewOpenAI(apiKey, model, baseURL string) (*Client, error) {
	if apiKey == "" {
		return &Client{}, nil
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	m, err := openai.New(opts...)
	if err != nil {
		return nil, contracts.NotConfigured("llm", fmt.Sprintf("failed to initialize provider: %v", err))
	}
	return &Client{model: m, name: model}, nil
}

// IsAvailable reports whether the underlying model can be called.
func (c *Client) IsAvailable() bool {
	return c != nil && c.model != nil
}

// Name returns the configured model name.
func (c *Client) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// safeGenerate runs a prompt and returns "" on any failure. Used by the
// optional paths that have deterministic fallbacks.
func (c *Client) safeGenerate(ctx context.Context, prompt string, options ...llms.CallOption) string {
	if !c.IsAvailable() {
		return ""
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, options...)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// AnalyzeQuery classifies the user query against the available tools and
// documents. This is a hard dependency: planning without the model is the
// planner's decision, not this package's.
func (c *Client) AnalyzeQuery(ctx context.Context, query string, availableTools []string, availableDocuments []string) (*Analysis, error) {
	if !c.IsAvailable() {
		return nil, contracts.NotConfigured("llm", "query analysis requires the language model; check the OpenAI API key")
	}

	var toolLines []string
	for _, tool := range availableTools {
		desc := toolDescriptions[tool]
		if desc == "" {
			desc = "Unknown tool"
		}
		toolLines = append(toolLines, fmt.Sprintf("- %s: %s", tool, desc))
	}

	documentContext := ""
	if len(availableDocuments) > 0 {
		documentContext = fmt.Sprintf(
			"\n\nAvailable documents: %s\nIf the user mentions any of these documents, assume their content is available for processing.",
			strings.Join(availableDocuments, ", "))
	}

	prompt := "You are an intelligent task planner. Analyze the user's request and determine what they want to do.\n\n" +
		"Available tools:\n" + strings.Join(toolLines, "\n") + documentContext + "\n\n" +
		"CRITICAL INSTRUCTIONS:\n" +
		"- Determine the user's primary intent\n" +
		"- Extract any parameters mentioned in the request\n" +
		"- Identify what information is missing to complete the task\n" +
		"- For emails: ALWAYS require subject and content/purpose if not provided\n" +
		"- For CRM: ALWAYS require contact details (name, email, etc.)\n" +
		"- For calendar: Determine what kind of scheduling help they need\n" +
		"- If the user mentions an available document, consider the task complete for document processing\n\n" +
		fmt.Sprintf("User request: %s\n\n", query) +
		"Return a JSON object with this exact structure:\n" +
		"{\n" +
		"  \"intent\": \"send_email|create_contact|check_calendar|general_assistance\",\n" +
		"  \"primary_tool\": \"gmail|pipedrive|calendly|general\",\n" +
		"  \"confidence\": 0.0,\n" +
		"  \"extracted_parameters\": {},\n" +
		"  \"missing_information\": [],\n" +
		"  \"follow_up_question\": null\n" +
		"}"

	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, llms.WithJSONMode())
	if err != nil {
		return nil, contracts.TransportFailed("llm", "query analysis failed", err)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(extractJSON(out)), &analysis); err != nil {
		return nil, contracts.InvalidResponse("llm", "query analysis returned malformed JSON", err)
	}
	if analysis.Intent == "" || analysis.PrimaryTool == "" {
		return nil, contracts.InvalidResponse("llm", "query analysis missing required fields", nil)
	}
	if analysis.ExtractedParameters == nil {
		analysis.ExtractedParameters = map[string]any{}
	}
	return &analysis, nil
}

// GenerateEmail produces a subject/body pair for an email. Email content
// has no non-model fallback: an unavailable model is a hard failure. The
// returned content has already passed the generation-policy gate.
func (c *Client) GenerateEmail(ctx context.Context, userQuery, recipient, subjectHint, summaryText string) (subject, body string, err error) {
	if !c.IsAvailable() {
		return "", "", contracts.NotConfigured("llm", "email generation requires the language model; check the OpenAI API key")
	}

	recipientName := recipient
	if recipientName == "" {
		recipientName = "there"
	}
	summaryInstruction := "Create appropriate professional content based on the context."
	if summaryText != "" {
		summaryInstruction = "Base the email content on this information: " + summaryText
	}
	if subjectHint == "" {
		subjectHint = "Create appropriate subject"
	}

	prompt := "You are a professional email writer. Create a polished, business-appropriate email.\n\n" +
		"CRITICAL REQUIREMENTS:\n" +
		"- DO NOT include the raw user request in the email body\n" +
		"- DO NOT reference 'the user asked me to...' or similar phrases\n" +
		"- Write as if YOU are the sender, not an assistant\n" +
		"- Use proper email structure: greeting, context, main content, closing\n" +
		"- Keep it concise but complete\n" +
		"- Use professional, warm tone\n\n" +
		fmt.Sprintf("Context for email creation: %s\n", userQuery) +
		fmt.Sprintf("Recipient: %s\n", recipientName) +
		fmt.Sprintf("Subject hint: %s\n", subjectHint) +
		summaryInstruction + "\n\n" +
		"Return a JSON object with keys 'subject' and 'body'. " +
		"The subject should be clear and specific. " +
		"The body should be a complete, professional email with proper greeting and closing."

	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, llms.WithJSONMode())
	if err != nil {
		return "", "", contracts.TransportFailed("llm", "email generation failed", err)
	}

	var payload struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(extractJSON(out)), &payload); err != nil {
		return "", "", contracts.InvalidResponse("llm", "email generation returned malformed JSON", err)
	}
	payload.Subject = strings.TrimSpace(payload.Subject)
	payload.Body = strings.TrimSpace(payload.Body)
	if payload.Subject == "" || payload.Body == "" {
		return "", "", contracts.InvalidResponse("llm", "email generation missing subject or body", nil)
	}

	if err := ValidateEmailContent(userQuery, payload.Subject, payload.Body); err != nil {
		return "", "", err
	}
	return payload.Subject, payload.Body, nil
}

// GenerateGeneral produces a conversational response, or "" when the model
// is unavailable or errors. The caller owns the fallback text.
func (c *Client) GenerateGeneral(ctx context.Context, userQuery string) string {
	prompt := "You are a helpful operations assistant. Respond to the following user request " +
		"with a concise, friendly message. Mention available capabilities (Gmail email support, Pipedrive CRM, and Calendly availability suggestions) if relevant.\n" +
		"User request: " + userQuery
	return c.safeGenerate(ctx, prompt)
}

// GenerateClarification asks for missing information in a friendly single
// question, with a deterministic fallback phrasing.
func (c *Client) GenerateClarification(ctx context.Context, userQuery string, missingPoints []string) string {
	if len(missingPoints) == 0 {
		return "Could you share a bit more detail?"
	}

	points := strings.Join(missingPoints, ", ")
	prompt := "You are a friendly assistant chatting with the user. " +
		fmt.Sprintf("The user asked: %q. ", userQuery) +
		"You still need the following information: " + points + ". " +
		"Ask a single, polite question to collect that information. Keep it short, warm, and end with a question mark."

	if generated := c.safeGenerate(ctx, prompt); generated != "" {
		return generated
	}
	return fmt.Sprintf("I can take care of that for you. Could you share the %s?", strings.ToLower(points))
}

// TransformDocument reshapes document text per a content requirement such
// as "5 bullet points" or "summary". Returns the raw text unmodified when
// the model is unavailable.
func (c *Client) TransformDocument(ctx context.Context, text, requirement string) string {
	if !c.IsAvailable() {
		return text
	}

	prompt := buildTransformPrompt(text, requirement)
	if out := c.safeGenerate(ctx, prompt); out != "" {
		return out
	}
	return text
}

// GenerateSubject derives a subject line from the request and a body
// preview, with a fixed fallback.
func (c *Client) GenerateSubject(ctx context.Context, userQuery, body string) string {
	preview := body
	if len(preview) > 200 {
		preview = preview[:200]
	}
	prompt := "Based on this email request and content, suggest a professional email subject line:\n\n" +
		fmt.Sprintf("Request: %s\nContent preview: %s...\n\n", userQuery, preview) +
		"Generate a concise, professional subject line (max 8 words). Return only the subject line."

	if out := c.safeGenerate(ctx, prompt); out != "" {
		return strings.Trim(out, `"`)
	}
	return "Email Subject"
}

func buildTransformPrompt(text, requirement string) string {
	req := strings.ToLower(requirement)
	switch {
	case strings.Contains(req, "bullet"):
		n := firstNumber(req, "5")
		return fmt.Sprintf("Create %s professional bullet points from the following content for an email:\n\n%s\n\n"+
			"Format as:\n• Point 1\n• Point 2\netc.\n\nMake them concise, professional, and suitable for email communication.", n, text)
	case strings.Contains(req, "line"):
		n := firstNumber(req, "3")
		return fmt.Sprintf("Create a %s-line professional summary of the following content for an email:\n\n%s\n\n"+
			"Make it exactly %s lines, professional, concise, and suitable for email communication.", n, text, n)
	case strings.Contains(req, "brief"):
		return fmt.Sprintf("Create a brief, professional version of the following content for an email:\n\n%s\n\n"+
			"Make it very concise (1-2 paragraphs), professional tone, only the most important points.", text)
	case strings.Contains(req, "highlight"):
		return fmt.Sprintf("Extract the key highlights from the following content for an email:\n\n%s\n\n"+
			"Make it 3-4 key highlights, professional, focused on the most important achievements.", text)
	case strings.Contains(req, "overview"):
		return fmt.Sprintf("Create a professional overview from the following content for an email:\n\n%s\n\n"+
			"Make it a 1-2 paragraph introduction focused on background and key qualifications.", text)
	default:
		return fmt.Sprintf("Create a concise professional summary of the following content for an email:\n\n%s\n\n"+
			"Make it professional, engaging, 2-3 paragraphs max, and suitable for email communication.", text)
	}
}

func firstNumber(s, fallback string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return fallback
}

// extractJSON trims any prose wrapping around the first JSON object in a
// model reply. JSON mode usually makes this a no-op.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
