package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

// PipedriveAgent manages CRM contacts through the Pipedrive REST API.
// When credentials are absent it returns simulated responses marked as
// such, so the rest of the pipeline can be exercised in demo mode.
type PipedriveAgent struct {
	credentials contracts.APICredentials
	client      *http.Client
	configured  bool
}

func NewPipedriveAgent(credentials contracts.APICredentials) *PipedriveAgent {
	return &PipedriveAgent{
		credentials: credentials,
		client:      &http.Client{Timeout: 15 * time.Second},
		configured:  credentials.HasPipedrive(),
	}
}

func (p *PipedriveAgent) Type() contracts.ToolType {
	return contracts.ToolPipedrive
}

func (p *PipedriveAgent) Execute(ctx context.Context, action string, parameters map[string]any) contracts.ToolExecution {
	switch action {
	case "create_contact":
		return p.createContact(ctx, parameters)
	case "update_contact":
		return p.updateContact(ctx, parameters)
	case "search_contacts":
		return p.searchContacts(ctx, parameters)
	case "list_contacts":
		return p.listContacts(ctx, parameters)
	default:
		return failedExecution(contracts.ToolPipedrive, action, parameters, fmt.Sprintf("Unknown Pipedrive action: %s", action))
	}
}

func (p *PipedriveAgent) createContact(ctx context.Context, parameters map[string]any) contracts.ToolExecution {
	executionID := newExecutionID(contracts.ToolPipedrive)

	name := stringParam(parameters, "name")
	email := stringParam(parameters, "email")
	if name == "" && email == "" {
		return failedExecution(contracts.ToolPipedrive, "create_contact", parameters, "Missing required parameter: name or email")
	}

	// Derive a display name from the email local part when missing.
	if name == "" {
		name = nameFromEmail(email)
	}

	phone := stringParam(parameters, "phone")
	notes := stringParam(parameters, "notes")

	if !p.configured {
		return p.simulated(executionID, "create_contact", parameters, map[string]any{
			"contact_id": "sim_" + executionID,
			"name":       name,
			"email":      email,
			"phone":      phone,
			"created_at": time.Now().Format(time.RFC3339),
		})
	}

	payload := map[string]any{"name": name}
	if email != "" {
		payload["email"] = []string{email}
	}
	if phone != "" {
		payload["phone"] = []string{phone}
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		} `json:"data"`
		Error string `json:"error"`
	}
	if err := p.call(ctx, http.MethodPost, "/v1/persons", nil, payload, &resp); err != nil {
		return failedExecution(contracts.ToolPipedrive, "create_contact", parameters, err.Error())
	}
	if !resp.Success {
		return failedExecution(contracts.ToolPipedrive, "create_contact", parameters, orDefault(resp.Error, "Unknown error creating contact"))
	}

	if notes != "" {
		p.addNote(ctx, resp.Data.ID.String(), notes)
	}

	return contracts.ToolExecution{
		ExecutionID: executionID,
		ToolType:    contracts.ToolPipedrive,
		Action:      "create_contact",
		Parameters:  parameters,
		Success:     true,
		Result: map[string]any{
			"contact_id":    resp.Data.ID.String(),
			"name":          resp.Data.Name,
			"email":         email,
			"phone":         phone,
			"created_at":    time.Now().Format(time.RFC3339),
			"pipedrive_url": fmt.Sprintf("%s/person/%s", p.credentials.PipedriveDomain, resp.Data.ID.String()),
		},
	}
}

func (p *PipedriveAgent) updateContact(ctx context.Context, parameters map[string]any) contracts.ToolExecution {
	executionID := newExecutionID(contracts.ToolPipedrive)

	contactID := stringParam(parameters, "contact_id")
	if contactID == "" {
		return failedExecution(contracts.ToolPipedrive, "update_contact", parameters, "Missing required parameter: contact_id")
	}

	payload := map[string]any{}
	var updatedFields []string
	if name := stringParam(parameters, "name"); name != "" {
		payload["name"] = name
		updatedFields = append(updatedFields, "name")
	}
	if email := stringParam(parameters, "email"); email != "" {
		payload["email"] = []string{email}
		updatedFields = append(updatedFields, "email")
	}
	if phone := stringParam(parameters, "phone"); phone != "" {
		payload["phone"] = []string{phone}
		updatedFields = append(updatedFields, "phone")
	}

	if !p.configured {
		return p.simulated(executionID, "update_contact", parameters, map[string]any{
			"contact_id":     contactID,
			"updated_fields": updatedFields,
			"updated_at":     time.Now().Format(time.RFC3339),
		})
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		} `json:"data"`
		Error string `json:"error"`
	}
	if err := p.call(ctx, http.MethodPut, "/v1/persons/"+url.PathEscape(contactID), nil, payload, &resp); err != nil {
		return failedExecution(contracts.ToolPipedrive, "update_contact", parameters, err.Error())
	}
	if !resp.Success {
		return failedExecution(contracts.ToolPipedrive, "update_contact", parameters, orDefault(resp.Error, "Unknown error updating contact"))
	}

	if notes := stringParam(parameters, "notes"); notes != "" {
		p.addNote(ctx, contactID, notes)
	}

	return contracts.ToolExecution{
		ExecutionID: executionID,
		ToolType:    contracts.ToolPipedrive,
		Action:      "update_contact",
		Parameters:  parameters,
		Success:     true,
		Result: map[string]any{
			"contact_id":     resp.Data.ID.String(),
			"name":           resp.Data.Name,
			"updated_fields": updatedFields,
			"updated_at":     time.Now().Format(time.RFC3339),
		},
	}
}

func (p *PipedriveAgent) searchContacts(ctx context.Context, parameters map[string]any) contracts.ToolExecution {
	executionID := newExecutionID(contracts.ToolPipedrive)

	query := stringParam(parameters, "query")
	if query == "" {
		return failedExecution(contracts.ToolPipedrive, "search_contacts", parameters, "Missing required parameter: query")
	}

	if !p.configured {
		return p.simulated(executionID, "search_contacts", parameters, map[string]any{
			"query": query,
			"contacts": []map[string]any{{
				"contact_id":   "sim_123",
				"name":         "Sample Contact for " + query,
				"email":        strings.ToLower(strings.ReplaceAll(query, " ", ".")) + "@example.com",
				"phone":        "+1-555-0123",
				"organization": "Sample Company",
			}},
			"total_results": 1,
		})
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Items []struct {
				Item struct {
					ID           json.Number `json:"id"`
					Name         string      `json:"name"`
					Emails       []string    `json:"emails"`
					Phones       []string    `json:"phones"`
					Organization *struct {
						Name string `json:"name"`
					} `json:"organization"`
				} `json:"item"`
			} `json:"items"`
		} `json:"data"`
		Error string `json:"error"`
	}
	params := url.Values{"term": {query}}
	if err := p.call(ctx, http.MethodGet, "/v1/persons/search", params, nil, &resp); err != nil {
		return failedExecution(contracts.ToolPipedrive, "search_contacts", parameters, err.Error())
	}
	if !resp.Success {
		return failedExecution(contracts.ToolPipedrive, "search_contacts", parameters, orDefault(resp.Error, "Search failed"))
	}

	var contactsList []map[string]any
	for _, item := range resp.Data.Items {
		person := item.Item
		contact := map[string]any{
			"contact_id": person.ID.String(),
			"name":       person.Name,
			"email":      first(person.Emails),
			"phone":      first(person.Phones),
		}
		if person.Organization != nil {
			contact["organization"] = person.Organization.Name
		}
		contactsList = append(contactsList, contact)
	}

	return contracts.ToolExecution{
		ExecutionID: executionID,
		ToolType:    contracts.ToolPipedrive,
		Action:      "search_contacts",
		Parameters:  parameters,
		Success:     true,
		Result: map[string]any{
			"query":         query,
			"contacts":      contactsList,
			"total_results": len(contactsList),
		},
	}
}

func (p *PipedriveAgent) listContacts(ctx context.Context, parameters map[string]any) contracts.ToolExecution {
	executionID := newExecutionID(contracts.ToolPipedrive)

	limit := 20
	if v, ok := parameters["limit"]; ok {
		switch n := v.(type) {
		case int:
			limit = n
		case float64:
			limit = int(n)
		}
	}

	if !p.configured {
		return p.simulated(executionID, "list_contacts", parameters, map[string]any{
			"contacts": []map[string]any{
				{"contact_id": "sim_1", "name": "John Doe", "email": "john.doe@example.com", "organization": "Acme Corp"},
				{"contact_id": "sim_2", "name": "Jane Smith", "email": "jane.smith@example.com", "organization": "Tech Solutions"},
			},
			"total_results": 2,
			"limit":         limit,
		})
	}

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			ID    json.Number `json:"id"`
			Name  string      `json:"name"`
			Email []struct {
				Value string `json:"value"`
			} `json:"email"`
			Phone []struct {
				Value string `json:"value"`
			} `json:"phone"`
			OrgName string `json:"org_name"`
		} `json:"data"`
		Error string `json:"error"`
	}
	if err := p.call(ctx, http.MethodGet, "/v1/persons", nil, nil, &resp); err != nil {
		return failedExecution(contracts.ToolPipedrive, "list_contacts", parameters, err.Error())
	}
	if !resp.Success {
		return failedExecution(contracts.ToolPipedrive, "list_contacts", parameters, orDefault(resp.Error, "Failed to list contacts"))
	}

	var contactsList []map[string]any
	for i, person := range resp.Data {
		if i >= limit {
			break
		}
		contact := map[string]any{
			"contact_id":   person.ID.String(),
			"name":         person.Name,
			"organization": person.OrgName,
		}
		if len(person.Email) > 0 {
			contact["email"] = person.Email[0].Value
		}
		if len(person.Phone) > 0 {
			contact["phone"] = person.Phone[0].Value
		}
		contactsList = append(contactsList, contact)
	}

	return contracts.ToolExecution{
		ExecutionID: executionID,
		ToolType:    contracts.ToolPipedrive,
		Action:      "list_contacts",
		Parameters:  parameters,
		Success:     true,
		Result: map[string]any{
			"contacts":      contactsList,
			"total_results": len(contactsList),
			"limit":         limit,
		},
	}
}

func (p *PipedriveAgent) addNote(ctx context.Context, contactID, content string) {
	payload := map[string]any{"content": content, "person_id": contactID}
	var resp struct {
		Success bool `json:"success"`
	}
	// Note creation is best-effort; a failure never fails the contact.
	_ = p.call(ctx, http.MethodPost, "/v1/notes", nil, payload, &resp)
}

func (p *PipedriveAgent) call(ctx context.Context, method, path string, query url.Values, payload any, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_token", p.credentials.PipedriveAPIToken)

	base := strings.TrimSuffix(p.credentials.PipedriveDomain, "/")
	if !strings.HasPrefix(base, "http") {
		base = "https://" + base
	}
	endpoint := base + path + "?" + query.Encode()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("Pipedrive API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Pipedrive API error (%d)", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *PipedriveAgent) simulated(executionID, action string, parameters map[string]any, result map[string]any) contracts.ToolExecution {
	result["simulated"] = true
	return contracts.ToolExecution{
		ExecutionID: executionID,
		ToolType:    contracts.ToolPipedrive,
		Action:      action,
		Parameters:  parameters,
		Success:     false,
		Result:      result,
		Error:       "Pipedrive client not available - simulated response",
	}
}

func nameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	local = strings.NewReplacer(".", " ", "_", " ").Replace(local)
	words := strings.Fields(local)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func first(values []string) string {
	if len(values) > 0 {
		return values[0]
	}
	return ""
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
