package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

const defaultEventDuration = 30 * time.Minute

// CalendlyAgent looks up open meeting slots through the Calendly API.
type CalendlyAgent struct {
	credentials contracts.APICredentials
	client      *http.Client

	mu        sync.Mutex
	durations map[string]time.Duration
}

func NewCalendlyAgent(credentials contracts.APICredentials) *CalendlyAgent {
	return &CalendlyAgent{
		credentials: credentials,
		client:      &http.Client{Timeout: 10 * time.Second},
		durations:   make(map[string]time.Duration),
	}
}

func (c *CalendlyAgent) Type() contracts.ToolType {
	return contracts.ToolCalendly
}

func (c *CalendlyAgent) Execute(ctx context.Context, action string, parameters map[string]any) contracts.ToolExecution {
	switch action {
	case "list_available_slots":
		return c.listAvailableSlots(ctx, parameters)
	default:
		return failedExecution(contracts.ToolCalendly, action, parameters, fmt.Sprintf("Unknown Calendly action: %s", action))
	}
}

func (c *CalendlyAgent) listAvailableSlots(ctx context.Context, parameters map[string]any) contracts.ToolExecution {
	executionID := newExecutionID(contracts.ToolCalendly)

	if c.credentials.CalendlyToken == "" {
		return failedExecution(contracts.ToolCalendly, "list_available_slots", parameters,
			"Calendly API token is not configured. Set CALENDLY_API_KEY to enable scheduling.")
	}
	if c.credentials.CalendlyEventTypeUUID == "" {
		return failedExecution(contracts.ToolCalendly, "list_available_slots", parameters,
			"Calendly event type is not configured. Set CALENDLY_EVENT_TYPE_UUID to enable scheduling.")
	}

	day, err := resolveDay(stringParam(parameters, "date"), time.Now())
	if err != nil {
		return failedExecution(contracts.ToolCalendly, "list_available_slots", parameters, err.Error())
	}

	limit := 5
	if v, ok := parameters["limit"]; ok {
		switch n := v.(type) {
		case int:
			limit = n
		case float64:
			limit = int(n)
		}
	}

	duration := c.eventDuration(ctx, c.credentials.CalendlyEventTypeUUID)

	start := day
	if now := time.Now(); start.Before(now) {
		start = now
	}
	end := day.Add(24 * time.Hour)

	slots, err := c.fetchSlots(ctx, c.credentials.CalendlyEventTypeUUID, start, end)
	if err != nil {
		return failedExecution(contracts.ToolCalendly, "list_available_slots", parameters,
			fmt.Sprintf("Failed to fetch availability: %v", err))
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	if len(slots) > limit {
		slots = slots[:limit]
	}

	var formatted []map[string]any
	for _, slot := range slots {
		formatted = append(formatted, map[string]any{
			"start_time":       slot.Format(time.RFC3339),
			"end_time":         slot.Add(duration).Format(time.RFC3339),
			"display":          slot.Local().Format("Mon Jan 2, 3:04 PM"),
			"duration_minutes": int(duration.Minutes()),
		})
	}

	result := map[string]any{
		"date":        day.Format("2006-01-02"),
		"slots":       formatted,
		"total_slots": len(formatted),
	}
	if c.credentials.CalendlySchedulingLink != "" {
		result["scheduling_link"] = c.credentials.CalendlySchedulingLink
	}

	return contracts.ToolExecution{
		ExecutionID: executionID,
		ToolType:    contracts.ToolCalendly,
		Action:      "list_available_slots",
		Parameters:  parameters,
		Success:     true,
		Result:      result,
	}
}

// eventDuration resolves the configured event type's length, caching per
// UUID so repeated lookups stay off the network.
func (c *CalendlyAgent) eventDuration(ctx context.Context, eventTypeUUID string) time.Duration {
	c.mu.Lock()
	if d, ok := c.durations[eventTypeUUID]; ok {
		c.mu.Unlock()
		return d
	}
	c.mu.Unlock()

	duration := defaultEventDuration
	var resp struct {
		Resource struct {
			Duration int `json:"duration"`
		} `json:"resource"`
	}
	if err := c.call(ctx, "https://api.calendly.com/event_types/"+url.PathEscape(eventTypeUUID), nil, &resp); err == nil && resp.Resource.Duration > 0 {
		duration = time.Duration(resp.Resource.Duration) * time.Minute
	}

	c.mu.Lock()
	c.durations[eventTypeUUID] = duration
	c.mu.Unlock()
	return duration
}

func (c *CalendlyAgent) fetchSlots(ctx context.Context, eventTypeUUID string, start, end time.Time) ([]time.Time, error) {
	params := url.Values{
		"event_type": {"https://api.calendly.com/event_types/" + eventTypeUUID},
		"start_time": {start.UTC().Format(time.RFC3339)},
		"end_time":   {end.UTC().Format(time.RFC3339)},
	}

	var resp struct {
		Collection []struct {
			Status    string `json:"status"`
			StartTime string `json:"start_time"`
		} `json:"collection"`
	}
	if err := c.call(ctx, "https://api.calendly.com/event_type_available_times?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	var slots []time.Time
	for _, item := range resp.Collection {
		if item.Status != "available" {
			continue
		}
		t, err := time.Parse(time.RFC3339, item.StartTime)
		if err != nil {
			continue
		}
		slots = append(slots, t)
	}
	return slots, nil
}

func (c *CalendlyAgent) call(ctx context.Context, endpoint string, _ url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.credentials.CalendlyToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("Calendly API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Calendly API error (%d)", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// resolveDay maps a spoken date reference to a concrete day at midnight
// local time. Past dates are rejected rather than silently shifted.
func resolveDay(raw string, now time.Time) (time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.Add(24 * time.Hour), nil
	}

	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("Could not understand date %q. Use today, tomorrow, or YYYY-MM-DD.", raw)
	}
	if day.Before(today) {
		return time.Time{}, fmt.Errorf("Cannot look up availability for a past date (%s).", day.Format("2006-01-02"))
	}
	return day, nil
}
