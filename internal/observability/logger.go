package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeTaskStarted       EventType = "task_started"
	EventTypeTaskCompleted     EventType = "task_completed"
	EventTypeTaskFailed        EventType = "task_failed"
	EventTypeUserInputRequired EventType = "user_input_required"
	EventTypeDegraded          EventType = "degraded"
	EventTypePolicyCheck       EventType = "policy_check"
	EventTypeToolCall          EventType = "tool_call"
	EventTypeToolResult        EventType = "tool_result"
	EventTypeReview            EventType = "review"
	EventTypeLLM               EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	ChatID    string    `json:"chat_id,omitempty"`
	PlanID    string    `json:"plan_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging and doubles as the process-wide
// notifier: lifecycle events land both on stdout and in the audit file.
type Logger struct {
	auditLogPath string
	maxSize      int64
}

func NewLogger(dataDir string) *Logger {
	return &Logger{
		auditLogPath: filepath.Join(dataDir, "logs", "events.jsonl"),
		maxSize:      10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout and appends lifecycle events
// to the audit file.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	switch evt.Type {
	case EventTypeTaskStarted, EventTypeTaskCompleted, EventTypeTaskFailed, EventTypeUserInputRequired:
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.auditLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.auditLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.auditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.auditLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.auditLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) Notify(eventType EventType, chatID, planID, message string) {
	l.Log(Event{Type: eventType, ChatID: chatID, PlanID: planID, Message: message})
}

func (l *Logger) LogDegraded(chatID, reason string) {
	l.Log(Event{
		Type:    EventTypeDegraded,
		ChatID:  chatID,
		Message: reason,
	})
}

func (l *Logger) LogToolCall(chatID, planID string, tool, action string) {
	l.Log(Event{
		Type:   EventTypeToolCall,
		ChatID: chatID,
		PlanID: planID,
		Data: map[string]string{
			"tool":   tool,
			"action": action,
		},
	})
}

func (l *Logger) LogToolResult(chatID, planID string, tool string, success bool, errMsg string) {
	l.Log(Event{
		Type:   EventTypeToolResult,
		ChatID: chatID,
		PlanID: planID,
		Data: map[string]any{
			"tool":    tool,
			"success": success,
			"error":   errMsg,
		},
	})
}

func (l *Logger) LogReview(chatID, planID string, score float64, approved bool, issues []string) {
	l.Log(Event{
		Type:   EventTypeReview,
		ChatID: chatID,
		PlanID: planID,
		Data: map[string]any{
			"score":    score,
			"approved": approved,
			"issues":   issues,
		},
	})
}

func (l *Logger) LogPolicyCheck(chatID string, tool string, allowed bool, reason string) {
	l.Log(Event{
		Type:   EventTypePolicyCheck,
		ChatID: chatID,
		Data: map[string]any{
			"tool":    tool,
			"allowed": allowed,
			"reason":  reason,
		},
	})
}
