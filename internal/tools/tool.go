package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

// Agent defines the interface for all external tool collaborators. An
// Agent never returns a Go error from Execute; failures travel inside the
// ToolExecution so the executor can report per step without aborting.
type Agent interface {
	Type() contracts.ToolType
	Execute(ctx context.Context, action string, parameters map[string]any) contracts.ToolExecution
}

// Registry manages the set of configured tool agents.
type Registry struct {
	agents map[contracts.ToolType]Agent
}

func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[contracts.ToolType]Agent),
	}
}

func (r *Registry) Register(a Agent) {
	r.agents[a.Type()] = a
}

func (r *Registry) Get(t contracts.ToolType) (Agent, bool) {
	a, ok := r.agents[t]
	return a, ok
}

// Available returns the configured tool types in a fixed order.
func (r *Registry) Available() []contracts.ToolType {
	order := []contracts.ToolType{contracts.ToolGmail, contracts.ToolPipedrive, contracts.ToolCalendly, contracts.ToolGeneral}
	var out []contracts.ToolType
	for _, t := range order {
		if _, ok := r.agents[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// AvailableNames returns the configured tool names as strings, for the
// classifier's tool catalog.
func (r *Registry) AvailableNames() []string {
	var out []string
	for _, t := range r.Available() {
		out = append(out, string(t))
	}
	return out
}

// newExecutionID builds a timestamped execution id in the tool's namespace.
func newExecutionID(tool contracts.ToolType) string {
	return fmt.Sprintf("%s_%s", tool, time.Now().Format("20060102_150405.000"))
}

// failedExecution is the common shape for an execution that never reached
// the external service.
func failedExecution(tool contracts.ToolType, action string, parameters map[string]any, errMsg string) contracts.ToolExecution {
	return contracts.ToolExecution{
		ExecutionID: newExecutionID(tool),
		ToolType:    tool,
		Action:      action,
		Parameters:  parameters,
		Success:     false,
		Error:       errMsg,
	}
}
