package governance

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request contains the context of a tool dispatch to be evaluated.
type Request struct {
	Tool       contracts.ToolType
	Action     string
	Parameters map[string]any
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates tool dispatches against a set of rules before the
// executor calls out.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine is a basic implementation of PolicyEngine.
type DefaultPolicyEngine struct {
	DeniedTools     map[contracts.ToolType]bool
	DeniedActions   map[string]bool
	DeniedParamExpr []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedTools:     make(map[contracts.ToolType]bool),
		DeniedActions:   make(map[string]bool),
		DeniedParamExpr: make([]*regexp.Regexp, 0),
	}
}

func (e *DefaultPolicyEngine) DenyTool(tool contracts.ToolType) {
	e.DeniedTools[tool] = true
}

func (e *DefaultPolicyEngine) DenyAction(action string) {
	e.DeniedActions[action] = true
}

// DenyParameters blocks any dispatch whose stringified parameter values
// match the pattern (e.g. a blocked recipient domain).
func (e *DefaultPolicyEngine) DenyParameters(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedParamExpr = append(e.DeniedParamExpr, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.DeniedTools[req.Tool] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Tool '%s' is restricted by system policy", req.Tool),
		}, nil
	}

	if e.DeniedActions[req.Action] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Action '%s' is restricted by system policy", req.Action),
		}, nil
	}

	for _, re := range e.DeniedParamExpr {
		for key, value := range req.Parameters {
			text := fmt.Sprintf("%v", value)
			if re.MatchString(text) {
				return Result{
					Effect: EffectDeny,
					Reason: fmt.Sprintf("Parameter '%s' matches restricted pattern: %s", key, re.String()),
				}, nil
			}
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}
