package contracts

import "fmt"

// FailureKind classifies an error crossing a collaborator boundary.
type FailureKind string

const (
	FailureNotConfigured   FailureKind = "not_configured"
	FailureTransport       FailureKind = "transport_failed"
	FailureInvalidResponse FailureKind = "invalid_response"
)

// CollaboratorError is the only error shape external collaborators return
// to the core. Validation problems inside the dialogue never use it; those
// stay local as re-prompts.
type CollaboratorError struct {
	Collaborator string
	Kind         FailureKind
	Message      string
	Err          error
}

func (e *CollaboratorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Collaborator, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Collaborator, e.Kind, e.Message)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// NotConfigured builds a CollaboratorError for a missing credential or
// misconfigured collaborator.
func NotConfigured(collaborator, message string) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Kind: FailureNotConfigured, Message: message}
}

// TransportFailed wraps a network or process failure from a collaborator.
func TransportFailed(collaborator, message string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Kind: FailureTransport, Message: message, Err: err}
}

// InvalidResponse wraps a malformed or policy-violating collaborator reply.
func InvalidResponse(collaborator, message string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Kind: FailureInvalidResponse, Message: message, Err: err}
}
