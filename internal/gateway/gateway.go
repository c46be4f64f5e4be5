// Package gateway holds the user-facing front ends. Each gateway feeds
// user turns into the assistant and renders replies; the assistant never
// knows which surface it is talking to.
package gateway

import "context"

// Responder is the assistant-side contract a gateway drives.
type Responder interface {
	HandleTurn(ctx context.Context, chatID string, input string) string
}

// Messenger is a running gateway.
type Messenger interface {
	Start(ctx context.Context) error
	Send(chatID string, text string) error
	Stop() error
}
