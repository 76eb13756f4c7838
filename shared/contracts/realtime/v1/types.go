// Package v1 defines the ScholarBridge realtime protocol v1 contract.
//
// This package is intentionally stable and dependency-light.
// It is shared between server and clients to keep the wire protocol authoritative.
// Frame shapes are persisted in client code and migration tooling and must not
// change without a version bump.
package v1

import "encoding/json"

// Frame type constants (wire-stable).
const (
	// TypeAuthenticate binds a connection to a user (client -> server).
	TypeAuthenticate = "authenticate"
	// TypeAuthenticated acknowledges a successful authenticate frame (server -> client).
	TypeAuthenticated = "authenticated"

	// TypeWelcome is sent once on connect (server -> client).
	TypeWelcome = "welcome"

	// TypeNewComment broadcasts a signed comment event (server -> authenticated clients).
	TypeNewComment = "new-comment"

	// TypeError is a generic error frame (server -> client).
	TypeError = "error"
)

// WelcomeFrame is sent immediately after a connection is admitted.
type WelcomeFrame struct {
	Type         string `json:"type"`
	Message      string `json:"message"`
	RequiresAuth bool   `json:"requiresAuth"`
}

// AuthenticatedFrame acknowledges a successful authenticate frame.
type AuthenticatedFrame struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
}

// ErrorFrame is a generic error response.
type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// CommentEventFrame carries a signed comment event.
//
// Signature covers {type, payloadId, subjectId, timestamp} only, never the full
// comment body, so the signed surface stays stable as the payload shape evolves.
type CommentEventFrame struct {
	Type      string          `json:"type"`
	ContentID int64           `json:"contentId"`
	Comment   json.RawMessage `json:"comment"`
	Timestamp int64           `json:"timestamp"`
	Signature string          `json:"signature"`
}

// NewWelcome builds the canonical welcome frame.
func NewWelcome(message string) WelcomeFrame {
	return WelcomeFrame{Type: TypeWelcome, Message: message, RequiresAuth: true}
}

// NewAuthenticated builds the canonical authenticate acknowledgement.
func NewAuthenticated() AuthenticatedFrame {
	return AuthenticatedFrame{Type: TypeAuthenticated, Success: true}
}

// NewError builds an error frame with a client-safe message.
func NewError(msg string) ErrorFrame {
	return ErrorFrame{Type: TypeError, Error: msg}
}
