package chat

import (
	"github.com/bdobrica/Tasuki/internal/tasuki/command"
	"github.com/bdobrica/Tasuki/internal/tasuki/nlp"
)

// Request is one inbound chat turn. Everything except Message is optional:
// a missing SessionID starts a new session, a missing UserID falls back to
// the shared default account, and WorkspaceID / ProjectID carry the slugs
// of whatever the client UI currently has open so the session context can
// be seeded before the model is consulted.
type Request struct {
	Message        string            `json:"message"`
	SessionID      string            `json:"sessionId,omitempty"`
	UserID         string            `json:"userId,omitempty"`
	WorkspaceID    string            `json:"workspaceId,omitempty"`
	ProjectID      string            `json:"projectId,omitempty"`
	OrganizationID string            `json:"organizationId,omitempty"`
	History        []nlp.ChatMessage `json:"history,omitempty"`
}

// Response is the structured result of a chat turn. Success reports whether
// the turn completed, not whether an action was produced: a purely
// conversational reply is a success with no Action. When ActionChain is set
// it supersedes Action — the chain's steps must run in order and its final
// step equals Action.
type Response struct {
	Message     string                  `json:"message"`
	SessionID   string                  `json:"sessionId"`
	Action      *command.ActionCommand  `json:"action,omitempty"`
	ActionChain []command.ActionCommand `json:"actionChain,omitempty"`
	Success     bool                    `json:"success"`
	Error       string                  `json:"error,omitempty"`
}

// TestRequest carries candidate provider credentials for a connection test.
// The values are used for one in-flight call and never stored.
type TestRequest struct {
	APIKey string `json:"apiKey"`
	APIURL string `json:"apiUrl"`
	Model  string `json:"model"`
}

// TestResponse is the structured result of a connection test. It always has
// a value: a failed test sets Success false and fills Message and Error, it
// never surfaces as a transport error to the caller.
type TestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
