package types

import "time"

// SessionType classifies what a session is scoped to. The type is derived
// from the session's fields, never stored directly.
type SessionType string

const (
	// SessionTypeWorkspace is a free-standing chat bound only to a workspace.
	SessionTypeWorkspace SessionType = "workspace"
	// SessionTypeDoc is a chat bound to a specific document.
	SessionTypeDoc SessionType = "doc"
	// SessionTypePinned is the one pinned chat per (workspace, user) pair.
	SessionTypePinned SessionType = "pinned"
)

// SessionState is the durable record of one conversation.
type SessionState struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	WorkspaceID     string        `json:"workspaceId,omitempty"`
	DocID           string        `json:"docId,omitempty"`
	ParentSessionID string        `json:"parentSessionId,omitempty"`
	PromptName      string        `json:"promptName"`
	Pinned          bool          `json:"pinned"`
	Title           string        `json:"title,omitempty"`
	Messages        []ChatMessage `json:"messages"`
	TokenCost       int           `json:"tokenCost"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	DeletedAt       *time.Time    `json:"deletedAt,omitempty"`
}

// Type derives the session type from the state's fields.
func (s *SessionState) Type() SessionType {
	if s.Pinned {
		return SessionTypePinned
	}
	if s.DocID != "" {
		return SessionTypeDoc
	}
	return SessionTypeWorkspace
}
