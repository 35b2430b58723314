// Package types contains the shared data types for the copilot engine.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Attachment references external content carried by a message. Two storage
// formats coexist: a bare string reference, and a structured
// {attachment, mimeType} pair. Both unmarshal into this type and both are
// equally valid on input.
type Attachment struct {
	URL      string
	MimeType string
}

// MarshalJSON writes the compact string form when no mime type is recorded,
// the structured form otherwise.
func (a Attachment) MarshalJSON() ([]byte, error) {
	if a.MimeType == "" {
		return json.Marshal(a.URL)
	}
	return json.Marshal(struct {
		Attachment string `json:"attachment"`
		MimeType   string `json:"mimeType"`
	}{a.URL, a.MimeType})
}

// UnmarshalJSON accepts both the string and the structured format.
func (a *Attachment) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.URL = s
		a.MimeType = ""
		return nil
	}

	var aux struct {
		Attachment string `json:"attachment"`
		MimeType   string `json:"mimeType"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("invalid attachment: %w", err)
	}
	a.URL = aux.Attachment
	a.MimeType = aux.MimeType
	return nil
}

// Empty reports whether the attachment carries no reference.
func (a Attachment) Empty() bool {
	return a.URL == ""
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	ID          string         `json:"id,omitempty"`
	Role        Role           `json:"role"`
	Content     string         `json:"content,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// HasPayload reports whether the message counts toward context: it must
// carry content or at least one non-empty attachment.
func (m *ChatMessage) HasPayload() bool {
	if m.Content != "" {
		return true
	}
	for _, a := range m.Attachments {
		if !a.Empty() {
			return true
		}
	}
	return false
}
