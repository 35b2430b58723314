package event

import "github.com/copilot-ai/copilot/pkg/types"

// SessionData accompanies session.created / session.updated /
// session.deleted events.
type SessionData struct {
	Session *types.SessionState `json:"session"`
}

// MessagePushedData accompanies message.pushed events.
type MessagePushedData struct {
	SessionID string             `json:"sessionId"`
	Message   *types.ChatMessage `json:"message"`
}

// TitleGeneratedData accompanies title.generated events.
type TitleGeneratedData struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
}

// TranscriptionData accompanies transcription.finished / transcription.failed
// events.
type TranscriptionData struct {
	JobID     string `json:"jobId"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WorkflowData accompanies workflow.finished / workflow.failed events.
type WorkflowData struct {
	Graph  string `json:"graph"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}
