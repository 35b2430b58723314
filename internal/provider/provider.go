// Package provider abstracts LLM vendors behind a capability-typed interface
// and a factory that selects a backend for a (capability, model) pair.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/copilot-ai/copilot/pkg/types"
)

// ErrMalformedOutput is returned when a structured completion does not parse
// as JSON. It is not retryable: the same prompt yields the same shape.
var ErrMalformedOutput = errors.New("malformed structured output")

// Provider is one concrete LLM vendor integration.
type Provider interface {
	// Type returns the vendor tag (e.g. "anthropic", "gemini").
	Type() string

	// Name returns the human-readable vendor name.
	Name() string

	// Capabilities returns the output types this vendor can produce.
	Capabilities() []types.OutputType

	// Models returns the models this vendor can serve.
	Models() []types.Model

	// Text generates a complete text response.
	Text(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (string, error)

	// StreamText generates a streaming text response. The stream is finite
	// and not restartable.
	StreamText(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (*TextStream, error)

	// Structured generates a JSON text response, validated before return.
	Structured(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (string, error)
}

// TextStream wraps an Eino stream reader.
type TextStream struct {
	reader *schema.StreamReader[*schema.Message]
}

// NewTextStream creates a stream from an Eino reader.
func NewTextStream(reader *schema.StreamReader[*schema.Message]) *TextStream {
	return &TextStream{reader: reader}
}

// Recv receives the next chunk. io.EOF signals a clean end of stream.
func (s *TextStream) Recv() (*schema.Message, error) {
	return s.reader.Recv()
}

// Close releases the stream.
func (s *TextStream) Close() {
	s.reader.Close()
}

// ToSchemaMessages converts chat messages to Eino format. Attachment
// references are appended to the message text; providers that support
// multimodal input resolve them on their side.
func ToSchemaMessages(messages []types.ChatMessage) []*schema.Message {
	result := make([]*schema.Message, 0, len(messages))

	for _, msg := range messages {
		role := schema.Assistant
		switch msg.Role {
		case types.RoleUser:
			role = schema.User
		case types.RoleSystem:
			role = schema.System
		}

		content := msg.Content
		for _, a := range msg.Attachments {
			if a.Empty() {
				continue
			}
			if content != "" {
				content += "\n"
			}
			content += "[attachment] " + a.URL
		}

		result = append(result, &schema.Message{Role: role, Content: content})
	}

	return result
}

// validateStructured strips markdown fences and checks the payload is JSON.
func validateStructured(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	if !json.Valid([]byte(text)) {
		return "", fmt.Errorf("%w: %.80q", ErrMalformedOutput, text)
	}
	return text, nil
}
