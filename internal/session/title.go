package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/copilot-ai/copilot/internal/event"
	"github.com/copilot-ai/copilot/internal/logging"
	"github.com/copilot-ai/copilot/internal/prompt"
	"github.com/copilot-ai/copilot/internal/provider"
	"github.com/copilot-ai/copilot/pkg/types"
)

// JobGenerateTitle is the queue name of the title generation job.
const JobGenerateTitle = "generate-session-title"

const titlePromptName = "Summary as title"

const maxTitleLength = 100

// TitleJobPayload is the queue payload for title generation.
type TitleJobPayload struct {
	SessionID string `json:"sessionId"`
}

// HandleTitleJob is the queue handler for title generation.
func (s *Service) HandleTitleJob(ctx context.Context, payload []byte) error {
	var job TitleJobPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("failed to decode title job: %w", err)
	}
	return s.GenerateSessionTitle(ctx, job.SessionID)
}

// GenerateSessionTitle titles a session from its transcript. Skips quietly
// when a title already exists or the transcript lacks a full user/assistant
// exchange. Failures are logged and returned so the queue's retry policy
// applies.
func (s *Service) GenerateSessionTitle(ctx context.Context, sessionID string) error {
	state, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if state.Title != "" {
		return nil
	}
	if !hasCompleteExchange(state.Messages) {
		return nil
	}

	p, err := s.prompts.Get(titlePromptName)
	if err != nil {
		return err
	}

	prov, cond, err := s.providerFor(p, types.OutputText)
	if err != nil {
		logging.Error().Err(err).Str("session", sessionID).Msg("title generation has no provider")
		return err
	}

	messages := append(p.Finish(nil, sessionID), types.ChatMessage{
		Role:    types.RoleUser,
		Content: transcript(state.Messages),
	})

	raw, err := prov.Text(ctx, cond, provider.ToSchemaMessages(messages), p.Config())
	if err != nil {
		logging.Error().Err(err).Str("session", sessionID).Msg("title generation failed")
		return err
	}

	title := cleanTitle(raw)
	if title == "" {
		return nil
	}

	if err := s.store.SetTitle(ctx, sessionID, title); err != nil {
		return err
	}

	s.publish(event.TitleGenerated, event.TitleGeneratedData{SessionID: sessionID, Title: title})
	return nil
}

// providerFor resolves a provider for the prompt's model, falling back
// through the prompt's optional models in order.
func (s *Service) providerFor(p *prompt.Prompt, output types.OutputType) (provider.Provider, types.ModelCondition, error) {
	models := append([]string{p.Model()}, p.OptionalModels()...)
	for _, model := range models {
		cond := types.ModelCondition{OutputType: output, ModelID: model}
		if prov := s.factory.GetProvider(cond); prov != nil {
			return prov, cond, nil
		}
	}
	return nil, types.ModelCondition{}, fmt.Errorf("%w: output=%s models=%v", provider.ErrNoProviderAvailable, output, models)
}

// hasCompleteExchange reports whether the transcript holds at least one
// user and one assistant turn.
func hasCompleteExchange(messages []types.ChatMessage) bool {
	var user, assistant bool
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleUser:
			user = true
		case types.RoleAssistant:
			assistant = true
		}
	}
	return user && assistant
}

// transcript flattens the conversation into prompt input.
func transcript(messages []types.ChatMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// cleanTitle reduces the model output to a single bounded line.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	for _, line := range strings.Split(title, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			title = line
			break
		}
	}
	title = strings.Trim(title, `"`)

	// Bound by runes, not bytes, so multi-byte titles never get split
	// mid-character.
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength-3]) + "..."
	}
	return title
}
