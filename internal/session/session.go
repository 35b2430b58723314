package session

import (
	"context"
	"time"

	"github.com/copilot-ai/copilot/internal/event"
	"github.com/copilot-ai/copilot/internal/prompt"
	"github.com/copilot-ai/copilot/pkg/types"
)

// DefaultMaxTokenSize caps the context window when the prompt does not
// configure its own completion budget.
const DefaultMaxTokenSize = 128 * 1024

// ChatSession wraps one loaded session state. It owns message staging,
// token-budget context windowing and the first-turn content merge. A
// ChatSession is acquired from the Service, used, and released; Release
// persists the staged suffix exactly once.
//
// The object is not safe for concurrent use. The Service serializes access
// per session id before handing one out.
type ChatSession struct {
	state  *types.SessionState
	prompt *prompt.Prompt
	store  *Store
	bus    *event.Bus

	staged    int
	truncated bool
	released  bool
	onRelease func(ctx context.Context)
}

// State exposes the wrapped session state.
func (s *ChatSession) State() *types.SessionState { return s.state }

// Prompt exposes the compiled prompt the session is bound to.
func (s *ChatSession) Prompt() *prompt.Prompt { return s.prompt }

// StagedCount reports how many messages are waiting to be persisted.
func (s *ChatSession) StagedCount() int { return s.staged }

// Push appends a message to the in-memory list and stages it for the next
// save. Action prompts are strictly single-turn: once any message exists, a
// further user message is rejected with ErrActionTaken.
func (s *ChatSession) Push(msg types.ChatMessage) error {
	if s.prompt.IsAction() && len(s.state.Messages) > 0 && msg.Role == types.RoleUser {
		return ErrActionTaken
	}

	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	s.state.Messages = append(s.state.Messages, msg)
	s.staged++
	return nil
}

// Pop removes and returns the last message, undoing a speculative push.
// Returns nil on an empty list.
func (s *ChatSession) Pop() *types.ChatMessage {
	n := len(s.state.Messages)
	if n == 0 {
		return nil
	}

	msg := s.state.Messages[n-1]
	s.state.Messages = s.state.Messages[:n-1]
	if s.staged > 0 {
		s.staged--
	} else {
		// Popping below the staged suffix shrinks persisted history.
		s.truncated = true
	}
	return &msg
}

// RevertLatestMessage truncates at the last user message. With removeUser
// set the user message goes too; otherwise it survives and only what the
// assistant produced after it is dropped.
func (s *ChatSession) RevertLatestMessage(removeUser bool) error {
	cut, err := revertPoint(s.state.Messages, removeUser)
	if err != nil {
		return err
	}

	if dropped := len(s.state.Messages) - cut; dropped > 0 {
		s.state.Messages = s.state.Messages[:cut]
		if s.staged > dropped {
			s.staged -= dropped
		} else {
			s.staged = 0
		}
		s.truncated = true
	}
	return nil
}

// TakeMessages returns the suffix of the conversation that fits the token
// budget, in chronological order. An action prompt carries no history and
// yields only the most recent message. Older messages that overflow the
// budget are silently dropped, never summarized.
func (s *ChatSession) TakeMessages() []types.ChatMessage {
	messages := s.state.Messages

	if s.prompt.IsAction() {
		if n := len(messages); n > 0 {
			return messages[n-1:]
		}
		return nil
	}

	maxTokenSize := s.prompt.MaxTokens(DefaultMaxTokenSize)
	total := s.prompt.TokenCost()

	end := len(messages)
	start := end
	for start > 0 {
		cost := s.prompt.Encode(messages[start-1].Content)
		if total+cost > maxTokenSize {
			break
		}
		total += cost
		start--
	}

	return messages[start:end]
}

// Finish renders the final prompt: template messages followed by the
// windowed history.
//
// First-turn special case: when the template accepts a content variable and
// the window holds no assistant message yet, the last user message's literal
// content and attachments are folded into the rendered template output
// instead of trailing it, with any older user messages spliced in front.
func (s *ChatSession) Finish(params map[string]any) []types.ChatMessage {
	windowed := s.TakeMessages()

	var last *types.ChatMessage
	if n := len(windowed); n > 0 {
		last = &windowed[n-1]
	}

	if s.shouldMergeContent(windowed, last) {
		merged := make(map[string]any, len(params)+len(last.Params)+1)
		for k, v := range params {
			merged[k] = v
		}
		for k, v := range last.Params {
			merged[k] = v
		}
		merged["content"] = last.Content

		rendered := s.prompt.Finish(merged, s.state.ID)
		if len(rendered) > 0 {
			attachments := make([]types.Attachment, 0, len(rendered[0].Attachments)+len(last.Attachments))
			attachments = append(attachments, rendered[0].Attachments...)
			attachments = append(attachments, last.Attachments...)
			rendered[0].Attachments = filterAttachments(attachments)
		}

		out := make([]types.ChatMessage, 0, len(windowed)+len(rendered))
		for _, msg := range windowed[:len(windowed)-1] {
			if msg.Role == types.RoleUser && msg.HasPayload() {
				out = append(out, msg)
			}
		}
		return append(out, rendered...)
	}

	renderParams := params
	if len(renderParams) == 0 && last != nil {
		renderParams = last.Params
	}

	rendered := s.prompt.Finish(renderParams, s.state.ID)
	out := make([]types.ChatMessage, 0, len(rendered)+len(windowed))
	out = append(out, rendered...)
	for _, msg := range windowed {
		if msg.HasPayload() {
			out = append(out, msg)
		}
	}
	return out
}

func (s *ChatSession) shouldMergeContent(windowed []types.ChatMessage, last *types.ChatMessage) bool {
	if last == nil || last.Content == "" {
		return false
	}
	if !s.prompt.AcceptsParam("content") {
		return false
	}
	for _, msg := range windowed {
		if msg.Role == types.RoleAssistant {
			return false
		}
	}
	return true
}

// Save persists what changed since the last save: normally just the staged
// suffix, or the full document after a truncating operation.
func (s *ChatSession) Save(ctx context.Context) error {
	if s.truncated {
		s.state.TokenCost = s.totalTokenCost()
		if err := s.store.Put(ctx, s.state); err != nil {
			return err
		}
		s.truncated = false
		s.staged = 0
		return nil
	}

	if s.staged == 0 {
		return nil
	}

	staged := s.state.Messages[len(s.state.Messages)-s.staged:]
	delta := 0
	for _, msg := range staged {
		delta += s.prompt.Encode(msg.Content)
	}

	if err := s.store.AppendMessages(ctx, s.state.ID, staged, delta); err != nil {
		return err
	}
	s.state.TokenCost += delta

	if s.bus != nil {
		for i := range staged {
			s.bus.Publish(event.Event{
				Type: event.MessagePushed,
				Data: event.MessagePushedData{SessionID: s.state.ID, Message: &staged[i]},
			})
		}
	}

	s.staged = 0
	return nil
}

// Release saves staged messages and runs the release hook. Safe to call
// more than once; only the first call does work.
func (s *ChatSession) Release(ctx context.Context) error {
	if s.released {
		return nil
	}
	s.released = true

	err := s.Save(ctx)
	if s.onRelease != nil {
		s.onRelease(ctx)
	}
	return err
}

func (s *ChatSession) totalTokenCost() int {
	total := 0
	for _, msg := range s.state.Messages {
		total += s.prompt.Encode(msg.Content)
	}
	return total
}

func filterAttachments(attachments []types.Attachment) []types.Attachment {
	out := attachments[:0]
	for _, a := range attachments {
		if !a.Empty() {
			out = append(out, a)
		}
	}
	return out
}
