package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/copilot-ai/copilot/internal/storage"
	"github.com/copilot-ai/copilot/pkg/types"
)

// cleanupGraceWindow is how long a soft-deleted session survives before it
// is physically removed.
const cleanupGraceWindow = 30 * 24 * time.Hour

// SessionSeed carries the fields needed to create a session record.
type SessionSeed struct {
	UserID          string
	WorkspaceID     string
	DocID           string
	ParentSessionID string
	PromptName      string
	Pinned          bool
	Title           string
	Messages        []types.ChatMessage
}

// ListFilter narrows a session listing.
type ListFilter struct {
	UserID      string
	WorkspaceID string
	DocID       string
	Pinned      *bool
	PromptName  string
}

// Store persists session state as JSON documents keyed by
// ["session", userID, sessionID]. Messages live inline in the session
// document and are appended in bulk on save.
type Store struct {
	backend *storage.Store
}

// NewStore creates a session store over the storage backend.
func NewStore(backend *storage.Store) *Store {
	return &Store{backend: backend}
}

// Get retrieves a session by id. Soft-deleted sessions are treated as
// missing.
func (s *Store) Get(ctx context.Context, sessionID string) (*types.SessionState, error) {
	state, err := s.getAny(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.DeletedAt != nil {
		return nil, storage.ErrNotFound
	}
	return state, nil
}

// getAny retrieves a session regardless of deletion state.
func (s *Store) getAny(ctx context.Context, sessionID string) (*types.SessionState, error) {
	users, err := s.backend.List(ctx, []string{"session"})
	if err != nil {
		return nil, err
	}

	for _, userID := range users {
		var state types.SessionState
		if err := s.backend.Get(ctx, []string{"session", userID, sessionID}, &state); err == nil {
			return &state, nil
		}
	}
	return nil, storage.ErrNotFound
}

// Put writes a session back, refreshing its update timestamp.
func (s *Store) Put(ctx context.Context, state *types.SessionState) error {
	state.UpdatedAt = time.Now()
	if err := s.backend.Put(ctx, s.key(state), state); err != nil {
		return fmt.Errorf("failed to save session %s: %w", state.ID, err)
	}
	return nil
}

// CreateWithPrompt creates a session from the seed. When reuseLatestChat is
// set and an equivalent empty session already exists, that session is
// returned instead of creating a duplicate.
func (s *Store) CreateWithPrompt(ctx context.Context, seed SessionSeed, reuseLatestChat bool) (*types.SessionState, error) {
	if reuseLatestChat {
		if existing := s.findReusable(ctx, seed); existing != nil {
			return existing, nil
		}
	}

	now := time.Now()
	state := &types.SessionState{
		ID:              newID(),
		UserID:          seed.UserID,
		WorkspaceID:     seed.WorkspaceID,
		DocID:           seed.DocID,
		ParentSessionID: seed.ParentSessionID,
		PromptName:      seed.PromptName,
		Pinned:          seed.Pinned,
		Title:           seed.Title,
		Messages:        seed.Messages,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range state.Messages {
		if state.Messages[i].ID == "" {
			state.Messages[i].ID = newID()
		}
	}

	if err := s.backend.Put(ctx, s.key(state), state); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return state, nil
}

// Fork creates a new session branching from a parent. The seed must carry
// the copied message prefix and the parent session id.
func (s *Store) Fork(ctx context.Context, seed SessionSeed) (*types.SessionState, error) {
	if seed.ParentSessionID == "" {
		return nil, fmt.Errorf("%w: fork requires a parent session", ErrInvalidInput)
	}
	return s.CreateWithPrompt(ctx, seed, false)
}

// AppendMessages appends staged messages to the stored document under the
// session's file lock. Only the suffix travels; the history already stored
// is not rewritten by the caller.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, staged []types.ChatMessage, tokenDelta int) error {
	if len(staged) == 0 {
		return nil
	}

	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	return s.backend.Update(ctx, s.key(state), func(data json.RawMessage) (any, error) {
		var current types.SessionState
		if err := json.Unmarshal(data, &current); err != nil {
			return nil, err
		}
		current.Messages = append(current.Messages, staged...)
		current.TokenCost += tokenDelta
		current.UpdatedAt = time.Now()
		return &current, nil
	})
}

// RevertLatestMessage truncates the session's message list at the last
// user-authored message. With removeUser set, the user message itself is
// dropped too; otherwise everything after it is dropped.
func (s *Store) RevertLatestMessage(ctx context.Context, sessionID string, removeUser bool) error {
	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	return s.backend.Update(ctx, s.key(state), func(data json.RawMessage) (any, error) {
		var current types.SessionState
		if err := json.Unmarshal(data, &current); err != nil {
			return nil, err
		}

		cut, err := revertPoint(current.Messages, removeUser)
		if err != nil {
			return nil, err
		}
		current.Messages = current.Messages[:cut]
		current.UpdatedAt = time.Now()
		return &current, nil
	})
}

// SetTitle stores a generated title.
func (s *Store) SetTitle(ctx context.Context, sessionID, title string) error {
	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	state.Title = title
	return s.Put(ctx, state)
}

// Delete soft-deletes a session. The record survives until cleanup's grace
// window expires.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	now := time.Now()
	state.DeletedAt = &now
	return s.Put(ctx, state)
}

// UnpinAll clears the pinned flag on every session the user has pinned in
// the workspace.
func (s *Store) UnpinAll(ctx context.Context, userID, workspaceID string) error {
	pinned := true
	sessions, err := s.List(ctx, ListFilter{UserID: userID, WorkspaceID: workspaceID, Pinned: &pinned})
	if err != nil {
		return err
	}

	for _, state := range sessions {
		state.Pinned = false
		if err := s.Put(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

// CleanupEmptySessions soft-deletes sessions with no messages that have
// been idle since before the cutoff, and physically removes soft-deleted
// sessions older than the grace window. Returns how many sessions were
// touched.
func (s *Store) CleanupEmptySessions(ctx context.Context, before time.Time) (int, error) {
	users, err := s.backend.List(ctx, []string{"session"})
	if err != nil {
		return 0, err
	}

	now := time.Now()
	cleaned := 0

	for _, userID := range users {
		var states []*types.SessionState
		err := s.backend.Scan(ctx, []string{"session", userID}, func(_ string, data json.RawMessage) error {
			var state types.SessionState
			if err := json.Unmarshal(data, &state); err != nil {
				return err
			}
			states = append(states, &state)
			return nil
		})
		if err != nil {
			return cleaned, err
		}

		for _, state := range states {
			switch {
			case state.DeletedAt != nil && now.Sub(*state.DeletedAt) > cleanupGraceWindow:
				if err := s.backend.Delete(ctx, []string{"session", userID, state.ID}); err != nil {
					return cleaned, err
				}
				cleaned++
			case state.DeletedAt == nil && len(state.Messages) == 0 && state.UpdatedAt.Before(before):
				state.DeletedAt = &now
				if err := s.Put(ctx, state); err != nil {
					return cleaned, err
				}
				cleaned++
			}
		}
	}

	return cleaned, nil
}

// CountUserMessages counts user-authored messages across the user's live
// sessions.
func (s *Store) CountUserMessages(ctx context.Context, userID string) (int, error) {
	count := 0
	err := s.backend.Scan(ctx, []string{"session", userID}, func(_ string, data json.RawMessage) error {
		var state types.SessionState
		if err := json.Unmarshal(data, &state); err != nil {
			return err
		}
		if state.DeletedAt != nil {
			return nil
		}
		for _, msg := range state.Messages {
			if msg.Role == types.RoleUser {
				count++
			}
		}
		return nil
	})
	return count, err
}

// List returns live sessions matching the filter, most recently updated
// first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*types.SessionState, error) {
	users := []string{filter.UserID}
	if filter.UserID == "" {
		all, err := s.backend.List(ctx, []string{"session"})
		if err != nil {
			return nil, err
		}
		users = all
	}

	var sessions []*types.SessionState
	for _, userID := range users {
		err := s.backend.Scan(ctx, []string{"session", userID}, func(_ string, data json.RawMessage) error {
			var state types.SessionState
			if err := json.Unmarshal(data, &state); err != nil {
				return err
			}
			if matchesFilter(&state, filter) {
				sessions = append(sessions, &state)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sortByUpdatedDesc(sessions)
	return sessions, nil
}

func matchesFilter(state *types.SessionState, filter ListFilter) bool {
	if state.DeletedAt != nil {
		return false
	}
	if filter.WorkspaceID != "" && state.WorkspaceID != filter.WorkspaceID {
		return false
	}
	if filter.DocID != "" && state.DocID != filter.DocID {
		return false
	}
	if filter.PromptName != "" && state.PromptName != filter.PromptName {
		return false
	}
	if filter.Pinned != nil && state.Pinned != *filter.Pinned {
		return false
	}
	return true
}

// findReusable returns the latest empty session equivalent to the seed.
func (s *Store) findReusable(ctx context.Context, seed SessionSeed) *types.SessionState {
	pinned := seed.Pinned
	sessions, err := s.List(ctx, ListFilter{
		UserID:      seed.UserID,
		WorkspaceID: seed.WorkspaceID,
		DocID:       seed.DocID,
		PromptName:  seed.PromptName,
		Pinned:      &pinned,
	})
	if err != nil {
		return nil
	}

	for _, state := range sessions {
		if len(state.Messages) == 0 {
			return state
		}
	}
	return nil
}

func (s *Store) key(state *types.SessionState) []string {
	return []string{"session", state.UserID, state.ID}
}

func sortByUpdatedDesc(sessions []*types.SessionState) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}

// revertPoint finds the truncation index for revert. Errors with
// ErrMessageNotFound when no user message exists.
func revertPoint(messages []types.ChatMessage, removeUser bool) (int, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			if removeUser {
				return i, nil
			}
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: no user message to revert to", ErrMessageNotFound)
}

func newID() string {
	return ulid.Make().String()
}
