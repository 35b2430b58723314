package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/copilot-ai/copilot/internal/event"
	"github.com/copilot-ai/copilot/internal/logging"
	"github.com/copilot-ai/copilot/internal/prompt"
	"github.com/copilot-ai/copilot/internal/provider"
	"github.com/copilot-ai/copilot/internal/queue"
	"github.com/copilot-ai/copilot/pkg/types"
)

// cleanupIdleWindow is how long an empty session may sit untouched before
// the daily cleanup soft-deletes it.
const cleanupIdleWindow = 24 * time.Hour

// Service orchestrates session lifecycle atop the Store. All access to a
// session's message list goes through Get, which serializes callers per
// session id with an advisory lock.
type Service struct {
	store   *Store
	prompts *prompt.Registry
	factory *provider.Factory
	jobs    *queue.Queue
	bus     *event.Bus
	quota   types.QuotaConfig

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates the session service. jobs and bus may be nil; title
// generation and event publishing are then skipped.
func NewService(store *Store, prompts *prompt.Registry, factory *provider.Factory, jobs *queue.Queue, bus *event.Bus, quota types.QuotaConfig) *Service {
	return &Service{
		store:   store,
		prompts: prompts,
		factory: factory,
		jobs:    jobs,
		bus:     bus,
		quota:   quota,
		locks:   make(map[string]*sessionLock),
	}
}

// CreateOptions carries the fields for creating a session.
type CreateOptions struct {
	UserID          string
	WorkspaceID     string
	DocID           string
	PromptName      string
	Pinned          bool
	ReuseLatestChat bool
	Title           string
}

// Create validates the prompt against the requested session scope, enforces
// pin uniqueness for the (workspace, user) pair, and persists the session.
func (s *Service) Create(ctx context.Context, opts CreateOptions) (*types.SessionState, error) {
	p, err := s.prompts.Get(opts.PromptName)
	if err != nil {
		return nil, err
	}

	if err := validatePromptScope(p, opts.DocID, opts.Pinned); err != nil {
		return nil, err
	}
	if err := s.CheckQuota(ctx, opts.UserID); err != nil {
		return nil, err
	}

	if opts.Pinned {
		if err := s.store.UnpinAll(ctx, opts.UserID, opts.WorkspaceID); err != nil {
			return nil, err
		}
	}

	state, err := s.store.CreateWithPrompt(ctx, SessionSeed{
		UserID:      opts.UserID,
		WorkspaceID: opts.WorkspaceID,
		DocID:       opts.DocID,
		PromptName:  opts.PromptName,
		Pinned:      opts.Pinned,
		Title:       opts.Title,
	}, opts.ReuseLatestChat)
	if err != nil {
		return nil, err
	}

	s.publish(event.SessionCreated, event.SessionData{Session: state})
	return state, nil
}

// ForkOptions identifies the fork point.
type ForkOptions struct {
	SessionID string
	MessageID string
}

// Fork copies the source's messages up to and including the named assistant
// message into a new session parented on the source. Copied messages get
// fresh ids on persist.
func (s *Service) Fork(ctx context.Context, opts ForkOptions) (*types.SessionState, error) {
	src, err := s.store.Get(ctx, opts.SessionID)
	if err != nil {
		return nil, err
	}

	cut := -1
	for i, msg := range src.Messages {
		if msg.ID == opts.MessageID && msg.Role == types.RoleAssistant {
			cut = i
			break
		}
	}
	if cut < 0 {
		return nil, fmt.Errorf("%w: %s is not an assistant message in session %s", ErrMessageNotFound, opts.MessageID, opts.SessionID)
	}

	copied := make([]types.ChatMessage, cut+1)
	copy(copied, src.Messages[:cut+1])
	for i := range copied {
		copied[i].ID = ""
	}

	forked, err := s.store.Fork(ctx, SessionSeed{
		UserID:          src.UserID,
		WorkspaceID:     src.WorkspaceID,
		DocID:           src.DocID,
		ParentSessionID: src.ID,
		PromptName:      src.PromptName,
		Title:           src.Title,
		Messages:        copied,
	})
	if err != nil {
		return nil, err
	}

	s.publish(event.SessionCreated, event.SessionData{Session: forked})
	return forked, nil
}

// UpdateOptions carries a session patch. Nil fields are left untouched.
type UpdateOptions struct {
	SessionID  string
	PromptName *string
	DocID      *string
	Pinned     *bool
	Title      *string
}

// Update applies a patch. A patch that changes nothing is rejected with
// ErrInvalidInput; a prompt change is revalidated against the session's
// resulting scope.
func (s *Service) Update(ctx context.Context, opts UpdateOptions) (*types.SessionState, error) {
	state, err := s.store.Get(ctx, opts.SessionID)
	if err != nil {
		return nil, err
	}

	changed := false
	if opts.PromptName != nil && *opts.PromptName != state.PromptName {
		state.PromptName = *opts.PromptName
		changed = true
	}
	if opts.DocID != nil && *opts.DocID != state.DocID {
		state.DocID = *opts.DocID
		changed = true
	}
	if opts.Pinned != nil && *opts.Pinned != state.Pinned {
		state.Pinned = *opts.Pinned
		changed = true
	}
	if opts.Title != nil && *opts.Title != state.Title {
		state.Title = *opts.Title
		changed = true
	}

	if !changed {
		return nil, fmt.Errorf("%w: update changes nothing", ErrInvalidInput)
	}

	p, err := s.prompts.Get(state.PromptName)
	if err != nil {
		return nil, err
	}
	if err := validatePromptScope(p, state.DocID, state.Pinned); err != nil {
		return nil, err
	}

	if opts.Pinned != nil && *opts.Pinned {
		if err := s.store.UnpinAll(ctx, state.UserID, state.WorkspaceID); err != nil {
			return nil, err
		}
		state.Pinned = true
	}

	if err := s.store.Put(ctx, state); err != nil {
		return nil, err
	}

	s.publish(event.SessionUpdated, event.SessionData{Session: state})
	return state, nil
}

// GetState loads a session record without acquiring its lock. Use Get when
// the session will be mutated.
func (s *Service) GetState(ctx context.Context, sessionID string) (*types.SessionState, error) {
	return s.store.Get(ctx, sessionID)
}

// Get loads the full history and wraps it in a ChatSession. The caller must
// call Release when done; the release hook persists staged messages and, for
// non-action prompts, enqueues title generation.
func (s *Service) Get(ctx context.Context, sessionID string) (*ChatSession, error) {
	lock := s.acquire(sessionID)

	state, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.releaseLock(sessionID, lock)
		return nil, err
	}

	p, err := s.prompts.Get(state.PromptName)
	if err != nil {
		s.releaseLock(sessionID, lock)
		return nil, err
	}

	return &ChatSession{
		state:  state,
		prompt: p,
		store:  s.store,
		bus:    s.bus,
		onRelease: func(ctx context.Context) {
			defer s.releaseLock(sessionID, lock)

			if p.IsAction() || state.Title != "" || s.jobs == nil {
				return
			}
			if err := s.jobs.Add(ctx, JobGenerateTitle, TitleJobPayload{SessionID: sessionID}); err != nil {
				logging.Warn().Err(err).Str("session", sessionID).Msg("failed to enqueue title job")
			}
		},
	}, nil
}

// Delete soft-deletes a session.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	state, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}

	s.publish(event.SessionDeleted, event.SessionData{Session: state})
	return nil
}

// RevertLatestMessage truncates the stored message list at the last user
// message, see Store.RevertLatestMessage.
func (s *Service) RevertLatestMessage(ctx context.Context, sessionID string, removeUser bool) error {
	lock := s.acquire(sessionID)
	defer s.releaseLock(sessionID, lock)
	return s.store.RevertLatestMessage(ctx, sessionID, removeUser)
}

// List returns sessions matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*types.SessionState, error) {
	return s.store.List(ctx, filter)
}

// CheckQuota raises ErrQuotaExceeded when the user's stored message count
// is at or above the plan limit. Unlimited plans bypass the count entirely.
func (s *Service) CheckQuota(ctx context.Context, userID string) error {
	if s.quota.Unlimited || s.quota.MessageLimit <= 0 {
		return nil
	}

	used, err := s.store.CountUserMessages(ctx, userID)
	if err != nil {
		return err
	}
	if used >= s.quota.MessageLimit {
		return fmt.Errorf("%w: %d/%d messages used", ErrQuotaExceeded, used, s.quota.MessageLimit)
	}
	return nil
}

// JobCleanupSessions is the queue name of the daily cleanup job.
const JobCleanupSessions = "cleanup-empty-sessions"

// HandleCleanupJob is the daily cleanup job handler.
func (s *Service) HandleCleanupJob(ctx context.Context, _ []byte) error {
	cleaned, err := s.store.CleanupEmptySessions(ctx, time.Now().Add(-cleanupIdleWindow))
	if err != nil {
		return err
	}
	if cleaned > 0 {
		logging.Info().Int("sessions", cleaned).Msg("cleaned up sessions")
	}
	return nil
}

// validatePromptScope is the prompt/session-type policy table. Pinned
// sessions are workspace-wide conversations, so they take chat prompts
// only. Action prompts operate on a document and require one.
func validatePromptScope(p *prompt.Prompt, docID string, pinned bool) error {
	if pinned && p.IsAction() {
		return fmt.Errorf("%w: pinned sessions require a chat prompt", ErrInvalidInput)
	}
	if pinned && docID != "" {
		return fmt.Errorf("%w: pinned sessions are workspace scoped", ErrInvalidInput)
	}
	if p.IsAction() && docID == "" {
		return fmt.Errorf("%w: action prompt %q requires a doc", ErrInvalidInput, p.Name())
	}
	return nil
}

func (s *Service) publish(t event.Type, data any) {
	if s.bus != nil {
		s.bus.Publish(event.Event{Type: t, Data: data})
	}
}

// acquire takes the per-session advisory lock, creating it on first use.
func (s *Service) acquire(sessionID string) *sessionLock {
	s.mu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		s.locks[sessionID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (s *Service) releaseLock(sessionID string, lock *sessionLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, sessionID)
	}
	s.mu.Unlock()
}
