package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilot-ai/copilot/internal/storage"
	"github.com/copilot-ai/copilot/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(storage.New(t.TempDir()))
}

func TestStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateWithPrompt(ctx, SessionSeed{
		UserID:      "u-1",
		WorkspaceID: "ws-1",
		PromptName:  "Chat with assistant",
	}, false)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "ws-1", got.WorkspaceID)
	assert.Equal(t, "Chat with assistant", got.PromptName)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreReuseLatestChat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := SessionSeed{UserID: "u-1", WorkspaceID: "ws-1", PromptName: "Chat with assistant"}

	first, err := store.CreateWithPrompt(ctx, seed, false)
	require.NoError(t, err)

	reused, err := store.CreateWithPrompt(ctx, seed, true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, reused.ID)

	// A session with messages is not reusable.
	require.NoError(t, store.AppendMessages(ctx, first.ID, []types.ChatMessage{
		{ID: "m-1", Role: types.RoleUser, Content: "hi"},
	}, 1))

	fresh, err := store.CreateWithPrompt(ctx, seed, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
}

func TestStoreAppendMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateWithPrompt(ctx, SessionSeed{UserID: "u-1", PromptName: "Chat with assistant"}, false)
	require.NoError(t, err)

	staged := []types.ChatMessage{
		{ID: "m-1", Role: types.RoleUser, Content: "hello"},
		{ID: "m-2", Role: types.RoleAssistant, Content: "hi there"},
	}
	require.NoError(t, store.AppendMessages(ctx, created.ID, staged, 42))

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, 42, got.TokenCost)
}

func TestStoreRevertLatestMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateWithPrompt(ctx, SessionSeed{
		UserID:     "u-1",
		PromptName: "Chat with assistant",
		Messages: []types.ChatMessage{
			{Role: types.RoleUser, Content: "A"},
			{Role: types.RoleAssistant, Content: "B"},
			{Role: types.RoleUser, Content: "C"},
			{Role: types.RoleAssistant, Content: "D"},
		},
	}, false)
	require.NoError(t, err)

	require.NoError(t, store.RevertLatestMessage(ctx, created.ID, false))

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "C", got.Messages[2].Content)

	require.NoError(t, store.RevertLatestMessage(ctx, created.ID, true))

	got, err = store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "B", got.Messages[1].Content)
}

func TestStoreSoftDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateWithPrompt(ctx, SessionSeed{UserID: "u-1", PromptName: "Chat with assistant"}, false)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, created.ID))

	_, err = store.Get(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreCleanupEmptySessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stale, err := store.CreateWithPrompt(ctx, SessionSeed{UserID: "u-1", PromptName: "Chat with assistant"}, false)
	require.NoError(t, err)

	active, err := store.CreateWithPrompt(ctx, SessionSeed{
		UserID:     "u-1",
		PromptName: "Chat with assistant",
		Messages:   []types.ChatMessage{{Role: types.RoleUser, Content: "keep me"}},
	}, false)
	require.NoError(t, err)

	// Everything updated before this cutoff and still empty is stale.
	cleaned, err := store.CleanupEmptySessions(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)

	_, err = store.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Get(ctx, active.ID)
	assert.NoError(t, err)
}

func TestStoreCountUserMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateWithPrompt(ctx, SessionSeed{
		UserID:     "u-1",
		PromptName: "Chat with assistant",
		Messages: []types.ChatMessage{
			{Role: types.RoleUser, Content: "one"},
			{Role: types.RoleAssistant, Content: "reply"},
			{Role: types.RoleUser, Content: "two"},
		},
	}, false)
	require.NoError(t, err)

	_, err = store.CreateWithPrompt(ctx, SessionSeed{
		UserID:     "u-1",
		DocID:      "doc-1",
		PromptName: "Summarize",
		Messages:   []types.ChatMessage{{Role: types.RoleUser, Content: "three"}},
	}, false)
	require.NoError(t, err)

	count, err := store.CountUserMessages(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = store.CountUserMessages(ctx, "u-2")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStoreListFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateWithPrompt(ctx, SessionSeed{UserID: "u-1", WorkspaceID: "ws-1", PromptName: "Chat with assistant"}, false)
	require.NoError(t, err)
	_, err = store.CreateWithPrompt(ctx, SessionSeed{UserID: "u-1", WorkspaceID: "ws-2", PromptName: "Chat with assistant"}, false)
	require.NoError(t, err)
	_, err = store.CreateWithPrompt(ctx, SessionSeed{UserID: "u-2", WorkspaceID: "ws-1", PromptName: "Chat with assistant"}, false)
	require.NoError(t, err)

	sessions, err := store.List(ctx, ListFilter{UserID: "u-1"})
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	sessions, err = store.List(ctx, ListFilter{UserID: "u-1", WorkspaceID: "ws-2"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "ws-2", sessions[0].WorkspaceID)

	sessions, err = store.List(ctx, ListFilter{WorkspaceID: "ws-1"})
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
