package session

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilot-ai/copilot/internal/prompt"
	"github.com/copilot-ai/copilot/internal/provider"
	"github.com/copilot-ai/copilot/internal/storage"
	"github.com/copilot-ai/copilot/pkg/types"
)

// cannedProvider answers every completion with a fixed string.
type cannedProvider struct {
	reply  string
	models []types.Model
}

func (c *cannedProvider) Type() string { return "canned" }
func (c *cannedProvider) Name() string { return "Canned" }
func (c *cannedProvider) Capabilities() []types.OutputType {
	return []types.OutputType{types.OutputText, types.OutputStructured}
}
func (c *cannedProvider) Models() []types.Model { return c.models }

func (c *cannedProvider) Text(_ context.Context, _ types.ModelCondition, _ []*schema.Message, _ *types.PromptConfig) (string, error) {
	return c.reply, nil
}

func (c *cannedProvider) StreamText(_ context.Context, _ types.ModelCondition, _ []*schema.Message, _ *types.PromptConfig) (*provider.TextStream, error) {
	reader, writer := schema.Pipe[*schema.Message](1)
	writer.Send(&schema.Message{Role: schema.Assistant, Content: c.reply}, nil)
	writer.Close()
	return provider.NewTextStream(reader), nil
}

func (c *cannedProvider) Structured(_ context.Context, _ types.ModelCondition, _ []*schema.Message, _ *types.PromptConfig) (string, error) {
	return c.reply, nil
}

func newServiceWithProvider(t *testing.T, reply string) *Service {
	t.Helper()

	registry, err := prompt.NewRegistry("")
	require.NoError(t, err)

	factory := provider.NewFactory(nil)
	factory.Register(&cannedProvider{
		reply:  reply,
		models: []types.Model{{ID: "gpt-4o", ProviderType: "canned"}},
	})

	store := NewStore(storage.New(t.TempDir()))
	return NewService(store, registry, factory, nil, nil, types.QuotaConfig{Unlimited: true})
}

func TestCreateUnknownPrompt(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})

	_, err := svc.Create(context.Background(), CreateOptions{UserID: "u-1", PromptName: "No Such Prompt"})
	assert.ErrorIs(t, err, prompt.ErrNotFound)
}

func TestCreatePromptScopePolicy(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	ctx := context.Background()

	tests := []struct {
		name    string
		opts    CreateOptions
		wantErr error
	}{
		{
			name: "pinned with action prompt",
			opts: CreateOptions{UserID: "u-1", WorkspaceID: "ws-1", PromptName: "Summarize", Pinned: true},

			wantErr: ErrInvalidInput,
		},
		{
			name:    "action prompt without doc",
			opts:    CreateOptions{UserID: "u-1", WorkspaceID: "ws-1", PromptName: "Summarize"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "pinned doc session",
			opts:    CreateOptions{UserID: "u-1", WorkspaceID: "ws-1", DocID: "doc-1", PromptName: "Chat with assistant", Pinned: true},
			wantErr: ErrInvalidInput,
		},
		{
			name: "chat prompt on workspace",
			opts: CreateOptions{UserID: "u-1", WorkspaceID: "ws-1", PromptName: "Chat with assistant"},
		},
		{
			name: "action prompt on doc",
			opts: CreateOptions{UserID: "u-1", WorkspaceID: "ws-1", DocID: "doc-1", PromptName: "Summarize"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCreatePinUniqueness(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateOptions{
		UserID: "u-1", WorkspaceID: "ws-1", PromptName: "Chat with assistant", Pinned: true,
	})
	require.NoError(t, err)

	second, err := svc.Create(ctx, CreateOptions{
		UserID: "u-1", WorkspaceID: "ws-1", PromptName: "Chat with assistant", Pinned: true,
	})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	pinned := true
	sessions, err := svc.List(ctx, ListFilter{UserID: "u-1", WorkspaceID: "ws-1", Pinned: &pinned})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, second.ID, sessions[0].ID)
}

func TestForkCopiesPrefixWithFreshIDs(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	ctx := context.Background()

	src, err := svc.Create(ctx, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})
	require.NoError(t, err)

	chat, err := svc.Get(ctx, src.ID)
	require.NoError(t, err)
	require.NoError(t, chat.Push(userMsg("A")))
	require.NoError(t, chat.Push(assistantMsg("B")))
	require.NoError(t, chat.Push(userMsg("C")))
	require.NoError(t, chat.Push(assistantMsg("D")))
	require.NoError(t, chat.Release(ctx))

	source, err := svc.List(ctx, ListFilter{UserID: "u-1"})
	require.NoError(t, err)
	require.Len(t, source, 1)
	forkPoint := source[0].Messages[1]
	require.Equal(t, types.RoleAssistant, forkPoint.Role)

	forked, err := svc.Fork(ctx, ForkOptions{SessionID: src.ID, MessageID: forkPoint.ID})
	require.NoError(t, err)

	assert.Equal(t, src.ID, forked.ParentSessionID)
	require.Len(t, forked.Messages, 2)
	assert.Equal(t, "A", forked.Messages[0].Content)
	assert.Equal(t, "B", forked.Messages[1].Content)
	for i, msg := range forked.Messages {
		assert.NotEmpty(t, msg.ID)
		assert.NotEqual(t, source[0].Messages[i].ID, msg.ID)
	}
}

func TestForkRequiresAssistantMessage(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	ctx := context.Background()

	src, err := svc.Create(ctx, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})
	require.NoError(t, err)

	chat, err := svc.Get(ctx, src.ID)
	require.NoError(t, err)
	require.NoError(t, chat.Push(userMsg("A")))
	require.NoError(t, chat.Release(ctx))

	loaded, err := svc.List(ctx, ListFilter{UserID: "u-1"})
	require.NoError(t, err)
	userID := loaded[0].Messages[0].ID

	_, err = svc.Fork(ctx, ForkOptions{SessionID: src.ID, MessageID: userID})
	assert.ErrorIs(t, err, ErrMessageNotFound)

	_, err = svc.Fork(ctx, ForkOptions{SessionID: src.ID, MessageID: "nonexistent"})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestUpdateRejectsNoOp(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	ctx := context.Background()

	state, err := svc.Create(ctx, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant", Title: "My chat"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, UpdateOptions{SessionID: state.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	same := "My chat"
	_, err = svc.Update(ctx, UpdateOptions{SessionID: state.ID, Title: &same})
	assert.ErrorIs(t, err, ErrInvalidInput)

	renamed := "Renamed"
	updated, err := svc.Update(ctx, UpdateOptions{SessionID: state.ID, Title: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
}

func TestUpdateRevalidatesPrompt(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	ctx := context.Background()

	state, err := svc.Create(ctx, CreateOptions{UserID: "u-1", WorkspaceID: "ws-1", PromptName: "Chat with assistant"})
	require.NoError(t, err)

	action := "Summarize"
	_, err = svc.Update(ctx, UpdateOptions{SessionID: state.ID, PromptName: &action})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCheckQuota(t *testing.T) {
	registry, err := prompt.NewRegistry("")
	require.NoError(t, err)
	store := NewStore(storage.New(t.TempDir()))
	svc := NewService(store, registry, provider.NewFactory(nil), nil, nil, types.QuotaConfig{MessageLimit: 2})
	ctx := context.Background()

	require.NoError(t, svc.CheckQuota(ctx, "u-1"))

	state, err := svc.Create(ctx, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})
	require.NoError(t, err)

	chat, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	require.NoError(t, chat.Push(userMsg("one")))
	require.NoError(t, chat.Push(userMsg("two")))
	require.NoError(t, chat.Release(ctx))

	err = svc.CheckQuota(ctx, "u-1")
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	_, err = svc.Create(ctx, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// Another user is unaffected.
	assert.NoError(t, svc.CheckQuota(ctx, "u-2"))
}

func TestGenerateSessionTitle(t *testing.T) {
	svc := newServiceWithProvider(t, "Quarterly Revenue Discussion")
	ctx := context.Background()

	state, err := svc.Create(ctx, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})
	require.NoError(t, err)

	chat, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	require.NoError(t, chat.Push(userMsg("how did Q3 go?")))
	require.NoError(t, chat.Push(assistantMsg("revenue was up 12%")))
	require.NoError(t, chat.Release(ctx))

	require.NoError(t, svc.GenerateSessionTitle(ctx, state.ID))

	sessions, err := svc.List(ctx, ListFilter{UserID: "u-1"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Quarterly Revenue Discussion", sessions[0].Title)
}

func TestGenerateSessionTitleSkips(t *testing.T) {
	svc := newServiceWithProvider(t, "Should Not Apply")
	ctx := context.Background()

	t.Run("incomplete transcript", func(t *testing.T) {
		state, err := svc.Create(ctx, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})
		require.NoError(t, err)

		chat, err := svc.Get(ctx, state.ID)
		require.NoError(t, err)
		require.NoError(t, chat.Push(userMsg("hello?")))
		require.NoError(t, chat.Release(ctx))

		require.NoError(t, svc.GenerateSessionTitle(ctx, state.ID))

		got, err := svc.List(ctx, ListFilter{UserID: "u-1"})
		require.NoError(t, err)
		assert.Empty(t, got[0].Title)
	})

	t.Run("already titled", func(t *testing.T) {
		state, err := svc.Create(ctx, CreateOptions{UserID: "u-2", PromptName: "Chat with assistant", Title: "Keep me"})
		require.NoError(t, err)

		chat, err := svc.Get(ctx, state.ID)
		require.NoError(t, err)
		require.NoError(t, chat.Push(userMsg("hi")))
		require.NoError(t, chat.Push(assistantMsg("hello")))
		require.NoError(t, chat.Release(ctx))

		require.NoError(t, svc.GenerateSessionTitle(ctx, state.ID))

		got, err := svc.List(ctx, ListFilter{UserID: "u-2"})
		require.NoError(t, err)
		assert.Equal(t, "Keep me", got[0].Title)
	})
}

func TestDeleteSession(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	ctx := context.Background()

	state, err := svc.Create(ctx, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, state.ID))

	_, err = svc.Get(ctx, state.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
