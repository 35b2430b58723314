package session

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilot-ai/copilot/internal/prompt"
	"github.com/copilot-ai/copilot/internal/provider"
	"github.com/copilot-ai/copilot/internal/storage"
	"github.com/copilot-ai/copilot/pkg/types"
)

func newTestService(t *testing.T, quota types.QuotaConfig) (*Service, *prompt.Registry) {
	t.Helper()

	registry, err := prompt.NewRegistry("")
	require.NoError(t, err)

	store := NewStore(storage.New(t.TempDir()))
	factory := provider.NewFactory(nil)
	return NewService(store, registry, factory, nil, nil, quota), registry
}

func acquireChat(t *testing.T, svc *Service, opts CreateOptions) *ChatSession {
	t.Helper()
	ctx := context.Background()

	state, err := svc.Create(ctx, opts)
	require.NoError(t, err)

	chat, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	t.Cleanup(func() { chat.Release(ctx) })
	return chat
}

func userMsg(content string) types.ChatMessage {
	return types.ChatMessage{Role: types.RoleUser, Content: content}
}

func assistantMsg(content string) types.ChatMessage {
	return types.ChatMessage{Role: types.RoleAssistant, Content: content}
}

func TestPushPopRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	chat := acquireChat(t, svc, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})

	require.NoError(t, chat.Push(userMsg("first")))
	before := len(chat.State().Messages)
	staged := chat.StagedCount()

	require.NoError(t, chat.Push(userMsg("speculative")))
	popped := chat.Pop()

	require.NotNil(t, popped)
	assert.Equal(t, "speculative", popped.Content)
	assert.Len(t, chat.State().Messages, before)
	assert.Equal(t, staged, chat.StagedCount())
}

func TestActionPromptSingleTurn(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	chat := acquireChat(t, svc, CreateOptions{UserID: "u-1", DocID: "doc-1", PromptName: "Summarize"})

	require.NoError(t, chat.Push(userMsg("summarize this doc")))
	require.NoError(t, chat.Push(assistantMsg("a summary")))

	before := len(chat.State().Messages)
	staged := chat.StagedCount()

	err := chat.Push(userMsg("one more thing"))
	require.ErrorIs(t, err, ErrActionTaken)
	assert.Len(t, chat.State().Messages, before)
	assert.Equal(t, staged, chat.StagedCount())
}

func TestRevertLatestMessage(t *testing.T) {
	seed := func(t *testing.T) *ChatSession {
		svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
		chat := acquireChat(t, svc, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})
		require.NoError(t, chat.Push(userMsg("A")))
		require.NoError(t, chat.Push(assistantMsg("B")))
		require.NoError(t, chat.Push(userMsg("C")))
		require.NoError(t, chat.Push(assistantMsg("D")))
		return chat
	}

	t.Run("remove user message", func(t *testing.T) {
		chat := seed(t)
		require.NoError(t, chat.RevertLatestMessage(true))

		var contents []string
		for _, m := range chat.State().Messages {
			contents = append(contents, m.Content)
		}
		assert.Equal(t, []string{"A", "B"}, contents)
	})

	t.Run("keep user message", func(t *testing.T) {
		chat := seed(t)
		require.NoError(t, chat.RevertLatestMessage(false))

		var contents []string
		for _, m := range chat.State().Messages {
			contents = append(contents, m.Content)
		}
		assert.Equal(t, []string{"A", "B", "C"}, contents)
	})

	t.Run("no user message", func(t *testing.T) {
		svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
		chat := acquireChat(t, svc, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})
		assert.ErrorIs(t, chat.RevertLatestMessage(true), ErrMessageNotFound)
	})
}

func TestTakeMessagesTokenBudget(t *testing.T) {
	svc, registry := newTestService(t, types.QuotaConfig{Unlimited: true})

	// Template renders to 500 estimated tokens; each message costs 1000.
	require.NoError(t, registry.Set(&types.PromptDefinition{
		Name:  "History digest",
		Model: "gpt-4o",
		Messages: []types.PromptMessage{
			{Role: types.RoleSystem, Content: strings.Repeat("x", 2000)},
		},
		Config: &types.PromptConfig{MaxTokens: 5000},
	}))

	chat := acquireChat(t, svc, CreateOptions{UserID: "u-1", PromptName: "History digest"})
	for i := 0; i < 50; i++ {
		require.NoError(t, chat.Push(userMsg(strings.Repeat("m", 4000))))
	}

	windowed := chat.TakeMessages()
	assert.Len(t, windowed, 4)

	finished := chat.Finish(nil)
	trailing := 0
	for _, msg := range finished {
		if msg.Content == strings.Repeat("m", 4000) {
			trailing++
		}
	}
	assert.LessOrEqual(t, trailing, 4)
}

func TestFinishNeverExceedsBudget(t *testing.T) {
	svc, registry := newTestService(t, types.QuotaConfig{Unlimited: true})

	require.NoError(t, registry.Set(&types.PromptDefinition{
		Name:  "Tight budget chat",
		Model: "gpt-4o",
		Messages: []types.PromptMessage{
			{Role: types.RoleSystem, Content: strings.Repeat("s", 400)},
		},
		Config: &types.PromptConfig{MaxTokens: 700},
	}))

	chat := acquireChat(t, svc, CreateOptions{UserID: "u-1", PromptName: "Tight budget chat"})
	for _, size := range []int{100, 900, 2000, 300, 700} {
		require.NoError(t, chat.Push(userMsg(strings.Repeat("a", size))))
	}

	p := chat.Prompt()
	total := p.TokenCost()
	for _, msg := range chat.TakeMessages() {
		total += p.Encode(msg.Content)
	}
	assert.LessOrEqual(t, total, 700)
}

func TestTakeMessagesActionReturnsLastOnly(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	chat := acquireChat(t, svc, CreateOptions{UserID: "u-1", DocID: "doc-1", PromptName: "Summarize"})

	require.NoError(t, chat.Push(userMsg("only one")))
	require.NoError(t, chat.Push(assistantMsg("reply")))

	windowed := chat.TakeMessages()
	require.Len(t, windowed, 1)
	assert.Equal(t, "reply", windowed[0].Content)
}

func TestFinishRendersSystemThenHistory(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	chat := acquireChat(t, svc, CreateOptions{UserID: "u-1", DocID: "doc-1", PromptName: "Summary as title"})

	require.NoError(t, chat.Push(userMsg("hello")))

	finished := chat.Finish(map[string]any{})
	require.Len(t, finished, 2)

	assert.Equal(t, types.RoleSystem, finished[0].Role)
	assert.NotEmpty(t, finished[0].Content)

	last := finished[len(finished)-1]
	assert.Equal(t, types.RoleUser, last.Role)
	assert.Equal(t, "hello", last.Content)
}

func TestFinishMergesContentOnFirstTurn(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	chat := acquireChat(t, svc, CreateOptions{UserID: "u-1", DocID: "doc-1", PromptName: "Summarize"})

	require.NoError(t, chat.Push(types.ChatMessage{
		Role:    types.RoleUser,
		Content: "The Q3 report shows revenue up 12%.",
		Attachments: []types.Attachment{
			{URL: "https://example.com/report.pdf", MimeType: "application/pdf"},
		},
	}))

	finished := chat.Finish(nil)
	require.Len(t, finished, 2)

	assert.Equal(t, types.RoleSystem, finished[0].Role)
	require.Len(t, finished[0].Attachments, 1)
	assert.Equal(t, "https://example.com/report.pdf", finished[0].Attachments[0].URL)

	assert.Equal(t, types.RoleUser, finished[1].Role)
	assert.Equal(t, "The Q3 report shows revenue up 12%.", finished[1].Content)
}

func TestFinishSplicesOlderUserMessagesBeforeMerge(t *testing.T) {
	svc, registry := newTestService(t, types.QuotaConfig{Unlimited: true})

	require.NoError(t, registry.Set(&types.PromptDefinition{
		Name:  "Doc chat",
		Model: "gpt-4o",
		Messages: []types.PromptMessage{
			{Role: types.RoleSystem, Content: "You answer questions about a document."},
			{Role: types.RoleUser, Content: "{{content}}"},
		},
	}))

	chat := acquireChat(t, svc, CreateOptions{UserID: "u-1", PromptName: "Doc chat"})
	require.NoError(t, chat.Push(userMsg("earlier note")))
	require.NoError(t, chat.Push(userMsg("what changed?")))

	finished := chat.Finish(nil)
	require.Len(t, finished, 3)

	assert.Equal(t, "earlier note", finished[0].Content)
	assert.Equal(t, types.RoleSystem, finished[1].Role)
	assert.Equal(t, "what changed?", finished[2].Content)
}

func TestReleasePersistsStagedSuffix(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	ctx := context.Background()

	state, err := svc.Create(ctx, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})
	require.NoError(t, err)

	chat, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	require.NoError(t, chat.Push(userMsg("persist me")))
	require.NoError(t, chat.Push(assistantMsg("and me")))
	require.NoError(t, chat.Release(ctx))

	reloaded, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	defer reloaded.Release(ctx)

	require.Len(t, reloaded.State().Messages, 2)
	assert.Equal(t, "persist me", reloaded.State().Messages[0].Content)
	assert.NotEmpty(t, reloaded.State().Messages[0].ID)
	assert.Positive(t, reloaded.State().TokenCost)
	assert.Zero(t, reloaded.StagedCount())
}

func TestReleaseIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	ctx := context.Background()

	state, err := svc.Create(ctx, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})
	require.NoError(t, err)

	chat, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	require.NoError(t, chat.Push(userMsg("once")))
	require.NoError(t, chat.Release(ctx))
	require.NoError(t, chat.Release(ctx))

	reloaded, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	defer reloaded.Release(ctx)
	assert.Len(t, reloaded.State().Messages, 1)
}

func TestReleasePersistsRevert(t *testing.T) {
	svc, _ := newTestService(t, types.QuotaConfig{Unlimited: true})
	ctx := context.Background()

	state, err := svc.Create(ctx, CreateOptions{UserID: "u-1", PromptName: "Chat with assistant"})
	require.NoError(t, err)

	chat, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	require.NoError(t, chat.Push(userMsg("A")))
	require.NoError(t, chat.Push(assistantMsg("B")))
	require.NoError(t, chat.Release(ctx))

	chat, err = svc.Get(ctx, state.ID)
	require.NoError(t, err)
	require.NoError(t, chat.RevertLatestMessage(false))
	require.NoError(t, chat.Release(ctx))

	reloaded, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	defer reloaded.Release(ctx)

	require.Len(t, reloaded.State().Messages, 1)
	assert.Equal(t, "A", reloaded.State().Messages[0].Content)
}
