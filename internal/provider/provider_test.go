package provider

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilot-ai/copilot/pkg/types"
)

func TestToSchemaMessages(t *testing.T) {
	messages := []types.ChatMessage{
		{Role: types.RoleSystem, Content: "You are helpful."},
		{Role: types.RoleUser, Content: "Summarize this.", Attachments: []types.Attachment{
			{URL: "https://example.com/doc.pdf", MimeType: "application/pdf"},
		}},
		{Role: types.RoleAssistant, Content: "Sure."},
	}

	converted := ToSchemaMessages(messages)
	require.Len(t, converted, 3)

	assert.Equal(t, schema.System, converted[0].Role)
	assert.Equal(t, "You are helpful.", converted[0].Content)

	assert.Equal(t, schema.User, converted[1].Role)
	assert.Equal(t, "Summarize this.\n[attachment] https://example.com/doc.pdf", converted[1].Content)

	assert.Equal(t, schema.Assistant, converted[2].Role)
}

func TestToSchemaMessagesSkipsEmptyAttachments(t *testing.T) {
	messages := []types.ChatMessage{
		{Role: types.RoleUser, Content: "hello", Attachments: []types.Attachment{{URL: ""}}},
	}

	converted := ToSchemaMessages(messages)
	require.Len(t, converted, 1)
	assert.Equal(t, "hello", converted[0].Content)
}

func TestValidateStructured(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"title":"Weekly sync"}`,
			want: `{"title":"Weekly sync"}`,
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"items\":[1,2]}\n```",
			want: `{"items":[1,2]}`,
		},
		{
			name: "fenced without language tag",
			raw:  "```\n[true]\n```",
			want: `[true]`,
		},
		{
			name: "surrounding whitespace",
			raw:  "\n  {\"a\":1}  \n",
			want: `{"a":1}`,
		},
		{
			name:    "prose instead of json",
			raw:     "Here is the summary you asked for.",
			wantErr: true,
		},
		{
			name:    "truncated json",
			raw:     `{"title":"Weekly`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateStructured(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches(t *testing.T) {
	p := &fakeMatchProvider{
		caps:   []types.OutputType{types.OutputText},
		models: []types.Model{{ID: "m-1"}},
	}

	assert.True(t, matches(p, types.ModelCondition{OutputType: types.OutputText}))
	assert.True(t, matches(p, types.ModelCondition{OutputType: types.OutputText, ModelID: "m-1"}))
	assert.False(t, matches(p, types.ModelCondition{OutputType: types.OutputText, ModelID: "m-2"}))
	assert.False(t, matches(p, types.ModelCondition{OutputType: types.OutputImage}))
}

type fakeMatchProvider struct {
	caps   []types.OutputType
	models []types.Model
}

func (f *fakeMatchProvider) Type() string                     { return "fake" }
func (f *fakeMatchProvider) Name() string                     { return "Fake" }
func (f *fakeMatchProvider) Capabilities() []types.OutputType { return f.caps }
func (f *fakeMatchProvider) Models() []types.Model            { return f.models }

func (f *fakeMatchProvider) Text(_ context.Context, _ types.ModelCondition, _ []*schema.Message, _ *types.PromptConfig) (string, error) {
	return "", nil
}

func (f *fakeMatchProvider) StreamText(_ context.Context, _ types.ModelCondition, _ []*schema.Message, _ *types.PromptConfig) (*TextStream, error) {
	reader, writer := schema.Pipe[*schema.Message](1)
	writer.Close()
	return NewTextStream(reader), nil
}

func (f *fakeMatchProvider) Structured(_ context.Context, _ types.ModelCondition, _ []*schema.Message, _ *types.PromptConfig) (string, error) {
	return "{}", nil
}
