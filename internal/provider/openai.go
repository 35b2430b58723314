package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"github.com/copilot-ai/copilot/pkg/types"
)

// OpenAIProvider serves GPT models.
type OpenAIProvider struct {
	einoChat
	models []types.Model
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewOpenAIProvider creates the OpenAI provider.
func NewOpenAIProvider(ctx context.Context, config *OpenAIConfig) (*OpenAIProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	modelID := config.Model
	if modelID == "" {
		modelID = "gpt-4o"
	}
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	cfg := &openai.ChatModelConfig{
		APIKey:              apiKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	}
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
	}

	return &OpenAIProvider{
		einoChat: einoChat{vendor: "openai", chatModel: chatModel, maxTokens: maxTokens},
		models:   openAIModels(),
	}, nil
}

// Type returns the vendor tag.
func (p *OpenAIProvider) Type() string { return "openai" }

// Name returns the human-readable vendor name.
func (p *OpenAIProvider) Name() string { return "OpenAI" }

// Capabilities returns the output types GPT models can produce.
func (p *OpenAIProvider) Capabilities() []types.OutputType {
	return []types.OutputType{types.OutputText, types.OutputStructured, types.OutputImage}
}

// Models returns the list of served models.
func (p *OpenAIProvider) Models() []types.Model { return p.models }

// Text generates a complete text response.
func (p *OpenAIProvider) Text(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (string, error) {
	return p.generate(ctx, cond, messages, cfg)
}

// StreamText generates a streaming text response.
func (p *OpenAIProvider) StreamText(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (*TextStream, error) {
	return p.stream(ctx, cond, messages, cfg)
}

// Structured generates a validated JSON response.
func (p *OpenAIProvider) Structured(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (string, error) {
	raw, err := p.generate(ctx, cond, messages, cfg)
	if err != nil {
		return "", err
	}
	return validateStructured(raw)
}

func openAIModels() []types.Model {
	return []types.Model{
		{
			ID:              "gpt-4o",
			Name:            "GPT-4o",
			ProviderType:    "openai",
			ContextLength:   128000,
			MaxOutputTokens: 16384,
			InputPrice:      2.5,
			OutputPrice:     10.0,
		},
		{
			ID:              "gpt-4o-mini",
			Name:            "GPT-4o mini",
			ProviderType:    "openai",
			ContextLength:   128000,
			MaxOutputTokens: 16384,
			InputPrice:      0.15,
			OutputPrice:     0.6,
		},
		{
			ID:              "o3-mini",
			Name:            "o3-mini",
			ProviderType:    "openai",
			ContextLength:   200000,
			MaxOutputTokens: 100000,
			InputPrice:      1.1,
			OutputPrice:     4.4,
		},
		{
			ID:              "dall-e-3",
			Name:            "DALL-E 3",
			ProviderType:    "openai",
			ContextLength:   4000,
			MaxOutputTokens: 0,
		},
	}
}
