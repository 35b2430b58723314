package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/schema"

	"github.com/copilot-ai/copilot/pkg/types"
)

// AnthropicProvider serves Claude models.
type AnthropicProvider struct {
	einoChat
	models []types.Model
}

// AnthropicConfig holds configuration for the Anthropic provider.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewAnthropicProvider creates the Anthropic provider.
func NewAnthropicProvider(ctx context.Context, config *AnthropicConfig) (*AnthropicProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	modelID := config.Model
	if modelID == "" {
		modelID = "claude-sonnet-4-20250514"
	}
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	cfg := &claude.Config{
		APIKey:    apiKey,
		Model:     modelID,
		MaxTokens: maxTokens,
	}
	if config.BaseURL != "" {
		cfg.BaseURL = &config.BaseURL
	}

	chatModel, err := claude.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Claude model: %w", err)
	}

	return &AnthropicProvider{
		einoChat: einoChat{vendor: "anthropic", chatModel: chatModel, maxTokens: maxTokens},
		models:   anthropicModels(),
	}, nil
}

// Type returns the vendor tag.
func (p *AnthropicProvider) Type() string { return "anthropic" }

// Name returns the human-readable vendor name.
func (p *AnthropicProvider) Name() string { return "Anthropic" }

// Capabilities returns the output types Claude models can produce.
func (p *AnthropicProvider) Capabilities() []types.OutputType {
	return []types.OutputType{types.OutputText, types.OutputStructured}
}

// Models returns the list of served models.
func (p *AnthropicProvider) Models() []types.Model { return p.models }

// Text generates a complete text response.
func (p *AnthropicProvider) Text(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (string, error) {
	return p.generate(ctx, cond, messages, cfg)
}

// StreamText generates a streaming text response.
func (p *AnthropicProvider) StreamText(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (*TextStream, error) {
	return p.stream(ctx, cond, messages, cfg)
}

// Structured generates a validated JSON response.
func (p *AnthropicProvider) Structured(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (string, error) {
	raw, err := p.generate(ctx, cond, messages, cfg)
	if err != nil {
		return "", err
	}
	return validateStructured(raw)
}

func anthropicModels() []types.Model {
	return []types.Model{
		{
			ID:              "claude-sonnet-4-20250514",
			Name:            "Claude Sonnet 4",
			ProviderType:    "anthropic",
			ContextLength:   200000,
			MaxOutputTokens: 64000,
			InputPrice:      3.0,
			OutputPrice:     15.0,
		},
		{
			ID:              "claude-opus-4-20250514",
			Name:            "Claude Opus 4",
			ProviderType:    "anthropic",
			ContextLength:   200000,
			MaxOutputTokens: 32000,
			InputPrice:      15.0,
			OutputPrice:     75.0,
		},
		{
			ID:              "claude-3-5-sonnet-20241022",
			Name:            "Claude 3.5 Sonnet",
			ProviderType:    "anthropic",
			ContextLength:   200000,
			MaxOutputTokens: 8192,
			InputPrice:      3.0,
			OutputPrice:     15.0,
		},
		{
			ID:              "claude-3-5-haiku-20241022",
			Name:            "Claude 3.5 Haiku",
			ProviderType:    "anthropic",
			ContextLength:   200000,
			MaxOutputTokens: 8192,
			InputPrice:      0.8,
			OutputPrice:     4.0,
		},
	}
}
