package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/schema"

	"github.com/copilot-ai/copilot/pkg/types"
)

// ArkProvider serves Volcengine ARK endpoints.
type ArkProvider struct {
	einoChat
	models []types.Model
}

// ArkConfig holds configuration for the ARK provider. Model is the endpoint
// id on the ARK platform and is required.
type ArkConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewArkProvider creates the ARK provider.
func NewArkProvider(ctx context.Context, config *ArkConfig) (*ArkProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ARK_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ARK_API_KEY not set")
	}

	modelID := config.Model
	if modelID == "" {
		modelID = os.Getenv("ARK_MODEL_ID")
	}
	if modelID == "" {
		return nil, fmt.Errorf("ARK_MODEL_ID not set")
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	cfg := &ark.ChatModelConfig{
		APIKey:    apiKey,
		Model:     modelID,
		MaxTokens: &maxTokens,
	}
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}

	chatModel, err := ark.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ARK model: %w", err)
	}

	return &ArkProvider{
		einoChat: einoChat{vendor: "ark", chatModel: chatModel, maxTokens: maxTokens},
		models: []types.Model{
			{
				ID:              modelID,
				Name:            "ARK Endpoint",
				ProviderType:    "ark",
				ContextLength:   128000,
				MaxOutputTokens: maxTokens,
			},
		},
	}, nil
}

// Type returns the vendor tag.
func (p *ArkProvider) Type() string { return "ark" }

// Name returns the human-readable vendor name.
func (p *ArkProvider) Name() string { return "ARK" }

// Capabilities returns the output types ARK endpoints can produce.
func (p *ArkProvider) Capabilities() []types.OutputType {
	return []types.OutputType{types.OutputText, types.OutputStructured}
}

// Models returns the configured endpoint.
func (p *ArkProvider) Models() []types.Model { return p.models }

// Text generates a complete text response.
func (p *ArkProvider) Text(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (string, error) {
	return p.generate(ctx, cond, messages, cfg)
}

// StreamText generates a streaming text response.
func (p *ArkProvider) StreamText(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (*TextStream, error) {
	return p.stream(ctx, cond, messages, cfg)
}

// Structured generates a validated JSON response.
func (p *ArkProvider) Structured(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (string, error) {
	raw, err := p.generate(ctx, cond, messages, cfg)
	if err != nil {
		return "", err
	}
	return validateStructured(raw)
}
