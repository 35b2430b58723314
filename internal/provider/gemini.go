package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/copilot-ai/copilot/pkg/types"
)

// GeminiProvider serves Google Gemini models through the native SDK. There
// is no Eino extension for Gemini, so streaming is bridged onto TextStream
// with schema.Pipe.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
	maxTokens    int
	models       []types.Model
}

// GeminiConfig holds configuration for the Gemini provider.
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// NewGeminiProvider creates the Gemini provider.
func NewGeminiProvider(ctx context.Context, config *GeminiConfig) (*GeminiProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	modelID := config.Model
	if modelID == "" {
		modelID = "gemini-2.0-flash"
	}
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	return &GeminiProvider{
		client:       client,
		defaultModel: modelID,
		maxTokens:    maxTokens,
		models:       geminiModels(),
	}, nil
}

// Close releases the underlying API client.
func (p *GeminiProvider) Close() error { return p.client.Close() }

// Type returns the vendor tag.
func (p *GeminiProvider) Type() string { return "gemini" }

// Name returns the human-readable vendor name.
func (p *GeminiProvider) Name() string { return "Google Gemini" }

// Capabilities returns the output types Gemini models can produce.
func (p *GeminiProvider) Capabilities() []types.OutputType {
	return []types.OutputType{types.OutputText, types.OutputStructured}
}

// Models returns the list of served models.
func (p *GeminiProvider) Models() []types.Model { return p.models }

func (p *GeminiProvider) model(cond types.ModelCondition, cfg *types.PromptConfig, system string) *genai.GenerativeModel {
	modelID := cond.ModelID
	if modelID == "" {
		modelID = p.defaultModel
	}
	m := p.client.GenerativeModel(modelID)

	maxTokens := p.maxTokens
	if cfg != nil {
		if cfg.MaxTokens > 0 {
			maxTokens = cfg.MaxTokens
		}
		if cfg.Temperature != nil {
			m.SetTemperature(float32(*cfg.Temperature))
		}
		if cfg.TopP != nil {
			m.SetTopP(float32(*cfg.TopP))
		}
	}
	m.SetMaxOutputTokens(int32(maxTokens))

	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if cond.OutputType == types.OutputStructured {
		m.GenerationConfig.ResponseMIMEType = "application/json"
	}
	return m
}

func (p *GeminiProvider) chat(cond types.ModelCondition, cfg *types.PromptConfig, messages []*schema.Message) (*genai.ChatSession, genai.Text) {
	system, history, last := splitConversation(messages)
	m := p.model(cond, cfg, system)
	cs := m.StartChat()
	cs.History = history
	if last == "" {
		// Gemini requires a user turn to respond to.
		last = " "
	}
	return cs, genai.Text(last)
}

// Text generates a complete text response.
func (p *GeminiProvider) Text(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (string, error) {
	cs, last := p.chat(cond, cfg, messages)
	resp, err := cs.SendMessage(ctx, last)
	if err != nil {
		observeCompletion("gemini", cond.OutputType, "error")
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	observeCompletion("gemini", cond.OutputType, "ok")
	return geminiText(resp), nil
}

// StreamText generates a streaming text response.
func (p *GeminiProvider) StreamText(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (*TextStream, error) {
	cs, last := p.chat(cond, cfg, messages)
	iter := cs.SendMessageStream(ctx, last)

	reader, writer := schema.Pipe[*schema.Message](8)
	go func() {
		defer writer.Close()
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				observeCompletion("gemini", cond.OutputType, "ok")
				return
			}
			if err != nil {
				observeCompletion("gemini", cond.OutputType, "error")
				writer.Send(nil, fmt.Errorf("gemini stream failed: %w", err))
				return
			}
			if closed := writer.Send(&schema.Message{Role: schema.Assistant, Content: geminiText(resp)}, nil); closed {
				return
			}
		}
	}()

	return NewTextStream(reader), nil
}

// Structured generates a validated JSON response. The model is asked for
// application/json output, and the payload is still checked before return.
func (p *GeminiProvider) Structured(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (string, error) {
	raw, err := p.Text(ctx, cond, messages, cfg)
	if err != nil {
		return "", err
	}
	return validateStructured(raw)
}

// splitConversation separates system text, prior turns and the trailing user
// message from the transcript. Gemini takes system text out of band and the
// last user turn as the message to respond to.
func splitConversation(messages []*schema.Message) (system string, history []*genai.Content, last string) {
	var sys strings.Builder
	var turns []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case schema.System:
			if sys.Len() > 0 {
				sys.WriteString("\n")
			}
			sys.WriteString(msg.Content)
		case schema.Assistant:
			turns = append(turns, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}

	if n := len(turns); n > 0 && turns[n-1].Role == "user" {
		last = string(turns[n-1].Parts[0].(genai.Text))
		turns = turns[:n-1]
	}
	return sys.String(), turns, last
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func geminiModels() []types.Model {
	return []types.Model{
		{
			ID:              "gemini-2.0-flash",
			Name:            "Gemini 2.0 Flash",
			ProviderType:    "gemini",
			ContextLength:   1048576,
			MaxOutputTokens: 8192,
			InputPrice:      0.1,
			OutputPrice:     0.4,
		},
		{
			ID:              "gemini-1.5-pro",
			Name:            "Gemini 1.5 Pro",
			ProviderType:    "gemini",
			ContextLength:   2097152,
			MaxOutputTokens: 8192,
			InputPrice:      1.25,
			OutputPrice:     5.0,
		},
		{
			ID:              "gemini-1.5-flash",
			Name:            "Gemini 1.5 Flash",
			ProviderType:    "gemini",
			ContextLength:   1048576,
			MaxOutputTokens: 8192,
			InputPrice:      0.075,
			OutputPrice:     0.3,
		},
	}
}
