package provider

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/copilot-ai/copilot/pkg/types"
)

// einoChat is the shared completion logic for vendors backed by an Eino
// chat model (anthropic, openai, ark). Vendor structs embed it and supply
// the vendor tag, capability set and model list.
type einoChat struct {
	vendor    string
	chatModel model.ToolCallingChatModel
	maxTokens int
}

func (e *einoChat) options(cond types.ModelCondition, cfg *types.PromptConfig) []model.Option {
	maxTokens := e.maxTokens
	var opts []model.Option

	if cfg != nil {
		if cfg.MaxTokens > 0 {
			maxTokens = cfg.MaxTokens
		}
		if cfg.Temperature != nil {
			opts = append(opts, model.WithTemperature(float32(*cfg.Temperature)))
		}
		if cfg.TopP != nil {
			opts = append(opts, model.WithTopP(float32(*cfg.TopP)))
		}
	}
	if maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(maxTokens))
	}
	if cond.ModelID != "" {
		opts = append(opts, model.WithModel(cond.ModelID))
	}
	return opts
}

func (e *einoChat) generate(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (string, error) {
	msg, err := e.chatModel.Generate(ctx, messages, e.options(cond, cfg)...)
	if err != nil {
		observeCompletion(e.vendor, cond.OutputType, "error")
		return "", fmt.Errorf("%s completion failed: %w", e.vendor, err)
	}

	observeCompletion(e.vendor, cond.OutputType, "ok")
	return msg.Content, nil
}

func (e *einoChat) stream(ctx context.Context, cond types.ModelCondition, messages []*schema.Message, cfg *types.PromptConfig) (*TextStream, error) {
	reader, err := e.chatModel.Stream(ctx, messages, e.options(cond, cfg)...)
	if err != nil {
		observeCompletion(e.vendor, cond.OutputType, "error")
		return nil, fmt.Errorf("%s stream failed: %w", e.vendor, err)
	}

	observeCompletion(e.vendor, cond.OutputType, "ok")
	return NewTextStream(reader), nil
}

// CollectStream drains a stream into a single string. Used by callers that
// want streaming transport but a whole result.
func CollectStream(stream *TextStream) (string, error) {
	defer stream.Close()

	var sb strings.Builder
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		sb.WriteString(msg.Content)
	}
	return sb.String(), nil
}
