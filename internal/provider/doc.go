// Package provider provides the LLM vendor abstraction layer for Copilot.
//
// Each vendor integration implements the Provider interface on top of the
// Eino framework (Anthropic, OpenAI, ARK) or the vendor's native SDK
// (Gemini). A Factory holds the registered providers and selects one for
// each completion request.
//
// # Supported Providers
//
// ## Anthropic (Claude)
//
//	provider, err := NewAnthropicProvider(ctx, &AnthropicConfig{
//	    APIKey: "sk-...",
//	    Model:  "claude-sonnet-4-20250514",
//	})
//
// ## OpenAI (GPT, DALL-E)
//
// Native OpenAI API access and OpenAI-compatible endpoints:
//
//	provider, err := NewOpenAIProvider(ctx, &OpenAIConfig{
//	    APIKey: "sk-...",
//	    Model:  "gpt-4o",
//	})
//
// ## Google Gemini
//
//	provider, err := NewGeminiProvider(ctx, &GeminiConfig{
//	    APIKey: "...",
//	    Model:  "gemini-2.0-flash",
//	})
//
// ## Volcengine ARK
//
// The Model field is the ARK endpoint ID:
//
//	provider, err := NewArkProvider(ctx, &ArkConfig{
//	    APIKey: "...",
//	    Model:  "endpoint-id",
//	})
//
// # Factory Usage
//
// The factory is populated in registration order, and that order is the
// priority order for selection:
//
//	factory, err := InitializeProviders(ctx, config)
//
//	// First provider able to produce text with the given model.
//	p := factory.GetProvider(types.ModelCondition{
//	    OutputType: types.OutputText,
//	    ModelID:    "claude-sonnet-4-20250514",
//	})
//
//	// Pin selection to one vendor. Returns nil rather than substituting
//	// another vendor.
//	p = factory.GetProvider(cond, GetProviderOptions{Prefer: "gemini"})
//
// GetProvider returns nil when nothing matches. Callers that surface the
// failure use GetProviderOrFail, which wraps ErrNoProviderAvailable.
//
// # Completions
//
// Providers expose three completion shapes matched to prompt output types:
// Text, StreamText and Structured. Structured completions are validated as
// JSON before return and fail with ErrMalformedOutput otherwise.
//
//	stream, err := p.StreamText(ctx, cond, messages, promptConfig)
//	for {
//	    msg, err := stream.Recv()
//	    if err != nil {
//	        break
//	    }
//	    // Process chunk
//	}
//	stream.Close()
package provider
