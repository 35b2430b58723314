package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/copilot-ai/copilot/internal/logging"
	"github.com/copilot-ai/copilot/pkg/types"
)

// ErrNoProviderAvailable is returned by the error-reporting lookup when no
// registered provider can serve a request.
var ErrNoProviderAvailable = errors.New("no provider available")

// GetProviderOptions narrows provider selection.
type GetProviderOptions struct {
	// Prefer pins selection to one vendor tag. When a preferred vendor is
	// set, no other vendor is ever substituted.
	Prefer string
}

// Factory holds the registered providers and picks one for each request.
// Registration order is priority order.
type Factory struct {
	mu        sync.RWMutex
	providers []Provider
	config    *types.Config
}

// NewFactory creates an empty provider factory.
func NewFactory(config *types.Config) *Factory {
	return &Factory{config: config}
}

// Register appends a provider. Earlier registrations win ties.
func (f *Factory) Register(p Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers = append(f.providers, p)
}

// List returns all registered providers in priority order.
func (f *Factory) List() []Provider {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Provider, len(f.providers))
	copy(out, f.providers)
	return out
}

// GetProvider returns the first registered provider that can serve the
// condition, or nil when none can. A Prefer hint restricts the search to
// that vendor alone.
func (f *Factory) GetProvider(cond types.ModelCondition, opts ...GetProviderOptions) Provider {
	f.mu.RLock()
	defer f.mu.RUnlock()

	prefer := ""
	if len(opts) > 0 {
		prefer = opts[0].Prefer
	}

	for _, p := range f.providers {
		if prefer != "" && p.Type() != prefer {
			continue
		}
		if matches(p, cond) {
			return p
		}
	}
	return nil
}

// GetProviderOrFail is GetProvider with an error for callers that surface
// the failure instead of degrading.
func (f *Factory) GetProviderOrFail(cond types.ModelCondition, opts ...GetProviderOptions) (Provider, error) {
	p := f.GetProvider(cond, opts...)
	if p == nil {
		return nil, fmt.Errorf("%w: output=%s model=%q", ErrNoProviderAvailable, cond.OutputType, cond.ModelID)
	}
	return p, nil
}

// matches reports whether a provider supports the requested output type and,
// when a model is named, serves that model.
func matches(p Provider, cond types.ModelCondition) bool {
	supported := false
	for _, c := range p.Capabilities() {
		if c == cond.OutputType {
			supported = true
			break
		}
	}
	if !supported {
		return false
	}

	if cond.ModelID == "" {
		return true
	}
	for _, m := range p.Models() {
		if m.ID == cond.ModelID {
			return true
		}
	}
	return false
}

// AllModels returns every model served by a registered provider, best first.
func (f *Factory) AllModels() []types.Model {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var models []types.Model
	for _, p := range f.providers {
		models = append(models, p.Models()...)
	}

	sort.SliceStable(models, func(i, j int) bool {
		return modelPriority(models[i].ID) > modelPriority(models[j].ID)
	})
	return models
}

// DefaultModel resolves the configured default model, falling back to the
// best registered model.
func (f *Factory) DefaultModel() (*types.Model, error) {
	if f.config != nil && f.config.Model != "" {
		_, modelID := ParseModelString(f.config.Model)
		for _, p := range f.List() {
			for _, m := range p.Models() {
				if m.ID == modelID {
					return &m, nil
				}
			}
		}
	}

	models := f.AllModels()
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: no models registered", ErrNoProviderAvailable)
	}
	return &models[0], nil
}

// ParseModelString parses "provider/model" format.
func ParseModelString(s string) (providerType, modelID string) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", s
}

// modelPriority returns sorting priority for models.
func modelPriority(modelID string) int {
	switch {
	case strings.Contains(modelID, "claude-sonnet-4"):
		return 90
	case strings.Contains(modelID, "claude-opus"):
		return 85
	case strings.Contains(modelID, "gpt-4o"):
		return 80
	case strings.Contains(modelID, "claude-3-5"):
		return 75
	case strings.Contains(modelID, "gemini-2"):
		return 70
	case strings.Contains(modelID, "gemini-1.5"):
		return 60
	default:
		return 50
	}
}

// InitializeProviders creates and registers every provider the config has
// credentials for. A vendor that fails to initialize is logged and skipped.
func InitializeProviders(ctx context.Context, config *types.Config) (*Factory, error) {
	factory := NewFactory(config)

	register := func(vendor string, p Provider, err error) {
		if err != nil {
			logging.Warn().Err(err).Str("provider", vendor).Msg("provider disabled")
			return
		}
		factory.Register(p)
		logging.Info().Str("provider", vendor).Msg("provider registered")
	}

	if cfg, ok := config.Provider["anthropic"]; ok && cfg.APIKey != "" && !cfg.Disabled {
		p, err := NewAnthropicProvider(ctx, &AnthropicConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		register("anthropic", p, err)
	}

	if cfg, ok := config.Provider["openai"]; ok && cfg.APIKey != "" && !cfg.Disabled {
		p, err := NewOpenAIProvider(ctx, &OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		register("openai", p, err)
	}

	if cfg, ok := config.Provider["gemini"]; ok && cfg.APIKey != "" && !cfg.Disabled {
		p, err := NewGeminiProvider(ctx, &GeminiConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		})
		register("gemini", p, err)
	}

	if cfg, ok := config.Provider["ark"]; ok && cfg.APIKey != "" && !cfg.Disabled {
		p, err := NewArkProvider(ctx, &ArkConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		register("ark", p, err)
	}

	return factory, nil
}
