package types

// PromptMessage is one message template inside a prompt definition. Content
// may contain {{variable}} placeholders resolved at render time. Params are
// static template parameters merged under the caller's params.
type PromptMessage struct {
	Role    Role           `json:"role" yaml:"role"`
	Content string         `json:"content" yaml:"content"`
	Params  map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// PromptConfig is the generation config attached to a prompt definition.
type PromptConfig struct {
	Temperature      *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP             *float64 `json:"topP,omitempty" yaml:"topP,omitempty"`
	PresencePenalty  *float64 `json:"presencePenalty,omitempty" yaml:"presencePenalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequencyPenalty,omitempty" yaml:"frequencyPenalty,omitempty"`
	MaxTokens        int      `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
}

// PromptDefinition is the stored form of a named prompt template.
type PromptDefinition struct {
	Name string `json:"name" yaml:"name"`
	// Model is the target model id the prompt was written for.
	Model string `json:"model" yaml:"model"`
	// Action, when non-empty, marks the prompt as single-shot: one user turn,
	// no accumulated history.
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
	// OptionalModels lists alternate model ids that may serve the prompt.
	OptionalModels []string        `json:"optionalModels,omitempty" yaml:"optionalModels,omitempty"`
	Messages       []PromptMessage `json:"messages" yaml:"messages"`
	Config         *PromptConfig   `json:"config,omitempty" yaml:"config,omitempty"`
	UpdatedAt      int64           `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}
