package types

// Config is the top-level application configuration, merged from JSONC config
// files and environment variables.
type Config struct {
	// DataDir is the base directory for the JSON state store.
	DataDir string `json:"dataDir,omitempty"`
	// PromptDir holds user-defined prompt template YAML files.
	PromptDir string `json:"promptDir,omitempty"`
	// Model is the default "provider/model" pair.
	Model string `json:"model,omitempty"`
	// LogLevel is one of DEBUG/INFO/WARN/ERROR/FATAL.
	LogLevel string `json:"logLevel,omitempty"`

	Provider map[string]ProviderConfig `json:"provider,omitempty"`
	Quota    QuotaConfig               `json:"quota,omitempty"`
	Server   ServerConfig              `json:"server,omitempty"`
}

// ProviderConfig configures one LLM vendor.
type ProviderConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseUrl,omitempty"`
	// Model overrides the vendor's default model (required for ark, where the
	// model is a platform endpoint id).
	Model    string `json:"model,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// QuotaConfig bounds per-user message usage.
type QuotaConfig struct {
	// MessageLimit is the maximum messages a user may have stored. Zero means
	// the default limit applies.
	MessageLimit int `json:"messageLimit,omitempty"`
	// Unlimited disables quota checks entirely.
	Unlimited bool `json:"unlimited,omitempty"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port       int  `json:"port,omitempty"`
	EnableCORS bool `json:"enableCors,omitempty"`
}
