// Package config loads application configuration from JSONC files and the
// environment.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/tidwall/jsonc"

	"github.com/copilot-ai/copilot/pkg/types"
)

// DefaultMessageLimit bounds per-user stored messages when no quota is
// configured.
const DefaultMessageLimit = 1000

// Load merges configuration from, in priority order:
//  1. the global config file (~/.config/copilot/copilot.json[c])
//  2. an explicit COPILOT_CONFIG file
//  3. environment variables (highest priority)
func Load() (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
	}

	globalDir := Paths().Config
	loadFile(filepath.Join(globalDir, "copilot.json"), config)
	loadFile(filepath.Join(globalDir, "copilot.jsonc"), config)

	if path := os.Getenv("COPILOT_CONFIG"); path != "" {
		loadFile(path, config)
	}

	applyEnvOverrides(config)
	applyDefaults(config)

	return config, nil
}

// loadFile merges one JSONC config file into config. Missing or malformed
// files are skipped.
func loadFile(path string, config *types.Config) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	data = jsonc.ToJSON(data)
	data = interpolateEnv(data)

	var loaded types.Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return
	}
	merge(config, &loaded)
}

// envVarRe matches {env:VAR_NAME} placeholders inside config values.
var envVarRe = regexp.MustCompile(`\{env:([A-Z0-9_]+)\}`)

func interpolateEnv(data []byte) []byte {
	return envVarRe.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envVarRe.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func merge(dst, src *types.Config) {
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.PromptDir != "" {
		dst.PromptDir = src.PromptDir
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.Quota.MessageLimit > 0 {
		dst.Quota.MessageLimit = src.Quota.MessageLimit
	}
	if src.Quota.Unlimited {
		dst.Quota.Unlimited = true
	}
	if src.Server.Port > 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Server.EnableCORS {
		dst.Server.EnableCORS = true
	}
	for name, pc := range src.Provider {
		dst.Provider[name] = pc
	}
}

func applyEnvOverrides(config *types.Config) {
	setProviderKey := func(name, env string) {
		if key := os.Getenv(env); key != "" {
			pc := config.Provider[name]
			if pc.APIKey == "" {
				pc.APIKey = key
			}
			config.Provider[name] = pc
		}
	}
	setProviderKey("anthropic", "ANTHROPIC_API_KEY")
	setProviderKey("openai", "OPENAI_API_KEY")
	setProviderKey("ark", "ARK_API_KEY")
	setProviderKey("gemini", "GEMINI_API_KEY")

	if v := os.Getenv("COPILOT_DATA_DIR"); v != "" {
		config.DataDir = v
	}
	if v := os.Getenv("COPILOT_PROMPT_DIR"); v != "" {
		config.PromptDir = v
	}
	if v := os.Getenv("COPILOT_MODEL"); v != "" {
		config.Model = v
	}
	if v := os.Getenv("COPILOT_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("COPILOT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
}

func applyDefaults(config *types.Config) {
	if config.DataDir == "" {
		config.DataDir = Paths().Data
	}
	if config.Quota.MessageLimit == 0 {
		config.Quota.MessageLimit = DefaultMessageLimit
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
}
