package config

import (
	"os"
	"path/filepath"
)

// AppPaths holds the XDG-style directories the engine uses.
type AppPaths struct {
	Data   string // ~/.local/share/copilot
	Config string // ~/.config/copilot
}

// Paths returns the standard paths, honoring XDG overrides.
func Paths() *AppPaths {
	return &AppPaths{
		Data:   filepath.Join(envOrDefault("XDG_DATA_HOME", filepath.Join(os.Getenv("HOME"), ".local", "share")), "copilot"),
		Config: filepath.Join(envOrDefault("XDG_CONFIG_HOME", filepath.Join(os.Getenv("HOME"), ".config")), "copilot"),
	}
}

// Ensure creates the directories if missing.
func (p *AppPaths) Ensure() error {
	for _, dir := range []string{p.Data, p.Config} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
