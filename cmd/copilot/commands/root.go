// Package commands provides the CLI commands for the copilot engine.
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/copilot-ai/copilot/internal/config"
	"github.com/copilot-ai/copilot/internal/logging"
	"github.com/copilot-ai/copilot/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "copilot",
	Short: "Copilot - AI chat session engine",
	Long: `Copilot runs the chat session engine: prompt-templated conversations
against multiple LLM providers, with durable session state, context
windowing and workflow pipelines.

Run 'copilot serve' to start the HTTP API, or 'copilot prompts' to
inspect the prompt registry.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("copilot %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(workflowCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the merged configuration and initializes logging from it.
func loadConfig() (*types.Config, error) {
	// A .env in the working directory is convenient for provider keys.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logging.Init(logging.Config{Level: logging.ParseLevel(level), Pretty: true})

	return cfg, nil
}
