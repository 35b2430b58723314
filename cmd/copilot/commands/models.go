package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/copilot-ai/copilot/internal/provider"
)

var modelsVerbose bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	Long: `List all models the configured providers can serve.

Examples:
  copilot models              # List all models
  copilot models --verbose    # Show pricing information`,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().BoolVarP(&modelsVerbose, "verbose", "v", false, "Include metadata like costs")
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	factory, err := provider.InitializeProviders(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	models := factory.AllModels()
	if len(models) == 0 {
		fmt.Println("No providers configured. Set API keys in the config file or environment.")
		return nil
	}

	var defaultID string
	if m, err := factory.DefaultModel(); err == nil {
		defaultID = m.ID
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if modelsVerbose {
		fmt.Fprintln(w, "MODEL\tPROVIDER\tCONTEXT\tIN $/M\tOUT $/M")
	} else {
		fmt.Fprintln(w, "MODEL\tPROVIDER")
	}
	for _, m := range models {
		name := m.ID
		if m.ID == defaultID {
			name += " (default)"
		}
		if modelsVerbose {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\n", name, m.ProviderType, m.ContextLength, m.InputPrice, m.OutputPrice)
		} else {
			fmt.Fprintf(w, "%s\t%s\n", name, m.ProviderType)
		}
	}
	return w.Flush()
}
