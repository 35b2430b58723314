package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/copilot-ai/copilot/internal/prompt"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect the prompt registry",
	RunE:  runPromptsList,
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one prompt's metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsShow,
}

func init() {
	promptsCmd.AddCommand(promptsShowCmd)
}

func loadRegistry() (*prompt.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return prompt.NewRegistry(cfg.PromptDir)
}

func runPromptsList(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	names := registry.Names()
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tKIND\tTOKENS")
	for _, name := range names {
		p, err := registry.Get(name)
		if err != nil {
			continue
		}
		kind := "chat"
		if p.IsAction() {
			kind = "action"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.Name(), p.Model(), kind, p.TokenCost())
	}
	return w.Flush()
}

func runPromptsShow(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	p, err := registry.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Name:    %s\n", p.Name())
	fmt.Printf("Model:   %s\n", p.Model())
	if models := p.OptionalModels(); len(models) > 0 {
		fmt.Printf("Fallbacks: %s\n", strings.Join(models, ", "))
	}
	fmt.Printf("Action:  %v\n", p.IsAction())
	fmt.Printf("Tokens:  %d\n", p.TokenCost())
	if keys := p.ParamKeys(); len(keys) > 0 {
		fmt.Printf("Params:  %s\n", strings.Join(keys, ", "))
	}
	return nil
}
