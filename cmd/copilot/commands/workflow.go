package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/copilot-ai/copilot/internal/prompt"
	"github.com/copilot-ai/copilot/internal/provider"
	"github.com/copilot-ai/copilot/internal/workflow"
)

var workflowContent string

var workflowCmd = &cobra.Command{
	Use:   "workflow <graph>",
	Short: "Run a built-in workflow graph",
	Long: `Run a workflow graph against the configured providers.

Available graphs:
  transcription  summarize a transcript, title it and extract action items
  presentation   draft presentation markup and render a cover image

The source text is read from --content, or from stdin when omitted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

func init() {
	workflowCmd.Flags().StringVar(&workflowContent, "content", "", "Source text for the graph's root node")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	var graph *workflow.Graph
	switch args[0] {
	case "transcription":
		graph = workflow.TranscriptionGraph()
	case "presentation":
		graph = workflow.PresentationGraph()
	default:
		return fmt.Errorf("unknown graph %q", args[0])
	}

	content := workflowContent
	if content == "" {
		data, err := os.ReadFile("/dev/stdin")
		if err != nil {
			return fmt.Errorf("no --content given and stdin unreadable: %w", err)
		}
		content = string(data)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := prompt.NewRegistry(cfg.PromptDir)
	if err != nil {
		return err
	}

	factory, err := provider.InitializeProviders(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	executor, err := workflow.NewDefaultExecutor(workflow.NodeDeps{Prompts: registry, Factory: factory}, nil)
	if err != nil {
		return err
	}

	run, err := executor.Run(cmd.Context(), graph, workflow.Params{"content": content})
	if err != nil {
		return err
	}

	fmt.Println(run.Output)
	return nil
}
