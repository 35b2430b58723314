package prompt

import "github.com/copilot-ai/copilot/pkg/types"

const defaultChatModel = "gpt-4o"

// builtinPrompts returns the prompt definitions shipped with the engine.
// User YAML files may override any of them by name.
func builtinPrompts() []*types.PromptDefinition {
	f := func(v float64) *float64 { return &v }

	return []*types.PromptDefinition{
		{
			Name:           "Chat with assistant",
			Model:          defaultChatModel,
			OptionalModels: []string{"claude-sonnet-4-20250514", "gemini-2.0-flash"},
			Messages: []types.PromptMessage{
				{
					Role: types.RoleSystem,
					Content: "You are a knowledgeable assistant embedded in a collaborative workspace. " +
						"Answer precisely and cite document context when it is provided. " +
						"The current date is {{currentDate}}.",
				},
			},
			Config: &types.PromptConfig{Temperature: f(0.7)},
		},
		{
			Name:   "Summary as title",
			Model:  defaultChatModel,
			Action: "Summary as title",
			Messages: []types.PromptMessage{
				{
					Role: types.RoleSystem,
					Content: "Summarize the conversation in 10 words or less as a title. " +
						"Output only the title, no quotes, no trailing punctuation.",
				},
			},
			Config: &types.PromptConfig{Temperature: f(0.3), MaxTokens: 50},
		},
		{
			Name:   "Summarize",
			Model:  defaultChatModel,
			Action: "Summarize",
			Messages: []types.PromptMessage{
				{
					Role:    types.RoleSystem,
					Content: "Summarize the following content. Keep key facts, decisions and numbers exact.",
				},
				{
					Role:    types.RoleUser,
					Content: "{{content}}",
				},
			},
			Config: &types.PromptConfig{Temperature: f(0.2)},
		},
		{
			Name:   "Transcribe audio",
			Model:  "gemini-2.0-flash",
			Action: "Transcribe audio",
			Messages: []types.PromptMessage{
				{
					Role: types.RoleSystem,
					Content: "Transcribe the attached audio. Output a JSON array of segments with " +
						`the shape [{"speaker":"A","start":"00:00","end":"00:05","transcription":"..."}]. ` +
						"Output only JSON.",
				},
			},
			Config: &types.PromptConfig{Temperature: f(0.0)},
		},
		{
			Name:   "Summarize the meeting",
			Model:  defaultChatModel,
			Action: "Summarize the meeting",
			Messages: []types.PromptMessage{
				{
					Role: types.RoleSystem,
					Content: "Produce meeting notes from the transcript below. Group by topic, " +
						"keep names and times exact.",
				},
				{
					Role:    types.RoleUser,
					Content: "{{content}}",
				},
			},
			Config: &types.PromptConfig{Temperature: f(0.3)},
		},
		{
			Name:   "Extract action items",
			Model:  defaultChatModel,
			Action: "Extract action items",
			Messages: []types.PromptMessage{
				{
					Role: types.RoleSystem,
					Content: "Extract action items from the transcript. Output a JSON array " +
						`[{"owner":"...","action":"...","due":"..."}]. Output only JSON.`,
				},
				{
					Role:    types.RoleUser,
					Content: "{{content}}",
				},
			},
			Config: &types.PromptConfig{Temperature: f(0.0)},
		},
		{
			Name:   "Create a presentation",
			Model:  "claude-sonnet-4-20250514",
			Action: "Create a presentation",
			Messages: []types.PromptMessage{
				{
					Role: types.RoleSystem,
					Content: "Turn the outline below into presentation slides as a single HTML " +
						"document. One <section> per slide. Output only HTML.",
				},
				{
					Role:    types.RoleUser,
					Content: "{{content}}",
				},
			},
			Config: &types.PromptConfig{Temperature: f(0.5), MaxTokens: 8192},
		},
		{
			Name:   "Generate an image",
			Model:  "gemini-2.0-flash",
			Action: "Generate an image",
			Messages: []types.PromptMessage{
				{
					Role:    types.RoleUser,
					Content: "{{content}}",
				},
			},
		},
	}
}
