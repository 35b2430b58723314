package workflow

import "github.com/copilot-ai/copilot/pkg/types"

// Built-in workflow graphs. Callers pass the initial params the root node's
// prompt expects; for both graphs that is a "content" param carrying the
// source text.

// TranscriptionGraph chains the post-transcription pipeline: summarize the
// transcript, derive a title, then extract action items as structured JSON.
// The extraction output is gated by a check-json node; invalid JSON loops
// back for another attempt until the step bound cuts it off.
func TranscriptionGraph() *Graph {
	return &Graph{
		Name: "transcription",
		Root: "summary",
		Nodes: map[string]*Node{
			"summary": {
				ID:         "summary",
				Type:       NodeChat,
				PromptName: "Summarize the meeting",
				ParamKey:   "content",
				Edges:      []Edge{{To: "title"}},
			},
			"title": {
				ID:         "title",
				Type:       NodeChat,
				PromptName: "Summary as title",
				ParamKey:   "title",
				Edges:      []Edge{{To: "actions"}},
			},
			"actions": {
				ID:         "actions",
				Type:       NodeChat,
				PromptName: "Extract action items",
				Output:     types.OutputStructured,
				ParamKey:   "actions",
				Edges:      []Edge{{To: "check-actions"}},
			},
			"check-actions": {
				ID:       "check-actions",
				Type:     NodeCheckJSON,
				ParamKey: "actions",
				Edges: []Edge{
					{To: "actions", When: TagJSONInvalid},
				},
			},
		},
	}
}

// PresentationGraph drafts presentation HTML, validates it, and renders a
// cover image once the markup is sound. Invalid markup loops back to the
// drafting node.
func PresentationGraph() *Graph {
	return &Graph{
		Name: "presentation",
		Root: "draft",
		Nodes: map[string]*Node{
			"draft": {
				ID:         "draft",
				Type:       NodeChat,
				PromptName: "Create a presentation",
				ParamKey:   "content",
				Edges:      []Edge{{To: "check-markup"}},
			},
			"check-markup": {
				ID:       "check-markup",
				Type:     NodeCheckHTML,
				ParamKey: "content",
				Edges: []Edge{
					{To: "draft", When: TagHTMLInvalid},
					{To: "cover", When: TagHTMLValid},
				},
			},
			"cover": {
				ID:         "cover",
				Type:       NodeImage,
				PromptName: "Generate an image",
				ParamKey:   "cover",
			},
		},
	}
}
