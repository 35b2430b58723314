package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/copilot-ai/copilot/internal/prompt"
	"github.com/copilot-ai/copilot/internal/provider"
	"github.com/copilot-ai/copilot/pkg/types"
)

// NodeDeps carries the shared dependencies of the built-in node handlers.
type NodeDeps struct {
	Prompts *prompt.Registry
	Factory *provider.Factory
}

// Edge tags produced by the check nodes.
const (
	TagHTMLValid   = "html-valid"
	TagHTMLInvalid = "html-invalid"
	TagJSONValid   = "json-valid"
	TagJSONInvalid = "json-invalid"
)

// ChatHandler runs chat nodes: it renders the node's prompt with the
// accumulated params and calls a text or structured completion.
type ChatHandler struct {
	prompts *prompt.Registry
	factory *provider.Factory
}

// NewChatHandler creates the chat node handler.
func NewChatHandler(prompts *prompt.Registry, factory *provider.Factory) *ChatHandler {
	return &ChatHandler{prompts: prompts, factory: factory}
}

// Type returns the node type tag.
func (h *ChatHandler) Type() NodeType { return NodeChat }

// Run executes one chat node. Provider transport failures are retryable;
// a structured completion that fails validation is not.
func (h *ChatHandler) Run(ctx context.Context, node *Node, params Params) (*Result, error) {
	p, err := h.prompts.Get(node.PromptName)
	if err != nil {
		return nil, err
	}

	output := node.Output
	if output == "" {
		output = types.OutputText
	}

	prov, cond, err := providerFor(h.factory, p, output)
	if err != nil {
		return nil, err
	}

	finished := p.Finish(map[string]any(params), "")

	// Prompts without a content placeholder ("Summary as title") still need
	// the accumulated text; hand it over as a user turn.
	if input, ok := params["content"].(string); ok && input != "" && !p.AcceptsParam("content") {
		finished = append(finished, types.ChatMessage{Role: types.RoleUser, Content: input})
	}
	messages := provider.ToSchemaMessages(finished)

	var text string
	switch output {
	case types.OutputStructured:
		text, err = prov.Structured(ctx, cond, messages, p.Config())
		if err != nil {
			if errors.Is(err, provider.ErrMalformedOutput) {
				return nil, err
			}
			return nil, Retryable(err)
		}
	default:
		text, err = prov.Text(ctx, cond, messages, p.Config())
		if err != nil {
			return nil, Retryable(err)
		}
	}

	return &Result{
		Params: Params{node.Key(): text},
		Output: text,
	}, nil
}

// ImageHandler runs image nodes against an image-capable provider.
type ImageHandler struct {
	prompts *prompt.Registry
	factory *provider.Factory
}

// NewImageHandler creates the image node handler.
func NewImageHandler(prompts *prompt.Registry, factory *provider.Factory) *ImageHandler {
	return &ImageHandler{prompts: prompts, factory: factory}
}

// Type returns the node type tag.
func (h *ImageHandler) Type() NodeType { return NodeImage }

// Run executes one image node. The provider returns a reference to the
// generated image.
func (h *ImageHandler) Run(ctx context.Context, node *Node, params Params) (*Result, error) {
	p, err := h.prompts.Get(node.PromptName)
	if err != nil {
		return nil, err
	}

	prov, cond, err := providerFor(h.factory, p, types.OutputImage)
	if err != nil {
		return nil, err
	}

	messages := provider.ToSchemaMessages(p.Finish(map[string]any(params), ""))
	ref, err := prov.Text(ctx, cond, messages, p.Config())
	if err != nil {
		return nil, Retryable(err)
	}

	return &Result{
		Params: Params{node.Key(): ref},
		Output: ref,
	}, nil
}

// CheckHTMLHandler validates that a node's input parses as usable HTML. On
// success it also stores a markdown rendition of the document under
// "markdown" for downstream prompt nodes.
type CheckHTMLHandler struct{}

// NewCheckHTMLHandler creates the check-html node handler.
func NewCheckHTMLHandler() *CheckHTMLHandler { return &CheckHTMLHandler{} }

// Type returns the node type tag.
func (h *CheckHTMLHandler) Type() NodeType { return NodeCheckHTML }

// Run tags the execution html-valid or html-invalid.
func (h *CheckHTMLHandler) Run(_ context.Context, node *Node, params Params) (*Result, error) {
	input, _ := params[node.Key()].(string)
	if strings.TrimSpace(input) == "" {
		return &Result{Tag: TagHTMLInvalid, Output: input}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil || strings.TrimSpace(doc.Text()) == "" {
		return &Result{Tag: TagHTMLInvalid, Output: input}, nil
	}

	markdown, err := htmlToMarkdown(input)
	if err != nil {
		return &Result{Tag: TagHTMLInvalid, Output: input}, nil
	}

	return &Result{
		Tag:    TagHTMLValid,
		Params: Params{"markdown": markdown},
		Output: input,
	}, nil
}

// CheckJSONHandler validates that a node's input is well-formed JSON.
type CheckJSONHandler struct{}

// NewCheckJSONHandler creates the check-json node handler.
func NewCheckJSONHandler() *CheckJSONHandler { return &CheckJSONHandler{} }

// Type returns the node type tag.
func (h *CheckJSONHandler) Type() NodeType { return NodeCheckJSON }

// Run tags the execution json-valid or json-invalid.
func (h *CheckJSONHandler) Run(_ context.Context, node *Node, params Params) (*Result, error) {
	input, _ := params[node.Key()].(string)
	if json.Valid([]byte(input)) {
		return &Result{Tag: TagJSONValid, Output: input}, nil
	}
	return &Result{Tag: TagJSONInvalid, Output: input}, nil
}

// providerFor resolves a provider for the prompt's model chain.
func providerFor(factory *provider.Factory, p *prompt.Prompt, output types.OutputType) (provider.Provider, types.ModelCondition, error) {
	models := append([]string{p.Model()}, p.OptionalModels()...)
	for _, model := range models {
		cond := types.ModelCondition{OutputType: output, ModelID: model}
		if prov := factory.GetProvider(cond); prov != nil {
			return prov, cond, nil
		}
	}
	return nil, types.ModelCondition{}, fmt.Errorf("%w: output=%s models=%v", provider.ErrNoProviderAvailable, output, models)
}

// htmlToMarkdown converts HTML to markdown, dropping non-content elements.
func htmlToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "*",
	})
	converter.Remove("script", "style", "meta", "link")

	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(markdown), nil
}
