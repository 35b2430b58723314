// Package prompt provides named prompt templates: loading, compilation,
// variable rendering and a process-wide registry.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/copilot-ai/copilot/internal/tokenizer"
	"github.com/copilot-ai/copilot/pkg/types"
)

// placeholderRe matches {{variable}} placeholders in message templates.
var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.:-]+)\s*\}\}`)

// Builtin variables injected into system messages at render time.
const (
	VarCurrentDate = "currentDate"
	VarSessionID   = "sessionId"
)

// Prompt is a compiled template ready to render. Compilation resolves the
// placeholder set once; values are bound per Finish call.
type Prompt struct {
	def       *types.PromptDefinition
	estimator *tokenizer.Estimator
	paramKeys map[string]struct{}
	tokenCost int
}

// Compile builds a renderable prompt from its stored definition.
func Compile(def *types.PromptDefinition) (*Prompt, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("prompt definition missing name")
	}
	if len(def.Messages) == 0 {
		return nil, fmt.Errorf("prompt %q has no messages", def.Name)
	}

	p := &Prompt{
		def:       def,
		estimator: tokenizer.ForModel(def.Model),
		paramKeys: make(map[string]struct{}),
	}

	for _, msg := range def.Messages {
		for _, m := range placeholderRe.FindAllStringSubmatch(msg.Content, -1) {
			p.paramKeys[m[1]] = struct{}{}
		}
		// The template's own token cost, rendered with static params only.
		p.tokenCost += p.estimator.Encode(render(msg.Content, msg.Params))
	}

	return p, nil
}

// Name returns the prompt's unique name.
func (p *Prompt) Name() string { return p.def.Name }

// Model returns the target model id.
func (p *Prompt) Model() string { return p.def.Model }

// OptionalModels returns alternate model ids that may serve the prompt.
func (p *Prompt) OptionalModels() []string { return p.def.OptionalModels }

// Config returns the generation config, possibly nil.
func (p *Prompt) Config() *types.PromptConfig { return p.def.Config }

// IsAction reports whether the prompt is single-shot: one user turn, no
// accumulated history.
func (p *Prompt) IsAction() bool { return p.def.Action != "" }

// TokenCost is the estimated token cost of the template itself.
func (p *Prompt) TokenCost() int { return p.tokenCost }

// ParamKeys returns the sorted set of placeholder names the template accepts.
func (p *Prompt) ParamKeys() []string {
	keys := make([]string, 0, len(p.paramKeys))
	for k := range p.paramKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AcceptsParam reports whether the template has a placeholder for key.
func (p *Prompt) AcceptsParam(key string) bool {
	_, ok := p.paramKeys[key]
	return ok
}

// Encode estimates the token cost of text under the prompt's model family.
func (p *Prompt) Encode(text string) int {
	return p.estimator.Encode(text)
}

// MaxTokens returns the configured completion budget, or fallback when the
// prompt does not set one.
func (p *Prompt) MaxTokens(fallback int) int {
	if p.def.Config != nil && p.def.Config.MaxTokens > 0 {
		return p.def.Config.MaxTokens
	}
	return fallback
}

// Finish renders every message template in declared order, substituting
// params. Unresolved placeholders render as empty strings: partial parameter
// sets are tolerated, never an error. System messages additionally receive
// the current date and the session id.
func (p *Prompt) Finish(params map[string]any, sessionID string) []types.ChatMessage {
	now := time.Now()
	out := make([]types.ChatMessage, 0, len(p.def.Messages))

	for _, msg := range p.def.Messages {
		bound := mergeParams(msg.Params, params)
		if msg.Role == types.RoleSystem {
			if _, ok := bound[VarCurrentDate]; !ok {
				bound[VarCurrentDate] = now.Format(time.RFC3339)
			}
			if _, ok := bound[VarSessionID]; !ok {
				bound[VarSessionID] = sessionID
			}
		}

		out = append(out, types.ChatMessage{
			Role:        msg.Role,
			Content:     render(msg.Content, bound),
			Attachments: paramAttachments(bound),
			Params:      msg.Params,
			CreatedAt:   now,
		})
	}

	return out
}

// render substitutes placeholders from params; missing values become "".
func render(content string, params map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(content, func(ph string) string {
		key := placeholderRe.FindStringSubmatch(ph)[1]
		v, ok := params[key]
		if !ok || v == nil {
			return ""
		}
		switch t := v.(type) {
		case string:
			return t
		case fmt.Stringer:
			return t.String()
		default:
			return fmt.Sprintf("%v", t)
		}
	})
}

// mergeParams layers caller params over the template's static params.
func mergeParams(static, caller map[string]any) map[string]any {
	merged := make(map[string]any, len(static)+len(caller))
	for k, v := range static {
		merged[k] = v
	}
	for k, v := range caller {
		merged[k] = v
	}
	return merged
}

// paramAttachments extracts attachment references from a bound "attachments"
// param. Both string lists and structured entries are accepted.
func paramAttachments(params map[string]any) []types.Attachment {
	raw, ok := params["attachments"]
	if !ok {
		return nil
	}

	var out []types.Attachment
	appendOne := func(v any) {
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) != "" {
				out = append(out, types.Attachment{URL: t})
			}
		case types.Attachment:
			if !t.Empty() {
				out = append(out, t)
			}
		case map[string]any:
			url, _ := t["attachment"].(string)
			mime, _ := t["mimeType"].(string)
			if strings.TrimSpace(url) != "" {
				out = append(out, types.Attachment{URL: url, MimeType: mime})
			}
		}
	}

	switch t := raw.(type) {
	case []string:
		for _, v := range t {
			appendOne(v)
		}
	case []types.Attachment:
		for _, v := range t {
			appendOne(v)
		}
	case []any:
		for _, v := range t {
			appendOne(v)
		}
	}

	return out
}
