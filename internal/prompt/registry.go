package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	"github.com/copilot-ai/copilot/internal/logging"
	"github.com/copilot-ai/copilot/pkg/types"
)

// ErrNotFound is returned when a prompt name is unknown.
var ErrNotFound = errors.New("prompt not found")

// Registry holds compiled prompt templates. Built-in prompts are always
// present; user-defined YAML files may add to or override them. The registry
// is read-mostly: admin updates go through Set/Delete, which invalidate the
// whole compiled cache (delete-then-recreate, not versioning).
type Registry struct {
	mu       sync.RWMutex
	dir      string
	compiled map[string]*Prompt
}

// NewRegistry creates a registry seeded with the built-in prompts, then
// overlays definitions from YAML files in dir (if non-empty).
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{dir: dir, compiled: make(map[string]*Prompt)}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns the compiled prompt by name. Unknown names return ErrNotFound
// wrapped with a nearest-name suggestion when one is close enough.
func (r *Registry) Get(name string) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.compiled[name]
	if !ok {
		if suggestion := r.nearest(name); suggestion != "" {
			return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrNotFound, name, suggestion)
		}
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// Names returns all registered prompt names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.compiled))
	for name := range r.compiled {
		names = append(names, name)
	}
	return names
}

// Set registers or replaces a prompt definition (admin path).
func (r *Registry) Set(def *types.PromptDefinition) error {
	p, err := Compile(def)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.compiled[def.Name] = p
	return nil
}

// Delete removes a prompt by name. Built-in prompts reappear on Reload.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.compiled, name)
}

// Reload rebuilds the compiled cache from built-ins plus the prompt
// directory. Concurrent readers may briefly see the previous cache.
func (r *Registry) Reload() error {
	compiled := make(map[string]*Prompt)

	for _, def := range builtinPrompts() {
		p, err := Compile(def)
		if err != nil {
			return fmt.Errorf("built-in prompt %q: %w", def.Name, err)
		}
		compiled[def.Name] = p
	}

	if r.dir != "" {
		if err := loadDir(r.dir, compiled); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.compiled = compiled
	r.mu.Unlock()

	logging.Debug().Int("prompts", len(compiled)).Msg("prompt registry reloaded")
	return nil
}

// loadDir compiles every *.yaml/*.yml file in dir into out. A file may hold
// one definition or a list of them.
func loadDir(dir string, out map[string]*Prompt) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read prompt dir: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read prompt file %s: %w", name, err)
		}

		defs, err := parsePromptFile(data)
		if err != nil {
			return fmt.Errorf("failed to parse prompt file %s: %w", name, err)
		}

		for _, def := range defs {
			p, err := Compile(def)
			if err != nil {
				return fmt.Errorf("prompt file %s: %w", name, err)
			}
			out[def.Name] = p
		}
	}

	return nil
}

// parsePromptFile accepts either a single definition or a YAML list.
func parsePromptFile(data []byte) ([]*types.PromptDefinition, error) {
	var list []*types.PromptDefinition
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, nil
	}

	var single types.PromptDefinition
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []*types.PromptDefinition{&single}, nil
}

// nearest returns the closest registered name within a small edit distance.
// Caller must hold at least the read lock.
func (r *Registry) nearest(name string) string {
	best := ""
	bestDist := 6 // ignore anything further than 5 edits
	for candidate := range r.compiled {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(candidate))
		if d < bestDist {
			best = candidate
			bestDist = d
		}
	}
	return best
}
