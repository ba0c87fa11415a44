package tool

import (
	"context"
	"fmt"
	"strings"
	"sync"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

// FieldKind is the semantic type of one schema field.
type FieldKind string

const (
	KindString FieldKind = "string"
	KindNumber FieldKind = "number"
	KindBool   FieldKind = "bool"
	KindObject FieldKind = "object"
)

type FieldSpec struct {
	Kind     FieldKind
	Desc     string
	Required bool
}

// Schema maps field names to their specs for tool inputs and outputs.
type Schema map[string]FieldSpec

// Implementation is the external collaborator contract: validated arguments
// in, either a payload matching the declared output schema or a *ToolError
// carrying a transient/permanent classification out.
type Implementation func(ctx context.Context, args map[string]any) (any, error)

// ToolSpec is the declared shape of one tool: unique name, input/output
// schema, and side-effect class.
type ToolSpec struct {
	Name       string
	Desc       string
	Input      Schema
	Output     Schema
	SideEffect contractx.SideEffect
}

type entry struct {
	spec ToolSpec
	impl Implementation
}

// Registry holds every available tool's declared schema. Registration happens
// during initialization; lookups are concurrent-safe and read-mostly after
// startup. A ToolSpec with side-effect class irreversible is rejected unless
// its name is explicitly whitelisted, so the human-in-the-loop guarantee is
// structural rather than conventional.
type Registry struct {
	mu          sync.RWMutex
	entries     map[string]entry
	whitelisted map[string]struct{}
}

type RegistryOption func(*Registry)

// WithIrreversibleWhitelist names the tools allowed to carry the irreversible
// side-effect class.
func WithIrreversibleWhitelist(names ...string) RegistryOption {
	return func(r *Registry) {
		for _, name := range names {
			trimmed := strings.TrimSpace(name)
			if trimmed != "" {
				r.whitelisted[trimmed] = struct{}{}
			}
		}
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries:     make(map[string]entry, 16),
		whitelisted: make(map[string]struct{}, 4),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Registry) Register(spec ToolSpec, impl Implementation) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
	}
	if impl == nil {
		return fmt.Errorf("%w: tool=%s has no implementation", contractx.ErrValidation, name)
	}
	switch spec.SideEffect {
	case contractx.SideEffectReadOnly, contractx.SideEffectDraft:
	case contractx.SideEffectIrreversible:
		if _, ok := r.whitelisted[name]; !ok {
			return fmt.Errorf("%w: tool=%s", contractx.ErrInvalidSideEffectClass, name)
		}
	default:
		return fmt.Errorf("%w: tool=%s has invalid side-effect class %q", contractx.ErrValidation, name, spec.SideEffect)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: tool=%s", contractx.ErrDuplicateTool, name)
	}
	spec.Name = name
	r.entries[name] = entry{spec: spec, impl: impl}
	return nil
}

func (r *Registry) Lookup(name string) (ToolSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[strings.TrimSpace(name)]
	if !ok {
		return ToolSpec{}, fmt.Errorf("%w: tool=%s", contractx.ErrUnknownTool, name)
	}
	return e.spec, nil
}

func (r *Registry) implementation(name string) (Implementation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: tool=%s", contractx.ErrUnknownTool, name)
	}
	return e.impl, nil
}

// Names returns registered tool names in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Override swaps the implementation of an already registered tool. Intended
// for wiring real collaborators (webhook clients) over the built-in stubs at
// startup.
func (r *Registry) Override(name string, impl Implementation) error {
	if impl == nil {
		return fmt.Errorf("%w: nil implementation for tool=%s", contractx.ErrValidation, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[strings.TrimSpace(name)]
	if !ok {
		return fmt.Errorf("%w: tool=%s", contractx.ErrUnknownTool, name)
	}
	e.impl = impl
	r.entries[strings.TrimSpace(name)] = e
	return nil
}
