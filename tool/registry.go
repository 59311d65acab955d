package tool

import (
	"context"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Provider is the capability provider the agent loop dispatches actions to.
type Provider interface {
	// Names returns the registered action names in registration order.
	Names() []string
	// Call runs the named action with positional string inputs.
	Call(ctx context.Context, name string, args []string) (any, error)
}

var _ Provider = (*Registry)(nil)

// Registry is an ordered set of tool definitions.
type Registry struct {
	defs *orderedmap.OrderedMap[string, Definition]
}

// NewRegistry creates a registry with defs in order.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: orderedmap.New[string, Definition]()}
	for _, def := range defs {
		if err := r.Add(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers def. Names must be unique and non-empty.
func (r *Registry) Add(def Definition) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.Function == nil {
		return fmt.Errorf("tool %s has nil function", def.Name)
	}
	if _, exists := r.defs.Get(def.Name); exists {
		return fmt.Errorf("tool %s is already registered", def.Name)
	}
	r.defs.Set(def.Name, def)
	return nil
}

func (r *Registry) Get(name string) (Definition, bool) {
	return r.defs.Get(name)
}

func (r *Registry) Len() int {
	return r.defs.Len()
}

func (r *Registry) Names() []string {
	names := make([]string, 0, r.defs.Len())
	for pair := r.defs.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Definitions returns the registered definitions in order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, r.defs.Len())
	for pair := r.defs.Oldest(); pair != nil; pair = pair.Next() {
		defs = append(defs, pair.Value)
	}
	return defs
}

func (r *Registry) Call(ctx context.Context, name string, args []string) (any, error) {
	def, ok := r.defs.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAction, name)
	}
	return def.Call(ctx, args)
}

// Describe renders one "name: description" line per tool, for prompts.
func (r *Registry) Describe() string {
	var sb strings.Builder
	for pair := r.defs.Oldest(); pair != nil; pair = pair.Next() {
		sb.WriteString(pair.Key)
		sb.WriteString(": ")
		sb.WriteString(strings.TrimSpace(pair.Value.Description))
		sb.WriteByte('\n')
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
