package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/casualjim/sqlowl/provider"
)

// Model is a handle on a generation backend.
type Model interface {
	Name() string
	Provider() provider.Provider
}

// Releaser is implemented by models that hold shared state until released.
type Releaser interface {
	Release()
}

// ReleaseModel gives back a handle obtained from ModelFromSpec once the caller
// is done with it.
func ReleaseModel(m Model) {
	if r, ok := m.(Releaser); ok {
		r.Release()
	}
}

var ErrUnknownModelKind = errors.New("unknown model kind")

// ModelFactory builds a model from the part of a model spec after "kind:".
type ModelFactory func(ref string) (Model, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]ModelFactory{}
)

// RegisterModelKind makes kind available to ModelFromSpec.
// Registering the same kind twice replaces the factory.
func RegisterModelKind(kind string, factory ModelFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[strings.ToLower(kind)] = factory
}

// ModelFromSpec resolves identifiers like "openai:gpt-4" or
// "local:mistral@http://localhost:8080/v1/". A spec without a kind is
// treated as an openai model name.
func ModelFromSpec(spec string) (Model, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("empty model spec")
	}

	kind, ref, found := strings.Cut(spec, ":")
	if !found || strings.HasPrefix(ref, "//") {
		kind, ref = "openai", spec
	}

	factoriesMu.RLock()
	factory, ok := factories[strings.ToLower(kind)]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelKind, kind)
	}
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("model spec %q has no model name", spec)
	}
	return factory(ref)
}
