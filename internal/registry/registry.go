// Package registry interns values by name for the lifetime of the process.
// Names are case insensitive and surrounding whitespace is ignored, so
// "openai:GPT-4" and "openai:gpt-4" share an entry.
package registry

import (
	"slices"
	"strings"

	"github.com/alphadose/haxmap"
)

type Registry[T any] struct {
	values *haxmap.Map[string, T]
}

func New[T any]() *Registry[T] {
	return &Registry[T]{values: haxmap.New[string, T]()}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *Registry[T]) Get(name string) (T, bool) {
	return r.values.Get(normalize(name))
}

// Set stores value under name, replacing what was there.
func (r *Registry[T]) Set(name string, value T) {
	r.values.Set(normalize(name), value)
}

// Intern returns the value stored under name, building it with create
// when name is absent. The boolean reports whether the value already existed.
func (r *Registry[T]) Intern(name string, create func() T) (T, bool) {
	return r.values.GetOrCompute(normalize(name), create)
}

func (r *Registry[T]) Delete(name string) {
	r.values.Del(normalize(name))
}

// Names returns the stored names in sorted order.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, r.values.Len())
	r.values.ForEach(func(name string, _ T) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

func (r *Registry[T]) Len() int {
	return int(r.values.Len())
}
