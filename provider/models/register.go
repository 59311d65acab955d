// Package models interns model handles so that each backend gets one provider per process.
package models

import (
	"strings"
	"sync"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/internal/registry"
)

var (
	interned = registry.New[api.Model]()

	refsMu sync.Mutex
	refs   = map[string]int{}
)

// Key builds the registry key for a model of the given kind.
func Key(kind, name string) string {
	return strings.ToLower(strings.TrimSpace(kind + ":" + name))
}

func Get(kind, name string) (api.Model, bool) {
	return interned.Get(Key(kind, name))
}

// GetOrAdd returns the interned model, building it with modelF the first time.
// The model stays interned until Del.
func GetOrAdd(kind, name string, modelF func() api.Model) api.Model {
	m, _ := interned.Intern(Key(kind, name), modelF)
	return m
}

// Acquire is GetOrAdd with a reference count: the model is forgotten once
// every Acquire has been matched by a Release.
func Acquire(kind, name string, modelF func() api.Model) api.Model {
	key := Key(kind, name)
	refsMu.Lock()
	defer refsMu.Unlock()
	m, _ := interned.Intern(key, modelF)
	refs[key]++
	return m
}

// Release gives back a reference taken with Acquire.
func Release(kind, name string) {
	key := Key(kind, name)
	refsMu.Lock()
	defer refsMu.Unlock()
	if refs[key] > 1 {
		refs[key]--
		return
	}
	delete(refs, key)
	interned.Delete(key)
}

func Del(kind, name string) {
	key := Key(kind, name)
	refsMu.Lock()
	defer refsMu.Unlock()
	delete(refs, key)
	interned.Delete(key)
}

// Known lists the keys of every model built so far.
func Known() []string {
	return interned.Names()
}
