package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[CategoryKey]CategoryDefinition)
	registryMu sync.RWMutex
)

// Register adds a category definition to the registry.
// Panics if a category with the same key is already registered.
func Register(def CategoryDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("category already registered: %s", def.Key))
	}

	registry[def.Key] = def
}

// Lookup returns a category definition by key.
// Returns false if not found.
func Lookup(key CategoryKey) (CategoryDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered category definitions, sorted by key.
func All() []CategoryDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]CategoryDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Clear removes all registered categories.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[CategoryKey]CategoryDefinition)
}
