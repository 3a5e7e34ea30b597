package adapters

import (
	"fmt"
	"sort"
	"sync"

	"github.com/akave-ai/vaultgate/internal/config"
)

// Registry holds adapter factories and the adapters built from them.
// Factories are registered and adapters built at startup; lookups are
// concurrent afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	adapters  map[string]Adapter
}

// NewRegistry returns a new Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		adapters:  make(map[string]Adapter),
	}
}

// Register adds a factory.
func (r *Registry) Register(factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[factory.Name()] = factory
}

// Add installs a ready adapter under its own name.
func (r *Registry) Add(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Build creates an adapter for every registered factory that cfg
// configures. It returns the names of the adapters built.
func (r *Registry) Build(cfg *config.Config, deps Deps) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var built []string
	for name, factory := range r.factories {
		if !factory.Configured(cfg) {
			continue
		}
		a, err := factory.Create(cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("create adapter %s: %w", name, err)
		}
		r.adapters[name] = a
		built = append(built, name)
	}
	sort.Strings(built)
	return built, nil
}

// Get returns the built adapter with the given name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// ListRegistered returns all registered adapter names, sorted.
func (r *Registry) ListRegistered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	for name := range r.adapters {
		if _, ok := r.factories[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// GetTypeInfo returns the description of the named adapter. ok is false if
// the name is unknown.
func (r *Registry) GetTypeInfo(name string) (info TypeInfo, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.infoLocked(name)
}

func (r *Registry) infoLocked(name string) (TypeInfo, bool) {
	if a, ok := r.adapters[name]; ok {
		info := a.Info()
		info.Enabled = true
		return info, true
	}
	if f, ok := r.factories[name]; ok {
		return f.ConfigSpec(), true
	}
	return TypeInfo{}, false
}

// AllTypesInfo returns descriptions of all known adapters, sorted by name.
func (r *Registry) AllTypesInfo() []TypeInfo {
	names := r.ListRegistered()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TypeInfo, 0, len(names))
	for _, name := range names {
		if info, ok := r.infoLocked(name); ok {
			out = append(out, info)
		}
	}
	return out
}
