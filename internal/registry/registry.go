// Package registry implements the provider registry described in
// component 4.B: an idempotent, thread-safe map from provider name to a
// factory that builds a fresh depctx.Adapter instance.
//
// Ported from original_source/3-cloud-deployer/src/core/registry.py:
// registration at startup is idempotent for the same factory, lookups
// are read-only, and an unknown name raises ProviderNotFound naming the
// registered alternatives.
package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

// Factory builds a fresh, uninitialized depctx.Adapter. A fresh
// instance is returned on every Get call so that multiple concurrent
// deployments never share adapter state.
type Factory func() depctx.Adapter

// Registry is the provider name -> Factory map.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	// kept only to detect "same factory registered twice" at a
	// reasonable granularity (function identity isn't comparable in Go,
	// so we compare by the concrete type the factory produces).
	factoryType map[string]reflect.Type
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		factories:   make(map[string]Factory),
		factoryType: make(map[string]reflect.Type),
	}
}

// Register adds a factory under name. Re-registering the same name with
// a factory that produces the same concrete adapter type is a no-op
// (idempotent); registering a different concrete type under a name
// already taken is an error.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sample := factory()
	t := reflect.TypeOf(sample)

	if existing, ok := r.factoryType[name]; ok {
		if existing != t {
			return fmt.Errorf("provider %q already registered with a different implementation (%s), cannot re-register with %s", name, existing, t)
		}
		return nil
	}

	r.factories[name] = factory
	r.factoryType[name] = t
	return nil
}

// MustRegister panics if Register fails; intended for package init()
// blocks where a registration conflict is a programming error.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Get returns a fresh depctx.Adapter instance for name.
func (r *Registry) Get(name string) (depctx.Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, twinerrors.ProviderNotFound(name, r.List())
	}
	return factory(), nil
}

// List returns every registered provider name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether name has a factory.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}
