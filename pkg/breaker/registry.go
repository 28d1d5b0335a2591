package breaker

import "sync"

// StorageFactory builds the storage backend for one dependency's
// breaker. The namespace is the dependency name; factories for shared
// backends should scope keys with it so breakers never observe each
// other's state.
type StorageFactory func(namespace string) Storage

// Registry lazily creates and owns one circuit breaker per protected
// dependency, keyed by dependency name.
//
// Integration layers (HTTP transports, gRPC interceptors) look breakers
// up here instead of keeping process-wide breaker state. The registry
// has an explicit lifecycle: Reset drops all breakers so they are
// rebuilt from fresh configuration on next use.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	template Config
	factory  StorageFactory
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a registry that configures every breaker from the
// given template. The template's Name and Storage fields are ignored;
// each breaker is named after its dependency and gets its storage from
// factory.
//
// A nil factory gives every breaker its own memory storage, seeded
// closed.
func NewRegistry(template Config, factory StorageFactory) *Registry {
	if factory == nil {
		factory = func(string) Storage { return NewMemoryStorage(StateClosed) }
	}
	return &Registry{
		template: template,
		factory:  factory,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for the named dependency, creating it on
// first use.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	cfg := r.template
	cfg.Name = name
	cfg.Storage = r.factory(name)
	cb := New(cfg)
	r.breakers[name] = cb
	return cb
}

// Names returns the names of all breakers created so far.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	return names
}

// Reset drops every breaker so the next Get rebuilds it from the
// template and factory. Call it after reconfiguration. Canonical state
// in shared storage is untouched; rebuilt breakers re-adopt it through
// reconciliation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}
