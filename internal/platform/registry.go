package platform

import (
	"fmt"
	"sync"
)

// Registry holds the registered platform adapters. Adapter selection is a
// lookup keyed on the platform enum; capability probing goes through the
// typed accessors below.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Platform]Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[Platform]Adapter{},
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return fmt.Errorf("adapter is nil")
	}
	p := adapter.Platform()
	if p == "" {
		return fmt.Errorf("adapter platform is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[p]; exists {
		return fmt.Errorf("platform already registered: %s", p)
	}
	r.adapters[p] = adapter
	return nil
}

// MustRegister calls Register and panics on error.
func (r *Registry) MustRegister(adapter Adapter) {
	if err := r.Register(adapter); err != nil {
		panic(err)
	}
}

// Get returns the adapter for the given platform.
func (r *Registry) Get(p Platform) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[p]
	return adapter, ok
}

// GetSender returns the Sender for the given platform, or false if the
// platform is unknown or cannot send.
func (r *Registry) GetSender(p Platform) (Sender, bool) {
	adapter, ok := r.Get(p)
	if !ok {
		return nil, false
	}
	sender, ok := adapter.(Sender)
	return sender, ok
}

// GetMediaResolver returns the MediaResolver for the given platform, or false
// if unsupported.
func (r *Registry) GetMediaResolver(p Platform) (MediaResolver, bool) {
	adapter, ok := r.Get(p)
	if !ok {
		return nil, false
	}
	resolver, ok := adapter.(MediaResolver)
	return resolver, ok
}

// GetPuller returns the Puller for the given platform, or false if unsupported.
func (r *Registry) GetPuller(p Platform) (Puller, bool) {
	adapter, ok := r.Get(p)
	if !ok {
		return nil, false
	}
	puller, ok := adapter.(Puller)
	return puller, ok
}

// Platforms returns all registered platforms.
func (r *Registry) Platforms() []Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]Platform, 0, len(r.adapters))
	for p := range r.adapters {
		items = append(items, p)
	}
	return items
}
