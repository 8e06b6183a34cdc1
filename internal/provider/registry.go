package provider

import (
	"fmt"
	"log/slog"
	"sync"
)

// Loader supplies the provider set. It is the boundary to the plugin
// loading collaborator; directory discovery and artifact format live
// behind it.
type Loader interface {
	LoadProviders() ([]Provider, error)
}

// StaticLoader is a Loader over a fixed provider list. Used for built-in
// providers and tests.
type StaticLoader []Provider

// LoadProviders implements Loader.
func (l StaticLoader) LoadProviders() ([]Provider, error) {
	return []Provider(l), nil
}

// Registry holds the currently loaded providers and their enabled state.
//
// Readers take immutable snapshots; Reload and SetEnabled only affect
// snapshots taken afterwards, so an in-flight query keeps the provider
// set it was dispatched with.
type Registry struct {
	loader Loader

	mu        sync.RWMutex
	providers []Provider // registration order
	disabled  map[string]bool
}

// NewRegistry creates a registry backed by the given loader.
// Call Reload to populate it.
func NewRegistry(loader Loader) *Registry {
	return &Registry{
		loader:   loader,
		disabled: make(map[string]bool),
	}
}

// Reload replaces the provider set from the loader. Enabled state is
// carried over by provider id; providers that disappeared drop their
// state.
func (r *Registry) Reload() error {
	providers, err := r.loader.LoadProviders()
	if err != nil {
		return fmt.Errorf("load providers: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	disabled := make(map[string]bool, len(r.disabled))
	for _, p := range providers {
		if r.disabled[p.ID()] {
			disabled[p.ID()] = true
		}
	}

	r.providers = providers
	r.disabled = disabled

	slog.Info("providers reloaded", slog.Int("count", len(providers)))
	return nil
}

// SetEnabled toggles a provider's membership in future snapshots.
// It does not cancel queries already dispatched with the provider.
// Unknown ids are remembered so the flag applies after a later reload.
func (r *Registry) SetEnabled(providerID string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if enabled {
		delete(r.disabled, providerID)
	} else {
		r.disabled[providerID] = true
	}
}

// Active returns an immutable snapshot of the enabled providers in
// registration order. The orchestrator takes one snapshot per query
// dispatch; later Reload or SetEnabled calls never mutate it.
func (r *Registry) Active() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if !r.disabled[p.ID()] {
			snapshot = append(snapshot, p)
		}
	}
	return snapshot
}

// IDs returns the ids of all loaded providers in registration order,
// including disabled ones.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.providers))
	for i, p := range r.providers {
		ids[i] = p.ID()
	}
	return ids
}
