package backend

import (
	"fmt"
	"sync"
)

// Opener builds a backend for a compiled network on first acquisition.
type Opener func() (Backend, error)

// Registry hands out shared backends keyed by compiled-network identity
// (the model file location in practice). Several inference units
// running the same model against independent pipelines share one
// compiled network; the registry counts references and closes the
// backend when the last holder releases it. A core never closes a
// backend it did not exclusively create — it releases through here.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*regEntry
}

type regEntry struct {
	backend Backend
	refs    int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*regEntry)}
}

// Acquire returns the backend registered under key, opening it with
// open on first use. Each successful Acquire must be paired with a
// Release.
func (r *Registry) Acquire(key string, open Opener) (Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		e.refs++
		return e.backend, nil
	}
	b, err := open()
	if err != nil {
		return nil, err
	}
	r.entries[key] = &regEntry{backend: b, refs: 1}
	return b, nil
}

// Release drops one reference to key, closing the backend when the
// count reaches zero.
func (r *Registry) Release(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return fmt.Errorf("no backend registered under %q", key)
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(r.entries, key)
	return e.backend.Close()
}

// CloseAll force-closes every registered backend regardless of
// reference counts. Shutdown path only.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for key, e := range r.entries {
		if err := e.backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.entries, key)
	}
	return firstErr
}
