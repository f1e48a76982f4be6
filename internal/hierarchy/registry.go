package hierarchy

import "sync"

// Plugin handles the candidates it accepts.
type Plugin[C any] interface {
	comparable
	Accepts(candidate C) bool
}

// Registry is an ordered set of plugins. Earlier registrations win in Resolve.
type Registry[C any, P Plugin[C]] struct {
	mu      sync.RWMutex
	plugins []P
}

func NewRegistry[C any, P Plugin[C]](plugins ...P) *Registry[C, P] {
	r := &Registry[C, P]{}
	for _, p := range plugins {
		r.Register(p)
	}
	return r
}

// Register appends p unless it is already registered.
func (r *Registry[C, P]) Register(p P) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing == p {
			return
		}
	}
	r.plugins = append(r.plugins, p)
}

// Unregister removes p and reports whether it was registered.
func (r *Registry[C, P]) Unregister(p P) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.plugins {
		if existing == p {
			r.plugins = append(r.plugins[:i:i], r.plugins[i+1:]...)
			return true
		}
	}
	return false
}

// Resolve returns the first plugin accepting candidate.
func (r *Registry[C, P]) Resolve(candidate C) (P, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Accepts(candidate) {
			return p, true
		}
	}
	var zero P
	return zero, false
}

// Matching returns every plugin accepting candidate, in registration order.
func (r *Registry[C, P]) Matching(candidate C) []P {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matching []P
	for _, p := range r.plugins {
		if p.Accepts(candidate) {
			matching = append(matching, p)
		}
	}
	return matching
}

func (r *Registry[C, P]) All() []P {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]P(nil), r.plugins...)
}
