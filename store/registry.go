package store

import (
	"sync"
	"weak"
)

// Ref is a weak reference to a container. Holding a Ref never keeps the
// container alive.
type Ref struct {
	id   string
	name string
	load func() (Handle, bool)
}

func newRef[T any](c *Container[T]) Ref {
	ptr := weak.Make(c)
	return Ref{
		id:   c.id,
		name: c.name,
		load: func() (Handle, bool) {
			if live := ptr.Value(); live != nil {
				return live, true
			}
			return nil, false
		},
	}
}

// ID returns the identity of the referenced container.
func (r Ref) ID() string {
	return r.id
}

// Name returns the name of the referenced container.
func (r Ref) Name() string {
	return r.name
}

// Load returns the container if it is still alive.
func (r Ref) Load() (Handle, bool) {
	if r.load == nil {
		return nil, false
	}
	return r.load()
}

// Registry is a set of weak references to live containers. Dead entries are
// pruned lazily whenever the registry is iterated. Safe for concurrent use.
type Registry struct {
	refs []Ref
	mu   sync.Mutex
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry containers join unless
// configured otherwise.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds ref to the registry.
func (r *Registry) Register(ref Ref) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = append(r.refs, ref)
}

// Unregister removes the container with the given id. Unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.refs[:0]
	for _, ref := range r.refs {
		if ref.id != id {
			kept = append(kept, ref)
		}
	}
	clear(r.refs[len(kept):])
	r.refs = kept
}

// Live returns every live container in registration order, pruning dead
// references as a side effect.
func (r *Registry) Live() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := make([]Handle, 0, len(r.refs))
	kept := r.refs[:0]
	for _, ref := range r.refs {
		if h, ok := ref.Load(); ok {
			live = append(live, h)
			kept = append(kept, ref)
		}
	}
	clear(r.refs[len(kept):])
	r.refs = kept
	return live
}

// Lookup returns the live containers named name.
func (r *Registry) Lookup(name string) []Handle {
	var found []Handle
	for _, h := range r.Live() {
		if h.Name() == name {
			found = append(found, h)
		}
	}
	return found
}

// Get returns the live container with the given id.
func (r *Registry) Get(id string) (Handle, bool) {
	for _, h := range r.Live() {
		if h.ID() == id {
			return h, true
		}
	}
	return nil, false
}

// Len returns the number of live containers.
func (r *Registry) Len() int {
	return len(r.Live())
}
