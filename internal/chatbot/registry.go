package chatbot

import (
	"sync"
	"sync/atomic"
)

// Registry is an append-only, priority-ordered list of chat handlers.
// Register is expected during bootstrap only; reads go through an immutable
// snapshot and never take a lock.
type Registry struct {
	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[[]Descriptor]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := []Descriptor{}
	r.snap.Store(&empty)
	return r
}

// Register inserts d after every descriptor whose priority is lower than or
// equal to d.Priority. Registering the same descriptor twice yields two
// entries.
func (r *Registry) Register(d Descriptor) {
	d.Hooks = withDefaultHooks(d.Hooks)
	d.IgnoredApps = append([]string(nil), d.IgnoredApps...)

	r.mu.Lock()
	defer r.mu.Unlock()
	cur := *r.snap.Load()
	idx := len(cur)
	for i, existing := range cur {
		if existing.Priority > d.Priority {
			idx = i
			break
		}
	}
	next := make([]Descriptor, 0, len(cur)+1)
	next = append(next, cur[:idx]...)
	next = append(next, d)
	next = append(next, cur[idx:]...)
	r.snap.Store(&next)
}

// All returns the registered descriptors in evaluation order.
func (r *Registry) All() []Descriptor {
	cur := r.snapshot()
	out := make([]Descriptor, len(cur))
	copy(out, cur)
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int { return len(r.snapshot()) }

func (r *Registry) snapshot() []Descriptor { return *r.snap.Load() }
