package registry

import (
	"sync"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/host"
)

// Registry maps object ids to host handles for one session.
//
// Entries are never evicted before Close. A handle whose host object was
// released or collected stays in the table but no longer resolves.
type Registry struct {
	table     *table
	observers []Observer
	obsMu     sync.RWMutex
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		table: newTable(),
	}
}

// Register stores a host-owned handle and returns its id.
func (r *Registry) Register(h *host.Handle) (jsbridge.ObjectID, error) {
	return r.register(h, false)
}

// Adopt stores a handle owned by the registry. It is released on Close.
func (r *Registry) Adopt(h *host.Handle) (jsbridge.ObjectID, error) {
	return r.register(h, true)
}

func (r *Registry) register(h *host.Handle, owned bool) (jsbridge.ObjectID, error) {
	id, err := r.table.create(h, owned)
	if err != nil {
		if err == ErrClosed {
			return jsbridge.InvalidObjectID, errors.Shutdown(errors.PhaseRegistry, "register")
		}
		return jsbridge.InvalidObjectID, errors.Registration(errors.PhaseRegistry, "object", err)
	}

	r.notify(Event{
		Type:   EventRegistered,
		ID:     id,
		Handle: h,
		Owned:  owned,
	})
	return id, nil
}

// Lookup returns the live handle for id. Ids that were never issued, ids
// of a closed registry and handles whose object is gone all report
// KindUnknownObject.
func (r *Registry) Lookup(id jsbridge.ObjectID) (*host.Handle, error) {
	h, ok := r.table.get(id)
	if !ok || !h.Alive() {
		r.notify(Event{Type: EventLookupMissed, ID: id})
		return nil, errors.UnknownObject(errors.PhaseRegistry, uint64(id))
	}
	return h, nil
}

// Resolve returns the live host object for id.
func (r *Registry) Resolve(id jsbridge.ObjectID) (any, bool) {
	h, err := r.Lookup(id)
	if err != nil {
		return nil, false
	}
	return h.Resolve()
}

// Len returns the number of ids issued, including those whose object is gone.
func (r *Registry) Len() int {
	return r.table.len()
}

// Each calls fn for every entry in id order until fn returns false.
func (r *Registry) Each(fn func(jsbridge.ObjectID, *host.Handle) bool) {
	for i, e := range r.table.snapshot() {
		if !fn(jsbridge.ObjectID(i+1), e.handle) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// Close drops every entry and releases owned handles. Later registrations
// fail and lookups miss. Close is idempotent.
func (r *Registry) Close() error {
	owned, ok := r.table.close()
	if !ok {
		return nil
	}
	for _, h := range owned {
		h.Release()
	}
	r.notify(Event{Type: EventClosed})
	return nil
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	observers := append([]Observer(nil), r.observers...)
	r.obsMu.RUnlock()
	for _, o := range observers {
		o.OnRegistryEvent(e)
	}
}
