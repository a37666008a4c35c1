package host

import (
	"reflect"
	"sync"
	"weak"
)

// Handle is a non-owning reference to a host object plus the capability
// that restricts which of its members scripts may see.
//
// The bridge never keeps a host object alive on its own account: a weak
// handle lets the Go garbage collector reclaim the object, and a released
// handle drops its reference immediately. Either way Resolve reports false
// afterwards and callers treat the object as unknown.
type Handle struct {
	ref  func() (any, bool)
	typ  reflect.Type
	cap  Capability
	mu   sync.RWMutex
	dead bool
}

// NewHandle wraps obj whose lifetime is managed by the host. The host calls
// Release once obj must no longer be reachable from scripts.
func NewHandle(obj any, c Capability) *Handle {
	h := &Handle{cap: orAll(c)}
	if obj == nil {
		h.dead = true
		return h
	}
	h.typ = reflect.TypeOf(obj)
	h.ref = func() (any, bool) { return obj, true }
	return h
}

// NewWeakHandle wraps p through a weak pointer. The handle resolves for as
// long as the host keeps p reachable.
func NewWeakHandle[T any](p *T, c Capability) *Handle {
	h := &Handle{cap: orAll(c)}
	if p == nil {
		h.dead = true
		return h
	}
	wp := weak.Make(p)
	h.typ = reflect.TypeOf(p)
	h.ref = func() (any, bool) {
		v := wp.Value()
		if v == nil {
			return nil, false
		}
		return v, true
	}
	return h
}

// Resolve returns the host object if it is still alive.
func (h *Handle) Resolve() (any, bool) {
	if h == nil {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.dead {
		return nil, false
	}
	return h.ref()
}

// Alive reports whether Resolve would succeed.
func (h *Handle) Alive() bool {
	_, ok := h.Resolve()
	return ok
}

// Release drops the reference. Subsequent lookups report the object as gone.
func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dead = true
	h.ref = nil
}

// Capability returns the member filter attached at registration.
func (h *Handle) Capability() Capability {
	if h == nil {
		return All
	}
	return h.cap
}

// Type returns the dynamic type of the wrapped object, or nil.
func (h *Handle) Type() reflect.Type {
	if h == nil {
		return nil
	}
	return h.typ
}

// TypeName returns the Go type name used in diagnostics.
func (h *Handle) TypeName() string {
	if h == nil || h.typ == nil {
		return "<nil>"
	}
	return h.typ.String()
}
