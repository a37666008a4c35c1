package bridge

import (
	"slices"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wippyai/jsbridge"
)

// Proxy is the script-visible face of one host object. Properties resolve
// to callables for the object's exposed methods; anything else is left to
// the prototype chain. Proxies are read-only.
type Proxy struct {
	bridge  *Bridge
	methods map[string]goja.Value
	id      jsbridge.ObjectID
}

// ID returns the object id the proxy stands for.
func (p *Proxy) ID() jsbridge.ObjectID {
	return p.id
}

// Get returns the callable for key, or nil when key is not a method.
func (p *Proxy) Get(key string) goja.Value {
	if !p.Has(key) {
		return nil
	}
	if fn, ok := p.methods[key]; ok {
		return fn
	}
	fn, err := p.bridge.callable(p.id, key)
	if err != nil {
		p.bridge.log.Error("build method callable", zap.String("method", key), zap.Error(err))
		return nil
	}
	p.methods[key] = fn
	return fn
}

// Has reports whether key names an exposed method of a live object.
func (p *Proxy) Has(key string) bool {
	h, err := p.bridge.reg.Lookup(p.id)
	if err != nil {
		p.bridge.log.Warn("unknown object", zap.Uint64("object_id", uint64(p.id)), zap.String("property", key))
		return false
	}
	return p.bridge.inv.HasMethod(h, key)
}

// Set refuses writes.
func (p *Proxy) Set(string, goja.Value) bool {
	return false
}

// Delete refuses deletes.
func (p *Proxy) Delete(string) bool {
	return false
}

// Keys lists the exposed method names.
func (p *Proxy) Keys() []string {
	h, err := p.bridge.reg.Lookup(p.id)
	if err != nil {
		p.bridge.log.Warn("unknown object", zap.Uint64("object_id", uint64(p.id)))
		return nil
	}
	names := p.bridge.inv.MethodNames(h)
	slices.Sort(names)
	return slices.Compact(names)
}
