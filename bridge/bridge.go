package bridge

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/host"
	"github.com/wippyai/jsbridge/marshal"
	"github.com/wippyai/jsbridge/registry"
)

// Rejection details shared by every engine backend.
const (
	MsgConstructor = "Bridge method can't be invoked as a constructor"
	MsgNotInjected = "Bridge method can't be invoked on a non-injected object"
)

// shimSource builds per-method callables bound to (object id, name). The
// wrapper exists so the bridge can see new.target, which native functions
// cannot.
const shimSource = `(function (invoke, reject) {
	return function (id, name) {
		return function () {
			if (new.target !== undefined) {
				return reject(name);
			}
			return invoke.apply(this, [id, name].concat(Array.prototype.slice.call(arguments)));
		};
	};
})`

// Config wires a bridge to its collaborators.
type Config struct {
	Context   context.Context
	Registry  *registry.Registry
	Invoker   host.Invoker
	Converter *marshal.Converter
	Logger    *zap.Logger
}

// Bridge exposes registered host objects to one goja runtime. It must only
// be used from the goroutine that owns the runtime.
type Bridge struct {
	ctx     context.Context
	rt      *goja.Runtime
	reg     *registry.Registry
	inv     host.Invoker
	conv    *marshal.Converter
	disp    *Dispatcher
	log     *zap.Logger
	factory goja.Callable
	byID    map[jsbridge.ObjectID]*goja.Object
	owners  map[*goja.Object]*Proxy
}

// New installs the method shim into rt and returns a bridge.
func New(rt *goja.Runtime, cfg Config) (*Bridge, error) {
	if rt == nil || cfg.Registry == nil || cfg.Invoker == nil {
		return nil, errors.InvalidInput(errors.PhaseProxy, "runtime, registry and invoker are required")
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Logger == nil {
		cfg.Logger = Logger()
	}
	if cfg.Converter == nil {
		cfg.Converter = marshal.New(marshal.Options{}, cfg.Logger)
	}

	b := &Bridge{
		ctx:    cfg.Context,
		rt:     rt,
		reg:    cfg.Registry,
		inv:    cfg.Invoker,
		conv:   cfg.Converter,
		disp:   NewDispatcher(cfg.Registry, cfg.Invoker, cfg.Logger),
		log:    cfg.Logger,
		byID:   make(map[jsbridge.ObjectID]*goja.Object),
		owners: make(map[*goja.Object]*Proxy),
	}

	shim, err := rt.RunScript("_bridge_shim_.js", shimSource)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseProxy, errors.KindScript, err, "compile method shim")
	}
	build, ok := goja.AssertFunction(shim)
	if !ok {
		return nil, errors.New(errors.PhaseProxy, errors.KindScript).Detail("method shim is not a function").Build()
	}
	factory, err := build(goja.Undefined(), rt.ToValue(b.invoke), rt.ToValue(b.reject))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseProxy, errors.KindScript, err, "build method shim")
	}
	b.factory, ok = goja.AssertFunction(factory)
	if !ok {
		return nil, errors.New(errors.PhaseProxy, errors.KindScript).Detail("method factory is not a function").Build()
	}
	return b, nil
}

// Converter returns the bridge's value converter.
func (b *Bridge) Converter() *marshal.Converter {
	return b.conv
}

// Wrap returns the proxy for id, creating it on first use.
func (b *Bridge) Wrap(id jsbridge.ObjectID) (*goja.Object, error) {
	if obj, ok := b.byID[id]; ok {
		return obj, nil
	}
	if _, err := b.reg.Lookup(id); err != nil {
		return nil, err
	}

	p := &Proxy{
		bridge:  b,
		id:      id,
		methods: make(map[string]goja.Value),
	}
	obj := b.rt.NewDynamicObject(p)
	b.byID[id] = obj
	b.owners[obj] = p
	return obj, nil
}

// Bind wraps id and sets it as a global named name.
func (b *Bridge) Bind(name string, id jsbridge.ObjectID) error {
	obj, err := b.Wrap(id)
	if err != nil {
		return err
	}
	if err := b.rt.Set(name, obj); err != nil {
		return errors.Registration(errors.PhaseProxy, name, err)
	}
	b.log.Debug("object bound", zap.String("name", name), zap.Uint64("object_id", uint64(id)))
	return nil
}

// Methods lists the members scripts can see on id.
func (b *Bridge) Methods(id jsbridge.ObjectID) []string {
	h, err := b.reg.Lookup(id)
	if err != nil {
		return nil
	}
	return b.inv.MethodNames(h)
}

// ProxyID reports the object id behind a proxy created by this bridge.
func (b *Bridge) ProxyID(obj *goja.Object) (jsbridge.ObjectID, bool) {
	p, ok := b.owners[obj]
	if !ok {
		return jsbridge.InvalidObjectID, false
	}
	return p.id, true
}

// ProxyFor returns the proxy for id.
func (b *Bridge) ProxyFor(id jsbridge.ObjectID) (goja.Value, bool) {
	obj, err := b.Wrap(id)
	if err != nil {
		return nil, false
	}
	return obj, true
}

func (b *Bridge) callable(id jsbridge.ObjectID, name string) (goja.Value, error) {
	return b.factory(goja.Undefined(), b.rt.ToValue(uint64(id)), b.rt.ToValue(name))
}

// invoke is the native side of every proxy method. Arguments[0] is the
// object id the callable was built for and Arguments[1] the method name.
// The call always targets that id; the receiver only has to be one of
// this bridge's proxies.
func (b *Bridge) invoke(call goja.FunctionCall) goja.Value {
	id := jsbridge.ObjectID(call.Argument(0).ToInteger())
	name := call.Argument(1).String()

	this, _ := call.This.(*goja.Object)
	if _, ok := b.owners[this]; !ok {
		panic(b.rt.NewGoError(errors.InvocationDisallowed(name, MsgNotInjected)))
	}

	var rest []goja.Value
	if len(call.Arguments) > 2 {
		rest = call.Arguments[2:]
	}
	args := b.conv.FromScriptArguments(rest, b)

	res, err := b.disp.Invoke(b.ctx, id, name, args)
	if err != nil {
		panic(b.rt.NewGoError(err))
	}
	return b.conv.ToScriptValue(b.rt, res, b)
}

func (b *Bridge) reject(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	panic(b.rt.NewGoError(errors.InvocationDisallowed(name, MsgConstructor)))
}

func (b *Bridge) String() string {
	return fmt.Sprintf("bridge(%d proxies)", len(b.byID))
}
