package bridge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/host"
	"github.com/wippyai/jsbridge/registry"
	"github.com/wippyai/jsbridge/value"
)

// Dispatcher routes a call on an object id to the host invoker and
// registers object results so scripts can keep calling into them.
type Dispatcher struct {
	reg *registry.Registry
	inv host.Invoker
	log *zap.Logger
}

// NewDispatcher creates a dispatcher. A nil logger uses the package logger.
func NewDispatcher(reg *registry.Registry, inv host.Invoker, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = Logger()
	}
	return &Dispatcher{reg: reg, inv: inv, log: log}
}

// Invoke calls method on the object registered under id. An object result
// is registered with the capability of its parent and returned as an
// object value. No registry lock is held while the host method runs.
//
// Object results are held strongly by the registry until it is closed,
// since a script may call into them at any later point. Embedders that
// need a result collected earlier should return it through a host object
// they release themselves, or keep sessions short-lived.
func (d *Dispatcher) Invoke(ctx context.Context, id jsbridge.ObjectID, method string, args []value.Value) (value.Value, error) {
	h, err := d.reg.Lookup(id)
	if err != nil {
		d.log.Warn("unknown object", zap.Uint64("object_id", uint64(id)), zap.String("method", method))
		return value.None(), errors.UnknownObject(errors.PhaseDispatch, uint64(id))
	}

	bind := d.binder(h)
	res, err := d.inv.Invoke(ctx, h, host.Call{
		Method:  method,
		Args:    args,
		Resolve: d.reg.Resolve,
		Bind:    bind,
	})
	if err != nil {
		d.log.Debug("host call failed",
			zap.Uint64("object_id", uint64(id)),
			zap.String("method", method),
			zap.String("kind", string(errors.KindOf(err))),
			zap.Error(err))
		return value.None(), err
	}

	if !res.IsObject() {
		return res.Value, nil
	}

	child, ok := bind(res.Object)
	if !ok {
		return value.None(), errors.New(errors.PhaseDispatch, errors.KindRegistration).
			Path(method).
			GoType(h.TypeName()).
			Detail("cannot register object result").
			Build()
	}
	return value.Object(child), nil
}

// binder registers results of calls on parent. Result handles are owned by
// the registry and inherit the parent's capability.
func (d *Dispatcher) binder(parent *host.Handle) func(any) (jsbridge.ObjectID, bool) {
	return func(obj any) (jsbridge.ObjectID, bool) {
		id, err := d.reg.Adopt(host.NewHandle(obj, d.inv.CapabilityFilter(parent)))
		if err != nil {
			d.log.Warn("register object result", zap.Error(err))
			return jsbridge.InvalidObjectID, false
		}
		d.log.Debug("object result registered",
			zap.Uint64("object_id", uint64(id)),
			zap.String("type", fmt.Sprintf("%T", obj)))
		return id, true
	}
}
