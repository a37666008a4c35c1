package host

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/wippyai/jsbridge/errors"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// markerMethods are part of the host contract and never exposed to scripts.
var markerMethods = map[string]bool{
	"ScriptMethods": true,
}

// ReflectInvoker exposes the exported methods of host objects through
// reflection. Method tables are built once per concrete type.
//
// Supported signatures take an optional leading context.Context, any
// number of convertible parameters (variadic included) and return one of
// (), (T), (error) or (T, error).
type ReflectInvoker struct {
	tables map[reflect.Type]*methodTable
	mu     sync.RWMutex
}

type methodTable struct {
	byName map[string]*hostMethod
	names  []string
}

type hostMethod struct {
	name     string
	goName   string
	index    int
	hasCtx   bool
	variadic bool
	params   []reflect.Type
	hasValue bool
	hasErr   bool
}

// NewReflectInvoker creates an invoker with an empty method cache.
func NewReflectInvoker() *ReflectInvoker {
	return &ReflectInvoker{
		tables: make(map[reflect.Type]*methodTable),
	}
}

func (r *ReflectInvoker) table(t reflect.Type) *methodTable {
	r.mu.RLock()
	tbl, ok := r.tables[t]
	r.mu.RUnlock()
	if ok {
		return tbl
	}

	tbl = buildTable(t)

	r.mu.Lock()
	if existing, ok := r.tables[t]; ok {
		tbl = existing
	} else {
		r.tables[t] = tbl
	}
	r.mu.Unlock()
	return tbl
}

func buildTable(t reflect.Type) *methodTable {
	tbl := &methodTable{byName: make(map[string]*hostMethod)}

	// Methods are sorted by Go name, so the first spelling wins on collision.
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() || markerMethods[m.Name] {
			continue
		}
		hm, ok := describe(m, i)
		if !ok {
			continue
		}
		if _, dup := tbl.byName[hm.name]; dup {
			continue
		}
		tbl.byName[hm.name] = hm
		tbl.names = append(tbl.names, hm.name)
	}
	slices.Sort(tbl.names)
	return tbl
}

// describe inspects a method type. In(0) is the receiver.
func describe(m reflect.Method, index int) (*hostMethod, bool) {
	ft := m.Type
	hm := &hostMethod{
		name:     scriptName(m.Name),
		goName:   m.Name,
		index:    index,
		variadic: ft.IsVariadic(),
	}

	start := 1
	if ft.NumIn() > 1 && ft.In(1) == contextType {
		hm.hasCtx = true
		start = 2
	}
	for i := start; i < ft.NumIn(); i++ {
		hm.params = append(hm.params, ft.In(i))
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			hm.hasErr = true
		} else {
			hm.hasValue = true
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, false
		}
		hm.hasValue = true
		hm.hasErr = true
	default:
		return nil, false
	}
	return hm, true
}

func (r *ReflectInvoker) lookup(h *Handle, name string) (any, *hostMethod, bool) {
	obj, ok := h.Resolve()
	if !ok {
		return nil, nil, false
	}
	hm, ok := r.table(reflect.TypeOf(obj)).byName[name]
	if !ok {
		return obj, nil, false
	}
	return obj, hm, h.Capability().Permits(obj, hm.goName)
}

// HasMethod reports whether name is exposed on the live object.
func (r *ReflectInvoker) HasMethod(h *Handle, name string) bool {
	_, _, ok := r.lookup(h, name)
	return ok
}

// MethodNames lists the exposed names in sorted order.
func (r *ReflectInvoker) MethodNames(h *Handle) []string {
	obj, ok := h.Resolve()
	if !ok {
		return nil
	}
	tbl := r.table(reflect.TypeOf(obj))
	c := h.Capability()
	out := make([]string, 0, len(tbl.names))
	for _, n := range tbl.names {
		if c.Permits(obj, tbl.byName[n].goName) {
			out = append(out, n)
		}
	}
	return out
}

// CapabilityFilter returns the handle's own capability.
func (r *ReflectInvoker) CapabilityFilter(h *Handle) Capability {
	return h.Capability()
}

// Invoke converts the arguments, calls the method and converts the result.
// Host panics are recovered and reported as host invocation errors.
func (r *ReflectInvoker) Invoke(ctx context.Context, h *Handle, call Call) (Result, error) {
	obj, ok := h.Resolve()
	if !ok {
		return Result{}, errors.New(errors.PhaseHost, errors.KindUnknownObject).
			Path(call.Method).
			GoType(h.TypeName()).
			Detail("host object released").
			Build()
	}
	goType := h.TypeName()

	hm, ok := r.table(reflect.TypeOf(obj)).byName[call.Method]
	if !ok {
		return Result{}, errors.MethodNotFound(goType, call.Method)
	}
	if !h.Capability().Permits(obj, hm.goName) {
		return Result{}, errors.New(errors.PhaseHost, errors.KindPermissionDenied).
			Path(call.Method).
			GoType(goType).
			Detail("method %s not exposed by capability %s", hm.goName, h.Capability().Name()).
			Build()
	}

	in, err := hm.arguments(ctx, call)
	if err != nil {
		return Result{}, err
	}

	fn := reflect.ValueOf(obj).Method(hm.index)
	out, err := safeCall(fn, in)
	if err != nil {
		return Result{}, errors.HostInvocation(goType, call.Method, err)
	}

	if hm.hasErr {
		if e := out[len(out)-1]; !e.IsNil() {
			return Result{}, errors.HostInvocation(goType, call.Method, e.Interface().(error))
		}
	}
	if !hm.hasValue {
		return Result{}, nil
	}
	return toResult(out[0], call.Bind), nil
}

func (hm *hostMethod) arguments(ctx context.Context, call Call) ([]reflect.Value, error) {
	n := len(hm.params)
	if hm.variadic {
		if len(call.Args) < n-1 {
			return nil, hm.arity(len(call.Args))
		}
	} else if len(call.Args) != n {
		return nil, hm.arity(len(call.Args))
	}

	in := make([]reflect.Value, 0, len(call.Args)+1)
	if hm.hasCtx {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(ctx))
	}

	for i, arg := range call.Args {
		pt := hm.params[min(i, n-1)]
		if hm.variadic && i >= n-1 {
			pt = hm.params[n-1].Elem()
		}
		rv, err := fromValue(arg, pt, call.Resolve, []string{hm.name, fmt.Sprintf("arg %d", i)})
		if err != nil {
			return nil, err
		}
		in = append(in, rv)
	}
	return in, nil
}

func (hm *hostMethod) arity(got int) error {
	want := fmt.Sprintf("%d", len(hm.params))
	if hm.variadic {
		want = fmt.Sprintf("at least %d", len(hm.params)-1)
	}
	return errors.New(errors.PhaseHost, errors.KindTypeMismatch).
		Path(hm.name).
		Detail("expects %s arguments, got %d", want, got).
		Build()
}

func safeCall(fn reflect.Value, in []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host panic: %v", r)
		}
	}()
	return fn.Call(in), nil
}
