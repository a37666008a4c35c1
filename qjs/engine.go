package qjs

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"modernc.org/quickjs"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/bridge"
	"github.com/wippyai/jsbridge/builtin"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/host"
	"github.com/wippyai/jsbridge/marshal"
	"github.com/wippyai/jsbridge/registry"
	"github.com/wippyai/jsbridge/value"
)

// Config wires an engine to its collaborators.
type Config struct {
	Context  context.Context
	Registry *registry.Registry
	Invoker  host.Invoker
	Marshal  marshal.Options
	Builtins builtin.Options
	// Logger receives bridge diagnostics. ScriptLogger receives script
	// output from the built-ins; it defaults to Logger.
	Logger       *zap.Logger
	ScriptLogger *zap.Logger
}

// Engine is one QuickJS VM with the bridge installed. It is not safe for
// concurrent use.
type Engine struct {
	ctx    context.Context
	vm     *quickjs.VM
	reg    *registry.Registry
	inv    host.Invoker
	disp   *bridge.Dispatcher
	codec  codec
	log    *zap.Logger
	script *zap.Logger

	sealers    map[int]*builtin.Sealer
	nextSealer int
}

// New creates a VM, installs the prelude and the selected built-ins.
func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil || cfg.Invoker == nil {
		return nil, errors.InvalidInput(errors.PhaseSession, "registry and invoker are required")
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ScriptLogger == nil {
		cfg.ScriptLogger = cfg.Logger
	}

	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSession, errors.KindScript, err, "create quickjs vm")
	}

	e := &Engine{
		ctx:     cfg.Context,
		vm:      vm,
		reg:     cfg.Registry,
		inv:     cfg.Invoker,
		disp:    bridge.NewDispatcher(cfg.Registry, cfg.Invoker, cfg.Logger),
		codec:   codec{log: cfg.Logger, opts: cfg.Marshal},
		log:     cfg.Logger,
		script:  cfg.ScriptLogger,
		sealers: make(map[int]*builtin.Sealer),
	}
	if err := e.install(cfg.Builtins); err != nil {
		_ = vm.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) install(opts builtin.Options) error {
	funcs := []struct {
		name string
		fn   quickjs.HostFunc
	}{
		{fnInvoke, e.invoke},
		{fnMethods, e.methods},
		{fnReject, e.reject},
		{fnLog, e.logLine},
		{fnSealer, e.newSealer},
		{fnSeal, e.seal},
		{fnOpen, e.open},
	}
	for _, f := range funcs {
		if err := e.vm.RegisterHostFunc(f.name, f.fn); err != nil {
			return errors.Registration(errors.PhaseProxy, f.name, err)
		}
	}
	if _, err := e.vm.Eval(prelude, quickjs.EvalGlobal); err != nil {
		return errors.Wrap(errors.PhaseProxy, errors.KindScript, err, "install prelude")
	}

	sink := ""
	if opts.LogSink {
		sink = opts.LogSinkName
		if sink == "" {
			sink = builtin.DefaultLogSinkName
		}
	}
	cfg, err := json.Marshal(map[string]any{
		"logSink": sink,
		"console": opts.Console,
		"crypto":  opts.Crypto,
	})
	if err != nil {
		return errors.Wrap(errors.PhaseBuiltin, errors.KindInvalidInput, err, "encode builtin options")
	}
	if _, err := e.vm.Call(callInstall, string(cfg)); err != nil {
		return errors.Wrap(errors.PhaseBuiltin, errors.KindScript, err, "install builtins")
	}
	return nil
}

// Bind sets the global name to the proxy for id.
func (e *Engine) Bind(name string, id jsbridge.ObjectID) error {
	if _, err := e.reg.Lookup(id); err != nil {
		return err
	}
	if _, err := e.vm.Call(callBind, name, int64(id)); err != nil {
		return errors.Registration(errors.PhaseProxy, name, err)
	}
	e.log.Debug("object bound", zap.String("name", name), zap.Uint64("object_id", uint64(id)))
	return nil
}

// Run evaluates code as global code and converts its completion value.
// QuickJS reports every evaluation as <eval>, so label only appears in
// diagnostics.
func (e *Engine) Run(label, code string) (value.Value, error) {
	res, err := e.vm.Call(callRun, code)
	if err != nil {
		return value.None(), err
	}
	text, ok := res.(string)
	if !ok {
		e.log.Error("unexpected run result", zap.String("resource", label), zap.String("type", fmt.Sprintf("%T", res)))
		return value.None(), nil
	}
	return e.codec.decode(text)
}

// Close releases the VM. Host objects stay in the registry.
func (e *Engine) Close() error {
	clear(e.sealers)
	return e.vm.Close()
}

// Methods lists the members scripts can see on id.
func (e *Engine) Methods(id jsbridge.ObjectID) []string {
	h, err := e.reg.Lookup(id)
	if err != nil {
		return nil
	}
	names := e.inv.MethodNames(h)
	slices.Sort(names)
	return slices.Compact(names)
}

// invoke(id, name, argsJSON) calls a host method and returns the encoded
// result. Errors surface in the script as a TypeError.
func (e *Engine) invoke(args []any) (any, error) {
	id, name, payload := objectID(arg(args, 0)), str(arg(args, 1)), str(arg(args, 2))
	vals, err := e.codec.decodeList(payload)
	if err != nil {
		return nil, err
	}
	res, err := e.disp.Invoke(e.ctx, id, name, vals)
	if err != nil {
		return nil, err
	}
	return e.codec.encode(res)
}

// methods(id) returns the method names of id as JSON, or "null" when id
// is not registered.
func (e *Engine) methods(args []any) (any, error) {
	id := objectID(arg(args, 0))
	if _, err := e.reg.Lookup(id); err != nil {
		e.log.Warn("unknown object", zap.Uint64("object_id", uint64(id)))
		return "null", nil
	}
	out, err := json.Marshal(e.Methods(id))
	if err != nil {
		return nil, err
	}
	return string(out), nil
}

func (e *Engine) reject(args []any) (any, error) {
	name := str(arg(args, 0))
	if str(arg(args, 1)) == reasonConstructor {
		return nil, errors.InvocationDisallowed(name, bridge.MsgConstructor)
	}
	return nil, errors.InvocationDisallowed(name, bridge.MsgNotInjected)
}

// logLine(sink, level, msg) writes one line of script output.
func (e *Engine) logLine(args []any) (any, error) {
	log := e.script.With(zap.String("sink", str(arg(args, 0))))
	msg := str(arg(args, 2))
	switch str(arg(args, 1)) {
	case "debug":
		log.Debug(msg)
	case "warn":
		log.Warn(msg)
	case "error":
		log.Error(msg)
	default:
		log.Info(msg)
	}
	return quickjs.Undefined{}, nil
}

func (e *Engine) newSealer(args []any) (any, error) {
	s, err := builtin.NewSealer(str(arg(args, 0)))
	if err != nil {
		e.cryptoLog().Error("create sealer", zap.Error(err))
		return quickjs.Undefined{}, nil
	}
	e.nextSealer++
	e.sealers[e.nextSealer] = s
	return e.nextSealer, nil
}

func (e *Engine) seal(args []any) (any, error) {
	s, ok := e.sealers[handle(arg(args, 0))]
	if !ok {
		e.cryptoLog().Error("seal without key")
		return quickjs.Undefined{}, nil
	}
	out, err := s.Seal(str(arg(args, 1)))
	if err != nil {
		e.cryptoLog().Error("seal", zap.Error(err))
		return quickjs.Undefined{}, nil
	}
	return out, nil
}

func (e *Engine) open(args []any) (any, error) {
	s, ok := e.sealers[handle(arg(args, 0))]
	if !ok {
		e.cryptoLog().Error("open without key")
		return quickjs.Undefined{}, nil
	}
	out, err := s.Open(str(arg(args, 1)))
	if err != nil {
		e.cryptoLog().Error("open", zap.Error(err))
		return quickjs.Undefined{}, nil
	}
	return out, nil
}

func (e *Engine) cryptoLog() *zap.Logger {
	return e.script.With(zap.String("builtin", "jscrypto"))
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func str(a any) string {
	s, _ := a.(string)
	return s
}

// handle reads a small integer argument. QuickJS passes integral numbers
// as int and everything else as float64.
func handle(a any) int {
	switch n := a.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func objectID(a any) jsbridge.ObjectID {
	switch n := a.(type) {
	case int:
		return jsbridge.ObjectID(n)
	case float64:
		return jsbridge.ObjectID(n)
	}
	return jsbridge.InvalidObjectID
}
