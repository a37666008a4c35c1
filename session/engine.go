package session

import (
	stderrors "errors"

	"github.com/dop251/goja"
	"modernc.org/quickjs"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/bridge"
	"github.com/wippyai/jsbridge/builtin"
	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/marshal"
	"github.com/wippyai/jsbridge/qjs"
	"github.com/wippyai/jsbridge/value"
)

// engine is the script runtime a session drives. Only the worker calls it
// once the session is running.
type engine interface {
	Bind(name string, id jsbridge.ObjectID) error
	Run(label, code string) (value.Value, error)
	Close() error
}

// newEngine builds the runtime named by the session configuration.
func (s *Session) newEngine(name string) (engine, error) {
	opts := builtin.Options{
		LogSink:     s.cfg.Builtins.LogSink,
		LogSinkName: s.cfg.Builtins.LogSinkName,
		Console:     s.cfg.Builtins.Console,
		Crypto:      s.cfg.Builtins.Crypto,
	}
	mopts := marshal.Options{
		DateAllowed:   s.cfg.Marshal.DateAllowed,
		RegExpAllowed: s.cfg.Marshal.RegExpAllowed,
	}

	switch name {
	case "", config.EngineGoja:
		g, err := newGojaEngine(s, mopts, opts)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.EngineQuickJS:
		q, err := qjs.New(qjs.Config{
			Context:      s.ctx,
			Registry:     s.reg,
			Invoker:      s.inv,
			Marshal:      mopts,
			Builtins:     opts,
			Logger:       s.log.Named("bridge"),
			ScriptLogger: s.log.Named("script"),
		})
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	return nil, errors.Unsupported(errors.PhaseSession, "script engine "+name)
}

type gojaEngine struct {
	rt     *goja.Runtime
	bridge *bridge.Bridge
}

func newGojaEngine(s *Session, mopts marshal.Options, opts builtin.Options) (*gojaEngine, error) {
	rt := goja.New()
	b, err := bridge.New(rt, bridge.Config{
		Context:   s.ctx,
		Registry:  s.reg,
		Invoker:   s.inv,
		Converter: marshal.New(mopts, s.log.Named("marshal")),
		Logger:    s.log.Named("bridge"),
	})
	if err != nil {
		return nil, err
	}
	if err := builtin.Install(rt, opts, s.log.Named("script")); err != nil {
		return nil, err
	}
	return &gojaEngine{rt: rt, bridge: b}, nil
}

func (g *gojaEngine) Bind(name string, id jsbridge.ObjectID) error {
	return g.bridge.Bind(name, id)
}

func (g *gojaEngine) Run(label, code string) (value.Value, error) {
	v, err := g.rt.RunScript(label, code)
	if err != nil {
		return value.None(), err
	}
	return g.bridge.Converter().ToHostValue(v, g.bridge), nil
}

func (g *gojaEngine) Close() error {
	g.rt, g.bridge = nil, nil
	return nil
}

// scriptStack returns the script stack trace carried by err, if any.
func scriptStack(err error) string {
	var exc *goja.Exception
	if stderrors.As(err, &exc) {
		return exc.String()
	}
	var qerr *quickjs.Error
	if stderrors.As(err, &qerr) {
		return qerr.Stack
	}
	return ""
}
