package builtin

import (
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wippyai/jsbridge/errors"
)

// DefaultLogSinkName is the global the log sink is installed under.
const DefaultLogSinkName = "adb"

// Options selects the built-ins to install.
type Options struct {
	LogSinkName string
	LogSink     bool
	Console     bool
	Crypto      bool
}

// DefaultOptions enables every built-in.
func DefaultOptions() Options {
	return Options{
		LogSink:     true,
		LogSinkName: DefaultLogSinkName,
		Console:     true,
		Crypto:      true,
	}
}

// Install registers the selected built-ins as globals of rt. Script output
// is written to log.
func Install(rt *goja.Runtime, opts Options, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LogSink {
		name := opts.LogSinkName
		if name == "" {
			name = DefaultLogSinkName
		}
		if err := InstallLogSink(rt, name, log); err != nil {
			return err
		}
	}
	if opts.Console {
		if err := InstallConsole(rt, log); err != nil {
			return err
		}
	}
	if opts.Crypto {
		if err := InstallCrypto(rt, log); err != nil {
			return err
		}
	}
	return nil
}

type method struct {
	fn   func(goja.FunctionCall) goja.Value
	name string
}

// setObject creates a plain object holding methods and binds it as a global.
func setObject(rt *goja.Runtime, global string, methods ...method) error {
	obj := rt.NewObject()
	for _, m := range methods {
		if err := obj.Set(m.name, m.fn); err != nil {
			return errors.Registration(errors.PhaseBuiltin, global+"."+m.name, err)
		}
	}
	if err := rt.Set(global, obj); err != nil {
		return errors.Registration(errors.PhaseBuiltin, global, err)
	}
	return nil
}
