package builtin

import (
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// InstallLogSink installs an object with info and error methods. Each call
// concatenates all arguments into one log line.
func InstallLogSink(rt *goja.Runtime, name string, log *zap.Logger) error {
	sink := log.With(zap.String("sink", name))
	return setObject(rt, name,
		method{name: "info", fn: func(call goja.FunctionCall) goja.Value {
			sink.Info(concat(call.Arguments, ""))
			return goja.Undefined()
		}},
		method{name: "error", fn: func(call goja.FunctionCall) goja.Value {
			sink.Error(concat(call.Arguments, ""))
			return goja.Undefined()
		}},
	)
}

// InstallConsole installs a minimal console object.
func InstallConsole(rt *goja.Runtime, log *zap.Logger) error {
	console := log.With(zap.String("sink", "console"))
	line := func(write func(string, ...zap.Field)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			write(concat(call.Arguments, " "))
			return goja.Undefined()
		}
	}
	return setObject(rt, "console",
		method{name: "log", fn: line(console.Info)},
		method{name: "info", fn: line(console.Info)},
		method{name: "debug", fn: line(console.Debug)},
		method{name: "warn", fn: line(console.Warn)},
		method{name: "error", fn: line(console.Error)},
	)
}

func concat(args []goja.Value, sep string) string {
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteString(sep)
		}
		if a == nil {
			b.WriteString("undefined")
			continue
		}
		b.WriteString(a.String())
	}
	return b.String()
}
