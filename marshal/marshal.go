package marshal

import (
	"bytes"
	"math"
	"slices"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/value"
)

// Options selects the optional conversions. Both default to off.
type Options struct {
	// DateAllowed converts Date objects to epoch milliseconds.
	DateAllowed bool
	// RegExpAllowed converts RegExp objects to their source text.
	RegExpAllowed bool
}

// Binder connects the converter to the proxy layer.
type Binder interface {
	// ProxyID reports the object id behind a genuine bridge proxy.
	ProxyID(obj *goja.Object) (jsbridge.ObjectID, bool)
	// ProxyFor returns the script object for a registered id.
	ProxyFor(id jsbridge.ObjectID) (goja.Value, bool)
}

// Converter translates values between the script engine and host form.
// A converter belongs to one session and never fails: values it cannot
// represent become none and are reported on the logger.
type Converter struct {
	log  *zap.Logger
	opts Options
}

// New creates a converter. A nil logger discards diagnostics.
func New(opts Options, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{opts: opts, log: log}
}

// ToHostValue converts a script value to host form.
func (c *Converter) ToHostValue(v goja.Value, b Binder) value.Value {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return value.None()
	}

	switch v := v.(type) {
	case *goja.Symbol:
		return c.ambiguous("Symbol", "symbols have no host form")
	case *goja.Object:
		return c.objectToHost(v, b)
	}

	switch x := v.Export().(type) {
	case bool:
		return value.Bool(x)
	case int64:
		return value.Int(x)
	case float64:
		return numberToHost(x)
	case string:
		return value.String(x)
	}
	return c.ambiguous(v.ExportType().String(), "unrecognized primitive")
}

func numberToHost(f float64) value.Value {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 && !(f == 0 && math.Signbit(f)) {
		return value.Int(int64(f))
	}
	return value.Double(f)
}

func (c *Converter) objectToHost(obj *goja.Object, b Binder) value.Value {
	if b != nil {
		if id, ok := b.ProxyID(obj); ok {
			return value.Object(id)
		}
	}

	if _, ok := goja.AssertFunction(obj); ok {
		return c.ambiguous("Function", "functions have no host form")
	}

	class := obj.ClassName()
	switch x := obj.Export().(type) {
	case goja.ArrayBuffer:
		return value.Binary(x.Bytes())
	case []byte:
		return value.Binary(x)
	case time.Time:
		if c.opts.DateAllowed {
			return value.Double(float64(x.UnixMilli()))
		}
		return c.ambiguous(class, "date conversion disabled")
	}

	if class == "RegExp" {
		if c.opts.RegExpAllowed {
			return value.String(obj.Get("source").String())
		}
		return c.ambiguous(class, "regexp conversion disabled")
	}

	return c.ambiguous(class, "composite script values are not marshalled")
}

func (c *Converter) ambiguous(scriptType, detail string) value.Value {
	c.log.Debug("marshal ambiguous",
		zap.String("script_type", scriptType),
		zap.Error(errors.MarshalAmbiguous(scriptType, detail)))
	return value.None()
}

// FromScriptArguments converts call arguments in order.
func (c *Converter) FromScriptArguments(args []goja.Value, b Binder) []value.Value {
	out := make([]value.Value, len(args))
	for i, a := range args {
		out[i] = c.ToHostValue(a, b)
	}
	return out
}

// ToScriptValue converts a host value to a script value. Lists and maps
// convert recursively, binary data is copied into a new ArrayBuffer and
// object ids are resolved through the binder.
func (c *Converter) ToScriptValue(rt *goja.Runtime, v value.Value, b Binder) goja.Value {
	switch v.Kind() {
	case value.KindNone:
		return goja.Null()
	case value.KindBool:
		x, _ := v.AsBool()
		return rt.ToValue(x)
	case value.KindInt:
		x, _ := v.AsInt()
		return rt.ToValue(x)
	case value.KindDouble:
		x, _ := v.AsDouble()
		return rt.ToValue(x)
	case value.KindString:
		x, _ := v.AsString()
		return rt.ToValue(x)
	case value.KindBinary:
		x, _ := v.AsBinary()
		return rt.ToValue(rt.NewArrayBuffer(bytes.Clone(x)))
	case value.KindList:
		items, _ := v.AsList()
		vals := make([]any, len(items))
		for i, item := range items {
			vals[i] = c.ToScriptValue(rt, item, b)
		}
		return rt.NewArray(vals...)
	case value.KindMap:
		m, _ := v.AsMap()
		obj := rt.NewObject()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			_ = obj.Set(k, c.ToScriptValue(rt, m[k], b))
		}
		return obj
	case value.KindObject:
		id, _ := v.AsObject()
		if b != nil {
			if pv, ok := b.ProxyFor(id); ok {
				return pv
			}
		}
		c.log.Error("unknown object", zap.Uint64("object_id", uint64(id)))
		return goja.Undefined()
	}

	c.log.Error("unexpected value type", zap.Stringer("kind", v.Kind()))
	return goja.Undefined()
}
