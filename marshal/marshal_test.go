package marshal

import (
	"math"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/value"
)

// fakeBinder treats objects carrying a numeric __id as proxies.
type fakeBinder struct {
	rt      *goja.Runtime
	proxies map[jsbridge.ObjectID]*goja.Object
}

func newFakeBinder(rt *goja.Runtime) *fakeBinder {
	return &fakeBinder{rt: rt, proxies: make(map[jsbridge.ObjectID]*goja.Object)}
}

func (b *fakeBinder) add(id jsbridge.ObjectID) *goja.Object {
	obj := b.rt.NewObject()
	b.proxies[id] = obj
	return obj
}

func (b *fakeBinder) ProxyID(obj *goja.Object) (jsbridge.ObjectID, bool) {
	for id, p := range b.proxies {
		if p == obj {
			return id, true
		}
	}
	return 0, false
}

func (b *fakeBinder) ProxyFor(id jsbridge.ObjectID) (goja.Value, bool) {
	p, ok := b.proxies[id]
	return p, ok
}

func newConverter(opts Options) (*Converter, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New(opts, zap.New(core)), logs
}

func eval(t *testing.T, rt *goja.Runtime, src string) goja.Value {
	t.Helper()
	v, err := rt.RunString(src)
	require.NoError(t, err)
	return v
}

func TestToHostValue_Primitives(t *testing.T) {
	rt := goja.New()
	c, _ := newConverter(Options{})

	tests := []struct {
		src  string
		want value.Value
	}{
		{"undefined", value.None()},
		{"null", value.None()},
		{"true", value.Bool(true)},
		{"false", value.Bool(false)},
		{"42", value.Int(42)},
		{"-7", value.Int(-7)},
		{"4.0", value.Int(4)},
		{"1.5", value.Double(1.5)},
		{"'hello'", value.String("hello")},
		{"''", value.String("")},
		{"'héllo ✓'", value.String("héllo ✓")},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := c.ToHostValue(eval(t, rt, tt.src), nil)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}

	assert.True(t, c.ToHostValue(nil, nil).IsNone())
}

func TestToHostValue_Binary(t *testing.T) {
	rt := goja.New()
	c, _ := newConverter(Options{})

	got := c.ToHostValue(eval(t, rt, "new Uint8Array([1, 2, 3]).buffer"), nil)
	bin, ok := got.AsBinary()
	require.True(t, ok, "ArrayBuffer should become binary, got %v", got)
	assert.Equal(t, []byte{1, 2, 3}, bin)

	got = c.ToHostValue(eval(t, rt, "new Uint8Array([4, 5])"), nil)
	bin, ok = got.AsBinary()
	require.True(t, ok, "Uint8Array should become binary, got %v", got)
	assert.Equal(t, []byte{4, 5}, bin)
}

func TestToHostValue_Ambiguous(t *testing.T) {
	rt := goja.New()
	c, logs := newConverter(Options{})

	for _, src := range []string{"({a: 1})", "[1, 2]", "(function(){})", "Symbol('x')", "new Date(0)", "/ab+c/"} {
		got := c.ToHostValue(eval(t, rt, src), nil)
		assert.True(t, got.IsNone(), "%s should become none, got %v", src, got)
	}

	assert.Equal(t, 6, logs.FilterMessage("marshal ambiguous").Len())
}

func TestToHostValue_Options(t *testing.T) {
	rt := goja.New()
	c, _ := newConverter(Options{DateAllowed: true, RegExpAllowed: true})

	got := c.ToHostValue(eval(t, rt, "new Date(1500)"), nil)
	ms, ok := got.AsDouble()
	require.True(t, ok, "date should become double, got %v", got)
	assert.Equal(t, 1500.0, ms)

	got = c.ToHostValue(eval(t, rt, "/ab+c/"), nil)
	src, ok := got.AsString()
	require.True(t, ok)
	assert.Equal(t, "ab+c", src)
}

func TestToHostValue_Proxy(t *testing.T) {
	rt := goja.New()
	c, _ := newConverter(Options{})
	b := newFakeBinder(rt)
	p := b.add(7)

	got := c.ToHostValue(p, b)
	id, ok := got.AsObject()
	require.True(t, ok)
	assert.Equal(t, jsbridge.ObjectID(7), id)

	// A plain object is not a proxy even with a binder.
	assert.True(t, c.ToHostValue(rt.NewObject(), b).IsNone())
}

func TestFromScriptArguments(t *testing.T) {
	rt := goja.New()
	c, _ := newConverter(Options{})

	args := []goja.Value{rt.ToValue(1), rt.ToValue("a"), goja.Undefined()}
	got := c.FromScriptArguments(args, nil)
	require.Len(t, got, 3)
	assert.True(t, got[0].Equal(value.Int(1)))
	assert.True(t, got[1].Equal(value.String("a")))
	assert.True(t, got[2].IsNone())
}

func TestToScriptValue(t *testing.T) {
	rt := goja.New()
	c, _ := newConverter(Options{})

	assert.True(t, goja.IsNull(c.ToScriptValue(rt, value.None(), nil)))
	assert.Equal(t, true, c.ToScriptValue(rt, value.Bool(true), nil).Export())
	assert.Equal(t, int64(3), c.ToScriptValue(rt, value.Int(3), nil).Export())
	assert.Equal(t, 2.5, c.ToScriptValue(rt, value.Double(2.5), nil).Export())
	assert.Equal(t, "s", c.ToScriptValue(rt, value.String("s"), nil).Export())

	src := []byte{9, 8, 7}
	bv := c.ToScriptValue(rt, value.Binary(src), nil)
	ab, ok := bv.Export().(goja.ArrayBuffer)
	require.True(t, ok, "binary should become an ArrayBuffer")
	assert.Equal(t, src, ab.Bytes())

	require.NoError(t, rt.Set("buf", bv))
	assert.Equal(t, int64(3), eval(t, rt, "buf.byteLength").Export())
}

func TestToScriptValue_Composite(t *testing.T) {
	rt := goja.New()
	c, _ := newConverter(Options{})

	v := value.Map(map[string]value.Value{
		"name": value.String("home"),
		"dims": value.List(value.Int(512), value.Int(256)),
	})
	require.NoError(t, rt.Set("v", c.ToScriptValue(rt, v, nil)))

	assert.Equal(t, "home", eval(t, rt, "v.name").Export())
	assert.Equal(t, int64(2), eval(t, rt, "v.dims.length").Export())
	assert.Equal(t, true, eval(t, rt, "Array.isArray(v.dims)").Export())
	assert.Equal(t, int64(768), eval(t, rt, "v.dims[0] + v.dims[1]").Export())
}

func TestToScriptValue_Object(t *testing.T) {
	rt := goja.New()
	c, logs := newConverter(Options{})
	b := newFakeBinder(rt)
	p := b.add(3)

	got := c.ToScriptValue(rt, value.Object(3), b)
	assert.Same(t, p, got)

	got = c.ToScriptValue(rt, value.Object(4), b)
	assert.True(t, goja.IsUndefined(got))
	assert.Equal(t, 1, logs.FilterMessage("unknown object").Len())
}

func TestRoundTrip(t *testing.T) {
	rt := goja.New()
	c, _ := newConverter(Options{})

	values := []value.Value{
		value.None(),
		value.Bool(true),
		value.Int(-12),
		value.Int(math.MaxInt32),
		value.Double(0.25),
		value.String("round trip"),
		value.Binary([]byte("bytes")),
	}

	for _, v := range values {
		t.Run(v.String(), func(t *testing.T) {
			back := c.ToHostValue(c.ToScriptValue(rt, v, nil), nil)
			assert.True(t, back.Equal(v), "got %v, want %v", back, v)
		})
	}
}
