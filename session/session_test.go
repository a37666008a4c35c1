package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/host"
	"github.com/wippyai/jsbridge/source"
	"github.com/wippyai/jsbridge/value"
)

type greeter struct {
	prefix string
	mu     sync.Mutex
	calls  int
}

func (g *greeter) Greet(name string) string {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return g.prefix + name
}

func (g *greeter) MakeChild() *greeter {
	return &greeter{prefix: "child " + g.prefix}
}

type injector struct {
	s *Session
}

func (i *injector) Spawn(name string) bool {
	_, err := i.s.InjectObject(name, host.NewHandle(&greeter{prefix: "spawned "}, host.All))
	return err == nil
}

func newSession(t *testing.T, opts ...Option) (*Session, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	opts = append([]Option{WithLogger(zap.New(core))}, opts...)
	s := New(opts...)
	require.NoError(t, s.Init())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, logs
}

func eval(t *testing.T, s *Session, src string) (value.Value, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Eval(ctx, src)
}

// Scenario A: a host method called by name returns its value to the script.
func TestSession_CallHostMethod(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.InjectObject("host", host.NewHandle(&greeter{prefix: "hello "}, host.All))
	require.NoError(t, err)

	v, err := eval(t, s, `host.greet("world")`)
	require.NoError(t, err)
	got, ok := v.AsString()
	require.True(t, ok)
	assert.Equal(t, "hello world", got)
}

// Scenario B: an object result gets a fresh id and a working proxy.
func TestSession_ChainedObject(t *testing.T) {
	s, _ := newSession(t)
	id, err := s.InjectObject("host", host.NewHandle(&greeter{prefix: "p"}, host.All))
	require.NoError(t, err)

	v, err := eval(t, s, `var c = host.makeChild(); c.greet("x")`)
	require.NoError(t, err)
	got, _ := v.AsString()
	assert.Equal(t, "child px", got)

	v, err = eval(t, s, `c`)
	require.NoError(t, err)
	child, ok := v.AsObject()
	require.True(t, ok, "proxy should marshal back as an object id, got %v", v)
	assert.NotEqual(t, id, child)
	assert.Greater(t, child, id)

	v, err = eval(t, s, `c !== host`)
	require.NoError(t, err)
	b, _ := v.AsBool()
	assert.True(t, b)
}

// Scenario C: calling into a released object is a script error, not a crash.
func TestSession_ReleasedObject(t *testing.T) {
	s, logs := newSession(t)
	h := host.NewHandle(&greeter{}, host.All)
	_, err := s.InjectObject("host", h)
	require.NoError(t, err)

	_, err = eval(t, s, `var greet = host.greet; 1`)
	require.NoError(t, err)

	h.Release()

	_, err = eval(t, s, `host.greet("x")`)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindScript))
	assert.NotZero(t, logs.FilterMessage("unknown object").Len())
	assert.NotZero(t, logs.FilterMessage("script exception").Len())

	// A cached callable still reaches the dispatcher, which reports the miss.
	v, err := eval(t, s, `try { greet.call(host, "x"); "no" } catch (e) { e.message }`)
	require.NoError(t, err)
	msg, _ := v.AsString()
	assert.Contains(t, msg, string(errors.KindUnknownObject))

	v, err = eval(t, s, `"still running"`)
	require.NoError(t, err)
	msg, _ = v.AsString()
	assert.Equal(t, "still running", msg)
}

// Scenario D: buffers run strictly in submission order.
func TestSession_FIFO(t *testing.T) {
	s, logs := newSession(t)

	t1, err := s.RunBuffer([]byte(`adb.info("1a"); for (var i = 0; i < 10000; i++) {} adb.info("1b")`))
	require.NoError(t, err)
	t2, err := s.RunBuffer([]byte(`adb.info("2a"); adb.info("2b")`))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = t2.Wait(ctx)
	require.NoError(t, err)
	select {
	case <-t1.Done():
	default:
		t.Fatal("first buffer must finish before the second")
	}

	var order []string
	for _, e := range logs.FilterField(zap.String("sink", "adb")).All() {
		order = append(order, e.Message)
	}
	assert.Equal(t, []string{"1a", "1b", "2a", "2b"}, order)
}

func TestSession_InjectBeforeInit(t *testing.T) {
	s := New()
	_, err := s.InjectObject("host", host.NewHandle(&greeter{prefix: "early "}, host.All))
	require.NoError(t, err)

	_, err = s.RunBuffer([]byte(`1`))
	assert.True(t, errors.IsKind(err, errors.KindNotInitialized))

	require.NoError(t, s.Init())
	defer s.Shutdown(context.Background())

	v, err := eval(t, s, `host.greet("bird")`)
	require.NoError(t, err)
	got, _ := v.AsString()
	assert.Equal(t, "early bird", got)
}

func TestSession_InjectFromHostMethod(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.InjectObject("factory", host.NewHandle(&injector{s: s}, host.All))
	require.NoError(t, err)

	v, err := eval(t, s, `factory.spawn("late")`)
	require.NoError(t, err)
	ok, _ := v.AsBool()
	require.True(t, ok)

	v, err = eval(t, s, `late.greet("one")`)
	require.NoError(t, err)
	got, _ := v.AsString()
	assert.Equal(t, "spawned one", got)
}

func TestSession_InjectValidation(t *testing.T) {
	s, _ := newSession(t)

	for _, name := range []string{"", "1abc", "a-b", "a b"} {
		_, err := s.InjectObject(name, host.NewHandle(&greeter{}, host.All))
		assert.True(t, errors.IsKind(err, errors.KindInvalidInput), "name %q", name)
	}

	_, err := s.InjectObject("dead", host.NewHandle(nil, host.All))
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))

	_, err = s.InjectObject("none", nil)
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
}

func TestSession_ScriptErrorContained(t *testing.T) {
	s, logs := newSession(t)

	_, err := eval(t, s, `function boom() { throw new Error("kaput") } boom()`)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindScript))
	assert.Contains(t, err.Error(), "kaput")

	entries := logs.FilterMessage("script exception").All()
	require.Len(t, entries, 1)
	assert.Equal(t, source.BufferLabel, entries[0].ContextMap()["resource"])
	assert.Contains(t, entries[0].ContextMap()["stack"], "boom")

	_, err = eval(t, s, `this is not javascript`)
	assert.True(t, errors.IsKind(err, errors.KindScript))

	v, err := eval(t, s, `2 + 2`)
	require.NoError(t, err)
	n, _ := v.AsInt()
	assert.Equal(t, int64(4), n)
}

func TestSession_RunFile(t *testing.T) {
	s, logs := newSession(t)
	path := filepath.Join(t.TempDir(), "sample.js")
	require.NoError(t, os.WriteFile(path, []byte(`adb.info("from ", "file"); throw new Error("x")`), 0o600))

	task, err := s.RunFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "sample.js", task.Label())

	_, err = task.Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("from file").Len())
	assert.Equal(t, "sample.js", logs.FilterMessage("script exception").All()[0].ContextMap()["resource"])

	_, err = s.RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.js"))
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestSession_Loader(t *testing.T) {
	s, _ := newSession(t, WithLoader(source.Map{"lib/main.js": []byte(`"from map"`)}))

	task, err := s.RunFile(context.Background(), "lib/main.js")
	require.NoError(t, err)
	v, err := task.Wait(context.Background())
	require.NoError(t, err)
	got, _ := v.AsString()
	assert.Equal(t, "from map", got)
}

func TestSession_Globals(t *testing.T) {
	s, _ := newSession(t)
	id, err := s.InjectObject("host", host.NewHandle(&greeter{}, host.Allow("Greet")))
	require.NoError(t, err)

	globals := s.Globals()
	require.Len(t, globals, 1)
	assert.Equal(t, "host", globals[0].Name)
	assert.Equal(t, id, globals[0].ID)
	assert.Equal(t, []string{"greet"}, globals[0].Methods)

	id2, err := s.InjectObject("host", host.NewHandle(&greeter{}, host.All))
	require.NoError(t, err)
	globals = s.Globals()
	require.Len(t, globals, 1, "rebinding a name replaces the entry")
	assert.Equal(t, id2, globals[0].ID)
}

func TestSession_Lifecycle(t *testing.T) {
	s := New()
	require.NoError(t, s.Init())
	assert.True(t, errors.IsKind(s.Init(), errors.KindInvalidInput))

	task, err := s.RunBuffer([]byte(`adb.info("queued")`))
	require.NoError(t, err)

	require.NoError(t, s.Shutdown(context.Background()))
	select {
	case <-task.Done():
	default:
		t.Fatal("work queued before shutdown must complete first")
	}

	require.NoError(t, s.Shutdown(context.Background()), "shutdown is idempotent")

	_, err = s.RunBuffer([]byte(`1`))
	assert.True(t, errors.IsKind(err, errors.KindShutdown))
	_, err = s.InjectObject("late", host.NewHandle(&greeter{}, host.All))
	assert.True(t, errors.IsKind(err, errors.KindShutdown))
	assert.True(t, errors.IsKind(s.Init(), errors.KindShutdown))

	<-s.Done()
}

func TestSession_ShutdownBeforeInit(t *testing.T) {
	s := New()
	h := host.NewHandle(&greeter{}, host.All)
	_, err := s.InjectObject("host", h)
	require.NoError(t, err)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.True(t, h.Alive(), "host-owned objects outlive the session")
	assert.True(t, errors.IsKind(s.Init(), errors.KindShutdown))
}

func TestSession_QueueFull(t *testing.T) {
	cfg := config.Default()
	cfg.Session.QueueSize = 1

	block := make(chan struct{})
	s, _ := newSession(t, WithConfig(cfg))
	_, err := s.InjectObject("gate", host.NewHandle(&gate{ch: block}, host.All))
	require.NoError(t, err)

	first, err := s.RunBuffer([]byte(`gate.wait()`))
	require.NoError(t, err)

	// Wait until the worker picked the first task up.
	require.Eventually(t, func() bool { return s.box.pending() == 0 }, 5*time.Second, time.Millisecond)

	_, err = s.RunBuffer([]byte(`1`))
	require.NoError(t, err)
	_, err = s.RunBuffer([]byte(`2`))
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
	assert.True(t, IsQueueFull(err))
	assert.False(t, IsQueueFull(errors.InvalidInput(errors.PhaseSession, "invalid global name")))

	close(block)
	_, err = first.Wait(context.Background())
	require.NoError(t, err)
}

type gate struct {
	ch chan struct{}
}

func (g *gate) Wait() { <-g.ch }

func TestSession_ResultValues(t *testing.T) {
	s, _ := newSession(t)

	tests := []struct {
		src  string
		want value.Value
	}{
		{`undefined`, value.None()},
		{`null`, value.None()},
		{`true`, value.Bool(true)},
		{`40 + 2`, value.Int(42)},
		{`0.5`, value.Double(0.5)},
		{`"s"`, value.String("s")},
		{`new Uint8Array([7]).buffer`, value.Binary([]byte{7})},
		{`({a: 1})`, value.None()},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, err := eval(t, s, tt.src)
			require.NoError(t, err)
			assert.True(t, v.Equal(tt.want), "got %v, want %v", v, tt.want)
		})
	}
}

func TestSession_ConcurrentSubmitters(t *testing.T) {
	s, _ := newSession(t)
	g := &greeter{}
	_, err := s.InjectObject("host", host.NewHandle(g, host.All))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				task, err := s.RunBuffer([]byte(`host.greet("x")`))
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := task.Wait(context.Background()); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 40, g.calls)
}
