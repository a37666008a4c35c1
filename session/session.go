package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/host"
	"github.com/wippyai/jsbridge/registry"
	"github.com/wippyai/jsbridge/source"
	"github.com/wippyai/jsbridge/value"
)

type state uint8

const (
	stateCreated state = iota
	stateRunning
	stateStopping
	stateStopped
)

// Binding describes a global name bound to a host object.
type Binding struct {
	Name    string
	Methods []string
	ID      jsbridge.ObjectID
}

// Session owns one script engine, its bridge and the worker goroutine that
// runs every script and binding in submission order.
type Session struct {
	ctx    context.Context
	log    *zap.Logger
	inv    host.Invoker
	loader source.Loader
	reg    *registry.Registry
	box    *mailbox
	done   chan struct{}

	// owned by the worker after Init
	eng engine

	globals []Binding
	cfg     config.Config
	mu      sync.RWMutex
	state   state
}

// New creates a session. Objects may be injected before Init; their
// bindings take effect once the worker starts.
func New(opts ...Option) *Session {
	s := &Session{
		ctx:    context.Background(),
		cfg:    config.Default(),
		log:    Logger(),
		inv:    host.NewReflectInvoker(),
		loader: source.FileLoader{},
		reg:    registry.New(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Session.Name != "" {
		s.log = s.log.With(zap.String("session", s.cfg.Session.Name))
	}
	s.box = newMailbox(s.cfg.Session.QueueSize)
	s.reg.Subscribe(registryLog{log: s.log})
	return s
}

// Init creates the engine, installs the bridge and built-ins, and starts
// the worker.
func (s *Session) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateRunning:
		return errors.InvalidInput(errors.PhaseSession, "session already initialized")
	case stateStopping, stateStopped:
		return errors.Shutdown(errors.PhaseSession, "init")
	}

	if err := s.cfg.Validate(); err != nil {
		return err
	}

	eng, err := s.newEngine(s.cfg.Session.Engine)
	if err != nil {
		return err
	}

	s.eng = eng
	s.state = stateRunning
	go s.worker()

	s.log.Debug("session initialized",
		zap.String("engine", s.engineName()),
		zap.Int("queue_size", s.cfg.Session.QueueSize))
	return nil
}

// InjectObject registers h and binds it as the global name. Registration
// happens immediately; the global becomes visible to scripts submitted
// after this call. Safe to call from any goroutine, including host methods
// running on the worker.
func (s *Session) InjectObject(name string, h *host.Handle) (jsbridge.ObjectID, error) {
	if !validName(name) {
		return jsbridge.InvalidObjectID, errors.InvalidInput(errors.PhaseSession,
			fmt.Sprintf("invalid global name %q", name))
	}
	if h == nil || !h.Alive() {
		return jsbridge.InvalidObjectID, errors.InvalidInput(errors.PhaseSession, "host object is not alive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state >= stateStopping {
		return jsbridge.InvalidObjectID, errors.Shutdown(errors.PhaseSession, "inject object")
	}

	id, err := s.reg.Register(h)
	if err != nil {
		return jsbridge.InvalidObjectID, err
	}

	s.globals = slices.DeleteFunc(s.globals, func(b Binding) bool { return b.Name == name })
	s.globals = append(s.globals, Binding{Name: name, ID: id})

	err = s.box.push(job{kind: taskBind, fn: func() {
		if err := s.eng.Bind(name, id); err != nil {
			s.log.Error("bind object", zap.String("name", name), zap.Uint64("object_id", uint64(id)), zap.Error(err))
		}
	}})
	if err != nil {
		return jsbridge.InvalidObjectID, err
	}

	s.log.Info("object injected",
		zap.String("name", name),
		zap.Uint64("object_id", uint64(id)),
		zap.String("type", h.TypeName()),
		zap.String("capability", h.Capability().Name()))
	return id, nil
}

// Run queues src for execution under label.
func (s *Session) Run(src []byte, label string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.state {
	case stateCreated:
		return nil, errors.NotInitialized(errors.PhaseSession, "session")
	case stateStopping, stateStopped:
		return nil, errors.Shutdown(errors.PhaseSession, "run")
	}

	t := newTask(label)
	code := string(src)
	if err := s.box.push(job{kind: taskRun, fn: func() { s.execute(t, code) }}); err != nil {
		return nil, err
	}
	return t, nil
}

// RunFile loads path through the session loader and queues it. The label
// is the file's base name.
func (s *Session) RunFile(ctx context.Context, path string) (*Task, error) {
	src, label, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.Run(src, label)
}

// RunBuffer queues an in-memory script.
func (s *Session) RunBuffer(src []byte) (*Task, error) {
	return s.Run(src, source.BufferLabel)
}

// Eval runs src and waits for its result.
func (s *Session) Eval(ctx context.Context, src string) (value.Value, error) {
	t, err := s.RunBuffer([]byte(src))
	if err != nil {
		return value.None(), err
	}
	return t.Wait(ctx)
}

// Globals lists the injected bindings with their current method names.
func (s *Session) Globals() []Binding {
	s.mu.RLock()
	out := slices.Clone(s.globals)
	s.mu.RUnlock()

	for i := range out {
		if h, err := s.reg.Lookup(out[i].ID); err == nil {
			out[i].Methods = s.inv.MethodNames(h)
		}
	}
	return out
}

// Registry returns the session's object registry.
func (s *Session) Registry() *registry.Registry {
	return s.reg
}

// Shutdown queues teardown behind all submitted work and waits for it.
// Later submissions fail with a shutdown error. Shutdown is idempotent but
// must not be called from a host method running on the worker.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case stateCreated:
		s.state = stateStopped
		close(s.done)
		s.mu.Unlock()
		return s.reg.Close()
	case stateRunning:
		s.state = stateStopping
		if err := s.box.push(job{kind: taskShutdown, fn: s.teardown}); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the session has shut down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) worker() {
	for {
		j, ok := s.box.pop()
		if !ok {
			<-s.box.wake
			continue
		}
		s.guard(j.fn)
		if j.kind == taskShutdown {
			return
		}
	}
}

// guard keeps the worker alive if a job panics.
func (s *Session) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("worker job panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}

func (s *Session) execute(t *Task, code string) {
	var (
		res value.Value
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			err = errors.Script(t.label, fmt.Errorf("panic: %v", r))
			s.log.Error("script panicked", zap.String("resource", t.label), zap.Any("panic", r))
		}
		t.finish(res, err)
	}()

	v, runErr := s.eng.Run(t.label, code)
	if runErr != nil {
		err = errors.Script(t.label, runErr)
		fields := []zap.Field{zap.String("resource", t.label), zap.Error(runErr)}
		if stack := scriptStack(runErr); stack != "" {
			fields = append(fields, zap.String("stack", stack))
		}
		s.log.Error("script exception", fields...)
		return
	}
	res = v
}

func (s *Session) engineName() string {
	if s.cfg.Session.Engine == "" {
		return config.EngineGoja
	}
	return s.cfg.Session.Engine
}

func (s *Session) teardown() {
	if err := s.eng.Close(); err != nil {
		s.log.Warn("close engine", zap.Error(err))
	}
	if err := s.reg.Close(); err != nil {
		s.log.Warn("close registry", zap.Error(err))
	}

	s.mu.Lock()
	s.eng = nil
	s.state = stateStopped
	s.mu.Unlock()

	close(s.done)
	s.log.Debug("session shut down")
}

// validName accepts plain identifiers usable as a global.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// registryLog reports registry activity at debug level.
type registryLog struct {
	log *zap.Logger
}

func (r registryLog) OnRegistryEvent(e registry.Event) {
	r.log.Debug("registry "+e.Type.String(), zap.Uint64("object_id", uint64(e.ID)), zap.Bool("owned", e.Owned))
}
