package registry

import (
	"sync"
	"testing"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/host"
)

type testObserver struct {
	events []Event
	mu     sync.Mutex
}

func (o *testObserver) OnRegistryEvent(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

type thing struct{ n int }

func TestRegistry_RoundTrip(t *testing.T) {
	reg := New()
	obj := &thing{n: 1}
	h := host.NewHandle(obj, host.All)

	id, err := reg.Register(h)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !id.Valid() {
		t.Fatal("expected a valid id")
	}

	got, err := reg.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != h {
		t.Fatal("Lookup returned a different handle")
	}

	resolved, ok := reg.Resolve(id)
	if !ok || resolved.(*thing) != obj {
		t.Fatal("Resolve should return the registered object")
	}
}

func TestRegistry_IDsStrictlyIncrease(t *testing.T) {
	reg := New()
	var last jsbridge.ObjectID
	for i := 0; i < 100; i++ {
		h := host.NewHandle(&thing{n: i}, nil)
		id, err := reg.Register(h)
		if err != nil {
			t.Fatal(err)
		}
		if id <= last {
			t.Fatalf("id %d not greater than %d", id, last)
		}
		last = id

		// Releasing must not free the id for reuse.
		h.Release()
	}
	if reg.Len() != 100 {
		t.Errorf("Len = %d, want 100", reg.Len())
	}
}

func TestRegistry_LookupMisses(t *testing.T) {
	reg := New()
	obs := &testObserver{}
	reg.Subscribe(obs)

	h := host.NewHandle(&thing{}, nil)
	id, _ := reg.Register(h)

	tests := []struct {
		name string
		id   jsbridge.ObjectID
		prep func()
	}{
		{"invalid id", jsbridge.InvalidObjectID, nil},
		{"never issued", id + 10, nil},
		{"released", id, h.Release},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prep != nil {
				tt.prep()
			}
			_, err := reg.Lookup(tt.id)
			if !errors.IsKind(err, errors.KindUnknownObject) {
				t.Errorf("expected unknown object, got %v", err)
			}
		})
	}

	misses := 0
	for _, e := range obs.events {
		if e.Type == EventLookupMissed {
			misses++
		}
	}
	if misses != 3 {
		t.Errorf("expected 3 miss events, got %d", misses)
	}
}

func TestRegistry_NilHandle(t *testing.T) {
	reg := New()
	_, err := reg.Register(nil)
	if !errors.IsKind(err, errors.KindRegistration) {
		t.Errorf("expected registration error, got %v", err)
	}
}

func TestRegistry_Observer(t *testing.T) {
	reg := New()
	obs := &testObserver{}
	reg.Subscribe(obs)

	h := host.NewHandle(&thing{}, nil)
	id, _ := reg.Register(h)
	if len(obs.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventRegistered || obs.events[0].ID != id || obs.events[0].Handle != h {
		t.Errorf("unexpected event %+v", obs.events[0])
	}

	reg.Unsubscribe(obs)
	_, _ = reg.Register(host.NewHandle(&thing{}, nil))
	if len(obs.events) != 1 {
		t.Error("unsubscribed observer should not receive events")
	}
}

func TestRegistry_ObserverReentrant(t *testing.T) {
	reg := New()
	done := make(chan struct{})
	reg.Subscribe(&reentrant{reg: reg, done: done})

	_, err := reg.Register(host.NewHandle(&thing{}, nil))
	if err != nil {
		t.Fatal(err)
	}
	<-done
}

type reentrant struct {
	reg  *Registry
	done chan struct{}
}

func (r *reentrant) OnRegistryEvent(e Event) {
	if e.Type == EventRegistered {
		_, _ = r.reg.Lookup(e.ID)
		close(r.done)
	}
}

func TestRegistry_Close(t *testing.T) {
	reg := New()
	obs := &testObserver{}
	reg.Subscribe(obs)

	injected := host.NewHandle(&thing{}, nil)
	adopted := host.NewHandle(&thing{}, nil)
	id, _ := reg.Register(injected)
	_, _ = reg.Adopt(adopted)

	if err := reg.Close(); err != nil {
		t.Fatal(err)
	}

	if !injected.Alive() {
		t.Error("host-owned handle must not be released by Close")
	}
	if adopted.Alive() {
		t.Error("adopted handle should be released by Close")
	}

	if _, err := reg.Lookup(id); !errors.IsKind(err, errors.KindUnknownObject) {
		t.Errorf("lookup after close should miss, got %v", err)
	}
	if _, err := reg.Register(host.NewHandle(&thing{}, nil)); !errors.IsKind(err, errors.KindShutdown) {
		t.Errorf("register after close should fail with shutdown, got %v", err)
	}

	if err := reg.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	closed := 0
	for _, e := range obs.events {
		if e.Type == EventClosed {
			closed++
		}
	}
	if closed != 1 {
		t.Errorf("expected one close event, got %d", closed)
	}
}

func TestRegistry_Each(t *testing.T) {
	reg := New()
	for i := 0; i < 5; i++ {
		_, _ = reg.Register(host.NewHandle(&thing{n: i}, nil))
	}

	var ids []jsbridge.ObjectID
	reg.Each(func(id jsbridge.ObjectID, h *host.Handle) bool {
		ids = append(ids, id)
		return len(ids) < 3
	})
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("Each visited %v", ids)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := New()
	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	ids := make(chan jsbridge.ObjectID, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := reg.Register(host.NewHandle(&thing{n: i}, nil))
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := reg.Lookup(id); err != nil {
					t.Error(err)
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[jsbridge.ObjectID]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != workers*perWorker {
		t.Errorf("got %d ids, want %d", len(seen), workers*perWorker)
	}
}

func TestEventType_String(t *testing.T) {
	if EventRegistered.String() != "registered" || EventClosed.String() != "closed" {
		t.Error("unexpected event names")
	}
	if EventType(99).String() != "unknown" {
		t.Error("unknown event type should stringify as unknown")
	}
}
