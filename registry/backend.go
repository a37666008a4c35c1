package registry

import (
	"errors"
	"sync"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/host"
)

var (
	ErrClosed    = errors.New("registry closed")
	ErrNilHandle = errors.New("nil handle")
)

// table is the in-memory id table. Ids index entries directly: id n lives
// at entries[n-1]. Slots are never reused, so ids grow strictly.
type table struct {
	entries []entry
	mu      sync.RWMutex
	closed  bool
}

type entry struct {
	handle *host.Handle
	owned  bool
}

func newTable() *table {
	return &table{
		entries: make([]entry, 0, 64),
	}
}

// create allocates the next id and stores h under a single critical section.
func (t *table) create(h *host.Handle, owned bool) (jsbridge.ObjectID, error) {
	if h == nil {
		return jsbridge.InvalidObjectID, ErrNilHandle
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return jsbridge.InvalidObjectID, ErrClosed
	}

	t.entries = append(t.entries, entry{handle: h, owned: owned})
	return jsbridge.ObjectID(len(t.entries)), nil
}

func (t *table) get(id jsbridge.ObjectID) (*host.Handle, bool) {
	if !id.Valid() {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed || uint64(id) > uint64(len(t.entries)) {
		return nil, false
	}
	return t.entries[id-1].handle, true
}

func (t *table) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// snapshot copies the entries so callers can iterate without the lock.
func (t *table) snapshot() []entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]entry(nil), t.entries...)
}

// close marks the table closed and hands back the owned handles.
func (t *table) close() ([]*host.Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, false
	}
	t.closed = true

	var owned []*host.Handle
	for _, e := range t.entries {
		if e.owned {
			owned = append(owned, e.handle)
		}
	}
	t.entries = nil
	return owned, true
}
