package session

import (
	stderrors "errors"
	"strings"
	"sync"

	"github.com/wippyai/jsbridge/errors"
)

const queueFull = "task queue full"

type taskKind uint8

const (
	taskRun taskKind = iota
	taskBind
	taskShutdown
)

type job struct {
	fn   func()
	kind taskKind
}

// mailbox is the worker's FIFO. Only run jobs count against the limit;
// bindings and shutdown are always accepted.
type mailbox struct {
	items []job
	wake  chan struct{}
	mu    sync.Mutex
	runs  int
	limit int
}

func newMailbox(limit int) *mailbox {
	return &mailbox{
		wake:  make(chan struct{}, 1),
		limit: limit,
	}
}

func (m *mailbox) push(j job) error {
	m.mu.Lock()
	if j.kind == taskRun {
		if m.limit > 0 && m.runs >= m.limit {
			m.mu.Unlock()
			return errors.New(errors.PhaseSession, errors.KindInvalidInput).
				Detail("%s (%d pending)", queueFull, m.runs).
				Build()
		}
		m.runs++
	}
	m.items = append(m.items, j)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return nil
}

func (m *mailbox) pop() (job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		return job{}, false
	}
	j := m.items[0]
	m.items[0] = job{}
	m.items = m.items[1:]
	if j.kind == taskRun {
		m.runs--
	}
	return j, true
}

func (m *mailbox) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// IsQueueFull reports whether err is the rejection of a Run because the
// session already holds its maximum of pending tasks.
func IsQueueFull(err error) bool {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Phase == errors.PhaseSession && e.Kind == errors.KindInvalidInput &&
		strings.HasPrefix(e.Detail, queueFull)
}
