package session

import (
	"context"

	"github.com/wippyai/jsbridge/value"
)

// Task is a queued script run.
type Task struct {
	done  chan struct{}
	err   error
	label string
	val   value.Value
}

func newTask(label string) *Task {
	return &Task{label: label, done: make(chan struct{})}
}

func (t *Task) finish(v value.Value, err error) {
	t.val = v
	t.err = err
	close(t.done)
}

// Label returns the resource name the script runs under.
func (t *Task) Label() string {
	return t.label
}

// Done is closed once the script finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the script finished or ctx is done. It returns the
// value of the script's last expression in host form, or the script error.
func (t *Task) Wait(ctx context.Context) (value.Value, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		return value.None(), ctx.Err()
	}
}
