package state

import (
	"context"
	"errors"
)

// Task is the pending remote half of a mutation. Local state has already
// changed by the time a Task is returned; the Task only reports how the
// mirror write went.
type Task struct {
	done chan struct{}
	err  error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func completedTask(err error) *Task {
	t := newTask()
	t.finish(err)
	return t
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed once the remote write has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err is the remote outcome. It is nil while the task is still pending.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// joinTasks finishes when every part has, with the joined errors.
func joinTasks(parts ...*Task) *Task {
	live := parts[:0:0]
	for _, p := range parts {
		if p != nil {
			live = append(live, p)
		}
	}
	switch len(live) {
	case 0:
		return completedTask(nil)
	case 1:
		return live[0]
	}
	t := newTask()
	go func() {
		errs := make([]error, 0, len(live))
		for _, p := range live {
			<-p.done
			errs = append(errs, p.err)
		}
		t.finish(errors.Join(errs...))
	}()
	return t
}
