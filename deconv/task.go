package deconv

import (
	"context"
	"sync"
)

// A Task is the pending result of an asynchronous request.
type Task struct {
	done      chan struct{}
	err       error
	cancel    context.CancelFunc
	mu        sync.Mutex
	cancelled bool
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{done: make(chan struct{}), cancel: cancel}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
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

// Done tells if the task has finished.
func (t *Task) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Cancel asks the task to stop. It reports whether the task was still
// running.
func (t *Task) Cancel() bool {
	if t.Done() {
		return false
	}

	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	return true
}

// Cancelled tells if Cancel took effect on the task.
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cancelled
}

// Group joins several tasks.
//
// Done and Cancelled hold only when they hold for every member. Cancel is
// forwarded to every member.
type Group struct {
	tasks []*Task
}

// All joins the tasks into one group.
func All(tasks ...*Task) *Group {
	return &Group{tasks: tasks}
}

// Len returns the number of members.
func (g *Group) Len() int {
	return len(g.tasks)
}

// Wait blocks until every member finishes and returns the error of the
// first member, in order, that failed.
func (g *Group) Wait(ctx context.Context) error {
	var first error

	for _, t := range g.tasks {
		err := t.Wait(ctx)
		if err != nil && first == nil {
			first = err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return first
}

// Done tells if every member has finished.
func (g *Group) Done() bool {
	for _, t := range g.tasks {
		if !t.Done() {
			return false
		}
	}

	return true
}

// Cancel cancels every member and reports whether all were still running.
func (g *Group) Cancel() bool {
	all := true
	for _, t := range g.tasks {
		if !t.Cancel() {
			all = false
		}
	}

	return all
}

// Cancelled tells if every member was cancelled.
func (g *Group) Cancelled() bool {
	for _, t := range g.tasks {
		if !t.Cancelled() {
			return false
		}
	}

	return true
}
