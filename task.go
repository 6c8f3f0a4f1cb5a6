package chime

import "context"

// Task is a unit of scheduled work. The scheduler reads Schedule once when
// the task is handed to Run; the result drives that registration for its
// whole lifetime.
//
// Callbacks receive the scheduler's context, which is canceled by Stop, and
// a stop function that shuts the whole scheduler down. Callbacks run on the
// task's own goroutine; a slow OnTime delays that task's next tick but never
// other tasks.
type Task interface {
	Schedule() Schedule

	// OnTime runs at each scheduled instant not covered by a skip rule.
	OnTime(ctx context.Context, stop func())

	// OnSkip runs instead of OnTime when a skip rule covers the instant.
	OnSkip(ctx context.Context, stop func())
}

// Namer is implemented by tasks that want a stable name in logs. Unnamed
// tasks are labeled task-1, task-2, ... in registration order.
type Namer interface {
	Name() string
}

// TaskFunc adapts plain functions to the Task interface.
//
// A nil Time stops the scheduler when the task fires, which keeps one-shot
// wiring short. A nil Skip ignores skipped instants.
type TaskFunc struct {
	Label string
	Plan  Schedule
	Time  func(ctx context.Context, stop func())
	Skip  func(ctx context.Context, stop func())
}

func (f TaskFunc) Name() string { return f.Label }

func (f TaskFunc) Schedule() Schedule { return f.Plan }

func (f TaskFunc) OnTime(ctx context.Context, stop func()) {
	if f.Time == nil {
		stop()
		return
	}
	f.Time(ctx, stop)
}

func (f TaskFunc) OnSkip(ctx context.Context, stop func()) {
	if f.Skip != nil {
		f.Skip(ctx, stop)
	}
}
