// Package runner executes configured commands when their schedules fire.
package runner

import (
	"context"
	"fmt"
	"os/exec"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/chimekit/chime"
	"github.com/chimekit/chime/internal/config"
	"github.com/chimekit/chime/internal/events"
	"github.com/chimekit/chime/pkg/logx"
)

type OverlapPolicy int

const (
	OverlapAllow OverlapPolicy = iota
	OverlapSkipIfRunning
)

// runState tracks whether a task is already in-flight.
type runState struct {
	mu       sync.Mutex
	inflight int
}

func (s *runState) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight > 0 {
		return false
	}
	s.inflight++
	return true
}

func (s *runState) acquire() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

func (s *runState) release() {
	s.mu.Lock()
	if s.inflight > 0 {
		s.inflight--
	}
	s.mu.Unlock()
}

// Service builds scheduler tasks out of config task declarations.
//
// All tasks built by one Service share a skip-log rate limiter, so a task
// skipping every second cannot flood the log or the history store.
type Service struct {
	log logx.Logger
	bus events.Bus

	skipLimit *rate.Limiter

	mu    sync.Mutex
	tasks []*Task
}

func New(log logx.Logger, bus events.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:       log,
		bus:       bus,
		skipLimit: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Build turns validated task configs into scheduler tasks.
func (s *Service) Build(tcs []config.TaskConfig) ([]*Task, error) {
	tasks := make([]*Task, 0, len(tcs))
	for i, tc := range tcs {
		t, err := s.build(tc)
		if err != nil {
			return nil, fmt.Errorf("tasks[%d] %q: %w", i, tc.Name, err)
		}
		tasks = append(tasks, t)
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, tasks...)
	s.mu.Unlock()
	return tasks, nil
}

func (s *Service) build(tc config.TaskConfig) (*Task, error) {
	sched, err := chime.Parse(tc.Schedule)
	if err != nil {
		return nil, err
	}
	timeout, err := config.ParseDurationField("timeout", tc.Timeout)
	if err != nil {
		return nil, err
	}
	if len(tc.Command) == 0 {
		return nil, fmt.Errorf("command is required")
	}
	overlap := OverlapAllow
	if strings.EqualFold(strings.TrimSpace(tc.Overlap), "skip") {
		overlap = OverlapSkipIfRunning
	}
	return &Task{
		name:      tc.Name,
		sched:     sched,
		argv:      append([]string(nil), tc.Command...),
		timeout:   timeout,
		overlap:   overlap,
		log:       s.log,
		bus:       s.bus,
		skipLimit: s.skipLimit,
	}, nil
}

// Drain blocks until every in-flight command goroutine has finished, or
// until ctx is done. Call it after stopping the scheduler.
func (s *Service) Drain(ctx context.Context) error {
	s.mu.Lock()
	tasks := append([]*Task(nil), s.tasks...)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, t := range tasks {
			t.wg.Wait()
		}
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Task adapts one configured command to the scheduler's Task interface.
//
// Fires execute asynchronously so a slow command never delays the task's own
// ticking; the overlap policy decides what happens when ticks outpace runs.
type Task struct {
	name    string
	sched   chime.Schedule
	argv    []string
	timeout time.Duration
	overlap OverlapPolicy

	log       logx.Logger
	bus       events.Bus
	skipLimit *rate.Limiter

	state runState
	wg    sync.WaitGroup
}

func (t *Task) Name() string             { return t.name }
func (t *Task) Schedule() chime.Schedule { return t.sched }

func (t *Task) OnTime(ctx context.Context, stop func()) {
	_ = stop
	if t.overlap == OverlapSkipIfRunning {
		if !t.state.tryAcquire() {
			t.log.Warn("task.overlap_skipped", logx.String("task", t.name))
			t.publish(events.Event{Task: t.name, Kind: events.KindSkipped, At: time.Now(), Detail: "overlap"})
			return
		}
	} else {
		t.state.acquire()
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.state.release()
		t.execOne(ctx)
	}()
}

func (t *Task) OnSkip(ctx context.Context, stop func()) {
	_, _ = ctx, stop
	if t.skipLimit == nil || t.skipLimit.Allow() {
		t.log.Debug("task.skipped", logx.String("task", t.name))
		t.publish(events.Event{Task: t.name, Kind: events.KindSkipped, At: time.Now()})
	}
}

func (t *Task) execOne(ctx context.Context) {
	start := time.Now()
	t.log.Debug("task.started", logx.String("task", t.name))

	runCtx := ctx
	var cancel context.CancelFunc
	if t.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
	}

	// Guard against panics so one bad task cannot take the daemon down.
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				t.log.Error("task.panic", logx.String("task", t.name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		err = t.runCommand(runCtx)
	}()
	if cancel != nil {
		cancel()
	}

	dur := time.Since(start)
	if err != nil {
		t.log.Warn("task.failed", logx.String("task", t.name), logx.Any("err", err), logx.Duration("dur", dur))
		t.publish(events.Event{Task: t.name, Kind: events.KindError, At: start, Took: dur, Detail: err.Error()})
		return
	}
	if dur >= 750*time.Millisecond {
		t.log.Info("task.completed", logx.String("task", t.name), logx.Duration("dur", dur))
	} else {
		t.log.Debug("task.completed", logx.String("task", t.name), logx.Duration("dur", dur))
	}
	t.publish(events.Event{Task: t.name, Kind: events.KindFired, At: start, Took: dur})
}

func (t *Task) runCommand(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, t.argv[0], t.argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, truncate(msg, 512))
		}
		return err
	}
	return nil
}

func (t *Task) publish(e events.Event) {
	if t.bus != nil {
		t.bus.Publish(e)
	}
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}
