package runner

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/chimekit/chime"
	"github.com/chimekit/chime/internal/config"
	"github.com/chimekit/chime/internal/events"
	"github.com/chimekit/chime/pkg/logx"
)

func requirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests execute POSIX commands")
	}
}

func buildOne(t *testing.T, s *Service, tc config.TaskConfig) *Task {
	t.Helper()
	tasks, err := s.Build([]config.TaskConfig{tc})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tasks[0]
}

func recvEvent(t *testing.T, ch <-chan events.Event, within time.Duration) events.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(within):
		t.Fatalf("no event within %v", within)
		return events.Event{}
	}
}

func drainAll(t *testing.T, s *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
}

func TestBuildValidation(t *testing.T) {
	s := New(logx.Nop(), nil)

	tests := []struct {
		name    string
		tc      config.TaskConfig
		wantErr string
	}{
		{
			name:    "bad schedule",
			tc:      config.TaskConfig{Name: "x", Schedule: "every(5)", Command: []string{"true"}},
			wantErr: `tasks[0] "x":`,
		},
		{
			name:    "bad timeout",
			tc:      config.TaskConfig{Name: "x", Schedule: "wait(60)", Command: []string{"true"}, Timeout: "fast"},
			wantErr: "invalid duration",
		},
		{
			name:    "missing command",
			tc:      config.TaskConfig{Name: "x", Schedule: "wait(60)"},
			wantErr: "command is required",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Build([]config.TaskConfig{tt.tc})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Build error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildDefaults(t *testing.T) {
	s := New(logx.Nop(), nil)
	tc := config.TaskConfig{
		Name:     "backup",
		Schedule: "interval(30)",
		Command:  []string{"echo", "hi"},
		Timeout:  "30s",
		Overlap:  " SKIP ",
	}
	task := buildOne(t, s, tc)

	if task.Name() != "backup" {
		t.Fatalf("Name() = %q", task.Name())
	}
	if got := task.Schedule(); got.Kind != chime.KindInterval {
		t.Fatalf("Schedule().Kind = %v, want interval", got.Kind)
	}
	if task.timeout != 30*time.Second {
		t.Fatalf("timeout = %v, want 30s", task.timeout)
	}
	if task.overlap != OverlapSkipIfRunning {
		t.Fatalf("overlap = %v, want skip", task.overlap)
	}

	// argv must be a copy, not an alias of the config slice.
	tc.Command[0] = "clobbered"
	if task.argv[0] != "echo" {
		t.Fatalf("argv aliases the config command slice")
	}

	allow := buildOne(t, s, config.TaskConfig{Name: "plain", Schedule: "wait(60)", Command: []string{"true"}})
	if allow.overlap != OverlapAllow {
		t.Fatalf("default overlap = %v, want allow", allow.overlap)
	}
}

func TestRunPublishesFired(t *testing.T) {
	requirePOSIX(t)
	bus := events.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	s := New(logx.Nop(), bus)
	task := buildOne(t, s, config.TaskConfig{Name: "ok", Schedule: "wait(60)", Command: []string{"true"}})

	task.OnTime(context.Background(), func() {})
	drainAll(t, s)

	e := recvEvent(t, ch, 2*time.Second)
	if e.Task != "ok" || e.Kind != events.KindFired {
		t.Fatalf("event = %+v, want fired for ok", e)
	}
	if e.At.IsZero() {
		t.Fatalf("event At not stamped")
	}
}

func TestRunFailurePublishesError(t *testing.T) {
	requirePOSIX(t)
	bus := events.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	s := New(logx.Nop(), bus)
	task := buildOne(t, s, config.TaskConfig{
		Name:     "broken",
		Schedule: "wait(60)",
		Command:  []string{"sh", "-c", "echo boom >&2; exit 3"},
	})

	task.OnTime(context.Background(), func() {})
	drainAll(t, s)

	e := recvEvent(t, ch, 2*time.Second)
	if e.Kind != events.KindError {
		t.Fatalf("event kind = %q, want error", e.Kind)
	}
	if !strings.Contains(e.Detail, "exit status 3") || !strings.Contains(e.Detail, "boom") {
		t.Fatalf("detail = %q, want exit status and captured output", e.Detail)
	}
}

func TestRunTimeoutKillsCommand(t *testing.T) {
	requirePOSIX(t)
	bus := events.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	s := New(logx.Nop(), bus)
	task := buildOne(t, s, config.TaskConfig{
		Name:     "stuck",
		Schedule: "wait(60)",
		Command:  []string{"sleep", "30"},
		Timeout:  "100ms",
	})

	start := time.Now()
	task.OnTime(context.Background(), func() {})
	drainAll(t, s)

	e := recvEvent(t, ch, 5*time.Second)
	if e.Kind != events.KindError {
		t.Fatalf("event kind = %q, want error", e.Kind)
	}
	if took := time.Since(start); took > 5*time.Second {
		t.Fatalf("timeout took %v, command was not killed", took)
	}
}

func TestOverlapSkipDropsSecondFire(t *testing.T) {
	requirePOSIX(t)
	bus := events.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	s := New(logx.Nop(), bus)
	task := buildOne(t, s, config.TaskConfig{
		Name:     "slow",
		Schedule: "wait(60)",
		Command:  []string{"sleep", "1"},
		Overlap:  "skip",
	})

	task.OnTime(context.Background(), func() {})
	task.OnTime(context.Background(), func() {}) // first run still in flight

	e := recvEvent(t, ch, 2*time.Second)
	if e.Kind != events.KindSkipped || e.Detail != "overlap" {
		t.Fatalf("event = %+v, want overlap skip", e)
	}

	drainAll(t, s)
	e = recvEvent(t, ch, 2*time.Second)
	if e.Kind != events.KindFired {
		t.Fatalf("event kind = %q, want fired after drain", e.Kind)
	}
}

func TestOnSkipIsRateLimited(t *testing.T) {
	bus := events.New()
	ch, unsub := bus.Subscribe(32)
	defer unsub()

	s := New(logx.Nop(), bus)
	task := buildOne(t, s, config.TaskConfig{Name: "noisy", Schedule: "interval(1)", Command: []string{"true"}})

	for i := 0; i < 10; i++ {
		task.OnSkip(context.Background(), func() {})
	}

	// The shared limiter admits a burst of 5, then refills one per second.
	if got := len(ch); got != 5 {
		t.Fatalf("published %d skip events, want 5", got)
	}
	e := recvEvent(t, ch, time.Second)
	if e.Kind != events.KindSkipped || e.Task != "noisy" {
		t.Fatalf("event = %+v", e)
	}
}

func TestDrainHonorsContext(t *testing.T) {
	requirePOSIX(t)
	s := New(logx.Nop(), nil)
	task := buildOne(t, s, config.TaskConfig{Name: "long", Schedule: "wait(60)", Command: []string{"sleep", "30"}})

	runCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel) // kills the command so the goroutine can exit
	task.OnTime(runCtx, func() {})

	ctx, cancelDrain := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancelDrain()
	if err := s.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Drain = %v, want deadline exceeded", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 512); got != "short" {
		t.Fatalf("truncate(short) = %q", got)
	}
	long := strings.Repeat("x", 600)
	got := truncate(long, 512)
	if len(got) != 512 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate long = %d bytes, suffix %q", len(got), got[len(got)-3:])
	}
}
