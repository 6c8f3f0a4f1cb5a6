package chime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chimekit/chime/internal/supervisor"
	"github.com/chimekit/chime/pkg/logx"
)

// Offsets are minutes east of UTC. The default matches the original
// deployment zone, UTC+8.
const (
	defaultOffsetMinutes = 8 * 60
	maxOffsetMinutes     = 14 * 60
)

// Scheduler drives tasks against wall-clock time in a single timezone.
//
// Every task registered through Run gets its own goroutine; all of them share
// one cancellation signal, so Stop (or a task calling its stop argument)
// shuts the whole scheduler down. A Scheduler is immutable after New: its
// zone and logger never change.
type Scheduler struct {
	loc *time.Location
	log logx.Logger
	sup *supervisor.Supervisor

	mu  sync.Mutex
	seq int
}

type settings struct {
	offsetMin int
	loc       *time.Location
	log       logx.Logger
	parent    context.Context
}

// Option configures a Scheduler at construction time.
type Option func(*settings)

// WithTimezone fixes the scheduler zone to the given offset. Minutes take
// the sign of hours, so WithTimezone(-5, 30) means UTC-05:30.
func WithTimezone(hours, minutes int) Option {
	return func(st *settings) {
		if minutes < 0 {
			minutes = -minutes
		}
		if hours < 0 {
			st.offsetMin = hours*60 - minutes
		} else {
			st.offsetMin = hours*60 + minutes
		}
		st.loc = nil
	}
}

// WithTimezoneMinutes fixes the scheduler zone to an offset in minutes east
// of UTC.
func WithTimezoneMinutes(minutes int) Option {
	return func(st *settings) {
		st.offsetMin = minutes
		st.loc = nil
	}
}

// WithLocation runs the scheduler in loc, which may be an IANA location.
// Daily schedules then follow that zone's wall clock across DST changes.
func WithLocation(loc *time.Location) Option {
	return func(st *settings) {
		if loc != nil {
			st.loc = loc
		}
	}
}

// WithLogger sets the logger for scheduler internals. The default discards
// everything.
func WithLogger(log logx.Logger) Option {
	return func(st *settings) { st.log = log }
}

// WithContext parents the scheduler context to ctx, so canceling ctx stops
// the scheduler.
func WithContext(ctx context.Context) Option {
	return func(st *settings) {
		if ctx != nil {
			st.parent = ctx
		}
	}
}

// DefaultLocation returns the zone a Scheduler runs in when no timezone
// option is given: UTC+8.
func DefaultLocation() *time.Location {
	return time.FixedZone(zoneName(defaultOffsetMinutes), defaultOffsetMinutes*60)
}

// New builds a Scheduler. Without options it runs in UTC+8.
//
// Offsets beyond ±14 hours are not real timezones; they are logged and
// replaced with UTC.
func New(opts ...Option) *Scheduler {
	st := settings{
		offsetMin: defaultOffsetMinutes,
		log:       logx.Nop(),
		parent:    context.Background(),
	}
	for _, opt := range opts {
		opt(&st)
	}

	loc := st.loc
	if loc == nil {
		if st.offsetMin < -maxOffsetMinutes || st.offsetMin > maxOffsetMinutes {
			st.log.Warn("timezone offset out of range, falling back to UTC",
				logx.Int("offset_minutes", st.offsetMin))
			loc = time.UTC
		} else {
			loc = time.FixedZone(zoneName(st.offsetMin), st.offsetMin*60)
		}
	}

	return &Scheduler{
		loc: loc,
		log: st.log,
		sup: supervisor.New(st.parent, supervisor.WithLogger(st.log)),
	}
}

func zoneName(offsetMin int) string {
	if offsetMin == 0 {
		return "UTC"
	}
	sign := "+"
	if offsetMin < 0 {
		sign = "-"
		offsetMin = -offsetMin
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, offsetMin/60, offsetMin%60)
}

// Run registers t and starts driving it. Run never blocks: the task's
// schedule is read once, here, and the matching loop is launched on its own
// goroutine.
//
// A task whose schedule has the zero Kind is logged and ignored.
func (s *Scheduler) Run(t Task) {
	s.mu.Lock()
	s.seq++
	name := fmt.Sprintf("task-%d", s.seq)
	s.mu.Unlock()
	if n, ok := t.(Namer); ok && n.Name() != "" {
		name = n.Name()
	}

	sched := t.Schedule()
	switch sched.Kind {
	case KindWait:
		s.sup.Go0(name, func(ctx context.Context) { s.runWait(ctx, name, t, sched) })
	case KindInterval:
		s.sup.Go0(name, func(ctx context.Context) { s.runInterval(ctx, name, t, sched) })
	case KindAt:
		s.sup.Go0(name, func(ctx context.Context) { s.runAt(ctx, name, t, sched) })
	case KindOnce:
		s.sup.Go0(name, func(ctx context.Context) { s.runOnce(ctx, name, t, sched) })
	default:
		s.log.Warn("task has no runnable schedule", logx.String("task", name))
	}
}

// Stop cancels the shared context. Sleeping tasks return promptly; a callback
// already in flight finishes first. Stop is idempotent and safe to call from
// inside callbacks.
func (s *Scheduler) Stop() { s.sup.Cancel() }

// Context returns the scheduler's cancellation context.
func (s *Scheduler) Context() context.Context { return s.sup.Context() }

// Done reports scheduler shutdown; it is Context().Done().
func (s *Scheduler) Done() <-chan struct{} { return s.sup.Context().Done() }

// Wait blocks until every task goroutine has exited, or until ctx is done.
// It returns the first task panic converted to an error, if any.
func (s *Scheduler) Wait(ctx context.Context) error { return s.sup.Wait(ctx) }

// Location returns the scheduler's timezone.
func (s *Scheduler) Location() *time.Location { return s.loc }

// Now returns the current time in the scheduler's timezone.
func (s *Scheduler) Now() time.Time { return time.Now().In(s.loc) }

// NextFire reports when sched would next fire on this scheduler's clock.
// ok is false when the schedule cannot fire within the lookahead horizon.
func (s *Scheduler) NextFire(sched Schedule) (next time.Time, ok bool) {
	return sched.Next(s.Now())
}
