package chime

import (
	"context"
	"time"

	"github.com/chimekit/chime/pkg/logx"
)

// newSleepTimer returns a stopped, drained timer ready for Reset.
func newSleepTimer() *time.Timer {
	t := time.NewTimer(0)
	if !t.Stop() {
		<-t.C
	}
	return t
}

// sleepFor arms timer and blocks until it fires or ctx is done. It reports
// false when ctx won. The timer must be stopped and drained on entry, which
// holds between calls as long as the caller returns on false.
func sleepFor(ctx context.Context, timer *time.Timer, d time.Duration) bool {
	if d < 0 {
		d = 0
	}
	timer.Reset(d)
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// runWait sleeps once, then fires or skips depending on the clock at wakeup.
// The task terminates either way.
func (s *Scheduler) runWait(ctx context.Context, name string, t Task, sched Schedule) {
	timer := newSleepTimer()
	defer timer.Stop()

	if !sleepFor(ctx, timer, sched.Delay) {
		return
	}
	s.log.Debug("wait elapsed", logx.String("task", name), logx.Duration("wait", sched.Delay))

	if sched.Skipped(s.Now()) {
		t.OnSkip(ctx, s.Stop)
		return
	}
	t.OnTime(ctx, s.Stop)
}

// runInterval fires every period, measured from the end of the previous
// callback. Skips are checked against the clock at wakeup.
func (s *Scheduler) runInterval(ctx context.Context, name string, t Task, sched Schedule) {
	if sched.Every <= 0 {
		s.log.Warn("interval period must be positive",
			logx.String("task", name), logx.Duration("every", sched.Every))
		t.OnSkip(ctx, s.Stop)
		return
	}

	timer := newSleepTimer()
	defer timer.Stop()

	for {
		if !sleepFor(ctx, timer, sched.Every) {
			return
		}
		s.log.Debug("interval tick",
			logx.String("task", name), logx.Duration("every", sched.Every))

		if sched.Skipped(s.Now()) {
			t.OnSkip(ctx, s.Stop)
			continue
		}
		t.OnTime(ctx, s.Stop)
	}
}

// runAt fires daily at the configured wall time. Skip rules are evaluated
// against the target instant, so a late wakeup or slow callback cannot move
// the verdict to another day.
func (s *Scheduler) runAt(ctx context.Context, name string, t Task, sched Schedule) {
	timer := newSleepTimer()
	defer timer.Stop()

	next := nextOccurrence(s.Now(), sched.At)
	for {
		if !sleepFor(ctx, timer, next.Sub(s.Now())) {
			return
		}
		s.log.Debug("at time reached",
			logx.String("task", name), logx.Time("target", next))

		if sched.Skipped(next) {
			t.OnSkip(ctx, s.Stop)
			next = next.AddDate(0, 0, 1)
			continue
		}
		t.OnTime(ctx, s.Stop)
		next = next.AddDate(0, 0, 1)
	}
}

// runOnce fires at one absolute instant. A target at or before now, or one
// matched by a skip rule, reports a skip immediately without sleeping.
// Skip rules read the target in its own zone.
func (s *Scheduler) runOnce(ctx context.Context, name string, t Task, sched Schedule) {
	now := s.Now()
	if !sched.When.After(now) {
		s.log.Debug("once target already past",
			logx.String("task", name), logx.Time("target", sched.When))
		t.OnSkip(ctx, s.Stop)
		return
	}
	if sched.Skipped(sched.When) {
		t.OnSkip(ctx, s.Stop)
		return
	}

	timer := newSleepTimer()
	defer timer.Stop()

	if !sleepFor(ctx, timer, sched.When.Sub(now)) {
		return
	}
	s.log.Debug("once time reached",
		logx.String("task", name), logx.Time("target", sched.When))
	t.OnTime(ctx, s.Stop)
}

// nextOccurrence returns the first instant with wall time tod at or after now.
func nextOccurrence(now time.Time, tod TimeOfDay) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(),
		tod.Hour, tod.Minute, tod.Second, 0, now.Location())
	if next.Before(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
