// Package cronbridge exposes chime schedules to code built around
// github.com/robfig/cron/v3, in both directions: any schedule can run inside
// a cron runner, and daily schedules can be rendered as cron expressions for
// systems that only speak cron.
package cronbridge

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chimekit/chime"
)

// Adapt wraps s as a cron.Schedule.
//
// cron has no way to say "never again": when the underlying schedule is
// exhausted (a past once) or every candidate inside the lookahead horizon is
// skipped, Next reports the zero time, which robfig/cron treats as
// "do not schedule".
//
// Skip rules translate to silence rather than a skip notification; a cron
// runner has no skip callback to deliver one to. A wait schedule is relative
// to whatever instant cron probes from, so under cron it behaves like
// cron.Every rather than a one-shot.
func Adapt(s chime.Schedule) cron.Schedule {
	return adapter{s}
}

type adapter struct {
	s chime.Schedule
}

// Next honors cron's strictly-later contract. The schedule itself admits a
// candidate equal to the probe instant, so probe one nanosecond past t.
func (a adapter) Next(t time.Time) time.Time {
	next, ok := a.s.Next(t.Add(time.Nanosecond))
	if !ok {
		return time.Time{}
	}
	return next
}

// Spec renders s as a standard five-field cron expression when one exists.
//
// Only daily schedules translate: the at form with an optional weekday skip
// set. Everything else reports false: wait, interval and once have no cron
// equivalent, second-precision times don't fit five fields, and date or
// time-of-day skips have no column to land in.
func Spec(s chime.Schedule) (string, bool) {
	if s.Kind != chime.KindAt || s.At.Second != 0 {
		return "", false
	}

	skipped := make(map[int]bool, 7)
	for _, r := range s.Skip {
		switch r.Kind {
		case chime.SkipKindWeekdays:
			for _, d := range r.Days {
				skipped[d] = true
			}
		case chime.SkipKindWeekdayRange:
			for d := r.DayFrom; d <= r.DayTo; d++ {
				skipped[d] = true
			}
		default:
			return "", false
		}
	}

	dow := "*"
	if len(skipped) > 0 {
		days := make([]string, 0, 7)
		for d := 1; d <= 7; d++ {
			if skipped[d] {
				continue
			}
			// cron numbers Sunday 0 where the schedule numbers it 7.
			days = append(days, strconv.Itoa(d%7))
		}
		if len(days) == 0 {
			// Every weekday suppressed; "never" is not a cron expression.
			return "", false
		}
		dow = strings.Join(days, ",")
	}
	return fmt.Sprintf("%d %d * * %s", s.At.Minute, s.At.Hour, dow), true
}
