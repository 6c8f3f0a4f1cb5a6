package chime

import (
	"fmt"
	"strings"
	"time"
)

// Kind tags the variant of a Schedule. The zero value is not a valid
// schedule; Run logs and ignores tasks that produce one.
type Kind uint8

const (
	KindWait Kind = iota + 1
	KindInterval
	KindAt
	KindOnce
)

func (k Kind) String() string {
	switch k {
	case KindWait:
		return "wait"
	case KindInterval:
		return "interval"
	case KindAt:
		return "at"
	case KindOnce:
		return "once"
	default:
		return "invalid"
	}
}

// Schedule describes when a task fires. Exactly one primary field is
// meaningful, selected by Kind; Skip applies to all variants.
type Schedule struct {
	Kind Kind

	Delay time.Duration // KindWait: one-shot delay from dispatch
	Every time.Duration // KindInterval: repeat period
	At    TimeOfDay     // KindAt: daily wall-clock time
	When  time.Time     // KindOnce: absolute instant

	Skip []SkipRule
}

// Wait fires once after delay, then terminates.
func Wait(delay time.Duration, rules ...SkipRule) Schedule {
	return Schedule{Kind: KindWait, Delay: delay, Skip: rules}
}

// Interval fires repeatedly, the first time after one full period. Periods
// are measured sleep-to-sleep; time spent in callbacks is not compensated.
func Interval(every time.Duration, rules ...SkipRule) Schedule {
	return Schedule{Kind: KindInterval, Every: every, Skip: rules}
}

// At fires daily at the given wall-clock time in the scheduler's location.
func At(at TimeOfDay, rules ...SkipRule) Schedule {
	return Schedule{Kind: KindAt, At: at, Skip: rules}
}

// Once fires at the given absolute instant. If the instant has already
// passed when the task is dispatched, the task is notified through OnSkip.
func Once(when time.Time, rules ...SkipRule) Schedule {
	return Schedule{Kind: KindOnce, When: when, Skip: rules}
}

// Skipped reports whether any skip rule suppresses a fire at instant t.
func (s Schedule) Skipped(t time.Time) bool {
	return anySkip(s.Skip, t)
}

// Equal reports whether two schedules are the same variant with the same
// primary value and the same skip rules in the same order. Once instants
// compare as instants, so equal moments in different zones are equal.
func (s Schedule) Equal(o Schedule) bool {
	if s.Kind != o.Kind || len(s.Skip) != len(o.Skip) {
		return false
	}
	switch s.Kind {
	case KindWait:
		if s.Delay != o.Delay {
			return false
		}
	case KindInterval:
		if s.Every != o.Every {
			return false
		}
	case KindAt:
		if s.At != o.At {
			return false
		}
	case KindOnce:
		if !s.When.Equal(o.When) {
			return false
		}
	}
	for i := range s.Skip {
		if !s.Skip[i].Equal(o.Skip[i]) {
			return false
		}
	}
	return true
}

// String renders the schedule in descriptor form, e.g. "interval(30)" or
// "at(07:30, [weekday 6, weekday 7])". Output produced from a parsed
// descriptor re-parses to an equal schedule.
func (s Schedule) String() string {
	var b strings.Builder
	switch s.Kind {
	case KindWait:
		fmt.Fprintf(&b, "wait(%d", int64(s.Delay/time.Second))
	case KindInterval:
		fmt.Fprintf(&b, "interval(%d", int64(s.Every/time.Second))
	case KindAt:
		fmt.Fprintf(&b, "at(%s", s.At)
	case KindOnce:
		_, off := s.When.Zone()
		fmt.Fprintf(&b, "once(%s %+03d", s.When.Format("2006-01-02 15:04:05"), off/3600)
	default:
		return "invalid"
	}
	var parts []string
	for _, r := range s.Skip {
		parts = append(parts, r.descriptorParts()...)
	}
	switch len(parts) {
	case 0:
	case 1:
		fmt.Fprintf(&b, ", %s", parts[0])
	default:
		fmt.Fprintf(&b, ", [%s]", strings.Join(parts, ", "))
	}
	b.WriteString(")")
	return b.String()
}
