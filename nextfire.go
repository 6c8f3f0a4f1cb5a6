package chime

import "time"

// Lookahead bounds for Next. Eight days spans a full weekday cycle; the
// probe cap keeps short intervals under blanket skip rules from scanning
// the whole horizon tick by tick.
const (
	nextHorizon   = 8 * 24 * time.Hour
	nextMaxProbes = 100000
)

// Next reports the first instant at or after now at which the schedule would
// run its on-time callback. ok is false when no such instant exists: a Once
// already past or skipped, or an Interval, At or Wait whose skip rules
// suppress every candidate within the lookahead horizon.
//
// Next is a pure prediction; it does not account for callback runtime
// stretching Interval periods.
func (s Schedule) Next(now time.Time) (next time.Time, ok bool) {
	switch s.Kind {
	case KindWait:
		at := now.Add(s.Delay)
		if s.Skipped(at) {
			return time.Time{}, false
		}
		return at, true

	case KindInterval:
		if s.Every <= 0 {
			return time.Time{}, false
		}
		at := now
		for i := 0; i < nextMaxProbes; i++ {
			at = at.Add(s.Every)
			if !s.Skipped(at) {
				return at, true
			}
			if at.Sub(now) > nextHorizon {
				break
			}
		}
		return time.Time{}, false

	case KindAt:
		at := nextOccurrence(now, s.At)
		for i := 0; i < 8; i++ {
			if !s.Skipped(at) {
				return at, true
			}
			at = at.AddDate(0, 0, 1)
		}
		return time.Time{}, false

	case KindOnce:
		if !s.When.After(now) || s.Skipped(s.When) {
			return time.Time{}, false
		}
		return s.When, true

	default:
		return time.Time{}, false
	}
}
