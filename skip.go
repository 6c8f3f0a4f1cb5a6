package chime

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// SkipKind tags the variant of a SkipRule.
type SkipKind uint8

const (
	// SkipKindNone matches nothing. It is the zero value, so an empty
	// SkipRule is inert.
	SkipKindNone SkipKind = iota
	SkipKindDate
	SkipKindDateRange
	SkipKindWeekdays
	SkipKindWeekdayRange
	SkipKindTime
	SkipKindTimeRange
)

// SkipRule is one suppression predicate evaluated against a fire instant.
// Rules are pure: matching never mutates state and never fails.
//
// Only the fields belonging to Kind are meaningful; construct rules through
// the Skip* constructors rather than struct literals.
type SkipRule struct {
	Kind SkipKind

	Date    Date // SkipKindDate, start of SkipKindDateRange
	DateEnd Date // end of SkipKindDateRange (inclusive)

	Days    []int // SkipKindWeekdays, ISO numbered
	DayFrom int   // SkipKindWeekdayRange (inclusive)
	DayTo   int

	Time    TimeOfDay // SkipKindTime, start of SkipKindTimeRange
	TimeEnd TimeOfDay // end of SkipKindTimeRange (inclusive)
}

// SkipDate matches any instant on the given calendar date.
func SkipDate(d Date) SkipRule {
	return SkipRule{Kind: SkipKindDate, Date: d}
}

// SkipDateRange matches any instant whose date falls in [from, to], inclusive
// on both ends.
func SkipDateRange(from, to Date) SkipRule {
	return SkipRule{Kind: SkipKindDateRange, Date: from, DateEnd: to}
}

// SkipWeekdays matches instants falling on any of the given ISO weekdays
// (1 = Monday .. 7 = Sunday). Out-of-range values are a construction error.
func SkipWeekdays(days ...int) (SkipRule, error) {
	for _, d := range days {
		if d < 1 || d > 7 {
			return SkipRule{}, fmt.Errorf("weekday must be between 1 and 7, got %d", d)
		}
	}
	return SkipRule{Kind: SkipKindWeekdays, Days: slices.Clone(days)}, nil
}

// SkipWeekdayRange matches instants whose ISO weekday falls in [from, to].
// A range with from > to matches nothing.
func SkipWeekdayRange(from, to int) (SkipRule, error) {
	if from < 1 || from > 7 {
		return SkipRule{}, fmt.Errorf("weekday must be between 1 and 7, got %d", from)
	}
	if to < 1 || to > 7 {
		return SkipRule{}, fmt.Errorf("weekday must be between 1 and 7, got %d", to)
	}
	return SkipRule{Kind: SkipKindWeekdayRange, DayFrom: from, DayTo: to}, nil
}

// SkipTime matches instants whose wall-clock time equals the given time of
// day, at second granularity.
func SkipTime(at TimeOfDay) SkipRule {
	return SkipRule{Kind: SkipKindTime, Time: at}
}

// SkipTimeRange matches instants whose wall-clock time falls in [from, to],
// inclusive on both ends. When from is later than to the range wraps across
// midnight: it matches times at or after from, or at or before to.
func SkipTimeRange(from, to TimeOfDay) SkipRule {
	return SkipRule{Kind: SkipKindTimeRange, Time: from, TimeEnd: to}
}

// Matches reports whether the rule suppresses a fire at instant t. The
// instant is read as a wall-clock value in its own location.
func (r SkipRule) Matches(t time.Time) bool {
	switch r.Kind {
	case SkipKindDate:
		return DateOf(t) == r.Date
	case SkipKindDateRange:
		d := DateOf(t).ordinal()
		return d >= r.Date.ordinal() && d <= r.DateEnd.ordinal()
	case SkipKindWeekdays:
		return slices.Contains(r.Days, ISOWeekday(t))
	case SkipKindWeekdayRange:
		wd := ISOWeekday(t)
		return wd >= r.DayFrom && wd <= r.DayTo
	case SkipKindTime:
		return TimeOfDayOf(t) == r.Time
	case SkipKindTimeRange:
		sec := TimeOfDayOf(t).secondOfDay()
		start := r.Time.secondOfDay()
		end := r.TimeEnd.secondOfDay()
		if start <= end {
			return sec >= start && sec <= end
		}
		// Overnight wrap, e.g. 22:00..06:00.
		return sec >= start || sec <= end
	default:
		return false
	}
}

// Equal reports structural equality: same variant and same values, with
// weekday sets compared in order.
func (r SkipRule) Equal(o SkipRule) bool {
	if r.Kind != o.Kind {
		return false
	}
	switch r.Kind {
	case SkipKindDate:
		return r.Date == o.Date
	case SkipKindDateRange:
		return r.Date == o.Date && r.DateEnd == o.DateEnd
	case SkipKindWeekdays:
		return slices.Equal(r.Days, o.Days)
	case SkipKindWeekdayRange:
		return r.DayFrom == o.DayFrom && r.DayTo == o.DayTo
	case SkipKindTime:
		return r.Time == o.Time
	case SkipKindTimeRange:
		return r.Time == o.Time && r.TimeEnd == o.TimeEnd
	default:
		return true
	}
}

// String renders the rule in descriptor form, e.g. "weekday 6" or
// "time 22:00..06:00". Weekday sets with several members render as a
// comma-separated run of single-day rules.
func (r SkipRule) String() string {
	switch r.Kind {
	case SkipKindDate:
		return "date " + r.Date.String()
	case SkipKindDateRange:
		return "date " + r.Date.String() + ".." + r.DateEnd.String()
	case SkipKindWeekdays:
		if len(r.Days) == 0 {
			return "none"
		}
		parts := make([]string, 0, len(r.Days))
		for _, d := range r.Days {
			parts = append(parts, fmt.Sprintf("weekday %d", d))
		}
		return strings.Join(parts, ", ")
	case SkipKindWeekdayRange:
		return fmt.Sprintf("weekday %d..%d", r.DayFrom, r.DayTo)
	case SkipKindTime:
		return "time " + r.Time.String()
	case SkipKindTimeRange:
		return "time " + r.Time.String() + ".." + r.TimeEnd.String()
	default:
		return "none"
	}
}

// descriptorParts splits the rule into descriptor fragments. A multi-day
// weekday set yields one fragment per day so composed descriptors stay
// parseable.
func (r SkipRule) descriptorParts() []string {
	if r.Kind == SkipKindWeekdays && len(r.Days) > 1 {
		parts := make([]string, 0, len(r.Days))
		for _, d := range r.Days {
			parts = append(parts, fmt.Sprintf("weekday %d", d))
		}
		return parts
	}
	return []string{r.String()}
}

// anySkip reports whether any rule in order matches t.
func anySkip(rules []SkipRule, t time.Time) bool {
	for _, r := range rules {
		if r.Matches(t) {
			return true
		}
	}
	return false
}
