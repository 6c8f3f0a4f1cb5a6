package chime

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) Date {
	return Date{Year: y, Month: m, Day: d}
}

func mustWeekdays(t *testing.T, days ...int) SkipRule {
	t.Helper()
	r, err := SkipWeekdays(days...)
	if err != nil {
		t.Fatalf("SkipWeekdays(%v): %v", days, err)
	}
	return r
}

func mustWeekdayRange(t *testing.T, from, to int) SkipRule {
	t.Helper()
	r, err := SkipWeekdayRange(from, to)
	if err != nil {
		t.Fatalf("SkipWeekdayRange(%d, %d): %v", from, to, err)
	}
	return r
}

func TestSkipRuleMatches(t *testing.T) {
	t.Parallel()
	// 2026-08-24 is a Monday.
	mon := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	sun := mon.AddDate(0, 0, 6)
	at := func(h, m, s int) time.Time {
		return time.Date(2026, 8, 24, h, m, s, 0, time.UTC)
	}

	tests := []struct {
		name string
		rule SkipRule
		at   time.Time
		want bool
	}{
		{"date hit", SkipDate(date(2026, time.August, 24)), mon, true},
		{"date miss", SkipDate(date(2026, time.August, 25)), mon, false},
		{"date range inside", SkipDateRange(date(2026, time.August, 20), date(2026, time.August, 30)), mon, true},
		{"date range start edge", SkipDateRange(date(2026, time.August, 24), date(2026, time.August, 30)), mon, true},
		{"date range end edge", SkipDateRange(date(2026, time.August, 20), date(2026, time.August, 24)), mon, true},
		{"date range outside", SkipDateRange(date(2026, time.August, 25), date(2026, time.August, 30)), mon, false},
		{"date range across months", SkipDateRange(date(2026, time.July, 20), date(2026, time.September, 3)), mon, true},

		{"weekday hit", mustWeekdays(t, 1), mon, true},
		{"weekday miss", mustWeekdays(t, 1), sun, false},
		{"weekday set hit", mustWeekdays(t, 6, 7), sun, true},
		{"weekday set miss", mustWeekdays(t, 6, 7), mon, false},
		{"weekday range hit", mustWeekdayRange(t, 6, 7), sun, true},
		{"weekday range miss", mustWeekdayRange(t, 2, 5), mon, false},
		{"weekday range inverted matches nothing", mustWeekdayRange(t, 5, 2), mon, false},

		{"time hit", SkipTime(TimeOfDay{Hour: 12}), at(12, 0, 0), true},
		{"time sub-second still hits", SkipTime(TimeOfDay{Hour: 12}), at(12, 0, 0).Add(500 * time.Millisecond), true},
		{"time different second misses", SkipTime(TimeOfDay{Hour: 12}), at(12, 0, 30), false},

		{"time range inside", SkipTimeRange(TimeOfDay{Hour: 11}, TimeOfDay{Hour: 13}), at(12, 0, 0), true},
		{"time range start edge", SkipTimeRange(TimeOfDay{Hour: 12}, TimeOfDay{Hour: 13}), at(12, 0, 0), true},
		{"time range end edge", SkipTimeRange(TimeOfDay{Hour: 11}, TimeOfDay{Hour: 12}), at(12, 0, 0), true},
		{"time range outside", SkipTimeRange(TimeOfDay{Hour: 13}, TimeOfDay{Hour: 14}), at(12, 0, 0), false},
		{"overnight range late side", SkipTimeRange(TimeOfDay{Hour: 22}, TimeOfDay{Hour: 6}), at(23, 0, 0), true},
		{"overnight range early side", SkipTimeRange(TimeOfDay{Hour: 22}, TimeOfDay{Hour: 6}), at(5, 0, 0), true},
		{"overnight range midday", SkipTimeRange(TimeOfDay{Hour: 22}, TimeOfDay{Hour: 6}), at(12, 0, 0), false},

		{"zero rule matches nothing", SkipRule{}, mon, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Matches(tt.at); got != tt.want {
				t.Fatalf("Matches(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestSkipRuleMatchesWallClockOfInstant(t *testing.T) {
	t.Parallel()
	// 02:30 in UTC+8 is 18:30 UTC the previous day; rules must read the
	// instant's own wall clock, not UTC.
	loc := time.FixedZone("UTC+08:00", 8*3600)
	at := time.Date(2026, 8, 24, 2, 30, 0, 0, loc)

	if !SkipTime(TimeOfDay{Hour: 2, Minute: 30}).Matches(at) {
		t.Fatal("expected local wall-clock match")
	}
	if !SkipDate(date(2026, time.August, 24)).Matches(at) {
		t.Fatal("expected local date match")
	}
	if SkipDate(date(2026, time.August, 23)).Matches(at) {
		t.Fatal("UTC date must not leak into matching")
	}
}

func TestSkipConstructorsRejectBadWeekdays(t *testing.T) {
	t.Parallel()
	if _, err := SkipWeekdays(0); err == nil {
		t.Fatal("expected error for weekday 0")
	}
	if _, err := SkipWeekdays(1, 8); err == nil {
		t.Fatal("expected error for weekday 8")
	}
	if _, err := SkipWeekdayRange(0, 5); err == nil {
		t.Fatal("expected error for range start 0")
	}
	if _, err := SkipWeekdayRange(1, 9); err == nil {
		t.Fatal("expected error for range end 9")
	}
}

func TestScheduleSkippedAnyRule(t *testing.T) {
	t.Parallel()
	mon := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	none := Interval(30 * time.Second)
	if none.Skipped(mon) {
		t.Fatal("schedule without rules must never skip")
	}

	s := Interval(30*time.Second,
		mustWeekdays(t, 6, 7),
		SkipDate(date(2026, time.August, 24)),
	)
	if !s.Skipped(mon) {
		t.Fatal("expected skip when any rule matches")
	}
	if !s.Skipped(mon.AddDate(0, 0, 5)) { // Saturday
		t.Fatal("expected skip from weekday rule")
	}
	if s.Skipped(mon.AddDate(0, 0, 1)) { // Tuesday the 25th
		t.Fatal("expected no skip when no rule matches")
	}
}
