package chime

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want TimeOfDay
	}{
		{"00:00", TimeOfDay{}},
		{"07:30", TimeOfDay{Hour: 7, Minute: 30}},
		{"23:59", TimeOfDay{Hour: 23, Minute: 59}},
		{" 12:05 ", TimeOfDay{Hour: 12, Minute: 5}},
		{"06:15:42", TimeOfDay{Hour: 6, Minute: 15, Second: 42}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.raw)
			if err != nil {
				t.Fatalf("ParseTimeOfDay(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseTimeOfDay(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseTimeOfDayInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "7", "24:00", "12:60", "12:00:60", "ab:cd", "12-30"} {
		if _, err := ParseTimeOfDay(raw); err == nil {
			t.Fatalf("ParseTimeOfDay(%q): expected error", raw)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	t.Parallel()
	if got := (TimeOfDay{Hour: 7, Minute: 5}).String(); got != "07:05" {
		t.Fatalf("String = %q, want %q", got, "07:05")
	}
	if got := (TimeOfDay{Hour: 7, Minute: 5, Second: 9}).String(); got != "07:05:09" {
		t.Fatalf("String = %q, want %q", got, "07:05:09")
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()
	got, err := ParseDate("2026-02-28")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	want := Date{Year: 2026, Month: time.February, Day: 28}
	if got != want {
		t.Fatalf("ParseDate = %+v, want %+v", got, want)
	}

	for _, raw := range []string{"", "2026-2-28", "2026-02-30", "26-02-28", "2026/02/28"} {
		if _, err := ParseDate(raw); err == nil {
			t.Fatalf("ParseDate(%q): expected error", raw)
		}
	}
}

func TestDateString(t *testing.T) {
	t.Parallel()
	d := Date{Year: 2026, Month: time.March, Day: 7}
	if got := d.String(); got != "2026-03-07" {
		t.Fatalf("String = %q, want %q", got, "2026-03-07")
	}
}

func TestISOWeekday(t *testing.T) {
	t.Parallel()
	// 2026-08-24 is a Monday.
	mon := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	for i, want := range []int{1, 2, 3, 4, 5, 6, 7} {
		if got := ISOWeekday(mon.AddDate(0, 0, i)); got != want {
			t.Fatalf("ISOWeekday(mon+%dd) = %d, want %d", i, got, want)
		}
	}
}
