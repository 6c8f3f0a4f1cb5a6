package chime

import (
	"testing"
	"time"
)

func TestScheduleEqual(t *testing.T) {
	t.Parallel()
	sat := mustWeekdays(t, 6)
	sun := mustWeekdays(t, 7)

	tests := []struct {
		name string
		a, b Schedule
		want bool
	}{
		{"same wait", Wait(10 * time.Second), Wait(10 * time.Second), true},
		{"different wait", Wait(10 * time.Second), Wait(11 * time.Second), false},
		{"different kinds", Wait(10 * time.Second), Interval(10 * time.Second), false},
		{"same interval with rules", Interval(30*time.Second, sat, sun), Interval(30*time.Second, sat, sun), true},
		{"rule order matters", Interval(30*time.Second, sat, sun), Interval(30*time.Second, sun, sat), false},
		{"rule count differs", Interval(30*time.Second, sat), Interval(30 * time.Second), false},
		{"same at", At(TimeOfDay{Hour: 7, Minute: 30}), At(TimeOfDay{Hour: 7, Minute: 30}), true},
		{"different at", At(TimeOfDay{Hour: 7, Minute: 30}), At(TimeOfDay{Hour: 7, Minute: 31}), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Fatalf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduleEqualOnceComparesInstants(t *testing.T) {
	t.Parallel()
	utc := time.Date(2026, 12, 1, 0, 30, 0, 0, time.UTC)
	east := utc.In(time.FixedZone("UTC+08:00", 8*3600))

	if !Once(utc).Equal(Once(east)) {
		t.Fatal("equal instants in different zones must compare equal")
	}
	if Once(utc).Equal(Once(utc.Add(time.Second))) {
		t.Fatal("different instants must not compare equal")
	}
}

func TestScheduleString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		s    Schedule
		want string
	}{
		{"wait", Wait(10 * time.Second), "wait(10)"},
		{"interval", Interval(30 * time.Second), "interval(30)"},
		{"at", At(TimeOfDay{Hour: 7, Minute: 30}), "at(07:30)"},
		{"single rule unbracketed", Interval(30*time.Second, mustWeekdays(t, 6)), "interval(30, weekday 6)"},
		{"several rules bracketed",
			At(TimeOfDay{Hour: 7, Minute: 30}, mustWeekdays(t, 6), mustWeekdays(t, 7)),
			"at(07:30, [weekday 6, weekday 7])"},
		{"weekday set splits into parseable parts",
			Interval(30*time.Second, mustWeekdays(t, 6, 7)),
			"interval(30, [weekday 6, weekday 7])"},
		{"once",
			Once(time.Date(2026, 12, 1, 8, 30, 0, 0, time.FixedZone("UTC+08:00", 8*3600))),
			"once(2026-12-01 08:30:00 +08)"},
		{"zero value", Schedule{}, "invalid"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.String(); got != tt.want {
				t.Fatalf("String = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()
	pairs := map[Kind]string{
		KindWait:     "wait",
		KindInterval: "interval",
		KindAt:       "at",
		KindOnce:     "once",
		Kind(0):      "invalid",
	}
	for k, want := range pairs {
		if got := k.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
