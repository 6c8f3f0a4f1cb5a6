// Package chime is a lightweight in-process task scheduler.
//
// # Overview
//
// A Scheduler drives tasks whose timing is described by a Schedule: a fixed
// one-shot delay (Wait), a repeating period (Interval), a daily wall-clock
// time (At), or an absolute instant (Once). Every schedule may carry an
// ordered list of skip rules; when a rule matches the fire instant the task is
// notified through OnSkip instead of OnTime, and repeating schedules keep
// their cadence.
//
// Each task runs on its own goroutine. All tasks started by one Scheduler
// share a single cancellation signal: Stop cancels every driver loop at its
// next sleep boundary, and task callbacks receive a stop function so any task
// can shut the whole scheduler down.
//
// # Schedule text format
//
// Schedules can be written as descriptor strings and parsed with Parse:
//
//   - "wait(10)" fires once after 10 seconds
//   - "interval(30)" fires every 30 seconds
//   - "at(07:30)" fires daily at 07:30
//   - "once(2024-11-05 09:00:00 +08)" fires at that instant
//
// An optional second argument adds skip rules, either a single rule or a
// bracketed list:
//
//	interval(30, weekday 6)
//	at(07:30, [weekday 6, weekday 7])
//	wait(10, time 22:00..06:00)
//
// Weekdays are ISO numbered: 1 is Monday, 7 is Sunday. A time range whose
// start is later than its end wraps across midnight.
//
// # Timezone
//
// Wall-clock decisions (daily occurrences, skip rules) are made in the
// scheduler's configured location, a fixed UTC+8 offset by default. Offsets
// outside the real-world range degrade to UTC rather than failing.
package chime
