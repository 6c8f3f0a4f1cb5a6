package chime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// onceLayout accepts whole-hour numeric offsets like "+08" or "-05".
const onceLayout = "2006-01-02 15:04:05 -07"

// Parse turns a descriptor string into a Schedule.
//
// Descriptors have the form kind(primary[, skip]) where kind is one of wait,
// interval, at or once:
//
//	wait(10)
//	interval(30, weekday 6)
//	at(07:30, [weekday 6, weekday 7])
//	once(2024-11-05 09:00:00 +08)
//
// The skip argument is a single rule or a bracketed, comma-separated list.
// Rules are "weekday N", "weekday N..M", "date YYYY-MM-DD",
// "date YYYY-MM-DD..YYYY-MM-DD", "time HH:MM" and "time HH:MM..HH:MM".
func Parse(s string) (Schedule, error) {
	raw := strings.TrimSpace(s)

	open := strings.Index(raw, "(")
	if open < 0 {
		return Schedule{}, fmt.Errorf("invalid schedule %q, expected a form like \"wait(10)\"", raw)
	}
	closing := strings.LastIndex(raw, ")")
	if closing < 0 {
		return Schedule{}, fmt.Errorf("missing closing parenthesis in %q", raw)
	}
	if closing <= open {
		return Schedule{}, fmt.Errorf("invalid parentheses in %q", raw)
	}

	kind := strings.TrimSpace(raw[:open])
	primary, rules, err := splitArgs(raw[open+1 : closing])
	if err != nil {
		return Schedule{}, err
	}

	switch kind {
	case "wait":
		secs, err := parseSeconds(primary)
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid seconds %q in wait(%s)", primary, primary)
		}
		return Wait(secs, rules...), nil
	case "interval":
		secs, err := parseSeconds(primary)
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid seconds %q in interval(%s)", primary, primary)
		}
		if secs == 0 {
			return Schedule{}, fmt.Errorf("interval must be > 0")
		}
		return Interval(secs, rules...), nil
	case "at":
		tod, err := ParseTimeOfDay(primary)
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid time %q in at(%s), expected HH:MM", primary, primary)
		}
		return At(tod, rules...), nil
	case "once":
		when, err := time.Parse(onceLayout, primary)
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid datetime %q in once(%s), expected YYYY-MM-DD HH:MM:SS +HH", primary, primary)
		}
		return Once(when, rules...), nil
	default:
		return Schedule{}, fmt.Errorf("unknown schedule kind %q (supported: wait, interval, at, once)", kind)
	}
}

// MustParse is Parse for descriptors known to be valid; it panics on error.
func MustParse(s string) Schedule {
	sched, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("chime: parse %q: %v", s, err))
	}
	return sched
}

func parseSeconds(s string) (time.Duration, error) {
	secs, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if secs > math.MaxInt64/uint64(time.Second) {
		return 0, fmt.Errorf("seconds value out of range")
	}
	return time.Duration(secs) * time.Second, nil
}

// splitArgs separates the primary argument from the optional skip spec at the
// first comma. Primary arguments never contain commas.
func splitArgs(args string) (string, []SkipRule, error) {
	if i := strings.Index(args, ","); i >= 0 {
		primary := strings.TrimSpace(args[:i])
		rules, err := parseSkipSpec(strings.TrimSpace(args[i+1:]))
		if err != nil {
			return "", nil, err
		}
		return primary, rules, nil
	}
	return strings.TrimSpace(args), nil, nil
}

func parseSkipSpec(s string) ([]SkipRule, error) {
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner := strings.TrimSpace(s[1 : len(s)-1])
		if inner == "" {
			return nil, nil
		}
		var rules []SkipRule
		for _, part := range strings.Split(inner, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			r, err := parseSkipRule(part)
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		}
		return rules, nil
	}
	r, err := parseSkipRule(s)
	if err != nil {
		return nil, err
	}
	return []SkipRule{r}, nil
}

func parseSkipRule(s string) (SkipRule, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return SkipRule{}, fmt.Errorf("empty skip rule")
	}
	switch fields[0] {
	case "weekday":
		if len(fields) != 2 {
			return SkipRule{}, fmt.Errorf("invalid weekday rule %q, expected \"weekday N\"", s)
		}
		if from, to, ok := strings.Cut(fields[1], ".."); ok {
			a, err := parseWeekday(from)
			if err != nil {
				return SkipRule{}, err
			}
			b, err := parseWeekday(to)
			if err != nil {
				return SkipRule{}, err
			}
			return SkipWeekdayRange(a, b)
		}
		d, err := parseWeekday(fields[1])
		if err != nil {
			return SkipRule{}, err
		}
		return SkipWeekdays(d)
	case "date":
		if len(fields) != 2 {
			return SkipRule{}, fmt.Errorf("invalid date rule %q, expected \"date YYYY-MM-DD\"", s)
		}
		if from, to, ok := strings.Cut(fields[1], ".."); ok {
			a, err := ParseDate(from)
			if err != nil {
				return SkipRule{}, err
			}
			b, err := ParseDate(to)
			if err != nil {
				return SkipRule{}, err
			}
			return SkipDateRange(a, b), nil
		}
		d, err := ParseDate(fields[1])
		if err != nil {
			return SkipRule{}, err
		}
		return SkipDate(d), nil
	case "time":
		if len(fields) != 2 {
			return SkipRule{}, fmt.Errorf("invalid time rule %q, expected \"time HH:MM\" or \"time HH:MM..HH:MM\"", s)
		}
		if from, to, ok := strings.Cut(fields[1], ".."); ok {
			a, err := ParseTimeOfDay(from)
			if err != nil {
				return SkipRule{}, fmt.Errorf("invalid start time %q", from)
			}
			b, err := ParseTimeOfDay(to)
			if err != nil {
				return SkipRule{}, fmt.Errorf("invalid end time %q", to)
			}
			return SkipTimeRange(a, b), nil
		}
		t, err := ParseTimeOfDay(fields[1])
		if err != nil {
			return SkipRule{}, err
		}
		return SkipTime(t), nil
	default:
		return SkipRule{}, fmt.Errorf("unknown skip type %q (supported: weekday, date, time)", fields[0])
	}
}

func parseWeekday(s string) (int, error) {
	d, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid weekday number %q", s)
	}
	if d < 1 || d > 7 {
		return 0, fmt.Errorf("weekday must be between 1 and 7, got %d", d)
	}
	return d, nil
}
