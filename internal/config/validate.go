package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chimekit/chime"
)

// maxOffsetMinutes mirrors the scheduler's fixed-offset bound.
const maxOffsetMinutes = 14 * 60

// Validate rejects configs that could never run: unknown history drivers,
// unresolvable timezones, malformed durations and bad task declarations.
// Schedule descriptors are parsed here, so a typo fails the load instead of
// surfacing after a config swap.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	if _, _, err := ResolveTimezone(c.Timezone); err != nil {
		return err
	}

	if h := c.History; h != nil {
		driver := strings.ToLower(strings.TrimSpace(h.Driver))
		switch driver {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(h.Path) == "" {
				return fmt.Errorf("history.path is required for driver %q", driver)
			}
		default:
			return fmt.Errorf("history.driver: unknown driver %q", h.Driver)
		}
		if _, err := ParseDurationField("history.busy_timeout", h.BusyTimeout); err != nil {
			return err
		}
		if h.Keep < 0 {
			return fmt.Errorf("history.keep must be >= 0")
		}
	}

	seen := make(map[string]struct{}, len(c.Tasks))
	for i, t := range c.Tasks {
		path := fmt.Sprintf("tasks[%d]", i)
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return fmt.Errorf("%s.name is required", path)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%s.name: duplicate task name %q", path, name)
		}
		seen[name] = struct{}{}

		if _, err := chime.Parse(t.Schedule); err != nil {
			return fmt.Errorf("%s.schedule: %w", path, err)
		}
		if len(t.Command) == 0 || strings.TrimSpace(t.Command[0]) == "" {
			return fmt.Errorf("%s.command is required", path)
		}
		if _, err := ParseDurationField(path+".timeout", t.Timeout); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(t.Overlap)) {
		case "", "allow", "skip":
		default:
			return fmt.Errorf("%s.overlap must be \"allow\" or \"skip\", got %q", path, t.Overlap)
		}
	}
	return nil
}

// ResolveTimezone maps the timezone field to a location. ok is false when
// the field is empty and the scheduler default applies.
func ResolveTimezone(s string) (loc *time.Location, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false, nil
	}
	if min, perr := strconv.Atoi(s); perr == nil {
		if min < -maxOffsetMinutes || min > maxOffsetMinutes {
			return nil, false, fmt.Errorf("timezone: offset %d out of range", min)
		}
		return time.FixedZone(offsetName(min), min*60), true, nil
	}
	loc, lerr := time.LoadLocation(s)
	if lerr != nil {
		return nil, false, fmt.Errorf("timezone: %w", lerr)
	}
	return loc, true, nil
}

func offsetName(min int) string {
	if min == 0 {
		return "UTC"
	}
	sign := "+"
	if min < 0 {
		sign = "-"
		min = -min
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, min/60, min%60)
}
