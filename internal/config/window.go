package config

import (
	"fmt"
	"time"

	"oncall-sync/internal/domain"
)

const dateLayout = "2006-01-02"

// ParseStart parses a start boundary that may be RFC3339 or YYYY-MM-DD.
// Date-only values mean midnight in loc. If empty, defaultVal is returned.
func ParseStart(val string, defaultVal time.Time, loc *time.Location) (time.Time, error) {
	if val == "" {
		return defaultVal, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation(dateLayout, val, loc); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("invalid start %q, expected RFC3339 or YYYY-MM-DD", val)
}

// ParseEnd parses an end boundary that may be RFC3339 or YYYY-MM-DD.
// Date-only form is inclusive: it resolves to the last instant of that day
// in loc. If empty, defaultVal is returned.
func ParseEnd(val string, defaultVal time.Time, loc *time.Location) (time.Time, error) {
	if val == "" {
		return defaultVal, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation(dateLayout, val, loc); err == nil {
		return endOfDay(d), nil
	}
	return time.Time{}, fmt.Errorf("invalid end %q, expected RFC3339 or YYYY-MM-DD", val)
}

// DefaultWindow runs from the start of now's month to the end of today, in loc.
func DefaultWindow(now time.Time, loc *time.Location) domain.Window {
	local := now.In(loc)
	y, m, _ := local.Date()
	return domain.Window{
		Since: time.Date(y, m, 1, 0, 0, 0, 0, loc),
		Until: endOfDay(local),
	}
}

// ResolveWindow applies the since/until overrides to the default window.
func ResolveWindow(since, until string, now time.Time, loc *time.Location) (domain.Window, error) {
	def := DefaultWindow(now, loc)
	from, err := ParseStart(since, def.Since, loc)
	if err != nil {
		return domain.Window{}, err
	}
	to, err := ParseEnd(until, def.Until, loc)
	if err != nil {
		return domain.Window{}, err
	}
	if !from.Before(to) {
		return domain.Window{}, fmt.Errorf("since %s must be before until %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return domain.Window{Since: from, Until: to}, nil
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Millisecond), t.Location())
}
