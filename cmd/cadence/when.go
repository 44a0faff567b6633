package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/cadence/internal/reminders"
)

var absoluteLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// parseWhen reads --at values: RFC3339, a local date and time, or a bare
// HH:MM that means the next such time from now.
func parseWhen(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	if clock, err := time.ParseInLocation("15:04", raw, loc); err == nil {
		local := now.In(loc)
		y, m, d := local.Date()
		t := time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc)
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot read time %q (want RFC3339, YYYY-MM-DD HH:MM or HH:MM)", raw)
}

// triggerTime resolves the mutually exclusive --at and --in flags.
func triggerTime(at, in string, now time.Time, loc *time.Location) (time.Time, error) {
	switch {
	case at != "" && in != "":
		return time.Time{}, fmt.Errorf("use either --at or --in, not both")
	case at != "":
		return parseWhen(at, now, loc)
	case in != "":
		t, ok := reminders.ResolvePreset(in, now, loc)
		if !ok {
			return time.Time{}, fmt.Errorf("cannot read offset %q (try 30min, 2h, 1d or %s)", in, strings.Join(reminders.Presets(), ", "))
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("one of --at or --in is required")
	}
}
