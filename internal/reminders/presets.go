package reminders

import (
	"strings"
	"time"

	"github.com/sandeepkv93/cadence/internal/model"
)

const (
	PresetTomorrow9am = "tomorrow9am"
	PresetNextWeek    = "nextweek"

	fallbackSnooze = time.Hour
	morningHour    = 9
)

var fixedPresets = map[string]time.Duration{
	"10min": 10 * time.Minute,
	"30min": 30 * time.Minute,
	"1h":    time.Hour,
	"3h":    3 * time.Hour,
	"1day":  24 * time.Hour,
}

// Presets lists the named snooze presets in menu order.
func Presets() []string {
	return []string{"10min", "30min", "1h", "3h", "1day", PresetTomorrow9am, PresetNextWeek}
}

// ResolvePreset maps a snooze preset to a trigger time in loc. Custom
// offsets such as "+45min" go through model.ParseOffset. The second result
// is false when the preset is not understood.
func ResolvePreset(preset string, now time.Time, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	key := strings.ToLower(strings.TrimSpace(preset))
	if d, ok := fixedPresets[key]; ok {
		return now.Add(d), true
	}
	local := now.In(loc)
	switch key {
	case PresetTomorrow9am:
		y, m, d := local.Date()
		return time.Date(y, m, d+1, morningHour, 0, 0, 0, loc), true
	case PresetNextWeek:
		y, m, d := local.Date()
		return time.Date(y, m, d+7, morningHour, 0, 0, 0, loc), true
	}
	offset, err := model.ParseOffset(key)
	if err != nil {
		return time.Time{}, false
	}
	return now.Add(offset), true
}

// ResolvePreset resolves preset in the store's zone.
func (s *Store) ResolvePreset(preset string, now time.Time) (time.Time, bool) {
	return ResolvePreset(preset, now, s.loc)
}
