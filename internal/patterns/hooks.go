package patterns

import (
	"time"

	"github.com/sandeepkv93/cadence/internal/model"
)

const (
	HookBusinessDays = "business-days"
	HookMonthEnd     = "month-end"
)

// BuiltinHooks returns the custom recurrence hooks available by name to
// every pattern.
func BuiltinHooks() map[string]model.CustomHook {
	return map[string]model.CustomHook{
		HookBusinessDays: nextBusinessDay,
		HookMonthEnd:     nextMonthEnd,
	}
}

// nextBusinessDay steps Interval() weekdays forward, skipping weekends.
func nextBusinessDay(p model.Pattern, from time.Time) (time.Time, error) {
	day := from
	for n := p.Rule.Interval(); n > 0; {
		day = day.AddDate(0, 0, 1)
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return day, nil
}

// nextMonthEnd returns the next last-day-of-month strictly after from's
// date, stepping Interval() months once from's own month end has passed.
func nextMonthEnd(p model.Pattern, from time.Time) (time.Time, error) {
	y, m, d := from.Date()
	last := model.DaysInMonth(y, m)
	if d < last {
		return time.Date(y, m, last, 0, 0, 0, 0, from.Location()), nil
	}
	target := time.Date(y, m+time.Month(p.Rule.Interval()), 1, 0, 0, 0, 0, from.Location())
	return time.Date(target.Year(), target.Month(), model.DaysInMonth(target.Year(), target.Month()), 0, 0, 0, 0, from.Location()), nil
}
