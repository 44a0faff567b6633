package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

type RuleType string

const (
	RuleDaily   RuleType = "daily"
	RuleWeekly  RuleType = "weekly"
	RuleMonthly RuleType = "monthly"
	RuleCustom  RuleType = "custom"
)

func (t RuleType) IsValid() bool {
	switch t {
	case RuleDaily, RuleWeekly, RuleMonthly, RuleCustom:
		return true
	default:
		return false
	}
}

var (
	ErrInvalidRuleType   = errors.New("model: invalid recurrence rule type")
	ErrCustomHookMissing = errors.New("model: custom recurrence hook not registered")
)

// Rule is the recurrence rule of a pattern. The set of implementations is
// closed: DailyRule, WeeklyRule, MonthlyRule and CustomRule.
type Rule interface {
	Type() RuleType
	Interval() int
	validate() error
}

// DailyRule repeats every N days.
type DailyRule struct {
	Every int
}

// WeeklyRule repeats every N weeks, optionally on a set of weekdays.
type WeeklyRule struct {
	Every    int
	Weekdays []time.Weekday
}

// MonthlyRule repeats every N months on DayOfMonth, clamped to the month's
// length. A zero DayOfMonth keeps the day of the base date.
type MonthlyRule struct {
	Every      int
	DayOfMonth int
}

// CustomRule delegates to a hook registered on the Calculator under Hook.
type CustomRule struct {
	Hook  string
	Every int
}

func (DailyRule) Type() RuleType   { return RuleDaily }
func (WeeklyRule) Type() RuleType  { return RuleWeekly }
func (MonthlyRule) Type() RuleType { return RuleMonthly }
func (CustomRule) Type() RuleType  { return RuleCustom }

func (r DailyRule) Interval() int   { return normalizeEvery(r.Every) }
func (r WeeklyRule) Interval() int  { return normalizeEvery(r.Every) }
func (r MonthlyRule) Interval() int { return normalizeEvery(r.Every) }
func (r CustomRule) Interval() int  { return normalizeEvery(r.Every) }

func (r DailyRule) validate() error { return validateEvery(r.Every) }

func (r WeeklyRule) validate() error {
	if err := validateEvery(r.Every); err != nil {
		return err
	}
	s := make([]int, 0, len(r.Weekdays))
	for _, d := range r.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return invalid("days_of_week", "contains out of range weekday %d", int(d))
		}
		s = append(s, int(d))
	}
	sort.Ints(s)
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			return invalid("days_of_week", "contains duplicate weekday %d", s[i])
		}
	}
	return nil
}

func (r MonthlyRule) validate() error {
	if err := validateEvery(r.Every); err != nil {
		return err
	}
	if r.DayOfMonth < 0 || r.DayOfMonth > 31 {
		return invalid("day_of_month", "must be between 1 and 31, got %d", r.DayOfMonth)
	}
	return nil
}

func (r CustomRule) validate() error {
	if r.Hook == "" {
		return required("custom_hook")
	}
	return validateEvery(r.Every)
}

func normalizeEvery(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func validateEvery(n int) error {
	if n < 0 {
		return invalid("frequency", "must be positive, got %d", n)
	}
	return nil
}

// SortedWeekdays returns the rule's weekdays in ascending order.
func (r WeeklyRule) SortedWeekdays() []time.Weekday {
	out := append([]time.Weekday(nil), r.Weekdays...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ValidateRule checks a rule in isolation.
func ValidateRule(r Rule) error {
	if r == nil {
		return required("rule_type")
	}
	return r.validate()
}

// CustomHook computes the next occurrence day for a custom rule. The
// calculator applies the pattern's time of day to the result.
type CustomHook func(p Pattern, from time.Time) (time.Time, error)

// Calculator computes next occurrences. The zero value uses time.Local and
// has no custom hooks.
type Calculator struct {
	Location *time.Location
	Hooks    map[string]CustomHook
}

func (c Calculator) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// StartOfDay returns midnight of t's calendar day in the calculator's zone.
func (c Calculator) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.location())
}

// In converts t to the calculator's zone.
func (c Calculator) In(t time.Time) time.Time {
	return t.In(c.location())
}

// NextOccurrence returns the occurrence that follows from. When advancing a
// pattern after materialization, from is the previous NextDue so the cadence
// stays fixed regardless of when the poll ran.
func (c Calculator) NextOccurrence(p Pattern, from time.Time) (time.Time, error) {
	if err := ValidateRule(p.Rule); err != nil {
		return time.Time{}, err
	}
	base := from.In(c.location())

	var day time.Time
	switch r := p.Rule.(type) {
	case DailyRule:
		day = base.AddDate(0, 0, r.Interval())
	case WeeklyRule:
		day = nextWeekly(base, r)
	case MonthlyRule:
		day = nextMonthly(base, r)
	case CustomRule:
		hook := c.Hooks[r.Hook]
		if hook == nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrCustomHookMissing, r.Hook)
		}
		next, err := hook(p.Clone(), base)
		if err != nil {
			return time.Time{}, fmt.Errorf("custom hook %q: %w", r.Hook, err)
		}
		day = next.In(c.location())
	default:
		return time.Time{}, fmt.Errorf("%w: %T", ErrInvalidRuleType, p.Rule)
	}
	return withClock(day, p.TimeOfDay), nil
}

// Preview lists the next count occurrences after from.
func (c Calculator) Preview(p Pattern, from time.Time, count int) ([]time.Time, error) {
	if count <= 0 {
		return []time.Time{}, nil
	}
	out := make([]time.Time, 0, count)
	cursor := from
	for i := 0; i < count; i++ {
		next, err := c.NextOccurrence(p, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		cursor = next
	}
	return out, nil
}

func nextWeekly(base time.Time, r WeeklyRule) time.Time {
	every := r.Interval()
	days := r.SortedWeekdays()
	if len(days) == 0 {
		return base.AddDate(0, 0, 7*every)
	}
	cur := base.Weekday()
	for _, d := range days {
		if d > cur {
			return base.AddDate(0, 0, int(d-cur))
		}
	}
	ahead := (7 - int(cur)) + int(days[0]) + 7*(every-1)
	return base.AddDate(0, 0, ahead)
}

func nextMonthly(base time.Time, r MonthlyRule) time.Time {
	loc := base.Location()
	first := time.Date(base.Year(), base.Month()+time.Month(r.Interval()), 1, base.Hour(), base.Minute(), base.Second(), 0, loc)
	dom := r.DayOfMonth
	if dom == 0 {
		dom = base.Day()
	}
	if last := DaysInMonth(first.Year(), first.Month()); dom > last {
		dom = last
	}
	return time.Date(first.Year(), first.Month(), dom, base.Hour(), base.Minute(), base.Second(), 0, loc)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func withClock(day time.Time, clock *ClockTime) time.Time {
	y, m, d := day.Date()
	if clock == nil {
		return time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	}
	return time.Date(y, m, d, clock.Hour, clock.Minute, 0, 0, day.Location())
}
