package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ClockTime is a wall-clock time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock parses "HH:MM" (24h).
func ParseClock(raw string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return ClockTime{}, invalid("time_of_day", "expected HH:MM, got %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, invalid("time_of_day", "invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 || len(parts[1]) != 2 {
		return ClockTime{}, invalid("time_of_day", "invalid minute in %q", raw)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// Pattern is a recurring task definition.
type Pattern struct {
	ID                   string
	Text                 string
	Rule                 Rule
	TimeOfDay            *ClockTime
	Tags                 []string
	Priority             Priority
	SourceTag            string
	Active               bool
	CreatedAt            time.Time
	LastMaterializedAt   *time.Time
	NextDue              *time.Time
	MaterializationCount int
}

func (p Pattern) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return required("id")
	}
	if strings.TrimSpace(p.Text) == "" {
		return required("text")
	}
	if err := ValidateRule(p.Rule); err != nil {
		return err
	}
	if p.Priority != "" && !p.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, p.Priority)
	}
	if p.CreatedAt.IsZero() {
		return required("created_at")
	}
	return nil
}

// Clone returns a deep copy safe to hand to readers.
func (p Pattern) Clone() Pattern {
	out := p
	out.Rule = cloneRule(p.Rule)
	out.Tags = cloneStrings(p.Tags)
	out.TimeOfDay = clonePtr(p.TimeOfDay)
	out.LastMaterializedAt = clonePtr(p.LastMaterializedAt)
	out.NextDue = clonePtr(p.NextDue)
	return out
}

func cloneRule(r Rule) Rule {
	if w, ok := r.(WeeklyRule); ok {
		w.Weekdays = append([]time.Weekday(nil), w.Weekdays...)
		return w
	}
	return r
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// NormalizeTags trims, drops empties and de-duplicates tags keeping order.
func NormalizeTags(tags []string) []string {
	trimmed := lo.FilterMap(tags, func(t string, _ int) (string, bool) {
		t = strings.TrimSpace(t)
		return t, t != ""
	})
	if len(trimmed) == 0 {
		return nil
	}
	return lo.Uniq(trimmed)
}

// NewRule builds a rule from its flat representation as stored on disk or
// given on the command line.
func NewRule(t RuleType, every int, weekdays []time.Weekday, dayOfMonth int, hook string) (Rule, error) {
	var r Rule
	switch t {
	case RuleDaily:
		r = DailyRule{Every: every}
	case RuleWeekly:
		r = WeeklyRule{Every: every, Weekdays: lo.Uniq(weekdays)}
	case RuleMonthly:
		r = MonthlyRule{Every: every, DayOfMonth: dayOfMonth}
	case RuleCustom:
		r = CustomRule{Every: every, Hook: hook}
	case "":
		return nil, required("rule_type")
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRuleType, t)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// RuleFields flattens a rule for storage.
func RuleFields(r Rule) (t RuleType, every int, weekdays []time.Weekday, dayOfMonth int, hook string) {
	switch v := r.(type) {
	case DailyRule:
		return RuleDaily, v.Interval(), nil, 0, ""
	case WeeklyRule:
		return RuleWeekly, v.Interval(), v.SortedWeekdays(), 0, ""
	case MonthlyRule:
		return RuleMonthly, v.Interval(), nil, v.DayOfMonth, ""
	case CustomRule:
		return RuleCustom, v.Interval(), nil, 0, v.Hook
	default:
		return "", 0, nil, 0, ""
	}
}

// RulesEqual reports whether two rules schedule identically.
func RulesEqual(a, b Rule) bool {
	at, ae, aw, ad, ah := RuleFields(a)
	bt, be, bw, bd, bh := RuleFields(b)
	if at != bt || ae != be || ad != bd || ah != bh || len(aw) != len(bw) {
		return false
	}
	for i := range aw {
		if aw[i] != bw[i] {
			return false
		}
	}
	return true
}

// ParseWeekdays parses "mon,wed,fri", "weekdays", "weekend" or ordinals
// "1,3,5" (Sunday=0).
func ParseWeekdays(raw string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, 7)
	for _, token := range strings.Split(strings.ToLower(raw), ",") {
		token = strings.TrimSpace(token)
		switch token {
		case "":
			continue
		case "weekdays", "weekday":
			out = append(out, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
		case "weekends", "weekend":
			out = append(out, time.Saturday, time.Sunday)
		case "sun", "sunday":
			out = append(out, time.Sunday)
		case "mon", "monday":
			out = append(out, time.Monday)
		case "tue", "tuesday":
			out = append(out, time.Tuesday)
		case "wed", "wednesday":
			out = append(out, time.Wednesday)
		case "thu", "thursday":
			out = append(out, time.Thursday)
		case "fri", "friday":
			out = append(out, time.Friday)
		case "sat", "saturday":
			out = append(out, time.Saturday)
		default:
			n, err := strconv.Atoi(token)
			if err != nil || n < 0 || n > 6 {
				return nil, invalid("days_of_week", "unknown weekday %q", token)
			}
			out = append(out, time.Weekday(n))
		}
	}
	return lo.Uniq(out), nil
}
