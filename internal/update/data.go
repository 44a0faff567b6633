package update

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/samber/lo"

	"github.com/sandeepkv93/cadence/internal/model"
	"github.com/sandeepkv93/cadence/internal/storage"
	"github.com/sandeepkv93/cadence/internal/views"
)

const shortIDLen = 8

// reload pulls fresh lists from the backend and rebuilds the tables.
func (m *Model) reload() {
	if m.backend == nil {
		return
	}
	tasks, err := m.backend.ListTasks(m.ctx, storage.TaskListFilter{State: model.TaskStatePlanned})
	if err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: fmt.Sprintf("load tasks: %v", err), IsError: true}
		tasks = nil
	}
	m.Tasks = lo.Filter(tasks, func(t model.Task, _ int) bool { return hasTag(t.Tags, m.Filter.Tag) })
	m.Reminders = lo.Filter(m.backend.UpcomingReminders(upcomingLimit), func(r model.Reminder, _ int) bool {
		return hasTag(r.Tags, m.Filter.Tag)
	})
	m.Patterns = lo.Filter(m.backend.ListPatterns(), func(p model.Pattern, _ int) bool {
		return hasTag(p.Tags, m.Filter.Tag)
	})
	m.syncTables()
}

func (m *Model) syncTables() {
	m.taskTable.SetRows(lo.Map(m.Tasks, func(t model.Task, _ int) table.Row {
		return table.Row{shortID(t.ID), m.formatTimePtr(t.DueAt), string(t.Priority), t.Title}
	}))
	m.reminderTable.SetRows(lo.Map(m.Reminders, func(r model.Reminder, _ int) table.Row {
		return table.Row{shortID(r.ID), m.formatTime(r.TriggerAt), string(r.Kind), r.Text}
	}))
	m.patternTable.SetRows(lo.Map(m.Patterns, func(p model.Pattern, _ int) table.Row {
		next := m.formatTimePtr(p.NextDue)
		if !p.Active {
			next = "paused"
		}
		return table.Row{shortID(p.ID), describeRule(p.Rule), next, p.Text}
	}))
}

func (m *Model) currentTable() *table.Model {
	switch m.CurrentView {
	case ViewReminders:
		return &m.reminderTable
	case ViewPatterns:
		return &m.patternTable
	default:
		return &m.taskTable
	}
}

func (m Model) selectedTask() (model.Task, bool) {
	i := m.taskTable.Cursor()
	if i < 0 || i >= len(m.Tasks) {
		return model.Task{}, false
	}
	return m.Tasks[i], true
}

func (m Model) selectedReminder() (model.Reminder, bool) {
	i := m.reminderTable.Cursor()
	if i < 0 || i >= len(m.Reminders) {
		return model.Reminder{}, false
	}
	return m.Reminders[i], true
}

func (m Model) selectedPattern() (model.Pattern, bool) {
	i := m.patternTable.Cursor()
	if i < 0 || i >= len(m.Patterns) {
		return model.Pattern{}, false
	}
	return m.Patterns[i], true
}

func (m Model) taskIDs() []string {
	return lo.Map(m.Tasks, func(t model.Task, _ int) string { return t.ID })
}

func (m Model) reminderIDs() []string {
	return lo.Map(m.Reminders, func(r model.Reminder, _ int) string { return r.ID })
}

func (m Model) patternIDs() []string {
	return lo.Map(m.Patterns, func(p model.Pattern, _ int) string { return p.ID })
}

// subjectIDs lists every id a snooze could target: tasks and the subjects of
// pending reminders.
func (m Model) subjectIDs() []string {
	subjects := lo.Map(m.Reminders, func(r model.Reminder, _ int) string { return r.SubjectID })
	return lo.Uniq(append(m.taskIDs(), subjects...))
}

func (m Model) detail() views.DetailData {
	switch m.CurrentView {
	case ViewReminders:
		r, ok := m.selectedReminder()
		if !ok {
			return views.DetailData{}
		}
		return views.DetailData{Kind: "reminder", ID: r.ID, Text: r.Text, Fields: []views.DetailField{
			{Label: "Fires", Value: m.formatTime(r.TriggerAt)},
			{Label: "Kind", Value: string(r.Kind)},
			{Label: "Priority", Value: string(r.Priority)},
			{Label: "Subject", Value: r.SubjectID},
			{Label: "Snoozed", Value: countLabel(r.SnoozeCount)},
			{Label: "Tags", Value: strings.Join(r.Tags, ", ")},
		}}
	case ViewPatterns:
		p, ok := m.selectedPattern()
		if !ok {
			return views.DetailData{}
		}
		state := "active"
		if !p.Active {
			state = "paused"
		}
		clock := ""
		if p.TimeOfDay != nil {
			clock = p.TimeOfDay.String()
		}
		return views.DetailData{Kind: "pattern", ID: p.ID, Text: p.Text, Fields: []views.DetailField{
			{Label: "Rule", Value: describeRule(p.Rule)},
			{Label: "At", Value: clock},
			{Label: "State", Value: state},
			{Label: "Next", Value: m.formatTimePtr(p.NextDue)},
			{Label: "Generated", Value: countLabel(p.MaterializationCount)},
			{Label: "Priority", Value: string(p.Priority)},
			{Label: "Tags", Value: strings.Join(p.Tags, ", ")},
		}}
	default:
		t, ok := m.selectedTask()
		if !ok {
			return views.DetailData{}
		}
		return views.DetailData{Kind: "task", ID: t.ID, Text: t.Title, Fields: []views.DetailField{
			{Label: "Due", Value: m.formatTimePtr(t.DueAt)},
			{Label: "Priority", Value: string(t.Priority)},
			{Label: "Pattern", Value: t.PatternID},
			{Label: "Tags", Value: strings.Join(t.Tags, ", ")},
		}}
	}
}

func describeRule(r model.Rule) string {
	typ, every, weekdays, dom, hook := model.RuleFields(r)
	out := string(typ)
	if every > 1 {
		out = fmt.Sprintf("%s/%d", typ, every)
	}
	switch typ {
	case model.RuleWeekly:
		if len(weekdays) > 0 {
			out += " " + strings.Join(lo.Map(weekdays, func(d time.Weekday, _ int) string { return d.String()[:3] }), ",")
		}
	case model.RuleMonthly:
		if dom > 0 {
			out += " d" + strconv.Itoa(dom)
		}
	case model.RuleCustom:
		out += " " + hook
	}
	return out
}

func (m Model) formatTime(t time.Time) string {
	return t.In(m.loc).Format("Mon Jan 2 15:04")
}

func (m Model) formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return m.formatTime(*t)
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func countLabel(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%dx", n)
}

func hasTag(tags []string, tag string) bool {
	if tag == "" {
		return true
	}
	return lo.ContainsBy(tags, func(t string) bool { return strings.EqualFold(t, tag) })
}
