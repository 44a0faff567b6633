package update

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/cadence/internal/eventbus"
	"github.com/sandeepkv93/cadence/internal/model"
	"github.com/sandeepkv93/cadence/internal/scheduler"
	"github.com/sandeepkv93/cadence/internal/storage"
)

var testNow = time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)

type fakeBackend struct {
	tasks     []model.Task
	reminders []model.Reminder
	patterns  []model.Pattern
	snoozed   []string
	cancelled []string
	completed []string
}

func (f *fakeBackend) ListTasks(_ context.Context, filter storage.TaskListFilter) ([]model.Task, error) {
	out := []model.Task{}
	for _, t := range f.tasks {
		if filter.State != "" && t.State != filter.State {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeBackend) CompleteTask(_ context.Context, id string) (model.Task, *model.Task, error) {
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].State = model.TaskStateDone
			f.completed = append(f.completed, id)
			due := testNow.Add(24 * time.Hour)
			next := model.Task{ID: id + "-next", Title: f.tasks[i].Title, State: model.TaskStatePlanned, Priority: model.PriorityMedium, DueAt: &due}
			f.tasks = append(f.tasks, next)
			return f.tasks[i], &next, nil
		}
	}
	return model.Task{}, nil, fmt.Errorf("%w: task %q", model.ErrNotFound, id)
}

func (f *fakeBackend) ListPatterns() []model.Pattern { return f.patterns }

func (f *fakeBackend) setActive(id string, active bool) (model.Pattern, error) {
	for i := range f.patterns {
		if f.patterns[i].ID == id {
			f.patterns[i].Active = active
			return f.patterns[i], nil
		}
	}
	return model.Pattern{}, fmt.Errorf("%w: pattern %q", model.ErrNotFound, id)
}

func (f *fakeBackend) PausePattern(_ context.Context, id string) (model.Pattern, error) {
	return f.setActive(id, false)
}

func (f *fakeBackend) ResumePattern(_ context.Context, id string) (model.Pattern, error) {
	return f.setActive(id, true)
}

func (f *fakeBackend) UpcomingReminders(int) []model.Reminder { return f.reminders }

func (f *fakeBackend) Snooze(_ context.Context, subjectID, preset string) (model.Reminder, error) {
	f.snoozed = append(f.snoozed, subjectID+"@"+preset)
	return model.Reminder{ID: "rem-new", SubjectID: subjectID, TriggerAt: testNow.Add(10 * time.Minute), Kind: model.ReminderSnoozed}, nil
}

func (f *fakeBackend) CancelReminder(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

type fakeChecker struct {
	reminderCalls int
	patternCalls  int
}

func (c *fakeChecker) CheckReminders(context.Context, time.Time) scheduler.ReminderTick {
	c.reminderCalls++
	return scheduler.ReminderTick{Fired: 2, Purged: 1}
}

func (c *fakeChecker) CheckPatterns(context.Context, time.Time) (int, error) {
	c.patternCalls++
	return 3, nil
}

func newTestBackend() *fakeBackend {
	due := testNow.Add(time.Hour)
	next := testNow.Add(24 * time.Hour)
	return &fakeBackend{
		tasks: []model.Task{
			{ID: "3f1c9a2e-aaaa", Title: "Water plants", State: model.TaskStatePlanned, Priority: model.PriorityMedium, DueAt: &due, Tags: []string{"home"}},
			{ID: "7b22d410-bbbb", Title: "File taxes", State: model.TaskStatePlanned, Priority: model.PriorityHigh, Tags: []string{"finance"}},
			{ID: "done-1", Title: "Old", State: model.TaskStateDone},
		},
		reminders: []model.Reminder{
			{ID: "rem-1", SubjectID: "7b22d410-bbbb", Text: "File taxes", TriggerAt: due, Kind: model.ReminderManual, Tags: []string{"finance"}},
		},
		patterns: []model.Pattern{
			{ID: "pat-1", Text: "Water plants", Rule: model.DailyRule{Every: 1}, Active: true, NextDue: &next, Tags: []string{"home"}},
		},
	}
}

func newTestModel(b *fakeBackend, c Checker) Model {
	return NewModel(Options{Backend: b, Checker: c, Location: time.UTC, Now: func() time.Time { return testNow }})
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func typeCommand(t *testing.T, m Model, cmd string) Model {
	t.Helper()
	m = press(t, m, keyPress("/"))
	if !m.Palette.Active {
		t.Fatal("expected palette to open")
	}
	m = press(t, m, keyPress(cmd), tea.KeyMsg{Type: tea.KeyEnter})
	if m.Palette.Active {
		t.Fatal("expected palette to close after enter")
	}
	return m
}

func TestNewModelDefaults(t *testing.T) {
	m := newTestModel(newTestBackend(), nil)
	if m.CurrentView != ViewTasks {
		t.Fatalf("expected default view %q, got %q", ViewTasks, m.CurrentView)
	}
	if m.Keys.Quit != "q" {
		t.Fatalf("expected quit key q, got %q", m.Keys.Quit)
	}
	if len(m.Tasks) != 2 {
		t.Fatalf("expected only open tasks, got %d", len(m.Tasks))
	}
	if len(m.Reminders) != 1 || len(m.Patterns) != 1 {
		t.Fatalf("unexpected lists: reminders=%d patterns=%d", len(m.Reminders), len(m.Patterns))
	}
}

func TestUpdateKeySwitchesView(t *testing.T) {
	m := newTestModel(newTestBackend(), nil)
	m = press(t, m, keyPress("2"))
	if m.CurrentView != ViewReminders {
		t.Fatalf("expected reminders view, got %q", m.CurrentView)
	}
	m = press(t, m, keyPress("3"))
	if m.CurrentView != ViewPatterns {
		t.Fatalf("expected patterns view, got %q", m.CurrentView)
	}
	m = press(t, m, SwitchViewMsg{View: View("Unknown")})
	if m.CurrentView != ViewPatterns {
		t.Fatalf("expected view unchanged for unknown view, got %q", m.CurrentView)
	}
}

func TestUpdateStatusAndError(t *testing.T) {
	m := newTestModel(newTestBackend(), nil)
	m = press(t, m, SetStatusMsg{Text: "ready"})
	if m.Status.Text != "ready" || m.Status.IsError {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	m = press(t, m, AppErrorMsg{Err: errors.New("boom")})
	if !m.Status.IsError || m.LastError == nil {
		t.Fatalf("expected error status, got %+v", m.Status)
	}
	m = press(t, m, ClearStatusMsg{})
	if m.Status.Text != "" {
		t.Fatalf("expected cleared status, got %+v", m.Status)
	}
}

func TestPaletteDoneCompletesTaskByPrefix(t *testing.T) {
	b := newTestBackend()
	m := newTestModel(b, nil)
	m = typeCommand(t, m, "done 3f1c")

	if len(b.completed) != 1 || b.completed[0] != "3f1c9a2e-aaaa" {
		t.Fatalf("expected prefix to resolve to full id, got %v", b.completed)
	}
	if m.Status.IsError || !strings.Contains(m.Status.Text, "next due") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	if len(m.Tasks) != 2 {
		t.Fatalf("expected reload to drop done task and add next, got %d tasks", len(m.Tasks))
	}
}

func TestPaletteErrorsSetErrorStatus(t *testing.T) {
	m := newTestModel(newTestBackend(), nil)

	m = typeCommand(t, m, "frobnicate now")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "unknown_command") {
		t.Fatalf("expected unknown command error, got %+v", m.Status)
	}

	m = typeCommand(t, m, "pause nope")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "not found") {
		t.Fatalf("expected not found error, got %+v", m.Status)
	}

	m = typeCommand(t, m, "check")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "no scheduler") {
		t.Fatalf("expected missing scheduler error, got %+v", m.Status)
	}
}

func TestPaletteSnoozeAndCheck(t *testing.T) {
	b := newTestBackend()
	c := &fakeChecker{}
	m := newTestModel(b, c)

	m = typeCommand(t, m, "snooze 7b22 tomorrow9am")
	if len(b.snoozed) != 1 || b.snoozed[0] != "7b22d410-bbbb@tomorrow9am" {
		t.Fatalf("unexpected snooze calls: %v", b.snoozed)
	}

	m = typeCommand(t, m, "check reminders")
	if c.reminderCalls != 1 || c.patternCalls != 0 {
		t.Fatalf("unexpected check calls: %+v", c)
	}
	if !strings.Contains(m.Status.Text, "2 reminder(s) fired") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}

	m = press(t, m, keyPress("c"))
	if c.reminderCalls != 2 || c.patternCalls != 1 {
		t.Fatalf("check key should poll both loops: %+v", c)
	}
}

func TestPaletteShowAppliesFilter(t *testing.T) {
	m := newTestModel(newTestBackend(), nil)
	m = typeCommand(t, m, "show tasks tag:finance")
	if m.CurrentView != ViewTasks || m.Filter.Tag != "finance" {
		t.Fatalf("unexpected view/filter: %s %+v", m.CurrentView, m.Filter)
	}
	if len(m.Tasks) != 1 || m.Tasks[0].Title != "File taxes" {
		t.Fatalf("expected filtered tasks, got %+v", m.Tasks)
	}

	m = typeCommand(t, m, "show patterns")
	if m.CurrentView != ViewPatterns || m.Filter.Tag != "" {
		t.Fatalf("expected cleared filter on patterns view: %s %+v", m.CurrentView, m.Filter)
	}
}

func TestViewKeysActOnSelection(t *testing.T) {
	b := newTestBackend()
	m := newTestModel(b, nil)

	m = press(t, m, keyPress("3"), keyPress("p"))
	if b.patterns[0].Active {
		t.Fatal("expected selected pattern to be paused")
	}
	m = press(t, m, keyPress("p"))
	if !b.patterns[0].Active {
		t.Fatal("expected selected pattern to be resumed")
	}

	m = press(t, m, keyPress("2"), keyPress("x"))
	if len(b.cancelled) != 1 || b.cancelled[0] != "rem-1" {
		t.Fatalf("unexpected cancels: %v", b.cancelled)
	}
	_ = m
}

func TestFallbackEventAddsNotice(t *testing.T) {
	m := newTestModel(newTestBackend(), nil)
	m = press(t, m, EventMsg{Event: eventbus.Event{
		Topic: eventbus.NotificationFallback,
		Time:  testNow,
		Data:  eventbus.Notice{ReminderID: "rem-1", Title: "Reminder", Body: "File taxes", Reason: "disabled"},
	}})
	if len(m.Notices) != 1 || m.Notices[0].Body != "File taxes" {
		t.Fatalf("expected notice, got %+v", m.Notices)
	}
	if !strings.Contains(m.View(), "File taxes") {
		t.Fatal("expected notice in rendered view")
	}

	for i := 0; i < maxNotices+5; i++ {
		m = press(t, m, EventMsg{Event: eventbus.Event{Topic: eventbus.NotificationFallback, Time: testNow, Data: eventbus.Notice{Title: "n"}}})
	}
	if len(m.Notices) != maxNotices {
		t.Fatalf("expected notices capped at %d, got %d", maxNotices, len(m.Notices))
	}
}

func TestEventReloadsLists(t *testing.T) {
	b := newTestBackend()
	m := newTestModel(b, nil)
	b.reminders = append(b.reminders, model.Reminder{ID: "rem-2", SubjectID: "x", Text: "New", TriggerAt: testNow, Kind: model.ReminderManual})

	m = press(t, m, EventMsg{Event: eventbus.Event{Topic: eventbus.ReminderCreated, Time: testNow}})
	if len(m.Reminders) != 2 {
		t.Fatalf("expected reload after event, got %d reminders", len(m.Reminders))
	}
}

func TestWaitForEventCmd(t *testing.T) {
	if waitForEventCmd(nil) != nil {
		t.Fatal("expected nil cmd without a channel")
	}
	ch := make(chan eventbus.Event, 1)
	ch <- eventbus.Event{Topic: eventbus.TaskGenerated}
	msg := waitForEventCmd(ch)()
	if ev, ok := msg.(EventMsg); !ok || ev.Event.Topic != eventbus.TaskGenerated {
		t.Fatalf("unexpected msg: %#v", msg)
	}
	close(ch)
	if _, ok := waitForEventCmd(ch)().(eventsClosedMsg); !ok {
		t.Fatal("expected closed msg")
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(newTestBackend(), nil)
	updated, cmd := m.Update(keyPress("q"))
	if !updated.(Model).Quitting || cmd == nil {
		t.Fatal("expected quit")
	}
}
