package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/cadence/internal/model"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cadence-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func parseRFC3339(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return out
}

func TestTaskCRUDAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-02-09T12:00:00Z")
	due := parseRFC3339(t, "2026-02-10T09:00:00Z")

	task := model.Task{
		ID:        "task-1",
		PatternID: "pat-1",
		Title:     "Water plants",
		State:     model.TaskStatePlanned,
		Priority:  model.PriorityHigh,
		Tags:      []string{"home"},
		DueAt:     &due,
		CreatedAt: created,
	}
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := repo.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != task.Title || got.State != model.TaskStatePlanned || got.DueAt == nil || !got.DueAt.Equal(due) {
		t.Fatalf("unexpected task get result: %#v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "home" {
		t.Fatalf("tags did not round-trip: %#v", got.Tags)
	}

	completed := created.Add(time.Hour)
	task.State = model.TaskStateDone
	task.CompletedAt = &completed
	if err := repo.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update task: %v", err)
	}

	done, err := repo.ListTasks(ctx, TaskListFilter{State: model.TaskStateDone})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(done) != 1 || done[0].ID != task.ID || done[0].CompletedAt == nil {
		t.Fatalf("unexpected done list: %#v", done)
	}

	byPattern, err := repo.ListTasks(ctx, TaskListFilter{PatternID: "other"})
	if err != nil {
		t.Fatalf("list by pattern: %v", err)
	}
	if len(byPattern) != 0 {
		t.Fatalf("expected no tasks for unknown pattern, got %d", len(byPattern))
	}

	if err := repo.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if _, err := repo.GetTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.UpdateTask(ctx, task); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update of missing task, got %v", err)
	}
}

func TestListTasksPagination(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := parseRFC3339(t, "2026-02-09T08:00:00Z")

	for i, id := range []string{"a", "b", "c"} {
		due := base.Add(time.Duration(i) * time.Hour)
		if err := repo.CreateTask(ctx, model.Task{
			ID:        id,
			Title:     "task " + id,
			State:     model.TaskStatePlanned,
			Priority:  model.PriorityMedium,
			DueAt:     &due,
			CreatedAt: base,
		}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	page, err := repo.ListTasks(ctx, TaskListFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 || page[0].ID != "b" {
		t.Fatalf("unexpected page: %#v", page)
	}

	tail, err := repo.ListTasks(ctx, TaskListFilter{Offset: 2})
	if err != nil {
		t.Fatalf("list tail: %v", err)
	}
	if len(tail) != 1 || tail[0].ID != "c" {
		t.Fatalf("unexpected tail: %#v", tail)
	}
}

func TestPatternsSaveAndLoad(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-02-09T12:00:00Z")
	next := parseRFC3339(t, "2026-02-11T09:30:00Z")
	clock := model.ClockTime{Hour: 9, Minute: 30}

	items := []model.Pattern{
		{
			ID:        "p-weekly",
			Text:      "Standup notes",
			Rule:      model.WeeklyRule{Every: 1, Weekdays: []time.Weekday{time.Friday, time.Monday}},
			TimeOfDay: &clock,
			Tags:      []string{"work", "team"},
			Priority:  model.PriorityHigh,
			SourceTag: "#standup",
			Active:    true,
			CreatedAt: created,
			NextDue:   &next,
		},
		{
			ID:                   "p-monthly",
			Text:                 "Pay rent",
			Rule:                 model.MonthlyRule{Every: 1, DayOfMonth: 31},
			Priority:             model.PriorityCritical,
			Active:               false,
			CreatedAt:            created.Add(time.Minute),
			LastMaterializedAt:   &created,
			MaterializationCount: 4,
		},
	}
	if err := repo.SavePatterns(ctx, items); err != nil {
		t.Fatalf("save patterns: %v", err)
	}

	got, err := repo.LoadPatterns(ctx)
	if err != nil {
		t.Fatalf("load patterns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(got))
	}

	weekly := got[0]
	if weekly.ID != "p-weekly" || !weekly.Active || weekly.SourceTag != "#standup" {
		t.Fatalf("unexpected weekly pattern: %#v", weekly)
	}
	rule, ok := weekly.Rule.(model.WeeklyRule)
	if !ok {
		t.Fatalf("expected weekly rule, got %T", weekly.Rule)
	}
	if len(rule.Weekdays) != 2 || rule.Weekdays[0] != time.Monday || rule.Weekdays[1] != time.Friday {
		t.Fatalf("weekdays did not round-trip sorted: %v", rule.Weekdays)
	}
	if weekly.TimeOfDay == nil || *weekly.TimeOfDay != clock {
		t.Fatalf("time of day did not round-trip: %v", weekly.TimeOfDay)
	}
	if weekly.NextDue == nil || !weekly.NextDue.Equal(next) {
		t.Fatalf("next due did not round-trip: %v", weekly.NextDue)
	}

	monthly := got[1]
	if monthly.Active || monthly.MaterializationCount != 4 || monthly.LastMaterializedAt == nil {
		t.Fatalf("unexpected monthly pattern: %#v", monthly)
	}
	if !model.RulesEqual(monthly.Rule, items[1].Rule) {
		t.Fatalf("monthly rule mismatch: %#v", monthly.Rule)
	}

	if err := repo.SavePatterns(ctx, items[:1]); err != nil {
		t.Fatalf("save shrunk list: %v", err)
	}
	got, err = repo.LoadPatterns(ctx)
	if err != nil {
		t.Fatalf("reload patterns: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p-weekly" {
		t.Fatalf("save should replace the whole list, got %#v", got)
	}
}

func TestRemindersSaveAndLoad(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-02-09T12:00:00Z")
	fired := created.Add(30 * time.Minute)

	items := []model.Reminder{
		{
			ID:          "r-late",
			SubjectID:   "task-1",
			Text:        "Later",
			TriggerAt:   created.Add(2 * time.Hour),
			Kind:        model.ReminderSnoozed,
			Priority:    model.PriorityMedium,
			CreatedAt:   created,
			SnoozedAt:   &created,
			SnoozeCount: 2,
		},
		{
			ID:          "r-early",
			SubjectID:   "task-1",
			Text:        "Sooner",
			TriggerAt:   created.Add(30 * time.Minute),
			Kind:        model.ReminderManual,
			Priority:    model.PriorityHigh,
			Tags:        []string{"urgent"},
			CreatedAt:   created,
			Triggered:   true,
			TriggeredAt: &fired,
		},
	}
	if err := repo.SaveReminders(ctx, items); err != nil {
		t.Fatalf("save reminders: %v", err)
	}

	got, err := repo.LoadReminders(ctx)
	if err != nil {
		t.Fatalf("load reminders: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r-early" || got[1].ID != "r-late" {
		t.Fatalf("expected reminders ordered by trigger time, got %#v", got)
	}
	if !got[0].Triggered || got[0].TriggeredAt == nil || !got[0].TriggeredAt.Equal(fired) {
		t.Fatalf("triggered state did not round-trip: %#v", got[0])
	}
	if got[1].Kind != model.ReminderSnoozed || got[1].SnoozeCount != 2 || got[1].SnoozedAt == nil {
		t.Fatalf("snooze state did not round-trip: %#v", got[1])
	}

	if err := repo.SaveReminders(ctx, nil); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	got, err = repo.LoadReminders(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty reminder list, got %d", len(got))
	}
}

func TestOpenSQLiteChecksSchemaVersion(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "cadence.db")

	repo, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, err := repo.db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (99)`); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := OpenSQLite(ctx, dbPath); !errors.Is(err, ErrSchemaVersion) {
		t.Fatalf("expected ErrSchemaVersion, got %v", err)
	}
}
