package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sandeepkv93/cadence/internal/model"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// OpenSQLite opens (creating if needed) the database at path, applies
// migrations and verifies the schema version.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" && !strings.Contains(path, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir %q: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := CheckSchemaVersion(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

const patternColumns = `id, text, rule_type, frequency, days_of_week, day_of_month, custom_hook, time_of_day,
	tags, priority, source_tag, active, created_at, last_materialized_at, next_due, materialization_count`

func (r *SQLiteRepository) LoadPatterns(ctx context.Context) ([]model.Pattern, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+patternColumns+` FROM patterns ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Pattern, 0)
	for rows.Next() {
		item, scanErr := scanPattern(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SavePatterns(ctx context.Context, items []model.Pattern) error {
	return r.replaceAll(ctx, "patterns", func(tx *sql.Tx) error {
		for _, p := range items {
			typ, every, weekdays, dom, hook := model.RuleFields(p.Rule)
			var clock any
			if p.TimeOfDay != nil {
				clock = p.TimeOfDay.String()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO patterns (`+patternColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID, p.Text, string(typ), every, formatWeekdays(weekdays), dom, hook, clock,
				mustJSON(p.Tags), string(p.Priority), p.SourceTag, boolInt(p.Active),
				mustTime(p.CreatedAt), nullTime(p.LastMaterializedAt), nullTime(p.NextDue), p.MaterializationCount,
			)
			if err != nil {
				return fmt.Errorf("insert pattern %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

const reminderColumns = `id, subject_id, text, trigger_at, kind, priority, tags, created_at,
	snoozed_at, snooze_count, triggered, triggered_at`

func (r *SQLiteRepository) LoadReminders(ctx context.Context) ([]model.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+reminderColumns+` FROM reminders ORDER BY trigger_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Reminder, 0)
	for rows.Next() {
		item, scanErr := scanReminder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveReminders(ctx context.Context, items []model.Reminder) error {
	return r.replaceAll(ctx, "reminders", func(tx *sql.Tx) error {
		for _, rem := range items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO reminders (`+reminderColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rem.ID, rem.SubjectID, rem.Text, mustTime(rem.TriggerAt), string(rem.Kind), string(rem.Priority),
				mustJSON(rem.Tags), mustTime(rem.CreatedAt), nullTime(rem.SnoozedAt), rem.SnoozeCount,
				boolInt(rem.Triggered), nullTime(rem.TriggeredAt),
			)
			if err != nil {
				return fmt.Errorf("insert reminder %s: %w", rem.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) replaceAll(ctx context.Context, table string, insert func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insert(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const taskColumns = `id, pattern_id, title, state, priority, tags, due_at, created_at, completed_at`

func (r *SQLiteRepository) CreateTask(ctx context.Context, in model.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.PatternID, in.Title, string(in.State), string(in.Priority), mustJSON(in.Tags),
		nullTime(in.DueAt), mustTime(in.CreatedAt), nullTime(in.CompletedAt),
	)
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in model.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET pattern_id = ?, title = ?, state = ?, priority = ?, tags = ?, due_at = ?, completed_at = ?
		WHERE id = ?`,
		in.PatternID, in.Title, string(in.State), string(in.Priority), mustJSON(in.Tags),
		nullTime(in.DueAt), nullTime(in.CompletedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, string(filter.State))
	}
	if filter.PatternID != "" {
		clauses = append(clauses, "pattern_id = ?")
		args = append(args, filter.PatternID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY due_at ASC, created_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func mustJSON(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func parseTags(raw string) ([]string, error) {
	var out []string
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func formatWeekdays(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

func parseWeekdays(raw string) ([]time.Weekday, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("decode weekday %q: %w", p, err)
		}
		out = append(out, time.Weekday(n))
	}
	return out, nil
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPattern(s scanner) (model.Pattern, error) {
	var out model.Pattern
	var ruleType, days, hook, tags, priority, created string
	var every, dom, active int
	var clock, lastMat, next sql.NullString
	if err := s.Scan(&out.ID, &out.Text, &ruleType, &every, &days, &dom, &hook, &clock,
		&tags, &priority, &out.SourceTag, &active, &created, &lastMat, &next, &out.MaterializationCount); err != nil {
		return model.Pattern{}, err
	}
	weekdays, err := parseWeekdays(days)
	if err != nil {
		return model.Pattern{}, err
	}
	rule, err := model.NewRule(model.RuleType(ruleType), every, weekdays, dom, hook)
	if err != nil {
		return model.Pattern{}, fmt.Errorf("pattern %s: %w", out.ID, err)
	}
	out.Rule = rule
	if clock.Valid && clock.String != "" {
		c, err := model.ParseClock(clock.String)
		if err != nil {
			return model.Pattern{}, fmt.Errorf("pattern %s: %w", out.ID, err)
		}
		out.TimeOfDay = &c
	}
	if out.Tags, err = parseTags(tags); err != nil {
		return model.Pattern{}, err
	}
	out.Priority = model.Priority(priority)
	out.Active = active == 1
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.Pattern{}, err
	}
	if out.LastMaterializedAt, err = parseNullableTime(lastMat); err != nil {
		return model.Pattern{}, err
	}
	if out.NextDue, err = parseNullableTime(next); err != nil {
		return model.Pattern{}, err
	}
	return out, nil
}

func scanReminder(s scanner) (model.Reminder, error) {
	var out model.Reminder
	var trigger, kind, priority, tags, created string
	var snoozed, triggeredAt sql.NullString
	var triggered int
	if err := s.Scan(&out.ID, &out.SubjectID, &out.Text, &trigger, &kind, &priority, &tags, &created,
		&snoozed, &out.SnoozeCount, &triggered, &triggeredAt); err != nil {
		return model.Reminder{}, err
	}
	var err error
	if out.TriggerAt, err = parseRequiredTime(trigger); err != nil {
		return model.Reminder{}, err
	}
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.Reminder{}, err
	}
	if out.SnoozedAt, err = parseNullableTime(snoozed); err != nil {
		return model.Reminder{}, err
	}
	if out.TriggeredAt, err = parseNullableTime(triggeredAt); err != nil {
		return model.Reminder{}, err
	}
	if out.Tags, err = parseTags(tags); err != nil {
		return model.Reminder{}, err
	}
	out.Kind = model.ReminderKind(kind)
	out.Priority = model.Priority(priority)
	out.Triggered = triggered == 1
	return out, nil
}

func scanTask(s scanner) (model.Task, error) {
	var out model.Task
	var state, priority, tags, created string
	var due, completed sql.NullString
	if err := s.Scan(&out.ID, &out.PatternID, &out.Title, &state, &priority, &tags, &due, &created, &completed); err != nil {
		return model.Task{}, err
	}
	var err error
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.Task{}, err
	}
	if out.DueAt, err = parseNullableTime(due); err != nil {
		return model.Task{}, err
	}
	if out.CompletedAt, err = parseNullableTime(completed); err != nil {
		return model.Task{}, err
	}
	if out.Tags, err = parseTags(tags); err != nil {
		return model.Task{}, err
	}
	out.State = model.TaskState(state)
	out.Priority = model.Priority(priority)
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
