// Package service is the thin layer between the stores and their callers.
// The stores only return data; Service publishes the matching bus events
// after each call and owns the task list side of pattern materialization.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/cadence/internal/eventbus"
	"github.com/sandeepkv93/cadence/internal/logx"
	"github.com/sandeepkv93/cadence/internal/model"
	"github.com/sandeepkv93/cadence/internal/patterns"
	"github.com/sandeepkv93/cadence/internal/reminders"
	"github.com/sandeepkv93/cadence/internal/storage"
)

// TaskStore is the task list persistence.
type TaskStore interface {
	CreateTask(ctx context.Context, in model.Task) error
	GetTask(ctx context.Context, id string) (model.Task, error)
	UpdateTask(ctx context.Context, in model.Task) error
	ListTasks(ctx context.Context, filter storage.TaskListFilter) ([]model.Task, error)
}

type Options struct {
	Patterns  *patterns.Store
	Reminders *reminders.Store
	Tasks     TaskStore
	Bus       eventbus.Bus
	Logger    logx.Logger
	Now       func() time.Time
	NewID     func() string
}

type Service struct {
	patterns  *patterns.Store
	reminders *reminders.Store
	tasks     TaskStore
	bus       eventbus.Bus
	log       logx.Logger
	now       func() time.Time
	newID     func() string
}

func New(opts Options) *Service {
	s := &Service{
		patterns:  opts.Patterns,
		reminders: opts.Reminders,
		tasks:     opts.Tasks,
		bus:       opts.Bus,
		log:       opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	s.log = s.log.With(logx.String("comp", "service"))
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *Service) Patterns() *patterns.Store   { return s.patterns }
func (s *Service) Reminders() *reminders.Store { return s.reminders }

func (s *Service) ListPatterns() []model.Pattern { return s.patterns.List() }

// UpcomingReminders lists active reminders in trigger order.
func (s *Service) UpcomingReminders(limit int) []model.Reminder {
	return s.reminders.Upcoming(limit)
}

func (s *Service) publish(topic eventbus.Topic, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Topic: topic, Time: s.now(), Data: data})
}

// Load reads both stores from their repositories.
func (s *Service) Load(ctx context.Context) error {
	return errors.Join(s.patterns.Load(ctx), s.reminders.Load(ctx))
}

func (s *Service) CreatePattern(ctx context.Context, spec patterns.Spec) (model.Pattern, error) {
	p, err := s.patterns.Create(ctx, spec)
	if err != nil {
		return model.Pattern{}, err
	}
	s.publish(eventbus.PatternCreated, p)
	return p, nil
}

func (s *Service) UpdatePattern(ctx context.Context, id string, patch patterns.Patch) (model.Pattern, error) {
	p, err := s.patterns.Update(ctx, id, patch)
	if err != nil {
		return model.Pattern{}, err
	}
	s.publish(eventbus.PatternUpdated, p)
	return p, nil
}

func (s *Service) PausePattern(ctx context.Context, id string) (model.Pattern, error) {
	p, err := s.patterns.Pause(ctx, id)
	if err != nil {
		return model.Pattern{}, err
	}
	s.publish(eventbus.PatternPaused, p)
	return p, nil
}

func (s *Service) ResumePattern(ctx context.Context, id string) (model.Pattern, error) {
	p, err := s.patterns.Resume(ctx, id)
	if err != nil {
		return model.Pattern{}, err
	}
	s.publish(eventbus.PatternResumed, p)
	return p, nil
}

func (s *Service) DeletePattern(ctx context.Context, id string) error {
	if err := s.patterns.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(eventbus.PatternDeleted, id)
	return nil
}

// MaterializeDue is the pattern side of a scheduler tick.
func (s *Service) MaterializeDue(ctx context.Context, now time.Time) ([]model.GeneratedTask, error) {
	tasks, err := s.patterns.MaterializeDue(ctx, now)
	for _, t := range tasks {
		s.publish(eventbus.PatternMaterialized, t)
	}
	return tasks, err
}

// AddGenerated stores generated tasks in the task list. Every task is
// attempted; failures are joined.
func (s *Service) AddGenerated(ctx context.Context, generated []model.GeneratedTask) error {
	var errs []error
	for _, g := range generated {
		task, err := s.addGenerated(ctx, g)
		if err != nil {
			errs = append(errs, fmt.Errorf("task for pattern %s: %w", g.PatternID, err))
			continue
		}
		s.publish(eventbus.TaskGenerated, task)
	}
	return errors.Join(errs...)
}

func (s *Service) addGenerated(ctx context.Context, g model.GeneratedTask) (model.Task, error) {
	if s.tasks == nil {
		return model.Task{}, errors.New("service: no task list configured")
	}
	priority := g.Priority
	if !priority.IsValid() {
		priority = model.PriorityMedium
	}
	task := model.Task{
		ID:        s.newID(),
		PatternID: g.PatternID,
		Title:     g.Text,
		State:     model.TaskStatePlanned,
		Priority:  priority,
		Tags:      append([]string(nil), g.Tags...),
		CreatedAt: s.now(),
	}
	if !g.OccurrenceAt.IsZero() {
		due := g.OccurrenceAt
		task.DueAt = &due
	}
	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (s *Service) ListTasks(ctx context.Context, filter storage.TaskListFilter) ([]model.Task, error) {
	if s.tasks == nil {
		return []model.Task{}, nil
	}
	return s.tasks.ListTasks(ctx, filter)
}

// CompleteTask marks a task done, drops its pending reminders and, for a
// task generated from a pattern, materializes the pattern's next instance.
func (s *Service) CompleteTask(ctx context.Context, id string) (model.Task, *model.Task, error) {
	if s.tasks == nil {
		return model.Task{}, nil, errors.New("service: no task list configured")
	}
	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Task{}, nil, fmt.Errorf("%w: task %q", model.ErrNotFound, id)
		}
		return model.Task{}, nil, err
	}
	if task.State == model.TaskStateDone {
		return task, nil, nil
	}
	completed := s.now()
	task.State = model.TaskStateDone
	task.CompletedAt = &completed
	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return model.Task{}, nil, err
	}
	if n := s.reminders.CancelForSubject(ctx, task.ID); n > 0 {
		s.publish(eventbus.ReminderCancelled, task.ID)
	}
	s.publish(eventbus.TaskCompleted, task)

	next, ok, err := s.patterns.OnSubjectCompleted(ctx, task.Generated())
	if err != nil {
		return task, nil, err
	}
	if !ok {
		return task, nil, nil
	}
	s.publish(eventbus.PatternMaterialized, next)
	created, err := s.addGenerated(ctx, next)
	if err != nil {
		return task, nil, err
	}
	s.publish(eventbus.TaskGenerated, created)
	return task, &created, nil
}

// Subject resolves a subject id against the task list. Unknown ids yield a
// bare subject so reminders can target entities outside the task list.
func (s *Service) Subject(ctx context.Context, id string) model.Subject {
	if s.tasks == nil {
		return model.Subject{ID: id}
	}
	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("subject lookup failed", logx.String("subject_id", id), logx.Err(err))
		}
		return model.Subject{ID: id}
	}
	return task.Subject()
}

func (s *Service) CreateReminder(ctx context.Context, spec reminders.Spec) (model.Reminder, error) {
	r, err := s.reminders.Create(ctx, spec)
	if err != nil {
		return model.Reminder{}, err
	}
	s.publish(eventbus.ReminderCreated, r)
	return r, nil
}

func (s *Service) Snooze(ctx context.Context, subjectID, preset string) (model.Reminder, error) {
	r, err := s.reminders.Snooze(ctx, subjectID, preset, s.Subject(ctx, subjectID))
	if err != nil {
		return model.Reminder{}, err
	}
	s.publish(eventbus.ReminderSnoozed, r)
	return r, nil
}

// CreateDeadlineReminder returns nil when the reminder would already be
// overdue.
func (s *Service) CreateDeadlineReminder(ctx context.Context, subject model.Subject, offset string) (*model.Reminder, error) {
	r, err := s.reminders.CreateDeadlineRelative(ctx, subject, offset)
	if err != nil || r == nil {
		return nil, err
	}
	s.publish(eventbus.ReminderCreated, *r)
	return r, nil
}

func (s *Service) CancelReminder(ctx context.Context, id string) error {
	if err := s.reminders.Cancel(ctx, id); err != nil {
		return err
	}
	s.publish(eventbus.ReminderCancelled, id)
	return nil
}

func (s *Service) CancelForSubject(ctx context.Context, subjectID string) int {
	n := s.reminders.CancelForSubject(ctx, subjectID)
	if n > 0 {
		s.publish(eventbus.ReminderCancelled, subjectID)
	}
	return n
}

// PollDue is the reminder side of a scheduler tick.
func (s *Service) PollDue(ctx context.Context, now time.Time) []model.Reminder {
	due := s.reminders.PollDue(ctx, now)
	for _, r := range due {
		s.publish(eventbus.ReminderTriggered, r)
	}
	return due
}

func (s *Service) PurgeOld(ctx context.Context, now time.Time, retention time.Duration) int {
	n := s.reminders.PurgeOld(ctx, now, retention)
	if n > 0 {
		s.publish(eventbus.ReminderPurged, n)
	}
	return n
}
