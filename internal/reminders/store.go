package reminders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sandeepkv93/cadence/internal/logx"
	"github.com/sandeepkv93/cadence/internal/model"
)

// DefaultRetention is how long triggered reminders are kept.
const DefaultRetention = 7 * 24 * time.Hour

// Repository persists the full reminder list.
type Repository interface {
	LoadReminders(ctx context.Context) ([]model.Reminder, error)
	SaveReminders(ctx context.Context, items []model.Reminder) error
}

// Spec is the input of Create. Kind defaults to manual and Priority to
// Medium.
type Spec struct {
	SubjectID string
	Text      string
	TriggerAt time.Time
	Kind      model.ReminderKind
	Priority  model.Priority
	Tags      []string
}

type Options struct {
	Repo     Repository
	Logger   logx.Logger
	Location *time.Location
	Now      func() time.Time
	NewID    func() string
}

// Store owns reminders and their one-shot trigger state. Every accessor
// returns copies.
type Store struct {
	mu    sync.Mutex
	items map[string]*model.Reminder

	repo  Repository
	log   logx.Logger
	loc   *time.Location
	now   func() time.Time
	newID func() string
}

func New(opts Options) *Store {
	s := &Store{
		items: make(map[string]*model.Reminder),
		repo:  opts.Repo,
		log:   opts.Logger,
		loc:   opts.Location,
		now:   opts.Now,
		newID: opts.NewID,
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	s.log = s.log.With(logx.String("comp", "reminders"))
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	items, err := s.repo.LoadReminders(ctx)
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*model.Reminder, len(items))
	for i := range items {
		r := items[i].Clone()
		s.items[r.ID] = &r
	}
	s.log.Debug("reminders loaded", logx.Int("count", len(s.items)))
	return nil
}

// Create adds a reminder. A TriggerAt in the past is accepted and fires on
// the next poll.
func (s *Store) Create(ctx context.Context, spec Spec) (model.Reminder, error) {
	now := s.now()
	r := model.Reminder{
		ID:        s.newID(),
		SubjectID: strings.TrimSpace(spec.SubjectID),
		Text:      strings.TrimSpace(spec.Text),
		TriggerAt: spec.TriggerAt,
		Kind:      spec.Kind,
		Priority:  spec.Priority,
		Tags:      model.NormalizeTags(spec.Tags),
		CreatedAt: now,
	}
	if r.Kind == "" {
		r.Kind = model.ReminderManual
	}
	if r.Priority == "" {
		r.Priority = model.PriorityMedium
	}
	if err := r.Validate(); err != nil {
		return model.Reminder{}, err
	}
	if r.TriggerAt.Before(now) {
		s.log.Warn("reminder trigger time is in the past; it fires on the next poll",
			logx.String("subject_id", r.SubjectID), logx.Time("trigger_at", r.TriggerAt))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[r.ID] = &r
	s.persistLocked(ctx)
	s.log.Info("reminder created", logx.String("reminder_id", r.ID), logx.String("kind", string(r.Kind)))
	return r.Clone(), nil
}

// Snooze replaces every reminder of subjectID with one snoozed reminder.
// An unknown preset falls back to one hour from now.
func (s *Store) Snooze(ctx context.Context, subjectID, preset string, subject model.Subject) (model.Reminder, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return model.Reminder{}, &model.ValidationError{Field: "subject_id", Reason: "is required"}
	}
	now := s.now()
	trigger, ok := ResolvePreset(preset, now, s.loc)
	if !ok {
		s.log.Warn("unrecognized snooze preset; using fallback",
			logx.String("preset", preset), logx.Duration("fallback", fallbackSnooze))
		trigger = now.Add(fallbackSnooze)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.forSubjectLocked(subjectID)
	count := 0
	text := strings.TrimSpace(subject.Text)
	priority := subject.Priority
	tags := subject.Tags
	for _, old := range prev {
		count = max(count, old.SnoozeCount)
		if text == "" {
			text = old.Text
		}
		if priority == "" {
			priority = old.Priority
		}
		if tags == nil {
			tags = old.Tags
		}
	}
	if text == "" {
		text = subjectID
	}
	if priority == "" {
		priority = model.PriorityMedium
	}

	stamp := now
	r := model.Reminder{
		ID:          s.newID(),
		SubjectID:   subjectID,
		Text:        text,
		TriggerAt:   trigger,
		Kind:        model.ReminderSnoozed,
		Priority:    priority,
		Tags:        model.NormalizeTags(tags),
		CreatedAt:   now,
		SnoozedAt:   &stamp,
		SnoozeCount: count + 1,
	}
	if err := r.Validate(); err != nil {
		return model.Reminder{}, err
	}
	for _, old := range prev {
		delete(s.items, old.ID)
	}
	s.items[r.ID] = &r
	s.persistLocked(ctx)
	s.log.Info("reminder snoozed",
		logx.String("subject_id", subjectID), logx.Time("trigger_at", trigger),
		logx.Int("snooze_count", r.SnoozeCount), logx.Int("replaced", len(prev)))
	return r.Clone(), nil
}

// CreateDeadlineRelative schedules a reminder offset before the subject's
// due time. It returns nil without error when that moment has already
// passed.
func (s *Store) CreateDeadlineRelative(ctx context.Context, subject model.Subject, offset string) (*model.Reminder, error) {
	if subject.DueAt == nil {
		return nil, &model.ValidationError{Field: "due_at", Reason: "is required for a deadline reminder"}
	}
	d, err := model.ParseOffset(offset)
	if err != nil {
		return nil, err
	}
	trigger := subject.DueAt.Add(-d)
	if trigger.Before(s.now()) {
		s.log.Warn("deadline reminder would already be overdue; skipped",
			logx.String("subject_id", subject.ID), logx.Time("due_at", *subject.DueAt), logx.String("offset", offset))
		return nil, nil
	}
	r, err := s.Create(ctx, Spec{
		SubjectID: subject.ID,
		Text:      subject.Text,
		TriggerAt: trigger,
		Kind:      model.ReminderDeadline,
		Priority:  subject.Priority,
		Tags:      subject.Tags,
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("%w: reminder %q", model.ErrNotFound, id)
	}
	delete(s.items, id)
	s.persistLocked(ctx)
	s.log.Info("reminder cancelled", logx.String("reminder_id", id))
	return nil
}

// CancelForSubject removes every reminder of subjectID and reports how many
// were removed.
func (s *Store) CancelForSubject(ctx context.Context, subjectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.forSubjectLocked(subjectID)
	if len(prev) == 0 {
		return 0
	}
	for _, r := range prev {
		delete(s.items, r.ID)
	}
	s.persistLocked(ctx)
	s.log.Info("reminders cancelled for subject", logx.String("subject_id", subjectID), logx.Int("count", len(prev)))
	return len(prev)
}

// PollDue marks every untriggered reminder due at now as triggered and
// returns them in ascending trigger order. A reminder is returned by at
// most one call.
func (s *Store) PollDue(ctx context.Context, now time.Time) []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := lo.Filter(lo.Values(s.items), func(r *model.Reminder, _ int) bool {
		return !r.Triggered && !r.TriggerAt.After(now)
	})
	if len(due) == 0 {
		return []model.Reminder{}
	}
	out := make([]model.Reminder, 0, len(due))
	for _, r := range drainOrdered(due, 0) {
		stamp := now
		r.Triggered = true
		r.TriggeredAt = &stamp
		out = append(out, r.Clone())
	}
	s.persistLocked(ctx)
	s.log.Debug("reminders due", logx.Int("count", len(out)))
	return out
}

// PurgeOld deletes triggered reminders that fired more than retention ago.
// A non-positive retention uses DefaultRetention.
func (s *Store) PurgeOld(ctx context.Context, now time.Time, retention time.Duration) int {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := now.Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, r := range s.items {
		if !r.Triggered {
			continue
		}
		fired := r.TriggerAt
		if r.TriggeredAt != nil {
			fired = *r.TriggeredAt
		}
		if fired.Before(cutoff) {
			delete(s.items, id)
			removed++
		}
	}
	if removed > 0 {
		s.persistLocked(ctx)
		s.log.Info("old reminders purged", logx.Int("count", removed))
	}
	return removed
}

func (s *Store) Get(id string) (model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return model.Reminder{}, fmt.Errorf("%w: reminder %q", model.ErrNotFound, id)
	}
	return r.Clone(), nil
}

// List returns every reminder in trigger order.
func (s *Store) List() []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Upcoming returns at most limit untriggered reminders in trigger order.
func (s *Store) Upcoming(limit int) []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := lo.Filter(lo.Values(s.items), func(r *model.Reminder, _ int) bool { return r.Active() })
	return lo.Map(drainOrdered(active, limit), func(r *model.Reminder, _ int) model.Reminder { return r.Clone() })
}

// ForSubject returns the reminders of one subject in trigger order.
func (s *Store) ForSubject(subjectID string) []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(drainOrdered(s.forSubjectLocked(subjectID), 0), func(r *model.Reminder, _ int) model.Reminder { return r.Clone() })
}

func (s *Store) forSubjectLocked(subjectID string) []*model.Reminder {
	return lo.Filter(lo.Values(s.items), func(r *model.Reminder, _ int) bool { return r.SubjectID == subjectID })
}

func (s *Store) snapshotLocked() []model.Reminder {
	return lo.Map(drainOrdered(lo.Values(s.items), 0), func(r *model.Reminder, _ int) model.Reminder { return r.Clone() })
}

// persistLocked saves the whole list. Storage failures are logged and the
// in-memory state stays authoritative.
func (s *Store) persistLocked(ctx context.Context) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveReminders(ctx, s.snapshotLocked()); err != nil {
		s.log.Error("persist reminders failed", logx.Err(err))
	}
}
