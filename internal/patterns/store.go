package patterns

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sandeepkv93/cadence/internal/logx"
	"github.com/sandeepkv93/cadence/internal/model"
)

// maxCatchUp bounds how many occurrences MaterializeDue skips in one call.
const maxCatchUp = 100000

var ErrNotAdvancing = errors.New("patterns: recurrence does not advance")

// Repository persists the full pattern list.
type Repository interface {
	LoadPatterns(ctx context.Context) ([]model.Pattern, error)
	SavePatterns(ctx context.Context, items []model.Pattern) error
}

// Spec is the input of Create.
type Spec struct {
	Text      string
	Rule      model.Rule
	TimeOfDay *model.ClockTime
	Tags      []string
	Priority  model.Priority
	SourceTag string
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Text           *string
	Rule           model.Rule
	TimeOfDay      *model.ClockTime
	ClearTimeOfDay bool
	Tags           *[]string
	Priority       *model.Priority
	SourceTag      *string
}

type Options struct {
	Repo       Repository
	Calculator model.Calculator
	Logger     logx.Logger
	Now        func() time.Time
	NewID      func() string
}

// Store owns the recurring patterns. Every accessor returns copies.
type Store struct {
	mu    sync.Mutex
	items map[string]*model.Pattern

	repo  Repository
	calc  model.Calculator
	log   logx.Logger
	now   func() time.Time
	newID func() string
}

func New(opts Options) *Store {
	s := &Store{
		items: make(map[string]*model.Pattern),
		repo:  opts.Repo,
		calc:  opts.Calculator,
		log:   opts.Logger,
		now:   opts.Now,
		newID: opts.NewID,
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	s.log = s.log.With(logx.String("comp", "patterns"))
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Load replaces the in-memory set with the repository contents. Active
// patterns without a usable NextDue get one computed from now.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	items, err := s.repo.LoadPatterns(ctx)
	if err != nil {
		return fmt.Errorf("load patterns: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.items = make(map[string]*model.Pattern, len(items))
	dirty := false
	for i := range items {
		p := items[i].Clone()
		if p.Active && p.NextDue == nil {
			next, calcErr := s.calc.NextOccurrence(p, now)
			if calcErr != nil {
				s.log.Warn("cannot schedule loaded pattern", logx.String("pattern_id", p.ID), logx.Err(calcErr))
			} else {
				p.NextDue = &next
				dirty = true
			}
		}
		s.items[p.ID] = &p
	}
	if dirty {
		s.persistLocked(ctx)
	}
	s.log.Debug("patterns loaded", logx.Int("count", len(s.items)))
	return nil
}

func (s *Store) Create(ctx context.Context, spec Spec) (model.Pattern, error) {
	if strings.TrimSpace(spec.Text) == "" {
		return model.Pattern{}, &model.ValidationError{Field: "text", Reason: "is required"}
	}
	if err := model.ValidateRule(spec.Rule); err != nil {
		return model.Pattern{}, err
	}
	priority := spec.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	now := s.now()
	p := model.Pattern{
		ID:        s.newID(),
		Text:      strings.TrimSpace(spec.Text),
		Rule:      spec.Rule,
		TimeOfDay: spec.TimeOfDay,
		Tags:      model.NormalizeTags(spec.Tags),
		Priority:  priority,
		SourceTag: spec.SourceTag,
		Active:    true,
		CreatedAt: now,
	}
	if err := p.Validate(); err != nil {
		return model.Pattern{}, err
	}
	next, err := s.calc.NextOccurrence(p, now)
	if err != nil {
		return model.Pattern{}, err
	}
	p.NextDue = &next
	p = p.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = &p
	s.persistLocked(ctx)
	s.log.Info("pattern created", logx.String("pattern_id", p.ID), logx.Time("next_due", next))
	return p.Clone(), nil
}

// Update merges patch into the pattern. A changed rule or time of day
// reschedules the pattern from now.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (model.Pattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok {
		return model.Pattern{}, notFound(id)
	}

	next := cur.Clone()
	reschedule := false
	if patch.Text != nil {
		next.Text = strings.TrimSpace(*patch.Text)
	}
	if patch.Rule != nil && !model.RulesEqual(patch.Rule, cur.Rule) {
		next.Rule = patch.Rule
		reschedule = true
	}
	if patch.ClearTimeOfDay && cur.TimeOfDay != nil {
		next.TimeOfDay = nil
		reschedule = true
	} else if patch.TimeOfDay != nil && (cur.TimeOfDay == nil || *cur.TimeOfDay != *patch.TimeOfDay) {
		tod := *patch.TimeOfDay
		next.TimeOfDay = &tod
		reschedule = true
	}
	if patch.Tags != nil {
		next.Tags = model.NormalizeTags(*patch.Tags)
	}
	if patch.Priority != nil {
		next.Priority = *patch.Priority
	}
	if patch.SourceTag != nil {
		next.SourceTag = *patch.SourceTag
	}
	if err := next.Validate(); err != nil {
		return model.Pattern{}, err
	}
	if reschedule {
		due, err := s.calc.NextOccurrence(next, s.now())
		if err != nil {
			return model.Pattern{}, err
		}
		next.NextDue = &due
	}

	*cur = next
	s.persistLocked(ctx)
	s.log.Info("pattern updated", logx.String("pattern_id", id), logx.Bool("rescheduled", reschedule))
	return cur.Clone(), nil
}

func (s *Store) Pause(ctx context.Context, id string) (model.Pattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return model.Pattern{}, notFound(id)
	}
	p.Active = false
	s.persistLocked(ctx)
	s.log.Info("pattern paused", logx.String("pattern_id", id))
	return p.Clone(), nil
}

// Resume reactivates the pattern and schedules it from now, so a long pause
// produces no backlog.
func (s *Store) Resume(ctx context.Context, id string) (model.Pattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return model.Pattern{}, notFound(id)
	}
	due, err := s.calc.NextOccurrence(*p, s.now())
	if err != nil {
		return model.Pattern{}, err
	}
	p.Active = true
	p.NextDue = &due
	s.persistLocked(ctx)
	s.log.Info("pattern resumed", logx.String("pattern_id", id), logx.Time("next_due", due))
	return p.Clone(), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return notFound(id)
	}
	delete(s.items, id)
	s.persistLocked(ctx)
	s.log.Info("pattern deleted", logx.String("pattern_id", id))
	return nil
}

// MaterializeDue turns every active pattern whose NextDue is not after now
// into a task snapshot and advances its schedule past now. Failures are
// per pattern: a failing pattern is left untouched and reported in the
// joined error while the others still materialize.
func (s *Store) MaterializeDue(ctx context.Context, now time.Time) ([]model.GeneratedTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := lo.Filter(lo.Values(s.items), func(p *model.Pattern, _ int) bool {
		return p.Active && p.NextDue != nil && !p.NextDue.After(now)
	})
	slices.SortFunc(due, func(a, b *model.Pattern) int {
		if c := a.NextDue.Compare(*b.NextDue); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	out := make([]model.GeneratedTask, 0, len(due))
	var errs []error
	for _, p := range due {
		task, err := s.materializeLocked(p, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("pattern %s: %w", p.ID, err))
			continue
		}
		out = append(out, task)
	}
	if len(out) > 0 {
		s.persistLocked(ctx)
		s.log.Info("patterns materialized", logx.Int("count", len(out)))
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.log.Warn("pattern materialization failed", logx.Err(err))
		return out, err
	}
	return out, nil
}

// OnSubjectCompleted materializes the next instance of the pattern a
// completed task came from, whether or not its NextDue has elapsed. It
// reports false when the task has no pattern or the pattern is gone or
// paused.
func (s *Store) OnSubjectCompleted(ctx context.Context, done model.GeneratedTask) (model.GeneratedTask, bool, error) {
	if done.PatternID == "" {
		return model.GeneratedTask{}, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[done.PatternID]
	if !ok || !p.Active {
		s.log.Debug("completed task has no active pattern", logx.String("pattern_id", done.PatternID))
		return model.GeneratedTask{}, false, nil
	}
	now := s.now()
	if p.NextDue == nil {
		due, err := s.calc.NextOccurrence(*p, now)
		if err != nil {
			return model.GeneratedTask{}, false, err
		}
		p.NextDue = &due
	}
	task, err := s.materializeLocked(p, now)
	if err != nil {
		return model.GeneratedTask{}, false, fmt.Errorf("pattern %s: %w", p.ID, err)
	}
	s.persistLocked(ctx)
	s.log.Info("next instance materialized on completion", logx.String("pattern_id", p.ID), logx.Int("sequence", task.Sequence))
	return task, true, nil
}

// materializeLocked snapshots p at its NextDue and advances it. p is only
// modified when every step succeeds.
func (s *Store) materializeLocked(p *model.Pattern, now time.Time) (model.GeneratedTask, error) {
	occurrence := *p.NextDue
	next, err := s.advance(*p, occurrence, now)
	if err != nil {
		return model.GeneratedTask{}, err
	}

	p.NextDue = &next
	p.MaterializationCount++
	stamp := now
	p.LastMaterializedAt = &stamp

	return model.GeneratedTask{
		PatternID:    p.ID,
		Text:         p.Text,
		Tags:         append([]string(nil), p.Tags...),
		Priority:     p.Priority,
		SourceTag:    p.SourceTag,
		DueDate:      s.calc.StartOfDay(occurrence),
		OccurrenceAt: s.calc.In(occurrence),
		Sequence:     p.MaterializationCount,
	}, nil
}

// advance steps from the previous occurrence until the result is after now.
func (s *Store) advance(p model.Pattern, from, now time.Time) (time.Time, error) {
	cursor := from
	for i := 0; i < maxCatchUp; i++ {
		next, err := s.calc.NextOccurrence(p, cursor)
		if err != nil {
			return time.Time{}, err
		}
		if !next.After(cursor) {
			return time.Time{}, fmt.Errorf("%w: %s after %s", ErrNotAdvancing, next.Format(time.RFC3339), cursor.Format(time.RFC3339))
		}
		if next.After(now) {
			return next, nil
		}
		cursor = next
	}
	return time.Time{}, fmt.Errorf("%w: more than %d missed occurrences", ErrNotAdvancing, maxCatchUp)
}

func (s *Store) Get(id string) (model.Pattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return model.Pattern{}, notFound(id)
	}
	return p.Clone(), nil
}

// List returns every pattern ordered by creation time.
func (s *Store) List() []model.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Preview lists the next count occurrences of a pattern from its NextDue
// (or from now when it has none).
func (s *Store) Preview(id string, count int) ([]time.Time, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	from := s.now()
	out := make([]time.Time, 0, count)
	if p.NextDue != nil && p.Active {
		if count <= 0 {
			return out, nil
		}
		out = append(out, s.calc.In(*p.NextDue))
		from = *p.NextDue
		count--
	}
	rest, err := s.calc.Preview(p, from, count)
	if err != nil {
		return nil, err
	}
	return append(out, rest...), nil
}

func (s *Store) snapshotLocked() []model.Pattern {
	out := lo.Map(lo.Values(s.items), func(p *model.Pattern, _ int) model.Pattern { return p.Clone() })
	slices.SortFunc(out, func(a, b model.Pattern) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// persistLocked saves the whole list. Storage failures are logged and the
// in-memory state stays authoritative.
func (s *Store) persistLocked(ctx context.Context) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SavePatterns(ctx, s.snapshotLocked()); err != nil {
		s.log.Error("persist patterns failed", logx.Err(err))
	}
}

func notFound(id string) error {
	return fmt.Errorf("%w: pattern %q", model.ErrNotFound, id)
}
