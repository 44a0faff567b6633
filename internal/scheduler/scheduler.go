package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sandeepkv93/cadence/internal/logx"
	"github.com/sandeepkv93/cadence/internal/model"
)

const (
	DefaultReminderInterval = 30 * time.Second
	DefaultPatternInterval  = time.Hour
	DefaultRetention        = 7 * 24 * time.Hour
)

var (
	ErrInvalidInterval = errors.New("scheduler: interval must be at least one second")
	ErrMissingSource   = errors.New("scheduler: reminder and pattern sources are required")
)

// ReminderSource is the reminder side of a tick.
type ReminderSource interface {
	PollDue(ctx context.Context, now time.Time) []model.Reminder
	PurgeOld(ctx context.Context, now time.Time, retention time.Duration) int
}

// PatternSource is the pattern side of a tick.
type PatternSource interface {
	MaterializeDue(ctx context.Context, now time.Time) ([]model.GeneratedTask, error)
}

// Dispatcher delivers a fired reminder. It must not fail.
type Dispatcher interface {
	Dispatch(ctx context.Context, r model.Reminder)
}

// TaskSink receives generated tasks.
type TaskSink interface {
	AddGenerated(ctx context.Context, tasks []model.GeneratedTask) error
}

type Intervals struct {
	Reminders time.Duration
	Patterns  time.Duration
	Retention time.Duration
}

func (iv Intervals) withDefaults() Intervals {
	if iv.Reminders == 0 {
		iv.Reminders = DefaultReminderInterval
	}
	if iv.Patterns == 0 {
		iv.Patterns = DefaultPatternInterval
	}
	if iv.Retention <= 0 {
		iv.Retention = DefaultRetention
	}
	return iv
}

func (iv Intervals) validate() error {
	if iv.Reminders < time.Second {
		return fmt.Errorf("%w: reminders %s", ErrInvalidInterval, iv.Reminders)
	}
	if iv.Patterns < time.Second {
		return fmt.Errorf("%w: patterns %s", ErrInvalidInterval, iv.Patterns)
	}
	return nil
}

type Config struct {
	Reminders  ReminderSource
	Patterns   PatternSource
	Dispatcher Dispatcher
	Tasks      TaskSink
	Intervals  Intervals
	Location   *time.Location
	Logger     logx.Logger
	Now        func() time.Time
}

// ReminderTick summarizes one reminder pass.
type ReminderTick struct {
	Fired  int
	Purged int
}

// Scheduler drives the reminder and pattern loops on two cron entries.
// Ticks from both loops and manual checks never run concurrently.
type Scheduler struct {
	reminders  ReminderSource
	patterns   PatternSource
	dispatcher Dispatcher
	tasks      TaskSink
	loc        *time.Location
	log        logx.Logger
	now        func() time.Time

	tick sync.Mutex

	mu        sync.Mutex
	intervals Intervals
	c         *cron.Cron
	runCtx    context.Context
	cancel    context.CancelFunc
}

func New(cfg Config) (*Scheduler, error) {
	if cfg.Reminders == nil || cfg.Patterns == nil {
		return nil, ErrMissingSource
	}
	iv := cfg.Intervals.withDefaults()
	if err := iv.validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		reminders:  cfg.Reminders,
		patterns:   cfg.Patterns,
		dispatcher: cfg.Dispatcher,
		tasks:      cfg.Tasks,
		loc:        cfg.Location,
		log:        cfg.Logger,
		now:        cfg.Now,
		intervals:  iv,
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	s.log = s.log.With(logx.String("comp", "scheduler"))
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Start runs one pattern check and then schedules both loops. Calling it
// on a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.c != nil {
		s.mu.Unlock()
		return nil
	}
	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	runCtx := s.runCtx
	if err := s.startCronLocked(); err != nil {
		s.cancel()
		s.runCtx, s.cancel = nil, nil
		s.mu.Unlock()
		return err
	}
	iv := s.intervals
	s.mu.Unlock()

	s.log.Info("scheduler started",
		logx.Duration("reminder_interval", iv.Reminders), logx.Duration("pattern_interval", iv.Patterns))
	if _, err := s.CheckPatterns(runCtx, s.now()); err != nil {
		s.log.Warn("startup pattern check failed", logx.Err(err))
	}
	return nil
}

// Stop prevents future ticks and waits for a running tick to finish.
// It is safe to call when the scheduler is not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
	s.cancel()
	s.runCtx, s.cancel = nil, nil
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c != nil
}

func (s *Scheduler) Intervals() Intervals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intervals
}

// Reconfigure replaces the loop periods. A running scheduler restarts its
// cron entries; no immediate check is made.
func (s *Scheduler) Reconfigure(iv Intervals) error {
	iv = iv.withDefaults()
	if err := iv.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if iv == s.intervals {
		return nil
	}
	s.intervals = iv
	if s.c == nil {
		return nil
	}
	<-s.c.Stop().Done()
	s.c = nil
	if err := s.startCronLocked(); err != nil {
		return err
	}
	s.log.Info("scheduler reconfigured",
		logx.Duration("reminder_interval", iv.Reminders), logx.Duration("pattern_interval", iv.Patterns))
	return nil
}

func (s *Scheduler) startCronLocked() error {
	clog := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	runCtx := s.runCtx
	retention := s.intervals.Retention
	if _, err := c.AddFunc(everySpec(s.intervals.Reminders), func() {
		s.checkReminders(runCtx, s.now(), retention)
	}); err != nil {
		return fmt.Errorf("schedule reminder loop: %w", err)
	}
	if _, err := c.AddFunc(everySpec(s.intervals.Patterns), func() {
		if _, err := s.CheckPatterns(runCtx, s.now()); err != nil {
			s.log.Warn("pattern check failed", logx.Err(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule pattern loop: %w", err)
	}
	c.Start()
	s.c = c
	return nil
}

// CheckReminders fires every due reminder in trigger order and then purges
// expired ones. It is the body of a reminder tick and the "check now"
// action.
func (s *Scheduler) CheckReminders(ctx context.Context, now time.Time) ReminderTick {
	return s.checkReminders(ctx, now, s.Intervals().Retention)
}

func (s *Scheduler) checkReminders(ctx context.Context, now time.Time, retention time.Duration) ReminderTick {
	s.tick.Lock()
	defer s.tick.Unlock()

	due := s.reminders.PollDue(ctx, now)
	for _, r := range due {
		if s.dispatcher == nil {
			continue
		}
		s.dispatcher.Dispatch(ctx, r)
	}
	purged := s.reminders.PurgeOld(ctx, now, retention)
	if len(due) > 0 || purged > 0 {
		s.log.Debug("reminder tick", logx.Int("fired", len(due)), logx.Int("purged", purged))
	}
	return ReminderTick{Fired: len(due), Purged: purged}
}

// CheckPatterns materializes due patterns and hands the tasks to the sink.
// Tasks that were generated are delivered even when some patterns failed.
func (s *Scheduler) CheckPatterns(ctx context.Context, now time.Time) (int, error) {
	s.tick.Lock()
	defer s.tick.Unlock()

	tasks, matErr := s.patterns.MaterializeDue(ctx, now)
	if len(tasks) > 0 && s.tasks != nil {
		if err := s.tasks.AddGenerated(ctx, tasks); err != nil {
			s.log.Error("task sink rejected generated tasks", logx.Int("count", len(tasks)), logx.Err(err))
			return len(tasks), errors.Join(matErr, err)
		}
	}
	if len(tasks) > 0 {
		s.log.Debug("pattern tick", logx.Int("generated", len(tasks)))
	}
	return len(tasks), matErr
}

func everySpec(d time.Duration) string {
	return "@every " + d.String()
}
