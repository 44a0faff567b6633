package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/cadence/internal/model"
)

type fakeReminders struct {
	mu        sync.Mutex
	due       []model.Reminder
	polls     int
	purges    int
	retention time.Duration
}

func (f *fakeReminders) PollDue(_ context.Context, _ time.Time) []model.Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	out := f.due
	f.due = nil
	return out
}

func (f *fakeReminders) PurgeOld(_ context.Context, _ time.Time, retention time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	f.retention = retention
	return 0
}

func (f *fakeReminders) push(r model.Reminder) {
	f.mu.Lock()
	f.due = append(f.due, r)
	f.mu.Unlock()
}

type fakePatterns struct {
	mu    sync.Mutex
	calls int
	tasks []model.GeneratedTask
	err   error
}

func (f *fakePatterns) MaterializeDue(context.Context, time.Time) ([]model.GeneratedTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := f.tasks
	f.tasks = nil
	return out, f.err
}

func (f *fakePatterns) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, r model.Reminder) {
	d.mu.Lock()
	d.ids = append(d.ids, r.ID)
	d.mu.Unlock()
}

func (d *recordingDispatcher) IDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ids...)
}

type recordingSink struct {
	mu    sync.Mutex
	tasks []model.GeneratedTask
	err   error
}

func (s *recordingSink) AddGenerated(_ context.Context, tasks []model.GeneratedTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, tasks...)
	return s.err
}

func newTestScheduler(t *testing.T, iv Intervals) (*Scheduler, *fakeReminders, *fakePatterns, *recordingDispatcher, *recordingSink) {
	t.Helper()
	rem := &fakeReminders{}
	pat := &fakePatterns{}
	disp := &recordingDispatcher{}
	sink := &recordingSink{}
	s, err := New(Config{
		Reminders:  rem,
		Patterns:   pat,
		Dispatcher: disp,
		Tasks:      sink,
		Intervals:  iv,
		Location:   time.UTC,
	})
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s, rem, pat, disp, sink
}

func TestNewAppliesDefaultsAndValidates(t *testing.T) {
	s, _, _, _, _ := newTestScheduler(t, Intervals{})
	iv := s.Intervals()
	assert.Equal(t, DefaultReminderInterval, iv.Reminders)
	assert.Equal(t, DefaultPatternInterval, iv.Patterns)
	assert.Equal(t, DefaultRetention, iv.Retention)

	_, err := New(Config{Reminders: &fakeReminders{}, Patterns: &fakePatterns{}, Intervals: Intervals{Reminders: time.Millisecond}})
	require.ErrorIs(t, err, ErrInvalidInterval)

	_, err = New(Config{Patterns: &fakePatterns{}})
	require.ErrorIs(t, err, ErrMissingSource)
}

func TestCheckRemindersDispatchesInOrderThenPurges(t *testing.T) {
	s, rem, _, disp, _ := newTestScheduler(t, Intervals{Retention: 48 * time.Hour})
	rem.push(model.Reminder{ID: "a"})
	rem.push(model.Reminder{ID: "b"})

	tick := s.CheckReminders(context.Background(), time.Now())
	assert.Equal(t, 2, tick.Fired)
	assert.Equal(t, []string{"a", "b"}, disp.IDs())
	assert.Equal(t, 1, rem.purges)
	assert.Equal(t, 48*time.Hour, rem.retention)

	tick = s.CheckReminders(context.Background(), time.Now())
	assert.Zero(t, tick.Fired)
	assert.Len(t, disp.IDs(), 2)
}

func TestCheckPatternsHandsTasksToSink(t *testing.T) {
	s, _, pat, _, sink := newTestScheduler(t, Intervals{})
	matErr := errors.New("pattern p2: hook failed")
	pat.tasks = []model.GeneratedTask{{PatternID: "p1", Text: "one"}}
	pat.err = matErr

	n, err := s.CheckPatterns(context.Background(), time.Now())
	assert.Equal(t, 1, n)
	require.ErrorIs(t, err, matErr)
	require.Len(t, sink.tasks, 1, "partial results still reach the task list")

	pat.err = nil
	sinkErr := errors.New("task list offline")
	sink.err = sinkErr
	pat.tasks = []model.GeneratedTask{{PatternID: "p1", Text: "two"}}
	_, err = s.CheckPatterns(context.Background(), time.Now())
	require.ErrorIs(t, err, sinkErr)
}

func TestStartRunsImmediatePatternCheckAndIsIdempotent(t *testing.T) {
	s, _, pat, _, _ := newTestScheduler(t, Intervals{Reminders: time.Hour, Patterns: time.Hour})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.Running())
	assert.Equal(t, 1, pat.Calls())

	require.NoError(t, s.Start(ctx))
	assert.Equal(t, 1, pat.Calls(), "second Start must not check again")

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.Running())
	assert.Equal(t, 2, pat.Calls())
}

func TestStopWithoutStartIsSafe(t *testing.T) {
	s, _, _, _, _ := newTestScheduler(t, Intervals{})
	assert.NotPanics(t, s.Stop)
}

func TestReminderLoopFiresOnSchedule(t *testing.T) {
	s, rem, _, disp, _ := newTestScheduler(t, Intervals{Reminders: time.Second, Patterns: time.Hour})
	require.NoError(t, s.Start(context.Background()))

	rem.push(model.Reminder{ID: "tick"})
	require.Eventually(t, func() bool {
		return len(disp.IDs()) == 1
	}, 4*time.Second, 50*time.Millisecond)

	s.Stop()
	rem.push(model.Reminder{ID: "after-stop"})
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, []string{"tick"}, disp.IDs(), "no ticks after Stop")
}

func TestReconfigure(t *testing.T) {
	s, rem, _, disp, _ := newTestScheduler(t, Intervals{Reminders: time.Hour, Patterns: time.Hour})
	require.ErrorIs(t, s.Reconfigure(Intervals{Reminders: 10 * time.Millisecond}), ErrInvalidInterval)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Reconfigure(Intervals{Reminders: time.Second, Patterns: time.Hour}))
	assert.Equal(t, time.Second, s.Intervals().Reminders)
	assert.True(t, s.Running())

	rem.push(model.Reminder{ID: "fast"})
	require.Eventually(t, func() bool {
		return len(disp.IDs()) == 1
	}, 4*time.Second, 50*time.Millisecond)
}
