package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/cadence/internal/eventbus"
	"github.com/sandeepkv93/cadence/internal/logx"
	"github.com/sandeepkv93/cadence/internal/model"
)

type fakeNative struct {
	mu       sync.Mutex
	perm     Permission
	permErr  error
	showErr  error
	requests int
	shown    []Notification
	clicks   []func()
}

func (f *fakeNative) RequestPermission(context.Context) (Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return f.perm, f.permErr
}

func (f *fakeNative) Show(_ context.Context, n Notification, onClick func()) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.showErr != nil {
		return Handle{}, f.showErr
	}
	f.shown = append(f.shown, n)
	f.clicks = append(f.clicks, onClick)
	return Handle{ID: "h1"}, nil
}

func nextEvent(t *testing.T, ch <-chan eventbus.Event) eventbus.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		return eventbus.Event{}
	}
}

func setup(t *testing.T, cfg Config, native Native) (*Dispatcher, <-chan eventbus.Event) {
	t.Helper()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	t.Cleanup(unsub)
	return New(cfg, native, bus, logx.Nop()), ch
}

func reminder(id string) model.Reminder {
	return model.Reminder{ID: id, SubjectID: "task-" + id, Text: "Stand up", Kind: model.ReminderManual, Priority: model.PriorityMedium}
}

func TestDispatchShowsNativeWhenGranted(t *testing.T) {
	native := &fakeNative{perm: PermissionGranted}
	d, events := setup(t, Config{Enabled: true, RatePerSec: 10}, native)

	var clicked []string
	d.OnClick(func(r model.Reminder) { clicked = append(clicked, r.ID) })

	d.Dispatch(context.Background(), reminder("r1"))

	require.Len(t, native.shown, 1)
	assert.Equal(t, "Reminder", native.shown[0].Title)
	ev := nextEvent(t, events)
	assert.Equal(t, eventbus.NotificationShown, ev.Topic)
	assert.Equal(t, "r1", ev.Data.(eventbus.Notice).ReminderID)

	native.clicks[0]()
	assert.Equal(t, []string{"r1"}, clicked)
}

func TestDispatchFallsBackWhenPermissionNotGranted(t *testing.T) {
	for _, perm := range []Permission{PermissionDenied, PermissionDefault} {
		native := &fakeNative{perm: perm}
		d, events := setup(t, Config{Enabled: true}, native)

		d.Dispatch(context.Background(), reminder("a"))
		d.Dispatch(context.Background(), reminder("b"))

		assert.Empty(t, native.shown)
		assert.Equal(t, 1, native.requests, "permission is requested once and cached")
		for _, id := range []string{"a", "b"} {
			ev := nextEvent(t, events)
			assert.Equal(t, eventbus.NotificationFallback, ev.Topic)
			n := ev.Data.(eventbus.Notice)
			assert.Equal(t, id, n.ReminderID)
			assert.Equal(t, ReasonPermission+":"+string(perm), n.Reason)
		}
	}
}

func TestDispatchFallsBackOnShowFailure(t *testing.T) {
	native := &fakeNative{perm: PermissionGranted, showErr: errors.New("dbus unavailable")}
	d, events := setup(t, Config{Enabled: true}, native)

	assert.NotPanics(t, func() { d.Dispatch(context.Background(), reminder("r1")) })
	ev := nextEvent(t, events)
	assert.Equal(t, eventbus.NotificationFallback, ev.Topic)
	assert.Equal(t, ReasonFailed, ev.Data.(eventbus.Notice).Reason)
}

func TestDispatchDisabledNeverTouchesNative(t *testing.T) {
	native := &fakeNative{perm: PermissionGranted}
	d, events := setup(t, Config{Enabled: false}, native)

	d.Dispatch(context.Background(), reminder("r1"))
	assert.Zero(t, native.requests)
	assert.Equal(t, ReasonDisabled, nextEvent(t, events).Data.(eventbus.Notice).Reason)

	d2, events2 := setup(t, Config{Enabled: true}, nil)
	d2.Dispatch(context.Background(), reminder("r2"))
	assert.Equal(t, eventbus.NotificationFallback, nextEvent(t, events2).Topic)
}

func TestApplyReenableAsksPermissionAgain(t *testing.T) {
	ctx := context.Background()
	native := &fakeNative{perm: PermissionDenied}
	d, events := setup(t, Config{Enabled: true, RatePerSec: 10}, native)

	d.Dispatch(ctx, reminder("r1"))
	assert.Equal(t, ReasonPermission+":"+string(PermissionDenied), nextEvent(t, events).Data.(eventbus.Notice).Reason)

	d.Apply(Config{Enabled: false})
	native.mu.Lock()
	native.perm = PermissionGranted
	native.mu.Unlock()
	d.Dispatch(ctx, reminder("r2"))
	assert.Equal(t, ReasonDisabled, nextEvent(t, events).Data.(eventbus.Notice).Reason)

	d.Apply(Config{Enabled: true, RatePerSec: 10})
	d.Dispatch(ctx, reminder("r3"))
	assert.Equal(t, eventbus.NotificationShown, nextEvent(t, events).Topic)
	require.Len(t, native.shown, 1)
	assert.Equal(t, 2, native.requests)

	d.Apply(Config{Enabled: true, RatePerSec: 5})
	d.Dispatch(ctx, reminder("r4"))
	assert.Equal(t, eventbus.NotificationShown, nextEvent(t, events).Topic)
	assert.Equal(t, 2, native.requests)
}

func TestDispatchRateLimitFallsBack(t *testing.T) {
	native := &fakeNative{perm: PermissionGranted}
	d, events := setup(t, Config{Enabled: true, RatePerSec: 1}, native)

	d.Dispatch(context.Background(), reminder("first"))
	d.Dispatch(context.Background(), reminder("second"))

	assert.Len(t, native.shown, 1)
	assert.Equal(t, eventbus.NotificationShown, nextEvent(t, events).Topic)
	ev := nextEvent(t, events)
	assert.Equal(t, eventbus.NotificationFallback, ev.Topic)
	assert.Equal(t, ReasonRateLimited, ev.Data.(eventbus.Notice).Reason)
}

func TestPermissionErrorIsRetried(t *testing.T) {
	native := &fakeNative{permErr: errors.New("portal timeout")}
	d, _ := setup(t, Config{Enabled: true}, native)

	assert.Equal(t, PermissionDenied, d.Permission(context.Background()))
	native.mu.Lock()
	native.permErr = nil
	native.perm = PermissionGranted
	native.mu.Unlock()
	assert.Equal(t, PermissionGranted, d.Permission(context.Background()))
	assert.Equal(t, 2, native.requests)
}

func TestFormat(t *testing.T) {
	n := Format(model.Reminder{
		Text:        "Ship release",
		Kind:        model.ReminderSnoozed,
		Priority:    model.PriorityCritical,
		Tags:        []string{"work", "release"},
		SnoozeCount: 2,
	})
	assert.Equal(t, "Snoozed reminder [Critical]", n.Title)
	assert.Equal(t, "Ship release (snoozed 2x, #work #release)", n.Body)

	n = Format(model.Reminder{Text: "Pay", Kind: model.ReminderDeadline, Priority: model.PriorityLow})
	assert.Equal(t, "Deadline approaching", n.Title)
	assert.Equal(t, "Pay", n.Body)
}
