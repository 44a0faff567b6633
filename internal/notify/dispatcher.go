package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sandeepkv93/cadence/internal/eventbus"
	"github.com/sandeepkv93/cadence/internal/logx"
	"github.com/sandeepkv93/cadence/internal/model"
)

const (
	ReasonDisabled    = "disabled"
	ReasonPermission  = "permission"
	ReasonRateLimited = "rate_limited"
	ReasonFailed      = "failed"
)

type Config struct {
	Enabled    bool
	RatePerSec int
}

// Dispatcher delivers fired reminders through the native facility and
// falls back to an in-app event on the bus when that is not possible.
type Dispatcher struct {
	native Native
	bus    eventbus.Bus
	log    logx.Logger

	mu        sync.Mutex
	cfg       Config
	limiter   *rate.Limiter
	perm      Permission
	permKnown bool
	onClick   func(model.Reminder)
}

func New(cfg Config, native Native, bus eventbus.Bus, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Dispatcher{
		native: native,
		bus:    bus,
		log:    log.With(logx.String("comp", "notify")),
	}
	d.applyLocked(cfg)
	return d
}

func (d *Dispatcher) Apply(cfg Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.applyLocked(cfg)
}

func (d *Dispatcher) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.Enabled && !d.cfg.Enabled {
		// Ask again: the facility may have changed while delivery was off.
		d.perm, d.permKnown = "", false
	}
	d.cfg = cfg
	d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// OnClick registers the callback run when a native notification is clicked.
func (d *Dispatcher) OnClick(fn func(model.Reminder)) {
	d.mu.Lock()
	d.onClick = fn
	d.mu.Unlock()
}

// Permission returns the native permission state, asking the facility the
// first time. Errors are not cached.
func (d *Dispatcher) Permission(ctx context.Context) Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permissionLocked(ctx)
}

func (d *Dispatcher) permissionLocked(ctx context.Context) Permission {
	if d.permKnown {
		return d.perm
	}
	if d.native == nil {
		return PermissionDenied
	}
	p, err := d.native.RequestPermission(ctx)
	if err != nil {
		d.log.Warn("notification permission request failed", logx.Err(err))
		return PermissionDenied
	}
	d.perm, d.permKnown = p, true
	d.log.Info("notification permission", logx.String("state", string(p)))
	return p
}

// Dispatch never fails: any problem with the native channel is turned into
// a notification.fallback event.
func (d *Dispatcher) Dispatch(ctx context.Context, r model.Reminder) {
	n := Format(r)

	d.mu.Lock()
	enabled := d.cfg.Enabled && d.native != nil
	var perm Permission
	allowed := false
	if enabled {
		perm = d.permissionLocked(ctx)
		if perm == PermissionGranted {
			allowed = d.limiter.Allow()
		}
	}
	d.mu.Unlock()

	switch {
	case !enabled:
		d.fallback(r, n, ReasonDisabled, nil)
		return
	case perm != PermissionGranted:
		d.fallback(r, n, ReasonPermission+":"+string(perm), nil)
		return
	case !allowed:
		d.fallback(r, n, ReasonRateLimited, nil)
		return
	}

	reminder := r.Clone()
	handle, err := d.native.Show(ctx, n, func() { d.clicked(reminder) })
	if err != nil {
		d.fallback(r, n, ReasonFailed, err)
		return
	}
	d.log.Debug("native notification shown", logx.String("reminder_id", r.ID), logx.String("handle", handle.ID))
	d.publish(eventbus.NotificationShown, notice(r, n, ""))
}

func (d *Dispatcher) clicked(r model.Reminder) {
	d.mu.Lock()
	fn := d.onClick
	d.mu.Unlock()
	if fn != nil {
		fn(r)
	}
}

func (d *Dispatcher) fallback(r model.Reminder, n Notification, reason string, err error) {
	fields := []logx.Field{logx.String("reminder_id", r.ID), logx.String("reason", reason)}
	if err != nil {
		d.log.Warn("native notification failed; using in-app fallback", append(fields, logx.Err(err))...)
	} else {
		d.log.Debug("using in-app notification", fields...)
	}
	d.publish(eventbus.NotificationFallback, notice(r, n, reason))
}

func (d *Dispatcher) publish(topic eventbus.Topic, n eventbus.Notice) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(eventbus.Event{Topic: topic, Time: time.Now(), Data: n})
}

func notice(r model.Reminder, n Notification, reason string) eventbus.Notice {
	return eventbus.Notice{
		ReminderID: r.ID,
		SubjectID:  r.SubjectID,
		Title:      n.Title,
		Body:       n.Body,
		Reason:     reason,
	}
}

// Format renders a reminder as a notification.
func Format(r model.Reminder) Notification {
	title := "Reminder"
	switch r.Kind {
	case model.ReminderDeadline:
		title = "Deadline approaching"
	case model.ReminderSnoozed:
		title = "Snoozed reminder"
	}
	if r.Priority == model.PriorityHigh || r.Priority == model.PriorityCritical {
		title = fmt.Sprintf("%s [%s]", title, r.Priority)
	}

	body := r.Text
	var extra []string
	if r.SnoozeCount > 0 {
		extra = append(extra, fmt.Sprintf("snoozed %dx", r.SnoozeCount))
	}
	if len(r.Tags) > 0 {
		extra = append(extra, "#"+strings.Join(r.Tags, " #"))
	}
	if len(extra) > 0 {
		body += " (" + strings.Join(extra, ", ") + ")"
	}
	return Notification{Title: title, Body: body}
}
