package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidReminderKind = errors.New("model: invalid reminder kind")

type ReminderKind string

const (
	ReminderManual   ReminderKind = "manual"
	ReminderDeadline ReminderKind = "deadline"
	ReminderSnoozed  ReminderKind = "snoozed"
)

func (k ReminderKind) IsValid() bool {
	switch k {
	case ReminderManual, ReminderDeadline, ReminderSnoozed:
		return true
	default:
		return false
	}
}

type Reminder struct {
	ID          string
	SubjectID   string
	Text        string
	TriggerAt   time.Time
	Kind        ReminderKind
	Priority    Priority
	Tags        []string
	CreatedAt   time.Time
	SnoozedAt   *time.Time
	SnoozeCount int
	Triggered   bool
	TriggeredAt *time.Time
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return required("id")
	}
	if strings.TrimSpace(r.SubjectID) == "" {
		return required("subject_id")
	}
	if strings.TrimSpace(r.Text) == "" {
		return required("text")
	}
	if r.TriggerAt.IsZero() {
		return required("trigger_at")
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidReminderKind, r.Kind)
	}
	return nil
}

// Active reports whether the reminder has yet to fire.
func (r Reminder) Active() bool { return !r.Triggered }

func (r Reminder) Clone() Reminder {
	out := r
	out.Tags = cloneStrings(r.Tags)
	out.SnoozedAt = clonePtr(r.SnoozedAt)
	out.TriggeredAt = clonePtr(r.TriggeredAt)
	return out
}
