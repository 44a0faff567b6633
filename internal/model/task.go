package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidState    = errors.New("model: invalid task state")
	ErrInvalidPriority = errors.New("model: invalid task priority")
)

type TaskState string

const (
	TaskStatePlanned TaskState = "Planned"
	TaskStateDone    TaskState = "Done"
)

func (s TaskState) IsValid() bool {
	switch s {
	case TaskStatePlanned, TaskStateDone:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// ParsePriority accepts any casing of the known priorities; empty means Medium.
func ParsePriority(raw string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
}

// GeneratedTask is the snapshot handed to the task list when a pattern
// materializes.
type GeneratedTask struct {
	PatternID    string
	Text         string
	Tags         []string
	Priority     Priority
	SourceTag    string
	DueDate      time.Time
	OccurrenceAt time.Time
	Sequence     int
}

// Subject is the read-only view of the entity a reminder concerns.
type Subject struct {
	ID       string
	Text     string
	DueAt    *time.Time
	Priority Priority
	Tags     []string
}

// Task is a task-list entry, usually produced from a GeneratedTask.
type Task struct {
	ID          string
	PatternID   string
	Title       string
	State       TaskState
	Priority    Priority
	Tags        []string
	DueAt       *time.Time
	CreatedAt   time.Time
	CompletedAt *time.Time
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if !t.State.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, t.State)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	if t.State == TaskStateDone && t.CompletedAt == nil {
		return errors.New("model: completed_at is required when task state is Done")
	}
	if t.State != TaskStateDone && t.CompletedAt != nil {
		return errors.New("model: completed_at must be nil when task state is not Done")
	}
	return nil
}

// Subject returns the reminder-facing view of the task.
func (t Task) Subject() Subject {
	return Subject{
		ID:       t.ID,
		Text:     t.Title,
		DueAt:    clonePtr(t.DueAt),
		Priority: t.Priority,
		Tags:     cloneStrings(t.Tags),
	}
}

// Generated rebuilds the materialization snapshot a task came from.
func (t Task) Generated() GeneratedTask {
	out := GeneratedTask{
		PatternID: t.PatternID,
		Text:      t.Title,
		Tags:      cloneStrings(t.Tags),
		Priority:  t.Priority,
	}
	if t.DueAt != nil {
		out.DueDate = *t.DueAt
		out.OccurrenceAt = *t.DueAt
	}
	return out
}
