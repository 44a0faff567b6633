package storage

import (
	"context"
	"errors"

	"github.com/sandeepkv93/cadence/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

// Repository is the persistent store behind the pattern and reminder stores
// and the task list. Entity lists are loaded and saved whole.
type Repository interface {
	LoadPatterns(ctx context.Context) ([]model.Pattern, error)
	SavePatterns(ctx context.Context, items []model.Pattern) error

	LoadReminders(ctx context.Context) ([]model.Reminder, error)
	SaveReminders(ctx context.Context, items []model.Reminder) error

	CreateTask(ctx context.Context, in model.Task) error
	GetTask(ctx context.Context, id string) (model.Task, error)
	UpdateTask(ctx context.Context, in model.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error)

	Close() error
}

type TaskListFilter struct {
	State     model.TaskState
	PatternID string
	Limit     int
	Offset    int
}
