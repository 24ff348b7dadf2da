package repository

import (
	"context"

	"github.com/veranemoloko/video-downloader/internal/domain"
)

// Mutator applies a state change to a task copy. Returning an error discards the change.
type Mutator func(task *domain.Task) error

// TaskRepo defines the interface for task registry operations.
type TaskRepo interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	UpdateTask(ctx context.Context, id string, mutate Mutator) (*domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context) ([]*domain.Task, error)
	Count() int
}
