package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/veranemoloko/video-downloader/internal/domain"
	errpkg "github.com/veranemoloko/video-downloader/internal/errors"
)

// TaskStorage is the in-memory task registry. Stored records are never
// exposed; every read and write goes through a copy.
type TaskStorage struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

// NewTaskStorage creates an empty TaskStorage.
func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		tasks: make(map[string]*domain.Task),
	}
}

// CreateTask stores a copy of task. It fails with ErrDuplicateID if the id is taken.
func (r *TaskStorage) CreateTask(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[task.ID]; exists {
		return fmt.Errorf("%w: %s", errpkg.ErrDuplicateID, task.ID)
	}
	r.tasks[task.ID] = task.Clone()

	slog.Debug("task created", "task_id", task.ID)
	return nil
}

// GetTask returns a copy of the task with the given id.
func (r *TaskStorage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	task, exists := r.tasks[id]
	r.mu.RUnlock()

	if !exists {
		return nil, errpkg.ErrTaskNotFound
	}
	return task.Clone(), nil
}

// UpdateTask applies mutate to a copy of the stored task under the write lock
// and stores the result only if mutate succeeds. The updated copy is returned.
func (r *TaskStorage) UpdateTask(ctx context.Context, id string, mutate Mutator) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.tasks[id]
	if !exists {
		return nil, errpkg.ErrTaskNotFound
	}

	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	r.tasks[id] = next

	slog.Debug("task updated", "task_id", id, "status", next.Status)
	return next.Clone(), nil
}

// DeleteTask removes the task. Deleting a missing id is not an error.
func (r *TaskStorage) DeleteTask(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.tasks, id)
	r.mu.Unlock()

	return nil
}

// ListTasks returns a snapshot of all tasks.
func (r *TaskStorage) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*domain.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, task.Clone())
	}
	return tasks, nil
}

// Count returns the number of stored tasks.
func (r *TaskStorage) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
