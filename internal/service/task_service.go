package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/veranemoloko/video-downloader/internal/domain"
	errpkg "github.com/veranemoloko/video-downloader/internal/errors"
	repo "github.com/veranemoloko/video-downloader/internal/repository"
	"github.com/veranemoloko/video-downloader/internal/storage"
)

const downloadPath = "/api/v1/download/"

// DownloadURL is the retrieval path of a task's file.
func DownloadURL(taskID string) string {
	return downloadPath + taskID
}

// FileHandle is an open, ready-to-serve result file. The caller must Close it.
type FileHandle struct {
	Name        string
	Path        string
	ContentType string
	Size        int64
	ModTime     time.Time
	File        *os.File
}

// Close closes the underlying file.
func (h *FileHandle) Close() error {
	return h.File.Close()
}

// HealthReport summarizes service liveness.
type HealthReport struct {
	Status                       string    `json:"status"`
	SchedulerStatus              string    `json:"scheduler_status"`
	DownloadsDirectoryAccessible bool      `json:"downloads_directory_accessible"`
	CurrentFilesCount            int       `json:"current_files_count"`
	ActiveTasks                  int       `json:"active_tasks"`
	Version                      string    `json:"version"`
	Timestamp                    time.Time `json:"timestamp"`
}

// TaskService answers status and retrieval queries against the registry.
type TaskService struct {
	taskRepo    repo.TaskRepo
	fileStorage *storage.FileStorage
	cleanup     *CleanupService
	logger      *slog.Logger
	now         func() time.Time
}

func NewTaskService(
	taskRepo repo.TaskRepo,
	fileStorage *storage.FileStorage,
	cleanup *CleanupService,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		fileStorage: fileStorage,
		cleanup:     cleanup,
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock replaces the time source used for expiry checks.
func (s *TaskService) SetClock(now func() time.Time) {
	s.now = now
}

// GetStatus returns a snapshot of the task. An expired task is reported as gone
// even if the reaper has not removed it yet.
func (s *TaskService) GetStatus(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.taskRepo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.IsExpired(s.now()) {
		return nil, errpkg.ErrTaskGone
	}
	return task, nil
}

// GetFile opens the result file of a completed task.
func (s *TaskService) GetFile(ctx context.Context, id string) (*FileHandle, error) {
	task, err := s.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	switch task.Status {
	case domain.TaskStatusFailed:
		return nil, &errpkg.TaskFailedError{Category: task.ErrorCategory, Message: task.Message}
	case domain.TaskStatusInitiated, domain.TaskStatusProcessing:
		return nil, errpkg.ErrTaskNotReady
	}

	if task.Media == nil || task.Media.Filename == "" {
		return nil, errpkg.ErrTaskGone
	}

	name := task.Media.Filename
	path := s.fileStorage.Path(name)
	file, err := s.fileStorage.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("completed task file missing", "task_id", id, "filename", name)
			return nil, fmt.Errorf("%w: file %s no longer exists", errpkg.ErrTaskGone, name)
		}
		return nil, &errpkg.StorageError{Op: "open", Path: path, Err: err}
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &errpkg.StorageError{Op: "stat", Path: path, Err: err}
	}

	contentType := "application/octet-stream"
	if mtype, err := mimetype.DetectFile(path); err == nil {
		contentType = mtype.String()
	}

	return &FileHandle{
		Name:        name,
		Path:        path,
		ContentType: contentType,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		File:        file,
	}, nil
}

// TriggerCleanup runs a sweep now.
func (s *TaskService) TriggerCleanup(ctx context.Context) (CleanupSummary, error) {
	return s.cleanup.RunOnce(ctx)
}

// CleanupStats reports storage and scheduler state.
func (s *TaskService) CleanupStats(ctx context.Context) (CleanupStats, error) {
	return s.cleanup.Stats(ctx)
}

// Health reports whether the scheduler runs and the download directory is usable.
func (s *TaskService) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:                       "healthy",
		SchedulerStatus:              "stopped",
		DownloadsDirectoryAccessible: s.fileStorage.Accessible(),
		ActiveTasks:                  s.taskRepo.Count(),
		Timestamp:                    s.now(),
	}
	if s.cleanup.Running() {
		report.SchedulerStatus = "running"
	}
	if files, err := s.fileStorage.List(); err == nil {
		report.CurrentFilesCount = len(files)
	}
	if !report.DownloadsDirectoryAccessible {
		report.Status = "degraded"
	}
	return report
}
