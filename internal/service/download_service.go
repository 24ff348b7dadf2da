package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veranemoloko/video-downloader/internal/config"
	"github.com/veranemoloko/video-downloader/internal/domain"
	errpkg "github.com/veranemoloko/video-downloader/internal/errors"
	"github.com/veranemoloko/video-downloader/internal/metrics"
	repo "github.com/veranemoloko/video-downloader/internal/repository"
	"github.com/veranemoloko/video-downloader/internal/validation"
	"github.com/veranemoloko/video-downloader/internal/worker"
)

// JobProcessor executes a queued job to a terminal state.
type JobProcessor interface {
	Process(ctx context.Context, job worker.Job)
}

// DownloadService accepts submissions and feeds them to a fixed worker pool.
type DownloadService struct {
	taskRepo      repo.TaskRepo
	processor     JobProcessor
	cfg           *config.Config
	logger        *slog.Logger
	now           func() time.Time
	downloadQueue chan worker.Job
	wg            sync.WaitGroup

	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
}

// NewDownloadService creates a new DownloadService with a worker pool to process downloads.
func NewDownloadService(taskRepo repo.TaskRepo, processor JobProcessor, cfg *config.Config, logger *slog.Logger) *DownloadService {
	ctx, cancel := context.WithCancel(context.Background())
	service := &DownloadService{
		taskRepo:      taskRepo,
		processor:     processor,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
		downloadQueue: make(chan worker.Job, cfg.QueueSize),
		cancel:        cancel,
	}

	for i := 0; i < cfg.WorkerPoolSize; i++ {
		service.wg.Add(1)
		go func(workerID int) {
			defer service.wg.Done()
			for job := range service.downloadQueue {
				logger.Debug("worker picked up job", "worker_id", workerID, "task_id", job.TaskID)
				service.processor.Process(ctx, job)
			}
		}(i + 1)
	}

	logger.Info("download service started", "workers", cfg.WorkerPoolSize, "queue_size", cfg.QueueSize)
	return service
}

// SetClock replaces the time source used to stamp new tasks.
func (s *DownloadService) SetClock(now func() time.Time) {
	s.now = now
}

// Submit validates req, registers an initiated task and queues it. It returns
// before any extraction work starts.
func (s *DownloadService) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Task, error) {
	if req.DownloadType == "" {
		req.DownloadType = domain.DownloadTypeSingle
	}
	if req.Quality == "" {
		req.Quality = domain.QualityHigh
	}

	if err := validation.ValidateSubmit(req); err != nil {
		metrics.TasksRejected.WithLabelValues("validation").Inc()
		return nil, err
	}

	if s.cfg.StrictPlatforms {
		if _, ok := validation.DetectPlatform(req.URL); !ok {
			metrics.TasksRejected.WithLabelValues("unsupported_platform").Inc()
			return nil, &errpkg.ValidationError{Field: "url", Reason: validation.UnsupportedPlatformMessage}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.TasksRejected.WithLabelValues("closed").Inc()
		return nil, errpkg.ErrServiceClosed
	}

	task := domain.NewTask(uuid.NewString(), req.URL, req.DownloadType, req.Quality, s.now(), s.cfg.RetentionWindow)
	if err := s.taskRepo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to register task: %w", err)
	}

	job := worker.Job{TaskID: task.ID, URL: task.URL, DownloadType: task.DownloadType, Quality: task.Quality}
	select {
	case s.downloadQueue <- job:
	default:
		if err := s.taskRepo.DeleteTask(context.WithoutCancel(ctx), task.ID); err != nil {
			s.logger.Error("failed to remove unqueued task", "task_id", task.ID, "error", err)
		}
		metrics.TasksRejected.WithLabelValues("queue_full").Inc()
		s.logger.Warn("download queue full, rejecting task", "url", req.URL, "queue_size", cap(s.downloadQueue))
		return nil, errpkg.ErrQueueFull
	}

	metrics.TasksSubmitted.Inc()
	s.logger.Info("task submitted", "task_id", task.ID, "url", task.URL, "type", task.DownloadType, "quality", task.Quality)
	return task, nil
}

// Shutdown stops accepting submissions and waits for queued and running jobs.
// When ctx expires first, running jobs are canceled and ctx's error is returned.
func (s *DownloadService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.downloadQueue)
	s.mu.Unlock()

	s.logger.Info("shutting down download service", "pending", len(s.downloadQueue))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.logger.Info("download service shutdown completed")
		return nil
	case <-ctx.Done():
		s.cancel()
		s.logger.Warn("download service shutdown timed out, canceling running jobs")
		return ctx.Err()
	}
}
