package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/veranemoloko/video-downloader/internal/domain"
	"github.com/veranemoloko/video-downloader/internal/engine"
	errpkg "github.com/veranemoloko/video-downloader/internal/errors"
	"github.com/veranemoloko/video-downloader/internal/metrics"
	repo "github.com/veranemoloko/video-downloader/internal/repository"
	"github.com/veranemoloko/video-downloader/internal/storage"
)

var (
	errEnginePanic = errors.New("extraction engine panicked")
	errEmptyResult = errors.New("extraction engine returned no file")
	errMissingFile = errors.New("extraction engine reported a file that does not exist")
)

// Job is one queued extraction.
type Job struct {
	TaskID       string
	URL          string
	DownloadType domain.DownloadType
	Quality      domain.Quality
}

// DownloadWorker runs a single job through the task state machine:
// initiated -> processing -> completed | failed.
type DownloadWorker struct {
	taskRepo    repo.TaskRepo
	engine      engine.Engine
	fileStorage *storage.FileStorage
	timeout     time.Duration
	retention   time.Duration
	policy      domain.ExpiryPolicy
	logger      *slog.Logger
	now         func() time.Time
}

// NewDownloadWorker creates a DownloadWorker. Every engine call is bounded by timeout
// and by the task's own expiry, whichever comes first.
func NewDownloadWorker(
	taskRepo repo.TaskRepo,
	eng engine.Engine,
	fileStorage *storage.FileStorage,
	timeout, retention time.Duration,
	policy domain.ExpiryPolicy,
	logger *slog.Logger,
) *DownloadWorker {
	return &DownloadWorker{
		taskRepo:    taskRepo,
		engine:      eng,
		fileStorage: fileStorage,
		timeout:     timeout,
		retention:   retention,
		policy:      policy,
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock replaces the time source.
func (w *DownloadWorker) SetClock(now func() time.Time) {
	w.now = now
}

// Process executes job. It never returns an error: every outcome is written to
// the registry, and a job whose task has disappeared is dropped.
func (w *DownloadWorker) Process(ctx context.Context, job Job) {
	// Registry writes must land even if the pool is being torn down.
	writeCtx := context.WithoutCancel(ctx)

	task, err := w.taskRepo.UpdateTask(writeCtx, job.TaskID, func(t *domain.Task) error {
		return t.MarkProcessing(w.now())
	})
	if err != nil {
		if errors.Is(err, errpkg.ErrTaskNotFound) {
			w.logger.Info("task removed before processing, dropping job", "task_id", job.TaskID)
			metrics.TasksDiscarded.Inc()
			return
		}
		w.logger.Error("failed to mark task processing", "task_id", job.TaskID, "error", err)
		return
	}

	w.logger.Info("processing task", "task_id", job.TaskID, "url", job.URL, "type", job.DownloadType, "quality", job.Quality)

	metrics.TasksInFlight.Inc()
	defer metrics.TasksInFlight.Dec()

	deadline := w.now().Add(w.timeout)
	if task.ExpiresAt.Before(deadline) {
		deadline = task.ExpiresAt
	}

	start := time.Now()
	result, err := w.extract(ctx, job, deadline)
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		w.fail(writeCtx, job, err)
		return
	}
	w.complete(writeCtx, job, result)
}

type outcome struct {
	result *engine.Result
	err    error
}

// extract calls the engine off the caller's goroutine so that an engine that
// ignores its context still cannot hold the task past the deadline.
func (w *DownloadWorker) extract(ctx context.Context, job Job, deadline time.Time) (*engine.Result, error) {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	req := engine.Request{
		URL:          job.URL,
		DownloadType: job.DownloadType,
		Quality:      job.Quality,
		OutputDir:    w.fileStorage.Dir(),
		FilePrefix:   domain.FilePrefix(job.TaskID),
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", errEnginePanic, r)}
			}
		}()
		res, err := w.engine.Extract(ctx, req)
		done <- outcome{result: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		if o.result == nil || o.result.Filename == "" {
			return nil, errEmptyResult
		}
		if !w.fileStorage.FileExists(o.result.Filename) {
			return nil, fmt.Errorf("%w: %s", errMissingFile, o.result.Filename)
		}
		return o.result, nil
	case <-ctx.Done():
		go w.discardLate(job.TaskID, done)
		return nil, ctx.Err()
	}
}

// discardLate waits for an abandoned engine call and removes whatever it wrote.
func (w *DownloadWorker) discardLate(taskID string, done <-chan outcome) {
	o := <-done
	if o.err == nil && o.result != nil && o.result.Filename != "" {
		w.removeOutput(taskID, o.result.Filename)
	}
}

func (w *DownloadWorker) complete(ctx context.Context, job Job, result *engine.Result) {
	media := domain.MediaInfo{
		Filename:  result.Filename,
		Title:     result.Title,
		Duration:  result.Duration,
		Format:    result.Format,
		Thumbnail: result.Thumbnail,
		SourceURL: result.SourceURL,
	}
	if media.SourceURL == "" {
		media.SourceURL = job.URL
	}

	finished := w.now()
	task, err := w.taskRepo.UpdateTask(ctx, job.TaskID, func(t *domain.Task) error {
		if err := t.MarkCompleted(media, finished); err != nil {
			return err
		}
		if w.policy == domain.ExpiryFromCompletion {
			t.ExpiresAt = finished.Add(w.retention)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errpkg.ErrTaskNotFound) {
			w.logger.Info("task removed while downloading, discarding result", "task_id", job.TaskID, "filename", result.Filename)
			metrics.TasksDiscarded.Inc()
		} else {
			w.logger.Error("failed to mark task completed", "task_id", job.TaskID, "error", err)
		}
		w.removeOutput(job.TaskID, result.Filename)
		return
	}

	metrics.TasksCompleted.Inc()
	var size int64
	if info, err := w.fileStorage.Stat(media.Filename); err == nil {
		size = info.Size
		metrics.DownloadBytes.Add(float64(size))
	}
	w.logger.Info("task completed", "task_id", job.TaskID, "filename", media.Filename, "title", media.Title, "bytes", size, "expires_at", task.ExpiresAt)
}

func (w *DownloadWorker) fail(ctx context.Context, job Job, cause error) {
	failure := engine.Classify(cause)
	if errors.Is(cause, errEnginePanic) || errors.Is(cause, errEmptyResult) || errors.Is(cause, errMissingFile) {
		failure = engine.UnexpectedFailure
	}

	finished := w.now()
	_, err := w.taskRepo.UpdateTask(ctx, job.TaskID, func(t *domain.Task) error {
		if err := t.MarkFailed(string(failure.Category), failure.Message, failure.Suggestion, finished); err != nil {
			return err
		}
		if w.policy == domain.ExpiryFromCompletion {
			t.ExpiresAt = finished.Add(w.retention)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errpkg.ErrTaskNotFound) {
			w.logger.Info("task removed while downloading, discarding failure", "task_id", job.TaskID)
			metrics.TasksDiscarded.Inc()
			return
		}
		w.logger.Error("failed to mark task failed", "task_id", job.TaskID, "error", err)
		return
	}

	metrics.TasksFailed.WithLabelValues(string(failure.Category)).Inc()
	w.logger.Warn("task failed", "task_id", job.TaskID, "category", failure.Category, "error", cause)
}

// removeOutput deletes the reported file and anything else written under the task prefix.
func (w *DownloadWorker) removeOutput(taskID, filename string) {
	if _, err := w.fileStorage.Delete(filename); err != nil {
		w.logger.Error("failed to remove discarded file", "task_id", taskID, "filename", filename, "error", err)
	}
	files, err := w.fileStorage.List()
	if err != nil {
		w.logger.Error("failed to list storage for discarded task", "task_id", taskID, "error", err)
		return
	}
	for _, f := range files {
		if domain.FileOwner(f.Name) != taskID {
			continue
		}
		if _, err := w.fileStorage.Delete(f.Name); err != nil {
			w.logger.Error("failed to remove discarded file", "task_id", taskID, "filename", f.Name, "error", err)
		}
	}
}
