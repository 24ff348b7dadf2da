package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/veranemoloko/video-downloader/internal/domain"
	"github.com/veranemoloko/video-downloader/internal/metrics"
	repo "github.com/veranemoloko/video-downloader/internal/repository"
	"github.com/veranemoloko/video-downloader/internal/storage"
)

// CleanupSummary reports what one sweep removed.
type CleanupSummary struct {
	RecordsRemoved int       `json:"records_removed"`
	FilesRemoved   int       `json:"files_removed"`
	OrphansRemoved int       `json:"orphans_removed"`
	BytesFreed     int64     `json:"bytes_freed"`
	Errors         int       `json:"errors"`
	StartedAt      time.Time `json:"started_at"`
	DurationMS     int64     `json:"duration_ms"`
}

// CleanupStats describes the current storage and scheduler state.
type CleanupStats struct {
	CurrentFiles     int             `json:"current_files"`
	TotalStatuses    int             `json:"total_statuses"`
	RetentionWindow  string          `json:"retention_window"`
	CleanupInterval  string          `json:"cleanup_interval"`
	SchedulerRunning bool            `json:"scheduler_running"`
	LastSweep        *CleanupSummary `json:"last_sweep,omitempty"`
}

// CleanupService removes expired task records, their files, and orphaned files.
type CleanupService struct {
	taskRepo    repo.TaskRepo
	fileStorage *storage.FileStorage
	retention   time.Duration
	period      time.Duration
	logger      *slog.Logger
	now         func() time.Time

	group   singleflight.Group
	cron    *cron.Cron
	running atomic.Bool

	mu   sync.Mutex
	last *CleanupSummary
}

// NewCleanupService creates a CleanupService. Files with no live owner are
// removed once they are older than retention.
func NewCleanupService(
	taskRepo repo.TaskRepo,
	fileStorage *storage.FileStorage,
	retention, period time.Duration,
	logger *slog.Logger,
) *CleanupService {
	return &CleanupService{
		taskRepo:    taskRepo,
		fileStorage: fileStorage,
		retention:   retention,
		period:      period,
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock replaces the time source.
func (s *CleanupService) SetClock(now func() time.Time) {
	s.now = now
}

// Start schedules a sweep every period. Sweeps never overlap.
func (s *CleanupService) Start(ctx context.Context) error {
	logger := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	spec := "@every " + s.period.String()
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("scheduled cleanup failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule cleanup %q: %w", spec, err)
	}

	s.cron.Start()
	s.running.Store(true)
	s.logger.Info("cleanup scheduler started", "period", s.period, "retention", s.retention)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish or ctx to expire.
func (s *CleanupService) Stop(ctx context.Context) error {
	if s.cron == nil || !s.running.Swap(false) {
		return nil
	}

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("cleanup scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("cleanup scheduler stop timed out")
		return ctx.Err()
	}
}

// Running reports whether the scheduler is active.
func (s *CleanupService) Running() bool {
	return s.running.Load()
}

// RunOnce performs a sweep. Concurrent callers share the sweep already in flight.
// The shared sweep outlives any single caller: canceling ctx only stops this
// caller from waiting. A ctx that is already done never starts a sweep.
func (s *CleanupService) RunOnce(ctx context.Context) (CleanupSummary, error) {
	if err := ctx.Err(); err != nil {
		return CleanupSummary{}, err
	}

	sweepCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("sweep", func() (any, error) {
		return s.sweep(sweepCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("joined in-flight cleanup sweep")
		}
		summary, _ := res.Val.(CleanupSummary)
		return summary, res.Err
	case <-ctx.Done():
		s.logger.Warn("stopped waiting for cleanup sweep", "error", ctx.Err())
		return CleanupSummary{}, ctx.Err()
	}
}

func (s *CleanupService) sweep(ctx context.Context) (summary CleanupSummary, err error) {
	now := s.now()
	start := time.Now()
	summary.StartedAt = now

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup panicked: %v", r)
		}
		summary.DurationMS = time.Since(start).Milliseconds()
		metrics.CleanupDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.CleanupSweepFailures.Inc()
		}
		s.remember(summary)
	}()

	tasks, err := s.taskRepo.ListTasks(ctx)
	if err != nil {
		return summary, fmt.Errorf("list tasks: %w", err)
	}
	files, err := s.fileStorage.List()
	if err != nil {
		return summary, fmt.Errorf("list files: %w", err)
	}

	sizes := make(map[string]int64, len(files))
	owned := make(map[string][]string)
	for _, f := range files {
		sizes[f.Name] = f.Size
		if owner := domain.FileOwner(f.Name); owner != "" {
			owned[owner] = append(owned[owner], f.Name)
		}
	}

	live := make(map[string]struct{})
	liveFiles := make(map[string]struct{})
	handled := make(map[string]struct{})

	for _, task := range tasks {
		if !task.IsExpired(now) {
			live[task.ID] = struct{}{}
			if task.Media != nil {
				liveFiles[task.Media.Filename] = struct{}{}
			}
			continue
		}

		names := owned[task.ID]
		if task.Media != nil && task.Media.Filename != "" && !slices.Contains(names, task.Media.Filename) {
			names = append(names, task.Media.Filename)
		}

		clean := true
		for _, name := range names {
			handled[name] = struct{}{}
			removed, err := s.fileStorage.Delete(name)
			if err != nil {
				s.logger.Error("failed to delete expired file", "task_id", task.ID, "filename", name, "error", err)
				summary.Errors++
				metrics.CleanupErrors.Inc()
				clean = false
				continue
			}
			if removed {
				summary.FilesRemoved++
				summary.BytesFreed += sizes[name]
				metrics.CleanupFilesRemoved.WithLabelValues("expired").Inc()
				metrics.CleanupBytesFreed.Add(float64(sizes[name]))
			}
		}

		// Keep the record so the next sweep retries its files.
		if !clean {
			continue
		}

		if err := s.taskRepo.DeleteTask(ctx, task.ID); err != nil {
			s.logger.Error("failed to delete expired task", "task_id", task.ID, "error", err)
			summary.Errors++
			metrics.CleanupErrors.Inc()
			continue
		}
		summary.RecordsRemoved++
		metrics.CleanupRecordsRemoved.Inc()
		s.logger.Debug("expired task removed", "task_id", task.ID, "status", task.Status)
	}

	cutoff := now.Add(-s.retention)
	for _, f := range files {
		if _, ok := handled[f.Name]; ok {
			continue
		}
		if _, ok := liveFiles[f.Name]; ok {
			continue
		}
		if _, ok := live[domain.FileOwner(f.Name)]; ok {
			continue
		}
		if f.ModTime.After(cutoff) {
			continue
		}

		removed, err := s.fileStorage.Delete(f.Name)
		if err != nil {
			s.logger.Error("failed to delete orphaned file", "filename", f.Name, "error", err)
			summary.Errors++
			metrics.CleanupErrors.Inc()
			continue
		}
		if removed {
			summary.OrphansRemoved++
			summary.BytesFreed += f.Size
			metrics.CleanupFilesRemoved.WithLabelValues("orphan").Inc()
			metrics.CleanupBytesFreed.Add(float64(f.Size))
		}
	}

	s.logger.Info("cleanup completed",
		"records_removed", summary.RecordsRemoved,
		"files_removed", summary.FilesRemoved,
		"orphans_removed", summary.OrphansRemoved,
		"bytes_freed", summary.BytesFreed,
		"errors", summary.Errors,
	)
	return summary, nil
}

func (s *CleanupService) remember(summary CleanupSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &summary
}

// Stats reports file and registry counts plus scheduler settings.
func (s *CleanupService) Stats(ctx context.Context) (CleanupStats, error) {
	if err := ctx.Err(); err != nil {
		return CleanupStats{}, err
	}
	files, err := s.fileStorage.List()
	if err != nil {
		return CleanupStats{}, fmt.Errorf("list files: %w", err)
	}

	stats := CleanupStats{
		CurrentFiles:     len(files),
		TotalStatuses:    s.taskRepo.Count(),
		RetentionWindow:  s.retention.String(),
		CleanupInterval:  s.period.String(),
		SchedulerRunning: s.Running(),
	}

	s.mu.Lock()
	if s.last != nil {
		last := *s.last
		stats.LastSweep = &last
	}
	s.mu.Unlock()

	return stats, nil
}

// cronLogger routes scheduler logs through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
