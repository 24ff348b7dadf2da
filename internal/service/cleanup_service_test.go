package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veranemoloko/video-downloader/internal/domain"
	errpkg "github.com/veranemoloko/video-downloader/internal/errors"
	"github.com/veranemoloko/video-downloader/internal/metrics"
	repo "github.com/veranemoloko/video-downloader/internal/repository"
	"github.com/veranemoloko/video-downloader/internal/storage"
)

type cleanupFixture struct {
	repo    *repo.TaskStorage
	files   *storage.FileStorage
	dir     string
	clock   *fakeClock
	cleanup *CleanupService
}

func newCleanupFixture(t *testing.T) *cleanupFixture {
	t.Helper()
	dir := t.TempDir()
	f := &cleanupFixture{
		repo:  repo.NewTaskStorage(),
		files: storage.NewFileStorage(dir),
		dir:   dir,
		clock: newFakeClock(),
	}
	f.cleanup = NewCleanupService(f.repo, f.files, 5*time.Hour, 30*time.Minute, newTestLogger())
	f.cleanup.SetClock(f.clock.Now)
	return f
}

// completedTask registers a completed task created at the current clock and writes its file.
func (f *cleanupFixture) completedTask(t *testing.T, id string) string {
	t.Helper()
	now := f.clock.Now()
	task := domain.NewTask(id, "https://vimeo.com/1", domain.DownloadTypeSingle, domain.QualityHigh, now, 5*time.Hour)
	require.NoError(t, task.MarkProcessing(now))
	name := domain.FilePrefix(id) + "20260101_000000_clip.mp4"
	require.NoError(t, task.MarkCompleted(domain.MediaInfo{Filename: name, Title: "Clip", Format: "mp4"}, now))
	require.NoError(t, f.repo.CreateTask(context.Background(), task))
	require.NoError(t, f.files.WriteFile(name, []byte("12345")))
	return name
}

func (f *cleanupFixture) writeAged(t *testing.T, name string, age time.Duration) {
	t.Helper()
	require.NoError(t, f.files.WriteFile(name, []byte("orphan")))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(filepath.Join(f.dir, name), mtime, mtime))
}

func TestCleanupService_RemovesExpiredTasksAndFiles(t *testing.T) {
	f := newCleanupFixture(t)
	oldFile := f.completedTask(t, "old")
	f.clock.Advance(4 * time.Hour)
	freshFile := f.completedTask(t, "fresh")
	f.clock.Advance(time.Hour + time.Minute)

	summary, err := f.cleanup.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.RecordsRemoved)
	assert.Equal(t, 1, summary.FilesRemoved)
	assert.Equal(t, int64(5), summary.BytesFreed)
	assert.Zero(t, summary.Errors)

	_, err = f.repo.GetTask(context.Background(), "old")
	assert.ErrorIs(t, err, errpkg.ErrTaskNotFound)
	assert.False(t, f.files.FileExists(oldFile))

	_, err = f.repo.GetTask(context.Background(), "fresh")
	assert.NoError(t, err)
	assert.True(t, f.files.FileExists(freshFile))
}

func TestCleanupService_RemovesFailedAndPendingExpiredRecords(t *testing.T) {
	f := newCleanupFixture(t)
	now := f.clock.Now()

	failed := domain.NewTask("failed", "https://vimeo.com/1", domain.DownloadTypeSingle, domain.QualityHigh, now, 5*time.Hour)
	require.NoError(t, failed.MarkProcessing(now))
	require.NoError(t, failed.MarkFailed("private_unavailable", "private", "", now))
	require.NoError(t, f.repo.CreateTask(context.Background(), failed))

	pending := domain.NewTask("pending", "https://vimeo.com/2", domain.DownloadTypeSingle, domain.QualityHigh, now, 5*time.Hour)
	require.NoError(t, f.repo.CreateTask(context.Background(), pending))

	f.clock.Advance(5 * time.Hour)

	summary, err := f.cleanup.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RecordsRemoved)
	assert.Zero(t, f.repo.Count())
}

func TestCleanupService_Orphans(t *testing.T) {
	f := newCleanupFixture(t)
	liveFile := f.completedTask(t, "live")

	f.writeAged(t, "stale_leftover.mp4", 6*time.Hour)
	f.writeAged(t, "recent_leftover.mp4", time.Hour)
	f.writeAged(t, "nounderscore.mp4", 6*time.Hour)
	// Partial output of a live task is never an orphan.
	f.writeAged(t, domain.FilePrefix("live")+"clip.mp4.part", 6*time.Hour)

	summary, err := f.cleanup.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.OrphansRemoved)
	assert.Zero(t, summary.RecordsRemoved)
	assert.False(t, f.files.FileExists("stale_leftover.mp4"))
	assert.False(t, f.files.FileExists("nounderscore.mp4"))
	assert.True(t, f.files.FileExists("recent_leftover.mp4"))
	assert.True(t, f.files.FileExists(domain.FilePrefix("live")+"clip.mp4.part"))
	assert.True(t, f.files.FileExists(liveFile))
}

func TestCleanupService_RunOnceIsIdempotent(t *testing.T) {
	f := newCleanupFixture(t)
	f.completedTask(t, "old")
	f.clock.Advance(6 * time.Hour)

	first, err := f.cleanup.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.RecordsRemoved)

	second, err := f.cleanup.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.RecordsRemoved)
	assert.Zero(t, second.FilesRemoved)
	assert.Zero(t, second.Errors)
}

func TestCleanupService_ConcurrentRunOnce(t *testing.T) {
	f := newCleanupFixture(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		f.completedTask(t, id)
	}
	f.clock.Advance(6 * time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, err := f.cleanup.RunOnce(context.Background())
			assert.NoError(t, err)
			assert.Zero(t, summary.Errors)
		}()
	}
	wg.Wait()

	assert.Zero(t, f.repo.Count())
	files, err := f.files.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCleanupService_CanceledContext(t *testing.T) {
	f := newCleanupFixture(t)
	f.completedTask(t, "old")
	f.clock.Advance(6 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.cleanup.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.repo.Count())
}

// stallingRepo blocks the first ListTasks call until release is closed.
type stallingRepo struct {
	*repo.TaskStorage
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *stallingRepo) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return r.TaskStorage.ListTasks(ctx)
}

func TestCleanupService_CallerCancelDoesNotAbortSharedSweep(t *testing.T) {
	f := newCleanupFixture(t)
	stalled := &stallingRepo{TaskStorage: f.repo, entered: make(chan struct{}), release: make(chan struct{})}
	f.cleanup = NewCleanupService(stalled, f.files, 5*time.Hour, 30*time.Minute, newTestLogger())
	f.cleanup.SetClock(f.clock.Now)
	name := f.completedTask(t, "old")
	f.clock.Advance(6 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.cleanup.RunOnce(ctx)
		firstErr <- err
	}()
	<-stalled.entered

	type outcome struct {
		summary CleanupSummary
		err     error
	}
	second := make(chan outcome, 1)
	go func() {
		summary, err := f.cleanup.RunOnce(context.Background())
		second <- outcome{summary, err}
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("canceled caller kept waiting")
	}

	close(stalled.release)
	select {
	case got := <-second:
		require.NoError(t, got.err)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never returned")
	}

	assert.Eventually(t, func() bool { return f.repo.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.False(t, f.files.FileExists(name))
}

func TestCleanupService_FailedDeleteKeepsRecordAndContinues(t *testing.T) {
	f := newCleanupFixture(t)
	healthy := f.completedTask(t, "healthy")

	now := f.clock.Now()
	broken := domain.NewTask("broken", "https://vimeo.com/2", domain.DownloadTypeSingle, domain.QualityHigh, now, 5*time.Hour)
	require.NoError(t, broken.MarkProcessing(now))
	// A non-empty directory cannot be removed, even by root.
	stuck := domain.FilePrefix("broken") + "clip.mp4"
	require.NoError(t, os.MkdirAll(filepath.Join(f.dir, stuck, "inner"), 0o755))
	require.NoError(t, broken.MarkCompleted(domain.MediaInfo{Filename: stuck, Title: "Clip", Format: "mp4"}, now))
	require.NoError(t, f.repo.CreateTask(context.Background(), broken))

	f.clock.Advance(6 * time.Hour)

	summary, err := f.cleanup.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.RecordsRemoved)
	assert.Equal(t, 1, summary.FilesRemoved)

	assert.False(t, f.files.FileExists(healthy))
	_, err = f.repo.GetTask(context.Background(), "healthy")
	assert.ErrorIs(t, err, errpkg.ErrTaskNotFound)

	kept, err := f.repo.GetTask(context.Background(), "broken")
	require.NoError(t, err)
	assert.Equal(t, stuck, kept.Media.Filename)
	assert.Equal(t, 1, f.repo.Count())
}

type unlistableRepo struct {
	*repo.TaskStorage
}

func (unlistableRepo) ListTasks(context.Context) ([]*domain.Task, error) {
	return nil, errors.New("registry unavailable")
}

func TestCleanupService_SweepFailureMetrics(t *testing.T) {
	f := newCleanupFixture(t)
	f.cleanup = NewCleanupService(unlistableRepo{f.repo}, f.files, 5*time.Hour, 30*time.Minute, newTestLogger())

	sweepsBefore := testutil.ToFloat64(metrics.CleanupSweepFailures)
	entriesBefore := testutil.ToFloat64(metrics.CleanupErrors)

	_, err := f.cleanup.RunOnce(context.Background())
	require.Error(t, err)

	assert.Equal(t, sweepsBefore+1, testutil.ToFloat64(metrics.CleanupSweepFailures))
	assert.Equal(t, entriesBefore, testutil.ToFloat64(metrics.CleanupErrors))
}

func TestCleanupService_Schedule(t *testing.T) {
	f := newCleanupFixture(t)
	f.cleanup = NewCleanupService(f.repo, f.files, 5*time.Hour, time.Second, newTestLogger())
	f.cleanup.SetClock(f.clock.Now)
	f.completedTask(t, "old")
	f.clock.Advance(6 * time.Hour)

	require.NoError(t, f.cleanup.Start(context.Background()))
	assert.True(t, f.cleanup.Running())

	assert.Eventually(t, func() bool { return f.repo.Count() == 0 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.cleanup.Stop(ctx))
	assert.False(t, f.cleanup.Running())
	require.NoError(t, f.cleanup.Stop(ctx))
}

func TestCleanupService_Stats(t *testing.T) {
	f := newCleanupFixture(t)
	f.completedTask(t, "a")
	f.completedTask(t, "b")

	stats, err := f.cleanup.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CurrentFiles)
	assert.Equal(t, 2, stats.TotalStatuses)
	assert.Equal(t, "5h0m0s", stats.RetentionWindow)
	assert.Equal(t, "30m0s", stats.CleanupInterval)
	assert.False(t, stats.SchedulerRunning)
	assert.Nil(t, stats.LastSweep)

	_, err = f.cleanup.RunOnce(context.Background())
	require.NoError(t, err)

	stats, err = f.cleanup.Stats(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats.LastSweep)
}
