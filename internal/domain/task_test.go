package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errpkg "github.com/veranemoloko/video-downloader/internal/errors"
)

func TestNewTask(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	task := NewTask("id", "https://example.com/video/1", DownloadTypeSingle, QualityHigh, now, 5*time.Hour)

	assert.Equal(t, TaskStatusInitiated, task.Status)
	assert.Equal(t, now.Add(5*time.Hour), task.ExpiresAt)
	assert.Equal(t, "Single download initiated (720p) for: https://example.com/video/1", task.Message)
	assert.Nil(t, task.Media)
}

func TestTaskStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		ok       bool
	}{
		{TaskStatusInitiated, TaskStatusProcessing, true},
		{TaskStatusInitiated, TaskStatusCompleted, false},
		{TaskStatusProcessing, TaskStatusCompleted, true},
		{TaskStatusProcessing, TaskStatusFailed, true},
		{TaskStatusProcessing, TaskStatusInitiated, false},
		{TaskStatusCompleted, TaskStatusFailed, false},
		{TaskStatusFailed, TaskStatusProcessing, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTask_Lifecycle(t *testing.T) {
	now := time.Now()
	task := NewTask("id", "https://example.com", DownloadTypeSingle, QualityBest, now, time.Hour)

	require.NoError(t, task.MarkProcessing(now))
	require.NoError(t, task.MarkCompleted(MediaInfo{Filename: "f.mp4", Title: "Sample Clip", Duration: 42, Format: "mp4"}, now))

	assert.Equal(t, TaskStatusCompleted, task.Status)
	require.NotNil(t, task.Media)
	assert.Equal(t, "Sample Clip", task.Media.Title)

	err := task.MarkFailed("unknown", "nope", "", now)
	assert.ErrorIs(t, err, errpkg.ErrInvalidTransition)
	assert.Equal(t, TaskStatusCompleted, task.Status)
}

func TestTask_MarkFailedClearsMedia(t *testing.T) {
	now := time.Now()
	task := NewTask("id", "https://example.com", DownloadTypeSingle, QualityBest, now, time.Hour)
	require.NoError(t, task.MarkProcessing(now))
	require.NoError(t, task.MarkFailed("private_unavailable", "private", "try another", now))

	assert.Nil(t, task.Media)
	assert.Equal(t, "private_unavailable", task.ErrorCategory)
}

func TestTask_IsExpired(t *testing.T) {
	now := time.Now()
	task := NewTask("id", "https://example.com", DownloadTypeSingle, QualityBest, now, time.Hour)

	assert.False(t, task.IsExpired(now))
	assert.True(t, task.IsExpired(now.Add(time.Hour)))
	assert.True(t, task.IsExpired(now.Add(2*time.Hour)))
}

func TestNewTaskResponse_HidesMediaUnlessCompleted(t *testing.T) {
	now := time.Now()
	task := NewTask("id", "https://example.com", DownloadTypeSingle, QualityBest, now, time.Hour)

	resp := NewTaskResponse(task, "/api/v1/download/id")
	assert.Nil(t, resp.DownloadURL)
	assert.Nil(t, resp.Filename)
	assert.Nil(t, resp.Title)

	require.NoError(t, task.MarkProcessing(now))
	require.NoError(t, task.MarkCompleted(MediaInfo{Filename: "f.mp4", Title: "Sample Clip", Duration: 42, Format: "mp4"}, now))
	resp = NewTaskResponse(task, "/api/v1/download/id")
	require.NotNil(t, resp.DownloadURL)
	assert.Equal(t, "/api/v1/download/id", *resp.DownloadURL)
	assert.Equal(t, 42, *resp.Duration)
	assert.Equal(t, "mp4", *resp.Format)
}

func TestFileOwner(t *testing.T) {
	assert.Equal(t, "abc", FileOwner(FilePrefix("abc")+"20260101_000000_clip.mp4"))
	assert.Equal(t, "", FileOwner("noprefix.mp4"))
	assert.Equal(t, "", FileOwner("_leading.mp4"))
}
