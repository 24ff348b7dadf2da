package domain

import (
	"fmt"
	"strings"
	"time"

	errpkg "github.com/veranemoloko/video-downloader/internal/errors"
)

// Task is the tracked state of one submitted download.
type Task struct {
	ID            string       `json:"task_id"`
	URL           string       `json:"url"`
	Status        TaskStatus   `json:"status"`
	DownloadType  DownloadType `json:"download_type"`
	Quality       Quality      `json:"quality"`
	Message       string       `json:"message"`
	ErrorCategory string       `json:"error_category,omitempty"`
	Suggestion    string       `json:"suggestion,omitempty"`
	Media         *MediaInfo   `json:"media,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	ExpiresAt     time.Time    `json:"expires_at"`
}

// MediaInfo holds the fields that only exist for a completed task.
type MediaInfo struct {
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	Duration  int    `json:"duration"`
	Format    string `json:"format"`
	Thumbnail string `json:"thumbnail,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

// NewTask builds an initiated task that expires retention after now.
func NewTask(id, url string, downloadType DownloadType, quality Quality, now time.Time, retention time.Duration) *Task {
	return &Task{
		ID:           id,
		URL:          url,
		Status:       TaskStatusInitiated,
		DownloadType: downloadType,
		Quality:      quality,
		Message:      initiatedMessage(url, downloadType, quality),
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    now.Add(retention),
	}
}

func initiatedMessage(url string, downloadType DownloadType, quality Quality) string {
	kind := string(downloadType)
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	}
	return fmt.Sprintf("%s download initiated (%s) for: %s", kind, quality, url)
}

// IsExpired reports whether the retention window has passed at now.
func (t *Task) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Clone returns a deep copy safe to hand out of the registry.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Media != nil {
		m := *t.Media
		c.Media = &m
	}
	return &c
}

func (t *Task) transition(next TaskStatus, now time.Time) error {
	if !t.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", errpkg.ErrInvalidTransition, t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = now
	return nil
}

// MarkProcessing moves an initiated task to processing.
func (t *Task) MarkProcessing(now time.Time) error {
	if err := t.transition(TaskStatusProcessing, now); err != nil {
		return err
	}
	t.Message = "Downloading video..."
	return nil
}

// MarkCompleted moves a processing task to completed and attaches its media.
func (t *Task) MarkCompleted(media MediaInfo, now time.Time) error {
	if err := t.transition(TaskStatusCompleted, now); err != nil {
		return err
	}
	t.Media = &media
	t.Message = "Video downloaded successfully: " + media.Title
	t.ErrorCategory = ""
	t.Suggestion = ""
	return nil
}

// MarkFailed moves a processing task to failed. Media stays nil.
func (t *Task) MarkFailed(category, message, suggestion string, now time.Time) error {
	if err := t.transition(TaskStatusFailed, now); err != nil {
		return err
	}
	t.Media = nil
	t.ErrorCategory = category
	t.Message = message
	t.Suggestion = suggestion
	return nil
}

// FilePrefix is the name prefix of every file written for the task with this id.
func FilePrefix(taskID string) string {
	return taskID + "_"
}

// FileOwner returns the task id encoded in a stored file name, or "" if none.
func FileOwner(filename string) string {
	if i := strings.IndexByte(filename, '_'); i > 0 {
		return filename[:i]
	}
	return ""
}
