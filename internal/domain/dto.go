package domain

import (
	"time"
)

// SubmitRequest represents the request body for starting a download.
type SubmitRequest struct {
	URL          string       `json:"url" validate:"required,url,safe_url"`
	DownloadType DownloadType `json:"download_type" validate:"required,oneof=single playlist album"`
	Quality      Quality      `json:"quality" validate:"required,oneof=360p 480p 720p 1080p 1440p best"`
}

// SubmitResponse is returned once a task has been accepted.
type SubmitResponse struct {
	TaskID       string       `json:"task_id"`
	Status       TaskStatus   `json:"status"`
	Message      string       `json:"message"`
	DownloadType DownloadType `json:"download_type"`
	Quality      Quality      `json:"quality"`
	CreatedAt    time.Time    `json:"created_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// TaskResponse is the full status view of a Task. Success-only fields are
// omitted unless the task is completed.
type TaskResponse struct {
	TaskID        string       `json:"task_id"`
	Status        TaskStatus   `json:"status"`
	Message       string       `json:"message"`
	DownloadType  DownloadType `json:"download_type"`
	Quality       Quality      `json:"quality"`
	ErrorCategory string       `json:"error_category,omitempty"`
	Suggestion    string       `json:"suggestion,omitempty"`
	DownloadURL   *string      `json:"download_url"`
	Filename      *string      `json:"filename"`
	Title         *string      `json:"title"`
	Duration      *int         `json:"duration"`
	Format        *string      `json:"format"`
	Thumbnail     *string      `json:"thumbnail"`
	SourceURL     *string      `json:"url"`
	CreatedAt     time.Time    `json:"created_at"`
	ExpiresAt     time.Time    `json:"expires_at"`
}

// NewTaskResponse flattens a Task into its API view. downloadURL is used only
// for completed tasks.
func NewTaskResponse(t *Task, downloadURL string) TaskResponse {
	resp := TaskResponse{
		TaskID:        t.ID,
		Status:        t.Status,
		Message:       t.Message,
		DownloadType:  t.DownloadType,
		Quality:       t.Quality,
		ErrorCategory: t.ErrorCategory,
		Suggestion:    t.Suggestion,
		CreatedAt:     t.CreatedAt,
		ExpiresAt:     t.ExpiresAt,
	}
	if t.Status == TaskStatusCompleted && t.Media != nil {
		m := *t.Media
		resp.DownloadURL = &downloadURL
		resp.Filename = &m.Filename
		resp.Title = &m.Title
		resp.Duration = &m.Duration
		resp.Format = &m.Format
		resp.Thumbnail = &m.Thumbnail
		resp.SourceURL = &m.SourceURL
	}
	return resp
}
