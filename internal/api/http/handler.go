package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veranemoloko/video-downloader/internal/domain"
	errpkg "github.com/veranemoloko/video-downloader/internal/errors"
	"github.com/veranemoloko/video-downloader/internal/service"
)

// DownloadServiceI accepts new download submissions.
type DownloadServiceI interface {
	Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Task, error)
}

// TaskServiceI answers status, retrieval and maintenance queries.
type TaskServiceI interface {
	GetStatus(ctx context.Context, id string) (*domain.Task, error)
	GetFile(ctx context.Context, id string) (*service.FileHandle, error)
	TriggerCleanup(ctx context.Context) (service.CleanupSummary, error)
	CleanupStats(ctx context.Context) (service.CleanupStats, error)
	Health(ctx context.Context) service.HealthReport
}

// TaskHandler handles HTTP requests for download tasks.
type TaskHandler struct {
	downloadService DownloadServiceI
	taskService     TaskServiceI
	version         string
	logger          *slog.Logger
}

// NewTaskHandler creates a new TaskHandler with the provided services and logger.
func NewTaskHandler(downloadService DownloadServiceI, taskService TaskServiceI, version string, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		downloadService: downloadService,
		taskService:     taskService,
		version:         version,
		logger:          logger,
	}
}

// Submit handles POST /api/v1/download.
func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.downloadService.Submit(r.Context(), req)
	if err != nil {
		h.handleError(w, err, "")
		return
	}

	writeJSON(w, http.StatusAccepted, domain.SubmitResponse{
		TaskID:       task.ID,
		Status:       task.Status,
		Message:      task.Message,
		DownloadType: task.DownloadType,
		Quality:      task.Quality,
		CreatedAt:    task.CreatedAt,
		ExpiresAt:    task.ExpiresAt,
	})
}

// GetStatus handles GET /api/v1/status/{taskID}.
func (h *TaskHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, err := h.taskService.GetStatus(r.Context(), taskID)
	if err != nil {
		h.handleError(w, err, taskID)
		return
	}

	writeJSON(w, http.StatusOK, domain.NewTaskResponse(task, service.DownloadURL(task.ID)))
}

// Download handles GET /api/v1/download/{taskID} and streams the result file.
func (h *TaskHandler) Download(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	handle, err := h.taskService.GetFile(r.Context(), taskID)
	if err != nil {
		h.handleError(w, err, taskID)
		return
	}
	defer handle.Close()

	w.Header().Set("Content-Type", handle.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": handle.Name}))

	h.logger.Info("serving file", "task_id", taskID, "filename", handle.Name, "size", handle.Size)
	http.ServeContent(w, r, handle.Name, handle.ModTime, handle.File)
}

// Cleanup handles manual cleanup triggers.
func (h *TaskHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	summary, err := h.taskService.TriggerCleanup(r.Context())
	if err != nil {
		h.handleError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Cleanup completed",
		"summary": summary,
	})
}

// CleanupStats handles GET /api/v1/cleanup/stats.
func (h *TaskHandler) CleanupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.taskService.CleanupStats(r.Context())
	if err != nil {
		h.handleError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Health handles GET /health.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.taskService.Health(r.Context())
	report.Version = h.version

	status := http.StatusOK
	if report.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (h *TaskHandler) handleError(w http.ResponseWriter, err error, taskID string) {
	var failed *errpkg.TaskFailedError
	if errors.As(err, &failed) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":          failed.Message,
			"error_category": failed.Category,
		})
		return
	}

	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "task_id", taskID, "error", err)
	} else {
		h.logger.Debug("request rejected", "task_id", taskID, "status", status, "error", err)
	}
	writeError(w, status, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errpkg.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errpkg.ErrTaskNotFound):
		return http.StatusNotFound, "task not found"
	case errors.Is(err, errpkg.ErrTaskGone):
		return http.StatusGone, "task has expired or its file was removed"
	case errors.Is(err, errpkg.ErrTaskNotReady):
		return http.StatusConflict, "download is not complete yet"
	case errors.Is(err, errpkg.ErrQueueFull), errors.Is(err, errpkg.ErrServiceClosed):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
