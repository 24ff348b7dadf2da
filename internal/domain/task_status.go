package domain

// TaskStatus represents the current state of a Task.
type TaskStatus string

const (
	TaskStatusInitiated  TaskStatus = "initiated"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether no further transition can leave s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a forward step.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusInitiated:
		return next == TaskStatusProcessing
	case TaskStatusProcessing:
		return next == TaskStatusCompleted || next == TaskStatusFailed
	default:
		return false
	}
}

// DownloadType selects how the engine treats the URL.
type DownloadType string

const (
	DownloadTypeSingle   DownloadType = "single"
	DownloadTypePlaylist DownloadType = "playlist"
	DownloadTypeAlbum    DownloadType = "album"
)

// Quality is the requested quality tier.
type Quality string

const (
	QualityLow      Quality = "360p"
	QualityMedium   Quality = "480p"
	QualityHigh     Quality = "720p"
	QualityVeryHigh Quality = "1080p"
	QualityUltra    Quality = "1440p"
	QualityBest     Quality = "best"
)

// ExpiryPolicy decides when the retention window starts.
type ExpiryPolicy string

const (
	ExpiryFromSubmission ExpiryPolicy = "submission"
	ExpiryFromCompletion ExpiryPolicy = "completion"
)
