package model

import (
	"sync"
	"time"
)

// TaskStatus represents the current state of a download task
// @enum pending,fetching,downloading,paused,completed,failed,cancelled
type TaskStatus string

const (
	StatusPending     TaskStatus = "pending"
	StatusFetching    TaskStatus = "fetching"
	StatusDownloading TaskStatus = "downloading"
	StatusPaused      TaskStatus = "paused"
	StatusCompleted   TaskStatus = "completed"
	StatusFailed      TaskStatus = "failed"
	StatusCancelled   TaskStatus = "cancelled"
)

// IsTerminal reports whether a task in this status can never leave it.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// TaskID builds the deterministic identity key for a (drama, episode) pair.
// Re-adding the same pair always maps to the same task.
func TaskID(bookID, videoID string) string {
	return bookID + "_" + videoID
}

// TaskSnapshot is the lock-free view of a task, safe to copy, serialize and
// put on the event bus.
type TaskSnapshot struct {
	ID      string      `json:"id"`
	Drama   DramaInfo   `json:"drama"`
	Episode EpisodeInfo `json:"episode"`

	Status     TaskStatus `json:"status"`
	Progress   float64    `json:"progress"`
	VideoURL   string     `json:"videoUrl,omitempty"`
	FilePath   string     `json:"filePath,omitempty"`
	TempPath   string     `json:"tempPath,omitempty"`
	Error      string     `json:"error,omitempty"`
	Downloaded int64      `json:"downloaded"`
	Total      int64      `json:"total"`
	Speed      float64    `json:"speed"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Task is one episode download unit with its own status and progress.
// The engine goroutine executing the task mutates it while the service and
// API read it concurrently, so all field access goes through the accessors;
// the live Task never crosses a serialization boundary, only its Snapshot.
type Task struct {
	TaskSnapshot

	mu sync.RWMutex
}

// NewTask creates a pending task for the given pair.
func NewTask(drama DramaInfo, episode EpisodeInfo) *Task {
	now := time.Now()
	return &Task{
		TaskSnapshot: TaskSnapshot{
			ID:        TaskID(drama.BookID, episode.VideoID),
			Drama:     drama,
			Episode:   episode,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Snapshot returns a detached copy of the task state.
func (t *Task) Snapshot() TaskSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.TaskSnapshot
}

// GetStatus returns the current status.
func (t *Task) GetStatus() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// TransitionTo moves the task to the given status after validating the
// transition against the state machine.
func (t *Task) TransitionTo(status TaskStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := ValidateTransition(t.Status, status); err != nil {
		return err
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

// ForceStatus sets the status without validation. Used for cancellation,
// which is allowed from any non-terminal state.
func (t *Task) ForceStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = status
	t.UpdatedAt = time.Now()
}

// SetError records a failure message.
func (t *Task) SetError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Error = msg
	t.UpdatedAt = time.Now()
}

// SetVideoURL records the resolved transfer URL.
func (t *Task) SetVideoURL(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.VideoURL = url
}

// SetPaths records the final and temporary file paths.
func (t *Task) SetPaths(filePath, tempPath string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.FilePath = filePath
	t.TempPath = tempPath
}

// SetBytes updates the byte counters and recomputes derived progress.
// Progress is never authoritative: it is always derived from bytes.
func (t *Task) SetBytes(downloaded, total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Downloaded = downloaded
	if total > 0 {
		t.Total = total
	}
	if t.Total > 0 {
		t.Progress = float64(t.Downloaded) / float64(t.Total) * 100
	}
	t.UpdatedAt = time.Now()
}

// SetSpeed updates the smoothed transfer speed in bytes/sec.
func (t *Task) SetSpeed(speed float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Speed = speed
}

// MarkCompleted finalizes a fully transferred task.
func (t *Task) MarkCompleted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = StatusCompleted
	t.Progress = 100
	t.Speed = 0
	t.UpdatedAt = time.Now()
}
