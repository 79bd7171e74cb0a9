package service

import (
	"context"
	"sync"
	"time"

	"dramadl/internal/config"
	"dramadl/internal/engine"
	apperrors "dramadl/internal/errors"
	"dramadl/internal/event"
	"dramadl/internal/model"
	"dramadl/internal/provider"

	"go.uber.org/zap"
)

const (
	minConcurrent = 1
	maxConcurrent = 10

	// cancelAllTimeout bounds how long CancelAll waits for in-flight
	// transfers to notice the flag before force-marking them.
	cancelAllTimeout = 5 * time.Second
)

// DownloadService is the single entry point for download orchestration. It
// owns the task registry, spawns a batch runner per Start(), and is the only
// writer of the registry; everything else reads snapshots.
type DownloadService struct {
	provider provider.Provider
	bus      *event.Bus
	logger   *zap.Logger

	downloadDir string
	quality     string

	mu          sync.RWMutex
	tasks       map[string]*model.Task
	order       []string
	runner      *batchRunner
	running     bool
	concurrency int
	speedLimit  int64
}

func NewDownloadService(p provider.Provider, bus *event.Bus, cfg *config.Config, logger *zap.Logger) *DownloadService {
	return &DownloadService{
		provider:    p,
		bus:         bus,
		logger:      logger.Named("downloads"),
		downloadDir: cfg.DownloadDir,
		quality:     cfg.Quality,
		tasks:       make(map[string]*model.Task),
		concurrency: clampConcurrent(cfg.MaxConcurrent),
		speedLimit:  clampSpeedLimit(cfg.SpeedLimit),
	}
}

func clampConcurrent(n int) int {
	if n < minConcurrent {
		return minConcurrent
	}
	if n > maxConcurrent {
		return maxConcurrent
	}
	return n
}

func clampSpeedLimit(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

// Add registers one episode for download. Adding a pair that already has a
// live task is a no-op; a terminal task is replaced by a fresh pending one.
// It reports whether a task was actually added.
func (s *DownloadService) Add(drama model.DramaInfo, episode model.EpisodeInfo) (*model.Task, bool) {
	id := model.TaskID(drama.BookID, episode.VideoID)

	s.mu.Lock()
	if existing, ok := s.tasks[id]; ok && !existing.GetStatus().IsTerminal() {
		s.mu.Unlock()
		return existing, false
	}

	t := model.NewTask(drama, episode)
	if _, replaced := s.tasks[id]; !replaced {
		s.order = append(s.order, id)
	}
	s.tasks[id] = t
	s.mu.Unlock()

	s.logger.Info("task added", zap.String("task", id), zap.String("episode", episode.Title))
	s.bus.Publish(event.New(event.TaskAdded, event.TaskPayload{Task: t.Snapshot()}))
	return t, true
}

// AddMany registers a whole batch of episodes for one drama.
func (s *DownloadService) AddMany(drama model.DramaInfo, episodes []model.EpisodeInfo) []*model.Task {
	out := make([]*model.Task, 0, len(episodes))
	for _, ep := range episodes {
		if t, added := s.Add(drama, ep); added {
			out = append(out, t)
		}
	}
	return out
}

// Start launches a batch over every pending task. It returns the number of
// tasks queued; starting while a batch is already running is rejected.
func (s *DownloadService) Start() (int, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return 0, apperrors.New(apperrors.CodeInvalidOperation, "a batch is already running")
	}

	var queue []*model.Task
	for _, id := range s.order {
		if t := s.tasks[id]; t.GetStatus() == model.StatusPending {
			queue = append(queue, t)
		}
	}
	if len(queue) == 0 {
		s.mu.Unlock()
		return 0, nil
	}

	runner := newBatchRunner(s.newEngine(), s.bus, int64(s.concurrency), s.logger)
	s.runner = runner
	s.running = true
	s.mu.Unlock()

	// The batch outlives the caller's request, so it runs detached.
	go func() {
		runner.Run(context.Background(), queue)

		s.mu.Lock()
		if s.runner == runner {
			s.running = false
		}
		s.mu.Unlock()

		s.bus.Publish(event.New(event.BatchCompleted, event.IDPayload{ID: runner.id}))
	}()

	return len(queue), nil
}

func (s *DownloadService) newEngine() *engine.Engine {
	opts := []engine.Option{}
	if s.speedLimit > 0 {
		opts = append(opts, engine.WithSpeedLimit(s.speedLimit))
	}
	return engine.New(s.provider, s.downloadDir, s.quality, s.logger, opts...)
}

// Pause stops one task. A queued task flips to paused immediately; a running
// one is flagged and pauses at the next chunk boundary.
func (s *DownloadService) Pause(id string) error {
	s.mu.RLock()
	t, ok := s.tasks[id]
	runner := s.runner
	s.mu.RUnlock()
	if !ok {
		return apperrors.NewNotFound("task", id)
	}

	switch t.GetStatus() {
	case model.StatusPending:
		if runner != nil {
			runner.PauseTask(id)
		}
		if err := t.TransitionTo(model.StatusPaused); err != nil {
			return err
		}
		s.bus.Publish(event.New(event.TaskPaused, event.IDPayload{ID: id}))
		return nil
	case model.StatusFetching, model.StatusDownloading:
		// The runner owns the transition and the event once the engine
		// acknowledges the flag.
		if runner == nil {
			return apperrors.New(apperrors.CodeInvalidOperation, "task is active but no batch is running")
		}
		runner.PauseTask(id)
		return nil
	default:
		return apperrors.New(apperrors.CodeInvalidTransition,
			"cannot pause task in status "+string(t.GetStatus()))
	}
}

// Resume re-queues a paused task. If a batch is still running the task joins
// it, otherwise a fresh batch is started for it.
func (s *DownloadService) Resume(id string) error {
	s.mu.RLock()
	t, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return apperrors.NewNotFound("task", id)
	}

	if err := t.TransitionTo(model.StatusPending); err != nil {
		return err
	}

	s.mu.Lock()
	runner := s.runner
	if runner != nil {
		runner.ResumeTask(id)
	}
	if s.running && runner != nil && runner.Submit(context.Background(), t) {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	_, err := s.Start()
	return err
}

// Cancel aborts one task. Queued and paused tasks are marked immediately; a
// running one is flagged and stops at the next chunk boundary. Partial temp
// files stay on disk for a later resume.
func (s *DownloadService) Cancel(id string) error {
	s.mu.RLock()
	t, ok := s.tasks[id]
	runner := s.runner
	s.mu.RUnlock()
	if !ok {
		return apperrors.NewNotFound("task", id)
	}

	status := t.GetStatus()
	if status.IsTerminal() {
		// Already settled, nothing to stop
		return nil
	}

	if runner != nil {
		runner.CancelTask(id)
	}
	if status == model.StatusPending || status == model.StatusPaused {
		t.ForceStatus(model.StatusCancelled)
	}
	s.logger.Info("task cancel requested", zap.String("task", id))
	return nil
}

// CancelAll aborts every live task, waits a bounded time for in-flight
// transfers to stop, then force-marks whatever is left.
func (s *DownloadService) CancelAll() {
	s.mu.RLock()
	runner := s.runner
	running := s.running
	s.mu.RUnlock()

	if runner != nil {
		runner.CancelAll()
		if running && !runner.WaitDone(cancelAllTimeout) {
			s.logger.Warn("cancel all timed out waiting for batch")
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if !t.GetStatus().IsTerminal() {
			t.ForceStatus(model.StatusCancelled)
		}
	}
}

// ClearCompleted drops completed tasks from the registry and returns how
// many were removed.
func (s *DownloadService) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		if s.tasks[id].GetStatus() == model.StatusCompleted {
			delete(s.tasks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}

// Get returns a snapshot of one task.
func (s *DownloadService) Get(id string) (model.TaskSnapshot, error) {
	s.mu.RLock()
	t, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return model.TaskSnapshot{}, apperrors.NewNotFound("task", id)
	}
	return t.Snapshot(), nil
}

// List returns snapshots of all tasks in insertion order.
func (s *DownloadService) List() []model.TaskSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TaskSnapshot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id].Snapshot())
	}
	return out
}

// Running reports whether a batch is currently in flight.
func (s *DownloadService) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// SetMaxConcurrent updates the batch width for the next Start(). Values are
// clamped to [1, 10].
func (s *DownloadService) SetMaxConcurrent(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concurrency = clampConcurrent(n)
	return s.concurrency
}

func (s *DownloadService) MaxConcurrent() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.concurrency
}

// SetSpeedLimit updates the per-batch throughput cap in bytes/sec. Zero
// disables the cap; negatives clamp to zero. Takes effect on the next batch.
func (s *DownloadService) SetSpeedLimit(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speedLimit = clampSpeedLimit(n)
	return s.speedLimit
}

func (s *DownloadService) SpeedLimit() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speedLimit
}

func (s *DownloadService) DownloadDir() string { return s.downloadDir }

func (s *DownloadService) Quality() string { return s.quality }
