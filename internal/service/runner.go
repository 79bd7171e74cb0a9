package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"dramadl/internal/engine"
	"dramadl/internal/event"
	"dramadl/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// batchRunner drives one Start() invocation: every queued task gets a
// goroutine, a weighted semaphore caps how many download at once, and the
// paused/cancelled sets feed the engine's per-chunk polling. Resumed tasks
// re-enter a live batch through Submit; once the batch settles the runner is
// spent and a new Start() builds a fresh one.
type batchRunner struct {
	id     string
	engine *engine.Engine
	bus    *event.Bus
	logger *zap.Logger

	sem *semaphore.Weighted

	mu        sync.Mutex
	paused    map[string]bool
	cancelled map[string]bool
	inflight  int
	finished  bool

	cancelAll atomic.Bool
	done      chan struct{}
}

func newBatchRunner(eng *engine.Engine, bus *event.Bus, maxConcurrent int64, logger *zap.Logger) *batchRunner {
	id := "b_" + uuid.New().String()[:8]
	return &batchRunner{
		id:        id,
		engine:    eng,
		bus:       bus,
		logger:    logger.With(zap.String("batch", id)),
		sem:       semaphore.NewWeighted(maxConcurrent),
		paused:    make(map[string]bool),
		cancelled: make(map[string]bool),
		done:      make(chan struct{}),
	}
}

// Cancelled and Paused implement engine.Control.
func (r *batchRunner) Cancelled(id string) bool {
	if r.cancelAll.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled[id]
}

func (r *batchRunner) Paused(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused[id]
}

func (r *batchRunner) PauseTask(id string) {
	r.mu.Lock()
	r.paused[id] = true
	r.mu.Unlock()
}

func (r *batchRunner) ResumeTask(id string) {
	r.mu.Lock()
	delete(r.paused, id)
	r.mu.Unlock()
}

func (r *batchRunner) CancelTask(id string) {
	r.mu.Lock()
	r.cancelled[id] = true
	r.mu.Unlock()
}

func (r *batchRunner) CancelAll() {
	r.cancelAll.Store(true)
}

// Done closes once every task goroutine has settled.
func (r *batchRunner) Done() <-chan struct{} {
	return r.done
}

// Run executes the batch and blocks until all tasks, including any submitted
// later, settle. One task failing never touches its siblings.
func (r *batchRunner) Run(ctx context.Context, tasks []*model.Task) {
	r.logger.Info("batch started", zap.Int("tasks", len(tasks)))

	// Add, never assign: a Submit may already have raced ahead of this
	// goroutine and its task must count toward batch settlement.
	r.mu.Lock()
	r.inflight += len(tasks)
	empty := r.inflight == 0
	if empty {
		r.finished = true
	}
	r.mu.Unlock()
	if empty {
		close(r.done)
		return
	}

	for _, t := range tasks {
		go r.runTask(ctx, t)
	}

	<-r.done
	r.logger.Info("batch finished")
}

// Submit adds a task to a batch that is still running. It reports false once
// the batch has settled, in which case the caller starts a new one.
func (r *batchRunner) Submit(ctx context.Context, t *model.Task) bool {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return false
	}
	r.inflight++
	r.mu.Unlock()

	go r.runTask(ctx, t)
	return true
}

func (r *batchRunner) settle() {
	r.mu.Lock()
	r.inflight--
	last := r.inflight == 0 && !r.finished
	if last {
		r.finished = true
	}
	r.mu.Unlock()
	if last {
		close(r.done)
	}
}

func (r *batchRunner) runTask(ctx context.Context, t *model.Task) {
	defer r.settle()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer r.sem.Release(1)

	// Tasks paused or cancelled while waiting for a slot never start.
	if r.Cancelled(t.ID) {
		if !t.GetStatus().IsTerminal() {
			t.ForceStatus(model.StatusCancelled)
		}
		return
	}
	if r.Paused(t.ID) || t.GetStatus() != model.StatusPending {
		return
	}

	r.bus.Publish(event.New(event.TaskStarted, event.TaskPayload{Task: t.Snapshot()}))

	err := r.engine.Execute(ctx, t, r, func(tk *model.Task) {
		snap := tk.Snapshot()
		r.bus.Publish(event.New(event.TaskProgress, event.ProgressPayload{
			ID:         snap.ID,
			Progress:   snap.Progress,
			Downloaded: snap.Downloaded,
			Total:      snap.Total,
			Speed:      snap.Speed,
		}))
	})

	switch {
	case err == nil:
		r.logger.Info("task completed", zap.String("task", t.ID))
		r.bus.Publish(event.New(event.TaskCompleted, event.TaskPayload{Task: t.Snapshot()}))

	case errors.Is(err, engine.ErrPaused):
		if terr := t.TransitionTo(model.StatusPaused); terr != nil {
			r.logger.Warn("pause transition rejected",
				zap.String("task", t.ID), zap.Error(terr))
			return
		}
		r.logger.Info("task paused", zap.String("task", t.ID))
		r.bus.Publish(event.New(event.TaskPaused, event.IDPayload{ID: t.ID}))

	case errors.Is(err, engine.ErrCancelled):
		if !t.GetStatus().IsTerminal() {
			t.ForceStatus(model.StatusCancelled)
		}
		r.logger.Info("task cancelled", zap.String("task", t.ID))

	default:
		t.SetError(err.Error())
		if terr := t.TransitionTo(model.StatusFailed); terr != nil {
			t.ForceStatus(model.StatusFailed)
		}
		r.logger.Error("task failed", zap.String("task", t.ID), zap.Error(err))
		r.bus.Publish(event.New(event.TaskFailed, event.FailurePayload{
			ID:    t.ID,
			Error: err.Error(),
		}))
	}
}

// WaitDone blocks until the batch settles or the timeout passes. It reports
// whether the batch finished in time.
func (r *batchRunner) WaitDone(timeout time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

var _ engine.Control = (*batchRunner)(nil)
