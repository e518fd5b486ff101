package conversion

import (
	"context"
	"errors"
	"time"

	"ratecache/internal/adapters"
	"ratecache/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// taskRunner executes one conversion task to completion.
type taskRunner interface {
	Run(ctx context.Context, taskID uuid.UUID) error
}

// Worker is the single consumer of the conversion queue. On startup it
// recovers tasks orphaned by an unclean restart, then drains the queue
// until the context is canceled. One failing task never stops the loop.
type Worker struct {
	queue        *Queue
	tasks        adapters.TaskRepository
	runner       taskRunner
	ready        <-chan struct{}
	pollInterval time.Duration
}

func NewWorker(queue *Queue, tasks adapters.TaskRepository, runner taskRunner, ready <-chan struct{}, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		queue:        queue,
		tasks:        tasks,
		runner:       runner,
		ready:        ready,
		pollInterval: pollInterval,
	}
}

// Run blocks until ctx is canceled. It first waits for the host to signal
// full startup, so the recovery pass never races store initialization.
func (w *Worker) Run(ctx context.Context) {
	select {
	case <-w.ready:
	case <-ctx.Done():
		return
	}

	logrus.Info("Conversion worker initializing")
	if err := w.recoverOrphans(ctx); err != nil {
		logrus.WithError(err).Error("Failed to recover orphaned conversion tasks")
	}

	logrus.Info("Conversion worker active")
	for {
		if ctx.Err() != nil {
			logrus.Info("Conversion worker stopped")
			return
		}

		task, ok := w.queue.Dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				logrus.Info("Conversion worker stopped")
				return
			case <-time.After(w.pollInterval):
			}
			continue
		}

		logrus.WithField("task_id", task.ID).Info("Picked up conversion task")
		if err := w.runner.Run(ctx, task.ID); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue // loop head exits on canceled ctx
			}
			logrus.WithError(err).WithField("task_id", task.ID).Error("Conversion task failed")
		}
	}
}

// recoverOrphans finds tasks left in an active status by a previous run.
// Only the newest survives and is re-enqueued; the rest are canceled, which
// restores the at-most-one-active-task invariant.
func (w *Worker) recoverOrphans(ctx context.Context) error {
	orphans, err := w.tasks.FindActive(ctx)
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		return nil
	}

	newest := orphans[0]
	for _, task := range orphans[1:] {
		if task.StartTime.After(newest.StartTime) {
			newest = task
		}
	}
	logrus.WithField("task_id", newest.ID).Info("Recovered unfinished conversion task")

	now := time.Now().UTC()
	for _, task := range orphans {
		if task.ID == newest.ID {
			continue
		}
		task.Status = domain.ConversionCanceled
		task.EndTime = &now
		if err = w.tasks.Update(ctx, task); err != nil {
			return err
		}
	}

	w.queue.Enqueue(&newest)
	return nil
}
