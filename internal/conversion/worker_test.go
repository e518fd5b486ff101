package conversion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ratecache/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mu   sync.Mutex
	errs map[uuid.UUID]error
	seen chan uuid.UUID
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		errs: make(map[uuid.UUID]error),
		seen: make(chan uuid.UUID, 16),
	}
}

func (r *stubRunner) failWith(id uuid.UUID, err error) {
	r.mu.Lock()
	r.errs[id] = err
	r.mu.Unlock()
}

func (r *stubRunner) Run(_ context.Context, taskID uuid.UUID) error {
	r.seen <- taskID
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs[taskID]
}

func waitForTask(t *testing.T, runner *stubRunner) uuid.UUID {
	t.Helper()
	select {
	case id := <-runner.seen:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("worker never ran the task")
		return uuid.Nil
	}
}

func TestWorker_StopsBeforeReadySignal(t *testing.T) {
	tasks := new(MockTaskRepository)
	w := NewWorker(NewQueue(), tasks, newStubRunner(), make(chan struct{}), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on canceled context")
	}
	tasks.AssertNotCalled(t, "FindActive", mock.Anything)
}

func TestWorker_DrainsQueueAfterReady(t *testing.T) {
	tasks := new(MockTaskRepository)
	tasks.On("FindActive", mock.Anything).Return(nil, nil).Once()

	queue := NewQueue()
	task := &domain.ConversionTask{ID: uuid.New(), Status: domain.ConversionCreated}
	queue.Enqueue(task)

	runner := newStubRunner()
	ready := make(chan struct{})
	w := NewWorker(queue, tasks, runner, ready, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	close(ready)
	require.Equal(t, task.ID, waitForTask(t, runner))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_FailingTaskDoesNotStopLoop(t *testing.T) {
	tasks := new(MockTaskRepository)
	tasks.On("FindActive", mock.Anything).Return(nil, nil).Once()

	queue := NewQueue()
	failing := &domain.ConversionTask{ID: uuid.New()}
	healthy := &domain.ConversionTask{ID: uuid.New()}
	queue.Enqueue(failing)
	queue.Enqueue(healthy)

	runner := newStubRunner()
	runner.failWith(failing.ID, errors.New("rebase blew up"))

	ready := make(chan struct{})
	close(ready)
	w := NewWorker(queue, tasks, runner, ready, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Equal(t, failing.ID, waitForTask(t, runner))
	require.Equal(t, healthy.ID, waitForTask(t, runner))
}

func TestWorker_RecoveryKeepsNewestOrphan(t *testing.T) {
	now := time.Now().UTC()
	oldest := domain.ConversionTask{ID: uuid.New(), Status: domain.ConversionProcessing, StartTime: now.Add(-2 * time.Hour)}
	middle := domain.ConversionTask{ID: uuid.New(), Status: domain.ConversionCreated, StartTime: now.Add(-time.Hour)}
	newest := domain.ConversionTask{ID: uuid.New(), Status: domain.ConversionCreated, StartTime: now}

	tasks := new(MockTaskRepository)
	tasks.On("FindActive", mock.Anything).
		Return([]domain.ConversionTask{middle, oldest, newest}, nil).Once()

	canceled := make(map[uuid.UUID]struct{})
	var mu sync.Mutex
	tasks.On("Update", mock.Anything, mock.MatchedBy(func(task domain.ConversionTask) bool {
		return task.Status == domain.ConversionCanceled && task.EndTime != nil
	})).Run(func(args mock.Arguments) {
		task := args.Get(1).(domain.ConversionTask)
		mu.Lock()
		canceled[task.ID] = struct{}{}
		mu.Unlock()
	}).Return(nil).Twice()

	runner := newStubRunner()
	ready := make(chan struct{})
	close(ready)
	queue := NewQueue()
	w := NewWorker(queue, tasks, runner, ready, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// The survivor is re-enqueued and picked up.
	require.Equal(t, newest.ID, waitForTask(t, runner))

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, canceled, oldest.ID)
	require.Contains(t, canceled, middle.ID)
	require.NotContains(t, canceled, newest.ID)
	tasks.AssertExpectations(t)
}

func TestWorker_RecoveryWithNoOrphansIsQuiet(t *testing.T) {
	tasks := new(MockTaskRepository)
	tasks.On("FindActive", mock.Anything).Return(nil, nil).Once()

	ready := make(chan struct{})
	close(ready)
	w := NewWorker(NewQueue(), tasks, newStubRunner(), ready, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	tasks.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
