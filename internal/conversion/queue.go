package conversion

import (
	"sync"

	"ratecache/internal/domain"
)

// Queue is the in-process FIFO handoff between request handlers that create
// conversion tasks and the single worker that drains them. It is unbounded:
// a sustained flood of base currency change requests can grow it without
// limit (tasks are operator-triggered, so this is accepted, not hidden).
type Queue struct {
	mu    sync.Mutex
	items []*domain.ConversionTask
}

func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends the task. It never blocks.
func (q *Queue) Enqueue(task *domain.ConversionTask) {
	q.mu.Lock()
	q.items = append(q.items, task)
	q.mu.Unlock()
}

// Dequeue pops the oldest task, or reports ok=false without blocking.
func (q *Queue) Dequeue() (*domain.ConversionTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	task := q.items[0]
	q.items = q.items[1:]
	return task, true
}

// Len reports the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
