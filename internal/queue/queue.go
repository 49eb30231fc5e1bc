package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Task kinds dispatched to enrichment workers.
const (
	TaskTranslate     = "translate"
	TaskGeocode       = "geocode"
	TaskImageTransfer = "image_transfer"
)

// Task is one unit of out-of-band enrichment work for a property.
type Task struct {
	Kind       string
	PropertyID int64
}

// TaskQueue is an in-memory queue for enrichment tasks. Producers never
// block: a full queue drops the task, which is acceptable because enrichment
// is best-effort by contract.
type TaskQueue struct {
	items    chan Task
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(Task) error
}

// NewTaskQueue creates a task queue with the specified buffer size.
func NewTaskQueue(bufferSize int, logger *logrus.Logger) *TaskQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &TaskQueue{
		items:   make(chan Task, bufferSize),
		done:    make(chan struct{}),
		maxSize: bufferSize,
		logger:  logger,
	}
}

// Push adds a task to the queue without blocking.
func (q *TaskQueue) Push(task Task) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	select {
	case q.items <- task:
		q.logger.WithFields(logrus.Fields{
			"kind":        task.Kind,
			"property_id": task.PropertyID,
		}).Debug("Enqueued enrichment task")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function called for each task.
func (q *TaskQueue) Subscribe(handler func(Task) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing tasks with the given number of workers.
func (q *TaskQueue) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go q.process()
	}
}

func (q *TaskQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case task := <-q.items:
			q.dispatch(task)
		}
	}
}

// dispatch sends the task to all subscribed handlers. Handler errors are
// logged against the property id and never propagate.
func (q *TaskQueue) dispatch(task Task) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(task); err != nil {
			q.logger.WithError(err).WithFields(logrus.Fields{
				"kind":        task.Kind,
				"property_id": task.PropertyID,
			}).Error("Enrichment task failed")
		}
	}
}

// Close stops the queue and prevents new tasks from being added.
func (q *TaskQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	return nil
}

// Len returns the current number of queued tasks.
func (q *TaskQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed.
func (q *TaskQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
