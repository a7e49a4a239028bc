package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type tokenKey struct{}

// Queue delivers work for a channel. Every item runs with a context that
// carries the queue token, so code can tell whether it is running on the
// queue via IsCurrent.
type Queue struct {
	label  string
	token  uuid.UUID
	serial bool

	mu     sync.Mutex
	cond   *sync.Cond
	items  []func(ctx context.Context)
	closed bool
	done   chan struct{}
}

var (
	defaultOnce  sync.Once
	defaultQueue *Queue
)

// Default returns the process wide concurrent queue.
func Default() *Queue {
	defaultOnce.Do(func() {
		defaultQueue = NewConcurrent("default")
	})
	return defaultQueue
}

// NewSerial returns a queue that runs work one item at a time, in the order it
// was submitted.
func NewSerial(label string) *Queue {
	q := newQueue(label, true)
	go q.loop()
	return q
}

// NewConcurrent returns a queue that runs every item on its own goroutine.
func NewConcurrent(label string) *Queue {
	q := newQueue(label, false)
	close(q.done)
	return q
}

func newQueue(label string, serial bool) *Queue {
	q := &Queue{
		label:  label,
		token:  uuid.New(),
		serial: serial,
		done:   make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *Queue) Label() string {
	return q.label
}

func (q *Queue) Serial() bool {
	return q.serial
}

// Async submits fn. It never blocks the caller. Work submitted after Close is
// dropped.
func (q *Queue) Async(fn func(ctx context.Context)) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if !q.serial {
		q.mu.Unlock()
		go fn(q.context())
		return
	}
	q.items = append(q.items, fn)
	q.cond.Signal()
	q.mu.Unlock()
}

// IsCurrent reports whether ctx was handed out by this queue.
func (q *Queue) IsCurrent(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	token, ok := ctx.Value(tokenKey{}).(uuid.UUID)
	return ok && token == q.token
}

// Close stops accepting work. A serial queue finishes the work already
// submitted before its goroutine exits.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Done is closed once a serial queue has drained after Close.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) context() context.Context {
	return context.WithValue(context.Background(), tokenKey{}, q.token)
}

func (q *Queue) loop() {
	defer close(q.done)
	ctx := q.context()
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()

		fn(ctx)
	}
}
