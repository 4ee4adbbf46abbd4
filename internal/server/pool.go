package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"

	"github.com/ColeHoward/Dispatch-HTTP/internal/types"
)

var (
	ErrPoolClosed  = errors.New("worker pool is shut down")
	ErrInvalidTask = errors.New("task needs a request and a handler")
)

// Task pairs a request with the handler resolved for it. Done receives the
// response exactly once, from the worker that ran the task.
type Task struct {
	Request *types.Request
	Handler types.Handler
	Done    func(*types.Response)
}

// Pool runs tasks on a fixed number of workers. The queue in front of the
// workers is unbounded.
type Pool struct {
	logger *log.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Task
	closed bool

	workers sync.WaitGroup
}

func NewPool(size int, logger *log.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	p := &Pool{logger: logger}
	p.cond = sync.NewCond(&p.mu)

	p.workers.Add(size)
	for i := range size {
		go p.work(i)
	}
	return p
}

// Submit queues t. It never blocks on busy workers.
func (p *Pool) Submit(t Task) error {
	if t.Request == nil || t.Handler == nil {
		return ErrInvalidTask
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.queue = append(p.queue, t)
	p.cond.Signal()
	return nil
}

// Queued reports tasks waiting for a worker.
func (p *Pool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// next blocks until a task is available; ok is false once the pool is closed
// and the queue is drained.
func (p *Pool) next() (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return Task{}, false
	}
	t := p.queue[0]
	p.queue[0] = Task{}
	p.queue = p.queue[1:]
	return t, true
}

func (p *Pool) work(workerID int) {
	defer p.workers.Done()
	for {
		t, ok := p.next()
		if !ok {
			return
		}
		res := p.run(workerID, t)
		if t.Done != nil {
			t.Done(res)
		}
	}
}

// run invokes the handler, turning errors and panics into a 500
func (p *Pool) run(workerID int, t Task) (res *types.Response) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("worker %d: panic handling %s %s: %v\n%s",
				workerID, t.Request.Method, t.Request.Path, r, debug.Stack())
			res = internalError()
		}
	}()

	res, err := t.Handler.Handle(t.Request)
	if err != nil {
		p.logger.Printf("worker %d: error handling %s %s: %v", workerID, t.Request.Method, t.Request.Path, err)
		return internalError()
	}
	if res == nil {
		p.logger.Printf("worker %d: handler for %s returned no response", workerID, t.Request.Path)
		return internalError()
	}
	return res
}

// Shutdown stops accepting tasks and waits for queued and running tasks to
// finish. If ctx ends first the remaining workers are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}
	// an expired context still succeeds if the workers have already exited
	select {
	case <-done:
		return nil
	default:
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
