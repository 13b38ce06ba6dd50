package orchestrator

import (
	"context"
	"errors"
	"sync"
)

// ErrWorkerClosed is returned for requests submitted after Close.
var ErrWorkerClosed = errors.New("orchestrator: worker closed")

type job struct {
	ctx context.Context
	run func(context.Context) (*Resolution, error)
	out chan Outcome
}

// Worker runs resolution requests one at a time on a dedicated goroutine,
// off the interactive goroutine. Diagnostics produced by a pass reach the
// interactive side through the Resolver's Poster.
type Worker struct {
	r    *Resolver
	jobs chan job
	quit chan struct{}
	wg   sync.WaitGroup

	// mu orders submissions against Close: once closed is set, every
	// accepted job is already buffered and the loop drains it.
	mu     sync.RWMutex
	closed bool
}

// NewWorker starts a worker for r.
func NewWorker(r *Resolver) *Worker {
	w := &Worker{
		r:    r,
		jobs: make(chan job, 64),
		quit: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case j := <-w.jobs:
			res, err := j.run(j.ctx)
			j.out <- Outcome{Resolution: res, Err: err}
			close(j.out)
		case <-w.quit:
			for {
				select {
				case j := <-w.jobs:
					j.out <- Outcome{Err: ErrWorkerClosed}
					close(j.out)
				default:
					return
				}
			}
		}
	}
}

// Submit queues req. The returned channel yields exactly one Outcome.
func (w *Worker) Submit(ctx context.Context, req Request) <-chan Outcome {
	return w.SubmitFunc(ctx, func(ctx context.Context) (*Resolution, error) {
		return w.r.Resolve(ctx, req)
	})
}

// SubmitFunc queues an arbitrary resolver call, such as ResolveForGame.
func (w *Worker) SubmitFunc(ctx context.Context, fn func(context.Context) (*Resolution, error)) <-chan Outcome {
	out := make(chan Outcome, 1)
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		out <- Outcome{Err: ErrWorkerClosed}
		close(out)
		return out
	}
	select {
	case w.jobs <- job{ctx: ctx, run: fn, out: out}:
	case <-ctx.Done():
		out <- Outcome{Err: ctx.Err()}
		close(out)
	}
	return out
}

// Close stops the worker after the running request, if any, finishes.
// Requests still queued receive ErrWorkerClosed.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.quit)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
