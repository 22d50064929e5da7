package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Task produces one result of type R.
type Task[R any] func(ctx context.Context) R

// ResultCallback is invoked on completion (from a worker goroutine). err is
// set only when the task produced no result: it panicked or its context
// ended before it started. The event loop should pass a closure that posts
// back into the event loop safely.
type ResultCallback[R any] func(res R, err error)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool[R any] struct {
	jobs chan job[R]
	wg   sync.WaitGroup
}

type job[R any] struct {
	ctx  context.Context
	task Task[R]
	cb   ResultCallback[R]
}

// New creates a worker pool of size workers; size<=0 means one.
func New[R any](size int) *Pool[R] {
	if size <= 0 {
		size = 1
	}
	p := &Pool[R]{jobs: make(chan job[R], 1)}
	p.start(size)
	return p
}

func (p *Pool[R]) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for j := range p.jobs {
				p.run(id, j)
			}
		}(i)
	}
}

func (p *Pool[R]) run(id int, j job[R]) {
	var zero R
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d: task panic: %v", id, r)
			j.cb(zero, fmt.Errorf("task panic: %v", r))
		}
	}()
	if err := j.ctx.Err(); err != nil {
		log.Printf("Worker %d: task cancelled before start: %v", id, err)
		j.cb(zero, err)
		return
	}
	res := j.task(j.ctx)
	log.Printf("Worker %d: task finished", id)
	j.cb(res, nil)
}

// Submit enqueues a task if the single-slot queue is free. Returns false if dropped.
func (p *Pool[R]) Submit(ctx context.Context, task Task[R], cb ResultCallback[R]) bool {
	select {
	case p.jobs <- job[R]{ctx: ctx, task: task, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool[R]) Close() {
	close(p.jobs)
	p.wg.Wait()
}
