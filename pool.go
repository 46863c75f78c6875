// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// poolItem is one queued task with the path it is reported under.
type poolItem[T any] struct {
	task T
	path string
}

// workerPool runs tasks from an unbounded FIFO queue on a fixed set of goroutines.
// Handlers may enqueue follow-up tasks with Spawn. A handler failure is recorded
// as a TaskError and the worker moves on.
type workerPool[T any] struct {
	ctx    context.Context
	handle func(ctx context.Context, task T) error
	wake   chan struct{}
	group  errgroup.Group

	queue []poolItem[T]
	fails []*TaskError

	poll    time.Duration
	pending atomic.Int64

	mu     sync.Mutex
	failMu sync.Mutex
	closed atomic.Bool
}

// newWorkerPool starts workers goroutines. Idle workers re-check the queue every poll.
func newWorkerPool[T any](ctx context.Context, workers int, poll time.Duration, handle func(ctx context.Context, task T) error) *workerPool[T] {
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	p := &workerPool[T]{
		ctx:    ctx,
		handle: handle,
		poll:   poll,
		wake:   make(chan struct{}, 1),
	}

	for range max(workers, 1) {
		p.group.Go(func() error {
			p.work()
			return nil
		})
	}

	return p
}

// Submit enqueues a top-level task. It fails after Close.
// Submit and Close are called from the same driver goroutine.
func (p *workerPool[T]) Submit(path string, task T) error {
	if p.closed.Load() {
		return fmt.Errorf("%w: %s", ErrPoolClosed, path)
	}

	p.Spawn(path, task)
	return nil
}

// Spawn enqueues a follow-up task from a running handler. Accepted after Close.
func (p *workerPool[T]) Spawn(path string, task T) {
	p.pending.Add(1)

	p.mu.Lock()
	p.queue = append(p.queue, poolItem[T]{task: task, path: path})
	p.mu.Unlock()

	p.signal()
}

// Pending returns the number of queued and running tasks.
func (p *workerPool[T]) Pending() int64 {
	return p.pending.Load()
}

// Close stops accepting top-level tasks.
func (p *workerPool[T]) Close() {
	p.closed.Store(true)
	p.signal()
}

// Wait closes the pool, drains it until no task is pending, joins every worker,
// and returns recorded failures sorted by path.
func (p *workerPool[T]) Wait() []*TaskError {
	p.Close()
	_ = p.group.Wait()

	p.failMu.Lock()
	defer p.failMu.Unlock()

	slices.SortStableFunc(p.fails, func(a, b *TaskError) int {
		return cmp.Compare(a.Path, b.Path)
	})

	return p.fails
}

// signal wakes one idle worker without blocking.
func (p *workerPool[T]) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// next pops the queue head.
func (p *workerPool[T]) next() (poolItem[T], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return poolItem[T]{}, false
	}

	item := p.queue[0]
	p.queue[0] = poolItem[T]{}
	p.queue = p.queue[1:]
	if len(p.queue) > 0 {
		p.signal()
	}

	return item, true
}

// work is one worker loop. It exits once the pool is closed and nothing is pending.
func (p *workerPool[T]) work() {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		item, ok := p.next()
		if ok {
			p.run(item)
			if p.pending.Add(-1) == 0 {
				p.signal()
			}

			continue
		}

		if p.closed.Load() && p.pending.Load() == 0 {
			p.signal()
			return
		}

		select {
		case <-p.wake:
		case <-ticker.C:
		}
	}
}

// run executes one task and records its failure.
func (p *workerPool[T]) run(item poolItem[T]) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			p.fail(item.path, err)
		}
	}()

	if ctxErr := p.ctx.Err(); ctxErr != nil {
		err = ctxErr
		return
	}

	err = p.handle(p.ctx, item.task)
}

// fail records one task failure.
func (p *workerPool[T]) fail(path string, err error) {
	p.failMu.Lock()
	p.fails = append(p.fails, &TaskError{Path: path, Err: err})
	p.failMu.Unlock()
}
