// Package workerpool bounds how many tasks run at once.
//
//	pool := workerpool.New(8)
//	defer pool.Shutdown()
//	for _, ev := range batch {
//	    ev := ev
//	    if err := pool.Submit(ctx, func() { publish(ev) }); err != nil {
//	        break
//	    }
//	}
//	pool.Wait()
//
// TrySubmit never blocks and reports ErrPoolFull instead, for callers that
// prefer shedding load over waiting.
package workerpool

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/naturelovers/storefront/pkg/logger"
)

var (
	// ErrPoolFull is returned by TrySubmit when every slot is busy.
	ErrPoolFull = errors.New("workerpool: pool is full")
	// ErrPoolClosed is returned after Shutdown.
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

// Pool runs at most Size tasks concurrently, each on its own goroutine.
type Pool struct {
	slots  chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// New creates a pool with size slots (at least one).
func New(size int) *Pool {
	return &Pool{slots: make(chan struct{}, max(size, 1))}
}

// Size is the concurrency limit.
func (p *Pool) Size() int { return cap(p.slots) }

// Submit waits for a free slot, then runs task. It returns ctx.Err() if ctx
// ends first.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.start(task)
	return nil
}

// TrySubmit runs task if a slot is free right now.
func (p *Pool) TrySubmit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.slots <- struct{}{}:
	default:
		return ErrPoolFull
	}
	p.start(task)
	return nil
}

func (p *Pool) start(task func()) {
	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.slots
			p.wg.Done()
		}()
		safeRun(task)
	}()
}

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() { p.wg.Wait() }

// Shutdown rejects new tasks and waits for the running ones. Safe to call
// more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

// safeRun keeps a panicking task from taking the process down.
func safeRun(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("workerpool: task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}
