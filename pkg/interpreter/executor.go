package interpreter

import (
	"context"
	"fmt"
	"sync"
)

// Task is a unit of behavior work run by an Executor.
type Task func(ctx context.Context) error

// Executor abstracts how behavior invocations are scheduled.
type Executor interface {
	// Submit schedules task; done receives its outcome once it finishes.
	Submit(task Task, done func(error))
	// Flush blocks until every submitted task has finished.
	Flush()
	// Cancel abandons queued work. Tasks that have not started finish
	// without running; running tasks see their context cancelled.
	Cancel()
	Close()
}

// ParseExecMode maps a mode name to an executor constructor.
func ParseExecMode(mode string) (func() Executor, error) {
	switch mode {
	case "", "serial":
		return func() Executor { return NewSerialExecutor(nil) }, nil
	case "goroutine":
		return func() Executor { return NewGoroutineExecutor(nil) }, nil
	}
	return nil, fmt.Errorf("unknown exec mode %q (expected serial or goroutine)", mode)
}

type panicErrorFunc func(any) error

type executorBase struct {
	panicError panicErrorFunc
}

func (b *executorBase) safeInvoke(ctx context.Context, task Task) (err error) {
	if ctx.Err() != nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			if b.panicError != nil {
				err = b.panicError(r)
				return
			}
			if e, ok := r.(error); ok {
				err = &TaskPanic{Value: r, cause: e}
				return
			}
			err = &TaskPanic{Value: r}
		}
	}()
	return task(ctx)
}

// TaskPanic wraps a value recovered from a panicking task.
type TaskPanic struct {
	Value any
	cause error
}

func (p *TaskPanic) Error() string { return fmt.Sprintf("panic: %v", p.Value) }
func (p *TaskPanic) Unwrap() error { return p.cause }

// GoroutineExecutor runs every task on its own goroutine.
type GoroutineExecutor struct {
	executorBase

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGoroutineExecutor(panicHandler panicErrorFunc) *GoroutineExecutor {
	ctx, cancel := context.WithCancel(context.Background())
	return &GoroutineExecutor{
		executorBase: executorBase{panicError: panicHandler},
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (e *GoroutineExecutor) Submit(task Task, done func(error)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := e.safeInvoke(e.ctx, task)
		if done != nil {
			done(err)
		}
	}()
}

func (e *GoroutineExecutor) Flush() {
	e.wg.Wait()
}

func (e *GoroutineExecutor) Cancel() { e.cancel() }

func (e *GoroutineExecutor) Close() {
	e.cancel()
}

type serialTask struct {
	task Task
	done func(error)
}

// SerialExecutor executes tasks one at a time on a single worker goroutine,
// in submission order.
type SerialExecutor struct {
	executorBase

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []serialTask
	closed bool
	active bool
}

func NewSerialExecutor(panicHandler panicErrorFunc) *SerialExecutor {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &SerialExecutor{
		executorBase: executorBase{panicError: panicHandler},
		ctx:          ctx,
		cancel:       cancel,
	}
	exec.cond = sync.NewCond(&exec.mu)
	go exec.loop()
	return exec
}

func (e *SerialExecutor) Submit(task Task, done func(error)) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		if done != nil {
			done(context.Canceled)
		}
		return
	}
	e.queue = append(e.queue, serialTask{task: task, done: done})
	e.cond.Signal()
	e.mu.Unlock()
}

func (e *SerialExecutor) loop() {
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.cond.Wait()
		}
		if e.closed && len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		next := e.queue[0]
		e.queue = e.queue[1:]
		e.active = true
		e.mu.Unlock()

		err := e.safeInvoke(e.ctx, next.task)
		if next.done != nil {
			next.done(err)
		}

		e.mu.Lock()
		e.active = false
		e.cond.Broadcast()
		e.mu.Unlock()
	}
}

func (e *SerialExecutor) Cancel() { e.cancel() }

// Close stops accepting tasks. Queued tasks are drained without running.
func (e *SerialExecutor) Close() {
	e.mu.Lock()
	e.closed = true
	e.cond.Broadcast()
	e.mu.Unlock()
	e.cancel()
}

func (e *SerialExecutor) Flush() {
	e.mu.Lock()
	for len(e.queue) > 0 || e.active {
		e.cond.Wait()
	}
	e.mu.Unlock()
}
