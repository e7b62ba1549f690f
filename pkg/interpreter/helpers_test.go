package interpreter

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/runtime"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// manualExecutor queues tasks until Flush runs them on the caller's goroutine.
type manualExecutor struct {
	executorBase

	mu        sync.Mutex
	tasks     []func()
	cancelled bool
}

func (m *manualExecutor) context() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelled {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return context.Background()
}

func (m *manualExecutor) Submit(task Task, done func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, func() {
		err := m.safeInvoke(m.context(), task)
		if done != nil {
			done(err)
		}
	})
}

func (m *manualExecutor) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *manualExecutor) Flush() {
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 {
			m.mu.Unlock()
			return
		}
		next := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.mu.Unlock()
		next()
	}
}

func (m *manualExecutor) Cancel() {
	m.mu.Lock()
	m.cancelled = true
	m.mu.Unlock()
}

func (m *manualExecutor) Close() {}

type harness struct {
	out     *bytes.Buffer
	reports *diagnostics.Collector
	env     *Env
	exec    Executor
	sched   *Scheduler
	b       *Builder
}

func newHarness(t *testing.T, exec Executor) *harness {
	t.Helper()
	h := &harness{out: &bytes.Buffer{}, reports: &diagnostics.Collector{}}
	h.env = NewEnv(h.out, h.reports, 42)
	if exec == nil {
		exec = &manualExecutor{}
	}
	h.exec = exec
	h.sched = NewScheduler(h.env, exec, zerolog.Nop())
	h.b = NewBuilder(h.sched)
	t.Cleanup(h.sched.Close)
	return h
}

func (h *harness) ctx() *Context { return h.env.Context() }

func (h *harness) program(t *testing.T) *Program {
	t.Helper()
	p, err := h.b.Program()
	require.NoError(t, err)
	return p
}

func intConst(v int) Expression        { return NewConstant(runtime.Int(v)) }
func doubleConst(v float64) Expression { return NewConstant(runtime.Double(v)) }
func stringConst(v string) Expression  { return NewConstant(runtime.String(v)) }

func mustBinary(t *testing.T, op Operator, l, r Expression) Expression {
	t.Helper()
	e, err := NewBinaryExpr(op, l, r)
	require.NoError(t, err)
	return e
}

func mustUnary(t *testing.T, op Operator, x Expression) Expression {
	t.Helper()
	e, err := NewUnaryExpr(op, x)
	require.NoError(t, err)
	return e
}
