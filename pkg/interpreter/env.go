package interpreter

import (
	"io"
	"math/rand/v2"
	"sync"

	"github.com/iam1me/gpl/pkg/diagnostics"
)

// Env holds the services every execution shares: the print sink, the
// diagnostic reporter and the random source.
type Env struct {
	outMu sync.Mutex
	out   io.Writer

	reporter diagnostics.Reporter

	randMu sync.Mutex
	rng    *rand.Rand
}

// NewEnv builds an environment. A nil reporter discards reports.
func NewEnv(out io.Writer, reporter diagnostics.Reporter, seed uint64) *Env {
	if out == nil {
		out = io.Discard
	}
	if reporter == nil {
		reporter = diagnostics.Discard
	}
	return &Env{
		out:      out,
		reporter: reporter,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Context starts a fresh execution context.
func (e *Env) Context() *Context {
	return &Context{env: e}
}

func (e *Env) print(s string) error {
	e.outMu.Lock()
	defer e.outMu.Unlock()
	_, err := io.WriteString(e.out, s)
	return err
}

// intn draws uniformly from [0, n).
func (e *Env) intn(n int) int {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return e.rng.IntN(n)
}

// Context is the state of one execution: a program initialization, one
// behavior invocation or one keystroke dispatch.
type Context struct {
	env  *Env
	line int
}

func (c *Context) Env() *Env { return c.env }

// Line is the source line of the statement currently executing.
func (c *Context) Line() int { return c.line }

func (c *Context) report(err *diagnostics.Error) {
	c.env.reporter.Report(err.AtLine(c.line))
}
