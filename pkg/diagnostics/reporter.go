package diagnostics

import (
	"sync"

	"github.com/rs/zerolog"
)

// Reporter receives recoverable run-time errors. Reporting never unwinds the
// caller; the engine substitutes a fallback value and keeps executing.
type Reporter interface {
	Report(err *Error)
}

// LogReporter writes each report to a zerolog logger.
type LogReporter struct {
	Logger zerolog.Logger
}

func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{Logger: logger}
}

func (r *LogReporter) Report(err *Error) {
	if err == nil {
		return
	}
	event := r.Logger.Error()
	if err.Kind == ArrayIndexOutOfBounds {
		// the read continues with element 0, which hides real script bugs
		event = r.Logger.Warn().Str("array", err.Args[0]).Str("index", err.Args[1]).Str("substitute", "0")
	}
	event.Str("kind", err.Kind.String()).Int("line", err.Line).Msg(err.Error())
}

// Collector keeps every report in memory.
type Collector struct {
	mu   sync.Mutex
	errs ErrorList
}

func (c *Collector) Report(err *Error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

// Errors returns a copy of the collected reports.
func (c *Collector) Errors() ErrorList {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(ErrorList, len(c.errs))
	copy(out, c.errs)
	return out
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Tee forwards each report to every reporter in order.
type Tee []Reporter

func (t Tee) Report(err *Error) {
	for _, r := range t {
		if r != nil {
			r.Report(err)
		}
	}
}

// Discard drops every report.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(*Error) {}
