package interpreter

import (
	"context"
	"errors"
	"sync"

	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/runtime"
	"github.com/rs/zerolog"
)

// FaultHandler receives every error that ends a behavior or handler run.
// block is nil for keystroke handlers.
type FaultHandler func(block *AnimationBlock, err error)

// Scheduler runs behavior invocations and keystroke handlers on an
// executor and routes their failures to a fault handler.
type Scheduler struct {
	env    *Env
	exec   Executor
	logger zerolog.Logger

	mu      sync.RWMutex
	onFault FaultHandler
}

// NewScheduler builds a scheduler. A nil executor selects a SerialExecutor.
func NewScheduler(env *Env, exec Executor, logger zerolog.Logger) *Scheduler {
	if exec == nil {
		exec = NewSerialExecutor(nil)
	}
	return &Scheduler{env: env, exec: exec, logger: logger}
}

func (s *Scheduler) Env() *Env { return s.env }

// OnFault replaces the fault handler. The default handler logs.
func (s *Scheduler) OnFault(fn FaultHandler) {
	s.mu.Lock()
	s.onFault = fn
	s.mu.Unlock()
}

// Flush waits until every scheduled run has finished. It must not be called
// from inside a run.
func (s *Scheduler) Flush() { s.exec.Flush() }

func (s *Scheduler) Close() { s.exec.Close() }

// Cancel abandons every run that has been scheduled but not started. It is
// called on the first exit or engine fault.
func (s *Scheduler) Cancel() { s.exec.Cancel() }

// submit schedules task. A block is returned to Idle once its task is done,
// whether it ran or was cancelled.
func (s *Scheduler) submit(block *AnimationBlock, task Task) {
	s.exec.Submit(task, func(err error) {
		if block != nil {
			block.state.Store(int32(Idle))
		}
		if err != nil {
			s.fault(block, err)
		}
	})
}

// Dispatch schedules every handler block bound to key, in order, as one run.
func (s *Scheduler) Dispatch(events *EventManager, key Keystroke) {
	if len(events.Handlers(key)) == 0 {
		return
	}
	s.submit(nil, func(ctx context.Context) error {
		return events.Execute(s.env.Context(), key)
	})
}

func (s *Scheduler) fault(block *AnimationBlock, err error) {
	if terminal(err) {
		s.Cancel()
	}
	s.mu.RLock()
	fn := s.onFault
	s.mu.RUnlock()
	if fn != nil {
		fn(block, err)
		return
	}
	s.logFault(block, err)
}

// terminal reports whether err ends the whole program rather than one run.
func terminal(err error) bool {
	var exit *ExitSignal
	var internal *runtime.InternalError
	return errors.As(err, &exit) || errors.As(err, &internal)
}

func (s *Scheduler) logFault(block *AnimationBlock, err error) {
	event := s.logger.Error()
	var exit *ExitSignal
	var internal *runtime.InternalError
	var scriptErr *diagnostics.Error
	switch {
	case errors.As(err, &exit):
		event = s.logger.Info().Int("status", exit.Status)
	case errors.As(err, &internal):
		event = s.logger.Error().Str("fault", "internal")
	case errors.As(err, &scriptErr):
		event = event.Str("kind", scriptErr.Kind.String())
	}
	if block != nil {
		event = event.Str("block", block.Name())
	}
	event.Err(err).Msg("run ended with error")
}
