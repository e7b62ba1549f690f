package driver

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/iam1me/gpl/pkg/interpreter"
	"github.com/iam1me/gpl/pkg/runtime"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// FrameDriver animates a program: once per frame it invokes every object's
// behavior, and between frames it dispatches keystrokes.
type FrameDriver struct {
	program *interpreter.Program
	limiter *rate.Limiter
	limit   int
	logger  zerolog.Logger

	frames atomic.Int64
}

func NewFrameDriver(program *interpreter.Program, spec FrameSpec, logger zerolog.Logger) *FrameDriver {
	fps := spec.Rate
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return &FrameDriver{
		program: program,
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
		limit:   spec.Limit,
		logger:  logger,
	}
}

// Frames reports how many frames have been driven so far.
func (d *FrameDriver) Frames() int { return int(d.frames.Load()) }

// Run drives frames until the frame limit is reached, ctx is cancelled, or
// the program exits. An exit is returned as *interpreter.ExitSignal; an
// engine fault as the error that caused it. Cancellation of ctx is a normal
// stop. keys may be nil.
func (d *FrameDriver) Run(ctx context.Context, keys <-chan interpreter.Keystroke) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	sched := d.program.Scheduler()
	sched.OnFault(func(block *interpreter.AnimationBlock, err error) {
		d.fault(block, err, cancel)
	})
	defer sched.OnFault(nil)

	g, gctx := errgroup.WithContext(ctx)
	framesDone := make(chan struct{})
	g.Go(func() error {
		defer close(framesDone)
		return d.loop(gctx)
	})
	g.Go(func() error {
		return d.dispatch(gctx, keys, framesDone)
	})
	err := g.Wait()
	sched.Flush()

	if cause := context.Cause(ctx); cause != nil && !stopped(cause) {
		return cause
	}
	return err
}

func stopped(cause error) bool {
	return errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded)
}

func (d *FrameDriver) fault(block *interpreter.AnimationBlock, err error, stop context.CancelCauseFunc) {
	var exit *interpreter.ExitSignal
	var internal *runtime.InternalError
	event := d.logger.Error()
	if block != nil {
		event = event.Str("block", block.Name())
	}
	switch {
	case errors.As(err, &exit):
		d.logger.Debug().Int("status", exit.Status).Msg("program exit")
		stop(exit)
	case errors.As(err, &internal):
		event.Err(err).Msg("engine fault; stopping")
		stop(err)
	default:
		event.Err(err).Msg("run failed")
	}
}

func (d *FrameDriver) loop(ctx context.Context) error {
	for d.limit == 0 || d.Frames() < d.limit {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil
		}
		started, err := d.program.Animate()
		if err != nil {
			d.logger.Warn().Err(err).Msg("animate")
		}
		n := d.frames.Add(1)
		d.logger.Trace().Int64("frame", n).Int("started", started).Msg("frame")
	}
	return nil
}

func (d *FrameDriver) dispatch(ctx context.Context, keys <-chan interpreter.Keystroke, framesDone <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-framesDone:
			return nil
		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			d.logger.Debug().Stringer("key", key).Msg("keystroke")
			d.program.Press(key)
		}
	}
}
