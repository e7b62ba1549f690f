package interpreter

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/runtime"
)

// ErrBusy is returned by Invoke when the block's previous run is still in
// progress. The invocation is dropped, not queued.
var ErrBusy = errors.New("animation block is busy")

// BlockState is the run state of an animation block.
type BlockState int32

const (
	Idle BlockState = iota
	Running
)

func (s BlockState) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// AnimationBlock is a named behavior taking one object parameter. At most
// one run of a block is in progress at a time; a run may visit several
// subjects.
type AnimationBlock struct {
	name        string
	kind        runtime.ObjectKind
	param       *runtime.Variable
	placeholder runtime.GameObject
	body        *Block
	line        int

	sched *Scheduler
	state atomic.Int32
}

// NewAnimationBlock declares a block whose parameter symbol is bound to a
// placeholder object of the given kind until the block is invoked.
func NewAnimationBlock(name string, param *runtime.Variable, kind runtime.ObjectKind, sched *Scheduler) *AnimationBlock {
	placeholder := runtime.NewShape(kind)
	param.Bind(placeholder)
	return &AnimationBlock{
		name:        name,
		kind:        kind,
		param:       param,
		placeholder: placeholder,
		sched:       sched,
	}
}

func (a *AnimationBlock) Name() string                      { return a.name }
func (a *AnimationBlock) ParameterKind() runtime.ObjectKind { return a.kind }
func (a *AnimationBlock) Parameter() *runtime.Variable      { return a.param }
func (a *AnimationBlock) Body() *Block                      { return a.body }
func (a *AnimationBlock) Defined() bool                     { return a.body != nil }
func (a *AnimationBlock) State() BlockState                 { return BlockState(a.state.Load()) }
func (a *AnimationBlock) IsBusy() bool                      { return a.State() == Running }

// SetBody attaches the block's statements. Forward declared blocks have no
// body until their definition is seen.
func (a *AnimationBlock) SetBody(line int, body *Block) {
	a.line = line
	a.body = body
}

// Run executes the body synchronously with the parameter bound to subject,
// then rebinds the placeholder. The caller must hold the Running state.
func (a *AnimationBlock) Run(ctx *Context, subject runtime.GameObject) error {
	a.param.Bind(subject)
	defer a.param.Bind(a.placeholder)
	if a.body == nil {
		return nil
	}
	ctx.line = a.line
	return a.body.Execute(ctx)
}

// Invoke schedules one run of the block that visits each subject in turn.
// It returns ErrBusy when the run scheduled by an earlier call has not
// finished, and a type mismatch error when a subject is not of the
// parameter's kind. Nothing is scheduled in either case.
func (a *AnimationBlock) Invoke(subjects ...runtime.GameObject) error {
	for _, subject := range subjects {
		if subject == nil || subject.Kind() != a.kind {
			return diagnostics.New(diagnostics.TypeMismatchBetweenAnimationBlockAndObject, kindName(subject), a.name)
		}
	}
	if len(subjects) == 0 {
		return nil
	}
	if !a.state.CompareAndSwap(int32(Idle), int32(Running)) {
		a.sched.logger.Debug().Str("block", a.name).Msg("invocation dropped: block busy")
		return ErrBusy
	}
	a.sched.submit(a, func(ctx context.Context) error {
		for _, subject := range subjects {
			if ctx.Err() != nil {
				return nil
			}
			if err := a.Run(a.sched.env.Context(), subject); err != nil {
				return err
			}
		}
		return nil
	})
	return nil
}

func kindName(obj runtime.GameObject) string {
	if obj == nil {
		return "<no object>"
	}
	return obj.Kind().String()
}
