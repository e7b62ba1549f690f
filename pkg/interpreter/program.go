package interpreter

import (
	"errors"

	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/runtime"
)

// Program is a fully constructed script: its symbols, behaviors and
// keystroke handlers.
type Program struct {
	Table          *runtime.SymbolTable
	Events         *EventManager
	Animations     []*AnimationBlock
	Initialization *Block
	Termination    *Block

	objects []runtime.GameObject
	sched   *Scheduler
}

func (p *Program) Scheduler() *Scheduler { return p.sched }

// Objects lists the declared game objects in declaration order. Behavior
// parameter symbols are excluded.
func (p *Program) Objects() []runtime.GameObject { return p.objects }

func (p *Program) Animation(name string) (*AnimationBlock, bool) {
	for _, a := range p.Animations {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// Initialize runs the initialization block synchronously.
func (p *Program) Initialize() error {
	return p.Initialization.Execute(p.sched.Env().Context())
}

// Terminate runs the termination block synchronously.
func (p *Program) Terminate() error {
	return p.Termination.Execute(p.sched.Env().Context())
}

// Animate runs, once, the behavior attached to every object that has one.
// Objects sharing a block are visited by a single run of it, in declaration
// order. Blocks whose run from an earlier frame is still in progress are
// skipped. It returns how many objects were scheduled.
func (p *Program) Animate() (int, error) {
	var order []*AnimationBlock
	subjects := make(map[*AnimationBlock][]runtime.GameObject)
	var errs []error
	for _, obj := range p.objects {
		c, ok := obj.Field(runtime.FieldAnimationBlock)
		if !ok {
			continue
		}
		b, _ := c.GetBehavior()
		block, ok := b.(*AnimationBlock)
		if !ok || block == nil {
			continue
		}
		if obj.Kind() != block.ParameterKind() {
			errs = append(errs, diagnostics.New(diagnostics.TypeMismatchBetweenAnimationBlockAndObject, obj.Kind().String(), block.Name()))
			continue
		}
		if _, seen := subjects[block]; !seen {
			order = append(order, block)
		}
		subjects[block] = append(subjects[block], obj)
	}

	started := 0
	for _, block := range order {
		switch err := block.Invoke(subjects[block]...); {
		case err == nil:
			started += len(subjects[block])
		case errors.Is(err, ErrBusy):
		default:
			errs = append(errs, err)
		}
	}
	return started, errors.Join(errs...)
}

// Press schedules the handlers registered for key.
func (p *Program) Press(key Keystroke) {
	p.sched.Dispatch(p.Events, key)
}
