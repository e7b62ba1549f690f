package interpreter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// defineMover declares forward + definition of a block that adds step to
// its subject's x.
func defineMover(t *testing.T, b *Builder, name, param string, step int) *AnimationBlock {
	t.Helper()
	require.NotNil(t, b.Forward(name, runtime.Circle, param))
	block := b.Animation(name, runtime.Circle, param)
	require.NotNil(t, block)
	body := b.Block()
	body.Append(b.Assign(b.Member(param, "x"), AddAssign, intConst(step)))
	b.Define(block, body)
	return block
}

func TestInvokeWhileRunningIsDropped(t *testing.T) {
	exec := &manualExecutor{}
	h := newHarness(t, exec)
	a := defineMover(t, h.b, "A", "ca", 1)
	bb := defineMover(t, h.b, "B", "cb", 10)
	h.program(t)

	subject := runtime.NewShape(runtime.Circle)
	require.NoError(t, a.Invoke(subject))
	assert.True(t, a.IsBusy())
	assert.ErrorIs(t, a.Invoke(subject), ErrBusy)

	require.NoError(t, bb.Invoke(subject))
	assert.True(t, a.IsBusy(), "invoking B leaves A running")
	assert.Equal(t, 2, exec.Pending())

	exec.Flush()
	assert.False(t, a.IsBusy())
	assert.False(t, bb.IsBusy())
	x, _ := subject.Field(runtime.FieldX)
	assert.Equal(t, runtime.Int(11), x, "the dropped invocation never ran")
}

func TestParameterRebindsPlaceholderAfterRun(t *testing.T) {
	exec := &manualExecutor{}
	h := newHarness(t, exec)
	a := defineMover(t, h.b, "A", "c", 5)
	h.program(t)

	placeholder, _ := a.Parameter().GetObject()
	subject := runtime.NewShape(runtime.Circle)
	require.NoError(t, a.Invoke(subject))
	exec.Flush()

	bound, _ := a.Parameter().GetObject()
	assert.Same(t, placeholder, bound)
	px, _ := placeholder.Field(runtime.FieldX)
	assert.Equal(t, runtime.Int(0), px)
	sx, _ := subject.Field(runtime.FieldX)
	assert.Equal(t, runtime.Int(5), sx)
}

func TestInvokeRejectsWrongKind(t *testing.T) {
	h := newHarness(t, nil)
	a := defineMover(t, h.b, "A", "c", 1)
	err := a.Invoke(runtime.NewShape(runtime.Rectangle))
	assert.ErrorIs(t, err, diagnostics.New(diagnostics.TypeMismatchBetweenAnimationBlockAndObject))
	assert.False(t, a.IsBusy())
}

func TestForwardDeclarationErrors(t *testing.T) {
	h := newHarness(t, nil)
	b := h.b
	b.At(1)
	b.Forward("move", runtime.Circle, "c")
	b.At(2)
	b.Forward("move", runtime.Circle, "c2")
	b.Forward("jump", runtime.Circle, "c")
	b.Forward("lonely", runtime.Triangle, "t")
	b.At(5)
	assert.Nil(t, b.Animation("spin", runtime.Circle, "s"))
	assert.Nil(t, b.Animation("move", runtime.Rectangle, "c"))
	assert.Nil(t, b.Animation("move", runtime.Circle, "other"))

	block := b.Animation("move", runtime.Circle, "c")
	require.NotNil(t, block)
	b.Define(block, b.Block())
	assert.Nil(t, b.Animation("move", runtime.Circle, "c"))

	_, err := b.Program()
	var list diagnostics.ErrorList
	require.True(t, errors.As(err, &list))
	assert.Equal(t, []diagnostics.Kind{
		diagnostics.PreviouslyDeclaredVariable,
		diagnostics.AnimationParameterNameNotUnique,
		diagnostics.NoForwardForAnimationBlock,
		diagnostics.AnimationParamDoesNotMatchForward,
		diagnostics.AnimationParamDoesNotMatchForward,
		diagnostics.PreviouslyDefinedAnimationBlock,
		diagnostics.NoBodyProvidedForForward,
	}, list.Kinds())
	assert.Equal(t, 2, list[6].Line, "missing body is reported at the forward")
}

func TestAnimateInvokesAttachedBehaviors(t *testing.T) {
	exec := &manualExecutor{}
	h := newHarness(t, exec)
	b := h.b
	defineMover(t, b, "move", "c", 3)
	b.DeclareObject(runtime.Circle, "ball", []Param{{Name: "animation_block", Value: b.Variable("move")}})
	b.DeclareObject(runtime.Circle, "still", nil)
	p := h.program(t)
	require.Len(t, p.Objects(), 2)

	n, err := p.Animate()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.Animate()
	require.NoError(t, err)
	assert.Equal(t, 0, n, "busy block is skipped")

	exec.Flush()
	n, _ = p.Animate()
	assert.Equal(t, 1, n)
	exec.Flush()

	ball, _ := b.Table().Lookup("ball")
	obj, _ := ball.GetObject()
	x, _ := obj.Field(runtime.FieldX)
	assert.Equal(t, runtime.Int(6), x)
}

func TestAnimateRunsSharedBlockForEverySubject(t *testing.T) {
	exec := &manualExecutor{}
	h := newHarness(t, exec)
	b := h.b
	defineMover(t, b, "move", "c", 1)
	b.DeclareObject(runtime.Circle, "left", []Param{{Name: "animation_block", Value: b.Variable("move")}})
	b.DeclareObject(runtime.Circle, "right", []Param{{Name: "animation_block", Value: b.Variable("move")}})
	p := h.program(t)

	n, err := p.Animate()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, exec.Pending(), "one run per block")
	exec.Flush()

	for _, name := range []string{"left", "right"} {
		sym, _ := b.Table().Lookup(name)
		obj, _ := sym.GetObject()
		x, _ := obj.Field(runtime.FieldX)
		assert.Equal(t, runtime.Int(1), x, name)
	}
}

func TestExitCancelsQueuedRuns(t *testing.T) {
	exec := &manualExecutor{}
	h := newHarness(t, exec)
	b := h.b
	b.Forward("quit", runtime.Circle, "q")
	quit := b.Animation("quit", runtime.Circle, "q")
	body := b.Block()
	body.Append(b.Exit(intConst(0)))
	b.Define(quit, body)
	b.Forward("talk", runtime.Circle, "s")
	talk := b.Animation("talk", runtime.Circle, "s")
	body = b.Block()
	body.Append(b.Print(stringConst("b")))
	b.Define(talk, body)
	b.DeclareObject(runtime.Circle, "first", []Param{{Name: "animation_block", Value: b.Variable("quit")}})
	b.DeclareObject(runtime.Circle, "second", []Param{{Name: "animation_block", Value: b.Variable("talk")}})
	handler := b.Block()
	handler.Append(b.Print(stringConst("key")))
	b.On(KeySpace, handler)
	p := h.program(t)

	var faults []error
	h.sched.OnFault(func(_ *AnimationBlock, err error) { faults = append(faults, err) })
	n, err := p.Animate()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	p.Press(KeySpace)
	exec.Flush()

	assert.Empty(t, h.out.String())
	require.Len(t, faults, 1)
	var exit *ExitSignal
	assert.True(t, errors.As(faults[0], &exit))
	assert.False(t, talk.IsBusy(), "a cancelled run still releases its block")
}

func TestAssignMismatchedBehaviorToArrayElement(t *testing.T) {
	h := newHarness(t, nil)
	b := h.b
	defineMover(t, b, "move", "c", 1)
	b.DeclareObjectArray(runtime.Rectangle, "rs", intConst(2))
	assert.Nil(t, b.Assign(b.IndexMember("rs", intConst(0), "animation_block"), Assign, b.Variable("move")))

	b.DeclareObjectArray(runtime.Circle, "cs", intConst(2))
	assert.NotNil(t, b.Assign(b.IndexMember("cs", intConst(1), "animation_block"), Assign, b.Variable("move")))
	assert.Equal(t, []diagnostics.Kind{diagnostics.TypeMismatchBetweenAnimationBlockAndObject}, b.Errors().Kinds())
}

func TestAssignMismatchedBehaviorAtRunTime(t *testing.T) {
	h := newHarness(t, nil)
	b := h.b
	defineMover(t, b, "move", "c", 1)
	b.DeclareObject(runtime.Circle, "ball", []Param{{Name: "animation_block", Value: b.Variable("move")}})
	b.DeclareObject(runtime.Rectangle, "box", nil)
	b.Initialization().Append(b.Assign(b.Member("box", "animation_block"), Assign, b.Member("ball", "animation_block")))
	b.Initialization().Append(b.Print(stringConst("done")))
	p := h.program(t)

	require.NotPanics(t, func() { require.NoError(t, p.Initialize()) })
	assert.Equal(t, "done", h.out.String())
	assert.Equal(t, []diagnostics.Kind{diagnostics.TypeMismatchBetweenAnimationBlockAndObject}, h.reports.Errors().Kinds())

	sym, _ := b.Table().Lookup("box")
	box, _ := sym.GetObject()
	c, _ := box.Field(runtime.FieldAnimationBlock)
	kept, _ := c.GetBehavior()
	assert.Nil(t, kept)
}

func TestBehaviorKindMismatchOnAttach(t *testing.T) {
	h := newHarness(t, nil)
	b := h.b
	defineMover(t, b, "move", "c", 1)
	assert.Nil(t, b.DeclareObject(runtime.Rectangle, "box", []Param{{Name: "animation_block", Value: b.Variable("move")}}))
	b.DeclareObject(runtime.Rectangle, "box2", nil)
	assert.Nil(t, b.Assign(b.Member("box2", "animation_block"), Assign, b.Variable("move")))
	assert.Equal(t, []diagnostics.Kind{
		diagnostics.TypeMismatchBetweenAnimationBlockAndObject,
		diagnostics.TypeMismatchBetweenAnimationBlockAndObject,
	}, b.Errors().Kinds())
}

func TestExitInsideBehaviorReachesFaultHandler(t *testing.T) {
	exec := &manualExecutor{}
	h := newHarness(t, exec)
	b := h.b
	b.Forward("quit", runtime.Circle, "c")
	block := b.Animation("quit", runtime.Circle, "c")
	body := b.Block()
	body.Append(b.Exit(intConst(7)))
	b.Define(block, body)
	h.program(t)

	var got error
	var from *AnimationBlock
	h.sched.OnFault(func(b *AnimationBlock, err error) { from, got = b, err })
	require.NoError(t, block.Invoke(runtime.NewShape(runtime.Circle)))
	exec.Flush()

	var exit *ExitSignal
	require.True(t, errors.As(got, &exit))
	assert.Equal(t, 7, exit.Status)
	assert.Same(t, block, from)
	assert.False(t, block.IsBusy())
}

func TestInternalErrorReturnsBlockToIdle(t *testing.T) {
	exec := &manualExecutor{}
	h := newHarness(t, exec)
	block := defineMover(t, h.b, "A", "c", 1)
	block.Body().Append(panicStmt{})

	var got error
	h.sched.OnFault(func(_ *AnimationBlock, err error) { got = err })
	require.NoError(t, block.Invoke(runtime.NewShape(runtime.Circle)))
	exec.Flush()

	var internal *runtime.InternalError
	assert.True(t, errors.As(got, &internal))
	assert.False(t, block.IsBusy())
}

type panicStmt struct{}

func (panicStmt) Line() int { return 0 }
func (panicStmt) Execute(*Context) error {
	runtime.Must(runtime.ConversionError, "test", runtime.TypeString, runtime.TypeInt)
	return nil
}

func TestKeystrokeDispatchRunsHandlersInOrder(t *testing.T) {
	exec := &manualExecutor{}
	h := newHarness(t, exec)
	b := h.b
	first := b.Block()
	first.Append(b.Print(stringConst("a")))
	second := b.Block()
	second.Append(b.Print(stringConst("b")))
	b.On(KeySpace, first)
	b.On(KeySpace, second)
	p := h.program(t)

	p.Press(KeySpace)
	p.Press(KeyLeftArrow)
	assert.Equal(t, 1, exec.Pending(), "keys without handlers schedule nothing")
	exec.Flush()
	assert.Equal(t, "ab", h.out.String())
	assert.Equal(t, []Keystroke{KeySpace}, p.Events.Keys())
}

func TestKeystrokeNames(t *testing.T) {
	k, ok := ParseKeystroke("space")
	require.True(t, ok)
	assert.Equal(t, KeySpace, k)
	k, ok = LetterKey('q')
	require.True(t, ok)
	assert.Equal(t, "q", k.String())
	_, ok = ParseKeystroke("hyper")
	assert.False(t, ok)
}

func TestInitializationAndTermination(t *testing.T) {
	h := newHarness(t, nil)
	b := h.b
	b.Initialization().Append(b.Print(stringConst("start ")))
	b.Termination().Append(b.Print(stringConst("end")))
	p := h.program(t)
	require.NoError(t, p.Initialize())
	require.NoError(t, p.Terminate())
	assert.Equal(t, "start end", h.out.String())
}

func TestGoroutineExecutorRunsBlocksConcurrently(t *testing.T) {
	exec := NewGoroutineExecutor(nil)
	h := newHarness(t, exec)
	blocks := []*AnimationBlock{
		defineMover(t, h.b, "A", "ca", 1),
		defineMover(t, h.b, "B", "cb", 1),
		defineMover(t, h.b, "C", "cc", 1),
	}
	h.program(t)

	subjects := make([]runtime.GameObject, len(blocks))
	for i, blk := range blocks {
		subjects[i] = runtime.NewShape(runtime.Circle)
		require.NoError(t, blk.Invoke(subjects[i]))
	}
	h.sched.Flush()
	for i, blk := range blocks {
		assert.False(t, blk.IsBusy())
		x, _ := subjects[i].Field(runtime.FieldX)
		assert.Equal(t, runtime.Int(1), x)
	}
}

func TestSerialExecutorPreservesOrder(t *testing.T) {
	exec := NewSerialExecutor(nil)
	defer exec.Close()
	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 5; i++ {
		i := i
		exec.Submit(func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}, nil)
	}
	exec.Flush()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestExecutorRecoversPanics(t *testing.T) {
	exec := NewSerialExecutor(nil)
	defer exec.Close()
	done := make(chan error, 1)
	exec.Submit(func(context.Context) error { panic("boom") }, func(err error) { done <- err })
	err := <-done
	var p *TaskPanic
	require.True(t, errors.As(err, &p))
	assert.Equal(t, "panic: boom", p.Error())
}

func TestParseExecMode(t *testing.T) {
	for _, mode := range []string{"", "serial", "goroutine"} {
		mk, err := ParseExecMode(mode)
		require.NoError(t, err)
		exec := mk()
		exec.Flush()
		exec.Close()
	}
	_, err := ParseExecMode("threads")
	assert.Error(t, err)
}
