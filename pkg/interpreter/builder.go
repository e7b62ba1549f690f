package interpreter

import (
	"errors"

	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/runtime"
)

// Param is one constructor argument of an object declaration.
type Param struct {
	Name  string
	Value Expression
}

type forward struct {
	block *AnimationBlock
	line  int
}

// Builder assembles a program from declarations, expressions and statements.
// Construction errors are collected rather than returned one by one; a
// constructor whose input failed returns nil and reports nothing further, so
// one mistake yields one error.
type Builder struct {
	table  *runtime.SymbolTable
	events *EventManager
	sched  *Scheduler
	ctx    *Context

	forwards map[string]*forward
	order    []string
	init     *Block
	term     *Block

	line int
	errs diagnostics.ErrorList
}

func NewBuilder(sched *Scheduler) *Builder {
	return &Builder{
		table:    runtime.NewSymbolTable(),
		events:   NewEventManager(),
		sched:    sched,
		ctx:      sched.Env().Context(),
		forwards: make(map[string]*forward),
		init:     NewBlock(0),
		term:     NewBlock(0),
	}
}

func (b *Builder) Table() *runtime.SymbolTable { return b.table }

// At sets the source line attached to the next constructions.
func (b *Builder) At(line int) *Builder {
	b.line = line
	return b
}

func (b *Builder) Errors() diagnostics.ErrorList { return b.errs }

func (b *Builder) fail(err error) {
	var scriptErr *diagnostics.Error
	if errors.As(err, &scriptErr) {
		b.errs = append(b.errs, scriptErr.AtLine(b.line))
		return
	}
	b.errs = append(b.errs, diagnostics.New(diagnostics.UndefinedError, err.Error()).AtLine(b.line))
}

// eval computes a declaration-time value such as an initializer or an
// array size.
func (b *Builder) eval(e Expression) runtime.Value {
	b.ctx.line = b.line
	return e.Eval(b.ctx)
}

//-----------------------------------------------------------------------------
// Declarations
//-----------------------------------------------------------------------------

// DeclareVariable declares an int, double or string; init may be nil.
func (b *Builder) DeclareVariable(typ runtime.Type, name string, init Expression) *runtime.Variable {
	var (
		v      *runtime.Variable
		status runtime.ConversionStatus
	)
	if init == nil {
		v = runtime.NewVariable(name, typ)
	} else {
		if !runtime.Convert(typ, init.Type()).OK() {
			b.fail(diagnostics.New(diagnostics.InvalidTypeForInitialValue, name))
			return nil
		}
		v, status = runtime.NewInitializedVariable(name, typ, b.eval(init))
		runtime.Must(status, "initialize "+name, init.Type(), typ)
	}
	if err := b.table.Declare(v); err != nil {
		b.fail(err)
		return nil
	}
	return v
}

func (b *Builder) arraySize(name string, size Expression) (int, bool) {
	if size == nil {
		return 0, false
	}
	if size.Type() != runtime.TypeInt {
		b.fail(diagnostics.InvalidSize(name, size.Type().String()))
		return 0, false
	}
	return getInt(b.eval(size)), true
}

// DeclareArray declares size cells of typ named name[0] .. name[size-1].
func (b *Builder) DeclareArray(typ runtime.Type, name string, size Expression) []*runtime.Variable {
	n, ok := b.arraySize(name, size)
	if !ok {
		return nil
	}
	elems, err := b.table.DeclareArray(name, n, func(elem string) *runtime.Variable {
		return runtime.NewVariable(elem, typ)
	})
	if err != nil {
		b.fail(err)
		return nil
	}
	return elems
}

// DeclareObject declares an object of kind with the given constructor
// arguments applied over the defaults.
func (b *Builder) DeclareObject(kind runtime.ObjectKind, name string, params []Param) *runtime.Variable {
	obj, ok := b.construct(kind, name, params)
	if !ok {
		return nil
	}
	v := runtime.NewVariable(name, runtime.TypeObject)
	v.SetObject(obj)
	if err := b.table.Declare(v); err != nil {
		b.fail(err)
		return nil
	}
	return v
}

// DeclareObjectArray declares size default objects of kind.
func (b *Builder) DeclareObjectArray(kind runtime.ObjectKind, name string, size Expression) []*runtime.Variable {
	n, ok := b.arraySize(name, size)
	if !ok {
		return nil
	}
	elems, err := b.table.DeclareArray(name, n, func(elem string) *runtime.Variable {
		v := runtime.NewVariable(elem, runtime.TypeObject)
		v.SetObject(runtime.NewShape(kind))
		return v
	})
	if err != nil {
		b.fail(err)
		return nil
	}
	return elems
}

func (b *Builder) construct(kind runtime.ObjectKind, name string, params []Param) (runtime.GameObject, bool) {
	obj := runtime.NewShape(kind)
	ok := true
	for _, p := range params {
		if p.Value == nil {
			ok = false
			continue
		}
		id, found := runtime.LookupField(p.Name)
		var typ runtime.Type
		if found {
			typ, found = obj.FieldType(id)
		}
		if !found {
			b.fail(diagnostics.New(diagnostics.UnknownConstructorParameter, kind.String(), p.Name))
			ok = false
			continue
		}
		if !runtime.Convert(typ, p.Value.Type()).OK() {
			b.fail(diagnostics.New(diagnostics.IncorrectConstructorParameterType, name, p.Name))
			ok = false
			continue
		}
		v := b.eval(p.Value)
		if id == runtime.FieldAnimationBlock {
			if bh := getBehavior(v); bh != nil && bh.ParameterKind() != kind {
				b.fail(diagnostics.New(diagnostics.TypeMismatchBetweenAnimationBlockAndObject, name, bh.Name()))
				ok = false
				continue
			}
		}
		runtime.Must(obj.SetField(id, v), "construct "+name+"."+p.Name, p.Value.Type(), typ)
	}
	return obj, ok
}

//-----------------------------------------------------------------------------
// Animation blocks
//-----------------------------------------------------------------------------

// Forward declares an animation block and its parameter symbol. The block
// becomes referable by name immediately.
func (b *Builder) Forward(name string, kind runtime.ObjectKind, param string) *AnimationBlock {
	if _, ok := b.forwards[name]; ok {
		b.fail(diagnostics.PreviouslyDeclared(name))
		return nil
	}
	sym := runtime.NewVariable(param, runtime.TypeObject)
	if err := b.table.Declare(sym); err != nil {
		b.fail(diagnostics.New(diagnostics.AnimationParameterNameNotUnique, param))
		return nil
	}
	block := NewAnimationBlock(name, sym, kind, b.sched)
	if err := b.table.Declare(runtime.NewConstantVariable(name, runtime.BehaviorOf(block))); err != nil {
		b.table.Remove(param)
		b.fail(err)
		return nil
	}
	b.forwards[name] = &forward{block: block, line: b.line}
	b.order = append(b.order, name)
	return block
}

// Animation opens the definition of a forward declared block. The header
// must repeat the forward's parameter kind and name. The returned block's
// body is attached with Define.
func (b *Builder) Animation(name string, kind runtime.ObjectKind, param string) *AnimationBlock {
	fwd, ok := b.forwards[name]
	if !ok {
		b.fail(diagnostics.New(diagnostics.NoForwardForAnimationBlock, name))
		return nil
	}
	if fwd.block.Defined() {
		b.fail(diagnostics.New(diagnostics.PreviouslyDefinedAnimationBlock, name))
		return nil
	}
	if fwd.block.ParameterKind() != kind || fwd.block.Parameter().Name() != param {
		b.fail(diagnostics.New(diagnostics.AnimationParamDoesNotMatchForward, name))
		return nil
	}
	return fwd.block
}

// Define attaches body to block.
func (b *Builder) Define(block *AnimationBlock, body *Block) {
	if block == nil || body == nil {
		return
	}
	block.SetBody(b.line, body)
}

//-----------------------------------------------------------------------------
// Expressions
//-----------------------------------------------------------------------------

func (b *Builder) Constant(c runtime.Constant) Expression {
	return NewConstant(c)
}

// Variable references a scalar, or the animation block of that name.
func (b *Builder) Variable(name string) Expression {
	e, err := NewVariableExpr(b.table, name)
	if err != nil {
		b.fail(err)
		return nil
	}
	if fwd, ok := b.forwards[name]; ok && e.Symbol.IsConstant() {
		return NewConstant(runtime.BehaviorOf(fwd.block))
	}
	return e
}

func (b *Builder) Index(name string, index Expression) Expression {
	if index == nil {
		return nil
	}
	e, err := NewArrayExpr(b.table, name, index)
	if err != nil {
		b.fail(err)
		return nil
	}
	return e
}

func (b *Builder) Member(object, field string) Expression {
	e, err := NewMemberExpr(b.table, object, field)
	if err != nil {
		b.fail(err)
		return nil
	}
	return e
}

func (b *Builder) IndexMember(array string, index Expression, field string) Expression {
	if index == nil {
		return nil
	}
	e, err := NewArrayMemberExpr(b.table, array, index, field)
	if err != nil {
		b.fail(err)
		return nil
	}
	return e
}

func (b *Builder) Binary(op Operator, left, right Expression) Expression {
	if left == nil || right == nil {
		return nil
	}
	e, err := NewBinaryExpr(op, left, right)
	if err != nil {
		b.fail(err)
		return nil
	}
	return e
}

func (b *Builder) Unary(op Operator, operand Expression) Expression {
	if operand == nil {
		return nil
	}
	e, err := NewUnaryExpr(op, operand)
	if err != nil {
		b.fail(err)
		return nil
	}
	return e
}

//-----------------------------------------------------------------------------
// Statements
//-----------------------------------------------------------------------------

// Block starts an empty statement block at the current line.
func (b *Builder) Block() *Block { return NewBlock(b.line) }

func (b *Builder) Assign(lhs Expression, op AssignOp, rhs Expression) Statement {
	if lhs == nil || rhs == nil {
		return nil
	}
	s, err := NewAssign(b.line, lhs, op, rhs)
	if err != nil {
		b.fail(err)
		return nil
	}
	return s
}

func (b *Builder) If(cond Expression, then, els *Block) Statement {
	if cond == nil || then == nil {
		return nil
	}
	s, err := NewIf(b.line, cond, then, els)
	if err != nil {
		b.fail(err)
		return nil
	}
	return s
}

func (b *Builder) For(init *Block, cond Expression, incr, body *Block) Statement {
	if init == nil || cond == nil || incr == nil || body == nil {
		return nil
	}
	s, err := NewFor(b.line, init, cond, incr, body)
	if err != nil {
		b.fail(err)
		return nil
	}
	return s
}

func (b *Builder) Print(expr Expression) Statement {
	if expr == nil {
		return nil
	}
	s, err := NewPrint(b.line, expr)
	if err != nil {
		b.fail(err)
		return nil
	}
	return s
}

func (b *Builder) Exit(status Expression) Statement {
	if status == nil {
		return nil
	}
	s, err := NewExit(b.line, status)
	if err != nil {
		b.fail(err)
		return nil
	}
	return s
}

//-----------------------------------------------------------------------------
// Program sections
//-----------------------------------------------------------------------------

// Initialization is the block run once before the first frame.
func (b *Builder) Initialization() *Block { return b.init }

// Termination is the block run once after the last frame.
func (b *Builder) Termination() *Block { return b.term }

// On registers block as a handler for key.
func (b *Builder) On(key Keystroke, block *Block) {
	if block != nil {
		b.events.Register(key, block)
	}
}

// Program finishes construction. Any collected error, including forward
// declarations left without a body, is returned as a diagnostics.ErrorList.
func (b *Builder) Program() (*Program, error) {
	blocks := make([]*AnimationBlock, 0, len(b.order))
	for _, name := range b.order {
		fwd := b.forwards[name]
		if !fwd.block.Defined() {
			b.errs = append(b.errs, diagnostics.New(diagnostics.NoBodyProvidedForForward, name).AtLine(fwd.line))
			continue
		}
		blocks = append(blocks, fwd.block)
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}
	placeholders := make(map[runtime.GameObject]bool, len(blocks))
	for _, block := range blocks {
		placeholders[block.placeholder] = true
	}
	var objects []runtime.GameObject
	for _, obj := range b.table.Objects() {
		if !placeholders[obj] {
			objects = append(objects, obj)
		}
	}
	return &Program{
		Table:          b.table,
		Events:         b.events,
		Animations:     blocks,
		Initialization: b.init,
		Termination:    b.term,
		objects:        objects,
		sched:          b.sched,
	}, nil
}
