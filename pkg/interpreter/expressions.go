package interpreter

import (
	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/runtime"
)

// Expression is a typed expression tree node. Its type is fixed when the
// node is constructed; Eval never changes it.
type Expression interface {
	Type() runtime.Type
	Eval(ctx *Context) runtime.Value
}

// Reference is an expression that names storage and may be assigned to.
type Reference interface {
	Expression
	Name() string
	// Readonly reports whether the named storage rejects writes.
	Readonly() bool
}

//-----------------------------------------------------------------------------
// Leaves
//-----------------------------------------------------------------------------

type ConstantExpr struct {
	Value runtime.Constant
}

func NewConstant(v runtime.Constant) *ConstantExpr { return &ConstantExpr{Value: v} }

func (e *ConstantExpr) Type() runtime.Type          { return e.Value.Type() }
func (e *ConstantExpr) Eval(*Context) runtime.Value { return e.Value }

type VariableExpr struct {
	Symbol *runtime.Variable
}

// NewVariableExpr looks up a scalar. Naming an array without an index is an
// error.
func NewVariableExpr(table *runtime.SymbolTable, name string) (*VariableExpr, error) {
	if _, ok := table.ArraySize(name); ok {
		return nil, diagnostics.IsAnArray(name)
	}
	sym, ok := table.Lookup(name)
	if !ok {
		return nil, diagnostics.Undeclared(name)
	}
	return &VariableExpr{Symbol: sym}, nil
}

func (e *VariableExpr) Type() runtime.Type          { return e.Symbol.Type() }
func (e *VariableExpr) Eval(*Context) runtime.Value { return e.Symbol }
func (e *VariableExpr) Name() string                { return e.Symbol.Name() }
func (e *VariableExpr) Readonly() bool              { return e.Symbol.IsConstant() }

type ArrayExpr struct {
	table *runtime.SymbolTable
	name  string
	size  int
	index Expression
	typ   runtime.Type
}

// NewArrayExpr indexes an array. The index must be an int expression.
func NewArrayExpr(table *runtime.SymbolTable, name string, index Expression) (*ArrayExpr, error) {
	size, ok := table.ArraySize(name)
	if !ok {
		if _, scalar := table.Lookup(name); scalar {
			return nil, diagnostics.NotAnArray(name)
		}
		return nil, diagnostics.Undeclared(name)
	}
	if index.Type() != runtime.TypeInt {
		return nil, diagnostics.InvalidIndexType(name, index.Type().String())
	}
	first, _ := table.Element(name, 0)
	return &ArrayExpr{table: table, name: name, size: size, index: index, typ: first.Type()}, nil
}

func (e *ArrayExpr) Type() runtime.Type { return e.typ }
func (e *ArrayExpr) Name() string       { return e.name }
func (e *ArrayExpr) Readonly() bool     { return false }

func (e *ArrayExpr) Eval(ctx *Context) runtime.Value {
	return e.element(ctx)
}

// element resolves the indexed cell. An out-of-range index is reported and
// element 0 is used in its place.
func (e *ArrayExpr) element(ctx *Context) *runtime.Variable {
	i := getInt(e.index.Eval(ctx))
	if i < 0 || i >= e.size {
		ctx.report(diagnostics.IndexOutOfBounds(e.name, i))
		i = 0
	}
	v, ok := e.table.Element(e.name, i)
	if !ok {
		panic(&runtime.InternalError{Op: "array element " + runtime.ElementName(e.name, i), From: e.typ, To: e.typ})
	}
	return v
}

type MemberExpr struct {
	Ref *runtime.MemberReference
}

// NewMemberExpr resolves object.field against the object currently bound to
// the symbol.
func NewMemberExpr(table *runtime.SymbolTable, object, field string) (*MemberExpr, error) {
	if _, ok := table.ArraySize(object); ok {
		return nil, diagnostics.IsAnArray(object)
	}
	sym, ok := table.Lookup(object)
	if !ok {
		return nil, diagnostics.Undeclared(object)
	}
	ref, err := runtime.NewMemberReference(sym, field)
	if err != nil {
		return nil, err
	}
	return &MemberExpr{Ref: ref}, nil
}

func (e *MemberExpr) Type() runtime.Type          { return e.Ref.Type() }
func (e *MemberExpr) Eval(*Context) runtime.Value { return e.Ref }
func (e *MemberExpr) Name() string                { return e.Ref.Name() }
func (e *MemberExpr) Readonly() bool              { return e.Ref.IsConstant() }

type ArrayMemberExpr struct {
	array *ArrayExpr
	field string
	id    runtime.FieldID
	typ   runtime.Type
	kind  runtime.ObjectKind
}

// NewArrayMemberExpr resolves array[index].field. The field is checked
// against element 0; every element of an object array has the same kind.
func NewArrayMemberExpr(table *runtime.SymbolTable, array string, index Expression, field string) (*ArrayMemberExpr, error) {
	arr, err := NewArrayExpr(table, array, index)
	if err != nil {
		return nil, err
	}
	first, _ := table.Element(array, 0)
	ref, err := runtime.NewMemberReference(first, field)
	if err != nil {
		if first.Type() != runtime.TypeObject {
			return nil, diagnostics.ObjectExpectedLHS(array)
		}
		return nil, diagnostics.UndeclaredMemberOf(array, field)
	}
	obj, _ := first.GetObject()
	return &ArrayMemberExpr{array: arr, field: field, id: ref.Field(), typ: ref.Type(), kind: obj.Kind()}, nil
}

func (e *ArrayMemberExpr) Type() runtime.Type { return e.typ }
func (e *ArrayMemberExpr) Name() string       { return e.array.name + "[]." + e.field }
func (e *ArrayMemberExpr) Readonly() bool     { return false }

func (e *ArrayMemberExpr) Eval(ctx *Context) runtime.Value {
	elem := e.array.element(ctx)
	ref, err := runtime.NewMemberReference(elem, e.field)
	if err != nil {
		panic(&runtime.InternalError{Op: "member " + e.field, From: elem.Type(), To: e.typ})
	}
	return ref
}

//-----------------------------------------------------------------------------
// Operators
//-----------------------------------------------------------------------------

type BinaryExpr struct {
	Op          Operator
	Left, Right Expression
	typ         runtime.Type
}

// NewBinaryExpr checks the operand types against the operator. The left
// operand is checked first.
func NewBinaryExpr(op Operator, left, right Expression) (*BinaryExpr, error) {
	rule, ok := binaryRules[op]
	if !ok {
		return nil, diagnostics.New(diagnostics.UndefinedError)
	}
	if !left.Type().In(rule.left) {
		return nil, diagnostics.InvalidOperandType(op.String(), true)
	}
	if !right.Type().In(rule.right) {
		return nil, diagnostics.InvalidOperandType(op.String(), false)
	}
	return &BinaryExpr{Op: op, Left: left, Right: right, typ: rule.result(left.Type(), right.Type())}, nil
}

func (e *BinaryExpr) Type() runtime.Type { return e.typ }

func (e *BinaryExpr) Eval(ctx *Context) runtime.Value {
	return applyBinary(ctx, e.Op, e.typ, e.Left.Eval(ctx), e.Right.Eval(ctx))
}

type UnaryExpr struct {
	Op      Operator
	Operand Expression
	typ     runtime.Type
}

// NewUnaryExpr checks the operand type. A rejected operand is reported as
// the right side.
func NewUnaryExpr(op Operator, operand Expression) (*UnaryExpr, error) {
	rule, ok := unaryRules[op]
	if !ok {
		return nil, diagnostics.New(diagnostics.UndefinedError)
	}
	if !operand.Type().In(rule.operand) {
		return nil, diagnostics.InvalidOperandType(op.String(), false)
	}
	return &UnaryExpr{Op: op, Operand: operand, typ: rule.result(operand.Type())}, nil
}

func (e *UnaryExpr) Type() runtime.Type { return e.typ }

func (e *UnaryExpr) Eval(ctx *Context) runtime.Value {
	return applyUnary(ctx, e.Op, e.typ, e.Operand.Eval(ctx))
}
