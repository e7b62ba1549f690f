package interpreter

import (
	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/runtime"
)

// AssignOp is the operator of an assignment statement.
type AssignOp int

const (
	Assign AssignOp = iota
	AddAssign
	SubtractAssign
)

func (op AssignOp) String() string {
	switch op {
	case AddAssign:
		return "+="
	case SubtractAssign:
		return "-="
	default:
		return "="
	}
}

func ParseAssignOp(token string) (AssignOp, bool) {
	switch token {
	case "=":
		return Assign, true
	case "+=":
		return AddAssign, true
	case "-=":
		return SubtractAssign, true
	}
	return 0, false
}

// assignable lists, per target type and operator, the value types a target
// accepts. A missing operator means the target rejects that operator.
var assignable = map[runtime.Type]map[AssignOp]runtime.Type{
	runtime.TypeInt: {
		Assign:         runtime.TypeInt,
		AddAssign:      runtime.TypeInt,
		SubtractAssign: runtime.TypeInt,
	},
	runtime.TypeDouble: {
		Assign:         runtime.Numeric,
		AddAssign:      runtime.Numeric,
		SubtractAssign: runtime.Numeric,
	},
	runtime.TypeString: {
		Assign:    runtime.Printable,
		AddAssign: runtime.Printable,
	},
	runtime.TypeBehavior: {
		Assign: runtime.TypeBehavior,
	},
}

func lhsError(op AssignOp, name string, typ runtime.Type) *diagnostics.Error {
	kind := diagnostics.InvalidLHSOfAssignment
	switch op {
	case AddAssign:
		kind = diagnostics.InvalidLHSOfPlusAssignment
	case SubtractAssign:
		kind = diagnostics.InvalidLHSOfMinusAssignment
	}
	return diagnostics.New(kind, name, typ.String())
}

func rhsError(op AssignOp, lhs, rhs runtime.Type) *diagnostics.Error {
	kind := diagnostics.AssignmentTypeError
	switch op {
	case AddAssign:
		kind = diagnostics.PlusAssignmentTypeError
	case SubtractAssign:
		kind = diagnostics.MinusAssignmentTypeError
	}
	return diagnostics.New(kind, lhs.String(), rhs.String())
}

// AssignStmt stores, adds to or subtracts from a reference.
type AssignStmt struct {
	stmt
	LHS Reference
	Op  AssignOp
	RHS Expression
}

// NewAssign validates the target and value types. Object targets are never
// assignable.
func NewAssign(line int, lhs Expression, op AssignOp, rhs Expression) (*AssignStmt, error) {
	ref, ok := lhs.(Reference)
	if !ok || ref.Readonly() {
		name := "<expression>"
		if ok {
			name = ref.Name()
		}
		return nil, lhsError(op, name, lhs.Type()).AtLine(line)
	}
	ops, ok := assignable[lhs.Type()]
	if !ok {
		return nil, lhsError(op, ref.Name(), lhs.Type()).AtLine(line)
	}
	admits, ok := ops[op]
	if !ok {
		return nil, lhsError(op, ref.Name(), lhs.Type()).AtLine(line)
	}
	if !rhs.Type().In(admits) {
		return nil, rhsError(op, lhs.Type(), rhs.Type()).AtLine(line)
	}
	if err := checkBehaviorTarget(ref, rhs); err != nil {
		return nil, err.AtLine(line)
	}
	return &AssignStmt{stmt: stmt{line}, LHS: ref, Op: op, RHS: rhs}, nil
}

// checkBehaviorTarget rejects binding a behavior to an object whose kind
// differs from the behavior's parameter, when both are known statically.
// An object array is checked against element 0.
func checkBehaviorTarget(lhs Reference, rhs Expression) *diagnostics.Error {
	var (
		name string
		kind runtime.ObjectKind
	)
	switch target := lhs.(type) {
	case *MemberExpr:
		if target.Ref.Field() != runtime.FieldAnimationBlock {
			return nil
		}
		obj, _ := target.Ref.Symbol().GetObject()
		if obj == nil {
			return nil
		}
		name, kind = target.Ref.Symbol().Name(), obj.Kind()
	case *ArrayMemberExpr:
		if target.id != runtime.FieldAnimationBlock {
			return nil
		}
		name, kind = target.array.name, target.kind
	default:
		return nil
	}
	c, ok := rhs.(*ConstantExpr)
	if !ok {
		return nil
	}
	b, _ := c.Value.GetBehavior()
	if b == nil || b.ParameterKind() == kind {
		return nil
	}
	return diagnostics.New(diagnostics.TypeMismatchBetweenAnimationBlockAndObject, name, b.Name())
}

// storeBehavior binds v to the animation_block member lhs refers to. A
// behavior whose parameter kind differs from the object's is reported and
// the member keeps its old value.
func storeBehavior(ctx *Context, lhs runtime.Value, v runtime.Behavior) runtime.ConversionStatus {
	status := lhs.SetBehavior(v)
	if status != runtime.ConversionError || v == nil {
		return status
	}
	ref, ok := lhs.(*runtime.MemberReference)
	if !ok {
		return status
	}
	obj, _ := ref.Symbol().GetObject()
	if obj == nil || obj.Kind() == v.ParameterKind() {
		return status
	}
	ctx.report(diagnostics.New(diagnostics.TypeMismatchBetweenAnimationBlockAndObject, ref.Symbol().Name(), v.Name()))
	return runtime.Exact
}

func (s *AssignStmt) Execute(ctx *Context) error {
	ctx.line = s.line
	rhs := s.RHS.Eval(ctx)
	lhs := s.LHS.Eval(ctx)

	var status runtime.ConversionStatus
	switch s.LHS.Type() {
	case runtime.TypeInt:
		v := getInt(rhs)
		switch s.Op {
		case AddAssign:
			v = getInt(lhs) + v
		case SubtractAssign:
			v = getInt(lhs) - v
		}
		status = lhs.SetInt(v)
	case runtime.TypeDouble:
		v := getDouble(rhs)
		switch s.Op {
		case AddAssign:
			v = getDouble(lhs) + v
		case SubtractAssign:
			v = getDouble(lhs) - v
		}
		status = lhs.SetDouble(v)
	case runtime.TypeString:
		v := getString(rhs)
		if s.Op == AddAssign {
			v = getString(lhs) + v
		}
		status = lhs.SetString(v)
	case runtime.TypeBehavior:
		status = storeBehavior(ctx, lhs, getBehavior(rhs))
	default:
		status = runtime.ConversionError
	}
	runtime.Must(status, "assign "+s.Op.String(), rhs.Type(), s.LHS.Type())
	return nil
}
