package interpreter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryResultTypes(t *testing.T) {
	cases := []struct {
		op   Operator
		l, r Expression
		want runtime.Type
	}{
		{OpPlus, intConst(1), intConst(2), runtime.TypeInt},
		{OpPlus, intConst(1), doubleConst(2), runtime.TypeDouble},
		{OpPlus, doubleConst(1), stringConst("a"), runtime.TypeString},
		{OpPlus, stringConst("a"), intConst(1), runtime.TypeString},
		{OpDivide, intConst(1), intConst(2), runtime.TypeInt},
		{OpMultiply, doubleConst(1), intConst(2), runtime.TypeDouble},
		{OpMod, intConst(7), intConst(2), runtime.TypeInt},
		{OpLess, stringConst("a"), intConst(1), runtime.TypeInt},
		{OpAnd, doubleConst(1), intConst(0), runtime.TypeInt},
	}
	for _, tc := range cases {
		e := mustBinary(t, tc.op, tc.l, tc.r)
		assert.Equal(t, tc.want, e.Type(), "%s", tc.op)
	}
}

func TestIllTypedOperandsReportTheirSide(t *testing.T) {
	obj := NewConstant(runtime.Object(runtime.NewShape(runtime.Circle)))
	operands := map[runtime.Type]Expression{
		runtime.TypeInt:      intConst(1),
		runtime.TypeDouble:   doubleConst(1),
		runtime.TypeString:   stringConst("s"),
		runtime.TypeObject:   obj,
		runtime.TypeBehavior: NewConstant(runtime.BehaviorOf(nil)),
	}
	for op := OpPlus; op <= OpNear; op++ {
		rule := binaryRules[op]
		for lt, l := range operands {
			for rt, r := range operands {
				_, err := NewBinaryExpr(op, l, r)
				var scriptErr *diagnostics.Error
				switch {
				case !lt.In(rule.left):
					require.True(t, errors.As(err, &scriptErr), "%s %s %s", lt, op, rt)
					assert.Equal(t, diagnostics.InvalidLeftOperandType, scriptErr.Kind)
				case !rt.In(rule.right):
					require.True(t, errors.As(err, &scriptErr), "%s %s %s", lt, op, rt)
					assert.Equal(t, diagnostics.InvalidRightOperandType, scriptErr.Kind)
				default:
					assert.NoError(t, err, "%s %s %s", lt, op, rt)
				}
			}
		}
	}
}

func TestUnaryRejectsOperandAsRightSide(t *testing.T) {
	behavior := NewConstant(runtime.BehaviorOf(nil))
	for op, rule := range unaryRules {
		if runtime.TypeBehavior.In(rule.operand) {
			continue
		}
		_, err := NewUnaryExpr(op, behavior)
		assert.ErrorIs(t, err, diagnostics.New(diagnostics.InvalidRightOperandType), "%s", op)
	}

	_, err := NewUnaryExpr(OpSin, stringConst("x"))
	assert.ErrorIs(t, err, diagnostics.New(diagnostics.InvalidRightOperandType))

	_, err = NewUnaryExpr(OpNegate, stringConst("x"))
	assert.ErrorIs(t, err, diagnostics.New(diagnostics.InvalidRightOperandType))
}

func TestEvaluation(t *testing.T) {
	h := newHarness(t, nil)
	cases := []struct {
		expr Expression
		want string
	}{
		{mustBinary(t, OpPlus, intConst(2), intConst(3)), "5"},
		{mustBinary(t, OpPlus, stringConst("x="), doubleConst(2.5)), "x=2.5"},
		{mustBinary(t, OpPlus, intConst(1), stringConst("!")), "1!"},
		{mustBinary(t, OpDivide, intConst(7), intConst(2)), "3"},
		{mustBinary(t, OpDivide, intConst(-7), intConst(2)), "-3"},
		{mustBinary(t, OpDivide, doubleConst(1), intConst(3)), "0.333333"},
		{mustBinary(t, OpMod, intConst(-7), intConst(3)), "-1"},
		{mustBinary(t, OpLess, stringConst("abc"), stringConst("abd")), "1"},
		{mustBinary(t, OpEqual, intConst(2), doubleConst(2)), "1"},
		{mustBinary(t, OpNotEqual, intConst(2), stringConst("2")), "0"},
		{mustBinary(t, OpAnd, intConst(1), doubleConst(0.5)), "1"},
		{mustBinary(t, OpOr, intConst(0), intConst(0)), "0"},
		{mustUnary(t, OpNot, intConst(0)), "1"},
		{mustUnary(t, OpNegate, doubleConst(1.5)), "-1.5"},
		{mustUnary(t, OpAbs, intConst(-4)), "4"},
		{mustUnary(t, OpFloor, doubleConst(-1.5)), "-2"},
		{mustUnary(t, OpSqrt, intConst(16)), "4"},
		{mustUnary(t, OpSin, intConst(90)), "1"},
		{mustUnary(t, OpCos, intConst(180)), "-1"},
		{mustUnary(t, OpAsin, intConst(1)), "90"},
		{mustUnary(t, OpAtan, intConst(1)), "45"},
	}
	for i, tc := range cases {
		got, status := tc.expr.Eval(h.ctx()).GetString()
		require.True(t, status.OK())
		assert.Equal(t, tc.want, got, "case %d", i)
	}
	assert.Zero(t, h.reports.Len())
}

func TestDivisionByZeroReportsAndYieldsZero(t *testing.T) {
	h := newHarness(t, nil)

	v := mustBinary(t, OpDivide, intConst(1), intConst(0)).Eval(h.ctx())
	n, _ := v.GetInt()
	assert.Equal(t, 0, n)

	v = mustBinary(t, OpDivide, doubleConst(1), doubleConst(0)).Eval(h.ctx())
	d, _ := v.GetDouble()
	assert.Equal(t, 0.0, d)

	v = mustBinary(t, OpMod, intConst(5), intConst(0)).Eval(h.ctx())
	n, _ = v.GetInt()
	assert.Equal(t, 0, n)

	assert.Equal(t,
		[]diagnostics.Kind{diagnostics.DivideByZero, diagnostics.DivideByZero, diagnostics.ModByZero},
		h.reports.Errors().Kinds())
}

func TestRandomRange(t *testing.T) {
	h := newHarness(t, nil)
	for _, n := range []float64{-1, 0, 0.9, 1, 1.5} {
		v := mustUnary(t, OpRandom, doubleConst(n)).Eval(h.ctx())
		got, _ := v.GetInt()
		assert.Equal(t, 0, got, "random(%v)", n)
	}
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		v := mustUnary(t, OpRandom, doubleConst(-4.7)).Eval(h.ctx())
		got, _ := v.GetInt()
		require.True(t, got >= 0 && got < 4, "random(-4.7) = %d", got)
		seen[got] = true
	}
	assert.Len(t, seen, 4)
}

func TestTouchesAndNearOperators(t *testing.T) {
	h := newHarness(t, nil)
	a := runtime.NewShape(runtime.Rectangle)
	b := runtime.NewShape(runtime.Rectangle)
	b.SetField(runtime.FieldX, runtime.Int(200))

	touches := mustBinary(t, OpTouches, NewConstant(runtime.Object(a)), NewConstant(runtime.Object(b)))
	near := mustBinary(t, OpNear, NewConstant(runtime.Object(a)), NewConstant(runtime.Object(b)))
	n, _ := touches.Eval(h.ctx()).GetInt()
	assert.Equal(t, 0, n)
	n, _ = near.Eval(h.ctx()).GetInt()
	assert.Equal(t, 0, n)

	b.SetField(runtime.FieldX, runtime.Int(5))
	n, _ = touches.Eval(h.ctx()).GetInt()
	assert.Equal(t, 1, n)
}

func TestArrayIndexOutOfRangeReadsElementZero(t *testing.T) {
	h := newHarness(t, nil)
	elems := h.b.DeclareArray(runtime.TypeInt, "a", intConst(3))
	require.Len(t, elems, 3)
	for i, v := range elems {
		v.SetInt(10 * (i + 1))
	}

	for _, idx := range []int{5, -1} {
		e := h.b.Index("a", intConst(idx))
		require.NotNil(t, e)
		n, _ := e.Eval(h.ctx()).GetInt()
		assert.Equal(t, 10, n, "a[%d]", idx)
	}
	errs := h.reports.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, diagnostics.ArrayIndexOutOfBounds, errs[0].Kind)
	assert.Equal(t, "5", errs[0].Arg(1))

	n, _ := h.b.Index("a", intConst(2)).Eval(h.ctx()).GetInt()
	assert.Equal(t, 30, n)
}

func TestReferenceConstructionErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.b.DeclareVariable(runtime.TypeInt, "x", nil)
	h.b.DeclareArray(runtime.TypeInt, "arr", intConst(2))
	h.b.DeclareObject(runtime.Circle, "ball", nil)

	assert.Nil(t, h.b.Variable("missing"))
	assert.Nil(t, h.b.Variable("arr"))
	assert.Nil(t, h.b.Index("x", intConst(0)))
	assert.Nil(t, h.b.Index("arr", doubleConst(0)))
	assert.Nil(t, h.b.Member("x", "radius"))
	assert.Nil(t, h.b.Member("ball", "text"))

	assert.Equal(t, []diagnostics.Kind{
		diagnostics.UndeclaredVariable,
		diagnostics.VariableIsAnArray,
		diagnostics.VariableNotAnArray,
		diagnostics.ArrayIndexMustBeAnInteger,
		diagnostics.LHSOfPeriodMustBeObject,
		diagnostics.UndeclaredMember,
	}, h.b.Errors().Kinds())
}

func TestArrayMemberExpr(t *testing.T) {
	h := newHarness(t, nil)
	elems := h.b.DeclareObjectArray(runtime.Circle, "balls", intConst(3))
	require.Len(t, elems, 3)

	ref := h.b.IndexMember("balls", intConst(2), "radius")
	require.NotNil(t, ref)
	assert.Equal(t, runtime.TypeInt, ref.Type())

	stmt := h.b.Assign(ref, Assign, intConst(33))
	require.NotNil(t, stmt)
	require.NoError(t, stmt.Execute(h.ctx()))

	obj, _ := elems[2].GetObject()
	r, _ := obj.Field(runtime.FieldRadius)
	assert.Equal(t, runtime.Int(33), r)

	assert.Nil(t, h.b.IndexMember("balls", intConst(0), "text"))
	assert.Equal(t, []diagnostics.Kind{diagnostics.UndeclaredMember}, h.b.Errors().Kinds())
}

func TestOperatorParsing(t *testing.T) {
	for op := OpPlus; op <= OpNear; op++ {
		got, ok := ParseBinaryOperator(op.String())
		require.True(t, ok, op.String())
		assert.Equal(t, op, got)
	}
	neg, ok := ParseUnaryOperator("-")
	require.True(t, ok)
	assert.Equal(t, OpNegate, neg)
	assert.True(t, neg.IsUnary())
	_, ok = ParseBinaryOperator("**")
	assert.False(t, ok)
	assert.Equal(t, "random", fmt.Sprint(OpRandom))
}
