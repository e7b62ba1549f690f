package interpreter

import (
	"math"

	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/runtime"
)

// Operator names a binary or unary operation.
type Operator int

const (
	OpPlus Operator = iota + 1
	OpMinus
	OpMultiply
	OpDivide
	OpMod
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpEqual
	OpNotEqual
	OpAnd
	OpOr
	OpTouches
	OpNear

	OpNegate
	OpNot
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan
	OpSqrt
	OpFloor
	OpAbs
	OpRandom
)

var operatorNames = map[Operator]string{
	OpPlus:         "+",
	OpMinus:        "-",
	OpMultiply:     "*",
	OpDivide:       "/",
	OpMod:          "%",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpEqual:        "==",
	OpNotEqual:     "!=",
	OpAnd:          "&&",
	OpOr:           "||",
	OpTouches:      "touches",
	OpNear:         "near",
	OpNegate:       "-",
	OpNot:          "!",
	OpSin:          "sin",
	OpCos:          "cos",
	OpTan:          "tan",
	OpAsin:         "asin",
	OpAcos:         "acos",
	OpAtan:         "atan",
	OpSqrt:         "sqrt",
	OpFloor:        "floor",
	OpAbs:          "abs",
	OpRandom:       "random",
}

func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return "unknown_operator"
}

// IsUnary reports whether op takes a single operand.
func (op Operator) IsUnary() bool {
	return op >= OpNegate
}

// ParseBinaryOperator maps an operator token to its binary operator.
func ParseBinaryOperator(token string) (Operator, bool) {
	for op := OpPlus; op <= OpNear; op++ {
		if operatorNames[op] == token {
			return op, true
		}
	}
	return 0, false
}

// ParseUnaryOperator maps an operator token to its unary operator.
func ParseUnaryOperator(token string) (Operator, bool) {
	for op := OpNegate; op <= OpRandom; op++ {
		if operatorNames[op] == token {
			return op, true
		}
	}
	return 0, false
}

type binaryRule struct {
	left, right runtime.Type
	result      func(l, r runtime.Type) runtime.Type
}

func widest(l, r runtime.Type) runtime.Type {
	switch {
	case l == runtime.TypeString || r == runtime.TypeString:
		return runtime.TypeString
	case l == runtime.TypeDouble || r == runtime.TypeDouble:
		return runtime.TypeDouble
	}
	return runtime.TypeInt
}

func intResult(runtime.Type, runtime.Type) runtime.Type { return runtime.TypeInt }

var binaryRules = map[Operator]binaryRule{
	OpPlus:         {runtime.Printable, runtime.Printable, widest},
	OpMinus:        {runtime.Numeric, runtime.Numeric, widest},
	OpMultiply:     {runtime.Numeric, runtime.Numeric, widest},
	OpDivide:       {runtime.Numeric, runtime.Numeric, widest},
	OpMod:          {runtime.TypeInt, runtime.TypeInt, intResult},
	OpLess:         {runtime.Printable, runtime.Printable, intResult},
	OpLessEqual:    {runtime.Printable, runtime.Printable, intResult},
	OpGreater:      {runtime.Printable, runtime.Printable, intResult},
	OpGreaterEqual: {runtime.Printable, runtime.Printable, intResult},
	OpEqual:        {runtime.Printable, runtime.Printable, intResult},
	OpNotEqual:     {runtime.Printable, runtime.Printable, intResult},
	OpAnd:          {runtime.Numeric, runtime.Numeric, intResult},
	OpOr:           {runtime.Numeric, runtime.Numeric, intResult},
	OpTouches:      {runtime.TypeObject, runtime.TypeObject, intResult},
	OpNear:         {runtime.TypeObject, runtime.TypeObject, intResult},
}

type unaryRule struct {
	operand runtime.Type
	result  func(t runtime.Type) runtime.Type
}

func sameType(t runtime.Type) runtime.Type { return t }
func toDouble(runtime.Type) runtime.Type   { return runtime.TypeDouble }
func toInt(runtime.Type) runtime.Type      { return runtime.TypeInt }

var unaryRules = map[Operator]unaryRule{
	OpNegate: {runtime.Numeric, sameType},
	OpNot:    {runtime.Numeric, toInt},
	OpSin:    {runtime.Numeric, toDouble},
	OpCos:    {runtime.Numeric, toDouble},
	OpTan:    {runtime.Numeric, toDouble},
	OpAsin:   {runtime.Numeric, toDouble},
	OpAcos:   {runtime.Numeric, toDouble},
	OpAtan:   {runtime.Numeric, toDouble},
	OpSqrt:   {runtime.Numeric, toDouble},
	OpFloor:  {runtime.Numeric, toInt},
	OpAbs:    {runtime.Numeric, sameType},
	OpRandom: {runtime.Numeric, toInt},
}

//-----------------------------------------------------------------------------
// Evaluation helpers
//-----------------------------------------------------------------------------

func getInt(v runtime.Value) int {
	x, s := v.GetInt()
	runtime.Must(s, "get_int", v.Type(), runtime.TypeInt)
	return x
}

func getDouble(v runtime.Value) float64 {
	x, s := v.GetDouble()
	runtime.Must(s, "get_double", v.Type(), runtime.TypeDouble)
	return x
}

func getString(v runtime.Value) string {
	x, s := v.GetString()
	runtime.Must(s, "get_string", v.Type(), runtime.TypeString)
	return x
}

func getObject(v runtime.Value) runtime.GameObject {
	x, s := v.GetObject()
	runtime.Must(s, "get_object", v.Type(), runtime.TypeObject)
	return x
}

func getBehavior(v runtime.Value) runtime.Behavior {
	x, s := v.GetBehavior()
	runtime.Must(s, "get_animation_block", v.Type(), runtime.TypeBehavior)
	return x
}

func boolInt(b bool) runtime.Constant {
	if b {
		return runtime.Int(1)
	}
	return runtime.Int(0)
}

const degrees = 180 / math.Pi

func applyBinary(ctx *Context, op Operator, typ runtime.Type, l, r runtime.Value) runtime.Constant {
	switch op {
	case OpPlus, OpMinus, OpMultiply, OpDivide:
		return arithmetic(ctx, op, typ, l, r)
	case OpMod:
		d := getInt(r)
		if d == 0 {
			ctx.report(diagnostics.New(diagnostics.ModByZero))
			return runtime.Int(0)
		}
		return runtime.Int(getInt(l) % d)
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpEqual, OpNotEqual:
		return compare(op, l, r)
	case OpAnd:
		return boolInt(getDouble(l) != 0 && getDouble(r) != 0)
	case OpOr:
		return boolInt(getDouble(l) != 0 || getDouble(r) != 0)
	case OpTouches, OpNear:
		a, b := getObject(l), getObject(r)
		if a == nil || b == nil {
			return runtime.Int(0)
		}
		if op == OpTouches {
			return boolInt(a.Touches(b))
		}
		return boolInt(a.Near(b))
	}
	panic(&runtime.InternalError{Op: op.String(), From: l.Type(), To: typ})
}

func arithmetic(ctx *Context, op Operator, typ runtime.Type, l, r runtime.Value) runtime.Constant {
	switch typ {
	case runtime.TypeString:
		return runtime.String(getString(l) + getString(r))
	case runtime.TypeDouble:
		a, b := getDouble(l), getDouble(r)
		switch op {
		case OpPlus:
			return runtime.Double(a + b)
		case OpMinus:
			return runtime.Double(a - b)
		case OpMultiply:
			return runtime.Double(a * b)
		}
		if b == 0 {
			ctx.report(diagnostics.New(diagnostics.DivideByZero))
			return runtime.Double(0)
		}
		return runtime.Double(a / b)
	default:
		a, b := getInt(l), getInt(r)
		switch op {
		case OpPlus:
			return runtime.Int(a + b)
		case OpMinus:
			return runtime.Int(a - b)
		case OpMultiply:
			return runtime.Int(a * b)
		}
		if b == 0 {
			ctx.report(diagnostics.New(diagnostics.DivideByZero))
			return runtime.Int(0)
		}
		return runtime.Int(a / b)
	}
}

func compare(op Operator, l, r runtime.Value) runtime.Constant {
	var c int
	if l.Type() == runtime.TypeString || r.Type() == runtime.TypeString {
		a, b := getString(l), getString(r)
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	} else {
		a, b := getDouble(l), getDouble(r)
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	}
	switch op {
	case OpLess:
		return boolInt(c < 0)
	case OpLessEqual:
		return boolInt(c <= 0)
	case OpGreater:
		return boolInt(c > 0)
	case OpGreaterEqual:
		return boolInt(c >= 0)
	case OpEqual:
		return boolInt(c == 0)
	default:
		return boolInt(c != 0)
	}
}

func applyUnary(ctx *Context, op Operator, typ runtime.Type, v runtime.Value) runtime.Constant {
	switch op {
	case OpNegate:
		if typ == runtime.TypeInt {
			return runtime.Int(-getInt(v))
		}
		return runtime.Double(-getDouble(v))
	case OpNot:
		return boolInt(getDouble(v) == 0)
	case OpSin:
		return runtime.Double(math.Sin(getDouble(v) / degrees))
	case OpCos:
		return runtime.Double(math.Cos(getDouble(v) / degrees))
	case OpTan:
		return runtime.Double(math.Tan(getDouble(v) / degrees))
	case OpAsin:
		return runtime.Double(math.Asin(getDouble(v)) * degrees)
	case OpAcos:
		return runtime.Double(math.Acos(getDouble(v)) * degrees)
	case OpAtan:
		return runtime.Double(math.Atan(getDouble(v)) * degrees)
	case OpSqrt:
		return runtime.Double(math.Sqrt(getDouble(v)))
	case OpFloor:
		return runtime.Int(int(math.Floor(getDouble(v))))
	case OpAbs:
		if typ == runtime.TypeInt {
			n := getInt(v)
			if n < 0 {
				n = -n
			}
			return runtime.Int(n)
		}
		return runtime.Double(math.Abs(getDouble(v)))
	case OpRandom:
		n := int(math.Floor(math.Abs(getDouble(v))))
		if n <= 1 {
			return runtime.Int(0)
		}
		return runtime.Int(ctx.env.intn(n))
	}
	panic(&runtime.InternalError{Op: op.String(), From: v.Type(), To: typ})
}
