package runtime

import (
	"fmt"
	"strings"
)

// Type is a value type tag. Tags are bit flags so operators can describe the
// operand types they admit as a set.
type Type uint8

const (
	TypeInt Type = 1 << iota
	TypeDouble
	TypeString
	TypeObject
	TypeBehavior
)

const (
	Numeric   = TypeInt | TypeDouble
	Printable = TypeInt | TypeDouble | TypeString
)

// In reports whether t is a member of set.
func (t Type) In(set Type) bool {
	return t != 0 && t&set == t
}

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeObject:
		return "game_object"
	case TypeBehavior:
		return "animation_block"
	case 0:
		return "no_type"
	}
	var parts []string
	for tag := TypeInt; tag <= TypeBehavior; tag <<= 1 {
		if t&tag != 0 {
			parts = append(parts, tag.String())
		}
	}
	return strings.Join(parts, "|")
}

// ParseType maps a declaration keyword to its type tag.
func ParseType(name string) (Type, bool) {
	switch name {
	case "int":
		return TypeInt, true
	case "double":
		return TypeDouble, true
	case "string":
		return TypeString, true
	case "animation_block", "animation":
		return TypeBehavior, true
	}
	if _, ok := ParseObjectKind(name); ok {
		return TypeObject, true
	}
	return 0, false
}

// ConversionStatus is the outcome of reading or storing a value as another type.
type ConversionStatus int

const (
	Exact ConversionStatus = iota
	WidenToDouble
	WidenToString
	ConversionError
)

func (s ConversionStatus) String() string {
	switch s {
	case Exact:
		return "exact"
	case WidenToDouble:
		return "widen_to_double"
	case WidenToString:
		return "widen_to_string"
	default:
		return "conversion_error"
	}
}

// OK reports whether the conversion produced a value.
func (s ConversionStatus) OK() bool {
	return s != ConversionError
}

// Convert returns the status of viewing a src-typed value as dest. Widening
// runs one way only: int to double to string.
func Convert(dest, src Type) ConversionStatus {
	if dest == src {
		return Exact
	}
	switch dest {
	case TypeDouble:
		if src == TypeInt {
			return WidenToDouble
		}
	case TypeString:
		if src == TypeInt || src == TypeDouble {
			return WidenToString
		}
	}
	return ConversionError
}

// FormatDouble renders a double the way the script prints it: %g with six
// significant digits.
func FormatDouble(v float64) string {
	return fmt.Sprintf("%.6g", v)
}

// InternalError is an engine invariant violation: a conversion that
// construction-time checks should have made impossible.
type InternalError struct {
	Op       string
	From, To Type
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s cannot convert %s to %s", e.Op, e.From, e.To)
}

// Must panics with an *InternalError when status is ConversionError.
func Must(status ConversionStatus, op string, from, to Type) {
	if status == ConversionError {
		panic(&InternalError{Op: op, From: from, To: to})
	}
}

// Coerce reads v as the given type.
func Coerce(v Value, to Type) (Constant, ConversionStatus) {
	switch to {
	case TypeInt:
		x, s := v.GetInt()
		if !s.OK() {
			return nil, s
		}
		return Int(x), s
	case TypeDouble:
		x, s := v.GetDouble()
		if !s.OK() {
			return nil, s
		}
		return Double(x), s
	case TypeString:
		x, s := v.GetString()
		if !s.OK() {
			return nil, s
		}
		return String(x), s
	case TypeObject:
		x, s := v.GetObject()
		if !s.OK() {
			return nil, s
		}
		return Object(x), s
	case TypeBehavior:
		x, s := v.GetBehavior()
		if !s.OK() {
			return nil, s
		}
		return BehaviorOf(x), s
	}
	return nil, ConversionError
}

// Zero returns the default value of a type: 0, 0.0, "" or an empty reference.
func Zero(t Type) Constant {
	switch t {
	case TypeInt:
		return Int(0)
	case TypeDouble:
		return Double(0)
	case TypeString:
		return String("")
	case TypeObject:
		return Object(nil)
	case TypeBehavior:
		return BehaviorOf(nil)
	}
	return nil
}
