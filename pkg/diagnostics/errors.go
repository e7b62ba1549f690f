package diagnostics

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a script error category.
type Kind int

const (
	UndefinedError Kind = iota

	// construction time
	UndeclaredVariable
	PreviouslyDeclaredVariable
	VariableNotAnArray
	VariableIsAnArray
	ArrayIndexMustBeAnInteger
	InvalidArraySize
	LHSOfPeriodMustBeObject
	UndeclaredMember
	InvalidLeftOperandType
	InvalidRightOperandType
	InvalidTypeForInitialValue
	UnknownConstructorParameter
	IncorrectConstructorParameterType
	InvalidTypeForIfStmtExpression
	InvalidTypeForForStmtExpression
	InvalidTypeForPrintStmtExpression
	ExitStatusMustBeAnInteger
	InvalidLHSOfAssignment
	InvalidLHSOfPlusAssignment
	InvalidLHSOfMinusAssignment
	AssignmentTypeError
	PlusAssignmentTypeError
	MinusAssignmentTypeError
	NoBodyProvidedForForward
	NoForwardForAnimationBlock
	PreviouslyDefinedAnimationBlock
	AnimationParameterNameNotUnique
	AnimationParamDoesNotMatchForward
	TypeMismatchBetweenAnimationBlockAndObject

	// run time, recoverable
	DivideByZero
	ModByZero
	ArrayIndexOutOfBounds
)

var kindNames = map[Kind]string{
	UndefinedError:                             "undefined_error",
	UndeclaredVariable:                         "undeclared_variable",
	PreviouslyDeclaredVariable:                 "previously_declared_variable",
	VariableNotAnArray:                         "variable_not_an_array",
	VariableIsAnArray:                          "variable_is_an_array",
	ArrayIndexMustBeAnInteger:                  "array_index_must_be_an_integer",
	InvalidArraySize:                           "invalid_array_size",
	LHSOfPeriodMustBeObject:                    "lhs_of_period_must_be_object",
	UndeclaredMember:                           "undeclared_member",
	InvalidLeftOperandType:                     "invalid_left_operand_type",
	InvalidRightOperandType:                    "invalid_right_operand_type",
	InvalidTypeForInitialValue:                 "invalid_type_for_initial_value",
	UnknownConstructorParameter:                "unknown_constructor_parameter",
	IncorrectConstructorParameterType:          "incorrect_constructor_parameter_type",
	InvalidTypeForIfStmtExpression:             "invalid_type_for_if_stmt_expression",
	InvalidTypeForForStmtExpression:            "invalid_type_for_for_stmt_expression",
	InvalidTypeForPrintStmtExpression:          "invalid_type_for_print_stmt_expression",
	ExitStatusMustBeAnInteger:                  "exit_status_must_be_an_integer",
	InvalidLHSOfAssignment:                     "invalid_lhs_of_assignment",
	InvalidLHSOfPlusAssignment:                 "invalid_lhs_of_plus_assignment",
	InvalidLHSOfMinusAssignment:                "invalid_lhs_of_minus_assignment",
	AssignmentTypeError:                        "assignment_type_error",
	PlusAssignmentTypeError:                    "plus_assignment_type_error",
	MinusAssignmentTypeError:                   "minus_assignment_type_error",
	NoBodyProvidedForForward:                   "no_body_provided_for_forward",
	NoForwardForAnimationBlock:                 "no_forward_for_animation_block",
	PreviouslyDefinedAnimationBlock:            "previously_defined_animation_block",
	AnimationParameterNameNotUnique:            "animation_parameter_name_not_unique",
	AnimationParamDoesNotMatchForward:          "animation_param_does_not_match_forward",
	TypeMismatchBetweenAnimationBlockAndObject: "type_mismatch_between_animation_block_and_object",
	DivideByZero:                               "divide_by_zero",
	ModByZero:                                  "mod_by_zero",
	ArrayIndexOutOfBounds:                      "array_index_out_of_bounds",
}

// Message templates use $1..$3 for the error arguments.
var templates = map[Kind]string{
	UndefinedError:                             "an undefined error occurred",
	UndeclaredVariable:                         "variable '$1' is undeclared",
	PreviouslyDeclaredVariable:                 "variable '$1' was previously declared",
	VariableNotAnArray:                         "variable '$1' is not an array",
	VariableIsAnArray:                          "variable '$1' is an array and must be indexed",
	ArrayIndexMustBeAnInteger:                  "index of array '$1' must be an integer ($2)",
	InvalidArraySize:                           "array '$1' has an invalid size '$2'",
	LHSOfPeriodMustBeObject:                    "variable '$1' is not a game object; it cannot be the left side of '.'",
	UndeclaredMember:                           "'$1' does not have a member named '$2'",
	InvalidLeftOperandType:                     "invalid left operand type for operator '$1'",
	InvalidRightOperandType:                    "invalid right operand type for operator '$1'",
	InvalidTypeForInitialValue:                 "invalid type for the initial value of variable '$1'",
	UnknownConstructorParameter:                "'$1' does not have a parameter named '$2'",
	IncorrectConstructorParameterType:          "incorrect type for parameter '$2' of '$1'",
	InvalidTypeForIfStmtExpression:             "the condition of an if statement must be an int",
	InvalidTypeForForStmtExpression:            "the condition of a for statement must be an int",
	InvalidTypeForPrintStmtExpression:          "print expects an int, double or string expression",
	ExitStatusMustBeAnInteger:                  "exit status must be an int, not $1",
	InvalidLHSOfAssignment:                     "'$1' of type $2 cannot be assigned to",
	InvalidLHSOfPlusAssignment:                 "'$1' of type $2 cannot be the target of '+='",
	InvalidLHSOfMinusAssignment:                "'$1' of type $2 cannot be the target of '-='",
	AssignmentTypeError:                        "cannot assign a $2 to a $1",
	PlusAssignmentTypeError:                    "cannot '+=' a $2 to a $1",
	MinusAssignmentTypeError:                   "cannot '-=' a $2 from a $1",
	NoBodyProvidedForForward:                   "animation '$1' was forward declared but has no body",
	NoForwardForAnimationBlock:                 "animation '$1' has no forward declaration",
	PreviouslyDefinedAnimationBlock:            "animation '$1' was previously defined",
	AnimationParameterNameNotUnique:            "animation parameter name '$1' is already in use",
	AnimationParamDoesNotMatchForward:          "animation parameter does not match its forward declaration",
	TypeMismatchBetweenAnimationBlockAndObject: "object '$1' cannot use animation '$2': parameter type differs",
	DivideByZero:                               "division by zero",
	ModByZero:                                  "modulus by zero",
	ArrayIndexOutOfBounds:                      "index $2 is out of bounds for array '$1'",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown_kind_%d", int(k))
}

// Recoverable reports whether errors of this kind are reported and execution continues.
func (k Kind) Recoverable() bool {
	switch k {
	case DivideByZero, ModByZero, ArrayIndexOutOfBounds:
		return true
	default:
		return false
	}
}

// Error is a script error: a kind, up to three textual arguments and the
// source line that produced it.
type Error struct {
	Kind Kind
	Args [3]string
	Line int
}

// New builds an error of the given kind. At most three arguments are kept.
func New(kind Kind, args ...string) *Error {
	err := &Error{Kind: kind}
	copy(err.Args[:], args)
	return err
}

func (e *Error) Error() string {
	tmpl, ok := templates[e.Kind]
	if !ok {
		tmpl = templates[UndefinedError]
	}
	msg := strings.NewReplacer("$1", e.Args[0], "$2", e.Args[1], "$3", e.Args[2]).Replace(tmpl)
	if e.Line > 0 {
		return "line " + strconv.Itoa(e.Line) + ": " + msg
	}
	return msg
}

// Arg returns the i-th argument, or "" when out of range.
func (e *Error) Arg(i int) string {
	if i < 0 || i >= len(e.Args) {
		return ""
	}
	return e.Args[i]
}

// Recoverable reports whether the error belongs to the recoverable run-time tier.
func (e *Error) Recoverable() bool {
	return e.Kind.Recoverable()
}

// AtLine returns a copy of the error stamped with line. An already stamped
// error keeps its original line.
func (e *Error) AtLine(line int) *Error {
	if e.Line > 0 || line <= 0 {
		return e
	}
	cp := *e
	cp.Line = line
	return &cp
}

// Is matches errors of the same kind so callers can use errors.Is with a
// template built by New.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

//-----------------------------------------------------------------------------
// Constructors for the common kinds
//-----------------------------------------------------------------------------

func Undeclared(name string) *Error { return New(UndeclaredVariable, name) }

func PreviouslyDeclared(name string) *Error { return New(PreviouslyDeclaredVariable, name) }

func NotAnArray(name string) *Error { return New(VariableNotAnArray, name) }

func IsAnArray(name string) *Error { return New(VariableIsAnArray, name) }

func InvalidIndexType(array, typeName string) *Error {
	return New(ArrayIndexMustBeAnInteger, array, "a "+typeName+" expression")
}

func InvalidSize(array, size string) *Error { return New(InvalidArraySize, array, size) }

func ObjectExpectedLHS(name string) *Error { return New(LHSOfPeriodMustBeObject, name) }

func UndeclaredMemberOf(object, member string) *Error {
	return New(UndeclaredMember, object, member)
}

// InvalidOperandType reports an operand whose static type the operator
// does not accept. Unary operators report their operand as the right side.
func InvalidOperandType(op string, left bool) *Error {
	if left {
		return New(InvalidLeftOperandType, op)
	}
	return New(InvalidRightOperandType, op)
}

func IndexOutOfBounds(array string, index int) *Error {
	return New(ArrayIndexOutOfBounds, array, strconv.Itoa(index))
}

//-----------------------------------------------------------------------------
// Batches
//-----------------------------------------------------------------------------

// ErrorList aggregates construction errors reported while building a program.
type ErrorList []*Error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(l))
	for _, err := range l {
		b.WriteString("\n- ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (l ErrorList) Unwrap() []error {
	out := make([]error, len(l))
	for i, err := range l {
		out[i] = err
	}
	return out
}

// Kinds lists the kinds in order, which keeps test assertions short.
func (l ErrorList) Kinds() []Kind {
	out := make([]Kind, len(l))
	for i, err := range l {
		out[i] = err.Kind
	}
	return out
}
