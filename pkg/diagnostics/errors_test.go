package diagnostics

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageSubstitutesArguments(t *testing.T) {
	err := UndeclaredMemberOf("ball", "radiuss")
	assert.Equal(t, "'ball' does not have a member named 'radiuss'", err.Error())

	stamped := err.AtLine(12)
	assert.Equal(t, "line 12: 'ball' does not have a member named 'radiuss'", stamped.Error())
	assert.Equal(t, 0, err.Line, "AtLine must not mutate the receiver")
	assert.Same(t, stamped, stamped.AtLine(40), "an already stamped error keeps its line")
}

func TestNewKeepsAtMostThreeArguments(t *testing.T) {
	err := New(UndefinedError, "a", "b", "c", "d")
	assert.Equal(t, [3]string{"a", "b", "c"}, err.Args)
	assert.Equal(t, "", err.Arg(5))
}

func TestInvalidOperandTypeIdentifiesSide(t *testing.T) {
	assert.Equal(t, InvalidLeftOperandType, InvalidOperandType("+", true).Kind)
	assert.Equal(t, InvalidRightOperandType, InvalidOperandType("+", false).Kind)
	assert.Equal(t, "+", InvalidOperandType("+", false).Arg(0))
}

func TestRecoverableTier(t *testing.T) {
	cases := map[Kind]bool{
		DivideByZero:          true,
		ModByZero:             true,
		ArrayIndexOutOfBounds: true,
		UndeclaredVariable:    false,
		AssignmentTypeError:   false,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.Recoverable(), kind.String())
	}
}

func TestErrorListUnwrapsForErrorsIs(t *testing.T) {
	list := ErrorList{Undeclared("x"), PreviouslyDeclared("y")}
	var err error = list
	assert.True(t, errors.Is(err, New(PreviouslyDeclaredVariable)))
	assert.False(t, errors.Is(err, New(ModByZero)))
	assert.Equal(t, []Kind{UndeclaredVariable, PreviouslyDeclaredVariable}, list.Kinds())
	assert.Contains(t, list.Error(), "2 errors:")
}

func TestLogReporterWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(zerolog.New(&buf))
	r.Report(IndexOutOfBounds("arr", 7).AtLine(3))

	out := buf.String()
	require.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"kind":"array_index_out_of_bounds"`)
	assert.Contains(t, out, `"index":"7"`)
	assert.Contains(t, out, `"line":3`)
}

func TestCollectorAndTee(t *testing.T) {
	var a, b Collector
	tee := Tee{&a, nil, &b}
	tee.Report(New(DivideByZero))
	tee.Report(nil)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, DivideByZero, a.Errors()[0].Kind)
}
