package interpreter

import (
	"fmt"

	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/runtime"
)

// Statement is an executable tree node. A non-nil error unwinds to the
// nearest executor boundary; *ExitSignal is the only error scripts raise
// on purpose.
type Statement interface {
	Line() int
	Execute(ctx *Context) error
}

// ExitSignal terminates the program with a status.
type ExitSignal struct {
	Status int
	Line   int
}

func (e *ExitSignal) Error() string {
	return fmt.Sprintf("exit status %d (line %d)", e.Status, e.Line)
}

type stmt struct {
	line int
}

func (s stmt) Line() int { return s.line }

//-----------------------------------------------------------------------------
// Block
//-----------------------------------------------------------------------------

// Block is an ordered statement list.
type Block struct {
	stmt
	Statements []Statement
}

func NewBlock(line int) *Block {
	return &Block{stmt: stmt{line}}
}

func (b *Block) Append(s Statement) {
	if s != nil {
		b.Statements = append(b.Statements, s)
	}
}

func (b *Block) Len() int { return len(b.Statements) }

func (b *Block) Execute(ctx *Context) error {
	for _, s := range b.Statements {
		if err := s.Execute(ctx); err != nil {
			return err
		}
	}
	return nil
}

//-----------------------------------------------------------------------------
// If
//-----------------------------------------------------------------------------

type IfStmt struct {
	stmt
	Cond Expression
	Then *Block
	Else *Block
}

// NewIf builds an if statement; els may be nil.
func NewIf(line int, cond Expression, then, els *Block) (*IfStmt, error) {
	if cond.Type() != runtime.TypeInt {
		return nil, diagnostics.New(diagnostics.InvalidTypeForIfStmtExpression).AtLine(line)
	}
	return &IfStmt{stmt: stmt{line}, Cond: cond, Then: then, Else: els}, nil
}

func (s *IfStmt) Execute(ctx *Context) error {
	ctx.line = s.line
	if getInt(s.Cond.Eval(ctx)) != 0 {
		return s.Then.Execute(ctx)
	}
	if s.Else != nil {
		return s.Else.Execute(ctx)
	}
	return nil
}

//-----------------------------------------------------------------------------
// For
//-----------------------------------------------------------------------------

type ForStmt struct {
	stmt
	Init *Block
	Cond Expression
	Incr *Block
	Body *Block
}

func NewFor(line int, init *Block, cond Expression, incr, body *Block) (*ForStmt, error) {
	if cond.Type() != runtime.TypeInt {
		return nil, diagnostics.New(diagnostics.InvalidTypeForForStmtExpression).AtLine(line)
	}
	return &ForStmt{stmt: stmt{line}, Init: init, Cond: cond, Incr: incr, Body: body}, nil
}

func (s *ForStmt) Execute(ctx *Context) error {
	ctx.line = s.line
	if err := s.Init.Execute(ctx); err != nil {
		return err
	}
	for {
		ctx.line = s.line
		if getInt(s.Cond.Eval(ctx)) == 0 {
			return nil
		}
		if err := s.Body.Execute(ctx); err != nil {
			return err
		}
		if err := s.Incr.Execute(ctx); err != nil {
			return err
		}
	}
}

//-----------------------------------------------------------------------------
// Print and exit
//-----------------------------------------------------------------------------

// PrintStmt writes the textual form of an expression. No newline is added.
type PrintStmt struct {
	stmt
	Expr Expression
}

func NewPrint(line int, expr Expression) (*PrintStmt, error) {
	if !expr.Type().In(runtime.Printable) {
		return nil, diagnostics.New(diagnostics.InvalidTypeForPrintStmtExpression).AtLine(line)
	}
	return &PrintStmt{stmt: stmt{line}, Expr: expr}, nil
}

func (s *PrintStmt) Execute(ctx *Context) error {
	ctx.line = s.line
	return ctx.env.print(getString(s.Expr.Eval(ctx)))
}

type ExitStmt struct {
	stmt
	Status Expression
}

func NewExit(line int, status Expression) (*ExitStmt, error) {
	if status.Type() != runtime.TypeInt {
		return nil, diagnostics.New(diagnostics.ExitStatusMustBeAnInteger, status.Type().String()).AtLine(line)
	}
	return &ExitStmt{stmt: stmt{line}, Status: status}, nil
}

func (s *ExitStmt) Execute(ctx *Context) error {
	ctx.line = s.line
	return &ExitSignal{Status: getInt(s.Status.Eval(ctx)), Line: s.line}
}
