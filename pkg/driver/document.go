package driver

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/interpreter"
	"github.com/iam1me/gpl/pkg/runtime"
	"gopkg.in/yaml.v3"
)

// LoadProgram reads a program document from disk and builds it.
func LoadProgram(path string, sched *interpreter.Scheduler) (*interpreter.Program, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("program: open %s: %w", path, err)
	}
	defer file.Close()
	prog, err := DecodeProgram(file, sched)
	if err != nil {
		var list diagnostics.ErrorList
		if errors.As(err, &list) {
			return nil, err
		}
		return nil, fmt.Errorf("program: %s: %w", path, err)
	}
	return prog, nil
}

// DecodeProgram builds a program from a YAML program document. A malformed
// document yields a plain error; a well formed document with script errors
// yields a diagnostics.ErrorList.
func DecodeProgram(r io.Reader, sched *interpreter.Scheduler) (*interpreter.Program, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty program document")
		}
		return nil, fmt.Errorf("parse: %w", err)
	}
	d := &decoder{b: interpreter.NewBuilder(sched)}
	if err := d.program(doc); err != nil {
		return nil, err
	}
	return d.b.Program()
}

type decoder struct {
	b *interpreter.Builder
}

func (d *decoder) at(node map[string]any) {
	if line, err := asInt(node["line"]); err == nil {
		d.b.At(line)
	}
}

func nodeList(node map[string]any, key string) ([]map[string]any, error) {
	raw, ok := node[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a list, got %T", key, raw)
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		child, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid %s entry %T", key, item)
		}
		out = append(out, child)
	}
	return out, nil
}

func (d *decoder) program(doc map[string]any) error {
	decls, err := nodeList(doc, "declarations")
	if err != nil {
		return err
	}
	for _, decl := range decls {
		if err := d.declaration(decl); err != nil {
			return err
		}
	}

	anims, err := nodeList(doc, "animations")
	if err != nil {
		return err
	}
	for _, anim := range anims {
		if err := d.animation(anim); err != nil {
			return err
		}
	}

	if err := d.statements(doc, "initialization", d.b.Initialization()); err != nil {
		return err
	}
	if err := d.statements(doc, "termination", d.b.Termination()); err != nil {
		return err
	}

	handlers, err := nodeList(doc, "handlers")
	if err != nil {
		return err
	}
	for _, h := range handlers {
		d.at(h)
		name, _ := h["key"].(string)
		key, ok := interpreter.ParseKeystroke(name)
		if !ok {
			return fmt.Errorf("handler: unknown keystroke %q", name)
		}
		block := d.b.Block()
		if err := d.statements(h, "body", block); err != nil {
			return err
		}
		d.b.On(key, block)
	}
	return nil
}

func objectKind(node map[string]any) (runtime.ObjectKind, error) {
	name, _ := node["kind"].(string)
	kind, ok := runtime.ParseObjectKind(name)
	if !ok {
		return 0, fmt.Errorf("unknown object kind %q", name)
	}
	return kind, nil
}

func valueType(node map[string]any) (runtime.Type, error) {
	name, _ := node["kind"].(string)
	typ, ok := runtime.ParseType(name)
	if !ok || typ == runtime.TypeObject {
		return 0, fmt.Errorf("unknown variable type %q", name)
	}
	return typ, nil
}

func (d *decoder) declaration(node map[string]any) error {
	d.at(node)
	typ, _ := node["type"].(string)
	name, _ := node["name"].(string)
	if name == "" {
		return fmt.Errorf("%s missing name", typ)
	}
	switch typ {
	case "VariableDeclaration":
		vt, err := valueType(node)
		if err != nil {
			return err
		}
		init, err := d.optionalExpr(node, "init")
		if err != nil {
			return err
		}
		d.at(node)
		d.b.DeclareVariable(vt, name, init)
	case "ArrayDeclaration":
		vt, err := valueType(node)
		if err != nil {
			return err
		}
		size, err := d.requiredExpr(node, "size")
		if err != nil {
			return err
		}
		d.b.DeclareArray(vt, name, size)
	case "ObjectDeclaration":
		kind, err := objectKind(node)
		if err != nil {
			return err
		}
		params, err := d.params(node)
		if err != nil {
			return err
		}
		d.b.DeclareObject(kind, name, params)
	case "ObjectArrayDeclaration":
		kind, err := objectKind(node)
		if err != nil {
			return err
		}
		size, err := d.requiredExpr(node, "size")
		if err != nil {
			return err
		}
		d.b.DeclareObjectArray(kind, name, size)
	case "ForwardDeclaration":
		kind, err := objectKind(node)
		if err != nil {
			return err
		}
		param, _ := node["param"].(string)
		d.b.Forward(name, kind, param)
	default:
		return fmt.Errorf("unsupported declaration type %q", typ)
	}
	return nil
}

// params decodes constructor arguments in name order.
func (d *decoder) params(node map[string]any) ([]interpreter.Param, error) {
	raw, ok := node["params"]
	if !ok || raw == nil {
		return nil, nil
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("params must be a mapping, got %T", raw)
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]interpreter.Param, 0, len(names))
	for _, name := range names {
		child, ok := fields[name].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("param %s: invalid expression %T", name, fields[name])
		}
		e, err := d.expr(child)
		if err != nil {
			return nil, err
		}
		out = append(out, interpreter.Param{Name: name, Value: e})
	}
	return out, nil
}

func (d *decoder) animation(node map[string]any) error {
	d.at(node)
	name, _ := node["name"].(string)
	param, _ := node["param"].(string)
	kind, err := objectKind(node)
	if err != nil {
		return err
	}
	block := d.b.Animation(name, kind, param)
	body := d.b.Block()
	if err := d.statements(node, "body", body); err != nil {
		return err
	}
	d.at(node)
	d.b.Define(block, body)
	return nil
}

func (d *decoder) statements(node map[string]any, key string, into *interpreter.Block) error {
	children, err := nodeList(node, key)
	if err != nil {
		return err
	}
	for _, child := range children {
		s, err := d.statement(child)
		if err != nil {
			return err
		}
		into.Append(s)
	}
	return nil
}

func (d *decoder) statement(node map[string]any) (interpreter.Statement, error) {
	d.at(node)
	typ, _ := node["type"].(string)
	switch typ {
	case "AssignmentStatement":
		token, _ := node["operator"].(string)
		if token == "" {
			token = "="
		}
		op, ok := interpreter.ParseAssignOp(token)
		if !ok {
			return nil, fmt.Errorf("unknown assignment operator %q", token)
		}
		target, err := d.requiredExpr(node, "target")
		if err != nil {
			return nil, err
		}
		value, err := d.requiredExpr(node, "value")
		if err != nil {
			return nil, err
		}
		d.at(node)
		return d.b.Assign(target, op, value), nil
	case "PrintStatement":
		value, err := d.requiredExpr(node, "value")
		if err != nil {
			return nil, err
		}
		d.at(node)
		return d.b.Print(value), nil
	case "ExitStatement":
		value, err := d.requiredExpr(node, "value")
		if err != nil {
			return nil, err
		}
		d.at(node)
		return d.b.Exit(value), nil
	case "IfStatement":
		cond, err := d.requiredExpr(node, "condition")
		if err != nil {
			return nil, err
		}
		then := d.b.Block()
		if err := d.statements(node, "then", then); err != nil {
			return nil, err
		}
		var els *interpreter.Block
		if _, ok := node["else"]; ok {
			els = d.b.Block()
			if err := d.statements(node, "else", els); err != nil {
				return nil, err
			}
		}
		d.at(node)
		return d.b.If(cond, then, els), nil
	case "ForStatement":
		init := d.b.Block()
		if err := d.statements(node, "init", init); err != nil {
			return nil, err
		}
		cond, err := d.requiredExpr(node, "condition")
		if err != nil {
			return nil, err
		}
		incr := d.b.Block()
		if err := d.statements(node, "increment", incr); err != nil {
			return nil, err
		}
		body := d.b.Block()
		if err := d.statements(node, "body", body); err != nil {
			return nil, err
		}
		d.at(node)
		return d.b.For(init, cond, incr, body), nil
	default:
		return nil, fmt.Errorf("unsupported statement type %q", typ)
	}
}

func (d *decoder) requiredExpr(node map[string]any, key string) (interpreter.Expression, error) {
	raw, ok := node[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%v: missing %s expression", node["type"], key)
	}
	return d.expr(raw)
}

func (d *decoder) optionalExpr(node map[string]any, key string) (interpreter.Expression, error) {
	if _, ok := node[key]; !ok {
		return nil, nil
	}
	return d.requiredExpr(node, key)
}

// expr decodes an expression node. Script errors are recorded by the
// builder and surface as a nil expression.
func (d *decoder) expr(node map[string]any) (interpreter.Expression, error) {
	typ, _ := node["type"].(string)
	switch typ {
	case "IntegerLiteral":
		v, err := asInt(node["value"])
		if err != nil {
			return nil, fmt.Errorf("IntegerLiteral: %w", err)
		}
		return d.b.Constant(runtime.Int(v)), nil
	case "DoubleLiteral":
		v, ok := asFloat(node["value"])
		if !ok {
			return nil, fmt.Errorf("DoubleLiteral: invalid value %v", node["value"])
		}
		return d.b.Constant(runtime.Double(v)), nil
	case "StringLiteral":
		v, _ := node["value"].(string)
		return d.b.Constant(runtime.String(v)), nil
	case "Identifier":
		name, _ := node["name"].(string)
		return d.b.Variable(name), nil
	case "IndexExpression":
		name, _ := node["name"].(string)
		index, err := d.requiredExpr(node, "index")
		if err != nil {
			return nil, err
		}
		return d.b.Index(name, index), nil
	case "MemberAccess":
		object, _ := node["object"].(string)
		field, _ := node["field"].(string)
		if _, indexed := node["index"]; indexed {
			index, err := d.requiredExpr(node, "index")
			if err != nil {
				return nil, err
			}
			return d.b.IndexMember(object, index, field), nil
		}
		return d.b.Member(object, field), nil
	case "BinaryExpression":
		token, _ := node["operator"].(string)
		op, ok := interpreter.ParseBinaryOperator(token)
		if !ok {
			return nil, fmt.Errorf("unknown binary operator %q", token)
		}
		left, err := d.requiredExpr(node, "left")
		if err != nil {
			return nil, err
		}
		right, err := d.requiredExpr(node, "right")
		if err != nil {
			return nil, err
		}
		return d.b.Binary(op, left, right), nil
	case "UnaryExpression":
		token, _ := node["operator"].(string)
		op, ok := interpreter.ParseUnaryOperator(token)
		if !ok {
			return nil, fmt.Errorf("unknown unary operator %q", token)
		}
		operand, err := d.requiredExpr(node, "operand")
		if err != nil {
			return nil, err
		}
		return d.b.Unary(op, operand), nil
	default:
		return nil, fmt.Errorf("unsupported expression type %q", typ)
	}
}

// asInt reads a decoded YAML integer. Values outside the int range are
// rejected, not truncated.
func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, fmt.Errorf("integer %d out of range", n)
		}
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, fmt.Errorf("integer %d out of range", n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("invalid value %v", v)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
