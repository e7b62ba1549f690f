package runtime

import (
	"strconv"
	"sync"
)

// Value is anything an expression can read or an assignment can store to:
// constants, symbols and member references.
type Value interface {
	Type() Type
	IsConstant() bool

	GetInt() (int, ConversionStatus)
	GetDouble() (float64, ConversionStatus)
	GetString() (string, ConversionStatus)
	GetObject() (GameObject, ConversionStatus)
	GetBehavior() (Behavior, ConversionStatus)

	SetInt(v int) ConversionStatus
	SetDouble(v float64) ConversionStatus
	SetString(v string) ConversionStatus
	SetObject(v GameObject) ConversionStatus
	SetBehavior(v Behavior) ConversionStatus

	String() string
}

// Behavior is the runtime handle of an animation block.
type Behavior interface {
	Name() string
	ParameterKind() ObjectKind
}

//-----------------------------------------------------------------------------
// Constants
//-----------------------------------------------------------------------------

// Constant is an immutable value. The concrete types are IntConstant,
// DoubleConstant, StringConstant, ObjectConstant and BehaviorConstant.
type Constant interface {
	Value
	constant()
}

// readOnly supplies the failing getters and setters every constant shares;
// each constant type overrides the getters it supports.
type readOnly struct{}

func (readOnly) constant()        {}
func (readOnly) IsConstant() bool { return true }

func (readOnly) GetInt() (int, ConversionStatus)           { return 0, ConversionError }
func (readOnly) GetDouble() (float64, ConversionStatus)    { return 0, ConversionError }
func (readOnly) GetString() (string, ConversionStatus)     { return "", ConversionError }
func (readOnly) GetObject() (GameObject, ConversionStatus) { return nil, ConversionError }
func (readOnly) GetBehavior() (Behavior, ConversionStatus) { return nil, ConversionError }

func (readOnly) SetInt(int) ConversionStatus           { return ConversionError }
func (readOnly) SetDouble(float64) ConversionStatus    { return ConversionError }
func (readOnly) SetString(string) ConversionStatus     { return ConversionError }
func (readOnly) SetObject(GameObject) ConversionStatus { return ConversionError }
func (readOnly) SetBehavior(Behavior) ConversionStatus { return ConversionError }

type IntConstant struct {
	readOnly
	Val int
}

func Int(v int) IntConstant { return IntConstant{Val: v} }

func (c IntConstant) Type() Type                             { return TypeInt }
func (c IntConstant) GetInt() (int, ConversionStatus)        { return c.Val, Exact }
func (c IntConstant) GetDouble() (float64, ConversionStatus) { return float64(c.Val), WidenToDouble }
func (c IntConstant) GetString() (string, ConversionStatus)  { return c.String(), WidenToString }
func (c IntConstant) String() string                         { return strconv.Itoa(c.Val) }

type DoubleConstant struct {
	readOnly
	Val float64
}

func Double(v float64) DoubleConstant { return DoubleConstant{Val: v} }

func (c DoubleConstant) Type() Type                             { return TypeDouble }
func (c DoubleConstant) GetDouble() (float64, ConversionStatus) { return c.Val, Exact }
func (c DoubleConstant) GetString() (string, ConversionStatus)  { return c.String(), WidenToString }
func (c DoubleConstant) String() string                         { return FormatDouble(c.Val) }

type StringConstant struct {
	readOnly
	Val string
}

func String(v string) StringConstant { return StringConstant{Val: v} }

func (c StringConstant) Type() Type                            { return TypeString }
func (c StringConstant) GetString() (string, ConversionStatus) { return c.Val, Exact }
func (c StringConstant) String() string                        { return c.Val }

type ObjectConstant struct {
	readOnly
	Val GameObject
}

func Object(v GameObject) ObjectConstant { return ObjectConstant{Val: v} }

func (c ObjectConstant) Type() Type                                { return TypeObject }
func (c ObjectConstant) GetObject() (GameObject, ConversionStatus) { return c.Val, Exact }

func (c ObjectConstant) String() string {
	if c.Val == nil {
		return "<no object>"
	}
	return c.Val.String()
}

type BehaviorConstant struct {
	readOnly
	Val Behavior
}

func BehaviorOf(v Behavior) BehaviorConstant { return BehaviorConstant{Val: v} }

func (c BehaviorConstant) Type() Type                                { return TypeBehavior }
func (c BehaviorConstant) GetBehavior() (Behavior, ConversionStatus) { return c.Val, Exact }

func (c BehaviorConstant) String() string {
	if c.Val == nil {
		return "<no animation>"
	}
	return "animation_block " + c.Val.Name()
}

//-----------------------------------------------------------------------------
// Variables
//-----------------------------------------------------------------------------

// Variable is a named, typed storage cell. Its type never changes after
// declaration; reads and writes are guarded by a per-cell lock so behaviors
// running on different goroutines never observe a torn value.
type Variable struct {
	name     string
	typ      Type
	readonly bool

	mu  sync.RWMutex
	val Constant
}

// NewVariable declares a cell holding the zero value of typ.
func NewVariable(name string, typ Type) *Variable {
	return &Variable{name: name, typ: typ, val: Zero(typ)}
}

// NewConstantVariable declares a read-only cell holding v.
func NewConstantVariable(name string, v Constant) *Variable {
	return &Variable{name: name, typ: v.Type(), readonly: true, val: v}
}

// NewInitializedVariable declares a cell and stores init into it. The
// returned status is ConversionError when init cannot widen to typ.
func NewInitializedVariable(name string, typ Type, init Value) (*Variable, ConversionStatus) {
	v := NewVariable(name, typ)
	if init == nil {
		return v, Exact
	}
	c, status := Coerce(init, typ)
	if !status.OK() {
		return v, status
	}
	v.val = c
	return v, status
}

func (v *Variable) Name() string     { return v.name }
func (v *Variable) Type() Type       { return v.typ }
func (v *Variable) IsConstant() bool { return v.readonly }

// Load returns the current value.
func (v *Variable) Load() Constant {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.val
}

func (v *Variable) GetInt() (int, ConversionStatus)           { return v.Load().GetInt() }
func (v *Variable) GetDouble() (float64, ConversionStatus)    { return v.Load().GetDouble() }
func (v *Variable) GetString() (string, ConversionStatus)     { return v.Load().GetString() }
func (v *Variable) GetObject() (GameObject, ConversionStatus) { return v.Load().GetObject() }
func (v *Variable) GetBehavior() (Behavior, ConversionStatus) { return v.Load().GetBehavior() }

func (v *Variable) SetInt(x int) ConversionStatus           { return v.store(Int(x)) }
func (v *Variable) SetDouble(x float64) ConversionStatus    { return v.store(Double(x)) }
func (v *Variable) SetString(x string) ConversionStatus     { return v.store(String(x)) }
func (v *Variable) SetObject(x GameObject) ConversionStatus { return v.store(Object(x)) }
func (v *Variable) SetBehavior(x Behavior) ConversionStatus { return v.store(BehaviorOf(x)) }

func (v *Variable) store(src Constant) ConversionStatus {
	if v.readonly {
		return ConversionError
	}
	c, status := Coerce(src, v.typ)
	if !status.OK() {
		return status
	}
	v.mu.Lock()
	v.val = c
	v.mu.Unlock()
	return status
}

// Bind replaces the object held by an object cell regardless of read-only
// status. Behaviors use it to attach their parameter symbol to a subject.
func (v *Variable) Bind(obj GameObject) {
	v.mu.Lock()
	v.val = Object(obj)
	v.mu.Unlock()
}

func (v *Variable) String() string {
	return v.Load().String()
}
