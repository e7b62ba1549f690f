package runtime

import (
	"github.com/iam1me/gpl/pkg/diagnostics"
)

// MemberReference addresses one field of whatever object a symbol is bound
// to when it is read. The field name is resolved once, at construction.
type MemberReference struct {
	symbol *Variable
	field  FieldID
	typ    Type
}

// NewMemberReference binds symbol.field. The symbol must be object typed and
// its current object must carry the field.
func NewMemberReference(symbol *Variable, field string) (*MemberReference, error) {
	if symbol.Type() != TypeObject {
		return nil, diagnostics.ObjectExpectedLHS(symbol.Name())
	}
	obj, _ := symbol.GetObject()
	id, ok := LookupField(field)
	if !ok || obj == nil {
		return nil, diagnostics.UndeclaredMemberOf(symbol.Name(), field)
	}
	typ, ok := obj.FieldType(id)
	if !ok {
		return nil, diagnostics.UndeclaredMemberOf(symbol.Name(), field)
	}
	return &MemberReference{symbol: symbol, field: id, typ: typ}, nil
}

func (m *MemberReference) Name() string      { return m.symbol.Name() + "." + m.field.String() }
func (m *MemberReference) Symbol() *Variable { return m.symbol }
func (m *MemberReference) Field() FieldID    { return m.field }
func (m *MemberReference) Type() Type        { return m.typ }
func (m *MemberReference) IsConstant() bool  { return m.symbol.IsConstant() }

func (m *MemberReference) load() Constant {
	obj, _ := m.symbol.GetObject()
	if obj == nil {
		return nil
	}
	c, _ := obj.Field(m.field)
	return c
}

func (m *MemberReference) GetInt() (int, ConversionStatus) {
	if c := m.load(); c != nil {
		return c.GetInt()
	}
	return 0, ConversionError
}

func (m *MemberReference) GetDouble() (float64, ConversionStatus) {
	if c := m.load(); c != nil {
		return c.GetDouble()
	}
	return 0, ConversionError
}

func (m *MemberReference) GetString() (string, ConversionStatus) {
	if c := m.load(); c != nil {
		return c.GetString()
	}
	return "", ConversionError
}

func (m *MemberReference) GetObject() (GameObject, ConversionStatus) {
	return nil, ConversionError
}

func (m *MemberReference) GetBehavior() (Behavior, ConversionStatus) {
	if c := m.load(); c != nil {
		return c.GetBehavior()
	}
	return nil, ConversionError
}

func (m *MemberReference) SetInt(v int) ConversionStatus         { return m.store(Int(v)) }
func (m *MemberReference) SetDouble(v float64) ConversionStatus  { return m.store(Double(v)) }
func (m *MemberReference) SetString(v string) ConversionStatus   { return m.store(String(v)) }
func (m *MemberReference) SetObject(GameObject) ConversionStatus { return ConversionError }
func (m *MemberReference) SetBehavior(v Behavior) ConversionStatus {
	return m.store(BehaviorOf(v))
}

func (m *MemberReference) store(v Constant) ConversionStatus {
	obj, _ := m.symbol.GetObject()
	if obj == nil {
		return ConversionError
	}
	return obj.SetField(m.field, v)
}

func (m *MemberReference) String() string {
	if c := m.load(); c != nil {
		return c.String()
	}
	return ""
}
