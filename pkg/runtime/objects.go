package runtime

import (
	"math"
	"sort"
	"strings"
	"sync"
)

// ObjectKind is the concrete kind of a game object.
type ObjectKind int

const (
	Triangle ObjectKind = iota + 1
	Rectangle
	Circle
	Textbox
	Pixmap
)

var objectKindNames = map[ObjectKind]string{
	Triangle:  "triangle",
	Rectangle: "rectangle",
	Circle:    "circle",
	Textbox:   "textbox",
	Pixmap:    "pixmap",
}

func (k ObjectKind) String() string {
	if name, ok := objectKindNames[k]; ok {
		return name
	}
	return "unknown_object"
}

func ParseObjectKind(name string) (ObjectKind, bool) {
	for kind, n := range objectKindNames {
		if n == name {
			return kind, true
		}
	}
	return 0, false
}

// FieldID names an object field. Names resolve to IDs once, when a member
// reference is constructed.
type FieldID int

const (
	FieldX FieldID = iota + 1
	FieldY
	FieldW
	FieldH
	FieldRed
	FieldGreen
	FieldBlue
	FieldVisible
	FieldDrawingOrder
	FieldAnimationBlock
	FieldUserInt
	FieldUserInt2
	FieldUserInt3
	FieldUserInt4
	FieldUserInt5
	FieldUserDouble
	FieldUserDouble2
	FieldUserDouble3
	FieldUserDouble4
	FieldUserDouble5
	FieldUserString
	FieldUserString2
	FieldUserString3
	FieldUserString4
	FieldUserString5
	FieldRadius
	FieldRotation
	FieldSize
	FieldSkew
	FieldText
	FieldSpace
	FieldFilename
)

var fieldNames = map[FieldID]string{
	FieldX:              "x",
	FieldY:              "y",
	FieldW:              "w",
	FieldH:              "h",
	FieldRed:            "red",
	FieldGreen:          "green",
	FieldBlue:           "blue",
	FieldVisible:        "visible",
	FieldDrawingOrder:   "drawing_order",
	FieldAnimationBlock: "animation_block",
	FieldUserInt:        "user_int",
	FieldUserInt2:       "user_int2",
	FieldUserInt3:       "user_int3",
	FieldUserInt4:       "user_int4",
	FieldUserInt5:       "user_int5",
	FieldUserDouble:     "user_double",
	FieldUserDouble2:    "user_double2",
	FieldUserDouble3:    "user_double3",
	FieldUserDouble4:    "user_double4",
	FieldUserDouble5:    "user_double5",
	FieldUserString:     "user_string",
	FieldUserString2:    "user_string2",
	FieldUserString3:    "user_string3",
	FieldUserString4:    "user_string4",
	FieldUserString5:    "user_string5",
	FieldRadius:         "radius",
	FieldRotation:       "rotation",
	FieldSize:           "size",
	FieldSkew:           "skew",
	FieldText:           "text",
	FieldSpace:          "space",
	FieldFilename:       "filename",
}

var fieldsByName = func() map[string]FieldID {
	out := make(map[string]FieldID, len(fieldNames))
	for id, name := range fieldNames {
		out[name] = id
	}
	return out
}()

func (f FieldID) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "unknown_field"
}

// LookupField resolves a field name. It does not check that any particular
// object kind carries the field.
func LookupField(name string) (FieldID, bool) {
	id, ok := fieldsByName[name]
	return id, ok
}

type fieldSpec struct {
	id  FieldID
	def Constant
}

func commonFields() []fieldSpec {
	return []fieldSpec{
		{FieldX, Int(0)},
		{FieldY, Int(0)},
		{FieldW, Int(10)},
		{FieldH, Int(10)},
		{FieldRed, Double(0)},
		{FieldGreen, Double(0)},
		{FieldBlue, Double(0)},
		{FieldVisible, Int(1)},
		{FieldDrawingOrder, Int(0)},
		{FieldAnimationBlock, BehaviorOf(nil)},
		{FieldUserInt, Int(0)},
		{FieldUserInt2, Int(0)},
		{FieldUserInt3, Int(0)},
		{FieldUserInt4, Int(0)},
		{FieldUserInt5, Int(0)},
		{FieldUserDouble, Double(0)},
		{FieldUserDouble2, Double(0)},
		{FieldUserDouble3, Double(0)},
		{FieldUserDouble4, Double(0)},
		{FieldUserDouble5, Double(0)},
		{FieldUserString, String("")},
		{FieldUserString2, String("")},
		{FieldUserString3, String("")},
		{FieldUserString4, String("")},
		{FieldUserString5, String("")},
	}
}

var schemas = map[ObjectKind][]fieldSpec{
	Triangle: append(commonFields(),
		fieldSpec{FieldSize, Int(10)},
		fieldSpec{FieldRotation, Double(0)},
		fieldSpec{FieldSkew, Double(1)},
	),
	Rectangle: append(commonFields(),
		fieldSpec{FieldRotation, Double(0)},
	),
	Circle: append(commonFields(),
		fieldSpec{FieldRadius, Int(10)},
	),
	Textbox: append(commonFields(),
		fieldSpec{FieldText, String("")},
		fieldSpec{FieldSize, Double(0.1)},
		fieldSpec{FieldSpace, Int(3)},
	),
	Pixmap: append(commonFields(),
		fieldSpec{FieldFilename, String("")},
	),
}

// NearDistance is how far apart, in pixels, two bounding boxes may be and
// still count as near each other.
const NearDistance = 40.0

// Rect is an axis-aligned bounding box.
type Rect struct {
	X, Y, W, H float64
}

// Overlaps reports whether the boxes share at least one point.
func (r Rect) Overlaps(o Rect) bool {
	return r.X <= o.X+o.W && o.X <= r.X+r.W && r.Y <= o.Y+o.H && o.Y <= r.Y+r.H
}

// Gap is the Euclidean distance between the closest points of two boxes.
func (r Rect) Gap(o Rect) float64 {
	dx := math.Max(0, math.Max(r.X-(o.X+o.W), o.X-(r.X+r.W)))
	dy := math.Max(0, math.Max(r.Y-(o.Y+o.H), o.Y-(r.Y+r.H)))
	return math.Hypot(dx, dy)
}

// GameObject is the field capability shared by every object kind.
type GameObject interface {
	Kind() ObjectKind
	// FieldType reports the declared type of a field, or false when this
	// kind does not carry it.
	FieldType(id FieldID) (Type, bool)
	Field(id FieldID) (Constant, bool)
	// SetField stores v, widened to the field's type.
	SetField(id FieldID, v Value) ConversionStatus
	Bounds() Rect
	Touches(other GameObject) bool
	Near(other GameObject) bool
	String() string
}

// Shape is the GameObject implementation for every kind. The kind selects a
// fixed field schema at construction.
type Shape struct {
	kind ObjectKind

	mu     sync.RWMutex
	fields map[FieldID]Constant
}

// NewShape creates an object of the given kind with default field values.
func NewShape(kind ObjectKind) *Shape {
	schema, ok := schemas[kind]
	if !ok {
		panic("runtime: unknown object kind")
	}
	s := &Shape{kind: kind, fields: make(map[FieldID]Constant, len(schema))}
	for _, spec := range schema {
		s.fields[spec.id] = spec.def
	}
	return s
}

func (s *Shape) Kind() ObjectKind { return s.kind }

func (s *Shape) FieldType(id FieldID) (Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.fields[id]
	if !ok {
		return 0, false
	}
	return c.Type(), true
}

func (s *Shape) Field(id FieldID) (Constant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.fields[id]
	return c, ok
}

func (s *Shape) SetField(id FieldID, v Value) ConversionStatus {
	typ, ok := s.FieldType(id)
	if !ok {
		return ConversionError
	}
	// v may read this object, so coerce before taking the write lock
	c, status := Coerce(v, typ)
	if !status.OK() {
		return status
	}
	if id == FieldAnimationBlock {
		if b, _ := c.GetBehavior(); b != nil && b.ParameterKind() != s.kind {
			return ConversionError
		}
	}
	s.mu.Lock()
	s.fields[id] = c
	s.mu.Unlock()
	return status
}

func (s *Shape) number(id FieldID) float64 {
	c, ok := s.fields[id]
	if !ok {
		return 0
	}
	v, _ := c.GetDouble()
	return v
}

func (s *Shape) Bounds() Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := Rect{X: s.number(FieldX), Y: s.number(FieldY)}
	switch s.kind {
	case Circle:
		d := 2 * s.number(FieldRadius)
		r.W, r.H = d, d
	case Triangle:
		size := s.number(FieldSize)
		r.W, r.H = size, size
	default:
		r.W, r.H = s.number(FieldW), s.number(FieldH)
	}
	return r
}

func (s *Shape) Touches(other GameObject) bool {
	if other == nil {
		return false
	}
	return s.Bounds().Overlaps(other.Bounds())
}

func (s *Shape) Near(other GameObject) bool {
	if other == nil {
		return false
	}
	return s.Bounds().Gap(other.Bounds()) <= NearDistance
}

// String renders the kind followed by every field in declaration order.
func (s *Shape) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]FieldID, 0, len(s.fields))
	for id := range s.fields {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	b.WriteString(s.kind.String())
	b.WriteString("(")
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(id.String())
		b.WriteString(" = ")
		c := s.fields[id]
		if c.Type() == TypeString {
			b.WriteString(`"` + c.String() + `"`)
		} else {
			b.WriteString(c.String())
		}
	}
	b.WriteString(")")
	return b.String()
}
