package runtime

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/iam1me/gpl/pkg/diagnostics"
)

// SymbolTable maps names to variables. Array elements are stored flat under
// names of the form name[i]. A program owns exactly one table.
type SymbolTable struct {
	mu      sync.RWMutex
	symbols map[string]*Variable
	arrays  map[string]int
	order   []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		symbols: make(map[string]*Variable),
		arrays:  make(map[string]int),
	}
}

// ElementName is the flat name of element i of array name.
func ElementName(name string, i int) string {
	return name + "[" + strconv.Itoa(i) + "]"
}

func (t *SymbolTable) taken(name string) bool {
	if _, ok := t.symbols[name]; ok {
		return true
	}
	_, ok := t.arrays[name]
	return ok
}

// Declare adds v under its own name.
func (t *SymbolTable) Declare(v *Variable) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.taken(v.Name()) {
		return diagnostics.PreviouslyDeclared(v.Name())
	}
	t.symbols[v.Name()] = v
	t.order = append(t.order, v.Name())
	return nil
}

// DeclareArray adds size elements built by element, one per flat name.
func (t *SymbolTable) DeclareArray(name string, size int, element func(elemName string) *Variable) ([]*Variable, error) {
	if size < 1 {
		return nil, diagnostics.InvalidSize(name, strconv.Itoa(size))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.taken(name) {
		return nil, diagnostics.PreviouslyDeclared(name)
	}
	elems := make([]*Variable, size)
	for i := range elems {
		elems[i] = element(ElementName(name, i))
		t.symbols[elems[i].Name()] = elems[i]
		t.order = append(t.order, elems[i].Name())
	}
	t.arrays[name] = size
	return elems, nil
}

// Lookup finds a scalar or a flat array element.
func (t *SymbolTable) Lookup(name string) (*Variable, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.symbols[name]
	return v, ok
}

// ArraySize reports the declared size of an array.
func (t *SymbolTable) ArraySize(name string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.arrays[name]
	return n, ok
}

// Element looks up element i of an array.
func (t *SymbolTable) Element(name string, i int) (*Variable, bool) {
	return t.Lookup(ElementName(name, i))
}

// Remove deletes a scalar symbol. Behaviors use it to retract a parameter
// symbol when their declaration fails.
func (t *SymbolTable) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.symbols[name]; !ok {
		return
	}
	delete(t.symbols, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Variables returns every symbol in declaration order.
func (t *SymbolTable) Variables() []*Variable {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Variable, len(t.order))
	for i, name := range t.order {
		out[i] = t.symbols[name]
	}
	return out
}

// Objects returns every object bound to an object-typed symbol, in
// declaration order.
func (t *SymbolTable) Objects() []GameObject {
	var out []GameObject
	for _, v := range t.Variables() {
		if v.Type() != TypeObject {
			continue
		}
		if obj, _ := v.GetObject(); obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

// Dump writes one line per symbol, sorted by name: type, name and value.
func (t *SymbolTable) Dump(w io.Writer) error {
	vars := t.Variables()
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name() < vars[j].Name() })
	for _, v := range vars {
		val := v.String()
		if v.Type() == TypeString {
			val = strconv.Quote(val)
		}
		if _, err := fmt.Fprintf(w, "%s %s = %s\n", v.Type(), v.Name(), val); err != nil {
			return err
		}
	}
	return nil
}
