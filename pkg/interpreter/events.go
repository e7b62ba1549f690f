package interpreter

import (
	"sync"
)

// Keystroke identifies a key event a program can handle.
type Keystroke int

const (
	KeyNone Keystroke = iota
	KeySpace
	KeyLeftArrow
	KeyRightArrow
	KeyUpArrow
	KeyDownArrow
	KeyEnter
	KeyF1
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
)

var keyNames = map[Keystroke]string{
	KeySpace:      "space",
	KeyLeftArrow:  "leftarrow",
	KeyRightArrow: "rightarrow",
	KeyUpArrow:    "uparrow",
	KeyDownArrow:  "downarrow",
	KeyEnter:      "enter",
	KeyF1:         "f1",
}

func init() {
	for k := KeyA; k <= KeyZ; k++ {
		keyNames[k] = string(rune('a' + int(k-KeyA)))
	}
}

func (k Keystroke) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "none"
}

// ParseKeystroke maps a key name such as "space" or "a" to its keystroke.
func ParseKeystroke(name string) (Keystroke, bool) {
	for k, n := range keyNames {
		if n == name {
			return k, true
		}
	}
	return KeyNone, false
}

// LetterKey maps a lowercase ASCII letter to its keystroke.
func LetterKey(r rune) (Keystroke, bool) {
	if r < 'a' || r > 'z' {
		return KeyNone, false
	}
	return KeyA + Keystroke(r-'a'), true
}

// EventManager maps keystrokes to the handler blocks registered for them,
// in registration order.
type EventManager struct {
	mu       sync.RWMutex
	handlers map[Keystroke][]*Block
}

func NewEventManager() *EventManager {
	return &EventManager{handlers: make(map[Keystroke][]*Block)}
}

func (m *EventManager) Register(key Keystroke, block *Block) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[key] = append(m.handlers[key], block)
}

// Handlers returns a copy of the blocks registered for key.
func (m *EventManager) Handlers(key Keystroke) []*Block {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Block, len(m.handlers[key]))
	copy(out, m.handlers[key])
	return out
}

// Execute runs every handler for key synchronously on ctx, stopping at the
// first error.
func (m *EventManager) Execute(ctx *Context, key Keystroke) error {
	for _, b := range m.Handlers(key) {
		if err := b.Execute(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Keys lists every keystroke with at least one handler.
func (m *EventManager) Keys() []Keystroke {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Keystroke, 0, len(m.handlers))
	for k := KeyNone; k <= KeyZ; k++ {
		if len(m.handlers[k]) > 0 {
			out = append(out, k)
		}
	}
	return out
}
