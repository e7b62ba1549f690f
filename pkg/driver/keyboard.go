package driver

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/iam1me/gpl/pkg/interpreter"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const (
	keyCtrlC  = 0x03
	keyEscape = 0x1b
)

// ErrInterrupted is reported when ctrl-c is read from the keyboard.
var ErrInterrupted = errors.New("keyboard: interrupted")

// DecodeKeys translates raw terminal input into keystrokes. keymap entries
// take precedence over the built-in bindings. Decoding stops at ctrl-c, and
// the second result reports whether it was seen.
func DecodeKeys(input []byte, keymap map[rune]interpreter.Keystroke) ([]interpreter.Keystroke, bool) {
	var keys []interpreter.Keystroke
	for i := 0; i < len(input); i++ {
		c := input[i]
		if key, ok := keymap[rune(c)]; ok {
			keys = append(keys, key)
			continue
		}
		switch {
		case c == keyCtrlC:
			return keys, true
		case c == ' ':
			keys = append(keys, interpreter.KeySpace)
		case c == '\r' || c == '\n':
			keys = append(keys, interpreter.KeyEnter)
		case c == keyEscape && i+2 < len(input) && input[i+1] == '[':
			if key, ok := arrowKeys[input[i+2]]; ok {
				keys = append(keys, key)
			}
			i += 2
		case c == keyEscape && i+2 < len(input) && input[i+1] == 'O' && input[i+2] == 'P':
			keys = append(keys, interpreter.KeyF1)
			i += 2
		default:
			if key, ok := interpreter.LetterKey(rune(c)); ok {
				keys = append(keys, key)
			}
		}
	}
	return keys, false
}

var arrowKeys = map[byte]interpreter.Keystroke{
	'A': interpreter.KeyUpArrow,
	'B': interpreter.KeyDownArrow,
	'C': interpreter.KeyRightArrow,
	'D': interpreter.KeyLeftArrow,
}

// KeyReader reads keystrokes from a terminal, switching it to raw mode
// while reading.
type KeyReader struct {
	in     io.Reader
	fd     int
	keymap map[rune]interpreter.Keystroke
	logger zerolog.Logger

	mu          sync.Mutex
	state       *term.State
	err         error
	onInterrupt func()
}

// NewKeyReader reads from in. When in is a terminal it is put in raw mode
// by Start and restored by Close.
func NewKeyReader(in io.Reader, keymap map[rune]interpreter.Keystroke, logger zerolog.Logger) *KeyReader {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &KeyReader{in: in, fd: fd, keymap: keymap, logger: logger}
}

// OnInterrupt registers fn to run when ctrl-c is read. Raw mode disables
// the terminal's own interrupt handling.
func (r *KeyReader) OnInterrupt(fn func()) {
	r.mu.Lock()
	r.onInterrupt = fn
	r.mu.Unlock()
}

// Start begins reading. The returned channel closes at end of input,
// ctrl-c, or cancellation of ctx.
func (r *KeyReader) Start(ctx context.Context) (<-chan interpreter.Keystroke, error) {
	if r.fd >= 0 {
		state, err := term.MakeRaw(r.fd)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.state = state
		r.mu.Unlock()
	}
	out := make(chan interpreter.Keystroke)
	go r.read(ctx, out)
	return out, nil
}

func (r *KeyReader) read(ctx context.Context, out chan<- interpreter.Keystroke) {
	defer close(out)
	buf := make([]byte, 64)
	for {
		n, err := r.in.Read(buf)
		if n > 0 {
			keys, interrupted := DecodeKeys(buf[:n], r.keymap)
			for _, key := range keys {
				select {
				case out <- key:
				case <-ctx.Done():
					return
				}
			}
			if interrupted {
				r.setErr(ErrInterrupted)
				r.mu.Lock()
				fn := r.onInterrupt
				r.mu.Unlock()
				if fn != nil {
					fn()
				}
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.logger.Debug().Err(err).Msg("keyboard read")
				r.setErr(err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (r *KeyReader) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Err reports why reading stopped, or nil at end of input.
func (r *KeyReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close restores the terminal. It is safe to call more than once.
func (r *KeyReader) Close() error {
	r.mu.Lock()
	state := r.state
	r.state = nil
	r.mu.Unlock()
	if state == nil {
		return nil
	}
	return term.Restore(r.fd, state)
}
