package terminal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
	"unicode"

	"github.com/guslan/chip8"
	"github.com/pkg/term"
)

// ASCII codes with a special meaning for the keyboard
const (
	KeyInterrupt = 3 // Ctrl-C
	KeyEsc       = 27
)

// DefaultHoldDuration is how long a key stays pressed after its character
// is read. Terminals do not send release events, and auto-repeat keeps
// refreshing the deadline while a key is held down.
const DefaultHoldDuration = 150 * time.Millisecond

const readTimeout = 50 * time.Millisecond

// Keyboard reads the keys of a raw-mode terminal.
type Keyboard struct {
	lookup map[rune]byte
	hold   time.Duration
	onExit func()

	mu           sync.Mutex
	pressedUntil [chip8.KeyCount]time.Time
	now          func() time.Time
}

type KeyboardConfig struct {
	Layout       chip8.KeyboardLayout
	HoldDuration time.Duration
	// OnExit runs when Ctrl-C or Esc is read
	OnExit func()
}
type KeyboardConfigCb func(config *KeyboardConfig)

func NewKeyboard(configs ...KeyboardConfigCb) *Keyboard {
	config := &KeyboardConfig{
		Layout:       chip8.DefaultKeyboardLayout,
		HoldDuration: DefaultHoldDuration,
		OnExit:       func() {},
	}
	for _, cb := range configs {
		cb(config)
	}

	return &Keyboard{
		lookup: chip8.LookupMap(config.Layout),
		hold:   config.HoldDuration,
		onExit: config.OnExit,
		now:    time.Now,
	}
}

// IsPressed implements chip8.Keyboard.
func (kb *Keyboard) IsPressed(k byte) bool {
	if k >= chip8.KeyCount {
		return false
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	return kb.now().Before(kb.pressedUntil[k])
}

// State implements chip8.Keyboard.
func (kb *Keyboard) State() chip8.KeyboardState {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	now := kb.now()
	state := chip8.KeyboardState{}
	for k, until := range kb.pressedUntil {
		state[k] = now.Before(until)
	}

	return state
}

// Release implements chip8.Keyboard.
func (kb *Keyboard) Release(k byte) {
	if k >= chip8.KeyCount {
		return
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.pressedUntil[k] = time.Time{}
}

// Feed handles the bytes of a single read from the terminal.
func (kb *Keyboard) Feed(input []byte) {
	if len(input) == 0 {
		return
	}

	// a lone Esc is the key itself, otherwise it starts an escape sequence
	if input[0] == KeyEsc {
		if len(input) == 1 {
			kb.onExit()
		}
		return
	}

	interrupted := false
	kb.mu.Lock()
	for _, b := range input {
		if b == KeyInterrupt {
			interrupted = true
			break
		}

		if k, ok := kb.lookup[unicode.ToLower(rune(b))]; ok {
			kb.pressedUntil[k] = kb.now().Add(kb.hold)
		}
	}
	kb.mu.Unlock()

	if interrupted {
		kb.onExit()
	}
}

// Listen puts the controlling terminal in raw mode and feeds the keyboard
// until the context is done. The terminal is restored before returning.
func (kb *Keyboard) Listen(ctx context.Context) error {
	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		return err
	}
	defer tty.Close()
	defer tty.Restore()

	if err := tty.SetReadTimeout(readTimeout); err != nil {
		return err
	}

	slog.Debug("Listening to the terminal keyboard")

	buff := make([]byte, 8)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := tty.Read(buff)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		kb.Feed(buff[:n])
	}
}
