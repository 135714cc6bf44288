package chip8

import (
	"sync"
	"unicode"
)

// KeyCount is the number of keys of the hexadecimal keypad.
const KeyCount = 16

type KeyboardState [KeyCount]bool

// Mask packs the state into 16 bits, key 0 being the most significant bit.
func (state KeyboardState) Mask() uint16 {
	var mask uint16
	for k, pressed := range state {
		if pressed {
			mask |= 0b1000000000000000 >> k
		}
	}

	return mask
}

// KeyboardStateFromMask is the inverse of KeyboardState.Mask.
func KeyboardStateFromMask(mask uint16) KeyboardState {
	state := KeyboardState{}
	for k := range state {
		state[k] = mask&(0b1000000000000000>>k) > 0
	}

	return state
}

// FirstPressed returns the lowest pressed key.
func (state KeyboardState) FirstPressed() (byte, bool) {
	for k, pressed := range state {
		if pressed {
			return byte(k), true
		}
	}

	return 0, false
}

// Keyboard is the input source as seen by the CPU.
type Keyboard interface {
	IsPressed(k byte) bool
	State() KeyboardState
	// Release marks k as not pressed. The CPU only calls it when
	// QuirkKeyRelease is set.
	Release(k byte)
}

// InMemoryKeyboard holds the keypad state behind a mutex so that the input
// source and the CPU can live on different goroutines.
type InMemoryKeyboard struct {
	mu    sync.RWMutex
	state KeyboardState
}

func NewInMemoryKeyboard() *InMemoryKeyboard {
	return &InMemoryKeyboard{}
}

func (kb *InMemoryKeyboard) IsPressed(k byte) bool {
	if k >= KeyCount {
		return false
	}

	kb.mu.RLock()
	defer kb.mu.RUnlock()

	return kb.state[k]
}

func (kb *InMemoryKeyboard) State() KeyboardState {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	return kb.state
}

// Set replaces the whole state at once.
func (kb *InMemoryKeyboard) Set(state KeyboardState) {
	kb.mu.Lock()
	kb.state = state
	kb.mu.Unlock()
}

func (kb *InMemoryKeyboard) Press(k byte) {
	kb.setKey(k, true)
}

func (kb *InMemoryKeyboard) Release(k byte) {
	kb.setKey(k, false)
}

// Reset releases every key.
func (kb *InMemoryKeyboard) Reset() {
	kb.Set(KeyboardState{})
}

func (kb *InMemoryKeyboard) setKey(k byte, pressed bool) {
	if k >= KeyCount {
		return
	}

	kb.mu.Lock()
	kb.state[k] = pressed
	kb.mu.Unlock()
}

// KeyboardLayout maps every console key to a rune of the host keyboard.
type KeyboardLayout [KeyCount]rune

// DefaultKeyboardLayout maps the COSMAC VIP keypad
//
//	1 2 3 C
//	4 5 6 D
//	7 8 9 E
//	A 0 B F
//
// onto the left side of a QWERTY keyboard
//
//	1 2 3 4
//	Q W E R
//	A S D F
//	Z X C V
var DefaultKeyboardLayout = KeyboardLayout{
	0x0: 'x',
	0x1: '1', 0x2: '2', 0x3: '3',
	0x4: 'q', 0x5: 'w', 0x6: 'e',
	0x7: 'a', 0x8: 's', 0x9: 'd',
	0xA: 'z', 0xB: 'c',
	0xC: '4', 0xD: 'r', 0xE: 'f', 0xF: 'v',
}

// LookupMap inverts the layout: host rune (lower case) to console key.
func LookupMap(layout KeyboardLayout) map[rune]byte {
	m := make(map[rune]byte, KeyCount)
	for k, r := range layout {
		m[unicode.ToLower(r)] = byte(k)
	}

	return m
}
