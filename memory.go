package chip8

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOutOfBounds is returned when a program does not fit between the start of
// the program region and the end of memory.
var ErrOutOfBounds = errors.New("the program does not fit into memory")

const (
	// MemorySize is the size of the addressable space.
	MemorySize = 4096
	// StartOfProgram is where ROMs are loaded and where execution starts.
	StartOfProgram = 0x200
	// MaxProgramSize is the largest ROM that can be loaded.
	MaxProgramSize = MemorySize - StartOfProgram

	// FontsetAddress is the address of the glyph for the digit 0.
	FontsetAddress = 0x050
	// GlyphSize is the number of bytes (rows) of a single glyph.
	GlyphSize = 5

	addressMask = MemorySize - 1
)

var fontset = [16 * GlyphSize]byte{
	// 0
	0xF0, 0x90, 0x90, 0x90, 0xF0,
	// 1
	0x20, 0x60, 0x20, 0x20, 0x70,
	// 2
	0xF0, 0x10, 0xF0, 0x80, 0xF0,
	// 3
	0xF0, 0x10, 0xF0, 0x10, 0xF0,
	// 4
	0x90, 0x90, 0xF0, 0x10, 0x10,
	// 5
	0xF0, 0x80, 0xF0, 0x10, 0xF0,
	// 6
	0xF0, 0x80, 0xF0, 0x90, 0xF0,
	// 7
	0xF0, 0x10, 0x20, 0x40, 0x40,
	// 8
	0xF0, 0x90, 0xF0, 0x90, 0xF0,
	// 9
	0xF0, 0x90, 0xF0, 0x10, 0xF0,
	// A
	0xF0, 0x90, 0xF0, 0x90, 0x90,
	// B
	0xE0, 0x90, 0xE0, 0x90, 0xE0,
	// C
	0xF0, 0x80, 0x80, 0x80, 0xF0,
	// D
	0xE0, 0x90, 0x90, 0x90, 0xE0,
	// E
	0xF0, 0x80, 0xF0, 0x80, 0xF0,
	// F
	0xF0, 0x80, 0xF0, 0x80, 0x80,
}

type Memory [MemorySize]byte

// NewMemory creates a memory of 4096 bytes with the fontset installed
func NewMemory() *Memory {
	m := Memory([MemorySize]byte{})
	m.loadFontset()

	return &m
}

func (mem Memory) Clone() *Memory {
	m := Memory{}
	copy(m[:], mem[:])

	return &m
}

// Glyph returns the 5 bytes of the hexadecimal digit d as resident in memory.
func (mem Memory) Glyph(d byte) []byte {
	addr := GlyphAddress(d)
	glyph := make([]byte, GlyphSize)
	copy(glyph, mem[addr:addr+GlyphSize])

	return glyph
}

// GlyphAddress returns the address of the glyph for the low nibble of d.
func GlyphAddress(d byte) uint16 {
	return FontsetAddress + GlyphSize*uint16(d&0x0F)
}

func (mem Memory) String() string {
	sb := strings.Builder{}

	sb.WriteString("[ ")
	for _, b := range mem[:StartOfProgram] {
		sb.WriteString(fmt.Sprintf("%X ", b))
	}
	sb.WriteString("]\n")
	sb.WriteString("[ ")
	for _, b := range mem[StartOfProgram:] {
		sb.WriteString(fmt.Sprintf("%X ", b))
	}
	sb.WriteString("]")

	return sb.String()
}

func (mem Memory) IsEqual(other Memory) bool {
	return mem == other
}

// LoadProgram loads the program at the start-of-program address.
// The fontset is installed again and whatever was left in the program region
// by a previous program is cleared. Nothing is written when the program does
// not fit.
func (mem *Memory) LoadProgram(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, at most %d bytes fit from 0x%03X", ErrOutOfBounds, len(program), MaxProgramSize, StartOfProgram)
	}

	mem.loadFontset()

	clear(mem[StartOfProgram:])
	copy(mem[StartOfProgram:], program)

	return nil
}

func (mem *Memory) loadFontset() {
	copy(mem[FontsetAddress:], fontset[:])
}
