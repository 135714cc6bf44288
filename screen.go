package chip8

import (
	"strings"
)

// Screen is the framebuffer: one cell per pixel, row after row, each cell
// holding 0 or 1.
type Screen []byte

// ScreenSettings for the console
// Common display sizes are 64x32 and 128x64.
// Other uncommon sizes are 64x48 and 64x64.
type ScreenSettings struct {
	Width, Height int
}

var SmallScreen = ScreenSettings{
	Width:  64,
	Height: 32,
}

// Size is the number of cells of a screen with these settings.
func (s ScreenSettings) Size() int {
	return s.Width * s.Height
}

func (s ScreenSettings) isValid() bool {
	return s.Width > 0 && s.Height > 0
}

func NewScreen(settings ScreenSettings) Screen {
	return make(Screen, settings.Size())
}

// Pixel returns the cell at column x and row y.
func (screen Screen) Pixel(settings ScreenSettings, x, y int) byte {
	return screen[y*settings.Width+x]
}

func (screen Screen) Clone() Screen {
	s := make(Screen, len(screen))
	copy(s, screen)

	return s
}

// IsBlank reports whether every pixel is off.
func (screen Screen) IsBlank() bool {
	for _, p := range screen {
		if p != 0 {
			return false
		}
	}

	return true
}

// Pack packs the cells into bytes, most significant bit first, 8 pixels per
// byte. The last byte is padded with zeroes.
func (screen Screen) Pack() []byte {
	packed := make([]byte, (len(screen)+7)/8)
	for i, p := range screen {
		if p != 0 {
			packed[i/8] |= 0b10000000 >> (i % 8)
		}
	}

	return packed
}

// String draws the screen with '#' for lit pixels and '.' for the rest.
func (screen Screen) String(settings ScreenSettings) string {
	sb := strings.Builder{}
	sb.Grow(settings.Size() + settings.Height)
	for y := 0; y < settings.Height; y++ {
		for x := 0; x < settings.Width; x++ {
			if screen.Pixel(settings, x, y) != 0 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

func (cpu *Cpu) clearScreen() {
	clear(cpu.screen)
	cpu.isScreenDirty = true
}

// drawSprite XORs the sprite rows onto the screen with its top-left corner at
// (x, y). Both the origin and every pixel wrap around the edges.
// Returns whether a lit pixel was turned off.
func (cpu *Cpu) drawSprite(x, y byte, rows []byte) bool {
	w, h := cpu.ScreenSettings.Width, cpu.ScreenSettings.Height
	originX := int(x) % w
	originY := int(y) % h

	collision := false
	for row, sprite := range rows {
		ty := (originY + row) % h
		for col := 0; col < 8; col++ {
			bit := (sprite >> (7 - col)) & 0b1
			if bit == 0 {
				continue
			}

			t := ty*w + (originX+col)%w
			if cpu.screen[t] == 1 {
				collision = true
			}
			cpu.screen[t] ^= 1
			cpu.isScreenDirty = true
		}
	}

	return collision
}
