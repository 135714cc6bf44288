package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/guslan/chip8"
	"golang.org/x/sys/unix"
)

const ESC = 0x1B

var ErrTerminalTooSmall = errors.New("the terminal is too small to fit the screen")

// Display draws the screen on an ANSI terminal, two characters per pixel.
type Display struct {
	out             io.Writer
	settings        chip8.ScreenSettings
	OnChar, OffChar string
}

type DisplayConfig struct {
	Output          io.Writer
	ScreenSettings  chip8.ScreenSettings
	OnChar, OffChar string
}
type DisplayConfigCb func(config *DisplayConfig)

func NewDisplay(configs ...DisplayConfigCb) *Display {
	config := &DisplayConfig{
		Output:         os.Stdout,
		ScreenSettings: chip8.SmallScreen,
		OnChar:         "##",
		OffChar:        "  ",
	}
	for _, cb := range configs {
		cb(config)
	}

	return &Display{
		out:      config.Output,
		settings: config.ScreenSettings,
		OnChar:   config.OnChar,
		OffChar:  config.OffChar,
	}
}

// Boot implements chip8.Display.
// When the output is a terminal, its window has to fit the whole screen.
func (disp *Display) Boot() error {
	if f, ok := disp.out.(*os.File); ok {
		// the ioctl fails when the output is not a terminal
		ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
		if err == nil {
			if err := disp.fits(int(ws.Col), int(ws.Row)); err != nil {
				return err
			}
		}
	}

	_, err := disp.out.Write([]byte{
		// Move cursor do start
		ESC, '[', '1', 'H',
		// clear the terminal
		ESC, '[', '0', 'J',
	})

	return err
}

func (disp *Display) fits(cols, rows int) error {
	w := disp.settings.Width*len(disp.OnChar) + 1
	h := disp.settings.Height
	if cols < w || rows < h {
		return fmt.Errorf("%w: need %dx%d, have %dx%d", ErrTerminalTooSmall, w, h, cols, rows)
	}

	return nil
}

// Render implements chip8.Display.
func (disp *Display) Render(screen chip8.Screen, settings chip8.ScreenSettings) error {
	buff := make([]byte, 0, settings.Size()*len(disp.OnChar)+settings.Height*3+4)
	buff = append(buff, ESC, '[', '1', 'H')
	for i, p := range screen {
		if p > 0 {
			buff = append(buff, disp.OnChar...)
		} else {
			buff = append(buff, disp.OffChar...)
		}

		// the terminal is in raw mode, new lines do not return the carriage
		if (i+1)%settings.Width == 0 {
			buff = append(buff, '|', '\r', '\n')
		}
	}

	_, err := disp.out.Write(buff)
	return err
}
