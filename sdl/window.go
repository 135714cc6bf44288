package sdl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/guslan/chip8"
	"github.com/veandco/go-sdl2/sdl"
)

const DefaultScale = 10

// Window is an SDL2 window that renders the console screen and feeds the
// console keyboard with the key events it receives.
//
// SDL has to be driven from the main thread: Boot and Run must be called
// from the goroutine that owns it.
type Window struct {
	*chip8.InMemoryKeyboard

	title    string
	scale    int32
	settings chip8.ScreenSettings

	window   *sdl.Window
	renderer *sdl.Renderer

	lookup map[sdl.Keycode]byte

	// the last rendered screen, drawn by Run
	mu     sync.Mutex
	screen chip8.Screen
	dirty  bool
}

type WindowConfig struct {
	Title          string
	Scale          int32
	ScreenSettings chip8.ScreenSettings
	KeyboardLayout chip8.KeyboardLayout
}
type WindowConfigCb func(config *WindowConfig)

func NewWindow(configs ...WindowConfigCb) *Window {
	config := &WindowConfig{
		Title:          "chip8",
		Scale:          DefaultScale,
		ScreenSettings: chip8.SmallScreen,
		KeyboardLayout: chip8.DefaultKeyboardLayout,
	}
	for _, cb := range configs {
		cb(config)
	}

	lookup := map[sdl.Keycode]byte{}
	for r, k := range chip8.LookupMap(config.KeyboardLayout) {
		// SDL keycodes of printable keys are their lower case characters
		lookup[sdl.Keycode(r)] = k
	}

	return &Window{
		InMemoryKeyboard: chip8.NewInMemoryKeyboard(),
		title:            config.Title,
		scale:            config.Scale,
		settings:         config.ScreenSettings,
		lookup:           lookup,
		screen:           chip8.NewScreen(config.ScreenSettings),
		dirty:            true,
	}
}

// Boot implements chip8.Display.
// It opens the window.
func (w *Window) Boot() error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("sdl: %w", err)
	}

	var err error
	w.window, err = sdl.CreateWindow(
		w.title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(w.settings.Width)*w.scale, int32(w.settings.Height)*w.scale,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		return fmt.Errorf("sdl: %w", err)
	}

	w.renderer, err = sdl.CreateRenderer(w.window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		return fmt.Errorf("sdl: %w", err)
	}

	slog.Debug("SDL window opened", slog.String("title", w.title), slog.Int("scale", int(w.scale)))

	return nil
}

// Render implements chip8.Display.
func (w *Window) Render(screen chip8.Screen, settings chip8.ScreenSettings) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	copy(w.screen, screen)
	w.dirty = true

	return nil
}

// Close destroys the window and shuts SDL down.
func (w *Window) Close() {
	if w.renderer != nil {
		w.renderer.Destroy()
	}
	if w.window != nil {
		w.window.Destroy()
	}
	sdl.Quit()
}

// Run services the window until it is closed or the context is done.
// Closing the window calls onClose.
func (w *Window) Run(ctx context.Context, onClose func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch event := event.(type) {
			case *sdl.QuitEvent:
				onClose()
				return nil

			case *sdl.KeyboardEvent:
				if event.Keysym.Sym == sdl.K_ESCAPE {
					onClose()
					return nil
				}

				if k, ok := w.lookup[event.Keysym.Sym]; ok {
					if event.Type == sdl.KEYDOWN {
						w.InMemoryKeyboard.Press(k)
					} else {
						w.InMemoryKeyboard.Release(k)
					}
				}
			}
		}

		if err := w.draw(); err != nil {
			return err
		}

		sdl.Delay(uint32(chip8.FrameDuration.Milliseconds()))
	}
}

func (w *Window) draw() error {
	w.mu.Lock()
	if !w.dirty {
		w.mu.Unlock()
		return nil
	}
	rects := make([]sdl.Rect, 0, len(w.screen))
	for y := 0; y < w.settings.Height; y++ {
		for x := 0; x < w.settings.Width; x++ {
			if w.screen.Pixel(w.settings, x, y) > 0 {
				rects = append(rects, sdl.Rect{
					X: int32(x) * w.scale,
					Y: int32(y) * w.scale,
					W: w.scale,
					H: w.scale,
				})
			}
		}
	}
	w.dirty = false
	w.mu.Unlock()

	if err := w.renderer.SetDrawColor(0, 0, 0, 255); err != nil {
		return err
	}
	if err := w.renderer.Clear(); err != nil {
		return err
	}

	if len(rects) > 0 {
		if err := w.renderer.SetDrawColor(255, 255, 255, 255); err != nil {
			return err
		}
		if err := w.renderer.FillRects(rects); err != nil {
			return err
		}
	}

	w.renderer.Present()

	return nil
}
