package chip8

// Display abstraction for a display
type Display interface {
	// Boot initializes the component
	Boot() error
	// Render draws a snapshot of the framebuffer.
	// It is only called when the framebuffer changed.
	Render(Screen, ScreenSettings) error
}

// DummyDisplay is a display that does nothing
type DummyDisplay struct {
}

func NewDummyDisplay() *DummyDisplay {
	return &DummyDisplay{}
}

func (d DummyDisplay) Boot() error {
	return nil
}

func (d DummyDisplay) Render(screen Screen, settings ScreenSettings) error {
	return nil
}
