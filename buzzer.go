package chip8

import "sync/atomic"

// Buzzer is told when the sound timer becomes active and when it runs out.
// Play and Stop are called from the runner, once per change.
type Buzzer interface {
	Play()
	Stop()
}

// DummyBuzzer only records whether it should be playing
type DummyBuzzer struct {
	isPlaying atomic.Bool
}

func NewDummyBuzzer() *DummyBuzzer {
	return &DummyBuzzer{}
}

// Play implements Buzzer.
func (b *DummyBuzzer) Play() {
	b.isPlaying.Store(true)
}

// Stop implements Buzzer.
func (b *DummyBuzzer) Stop() {
	b.isPlaying.Store(false)
}

func (b *DummyBuzzer) IsPlaying() bool {
	return b.isPlaying.Load()
}
