package chip8

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var ErrNotBooted = errors.New("the console has not been booted properly")

const (
	DefaultSpeed uint = 500
	MaxSpeed     uint = 700
	MinSpeed     uint = 5

	// FrameRate is the rate at which timers decay and the screen is rendered.
	FrameRate     = 60
	FrameDuration = time.Second / FrameRate
)

// Runner is the host loop: it runs CPU cycles at a configurable speed and,
// independently, decays the timers and renders the screen at 60 Hz.
//
// Every access to the CPU goes through the runner's lock, so frontends may
// call Step, Reset or LoadProgram while Loop runs on another goroutine.
// Hooks run with the lock held and must not call back into the runner.
type Runner struct {
	Cpu     *Cpu
	Display Display
	Buzzer  Buzzer

	mu      sync.Mutex
	booted  bool
	cycles  uint
	frames  uint
	playing bool

	speedInHz atomic.Uint64
	paused    atomic.Bool

	// Wakes up Serve after the loop returned
	restart chan struct{}

	// Hooks that run before every cycle
	beforeCycleHooks []Hook
	// Hooks that run after every cycle
	afterCycleHooks []Hook
	// Hooks that run after every frame
	afterFrameHooks []Hook
	// Hooks that run after an error
	errorHooks []Hook
}

type RunnerConfig struct {
	SpeedInHz   uint
	StartPaused bool
	Buzzer      Buzzer
}
type RunnerConfigCb func(config *RunnerConfig)

func NewRunner(cpu *Cpu, display Display, configs ...RunnerConfigCb) *Runner {
	config := &RunnerConfig{
		SpeedInHz:   DefaultSpeed,
		StartPaused: false,
		Buzzer:      nil,
	}
	for _, cb := range configs {
		cb(config)
	}

	if display == nil {
		display = NewDummyDisplay()
	}
	if config.Buzzer == nil {
		config.Buzzer = NewDummyBuzzer()
	}

	r := &Runner{
		Cpu:     cpu,
		Display: display,
		Buzzer:  config.Buzzer,

		beforeCycleHooks: make([]Hook, 0),
		afterCycleHooks:  make([]Hook, 0),
		afterFrameHooks:  make([]Hook, 0),
		errorHooks:       make([]Hook, 0),

		restart: make(chan struct{}, 1),
	}
	r.SetSpeedInHz(config.SpeedInHz)
	r.paused.Store(config.StartPaused)

	return r
}

func (r *Runner) SpeedInHz() uint {
	return uint(r.speedInHz.Load())
}

// SetSpeedInHz sets the instruction rate, clamped to [MinSpeed, MaxSpeed].
func (r *Runner) SetSpeedInHz(inHz uint) {
	r.speedInHz.Store(uint64(min(max(inHz, MinSpeed), MaxSpeed)))
}

func (r *Runner) IsRunning() bool {
	return !r.paused.Load()
}

// Start resumes the loop.
func (r *Runner) Start() {
	r.paused.Store(false)
}

// Stop pauses the loop. Timers do not decay while paused.
func (r *Runner) Stop() {
	r.paused.Store(true)
}

func (r *Runner) Cycles() uint {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cycles
}

func (r *Runner) Frames() uint {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.frames
}

func (r *Runner) IsSoundTimerActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.Cpu.IsSoundTimerActive()
}

// Boot initializes the display
// If the runner was already booted, this method is a noop
func (r *Runner) Boot() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.booted {
		return nil
	}

	if err := r.Display.Boot(); err != nil {
		return err
	}

	r.booted = true

	return nil
}

// LoadProgram loads the program into memory and restarts the CPU
func (r *Runner) LoadProgram(program []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.Cpu.LoadProgram(program); err != nil {
		return err
	}
	r.cycles = 0
	r.frames = 0
	r.updateBuzzer()
	r.wakeUp()

	return r.render()
}

// Reset restarts the loaded program
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Cpu.Reset()
	r.cycles = 0
	r.frames = 0
	r.updateBuzzer()
	r.wakeUp()

	return r.render()
}

// Step runs a single cycle bypassing the pause state
func (r *Runner) Step() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.booted {
		return ErrNotBooted
	}

	if _, err := r.runNextCycle(); err != nil {
		return err
	}

	return r.render()
}

// Frame runs a single frame bypassing the pause state
func (r *Runner) Frame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.booted {
		return ErrNotBooted
	}

	return r.runNextFrame()
}

// Loop runs until the context is done, the CPU halts on an error or the
// program counter runs past the end of memory.
func (r *Runner) Loop(ctx context.Context) error {
	r.mu.Lock()
	booted, lastError := r.booted, r.Cpu.Err()
	r.mu.Unlock()

	if !booted {
		return ErrNotBooted
	}

	if lastError != nil {
		return lastError
	}

	speed := r.SpeedInHz()
	cycleTicker := time.NewTicker(time.Second / time.Duration(speed))
	defer cycleTicker.Stop()
	frameTicker := time.NewTicker(FrameDuration)
	defer frameTicker.Stop()

	slog.Debug("Starting the loop", slog.Uint64("speed", uint64(speed)), slog.Bool("running", r.IsRunning()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-cycleTicker.C:
			if s := r.SpeedInHz(); s != speed {
				speed = s
				cycleTicker.Reset(time.Second / time.Duration(speed))
			}

			if !r.IsRunning() {
				continue
			}

			r.mu.Lock()
			done, err := r.runNextCycle()
			r.mu.Unlock()
			if err != nil {
				return err
			} else if done {
				slog.Debug("The program counter ran past the end of memory")
				return nil
			}

		case <-frameTicker.C:
			if !r.IsRunning() {
				continue
			}

			r.mu.Lock()
			err := r.runNextFrame()
			r.mu.Unlock()
			if err != nil {
				return err
			}
		}
	}
}

// Serve runs the loop until the context is done. When the program ends or
// the CPU halts, the runner is paused until the next Reset or LoadProgram.
// Errors of the CPU reach the error hooks, only ErrNotBooted and the error of
// the context are returned.
func (r *Runner) Serve(ctx context.Context) error {
	for {
		// drop the wake ups sent while the loop was running
		select {
		case <-r.restart:
		default:
		}

		err := r.Loop(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrNotBooted):
			return err
		case err != nil:
			slog.Error("The console halted", slog.Any("error", err))
		default:
			slog.Info("The program ended")
		}
		r.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.restart:
		}
	}
}

func (r *Runner) wakeUp() {
	select {
	case r.restart <- struct{}{}:
	default:
	}
}

func (r *Runner) runNextCycle() (bool, error) {
	r.runHooks(r.beforeCycleHooks)
	if err := r.Cpu.Cycle(); err != nil {
		r.runHooks(r.errorHooks)
		return false, err
	}
	r.cycles++
	r.runHooks(r.afterCycleHooks)

	return r.Cpu.Pc >= MemorySize, nil
}

func (r *Runner) runNextFrame() error {
	r.Cpu.TickTimers()
	r.updateBuzzer()

	if err := r.render(); err != nil {
		return err
	}

	r.frames++
	r.runHooks(r.afterFrameHooks)

	return nil
}

func (r *Runner) updateBuzzer() {
	playing := r.Cpu.IsSoundTimerActive()
	if playing == r.playing {
		return
	}

	r.playing = playing
	if playing {
		r.Buzzer.Play()
	} else {
		r.Buzzer.Stop()
	}
}

func (r *Runner) render() error {
	if screen, dirty := r.Cpu.TakeFrame(); dirty {
		return r.Display.Render(screen, r.Cpu.ScreenSettings)
	}

	return nil
}
