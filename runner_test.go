package chip8_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/guslan/chip8"
)

type recordingDisplay struct {
	mu      sync.Mutex
	booted  bool
	renders []chip8.Screen
}

func (d *recordingDisplay) Boot() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.booted = true

	return nil
}

func (d *recordingDisplay) Render(screen chip8.Screen, settings chip8.ScreenSettings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.renders = append(d.renders, screen)

	return nil
}

func (d *recordingDisplay) last() chip8.Screen {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.renders) == 0 {
		return nil
	}

	return d.renders[len(d.renders)-1]
}

func newTestRunner(t *testing.T, program []byte, configs ...chip8.RunnerConfigCb) (*chip8.Runner, *recordingDisplay) {
	t.Helper()

	d := &recordingDisplay{}
	r := chip8.NewRunner(chip8.NewCpu(), d, configs...)
	if err := r.LoadProgram(program); err != nil {
		t.Fatal(err)
	}
	if err := r.Boot(); err != nil {
		t.Fatal(err)
	}

	return r, d
}

func TestRunnerRequiresBoot(t *testing.T) {
	r := chip8.NewRunner(chip8.NewCpu(), nil)

	if err := r.Loop(context.Background()); !errors.Is(err, chip8.ErrNotBooted) {
		t.Fatalf(`Loop() = %v, expected ErrNotBooted`, err)
	}
	if err := r.Step(); !errors.Is(err, chip8.ErrNotBooted) {
		t.Fatalf(`Step() = %v, expected ErrNotBooted`, err)
	}
}

func TestRunnerSpeed(t *testing.T) {
	r := chip8.NewRunner(chip8.NewCpu(), nil)
	if r.SpeedInHz() != chip8.DefaultSpeed {
		t.Fatalf(`SpeedInHz() = %d, expected %d`, r.SpeedInHz(), chip8.DefaultSpeed)
	}

	r.SetSpeedInHz(1)
	if r.SpeedInHz() != chip8.MinSpeed {
		t.Fatalf(`SpeedInHz() = %d, expected %d`, r.SpeedInHz(), chip8.MinSpeed)
	}

	r.SetSpeedInHz(10_000)
	if r.SpeedInHz() != chip8.MaxSpeed {
		t.Fatalf(`SpeedInHz() = %d, expected %d`, r.SpeedInHz(), chip8.MaxSpeed)
	}
}

func TestRunnerStepRendersAndRunsHooks(t *testing.T) {
	r, d := newTestRunner(t, []byte{0xA0, 0x50, 0xD0, 0x05}, func(config *chip8.RunnerConfig) {
		config.StartPaused = true
	})

	before, after := 0, 0
	r.AddBeforeCycleHook(func(cpu *chip8.Cpu) { before++ })
	r.AddAfterCycleHook(func(cpu *chip8.Cpu) { after++ })

	for i := 0; i < 2; i++ {
		if err := r.Step(); err != nil {
			t.Fatal(err)
		}
	}

	if before != 2 || after != 2 || r.Cycles() != 2 {
		t.Fatalf(`before=%d after=%d cycles=%d, expected 2`, before, after, r.Cycles())
	}
	if r.IsRunning() {
		t.Fatalf(`Step() resumed the runner`)
	}
	if screen := d.last(); screen == nil || screen.IsBlank() {
		t.Fatalf(`the glyph was not rendered`)
	}
}

func TestRunnerFrameDecaysTimers(t *testing.T) {
	r, _ := newTestRunner(t, []byte{0x60, 0x02, 0xF0, 0x15})
	frames := 0
	r.AddAfterFrameHook(func(cpu *chip8.Cpu) { frames++ })

	r.Step()
	r.Step()
	if err := r.Frame(); err != nil {
		t.Fatal(err)
	}

	if r.Cpu.Dt != 1 {
		t.Fatalf(`cpu.Dt = %d, expected 1`, r.Cpu.Dt)
	}
	if frames != 1 || r.Frames() != 1 {
		t.Fatalf(`frames=%d Frames()=%d, expected 1`, frames, r.Frames())
	}
}

func TestRunnerLoopEndsPastTheEndOfMemory(t *testing.T) {
	r, _ := newTestRunner(t, []byte{0x1F, 0xFE}, func(config *chip8.RunnerConfig) {
		config.SpeedInHz = chip8.MaxSpeed
	})
	r.Cpu.Memory[0xFFE] = 0x60

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Loop(ctx); err != nil {
		t.Fatalf(`Loop() returned an error %v`, err)
	}
	if r.Cpu.Pc != chip8.MemorySize {
		t.Fatalf(`cpu.Pc = %03X, expected %03X`, r.Cpu.Pc, chip8.MemorySize)
	}
}

func TestRunnerLoopStopsOnFatalError(t *testing.T) {
	r, _ := newTestRunner(t, []byte{0x00, 0xEE})

	var hookErr error
	r.AddErrorHook(func(cpu *chip8.Cpu) { hookErr = cpu.Err() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := r.Loop(ctx)
	if !errors.Is(err, chip8.ErrStackUnderflow) {
		t.Fatalf(`Loop() = %v, expected ErrStackUnderflow`, err)
	}
	if hookErr != err {
		t.Fatalf(`error hook saw %v, expected %v`, hookErr, err)
	}

	// the CPU stays halted
	if err := r.Loop(ctx); !errors.Is(err, chip8.ErrStackUnderflow) {
		t.Fatalf(`second Loop() = %v, expected ErrStackUnderflow`, err)
	}

	if err := r.Reset(); err != nil {
		t.Fatal(err)
	}
	if r.Cpu.Err() != nil {
		t.Fatalf(`Reset() did not clear the error`)
	}
}

func TestRunnerLoopDecaysTimersWhileWaitingForKey(t *testing.T) {
	program := []byte{
		// DT = 60
		0x60, 60,
		0xF0, 0x15,
		// LD v1, K
		0xF1, 0x0A,
	}
	r, _ := newTestRunner(t, program)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := r.Loop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf(`Loop() = %v, expected context.DeadlineExceeded`, err)
	}

	if r.Cpu.Pc != 0x204 {
		t.Fatalf(`cpu.Pc = %03X, expected the CPU to wait at 204`, r.Cpu.Pc)
	}
	if r.Cpu.Dt >= 60 {
		t.Fatalf(`cpu.Dt = %d, expected the timer to decay`, r.Cpu.Dt)
	}
}

func TestRunnerPausedLoopDoesNothing(t *testing.T) {
	r, _ := newTestRunner(t, []byte{0x60, 0x01}, func(config *chip8.RunnerConfig) {
		config.StartPaused = true
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := r.Loop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf(`Loop() = %v, expected context.DeadlineExceeded`, err)
	}
	if r.Cycles() != 0 || r.Frames() != 0 {
		t.Fatalf(`cycles=%d frames=%d while paused`, r.Cycles(), r.Frames())
	}
}

func TestRunnerServeWaitsForReset(t *testing.T) {
	r, _ := newTestRunner(t, []byte{0x00, 0xEE})

	halts := make(chan error, 4)
	r.AddErrorHook(func(cpu *chip8.Cpu) { halts <- cpu.Err() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Serve(ctx)
	}()

	waitForHalt := func() {
		t.Helper()
		select {
		case err := <-halts:
			if !errors.Is(err, chip8.ErrStackUnderflow) {
				t.Fatalf(`halted with %v, expected ErrStackUnderflow`, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf(`the CPU did not halt`)
		}

		deadline := time.Now().Add(5 * time.Second)
		for r.IsRunning() {
			if time.Now().After(deadline) {
				t.Fatalf(`Serve() did not pause the runner`)
			}
			time.Sleep(time.Millisecond)
		}
	}

	waitForHalt()

	if err := r.Reset(); err != nil {
		t.Fatal(err)
	}
	r.Start()
	waitForHalt()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf(`Serve() = %v, expected context.Canceled`, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf(`Serve() did not return after cancel`)
	}
}

func TestRunnerServeRequiresBoot(t *testing.T) {
	r := chip8.NewRunner(chip8.NewCpu(), nil)

	if err := r.Serve(context.Background()); !errors.Is(err, chip8.ErrNotBooted) {
		t.Fatalf(`Serve() = %v, expected ErrNotBooted`, err)
	}
}

func TestRunnerBuzzerFollowsTheSoundTimer(t *testing.T) {
	buzzer := chip8.NewDummyBuzzer()
	// ST = 2
	r, _ := newTestRunner(t, []byte{0x60, 0x02, 0xF0, 0x18}, func(config *chip8.RunnerConfig) {
		config.Buzzer = buzzer
	})

	r.Step()
	r.Step()
	if buzzer.IsPlaying() {
		t.Fatalf(`the buzzer plays before the next frame`)
	}

	r.Frame()
	if !buzzer.IsPlaying() || !r.IsSoundTimerActive() {
		t.Fatalf(`the buzzer does not play with ST = %d`, r.Cpu.St)
	}

	r.Frame()
	if buzzer.IsPlaying() || r.IsSoundTimerActive() {
		t.Fatalf(`the buzzer still plays with ST = %d`, r.Cpu.St)
	}
}
