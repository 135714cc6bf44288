package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/sdl"
)

func init() {
	// SDL has to run on the main thread
	runtime.LockOSThread()
}

func main() {
	speed := flag.Uint("speed", chip8.DefaultSpeed, fmt.Sprintf("The speed of the CPU in Hz, in the range [%d, %d] (defaults = %d).", chip8.MinSpeed, chip8.MaxSpeed, chip8.DefaultSpeed))
	scale := flag.Int("scale", sdl.DefaultScale, "The size in pixels of a console pixel.")
	debug := flag.Bool("debug", false, "Show debug information for the console (defaults = false).")
	trace := flag.Bool("trace", false, "Log every executed instruction, requires -debug (defaults = false).")
	shiftVy := flag.Bool("shift-vy", false, "8xy6 and 8xyE shift Vy instead of Vx (defaults = false).")
	keyRelease := flag.Bool("key-release", false, "Ex9E and ExA1 release the key they inspect (defaults = false).")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if flag.NArg() < 1 {
		log.Fatalln("must provide the path to a rom as an argument")
	}
	program, err := chip8.ReadProgram(flag.Arg(0))
	if err != nil {
		log.Fatalln(err)
	}

	window := sdl.NewWindow(func(config *sdl.WindowConfig) {
		config.Scale = int32(*scale)
	})
	cpu := chip8.NewCpu(func(config *chip8.CpuConfig) {
		config.Keyboard = window
		config.Quirks = chip8.QuirksFromFlags(*shiftVy, *keyRelease)
	})
	runner := chip8.NewRunner(cpu, window, func(config *chip8.RunnerConfig) {
		config.SpeedInHz = *speed
	})
	if *trace {
		runner.AddAfterCycleHook(chip8.TraceHook)
	}

	if err := runner.LoadProgram(program); err != nil {
		log.Fatalln(err)
	}
	if err := runner.Boot(); err != nil {
		log.Fatalln(err)
	}
	defer window.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- runner.Loop(ctx)
	}()

	if err := window.Run(ctx, cancel); err != nil {
		slog.Error("SDL window failed", slog.Any("error", err))
	}
	cancel()

	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("The console halted", slog.Any("error", err))
		os.Exit(1)
	}
}
