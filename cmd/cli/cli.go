/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/statsview"
	"github.com/guslan/chip8/terminal"
)

func main() {
	speed := flag.Uint("speed", chip8.DefaultSpeed, fmt.Sprintf("Speed in cycles per second, in the range [%d, %d] (default = %d)", chip8.MinSpeed, chip8.MaxSpeed, chip8.DefaultSpeed))
	noTerm := flag.Bool("noterm", false, "turn off the terminal display of the emulator")
	hold := flag.Duration("hold", terminal.DefaultHoldDuration, "How long a key stays pressed after the terminal sends it")
	debug := flag.Bool("debug", false, "Show debug information for the console (default = false)")
	trace := flag.Bool("trace", false, "Log every executed instruction, requires -debug (default = false)")
	logFile := flag.String("log", "", "Write the logs to this file, the terminal is taken by the display")
	shiftVy := flag.Bool("shift-vy", false, "8xy6 and 8xyE shift Vy instead of Vx (default = false)")
	keyRelease := flag.Bool("key-release", false, "Ex9E and ExA1 release the key they inspect (default = false)")
	stats := flag.Bool("statsview", false, "Serve runtime statistics at "+statsview.DefaultAddress)
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatalln("must provide the path to a rom as an argument")
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logOutput := os.Stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalln(err)
		}
		defer f.Close()
		logOutput = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: level})))

	program, err := chip8.ReadProgram(flag.Arg(0))
	if err != nil {
		log.Fatalln(err)
	}

	if *stats {
		statsview.Launch(statsview.DefaultAddress)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kb := terminal.NewKeyboard(func(config *terminal.KeyboardConfig) {
		config.HoldDuration = *hold
		config.OnExit = cancel
	})

	var d chip8.Display
	if *noTerm {
		d = chip8.NewDummyDisplay()
	} else {
		d = terminal.NewDisplay()
	}

	cpu := chip8.NewCpu(func(config *chip8.CpuConfig) {
		config.Keyboard = kb
		config.Quirks = chip8.QuirksFromFlags(*shiftVy, *keyRelease)
	})
	runner := chip8.NewRunner(cpu, d, func(config *chip8.RunnerConfig) {
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

	keyboardDone := make(chan error, 1)
	go func() {
		keyboardDone <- kb.Listen(ctx)
	}()

	err = runner.Loop(ctx)
	cancel()
	// the terminal has to leave raw mode before anything else is printed
	select {
	case kbErr := <-keyboardDone:
		if kbErr != nil {
			slog.Error("Terminal keyboard failed", slog.Any("error", kbErr))
		}
	case <-time.After(time.Second):
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("The console halted", slog.Any("error", err))
		log.Fatalln(err)
	}
}
