package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/gui"
)

func main() {
	autostart := flag.Bool("start", false, "Starts the console automatically if there is a program loaded (defaults = false).")
	debug := flag.Bool("debug", false, "Show debug information for the console (defaults = false).")
	trace := flag.Bool("trace", false, "Log every executed instruction, requires -debug (defaults = false).")
	initialSpeed := flag.Uint("speed", chip8.DefaultSpeed, fmt.Sprintf("The starting speed of the CPU in Hz. It has to be in the range [%d, %d] (defaults = %d).", chip8.MinSpeed, chip8.MaxSpeed, chip8.DefaultSpeed))
	shiftVy := flag.Bool("shift-vy", false, "8xy6 and 8xyE shift Vy instead of Vx (defaults = false).")
	keyRelease := flag.Bool("key-release", false, "Ex9E and ExA1 release the key they inspect (defaults = false).")

	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	app := gui.NewApp(func(config *gui.AppConfig) {
		config.Speed = *initialSpeed
		config.Quirks = chip8.QuirksFromFlags(*shiftVy, *keyRelease)
		config.Trace = *trace
	})

	if flag.NArg() > 0 {
		app.Load(flag.Arg(0))
	}

	app.Run(*autostart)
}
