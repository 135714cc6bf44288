/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/statsview"
	"github.com/guslan/chip8/web"
)

func main() {
	port := flag.Int("port", 9999, "The port of the server (default = 9999)")
	speed := flag.Uint("speed", chip8.DefaultSpeed, fmt.Sprintf("Speed in cycles per second, in the range [%d, %d] (default = %d)", chip8.MinSpeed, chip8.MaxSpeed, chip8.DefaultSpeed))
	start := flag.Bool("start", false, "Start running the program right away (default = false)")
	static := flag.String("static", "", "Serve the client from this directory instead of the embedded one")
	debug := flag.Bool("debug", false, "Show debug information for the console (default = false)")
	trace := flag.Bool("trace", false, "Log every executed instruction, requires -debug (default = false)")
	shiftVy := flag.Bool("shift-vy", false, "8xy6 and 8xyE shift Vy instead of Vx (default = false)")
	keyRelease := flag.Bool("key-release", false, "Ex9E and ExA1 release the key they inspect (default = false)")
	stats := flag.Bool("statsview", false, "Serve runtime statistics at "+statsview.DefaultAddress)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if flag.NArg() < 1 {
		log.Fatalln("must provide the path to a rom as an argument")
	}

	program, err := chip8.ReadProgram(flag.Arg(0))
	if err != nil {
		log.Fatalln(err)
	}

	if *stats {
		statsview.Launch(statsview.DefaultAddress)
	}

	server := web.NewServer(func(config *web.ServerConfig) {
		config.SpeedInHz = *speed
		config.StartPaused = !*start
		config.StaticDir = *static
		config.Quirks = chip8.QuirksFromFlags(*shiftVy, *keyRelease)
		config.Trace = *trace
	})
	if err := server.LoadProgram(program); err != nil {
		log.Fatalln(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := server.Listen(ctx, *port); err != nil {
		log.Fatalln(err)
	}
}
