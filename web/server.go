package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guslan/chip8"
)

var upgrader = websocket.Upgrader{} // use default options

//go:embed static
var static embed.FS

// Server exposes the console over HTTP: the screen and the keyboard travel
// through websockets and the runner is controlled with plain requests.
type Server struct {
	*chip8.InMemoryKeyboard

	Runner *chip8.Runner

	display *websocketDisplay
	mux     *http.ServeMux
}

type ServerConfig struct {
	ScreenSettings chip8.ScreenSettings
	Quirks         chip8.Quirks
	SpeedInHz      uint
	StartPaused    bool
	// StaticDir holds the client files served at /.
	// The embedded client is served when empty.
	StaticDir string
	// Trace logs every executed instruction
	Trace bool
}
type ServerConfigCb func(config *ServerConfig)

func NewServer(configs ...ServerConfigCb) *Server {
	config := &ServerConfig{
		ScreenSettings: chip8.SmallScreen,
		Quirks:         0,
		SpeedInHz:      chip8.DefaultSpeed,
		StartPaused:    true,
		StaticDir:      "",
		Trace:          false,
	}
	for _, cb := range configs {
		cb(config)
	}

	s := &Server{
		InMemoryKeyboard: chip8.NewInMemoryKeyboard(),
		display:          newWebsocketDisplay(),
		mux:              http.NewServeMux(),
	}

	cpu := chip8.NewCpu(func(c *chip8.CpuConfig) {
		c.ScreenSettings = config.ScreenSettings
		c.Keyboard = s
		c.Quirks = config.Quirks
	})
	s.Runner = chip8.NewRunner(cpu, s.display, func(c *chip8.RunnerConfig) {
		c.SpeedInHz = config.SpeedInHz
		c.StartPaused = config.StartPaused
	})
	if config.Trace {
		s.Runner.AddAfterCycleHook(chip8.TraceHook)
	}

	s.mux.Handle("/", http.FileServer(staticFiles(config.StaticDir)))
	s.mux.HandleFunc("/start", s.control("Starting", func() error {
		s.Runner.Start()
		return nil
	}))
	s.mux.HandleFunc("/stop", s.control("Stopping", func() error {
		s.Runner.Stop()
		return nil
	}))
	s.mux.HandleFunc("/reset", s.control("Stopping and resetting", func() error {
		s.Runner.Stop()
		s.InMemoryKeyboard.Reset()
		return s.Runner.Reset()
	}))
	s.mux.HandleFunc("/step", s.control("Single cycle", func() error {
		s.Runner.Stop()
		return s.Runner.Step()
	}))
	s.mux.HandleFunc("/display", s.handleDisplay)
	s.mux.HandleFunc("/keyboard", s.handleKeyboard)

	return s
}

// Handler returns the handler of every endpoint of the server
func (server *Server) Handler() http.Handler {
	return server.mux
}

// LoadProgram loads the program into memory and sets the PC to the start-of-program address
func (server *Server) LoadProgram(program []byte) error {
	return server.Runner.LoadProgram(program)
}

// Listen boots the console, runs it and serves HTTP until the context is done.
func (server *Server) Listen(ctx context.Context, port int) error {
	if err := server.Runner.Boot(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := server.Runner.Serve(ctx); !errors.Is(err, context.Canceled) {
			slog.Error("The console loop stopped", slog.Any("error", err))
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           server.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening on port", slog.Int("port", port))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func staticFiles(dir string) http.FileSystem {
	if dir != "" {
		return http.Dir(dir)
	}

	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

func (server *Server) control(msg string, action func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Type")

		w.Header().Set("Cache-Control", "no-cache")

		slog.Info(msg)
		if err := action(); err != nil {
			slog.Error(msg, slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (server *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	slog.Info("Connecting to display")
	if err := server.display.attach(conn); err != nil {
		slog.Error("Sending the first frame", slog.Any("error", err))
		return
	}
	defer server.display.detach(conn)

	// the display only sends, reading services the control frames and
	// notices the disconnection
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			slog.Info("Disconnecting from display")
			return
		}
	}
}

func (server *Server) handleKeyboard(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	slog.Info("Connecting to keyboard")
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			slog.Info("Disconnecting from keyboard")
			server.InMemoryKeyboard.Reset()
			return
		}

		state, err := decodeKeyboardState(msg)
		if err != nil {
			slog.Warn("Invalid keyboard message", slog.Any("error", err))
			continue
		}
		server.InMemoryKeyboard.Set(state)
	}
}

var ErrInvalidKeyboardMessage = errors.New("keyboard messages are 2 bytes long")

// decodeKeyboardState reads a big-endian key mask, key 0 being the most
// significant bit.
func decodeKeyboardState(msg []byte) (chip8.KeyboardState, error) {
	if len(msg) != 2 {
		return chip8.KeyboardState{}, fmt.Errorf("%w: got %d bytes", ErrInvalidKeyboardMessage, len(msg))
	}

	return chip8.KeyboardStateFromMask(uint16(msg[0])<<8 | uint16(msg[1])), nil
}
