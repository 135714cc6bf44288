package gui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/guslan/chip8"
)

const (
	ToolbarGap       = 5
	ToolbarBtnWidth  = 80
	ToolbarBtnHeight = 40
	ToolbarHeight    = 50
	ToolbarBtnOffset = ToolbarBtnWidth + ToolbarGap

	ScreenPixelSize = 15
	ScreenPositionX = 0
	ScreenPositionY = ToolbarHeight + 1

	MessageBarGap   = 5
	MessageBarHeigh = 30
)

var ScreenBgColor = rl.Gold
var ScreenPixelColor = rl.Yellow

var MessageBarBgColor = rl.DarkGray
var MessageBarInfoColor = rl.SkyBlue
var MessageBarSuccessColor = rl.Lime
var MessageBarWarningColor = rl.Gold
var MessageBarErrorColor = rl.Red

type MessageType byte

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageWarning
	MessageError
)

type App struct {
	*chip8.InMemoryKeyboard
	// The underlying console
	Runner *chip8.Runner
	// Speed factor
	// Speed in Hz is speedFactor+1 * 5
	speedFactor float32

	// Copy of the last rendered screen
	screenMu       sync.Mutex
	screen         chip8.Screen
	screenSettings chip8.ScreenSettings

	keyboardLookupMap map[ScanCode]byte

	// Window width and height
	winW, winH int

	// Whether the sound timer is active
	beeping atomic.Bool

	// Toolbar
	startBtn, stopBtn, stepBtn, restBtn bool

	loadedProgramPath string
	booted            bool

	messageMu        sync.Mutex
	lastMessage      string
	lastMessageColor rl.Color
}

type AppConfig struct {
	Speed          uint
	ScreenSettings chip8.ScreenSettings
	Quirks         chip8.Quirks
	KeyboardLayout chip8.KeyboardLayout
	// Trace logs every executed instruction
	Trace bool
}
type AppConfigCb func(config *AppConfig)

func speedFactorToHz(s float32) uint {
	return uint((s + 1) * 5)
}

func hzToSpeedFactor(hz uint) float32 {
	return float32(hz)/5 - 1
}

func NewApp(configs ...AppConfigCb) *App {
	config := &AppConfig{
		Speed:          chip8.DefaultSpeed,
		ScreenSettings: chip8.SmallScreen,
		Quirks:         0,
		KeyboardLayout: chip8.DefaultKeyboardLayout,
		Trace:          false,
	}
	for _, cb := range configs {
		cb(config)
	}

	app := &App{
		InMemoryKeyboard:  chip8.NewInMemoryKeyboard(),
		speedFactor:       hzToSpeedFactor(config.Speed),
		screen:            chip8.NewScreen(config.ScreenSettings),
		screenSettings:    config.ScreenSettings,
		keyboardLookupMap: keyboardLookupMap(config.KeyboardLayout),
	}

	cpu := chip8.NewCpu(func(c *chip8.CpuConfig) {
		c.ScreenSettings = config.ScreenSettings
		c.Keyboard = app
		c.Quirks = config.Quirks
	})
	app.Runner = chip8.NewRunner(cpu, app, func(c *chip8.RunnerConfig) {
		c.SpeedInHz = config.Speed
		c.StartPaused = true
		c.Buzzer = app
	})
	app.Runner.AddErrorHook(func(cpu *chip8.Cpu) {
		app.showMessage(cpu.Err().Error(), MessageError)
	})
	if config.Trace {
		app.Runner.AddAfterCycleHook(chip8.TraceHook)
	}

	app.updateWindowSize()

	return app
}

// Boot implements chip8.Display.
func (app *App) Boot() error {
	return nil
}

// Render implements chip8.Display.
func (app *App) Render(screen chip8.Screen, settings chip8.ScreenSettings) error {
	app.screenMu.Lock()
	defer app.screenMu.Unlock()

	copy(app.screen, screen)

	return nil
}

// Play implements chip8.Buzzer.
func (app *App) Play() {
	app.beeping.Store(true)
}

// Stop implements chip8.Buzzer.
func (app *App) Stop() {
	app.beeping.Store(false)
}

// Run initializes the console and the UI loop
func (app *App) Run(autostart bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Runner.Boot(); err != nil {
		slog.Error("Error booting the console", slog.Any("error", err))
		return
	}
	app.booted = true
	if autostart && app.hasProgramLoaded() {
		app.Runner.Start()
	}

	go func() {
		slog.Info("starting the console loop on pause")
		if err := app.Runner.Serve(ctx); !errors.Is(err, context.Canceled) {
			slog.Error("The console loop stopped", slog.Any("error", err))
		}
	}()

	rl.InitWindow(int32(app.winW), int32(app.winH), "chip8")
	defer rl.CloseWindow()

	app.loadStyles()
	rl.SetTargetFPS(chip8.FrameRate)
	for !rl.WindowShouldClose() {
		rl.BeginDrawing()

		rl.ClearBackground(rl.Black)

		app.handleFileLoad()
		app.handleActions()
		app.handleKeyPress()
		app.updateCpuSpeed()

		// Sections get rendered from bottom to the top so that the toolbar is drawn over the rest
		app.drawMessageBar()
		app.drawScreen()
		app.drawToolbar()

		rl.EndDrawing()
	}
}

func (app *App) Load(path string) {
	program, err := chip8.ReadProgram(path)
	if err != nil {
		slog.Error("Error loading program", slog.String("path", path), slog.Any("error", err))
		app.showMessage(err.Error(), MessageError)
		return
	}

	if err = app.Runner.LoadProgram(program); err != nil {
		slog.Error("Error loading program", slog.String("path", path), slog.Any("error", err))
		app.showMessage(err.Error(), MessageError)
		return
	}

	app.loadedProgramPath = path
	slog.Info("Program loaded", slog.String("path", path))
	app.showMessage(fmt.Sprintf("Program '%s' loaded", app.loadedProgramPath), MessageInfo)

	if app.booted {
		app.Runner.Start()
	}
}

func (app *App) updateWindowSize() {
	app.winW = app.screenSettings.Width * ScreenPixelSize
	app.winH = app.screenSettings.Height*ScreenPixelSize + ToolbarHeight + MessageBarHeigh
	slog.Info("Updating window size", slog.Int("width", app.winW), slog.Int("height", app.winH))
}

func (app *App) loadStyles() {
	slog.Info("Loading styles")
	gui.LoadStyleDefault()
}

func (app *App) handleFileLoad() {
	if rl.IsFileDropped() {
		files := rl.LoadDroppedFiles()
		defer rl.UnloadDroppedFiles()

		slog.Info("Files were dropped", "files", strings.Join(files, ","))

		if len(files) > 0 {
			app.Load(files[0])
		}
	}
}

func (app *App) hasProgramLoaded() bool {
	return len(app.loadedProgramPath) > 0
}

func (app *App) handleActions() {
	if app.startBtn {
		if app.hasProgramLoaded() {
			app.Runner.Start()
			slog.Info("Starting the console")
		} else {
			app.showMessage("There is no program loaded", MessageError)
		}
	}
	if app.stopBtn {
		app.Runner.Stop()
		slog.Info("Stopping the console")
	}
	if app.restBtn {
		if err := app.Runner.Reset(); err != nil {
			app.showMessage(err.Error(), MessageError)
		}
		app.InMemoryKeyboard.Reset()
		slog.Info("Resetting the program to the beginning")
	}
	if app.stepBtn {
		app.Runner.Stop()
		if err := app.Runner.Step(); err != nil {
			app.showMessage(err.Error(), MessageError)
		}
		slog.Info("Running a single cycle")
	}
}

func (app *App) handleKeyPress() {
	state := chip8.KeyboardState{}
	for scanCode, key := range app.keyboardLookupMap {
		state[key] = rl.IsKeyDown(scanCode)
	}
	app.InMemoryKeyboard.Set(state)
}

func (app *App) updateCpuSpeed() {
	app.Runner.SetSpeedInHz(speedFactorToHz(app.speedFactor))
}

const (
	MinSpeed = float32(chip8.MinSpeed/5) - 1
	MaxSpeed = float32(chip8.MaxSpeed/5) - 1
)

func (app *App) drawToolbar() {
	rl.DrawRectangle(0, 0, int32(rl.GetScreenWidth()), ToolbarHeight, rl.Gray)

	app.startBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*0, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_PLAY, "Start"),
	)
	app.stopBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*1, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_STOP, "Stop"),
	)
	app.stepBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*2, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_NEXT, "Step"),
	)
	app.restBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*3, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_ROTATE, "Reset"),
	)

	status := "Stopped"
	if app.Runner.IsRunning() {
		status = "Running"
	}
	gui.Label(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*4, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight/2),
		status,
	)
	// sound is not emitted, the sound timer is only shown
	if app.beeping.Load() {
		gui.Label(
			rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*4, ToolbarGap+ToolbarBtnHeight/2, ToolbarBtnWidth, ToolbarBtnHeight/2),
			"Beep",
		)
	}

	gui.Label(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150, 26, 50, 20),
		fmt.Sprintf("%d Hz", speedFactorToHz(app.speedFactor)),
	)

	if gui.Button(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150+50, 26, 50, 20),
		gui.IconText(gui.ICON_ROTATE, ""),
	) {
		app.speedFactor = hzToSpeedFactor(chip8.DefaultSpeed)
	}

	app.speedFactor = gui.Slider(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150, ToolbarGap, 100, 20),
		fmt.Sprintf("%d Hz", chip8.MinSpeed), fmt.Sprintf("%d Hz", chip8.MaxSpeed),
		app.speedFactor,
		MinSpeed,
		MaxSpeed,
	)
}

func (app *App) drawScreen() {
	app.screenMu.Lock()
	defer app.screenMu.Unlock()

	for y := 0; y < app.screenSettings.Height; y++ {
		for x := 0; x < app.screenSettings.Width; x++ {
			color := ScreenBgColor
			if app.screen.Pixel(app.screenSettings, x, y) > 0 {
				color = ScreenPixelColor
			}

			rl.DrawRectangle(
				ScreenPositionX+ScreenPixelSize*int32(x),
				ScreenPositionY+ScreenPixelSize*int32(y),
				ScreenPixelSize,
				ScreenPixelSize,
				color)
		}
	}
}

// showMessage may be called from the console loop.
func (app *App) showMessage(msg string, mType MessageType) {
	app.messageMu.Lock()
	defer app.messageMu.Unlock()

	app.lastMessage = msg
	switch mType {
	case MessageInfo:
		app.lastMessageColor = MessageBarInfoColor

	case MessageSuccess:
		app.lastMessageColor = MessageBarSuccessColor

	case MessageWarning:
		app.lastMessageColor = MessageBarWarningColor

	case MessageError:
		app.lastMessageColor = MessageBarErrorColor
	}
}

func (app *App) drawMessageBar() {
	app.messageMu.Lock()
	defer app.messageMu.Unlock()

	rl.DrawRectangle(
		0,
		int32(app.winH)-MessageBarHeigh,
		int32(app.winW),
		MessageBarHeigh,
		MessageBarBgColor,
	)

	rl.DrawText(
		app.lastMessage,
		MessageBarGap,
		int32(app.winH)-MessageBarHeigh+MessageBarGap,
		16,
		app.lastMessageColor,
	)
}
