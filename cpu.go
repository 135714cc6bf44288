package chip8

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

type ErrOpCodeUnknown struct {
	OpCode uint16
	Pc     uint16
}

func (err ErrOpCodeUnknown) Error() string {
	return fmt.Sprintf("unknown opcode=%04X at PC=%03X", err.OpCode, err.Pc)
}

var ErrStackUnderflow = errors.New("stack underflow: try to pop an empty stack")
var ErrStackOverflow = errors.New("stack overflow: try to push to a full stack")

// ExecutionError is a fatal error raised while executing a known instruction.
type ExecutionError struct {
	OpCode uint16
	Pc     uint16
	Err    error
}

func (err *ExecutionError) Error() string {
	return fmt.Sprintf("%v (opcode=%04X at PC=%03X)", err.Err, err.OpCode, err.Pc)
}

func (err *ExecutionError) Unwrap() error {
	return err.Err
}

// Quirks toggles historical variations of the instruction set.
type Quirks uint8

const (
	// QuirkShiftUsesVy makes 8xy6 and 8xyE shift Vy and store the result in
	// Vx. Without it the shifts operate on Vx and y is ignored.
	QuirkShiftUsesVy Quirks = 1 << iota
	// QuirkKeyRelease makes Ex9E and ExA1 release the key they inspected.
	QuirkKeyRelease
)

// QuirksFromFlags builds the quirks from command line switches.
func QuirksFromFlags(shiftUsesVy, keyRelease bool) Quirks {
	var q Quirks
	if shiftUsesVy {
		q |= QuirkShiftUsesVy
	}
	if keyRelease {
		q |= QuirkKeyRelease
	}

	return q
}

const StackSize = 16

// Chip-8 CPU
type Cpu struct {
	Memory *Memory
	// V 8-bit registers
	V [16]byte
	// I 16-bit register (12-bit usable)
	I uint16
	// Delay timer register
	Dt byte
	// Sound timer register
	St byte
	// Program counter
	Pc uint16
	// Stack pointer
	Sp byte
	// Stack
	Stack [StackSize]uint16
	// Last fetched instruction
	Opcode uint16

	ScreenSettings ScreenSettings
	screen         Screen
	isScreenDirty  bool

	Keyboard Keyboard

	quirks    Quirks
	random    io.Reader
	lastError error
}

type CpuConfig struct {
	ScreenSettings ScreenSettings
	Keyboard       Keyboard
	Quirks         Quirks
	// Random is the source of the bytes of Cxkk
	Random io.Reader
}
type CpuConfigCb func(config *CpuConfig)

// NewCpu returns a CPU ready to run: registers cleared, fontset installed and
// PC at the start of the program region.
func NewCpu(configs ...CpuConfigCb) *Cpu {
	config := &CpuConfig{
		ScreenSettings: SmallScreen,
		Keyboard:       nil,
		Quirks:         0,
		Random:         rand.Reader,
	}
	for _, cb := range configs {
		cb(config)
	}

	if !config.ScreenSettings.isValid() {
		config.ScreenSettings = SmallScreen
	}
	if config.Keyboard == nil {
		config.Keyboard = NewInMemoryKeyboard()
	}
	if config.Random == nil {
		config.Random = rand.Reader
	}

	return &Cpu{
		Memory: NewMemory(),

		Pc: StartOfProgram,

		ScreenSettings: config.ScreenSettings,
		screen:         NewScreen(config.ScreenSettings),

		Keyboard: config.Keyboard,

		quirks: config.Quirks,
		random: config.Random,
	}
}

func (cpu *Cpu) Quirks() Quirks {
	return cpu.quirks
}

func (cpu *Cpu) HasQuirk(q Quirks) bool {
	return cpu.quirks&q > 0
}

func (cpu *Cpu) IsSoundTimerActive() bool {
	return cpu.St > 0
}

func (cpu *Cpu) IsDelayTimerActive() bool {
	return cpu.Dt > 0
}

// Err returns the fatal error that halted the CPU, if any.
func (cpu *Cpu) Err() error {
	return cpu.lastError
}

// LoadProgram loads the program into memory and resets the CPU.
// Nothing changes if the program does not fit.
func (cpu *Cpu) LoadProgram(program []byte) error {
	if err := cpu.Memory.LoadProgram(program); err != nil {
		return err
	}
	cpu.Reset()

	return nil
}

// Reset restarts the loaded program: every register, the stack, the timers
// and the screen are cleared. Memory is left untouched.
func (cpu *Cpu) Reset() {
	cpu.V = [16]byte{}
	cpu.I = 0
	cpu.Dt = 0
	cpu.St = 0
	cpu.Pc = StartOfProgram
	cpu.Sp = 0
	cpu.Stack = [StackSize]uint16{}
	cpu.Opcode = 0
	cpu.lastError = nil

	cpu.clearScreen()
}

// Cycle fetches, decodes and executes a single instruction.
// A fatal error halts the CPU: every following call returns the same error
// until the CPU is reset.
func (cpu *Cpu) Cycle() error {
	if cpu.lastError != nil {
		return cpu.lastError
	}

	cpu.Opcode = uint16(cpu.Memory[cpu.Pc&addressMask]) << 8
	cpu.Opcode |= uint16(cpu.Memory[(cpu.Pc+1)&addressMask]) << 0
	cpu.Pc += 2

	if err := cpu.executeInstruction(cpu.Opcode); err != nil {
		cpu.lastError = err
		return err
	}

	return nil
}

// TickTimers decays both timers by one 60 Hz tick.
func (cpu *Cpu) TickTimers() {
	if cpu.Dt > 0 {
		cpu.Dt--
	}
	if cpu.St > 0 {
		cpu.St--
	}
}

// Screen returns a copy of the framebuffer.
func (cpu *Cpu) Screen() Screen {
	return cpu.screen.Clone()
}

// IsScreenDirty reports whether the framebuffer changed since the last
// TakeFrame.
func (cpu *Cpu) IsScreenDirty() bool {
	return cpu.isScreenDirty
}

// TakeFrame returns a copy of the framebuffer and whether it changed since
// the previous call. The dirty flag is cleared.
func (cpu *Cpu) TakeFrame() (Screen, bool) {
	dirty := cpu.isScreenDirty
	cpu.isScreenDirty = false

	return cpu.screen.Clone(), dirty
}

func (cpu *Cpu) fail(opCode uint16, err error) error {
	return &ExecutionError{
		OpCode: opCode,
		Pc:     cpu.Pc - 2,
		Err:    err,
	}
}

func (cpu *Cpu) unknown(opCode uint16) error {
	return ErrOpCodeUnknown{
		OpCode: opCode,
		Pc:     cpu.Pc - 2,
	}
}

func bool2byte(b bool) byte {
	if b {
		return 1
	}

	return 0
}
