package chip8_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/guslan/chip8"
)

func runNCycles(cpu *chip8.Cpu, program []byte, n int) error {
	if err := cpu.LoadProgram(program); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if err := cpu.Cycle(); err != nil {
			return err
		}
	}

	return nil
}

func mustRunNCycles(t *testing.T, cpu *chip8.Cpu, program []byte, n int) {
	t.Helper()
	if err := runNCycles(cpu, program, n); err != nil {
		t.Fatalf(`Cycle() returned an error %v`, err)
	}
}

func assertVxEq(t *testing.T, msg string, cpu *chip8.Cpu, x, kk byte) {
	t.Helper()
	if cpu.V[x] != kk {
		t.Fatalf(`%s: cpu.V[%X] = %X, expected %X`, msg, x, cpu.V[x], kk)
	}
}

func assertPcEq(t *testing.T, msg string, cpu *chip8.Cpu, pc uint16) {
	t.Helper()
	if cpu.Pc != pc {
		t.Fatalf(`%s: cpu.Pc = %03X, expected %03X`, msg, cpu.Pc, pc)
	}
}

func TestNewCpu(t *testing.T) {
	cpu := chip8.NewCpu()

	assertPcEq(t, "entry point", cpu, chip8.StartOfProgram)
	if cpu.Sp != 0 || cpu.I != 0 || cpu.Dt != 0 || cpu.St != 0 {
		t.Fatalf(`expected cleared registers, got Sp=%d I=%d Dt=%d St=%d`, cpu.Sp, cpu.I, cpu.Dt, cpu.St)
	}
	if cpu.V != [16]byte{} {
		t.Fatalf(`cpu.V = %v, expected all zeroes`, cpu.V)
	}
	if !cpu.Screen().IsBlank() {
		t.Fatalf(`expected a blank screen`)
	}
	if len(cpu.Screen()) != 64*32 {
		t.Fatalf(`len(screen) = %d, expected %d`, len(cpu.Screen()), 64*32)
	}

	zero := []byte{0xF0, 0x90, 0x90, 0x90, 0xF0}
	if !bytes.Equal(cpu.Memory[chip8.FontsetAddress:chip8.FontsetAddress+5], zero) {
		t.Fatalf(`glyph 0 = %X, expected %X`, cpu.Memory[chip8.FontsetAddress:chip8.FontsetAddress+5], zero)
	}
}

// TestProgramLoading loads a program that runs off the end of memory
func TestProgramLoading(t *testing.T) {
	cpu := chip8.NewCpu()

	program := []byte{
		// move to the last address
		0x1F, 0xFE,
	}
	mustRunNCycles(t, cpu, program, 1)
	assertPcEq(t, "jump", cpu, 0xFFE)

	cpu.Memory[0xFFE] = 0x60
	if err := cpu.Cycle(); err != nil {
		t.Fatalf(`Cycle() returned an error %v`, err)
	}
	assertPcEq(t, "past the end", cpu, chip8.MemorySize)
}

func TestLoadProgramOutOfBounds(t *testing.T) {
	cpu := chip8.NewCpu()
	cpu.V[3] = 7

	err := cpu.LoadProgram(make([]byte, chip8.MaxProgramSize+1))
	if !errors.Is(err, chip8.ErrOutOfBounds) {
		t.Fatalf(`LoadProgram() = %v, expected ErrOutOfBounds`, err)
	}
	assertVxEq(t, "state untouched", cpu, 3, 7)

	if err := cpu.LoadProgram(make([]byte, chip8.MaxProgramSize)); err != nil {
		t.Fatalf(`LoadProgram() of a program filling memory returned %v`, err)
	}
}

func TestLoadProgramResets(t *testing.T) {
	cpu := chip8.NewCpu()
	mustRunNCycles(t, cpu, []byte{0x63, 0x09, 0x22, 0x00}, 2)
	if cpu.Sp != 1 {
		t.Fatalf(`cpu.Sp = %d, expected 1`, cpu.Sp)
	}

	if err := cpu.LoadProgram([]byte{0x00, 0xE0}); err != nil {
		t.Fatal(err)
	}
	assertVxEq(t, "registers cleared", cpu, 3, 0)
	assertPcEq(t, "entry point", cpu, chip8.StartOfProgram)
	if cpu.Sp != 0 {
		t.Fatalf(`cpu.Sp = %d, expected 0`, cpu.Sp)
	}
	if cpu.Memory[0x202] != 0 || cpu.Memory[0x203] != 0 {
		t.Fatalf(`leftovers of the previous program at 0x202: %X %X`, cpu.Memory[0x202], cpu.Memory[0x203])
	}
}

// TestConstantSetInstructions
func TestConstantSetInstructions(t *testing.T) {
	cpu := chip8.NewCpu()

	program := []byte{
		// set v0 to 128
		0x60, 128,
		// set v1 to 16
		0x61, 16,
		// set v2 to 1
		0x62, 1,
		// add to v2 4
		0x72, 4,
	}
	mustRunNCycles(t, cpu, program, 4)

	assertVxEq(t, "LD V0", cpu, 0x0, 128)
	assertVxEq(t, "LD V1", cpu, 0x1, 16)
	assertVxEq(t, "ADD V2", cpu, 0x2, 5)
	assertPcEq(t, "4 instructions", cpu, chip8.StartOfProgram+8)
}

func TestLoadByteEveryRegister(t *testing.T) {
	for x := byte(0); x < 16; x++ {
		for _, kk := range []byte{0x00, 0x01, 0x7F, 0x80, 0xFF} {
			cpu := chip8.NewCpu()
			mustRunNCycles(t, cpu, []byte{0x60 | x, kk}, 1)

			assertVxEq(t, "6xkk", cpu, x, kk)
			assertPcEq(t, "6xkk", cpu, chip8.StartOfProgram+2)
		}
	}
}

// TestSimpleSkips
func TestSimpleSkips(t *testing.T) {
	cpu := chip8.NewCpu()

	program := []byte{
		// set v0 to 128
		0x60, 128,
		// set v1 to 16
		0x61, 16,
		// set v2 to 128
		0x62, 128,

		// if v0 == 128, do not set v3 to 1
		0x30, 128,
		0x63, 1,

		// if v0 == 16, do not set vA to 1
		0x30, 16,
		0x6A, 1,

		// if v0 != 128, do not set v4 to 1
		0x40, 128,
		0x64, 1,

		// if v0 != 16, do not set vB to 1
		0x40, 16,
		0x6B, 1,

		// if v0 == v1, do not set v5 to 1
		0x50, 0x10,
		0x65, 1,

		// if v0 == v2, do not set v6 to 1
		0x50, 0x20,
		0x66, 1,

		// if v0 != v1, do not set v7 to 1
		0x90, 0x10,
		0x67, 1,

		// if v0 != v2, do not set v8 to 1
		0x90, 0x20,
		0x68, 1,
	}
	mustRunNCycles(t, cpu, program, 15)

	assertVxEq(t, "SE Vx kk true", cpu, 0x3, 0x0)
	assertVxEq(t, "SE Vx kk false", cpu, 0xA, 0x1)
	assertVxEq(t, "SNE Vx kk true", cpu, 0xB, 0x0)
	assertVxEq(t, "SNE Vx kk false", cpu, 0x4, 0x1)
	assertVxEq(t, "SE Vx Vy true", cpu, 0x6, 0x0)
	assertVxEq(t, "SE Vx Vy false", cpu, 0x5, 0x1)
	assertVxEq(t, "SNE Vx Vy true", cpu, 0x7, 0x0)
	assertVxEq(t, "SNE Vx Vy false", cpu, 0x8, 0x1)
}

func TestCallAndReturn(t *testing.T) {
	cpu := chip8.NewCpu()

	program := []byte{
		// 0x200: call 0x206
		0x22, 0x06,
		// 0x202: set v1 to 1
		0x61, 1,
		// 0x204: padding
		0x00, 0x00,
		// 0x206: return
		0x00, 0xEE,
	}
	mustRunNCycles(t, cpu, program, 1)
	assertPcEq(t, "CALL", cpu, 0x206)
	if cpu.Sp != 1 || cpu.Stack[0] != 0x202 {
		t.Fatalf(`cpu.Sp = %d, cpu.Stack[0] = %03X, expected 1 and 202`, cpu.Sp, cpu.Stack[0])
	}

	if err := cpu.Cycle(); err != nil {
		t.Fatal(err)
	}
	assertPcEq(t, "RET", cpu, 0x202)
	if cpu.Sp != 0 {
		t.Fatalf(`cpu.Sp = %d, expected 0`, cpu.Sp)
	}
}

func TestStackUnderflow(t *testing.T) {
	cpu := chip8.NewCpu()

	err := runNCycles(cpu, []byte{0x00, 0xEE}, 1)
	if !errors.Is(err, chip8.ErrStackUnderflow) {
		t.Fatalf(`Cycle() = %v, expected ErrStackUnderflow`, err)
	}

	var execErr *chip8.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf(`Cycle() = %T, expected *ExecutionError`, err)
	}
	if execErr.Pc != chip8.StartOfProgram || execErr.OpCode != 0x00EE {
		t.Fatalf(`diagnostic = %03X/%04X, expected 200/00EE`, execErr.Pc, execErr.OpCode)
	}
}

func TestStackOverflow(t *testing.T) {
	cpu := chip8.NewCpu()

	// a subroutine at 0x200 calling itself
	program := []byte{0x22, 0x00}
	err := runNCycles(cpu, program, chip8.StackSize)
	if err != nil {
		t.Fatalf(`%d nested calls returned an error %v`, chip8.StackSize, err)
	}

	err = cpu.Cycle()
	if !errors.Is(err, chip8.ErrStackOverflow) {
		t.Fatalf(`Cycle() = %v, expected ErrStackOverflow`, err)
	}
	if cpu.Sp != chip8.StackSize {
		t.Fatalf(`cpu.Sp = %d, expected %d`, cpu.Sp, chip8.StackSize)
	}
}

func TestUnknownOpCodeHaltsTheCpu(t *testing.T) {
	unknown := []uint16{0x0000, 0x0123, 0x8008, 0x800F, 0xE0FF, 0xF0FF}

	for _, opCode := range unknown {
		cpu := chip8.NewCpu()
		program := []byte{0x61, 0x01, byte(opCode >> 8), byte(opCode)}

		err := runNCycles(cpu, program, 2)
		var unknownErr chip8.ErrOpCodeUnknown
		if !errors.As(err, &unknownErr) {
			t.Fatalf(`opcode %04X: Cycle() = %v, expected ErrOpCodeUnknown`, opCode, err)
		}
		if unknownErr.OpCode != opCode || unknownErr.Pc != 0x202 {
			t.Fatalf(`opcode %04X: diagnostic %04X at %03X`, opCode, unknownErr.OpCode, unknownErr.Pc)
		}

		// halted
		pc := cpu.Pc
		if err2 := cpu.Cycle(); err2 != err {
			t.Fatalf(`opcode %04X: second Cycle() = %v, expected %v`, opCode, err2, err)
		}
		assertPcEq(t, "halted", cpu, pc)
		if cpu.Err() != err {
			t.Fatalf(`cpu.Err() = %v, expected %v`, cpu.Err(), err)
		}

		cpu.Reset()
		if cpu.Err() != nil {
			t.Fatalf(`cpu.Err() = %v after Reset, expected nil`, cpu.Err())
		}
	}
}

func TestTickTimers(t *testing.T) {
	cpu := chip8.NewCpu()

	cpu.TickTimers()
	if cpu.Dt != 0 || cpu.St != 0 {
		t.Fatalf(`timers underflowed: Dt=%d St=%d`, cpu.Dt, cpu.St)
	}

	// set DT to 2 and ST to 1
	mustRunNCycles(t, cpu, []byte{0x60, 2, 0x61, 1, 0xF0, 0x15, 0xF1, 0x18}, 4)
	if !cpu.IsDelayTimerActive() || !cpu.IsSoundTimerActive() {
		t.Fatalf(`expected both timers to be active`)
	}

	// cycles do not decay the timers
	if cpu.Dt != 2 || cpu.St != 1 {
		t.Fatalf(`Dt=%d St=%d, expected 2 and 1`, cpu.Dt, cpu.St)
	}

	cpu.TickTimers()
	if cpu.Dt != 1 || cpu.St != 0 {
		t.Fatalf(`Dt=%d St=%d, expected 1 and 0`, cpu.Dt, cpu.St)
	}

	cpu.TickTimers()
	cpu.TickTimers()
	if cpu.Dt != 0 || cpu.St != 0 {
		t.Fatalf(`Dt=%d St=%d, expected 0 and 0`, cpu.Dt, cpu.St)
	}
}

func TestRandomUsesTheSource(t *testing.T) {
	cpu := chip8.NewCpu(func(config *chip8.CpuConfig) {
		config.Random = bytes.NewReader([]byte{0xAB, 0xFF})
	})

	mustRunNCycles(t, cpu, []byte{0xC0, 0x0F, 0xC1, 0xF0, 0xC2, 0xFF}, 2)
	assertVxEq(t, "RND masked", cpu, 0x0, 0x0B)
	assertVxEq(t, "RND masked", cpu, 0x1, 0xF0)

	err := cpu.Cycle()
	if !errors.Is(err, io.EOF) {
		t.Fatalf(`Cycle() = %v, expected io.EOF once the random source is exhausted`, err)
	}
}

func TestTakeFrame(t *testing.T) {
	cpu := chip8.NewCpu()
	if _, dirty := cpu.TakeFrame(); dirty {
		t.Fatalf(`new CPU reported a dirty screen`)
	}

	// draw glyph 0 at 0,0
	mustRunNCycles(t, cpu, []byte{0xA0, 0x50, 0xD0, 0x05}, 2)
	if !cpu.IsScreenDirty() {
		t.Fatalf(`expected a dirty screen after drawing`)
	}

	screen, dirty := cpu.TakeFrame()
	if !dirty {
		t.Fatalf(`TakeFrame() reported a clean screen after drawing`)
	}
	if screen.Pixel(cpu.ScreenSettings, 0, 0) != 1 {
		t.Fatalf(`pixel 0,0 is off`)
	}
	if cpu.IsScreenDirty() {
		t.Fatalf(`TakeFrame() did not clear the dirty flag`)
	}

	// the snapshot is a copy
	screen[0] = 0
	if cpu.Screen().Pixel(cpu.ScreenSettings, 0, 0) != 1 {
		t.Fatalf(`modifying the snapshot changed the framebuffer`)
	}
}
