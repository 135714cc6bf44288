package chip8

import "io"

func (cpu *Cpu) executeInstruction(opCode uint16) error {
	x := (opCode & 0x0F00) >> 8
	y := (opCode & 0x00F0) >> 4
	n := byte(opCode & 0x000F)
	kk := byte(opCode & 0x00FF)
	nnn := opCode & 0x0FFF

	switch opCode & 0xF000 {
	case 0x0000:
		switch opCode {
		case 0x00E0:
			// CLS :: Clear the display.
			cpu.clearScreen()

		case 0x00EE:
			// RET :: Return from a subroutine.
			if cpu.Sp == 0 {
				return cpu.fail(opCode, ErrStackUnderflow)
			}
			cpu.Sp--
			cpu.Pc = cpu.Stack[cpu.Sp]

		default:
			// SYS addr is a call into the host machine code; there is none here.
			return cpu.unknown(opCode)
		}

	case 0x1000:
		// JP addr :: Jump to location nnn.
		cpu.Pc = nnn

	case 0x2000:
		// CALL addr :: Call subroutine at nnn.
		if cpu.Sp >= StackSize {
			return cpu.fail(opCode, ErrStackOverflow)
		}
		cpu.Stack[cpu.Sp] = cpu.Pc
		cpu.Sp++

		cpu.Pc = nnn

	case 0x3000:
		// SE Vx, byte :: Skip next instruction if Vx = kk.
		if cpu.V[x] == kk {
			cpu.Pc += 2
		}

	case 0x4000:
		// SNE Vx, byte :: Skip next instruction if Vx != kk.
		if cpu.V[x] != kk {
			cpu.Pc += 2
		}

	case 0x5000:
		// SE Vx, Vy :: Skip next instruction if Vx = Vy.
		if cpu.V[x] == cpu.V[y] {
			cpu.Pc += 2
		}

	case 0x6000:
		// LD Vx, byte :: Set Vx = kk.
		cpu.V[x] = kk

	case 0x7000:
		// ADD Vx, byte :: Set Vx = Vx + kk.
		cpu.V[x] = cpu.V[x] + kk

	case 0x8000:
		// Inter-register operations
		// VF is always written last since x or y may be F.

		switch n {
		case 0x0:
			// LD Vx, Vy :: Set Vx = Vy.
			cpu.V[x] = cpu.V[y]

		case 0x1:
			// OR Vx, Vy :: Set Vx = Vx OR Vy.
			cpu.V[x] |= cpu.V[y]

		case 0x2:
			// AND Vx, Vy :: Set Vx = Vx AND Vy.
			cpu.V[x] &= cpu.V[y]

		case 0x3:
			// XOR Vx, Vy :: Set Vx = Vx XOR Vy.
			cpu.V[x] ^= cpu.V[y]

		case 0x4:
			// ADD Vx, Vy :: Set Vx = Vx + Vy, set VF = carry.
			r := uint16(cpu.V[x]) + uint16(cpu.V[y])
			cpu.V[x] = byte(r & 0x00FF)
			cpu.V[0xF] = byte(r >> 8)

		case 0x5:
			// SUB Vx, Vy :: Set Vx = Vx - Vy, set VF = NOT borrow.
			carry := cpu.V[x] >= cpu.V[y]
			cpu.V[x] = cpu.V[x] - cpu.V[y]
			cpu.V[0xF] = bool2byte(carry)

		case 0x6:
			// SHR Vx {, Vy} :: Set Vx = Vx SHR 1.
			src := cpu.V[x]
			if cpu.HasQuirk(QuirkShiftUsesVy) {
				src = cpu.V[y]
			}
			carry := src & 0b00000001
			cpu.V[x] = src >> 1
			cpu.V[0xF] = carry

		case 0x7:
			// SUBN Vx, Vy :: Set Vx = Vy - Vx, set VF = NOT borrow.
			carry := cpu.V[y] >= cpu.V[x]
			cpu.V[x] = cpu.V[y] - cpu.V[x]
			cpu.V[0xF] = bool2byte(carry)

		case 0xE:
			// SHL Vx {, Vy} :: Set Vx = Vx SHL 1.
			src := cpu.V[x]
			if cpu.HasQuirk(QuirkShiftUsesVy) {
				src = cpu.V[y]
			}
			carry := (src & 0b10000000) >> 7
			cpu.V[x] = src << 1
			cpu.V[0xF] = carry

		default:
			return cpu.unknown(opCode)
		}

	case 0x9000:
		// SNE Vx, Vy :: Skip next instruction if Vx != Vy.
		if cpu.V[x] != cpu.V[y] {
			cpu.Pc += 2
		}

	case 0xA000:
		// LD I, addr :: Set I = nnn.
		cpu.I = nnn

	case 0xB000:
		// JP V0, addr :: Jump to location nnn + V0.
		cpu.Pc = uint16(cpu.V[0]) + nnn

	case 0xC000:
		// RND Vx, byte :: Set Vx = random byte AND kk.
		buff := [1]byte{}
		if _, err := io.ReadFull(cpu.random, buff[:]); err != nil {
			return cpu.fail(opCode, err)
		}

		cpu.V[x] = buff[0] & kk

	case 0xD000:
		// DRW Vx, Vy, nibble :: Display n-byte sprite starting at memory location I at (Vx, Vy), set VF = collision.
		// Sprites are XORed onto the existing screen and wrap around its edges.
		rows := make([]byte, n)
		for i := range rows {
			rows[i] = cpu.Memory[(cpu.I+uint16(i))&addressMask]
		}
		cpu.V[0xF] = bool2byte(cpu.drawSprite(cpu.V[x], cpu.V[y], rows))

	case 0xE000:
		// Skip if ...
		k := cpu.V[x] & 0x0F

		switch kk {
		case 0x9E:
			// SKP Vx :: Skip next instruction if key with the value of Vx is pressed.
			if cpu.Keyboard.IsPressed(k) {
				cpu.Pc += 2
			}
		case 0xA1:
			// SKNP Vx :: Skip next instruction if key with the value of Vx is not pressed.
			if !cpu.Keyboard.IsPressed(k) {
				cpu.Pc += 2
			}
		default:
			return cpu.unknown(opCode)
		}

		if cpu.HasQuirk(QuirkKeyRelease) {
			cpu.Keyboard.Release(k)
		}

	case 0xF000:
		// other operations

		switch kk {
		case 0x07:
			// LD Vx, DT :: Set Vx = delay timer value.
			cpu.V[x] = cpu.Dt
		case 0x0A:
			// LD Vx, K :: Wait for a key press, store the value of the key in Vx.
			// Without a key the instruction is fetched again on the next cycle.
			if k, pressed := cpu.Keyboard.State().FirstPressed(); pressed {
				cpu.V[x] = k
			} else {
				cpu.Pc -= 2
			}
		case 0x15:
			// LD DT, Vx :: Set delay timer = Vx.
			cpu.Dt = cpu.V[x]
		case 0x18:
			// LD ST, Vx :: Set sound timer = Vx.
			cpu.St = cpu.V[x]
		case 0x1E:
			// ADD I, Vx :: Set I = I + Vx.
			cpu.I = (cpu.I + uint16(cpu.V[x])) & addressMask
		case 0x29:
			// LD F, Vx :: Set I = location of sprite for digit Vx.
			cpu.I = GlyphAddress(cpu.V[x])
		case 0x33:
			// LD B, Vx :: Store BCD representation of Vx in memory locations I, I+1, and I+2.
			v := cpu.V[x]
			cpu.Memory[(cpu.I+0)&addressMask] = v / 100
			cpu.Memory[(cpu.I+1)&addressMask] = (v / 10) % 10
			cpu.Memory[(cpu.I+2)&addressMask] = v % 10
		case 0x55:
			// LD [I], Vx :: Store registers V0 through Vx in memory starting at location I.
			for i := uint16(0); i <= x; i++ {
				cpu.Memory[(cpu.I+i)&addressMask] = cpu.V[i]
			}
		case 0x65:
			// LD Vx, [I] :: Read registers V0 through Vx from memory starting at location I.
			for i := uint16(0); i <= x; i++ {
				cpu.V[i] = cpu.Memory[(cpu.I+i)&addressMask]
			}
		default:
			return cpu.unknown(opCode)
		}
	}

	return nil
}
