package cpu

// VF is the flag register written by arithmetic and draw instructions.
const VF = 0xF

// execute performs one instruction. pc still points at the instruction when
// it is called; every handler decides how far to move it.
func (emu *EMU) execute(op Instruction) error {
	x, y := op.X(), op.Y()
	kk := op.KK()

	switch op.Class() {
	case 0x0:
		switch op {
		case 0x00E0:
			emu.display.Clear()
			emu.updateScreen = true
			emu.next()
		case 0x00EE:
			if emu.sp == 0 {
				return &StackError{PC: emu.pc, Depth: emu.sp, Err: ErrStackUnderflow}
			}
			emu.sp--
			emu.pc = emu.stack[emu.sp]
		default:
			return emu.opCodeError(op)
		}

	case 0x1:
		emu.pc = op.Addr()

	case 0x2:
		if emu.sp == len(emu.stack) {
			return &StackError{PC: emu.pc, Depth: emu.sp, Err: ErrStackOverflow}
		}
		emu.stack[emu.sp] = (emu.pc + 2) & AddressMask
		emu.sp++
		emu.pc = op.Addr()

	case 0x3:
		emu.skipIf(emu.V[x] == kk)

	case 0x4:
		emu.skipIf(emu.V[x] != kk)

	case 0x5:
		if op.N() != 0 {
			return emu.opCodeError(op)
		}
		emu.skipIf(emu.V[x] == emu.V[y])

	case 0x6:
		emu.V[x] = kk
		emu.next()

	case 0x7:
		emu.V[x] += kk
		emu.next()

	case 0x8:
		if err := emu.arithmetic(op); err != nil {
			return err
		}
		emu.next()

	case 0x9:
		if op.N() != 0 {
			return emu.opCodeError(op)
		}
		emu.skipIf(emu.V[x] != emu.V[y])

	case 0xA:
		emu.I = op.Addr()
		emu.next()

	case 0xB:
		emu.pc = (uint16(emu.V[0]) + op.Addr()) & AddressMask

	case 0xC:
		emu.V[x] = uint8(emu.rng.Intn(256)) & kk
		emu.next()

	case 0xD:
		emu.draw(emu.V[x], emu.V[y], op.N())
		emu.next()

	case 0xE:
		pressed := emu.keyState[emu.V[x]&0xF]
		switch kk {
		case 0x9E:
			emu.skipIf(pressed)
		case 0xA1:
			emu.skipIf(!pressed)
		default:
			return emu.opCodeError(op)
		}

	case 0xF:
		return emu.misc(op)

	default:
		return emu.opCodeError(op)
	}
	return nil
}

// arithmetic handles the 8xyN register-to-register family. Results are
// computed from the operands as they were before the instruction, the flag is
// written last.
func (emu *EMU) arithmetic(op Instruction) error {
	x, y := op.X(), op.Y()
	vx, vy := emu.V[x], emu.V[y]

	switch op.N() {
	case 0x0:
		emu.V[x] = vy
	case 0x1:
		emu.V[x] = vx | vy
	case 0x2:
		emu.V[x] = vx & vy
	case 0x3:
		emu.V[x] = vx ^ vy
	case 0x4:
		sum := uint16(vx) + uint16(vy)
		emu.V[x] = uint8(sum)
		emu.V[VF] = flag(sum > 0xFF)
	case 0x5:
		emu.V[x] = vx - vy
		emu.V[VF] = flag(vx >= vy)
	case 0x6:
		emu.V[x] = vx >> 1
		emu.V[VF] = vx & 1
	case 0x7:
		emu.V[x] = vy - vx
		emu.V[VF] = flag(vy >= vx)
	case 0xE:
		emu.V[x] = vx << 1
		emu.V[VF] = vx >> 7
	default:
		return emu.opCodeError(op)
	}
	return nil
}

// misc handles the Fxkk family.
func (emu *EMU) misc(op Instruction) error {
	x := op.X()

	switch op.KK() {
	case 0x07:
		emu.V[x] = emu.delayTimer
	case 0x0A:
		key, ok := emu.firstKey()
		if !ok {
			// pc stays put, the instruction runs again next cycle
			return nil
		}
		emu.V[x] = key
	case 0x15:
		emu.delayTimer = emu.V[x]
	case 0x18:
		emu.soundTimer = emu.V[x]
	case 0x1E:
		emu.I += uint16(emu.V[x])
	case 0x29:
		emu.I = GlyphAddress(emu.V[x])
	case 0x33:
		v := emu.V[x]
		emu.memory.Write(emu.I, v/100)
		emu.memory.Write(emu.I+1, v/10%10)
		emu.memory.Write(emu.I+2, v%10)
	case 0x55:
		for i := uint16(0); i <= uint16(x); i++ {
			emu.memory.Write(emu.I+i, emu.V[i])
		}
	case 0x65:
		for i := uint16(0); i <= uint16(x); i++ {
			emu.V[i] = emu.memory.Read(emu.I + i)
		}
	default:
		return emu.opCodeError(op)
	}
	emu.next()
	return nil
}

// draw XORs an n-row sprite from memory[I] onto the display at (vx, vy).
// Coordinates wrap around both edges. VF reports whether any lit pixel was
// switched off.
func (emu *EMU) draw(vx, vy, n uint8) {
	x0 := int(vx) % Width
	y0 := int(vy) % Height
	collision := false

	for row := 0; row < int(n); row++ {
		bits := emu.memory.Read(emu.I + uint16(row))
		y := (y0 + row) % Height
		for col := 0; col < 8; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}
			x := (x0 + col) % Width
			if emu.display.flip(x, y) {
				collision = true
			}
		}
	}

	emu.V[VF] = flag(collision)
	emu.updateScreen = true
}

func (emu *EMU) firstKey() (uint8, bool) {
	for k, down := range emu.keyState {
		if down {
			return uint8(k), true
		}
	}
	return 0, false
}

func (emu *EMU) next() {
	emu.pc = (emu.pc + 2) & AddressMask
}

func (emu *EMU) skipIf(cond bool) {
	if cond {
		emu.next()
	}
	emu.next()
}

func (emu *EMU) opCodeError(op Instruction) error {
	return &DecodeError{PC: emu.pc, Opcode: uint16(op)}
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
