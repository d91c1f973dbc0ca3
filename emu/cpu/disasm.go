package cpu

import (
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// Mnemonic formats an instruction in the usual Cowgod assembly syntax.
// Words that do not decode are shown as a data directive.
func Mnemonic(op Instruction) string {
	entry, ok := lookup(op)
	if !ok {
		return fmt.Sprintf("dw $%04X", uint16(op))
	}

	name := entry.Instruction.Name
	if args := operands(entry.Info, op); args != "" {
		return name + " " + args
	}
	return name
}

// lookup finds the opcode table entry whose masked value matches the word.
func lookup(op Instruction) (chip8.Opcode, bool) {
	w := uint16(op)
	for _, entry := range chip8.Opcodes[op.Class()] {
		if entry.Info.Mask&w == entry.Info.Value {
			return entry, true
		}
	}
	return chip8.Opcode{}, false
}

func operands(info chip8.OpcodeInfo, op Instruction) string {
	x, y := op.X(), op.Y()

	switch info {
	case chip8.Opcode1000, chip8.Opcode2000:
		return fmt.Sprintf("$%03X", op.Addr())
	case chip8.OpcodeB000:
		return fmt.Sprintf("V0, $%03X", op.Addr())
	case chip8.OpcodeA000:
		return fmt.Sprintf("I, $%03X", op.Addr())
	case chip8.Opcode3000, chip8.Opcode4000, chip8.Opcode6000, chip8.Opcode7000, chip8.OpcodeC000:
		return fmt.Sprintf("V%X, $%02X", x, op.KK())
	case chip8.Opcode5000, chip8.Opcode9000,
		chip8.Opcode8000, chip8.Opcode8001, chip8.Opcode8002, chip8.Opcode8003,
		chip8.Opcode8004, chip8.Opcode8005, chip8.Opcode8007:
		return fmt.Sprintf("V%X, V%X", x, y)
	case chip8.Opcode8006, chip8.Opcode800E, chip8.OpcodeE09E, chip8.OpcodeE0A1:
		return fmt.Sprintf("V%X", x)
	case chip8.OpcodeD000:
		return fmt.Sprintf("V%X, V%X, $%X", x, y, op.N())
	case chip8.OpcodeF007:
		return fmt.Sprintf("V%X, DT", x)
	case chip8.OpcodeF00A:
		return fmt.Sprintf("V%X, K", x)
	case chip8.OpcodeF015:
		return fmt.Sprintf("DT, V%X", x)
	case chip8.OpcodeF018:
		return fmt.Sprintf("ST, V%X", x)
	case chip8.OpcodeF01E:
		return fmt.Sprintf("I, V%X", x)
	case chip8.OpcodeF029:
		return fmt.Sprintf("F, V%X", x)
	case chip8.OpcodeF033:
		return fmt.Sprintf("B, V%X", x)
	case chip8.OpcodeF055:
		return fmt.Sprintf("[I], V%X", x)
	case chip8.OpcodeF065:
		return fmt.Sprintf("V%X, [I]", x)
	}
	// cls, ret
	return ""
}

// Line is one row of a listing.
type Line struct {
	Address uint16
	Op      Instruction
	Text    string
}

func (l Line) String() string {
	return fmt.Sprintf("%03X  %04X  %s", l.Address, uint16(l.Op), l.Text)
}

// Disassemble walks a program image two bytes at a time as if it was loaded
// at 0x200. A trailing odd byte is listed as a single data byte.
func Disassemble(rom []uint8) []Line {
	lines := make([]Line, 0, len(rom)/2+1)
	for i := 0; i+1 < len(rom); i += 2 {
		op := Decode(rom[i], rom[i+1])
		lines = append(lines, Line{
			Address: uint16(ProgramStart + i),
			Op:      op,
			Text:    Mnemonic(op),
		})
	}
	if len(rom)%2 == 1 {
		last := len(rom) - 1
		lines = append(lines, Line{
			Address: uint16(ProgramStart + last),
			Op:      Instruction(rom[last]),
			Text:    fmt.Sprintf("db $%02X", rom[last]),
		})
	}
	return lines
}
