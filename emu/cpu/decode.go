package cpu

// Instruction is one 16-bit opcode split into the nibbles the executor
// switches on.
type Instruction uint16

// Decode joins the two bytes of an instruction, high byte first.
func Decode(hi, lo uint8) Instruction {
	return Instruction(uint16(hi)<<8 | uint16(lo))
}

// Class is the top nibble, it selects the opcode family.
func (in Instruction) Class() uint8 { return uint8(in >> 12) }

func (in Instruction) X() uint8 { return uint8(in>>8) & 0xF }

func (in Instruction) Y() uint8 { return uint8(in>>4) & 0xF }

func (in Instruction) N() uint8 { return uint8(in) & 0xF }

func (in Instruction) KK() uint8 { return uint8(in) }

func (in Instruction) Addr() uint16 { return uint16(in) & 0x0FFF }
