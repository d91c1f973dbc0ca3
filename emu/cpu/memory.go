package cpu

const (
	MemorySize  = 4096
	AddressMask = MemorySize - 1

	// ProgramStart is where a ROM image is copied to and where pc starts.
	ProgramStart = 0x200
	maxRomSize   = MemorySize - ProgramStart

	glyphSize  = 5
	glyphCount = 16

	stackDepth = 16
)

var FontSet = [glyphCount * glyphSize]uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory is the flat 4K address space. Every accessor masks the address so
// reads and writes past 0xFFF wrap around instead of escaping the array.
type Memory [MemorySize]uint8

func (m *Memory) Read(addr uint16) uint8 {
	return m[addr&AddressMask]
}

func (m *Memory) Write(addr uint16, v uint8) {
	m[addr&AddressMask] = v
}

// Word reads the big-endian instruction word at addr.
func (m *Memory) Word(addr uint16) uint16 {
	return uint16(m.Read(addr))<<8 | uint16(m.Read(addr+1))
}

func (m *Memory) loadFont() {
	copy(m[:], FontSet[:])
}

// GlyphAddress returns where the built-in sprite for the hex digit d starts.
func GlyphAddress(d uint8) uint16 {
	return uint16(d&0xF) * glyphSize
}
