package cpu

import (
	"fmt"
	"math/rand"
	"os"
	"time"
)

type EMU struct {
	opcode       Instruction //last fetched instruction
	memory       Memory
	V            [16]uint8
	I            uint16 //address register
	pc           uint16
	display      Framebuffer
	delayTimer   uint8 //counts down at 60Hz
	soundTimer   uint8 //same as above
	stack        [stackDepth]uint16
	sp           int
	keyState     [16]bool //tells whether key is pressed or not
	updateScreen bool     //framebuffer changed since the last Frame call
	halted       bool
	romSize      int
	cycles       uint64
	rng          *rand.Rand
}

// Option configures an EMU on creation.
type Option func(*EMU)

// WithSeed makes Cxkk deterministic.
func WithSeed(seed int64) Option {
	return func(emu *EMU) {
		emu.rng = rand.New(rand.NewSource(seed))
	}
}

// New returns a powered-on machine with the font installed and no program.
func New(opts ...Option) *EMU {
	emu := &EMU{
		pc:  ProgramStart,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(emu)
	}
	emu.memory.loadFont()
	return emu
}

// Reset restores the power-on state but keeps the loaded program.
func (emu *EMU) Reset() {
	rom := make([]uint8, emu.romSize)
	copy(rom, emu.memory[ProgramStart:ProgramStart+emu.romSize])

	rng := emu.rng
	*emu = EMU{
		pc:  ProgramStart,
		rng: rng,
	}
	emu.memory.loadFont()
	emu.romSize = copy(emu.memory[ProgramStart:], rom)
}

// LoadROM reads a program image from disk and copies it to 0x200. It
// returns how many bytes were placed in memory and whether the file had to be
// truncated to fit.
func (emu *EMU) LoadROM(filename string) (int, bool, error) {
	rom, err := os.ReadFile(filename)
	if err != nil {
		return 0, false, fmt.Errorf("reading rom: %w", err)
	}
	return emu.Load(rom)
}

// Load copies a program image to 0x200. Images longer than the program area
// are truncated; bytes after the image are left alone.
func (emu *EMU) Load(rom []uint8) (int, bool, error) {
	if len(rom) == 0 {
		return 0, false, ErrEmptyProgram
	}
	truncated := len(rom) > maxRomSize
	n := copy(emu.memory[ProgramStart:], rom)
	if n > emu.romSize {
		emu.romSize = n
	}
	return n, truncated, nil
}

// EmulateCycle runs a single fetch-decode-execute step. Any error halts the
// machine; after that every call returns ErrHalted.
func (emu *EMU) EmulateCycle() error {
	if emu.halted {
		return ErrHalted
	}

	emu.opcode = Decode(emu.memory.Read(emu.pc), emu.memory.Read(emu.pc+1))
	emu.cycles++

	if err := emu.execute(emu.opcode); err != nil {
		emu.halted = true
		return err
	}
	return nil
}

// TickTimers applies one 60Hz decrement to both timers.
func (emu *EMU) TickTimers() {
	if emu.delayTimer > 0 {
		emu.delayTimer--
	}
	if emu.soundTimer > 0 {
		emu.soundTimer--
	}
}

// SetKeys replaces the keypad state with a fresh snapshot from the host.
func (emu *EMU) SetKeys(keys [16]bool) {
	emu.keyState = keys
}

// Frame returns a copy of the display and clears the dirty flag. ok is false
// when nothing changed since the previous call.
func (emu *EMU) Frame() (fb Framebuffer, ok bool) {
	if !emu.updateScreen {
		return emu.display, false
	}
	emu.updateScreen = false
	return emu.display, true
}

// Display returns a copy of the framebuffer without touching the dirty flag.
func (emu *EMU) Display() Framebuffer { return emu.display }

func (emu *EMU) Dirty() bool { return emu.updateScreen }

// Halt stops the machine, the next EmulateCycle returns ErrHalted.
func (emu *EMU) Halt() { emu.halted = true }

func (emu *EMU) Halted() bool { return emu.halted }

func (emu *EMU) PC() uint16 { return emu.pc }

func (emu *EMU) SP() int { return emu.sp }

func (emu *EMU) Opcode() Instruction { return emu.opcode }

func (emu *EMU) DelayTimer() uint8 { return emu.delayTimer }

func (emu *EMU) SoundTimer() uint8 { return emu.soundTimer }

// Cycles is the number of instructions executed since power-on.
func (emu *EMU) Cycles() uint64 { return emu.cycles }

// ROMSize is the number of program bytes loaded at 0x200.
func (emu *EMU) ROMSize() int { return emu.romSize }

// Memory exposes the address space for listings and tests.
func (emu *EMU) Memory() *Memory { return &emu.memory }
