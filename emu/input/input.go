// Package input maps host keys onto the 16-key hex keypad.
//
// The keypad is laid onto the left-hand 4x4 block of a QWERTY keyboard:
//
//	1 2 3 C        1 2 3 4
//	4 5 6 D   <=   Q W E R
//	7 8 9 E        A S D F
//	A 0 B F        Z X C V
package input

import (
	"time"
	"unicode"
)

// KeyRepeatDuration is how long a key counts as held after a host that has
// no key-up events (a terminal) reports it.
const KeyRepeatDuration = time.Second / 5

// Layout maps host characters to keypad keys.
type Layout map[rune]uint8

// QWERTY is the layout used by every backend.
var QWERTY = Layout{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// Lookup returns the keypad key for a host character, case-insensitive.
func (l Layout) Lookup(r rune) (uint8, bool) {
	key, ok := l[unicode.ToLower(r)]
	return key, ok
}

// Control is a host key that drives the emulator rather than the program.
type Control int

const (
	NoControl Control = iota
	Quit
	Pause
	Step
)

// ControlFor maps terminal input to a control: Escape or Ctrl-C quit, Space
// toggles pause and Enter single-steps.
func ControlFor(r rune) Control {
	switch r {
	case 0x1b, 0x03:
		return Quit
	case ' ':
		return Pause
	case '\r', '\n':
		return Step
	}
	return NoControl
}

// State is what a backend reports once per outer loop iteration.
type State struct {
	Keys  [16]bool
	Quit  bool
	Pause bool // toggle pause
	Step  bool // run one instruction while paused
}

// Apply records a control in the state.
func (s *State) Apply(c Control) {
	switch c {
	case Quit:
		s.Quit = true
	case Pause:
		s.Pause = true
	case Step:
		s.Step = true
	}
}
