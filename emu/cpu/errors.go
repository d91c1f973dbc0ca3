package cpu

import (
	"errors"
	"fmt"
)

var (
	ErrHalted         = errors.New("machine is halted")
	ErrEmptyProgram   = errors.New("rom is empty")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
)

// DecodeError is returned for an instruction word that matches no opcode.
type DecodeError struct {
	PC     uint16
	Opcode uint16
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unknown opcode 0x%04X at 0x%03X", e.Opcode, e.PC)
}

// StackError reports a call with a full stack or a return with an empty one.
type StackError struct {
	PC    uint16
	Depth int
	Err   error
}

func (e *StackError) Error() string {
	return fmt.Sprintf("%v at 0x%03X (depth %d)", e.Err, e.PC, e.Depth)
}

func (e *StackError) Unwrap() error {
	return e.Err
}
