package cpu

import (
	"errors"
	"fmt"

	"vgtool/pkg/isa"
)

var (
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrStackBounds    = errors.New("frame slot outside the stack")
	ErrVRAMBounds     = errors.New("vram index out of range")
	ErrBadAddress     = errors.New("pc does not address an instruction")
	ErrBadOperand     = errors.New("operand not valid here")
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrStepLimit      = errors.New("step limit reached")
	ErrNoProgram      = errors.New("no program loaded")
)

// Fault is a runtime error raised while executing one instruction. State is
// the machine as it was when the fault was detected.
type Fault struct {
	PC    int
	Op    isa.Opcode
	Step  int
	Err   error
	State State
}

func (f *Fault) Error() string {
	if f.Op.Valid() {
		return fmt.Sprintf("fault at pc %d (%s), step %d: %v", f.PC, f.Op, f.Step, f.Err)
	}
	return fmt.Sprintf("fault at pc %d, step %d: %v", f.PC, f.Step, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }
